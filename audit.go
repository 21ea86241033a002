package goToken

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

// AuditEventType names the engine operation an AuditEvent describes.
type AuditEventType string

const (
	// AuditTokenIssued follows IssueAccessToken and IssueRefreshToken.
	// Metadata["kind"] is "access" or "refresh".
	AuditTokenIssued AuditEventType = "token_issued"
	// AuditTokenRevoked follows Revoke and RevokeID. Metadata["newly_revoked"]
	// is "true" only when the call added the jti; Metadata["reason"] is
	// "no_jti" for a verified token that carried no jti.
	AuditTokenRevoked AuditEventType = "token_revoked"
	// AuditTokenExtended follows ExtendExpiration. Metadata["exp"] is the new
	// expiry in epoch seconds.
	AuditTokenExtended AuditEventType = "token_extended"
	// AuditKeysRotated follows RotateKeys. Metadata carries the "reencoded" and
	// "dropped" counts.
	AuditKeysRotated AuditEventType = "keys_rotated"
)

// AuditErrorCode is the stable, secret-free failure label of an AuditEvent.
type AuditErrorCode string

const (
	AuditErrMalformedToken       AuditErrorCode = "malformed_token"
	AuditErrUnsupportedAlgorithm AuditErrorCode = "unsupported_algorithm"
	AuditErrMissingKeyMaterial   AuditErrorCode = "missing_key_material"
	AuditErrInvalidSignature     AuditErrorCode = "invalid_signature"
	AuditErrTokenExpired         AuditErrorCode = "token_expired"
	AuditErrTokenNotYetValid     AuditErrorCode = "token_not_yet_valid"
	AuditErrClaimRejected        AuditErrorCode = "claim_rejected"
	AuditErrTokenRevoked         AuditErrorCode = "token_revoked"
	AuditErrNoActiveKey          AuditErrorCode = "no_active_key"
	AuditErrBackendUnavailable   AuditErrorCode = "backend_unavailable"
	AuditErrInternal             AuditErrorCode = "internal_error"
)

// AuditEvent records one token lifecycle operation.
//
// Events never carry token strings, secrets or key material; a token is
// identified by its jti only.
type AuditEvent struct {
	EventID   string            `json:"event_id"`
	Timestamp time.Time         `json:"timestamp"`
	Type      AuditEventType    `json:"event_type"`
	Subject   string            `json:"sub,omitempty"`
	TokenID   string            `json:"jti,omitempty"`
	Algorithm string            `json:"alg,omitempty"`
	Success   bool              `json:"success"`
	Error     AuditErrorCode    `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// AuditSink receives events from the audit worker goroutine, one at a time.
type AuditSink interface {
	Emit(ctx context.Context, event AuditEvent)
}

// AuditSinkFunc adapts a function to AuditSink.
type AuditSinkFunc func(ctx context.Context, event AuditEvent)

func (f AuditSinkFunc) Emit(ctx context.Context, event AuditEvent) { f(ctx, event) }

// NoOpSink discards every event.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, AuditEvent) {}

// FilterSink forwards only events whose type is listed, e.g. to ship
// revocations and rotations to a separate store.
func FilterSink(next AuditSink, types ...AuditEventType) AuditSink {
	allowed := make(map[AuditEventType]struct{}, len(types))
	for _, t := range types {
		allowed[t] = struct{}{}
	}
	return AuditSinkFunc(func(ctx context.Context, event AuditEvent) {
		if _, ok := allowed[event.Type]; ok {
			next.Emit(ctx, event)
		}
	})
}

// ChannelSink hands events to a consumer reading Events.
type ChannelSink struct {
	events chan AuditEvent
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{events: make(chan AuditEvent, buffer)}
}

// Emit blocks while the channel is full, until ctx ends.
func (s *ChannelSink) Emit(ctx context.Context, event AuditEvent) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan AuditEvent {
	return s.events
}

// JSONWriterSink writes events to w as JSON lines. Write failures are counted,
// not returned, since the worker has no caller to report to.
type JSONWriterSink struct {
	mu       sync.Mutex
	enc      *json.Encoder
	failures atomic.Uint64
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	if w == nil {
		return &JSONWriterSink{}
	}
	return &JSONWriterSink{enc: json.NewEncoder(w)}
}

func (s *JSONWriterSink) Emit(_ context.Context, event AuditEvent) {
	if s == nil || s.enc == nil {
		return
	}
	s.mu.Lock()
	err := s.enc.Encode(event)
	s.mu.Unlock()
	if err != nil {
		s.failures.Add(1)
	}
}

// Failures returns how many events could not be written.
func (s *JSONWriterSink) Failures() uint64 {
	if s == nil {
		return 0
	}
	return s.failures.Load()
}
