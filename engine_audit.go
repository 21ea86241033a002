package goToken

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// record stamps event with an id and time, derives Success and Error from
// err and queues it. It is a no-op when auditing is disabled.
func (e *Engine) record(ctx context.Context, event AuditEvent, err error) {
	if e == nil || e.audit == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	event.EventID = uuid.NewString()
	event.Timestamp = e.now().UTC()
	event.Success = err == nil
	event.Error = auditErrorCode(err)
	e.audit.Emit(ctx, event)
}

// auditErrorCode labels err by the sentinel it wraps; anything unrecognised is
// reported as AuditErrInternal.
func auditErrorCode(err error) AuditErrorCode {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMalformedToken):
		return AuditErrMalformedToken
	case errors.Is(err, ErrUnsupportedAlgorithm):
		return AuditErrUnsupportedAlgorithm
	case errors.Is(err, ErrMissingKeyMaterial):
		return AuditErrMissingKeyMaterial
	case errors.Is(err, ErrInvalidSignature):
		return AuditErrInvalidSignature
	case errors.Is(err, ErrTokenExpired):
		return AuditErrTokenExpired
	case errors.Is(err, ErrTokenNotYetValid):
		return AuditErrTokenNotYetValid
	case errors.Is(err, ErrMissingClaim), errors.Is(err, ErrInvalidClaim):
		return AuditErrClaimRejected
	case errors.Is(err, ErrTokenRevoked):
		return AuditErrTokenRevoked
	case errors.Is(err, ErrNoActiveKey):
		return AuditErrNoActiveKey
	case errors.Is(err, ErrRedisUnavailable):
		return AuditErrBackendUnavailable
	default:
		return AuditErrInternal
	}
}
