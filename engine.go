package goToken

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/MrEthical07/goToken/claims"
	"github.com/MrEthical07/goToken/internal"
	"github.com/MrEthical07/goToken/keys"
	"github.com/MrEthical07/goToken/revocation"
	"github.com/MrEthical07/goToken/signing"
	"github.com/MrEthical07/goToken/token"
)

// Claims stamped by the issuing helpers.
const (
	ClaimScopes    = "scopes"
	ClaimTokenType = "type"

	TokenTypeRefresh = "refresh"
)

// Engine issues, verifies, revokes and re-signs tokens.
//
// An Engine is built once through Builder.Build and is safe for concurrent use.
// Methods called on a nil Engine return ErrEngineNotReady.
type Engine struct {
	config    Config
	alg       signing.Algorithm
	signKey   []byte
	verifyKey []byte
	now       func() time.Time

	registry revocation.Registry
	checker  token.RevocationChecker
	keys     *keys.Manager

	audit   *auditQueue
	metrics *Metrics
}

// Close flushes pending audit events to the sink and stops the audit worker.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

// AuditDropped returns the number of audit events that never reached the sink:
// dropped on a full queue, abandoned on ctx cancellation or lost to a panicking sink.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// Algorithm returns the configured signing algorithm used by the issuing helpers.
func (e *Engine) Algorithm() signing.Algorithm {
	if e == nil {
		return signing.AlgorithmUnknown
	}
	return e.alg
}

/*
====================================
ENCODE / DECODE
====================================
*/

// Encode signs payload with alg and key. iat, exp and nbf are derived from
// opts relative to the engine clock unless opts.Now is set.
func (e *Engine) Encode(payload claims.Claims, alg signing.Algorithm, key []byte, opts token.EncodeOptions) (string, error) {
	if e == nil {
		return "", ErrEngineNotReady
	}
	if opts.Now == nil {
		opts.Now = e.now
	}

	tok, err := token.Encode(payload, alg, key, opts)
	if err != nil {
		e.metricInc(MetricEncodeFailure)
		return "", err
	}
	e.metricInc(MetricEncodeSuccess)
	return tok, nil
}

// Decode runs the full verification pipeline: structure, header algorithm,
// signature, time window, required claims and finally the revocation registry.
//
// alg is the algorithm the caller expects; a token whose header names any other
// algorithm fails with ErrUnsupportedAlgorithm before its signature is checked.
func (e *Engine) Decode(ctx context.Context, tok string, alg signing.Algorithm, key []byte, req claims.Requirements) (claims.Claims, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	start := time.Now()
	payload, err := token.Decode(ctx, tok, alg, key, token.DecodeOptions{
		Requirements: req,
		Revocations:  e.checker,
		Now:          e.now,
	})
	e.metrics.Observe(MetricDecodeLatency, time.Since(start))
	e.recordDecode(err)
	return payload, err
}

// DecodeAccessToken decodes tok with the configured algorithm and verification
// key, enforcing the configured issuer and audience when set.
func (e *Engine) DecodeAccessToken(ctx context.Context, tok string) (claims.Claims, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	return e.Decode(ctx, tok, e.alg, e.verifyKey, claims.Requirements{
		Audience: e.config.Tokens.Audience,
		Issuer:   e.config.Tokens.Issuer,
	})
}

// DecodeRefreshToken decodes a token produced by IssueRefreshToken.
func (e *Engine) DecodeRefreshToken(ctx context.Context, tok string) (claims.Claims, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	return e.Decode(ctx, tok, signing.HS256, e.config.Signing.Secret, claims.Requirements{
		Issuer: e.config.Tokens.Issuer,
		Custom: map[string]any{ClaimTokenType: TokenTypeRefresh},
	})
}

func (e *Engine) recordDecode(err error) {
	if err == nil {
		e.metricInc(MetricDecodeSuccess)
		return
	}
	if id, ok := decodeMetric(err); ok {
		e.metricInc(id)
	}
}

func decodeMetric(err error) (MetricID, bool) {
	switch {
	case errors.Is(err, ErrTokenRevoked):
		return MetricDecodeRevoked, true
	case errors.Is(err, ErrTokenExpired):
		return MetricDecodeExpired, true
	case errors.Is(err, ErrTokenNotYetValid):
		return MetricDecodeNotYetValid, true
	case errors.Is(err, ErrMissingClaim), errors.Is(err, ErrInvalidClaim):
		return MetricDecodeClaimRejected, true
	case errors.Is(err, ErrInvalidSignature):
		return MetricDecodeInvalidSignature, true
	case errors.Is(err, ErrUnsupportedAlgorithm):
		return MetricDecodeUnsupportedAlgorithm, true
	case errors.Is(err, ErrMissingKeyMaterial):
		return MetricDecodeMissingKey, true
	case errors.Is(err, ErrMalformedToken):
		return MetricDecodeMalformed, true
	default:
		return 0, false
	}
}

/*
====================================
ISSUING HELPERS
====================================
*/

// IssueAccessToken signs an access token for subject with the configured
// algorithm, TTL, issuer and audience and a fresh random jti. custom claims are
// merged last and may override any of them.
func (e *Engine) IssueAccessToken(subject string, scopes []string, custom map[string]any) (string, error) {
	if e == nil {
		return "", ErrEngineNotReady
	}
	if subject == "" {
		return "", &claims.ClaimError{Name: claims.Subject, Err: claims.ErrMissingClaim}
	}

	jti, err := internal.NewTokenID()
	if err != nil {
		return "", err
	}
	payload := claims.Claims{
		claims.Subject: subject,
		claims.TokenID: jti,
	}
	if len(scopes) > 0 {
		payload[ClaimScopes] = append([]string(nil), scopes...)
	}

	tok, err := e.Encode(payload, e.alg, e.signKey, token.EncodeOptions{
		ExpiresIn:    e.config.Tokens.AccessTTL,
		Audience:     e.config.Tokens.Audience,
		Issuer:       e.config.Tokens.Issuer,
		CustomClaims: custom,
	})
	if err != nil {
		return "", err
	}

	e.record(context.Background(), AuditEvent{
		Type:      AuditTokenIssued,
		Subject:   subject,
		TokenID:   jti,
		Algorithm: e.alg.String(),
		Metadata:  map[string]string{"kind": "access"},
	}, nil)
	return tok, nil
}

// IssueRefreshToken signs a long-lived HS256 token carrying type "refresh" for
// subject. It requires Signing.Secret regardless of the configured algorithm.
func (e *Engine) IssueRefreshToken(subject string) (string, error) {
	if e == nil {
		return "", ErrEngineNotReady
	}
	if subject == "" {
		return "", &claims.ClaimError{Name: claims.Subject, Err: claims.ErrMissingClaim}
	}

	jti, err := internal.NewTokenID()
	if err != nil {
		return "", err
	}
	payload := claims.Claims{
		claims.Subject: subject,
		claims.TokenID: jti,
		ClaimTokenType: TokenTypeRefresh,
	}

	tok, err := e.Encode(payload, signing.HS256, e.config.Signing.Secret, token.EncodeOptions{
		ExpiresIn: e.config.Tokens.RefreshTTL,
		Issuer:    e.config.Tokens.Issuer,
	})
	if err != nil {
		return "", err
	}

	e.record(context.Background(), AuditEvent{
		Type:      AuditTokenIssued,
		Subject:   subject,
		TokenID:   jti,
		Algorithm: signing.HS256.String(),
		Metadata:  map[string]string{"kind": TokenTypeRefresh},
	}, nil)
	return tok, nil
}

// ExtendExpiration verifies tok under alg and key, sets exp to newExp and signs
// the result with signKey. A zero newExp means now plus Tokens.ExtendBy.
//
// The original token is not modified or revoked; iat and jti carry over.
func (e *Engine) ExtendExpiration(ctx context.Context, tok string, alg signing.Algorithm, key, signKey []byte, newExp time.Time) (string, error) {
	if e == nil {
		return "", ErrEngineNotReady
	}

	payload, err := token.Decode(ctx, tok, alg, key, token.DecodeOptions{
		Revocations: e.checker,
		Now:         e.now,
	})
	if err != nil {
		e.record(ctx, AuditEvent{Type: AuditTokenExtended, Algorithm: alg.String()}, err)
		return "", err
	}

	if newExp.IsZero() {
		newExp = e.now().Add(e.config.Tokens.ExtendBy)
	}
	payload[claims.ExpiresAt] = newExp.Unix()

	event := AuditEvent{
		Type:      AuditTokenExtended,
		Subject:   payload.Subject(),
		TokenID:   payload.JTI(),
		Algorithm: alg.String(),
	}
	out, err := e.Encode(payload, alg, signKey, token.EncodeOptions{})
	if err != nil {
		e.record(ctx, event, err)
		return "", err
	}

	e.metricInc(MetricTokenExtended)
	event.Metadata = map[string]string{"exp": strconv.FormatInt(newExp.Unix(), 10)}
	e.record(ctx, event, nil)
	return out, nil
}

// GenerateKeyPair returns a fresh PEM encoded 2048-bit RSA key pair without
// touching the key manager.
func (e *Engine) GenerateKeyPair() (keys.KeyPair, error) {
	if e == nil {
		return keys.KeyPair{}, ErrEngineNotReady
	}
	return keys.GenerateKeyPair()
}

// GenerateJTI returns a random version 4 UUID string.
func GenerateJTI() (string, error) {
	return internal.NewTokenID()
}

// GenerateSecret returns n random bytes hex encoded. n <= 0 selects 32 bytes.
func GenerateSecret(n int) (string, error) {
	return internal.NewSecretHex(n)
}
