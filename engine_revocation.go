package goToken

import (
	"context"
	"log"
	"strconv"

	"github.com/MrEthical07/goToken/revocation"
	"github.com/MrEthical07/goToken/signing"
	"github.com/MrEthical07/goToken/token"
)

// Revoke verifies tok under alg and key and adds its jti to the registry.
// It reports true only when this call added the jti. Revoking the same token
// again, or a token without a jti, returns false and no error.
//
// The token must still be inside its validity window. The registry is not
// consulted during verification.
func (e *Engine) Revoke(ctx context.Context, tok string, alg signing.Algorithm, key []byte) (bool, error) {
	if e == nil {
		return false, ErrEngineNotReady
	}

	event := AuditEvent{Type: AuditTokenRevoked, Algorithm: alg.String()}
	payload, err := token.Decode(ctx, tok, alg, key, token.DecodeOptions{Now: e.now})
	if err != nil {
		e.record(ctx, event, err)
		return false, err
	}
	event.Subject = payload.Subject()

	jti := payload.JTI()
	if jti == "" {
		e.metricInc(MetricRevokeNoop)
		event.Metadata = map[string]string{"newly_revoked": "false", "reason": "no_jti"}
		e.record(ctx, event, nil)
		return false, nil
	}
	event.TokenID = jti

	added, err := e.revokeID(ctx, jti)
	if err != nil {
		e.record(ctx, event, err)
		return false, err
	}
	if e.keys != nil {
		e.keys.Untrack(tok)
	}

	event.Metadata = map[string]string{"newly_revoked": strconv.FormatBool(added)}
	e.record(ctx, event, nil)
	return added, nil
}

// RevokeID adds jti to the registry directly, for callers that track token ids
// out of band. An empty jti is never revoked.
func (e *Engine) RevokeID(ctx context.Context, jti string) (bool, error) {
	if e == nil {
		return false, ErrEngineNotReady
	}
	event := AuditEvent{Type: AuditTokenRevoked, TokenID: jti}
	added, err := e.revokeID(ctx, jti)
	if err != nil {
		e.record(ctx, event, err)
		return false, err
	}
	event.Metadata = map[string]string{"newly_revoked": strconv.FormatBool(added)}
	e.record(ctx, event, nil)
	return added, nil
}

func (e *Engine) revokeID(ctx context.Context, jti string) (bool, error) {
	added, err := e.registry.Revoke(ctx, jti)
	if err != nil {
		e.metricInc(MetricRevocationBackendError)
		return false, err
	}
	if added {
		e.metricInc(MetricRevokeSuccess)
	} else {
		e.metricInc(MetricRevokeNoop)
	}
	return added, nil
}

// IsRevoked reports whether jti is in the registry.
func (e *Engine) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if e == nil {
		return false, ErrEngineNotReady
	}
	revoked, err := e.registry.IsRevoked(ctx, jti)
	if err != nil {
		e.metricInc(MetricRevocationBackendError)
		return false, err
	}
	return revoked, nil
}

// RevocationRegistry exposes the registry owned by the engine.
func (e *Engine) RevocationRegistry() revocation.Registry {
	if e == nil {
		return nil
	}
	return e.registry
}

func (e *Engine) revocationChecker() token.RevocationChecker {
	if e.config.Revocation.FailOpen {
		return failOpenChecker{registry: e.registry, metrics: e.metrics}
	}
	return strictChecker{registry: e.registry, metrics: e.metrics}
}

// strictChecker surfaces registry failures to the decoder.
type strictChecker struct {
	registry revocation.Registry
	metrics  *Metrics
}

func (c strictChecker) IsRevoked(ctx context.Context, jti string) (bool, error) {
	revoked, err := c.registry.IsRevoked(ctx, jti)
	if err != nil {
		c.metrics.Inc(MetricRevocationBackendError)
		return false, err
	}
	return revoked, nil
}

// failOpenChecker treats an unreachable registry as "not revoked".
type failOpenChecker struct {
	registry revocation.Registry
	metrics  *Metrics
}

func (c failOpenChecker) IsRevoked(ctx context.Context, jti string) (bool, error) {
	revoked, err := c.registry.IsRevoked(ctx, jti)
	if err != nil {
		c.metrics.Inc(MetricRevocationBackendError)
		log.Print("goToken: revocation lookup failed, accepting token")
		return false, nil
	}
	return revoked, nil
}
