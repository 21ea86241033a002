package goToken

import (
	"context"
	"strconv"

	"github.com/MrEthical07/goToken/claims"
	"github.com/MrEthical07/goToken/keys"
	"github.com/MrEthical07/goToken/token"
)

func (e *Engine) keyManager() (*keys.Manager, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if e.keys == nil {
		return nil, ErrKeyManagerDisabled
	}
	return e.keys, nil
}

// IssueWithActiveKey signs payload with the key manager's active private key and
// tracks the token so the next rotation re-signs it.
func (e *Engine) IssueWithActiveKey(payload claims.Claims, opts token.EncodeOptions) (string, error) {
	m, err := e.keyManager()
	if err != nil {
		return "", err
	}
	if opts.Now == nil {
		opts.Now = e.now
	}

	tok, err := m.Issue(payload, opts)
	if err != nil {
		e.metricInc(MetricEncodeFailure)
		return "", err
	}
	e.metricInc(MetricEncodeSuccess)
	return tok, nil
}

// VerifyWithActiveKey decodes tok against the active public key.
func (e *Engine) VerifyWithActiveKey(ctx context.Context, tok string, req claims.Requirements) (claims.Claims, error) {
	m, err := e.keyManager()
	if err != nil {
		return nil, err
	}
	payload, err := m.Verify(ctx, tok, req)
	e.recordDecode(err)
	return payload, err
}

// ActiveKeyPair returns a copy of the key manager's active pair.
func (e *Engine) ActiveKeyPair() (keys.KeyPair, bool) {
	m, err := e.keyManager()
	if err != nil {
		return keys.KeyPair{}, false
	}
	return m.Active()
}

// RotateKeys replaces the active pair and re-signs every tracked token that
// still verifies. The returned map goes from old token to replacement.
func (e *Engine) RotateKeys(ctx context.Context) (keys.Rotation, error) {
	m, err := e.keyManager()
	if err != nil {
		return keys.Rotation{}, err
	}

	rotation, err := m.Rotate(ctx)
	if err != nil {
		e.record(ctx, AuditEvent{Type: AuditKeysRotated, Algorithm: m.Algorithm().String()}, err)
		return keys.Rotation{}, err
	}

	e.metricInc(MetricKeyRotation)
	if e.metrics != nil {
		e.metrics.Add(MetricTokensReencoded, uint64(len(rotation.Reencoded)))
		e.metrics.Add(MetricTokensDropped, uint64(rotation.Dropped))
	}
	e.record(ctx, AuditEvent{
		Type:      AuditKeysRotated,
		Algorithm: m.Algorithm().String(),
		Metadata: map[string]string{
			"reencoded": strconv.Itoa(len(rotation.Reencoded)),
			"dropped":   strconv.Itoa(rotation.Dropped),
		},
	}, nil)
	return rotation, nil
}
