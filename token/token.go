package token

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/goToken/claims"
	"github.com/MrEthical07/goToken/codec"
	"github.com/MrEthical07/goToken/signing"
)

// TypeJWT is the only header "typ" value this package emits.
const TypeJWT = "JWT"

// Header is the first token segment.
type Header struct {
	Alg string `json:"alg"`
	Typ string `json:"typ"`
}

// RevocationChecker answers whether a token identity has been revoked.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// EncodeOptions carries the optional reserved claims derived at encode time.
//
// ExpiresIn and NotBefore are relative to the issue time; zero means the claim
// is not set. NumericDate claims have whole-second granularity, so both must be
// multiples of time.Second; Encode rejects anything else with
// ErrInvalidDuration. A negative ExpiresIn is allowed and yields an already
// expired token.
type EncodeOptions struct {
	ExpiresIn    time.Duration
	NotBefore    time.Duration
	Audience     string
	Issuer       string
	CustomClaims map[string]any
	Now          func() time.Time
}

// DecodeOptions configures verification. A nil Revocations skips the
// revocation stage.
type DecodeOptions struct {
	Requirements claims.Requirements
	Revocations  RevocationChecker
	Now          func() time.Time
}

// Encode signs payload with alg and key and returns the compact token.
//
// The caller's map is never modified. "iat" is set to the current time when
// absent; "exp" is derived from ExpiresIn only when the payload has no "exp";
// "nbf", "aud" and "iss" overwrite payload values when set; CustomClaims are
// merged last.
func Encode(payload claims.Claims, alg signing.Algorithm, key []byte, opts EncodeOptions) (string, error) {
	if !alg.Valid() {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, alg)
	}
	if len(key) == 0 {
		return "", fmt.Errorf("%w: %s signing key", ErrMissingKeyMaterial, alg)
	}
	if opts.ExpiresIn%time.Second != 0 {
		return "", fmt.Errorf("%w: ExpiresIn %s", ErrInvalidDuration, opts.ExpiresIn)
	}
	if opts.NotBefore%time.Second != 0 {
		return "", fmt.Errorf("%w: NotBefore %s", ErrInvalidDuration, opts.NotBefore)
	}

	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	iat := now().Unix()

	body := payload.Clone()
	if !body.Has(claims.IssuedAt) {
		body[claims.IssuedAt] = iat
	}
	if opts.ExpiresIn != 0 && !body.Has(claims.ExpiresAt) {
		body[claims.ExpiresAt] = iat + int64(opts.ExpiresIn/time.Second)
	}
	if opts.NotBefore != 0 {
		body[claims.NotBefore] = iat + int64(opts.NotBefore/time.Second)
	}
	if opts.Audience != "" {
		body[claims.Audience] = opts.Audience
	}
	if opts.Issuer != "" {
		body[claims.Issuer] = opts.Issuer
	}
	for k, v := range opts.CustomClaims {
		body[k] = v
	}

	headerSeg, err := codec.EncodeSegment(Header{Alg: alg.String(), Typ: TypeJWT})
	if err != nil {
		return "", err
	}
	payloadSeg, err := codec.EncodeSegment(body)
	if err != nil {
		return "", err
	}

	signingInput := headerSeg + "." + payloadSeg
	sig, err := signing.Sign(signingInput, alg, key)
	if err != nil {
		return "", err
	}
	return signingInput + "." + codec.EncodeBytes(sig), nil
}

// Decode verifies tok and returns its payload.
//
// alg is the algorithm the caller expects; a token whose header names any
// other algorithm is rejected before signature verification. key is the
// shared secret for HMAC or the PEM public key for RSA.
func Decode(ctx context.Context, tok string, alg signing.Algorithm, key []byte, opts DecodeOptions) (claims.Claims, error) {
	payload, err := Verify(tok, alg, key)
	if err != nil {
		return nil, err
	}

	if err := claims.NewValidator(opts.Now).Validate(payload, opts.Requirements); err != nil {
		return nil, err
	}

	if opts.Revocations != nil {
		if jti := payload.JTI(); jti != "" {
			revoked, err := opts.Revocations.IsRevoked(ctx, jti)
			if err != nil {
				return nil, fmt.Errorf("revocation check: %w", err)
			}
			if revoked {
				return nil, ErrTokenRevoked
			}
		}
	}

	return payload, nil
}

// Verify performs the structural and signature stages of Decode only. Claims
// are returned without temporal, identity or revocation checks.
func Verify(tok string, alg signing.Algorithm, key []byte) (claims.Claims, error) {
	parts := strings.Split(tok, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: expected 3 segments, got %d", ErrMalformedToken, len(parts))
	}

	var header Header
	if err := codec.DecodeSegment(parts[0], &header); err != nil {
		return nil, fmt.Errorf("%w: header: %w", ErrMalformedToken, err)
	}
	if header.Alg == "" {
		return nil, fmt.Errorf("%w: header has no alg", ErrMalformedToken)
	}

	var payload claims.Claims
	if err := codec.DecodeSegment(parts[1], &payload); err != nil {
		return nil, fmt.Errorf("%w: payload: %w", ErrMalformedToken, err)
	}
	if payload == nil {
		return nil, fmt.Errorf("%w: payload is not an object", ErrMalformedToken)
	}

	if !alg.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, alg)
	}
	headerAlg, err := signing.ParseAlgorithm(header.Alg)
	if err != nil {
		return nil, err
	}
	if headerAlg != alg {
		return nil, fmt.Errorf("%w: token uses %s, expected %s", ErrUnsupportedAlgorithm, headerAlg, alg)
	}
	if len(key) == 0 {
		return nil, fmt.Errorf("%w: %s verification key", ErrMissingKeyMaterial, alg)
	}

	sig, err := codec.DecodeBytes(parts[2])
	if err != nil {
		return nil, ErrInvalidSignature
	}
	if !signing.Verify(parts[0]+"."+parts[1], sig, alg, key) {
		return nil, ErrInvalidSignature
	}
	return payload, nil
}
