package claims

import (
	"encoding/json"
	"math"
)

// Reserved claim names.
const (
	IssuedAt  = "iat"
	ExpiresAt = "exp"
	NotBefore = "nbf"
	Audience  = "aud"
	Issuer    = "iss"
	Subject   = "sub"
	TokenID   = "jti"
)

// Claims is a token payload: claim name to JSON-compatible value.
type Claims map[string]any

// Clone returns a shallow copy of c. Nested maps and slices are shared.
func (c Claims) Clone() Claims {
	out := make(Claims, len(c)+4)
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Has reports whether name is present.
func (c Claims) Has(name string) bool {
	_, ok := c[name]
	return ok
}

// String returns the claim as a string, or "" and false when absent or not a string.
func (c Claims) String(name string) (string, bool) {
	v, ok := c[name].(string)
	return v, ok
}

// JTI returns the token identity, or "" when absent.
func (c Claims) JTI() string {
	v, _ := c.String(TokenID)
	return v
}

// Subject returns the "sub" claim, or "".
func (c Claims) Subject() string {
	v, _ := c.String(Subject)
	return v
}

// NumericDate returns a numeric claim as epoch seconds. present is false when
// the claim is absent; ok is false when it is present but not a finite number.
func (c Claims) NumericDate(name string) (seconds float64, present bool, ok bool) {
	v, present := c[name]
	if !present {
		return 0, false, false
	}
	switch n := v.(type) {
	case float64:
		seconds = n
	case float32:
		seconds = float64(n)
	case int:
		seconds = float64(n)
	case int64:
		seconds = float64(n)
	case int32:
		seconds = float64(n)
	case uint32:
		seconds = float64(n)
	case uint64:
		seconds = float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, true, false
		}
		seconds = f
	default:
		return 0, true, false
	}
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return 0, true, false
	}
	return seconds, true, true
}
