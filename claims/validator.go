package claims

import (
	"bytes"
	"encoding/json"
	"math"
	"reflect"
	"sort"
	"time"
)

// Requirements are the caller-supplied identity constraints checked after the
// temporal ones. Empty Audience or Issuer means unconstrained.
type Requirements struct {
	Audience string
	Issuer   string
	Custom   map[string]any
}

// Validator checks a decoded payload against the current time and a set of
// Requirements. A Validator is immutable and safe for concurrent use.
type Validator struct {
	now func() time.Time
}

// NewValidator returns a Validator reading time from now, or time.Now when nil.
func NewValidator(now func() time.Time) *Validator {
	if now == nil {
		now = time.Now
	}
	return &Validator{now: now}
}

// Validate runs, in order: expiry, not-before, audience, issuer, then every
// custom requirement sorted by claim name. The first failure is returned.
//
// A token is valid at t iff nbf <= t <= exp; an absent bound is unconstrained.
func (v *Validator) Validate(c Claims, req Requirements) error {
	t := float64(v.now().Unix())

	if exp, present, ok := c.NumericDate(ExpiresAt); present {
		if !ok {
			return invalid(ExpiresAt)
		}
		if t > exp {
			return ErrTokenExpired
		}
	}

	if nbf, present, ok := c.NumericDate(NotBefore); present {
		if !ok {
			return invalid(NotBefore)
		}
		if t < nbf {
			return ErrTokenNotYetValid
		}
	}

	if req.Audience != "" {
		if err := checkAudience(c, req.Audience); err != nil {
			return err
		}
	}

	if req.Issuer != "" {
		iss, present := c[Issuer]
		if !present {
			return missing(Issuer)
		}
		if s, ok := iss.(string); !ok || s != req.Issuer {
			return invalid(Issuer)
		}
	}

	if len(req.Custom) == 0 {
		return nil
	}

	names := make([]string, 0, len(req.Custom))
	for name := range req.Custom {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		got, present := c[name]
		if !present {
			return missing(name)
		}
		if !equalJSON(got, req.Custom[name]) {
			return invalid(name)
		}
	}
	return nil
}

// "aud" may be a single string or an array of strings.
func checkAudience(c Claims, want string) error {
	aud, present := c[Audience]
	if !present {
		return missing(Audience)
	}
	switch v := aud.(type) {
	case string:
		if v == want {
			return nil
		}
	case []string:
		for _, s := range v {
			if s == want {
				return nil
			}
		}
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && s == want {
				return nil
			}
		}
	}
	return invalid(Audience)
}

// equalJSON compares two values after normalizing both through JSON, so an
// int requirement matches the json.Number produced by decoding and 1e3
// matches 1000.
func equalJSON(a, b any) bool {
	na, ok := normalize(a)
	if !ok {
		return false
	}
	nb, ok := normalize(b)
	if !ok {
		return false
	}
	return reflect.DeepEqual(na, nb)
}

func normalize(v any) (any, bool) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, false
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, false
	}
	return canonicalNumbers(out), true
}

// canonicalNumbers rewrites every json.Number as an int64 when it denotes an
// integer that fits, and as a float64 otherwise.
func canonicalNumbers(v any) any {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n
		}
		f, err := x.Float64()
		if err != nil {
			return x.String()
		}
		if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			return int64(f)
		}
		return f
	case map[string]any:
		for k, item := range x {
			x[k] = canonicalNumbers(item)
		}
		return x
	case []any:
		for i, item := range x {
			x[i] = canonicalNumbers(item)
		}
		return x
	default:
		return v
	}
}
