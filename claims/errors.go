package claims

import (
	"errors"
	"fmt"
)

var (
	// ErrTokenExpired is returned when the validation time is after "exp".
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenNotYetValid is returned when the validation time is before "nbf".
	ErrTokenNotYetValid = errors.New("token not yet valid")
	// ErrMissingClaim is returned when a required claim is absent.
	ErrMissingClaim = errors.New("missing claim")
	// ErrInvalidClaim is returned when a claim is present with the wrong value or type.
	ErrInvalidClaim = errors.New("invalid claim")
)

// ClaimError names the claim that failed. It unwraps to ErrMissingClaim or
// ErrInvalidClaim.
type ClaimError struct {
	Name string
	Err  error
}

func (e *ClaimError) Error() string {
	return fmt.Sprintf("%v: %q", e.Err, e.Name)
}

func (e *ClaimError) Unwrap() error {
	return e.Err
}

func missing(name string) error {
	return &ClaimError{Name: name, Err: ErrMissingClaim}
}

func invalid(name string) error {
	return &ClaimError{Name: name, Err: ErrInvalidClaim}
}
