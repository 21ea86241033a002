package token

import (
	"errors"

	"github.com/MrEthical07/goToken/claims"
	"github.com/MrEthical07/goToken/signing"
)

var (
	// ErrMalformedToken is returned for structural failures: wrong segment
	// count, undecodable header or payload, or a header without "alg".
	ErrMalformedToken = errors.New("malformed token")
	// ErrInvalidSignature is returned when the signature does not match.
	ErrInvalidSignature = errors.New("invalid signature")
	// ErrTokenRevoked is returned when the token's jti is in the revocation registry.
	ErrTokenRevoked = errors.New("token revoked")
	// ErrInvalidDuration is returned by Encode when ExpiresIn or NotBefore is
	// not a whole number of seconds.
	ErrInvalidDuration = errors.New("duration must be a whole number of seconds")

	ErrUnsupportedAlgorithm = signing.ErrUnsupportedAlgorithm
	ErrMissingKeyMaterial   = signing.ErrMissingKeyMaterial
	ErrTokenExpired         = claims.ErrTokenExpired
	ErrTokenNotYetValid     = claims.ErrTokenNotYetValid
	ErrMissingClaim         = claims.ErrMissingClaim
	ErrInvalidClaim         = claims.ErrInvalidClaim
)
