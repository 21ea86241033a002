package goToken

import (
	"errors"

	"github.com/MrEthical07/goToken/keys"
	"github.com/MrEthical07/goToken/revocation"
	"github.com/MrEthical07/goToken/token"
)

// Token taxonomy re-exported so callers only import the root package.
var (
	ErrMalformedToken       = token.ErrMalformedToken
	ErrUnsupportedAlgorithm = token.ErrUnsupportedAlgorithm
	ErrMissingKeyMaterial   = token.ErrMissingKeyMaterial
	ErrInvalidSignature     = token.ErrInvalidSignature
	ErrTokenExpired         = token.ErrTokenExpired
	ErrTokenNotYetValid     = token.ErrTokenNotYetValid
	ErrMissingClaim         = token.ErrMissingClaim
	ErrInvalidClaim         = token.ErrInvalidClaim
	ErrTokenRevoked         = token.ErrTokenRevoked
	ErrInvalidDuration      = token.ErrInvalidDuration

	ErrNoActiveKey      = keys.ErrNoActiveKey
	ErrRedisUnavailable = revocation.ErrRedisUnavailable
)

var (
	// ErrEngineNotReady is returned by Engine methods called on a nil engine.
	ErrEngineNotReady = errors.New("engine not ready")
	// ErrKeyManagerDisabled is returned by key-manager operations when Keys.Enabled is false.
	ErrKeyManagerDisabled = errors.New("key manager disabled")
	// ErrBuilderUsed is returned when Build is called more than once on the same Builder.
	ErrBuilderUsed = errors.New("builder already used")
)
