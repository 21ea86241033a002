package goToken

import (
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goToken/signing"
)

// Revocation backends accepted by RevocationConfig.Backend.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config is the complete engine configuration.
//
// Config values are copied by Builder.WithConfig; byte slices are cloned so later
// mutation by the caller has no effect on a built Engine.
type Config struct {
	Signing    SigningConfig
	Tokens     TokensConfig
	Revocation RevocationConfig
	Keys       KeysConfig
	Audit      AuditConfig
	Metrics    MetricsConfig
}

// SigningConfig holds the algorithm and key material used by the issuing helpers.
//
// Secret keys the HMAC family and refresh tokens. PrivateKey and PublicKey are PEM
// encoded RSA keys and are required when Algorithm names an RSA algorithm.
type SigningConfig struct {
	Algorithm  string
	Secret     []byte
	PrivateKey []byte
	PublicKey  []byte
}

// TokensConfig controls claims stamped by IssueAccessToken and IssueRefreshToken
// and the requirements enforced by DecodeAccessToken.
type TokensConfig struct {
	Issuer     string
	Audience   string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// ExtendBy is the window applied by ExtendExpiration when no explicit expiry is given.
	ExtendBy time.Duration
}

// RevocationConfig selects the registry backing Revoke and IsRevoked.
type RevocationConfig struct {
	Backend     string
	RedisPrefix string
	// FailOpen accepts tokens when the registry cannot be reached during decode.
	FailOpen bool
}

// KeysConfig enables the rotating RSA key manager.
//
// When PrivateKey and PublicKey are both set they are installed as the initial
// pair; otherwise a fresh pair is generated at build time.
type KeysConfig struct {
	Enabled    bool
	Algorithm  string
	PrivateKey []byte
	PublicKey  []byte
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig toggles in-process counters and the decode latency histogram.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

func defaultConfig() Config {
	return Config{
		Signing: SigningConfig{
			Algorithm: signing.HS256.String(),
		},
		Tokens: TokensConfig{
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 30 * 24 * time.Hour,
			ExtendBy:   time.Hour,
		},
		Revocation: RevocationConfig{
			Backend:     BackendMemory,
			RedisPrefix: "rv",
		},
		Keys: KeysConfig{
			Algorithm: signing.RS256.String(),
		},
		Audit: AuditConfig{
			BufferSize: 1024,
			DropIfFull: true,
		},
	}
}

// DefaultConfig returns the configuration New starts from. Secret is left empty
// and must be supplied before Build.
func DefaultConfig() Config {
	return defaultConfig()
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Signing.Secret = cloneBytes(cfg.Signing.Secret)
	out.Signing.PrivateKey = cloneBytes(cfg.Signing.PrivateKey)
	out.Signing.PublicKey = cloneBytes(cfg.Signing.PublicKey)
	out.Keys.PrivateKey = cloneBytes(cfg.Keys.PrivateKey)
	out.Keys.PublicKey = cloneBytes(cfg.Keys.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// minSecretBytes is the shortest HMAC secret accepted in configuration.
const minSecretBytes = 32

// Validate reports the first configuration problem found, or nil.
func (c *Config) Validate() error {
	// Signing
	alg, err := signing.ParseAlgorithm(c.Signing.Algorithm)
	if err != nil {
		return fmt.Errorf("Signing Algorithm: %w", err)
	}
	switch alg.Family() {
	case signing.FamilyHMAC:
		if len(c.Signing.Secret) < minSecretBytes {
			return fmt.Errorf("Signing Secret must be >= %d bytes", minSecretBytes)
		}
	case signing.FamilyRSA:
		if len(c.Signing.PrivateKey) == 0 {
			return errors.New("RSA signing requires PrivateKey")
		}
		if len(c.Signing.PublicKey) == 0 {
			return errors.New("RSA signing requires PublicKey")
		}
		if len(c.Signing.Secret) > 0 && len(c.Signing.Secret) < minSecretBytes {
			return fmt.Errorf("Signing Secret must be >= %d bytes", minSecretBytes)
		}
	}

	// Tokens
	if c.Tokens.AccessTTL <= 0 {
		return errors.New("Tokens AccessTTL must be > 0")
	}
	if c.Tokens.RefreshTTL <= 0 {
		return errors.New("Tokens RefreshTTL must be > 0")
	}
	if c.Tokens.ExtendBy <= 0 {
		return errors.New("Tokens ExtendBy must be > 0")
	}
	if c.Tokens.AccessTTL%time.Second != 0 || c.Tokens.RefreshTTL%time.Second != 0 || c.Tokens.ExtendBy%time.Second != 0 {
		return errors.New("Tokens AccessTTL, RefreshTTL and ExtendBy must be whole seconds")
	}

	// Revocation
	switch c.Revocation.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Revocation.RedisPrefix == "" {
			return errors.New("Revocation RedisPrefix must be set for the redis backend")
		}
	default:
		return errors.New("Revocation Backend must be 'memory' or 'redis'")
	}
	if c.Revocation.FailOpen && c.Revocation.Backend == BackendMemory {
		return errors.New("Revocation FailOpen only applies to the redis backend")
	}

	// Keys
	if c.Keys.Enabled {
		keyAlg, err := signing.ParseAlgorithm(c.Keys.Algorithm)
		if err != nil {
			return fmt.Errorf("Keys Algorithm: %w", err)
		}
		if keyAlg.Family() != signing.FamilyRSA {
			return errors.New("Keys Algorithm must be an RSA algorithm")
		}
		if (len(c.Keys.PrivateKey) == 0) != (len(c.Keys.PublicKey) == 0) {
			return errors.New("Keys PrivateKey and PublicKey must be set together")
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0")
	}

	// Metrics
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}
