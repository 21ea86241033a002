package goToken

import (
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goToken/keys"
	"github.com/MrEthical07/goToken/revocation"
	"github.com/MrEthical07/goToken/signing"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an Engine. A Builder is single use: the second Build call
// returns ErrBuilderUsed.
type Builder struct {
	config    Config
	redis     redis.UniversalClient
	auditSink AuditSink
	clock     func() time.Time

	built bool
}

// New returns a Builder seeded with the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration with a copy of cfg.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis supplies the client used by the redis revocation backend.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithAuditSink sets the destination of audit events. It has no effect unless
// Audit.Enabled is true.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithClock overrides the engine clock used for iat, exp and nbf handling.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

// WithMetricsEnabled toggles in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the decode latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns a ready Engine.
//
// With Keys.Enabled the key manager is given its initial pair here, either the
// configured one or a freshly generated 2048-bit pair.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Revocation.Backend == BackendRedis && b.redis == nil {
		return nil, errors.New("redis revocation backend requires redis client")
	}

	alg, err := signing.ParseAlgorithm(cfg.Signing.Algorithm)
	if err != nil {
		return nil, err
	}

	var signKey, verifyKey []byte
	switch alg.Family() {
	case signing.FamilyHMAC:
		signKey = cfg.Signing.Secret
		verifyKey = cfg.Signing.Secret
	case signing.FamilyRSA:
		if _, err := signing.ParsePrivateKey(cfg.Signing.PrivateKey); err != nil {
			return nil, fmt.Errorf("Signing PrivateKey: %w", err)
		}
		if _, err := signing.ParsePublicKey(cfg.Signing.PublicKey); err != nil {
			return nil, fmt.Errorf("Signing PublicKey: %w", err)
		}
		signKey = cfg.Signing.PrivateKey
		verifyKey = cfg.Signing.PublicKey
	}

	// -------- REVOCATION REGISTRY --------
	var registry revocation.Registry
	switch cfg.Revocation.Backend {
	case BackendRedis:
		registry = revocation.NewRedis(b.redis, cfg.Revocation.RedisPrefix)
	default:
		registry = revocation.NewMemory()
	}

	clock := b.clock
	if clock == nil {
		clock = time.Now
	}

	e := &Engine{
		config:    cfg,
		alg:       alg,
		signKey:   signKey,
		verifyKey: verifyKey,
		now:       clock,
		registry:  registry,
		metrics:   NewMetrics(cfg.Metrics),
	}
	e.checker = e.revocationChecker()

	// -------- KEY MANAGER --------
	if cfg.Keys.Enabled {
		keyAlg, err := signing.ParseAlgorithm(cfg.Keys.Algorithm)
		if err != nil {
			return nil, err
		}
		manager, err := keys.NewManager(keys.Config{
			Algorithm:   keyAlg,
			Revocations: e.checker,
			Now:         clock,
		})
		if err != nil {
			return nil, err
		}

		pair := keys.KeyPair{PrivateKey: cfg.Keys.PrivateKey, PublicKey: cfg.Keys.PublicKey}
		if len(pair.PrivateKey) == 0 {
			pair, err = keys.GenerateKeyPair()
			if err != nil {
				return nil, err
			}
		}
		if err := manager.Install(pair); err != nil {
			return nil, err
		}
		e.keys = manager
	}

	// -------- AUDIT --------
	e.audit = newAuditQueue(cfg.Audit, b.auditSink)

	b.built = true
	return e, nil
}
