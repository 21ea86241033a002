package goToken

import (
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/goToken/keys"
)

func TestConfigValidateTable(t *testing.T) {
	pair, err := keys.GenerateKeyPair()
	if err != nil {
		t.Fatalf("generate key pair: %v", err)
	}

	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
		wantMsg   string
	}{
		{
			name:      "default with secret is valid",
			mutate:    func(*Config) {},
			wantValid: true,
		},
		{
			name:    "default without secret",
			mutate:  func(c *Config) { c.Signing.Secret = nil },
			wantMsg: "Signing Secret",
		},
		{
			name:    "short secret",
			mutate:  func(c *Config) { c.Signing.Secret = []byte("short") },
			wantMsg: "Signing Secret",
		},
		{
			name:    "unknown algorithm",
			mutate:  func(c *Config) { c.Signing.Algorithm = "none" },
			wantMsg: "Signing Algorithm",
		},
		{
			name:    "lowercase algorithm is not accepted",
			mutate:  func(c *Config) { c.Signing.Algorithm = "hs256" },
			wantMsg: "Signing Algorithm",
		},
		{
			name: "rsa requires private key",
			mutate: func(c *Config) {
				c.Signing.Algorithm = "RS256"
				c.Signing.PublicKey = pair.PublicKey
			},
			wantMsg: "PrivateKey",
		},
		{
			name: "rsa requires public key",
			mutate: func(c *Config) {
				c.Signing.Algorithm = "RS384"
				c.Signing.PrivateKey = pair.PrivateKey
			},
			wantMsg: "PublicKey",
		},
		{
			name: "rsa without secret is valid",
			mutate: func(c *Config) {
				c.Signing.Algorithm = "RS512"
				c.Signing.Secret = nil
				c.Signing.PrivateKey = pair.PrivateKey
				c.Signing.PublicKey = pair.PublicKey
			},
			wantValid: true,
		},
		{
			name:    "access ttl",
			mutate:  func(c *Config) { c.Tokens.AccessTTL = 0 },
			wantMsg: "AccessTTL",
		},
		{
			name:    "refresh ttl",
			mutate:  func(c *Config) { c.Tokens.RefreshTTL = -time.Second },
			wantMsg: "RefreshTTL",
		},
		{
			name:    "extend by",
			mutate:  func(c *Config) { c.Tokens.ExtendBy = 0 },
			wantMsg: "ExtendBy",
		},
		{
			name:    "sub-second access ttl",
			mutate:  func(c *Config) { c.Tokens.AccessTTL = 1500 * time.Millisecond },
			wantMsg: "whole seconds",
		},
		{
			name:    "unknown backend",
			mutate:  func(c *Config) { c.Revocation.Backend = "etcd" },
			wantMsg: "Revocation Backend",
		},
		{
			name: "redis backend needs prefix",
			mutate: func(c *Config) {
				c.Revocation.Backend = BackendRedis
				c.Revocation.RedisPrefix = ""
			},
			wantMsg: "RedisPrefix",
		},
		{
			name:    "fail open on memory backend",
			mutate:  func(c *Config) { c.Revocation.FailOpen = true },
			wantMsg: "FailOpen",
		},
		{
			name: "keys need rsa algorithm",
			mutate: func(c *Config) {
				c.Keys.Enabled = true
				c.Keys.Algorithm = "HS256"
			},
			wantMsg: "Keys Algorithm",
		},
		{
			name: "keys half configured",
			mutate: func(c *Config) {
				c.Keys.Enabled = true
				c.Keys.PrivateKey = pair.PrivateKey
			},
			wantMsg: "set together",
		},
		{
			name: "keys algorithm ignored when disabled",
			mutate: func(c *Config) {
				c.Keys.Algorithm = "bogus"
			},
			wantValid: true,
		},
		{
			name: "audit buffer",
			mutate: func(c *Config) {
				c.Audit.Enabled = true
				c.Audit.BufferSize = 0
			},
			wantMsg: "BufferSize",
		},
		{
			name: "histograms without metrics",
			mutate: func(c *Config) {
				c.Metrics.Enabled = false
				c.Metrics.EnableLatencyHistograms = true
			},
			wantMsg: "EnableLatencyHistograms",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantValid {
				if err != nil {
					t.Fatalf("expected valid config, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.wantMsg) {
				t.Fatalf("expected error mentioning %q, got %q", tc.wantMsg, err)
			}
		})
	}
}

func TestWithConfigClonesByteSlices(t *testing.T) {
	cfg := testConfig()
	b := New().WithConfig(cfg)

	cfg.Signing.Secret[0] = 'X'

	if b.config.Signing.Secret[0] != testSecret[0] {
		t.Fatal("builder config shares the caller's secret slice")
	}
}

func TestBuildRejectsSecondUse(t *testing.T) {
	b := New().WithConfig(testConfig())
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("first build: %v", err)
	}
	defer engine.Close()

	if _, err := b.Build(); err != ErrBuilderUsed {
		t.Fatalf("expected ErrBuilderUsed, got %v", err)
	}
}

func TestBuildRedisBackendRequiresClient(t *testing.T) {
	cfg := testConfig()
	cfg.Revocation.Backend = BackendRedis

	if _, err := New().WithConfig(cfg).Build(); err == nil {
		t.Fatal("expected redis backend without client to fail")
	}
}

func TestBuildRejectsUnparseableRSAKeys(t *testing.T) {
	cfg := testConfig()
	cfg.Signing.Algorithm = "RS256"
	cfg.Signing.PrivateKey = []byte("not a pem")
	cfg.Signing.PublicKey = []byte("not a pem")

	if _, err := New().WithConfig(cfg).Build(); err == nil {
		t.Fatal("expected invalid PEM to fail build")
	}
}

func TestBuildRejectsMismatchedKeyManagerPair(t *testing.T) {
	a, err := keys.GenerateKeyPair()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	b, err := keys.GenerateKeyPair()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	cfg := testConfig()
	cfg.Keys.Enabled = true
	cfg.Keys.PrivateKey = a.PrivateKey
	cfg.Keys.PublicKey = b.PublicKey

	if _, err := New().WithConfig(cfg).Build(); err == nil {
		t.Fatal("expected mismatched pair to fail build")
	}
}
