package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	goToken "github.com/MrEthical07/goToken"
	"github.com/MrEthical07/goToken/signing"
	"github.com/spf13/viper"
)

// Configuration keys. Every key can also be set through the environment as
// GOTOKEN_<KEY> with dots replaced by underscores, e.g. GOTOKEN_SIGNING_SECRET.
const (
	keyAlgorithm      = "signing.algorithm"
	keySecret         = "signing.secret"
	keyPrivateKeyFile = "signing.private_key_file"
	keyPublicKeyFile  = "signing.public_key_file"
	keyIssuer         = "tokens.issuer"
	keyAudience       = "tokens.audience"
	keyAccessTTL      = "tokens.access_ttl"
	keyExtendBy       = "tokens.extend_by"
	keyBackend        = "revocation.backend"
	keyRedisAddr      = "revocation.redis_addr"
	keyRedisPrefix    = "revocation.redis_prefix"
	keyOutput         = "output"

	envPrefix = "GOTOKEN"
)

// Settings holds resolved CLI configuration.
type Settings struct {
	Algorithm      string
	Secret         string
	PrivateKeyFile string
	PublicKeyFile  string
	Issuer         string
	Audience       string
	AccessTTL      time.Duration
	ExtendBy       time.Duration
	Backend        string
	RedisAddr      string
	RedisPrefix    string
	Output         string
}

// newViper returns a viper instance with defaults taken from
// goToken.DefaultConfig and environment binding under GOTOKEN_.
func newViper() *viper.Viper {
	def := goToken.DefaultConfig()

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault(keyAlgorithm, def.Signing.Algorithm)
	v.SetDefault(keyAccessTTL, def.Tokens.AccessTTL)
	v.SetDefault(keyExtendBy, def.Tokens.ExtendBy)
	v.SetDefault(keyBackend, def.Revocation.Backend)
	v.SetDefault(keyRedisPrefix, def.Revocation.RedisPrefix)
	v.SetDefault(keyOutput, string(OutputFormatText))
	return v
}

// readConfigFile merges path into v. An empty path is a no-op.
func readConfigFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	return nil
}

func loadSettings(v *viper.Viper) Settings {
	return Settings{
		Algorithm:      v.GetString(keyAlgorithm),
		Secret:         v.GetString(keySecret),
		PrivateKeyFile: v.GetString(keyPrivateKeyFile),
		PublicKeyFile:  v.GetString(keyPublicKeyFile),
		Issuer:         v.GetString(keyIssuer),
		Audience:       v.GetString(keyAudience),
		AccessTTL:      v.GetDuration(keyAccessTTL),
		ExtendBy:       v.GetDuration(keyExtendBy),
		Backend:        v.GetString(keyBackend),
		RedisAddr:      v.GetString(keyRedisAddr),
		RedisPrefix:    v.GetString(keyRedisPrefix),
		Output:         v.GetString(keyOutput),
	}
}

// EngineConfig converts s into a goToken.Config. RSA key files are read here.
// Secrets are optional for RSA algorithms and PEM files are optional for HMAC
// ones; goToken.Config.Validate reports whatever is missing.
func (s Settings) EngineConfig() (goToken.Config, error) {
	cfg := goToken.DefaultConfig()
	cfg.Signing.Algorithm = strings.ToUpper(s.Algorithm)
	cfg.Signing.Secret = []byte(s.Secret)
	cfg.Tokens.Issuer = s.Issuer
	cfg.Tokens.Audience = s.Audience
	cfg.Tokens.AccessTTL = s.AccessTTL
	cfg.Tokens.ExtendBy = s.ExtendBy
	cfg.Revocation.Backend = s.Backend
	cfg.Revocation.RedisPrefix = s.RedisPrefix

	var err error
	if s.PrivateKeyFile != "" {
		if cfg.Signing.PrivateKey, err = os.ReadFile(s.PrivateKeyFile); err != nil {
			return goToken.Config{}, fmt.Errorf("read private key: %w", err)
		}
	}
	if s.PublicKeyFile != "" {
		if cfg.Signing.PublicKey, err = os.ReadFile(s.PublicKeyFile); err != nil {
			return goToken.Config{}, fmt.Errorf("read public key: %w", err)
		}
	}

	if s.Backend == goToken.BackendRedis && s.RedisAddr == "" {
		return goToken.Config{}, errors.New("redis revocation backend requires revocation.redis_addr")
	}
	return cfg, nil
}

// signingKeys returns the signing and verification keys for cfg.
func signingKeys(cfg goToken.Config) (signing.Algorithm, []byte, []byte, error) {
	alg, err := signing.ParseAlgorithm(cfg.Signing.Algorithm)
	if err != nil {
		return signing.AlgorithmUnknown, nil, nil, err
	}
	if alg.Family() == signing.FamilyRSA {
		return alg, cfg.Signing.PrivateKey, cfg.Signing.PublicKey, nil
	}
	return alg, cfg.Signing.Secret, cfg.Signing.Secret, nil
}
