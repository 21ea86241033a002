package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	goToken "github.com/MrEthical07/goToken"
	"github.com/MrEthical07/goToken/claims"
	"github.com/MrEthical07/goToken/keys"
	"github.com/MrEthical07/goToken/signing"
	"github.com/MrEthical07/goToken/token"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var errRevokeNeedsRedis = errors.New("revoke requires the redis revocation backend; an in-memory registry does not outlive the process")

// session is an engine built from CLI settings together with the key
// material commands pass to Encode and Decode.
type session struct {
	engine    *goToken.Engine
	config    goToken.Config
	alg       signing.Algorithm
	signKey   []byte
	verifyKey []byte
	printer   *Printer
	client    redis.UniversalClient
}

func (s *session) Close() {
	s.engine.Close()
	if s.client != nil {
		_ = s.client.Close()
	}
}

func openSession(cmd *cobra.Command, v *viper.Viper) (*session, error) {
	settings := loadSettings(v)
	cfg, err := settings.EngineConfig()
	if err != nil {
		return nil, err
	}

	builder := goToken.New().WithConfig(cfg)
	var client redis.UniversalClient
	if cfg.Revocation.Backend == goToken.BackendRedis {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{settings.RedisAddr},
		})
		builder = builder.WithRedis(client)
	}

	engine, err := builder.Build()
	if err != nil {
		if client != nil {
			_ = client.Close()
		}
		return nil, err
	}

	alg, signKey, verifyKey, err := signingKeys(cfg)
	if err != nil {
		engine.Close()
		if client != nil {
			_ = client.Close()
		}
		return nil, err
	}

	return &session{
		engine:    engine,
		config:    cfg,
		alg:       alg,
		signKey:   signKey,
		verifyKey: verifyKey,
		printer:   NewPrinter(settings.Output, cmd.OutOrStdout()),
		client:    client,
	}, nil
}

func (s *session) requirements() claims.Requirements {
	return claims.Requirements{
		Audience: s.config.Tokens.Audience,
		Issuer:   s.config.Tokens.Issuer,
	}
}

// -------- key material --------

func newKeygenCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a 2048-bit RSA key pair",
		Long: `Generate a PEM encoded RSA key pair for the RS* algorithms.
With --out-dir the pair is written to private.pem (0600) and public.pem;
otherwise both PEM blocks are printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			outDir, _ := cmd.Flags().GetString("out-dir")

			pair, err := keys.GenerateKeyPair()
			if err != nil {
				return err
			}

			if outDir == "" {
				out := cmd.OutOrStdout()
				if _, err := out.Write(pair.PrivateKey); err != nil {
					return err
				}
				_, err := out.Write(pair.PublicKey)
				return err
			}

			privPath := filepath.Join(outDir, "private.pem")
			pubPath := filepath.Join(outDir, "public.pem")
			if err := os.WriteFile(privPath, pair.PrivateKey, 0o600); err != nil {
				return fmt.Errorf("write private key: %w", err)
			}
			if err := os.WriteFile(pubPath, pair.PublicKey, 0o644); err != nil {
				return fmt.Errorf("write public key: %w", err)
			}
			return NewPrinter(v.GetString(keyOutput), cmd.OutOrStdout()).PrintFields(map[string]any{
				"private_key": privPath,
				"public_key":  pubPath,
			})
		},
	}
	cmd.Flags().String("out-dir", "", "directory to write private.pem and public.pem")
	return cmd
}

func newSecretCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Generate a random hex encoded HMAC secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, _ := cmd.Flags().GetInt("bytes")
			secret, err := goToken.GenerateSecret(n)
			if err != nil {
				return err
			}
			return NewPrinter(v.GetString(keyOutput), cmd.OutOrStdout()).PrintValue("secret", secret)
		},
	}
	cmd.Flags().Int("bytes", 32, "number of random bytes before hex encoding")
	return cmd
}

func newJTICommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "jti",
		Short: "Generate a random token id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			jti, err := goToken.GenerateJTI()
			if err != nil {
				return err
			}
			return NewPrinter(v.GetString(keyOutput), cmd.OutOrStdout()).PrintValue("jti", jti)
		},
	}
}

// -------- tokens --------

func newEncodeCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "encode [claims-json]",
		Short: "Sign a claims object",
		Long: `Sign a JSON claims object with the configured algorithm. iat is set
to now; exp defaults to now plus tokens.access_ttl unless --ttl or an
explicit "exp" claim is given. The configured issuer and audience, when set,
replace any "iss" or "aud" in the object, and a random jti is assigned unless one
is present so the token can later be revoked.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := claims.Claims{}
			if len(args) == 1 {
				dec := json.NewDecoder(strings.NewReader(args[0]))
				dec.UseNumber()
				if err := dec.Decode(&payload); err != nil {
					return fmt.Errorf("claims must be a JSON object: %w", err)
				}
			}
			if _, ok := payload[claims.TokenID]; !ok {
				jti, err := goToken.GenerateJTI()
				if err != nil {
					return err
				}
				payload[claims.TokenID] = jti
			}
			ttl, _ := cmd.Flags().GetDuration("ttl")
			nbf, _ := cmd.Flags().GetDuration("nbf")

			s, err := openSession(cmd, v)
			if err != nil {
				return err
			}
			defer s.Close()

			if ttl == 0 {
				ttl = s.config.Tokens.AccessTTL
			}
			tok, err := s.engine.Encode(payload, s.alg, s.signKey, token.EncodeOptions{
				ExpiresIn: ttl,
				NotBefore: nbf,
				Audience:  s.config.Tokens.Audience,
				Issuer:    s.config.Tokens.Issuer,
			})
			if err != nil {
				return err
			}
			return s.printer.PrintValue("token", tok)
		},
	}
	cmd.Flags().Duration("ttl", 0, "lifetime; defaults to tokens.access_ttl")
	cmd.Flags().Duration("nbf", 0, "delay before the token becomes valid")
	return cmd
}

func newDecodeCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "decode <token>",
		Short: "Verify a token and print its claims",
		Long: `Verify signature, time window, configured issuer and audience, and
revocation status (redis backend only), then print the claims.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, v)
			if err != nil {
				return err
			}
			defer s.Close()

			payload, err := s.engine.Decode(commandContext(cmd), args[0], s.alg, s.verifyKey, s.requirements())
			if err != nil {
				return err
			}
			return s.printer.PrintFields(payload)
		},
	}
}

func newExtendCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extend <token>",
		Short: "Re-sign a valid token with a later expiry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			until, _ := cmd.Flags().GetString("until")
			var newExp time.Time
			if until != "" {
				var err error
				if newExp, err = time.Parse(time.RFC3339, until); err != nil {
					return fmt.Errorf("--until must be RFC 3339: %w", err)
				}
			}

			s, err := openSession(cmd, v)
			if err != nil {
				return err
			}
			defer s.Close()

			tok, err := s.engine.ExtendExpiration(commandContext(cmd), args[0], s.alg, s.verifyKey, s.signKey, newExp)
			if err != nil {
				return err
			}
			return s.printer.PrintValue("token", tok)
		},
	}
	cmd.Flags().String("until", "", "new expiry (RFC 3339); defaults to now plus tokens.extend_by")
	return cmd
}

func newRevokeCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <token>",
		Short: "Revoke a token by its jti in the shared registry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if v.GetString(keyBackend) != goToken.BackendRedis {
				return errRevokeNeedsRedis
			}

			s, err := openSession(cmd, v)
			if err != nil {
				return err
			}
			defer s.Close()

			newlyRevoked, err := s.engine.Revoke(commandContext(cmd), args[0], s.alg, s.verifyKey)
			if err != nil {
				return err
			}
			return s.printer.PrintFields(map[string]any{"newly_revoked": newlyRevoked})
		},
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
