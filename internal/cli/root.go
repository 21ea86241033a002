package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewRootCommand returns the gotoken command tree. Each call owns its own
// viper instance, so trees built in tests do not share state.
func NewRootCommand() *cobra.Command {
	v := newViper()
	var configFile string

	root := &cobra.Command{
		Use:   "gotoken",
		Short: "gotoken CLI - issue, verify and revoke signed tokens",
		Long: `gotoken provides a command-line interface to the goToken engine.

Signing settings come from flags, a config file (--config) or GOTOKEN_*
environment variables, in that order of precedence.

Supported algorithms:
  - HS256, HS384, HS512: shared secret (signing.secret)
  - RS256, RS384, RS512: PEM key files (signing.private_key_file, signing.public_key_file)`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return readConfigFile(v, configFile)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file (yaml, json or toml)")
	flags.String("alg", "", "signing algorithm")
	flags.String("secret", "", "HMAC secret")
	flags.String("private-key", "", "PEM private key file for RS* algorithms")
	flags.String("public-key", "", "PEM public key file for RS* algorithms")
	flags.String("issuer", "", "issuer to set on encode and require on decode")
	flags.String("audience", "", "audience to set on encode and require on decode")
	flags.String("backend", "", "revocation backend (memory, redis)")
	flags.String("redis-addr", "", "redis address for the redis revocation backend")
	flags.StringP("output", "o", "", "output format (text, json)")

	bindFlag(v, root, keyAlgorithm, "alg")
	bindFlag(v, root, keySecret, "secret")
	bindFlag(v, root, keyPrivateKeyFile, "private-key")
	bindFlag(v, root, keyPublicKeyFile, "public-key")
	bindFlag(v, root, keyIssuer, "issuer")
	bindFlag(v, root, keyAudience, "audience")
	bindFlag(v, root, keyBackend, "backend")
	bindFlag(v, root, keyRedisAddr, "redis-addr")
	bindFlag(v, root, keyOutput, "output")

	root.AddCommand(
		newKeygenCommand(v),
		newSecretCommand(v),
		newJTICommand(v),
		newEncodeCommand(v),
		newDecodeCommand(v),
		newExtendCommand(v),
		newRevokeCommand(v),
	)
	return root
}

// Execute runs the root command
func Execute() error {
	return NewRootCommand().Execute()
}

func bindFlag(v *viper.Viper, cmd *cobra.Command, key, flag string) {
	// Lookup cannot return nil for flags registered above.
	_ = v.BindPFlag(key, cmd.PersistentFlags().Lookup(flag))
}
