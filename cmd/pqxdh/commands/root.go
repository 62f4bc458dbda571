package commands

import (
	"context"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"pqxdh/internal/app"
	"pqxdh/internal/logging"
)

var (
	v       = app.NewViper()
	cfgFile string

	cfg     app.Config
	wire    *app.Wire
	log     *zap.Logger
	cleanup = func() {}
)

// Execute runs the root command. Cancelling ctx aborts directory calls.
func Execute(ctx context.Context) error {
	root, err := newRoot()
	if err != nil {
		return err
	}
	return root.ExecuteContext(ctx)
}

func newRoot() (*cobra.Command, error) {
	root := &cobra.Command{
		Use:          "pqxdh",
		Short:        "Post-quantum extended Diffie-Hellman key agreement CLI",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cfgFile != "" {
				v.SetConfigFile(cfgFile)
				if err := v.ReadInConfig(); err != nil {
					return errors.Wrapf(err, "read config %s", cfgFile)
				}
			}
			var err error
			if cfg, err = app.LoadConfig(v); err != nil {
				return err
			}
			if log, cleanup, err = logging.New(cfg.LogLevel, cfg.LogFile); err != nil {
				return err
			}
			if wire, err = app.NewWire(cfg, log); err != nil {
				cleanup()
				return err
			}
			log.Debug("configured",
				zap.String("home", cfg.Home),
				zap.String("directory", cfg.Directory),
				zap.Stringer("policy", cfg.Policy))
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			defer cleanup()
			if wire != nil {
				return wire.Close()
			}
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (yaml, toml or json)")
	pf.String(app.KeyHome, "", "state directory (default ~/.pqxdh)")
	pf.StringP(app.KeyPassphrase, "p", "", "passphrase protecting local keys")
	pf.String(app.KeyDirectory, v.GetString(app.KeyDirectory), "directory base URL")
	pf.String(app.KeyLogLevel, v.GetString(app.KeyLogLevel), "log level (debug, info, warn, error)")
	pf.String(app.KeyLogFile, "", "also write JSON logs to this file")
	pf.String(app.KeyPolicy, v.GetString(app.KeyPolicy), "missing one-time pre-key policy (abort or degrade)")
	pf.Int(app.KeyOutputLength, v.GetInt(app.KeyOutputLength), "derived secret length in bytes")
	pf.Int(app.KeyVersion, v.GetInt(app.KeyVersion), "protocol version for new Kyber pre-keys (4, 5 or 6)")
	pf.String("redis-addr", "", "redis address for the shared one-time pre-key pool and replay guard")

	err := bindFlags(v, pf, map[string]string{
		app.KeyHome:         app.KeyHome,
		app.KeyPassphrase:   app.KeyPassphrase,
		app.KeyDirectory:    app.KeyDirectory,
		app.KeyLogLevel:     app.KeyLogLevel,
		app.KeyLogFile:      app.KeyLogFile,
		app.KeyPolicy:       app.KeyPolicy,
		app.KeyOutputLength: app.KeyOutputLength,
		app.KeyVersion:      app.KeyVersion,
		app.KeyRedisAddr:    "redis-addr",
	})
	if err != nil {
		return nil, err
	}

	root.AddCommand(initCmd(), fingerprintCmd(), registerCmd(), replenishCmd(), sendCmd(), recvCmd())
	return root, nil
}

// bindFlags binds each viper key to the named flag in fs.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet, keys map[string]string) error {
	for key, flag := range keys {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return errors.Wrapf(err, "bind flag %q to %q", flag, key)
		}
	}
	return nil
}

// username returns the --username flag, falling back to the saved profile.
func username(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	p, ok, err := wire.Profile.LoadProfile()
	if err != nil {
		return "", err
	}
	if !ok || p.Username == "" {
		return "", errors.New("--username required (no registered profile)")
	}
	return p.Username, nil
}
