package app

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"pqxdh/internal/domain"
	"pqxdh/internal/protocol/pqxdh"
)

// Configuration keys. Flags of the same name are bound to them and
// environment variables use the PQXDH_ prefix with dashes and dots as
// underscores, e.g. PQXDH_REDIS_ADDR.
const (
	KeyHome         = "home"
	KeyDirectory    = "directory"
	KeyPassphrase   = "passphrase"
	KeyLogLevel     = "log-level"
	KeyLogFile      = "log-file"
	KeyPolicy       = "policy"
	KeyOutputLength = "output-length"
	KeyVersion      = "version"
	KeyRedisAddr    = "redis.addr"
	KeyRedisPrefix  = "redis.prefix"
	KeyOneTimeCount = "one-time-count"
)

// Config holds runtime wiring options for building the app.
type Config struct {
	Home         string // state directory, e.g. $HOME/.pqxdh
	Directory    string // directory base URL, e.g. http://127.0.0.1:8080
	Passphrase   string
	LogLevel     string
	LogFile      string
	Policy       pqxdh.Policy
	OutputLength int
	Version      domain.Version
	RedisAddr    string // optional; shares the one-time pool and replay guard
	RedisPrefix  string
	OneTimeCount int
}

// NewViper returns a viper instance with defaults and environment binding set.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("PQXDH")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyDirectory, "http://127.0.0.1:8080")
	v.SetDefault(KeyLogLevel, "warn")
	v.SetDefault(KeyPolicy, pqxdh.PolicyAbort.String())
	v.SetDefault(KeyOutputLength, pqxdh.DefaultOutputLength)
	v.SetDefault(KeyVersion, int(pqxdh.DefaultVersion))
	v.SetDefault(KeyRedisPrefix, "pqxdh:")
	v.SetDefault(KeyOneTimeCount, 20)
	return v
}

// LoadConfig reads v, filling Home from the user's home directory if unset.
func LoadConfig(v *viper.Viper) (Config, error) {
	policy, err := pqxdh.ParsePolicy(v.GetString(KeyPolicy))
	if err != nil {
		return Config{}, err
	}
	version := v.GetInt(KeyVersion)
	if version < 0 || version > 0xFF {
		return Config{}, errors.Errorf("version %d out of range", version)
	}

	cfg := Config{
		Home:         v.GetString(KeyHome),
		Directory:    v.GetString(KeyDirectory),
		Passphrase:   v.GetString(KeyPassphrase),
		LogLevel:     v.GetString(KeyLogLevel),
		LogFile:      v.GetString(KeyLogFile),
		Policy:       policy,
		OutputLength: v.GetInt(KeyOutputLength),
		Version:      domain.Version(version),
		RedisAddr:    v.GetString(KeyRedisAddr),
		RedisPrefix:  v.GetString(KeyRedisPrefix),
		OneTimeCount: v.GetInt(KeyOneTimeCount),
	}
	if cfg.Home == "" {
		dir, err := os.UserHomeDir()
		if err != nil {
			return Config{}, errors.Wrap(err, "locate home directory")
		}
		cfg.Home = filepath.Join(dir, ".pqxdh")
	}
	if cfg.OneTimeCount < 0 {
		return Config{}, errors.Errorf("one-time-count must not be negative, got %d", cfg.OneTimeCount)
	}
	if _, err := cfg.Protocol(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Protocol returns the handshake configuration described by c.
func (c Config) Protocol() (pqxdh.Config, error) {
	pc := pqxdh.DefaultConfig()
	pc.Policy = c.Policy
	pc.OutputLength = c.OutputLength
	pc.Version = c.Version
	if err := pc.Validate(); err != nil {
		return pqxdh.Config{}, errors.WithMessage(err, "protocol config")
	}
	return pc, nil
}
