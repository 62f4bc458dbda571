package app_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"pqxdh/internal/app"
	"pqxdh/internal/protocol/pqxdh"
)

func TestLoadConfig_Defaults(t *testing.T) {
	v := app.NewViper()
	v.Set(app.KeyHome, t.TempDir())

	cfg, err := app.LoadConfig(v)
	require.NoError(t, err)
	require.Equal(t, pqxdh.PolicyAbort, cfg.Policy)
	require.Equal(t, pqxdh.DefaultVersion, cfg.Version)
	require.Equal(t, 32, cfg.OutputLength)
	require.Equal(t, 20, cfg.OneTimeCount)
	require.Equal(t, "pqxdh:", cfg.RedisPrefix)
}

func TestLoadConfig_Environment(t *testing.T) {
	t.Setenv("PQXDH_POLICY", "degrade")
	t.Setenv("PQXDH_OUTPUT_LENGTH", "64")
	t.Setenv("PQXDH_REDIS_ADDR", "localhost:6379")
	t.Setenv("PQXDH_VERSION", "6")

	v := app.NewViper()
	v.Set(app.KeyHome, t.TempDir())
	cfg, err := app.LoadConfig(v)
	require.NoError(t, err)
	require.Equal(t, pqxdh.PolicyDegrade, cfg.Policy)
	require.Equal(t, 64, cfg.OutputLength)
	require.Equal(t, "localhost:6379", cfg.RedisAddr)
	require.Equal(t, pqxdh.Version6MLKEM1024, cfg.Version)

	pc, err := cfg.Protocol()
	require.NoError(t, err)
	require.Equal(t, pqxdh.PolicyDegrade, pc.Policy)
}

func TestLoadConfig_Invalid(t *testing.T) {
	for key, val := range map[string]any{
		app.KeyPolicy:       "sometimes",
		app.KeyOutputLength: 8,
		app.KeyVersion:      2,
		app.KeyOneTimeCount: -1,
	} {
		v := app.NewViper()
		v.Set(app.KeyHome, t.TempDir())
		v.Set(key, val)
		_, err := app.LoadConfig(v)
		require.Error(t, err, key)
	}
}

func TestNewWire_RequiresPassphrase(t *testing.T) {
	v := app.NewViper()
	v.Set(app.KeyHome, t.TempDir())
	cfg, err := app.LoadConfig(v)
	require.NoError(t, err)

	_, err = app.NewWire(cfg, nil)
	require.Error(t, err)

	cfg.Passphrase = "Correct-Horse-9"
	w, err := app.NewWire(cfg, nil)
	require.NoError(t, err)
	require.NotNil(t, w.Messages)
	require.NoError(t, w.Close())
}
