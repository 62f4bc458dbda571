package commands

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"pqxdh/internal/app"
)

func TestNewRoot(t *testing.T) {
	root, err := newRoot()
	require.NoError(t, err)

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	require.Subset(t, names, []string{"init", "fingerprint", "register", "replenish", "send", "recv"})
	require.NotNil(t, root.PersistentFlags().Lookup("redis-addr"))
}

func TestBindFlags(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("redis-addr", "", "")
	v := viper.New()

	require.NoError(t, bindFlags(v, fs, map[string]string{app.KeyRedisAddr: "redis-addr"}))
	require.NoError(t, fs.Parse([]string{"--redis-addr", "localhost:6379"}))
	require.Equal(t, "localhost:6379", v.GetString(app.KeyRedisAddr))

	err := bindFlags(v, fs, map[string]string{app.KeyPolicy: "no-such-flag"})
	require.ErrorContains(t, err, "no-such-flag")
}
