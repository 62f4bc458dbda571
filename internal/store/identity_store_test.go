package store_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"pqxdh/internal/domain"
	"pqxdh/internal/store"
)

func TestIdentity_SaveLoad_OK(t *testing.T) {
	home := t.TempDir()
	var ids domain.IdentityStore = store.NewIdentityFileStore(home)

	acct := domain.Account{
		Identity: domain.IdentityKeyPair{
			Private: domain.X25519Private{2},
			Public:  domain.X25519Public{1},
		},
		RegistrationID: 4242,
	}
	require.NoError(t, ids.SaveAccount("pass", acct))

	got, err := ids.LoadAccount("pass")
	require.NoError(t, err)
	require.Equal(t, acct, got)

	entries, err := os.ReadDir(home)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not be left behind")
	info, err := os.Stat(filepath.Join(home, entries[0].Name()))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestIdentity_WrongPassphrase_Fails(t *testing.T) {
	ids := store.NewIdentityFileStore(t.TempDir())
	require.NoError(t, ids.SaveAccount("correct", domain.Account{RegistrationID: 1}))

	_, err := ids.LoadAccount("wrong")
	require.ErrorIs(t, err, store.ErrWrongPassphrase)
}

func TestIdentity_Missing(t *testing.T) {
	ids := store.NewIdentityFileStore(filepath.Join(t.TempDir(), "nothing-here"))
	_, err := ids.LoadAccount("pass")
	require.ErrorIs(t, err, store.ErrNoAccount)
}

func TestProfile_SaveLoad(t *testing.T) {
	ps := store.NewProfileFileStore(t.TempDir())

	_, ok, err := ps.LoadProfile()
	require.NoError(t, err)
	require.False(t, ok)

	want := domain.Profile{Username: "bob", Directory: "http://localhost:8080"}
	require.NoError(t, ps.SaveProfile(want))
	got, ok, err := ps.LoadProfile()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, want, got)
}
