package identity_test

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"

	"pqxdh/internal/services/identity"
	"pqxdh/internal/store"
)

const goodPass = "Correct-Horse-9"

func TestGenerate_LoadAndFingerprint(t *testing.T) {
	svc := identity.New(store.NewIdentityFileStore(t.TempDir()), rand.NewChaCha8([32]byte{1}))

	acct, fp, err := svc.Generate(goodPass)
	require.NoError(t, err)
	require.NotEmpty(t, fp)
	require.NotZero(t, acct.RegistrationID)
	require.LessOrEqual(t, uint32(acct.RegistrationID), uint32(16380))

	loaded, err := svc.Load(goodPass)
	require.NoError(t, err)
	require.Equal(t, acct, loaded)

	again, err := svc.Fingerprint(goodPass)
	require.NoError(t, err)
	require.Equal(t, fp, again)
}

func TestGenerate_WeakPassphrase(t *testing.T) {
	svc := identity.New(store.NewIdentityFileStore(t.TempDir()), nil)
	for _, p := range []string{"short1!A", "alllowercase-123", "NoDigitsHere!!", "NoSymbols1234"} {
		_, _, err := svc.Generate(p)
		require.ErrorIs(t, err, identity.ErrWeakPassphrase, p)
	}
}
