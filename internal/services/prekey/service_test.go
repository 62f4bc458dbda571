package prekey_test

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"

	"pqxdh/internal/domain"
	"pqxdh/internal/protocol/pqxdh"
	"pqxdh/internal/services/identity"
	"pqxdh/internal/services/prekey"
	"pqxdh/internal/store"
)

const pass = "Correct-Horse-9"

func setup(t *testing.T) (*prekey.Service, *store.PreKeyStore) {
	t.Helper()
	ids := store.NewIdentityFileStore(t.TempDir())
	r := rand.NewChaCha8([32]byte{7})
	_, _, err := identity.New(ids, r).Generate(pass)
	require.NoError(t, err)

	ps := store.NewMemoryPreKeyStore()
	return prekey.New(ids, ps, pqxdh.Version5MLKEM768, r), ps
}

func TestGenerateAndStore_BundleVerifies(t *testing.T) {
	svc, _ := setup(t)

	b, err := svc.GenerateAndStore(pass, 3)
	require.NoError(t, err)
	require.Equal(t, domain.SignedPreKeyID(1), b.SignedPreKey.ID)
	require.Equal(t, domain.KyberPreKeyID(1), b.KyberPreKey.ID)
	require.Equal(t, pqxdh.Version5MLKEM768, b.KyberPreKey.Version)
	require.Len(t, b.OneTimePreKeys, 3)
	require.Equal(t, domain.OneTimePreKeyID(1), b.OneTimePreKeys[0].ID)

	kb := b.Take()
	require.NoError(t, pqxdh.VerifyBundle(&kb))
}

func TestRotation_KeepsOldKeysAndIDsIncrease(t *testing.T) {
	svc, ps := setup(t)

	_, err := svc.GenerateAndStore(pass, 2)
	require.NoError(t, err)
	b, err := svc.GenerateAndStore(pass, 2)
	require.NoError(t, err)

	require.Equal(t, domain.SignedPreKeyID(2), b.SignedPreKey.ID)
	require.Equal(t, domain.KyberPreKeyID(2), b.KyberPreKey.ID)
	require.Len(t, b.OneTimePreKeys, 4)

	_, ok, err := ps.SignedPreKey(1)
	require.NoError(t, err)
	require.True(t, ok, "superseded signed pre-key must remain resolvable")
	_, ok, err = ps.KyberPreKey(1)
	require.NoError(t, err)
	require.True(t, ok)

	_, _, err = ps.ClaimOneTimePreKey(1)
	require.NoError(t, err)
	added, err := svc.Replenish(pass, 2)
	require.NoError(t, err)
	require.Equal(t, []domain.OneTimePreKeyID{5, 6}, []domain.OneTimePreKeyID{added[0].ID, added[1].ID})

	c, err := ps.Counters()
	require.NoError(t, err)
	require.Equal(t, domain.PreKeyCounters{
		NextSignedPreKeyID:  3,
		NextKyberPreKeyID:   3,
		NextOneTimePreKeyID: 7,
		CurrentSignedID:     2,
		CurrentKyberID:      2,
	}, c)
}

func TestBundle_BeforeRegister(t *testing.T) {
	svc, _ := setup(t)
	_, err := svc.Bundle(pass, "bob")
	require.Error(t, err)
}

func TestReplenish_WrongPassphrase(t *testing.T) {
	svc, _ := setup(t)
	_, err := svc.Replenish("Wrong-Horse-99", 1)
	require.ErrorIs(t, err, store.ErrWrongPassphrase)
}
