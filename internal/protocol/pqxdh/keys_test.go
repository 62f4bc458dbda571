package pqxdh_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"pqxdh/internal/crypto"
	"pqxdh/internal/domain"
	"pqxdh/internal/protocol/pqxdh"
)

func TestGenerateOneTimePreKeys_IDs(t *testing.T) {
	keys, err := pqxdh.GenerateOneTimePreKeys(5, 100, seeded(1))
	require.NoError(t, err)
	require.Len(t, keys, 5)
	for i, k := range keys {
		require.Equal(t, domain.OneTimePreKeyID(100+i), k.ID)
	}
	require.NotEqual(t, keys[0].Public, keys[1].Public)

	none, err := pqxdh.GenerateOneTimePreKeys(0, 1, seeded(1))
	require.NoError(t, err)
	require.Empty(t, none)

	_, err = pqxdh.GenerateOneTimePreKeys(2, math.MaxUint32, seeded(1))
	require.Error(t, err)
	_, err = pqxdh.GenerateOneTimePreKeys(-1, 1, seeded(1))
	require.Error(t, err)
}

func TestGenerate_Deterministic(t *testing.T) {
	a, err := pqxdh.GenerateIdentity(seeded(9))
	require.NoError(t, err)
	b, err := pqxdh.GenerateIdentity(seeded(9))
	require.NoError(t, err)
	require.Equal(t, a, b)

	ka, err := pqxdh.GenerateKyberPreKey(a.Private, 3, pqxdh.Version6MLKEM1024, seeded(10))
	require.NoError(t, err)
	kb, err := pqxdh.GenerateKyberPreKey(a.Private, 3, pqxdh.Version6MLKEM1024, seeded(10))
	require.NoError(t, err)
	require.Equal(t, ka, kb)
	require.Equal(t, pqxdh.Version6MLKEM1024, ka.Version)
}

func TestGenerate_SignaturesVerify(t *testing.T) {
	id, err := pqxdh.GenerateIdentity(seeded(11))
	require.NoError(t, err)
	spk, err := pqxdh.GenerateSignedPreKey(id.Private, 7, seeded(12))
	require.NoError(t, err)
	require.Equal(t, domain.SignedPreKeyID(7), spk.ID)
	require.True(t, crypto.VerifyXEdDSA(id.Public, append([]byte{pqxdh.CurveKeyTag}, spk.Public[:]...), spk.Signature))

	_, err = pqxdh.GenerateKyberPreKey(id.Private, 1, 200, seeded(13))
	require.Error(t, err)
}

func TestVerifyBundle_OK(t *testing.T) {
	for _, v := range pqxdh.Versions() {
		p := newPublisher(t, v, 1)
		b := p.bundle(1)
		require.NoError(t, pqxdh.VerifyBundle(&b))
	}
}

func TestAssociatedData(t *testing.T) {
	var a, b domain.X25519Public
	a[0], b[0] = 1, 2
	ad := pqxdh.AssociatedData(a, b)
	require.Len(t, ad, 66)
	require.Equal(t, pqxdh.CurveKeyTag, ad[0])
	require.Equal(t, byte(1), ad[1])
	require.Equal(t, pqxdh.CurveKeyTag, ad[33])
	require.Equal(t, byte(2), ad[34])
}
