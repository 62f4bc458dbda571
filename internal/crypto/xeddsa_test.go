package crypto_test

import (
	crand "crypto/rand"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"

	"pqxdh/internal/crypto"
)

func seeded(b byte) *rand.ChaCha8 {
	var seed [32]byte
	seed[0] = b
	return rand.NewChaCha8(seed)
}

func TestXEdDSA_SignVerify(t *testing.T) {
	priv, pub, err := crypto.GenerateX25519(crand.Reader)
	require.NoError(t, err)

	msg := []byte("signed pre-key")
	sig, err := crypto.SignXEdDSA(priv, msg, crand.Reader)
	require.NoError(t, err)
	require.Len(t, sig, crypto.SignatureSize)
	require.True(t, crypto.VerifyXEdDSA(pub, msg, sig))

	// Any flipped bit in the message or signature must fail.
	bad := append([]byte(nil), msg...)
	bad[0] ^= 1
	require.False(t, crypto.VerifyXEdDSA(pub, bad, sig))

	sig[10] ^= 0x80
	require.False(t, crypto.VerifyXEdDSA(pub, msg, sig))
}

func TestXEdDSA_WrongKey(t *testing.T) {
	priv, _, err := crypto.GenerateX25519(crand.Reader)
	require.NoError(t, err)
	_, other, err := crypto.GenerateX25519(crand.Reader)
	require.NoError(t, err)

	sig, err := crypto.SignXEdDSA(priv, []byte("m"), crand.Reader)
	require.NoError(t, err)
	require.False(t, crypto.VerifyXEdDSA(other, []byte("m"), sig))
	require.False(t, crypto.VerifyXEdDSA(other, []byte("m"), sig[:63]))
}

func TestXEdDSA_DeterministicWithSeededReader(t *testing.T) {
	priv, _, err := crypto.GenerateX25519(seeded(1))
	require.NoError(t, err)

	a, err := crypto.SignXEdDSA(priv, []byte("m"), seeded(2))
	require.NoError(t, err)
	b, err := crypto.SignXEdDSA(priv, []byte("m"), seeded(2))
	require.NoError(t, err)
	require.Equal(t, a, b)

	c, err := crypto.SignXEdDSA(priv, []byte("m"), seeded(3))
	require.NoError(t, err)
	require.NotEqual(t, a, c)
}

func TestDH_Agrees(t *testing.T) {
	aPriv, aPub, err := crypto.GenerateX25519(seeded(4))
	require.NoError(t, err)
	bPriv, bPub, err := crypto.GenerateX25519(seeded(5))
	require.NoError(t, err)

	ab, err := crypto.DH(aPriv, bPub)
	require.NoError(t, err)
	ba, err := crypto.DH(bPriv, aPub)
	require.NoError(t, err)
	require.Equal(t, ab, ba)
}

func TestDH_LowOrderPointRejected(t *testing.T) {
	priv, _, err := crypto.GenerateX25519(seeded(6))
	require.NoError(t, err)

	var zero [32]byte
	_, err = crypto.DH(priv, zero)
	require.Error(t, err)
}
