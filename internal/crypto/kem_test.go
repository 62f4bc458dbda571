package crypto_test

import (
	"testing"

	"github.com/cloudflare/circl/kem"
	"github.com/cloudflare/circl/kem/kyber/kyber1024"
	"github.com/cloudflare/circl/kem/mlkem/mlkem768"
	"github.com/stretchr/testify/require"

	"pqxdh/internal/crypto"
)

func TestKEM_RoundTrip(t *testing.T) {
	for _, scheme := range []kem.Scheme{kyber1024.Scheme(), mlkem768.Scheme()} {
		t.Run(scheme.Name(), func(t *testing.T) {
			pub, priv, err := crypto.KEMGenerate(scheme, seeded(10))
			require.NoError(t, err)
			require.Len(t, pub, scheme.PublicKeySize())

			ct, ss, err := crypto.KEMEncapsulate(scheme, pub, seeded(11))
			require.NoError(t, err)
			require.Len(t, ct, scheme.CiphertextSize())

			got, err := crypto.KEMDecapsulate(scheme, priv, ct)
			require.NoError(t, err)
			require.Equal(t, ss, got)
		})
	}
}

func TestKEM_BadCiphertextLength(t *testing.T) {
	scheme := kyber1024.Scheme()
	pub, priv, err := crypto.KEMGenerate(scheme, seeded(12))
	require.NoError(t, err)

	ct, _, err := crypto.KEMEncapsulate(scheme, pub, seeded(13))
	require.NoError(t, err)

	_, err = crypto.KEMDecapsulate(scheme, priv, ct[:len(ct)-1])
	require.Error(t, err)
}

func TestKDF_Bounds(t *testing.T) {
	out, err := crypto.KDF("info", []byte("ikm"), 32)
	require.NoError(t, err)
	require.Len(t, out, 32)

	_, err = crypto.KDF("info", []byte("ikm"), 0)
	require.Error(t, err)
	_, err = crypto.KDF("info", []byte("ikm"), crypto.MaxKDFOutput+1)
	require.Error(t, err)
}
