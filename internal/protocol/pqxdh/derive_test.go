package pqxdh_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"pqxdh/internal/crypto"
	"pqxdh/internal/domain"
	"pqxdh/internal/protocol/pqxdh"
)

func deriveBoth(t *testing.T, p *publisher, alice domain.IdentityKeyPair, b domain.KeyBundle, ephSeed byte, withOTK bool) (pqxdh.DerivedSecret, pqxdh.DerivedSecret) {
	t.Helper()
	suite, ok := pqxdh.LookupSuite(b.KyberPreKey.Version)
	require.True(t, ok)

	ephPriv, ephPub, err := crypto.GenerateX25519(seeded(ephSeed))
	require.NoError(t, err)

	sA, ct, err := pqxdh.DeriveInitiator(suite, alice.Private, ephPriv, &b, seeded(ephSeed+1), 32)
	require.NoError(t, err)

	keys := pqxdh.PublisherKeys{
		Identity:     p.identity.Private,
		SignedPreKey: p.spk.Private,
		KyberPreKey:  append([]byte(nil), p.kpk.Private...),
	}
	msg := &pqxdh.HandshakeMessage{
		Version:      suite.Version,
		IdentityKey:  alice.Public,
		EphemeralKey: ephPub,
		Ciphertext:   ct,
	}
	if withOTK {
		otk := p.otks[b.OneTimePreKey.ID]
		keys.OneTimePreKey = &otk.Private
	}
	sB, err := pqxdh.DerivePublisher(suite, keys, msg, 32)
	require.NoError(t, err)
	return sA, sB
}

func TestDerive_SecretsMatch(t *testing.T) {
	for _, v := range pqxdh.Versions() {
		t.Run(suiteName(v), func(t *testing.T) {
			p := newPublisher(t, v, 1)
			alice := newAlice(t)

			sA, sB := deriveBoth(t, p, alice, p.bundle(1), 20, true)
			require.Len(t, sA, 32)
			require.Equal(t, sA, sB)
		})
	}
}

func TestDerive_WithoutOneTimePreKey(t *testing.T) {
	p := newPublisher(t, pqxdh.DefaultVersion, 1)
	alice := newAlice(t)

	without, withoutB := deriveBoth(t, p, alice, p.bundle(0), 30, false)
	require.Equal(t, without, withoutB)

	// Same ephemeral and encapsulation randomness, but DH4 included.
	with, _ := deriveBoth(t, p, alice, p.bundle(1), 30, true)
	require.NotEqual(t, without, with)
}

func TestDerive_DifferentEphemeralsDiffer(t *testing.T) {
	p := newPublisher(t, pqxdh.DefaultVersion, 1)
	alice := newAlice(t)
	b := p.bundle(1)

	s1, _ := deriveBoth(t, p, alice, b, 40, true)
	s2, _ := deriveBoth(t, p, alice, b, 50, true)
	require.NotEqual(t, s1, s2)
}

func TestDerive_SeededRandomnessIsReproducible(t *testing.T) {
	p := newPublisher(t, pqxdh.DefaultVersion, 1)
	alice := newAlice(t)
	b := p.bundle(1)

	s1, _ := deriveBoth(t, p, alice, b, 60, true)
	s2, _ := deriveBoth(t, p, alice, b, 60, true)
	require.Equal(t, s1, s2)
}

func TestDerive_ConfiguredOutputLength(t *testing.T) {
	p := newPublisher(t, pqxdh.DefaultVersion, 0)
	alice := newAlice(t)
	b := p.bundle(0)
	suite, _ := pqxdh.LookupSuite(b.KyberPreKey.Version)

	eph, _, err := crypto.GenerateX25519(seeded(70))
	require.NoError(t, err)

	s, _, err := pqxdh.DeriveInitiator(suite, alice.Private, eph, &b, seeded(71), 64)
	require.NoError(t, err)
	require.Len(t, s, 64)

	_, _, err = pqxdh.DeriveInitiator(suite, alice.Private, eph, &b, seeded(71), 16)
	require.ErrorIs(t, err, pqxdh.ErrDerivationFailed)
}

func TestDerivePublisher_BadCiphertext(t *testing.T) {
	p := newPublisher(t, pqxdh.DefaultVersion, 0)
	alice := newAlice(t)
	suite, _ := pqxdh.LookupSuite(pqxdh.DefaultVersion)

	keys := pqxdh.PublisherKeys{Identity: p.identity.Private, SignedPreKey: p.spk.Private, KyberPreKey: p.kpk.Private}
	msg := &pqxdh.HandshakeMessage{
		Version:      suite.Version,
		IdentityKey:  alice.Public,
		EphemeralKey: alice.Public,
		Ciphertext:   make([]byte, 10),
	}
	s, err := pqxdh.DerivePublisher(suite, keys, msg, 32)
	require.Nil(t, s)
	require.ErrorIs(t, err, pqxdh.ErrDerivationFailed)
}

func TestDerivePublisher_LowOrderEphemeral(t *testing.T) {
	p := newPublisher(t, pqxdh.DefaultVersion, 0)
	alice := newAlice(t)
	suite, _ := pqxdh.LookupSuite(pqxdh.DefaultVersion)

	keys := pqxdh.PublisherKeys{Identity: p.identity.Private, SignedPreKey: p.spk.Private, KyberPreKey: p.kpk.Private}
	msg := &pqxdh.HandshakeMessage{
		Version:     suite.Version,
		IdentityKey: alice.Public,
		Ciphertext:  make([]byte, suite.CiphertextSize()),
	}
	_, err := pqxdh.DerivePublisher(suite, keys, msg, 32)
	require.Equal(t, pqxdh.KindDerivationFailed, pqxdh.KindOf(err))
}

func suiteName(v domain.Version) string {
	s, _ := pqxdh.LookupSuite(v)
	return s.String()
}
