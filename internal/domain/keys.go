package domain

import (
	"encoding/base64"

	"github.com/pkg/errors"
)

// ------------- X25519 -------------

type X25519Private [32]byte
type X25519Public [32]byte

func (k X25519Private) Slice() []byte { return k[:] }
func (k X25519Public) Slice() []byte  { return k[:] }

// MarshalText encodes the key as standard base64 so JSON records stay readable.
func (k X25519Public) MarshalText() ([]byte, error) { return marshalKey(k[:]) }

// UnmarshalText mirrors MarshalText and rejects anything that is not 32 bytes.
func (k *X25519Public) UnmarshalText(b []byte) error { return unmarshalKey(k[:], b) }

func (k X25519Private) MarshalText() ([]byte, error) { return marshalKey(k[:]) }

func (k *X25519Private) UnmarshalText(b []byte) error { return unmarshalKey(k[:], b) }

// X25519PublicFrom copies b into a public key; b must be exactly 32 bytes.
func X25519PublicFrom(b []byte) (X25519Public, error) {
	var out X25519Public
	if len(b) != len(out) {
		return out, errors.Errorf("X25519 public: want %d bytes, got %d", len(out), len(b))
	}
	copy(out[:], b)
	return out, nil
}

func marshalKey(k []byte) ([]byte, error) {
	out := make([]byte, base64.StdEncoding.EncodedLen(len(k)))
	base64.StdEncoding.Encode(out, k)
	return out, nil
}

func unmarshalKey(dst, text []byte) error {
	raw := make([]byte, base64.StdEncoding.DecodedLen(len(text)))
	n, err := base64.StdEncoding.Decode(raw, text)
	if err != nil {
		return errors.Wrap(err, "decode key")
	}
	if n != len(dst) {
		return errors.Errorf("key: want %d bytes, got %d", len(dst), n)
	}
	copy(dst, raw[:n])
	return nil
}

// ------------- identifiers -------------

// RegistrationID identifies an installation of a party.
type RegistrationID uint32

type SignedPreKeyID uint32
type OneTimePreKeyID uint32
type KyberPreKeyID uint32

// Version is the handshake protocol version. It selects the curve/KEM
// parameter set used for a message and for the Kyber pre-key it references.
type Version uint8

// Fingerprint is a short, human-comparable digest of an identity key.
type Fingerprint string
