package pqxdh

import (
	"crypto/sha256"

	"pqxdh/internal/domain"
)

// HandshakeMessage is the initiator's first message. Payload is the opaque
// ratchet-initialisation blob; this package never looks inside it.
type HandshakeMessage struct {
	Version        domain.Version
	RegistrationID domain.RegistrationID
	// OneTimePreKeyID is nil when the bundle carried no one-time pre-key.
	OneTimePreKeyID *domain.OneTimePreKeyID
	SignedPreKeyID  domain.SignedPreKeyID
	KyberPreKeyID   domain.KyberPreKeyID
	IdentityKey     domain.X25519Public
	EphemeralKey    domain.X25519Public
	Ciphertext      []byte
	Payload         []byte
}

// Digest identifies the key material of a message for replay detection.
// The payload is excluded: it does not influence the derived secret.
func (m *HandshakeMessage) Digest() [32]byte {
	h := sha256.New()
	h.Write([]byte{byte(m.Version)})
	h.Write(m.IdentityKey[:])
	h.Write(m.EphemeralKey[:])
	h.Write(m.Ciphertext)
	var out [32]byte
	h.Sum(out[:0])
	return out
}
