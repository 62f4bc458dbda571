package pqxdh

import (
	"pqxdh/internal/domain"
	"pqxdh/internal/util/memzero"
)

// Session is what a completed derivation hands to the ratchet. The caller
// owns Secret and must Wipe the session once the ratchet has consumed it.
type Session struct {
	Version domain.Version
	// RegistrationID is the initiator's.
	RegistrationID domain.RegistrationID
	LocalIdentity  domain.X25519Public
	PeerIdentity   domain.X25519Public

	Secret DerivedSecret
	// AssociatedData is enc(IK_initiator) || enc(IK_publisher).
	AssociatedData []byte

	SignedPreKeyID  domain.SignedPreKeyID
	KyberPreKeyID   domain.KyberPreKeyID
	OneTimePreKeyID *domain.OneTimePreKeyID
	// Degraded is set on the publisher side when the referenced one-time
	// pre-key could not be claimed and PolicyDegrade allowed continuing.
	Degraded bool

	Payload []byte
}

// Wipe zeroes the derived secret.
func (s *Session) Wipe() {
	if s == nil {
		return
	}
	memzero.Zero(s.Secret)
}
