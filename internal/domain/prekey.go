package domain

import "time"

// SignedPreKeyPair is a medium-term curve key signed by the identity key.
// Rotation supersedes it; the private half stays available for late handshakes.
type SignedPreKeyPair struct {
	ID        SignedPreKeyID `json:"id"`
	Private   X25519Private  `json:"private"`
	Public    X25519Public   `json:"public"`
	Signature []byte         `json:"signature"`
	CreatedAt time.Time      `json:"created_at"`
}

// OneTimePreKeyPair is consumed by at most one handshake.
type OneTimePreKeyPair struct {
	ID      OneTimePreKeyID `json:"id"`
	Private X25519Private   `json:"private"`
	Public  X25519Public    `json:"public"`
}

// KyberPreKeyPair is a signed, reusable KEM key. Version records the
// parameter set the key was generated for.
type KyberPreKeyPair struct {
	ID        KyberPreKeyID `json:"id"`
	Version   Version       `json:"version"`
	Private   []byte        `json:"private"`
	Public    []byte        `json:"public"`
	Signature []byte        `json:"signature"`
	CreatedAt time.Time     `json:"created_at"`
}

// SignedPreKeyPublic is the published half of a SignedPreKeyPair.
type SignedPreKeyPublic struct {
	ID        SignedPreKeyID `json:"id"`
	Public    X25519Public   `json:"public"`
	Signature []byte         `json:"signature"`
}

// OneTimePreKeyPublic is the published half of a OneTimePreKeyPair.
type OneTimePreKeyPublic struct {
	ID     OneTimePreKeyID `json:"id"`
	Public X25519Public    `json:"public"`
}

// KyberPreKeyPublic is the published half of a KyberPreKeyPair.
type KyberPreKeyPublic struct {
	ID        KyberPreKeyID `json:"id"`
	Version   Version       `json:"version"`
	Public    []byte        `json:"public"`
	Signature []byte        `json:"signature"`
}

// KeyBundle is what an initiator receives from the directory. It holds at
// most one one-time pre-key and is never modified after it is handed out.
type KeyBundle struct {
	RegistrationID RegistrationID       `json:"registration_id"`
	IdentityKey    X25519Public         `json:"identity_key"`
	SignedPreKey   SignedPreKeyPublic   `json:"signed_pre_key"`
	KyberPreKey    KyberPreKeyPublic    `json:"kyber_pre_key"`
	OneTimePreKey  *OneTimePreKeyPublic `json:"one_time_pre_key,omitempty"`
}

// PublishedBundle is what a publisher uploads: the current signed and Kyber
// pre-keys plus a batch of one-time pre-keys the directory hands out singly.
type PublishedBundle struct {
	Username       string                `json:"username"`
	RegistrationID RegistrationID        `json:"registration_id"`
	IdentityKey    X25519Public          `json:"identity_key"`
	SignedPreKey   SignedPreKeyPublic    `json:"signed_pre_key"`
	KyberPreKey    KyberPreKeyPublic     `json:"kyber_pre_key"`
	OneTimePreKeys []OneTimePreKeyPublic `json:"one_time_pre_keys,omitempty"`
}

// Take returns the KeyBundle an initiator should receive, consuming the
// first one-time pre-key if any remain. The receiver is left with the rest.
func (p *PublishedBundle) Take() KeyBundle {
	kb := KeyBundle{
		RegistrationID: p.RegistrationID,
		IdentityKey:    p.IdentityKey,
		SignedPreKey:   p.SignedPreKey,
		KyberPreKey:    p.KyberPreKey,
	}
	if len(p.OneTimePreKeys) > 0 {
		otk := p.OneTimePreKeys[0]
		kb.OneTimePreKey = &otk
		p.OneTimePreKeys = p.OneTimePreKeys[1:]
	}
	return kb
}

// PreKeyCounters records the next id to assign per key type.
type PreKeyCounters struct {
	NextSignedPreKeyID  SignedPreKeyID  `json:"next_signed_pre_key_id"`
	NextKyberPreKeyID   KyberPreKeyID   `json:"next_kyber_pre_key_id"`
	NextOneTimePreKeyID OneTimePreKeyID `json:"next_one_time_pre_key_id"`
	CurrentSignedID     SignedPreKeyID  `json:"current_signed_pre_key_id"`
	CurrentKyberID      KyberPreKeyID   `json:"current_kyber_pre_key_id"`
}
