package domain

import "context"

// IdentityStore persists the local account, encrypted under a passphrase.
type IdentityStore interface {
	SaveAccount(passphrase string, acct Account) error
	LoadAccount(passphrase string) (Account, error)
}

// ProfileStore remembers the username and directory chosen at registration.
type ProfileStore interface {
	SaveProfile(p Profile) error
	LoadProfile() (Profile, bool, error)
}

// OneTimePreKeyPool holds unclaimed one-time pre-keys. Claim must be an
// atomic claim-and-remove: of any number of concurrent claims for one id,
// exactly one returns ok.
type OneTimePreKeyPool interface {
	PutOneTimePreKeys(pairs []OneTimePreKeyPair) error
	ClaimOneTimePreKey(id OneTimePreKeyID) (OneTimePreKeyPair, bool, error)
	OneTimePreKeyPublics() ([]OneTimePreKeyPublic, error)
}

// PreKeyStore holds the private halves of everything a publisher has
// published, plus the id counters used to assign new ones.
type PreKeyStore interface {
	OneTimePreKeyPool

	SaveSignedPreKey(pair SignedPreKeyPair) error
	SignedPreKey(id SignedPreKeyID) (SignedPreKeyPair, bool, error)

	SaveKyberPreKey(pair KyberPreKeyPair) error
	KyberPreKey(id KyberPreKeyID) (KyberPreKeyPair, bool, error)

	Counters() (PreKeyCounters, error)
	SaveCounters(c PreKeyCounters) error
}

// Directory is the pre-key distribution and mailbox service.
type Directory interface {
	PublishBundle(ctx context.Context, b PublishedBundle) error
	FetchBundle(ctx context.Context, username string) (KeyBundle, error)

	SendEnvelope(ctx context.Context, env Envelope) error
	FetchEnvelopes(ctx context.Context, username string, limit int) ([]Envelope, error)
	AckEnvelopes(ctx context.Context, username string, ids []string) error
}

// IdentityService creates and unlocks the local account.
type IdentityService interface {
	Generate(passphrase string) (Account, Fingerprint, error)
	Load(passphrase string) (Account, error)
	Fingerprint(passphrase string) (Fingerprint, error)
}

// PreKeyService generates pre-keys and assembles the bundle to publish.
type PreKeyService interface {
	GenerateAndStore(passphrase string, oneTime int) (PublishedBundle, error)
	Replenish(passphrase string, oneTime int) ([]OneTimePreKeyPublic, error)
	Bundle(passphrase, username string) (PublishedBundle, error)
}

// MessageService sends first messages and receives them.
type MessageService interface {
	Send(ctx context.Context, passphrase, from, to string, plaintext []byte) error
	Receive(ctx context.Context, passphrase, me string, limit int) ([]DecryptedMessage, error)
}
