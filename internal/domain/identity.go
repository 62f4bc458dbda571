package domain

// IdentityKeyPair holds the long-term X25519 key of a party. The same key
// agrees (DH1/DH2) and signs pre-keys via XEdDSA.
type IdentityKeyPair struct {
	Private X25519Private `json:"private"`
	Public  X25519Public  `json:"public"`
}

// Account is the locally persisted identity plus the registration id sent in
// every handshake message this party initiates.
type Account struct {
	Identity       IdentityKeyPair `json:"identity"`
	RegistrationID RegistrationID  `json:"registration_id"`
}

// Profile records who this installation is registered as, and where.
type Profile struct {
	Username  string `json:"username"`
	Directory string `json:"directory"`
}
