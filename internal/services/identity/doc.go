// Package identity manages creation, encryption and loading of the local account.
//
// It enforces passphrase policy, generates the X25519 identity key that both
// agrees and signs (via XEdDSA), picks a registration id, and persists the
// account via the domain.IdentityStore.
package identity
