// Package store provides persistence for a PQXDH publisher's local state.
//
// The identity key is kept in a passphrase-encrypted file (scrypt +
// ChaCha20-Poly1305). Pre-key private halves live in an ekv key-value
// store, either on disk or in memory. The one-time pre-key pool can instead
// be shared through Redis so several responder processes claim from the same
// set, and handshake replay guards are available in memory and in Redis.
//
// All types are safe for concurrent use.
package store
