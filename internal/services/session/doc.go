// Package session runs PQXDH handshakes on behalf of the local account.
//
// As initiator it fetches the peer's bundle from the directory, derives the
// shared secret and lets the caller bind a payload before the handshake
// message is encoded. As publisher it resolves the referenced pre-keys from
// the PreKeyStore under the configured one-time pre-key policy.
package session
