// Package pqxdh implements the PQXDH handshake: an asynchronous key agreement
// that combines three or four X25519 exchanges with one KEM encapsulation.
//
// # Overview
//
// A publisher generates an identity key, a signed pre-key, a Kyber pre-key
// and a batch of one-time pre-keys (GenerateIdentity, GenerateSignedPreKey,
// GenerateKyberPreKey, GenerateOneTimePreKeys) and publishes the public
// halves. An initiator fetches one domain.KeyBundle and runs an Initiator;
// the publisher feeds the resulting bytes to a Responder. Both end with the
// same DerivedSecret:
//
//	KDF(F || DH(IKA, SPKB) || DH(EKA, IKB) || DH(EKA, SPKB) [|| DH(EKA, OPKB)] || SS_kem)
//
// where F is 32 0xFF bytes and KDF is HKDF-SHA-512 with the suite's info
// string as domain tag.
//
// # Flows
//
// Initiator:
//  1. Verify both pre-key signatures with the bundle identity (XEdDSA).
//  2. Generate an ephemeral X25519 key pair from Config.Rand.
//  3. Derive the secret and the KEM ciphertext; wipe the ephemeral key.
//  4. Encode the HandshakeMessage with the caller's opaque payload.
//
// Responder:
//  1. Decode the message.
//  2. Resolve the signed and Kyber pre-keys, consult the replay guard and
//     claim the one-time pre-key.
//  3. Derive the same secret.
//
// # Errors
//
// Every handshake failure is an *Error whose Kind is one of
// KindMalformedMessage, KindBundleInvalid, KindPreKeyUnavailable or
// KindDerivationFailed. Use errors.Is with the Err* sentinels or KindOf to
// branch. All are terminal for the attempt.
//
// # One-time pre-keys
//
// When the referenced one-time pre-key cannot be claimed, Config.Policy
// decides: PolicyAbort (default) fails the attempt, PolicyDegrade derives
// without DH4 and flags the session Degraded.
package pqxdh
