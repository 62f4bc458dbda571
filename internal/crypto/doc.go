// Package crypto exposes the primitives consumed by the PQXDH handshake.
//
// Contents
//
//   - X25519 key generation and Diffie–Hellman (GenerateX25519, DH)
//   - XEdDSA signatures made with an X25519 identity key (SignXEdDSA,
//     VerifyXEdDSA)
//   - KEM key generation, encapsulation and decapsulation over any circl
//     kem.Scheme (KEMGenerate, KEMEncapsulate, KEMDecapsulate)
//   - HKDF-SHA-512 (KDF)
//   - Short public-key fingerprints for display/logging (Fingerprint)
//
// # Notes
//
// Every operation that consumes randomness takes an io.Reader. Nothing in
// this package reads crypto/rand on its own, so tests can pass a seeded
// stream and get reproducible keys.
package crypto
