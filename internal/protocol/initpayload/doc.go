// Package initpayload seals the first application message carried inside a
// PQXDH handshake message.
//
// It stands in for the ratchet initialisation a full messenger would run:
// the derived secret seeds a root key and a single sending chain step, whose
// message key encrypts the payload with ChaCha20-Poly1305. The session's
// associated data (both identity keys) is bound into every seal, so a
// handshake whose identity keys were tampered with fails to open here even
// if derivation happened to succeed.
package initpayload
