// Package prekey generates and rotates a publisher's pre-keys and assembles
// the bundle it uploads to the directory.
//
// Ids are assigned from counters kept in the PreKeyStore, so they increase
// monotonically across restarts and never collide with keys already handed
// out. Rotated signed and Kyber pre-keys stay in the store so that handshakes
// built against an older bundle still resolve.
package prekey
