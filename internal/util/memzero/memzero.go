// Package memzero wipes key material.
package memzero

import "crypto/subtle"

var zeros [64]byte

// Zero overwrites b with zeros, 64 bytes at a time.
func Zero(b []byte) {
	for len(b) > 0 {
		n := min(len(b), len(zeros))
		subtle.ConstantTimeCopy(1, b[:n], zeros[:n])
		b = b[n:]
	}
}
