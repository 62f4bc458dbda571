package memzero_test

import (
	"bytes"
	"testing"

	"pqxdh/internal/util/memzero"
)

func TestZero(t *testing.T) {
	for _, n := range []int{0, 1, 32, 64, 65, 1568} {
		b := bytes.Repeat([]byte{0xAB}, n)
		memzero.Zero(b)
		if !bytes.Equal(b, make([]byte, n)) {
			t.Fatalf("len %d: not wiped", n)
		}
	}
}
