package crypto

import (
	"crypto/sha512"
	"io"

	"github.com/pkg/errors"
	"golang.org/x/crypto/hkdf"
)

// MaxKDFOutput is the most HKDF-SHA-512 can produce.
const MaxKDFOutput = 255 * sha512.Size

// KDF runs HKDF-SHA-512 over ikm with a zero salt of hash length and info
// as the domain tag, returning n bytes.
func KDF(info string, ikm []byte, n int) ([]byte, error) {
	if n <= 0 || n > MaxKDFOutput {
		return nil, errors.Errorf("kdf: output length %d out of range", n)
	}
	salt := make([]byte, sha512.Size)
	out := make([]byte, n)
	if _, err := io.ReadFull(hkdf.New(sha512.New, ikm, salt, []byte(info)), out); err != nil {
		return nil, errors.Wrap(err, "kdf")
	}
	return out, nil
}
