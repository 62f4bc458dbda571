package crypto

import (
	"io"

	"github.com/pkg/errors"
	"golang.org/x/crypto/curve25519"

	"pqxdh/internal/domain"
)

// GenerateX25519 returns a fresh Curve25519 key pair drawn from r.
// The private key is clamped per RFC 7748.
func GenerateX25519(r io.Reader) (priv domain.X25519Private, pub domain.X25519Public, err error) {
	if _, err = io.ReadFull(r, priv[:]); err != nil {
		return priv, pub, errors.Wrap(err, "x25519: read private key")
	}
	clamp(&priv)
	pb, err := curve25519.X25519(priv.Slice(), curve25519.Basepoint)
	if err != nil {
		return priv, pub, errors.Wrap(err, "x25519: derive public key")
	}
	copy(pub[:], pb)
	return priv, pub, nil
}

// DH computes X25519 Diffie–Hellman. A low-order peer key, which yields the
// all-zero output, is an error.
func DH(priv domain.X25519Private, pub domain.X25519Public) (out [32]byte, err error) {
	secret, err := curve25519.X25519(priv.Slice(), pub.Slice())
	if err != nil {
		return out, errors.Wrap(err, "x25519")
	}
	copy(out[:], secret)
	return out, nil
}

func clamp(k *domain.X25519Private) {
	kb := k[:]
	kb[0] &= 248
	kb[31] &= 127
	kb[31] |= 64
}
