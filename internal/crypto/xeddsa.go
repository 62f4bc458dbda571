package crypto

import (
	"crypto/ed25519"
	"crypto/sha512"
	"io"

	"filippo.io/edwards25519"
	"filippo.io/edwards25519/field"
	"github.com/pkg/errors"

	"pqxdh/internal/domain"
	"pqxdh/internal/util/memzero"
)

// SignatureSize is the length of an XEdDSA signature (R || s).
const SignatureSize = 64

// hash1Prefix is 2^256 - 2 in little-endian: the hash_1 domain separator.
var hash1Prefix = func() (p [32]byte) {
	for i := range p {
		p[i] = 0xFF
	}
	p[0] = 0xFE
	return p
}()

// SignXEdDSA signs msg with an X25519 private key. The 64-byte nonce Z is
// read from r, so signatures are randomized unless r is deterministic.
func SignXEdDSA(priv domain.X25519Private, msg []byte, r io.Reader) ([]byte, error) {
	var z [64]byte
	defer memzero.Zero(z[:])
	if _, err := io.ReadFull(r, z[:]); err != nil {
		return nil, errors.Wrap(err, "xeddsa: read nonce")
	}

	k, err := edwards25519.NewScalar().SetBytesWithClamping(priv[:])
	if err != nil {
		return nil, errors.Wrap(err, "xeddsa: private key")
	}

	// calculate_key_pair: A = kB with the sign bit forced to zero, a = ±k.
	e := new(edwards25519.Point).ScalarBaseMult(k).Bytes()
	a := edwards25519.NewScalar().Set(k)
	if e[31]&0x80 != 0 {
		a.Negate(a)
	}
	pubA := make([]byte, 32)
	copy(pubA, e)
	pubA[31] &^= 0x80

	h := sha512.New()
	h.Write(hash1Prefix[:])
	h.Write(a.Bytes())
	h.Write(msg)
	h.Write(z[:])
	rs, err := edwards25519.NewScalar().SetUniformBytes(h.Sum(nil))
	if err != nil {
		return nil, errors.Wrap(err, "xeddsa: nonce scalar")
	}
	rEnc := new(edwards25519.Point).ScalarBaseMult(rs).Bytes()

	h.Reset()
	h.Write(rEnc)
	h.Write(pubA)
	h.Write(msg)
	hs, err := edwards25519.NewScalar().SetUniformBytes(h.Sum(nil))
	if err != nil {
		return nil, errors.Wrap(err, "xeddsa: challenge scalar")
	}

	s := edwards25519.NewScalar().MultiplyAdd(hs, a, rs)

	sig := make([]byte, 0, SignatureSize)
	sig = append(sig, rEnc...)
	return append(sig, s.Bytes()...), nil
}

// VerifyXEdDSA checks sig over msg against an X25519 public key. It never
// returns early on the signature contents beyond the length check.
func VerifyXEdDSA(pub domain.X25519Public, msg, sig []byte) bool {
	if len(sig) != SignatureSize {
		return false
	}
	a, ok := edwardsFromMontgomery(pub)
	if !ok {
		return false
	}
	return ed25519.Verify(a, msg, sig)
}

// edwardsFromMontgomery maps u to the Edwards point with y = (u-1)/(u+1)
// and a zero sign bit.
func edwardsFromMontgomery(pub domain.X25519Public) (ed25519.PublicKey, bool) {
	var u field.Element
	if _, err := u.SetBytes(pub[:]); err != nil {
		return nil, false
	}
	one := new(field.Element).One()
	den := new(field.Element).Add(&u, one)
	if den.Equal(new(field.Element).Zero()) == 1 {
		return nil, false
	}
	num := new(field.Element).Subtract(&u, one)
	y := new(field.Element).Multiply(num, new(field.Element).Invert(den))

	a := y.Bytes()
	if _, err := new(edwards25519.Point).SetBytes(a); err != nil {
		return nil, false
	}
	return ed25519.PublicKey(a), true
}
