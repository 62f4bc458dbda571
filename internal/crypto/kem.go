package crypto

import (
	"io"

	"github.com/cloudflare/circl/kem"
	"github.com/pkg/errors"

	"pqxdh/internal/util/memzero"
)

// KEMGenerate derives a key pair for scheme from SeedSize bytes read from r.
func KEMGenerate(scheme kem.Scheme, r io.Reader) (pub, priv []byte, err error) {
	seed := make([]byte, scheme.SeedSize())
	defer memzero.Zero(seed)
	if _, err = io.ReadFull(r, seed); err != nil {
		return nil, nil, errors.Wrapf(err, "%s: read seed", scheme.Name())
	}
	pk, sk := scheme.DeriveKeyPair(seed)
	if pub, err = pk.MarshalBinary(); err != nil {
		return nil, nil, errors.Wrapf(err, "%s: marshal public key", scheme.Name())
	}
	if priv, err = sk.MarshalBinary(); err != nil {
		return nil, nil, errors.Wrapf(err, "%s: marshal private key", scheme.Name())
	}
	return pub, priv, nil
}

// KEMEncapsulate encapsulates to pub, drawing the encapsulation seed from r.
func KEMEncapsulate(scheme kem.Scheme, pub []byte, r io.Reader) (ct, ss []byte, err error) {
	pk, err := scheme.UnmarshalBinaryPublicKey(pub)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "%s: public key", scheme.Name())
	}
	seed := make([]byte, scheme.EncapsulationSeedSize())
	defer memzero.Zero(seed)
	if _, err = io.ReadFull(r, seed); err != nil {
		return nil, nil, errors.Wrapf(err, "%s: read encapsulation seed", scheme.Name())
	}
	ct, ss, err = scheme.EncapsulateDeterministically(pk, seed)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "%s: encapsulate", scheme.Name())
	}
	return ct, ss, nil
}

// KEMDecapsulate recovers the shared secret for ct. Kyber and ML-KEM use
// implicit rejection, so only structurally invalid input fails here.
func KEMDecapsulate(scheme kem.Scheme, priv, ct []byte) ([]byte, error) {
	sk, err := scheme.UnmarshalBinaryPrivateKey(priv)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: private key", scheme.Name())
	}
	ss, err := scheme.Decapsulate(sk, ct)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: decapsulate", scheme.Name())
	}
	return ss, nil
}
