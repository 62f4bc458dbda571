package pqxdh

import (
	"crypto/subtle"
	"io"
	"math"

	"github.com/pkg/errors"

	"pqxdh/internal/crypto"
	"pqxdh/internal/domain"
)

var errBadSignature = errors.New("pre-key signature verification failed")

// GenerateIdentity creates a long-term identity key pair from r.
func GenerateIdentity(r io.Reader) (domain.IdentityKeyPair, error) {
	priv, pub, err := crypto.GenerateX25519(r)
	if err != nil {
		return domain.IdentityKeyPair{}, errors.WithMessage(err, "generate identity")
	}
	return domain.IdentityKeyPair{Private: priv, Public: pub}, nil
}

// GenerateSignedPreKey creates a curve pre-key with the given id and signs
// its encoded public key with signer. CreatedAt is left for the caller.
func GenerateSignedPreKey(signer domain.X25519Private, id domain.SignedPreKeyID, r io.Reader) (domain.SignedPreKeyPair, error) {
	priv, pub, err := crypto.GenerateX25519(r)
	if err != nil {
		return domain.SignedPreKeyPair{}, errors.WithMessagef(err, "generate signed pre-key %d", id)
	}
	sig, err := crypto.SignXEdDSA(signer, encodeCurveKey(pub), r)
	if err != nil {
		return domain.SignedPreKeyPair{}, errors.WithMessagef(err, "sign signed pre-key %d", id)
	}
	return domain.SignedPreKeyPair{ID: id, Private: priv, Public: pub, Signature: sig}, nil
}

// GenerateKyberPreKey creates a KEM pre-key for version v and signs its
// encoded public key with signer.
func GenerateKyberPreKey(signer domain.X25519Private, id domain.KyberPreKeyID, v domain.Version, r io.Reader) (domain.KyberPreKeyPair, error) {
	s, ok := LookupSuite(v)
	if !ok {
		return domain.KyberPreKeyPair{}, errors.Errorf("generate kyber pre-key %d: unsupported version %d", id, v)
	}
	pub, priv, err := crypto.KEMGenerate(s.KEM, r)
	if err != nil {
		return domain.KyberPreKeyPair{}, errors.WithMessagef(err, "generate kyber pre-key %d", id)
	}
	sig, err := crypto.SignXEdDSA(signer, encodeKEMKey(s, pub), r)
	if err != nil {
		return domain.KyberPreKeyPair{}, errors.WithMessagef(err, "sign kyber pre-key %d", id)
	}
	return domain.KyberPreKeyPair{ID: id, Version: v, Private: priv, Public: pub, Signature: sig}, nil
}

// GenerateOneTimePreKeys creates count pre-keys with ids start, start+1, ...
func GenerateOneTimePreKeys(count int, start domain.OneTimePreKeyID, r io.Reader) ([]domain.OneTimePreKeyPair, error) {
	if count < 0 {
		return nil, errors.Errorf("generate one-time pre-keys: negative count %d", count)
	}
	if count > 0 && uint64(start)+uint64(count)-1 > math.MaxUint32 {
		return nil, errors.Errorf("generate one-time pre-keys: ids from %d overflow", start)
	}
	out := make([]domain.OneTimePreKeyPair, 0, count)
	for i := 0; i < count; i++ {
		priv, pub, err := crypto.GenerateX25519(r)
		if err != nil {
			return nil, errors.WithMessage(err, "generate one-time pre-keys")
		}
		out = append(out, domain.OneTimePreKeyPair{
			ID:      start + domain.OneTimePreKeyID(i),
			Private: priv,
			Public:  pub,
		})
	}
	return out, nil
}

// VerifyBundle checks both pre-key signatures against the bundle identity.
// Both checks always run and their results are combined in constant time;
// the returned error does not say which one failed.
func VerifyBundle(b *domain.KeyBundle) error {
	const op = "verify bundle"
	s, ok := LookupSuite(b.KyberPreKey.Version)
	if !ok {
		return bundleInvalid(op, errors.Errorf("unsupported version %d", b.KyberPreKey.Version))
	}
	if len(b.KyberPreKey.Public) != s.KEM.PublicKeySize() {
		return bundleInvalid(op, errors.Errorf("kyber pre-key is %d bytes, want %d",
			len(b.KyberPreKey.Public), s.KEM.PublicKeySize()))
	}

	spk := crypto.VerifyXEdDSA(b.IdentityKey, encodeCurveKey(b.SignedPreKey.Public), b.SignedPreKey.Signature)
	kpk := crypto.VerifyXEdDSA(b.IdentityKey, encodeKEMKey(s, b.KyberPreKey.Public), b.KyberPreKey.Signature)
	if subtle.ConstantTimeByteEq(bit(spk)&bit(kpk), 1) != 1 {
		return bundleInvalid(op, errBadSignature)
	}
	return nil
}

// AssociatedData binds a session to both identities: enc(IK_A) || enc(IK_B).
func AssociatedData(initiator, publisher domain.X25519Public) []byte {
	ad := make([]byte, 0, 2*(1+CurveKeySize))
	ad = append(ad, encodeCurveKey(initiator)...)
	return append(ad, encodeCurveKey(publisher)...)
}

func encodeCurveKey(pub domain.X25519Public) []byte {
	out := make([]byte, 0, 1+len(pub))
	out = append(out, CurveKeyTag)
	return append(out, pub[:]...)
}

func encodeKEMKey(s *Suite, pub []byte) []byte {
	out := make([]byte, 0, 1+len(pub))
	out = append(out, s.KeyTag)
	return append(out, pub...)
}

func bit(b bool) byte {
	if b {
		return 1
	}
	return 0
}
