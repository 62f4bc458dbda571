package pqxdh

import (
	"io"

	"github.com/pkg/errors"

	"pqxdh/internal/crypto"
	"pqxdh/internal/domain"
	"pqxdh/internal/util/memzero"
)

// MinOutputLength is the shortest DerivedSecret the engine will produce.
const MinOutputLength = 32

// kdfPrefix is the domain-separation constant F: 32 0xFF bytes.
var kdfPrefix = func() (f [32]byte) {
	for i := range f {
		f[i] = 0xFF
	}
	return f
}()

// DerivedSecret is the handshake output. Wipe it once the ratchet has it.
type DerivedSecret []byte

// Wipe zeroes the secret in place.
func (s DerivedSecret) Wipe() { memzero.Zero(s) }

// PublisherKeys are the private halves the publisher resolved for a message.
type PublisherKeys struct {
	Identity     domain.X25519Private
	SignedPreKey domain.X25519Private
	// OneTimePreKey is nil when the message referenced none or the
	// publisher continued in degraded mode.
	OneTimePreKey *domain.X25519Private
	KyberPreKey   []byte
}

// Wipe zeroes every private key held in k.
func (k *PublisherKeys) Wipe() {
	memzero.Zero(k.Identity[:])
	memzero.Zero(k.SignedPreKey[:])
	if k.OneTimePreKey != nil {
		memzero.Zero(k.OneTimePreKey[:])
	}
	memzero.Zero(k.KyberPreKey)
}

// DeriveInitiator computes the initiator's secret against bundle and the
// KEM ciphertext to send. Encapsulation randomness is read from r. Bundle
// signatures are not checked here; the driver does that first.
func DeriveInitiator(
	s *Suite,
	identity domain.X25519Private,
	ephemeral domain.X25519Private,
	bundle *domain.KeyBundle,
	r io.Reader,
	length int,
) (DerivedSecret, []byte, error) {
	const op = "derive initiator"
	if err := checkLength(length); err != nil {
		return nil, nil, derivationFailed(op, err)
	}

	pairs := []agreement{
		{"dh1", identity, bundle.SignedPreKey.Public},  // DH(IKA, SPKB)
		{"dh2", ephemeral, bundle.IdentityKey},         // DH(EKA, IKB)
		{"dh3", ephemeral, bundle.SignedPreKey.Public}, // DH(EKA, SPKB)
	}
	if bundle.OneTimePreKey != nil {
		pairs = append(pairs, agreement{"dh4", ephemeral, bundle.OneTimePreKey.Public}) // DH(EKA, OPKB)
	}
	defer wipePairs(pairs)

	dhs, err := agree(pairs)
	if err != nil {
		return nil, nil, derivationFailed(op, err)
	}
	defer wipeAll(dhs)

	ct, ss, err := crypto.KEMEncapsulate(s.KEM, bundle.KyberPreKey.Public, r)
	if err != nil {
		return nil, nil, derivationFailed(op, err)
	}
	defer memzero.Zero(ss)

	secret, err := combine(s, length, ss, dhs)
	if err != nil {
		return nil, nil, derivationFailed(op, err)
	}
	return secret, ct, nil
}

// DerivePublisher recomputes the secret from the publisher's private keys
// and the initiator's public keys in msg. With matching inputs the result is
// byte-identical to DeriveInitiator's.
func DerivePublisher(s *Suite, keys PublisherKeys, msg *HandshakeMessage, length int) (DerivedSecret, error) {
	const op = "derive publisher"
	if err := checkLength(length); err != nil {
		return nil, derivationFailed(op, err)
	}
	if msg.Version != s.Version {
		return nil, derivationFailed(op, errors.Errorf("message version %d, suite version %d", msg.Version, s.Version))
	}

	pairs := []agreement{
		{"dh1", keys.SignedPreKey, msg.IdentityKey},  // DH(SPKB, IKA)
		{"dh2", keys.Identity, msg.EphemeralKey},     // DH(IKB, EKA)
		{"dh3", keys.SignedPreKey, msg.EphemeralKey}, // DH(SPKB, EKA)
	}
	if keys.OneTimePreKey != nil {
		pairs = append(pairs, agreement{"dh4", *keys.OneTimePreKey, msg.EphemeralKey}) // DH(OPKB, EKA)
	}
	defer wipePairs(pairs)

	dhs, err := agree(pairs)
	if err != nil {
		return nil, derivationFailed(op, err)
	}
	defer wipeAll(dhs)

	ss, err := crypto.KEMDecapsulate(s.KEM, keys.KyberPreKey, msg.Ciphertext)
	if err != nil {
		return nil, derivationFailed(op, err)
	}
	defer memzero.Zero(ss)

	secret, err := combine(s, length, ss, dhs)
	if err != nil {
		return nil, derivationFailed(op, err)
	}
	return secret, nil
}

// combine runs KDF(F || DH1 || DH2 || DH3 [|| DH4] || SS_kem).
func combine(s *Suite, length int, ss []byte, dhs [][32]byte) (DerivedSecret, error) {
	km := make([]byte, 0, len(kdfPrefix)+32*len(dhs)+len(ss))
	defer func() { memzero.Zero(km) }()

	km = append(km, kdfPrefix[:]...)
	for i := range dhs {
		km = append(km, dhs[i][:]...)
	}
	km = append(km, ss...)

	out, err := crypto.KDF(s.Info, km, length)
	if err != nil {
		return nil, err
	}
	if len(out) != length {
		memzero.Zero(out)
		return nil, errors.Errorf("kdf returned %d bytes, want %d", len(out), length)
	}
	return DerivedSecret(out), nil
}

func checkLength(n int) error {
	if n < MinOutputLength || n > crypto.MaxKDFOutput {
		return errors.Errorf("output length %d outside [%d, %d]", n, MinOutputLength, crypto.MaxKDFOutput)
	}
	return nil
}

type agreement struct {
	name string
	priv domain.X25519Private
	pub  domain.X25519Public
}

// agree runs every agreement in order. On failure nothing is returned and
// the outputs computed so far are wiped.
func agree(pairs []agreement) ([][32]byte, error) {
	out := make([][32]byte, len(pairs))
	for i, p := range pairs {
		var err error
		if out[i], err = crypto.DH(p.priv, p.pub); err != nil {
			wipeAll(out)
			return nil, errors.WithMessage(err, p.name)
		}
	}
	return out, nil
}

func wipePairs(pairs []agreement) {
	for i := range pairs {
		memzero.Zero(pairs[i].priv[:])
	}
}

func wipeAll(dhs [][32]byte) {
	for i := range dhs {
		memzero.Zero(dhs[i][:])
	}
}
