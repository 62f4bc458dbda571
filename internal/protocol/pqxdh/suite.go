package pqxdh

import (
	"sort"

	"github.com/cloudflare/circl/kem"
	"github.com/cloudflare/circl/kem/kyber/kyber1024"
	"github.com/cloudflare/circl/kem/mlkem/mlkem1024"
	"github.com/cloudflare/circl/kem/mlkem/mlkem768"

	"pqxdh/internal/domain"
)

const (
	Version4Kyber1024 domain.Version = 4
	Version5MLKEM768  domain.Version = 5
	Version6MLKEM1024 domain.Version = 6

	DefaultVersion = Version4Kyber1024
)

// CurveKeyTag prefixes an X25519 public key wherever it is signed or bound
// into associated data.
const CurveKeyTag byte = 0x05

// CurveKeySize is the encoded size of identity and ephemeral keys on the wire.
const CurveKeySize = 32

// Suite is one row of the parameter-set table selected by the version byte.
type Suite struct {
	Version domain.Version
	KEM     kem.Scheme
	// Info is the KDF domain tag.
	Info string
	// KeyTag prefixes the KEM public key when it is signed.
	KeyTag byte
}

var suites = map[domain.Version]*Suite{
	Version4Kyber1024: {
		Version: Version4Kyber1024,
		KEM:     kyber1024.Scheme(),
		Info:    "PQXDH_CURVE25519_SHA-512_CRYSTALS-KYBER-1024",
		KeyTag:  0x08,
	},
	Version5MLKEM768: {
		Version: Version5MLKEM768,
		KEM:     mlkem768.Scheme(),
		Info:    "PQXDH_CURVE25519_SHA-512_ML-KEM-768",
		KeyTag:  0x0A,
	},
	Version6MLKEM1024: {
		Version: Version6MLKEM1024,
		KEM:     mlkem1024.Scheme(),
		Info:    "PQXDH_CURVE25519_SHA-512_ML-KEM-1024",
		KeyTag:  0x0B,
	},
}

// LookupSuite returns the parameter set for v.
func LookupSuite(v domain.Version) (*Suite, bool) {
	s, ok := suites[v]
	return s, ok
}

// Versions lists the supported versions in ascending order.
func Versions() []domain.Version {
	out := make([]domain.Version, 0, len(suites))
	for v := range suites {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s *Suite) String() string { return s.KEM.Name() }

// CiphertextSize is the fixed KEM ciphertext length for this suite.
func (s *Suite) CiphertextSize() int { return s.KEM.CiphertextSize() }
