package pqxdh

import (
	"crypto/rand"
	"io"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"pqxdh/internal/domain"
)

// DefaultOutputLength is the DerivedSecret size used unless configured.
const DefaultOutputLength = 32

// Policy decides what a publisher does when the one-time pre-key a message
// references is missing or already claimed.
type Policy uint8

const (
	// PolicyAbort fails the handshake with KindPreKeyUnavailable.
	PolicyAbort Policy = iota
	// PolicyDegrade derives from DH1-DH3 and SS_kem only. The initiator
	// included DH4, so the two secrets will not match; the session is
	// flagged Degraded and the ratchet payload will fail to open.
	PolicyDegrade
)

func (p Policy) String() string {
	switch p {
	case PolicyAbort:
		return "abort"
	case PolicyDegrade:
		return "degrade"
	default:
		return "unknown"
	}
}

// ParsePolicy accepts "abort" or "degrade", case-insensitively.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "abort", "":
		return PolicyAbort, nil
	case "degrade":
		return PolicyDegrade, nil
	default:
		return 0, errors.Errorf("unknown one-time pre-key policy %q", s)
	}
}

// ReplayGuard remembers message digests. MarkSeen records d and reports
// whether it had been recorded before; the check and the record are atomic.
// Forget drops a digest recorded for a message whose handshake could not
// finish because of a store failure.
type ReplayGuard interface {
	MarkSeen(d [32]byte) (seen bool, err error)
	Forget(d [32]byte) error
}

// Config holds the knobs shared by Initiator and Responder.
type Config struct {
	// Policy applies to the publisher only.
	Policy Policy
	// OutputLength is the DerivedSecret size in bytes.
	OutputLength int
	// Version is used when generating Kyber pre-keys. Initiators follow the
	// version of the bundle they are given.
	Version domain.Version
	// Rand feeds ephemeral key generation and KEM encapsulation.
	Rand io.Reader
	// ReplayGuard is optional.
	ReplayGuard ReplayGuard
	Logger      *zap.Logger
}

// DefaultConfig aborts on missing one-time pre-keys, derives 32 bytes, uses
// version 4 and reads crypto/rand.
func DefaultConfig() Config {
	return Config{
		Policy:       PolicyAbort,
		OutputLength: DefaultOutputLength,
		Version:      DefaultVersion,
		Rand:         rand.Reader,
		Logger:       zap.NewNop(),
	}
}

// Validate reports the first unusable setting.
func (c Config) Validate() error {
	if c.Policy != PolicyAbort && c.Policy != PolicyDegrade {
		return errors.Errorf("invalid policy %d", c.Policy)
	}
	if err := checkLength(c.OutputLength); err != nil {
		return err
	}
	if _, ok := LookupSuite(c.Version); !ok {
		return errors.Errorf("unsupported version %d", c.Version)
	}
	return nil
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.OutputLength == 0 {
		c.OutputLength = d.OutputLength
	}
	if c.Version == 0 {
		c.Version = d.Version
	}
	if c.Rand == nil {
		c.Rand = d.Rand
	}
	if c.Logger == nil {
		c.Logger = d.Logger
	}
	return c
}
