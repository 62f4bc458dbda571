package identity

import (
	"crypto/rand"
	"encoding/binary"
	"io"
	"unicode"

	"github.com/pkg/errors"

	"pqxdh/internal/crypto"
	"pqxdh/internal/domain"
	"pqxdh/internal/protocol/pqxdh"
)

const (
	// minPassphraseLength defines the minimum number of characters required for a passphrase.
	minPassphraseLength = 12

	// maxRegistrationID keeps registration ids in the 14-bit range Signal
	// clients use.
	maxRegistrationID = 16380
)

// ErrWeakPassphrase is returned when the passphrase fails the strength policy.
var ErrWeakPassphrase = errors.Errorf(
	"passphrase is too weak (must be at least %d characters and include upper, lower, "+
		"number, and symbol)",
	minPassphraseLength,
)

// Service manages the account using a backing store.
type Service struct {
	store domain.IdentityStore
	rand  io.Reader
}

// New returns an identity service backed by the given store. A nil r uses
// crypto/rand.
func New(s domain.IdentityStore, r io.Reader) *Service {
	if r == nil {
		r = rand.Reader
	}
	return &Service{store: s, rand: r}
}

// Generate creates a new account, saves it encrypted with the passphrase,
// and returns it with the identity fingerprint.
func (s *Service) Generate(passphrase string) (domain.Account, domain.Fingerprint, error) {
	if !isSecurePassphrase(passphrase) {
		return domain.Account{}, "", ErrWeakPassphrase
	}

	id, err := pqxdh.GenerateIdentity(s.rand)
	if err != nil {
		return domain.Account{}, "", err
	}
	regID, err := registrationID(s.rand)
	if err != nil {
		return domain.Account{}, "", err
	}

	acct := domain.Account{Identity: id, RegistrationID: regID}
	if err := s.store.SaveAccount(passphrase, acct); err != nil {
		return domain.Account{}, "", errors.WithMessage(err, "save account")
	}
	return acct, fingerprint(acct), nil
}

// Load decrypts and returns the local account.
func (s *Service) Load(passphrase string) (domain.Account, error) {
	return s.store.LoadAccount(passphrase)
}

// Fingerprint returns a short fingerprint of the local identity key.
func (s *Service) Fingerprint(passphrase string) (domain.Fingerprint, error) {
	acct, err := s.store.LoadAccount(passphrase)
	if err != nil {
		return "", err
	}
	return fingerprint(acct), nil
}

func fingerprint(acct domain.Account) domain.Fingerprint {
	return crypto.Fingerprint(acct.Identity.Public)
}

// registrationID draws a uniform id in [1, maxRegistrationID].
func registrationID(r io.Reader) (domain.RegistrationID, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, errors.Wrap(err, "registration id")
	}
	return domain.RegistrationID(binary.BigEndian.Uint32(b[:])%maxRegistrationID + 1), nil
}

// isSecurePassphrase enforces a basic strength policy.
func isSecurePassphrase(passphrase string) bool {
	var hasUpper, hasLower, hasDigit, hasSymbol bool
	if len(passphrase) < minPassphraseLength {
		return false
	}
	for _, r := range passphrase {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r), unicode.IsSymbol(r):
			hasSymbol = true
		}
	}
	return hasUpper && hasLower && hasDigit && hasSymbol
}

var _ domain.IdentityService = (*Service)(nil)
