package store

import (
	"encoding/json"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"

	"pqxdh/internal/domain"
	"pqxdh/internal/util/memzero"
)

const idFilename = "identity.json.enc"

// ErrNoAccount is returned by LoadAccount before any account was saved.
var ErrNoAccount = errors.New("no account has been initialised")

// IdentityFileStore persists the local account to disk, encrypted under a
// passphrase.
type IdentityFileStore struct {
	dir    string
	scrypt scryptParams
	mu     sync.Mutex
}

// NewIdentityFileStore returns an IdentityFileStore rooted at dir.
func NewIdentityFileStore(dir string) *IdentityFileStore {
	return &IdentityFileStore{dir: dir, scrypt: defaultScrypt}
}

// SaveAccount writes the encrypted account to disk, replacing any previous one.
func (s *IdentityFileStore) SaveAccount(passphrase string, acct domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := json.Marshal(acct)
	if err != nil {
		return errors.Wrap(err, "encode account")
	}
	defer memzero.Zero(raw)

	ct, err := encrypt(passphrase, raw, s.scrypt)
	if err != nil {
		return errors.WithMessage(err, "seal account")
	}
	return writeFile(filepath.Join(s.dir, idFilename), ct, 0o600)
}

// LoadAccount reads and decrypts the account.
func (s *IdentityFileStore) LoadAccount(passphrase string) (domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := readFile(filepath.Join(s.dir, idFilename))
	if err != nil {
		return domain.Account{}, err
	}
	if b == nil {
		return domain.Account{}, ErrNoAccount
	}
	pt, err := decrypt(passphrase, b)
	if err != nil {
		return domain.Account{}, err
	}
	defer memzero.Zero(pt)

	var acct domain.Account
	if err := json.Unmarshal(pt, &acct); err != nil {
		return domain.Account{}, errors.Wrap(err, "decode account")
	}
	return acct, nil
}

var _ domain.IdentityStore = (*IdentityFileStore)(nil)
