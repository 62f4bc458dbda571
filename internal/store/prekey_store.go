package store

import (
	"strconv"
	"sync"

	"github.com/pkg/errors"
	"gitlab.com/elixxir/ekv"

	"pqxdh/internal/domain"
)

const (
	signedPreKeyPrefix = "spk-"
	kyberPreKeyPrefix  = "kpk-"
	countersKey        = "prekey-counters"
)

// PreKeyStore keeps signed and Kyber pre-key pairs and the id counters in an
// ekv.KeyValue. One-time pre-keys are delegated to a OneTimePreKeyPool, which
// defaults to one in the same key-value store.
//
// Superseded signed and Kyber pre-keys are never removed: a handshake built
// against an older bundle must still resolve.
type PreKeyStore struct {
	kv   ekv.KeyValue
	pool domain.OneTimePreKeyPool
	mu   sync.Mutex
}

// NewPreKeyStore wraps kv. If pool is nil, one-time pre-keys are kept in kv.
func NewPreKeyStore(kv ekv.KeyValue, pool domain.OneTimePreKeyPool) *PreKeyStore {
	if pool == nil {
		pool = NewKVOneTimePool(kv)
	}
	return &PreKeyStore{kv: kv, pool: pool}
}

// OpenPreKeyStore opens, or creates, an encrypted ekv file store in dir.
func OpenPreKeyStore(dir, passphrase string, pool domain.OneTimePreKeyPool) (*PreKeyStore, error) {
	fs, err := ekv.NewFilestore(dir, passphrase)
	if err != nil {
		return nil, errors.Wrapf(err, "open pre-key store %s", dir)
	}
	return NewPreKeyStore(fs, pool), nil
}

// NewMemoryPreKeyStore is a PreKeyStore over ekv's in-memory store.
func NewMemoryPreKeyStore() *PreKeyStore {
	return NewPreKeyStore(ekv.MakeMemstore(), nil)
}

func (s *PreKeyStore) SaveSignedPreKey(pair domain.SignedPreKeyPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return errors.Wrapf(s.kv.SetInterface(signedKey(pair.ID), pair), "save signed pre-key %d", pair.ID)
}

// SignedPreKey returns a fresh copy of the pair; the caller may wipe it.
func (s *PreKeyStore) SignedPreKey(id domain.SignedPreKeyID) (domain.SignedPreKeyPair, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pair domain.SignedPreKeyPair
	ok, err := load(s.kv, signedKey(id), &pair)
	if err != nil || !ok {
		return domain.SignedPreKeyPair{}, false, errors.WithMessagef(err, "signed pre-key %d", id)
	}
	return pair, true, nil
}

func (s *PreKeyStore) SaveKyberPreKey(pair domain.KyberPreKeyPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return errors.Wrapf(s.kv.SetInterface(kyberKey(pair.ID), pair), "save kyber pre-key %d", pair.ID)
}

// KyberPreKey returns a fresh copy of the pair; the caller may wipe it.
func (s *PreKeyStore) KyberPreKey(id domain.KyberPreKeyID) (domain.KyberPreKeyPair, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pair domain.KyberPreKeyPair
	ok, err := load(s.kv, kyberKey(id), &pair)
	if err != nil || !ok {
		return domain.KyberPreKeyPair{}, false, errors.WithMessagef(err, "kyber pre-key %d", id)
	}
	return pair, true, nil
}

// Counters returns the persisted counters, or the zero value if none were
// saved yet.
func (s *PreKeyStore) Counters() (domain.PreKeyCounters, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var c domain.PreKeyCounters
	if _, err := load(s.kv, countersKey, &c); err != nil {
		return domain.PreKeyCounters{}, errors.WithMessage(err, "pre-key counters")
	}
	return c, nil
}

func (s *PreKeyStore) SaveCounters(c domain.PreKeyCounters) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return errors.Wrap(s.kv.SetInterface(countersKey, c), "save pre-key counters")
}

// ReplayGuard returns a guard persisted in the same key-value store.
func (s *PreKeyStore) ReplayGuard() *KVReplayGuard {
	return NewKVReplayGuard(s.kv)
}

func (s *PreKeyStore) PutOneTimePreKeys(pairs []domain.OneTimePreKeyPair) error {
	return s.pool.PutOneTimePreKeys(pairs)
}

func (s *PreKeyStore) ClaimOneTimePreKey(id domain.OneTimePreKeyID) (domain.OneTimePreKeyPair, bool, error) {
	return s.pool.ClaimOneTimePreKey(id)
}

func (s *PreKeyStore) OneTimePreKeyPublics() ([]domain.OneTimePreKeyPublic, error) {
	return s.pool.OneTimePreKeyPublics()
}

// load reads key into out. A missing key is reported as false, nil.
func load(kv ekv.KeyValue, key string, out any) (bool, error) {
	if err := kv.GetInterface(key, out); err != nil {
		if !ekv.Exists(err) {
			return false, nil
		}
		return false, errors.Wrapf(err, "load %s", key)
	}
	return true, nil
}

func signedKey(id domain.SignedPreKeyID) string {
	return signedPreKeyPrefix + strconv.FormatUint(uint64(id), 10)
}

func kyberKey(id domain.KyberPreKeyID) string {
	return kyberPreKeyPrefix + strconv.FormatUint(uint64(id), 10)
}

var _ domain.PreKeyStore = (*PreKeyStore)(nil)
