package prekey

import (
	"crypto/rand"
	"io"
	"math"
	"time"

	"github.com/pkg/errors"

	"pqxdh/internal/domain"
	"pqxdh/internal/protocol/pqxdh"
)

var errNoSignedPreKey = errors.New("no signed pre-key available; run register first")

// Service manages pre-key pairs and builds the public bundle.
type Service struct {
	ids     domain.IdentityStore
	ps      domain.PreKeyStore
	version domain.Version
	rand    io.Reader
	now     func() time.Time
}

// New returns a service generating Kyber pre-keys for version v. A nil r
// uses crypto/rand.
func New(ids domain.IdentityStore, ps domain.PreKeyStore, v domain.Version, r io.Reader) *Service {
	if r == nil {
		r = rand.Reader
	}
	return &Service{ids: ids, ps: ps, version: v, rand: r, now: time.Now}
}

// GenerateAndStore creates a new signed pre-key, a new Kyber pre-key and
// oneTime one-time pre-keys, marks the new pair current and returns the full
// bundle. The caller fills in Username.
func (s *Service) GenerateAndStore(passphrase string, oneTime int) (domain.PublishedBundle, error) {
	acct, err := s.ids.LoadAccount(passphrase)
	if err != nil {
		return domain.PublishedBundle{}, err
	}
	c, err := s.ps.Counters()
	if err != nil {
		return domain.PublishedBundle{}, err
	}
	now := s.now().UTC()

	spkID := next(c.NextSignedPreKeyID)
	spk, err := pqxdh.GenerateSignedPreKey(acct.Identity.Private, spkID, s.rand)
	if err != nil {
		return domain.PublishedBundle{}, err
	}
	spk.CreatedAt = now
	if err := s.ps.SaveSignedPreKey(spk); err != nil {
		return domain.PublishedBundle{}, err
	}

	kpkID := next(c.NextKyberPreKeyID)
	kpk, err := pqxdh.GenerateKyberPreKey(acct.Identity.Private, kpkID, s.version, s.rand)
	if err != nil {
		return domain.PublishedBundle{}, err
	}
	kpk.CreatedAt = now
	if err := s.ps.SaveKyberPreKey(kpk); err != nil {
		return domain.PublishedBundle{}, err
	}

	c.CurrentSignedID, c.NextSignedPreKeyID = spkID, spkID+1
	c.CurrentKyberID, c.NextKyberPreKeyID = kpkID, kpkID+1
	if err := s.ps.SaveCounters(c); err != nil {
		return domain.PublishedBundle{}, err
	}

	if _, err := s.Replenish(passphrase, oneTime); err != nil {
		return domain.PublishedBundle{}, err
	}
	return s.Bundle(passphrase, "")
}

// Replenish adds n one-time pre-keys with fresh ids and returns their public halves.
func (s *Service) Replenish(passphrase string, n int) ([]domain.OneTimePreKeyPublic, error) {
	if n <= 0 {
		return nil, nil
	}
	// The account is only loaded to check the passphrase.
	if _, err := s.ids.LoadAccount(passphrase); err != nil {
		return nil, err
	}
	c, err := s.ps.Counters()
	if err != nil {
		return nil, err
	}
	start := next(c.NextOneTimePreKeyID)
	if uint64(start)+uint64(n) > math.MaxUint32 {
		return nil, errors.New("one-time pre-key ids exhausted")
	}

	pairs, err := pqxdh.GenerateOneTimePreKeys(n, start, s.rand)
	if err != nil {
		return nil, err
	}
	if err := s.ps.PutOneTimePreKeys(pairs); err != nil {
		return nil, err
	}
	c.NextOneTimePreKeyID = start + domain.OneTimePreKeyID(n)
	if err := s.ps.SaveCounters(c); err != nil {
		return nil, err
	}

	out := make([]domain.OneTimePreKeyPublic, len(pairs))
	for i, p := range pairs {
		out[i] = domain.OneTimePreKeyPublic{ID: p.ID, Public: p.Public}
	}
	return out, nil
}

// Bundle builds the public bundle from the current signed and Kyber pre-keys
// and every unclaimed one-time pre-key.
func (s *Service) Bundle(passphrase, username string) (domain.PublishedBundle, error) {
	acct, err := s.ids.LoadAccount(passphrase)
	if err != nil {
		return domain.PublishedBundle{}, err
	}
	c, err := s.ps.Counters()
	if err != nil {
		return domain.PublishedBundle{}, err
	}
	if c.CurrentSignedID == 0 || c.CurrentKyberID == 0 {
		return domain.PublishedBundle{}, errNoSignedPreKey
	}

	spk, ok, err := s.ps.SignedPreKey(c.CurrentSignedID)
	if err != nil {
		return domain.PublishedBundle{}, err
	}
	if !ok {
		return domain.PublishedBundle{}, errNoSignedPreKey
	}
	kpk, ok, err := s.ps.KyberPreKey(c.CurrentKyberID)
	if err != nil {
		return domain.PublishedBundle{}, err
	}
	if !ok {
		return domain.PublishedBundle{}, errors.Errorf("current kyber pre-key %d missing", c.CurrentKyberID)
	}

	oneTime, err := s.ps.OneTimePreKeyPublics()
	if err != nil {
		return domain.PublishedBundle{}, err
	}

	return domain.PublishedBundle{
		Username:       username,
		RegistrationID: acct.RegistrationID,
		IdentityKey:    acct.Identity.Public,
		SignedPreKey:   domain.SignedPreKeyPublic{ID: spk.ID, Public: spk.Public, Signature: spk.Signature},
		KyberPreKey:    domain.KyberPreKeyPublic{ID: kpk.ID, Version: kpk.Version, Public: kpk.Public, Signature: kpk.Signature},
		OneTimePreKeys: oneTime,
	}, nil
}

// next maps an unset counter to the first id, 1.
func next[T ~uint32](v T) T {
	if v == 0 {
		return 1
	}
	return v
}

var _ domain.PreKeyService = (*Service)(nil)
