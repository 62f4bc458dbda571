package pqxdh_test

import (
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"pqxdh/internal/domain"
	"pqxdh/internal/protocol/pqxdh"
)

func seeded(b byte) *rand.ChaCha8 {
	var seed [32]byte
	seed[0] = b
	seed[31] = 0x5A
	return rand.NewChaCha8(seed)
}

// publisher is an in-memory PreKeySource holding one signed pre-key, one
// Kyber pre-key and a pool of one-time pre-keys, all starting at id 1.
type publisher struct {
	identity domain.IdentityKeyPair
	spk      domain.SignedPreKeyPair
	kpk      domain.KyberPreKeyPair

	mu   sync.Mutex
	otks map[domain.OneTimePreKeyID]domain.OneTimePreKeyPair
}

func newPublisher(t *testing.T, v domain.Version, oneTime int) *publisher {
	t.Helper()
	r := seeded(byte(v) + 100)

	id, err := pqxdh.GenerateIdentity(r)
	require.NoError(t, err)
	spk, err := pqxdh.GenerateSignedPreKey(id.Private, 1, r)
	require.NoError(t, err)
	kpk, err := pqxdh.GenerateKyberPreKey(id.Private, 1, v, r)
	require.NoError(t, err)
	otks, err := pqxdh.GenerateOneTimePreKeys(oneTime, 1, r)
	require.NoError(t, err)

	p := &publisher{identity: id, spk: spk, kpk: kpk, otks: map[domain.OneTimePreKeyID]domain.OneTimePreKeyPair{}}
	for _, k := range otks {
		p.otks[k.ID] = k
	}
	return p
}

// bundle returns the public view, including one-time pre-key otk if it is
// non-zero.
func (p *publisher) bundle(otk domain.OneTimePreKeyID) domain.KeyBundle {
	b := domain.KeyBundle{
		RegistrationID: 7,
		IdentityKey:    p.identity.Public,
		SignedPreKey: domain.SignedPreKeyPublic{
			ID: p.spk.ID, Public: p.spk.Public, Signature: append([]byte(nil), p.spk.Signature...),
		},
		KyberPreKey: domain.KyberPreKeyPublic{
			ID: p.kpk.ID, Version: p.kpk.Version,
			Public:    append([]byte(nil), p.kpk.Public...),
			Signature: append([]byte(nil), p.kpk.Signature...),
		},
	}
	if otk != 0 {
		p.mu.Lock()
		k := p.otks[otk]
		p.mu.Unlock()
		b.OneTimePreKey = &domain.OneTimePreKeyPublic{ID: k.ID, Public: k.Public}
	}
	return b
}

func (p *publisher) SignedPreKey(id domain.SignedPreKeyID) (domain.SignedPreKeyPair, bool, error) {
	if id != p.spk.ID {
		return domain.SignedPreKeyPair{}, false, nil
	}
	return p.spk, true, nil
}

func (p *publisher) KyberPreKey(id domain.KyberPreKeyID) (domain.KyberPreKeyPair, bool, error) {
	if id != p.kpk.ID {
		return domain.KyberPreKeyPair{}, false, nil
	}
	out := p.kpk
	out.Private = append([]byte(nil), p.kpk.Private...)
	return out, true, nil
}

func (p *publisher) ClaimOneTimePreKey(id domain.OneTimePreKeyID) (domain.OneTimePreKeyPair, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	k, ok := p.otks[id]
	if ok {
		delete(p.otks, id)
	}
	return k, ok, nil
}

func (p *publisher) has(id domain.OneTimePreKeyID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.otks[id]
	return ok
}

type replayMap struct {
	mu   sync.Mutex
	seen map[[32]byte]bool
}

func (g *replayMap) MarkSeen(d [32]byte) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.seen == nil {
		g.seen = map[[32]byte]bool{}
	}
	if g.seen[d] {
		return true, nil
	}
	g.seen[d] = true
	return false, nil
}

func (g *replayMap) Forget(d [32]byte) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.seen, d)
	return nil
}

func (g *replayMap) len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.seen)
}

// failingClaims makes every claim fail with err while err is set.
type failingClaims struct {
	*publisher
	err error
}

func (f *failingClaims) ClaimOneTimePreKey(id domain.OneTimePreKeyID) (domain.OneTimePreKeyPair, bool, error) {
	if f.err != nil {
		return domain.OneTimePreKeyPair{}, false, f.err
	}
	return f.publisher.ClaimOneTimePreKey(id)
}

func newAlice(t *testing.T) domain.IdentityKeyPair {
	t.Helper()
	id, err := pqxdh.GenerateIdentity(seeded(1))
	require.NoError(t, err)
	return id
}

// initiate runs a full initiator attempt and returns its session and wire bytes.
func initiate(t *testing.T, cfg pqxdh.Config, alice domain.IdentityKeyPair, b domain.KeyBundle, payload []byte) (*pqxdh.Session, []byte) {
	t.Helper()
	in := pqxdh.NewInitiator(cfg, alice, 42)
	sess, err := in.Derive(b)
	require.NoError(t, err)
	wire, err := in.Encode(payload)
	require.NoError(t, err)
	require.Equal(t, pqxdh.InitiatorDone, in.State())
	return sess, wire
}
