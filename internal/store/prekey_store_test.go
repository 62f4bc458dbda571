package store_test

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"pqxdh/internal/domain"
	"pqxdh/internal/store"
)

func oneTimePairs(start, n int) []domain.OneTimePreKeyPair {
	out := make([]domain.OneTimePreKeyPair, n)
	for i := range out {
		id := domain.OneTimePreKeyID(start + i)
		out[i] = domain.OneTimePreKeyPair{
			ID:      id,
			Private: domain.X25519Private{byte(id), 0xAA},
			Public:  domain.X25519Public{byte(id), 0xBB},
		}
	}
	return out
}

func TestPreKeyStore_SignedAndKyber(t *testing.T) {
	s := store.NewMemoryPreKeyStore()

	_, ok, err := s.SignedPreKey(1)
	require.NoError(t, err)
	require.False(t, ok)

	spk := domain.SignedPreKeyPair{ID: 1, Private: domain.X25519Private{9}, Public: domain.X25519Public{8}, Signature: []byte{1, 2, 3}}
	require.NoError(t, s.SaveSignedPreKey(spk))
	kpk := domain.KyberPreKeyPair{ID: 1, Version: 4, Private: []byte{5, 5}, Public: []byte{6, 6}, Signature: []byte{7}}
	require.NoError(t, s.SaveKyberPreKey(kpk))

	gotS, ok, err := s.SignedPreKey(1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, spk, gotS)

	gotK, ok, err := s.KyberPreKey(1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, kpk, gotK)

	// Returned key material belongs to the caller.
	gotK.Private[0] = 0
	again, _, err := s.KyberPreKey(1)
	require.NoError(t, err)
	require.Equal(t, byte(5), again.Private[0])

	_, ok, err = s.KyberPreKey(2)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestPreKeyStore_Counters(t *testing.T) {
	s := store.NewMemoryPreKeyStore()
	c, err := s.Counters()
	require.NoError(t, err)
	require.Zero(t, c)

	c = domain.PreKeyCounters{NextSignedPreKeyID: 3, NextKyberPreKeyID: 2, NextOneTimePreKeyID: 101, CurrentSignedID: 2, CurrentKyberID: 1}
	require.NoError(t, s.SaveCounters(c))
	got, err := s.Counters()
	require.NoError(t, err)
	require.Equal(t, c, got)
}

func TestPreKeyStore_OneTimeClaimOnce(t *testing.T) {
	s := store.NewMemoryPreKeyStore()
	require.NoError(t, s.PutOneTimePreKeys(oneTimePairs(1, 3)))

	pubs, err := s.OneTimePreKeyPublics()
	require.NoError(t, err)
	require.Len(t, pubs, 3)
	require.Equal(t, domain.OneTimePreKeyID(1), pubs[0].ID)
	require.Equal(t, domain.X25519Public{2, 0xBB}, pubs[1].Public)

	pair, ok, err := s.ClaimOneTimePreKey(2)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, domain.X25519Private{2, 0xAA}, pair.Private)

	_, ok, err = s.ClaimOneTimePreKey(2)
	require.NoError(t, err)
	require.False(t, ok)

	pubs, err = s.OneTimePreKeyPublics()
	require.NoError(t, err)
	require.Equal(t, []domain.OneTimePreKeyPublic{
		{ID: 1, Public: domain.X25519Public{1, 0xBB}},
		{ID: 3, Public: domain.X25519Public{3, 0xBB}},
	}, pubs)
}

func TestPreKeyStore_ConcurrentClaims(t *testing.T) {
	s := store.NewMemoryPreKeyStore()
	require.NoError(t, s.PutOneTimePreKeys(oneTimePairs(1, 4)))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins = map[domain.OneTimePreKeyID]int{}
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(id domain.OneTimePreKeyID) {
			defer wg.Done()
			_, ok, err := s.ClaimOneTimePreKey(id)
			if err == nil && ok {
				mu.Lock()
				wins[id]++
				mu.Unlock()
			}
		}(domain.OneTimePreKeyID(i%4 + 1))
	}
	wg.Wait()

	require.Equal(t, map[domain.OneTimePreKeyID]int{1: 1, 2: 1, 3: 1, 4: 1}, wins)
	pubs, err := s.OneTimePreKeyPublics()
	require.NoError(t, err)
	require.Empty(t, pubs)
}

func TestPreKeyStore_FilePersists(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "prekeys")

	s, err := store.OpenPreKeyStore(dir, "hunter2", nil)
	require.NoError(t, err)
	require.NoError(t, s.SaveSignedPreKey(domain.SignedPreKeyPair{ID: 7, Public: domain.X25519Public{7}}))
	require.NoError(t, s.PutOneTimePreKeys(oneTimePairs(10, 2)))

	reopened, err := store.OpenPreKeyStore(dir, "hunter2", nil)
	require.NoError(t, err)
	got, ok, err := reopened.SignedPreKey(7)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, domain.X25519Public{7}, got.Public)

	pubs, err := reopened.OneTimePreKeyPublics()
	require.NoError(t, err)
	require.Len(t, pubs, 2)
}

func TestMemoryReplayGuard(t *testing.T) {
	g := store.NewMemoryReplayGuard()
	d := [32]byte{1}

	seen, err := g.MarkSeen(d)
	require.NoError(t, err)
	require.False(t, seen)

	seen, err = g.MarkSeen(d)
	require.NoError(t, err)
	require.True(t, seen)
	require.Equal(t, 1, g.Len())

	require.NoError(t, g.Forget(d))
	seen, err = g.MarkSeen(d)
	require.NoError(t, err)
	require.False(t, seen)
}

func TestKVReplayGuard_SurvivesReopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "prekeys")
	d := [32]byte{0x42}

	first, err := store.OpenPreKeyStore(dir, "Correct-Horse-9", nil)
	require.NoError(t, err)
	seen, err := first.ReplayGuard().MarkSeen(d)
	require.NoError(t, err)
	require.False(t, seen)

	second, err := store.OpenPreKeyStore(dir, "Correct-Horse-9", nil)
	require.NoError(t, err)
	g := second.ReplayGuard()
	seen, err = g.MarkSeen(d)
	require.NoError(t, err)
	require.True(t, seen)

	require.NoError(t, g.Forget(d))
	require.NoError(t, g.Forget(d))
	seen, err = g.MarkSeen(d)
	require.NoError(t, err)
	require.False(t, seen)
}
