package directory

import (
	"context"
	"slices"
	"sync"

	"pqxdh/internal/domain"
)

// MemoryRepository keeps everything in process memory; it is lost on exit.
type MemoryRepository struct {
	mu      sync.Mutex
	bundles map[string]*domain.PublishedBundle
	queues  map[string][]domain.Envelope
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		bundles: make(map[string]*domain.PublishedBundle),
		queues:  make(map[string][]domain.Envelope),
	}
}

func (m *MemoryRepository) PutBundle(_ context.Context, b domain.PublishedBundle) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.bundles[b.Username]
	if !ok || cur.IdentityKey != b.IdentityKey {
		cp := b
		cp.OneTimePreKeys = slices.Clone(b.OneTimePreKeys)
		m.bundles[b.Username] = &cp
		return nil
	}
	cur.RegistrationID = b.RegistrationID
	cur.SignedPreKey = b.SignedPreKey
	cur.KyberPreKey = b.KyberPreKey
	cur.OneTimePreKeys = mergeOneTime(cur.OneTimePreKeys, b.OneTimePreKeys)
	return nil
}

func (m *MemoryRepository) TakeBundle(_ context.Context, username string) (domain.KeyBundle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.bundles[username]
	if !ok {
		return domain.KeyBundle{}, ErrNotFound
	}
	return b.Take(), nil
}

func (m *MemoryRepository) Enqueue(_ context.Context, env domain.Envelope) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queues[env.To] = append(m.queues[env.To], env)
	return nil
}

func (m *MemoryRepository) Pending(_ context.Context, username string, limit int) ([]domain.Envelope, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	q := m.queues[username]
	if limit > 0 && limit < len(q) {
		q = q[:limit]
	}
	return slices.Clone(q), nil
}

func (m *MemoryRepository) Ack(_ context.Context, username string, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.queues[username] = slices.DeleteFunc(m.queues[username], func(e domain.Envelope) bool {
		return slices.Contains(ids, e.ID)
	})
	return nil
}

// mergeOneTime appends the keys of add whose ids are not already in cur.
func mergeOneTime(cur, add []domain.OneTimePreKeyPublic) []domain.OneTimePreKeyPublic {
	for _, k := range add {
		if !slices.ContainsFunc(cur, func(c domain.OneTimePreKeyPublic) bool { return c.ID == k.ID }) {
			cur = append(cur, k)
		}
	}
	return cur
}

var _ Repository = (*MemoryRepository)(nil)
