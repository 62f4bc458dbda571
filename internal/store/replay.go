package store

import (
	"encoding/hex"
	"sync"
	"time"

	"github.com/pkg/errors"
	"gitlab.com/elixxir/ekv"

	"pqxdh/internal/protocol/pqxdh"
)

const replayPrefix = "replay-"

// MemoryReplayGuard remembers handshake digests for the life of the process.
// It only protects a long-running responder; the CLI uses KVReplayGuard.
type MemoryReplayGuard struct {
	mu   sync.Mutex
	seen map[[32]byte]struct{}
}

func NewMemoryReplayGuard() *MemoryReplayGuard {
	return &MemoryReplayGuard{seen: make(map[[32]byte]struct{})}
}

// MarkSeen records d and reports whether it was already present.
func (g *MemoryReplayGuard) MarkSeen(d [32]byte) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.seen[d]; ok {
		return true, nil
	}
	g.seen[d] = struct{}{}
	return false, nil
}

func (g *MemoryReplayGuard) Forget(d [32]byte) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.seen, d)
	return nil
}

// Len returns the number of digests recorded.
func (g *MemoryReplayGuard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.seen)
}

// KVReplayGuard records handshake digests in an ekv.KeyValue, so a message
// re-posted to the directory is refused by every later run against the same
// store. Entries are kept with the time they were first seen.
type KVReplayGuard struct {
	kv  ekv.KeyValue
	mu  sync.Mutex
	now func() time.Time
}

type replayEntry struct {
	Seen time.Time `json:"seen"`
}

func NewKVReplayGuard(kv ekv.KeyValue) *KVReplayGuard {
	return &KVReplayGuard{kv: kv, now: time.Now}
}

func (g *KVReplayGuard) MarkSeen(d [32]byte) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var e replayEntry
	ok, err := load(g.kv, replayKey(d), &e)
	if err != nil {
		return false, errors.WithMessage(err, "replay guard")
	}
	if ok {
		return true, nil
	}
	e.Seen = g.now().UTC()
	return false, errors.Wrap(g.kv.SetInterface(replayKey(d), e), "replay guard: record")
}

func (g *KVReplayGuard) Forget(d [32]byte) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.kv.Delete(replayKey(d)); err != nil && ekv.Exists(err) {
		return errors.Wrap(err, "replay guard: forget")
	}
	return nil
}

func replayKey(d [32]byte) string { return replayPrefix + hex.EncodeToString(d[:]) }

var (
	_ pqxdh.ReplayGuard = (*MemoryReplayGuard)(nil)
	_ pqxdh.ReplayGuard = (*KVReplayGuard)(nil)
)
