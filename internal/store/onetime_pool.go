package store

import (
	"slices"
	"strconv"
	"sync"

	"github.com/pkg/errors"
	"gitlab.com/elixxir/ekv"

	"pqxdh/internal/domain"
)

const (
	oneTimePreKeyPrefix = "opk-"
	oneTimeIndexKey     = "opk-index"
)

// KVOneTimePool keeps one-time pre-keys in an ekv.KeyValue, one entry per key
// plus an index of unclaimed ids. Claims are serialised by a mutex, so the
// pool is exactly-once within a process but must not be shared by several.
type KVOneTimePool struct {
	kv ekv.KeyValue
	mu sync.Mutex
}

// NewKVOneTimePool wraps kv.
func NewKVOneTimePool(kv ekv.KeyValue) *KVOneTimePool {
	return &KVOneTimePool{kv: kv}
}

// PutOneTimePreKeys stores pairs. An id already present is overwritten.
func (p *KVOneTimePool) PutOneTimePreKeys(pairs []domain.OneTimePreKeyPair) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	index, err := p.index()
	if err != nil {
		return err
	}
	for _, pair := range pairs {
		if err := p.kv.SetInterface(oneTimeKey(pair.ID), pair); err != nil {
			return errors.Wrapf(err, "save one-time pre-key %d", pair.ID)
		}
		if !slices.Contains(index, pair.ID) {
			index = append(index, pair.ID)
		}
	}
	return p.saveIndex(index)
}

// ClaimOneTimePreKey removes and returns the pair with the given id.
func (p *KVOneTimePool) ClaimOneTimePreKey(id domain.OneTimePreKeyID) (domain.OneTimePreKeyPair, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var pair domain.OneTimePreKeyPair
	ok, err := load(p.kv, oneTimeKey(id), &pair)
	if err != nil || !ok {
		return domain.OneTimePreKeyPair{}, false, errors.WithMessagef(err, "claim one-time pre-key %d", id)
	}
	if err := p.kv.Delete(oneTimeKey(id)); err != nil {
		return domain.OneTimePreKeyPair{}, false, errors.Wrapf(err, "delete one-time pre-key %d", id)
	}

	index, err := p.index()
	if err != nil {
		return domain.OneTimePreKeyPair{}, false, err
	}
	index = slices.DeleteFunc(index, func(x domain.OneTimePreKeyID) bool { return x == id })
	if err := p.saveIndex(index); err != nil {
		return domain.OneTimePreKeyPair{}, false, err
	}
	return pair, true, nil
}

// OneTimePreKeyPublics lists the unclaimed public halves in id order.
func (p *KVOneTimePool) OneTimePreKeyPublics() ([]domain.OneTimePreKeyPublic, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	index, err := p.index()
	if err != nil {
		return nil, err
	}
	slices.Sort(index)

	out := make([]domain.OneTimePreKeyPublic, 0, len(index))
	for _, id := range index {
		var pair domain.OneTimePreKeyPair
		ok, err := load(p.kv, oneTimeKey(id), &pair)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, domain.OneTimePreKeyPublic{ID: pair.ID, Public: pair.Public})
		}
	}
	return out, nil
}

func (p *KVOneTimePool) index() ([]domain.OneTimePreKeyID, error) {
	var index []domain.OneTimePreKeyID
	if _, err := load(p.kv, oneTimeIndexKey, &index); err != nil {
		return nil, errors.WithMessage(err, "one-time pre-key index")
	}
	return index, nil
}

func (p *KVOneTimePool) saveIndex(index []domain.OneTimePreKeyID) error {
	return errors.Wrap(p.kv.SetInterface(oneTimeIndexKey, index), "save one-time pre-key index")
}

func oneTimeKey(id domain.OneTimePreKeyID) string {
	return oneTimePreKeyPrefix + strconv.FormatUint(uint64(id), 10)
}

var _ domain.OneTimePreKeyPool = (*KVOneTimePool)(nil)
