package store

import (
	"context"
	"encoding/json"
	"slices"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"pqxdh/internal/domain"
	"pqxdh/internal/protocol/pqxdh"
)

// DefaultRedisTimeout bounds every Redis round trip made by this package.
const DefaultRedisTimeout = 5 * time.Second

// RedisOneTimePool shares one-time pre-keys between responder processes. Each
// pair is stored under its own key and its id in a set; GETDEL makes a claim
// atomic across clients.
type RedisOneTimePool struct {
	rdb     redis.UniversalClient
	prefix  string
	timeout time.Duration
}

// NewRedisOneTimePool keys everything under prefix, e.g. "pqxdh:alice:".
func NewRedisOneTimePool(rdb redis.UniversalClient, prefix string) *RedisOneTimePool {
	return &RedisOneTimePool{rdb: rdb, prefix: prefix, timeout: DefaultRedisTimeout}
}

func (p *RedisOneTimePool) PutOneTimePreKeys(pairs []domain.OneTimePreKeyPair) error {
	if len(pairs) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	_, err := p.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, pair := range pairs {
			b, err := json.Marshal(pair)
			if err != nil {
				return errors.Wrapf(err, "encode one-time pre-key %d", pair.ID)
			}
			pipe.Set(ctx, p.key(pair.ID), b, 0)
			pipe.SAdd(ctx, p.indexKey(), uint64(pair.ID))
		}
		return nil
	})
	return errors.Wrap(err, "redis: put one-time pre-keys")
}

func (p *RedisOneTimePool) ClaimOneTimePreKey(id domain.OneTimePreKeyID) (domain.OneTimePreKeyPair, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	// GETDEL and SREM run in one MULTI so the index never lists a claimed key.
	var get *redis.StringCmd
	_, err := p.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		get = pipe.GetDel(ctx, p.key(id))
		pipe.SRem(ctx, p.indexKey(), uint64(id))
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return domain.OneTimePreKeyPair{}, false, errors.Wrapf(err, "redis: claim one-time pre-key %d", id)
	}
	b, err := get.Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.OneTimePreKeyPair{}, false, nil
	}
	if err != nil {
		return domain.OneTimePreKeyPair{}, false, errors.Wrapf(err, "redis: claim one-time pre-key %d", id)
	}

	var pair domain.OneTimePreKeyPair
	if err := json.Unmarshal(b, &pair); err != nil {
		return domain.OneTimePreKeyPair{}, false, errors.Wrapf(err, "decode one-time pre-key %d", id)
	}
	return pair, true, nil
}

func (p *RedisOneTimePool) OneTimePreKeyPublics() ([]domain.OneTimePreKeyPublic, error) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	members, err := p.rdb.SMembers(ctx, p.indexKey()).Result()
	if err != nil {
		return nil, errors.Wrap(err, "redis: list one-time pre-keys")
	}
	ids := make([]domain.OneTimePreKeyID, 0, len(members))
	for _, m := range members {
		v, err := strconv.ParseUint(m, 10, 32)
		if err != nil {
			return nil, errors.Wrapf(err, "redis: bad index entry %q", m)
		}
		ids = append(ids, domain.OneTimePreKeyID(v))
	}
	if len(ids) == 0 {
		return nil, nil
	}
	slices.Sort(ids)

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = p.key(id)
	}
	vals, err := p.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, errors.Wrap(err, "redis: load one-time pre-keys")
	}

	out := make([]domain.OneTimePreKeyPublic, 0, len(vals))
	for _, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue // claimed between SMEMBERS and MGET
		}
		var pair domain.OneTimePreKeyPair
		if err := json.Unmarshal([]byte(s), &pair); err != nil {
			return nil, errors.Wrap(err, "decode one-time pre-key")
		}
		out = append(out, domain.OneTimePreKeyPublic{ID: pair.ID, Public: pair.Public})
	}
	return out, nil
}

func (p *RedisOneTimePool) key(id domain.OneTimePreKeyID) string {
	return p.prefix + oneTimeKey(id)
}

func (p *RedisOneTimePool) indexKey() string { return p.prefix + oneTimeIndexKey }

// RedisReplayGuard records handshake digests with SETNX so that a message
// is accepted once across every responder sharing the Redis instance.
// Entries expire after ttl; zero keeps them forever.
type RedisReplayGuard struct {
	rdb     redis.UniversalClient
	prefix  string
	ttl     time.Duration
	timeout time.Duration
}

func NewRedisReplayGuard(rdb redis.UniversalClient, prefix string, ttl time.Duration) *RedisReplayGuard {
	return &RedisReplayGuard{rdb: rdb, prefix: prefix, ttl: ttl, timeout: DefaultRedisTimeout}
}

func (g *RedisReplayGuard) MarkSeen(d [32]byte) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
	defer cancel()

	added, err := g.rdb.SetNX(ctx, g.key(d), 1, g.ttl).Result()
	if err != nil {
		return false, errors.Wrap(err, "redis: replay guard")
	}
	return !added, nil
}

func (g *RedisReplayGuard) Forget(d [32]byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
	defer cancel()
	return errors.Wrap(g.rdb.Del(ctx, g.key(d)).Err(), "redis: replay guard forget")
}

func (g *RedisReplayGuard) key(d [32]byte) string { return g.prefix + replayKey(d) }

var (
	_ domain.OneTimePreKeyPool = (*RedisOneTimePool)(nil)
	_ pqxdh.ReplayGuard        = (*RedisReplayGuard)(nil)
)
