package app

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"pqxdh/internal/directory"
	"pqxdh/internal/domain"
	identitysvc "pqxdh/internal/services/identity"
	messagesvc "pqxdh/internal/services/message"
	prekeysvc "pqxdh/internal/services/prekey"
	sessionsvc "pqxdh/internal/services/session"
	"pqxdh/internal/store"
)

const (
	prekeyDir = "prekeys"
	replayTTL = 30 * 24 * time.Hour
)

// Wire bundles all stores, services, and clients for the CLI.
type Wire struct {
	Config   Config
	Log      *zap.Logger
	Identity domain.IdentityService
	Profile  domain.ProfileStore
	PreKeys  domain.PreKeyService
	Messages domain.MessageService
	Sessions *sessionsvc.Service
	Dir      domain.Directory

	closers []func() error
}

// NewWire constructs the dependency graph from cfg. The pre-key store is
// encrypted under cfg.Passphrase, which must be set.
func NewWire(cfg Config, log *zap.Logger) (*Wire, error) {
	if cfg.Passphrase == "" {
		return nil, errors.New("passphrase required (--passphrase or PQXDH_PASSPHRASE)")
	}
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(cfg.Home, 0o700); err != nil {
		return nil, errors.Wrap(err, "create home")
	}
	pc, err := cfg.Protocol()
	if err != nil {
		return nil, err
	}
	pc.Logger = log

	w := &Wire{Config: cfg, Log: log}

	var pool domain.OneTimePreKeyPool
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		ctx, cancel := context.WithTimeout(context.Background(), store.DefaultRedisTimeout)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, errors.Wrapf(err, "redis %s", cfg.RedisAddr)
		}
		w.closers = append(w.closers, rdb.Close)

		pool = store.NewRedisOneTimePool(rdb, cfg.RedisPrefix)
		pc.ReplayGuard = store.NewRedisReplayGuard(rdb, cfg.RedisPrefix, replayTTL)
		log.Debug("using redis one-time pool", zap.String("addr", cfg.RedisAddr))
	}

	identityStore := store.NewIdentityFileStore(cfg.Home)
	prekeyStore, err := store.OpenPreKeyStore(filepath.Join(cfg.Home, prekeyDir), cfg.Passphrase, pool)
	if err != nil {
		_ = w.Close()
		return nil, err
	}
	if pc.ReplayGuard == nil {
		pc.ReplayGuard = prekeyStore.ReplayGuard()
	}

	w.Dir = directory.NewClient(cfg.Directory)
	w.Profile = store.NewProfileFileStore(cfg.Home)
	w.Identity = identitysvc.New(identityStore, nil)
	w.PreKeys = prekeysvc.New(identityStore, prekeyStore, cfg.Version, nil)
	w.Sessions = sessionsvc.New(w.Dir, prekeyStore, pc)
	w.Messages = messagesvc.New(identityStore, w.Sessions, w.Dir, log)
	return w, nil
}

// Close releases network clients.
func (w *Wire) Close() error {
	var first error
	for _, c := range w.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
