package session_test

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"pqxdh/internal/domain"
	"pqxdh/internal/protocol/pqxdh"
	"pqxdh/internal/services/identity"
	"pqxdh/internal/services/prekey"
	"pqxdh/internal/services/session"
	"pqxdh/internal/store"
)

const pass = "Correct-Horse-9"

// bundleDir serves one published bundle; the mailbox methods are unused.
type bundleDir struct {
	domain.Directory
	bundles map[string]*domain.PublishedBundle
}

func (d *bundleDir) FetchBundle(_ context.Context, user string) (domain.KeyBundle, error) {
	b, ok := d.bundles[user]
	if !ok {
		return domain.KeyBundle{}, errors.New("no such user")
	}
	return b.Take(), nil
}

func account(t *testing.T, ids domain.IdentityStore, r *rand.ChaCha8) domain.Account {
	t.Helper()
	acct, _, err := identity.New(ids, r).Generate(pass)
	require.NoError(t, err)
	return acct
}

func TestInitiateRespond(t *testing.T) {
	r := rand.NewChaCha8([32]byte{3})
	cfg := pqxdh.DefaultConfig()
	cfg.Rand = r

	bobIDs := store.NewIdentityFileStore(t.TempDir())
	bob := account(t, bobIDs, r)
	keys := store.NewMemoryPreKeyStore()
	pb, err := prekey.New(bobIDs, keys, pqxdh.DefaultVersion, r).GenerateAndStore(pass, 1)
	require.NoError(t, err)
	dir := &bundleDir{bundles: map[string]*domain.PublishedBundle{"bob": &pb}}

	alice := account(t, store.NewIdentityFileStore(t.TempDir()), r)
	svc := session.New(dir, nil, cfg)

	var seen []byte
	wire, sent, err := svc.Initiate(context.Background(), alice, "bob", func(s *pqxdh.Session) ([]byte, error) {
		seen = append([]byte(nil), s.Secret...)
		return []byte("payload"), nil
	})
	require.NoError(t, err)
	defer sent.Wipe()
	require.Equal(t, []byte(sent.Secret), seen)

	got, err := session.New(dir, keys, cfg).Respond(bob, wire)
	require.NoError(t, err)
	defer got.Wipe()
	require.Equal(t, sent.Secret, got.Secret)
	require.Equal(t, []byte("payload"), got.Payload)
	require.False(t, got.Degraded)
}

func TestInitiate_Errors(t *testing.T) {
	r := rand.NewChaCha8([32]byte{4})
	bobIDs := store.NewIdentityFileStore(t.TempDir())
	account(t, bobIDs, r)
	pb, err := prekey.New(bobIDs, store.NewMemoryPreKeyStore(), pqxdh.DefaultVersion, r).GenerateAndStore(pass, 0)
	require.NoError(t, err)
	dir := &bundleDir{bundles: map[string]*domain.PublishedBundle{"bob": &pb}}

	alice := account(t, store.NewIdentityFileStore(t.TempDir()), r)
	svc := session.New(dir, nil, pqxdh.DefaultConfig())

	_, _, err = svc.Initiate(context.Background(), alice, "carol", nil)
	require.ErrorContains(t, err, "fetch bundle for carol")

	boom := errors.New("boom")
	_, _, err = svc.Initiate(context.Background(), alice, "bob", func(*pqxdh.Session) ([]byte, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)

	_, err = svc.Respond(alice, []byte{4})
	require.Error(t, err)
}
