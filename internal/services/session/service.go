package session

import (
	"context"

	"github.com/pkg/errors"

	"pqxdh/internal/domain"
	"pqxdh/internal/protocol/pqxdh"
)

// PayloadFunc produces the payload for a freshly derived session, typically
// by sealing the first application message under its secret.
type PayloadFunc func(*pqxdh.Session) ([]byte, error)

// Service runs handshakes for the local account.
type Service struct {
	dir  domain.Directory
	keys domain.PreKeyStore
	cfg  pqxdh.Config
}

// New returns a session service. keys may be nil for a party that only initiates.
func New(dir domain.Directory, keys domain.PreKeyStore, cfg pqxdh.Config) *Service {
	return &Service{dir: dir, keys: keys, cfg: cfg}
}

// Initiate runs the initiator side against peer's published bundle and
// returns the encoded handshake message with the session it established.
// The caller owns the session and must Wipe it.
func (s *Service) Initiate(ctx context.Context, acct domain.Account, peer string, payload PayloadFunc) ([]byte, *pqxdh.Session, error) {
	bundle, err := s.dir.FetchBundle(ctx, peer)
	if err != nil {
		return nil, nil, errors.WithMessagef(err, "fetch bundle for %s", peer)
	}

	in := pqxdh.NewInitiator(s.cfg, acct.Identity, acct.RegistrationID)
	sess, err := in.Derive(bundle)
	if err != nil {
		return nil, nil, err
	}

	var p []byte
	if payload != nil {
		if p, err = payload(sess); err != nil {
			sess.Wipe()
			return nil, nil, errors.WithMessage(err, "build payload")
		}
	}
	wire, err := in.Encode(p)
	if err != nil {
		sess.Wipe()
		return nil, nil, err
	}
	return wire, sess, nil
}

// Respond runs the publisher side for one received handshake message.
func (s *Service) Respond(acct domain.Account, wire []byte) (*pqxdh.Session, error) {
	if s.keys == nil {
		return nil, errors.New("session: no pre-key store configured")
	}
	return pqxdh.NewResponder(s.cfg, acct.Identity, s.keys).Respond(wire)
}
