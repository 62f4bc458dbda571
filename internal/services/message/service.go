package message

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"pqxdh/internal/domain"
	"pqxdh/internal/protocol/initpayload"
	"pqxdh/internal/protocol/pqxdh"
	"pqxdh/internal/services/session"
)

// Service sends and receives messages through the directory.
type Service struct {
	ids      domain.IdentityStore
	sessions *session.Service
	dir      domain.Directory
	log      *zap.Logger
	now      func() time.Time
}

// New constructs a message service. A nil logger disables logging.
func New(ids domain.IdentityStore, sessions *session.Service, dir domain.Directory, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{ids: ids, sessions: sessions, dir: dir, log: log.Named("message"), now: time.Now}
}

// Send establishes a new session with to and delivers plaintext in the
// handshake payload.
func (s *Service) Send(ctx context.Context, passphrase, from, to string, plaintext []byte) error {
	acct, err := s.ids.LoadAccount(passphrase)
	if err != nil {
		return err
	}

	wire, sess, err := s.sessions.Initiate(ctx, acct, to, func(sess *pqxdh.Session) ([]byte, error) {
		return initpayload.Seal(sess.Secret, sess.AssociatedData, plaintext)
	})
	if err != nil {
		return err
	}
	defer sess.Wipe()

	env := domain.Envelope{
		From:      from,
		To:        to,
		Handshake: wire,
		Timestamp: s.now().Unix(),
	}
	if err := s.dir.SendEnvelope(ctx, env); err != nil {
		return errors.WithMessagef(err, "send to %s", to)
	}
	s.log.Debug("message sent",
		zap.String("to", to),
		zap.Uint32("signed_pre_key_id", uint32(sess.SignedPreKeyID)),
		zap.Bool("one_time_pre_key", sess.OneTimePreKeyID != nil),
	)
	return nil
}

// Receive fetches up to limit envelopes for me and processes them in order.
//
// A handshake that fails for protocol reasons is logged, acknowledged and
// skipped. A degraded session is reported with Degraded set and no
// plaintext, since its secret cannot match the sender's. Any other error
// stops processing; envelopes not yet handled stay queued.
func (s *Service) Receive(ctx context.Context, passphrase, me string, limit int) ([]domain.DecryptedMessage, error) {
	acct, err := s.ids.LoadAccount(passphrase)
	if err != nil {
		return nil, err
	}
	envs, err := s.dir.FetchEnvelopes(ctx, me, limit)
	if err != nil {
		return nil, err
	}

	out := make([]domain.DecryptedMessage, 0, len(envs))
	handled := make([]string, 0, len(envs))
	var stop error
	for _, env := range envs {
		msg, ok, err := s.receiveOne(acct, env)
		if err != nil {
			stop = err
			break
		}
		handled = append(handled, env.ID)
		if ok {
			out = append(out, msg)
		}
	}

	if err := s.dir.AckEnvelopes(ctx, me, handled); err != nil {
		return out, errors.WithMessagef(err, "ack %d envelopes", len(handled))
	}
	return out, stop
}

// receiveOne reports ok=false for envelopes that were dropped.
func (s *Service) receiveOne(acct domain.Account, env domain.Envelope) (domain.DecryptedMessage, bool, error) {
	log := s.log.With(zap.String("id", env.ID), zap.String("from", env.From))

	sess, err := s.sessions.Respond(acct, env.Handshake)
	switch kind := pqxdh.KindOf(err); {
	case err == nil:
	case kind == pqxdh.KindUnknown:
		return domain.DecryptedMessage{}, false, errors.WithMessagef(err, "envelope %s", env.ID)
	default:
		log.Warn("handshake rejected", zap.Stringer("kind", kind), zap.Error(err))
		return domain.DecryptedMessage{}, false, nil
	}
	defer sess.Wipe()

	msg := domain.DecryptedMessage{
		ID:        env.ID,
		From:      env.From,
		Timestamp: env.Timestamp,
		Degraded:  sess.Degraded,
	}
	if sess.Degraded {
		log.Warn("degraded session; payload cannot be opened")
		return msg, true, nil
	}

	pt, err := initpayload.Open(sess.Secret, sess.AssociatedData, sess.Payload)
	if err != nil {
		log.Warn("payload rejected", zap.Error(err))
		return domain.DecryptedMessage{}, false, nil
	}
	msg.Plaintext = pt
	return msg, true, nil
}

var _ domain.MessageService = (*Service)(nil)
