package pqxdh

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"pqxdh/internal/domain"
	"pqxdh/internal/util/memzero"
)

// PreKeySource resolves the private halves a handshake message references.
// ClaimOneTimePreKey must remove the key atomically: of any number of
// concurrent claims for one id exactly one returns ok. Returned key material
// belongs to the caller, which wipes it after use.
type PreKeySource interface {
	SignedPreKey(id domain.SignedPreKeyID) (domain.SignedPreKeyPair, bool, error)
	KyberPreKey(id domain.KyberPreKeyID) (domain.KyberPreKeyPair, bool, error)
	ClaimOneTimePreKey(id domain.OneTimePreKeyID) (domain.OneTimePreKeyPair, bool, error)
}

// Responder runs the publisher side of one handshake attempt:
//
//	Start -> MessageDecoded -> KeysResolved -> SecretDerived -> Done
type Responder struct {
	cfg      Config
	log      *zap.Logger
	identity domain.IdentityKeyPair
	keys     PreKeySource

	state ResponderState
}

// NewResponder prepares an attempt for the publisher identity.
func NewResponder(cfg Config, identity domain.IdentityKeyPair, keys PreKeySource) *Responder {
	cfg = cfg.withDefaults()
	return &Responder{
		cfg:      cfg,
		log:      cfg.Logger.Named("responder"),
		identity: identity,
		keys:     keys,
	}
}

// State returns the current state.
func (r *Responder) State() ResponderState { return r.state }

// Respond decodes wire, resolves and claims the referenced pre-keys, and
// derives the secret. No partial session is returned on failure.
func (r *Responder) Respond(wire []byte) (*Session, error) {
	if r.state != ResponderStart {
		return nil, errors.WithMessagef(ErrOutOfOrder, "respond from %s", r.state)
	}

	msg, err := Decode(wire)
	if err != nil {
		r.state = ResponderMalformedMessage
		r.log.Debug("message rejected", zap.Error(err))
		return nil, err
	}
	r.state = ResponderMessageDecoded
	suite, _ := LookupSuite(msg.Version)

	log := r.log.With(
		zap.Stringer("peer", fingerprint(msg.IdentityKey)),
		zap.Uint32("registration_id", uint32(msg.RegistrationID)),
		zap.Uint8("version", uint8(msg.Version)),
	)

	keys, degraded, err := r.resolve(log, msg)
	if err != nil {
		switch KindOf(err) {
		case KindDerivationFailed:
			r.state = ResponderDerivationFailed
		case KindPreKeyUnavailable:
			r.state = ResponderPreKeyUnavailable
		default:
			r.state = ResponderStoreFailed
		}
		log.Warn("handshake rejected", zap.Stringer("state", r.state), zap.Error(err))
		return nil, err
	}
	r.state = ResponderKeysResolved

	secret, err := DerivePublisher(suite, keys, msg, r.cfg.OutputLength)
	keys.Wipe()
	if err != nil {
		r.state = ResponderDerivationFailed
		log.Warn("derivation failed", zap.Error(err))
		return nil, err
	}
	r.state = ResponderSecretDerived

	sess := &Session{
		Version:         msg.Version,
		RegistrationID:  msg.RegistrationID,
		LocalIdentity:   r.identity.Public,
		PeerIdentity:    msg.IdentityKey,
		Secret:          secret,
		AssociatedData:  AssociatedData(msg.IdentityKey, r.identity.Public),
		SignedPreKeyID:  msg.SignedPreKeyID,
		KyberPreKeyID:   msg.KyberPreKeyID,
		OneTimePreKeyID: msg.OneTimePreKeyID,
		Degraded:        degraded,
		Payload:         msg.Payload,
	}
	r.state = ResponderDone
	log.Info("handshake completed", zap.Bool("degraded", degraded))
	return sess, nil
}

// resolve loads the signed and Kyber pre-keys, checks the initiator's public
// keys, consults the replay guard and finally claims the one-time pre-key.
// Everything that can reject the message runs before the claim, so a failing
// message does not burn a one-time key. Store failures are returned as
// ErrStore without a kind and leave no digest recorded.
func (r *Responder) resolve(log *zap.Logger, msg *HandshakeMessage) (PublisherKeys, bool, error) {
	const op = "resolve pre-keys"

	spk, ok, err := r.keys.SignedPreKey(msg.SignedPreKeyID)
	if err != nil {
		return PublisherKeys{}, false, storeFailure(op, errors.WithMessagef(err, "signed pre-key %d", msg.SignedPreKeyID))
	}
	if !ok {
		return PublisherKeys{}, false, unavailable(op, errors.Errorf("signed pre-key %d not found", msg.SignedPreKeyID))
	}

	kpk, ok, err := r.keys.KyberPreKey(msg.KyberPreKeyID)
	if err != nil {
		memzero.Zero(spk.Private[:])
		return PublisherKeys{}, false, storeFailure(op, errors.WithMessagef(err, "kyber pre-key %d", msg.KyberPreKeyID))
	}
	keys := PublisherKeys{
		Identity:     r.identity.Private,
		SignedPreKey: spk.Private,
		KyberPreKey:  kpk.Private,
	}
	if !ok {
		keys.Wipe()
		return PublisherKeys{}, false, unavailable(op, errors.Errorf("kyber pre-key %d not found", msg.KyberPreKeyID))
	}
	if kpk.Version != msg.Version {
		keys.Wipe()
		return PublisherKeys{}, false, unavailable(op, errors.Errorf(
			"kyber pre-key %d is version %d, message is version %d", kpk.ID, kpk.Version, msg.Version))
	}

	// DH1 and DH3 reject a low-order identity or ephemeral key. A low-order
	// ephemeral would fail DH4 too.
	if err := checkPeerKeys(keys.SignedPreKey, msg); err != nil {
		keys.Wipe()
		return PublisherKeys{}, false, derivationFailed(op, err)
	}

	digest := msg.Digest()
	if r.cfg.ReplayGuard != nil {
		seen, err := r.cfg.ReplayGuard.MarkSeen(digest)
		if err != nil {
			keys.Wipe()
			return PublisherKeys{}, false, storeFailure(op, errors.WithMessage(err, "replay guard"))
		}
		if seen {
			keys.Wipe()
			return PublisherKeys{}, false, unavailable(op, ErrReplayedMessage)
		}
	}

	if msg.OneTimePreKeyID == nil {
		return keys, false, nil
	}

	id := *msg.OneTimePreKeyID
	otk, ok, err := r.keys.ClaimOneTimePreKey(id)
	switch {
	case err != nil:
		keys.Wipe()
		r.forget(log, digest)
		return PublisherKeys{}, false, storeFailure(op, errors.WithMessagef(err, "claim one-time pre-key %d", id))
	case ok:
		keys.OneTimePreKey = &otk.Private
		return keys, false, nil
	case r.cfg.Policy == PolicyDegrade:
		log.Warn("one-time pre-key unavailable, continuing without it",
			zap.Uint32("one_time_pre_key_id", uint32(id)))
		return keys, true, nil
	default:
		keys.Wipe()
		return PublisherKeys{}, false, unavailable(op, errors.Errorf("one-time pre-key %d already consumed or unknown", id))
	}
}

// forget undoes MarkSeen so the message can be retried.
func (r *Responder) forget(log *zap.Logger, digest [32]byte) {
	if r.cfg.ReplayGuard == nil {
		return
	}
	if err := r.cfg.ReplayGuard.Forget(digest); err != nil {
		log.Warn("replay guard: forget failed; a retry will be refused", zap.Error(err))
	}
}

func checkPeerKeys(spk domain.X25519Private, msg *HandshakeMessage) error {
	pairs := []agreement{
		{"dh1", spk, msg.IdentityKey},
		{"dh3", spk, msg.EphemeralKey},
	}
	defer wipePairs(pairs)
	dhs, err := agree(pairs)
	if err != nil {
		return err
	}
	wipeAll(dhs)
	return nil
}
