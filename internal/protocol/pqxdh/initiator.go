package pqxdh

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"pqxdh/internal/crypto"
	"pqxdh/internal/domain"
	"pqxdh/internal/util/memzero"
)

// Initiator runs one handshake attempt against a fetched bundle:
//
//	Start -> BundleFetched -> EphemeralGenerated -> SecretDerived -> MessageEncoded -> Done
//
// Derive covers everything up to SecretDerived; Encode finishes. An
// Initiator is not safe for concurrent use and is not reusable.
type Initiator struct {
	cfg      Config
	log      *zap.Logger
	identity domain.IdentityKeyPair
	regID    domain.RegistrationID

	state   InitiatorState
	msg     HandshakeMessage
	session *Session
}

// NewInitiator prepares an attempt for the given identity and registration id.
func NewInitiator(cfg Config, identity domain.IdentityKeyPair, regID domain.RegistrationID) *Initiator {
	cfg = cfg.withDefaults()
	return &Initiator{
		cfg:      cfg,
		log:      cfg.Logger.Named("initiator"),
		identity: identity,
		regID:    regID,
	}
}

// State returns the current state.
func (i *Initiator) State() InitiatorState { return i.state }

// Derive verifies bundle, generates the ephemeral key and derives the
// secret. The ephemeral private key is wiped before Derive returns.
func (i *Initiator) Derive(bundle domain.KeyBundle) (*Session, error) {
	if i.state != InitiatorStart {
		return nil, errors.WithMessagef(ErrOutOfOrder, "derive from %s", i.state)
	}
	i.state = InitiatorBundleFetched
	log := i.log.With(
		zap.Stringer("peer", fingerprint(bundle.IdentityKey)),
		zap.Uint8("version", uint8(bundle.KyberPreKey.Version)),
		zap.Uint32("signed_pre_key_id", uint32(bundle.SignedPreKey.ID)),
		zap.Uint32("kyber_pre_key_id", uint32(bundle.KyberPreKey.ID)),
		zap.Bool("one_time_pre_key", bundle.OneTimePreKey != nil),
	)

	if err := VerifyBundle(&bundle); err != nil {
		i.state = InitiatorBundleInvalid
		log.Warn("bundle rejected", zap.Error(err))
		return nil, err
	}
	suite, _ := LookupSuite(bundle.KyberPreKey.Version)

	ephPriv, ephPub, err := crypto.GenerateX25519(i.cfg.Rand)
	if err != nil {
		i.state = InitiatorDerivationFailed
		return nil, derivationFailed("generate ephemeral", err)
	}
	i.state = InitiatorEphemeralGenerated

	secret, ct, err := DeriveInitiator(suite, i.identity.Private, ephPriv, &bundle, i.cfg.Rand, i.cfg.OutputLength)
	memzero.Zero(ephPriv[:])
	if err != nil {
		i.state = InitiatorDerivationFailed
		log.Warn("derivation failed", zap.Error(err))
		return nil, err
	}
	i.state = InitiatorSecretDerived

	i.msg = HandshakeMessage{
		Version:        suite.Version,
		RegistrationID: i.regID,
		SignedPreKeyID: bundle.SignedPreKey.ID,
		KyberPreKeyID:  bundle.KyberPreKey.ID,
		IdentityKey:    i.identity.Public,
		EphemeralKey:   ephPub,
		Ciphertext:     ct,
	}
	i.session = &Session{
		Version:        suite.Version,
		RegistrationID: i.regID,
		LocalIdentity:  i.identity.Public,
		PeerIdentity:   bundle.IdentityKey,
		Secret:         secret,
		AssociatedData: AssociatedData(i.identity.Public, bundle.IdentityKey),
		SignedPreKeyID: bundle.SignedPreKey.ID,
		KyberPreKeyID:  bundle.KyberPreKey.ID,
	}
	if bundle.OneTimePreKey != nil {
		id := bundle.OneTimePreKey.ID
		i.msg.OneTimePreKeyID = &id
		i.session.OneTimePreKeyID = &id
	}
	log.Debug("secret derived")
	return i.session, nil
}

// Encode binds payload to the handshake and returns the wire message. If
// encoding fails the Initiator stays in SecretDerived and Encode may be
// retried with a different payload.
func (i *Initiator) Encode(payload []byte) ([]byte, error) {
	if i.state != InitiatorSecretDerived {
		return nil, errors.WithMessagef(ErrOutOfOrder, "encode from %s", i.state)
	}
	i.msg.Payload = clone(payload)
	wire, err := Encode(&i.msg)
	if err != nil {
		i.msg.Payload = nil
		return nil, err
	}
	i.state = InitiatorMessageEncoded
	i.session.Payload = i.msg.Payload

	i.state = InitiatorDone
	i.log.Debug("handshake message encoded",
		zap.Stringer("peer", fingerprint(i.session.PeerIdentity)),
		zap.Int("bytes", len(wire)),
	)
	return wire, nil
}

// Abort ends an unfinished attempt and wipes the derived secret. It does
// nothing once the Initiator is terminal; after Done the caller owns the
// session.
func (i *Initiator) Abort() {
	if i.state.Terminal() {
		return
	}
	if i.session != nil {
		i.session.Wipe()
		i.session = nil
	}
	i.msg = HandshakeMessage{}
	i.state = InitiatorAborted
}

// Message returns the message built by Derive, without a payload until
// Encode has run.
func (i *Initiator) Message() HandshakeMessage { return i.msg }

type fingerprint domain.X25519Public

func (f fingerprint) String() string { return string(crypto.Fingerprint(domain.X25519Public(f))) }
