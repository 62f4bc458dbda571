package pqxdh

import (
	"github.com/pkg/errors"
)

// ErrorKind is the closed set of handshake failure categories.
type ErrorKind uint8

const (
	KindUnknown ErrorKind = iota
	// KindMalformedMessage: a structural or size violation at decode time.
	KindMalformedMessage
	// KindBundleInvalid: a pre-key signature did not verify, or the bundle
	// names an unsupported parameter set.
	KindBundleInvalid
	// KindPreKeyUnavailable: a referenced pre-key is missing or was already
	// consumed.
	KindPreKeyUnavailable
	// KindDerivationFailed: a DH or KEM operation rejected its input, or an
	// internal invariant such as the output length was violated.
	KindDerivationFailed
)

func (k ErrorKind) String() string {
	switch k {
	case KindMalformedMessage:
		return "malformed message"
	case KindBundleInvalid:
		return "bundle invalid"
	case KindPreKeyUnavailable:
		return "pre-key unavailable"
	case KindDerivationFailed:
		return "derivation failed"
	default:
		return "unknown"
	}
}

// Error is returned by every failing handshake operation. Kind is always set.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	msg := "pqxdh"
	if e.Op != "" {
		msg += ": " + e.Op
	}
	msg += ": " + e.Kind.String()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the bare sentinel for e's kind, so
// errors.Is(err, ErrPreKeyUnavailable) matches any error of that kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Err == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrMalformedMessage  = &Error{Kind: KindMalformedMessage}
	ErrBundleInvalid     = &Error{Kind: KindBundleInvalid}
	ErrPreKeyUnavailable = &Error{Kind: KindPreKeyUnavailable}
	ErrDerivationFailed  = &Error{Kind: KindDerivationFailed}
)

var (
	// ErrReplayedMessage is wrapped in a KindPreKeyUnavailable error when the
	// replay guard has already seen the message's key material.
	ErrReplayedMessage = errors.New("handshake message already processed")

	// ErrOutOfOrder is returned when a driver stage is invoked from a state
	// that does not allow it. It is a caller error, not a handshake failure.
	ErrOutOfOrder = errors.New("pqxdh: handshake stage called out of order")

	// ErrStore matches failures of the pre-key store or the replay guard.
	// They carry no ErrorKind, so KindOf reports KindUnknown: the message
	// itself may be fine and can be retried once the store recovers.
	ErrStore = errors.New("pqxdh: pre-key store failure")
)

type storeError struct {
	op  string
	err error
}

func (e *storeError) Error() string        { return "pqxdh: " + e.op + ": " + e.err.Error() }
func (e *storeError) Unwrap() error        { return e.err }
func (e *storeError) Is(target error) bool { return target == ErrStore }

// KindOf returns the kind carried by err, or KindUnknown.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func malformed(op string, err error) error {
	return &Error{Kind: KindMalformedMessage, Op: op, Err: err}
}

func bundleInvalid(op string, err error) error {
	return &Error{Kind: KindBundleInvalid, Op: op, Err: err}
}

func unavailable(op string, err error) error {
	return &Error{Kind: KindPreKeyUnavailable, Op: op, Err: err}
}

func derivationFailed(op string, err error) error {
	return &Error{Kind: KindDerivationFailed, Op: op, Err: err}
}

func storeFailure(op string, err error) error {
	return &storeError{op: op, err: err}
}
