package initpayload

import (
	"crypto/sha256"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"pqxdh/internal/util/memzero"
)

const (
	formatVersion byte = 1
	aeadKeySize        = chacha20poly1305.KeySize
	nonceSize          = chacha20poly1305.NonceSize
	minSecretSize      = 32
)

var (
	// ErrOpen covers every reason a sealed payload fails to open: wrong
	// secret, wrong associated data or a modified ciphertext.
	ErrOpen = errors.New("initpayload: message authentication failed")

	errShortSecret = errors.New("initpayload: secret shorter than 32 bytes")
)

// Seal encrypts plaintext under a message key derived from secret and binds ad.
//
//	version u8 || ChaCha20-Poly1305(mk, nonce(0), plaintext, ad || version)
func Seal(secret, ad, plaintext []byte) ([]byte, error) {
	mk, err := messageKey(secret)
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(mk)

	aead, err := chacha20poly1305.New(mk[:aeadKeySize])
	if err != nil {
		return nil, errors.Wrap(err, "initpayload: aead")
	}
	out := make([]byte, 1, 1+len(plaintext)+aead.Overhead())
	out[0] = formatVersion
	return aead.Seal(out, nonce(0), plaintext, associated(ad)), nil
}

// Open reverses Seal.
func Open(secret, ad, sealed []byte) ([]byte, error) {
	if len(sealed) < 1+chacha20poly1305.Overhead || sealed[0] != formatVersion {
		return nil, ErrOpen
	}
	mk, err := messageKey(secret)
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(mk)

	aead, err := chacha20poly1305.New(mk[:aeadKeySize])
	if err != nil {
		return nil, errors.Wrap(err, "initpayload: aead")
	}
	pt, err := aead.Open(nil, nonce(0), sealed[1:], associated(ad))
	if err != nil {
		return nil, ErrOpen
	}
	return pt, nil
}

// messageKey runs one root step and one chain step from secret.
func messageKey(secret []byte) ([]byte, error) {
	if len(secret) < minSecretSize {
		return nil, errShortSecret
	}
	rk, ck := kdfRK(secret)
	memzero.Zero(rk)
	next, mk := kdfCK(ck)
	memzero.Zero(ck)
	memzero.Zero(next)
	return mk, nil
}

func associated(ad []byte) []byte {
	out := make([]byte, 0, len(ad)+1)
	out = append(out, ad...)
	return append(out, formatVersion)
}

func nonce(n uint32) []byte {
	b := make([]byte, nonceSize)
	binary.BigEndian.PutUint32(b[nonceSize-4:], n)
	return b
}

// HKDF-based KDFs with labels.
func kdfRK(secret []byte) (rk, ck []byte) {
	r := hkdf.New(sha256.New, secret, nil, []byte("PQXDH|init|rk"))
	rk = make([]byte, 32)
	ck = make([]byte, 32)
	_, _ = io.ReadFull(r, rk)
	_, _ = io.ReadFull(r, ck)
	return
}

func kdfCK(ck []byte) (nextCK, mk []byte) {
	r := hkdf.New(sha256.New, ck, nil, []byte("PQXDH|init|ck"))
	nextCK = make([]byte, 32)
	mk = make([]byte, 32)
	_, _ = io.ReadFull(r, nextCK)
	_, _ = io.ReadFull(r, mk)
	return
}
