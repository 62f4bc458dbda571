package pqxdh

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"pqxdh/internal/domain"
)

// MaxPayloadSize bounds the ratchet-initialisation payload.
const MaxPayloadSize = 1 << 20

const (
	flagNoOneTime byte = 0
	flagOneTime   byte = 1
)

var (
	errTruncated = errors.New("truncated")
	errTrailing  = errors.New("trailing bytes")
)

// Encode serialises m. It refuses anything Decode would reject.
//
//	version            u8
//	registration id    u32
//	one-time flag      u8   (0 or 1)
//	one-time id        u32  (only if flag == 1)
//	signed-prekey id   u32
//	kyber-prekey id    u32
//	identity key       u16 length || bytes
//	ephemeral key      u16 length || bytes
//	kem ciphertext     u16 length || bytes
//	payload            u32 length || bytes
func Encode(m *HandshakeMessage) ([]byte, error) {
	const op = "encode"
	if m == nil {
		return nil, malformed(op, errors.New("nil message"))
	}
	s, ok := LookupSuite(m.Version)
	if !ok {
		return nil, malformed(op, errors.Errorf("unknown version %d", m.Version))
	}
	if len(m.Ciphertext) != s.CiphertextSize() {
		return nil, malformed(op, errors.Errorf("ciphertext is %d bytes, want %d", len(m.Ciphertext), s.CiphertextSize()))
	}
	if len(m.Payload) > MaxPayloadSize {
		return nil, malformed(op, errors.Errorf("payload is %d bytes, limit %d", len(m.Payload), MaxPayloadSize))
	}

	size := 1 + 4 + 1 + 4 + 4 + 2 + CurveKeySize + 2 + CurveKeySize + 2 + len(m.Ciphertext) + 4 + len(m.Payload)
	if m.OneTimePreKeyID != nil {
		size += 4
	}
	b := make([]byte, 0, size)
	b = append(b, byte(m.Version))
	b = binary.BigEndian.AppendUint32(b, uint32(m.RegistrationID))
	if m.OneTimePreKeyID != nil {
		b = append(b, flagOneTime)
		b = binary.BigEndian.AppendUint32(b, uint32(*m.OneTimePreKeyID))
	} else {
		b = append(b, flagNoOneTime)
	}
	b = binary.BigEndian.AppendUint32(b, uint32(m.SignedPreKeyID))
	b = binary.BigEndian.AppendUint32(b, uint32(m.KyberPreKeyID))
	b = appendShort(b, m.IdentityKey[:])
	b = appendShort(b, m.EphemeralKey[:])
	b = appendShort(b, m.Ciphertext)
	b = binary.BigEndian.AppendUint32(b, uint32(len(m.Payload)))
	return append(b, m.Payload...), nil
}

// Decode parses b. It never retains b: every field of the result is a copy.
// Any inconsistency yields a KindMalformedMessage error and a nil message.
func Decode(b []byte) (*HandshakeMessage, error) {
	const op = "decode"
	r := reader{buf: b}

	v := domain.Version(r.u8())
	if r.err != nil {
		return nil, malformed(op, r.err)
	}
	s, ok := LookupSuite(v)
	if !ok {
		return nil, malformed(op, errors.Errorf("unknown version %d", v))
	}

	m := &HandshakeMessage{Version: v}
	m.RegistrationID = domain.RegistrationID(r.u32())
	switch flag := r.u8(); {
	case r.err != nil:
	case flag == flagOneTime:
		id := domain.OneTimePreKeyID(r.u32())
		m.OneTimePreKeyID = &id
	case flag != flagNoOneTime:
		return nil, malformed(op, errors.Errorf("one-time pre-key flag %d", flag))
	}
	m.SignedPreKeyID = domain.SignedPreKeyID(r.u32())
	m.KyberPreKeyID = domain.KyberPreKeyID(r.u32())
	copy(m.IdentityKey[:], r.short(CurveKeySize, "identity key"))
	copy(m.EphemeralKey[:], r.short(CurveKeySize, "ephemeral key"))
	m.Ciphertext = clone(r.short(s.CiphertextSize(), "ciphertext"))
	m.Payload = clone(r.long(MaxPayloadSize, "payload"))
	if r.err != nil {
		return nil, malformed(op, r.err)
	}
	if r.off != len(b) {
		return nil, malformed(op, errors.WithMessagef(errTrailing, "%d", len(b)-r.off))
	}
	return m, nil
}

func appendShort(b, field []byte) []byte {
	b = binary.BigEndian.AppendUint16(b, uint16(len(field)))
	return append(b, field...)
}

// clone copies b. The wire format cannot tell an empty field from an absent
// one, so both decode as nil.
func clone(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return append(make([]byte, 0, len(b)), b...)
}

// reader is a bounds-checked cursor. After the first error every read
// returns zero values and the error sticks.
type reader struct {
	buf []byte
	off int
	err error
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || n > len(r.buf)-r.off {
		r.err = errTruncated
		return nil
	}
	out := r.buf[r.off : r.off+n]
	r.off += n
	return out
}

func (r *reader) u8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) u16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint16(b)
}

func (r *reader) u32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

// short reads a u16-prefixed field whose length must equal want.
func (r *reader) short(want int, name string) []byte {
	n := int(r.u16())
	if r.err != nil {
		return nil
	}
	if n != want {
		r.err = errors.Errorf("%s length %d, want %d", name, n, want)
		return nil
	}
	return r.take(n)
}

// long reads a u32-prefixed field of at most limit bytes.
func (r *reader) long(limit int, name string) []byte {
	n := r.u32()
	if r.err != nil {
		return nil
	}
	if uint64(n) > uint64(limit) {
		r.err = errors.Errorf("%s length %d exceeds %d", name, n, limit)
		return nil
	}
	return r.take(int(n))
}
