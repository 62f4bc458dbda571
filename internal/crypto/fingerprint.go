package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"pqxdh/internal/domain"
)

const fingerprintLabel = "PQXDH identity fingerprint"

// Fingerprint returns SHA-256(label || key) truncated to 10 bytes, as five
// space-separated groups of four hex digits.
func Fingerprint(pub domain.X25519Public) domain.Fingerprint {
	h := sha256.New()
	h.Write([]byte(fingerprintLabel))
	h.Write(pub[:])
	sum := hex.EncodeToString(h.Sum(nil)[:10])

	var b strings.Builder
	for i := 0; i < len(sum); i += 4 {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(sum[i : i+4])
	}
	return domain.Fingerprint(b.String())
}
