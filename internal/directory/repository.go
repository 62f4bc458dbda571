package directory

import (
	"context"

	"github.com/pkg/errors"

	"pqxdh/internal/domain"
)

// ErrNotFound is returned when no bundle is published for a user.
var ErrNotFound = errors.New("directory: user not found")

// Repository is the directory's persistence.
type Repository interface {
	// PutBundle stores b. Signed and Kyber pre-keys replace the previous
	// ones; one-time pre-keys are added to those not yet handed out.
	PutBundle(ctx context.Context, b domain.PublishedBundle) error
	// TakeBundle returns a bundle for username, atomically removing the
	// one-time pre-key it contains. Concurrent takers never share one.
	TakeBundle(ctx context.Context, username string) (domain.KeyBundle, error)

	Enqueue(ctx context.Context, env domain.Envelope) error
	// Pending returns up to limit envelopes for username, oldest first.
	// limit <= 0 means all.
	Pending(ctx context.Context, username string, limit int) ([]domain.Envelope, error)
	Ack(ctx context.Context, username string, ids []string) error
}
