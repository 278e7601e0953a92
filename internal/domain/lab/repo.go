package lab

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the storage interface for lab tests.
type Repository interface {
	Create(ctx context.Context, t *Test) error
	Update(ctx context.Context, t *Test) error
	Get(ctx context.Context, id uuid.UUID) (*Test, error)

	// ListByBatch returns all members of a batch ordered by batch index.
	ListByBatch(ctx context.Context, batchID uuid.UUID) ([]*Test, error)

	// ListPending returns every PENDING test, oldest first.
	ListPending(ctx context.Context) ([]*Test, error)
}
