package catalog

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the storage interface for test definitions. The Redis cache
// decorator implements the same interface so callers never know whether a
// read was served from Postgres or from cache.
type Repository interface {
	Create(ctx context.Context, def *TestDefinition) error
	Update(ctx context.Context, def *TestDefinition) error
	Get(ctx context.Context, id uuid.UUID) (*TestDefinition, error)
	GetByCode(ctx context.Context, code string) (*TestDefinition, error)
	ListActive(ctx context.Context) ([]*TestDefinition, error)
}
