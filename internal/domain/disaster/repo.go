package disaster

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound signals that no disaster event row matched the lookup. Any
// other repository error is a storage failure and must not be mistaken for
// a missing record.
var ErrNotFound = errors.New("disaster event not found")

// Repository is the storage contract for disaster events.
type Repository interface {
	Create(ctx context.Context, e *Event) error
	GetByID(ctx context.Context, id uuid.UUID) (*Event, error)
	Update(ctx context.Context, e *Event) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Event, int, error)
	Stats(ctx context.Context, recentN int) (*Stats, error)
}
