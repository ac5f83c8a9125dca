package patient

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound signals that no patient row matched the lookup. Any other
// repository error is a storage failure and must not be mistaken for a
// missing record.
var ErrNotFound = errors.New("patient not found")

// Repository defines the persistence interface for patients.
type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetByNIK(ctx context.Context, nik string) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Patient, int, error)
	Stats(ctx context.Context, now time.Time) (*Stats, error)
}
