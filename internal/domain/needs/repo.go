package needs

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound signals that no needs identification row matched the lookup.
// Any other repository error is a storage failure and must not be mistaken
// for a missing record.
var ErrNotFound = errors.New("needs identification not found")

// Repository is the storage contract for needs identifications.
type Repository interface {
	Create(ctx context.Context, n *Needs) error
	GetByID(ctx context.Context, id uuid.UUID) (*Needs, error)
	Update(ctx context.Context, n *Needs) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Needs, int, error)
	Stats(ctx context.Context, topN int) (*Stats, error)
}

// PatientChecker verifies that a patient exists before a needs record is
// attached to it.
type PatientChecker interface {
	Exists(ctx context.Context, patientID uuid.UUID) (bool, error)
}
