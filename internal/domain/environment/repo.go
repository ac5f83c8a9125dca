package environment

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound signals that no environment assessment row matched the lookup.
// Any other repository error is a storage failure and must not be mistaken
// for a missing record.
var ErrNotFound = errors.New("environment assessment not found")

// Repository is the storage contract for environment assessments.
type Repository interface {
	Create(ctx context.Context, e *Environment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Environment, error)
	Update(ctx context.Context, e *Environment) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Environment, int, error)
	Stats(ctx context.Context) (*Stats, error)
}

// PatientChecker verifies that a patient exists before an assessment is
// attached to it.
type PatientChecker interface {
	Exists(ctx context.Context, patientID uuid.UUID) (bool, error)
}
