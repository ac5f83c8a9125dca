package assessment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound signals that no assessment row matched the lookup. Any other
// repository error is a storage failure and must not be mistaken for a
// missing record.
var ErrNotFound = errors.New("assessment not found")

// Repository defines the persistence interface for medical assessments.
type Repository interface {
	Create(ctx context.Context, a *Assessment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Assessment, error)
	Update(ctx context.Context, a *Assessment) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Assessment, int, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Assessment, error)
	Stats(ctx context.Context, now time.Time) (*Stats, error)
	TopDiagnoses(ctx context.Context, limit int) ([]DiagnosisCount, error)
}

// PatientChecker verifies that a patient row exists. The check runs on the
// same transaction as the insert so a concurrent delete cannot slip between.
type PatientChecker interface {
	Exists(ctx context.Context, patientID uuid.UUID) (bool, error)
}
