package audit

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound signals that no audit entry matched the lookup. Any other
// repository error is a storage failure and must not be mistaken for a
// missing record.
var ErrNotFound = errors.New("audit entry not found")

// Repository defines the persistence interface for audit entries.
// There is no update or delete: the log is append-only.
type Repository interface {
	Insert(ctx context.Context, entry *Entry) error
	GetByID(ctx context.Context, id uuid.UUID) (*Entry, error)
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Entry, int, error)
}
