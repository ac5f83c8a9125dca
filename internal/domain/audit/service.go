package audit

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/sirana/sirana/pkg/apperror"
)

// Recorder is the write side of the audit log. Services record one entry per
// mutation, on the same transaction as the mutation itself.
type Recorder interface {
	Record(ctx context.Context, entry *Entry) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Record appends an entry to the log. The repository picks up the active
// transaction from the context, so a failed insert rolls back the mutation
// it describes.
func (s *Service) Record(ctx context.Context, entry *Entry) error {
	if entry.UserID == uuid.Nil {
		return fmt.Errorf("audit entry requires a user id")
	}
	if entry.Action == "" || entry.Entity == "" {
		return fmt.Errorf("audit entry requires action and entity")
	}
	return apperror.NewStorage("insert audit entry", s.repo.Insert(ctx, entry))
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Entry, error) {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperror.NewNotFound("audit entry", id.String())
		}
		return nil, apperror.NewStorage("get audit entry", err)
	}
	return e, nil
}

func (s *Service) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Entry, int, error) {
	items, total, err := s.repo.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, apperror.NewStorage("list audit entries", err)
	}
	return items, total, nil
}
