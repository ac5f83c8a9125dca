package disaster

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/sirana/sirana/internal/domain/audit"
	"github.com/sirana/sirana/internal/platform/db"
	"github.com/sirana/sirana/pkg/apperror"
)

const recentEvents = 5

type Service struct {
	repo  Repository
	audit audit.Recorder
	tx    db.Runner
}

func NewService(repo Repository, recorder audit.Recorder, tx db.Runner) *Service {
	return &Service{repo: repo, audit: recorder, tx: tx}
}

func validate(e *Event) error {
	errs := &apperror.ValidationError{}

	if len(strings.TrimSpace(e.Name)) < 3 {
		errs.Add("name", "name must be at least 3 characters")
	}
	if !contains(ValidTypes, e.Type) {
		errs.Add("disaster_type", "disaster_type is not a recognized category")
	}
	if e.OccurredAt.IsZero() {
		errs.Add("occurred_at", "occurred_at is required")
	}
	if strings.TrimSpace(e.Location) == "" {
		errs.Add("location", "location is required")
	}
	if strings.TrimSpace(e.Province) == "" {
		errs.Add("province", "province is required")
	}
	if strings.TrimSpace(e.Regency) == "" {
		errs.Add("regency", "regency is required")
	}
	if !contains(ValidStatuses, e.Status) {
		errs.Add("status", "status must be ACTIVE or CLOSED")
	}

	return errs.ErrOrNil()
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}

func normalizeOptional(v *string) *string {
	if v != nil && strings.TrimSpace(*v) == "" {
		return nil
	}
	return v
}

func (s *Service) Create(ctx context.Context, in CreateInput, actorID uuid.UUID) (*Event, error) {
	e := &Event{
		Name:        strings.TrimSpace(in.Name),
		Type:        in.Type,
		OccurredAt:  in.OccurredAt,
		Location:    in.Location,
		Province:    in.Province,
		Regency:     in.Regency,
		Subdistrict: normalizeOptional(in.Subdistrict),
		Description: normalizeOptional(in.Description),
		Status:      in.Status,
	}
	if e.Status == "" {
		e.Status = StatusActive
	}

	if err := validate(e); err != nil {
		return nil, err
	}

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, e); err != nil {
			return apperror.NewStorage("insert disaster event", err)
		}
		return s.audit.Record(ctx, &audit.Entry{
			UserID:   actorID,
			Action:   audit.ActionCreated(audit.EntityDisaster),
			Entity:   audit.EntityDisaster,
			EntityID: e.ID.String(),
			NewData:  audit.Snapshot(e),
		})
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Event, error) {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperror.NewNotFound("disaster event", id.String())
		}
		return nil, apperror.NewStorage("get disaster event", err)
	}
	return e, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput, actorID uuid.UUID) (*Event, error) {
	var updated *Event

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		existing, err := s.repo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return apperror.NewNotFound("disaster event", id.String())
			}
			return apperror.NewStorage("get disaster event", err)
		}
		before := *existing

		if in.Name != nil {
			existing.Name = strings.TrimSpace(*in.Name)
		}
		if in.Type != nil {
			existing.Type = *in.Type
		}
		if in.OccurredAt != nil {
			existing.OccurredAt = *in.OccurredAt
		}
		if in.Location != nil {
			existing.Location = *in.Location
		}
		if in.Province != nil {
			existing.Province = *in.Province
		}
		if in.Regency != nil {
			existing.Regency = *in.Regency
		}
		if in.Subdistrict != nil {
			existing.Subdistrict = normalizeOptional(in.Subdistrict)
		}
		if in.Description != nil {
			existing.Description = normalizeOptional(in.Description)
		}
		if in.Status != nil {
			existing.Status = *in.Status
		}

		if err := validate(existing); err != nil {
			return err
		}

		if err := s.repo.Update(ctx, existing); err != nil {
			return apperror.NewStorage("update disaster event", err)
		}
		updated = existing
		return s.audit.Record(ctx, &audit.Entry{
			UserID:   actorID,
			Action:   audit.ActionUpdated(audit.EntityDisaster),
			Entity:   audit.EntityDisaster,
			EntityID: id.String(),
			OldData:  audit.Snapshot(&before),
			NewData:  audit.Snapshot(existing),
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// UpdateStatus flips an event between ACTIVE and CLOSED without touching
// any other field.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status string, actorID uuid.UUID) (*Event, error) {
	if !contains(ValidStatuses, status) {
		errs := &apperror.ValidationError{}
		errs.Add("status", "status must be ACTIVE or CLOSED")
		return nil, errs
	}

	var updated *Event
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		existing, err := s.repo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return apperror.NewNotFound("disaster event", id.String())
			}
			return apperror.NewStorage("get disaster event", err)
		}
		before := *existing
		existing.Status = status

		if err := s.repo.Update(ctx, existing); err != nil {
			return apperror.NewStorage("update disaster status", err)
		}
		updated = existing
		return s.audit.Record(ctx, &audit.Entry{
			UserID:   actorID,
			Action:   "UPDATE_DISASTER_EVENT_STATUS",
			Entity:   audit.EntityDisaster,
			EntityID: id.String(),
			OldData:  audit.Snapshot(&before),
			NewData:  audit.Snapshot(existing),
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID, actorID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		existing, err := s.repo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return apperror.NewNotFound("disaster event", id.String())
			}
			return apperror.NewStorage("get disaster event", err)
		}
		if err := s.repo.Delete(ctx, id); err != nil {
			return apperror.NewStorage("delete disaster event", err)
		}
		return s.audit.Record(ctx, &audit.Entry{
			UserID:   actorID,
			Action:   audit.ActionDeleted(audit.EntityDisaster),
			Entity:   audit.EntityDisaster,
			EntityID: id.String(),
			OldData:  audit.Snapshot(existing),
		})
	})
}

func (s *Service) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Event, int, error) {
	items, total, err := s.repo.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, apperror.NewStorage("list disaster events", err)
	}
	return items, total, nil
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	stats, err := s.repo.Stats(ctx, recentEvents)
	if err != nil {
		return nil, apperror.NewStorage("disaster stats", err)
	}
	return stats, nil
}
