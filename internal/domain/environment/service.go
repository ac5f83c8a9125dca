package environment

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/sirana/sirana/internal/domain/audit"
	"github.com/sirana/sirana/internal/platform/db"
	"github.com/sirana/sirana/pkg/apperror"
)

type Service struct {
	repo     Repository
	patients PatientChecker
	audit    audit.Recorder
	tx       db.Runner
}

func NewService(repo Repository, patients PatientChecker, recorder audit.Recorder, tx db.Runner) *Service {
	return &Service{repo: repo, patients: patients, audit: recorder, tx: tx}
}

func validate(e *Environment) error {
	errs := &apperror.ValidationError{}

	if !contains(ValidWaterAccess, e.WaterAccess) {
		errs.Add("water_access", "water_access must be AVAILABLE or UNAVAILABLE")
	}
	if !contains(ValidSanitation, e.Sanitation) {
		errs.Add("sanitation", "sanitation must be GOOD or POOR")
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

func (s *Service) Create(ctx context.Context, in CreateInput, actorID uuid.UUID) (*Environment, error) {
	e := &Environment{
		PatientID:   in.PatientID,
		WaterAccess: in.WaterAccess,
		Sanitation:  in.Sanitation,
		Photos:      in.Photos,
		Notes:       normalizeOptional(in.Notes),
		CreatedBy:   actorID,
	}
	if e.Photos == nil {
		e.Photos = []string{}
	}

	if err := validate(e); err != nil {
		return nil, err
	}

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		ok, err := s.patients.Exists(ctx, e.PatientID)
		if err != nil {
			return apperror.NewStorage("check patient", err)
		}
		if !ok {
			return apperror.NewNotFound("patient", e.PatientID.String())
		}
		if err := s.repo.Create(ctx, e); err != nil {
			return apperror.NewStorage("insert environment assessment", err)
		}
		return s.audit.Record(ctx, &audit.Entry{
			UserID:   actorID,
			Action:   audit.ActionCreated(audit.EntityEnvironment),
			Entity:   audit.EntityEnvironment,
			EntityID: e.ID.String(),
			NewData:  audit.Snapshot(e),
		})
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Environment, error) {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperror.NewNotFound("environment assessment", id.String())
		}
		return nil, apperror.NewStorage("get environment assessment", err)
	}
	return e, nil
}

// Update merges the supplied fields into the existing record. New photo
// references are appended to the stored list so earlier uploads survive.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput, actorID uuid.UUID) (*Environment, error) {
	var updated *Environment

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		existing, err := s.repo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return apperror.NewNotFound("environment assessment", id.String())
			}
			return apperror.NewStorage("get environment assessment", err)
		}
		before := *existing
		before.Photos = append([]string(nil), existing.Photos...)

		if in.WaterAccess != nil {
			existing.WaterAccess = *in.WaterAccess
		}
		if in.Sanitation != nil {
			existing.Sanitation = *in.Sanitation
		}
		if len(in.Photos) > 0 {
			existing.Photos = append(existing.Photos, in.Photos...)
		}
		if in.Notes != nil {
			existing.Notes = normalizeOptional(in.Notes)
		}

		if err := validate(existing); err != nil {
			return err
		}

		if err := s.repo.Update(ctx, existing); err != nil {
			return apperror.NewStorage("update environment assessment", err)
		}
		updated = existing
		return s.audit.Record(ctx, &audit.Entry{
			UserID:   actorID,
			Action:   audit.ActionUpdated(audit.EntityEnvironment),
			Entity:   audit.EntityEnvironment,
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
				return apperror.NewNotFound("environment assessment", id.String())
			}
			return apperror.NewStorage("get environment assessment", err)
		}
		if err := s.repo.Delete(ctx, id); err != nil {
			return apperror.NewStorage("delete environment assessment", err)
		}
		return s.audit.Record(ctx, &audit.Entry{
			UserID:   actorID,
			Action:   audit.ActionDeleted(audit.EntityEnvironment),
			Entity:   audit.EntityEnvironment,
			EntityID: id.String(),
			OldData:  audit.Snapshot(existing),
		})
	})
}

func (s *Service) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Environment, int, error) {
	items, total, err := s.repo.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, apperror.NewStorage("list environment assessments", err)
	}
	return items, total, nil
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, apperror.NewStorage("environment stats", err)
	}
	return stats, nil
}
