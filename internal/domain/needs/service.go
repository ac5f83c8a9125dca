package needs

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/sirana/sirana/internal/domain/audit"
	"github.com/sirana/sirana/internal/platform/db"
	"github.com/sirana/sirana/pkg/apperror"
)

const defaultTopN = 10

type Service struct {
	repo     Repository
	patients PatientChecker
	audit    audit.Recorder
	tx       db.Runner
}

func NewService(repo Repository, patients PatientChecker, recorder audit.Recorder, tx db.Runner) *Service {
	return &Service{repo: repo, patients: patients, audit: recorder, tx: tx}
}

func validate(n *Needs) error {
	errs := &apperror.ValidationError{}

	if !contains(ValidPriorities, n.MedicinePriority) {
		errs.Add("medicine_priority", "medicine_priority is not a recognized level")
	}
	if !contains(ValidPriorities, n.EquipmentPriority) {
		errs.Add("equipment_priority", "equipment_priority is not a recognized level")
	}
	if !contains(ValidPriorities, n.InfrastructurePriority) {
		errs.Add("infrastructure_priority", "infrastructure_priority is not a recognized level")
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

func orDefault(priority string) string {
	if priority == "" {
		return PriorityModerate
	}
	return priority
}

func (s *Service) Create(ctx context.Context, in CreateInput, actorID uuid.UUID) (*Needs, error) {
	n := &Needs{
		PatientID:              in.PatientID,
		Medicines:              in.Medicines,
		Equipment:              in.Equipment,
		Infrastructure:         in.Infrastructure,
		MedicinePriority:       orDefault(in.MedicinePriority),
		EquipmentPriority:      orDefault(in.EquipmentPriority),
		InfrastructurePriority: orDefault(in.InfrastructurePriority),
		Notes:                  normalizeOptional(in.Notes),
		CreatedBy:              actorID,
	}
	if n.Medicines == nil {
		n.Medicines = ItemList{}
	}
	if n.Equipment == nil {
		n.Equipment = ItemList{}
	}
	if n.Infrastructure == nil {
		n.Infrastructure = ItemList{}
	}

	if err := validate(n); err != nil {
		return nil, err
	}

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		ok, err := s.patients.Exists(ctx, n.PatientID)
		if err != nil {
			return apperror.NewStorage("check patient", err)
		}
		if !ok {
			return apperror.NewNotFound("patient", n.PatientID.String())
		}
		if err := s.repo.Create(ctx, n); err != nil {
			return apperror.NewStorage("insert needs identification", err)
		}
		return s.audit.Record(ctx, &audit.Entry{
			UserID:   actorID,
			Action:   audit.ActionCreated(audit.EntityNeeds),
			Entity:   audit.EntityNeeds,
			EntityID: n.ID.String(),
			NewData:  audit.Snapshot(n),
		})
	})
	if err != nil {
		return nil, err
	}
	return n, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Needs, error) {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperror.NewNotFound("needs identification", id.String())
		}
		return nil, apperror.NewStorage("get needs identification", err)
	}
	return n, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput, actorID uuid.UUID) (*Needs, error) {
	var updated *Needs

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		existing, err := s.repo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return apperror.NewNotFound("needs identification", id.String())
			}
			return apperror.NewStorage("get needs identification", err)
		}
		before := *existing
		before.Medicines = append(ItemList(nil), existing.Medicines...)
		before.Equipment = append(ItemList(nil), existing.Equipment...)
		before.Infrastructure = append(ItemList(nil), existing.Infrastructure...)

		if in.Medicines != nil {
			existing.Medicines = *in.Medicines
		}
		if in.Equipment != nil {
			existing.Equipment = *in.Equipment
		}
		if in.Infrastructure != nil {
			existing.Infrastructure = *in.Infrastructure
		}
		if in.MedicinePriority != nil && *in.MedicinePriority != "" {
			existing.MedicinePriority = *in.MedicinePriority
		}
		if in.EquipmentPriority != nil && *in.EquipmentPriority != "" {
			existing.EquipmentPriority = *in.EquipmentPriority
		}
		if in.InfrastructurePriority != nil && *in.InfrastructurePriority != "" {
			existing.InfrastructurePriority = *in.InfrastructurePriority
		}
		if in.Notes != nil {
			existing.Notes = normalizeOptional(in.Notes)
		}

		if err := validate(existing); err != nil {
			return err
		}

		if err := s.repo.Update(ctx, existing); err != nil {
			return apperror.NewStorage("update needs identification", err)
		}
		updated = existing
		return s.audit.Record(ctx, &audit.Entry{
			UserID:   actorID,
			Action:   audit.ActionUpdated(audit.EntityNeeds),
			Entity:   audit.EntityNeeds,
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
				return apperror.NewNotFound("needs identification", id.String())
			}
			return apperror.NewStorage("get needs identification", err)
		}
		if err := s.repo.Delete(ctx, id); err != nil {
			return apperror.NewStorage("delete needs identification", err)
		}
		return s.audit.Record(ctx, &audit.Entry{
			UserID:   actorID,
			Action:   audit.ActionDeleted(audit.EntityNeeds),
			Entity:   audit.EntityNeeds,
			EntityID: id.String(),
			OldData:  audit.Snapshot(existing),
		})
	})
}

func (s *Service) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Needs, int, error) {
	items, total, err := s.repo.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, apperror.NewStorage("list needs identifications", err)
	}
	return items, total, nil
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	stats, err := s.repo.Stats(ctx, defaultTopN)
	if err != nil {
		return nil, apperror.NewStorage("needs stats", err)
	}
	return stats, nil
}
