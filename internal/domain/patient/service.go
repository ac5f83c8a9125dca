package patient

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/sirana/sirana/internal/domain/audit"
	"github.com/sirana/sirana/internal/platform/db"
	"github.com/sirana/sirana/pkg/apperror"
)

type Service struct {
	repo  Repository
	audit audit.Recorder
	tx    db.Runner
}

func NewService(repo Repository, recorder audit.Recorder, tx db.Runner) *Service {
	return &Service{repo: repo, audit: recorder, tx: tx}
}

// isNIK reports whether s is a 16-digit national identity number.
func isNIK(s string) bool {
	if len(s) != 16 {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func validate(p *Patient) error {
	errs := &apperror.ValidationError{}

	if len(strings.TrimSpace(p.Name)) < 3 {
		errs.Add("name", "name must be at least 3 characters")
	}
	if !contains(ValidSexes, p.Sex) {
		errs.Add("sex", "sex must be MALE or FEMALE")
	}
	if !contains(ValidAgeGroups, p.AgeGroup) {
		errs.Add("age_group", "age_group is not a recognized value")
	}
	if p.NIK != nil && !isNIK(*p.NIK) {
		errs.Add("nik", "nik must be exactly 16 digits")
	}
	if p.BirthDate.IsZero() {
		errs.Add("birth_date", "birth_date is required")
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

// normalizeOptional maps empty strings to nil so cleared fields store NULL.
func normalizeOptional(v *string) *string {
	if v != nil && strings.TrimSpace(*v) == "" {
		return nil
	}
	return v
}

func (s *Service) Create(ctx context.Context, in CreateInput, actorID uuid.UUID) (*Patient, error) {
	p := &Patient{
		NIK:              normalizeOptional(in.NIK),
		Name:             strings.TrimSpace(in.Name),
		Sex:              in.Sex,
		Birthplace:       in.Birthplace,
		BirthDate:        in.BirthDate,
		Address:          in.Address,
		RT:               in.RT,
		RW:               in.RW,
		Village:          in.Village,
		District:         in.District,
		Regency:          in.Regency,
		Province:         in.Province,
		Religion:         normalizeOptional(in.Religion),
		Occupation:       normalizeOptional(in.Occupation),
		Phone:            normalizeOptional(in.Phone),
		AgeGroup:         in.AgeGroup,
		GestationalWeeks: in.GestationalWeeks,
		CreatedBy:        actorID,
	}
	if p.AgeGroup != AgeGroupPregnantWoman {
		p.GestationalWeeks = nil
	}

	if err := validate(p); err != nil {
		return nil, err
	}

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		if p.NIK != nil {
			existing, err := s.repo.GetByNIK(ctx, *p.NIK)
			if err != nil && !errors.Is(err, ErrNotFound) {
				return apperror.NewStorage("check nik", err)
			}
			if existing != nil {
				return apperror.NewConflict("nik", *p.NIK)
			}
		}
		if err := s.repo.Create(ctx, p); err != nil {
			return apperror.NewStorage("insert patient", err)
		}
		return s.audit.Record(ctx, &audit.Entry{
			UserID:   actorID,
			Action:   audit.ActionCreated(audit.EntityPatient),
			Entity:   audit.EntityPatient,
			EntityID: p.ID.String(),
			NewData:  audit.Snapshot(p),
		})
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperror.NewNotFound("patient", id.String())
		}
		return nil, apperror.NewStorage("get patient", err)
	}
	return p, nil
}

func (s *Service) GetByNIK(ctx context.Context, nik string) (*Patient, error) {
	p, err := s.repo.GetByNIK(ctx, nik)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperror.NewNotFound("patient", nik)
		}
		return nil, apperror.NewStorage("get patient by nik", err)
	}
	return p, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput, actorID uuid.UUID) (*Patient, error) {
	var updated *Patient

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		existing, err := s.repo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return apperror.NewNotFound("patient", id.String())
			}
			return apperror.NewStorage("get patient", err)
		}
		before := *existing

		applyUpdate(existing, in)
		if existing.AgeGroup != AgeGroupPregnantWoman {
			existing.GestationalWeeks = nil
		}

		if err := validate(existing); err != nil {
			return err
		}

		nikChanged := existing.NIK != nil && (before.NIK == nil || *before.NIK != *existing.NIK)
		if nikChanged {
			other, err := s.repo.GetByNIK(ctx, *existing.NIK)
			if err != nil && !errors.Is(err, ErrNotFound) {
				return apperror.NewStorage("check nik", err)
			}
			if other != nil && other.ID != id {
				return apperror.NewConflict("nik", *existing.NIK)
			}
		}

		if err := s.repo.Update(ctx, existing); err != nil {
			return apperror.NewStorage("update patient", err)
		}
		updated = existing
		return s.audit.Record(ctx, &audit.Entry{
			UserID:   actorID,
			Action:   audit.ActionUpdated(audit.EntityPatient),
			Entity:   audit.EntityPatient,
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

func applyUpdate(p *Patient, in UpdateInput) {
	if in.NIK != nil {
		p.NIK = normalizeOptional(in.NIK)
	}
	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.Sex != nil {
		p.Sex = *in.Sex
	}
	if in.Birthplace != nil {
		p.Birthplace = *in.Birthplace
	}
	if in.BirthDate != nil {
		p.BirthDate = *in.BirthDate
	}
	if in.Address != nil {
		p.Address = *in.Address
	}
	if in.RT != nil {
		p.RT = *in.RT
	}
	if in.RW != nil {
		p.RW = *in.RW
	}
	if in.Village != nil {
		p.Village = *in.Village
	}
	if in.District != nil {
		p.District = *in.District
	}
	if in.Regency != nil {
		p.Regency = *in.Regency
	}
	if in.Province != nil {
		p.Province = *in.Province
	}
	if in.Religion != nil {
		p.Religion = normalizeOptional(in.Religion)
	}
	if in.Occupation != nil {
		p.Occupation = normalizeOptional(in.Occupation)
	}
	if in.Phone != nil {
		p.Phone = normalizeOptional(in.Phone)
	}
	if in.AgeGroup != nil {
		p.AgeGroup = *in.AgeGroup
	}
	if in.GestationalWeeks != nil {
		p.GestationalWeeks = in.GestationalWeeks
	}
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID, actorID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		existing, err := s.repo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return apperror.NewNotFound("patient", id.String())
			}
			return apperror.NewStorage("get patient", err)
		}
		if err := s.repo.Delete(ctx, id); err != nil {
			return apperror.NewStorage("delete patient", err)
		}
		return s.audit.Record(ctx, &audit.Entry{
			UserID:   actorID,
			Action:   audit.ActionDeleted(audit.EntityPatient),
			Entity:   audit.EntityPatient,
			EntityID: id.String(),
			OldData:  audit.Snapshot(existing),
		})
	})
}

func (s *Service) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Patient, int, error) {
	items, total, err := s.repo.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, apperror.NewStorage("list patients", err)
	}
	return items, total, nil
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	stats, err := s.repo.Stats(ctx, time.Now())
	if err != nil {
		return nil, apperror.NewStorage("patient stats", err)
	}
	return stats, nil
}
