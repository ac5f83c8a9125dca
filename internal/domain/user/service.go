package user

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/sirana/sirana/internal/domain/audit"
	"github.com/sirana/sirana/internal/platform/auth"
	"github.com/sirana/sirana/internal/platform/db"
	"github.com/sirana/sirana/pkg/apperror"
)

// bcryptCost matches the work factor the account hashes were created with.
const bcryptCost = 12

// Errors surfaced by Login. Both map to an unauthorized response so the
// caller cannot enumerate which emails exist.
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountDisabled    = errors.New("account is disabled")
)

var validRoles = []string{auth.RoleAdmin, auth.RoleFieldOfficer}

type Service struct {
	repo   Repository
	audit  audit.Recorder
	tx     db.Runner
	tokens *auth.TokenIssuer
}

func NewService(repo Repository, recorder audit.Recorder, tx db.Runner, tokens *auth.TokenIssuer) *Service {
	return &Service{repo: repo, audit: recorder, tx: tx, tokens: tokens}
}

func validateCreate(in CreateInput) error {
	errs := &apperror.ValidationError{}

	if !strings.Contains(in.Email, "@") {
		errs.Add("email", "email is not a valid address")
	}
	if len(in.Password) < 8 {
		errs.Add("password", "password must be at least 8 characters")
	}
	if len(strings.TrimSpace(in.Name)) < 3 {
		errs.Add("name", "name must be at least 3 characters")
	}
	if !contains(validRoles, in.Role) {
		errs.Add("role", "role must be ADMIN or FIELD_OFFICER")
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

func (s *Service) Create(ctx context.Context, in CreateInput, actorID uuid.UUID) (*User, error) {
	if err := validateCreate(in); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		return nil, apperror.NewStorage("hash password", err)
	}

	u := &User{
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		PasswordHash: string(hash),
		Name:         strings.TrimSpace(in.Name),
		EmployeeID:   normalizeOptional(in.EmployeeID),
		Role:         in.Role,
		JobTitle:     in.JobTitle,
		WorkUnit:     in.WorkUnit,
		Phone:        normalizeOptional(in.Phone),
		IsActive:     true,
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		existing, err := s.repo.GetByEmail(ctx, u.Email)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return apperror.NewStorage("check email", err)
		}
		if existing != nil {
			return apperror.NewConflict("email", u.Email)
		}
		if u.EmployeeID != nil {
			existing, err := s.repo.GetByEmployeeID(ctx, *u.EmployeeID)
			if err != nil && !errors.Is(err, ErrNotFound) {
				return apperror.NewStorage("check employee_id", err)
			}
			if existing != nil {
				return apperror.NewConflict("employee_id", *u.EmployeeID)
			}
		}
		if err := s.repo.Create(ctx, u); err != nil {
			return apperror.NewStorage("insert user", err)
		}
		return s.audit.Record(ctx, &audit.Entry{
			UserID:   actorID,
			Action:   audit.ActionCreated(audit.EntityUser),
			Entity:   audit.EntityUser,
			EntityID: u.ID.String(),
			NewData:  audit.Snapshot(u),
		})
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Login verifies credentials and issues a signed token. The attempt is
// recorded with the caller's address and client string.
func (s *Service) Login(ctx context.Context, email, password, ip, userAgent string) (*LoginResult, error) {
	u, err := s.repo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, apperror.NewStorage("get user by email", err)
	}
	if !u.IsActive {
		return nil, ErrAccountDisabled
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(u.ID, u.Email, u.Role)
	if err != nil {
		return nil, apperror.NewStorage("issue token", err)
	}

	now := time.Now()
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repo.UpdateLastLogin(ctx, u.ID, now); err != nil {
			return apperror.NewStorage("update last login", err)
		}
		return s.audit.Record(ctx, &audit.Entry{
			UserID:    u.ID,
			Action:    audit.ActionLogin,
			Entity:    audit.EntityUser,
			EntityID:  u.ID.String(),
			IPAddress: normalizeOptional(&ip),
			UserAgent: normalizeOptional(&userAgent),
		})
	})
	if err != nil {
		return nil, err
	}

	u.LastLoginAt = &now
	return &LoginResult{Token: token, User: u}, nil
}

// Logout only leaves an audit trace; tokens stay valid until expiry.
func (s *Service) Logout(ctx context.Context, actorID uuid.UUID, ip, userAgent string) error {
	return s.audit.Record(ctx, &audit.Entry{
		UserID:    actorID,
		Action:    audit.ActionLogout,
		Entity:    audit.EntityUser,
		EntityID:  actorID.String(),
		IPAddress: normalizeOptional(&ip),
		UserAgent: normalizeOptional(&userAgent),
	})
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperror.NewNotFound("user", id.String())
		}
		return nil, apperror.NewStorage("get user", err)
	}
	return u, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput, actorID uuid.UUID) (*User, error) {
	var updated *User

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		existing, err := s.repo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return apperror.NewNotFound("user", id.String())
			}
			return apperror.NewStorage("get user", err)
		}
		before := *existing

		if in.Name != nil {
			existing.Name = strings.TrimSpace(*in.Name)
		}
		if in.EmployeeID != nil {
			existing.EmployeeID = normalizeOptional(in.EmployeeID)
		}
		if in.Role != nil {
			existing.Role = *in.Role
		}
		if in.JobTitle != nil {
			existing.JobTitle = *in.JobTitle
		}
		if in.WorkUnit != nil {
			existing.WorkUnit = *in.WorkUnit
		}
		if in.Phone != nil {
			existing.Phone = normalizeOptional(in.Phone)
		}
		if in.IsActive != nil {
			existing.IsActive = *in.IsActive
		}

		errs := &apperror.ValidationError{}
		if len(strings.TrimSpace(existing.Name)) < 3 {
			errs.Add("name", "name must be at least 3 characters")
		}
		if !contains(validRoles, existing.Role) {
			errs.Add("role", "role must be ADMIN or FIELD_OFFICER")
		}
		if err := errs.ErrOrNil(); err != nil {
			return err
		}

		employeeIDChanged := existing.EmployeeID != nil &&
			(before.EmployeeID == nil || *before.EmployeeID != *existing.EmployeeID)
		if employeeIDChanged {
			other, err := s.repo.GetByEmployeeID(ctx, *existing.EmployeeID)
			if err != nil && !errors.Is(err, ErrNotFound) {
				return apperror.NewStorage("check employee_id", err)
			}
			if other != nil && other.ID != id {
				return apperror.NewConflict("employee_id", *existing.EmployeeID)
			}
		}

		if err := s.repo.Update(ctx, existing); err != nil {
			return apperror.NewStorage("update user", err)
		}
		updated = existing
		return s.audit.Record(ctx, &audit.Entry{
			UserID:   actorID,
			Action:   audit.ActionUpdated(audit.EntityUser),
			Entity:   audit.EntityUser,
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

// UpdateProfile lets an operator change their own display fields. Role
// and active flag are not reachable from here.
func (s *Service) UpdateProfile(ctx context.Context, actorID uuid.UUID, in ProfileInput) (*User, error) {
	return s.Update(ctx, actorID, UpdateInput{
		Name:       in.Name,
		EmployeeID: in.EmployeeID,
		JobTitle:   in.JobTitle,
		WorkUnit:   in.WorkUnit,
		Phone:      in.Phone,
	}, actorID)
}

// ChangePassword verifies the current credential before replacing it.
func (s *Service) ChangePassword(ctx context.Context, actorID uuid.UUID, current, next string) error {
	u, err := s.repo.GetByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return apperror.NewNotFound("user", actorID.String())
		}
		return apperror.NewStorage("get user", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(current)); err != nil {
		errs := &apperror.ValidationError{}
		errs.Add("current_password", "current password is incorrect")
		return errs
	}
	if len(next) < 8 {
		errs := &apperror.ValidationError{}
		errs.Add("new_password", "password must be at least 8 characters")
		return errs
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcryptCost)
	if err != nil {
		return apperror.NewStorage("hash password", err)
	}
	if err := s.repo.UpdatePassword(ctx, actorID, string(hash)); err != nil {
		return apperror.NewStorage("update password", err)
	}
	return nil
}

// ResetPassword sets a new credential without knowing the old one. The
// reset is always audited against the acting administrator.
func (s *Service) ResetPassword(ctx context.Context, id uuid.UUID, next string, actorID uuid.UUID) error {
	if len(next) < 8 {
		errs := &apperror.ValidationError{}
		errs.Add("new_password", "password must be at least 8 characters")
		return errs
	}

	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		if _, err := s.repo.GetByID(ctx, id); err != nil {
			if errors.Is(err, ErrNotFound) {
				return apperror.NewNotFound("user", id.String())
			}
			return apperror.NewStorage("get user", err)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(next), bcryptCost)
		if err != nil {
			return apperror.NewStorage("hash password", err)
		}
		if err := s.repo.UpdatePassword(ctx, id, string(hash)); err != nil {
			return apperror.NewStorage("update password", err)
		}
		return s.audit.Record(ctx, &audit.Entry{
			UserID:   actorID,
			Action:   audit.ActionResetPassword,
			Entity:   audit.EntityUser,
			EntityID: id.String(),
		})
	})
}

// Delete removes an account. Operators cannot delete themselves.
func (s *Service) Delete(ctx context.Context, id uuid.UUID, actorID uuid.UUID) error {
	if id == actorID {
		errs := &apperror.ValidationError{}
		errs.Add("id", "cannot delete your own account")
		return errs
	}

	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		existing, err := s.repo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return apperror.NewNotFound("user", id.String())
			}
			return apperror.NewStorage("get user", err)
		}
		if err := s.repo.Delete(ctx, id); err != nil {
			return apperror.NewStorage("delete user", err)
		}
		return s.audit.Record(ctx, &audit.Entry{
			UserID:   actorID,
			Action:   audit.ActionDeleted(audit.EntityUser),
			Entity:   audit.EntityUser,
			EntityID: id.String(),
			OldData:  audit.Snapshot(existing),
		})
	})
}

func (s *Service) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*User, int, error) {
	items, total, err := s.repo.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, apperror.NewStorage("list users", err)
	}
	return items, total, nil
}
