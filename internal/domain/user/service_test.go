package user

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sirana/sirana/internal/domain/audit"
	"github.com/sirana/sirana/internal/platform/auth"
	"github.com/sirana/sirana/pkg/apperror"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type mockRepo struct {
	users map[uuid.UUID]*User
}

func newMockRepo() *mockRepo {
	return &mockRepo{users: make(map[uuid.UUID]*User)}
}

func (m *mockRepo) Create(_ context.Context, u *User) error {
	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	u.UpdatedAt = time.Now()
	m.users[u.ID] = u
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *mockRepo) GetByEmail(_ context.Context, email string) (*User, error) {
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) GetByEmployeeID(_ context.Context, employeeID string) (*User, error) {
	for _, u := range m.users {
		if u.EmployeeID != nil && *u.EmployeeID == employeeID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) Update(_ context.Context, u *User) error {
	if _, ok := m.users[u.ID]; !ok {
		return ErrNotFound
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *mockRepo) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (m *mockRepo) UpdateLastLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.LastLoginAt = &at
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.users[id]; !ok {
		return ErrNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *mockRepo) List(_ context.Context, filter ListFilter, limit, offset int) ([]*User, int, error) {
	var result []*User
	for _, u := range m.users {
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(u.Name), strings.ToLower(filter.Search)) {
			continue
		}
		result = append(result, u)
	}
	total := len(result)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return result[offset:end], total, nil
}

type recorderStub struct {
	entries []*audit.Entry
}

func (r *recorderStub) Record(_ context.Context, e *audit.Entry) error {
	r.entries = append(r.entries, e)
	return nil
}

type txStub struct{}

func (txStub) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newTestService() (*Service, *mockRepo, *recorderStub) {
	repo := newMockRepo()
	rec := &recorderStub{}
	issuer := auth.NewTokenIssuer(testSecret, time.Hour)
	return NewService(repo, rec, txStub{}, issuer), repo, rec
}

func strPtr(s string) *string { return &s }

func validCreateInput() CreateInput {
	return CreateInput{
		Email:    "budi.santoso@dinkes.go.id",
		Password: "rahasia-sekali",
		Name:     "Budi Santoso",
		Role:     auth.RoleFieldOfficer,
		JobTitle: "Perawat",
		WorkUnit: "Puskesmas Birobuli",
	}
}

func TestCreate_HashesPassword(t *testing.T) {
	svc, _, rec := newTestService()

	u, err := svc.Create(context.Background(), validCreateInput(), uuid.New())
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if u.PasswordHash == "rahasia-sekali" || u.PasswordHash == "" {
		t.Error("password must be stored as a hash")
	}
	if !u.IsActive {
		t.Error("new accounts start active")
	}
	if len(rec.entries) != 1 || rec.entries[0].Action != "CREATE_USER" {
		t.Error("expected a CREATE_USER audit entry")
	}
	if rec.entries[0].NewData != nil && strings.Contains(string(rec.entries[0].NewData), "rahasia-sekali") {
		t.Error("audit snapshot must not leak the credential")
	}
}

func TestCreate_DuplicateEmail(t *testing.T) {
	svc, _, rec := newTestService()

	if _, err := svc.Create(context.Background(), validCreateInput(), uuid.New()); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	auditCount := len(rec.entries)

	in := validCreateInput()
	in.Name = "Budi Kedua"
	_, err := svc.Create(context.Background(), in, uuid.New())
	if _, ok := err.(*apperror.ConflictError); !ok {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if len(rec.entries) != auditCount {
		t.Error("rejected create must not produce an audit entry")
	}
}

func TestCreate_DuplicateEmployeeID(t *testing.T) {
	svc, _, _ := newTestService()

	in := validCreateInput()
	in.EmployeeID = strPtr("197001011990031001")
	if _, err := svc.Create(context.Background(), in, uuid.New()); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	other := validCreateInput()
	other.Email = "siti@dinkes.go.id"
	other.EmployeeID = strPtr("197001011990031001")
	_, err := svc.Create(context.Background(), other, uuid.New())
	if _, ok := err.(*apperror.ConflictError); !ok {
		t.Fatalf("expected ConflictError, got %v", err)
	}
}

func TestLogin_RoundTrip(t *testing.T) {
	svc, _, rec := newTestService()

	if _, err := svc.Create(context.Background(), validCreateInput(), uuid.New()); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	result, err := svc.Login(context.Background(), "budi.santoso@dinkes.go.id", "rahasia-sekali",
		"10.0.0.7", "sirana-mobile/1.2")
	if err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	if result.Token == "" {
		t.Error("expected a signed token")
	}
	if result.User.LastLoginAt == nil {
		t.Error("last login timestamp should be set")
	}

	last := rec.entries[len(rec.entries)-1]
	if last.Action != audit.ActionLogin {
		t.Errorf("expected LOGIN audit entry, got %q", last.Action)
	}
	if last.IPAddress == nil || *last.IPAddress != "10.0.0.7" {
		t.Error("login entry should carry the caller address")
	}
	if last.UserAgent == nil || *last.UserAgent != "sirana-mobile/1.2" {
		t.Error("login entry should carry the client string")
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, _, _ := newTestService()

	if _, err := svc.Create(context.Background(), validCreateInput(), uuid.New()); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	_, err := svc.Login(context.Background(), "budi.santoso@dinkes.go.id", "salah", "", "")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLogin_DisabledAccount(t *testing.T) {
	svc, repo, _ := newTestService()

	u, err := svc.Create(context.Background(), validCreateInput(), uuid.New())
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	repo.users[u.ID].IsActive = false

	_, err = svc.Login(context.Background(), u.Email, "rahasia-sekali", "", "")
	if !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("expected ErrAccountDisabled, got %v", err)
	}
}

func TestChangePassword_RequiresCurrent(t *testing.T) {
	svc, _, _ := newTestService()

	u, err := svc.Create(context.Background(), validCreateInput(), uuid.New())
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	if err := svc.ChangePassword(context.Background(), u.ID, "salah", "kata-sandi-baru"); err == nil {
		t.Error("expected rejection with wrong current password")
	}
	if err := svc.ChangePassword(context.Background(), u.ID, "rahasia-sekali", "kata-sandi-baru"); err != nil {
		t.Fatalf("ChangePassword() error: %v", err)
	}
	if _, err := svc.Login(context.Background(), u.Email, "kata-sandi-baru", "", ""); err != nil {
		t.Errorf("login with new password failed: %v", err)
	}
}

func TestResetPassword_Audited(t *testing.T) {
	svc, _, rec := newTestService()
	admin := uuid.New()

	u, err := svc.Create(context.Background(), validCreateInput(), admin)
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	if err := svc.ResetPassword(context.Background(), u.ID, "sandi-darurat", admin); err != nil {
		t.Fatalf("ResetPassword() error: %v", err)
	}

	last := rec.entries[len(rec.entries)-1]
	if last.Action != audit.ActionResetPassword || last.UserID != admin {
		t.Error("reset must be audited against the acting administrator")
	}
	if _, err := svc.Login(context.Background(), u.Email, "sandi-darurat", "", ""); err != nil {
		t.Errorf("login with reset password failed: %v", err)
	}
}

func TestDelete_SelfForbidden(t *testing.T) {
	svc, repo, _ := newTestService()

	u, err := svc.Create(context.Background(), validCreateInput(), uuid.New())
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	err = svc.Delete(context.Background(), u.ID, u.ID)
	if _, ok := err.(*apperror.ValidationError); !ok {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(repo.users) != 1 {
		t.Error("account must survive a rejected self-delete")
	}

	if err := svc.Delete(context.Background(), u.ID, uuid.New()); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if len(repo.users) != 0 {
		t.Error("account should be gone")
	}
}

func TestUpdate_EmployeeIDConflictExcludesSelf(t *testing.T) {
	svc, _, _ := newTestService()

	in := validCreateInput()
	in.EmployeeID = strPtr("197001011990031001")
	u, err := svc.Create(context.Background(), in, uuid.New())
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	// Re-submitting the same employee id on the same account is fine.
	if _, err := svc.Update(context.Background(), u.ID, UpdateInput{
		EmployeeID: strPtr("197001011990031001"),
	}, uuid.New()); err != nil {
		t.Fatalf("Update() error: %v", err)
	}

	other := validCreateInput()
	other.Email = "siti@dinkes.go.id"
	second, err := svc.Create(context.Background(), other, uuid.New())
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	_, err = svc.Update(context.Background(), second.ID, UpdateInput{
		EmployeeID: strPtr("197001011990031001"),
	}, uuid.New())
	if _, ok := err.(*apperror.ConflictError); !ok {
		t.Fatalf("expected ConflictError, got %v", err)
	}
}

// brokenRepo simulates a database outage on every lookup.
type brokenRepo struct {
	*mockRepo
	err error
}

func (b *brokenRepo) GetByID(_ context.Context, _ uuid.UUID) (*User, error) {
	return nil, b.err
}

func (b *brokenRepo) GetByEmail(_ context.Context, _ string) (*User, error) {
	return nil, b.err
}

func newBrokenService() *Service {
	repo := &brokenRepo{mockRepo: newMockRepo(), err: errors.New("connection refused")}
	issuer := auth.NewTokenIssuer(testSecret, time.Hour)
	return NewService(repo, &recorderStub{}, txStub{}, issuer)
}

func TestGet_StorageFailureIsNotNotFound(t *testing.T) {
	svc := newBrokenService()

	_, err := svc.Get(context.Background(), uuid.New())
	if _, ok := err.(*apperror.NotFoundError); ok {
		t.Fatal("storage failure must not surface as a missing user")
	}
	var se *apperror.StorageError
	if !errors.As(err, &se) {
		t.Fatalf("expected StorageError, got %v", err)
	}
}

func TestLogin_StorageFailureIsNotInvalidCredentials(t *testing.T) {
	svc := newBrokenService()

	_, err := svc.Login(context.Background(), "admin@sirana.go.id", "admin123", "127.0.0.1", "test")
	if errors.Is(err, ErrInvalidCredentials) {
		t.Fatal("storage failure must not look like a bad credential")
	}
	var se *apperror.StorageError
	if !errors.As(err, &se) {
		t.Fatalf("expected StorageError, got %v", err)
	}
}

func TestCreate_EmailCheckStorageFailure(t *testing.T) {
	svc := newBrokenService()

	_, err := svc.Create(context.Background(), validCreateInput(), uuid.New())
	var se *apperror.StorageError
	if !errors.As(err, &se) {
		t.Fatalf("expected StorageError from failed uniqueness check, got %v", err)
	}
}
