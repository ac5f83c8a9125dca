package patient

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sirana/sirana/internal/domain/audit"
	"github.com/sirana/sirana/pkg/apperror"
)

// -- Mocks --

type mockRepo struct {
	patients map[uuid.UUID]*Patient
}

func newMockRepo() *mockRepo {
	return &mockRepo{patients: make(map[uuid.UUID]*Patient)}
}

func (m *mockRepo) Create(_ context.Context, p *Patient) error {
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	p.UpdatedAt = time.Now()
	m.patients[p.ID] = p
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockRepo) GetByNIK(_ context.Context, nik string) (*Patient, error) {
	for _, p := range m.patients {
		if p.NIK != nil && *p.NIK == nik {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) Update(_ context.Context, p *Patient) error {
	if _, ok := m.patients[p.ID]; !ok {
		return ErrNotFound
	}
	p.UpdatedAt = time.Now()
	cp := *p
	m.patients[p.ID] = &cp
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.patients[id]; !ok {
		return ErrNotFound
	}
	delete(m.patients, id)
	return nil
}

func (m *mockRepo) List(_ context.Context, filter ListFilter, limit, offset int) ([]*Patient, int, error) {
	var result []*Patient
	for _, p := range m.patients {
		if filter.Sex != "" && p.Sex != filter.Sex {
			continue
		}
		if filter.AgeGroup != "" && p.AgeGroup != filter.AgeGroup {
			continue
		}
		result = append(result, p)
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

func (m *mockRepo) Stats(_ context.Context, _ time.Time) (*Stats, error) {
	stats := &Stats{
		Total:      len(m.patients),
		ByAgeGroup: make(map[string]int),
		BySex:      make(map[string]int),
	}
	for _, p := range m.patients {
		stats.ByAgeGroup[p.AgeGroup]++
		stats.BySex[p.Sex]++
	}
	return stats, nil
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
	return NewService(repo, rec, txStub{}), repo, rec
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func validCreateInput() CreateInput {
	return CreateInput{
		Name:       "Siti Aminah",
		Sex:        SexFemale,
		Birthplace: "Palu",
		BirthDate:  time.Date(1990, 4, 12, 0, 0, 0, 0, time.UTC),
		Address:    "Jl. Merdeka 5",
		RT:         "003",
		RW:         "002",
		Village:    "Balaroa",
		District:   "Palu Barat",
		Regency:    "Palu",
		Province:   "Sulawesi Tengah",
		AgeGroup:   AgeGroupAdult,
	}
}

// -- Tests --

func TestCreate_RoundTrip(t *testing.T) {
	svc, repo, rec := newTestService()
	actor := uuid.New()

	p, err := svc.Create(context.Background(), validCreateInput(), actor)
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if p.ID == uuid.Nil {
		t.Error("expected ID to be assigned")
	}
	if p.CreatedBy != actor {
		t.Errorf("expected created_by %s, got %s", actor, p.CreatedBy)
	}

	got, err := svc.Get(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got.Name != "Siti Aminah" {
		t.Errorf("unexpected name %q", got.Name)
	}
	_ = repo

	if len(rec.entries) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(rec.entries))
	}
	entry := rec.entries[0]
	if entry.Action != "CREATE_PATIENT" {
		t.Errorf("unexpected audit action %q", entry.Action)
	}
	if entry.EntityID != p.ID.String() {
		t.Errorf("audit entity id mismatch")
	}
	if entry.NewData == nil || entry.OldData != nil {
		t.Error("create entry should carry new data only")
	}
}

func TestCreate_ValidationCollectsAllViolations(t *testing.T) {
	svc, _, rec := newTestService()

	in := CreateInput{
		Name:     "Al",
		Sex:      "UNKNOWN",
		AgeGroup: "INFANT",
		NIK:      strPtr("12345"),
	}
	_, err := svc.Create(context.Background(), in, uuid.New())

	var ve *apperror.ValidationError
	if !asValidation(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	fields := make(map[string]bool)
	for _, f := range ve.Fields {
		fields[f.Field] = true
	}
	for _, want := range []string{"name", "sex", "age_group", "nik", "birth_date"} {
		if !fields[want] {
			t.Errorf("expected violation for %q, got %v", want, ve.Fields)
		}
	}
	if len(rec.entries) != 0 {
		t.Error("rejected create must not produce an audit entry")
	}
}

func asValidation(err error, target **apperror.ValidationError) bool {
	ve, ok := err.(*apperror.ValidationError)
	if ok {
		*target = ve
	}
	return ok
}

func TestCreate_GestationalWeeksOnlyForPregnant(t *testing.T) {
	svc, _, _ := newTestService()

	in := validCreateInput()
	in.GestationalWeeks = intPtr(20)
	p, err := svc.Create(context.Background(), in, uuid.New())
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if p.GestationalWeeks != nil {
		t.Error("gestational weeks must be dropped for non-pregnant age groups")
	}

	in = validCreateInput()
	in.AgeGroup = AgeGroupPregnantWoman
	in.GestationalWeeks = intPtr(20)
	p, err = svc.Create(context.Background(), in, uuid.New())
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if p.GestationalWeeks == nil || *p.GestationalWeeks != 20 {
		t.Error("gestational weeks must be kept for pregnant women")
	}
}

func TestCreate_NIKConflict(t *testing.T) {
	svc, _, rec := newTestService()

	in := validCreateInput()
	in.NIK = strPtr("1234567890123456")
	if _, err := svc.Create(context.Background(), in, uuid.New()); err != nil {
		t.Fatalf("first Create() error: %v", err)
	}
	auditCount := len(rec.entries)

	in2 := validCreateInput()
	in2.Name = "Budi Santoso"
	in2.NIK = strPtr("1234567890123456")
	_, err := svc.Create(context.Background(), in2, uuid.New())

	if _, ok := err.(*apperror.ConflictError); !ok {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if len(rec.entries) != auditCount {
		t.Error("failed create must not add an audit entry")
	}
}

func TestUpdate_PartialMergeAndClears(t *testing.T) {
	svc, _, rec := newTestService()
	actor := uuid.New()

	in := validCreateInput()
	in.NIK = strPtr("1234567890123456")
	in.Religion = strPtr("Islam")
	p, err := svc.Create(context.Background(), in, actor)
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	updated, err := svc.Update(context.Background(), p.ID, UpdateInput{
		Name:     strPtr("Siti A. Rahma"),
		NIK:      strPtr(""),
		Religion: strPtr(""),
	}, actor)
	if err != nil {
		t.Fatalf("Update() error: %v", err)
	}

	if updated.Name != "Siti A. Rahma" {
		t.Errorf("unexpected name %q", updated.Name)
	}
	if updated.NIK != nil {
		t.Error("empty nik must clear the stored value")
	}
	if updated.Religion != nil {
		t.Error("empty religion must clear the stored value")
	}
	if updated.Address != "Jl. Merdeka 5" {
		t.Error("untouched fields must survive a partial update")
	}

	last := rec.entries[len(rec.entries)-1]
	if last.Action != "UPDATE_PATIENT" {
		t.Errorf("unexpected audit action %q", last.Action)
	}
	var oldSnap, newSnap map[string]interface{}
	if err := json.Unmarshal(last.OldData, &oldSnap); err != nil {
		t.Fatalf("old snapshot not valid JSON: %v", err)
	}
	if err := json.Unmarshal(last.NewData, &newSnap); err != nil {
		t.Fatalf("new snapshot not valid JSON: %v", err)
	}
	if oldSnap["name"] != "Siti Aminah" || newSnap["name"] != "Siti A. Rahma" {
		t.Errorf("snapshots do not reflect the change: old=%v new=%v", oldSnap["name"], newSnap["name"])
	}
}

func TestUpdate_NIKConflictExcludesSelf(t *testing.T) {
	svc, _, _ := newTestService()
	actor := uuid.New()

	in := validCreateInput()
	in.NIK = strPtr("1111111111111111")
	a, _ := svc.Create(context.Background(), in, actor)

	in2 := validCreateInput()
	in2.Name = "Budi Santoso"
	in2.NIK = strPtr("2222222222222222")
	b, _ := svc.Create(context.Background(), in2, actor)

	// Re-submitting a patient's own NIK is fine.
	if _, err := svc.Update(context.Background(), a.ID, UpdateInput{NIK: strPtr("1111111111111111")}, actor); err != nil {
		t.Errorf("own NIK must not conflict: %v", err)
	}

	// Taking another patient's NIK conflicts.
	_, err := svc.Update(context.Background(), b.ID, UpdateInput{NIK: strPtr("1111111111111111")}, actor)
	if _, ok := err.(*apperror.ConflictError); !ok {
		t.Errorf("expected ConflictError, got %v", err)
	}
}

func TestDelete_RecordsSnapshot(t *testing.T) {
	svc, repo, rec := newTestService()
	actor := uuid.New()

	p, _ := svc.Create(context.Background(), validCreateInput(), actor)
	if err := svc.Delete(context.Background(), p.ID, actor); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if _, ok := repo.patients[p.ID]; ok {
		t.Error("patient should be gone")
	}

	last := rec.entries[len(rec.entries)-1]
	if last.Action != "DELETE_PATIENT" {
		t.Errorf("unexpected audit action %q", last.Action)
	}
	if last.OldData == nil || last.NewData != nil {
		t.Error("delete entry should carry old data only")
	}
}

// brokenRepo simulates a database outage on every lookup.
type brokenRepo struct {
	*mockRepo
	err error
}

func (b *brokenRepo) GetByID(_ context.Context, _ uuid.UUID) (*Patient, error) {
	return nil, b.err
}

func (b *brokenRepo) GetByNIK(_ context.Context, _ string) (*Patient, error) {
	return nil, b.err
}

func TestGet_StorageFailureIsNotNotFound(t *testing.T) {
	repo := &brokenRepo{mockRepo: newMockRepo(), err: errors.New("connection refused")}
	svc := NewService(repo, &recorderStub{}, txStub{})

	_, err := svc.Get(context.Background(), uuid.New())
	if _, ok := err.(*apperror.NotFoundError); ok {
		t.Fatal("storage failure must not surface as a missing patient")
	}
	var se *apperror.StorageError
	if !errors.As(err, &se) {
		t.Fatalf("expected StorageError, got %v", err)
	}
}

func TestCreate_NIKCheckStorageFailure(t *testing.T) {
	repo := &brokenRepo{mockRepo: newMockRepo(), err: errors.New("connection refused")}
	svc := NewService(repo, &recorderStub{}, txStub{})

	in := validCreateInput()
	in.NIK = strPtr("1234567890123456")
	_, err := svc.Create(context.Background(), in, uuid.New())
	var se *apperror.StorageError
	if !errors.As(err, &se) {
		t.Fatalf("expected StorageError from failed uniqueness check, got %v", err)
	}
}

func TestDelete_NotFound(t *testing.T) {
	svc, _, rec := newTestService()
	err := svc.Delete(context.Background(), uuid.New(), uuid.New())
	if _, ok := err.(*apperror.NotFoundError); !ok {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if len(rec.entries) != 0 {
		t.Error("failed delete must not produce an audit entry")
	}
}
