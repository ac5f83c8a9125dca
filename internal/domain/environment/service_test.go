package environment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sirana/sirana/internal/domain/audit"
	"github.com/sirana/sirana/pkg/apperror"
)

type mockRepo struct {
	envs map[uuid.UUID]*Environment
}

func newMockRepo() *mockRepo {
	return &mockRepo{envs: make(map[uuid.UUID]*Environment)}
}

func (m *mockRepo) Create(_ context.Context, e *Environment) error {
	e.ID = uuid.New()
	e.CreatedAt = time.Now()
	e.UpdatedAt = time.Now()
	m.envs[e.ID] = e
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Environment, error) {
	e, ok := m.envs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *e
	cp.Photos = append([]string(nil), e.Photos...)
	return &cp, nil
}

func (m *mockRepo) Update(_ context.Context, e *Environment) error {
	if _, ok := m.envs[e.ID]; !ok {
		return ErrNotFound
	}
	cp := *e
	cp.Photos = append([]string(nil), e.Photos...)
	m.envs[e.ID] = &cp
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.envs[id]; !ok {
		return ErrNotFound
	}
	delete(m.envs, id)
	return nil
}

func (m *mockRepo) List(_ context.Context, filter ListFilter, limit, offset int) ([]*Environment, int, error) {
	var result []*Environment
	for _, e := range m.envs {
		if filter.PatientID != nil && e.PatientID != *filter.PatientID {
			continue
		}
		if filter.WaterAccess != "" && e.WaterAccess != filter.WaterAccess {
			continue
		}
		if filter.Sanitation != "" && e.Sanitation != filter.Sanitation {
			continue
		}
		result = append(result, e)
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

func (m *mockRepo) Stats(_ context.Context) (*Stats, error) {
	stats := &Stats{
		Total:         len(m.envs),
		ByWaterAccess: make(map[string]int),
		BySanitation:  make(map[string]int),
	}
	for _, e := range m.envs {
		stats.ByWaterAccess[e.WaterAccess]++
		stats.BySanitation[e.Sanitation]++
	}
	return stats, nil
}

type checkerStub struct {
	known map[uuid.UUID]bool
}

func (c *checkerStub) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	return c.known[id], nil
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

func newTestService(knownPatients ...uuid.UUID) (*Service, *mockRepo, *recorderStub) {
	repo := newMockRepo()
	rec := &recorderStub{}
	checker := &checkerStub{known: make(map[uuid.UUID]bool)}
	for _, id := range knownPatients {
		checker.known[id] = true
	}
	return NewService(repo, checker, rec, txStub{}), repo, rec
}

func strPtr(s string) *string { return &s }

func TestCreate_RoundTrip(t *testing.T) {
	pid := uuid.New()
	svc, _, rec := newTestService(pid)

	e, err := svc.Create(context.Background(), CreateInput{
		PatientID:   pid,
		WaterAccess: WaterUnavailable,
		Sanitation:  SanitationPoor,
		Photos:      []string{"/uploads/environments/a.jpg"},
		Notes:       strPtr("tenda darurat di lapangan desa"),
	}, uuid.New())
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	if e.WaterAccess != WaterUnavailable || e.Sanitation != SanitationPoor {
		t.Errorf("unexpected enums %s/%s", e.WaterAccess, e.Sanitation)
	}
	if len(e.Photos) != 1 {
		t.Errorf("expected 1 photo, got %d", len(e.Photos))
	}
	if len(rec.entries) != 1 || rec.entries[0].Action != "CREATE_ENVIRONMENT_ASSESSMENT" {
		t.Error("expected a CREATE_ENVIRONMENT_ASSESSMENT audit entry")
	}
}

func TestCreate_InvalidEnums(t *testing.T) {
	pid := uuid.New()
	svc, _, rec := newTestService(pid)

	_, err := svc.Create(context.Background(), CreateInput{
		PatientID:   pid,
		WaterAccess: "SOMETIMES",
		Sanitation:  "OKAY",
	}, uuid.New())
	ve, ok := err.(*apperror.ValidationError)
	if !ok {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(ve.Fields) != 2 {
		t.Errorf("expected 2 violations, got %v", ve.Fields)
	}
	if len(rec.entries) != 0 {
		t.Error("rejected create must not produce an audit entry")
	}
}

func TestCreate_MissingPatient(t *testing.T) {
	svc, repo, rec := newTestService()

	_, err := svc.Create(context.Background(), CreateInput{
		PatientID:   uuid.New(),
		WaterAccess: WaterAvailable,
		Sanitation:  SanitationGood,
	}, uuid.New())
	if _, ok := err.(*apperror.NotFoundError); !ok {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if len(repo.envs) != 0 || len(rec.entries) != 0 {
		t.Error("failed create must leave no record and no audit entry")
	}
}

func TestUpdate_AppendsPhotos(t *testing.T) {
	pid := uuid.New()
	svc, _, rec := newTestService(pid)
	actor := uuid.New()

	e, err := svc.Create(context.Background(), CreateInput{
		PatientID:   pid,
		WaterAccess: WaterAvailable,
		Sanitation:  SanitationGood,
		Photos:      []string{"/uploads/environments/a.jpg"},
	}, actor)
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	updated, err := svc.Update(context.Background(), e.ID, UpdateInput{
		Sanitation: strPtr(SanitationPoor),
		Photos:     []string{"/uploads/environments/b.jpg", "/uploads/environments/c.jpg"},
	}, actor)
	if err != nil {
		t.Fatalf("Update() error: %v", err)
	}

	want := []string{
		"/uploads/environments/a.jpg",
		"/uploads/environments/b.jpg",
		"/uploads/environments/c.jpg",
	}
	if len(updated.Photos) != len(want) {
		t.Fatalf("expected %d photos, got %d", len(want), len(updated.Photos))
	}
	for i, p := range want {
		if updated.Photos[i] != p {
			t.Errorf("photo %d: expected %s, got %s", i, p, updated.Photos[i])
		}
	}
	if updated.Sanitation != SanitationPoor {
		t.Errorf("expected sanitation POOR, got %s", updated.Sanitation)
	}
	if updated.WaterAccess != WaterAvailable {
		t.Error("untouched water_access must survive a partial update")
	}

	last := rec.entries[len(rec.entries)-1]
	if last.Action != "UPDATE_ENVIRONMENT_ASSESSMENT" || last.OldData == nil || last.NewData == nil {
		t.Error("update entry should carry both snapshots")
	}
}

func TestUpdate_NoPhotosKeepsExisting(t *testing.T) {
	pid := uuid.New()
	svc, _, _ := newTestService(pid)

	e, _ := svc.Create(context.Background(), CreateInput{
		PatientID:   pid,
		WaterAccess: WaterAvailable,
		Sanitation:  SanitationGood,
		Photos:      []string{"/uploads/environments/a.jpg"},
	}, uuid.New())

	updated, err := svc.Update(context.Background(), e.ID, UpdateInput{
		Notes: strPtr("kondisi membaik"),
	}, uuid.New())
	if err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	if len(updated.Photos) != 1 {
		t.Errorf("expected photos untouched, got %v", updated.Photos)
	}
}

func TestUpdate_EmptyNotesClears(t *testing.T) {
	pid := uuid.New()
	svc, _, _ := newTestService(pid)

	e, _ := svc.Create(context.Background(), CreateInput{
		PatientID:   pid,
		WaterAccess: WaterAvailable,
		Sanitation:  SanitationGood,
		Notes:       strPtr("sumur tercemar"),
	}, uuid.New())

	updated, err := svc.Update(context.Background(), e.ID, UpdateInput{
		Notes: strPtr("  "),
	}, uuid.New())
	if err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	if updated.Notes != nil {
		t.Errorf("expected notes cleared, got %q", *updated.Notes)
	}
}

func TestDelete_RecordsSnapshot(t *testing.T) {
	pid := uuid.New()
	svc, repo, rec := newTestService(pid)
	actor := uuid.New()

	e, _ := svc.Create(context.Background(), CreateInput{
		PatientID:   pid,
		WaterAccess: WaterAvailable,
		Sanitation:  SanitationGood,
	}, actor)
	if err := svc.Delete(context.Background(), e.ID, actor); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if len(repo.envs) != 0 {
		t.Error("record should be gone")
	}
	last := rec.entries[len(rec.entries)-1]
	if last.Action != "DELETE_ENVIRONMENT_ASSESSMENT" || last.OldData == nil {
		t.Error("delete entry should carry the old snapshot")
	}
}

func TestStats_GroupsByCondition(t *testing.T) {
	pid := uuid.New()
	svc, _, _ := newTestService(pid)

	for i := 0; i < 3; i++ {
		if _, err := svc.Create(context.Background(), CreateInput{
			PatientID: pid, WaterAccess: WaterUnavailable, Sanitation: SanitationPoor,
		}, uuid.New()); err != nil {
			t.Fatalf("Create() error: %v", err)
		}
	}
	if _, err := svc.Create(context.Background(), CreateInput{
		PatientID: pid, WaterAccess: WaterAvailable, Sanitation: SanitationGood,
	}, uuid.New()); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats() error: %v", err)
	}
	if stats.Total != 4 {
		t.Errorf("expected total 4, got %d", stats.Total)
	}
	if stats.ByWaterAccess[WaterUnavailable] != 3 || stats.ByWaterAccess[WaterAvailable] != 1 {
		t.Errorf("unexpected water breakdown %v", stats.ByWaterAccess)
	}
	if stats.BySanitation[SanitationPoor] != 3 {
		t.Errorf("unexpected sanitation breakdown %v", stats.BySanitation)
	}
}

// brokenRepo simulates a database outage on every lookup.
type brokenRepo struct {
	*mockRepo
	err error
}

func (b *brokenRepo) GetByID(_ context.Context, _ uuid.UUID) (*Environment, error) {
	return nil, b.err
}

func TestGet_StorageFailureIsNotNotFound(t *testing.T) {
	repo := &brokenRepo{mockRepo: newMockRepo(), err: errors.New("connection refused")}
	svc := NewService(repo, &checkerStub{known: map[uuid.UUID]bool{}}, &recorderStub{}, txStub{})

	_, err := svc.Get(context.Background(), uuid.New())
	if _, ok := err.(*apperror.NotFoundError); ok {
		t.Fatal("storage failure must not surface as a missing record")
	}
	var se *apperror.StorageError
	if !errors.As(err, &se) {
		t.Fatalf("expected StorageError, got %v", err)
	}
}
