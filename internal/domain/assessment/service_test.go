package assessment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sirana/sirana/internal/domain/audit"
	"github.com/sirana/sirana/pkg/apperror"
)

// -- Mocks --

type mockRepo struct {
	assessments map[uuid.UUID]*Assessment
}

func newMockRepo() *mockRepo {
	return &mockRepo{assessments: make(map[uuid.UUID]*Assessment)}
}

func (m *mockRepo) Create(_ context.Context, a *Assessment) error {
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	a.UpdatedAt = time.Now()
	m.assessments[a.ID] = a
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Assessment, error) {
	a, ok := m.assessments[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *mockRepo) Update(_ context.Context, a *Assessment) error {
	if _, ok := m.assessments[a.ID]; !ok {
		return ErrNotFound
	}
	cp := *a
	m.assessments[a.ID] = &cp
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.assessments[id]; !ok {
		return ErrNotFound
	}
	delete(m.assessments, id)
	return nil
}

func (m *mockRepo) List(_ context.Context, filter ListFilter, limit, offset int) ([]*Assessment, int, error) {
	var result []*Assessment
	for _, a := range m.assessments {
		if filter.FollowUp != "" && a.FollowUp != filter.FollowUp {
			continue
		}
		if filter.PatientID != nil && a.PatientID != *filter.PatientID {
			continue
		}
		result = append(result, a)
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

func (m *mockRepo) ListByPatient(_ context.Context, patientID uuid.UUID) ([]*Assessment, error) {
	var result []*Assessment
	for _, a := range m.assessments {
		if a.PatientID == patientID {
			result = append(result, a)
		}
	}
	return result, nil
}

func (m *mockRepo) Stats(_ context.Context, _ time.Time) (*Stats, error) {
	stats := &Stats{
		Total:       len(m.assessments),
		ByFollowUp:  make(map[string]int),
		ByAnamnesis: make(map[string]int),
	}
	for _, a := range m.assessments {
		stats.ByFollowUp[a.FollowUp]++
		stats.ByAnamnesis[a.Anamnesis]++
	}
	return stats, nil
}

func (m *mockRepo) TopDiagnoses(_ context.Context, limit int) ([]DiagnosisCount, error) {
	counts := make(map[string]int)
	for _, a := range m.assessments {
		counts[a.WorkingDiagnosis]++
	}
	var result []DiagnosisCount
	for d, n := range counts {
		result = append(result, DiagnosisCount{Diagnosis: d, Count: n})
	}
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
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

func intPtr(i int) *int           { return &i }
func floatPtr(f float64) *float64 { return &f }
func strPtr(s string) *string     { return &s }

func validCreateInput(patientID uuid.UUID) CreateInput {
	return CreateInput{
		PatientID:        patientID,
		VisitDate:        time.Date(2024, 9, 30, 0, 0, 0, 0, time.UTC),
		VisitTime:        "09:30",
		Anamnesis:        AnamnesisSelfReported,
		ChiefComplaint:   "fever and persistent cough",
		WorkingDiagnosis: "ISPA",
		Clinician:        "dr. Ratna",
	}
}

// -- Tests --

func TestCreate_AppliesDefaults(t *testing.T) {
	pid := uuid.New()
	svc, _, rec := newTestService(pid)

	a, err := svc.Create(context.Background(), validCreateInput(pid), uuid.New())
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	if a.GCSEye != 4 || a.GCSVerbal != 5 || a.GCSMotor != 6 {
		t.Errorf("expected default GCS 4/5/6, got %d/%d/%d", a.GCSEye, a.GCSVerbal, a.GCSMotor)
	}
	if a.GCSTotal() != 15 {
		t.Errorf("expected GCS total 15, got %d", a.GCSTotal())
	}
	if a.GeneralCondition != ConditionGood {
		t.Errorf("expected default condition GOOD, got %s", a.GeneralCondition)
	}
	if a.SupplementaryExam != SuppExamNone {
		t.Errorf("expected default supplementary exam NONE, got %s", a.SupplementaryExam)
	}
	if a.FollowUp != FollowUpDischarged {
		t.Errorf("expected default follow-up DISCHARGED, got %s", a.FollowUp)
	}
	if a.EducationRecipient != EduRecipientPatient {
		t.Errorf("expected default education recipient PATIENT, got %s", a.EducationRecipient)
	}

	if len(rec.entries) != 1 || rec.entries[0].Action != "CREATE_MEDICAL_ASSESSMENT" {
		t.Errorf("expected a CREATE_MEDICAL_ASSESSMENT audit entry")
	}
}

func TestCreate_ValidationCollectsAllViolations(t *testing.T) {
	pid := uuid.New()
	svc, _, rec := newTestService(pid)

	in := validCreateInput(pid)
	in.ChiefComplaint = "sick"
	in.WorkingDiagnosis = "fl"
	in.Clinician = "dr"
	in.GCSEye = 5
	in.Temperature = floatPtr(50)
	in.Pulse = intPtr(250)
	in.Respiration = intPtr(4)
	in.Systolic = intPtr(40)

	_, err := svc.Create(context.Background(), in, uuid.New())
	ve, ok := err.(*apperror.ValidationError)
	if !ok {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	fields := make(map[string]bool)
	for _, f := range ve.Fields {
		fields[f.Field] = true
	}
	for _, want := range []string{"chief_complaint", "working_diagnosis", "clinician", "gcs_eye", "temperature", "pulse", "respiration", "systolic"} {
		if !fields[want] {
			t.Errorf("expected violation for %q, got %v", want, ve.Fields)
		}
	}
	if len(rec.entries) != 0 {
		t.Error("rejected create must not produce an audit entry")
	}
}

func TestCreate_VitalsInRangePass(t *testing.T) {
	pid := uuid.New()
	svc, _, _ := newTestService(pid)

	in := validCreateInput(pid)
	in.Systolic = intPtr(120)
	in.Diastolic = intPtr(80)
	in.Temperature = floatPtr(36.8)
	in.Pulse = intPtr(72)
	in.Respiration = intPtr(18)
	in.Weight = floatPtr(62.5)
	in.Height = floatPtr(168)

	if _, err := svc.Create(context.Background(), in, uuid.New()); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
}

func TestCreate_MissingPatient(t *testing.T) {
	svc, repo, rec := newTestService() // no known patients

	_, err := svc.Create(context.Background(), validCreateInput(uuid.New()), uuid.New())
	if _, ok := err.(*apperror.NotFoundError); !ok {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if len(repo.assessments) != 0 {
		t.Error("no assessment row may exist for a missing patient")
	}
	if len(rec.entries) != 0 {
		t.Error("failed create must not produce an audit entry")
	}
}

func TestUpdate_PartialMergeKeepsRest(t *testing.T) {
	pid := uuid.New()
	svc, _, rec := newTestService(pid)
	actor := uuid.New()

	in := validCreateInput(pid)
	in.Pulse = intPtr(80)
	a, err := svc.Create(context.Background(), in, actor)
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	updated, err := svc.Update(context.Background(), a.ID, UpdateInput{
		FollowUp:       strPtr(FollowUpReferred),
		ReferralTarget: strPtr("RSUD Undata"),
	}, actor)
	if err != nil {
		t.Fatalf("Update() error: %v", err)
	}

	if updated.FollowUp != FollowUpReferred {
		t.Errorf("expected follow-up REFERRED, got %s", updated.FollowUp)
	}
	if updated.ReferralTarget == nil || *updated.ReferralTarget != "RSUD Undata" {
		t.Error("referral target not applied")
	}
	if updated.Pulse == nil || *updated.Pulse != 80 {
		t.Error("untouched vitals must survive a partial update")
	}

	last := rec.entries[len(rec.entries)-1]
	if last.Action != "UPDATE_MEDICAL_ASSESSMENT" {
		t.Errorf("unexpected audit action %q", last.Action)
	}
	if last.OldData == nil || last.NewData == nil {
		t.Error("update entry should carry both snapshots")
	}
}

func TestUpdate_RejectsOutOfRangeGCS(t *testing.T) {
	pid := uuid.New()
	svc, _, _ := newTestService(pid)
	a, _ := svc.Create(context.Background(), validCreateInput(pid), uuid.New())

	_, err := svc.Update(context.Background(), a.ID, UpdateInput{GCSMotor: intPtr(7)}, uuid.New())
	if _, ok := err.(*apperror.ValidationError); !ok {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestDelete_RecordsSnapshot(t *testing.T) {
	pid := uuid.New()
	svc, repo, rec := newTestService(pid)
	actor := uuid.New()

	a, _ := svc.Create(context.Background(), validCreateInput(pid), actor)
	if err := svc.Delete(context.Background(), a.ID, actor); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if len(repo.assessments) != 0 {
		t.Error("assessment should be gone")
	}
	last := rec.entries[len(rec.entries)-1]
	if last.Action != "DELETE_MEDICAL_ASSESSMENT" || last.OldData == nil {
		t.Error("delete entry should carry the old snapshot")
	}
}

func TestListByPatient(t *testing.T) {
	p1 := uuid.New()
	p2 := uuid.New()
	svc, _, _ := newTestService(p1, p2)

	for i := 0; i < 3; i++ {
		if _, err := svc.Create(context.Background(), validCreateInput(p1), uuid.New()); err != nil {
			t.Fatalf("Create() error: %v", err)
		}
	}
	if _, err := svc.Create(context.Background(), validCreateInput(p2), uuid.New()); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	items, err := svc.ListByPatient(context.Background(), p1)
	if err != nil {
		t.Fatalf("ListByPatient() error: %v", err)
	}
	if len(items) != 3 {
		t.Errorf("expected 3 assessments for p1, got %d", len(items))
	}
}

// brokenRepo simulates a database outage on every lookup.
type brokenRepo struct {
	*mockRepo
	err error
}

func (b *brokenRepo) GetByID(_ context.Context, _ uuid.UUID) (*Assessment, error) {
	return nil, b.err
}

func TestGet_StorageFailureIsNotNotFound(t *testing.T) {
	repo := &brokenRepo{mockRepo: newMockRepo(), err: errors.New("connection refused")}
	svc := NewService(repo, &checkerStub{known: map[uuid.UUID]bool{}}, &recorderStub{}, txStub{})

	_, err := svc.Get(context.Background(), uuid.New())
	if _, ok := err.(*apperror.NotFoundError); ok {
		t.Fatal("storage failure must not surface as a missing assessment")
	}
	var se *apperror.StorageError
	if !errors.As(err, &se) {
		t.Fatalf("expected StorageError, got %v", err)
	}
}
