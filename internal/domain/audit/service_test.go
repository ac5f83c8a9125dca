package audit

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sirana/sirana/pkg/apperror"
)

type mockRepo struct {
	entries []*Entry
	failing bool
}

func (m *mockRepo) Insert(_ context.Context, entry *Entry) error {
	if m.failing {
		return fmt.Errorf("insert failed")
	}
	entry.ID = uuid.New()
	entry.CreatedAt = time.Now()
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Entry, error) {
	for _, e := range m.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) List(_ context.Context, filter ListFilter, limit, offset int) ([]*Entry, int, error) {
	var matched []*Entry
	for _, e := range m.entries {
		if filter.Entity != "" && e.Entity != filter.Entity {
			continue
		}
		if filter.Action != "" && e.Action != filter.Action {
			continue
		}
		if filter.UserID != nil && e.UserID != *filter.UserID {
			continue
		}
		matched = append(matched, e)
	}
	total := len(matched)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func TestRecord_RequiresUserAndAction(t *testing.T) {
	svc := NewService(&mockRepo{})

	err := svc.Record(context.Background(), &Entry{Action: "CREATE_PATIENT", Entity: EntityPatient})
	if err == nil {
		t.Error("expected error for missing user id")
	}

	err = svc.Record(context.Background(), &Entry{UserID: uuid.New()})
	if err == nil {
		t.Error("expected error for missing action")
	}
}

func TestRecord_Appends(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo)

	entry := &Entry{
		UserID:   uuid.New(),
		Action:   ActionCreated(EntityPatient),
		Entity:   EntityPatient,
		EntityID: uuid.New().String(),
		NewData:  Snapshot(map[string]string{"name": "Siti"}),
	}
	if err := svc.Record(context.Background(), entry); err != nil {
		t.Fatalf("Record() error: %v", err)
	}
	if len(repo.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(repo.entries))
	}
	if entry.ID == uuid.Nil {
		t.Error("expected entry ID to be assigned")
	}
}

func TestActionHelpers(t *testing.T) {
	if got := ActionCreated(EntityDisaster); got != "CREATE_DISASTER_EVENT" {
		t.Errorf("unexpected action %q", got)
	}
	if got := ActionUpdated(EntityUser); got != "UPDATE_USER" {
		t.Errorf("unexpected action %q", got)
	}
	if got := ActionDeleted(EntityNeeds); got != "DELETE_NEEDS_IDENTIFICATION" {
		t.Errorf("unexpected action %q", got)
	}
}

func TestSnapshot(t *testing.T) {
	if Snapshot(nil) != nil {
		t.Error("expected nil snapshot for nil value")
	}
	b := Snapshot(map[string]int{"a": 1})
	if string(b) != `{"a":1}` {
		t.Errorf("unexpected snapshot %s", b)
	}
}

func TestList_Filters(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo)
	userA := uuid.New()
	userB := uuid.New()

	seed := []*Entry{
		{UserID: userA, Action: ActionCreated(EntityPatient), Entity: EntityPatient, EntityID: "1"},
		{UserID: userA, Action: ActionUpdated(EntityPatient), Entity: EntityPatient, EntityID: "1"},
		{UserID: userB, Action: ActionLogin, Entity: EntityUser, EntityID: userB.String()},
	}
	for _, e := range seed {
		if err := svc.Record(context.Background(), e); err != nil {
			t.Fatalf("Record() error: %v", err)
		}
	}

	items, total, err := svc.List(context.Background(), ListFilter{Entity: EntityPatient}, 10, 0)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if total != 2 || len(items) != 2 {
		t.Errorf("expected 2 patient entries, got total=%d len=%d", total, len(items))
	}

	items, total, err = svc.List(context.Background(), ListFilter{UserID: &userB}, 10, 0)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if total != 1 || items[0].Action != ActionLogin {
		t.Errorf("expected the login entry for userB, got total=%d", total)
	}
}

// brokenRepo simulates a database outage on every lookup.
type brokenRepo struct {
	*mockRepo
	err error
}

func (b *brokenRepo) GetByID(_ context.Context, _ uuid.UUID) (*Entry, error) {
	return nil, b.err
}

func TestGet_StorageFailureIsNotNotFound(t *testing.T) {
	svc := NewService(&brokenRepo{mockRepo: &mockRepo{}, err: errors.New("connection refused")})

	_, err := svc.Get(context.Background(), uuid.New())
	if _, ok := err.(*apperror.NotFoundError); ok {
		t.Fatal("storage failure must not surface as a missing entry")
	}
	var se *apperror.StorageError
	if !errors.As(err, &se) {
		t.Fatalf("expected StorageError, got %v", err)
	}
}
