package audit

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Entity names used in audit actions and entity columns.
const (
	EntityPatient     = "PATIENT"
	EntityAssessment  = "MEDICAL_ASSESSMENT"
	EntityEnvironment = "ENVIRONMENT_ASSESSMENT"
	EntityNeeds       = "NEEDS_IDENTIFICATION"
	EntityDisaster    = "DISASTER_EVENT"
	EntityUser        = "USER"
)

// Actions not derived from a mutation verb.
const (
	ActionLogin         = "LOGIN"
	ActionLogout        = "LOGOUT"
	ActionResetPassword = "RESET_PASSWORD"
)

// ActionCreated returns the audit action for creating the given entity.
func ActionCreated(entity string) string { return "CREATE_" + entity }

// ActionUpdated returns the audit action for updating the given entity.
func ActionUpdated(entity string) string { return "UPDATE_" + entity }

// ActionDeleted returns the audit action for deleting the given entity.
func ActionDeleted(entity string) string { return "DELETE_" + entity }

// Entry maps to the audit_log table. Entries are append-only.
type Entry struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	UserID    uuid.UUID       `db:"user_id" json:"user_id"`
	Action    string          `db:"action" json:"action"`
	Entity    string          `db:"entity" json:"entity"`
	EntityID  string          `db:"entity_id" json:"entity_id"`
	OldData   json.RawMessage `db:"old_data" json:"old_data,omitempty"`
	NewData   json.RawMessage `db:"new_data" json:"new_data,omitempty"`
	IPAddress *string         `db:"ip_address" json:"ip_address,omitempty"`
	UserAgent *string         `db:"user_agent" json:"user_agent,omitempty"`
	UserName  string          `db:"-" json:"user_name,omitempty"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// Snapshot serializes an entity row for the old_data/new_data columns.
func Snapshot(v interface{}) json.RawMessage {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}

// ListFilter narrows audit queries. Zero values mean no constraint.
type ListFilter struct {
	UserID *uuid.UUID
	Entity string
	Action string
	From   *time.Time
	To     *time.Time
}
