// Package needs manages resource-gap records: medicines, medical
// equipment, and infrastructure a patient still lacks.
package needs

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sirana/sirana/pkg/apperror"
)

// Priority levels.
const (
	PriorityLow      = "LOW"
	PriorityModerate = "MODERATE"
	PriorityHigh     = "HIGH"
	PriorityCritical = "CRITICAL"
)

var ValidPriorities = []string{PriorityLow, PriorityModerate, PriorityHigh, PriorityCritical}

// ItemList is a list of free-text need items. It unmarshals from either
// a JSON array of strings or a single comma-separated string; both forms
// are normalized to trimmed, non-empty items.
type ItemList []string

func (l *ItemList) UnmarshalJSON(data []byte) error {
	var items []string
	if err := json.Unmarshal(data, &items); err == nil {
		*l = normalizeItems(items)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*l = SplitItems(s)
		return nil
	}
	return &apperror.UnsupportedInputError{Field: "items"}
}

// SplitItems turns a comma-separated string into a normalized item list.
func SplitItems(s string) ItemList {
	return normalizeItems(strings.Split(s, ","))
}

func normalizeItems(items []string) ItemList {
	out := ItemList{}
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Needs is a resource-gap record for a patient. Each list carries its
// own priority level.
type Needs struct {
	ID                     uuid.UUID `db:"id" json:"id"`
	PatientID              uuid.UUID `db:"patient_id" json:"patient_id"`
	Medicines              ItemList  `db:"medicines" json:"medicines"`
	Equipment              ItemList  `db:"equipment" json:"equipment"`
	Infrastructure         ItemList  `db:"infrastructure" json:"infrastructure"`
	MedicinePriority       string    `db:"medicine_priority" json:"medicine_priority"`
	EquipmentPriority      string    `db:"equipment_priority" json:"equipment_priority"`
	InfrastructurePriority string    `db:"infrastructure_priority" json:"infrastructure_priority"`
	Notes                  *string   `db:"notes" json:"notes,omitempty"`
	CreatedBy              uuid.UUID `db:"created_by" json:"created_by"`
	CreatedAt              time.Time `db:"created_at" json:"created_at"`
	UpdatedAt              time.Time `db:"updated_at" json:"updated_at"`

	// Joined display fields.
	PatientName     string  `db:"-" json:"patient_name,omitempty"`
	PatientNIK      *string `db:"-" json:"patient_nik,omitempty"`
	PatientAgeGroup string  `db:"-" json:"patient_age_group,omitempty"`
	PatientAddress  string  `db:"-" json:"patient_address,omitempty"`
	CreatorName     string  `db:"-" json:"creator_name,omitempty"`
}

// CreateInput carries the fields accepted when recording needs. Omitted
// priorities default to MODERATE.
type CreateInput struct {
	PatientID              uuid.UUID `json:"patient_id"`
	Medicines              ItemList  `json:"medicines"`
	Equipment              ItemList  `json:"equipment"`
	Infrastructure         ItemList  `json:"infrastructure"`
	MedicinePriority       string    `json:"medicine_priority"`
	EquipmentPriority      string    `json:"equipment_priority"`
	InfrastructurePriority string    `json:"infrastructure_priority"`
	Notes                  *string   `json:"notes"`
}

// UpdateInput is a partial update. A nil list leaves the stored list
// untouched; a supplied list replaces it.
type UpdateInput struct {
	Medicines              *ItemList `json:"medicines"`
	Equipment              *ItemList `json:"equipment"`
	Infrastructure         *ItemList `json:"infrastructure"`
	MedicinePriority       *string   `json:"medicine_priority"`
	EquipmentPriority      *string   `json:"equipment_priority"`
	InfrastructurePriority *string   `json:"infrastructure_priority"`
	Notes                  *string   `json:"notes"`
}

// ListFilter narrows a listing.
type ListFilter struct {
	PatientID              *uuid.UUID
	MedicinePriority       string
	EquipmentPriority      string
	InfrastructurePriority string
	CreatedBy              *uuid.UUID
	From                   *time.Time
	To                     *time.Time
}

// ItemCount is one ranked entry in a top-N breakdown.
type ItemCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Stats summarizes needs records by priority and ranks the most
// frequently requested items per list.
type Stats struct {
	Total                    int            `json:"total"`
	ByMedicinePriority       map[string]int `json:"by_medicine_priority"`
	ByEquipmentPriority      map[string]int `json:"by_equipment_priority"`
	ByInfrastructurePriority map[string]int `json:"by_infrastructure_priority"`
	TopMedicines             []ItemCount    `json:"top_medicines"`
	TopEquipment             []ItemCount    `json:"top_equipment"`
	TopInfrastructure        []ItemCount    `json:"top_infrastructure"`
}
