// Package environment manages housing and sanitation assessments
// recorded for displaced patients.
package environment

import (
	"time"

	"github.com/google/uuid"
)

// Clean water access.
const (
	WaterAvailable   = "AVAILABLE"
	WaterUnavailable = "UNAVAILABLE"
)

// Sanitation condition.
const (
	SanitationGood = "GOOD"
	SanitationPoor = "POOR"
)

var (
	ValidWaterAccess = []string{WaterAvailable, WaterUnavailable}
	ValidSanitation  = []string{SanitationGood, SanitationPoor}
)

// Environment is a housing snapshot for a patient. Photos holds
// references to already-uploaded images in insertion order.
type Environment struct {
	ID          uuid.UUID `db:"id" json:"id"`
	PatientID   uuid.UUID `db:"patient_id" json:"patient_id"`
	WaterAccess string    `db:"water_access" json:"water_access"`
	Sanitation  string    `db:"sanitation" json:"sanitation"`
	Photos      []string  `db:"photos" json:"photos"`
	Notes       *string   `db:"notes" json:"notes,omitempty"`
	CreatedBy   uuid.UUID `db:"created_by" json:"created_by"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`

	// Joined display fields.
	PatientName     string  `db:"-" json:"patient_name,omitempty"`
	PatientNIK      *string `db:"-" json:"patient_nik,omitempty"`
	PatientAgeGroup string  `db:"-" json:"patient_age_group,omitempty"`
	PatientAddress  string  `db:"-" json:"patient_address,omitempty"`
	PatientRT       string  `db:"-" json:"patient_rt,omitempty"`
	PatientRW       string  `db:"-" json:"patient_rw,omitempty"`
	PatientVillage  string  `db:"-" json:"patient_village,omitempty"`
	PatientDistrict string  `db:"-" json:"patient_district,omitempty"`
	CreatorName     string  `db:"-" json:"creator_name,omitempty"`
}

// CreateInput carries the fields accepted when recording an assessment.
type CreateInput struct {
	PatientID   uuid.UUID `json:"patient_id"`
	WaterAccess string    `json:"water_access"`
	Sanitation  string    `json:"sanitation"`
	Photos      []string  `json:"photos"`
	Notes       *string   `json:"notes"`
}

// UpdateInput is a partial update. Photos, when non-empty, are appended
// to the record's existing list rather than replacing it.
type UpdateInput struct {
	WaterAccess *string  `json:"water_access"`
	Sanitation  *string  `json:"sanitation"`
	Photos      []string `json:"photos"`
	Notes       *string  `json:"notes"`
}

// ListFilter narrows a listing. From and To bound the creation
// timestamp inclusively.
type ListFilter struct {
	PatientID   *uuid.UUID
	WaterAccess string
	Sanitation  string
	CreatedBy   *uuid.UUID
	From        *time.Time
	To          *time.Time
}

// Stats summarizes assessments by category.
type Stats struct {
	Total         int            `json:"total"`
	ByWaterAccess map[string]int `json:"by_water_access"`
	BySanitation  map[string]int `json:"by_sanitation"`
}
