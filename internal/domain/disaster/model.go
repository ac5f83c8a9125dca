// Package disaster tracks named disaster occurrences that the health
// surveillance activity responds to.
package disaster

import (
	"time"

	"github.com/google/uuid"
)

// Disaster type categories.
const (
	TypeEarthquake       = "EARTHQUAKE"
	TypeTsunami          = "TSUNAMI"
	TypeFlood            = "FLOOD"
	TypeLandslide        = "LANDSLIDE"
	TypeVolcanicEruption = "VOLCANIC_ERUPTION"
	TypeFire             = "FIRE"
	TypeCyclone          = "CYCLONE"
	TypeDrought          = "DROUGHT"
	TypeEpidemic         = "EPIDEMIC"
	TypeOther            = "OTHER"
)

// Event status.
const (
	StatusActive = "ACTIVE"
	StatusClosed = "CLOSED"
)

var (
	ValidTypes = []string{
		TypeEarthquake, TypeTsunami, TypeFlood, TypeLandslide,
		TypeVolcanicEruption, TypeFire, TypeCyclone, TypeDrought,
		TypeEpidemic, TypeOther,
	}
	ValidStatuses = []string{StatusActive, StatusClosed}
)

// Event is a disaster occurrence. Unlike clinical records it is not
// attributed to a creating user.
type Event struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Type        string    `db:"disaster_type" json:"disaster_type"`
	OccurredAt  time.Time `db:"occurred_at" json:"occurred_at"`
	Location    string    `db:"location" json:"location"`
	Province    string    `db:"province" json:"province"`
	Regency     string    `db:"regency" json:"regency"`
	Subdistrict *string   `db:"subdistrict" json:"subdistrict,omitempty"`
	Description *string   `db:"description" json:"description,omitempty"`
	Status      string    `db:"status" json:"status"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// CreateInput carries the fields accepted when registering an event.
// An omitted status defaults to ACTIVE.
type CreateInput struct {
	Name        string    `json:"name"`
	Type        string    `json:"disaster_type"`
	OccurredAt  time.Time `json:"occurred_at"`
	Location    string    `json:"location"`
	Province    string    `json:"province"`
	Regency     string    `json:"regency"`
	Subdistrict *string   `json:"subdistrict"`
	Description *string   `json:"description"`
	Status      string    `json:"status"`
}

// UpdateInput is a partial update.
type UpdateInput struct {
	Name        *string    `json:"name"`
	Type        *string    `json:"disaster_type"`
	OccurredAt  *time.Time `json:"occurred_at"`
	Location    *string    `json:"location"`
	Province    *string    `json:"province"`
	Regency     *string    `json:"regency"`
	Subdistrict *string    `json:"subdistrict"`
	Description *string    `json:"description"`
	Status      *string    `json:"status"`
}

// ListFilter narrows a listing. Search matches name, location and
// description case-insensitively.
type ListFilter struct {
	Search   string
	Type     string
	Status   string
	Province string
}

// Stats summarizes registered events.
type Stats struct {
	Total  int            `json:"total"`
	Active int            `json:"active"`
	Closed int            `json:"closed"`
	ByType map[string]int `json:"by_type"`
	Recent []*Event       `json:"recent"`
}
