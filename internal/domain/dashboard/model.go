// Package dashboard aggregates read-only statistics across the record
// store for the overview screens.
package dashboard

import (
	"time"

	"github.com/google/uuid"
)

// RangeFilter restricts a count to a creation-time window and,
// optionally, a creating user. Nil fields mean no constraint.
type RangeFilter struct {
	From      *time.Time
	To        *time.Time
	CreatedBy *uuid.UUID
}

// RecentPatient is the condensed patient row shown on the dashboard.
type RecentPatient struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	NIK       *string   `db:"nik" json:"nik,omitempty"`
	Sex       string    `db:"sex" json:"sex"`
	AgeGroup  string    `db:"age_group" json:"age_group"`
	Address   string    `db:"address" json:"address"`
	BirthDate time.Time `db:"birth_date" json:"birth_date"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// RecentAssessment is the condensed assessment row shown on the dashboard.
type RecentAssessment struct {
	ID               uuid.UUID `db:"id" json:"id"`
	PatientID        uuid.UUID `db:"patient_id" json:"patient_id"`
	PatientName      string    `db:"-" json:"patient_name"`
	PatientNIK       *string   `db:"-" json:"patient_nik,omitempty"`
	WorkingDiagnosis string    `db:"working_diagnosis" json:"working_diagnosis"`
	FollowUp         string    `db:"follow_up" json:"follow_up"`
	VisitDate        time.Time `db:"visit_date" json:"visit_date"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

// ActiveDisaster is the condensed disaster row shown on the dashboard.
type ActiveDisaster struct {
	ID         uuid.UUID `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	Type       string    `db:"disaster_type" json:"disaster_type"`
	OccurredAt time.Time `db:"occurred_at" json:"occurred_at"`
	Location   string    `db:"location" json:"location"`
	Province   string    `db:"province" json:"province"`
}

// DiagnosisCount is one ranked diagnosis.
type DiagnosisCount struct {
	Diagnosis string `json:"diagnosis"`
	Count     int    `json:"count"`
}

// DayCount is one day in the trailing trend window.
type DayCount struct {
	Date        string `json:"date"`
	Patients    int    `json:"patients"`
	Assessments int    `json:"assessments"`
}

// PairCount is a same-day patient and assessment count.
type PairCount struct {
	Patients    int
	Assessments int
}

// Summary holds headline totals per entity.
type Summary struct {
	TotalPatients    int `json:"total_patients"`
	TotalAssessments int `json:"total_assessments"`
	TotalEnvironment int `json:"total_environments"`
	TotalNeeds       int `json:"total_needs"`
	TotalUsers       int `json:"total_users"`
}

// Window is a patient/assessment count pair for a time window.
type Window struct {
	Patients    int `json:"patients"`
	Assessments int `json:"assessments"`
}

// Charts holds the category breakdowns rendered as charts.
type Charts struct {
	PatientsByAgeGroup     map[string]int   `json:"patients_by_age_group"`
	PatientsBySex          map[string]int   `json:"patients_by_sex"`
	AssessmentsByFollowUp  map[string]int   `json:"assessments_by_follow_up"`
	EnvironmentsByWater    map[string]int   `json:"environments_by_water_access"`
	EnvironmentsBySanitary map[string]int   `json:"environments_by_sanitation"`
	Last7Days              []DayCount       `json:"last_7_days"`
	TopDiagnoses           []DiagnosisCount `json:"top_diagnoses"`
}

// Overview is the full administrator dashboard.
type Overview struct {
	Summary         Summary             `json:"summary"`
	Today           Window              `json:"today"`
	ThisWeek        Window              `json:"this_week"`
	ThisMonth       Window              `json:"this_month"`
	Charts          Charts              `json:"charts"`
	RecentPatients  []*RecentPatient    `json:"recent_patients"`
	RecentVisits    []*RecentAssessment `json:"recent_assessments"`
	ActiveDisasters []*ActiveDisaster   `json:"active_disasters"`
}

// MyOverview is the field officer dashboard, scoped to records the
// requesting user created.
type MyOverview struct {
	TotalPatients    int                 `json:"total_patients"`
	TotalAssessments int                 `json:"total_assessments"`
	Today            Window              `json:"today"`
	RecentPatients   []*RecentPatient    `json:"recent_patients"`
	RecentVisits     []*RecentAssessment `json:"recent_assessments"`
}
