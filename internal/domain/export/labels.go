package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sirana/sirana/internal/domain/assessment"
	"github.com/sirana/sirana/internal/domain/environment"
	"github.com/sirana/sirana/internal/domain/needs"
	"github.com/sirana/sirana/internal/domain/patient"
)

// Workbooks render stored enum values as the labels relief coordinators
// read, not the wire constants.
var (
	ageGroupLabels = map[string]string{
		patient.AgeGroupToddler:       "Toddler (1-5 yrs)",
		patient.AgeGroupChild:         "Child (5-17 yrs)",
		patient.AgeGroupAdult:         "Adult (17-59 yrs)",
		patient.AgeGroupElderly:       "Elderly (60+ yrs)",
		patient.AgeGroupPregnantWoman: "Pregnant Woman",
	}

	sexLabels = map[string]string{
		patient.SexMale:   "Male",
		patient.SexFemale: "Female",
	}

	anamnesisLabels = map[string]string{
		assessment.AnamnesisSelfReported:    "Self-Reported",
		assessment.AnamnesisReportedByOther: "Reported by Other",
	}

	conditionLabels = map[string]string{
		assessment.ConditionGood:     "Good",
		assessment.ConditionModerate: "Moderate",
		assessment.ConditionPoor:     "Poor",
	}

	suppExamLabels = map[string]string{
		assessment.SuppExamNone:      "None",
		assessment.SuppExamLab:       "Laboratory",
		assessment.SuppExamRadiology: "Radiology",
		assessment.SuppExamECG:       "ECG",
		assessment.SuppExamOther:     "Other",
	}

	followUpLabels = map[string]string{
		assessment.FollowUpDischarged:  "Discharged",
		assessment.FollowUpReferred:    "Referred",
		assessment.FollowUpNotReferred: "Not Referred",
	}

	eduRecipientLabels = map[string]string{
		assessment.EduRecipientPatient: "Patient",
		assessment.EduRecipientFamily:  "Patient's Family",
	}

	waterLabels = map[string]string{
		environment.WaterAvailable:   "Available",
		environment.WaterUnavailable: "Unavailable",
	}

	sanitationLabels = map[string]string{
		environment.SanitationGood: "Good",
		environment.SanitationPoor: "Poor",
	}

	priorityLabels = map[string]string{
		needs.PriorityLow:      "Low",
		needs.PriorityModerate: "Moderate",
		needs.PriorityHigh:     "High",
		needs.PriorityCritical: "Critical",
	}
)

// label falls back to the raw value so an unmapped constant still shows
// up in the sheet instead of vanishing.
func label(m map[string]string, v string) string {
	if l, ok := m[v]; ok {
		return l
	}
	return v
}

// dash marks optional values that were never recorded.
const dash = "-"

func formatDate(t time.Time) string {
	return t.Format("2 January 2006")
}

func formatDateTime(t time.Time) string {
	return t.Format("2 January 2006 15:04")
}

func orDash(p *string) string {
	if p == nil || *p == "" {
		return dash
	}
	return *p
}

func intOrDash(p *int) interface{} {
	if p == nil {
		return dash
	}
	return *p
}

func floatOrDash(p *float64) interface{} {
	if p == nil {
		return dash
	}
	return *p
}

func joinOrDash(items []string) string {
	if len(items) == 0 {
		return dash
	}
	return strings.Join(items, ", ")
}

func bloodPressure(systolic, diastolic *int) string {
	if systolic == nil || diastolic == nil {
		return dash
	}
	return fmt.Sprintf("%d/%d mmHg", *systolic, *diastolic)
}

func shortID(id uuid.UUID) string {
	return id.String()[:8]
}
