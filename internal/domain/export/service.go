// Package export renders full record sets into downloadable workbooks.
// Unlike listings, exports carry every matching row with no page bound.
package export

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"

	"github.com/sirana/sirana/internal/domain/assessment"
	"github.com/sirana/sirana/internal/domain/environment"
	"github.com/sirana/sirana/internal/domain/needs"
	"github.com/sirana/sirana/internal/domain/patient"
	"github.com/sirana/sirana/pkg/apperror"
)

// Worksheet names.
const (
	sheetSummary      = "Summary"
	sheetPatients     = "Patients"
	sheetAssessments  = "Medical Assessments"
	sheetEnvironments = "Environment Assessments"
	sheetNeeds        = "Needs Identification"
)

// PatientSource feeds the patient sheets.
type PatientSource interface {
	All(ctx context.Context, filter patient.ListFilter) ([]*patient.Patient, error)
}

// AssessmentSource feeds the assessment sheets.
type AssessmentSource interface {
	All(ctx context.Context, filter assessment.ListFilter) ([]*assessment.Assessment, error)
}

// EnvironmentSource feeds the environment sheets.
type EnvironmentSource interface {
	All(ctx context.Context, filter environment.ListFilter) ([]*environment.Environment, error)
}

// NeedsSource feeds the needs sheets.
type NeedsSource interface {
	All(ctx context.Context, filter needs.ListFilter) ([]*needs.Needs, error)
}

// DateRange bounds an export by record timestamp, both ends inclusive.
// Assessments are bounded by visit date instead of creation time.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

// PatientFilter narrows a patient export.
type PatientFilter struct {
	DateRange
	AgeGroup string
}

// AssessmentFilter narrows an assessment export.
type AssessmentFilter struct {
	DateRange
	FollowUp string
}

// Service assembles workbooks from the domain record sets.
type Service struct {
	patients     PatientSource
	assessments  AssessmentSource
	environments EnvironmentSource
	needs        NeedsSource
}

func NewService(patients PatientSource, assessments AssessmentSource, environments EnvironmentSource, needs NeedsSource) *Service {
	return &Service{
		patients:     patients,
		assessments:  assessments,
		environments: environments,
		needs:        needs,
	}
}

// Filename suggests a download name carrying the export subject and day.
func Filename(subject string, now time.Time) string {
	return fmt.Sprintf("%s_SIRANA_%s.xlsx", subject, now.Format("2006-01-02"))
}

var patientHeaders = []string{
	"No", "NIK", "Full Name", "Sex", "Birthplace", "Birth Date", "Age Group",
	"Gestational Age (Weeks)", "Religion", "Occupation", "Phone", "Address",
	"RT", "RW", "Village", "District", "Regency", "Province",
	"Recorded By", "Recorded At", "Last Updated",
}

// Patients renders every matching patient into a single-sheet workbook.
func (s *Service) Patients(ctx context.Context, f PatientFilter) (*excelize.File, error) {
	items, err := s.patients.All(ctx, patient.ListFilter{
		AgeGroup: f.AgeGroup,
		From:     f.From,
		To:       f.To,
	})
	if err != nil {
		return nil, apperror.NewStorage("export patients", err)
	}

	wb := excelize.NewFile()
	sh, err := addSheet(wb, sheetPatients, patientHeaders)
	if err != nil {
		return nil, err
	}
	for i, p := range items {
		if err := sh.addRow(patientRow(i, p)...); err != nil {
			return nil, err
		}
	}
	if err := sh.finish(fmt.Sprintf("Total: %d patients", len(items))); err != nil {
		return nil, err
	}
	if err := finishWorkbook(wb, sheetPatients); err != nil {
		return nil, err
	}
	return wb, nil
}

func patientRow(i int, p *patient.Patient) []interface{} {
	return []interface{}{
		i + 1, orDash(p.NIK), p.Name, label(sexLabels, p.Sex),
		p.Birthplace, formatDate(p.BirthDate), label(ageGroupLabels, p.AgeGroup),
		intOrDash(p.GestationalWeeks), orDash(p.Religion), orDash(p.Occupation),
		orDash(p.Phone), p.Address, p.RT, p.RW, p.Village, p.District,
		p.Regency, p.Province, p.CreatorName,
		formatDateTime(p.CreatedAt), formatDateTime(p.UpdatedAt),
	}
}

var assessmentHeaders = []string{
	"No", "Record ID", "Visit Date", "Visit Time", "Patient NIK", "Patient Name",
	"Age Group", "Anamnesis", "Chief Complaint", "Present Illness History",
	"Allergy History", "Past Medical History", "Medication History",
	"GCS Eye", "GCS Verbal", "GCS Motor", "GCS Total", "General Condition",
	"Systolic BP", "Diastolic BP", "Blood Pressure", "Temperature (C)",
	"Pulse (bpm)", "Respiration (breaths/min)", "Weight (kg)", "Height (cm)",
	"Head", "Eyes", "Mouth", "Neck", "Thorax", "Cor", "Pulmo", "Abdomen",
	"Extremities", "Anus/Genitalia", "Supplementary Exam", "Supplementary Result",
	"Working Diagnosis", "Treatment Plan", "Follow-Up", "Referral Target",
	"Referral Reason", "Education Recipient", "Education Notes", "Clinician",
	"Recorded By", "Recorded At", "Last Updated",
}

// Assessments renders every matching clinical visit into a single-sheet
// workbook. The date range applies to the visit date.
func (s *Service) Assessments(ctx context.Context, f AssessmentFilter) (*excelize.File, error) {
	items, err := s.assessments.All(ctx, assessment.ListFilter{
		FollowUp: f.FollowUp,
		From:     f.From,
		To:       f.To,
	})
	if err != nil {
		return nil, apperror.NewStorage("export assessments", err)
	}

	wb := excelize.NewFile()
	sh, err := addSheet(wb, sheetAssessments, assessmentHeaders)
	if err != nil {
		return nil, err
	}
	for i, a := range items {
		row := []interface{}{
			i + 1, shortID(a.ID), formatDate(a.VisitDate), a.VisitTime,
			orDash(a.PatientNIK), a.PatientName, label(ageGroupLabels, a.PatientAgeGroup),
			label(anamnesisLabels, a.Anamnesis), a.ChiefComplaint,
			orDash(a.PresentIllnessHistory), orDash(a.AllergyHistory),
			orDash(a.PastMedicalHistory), orDash(a.MedicationHistory),
			a.GCSEye, a.GCSVerbal, a.GCSMotor, a.GCSTotal(),
			label(conditionLabels, a.GeneralCondition),
			intOrDash(a.Systolic), intOrDash(a.Diastolic), bloodPressure(a.Systolic, a.Diastolic),
			floatOrDash(a.Temperature), intOrDash(a.Pulse), intOrDash(a.Respiration),
			floatOrDash(a.Weight), floatOrDash(a.Height),
			orDash(a.Head), orDash(a.Eyes), orDash(a.Mouth), orDash(a.Neck),
			orDash(a.Thorax), orDash(a.Cor), orDash(a.Pulmo), orDash(a.Abdomen),
			orDash(a.Extremities), orDash(a.AnusGenitalia),
			label(suppExamLabels, a.SupplementaryExam), orDash(a.SupplementaryResult),
			a.WorkingDiagnosis, orDash(a.TreatmentPlan), label(followUpLabels, a.FollowUp),
			orDash(a.ReferralTarget), orDash(a.ReferralReason),
			label(eduRecipientLabels, a.EducationRecipient), orDash(a.EducationNotes),
			a.Clinician, a.CreatorName,
			formatDateTime(a.CreatedAt), formatDateTime(a.UpdatedAt),
		}
		if err := sh.addRow(row...); err != nil {
			return nil, err
		}
	}
	if err := sh.finish(fmt.Sprintf("Total: %d medical assessments", len(items))); err != nil {
		return nil, err
	}
	if err := finishWorkbook(wb, sheetAssessments); err != nil {
		return nil, err
	}
	return wb, nil
}

var environmentHeaders = []string{
	"No", "Record ID", "Patient NIK", "Patient Name", "Age Group", "Address",
	"RT", "RW", "Village", "District", "Clean Water Access", "Sanitation",
	"Photo Count", "Notes", "Recorded By", "Recorded At", "Last Updated",
}

// Environments renders every matching housing assessment into a
// single-sheet workbook.
func (s *Service) Environments(ctx context.Context, r DateRange) (*excelize.File, error) {
	items, err := s.environments.All(ctx, environment.ListFilter{From: r.From, To: r.To})
	if err != nil {
		return nil, apperror.NewStorage("export environments", err)
	}

	wb := excelize.NewFile()
	sh, err := addSheet(wb, sheetEnvironments, environmentHeaders)
	if err != nil {
		return nil, err
	}
	for i, e := range items {
		row := []interface{}{
			i + 1, shortID(e.ID), orDash(e.PatientNIK), e.PatientName,
			label(ageGroupLabels, e.PatientAgeGroup), e.PatientAddress,
			e.PatientRT, e.PatientRW, e.PatientVillage, e.PatientDistrict,
			label(waterLabels, e.WaterAccess), label(sanitationLabels, e.Sanitation),
			len(e.Photos), orDash(e.Notes), e.CreatorName,
			formatDateTime(e.CreatedAt), formatDateTime(e.UpdatedAt),
		}
		if err := sh.addRow(row...); err != nil {
			return nil, err
		}
	}
	if err := sh.finish(fmt.Sprintf("Total: %d environment assessments", len(items))); err != nil {
		return nil, err
	}
	if err := finishWorkbook(wb, sheetEnvironments); err != nil {
		return nil, err
	}
	return wb, nil
}

var needsHeaders = []string{
	"No", "Record ID", "Patient NIK", "Patient Name", "Age Group", "Address",
	"Medicines", "Medicine Priority", "Equipment", "Equipment Priority",
	"Infrastructure", "Infrastructure Priority", "Notes",
	"Recorded By", "Recorded At", "Last Updated",
}

// Needs renders every matching resource-gap record into a single-sheet
// workbook.
func (s *Service) Needs(ctx context.Context, r DateRange) (*excelize.File, error) {
	items, err := s.needs.All(ctx, needs.ListFilter{From: r.From, To: r.To})
	if err != nil {
		return nil, apperror.NewStorage("export needs", err)
	}

	wb := excelize.NewFile()
	sh, err := addSheet(wb, sheetNeeds, needsHeaders)
	if err != nil {
		return nil, err
	}
	for i, n := range items {
		row := []interface{}{
			i + 1, shortID(n.ID), orDash(n.PatientNIK), n.PatientName,
			label(ageGroupLabels, n.PatientAgeGroup), n.PatientAddress,
			joinOrDash(n.Medicines), label(priorityLabels, n.MedicinePriority),
			joinOrDash(n.Equipment), label(priorityLabels, n.EquipmentPriority),
			joinOrDash(n.Infrastructure), label(priorityLabels, n.InfrastructurePriority),
			orDash(n.Notes), n.CreatorName,
			formatDateTime(n.CreatedAt), formatDateTime(n.UpdatedAt),
		}
		if err := sh.addRow(row...); err != nil {
			return nil, err
		}
	}
	if err := sh.finish(fmt.Sprintf("Total: %d needs identifications", len(items))); err != nil {
		return nil, err
	}
	if err := finishWorkbook(wb, sheetNeeds); err != nil {
		return nil, err
	}
	return wb, nil
}

// Comprehensive assembles one workbook covering every entity: a summary
// sheet first, then a condensed sheet per entity. The four record sets
// load concurrently.
func (s *Service) Comprehensive(ctx context.Context, r DateRange, now time.Time) (*excelize.File, error) {
	var (
		patients     []*patient.Patient
		assessments  []*assessment.Assessment
		environments []*environment.Environment
		needsList    []*needs.Needs
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		patients, err = s.patients.All(ctx, patient.ListFilter{From: r.From, To: r.To})
		return
	})
	g.Go(func() (err error) {
		assessments, err = s.assessments.All(ctx, assessment.ListFilter{From: r.From, To: r.To})
		return
	})
	g.Go(func() (err error) {
		environments, err = s.environments.All(ctx, environment.ListFilter{From: r.From, To: r.To})
		return
	})
	g.Go(func() (err error) {
		needsList, err = s.needs.All(ctx, needs.ListFilter{From: r.From, To: r.To})
		return
	})
	if err := g.Wait(); err != nil {
		return nil, apperror.NewStorage("export comprehensive report", err)
	}

	wb := excelize.NewFile()
	if err := s.summarySheet(wb, patients, assessments, environments, needsList, now); err != nil {
		return nil, err
	}

	sh, err := addSheet(wb, sheetPatients, []string{
		"No", "NIK", "Full Name", "Sex", "Birthplace", "Birth Date", "Age Group",
		"Religion", "Occupation", "Address", "Village", "District", "Recorded At",
	})
	if err != nil {
		return nil, err
	}
	for i, p := range patients {
		row := []interface{}{
			i + 1, orDash(p.NIK), p.Name, label(sexLabels, p.Sex),
			p.Birthplace, formatDate(p.BirthDate), label(ageGroupLabels, p.AgeGroup),
			orDash(p.Religion), orDash(p.Occupation), p.Address,
			p.Village, p.District, formatDateTime(p.CreatedAt),
		}
		if err := sh.addRow(row...); err != nil {
			return nil, err
		}
	}
	if err := sh.finish(fmt.Sprintf("Total: %d patients", len(patients))); err != nil {
		return nil, err
	}

	sh, err = addSheet(wb, sheetAssessments, []string{
		"No", "Visit Date", "Patient Name", "Chief Complaint", "GCS",
		"Blood Pressure", "Working Diagnosis", "Follow-Up", "Clinician",
	})
	if err != nil {
		return nil, err
	}
	for i, a := range assessments {
		row := []interface{}{
			i + 1, formatDate(a.VisitDate), a.PatientName, a.ChiefComplaint,
			a.GCSTotal(), bloodPressure(a.Systolic, a.Diastolic),
			a.WorkingDiagnosis, label(followUpLabels, a.FollowUp), a.Clinician,
		}
		if err := sh.addRow(row...); err != nil {
			return nil, err
		}
	}
	if err := sh.finish(fmt.Sprintf("Total: %d medical assessments", len(assessments))); err != nil {
		return nil, err
	}

	sh, err = addSheet(wb, sheetEnvironments, []string{
		"No", "Patient Name", "Address", "Clean Water Access", "Sanitation",
		"Notes", "Recorded At",
	})
	if err != nil {
		return nil, err
	}
	for i, e := range environments {
		row := []interface{}{
			i + 1, e.PatientName, e.PatientAddress,
			label(waterLabels, e.WaterAccess), label(sanitationLabels, e.Sanitation),
			orDash(e.Notes), formatDateTime(e.CreatedAt),
		}
		if err := sh.addRow(row...); err != nil {
			return nil, err
		}
	}
	if err := sh.finish(fmt.Sprintf("Total: %d environment assessments", len(environments))); err != nil {
		return nil, err
	}

	sh, err = addSheet(wb, sheetNeeds, []string{
		"No", "Patient Name", "Medicines", "Medicine Priority", "Equipment",
		"Equipment Priority", "Infrastructure", "Infrastructure Priority", "Recorded At",
	})
	if err != nil {
		return nil, err
	}
	for i, n := range needsList {
		row := []interface{}{
			i + 1, n.PatientName,
			joinOrDash(n.Medicines), label(priorityLabels, n.MedicinePriority),
			joinOrDash(n.Equipment), label(priorityLabels, n.EquipmentPriority),
			joinOrDash(n.Infrastructure), label(priorityLabels, n.InfrastructurePriority),
			formatDateTime(n.CreatedAt),
		}
		if err := sh.addRow(row...); err != nil {
			return nil, err
		}
	}
	if err := sh.finish(fmt.Sprintf("Total: %d needs identifications", len(needsList))); err != nil {
		return nil, err
	}

	if err := finishWorkbook(wb, sheetSummary); err != nil {
		return nil, err
	}
	return wb, nil
}

func (s *Service) summarySheet(wb *excelize.File, patients []*patient.Patient, assessments []*assessment.Assessment, environments []*environment.Environment, needsList []*needs.Needs, now time.Time) error {
	sh, err := addSheet(wb, sheetSummary, []string{"Category", "Count"})
	if err != nil {
		return err
	}

	followUps := make(map[string]int)
	for _, a := range assessments {
		followUps[a.FollowUp]++
	}
	water := make(map[string]int)
	sanitation := make(map[string]int)
	for _, e := range environments {
		water[e.WaterAccess]++
		sanitation[e.Sanitation]++
	}

	rows := [][]interface{}{
		{"Registered Patients", len(patients)},
		{"Medical Assessments", len(assessments)},
		{"Environment Assessments", len(environments)},
		{"Needs Identifications", len(needsList)},
		{},
		{"MEDICAL FOLLOW-UP"},
		{"Referred", followUps[assessment.FollowUpReferred]},
		{"Discharged", followUps[assessment.FollowUpDischarged]},
		{"Not Referred", followUps[assessment.FollowUpNotReferred]},
		{},
		{"ENVIRONMENT CONDITIONS"},
		{"Clean Water Available", water[environment.WaterAvailable]},
		{"Clean Water Unavailable", water[environment.WaterUnavailable]},
		{"Good Sanitation", sanitation[environment.SanitationGood]},
		{"Poor Sanitation", sanitation[environment.SanitationPoor]},
		{},
		{"Exported At", formatDateTime(now)},
	}
	for _, row := range rows {
		if err := sh.addRow(row...); err != nil {
			return err
		}
	}
	return sh.done()
}
