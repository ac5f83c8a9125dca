package assessment

import (
	"time"

	"github.com/google/uuid"
)

// Anamnesis source.
const (
	AnamnesisSelfReported    = "SELF_REPORTED"
	AnamnesisReportedByOther = "REPORTED_BY_OTHER"
)

// General condition on examination.
const (
	ConditionGood     = "GOOD"
	ConditionModerate = "MODERATE"
	ConditionPoor     = "POOR"
)

// Supplementary examination kinds.
const (
	SuppExamNone      = "NONE"
	SuppExamLab       = "LAB"
	SuppExamRadiology = "RADIOLOGY"
	SuppExamECG       = "ECG"
	SuppExamOther     = "OTHER"
)

// Follow-up decisions.
const (
	FollowUpDischarged  = "DISCHARGED"
	FollowUpReferred    = "REFERRED"
	FollowUpNotReferred = "NOT_REFERRED"
)

// Education recipients.
const (
	EduRecipientPatient = "PATIENT"
	EduRecipientFamily  = "FAMILY"
)

var (
	ValidAnamnesisTypes = []string{AnamnesisSelfReported, AnamnesisReportedByOther}
	ValidConditions     = []string{ConditionGood, ConditionModerate, ConditionPoor}
	ValidSuppExams      = []string{SuppExamNone, SuppExamLab, SuppExamRadiology, SuppExamECG, SuppExamOther}
	ValidFollowUps      = []string{FollowUpDischarged, FollowUpReferred, FollowUpNotReferred}
	ValidEduRecipients  = []string{EduRecipientPatient, EduRecipientFamily}
)

// GCS component defaults: a fully conscious patient.
const (
	DefaultGCSEye    = 4
	DefaultGCSVerbal = 5
	DefaultGCSMotor  = 6
)

// Assessment maps to the medical_assessment table.
type Assessment struct {
	ID        uuid.UUID `db:"id" json:"id"`
	PatientID uuid.UUID `db:"patient_id" json:"patient_id"`
	VisitDate time.Time `db:"visit_date" json:"visit_date"`
	VisitTime string    `db:"visit_time" json:"visit_time"`
	Anamnesis string    `db:"anamnesis_type" json:"anamnesis_type"`

	ChiefComplaint        string  `db:"chief_complaint" json:"chief_complaint"`
	PresentIllnessHistory *string `db:"present_illness_history" json:"present_illness_history,omitempty"`
	AllergyHistory        *string `db:"allergy_history" json:"allergy_history,omitempty"`
	PastMedicalHistory    *string `db:"past_medical_history" json:"past_medical_history,omitempty"`
	MedicationHistory     *string `db:"medication_history" json:"medication_history,omitempty"`

	GCSEye           int    `db:"gcs_eye" json:"gcs_eye"`
	GCSVerbal        int    `db:"gcs_verbal" json:"gcs_verbal"`
	GCSMotor         int    `db:"gcs_motor" json:"gcs_motor"`
	GeneralCondition string `db:"general_condition" json:"general_condition"`

	Systolic    *int     `db:"systolic" json:"systolic,omitempty"`
	Diastolic   *int     `db:"diastolic" json:"diastolic,omitempty"`
	Temperature *float64 `db:"temperature" json:"temperature,omitempty"`
	Pulse       *int     `db:"pulse" json:"pulse,omitempty"`
	Respiration *int     `db:"respiration" json:"respiration,omitempty"`
	Weight      *float64 `db:"weight" json:"weight,omitempty"`
	Height      *float64 `db:"height" json:"height,omitempty"`

	Head          *string `db:"head" json:"head,omitempty"`
	Eyes          *string `db:"eyes" json:"eyes,omitempty"`
	Mouth         *string `db:"mouth" json:"mouth,omitempty"`
	Neck          *string `db:"neck" json:"neck,omitempty"`
	Thorax        *string `db:"thorax" json:"thorax,omitempty"`
	Cor           *string `db:"cor" json:"cor,omitempty"`
	Pulmo         *string `db:"pulmo" json:"pulmo,omitempty"`
	Abdomen       *string `db:"abdomen" json:"abdomen,omitempty"`
	Extremities   *string `db:"extremities" json:"extremities,omitempty"`
	AnusGenitalia *string `db:"anus_genitalia" json:"anus_genitalia,omitempty"`

	SupplementaryExam   string  `db:"supplementary_exam" json:"supplementary_exam"`
	SupplementaryResult *string `db:"supplementary_result" json:"supplementary_result,omitempty"`

	WorkingDiagnosis string  `db:"working_diagnosis" json:"working_diagnosis"`
	TreatmentPlan    *string `db:"treatment_plan" json:"treatment_plan,omitempty"`
	FollowUp         string  `db:"follow_up" json:"follow_up"`
	ReferralTarget   *string `db:"referral_target" json:"referral_target,omitempty"`
	ReferralReason   *string `db:"referral_reason" json:"referral_reason,omitempty"`

	EducationRecipient string  `db:"education_recipient" json:"education_recipient"`
	EducationNotes     *string `db:"education_notes" json:"education_notes,omitempty"`

	Clinician string    `db:"clinician" json:"clinician"`
	CreatedBy uuid.UUID `db:"created_by" json:"created_by"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`

	// Joined columns.
	PatientName     string  `db:"-" json:"patient_name,omitempty"`
	PatientNIK      *string `db:"-" json:"patient_nik,omitempty"`
	PatientAgeGroup string  `db:"-" json:"patient_age_group,omitempty"`
	PatientSex      string  `db:"-" json:"patient_sex,omitempty"`
	CreatorName     string  `db:"-" json:"creator_name,omitempty"`
}

// GCSTotal is the combined Glasgow Coma Scale score.
func (a *Assessment) GCSTotal() int {
	return a.GCSEye + a.GCSVerbal + a.GCSMotor
}

// CreateInput carries the fields accepted when recording an assessment.
// Zero GCS components and empty enum strings take their defaults.
type CreateInput struct {
	PatientID uuid.UUID `json:"patient_id"`
	VisitDate time.Time `json:"visit_date"`
	VisitTime string    `json:"visit_time"`
	Anamnesis string    `json:"anamnesis_type"`

	ChiefComplaint        string  `json:"chief_complaint"`
	PresentIllnessHistory *string `json:"present_illness_history"`
	AllergyHistory        *string `json:"allergy_history"`
	PastMedicalHistory    *string `json:"past_medical_history"`
	MedicationHistory     *string `json:"medication_history"`

	GCSEye           int    `json:"gcs_eye"`
	GCSVerbal        int    `json:"gcs_verbal"`
	GCSMotor         int    `json:"gcs_motor"`
	GeneralCondition string `json:"general_condition"`

	Systolic    *int     `json:"systolic"`
	Diastolic   *int     `json:"diastolic"`
	Temperature *float64 `json:"temperature"`
	Pulse       *int     `json:"pulse"`
	Respiration *int     `json:"respiration"`
	Weight      *float64 `json:"weight"`
	Height      *float64 `json:"height"`

	Head          *string `json:"head"`
	Eyes          *string `json:"eyes"`
	Mouth         *string `json:"mouth"`
	Neck          *string `json:"neck"`
	Thorax        *string `json:"thorax"`
	Cor           *string `json:"cor"`
	Pulmo         *string `json:"pulmo"`
	Abdomen       *string `json:"abdomen"`
	Extremities   *string `json:"extremities"`
	AnusGenitalia *string `json:"anus_genitalia"`

	SupplementaryExam   string  `json:"supplementary_exam"`
	SupplementaryResult *string `json:"supplementary_result"`

	WorkingDiagnosis string  `json:"working_diagnosis"`
	TreatmentPlan    *string `json:"treatment_plan"`
	FollowUp         string  `json:"follow_up"`
	ReferralTarget   *string `json:"referral_target"`
	ReferralReason   *string `json:"referral_reason"`

	EducationRecipient string  `json:"education_recipient"`
	EducationNotes     *string `json:"education_notes"`

	Clinician string `json:"clinician"`
}

// UpdateInput carries a partial update; nil fields are left untouched.
type UpdateInput struct {
	VisitDate *time.Time `json:"visit_date"`
	VisitTime *string    `json:"visit_time"`
	Anamnesis *string    `json:"anamnesis_type"`

	ChiefComplaint        *string `json:"chief_complaint"`
	PresentIllnessHistory *string `json:"present_illness_history"`
	AllergyHistory        *string `json:"allergy_history"`
	PastMedicalHistory    *string `json:"past_medical_history"`
	MedicationHistory     *string `json:"medication_history"`

	GCSEye           *int    `json:"gcs_eye"`
	GCSVerbal        *int    `json:"gcs_verbal"`
	GCSMotor         *int    `json:"gcs_motor"`
	GeneralCondition *string `json:"general_condition"`

	Systolic    *int     `json:"systolic"`
	Diastolic   *int     `json:"diastolic"`
	Temperature *float64 `json:"temperature"`
	Pulse       *int     `json:"pulse"`
	Respiration *int     `json:"respiration"`
	Weight      *float64 `json:"weight"`
	Height      *float64 `json:"height"`

	Head          *string `json:"head"`
	Eyes          *string `json:"eyes"`
	Mouth         *string `json:"mouth"`
	Neck          *string `json:"neck"`
	Thorax        *string `json:"thorax"`
	Cor           *string `json:"cor"`
	Pulmo         *string `json:"pulmo"`
	Abdomen       *string `json:"abdomen"`
	Extremities   *string `json:"extremities"`
	AnusGenitalia *string `json:"anus_genitalia"`

	SupplementaryExam   *string `json:"supplementary_exam"`
	SupplementaryResult *string `json:"supplementary_result"`

	WorkingDiagnosis *string `json:"working_diagnosis"`
	TreatmentPlan    *string `json:"treatment_plan"`
	FollowUp         *string `json:"follow_up"`
	ReferralTarget   *string `json:"referral_target"`
	ReferralReason   *string `json:"referral_reason"`

	EducationRecipient *string `json:"education_recipient"`
	EducationNotes     *string `json:"education_notes"`

	Clinician *string `json:"clinician"`
}

// ListFilter narrows assessment listings. Date bounds are inclusive and apply
// to the visit date.
type ListFilter struct {
	PatientID *uuid.UUID
	FollowUp  string
	From      *time.Time
	To        *time.Time
	CreatedBy *uuid.UUID
}

// Stats summarizes assessments for dashboards.
type Stats struct {
	Total       int            `json:"total"`
	Today       int            `json:"today"`
	ThisWeek    int            `json:"this_week"`
	ThisMonth   int            `json:"this_month"`
	ByFollowUp  map[string]int `json:"by_follow_up"`
	ByAnamnesis map[string]int `json:"by_anamnesis"`
}

// DiagnosisCount is one row of the top-diagnoses ranking.
type DiagnosisCount struct {
	Diagnosis string `json:"diagnosis"`
	Count     int    `json:"count"`
}
