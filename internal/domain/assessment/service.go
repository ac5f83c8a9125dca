package assessment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sirana/sirana/internal/domain/audit"
	"github.com/sirana/sirana/internal/platform/db"
	"github.com/sirana/sirana/pkg/apperror"
)

type Service struct {
	repo     Repository
	patients PatientChecker
	audit    audit.Recorder
	tx       db.Runner
}

func NewService(repo Repository, patients PatientChecker, recorder audit.Recorder, tx db.Runner) *Service {
	return &Service{repo: repo, patients: patients, audit: recorder, tx: tx}
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}

// applyDefaults fills unset GCS components and enum fields.
func applyDefaults(a *Assessment) {
	if a.GCSEye == 0 {
		a.GCSEye = DefaultGCSEye
	}
	if a.GCSVerbal == 0 {
		a.GCSVerbal = DefaultGCSVerbal
	}
	if a.GCSMotor == 0 {
		a.GCSMotor = DefaultGCSMotor
	}
	if a.GeneralCondition == "" {
		a.GeneralCondition = ConditionGood
	}
	if a.SupplementaryExam == "" {
		a.SupplementaryExam = SuppExamNone
	}
	if a.FollowUp == "" {
		a.FollowUp = FollowUpDischarged
	}
	if a.EducationRecipient == "" {
		a.EducationRecipient = EduRecipientPatient
	}
}

func validate(a *Assessment) error {
	errs := &apperror.ValidationError{}

	if len(strings.TrimSpace(a.ChiefComplaint)) < 5 {
		errs.Add("chief_complaint", "chief complaint must be at least 5 characters")
	}
	if len(strings.TrimSpace(a.WorkingDiagnosis)) < 3 {
		errs.Add("working_diagnosis", "working diagnosis must be at least 3 characters")
	}
	if len(strings.TrimSpace(a.Clinician)) < 3 {
		errs.Add("clinician", "clinician name must be at least 3 characters")
	}
	if a.VisitDate.IsZero() {
		errs.Add("visit_date", "visit_date is required")
	}
	if !contains(ValidAnamnesisTypes, a.Anamnesis) {
		errs.Add("anamnesis_type", "anamnesis_type is not a recognized value")
	}
	if !contains(ValidConditions, a.GeneralCondition) {
		errs.Add("general_condition", "general_condition is not a recognized value")
	}
	if !contains(ValidSuppExams, a.SupplementaryExam) {
		errs.Add("supplementary_exam", "supplementary_exam is not a recognized value")
	}
	if !contains(ValidFollowUps, a.FollowUp) {
		errs.Add("follow_up", "follow_up is not a recognized value")
	}
	if !contains(ValidEduRecipients, a.EducationRecipient) {
		errs.Add("education_recipient", "education_recipient is not a recognized value")
	}

	if a.GCSEye < 1 || a.GCSEye > 4 {
		errs.Add("gcs_eye", "gcs_eye must be between 1 and 4")
	}
	if a.GCSVerbal < 1 || a.GCSVerbal > 5 {
		errs.Add("gcs_verbal", "gcs_verbal must be between 1 and 5")
	}
	if a.GCSMotor < 1 || a.GCSMotor > 6 {
		errs.Add("gcs_motor", "gcs_motor must be between 1 and 6")
	}

	checkIntRange(errs, "systolic", a.Systolic, 50, 250)
	checkIntRange(errs, "diastolic", a.Diastolic, 30, 150)
	checkFloatRange(errs, "temperature", a.Temperature, 30, 45)
	checkIntRange(errs, "pulse", a.Pulse, 30, 200)
	checkIntRange(errs, "respiration", a.Respiration, 8, 60)
	checkFloatRange(errs, "weight", a.Weight, 1, 300)
	checkFloatRange(errs, "height", a.Height, 30, 250)

	return errs.ErrOrNil()
}

func checkIntRange(errs *apperror.ValidationError, field string, v *int, min, max int) {
	if v != nil && (*v < min || *v > max) {
		errs.Add(field, fmt.Sprintf("%s must be between %d and %d", field, min, max))
	}
}

func checkFloatRange(errs *apperror.ValidationError, field string, v *float64, min, max float64) {
	if v != nil && (*v < min || *v > max) {
		errs.Add(field, fmt.Sprintf("%s must be between %g and %g", field, min, max))
	}
}

func (s *Service) Create(ctx context.Context, in CreateInput, actorID uuid.UUID) (*Assessment, error) {
	a := fromCreateInput(in)
	a.CreatedBy = actorID
	applyDefaults(a)

	if err := validate(a); err != nil {
		return nil, err
	}

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		exists, err := s.patients.Exists(ctx, a.PatientID)
		if err != nil {
			return apperror.NewStorage("check patient", err)
		}
		if !exists {
			return apperror.NewNotFound("patient", a.PatientID.String())
		}
		if err := s.repo.Create(ctx, a); err != nil {
			return apperror.NewStorage("insert assessment", err)
		}
		return s.audit.Record(ctx, &audit.Entry{
			UserID:   actorID,
			Action:   audit.ActionCreated(audit.EntityAssessment),
			Entity:   audit.EntityAssessment,
			EntityID: a.ID.String(),
			NewData:  audit.Snapshot(a),
		})
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func fromCreateInput(in CreateInput) *Assessment {
	return &Assessment{
		PatientID:             in.PatientID,
		VisitDate:             in.VisitDate,
		VisitTime:             in.VisitTime,
		Anamnesis:             in.Anamnesis,
		ChiefComplaint:        strings.TrimSpace(in.ChiefComplaint),
		PresentIllnessHistory: in.PresentIllnessHistory,
		AllergyHistory:        in.AllergyHistory,
		PastMedicalHistory:    in.PastMedicalHistory,
		MedicationHistory:     in.MedicationHistory,
		GCSEye:                in.GCSEye,
		GCSVerbal:             in.GCSVerbal,
		GCSMotor:              in.GCSMotor,
		GeneralCondition:      in.GeneralCondition,
		Systolic:              in.Systolic,
		Diastolic:             in.Diastolic,
		Temperature:           in.Temperature,
		Pulse:                 in.Pulse,
		Respiration:           in.Respiration,
		Weight:                in.Weight,
		Height:                in.Height,
		Head:                  in.Head,
		Eyes:                  in.Eyes,
		Mouth:                 in.Mouth,
		Neck:                  in.Neck,
		Thorax:                in.Thorax,
		Cor:                   in.Cor,
		Pulmo:                 in.Pulmo,
		Abdomen:               in.Abdomen,
		Extremities:           in.Extremities,
		AnusGenitalia:         in.AnusGenitalia,
		SupplementaryExam:     in.SupplementaryExam,
		SupplementaryResult:   in.SupplementaryResult,
		WorkingDiagnosis:      strings.TrimSpace(in.WorkingDiagnosis),
		TreatmentPlan:         in.TreatmentPlan,
		FollowUp:              in.FollowUp,
		ReferralTarget:        in.ReferralTarget,
		ReferralReason:        in.ReferralReason,
		EducationRecipient:    in.EducationRecipient,
		EducationNotes:        in.EducationNotes,
		Clinician:             strings.TrimSpace(in.Clinician),
	}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Assessment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperror.NewNotFound("assessment", id.String())
		}
		return nil, apperror.NewStorage("get assessment", err)
	}
	return a, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput, actorID uuid.UUID) (*Assessment, error) {
	var updated *Assessment

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		existing, err := s.repo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return apperror.NewNotFound("assessment", id.String())
			}
			return apperror.NewStorage("get assessment", err)
		}
		before := *existing

		applyUpdate(existing, in)
		applyDefaults(existing)
		if err := validate(existing); err != nil {
			return err
		}

		if err := s.repo.Update(ctx, existing); err != nil {
			return apperror.NewStorage("update assessment", err)
		}
		updated = existing
		return s.audit.Record(ctx, &audit.Entry{
			UserID:   actorID,
			Action:   audit.ActionUpdated(audit.EntityAssessment),
			Entity:   audit.EntityAssessment,
			EntityID: id.String(),
			OldData:  audit.Snapshot(&before),
			NewData:  audit.Snapshot(existing),
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func applyUpdate(a *Assessment, in UpdateInput) {
	if in.VisitDate != nil {
		a.VisitDate = *in.VisitDate
	}
	if in.VisitTime != nil {
		a.VisitTime = *in.VisitTime
	}
	if in.Anamnesis != nil {
		a.Anamnesis = *in.Anamnesis
	}
	if in.ChiefComplaint != nil {
		a.ChiefComplaint = strings.TrimSpace(*in.ChiefComplaint)
	}
	if in.PresentIllnessHistory != nil {
		a.PresentIllnessHistory = in.PresentIllnessHistory
	}
	if in.AllergyHistory != nil {
		a.AllergyHistory = in.AllergyHistory
	}
	if in.PastMedicalHistory != nil {
		a.PastMedicalHistory = in.PastMedicalHistory
	}
	if in.MedicationHistory != nil {
		a.MedicationHistory = in.MedicationHistory
	}
	if in.GCSEye != nil {
		a.GCSEye = *in.GCSEye
	}
	if in.GCSVerbal != nil {
		a.GCSVerbal = *in.GCSVerbal
	}
	if in.GCSMotor != nil {
		a.GCSMotor = *in.GCSMotor
	}
	if in.GeneralCondition != nil {
		a.GeneralCondition = *in.GeneralCondition
	}
	if in.Systolic != nil {
		a.Systolic = in.Systolic
	}
	if in.Diastolic != nil {
		a.Diastolic = in.Diastolic
	}
	if in.Temperature != nil {
		a.Temperature = in.Temperature
	}
	if in.Pulse != nil {
		a.Pulse = in.Pulse
	}
	if in.Respiration != nil {
		a.Respiration = in.Respiration
	}
	if in.Weight != nil {
		a.Weight = in.Weight
	}
	if in.Height != nil {
		a.Height = in.Height
	}
	if in.Head != nil {
		a.Head = in.Head
	}
	if in.Eyes != nil {
		a.Eyes = in.Eyes
	}
	if in.Mouth != nil {
		a.Mouth = in.Mouth
	}
	if in.Neck != nil {
		a.Neck = in.Neck
	}
	if in.Thorax != nil {
		a.Thorax = in.Thorax
	}
	if in.Cor != nil {
		a.Cor = in.Cor
	}
	if in.Pulmo != nil {
		a.Pulmo = in.Pulmo
	}
	if in.Abdomen != nil {
		a.Abdomen = in.Abdomen
	}
	if in.Extremities != nil {
		a.Extremities = in.Extremities
	}
	if in.AnusGenitalia != nil {
		a.AnusGenitalia = in.AnusGenitalia
	}
	if in.SupplementaryExam != nil {
		a.SupplementaryExam = *in.SupplementaryExam
	}
	if in.SupplementaryResult != nil {
		a.SupplementaryResult = in.SupplementaryResult
	}
	if in.WorkingDiagnosis != nil {
		a.WorkingDiagnosis = strings.TrimSpace(*in.WorkingDiagnosis)
	}
	if in.TreatmentPlan != nil {
		a.TreatmentPlan = in.TreatmentPlan
	}
	if in.FollowUp != nil {
		a.FollowUp = *in.FollowUp
	}
	if in.ReferralTarget != nil {
		a.ReferralTarget = in.ReferralTarget
	}
	if in.ReferralReason != nil {
		a.ReferralReason = in.ReferralReason
	}
	if in.EducationRecipient != nil {
		a.EducationRecipient = *in.EducationRecipient
	}
	if in.EducationNotes != nil {
		a.EducationNotes = in.EducationNotes
	}
	if in.Clinician != nil {
		a.Clinician = strings.TrimSpace(*in.Clinician)
	}
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID, actorID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		existing, err := s.repo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return apperror.NewNotFound("assessment", id.String())
			}
			return apperror.NewStorage("get assessment", err)
		}
		if err := s.repo.Delete(ctx, id); err != nil {
			return apperror.NewStorage("delete assessment", err)
		}
		return s.audit.Record(ctx, &audit.Entry{
			UserID:   actorID,
			Action:   audit.ActionDeleted(audit.EntityAssessment),
			Entity:   audit.EntityAssessment,
			EntityID: id.String(),
			OldData:  audit.Snapshot(existing),
		})
	})
}

func (s *Service) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Assessment, int, error) {
	items, total, err := s.repo.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, apperror.NewStorage("list assessments", err)
	}
	return items, total, nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Assessment, error) {
	items, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, apperror.NewStorage("list assessments by patient", err)
	}
	return items, nil
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	stats, err := s.repo.Stats(ctx, time.Now())
	if err != nil {
		return nil, apperror.NewStorage("assessment stats", err)
	}
	return stats, nil
}

func (s *Service) TopDiagnoses(ctx context.Context, limit int) ([]DiagnosisCount, error) {
	if limit <= 0 {
		limit = 10
	}
	result, err := s.repo.TopDiagnoses(ctx, limit)
	if err != nil {
		return nil, apperror.NewStorage("top diagnoses", err)
	}
	return result, nil
}
