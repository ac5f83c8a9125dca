package assessment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sirana/sirana/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type RepoPG struct {
	pool *pgxpool.Pool
}

func NewRepoPG(pool *pgxpool.Pool) *RepoPG {
	return &RepoPG{pool: pool}
}

func (r *RepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const assessmentCols = `a.id, a.patient_id, a.visit_date, a.visit_time, a.anamnesis_type,
	a.chief_complaint, a.present_illness_history, a.allergy_history,
	a.past_medical_history, a.medication_history,
	a.gcs_eye, a.gcs_verbal, a.gcs_motor, a.general_condition,
	a.systolic, a.diastolic, a.temperature, a.pulse, a.respiration, a.weight, a.height,
	a.head, a.eyes, a.mouth, a.neck, a.thorax, a.cor, a.pulmo, a.abdomen,
	a.extremities, a.anus_genitalia,
	a.supplementary_exam, a.supplementary_result,
	a.working_diagnosis, a.treatment_plan, a.follow_up, a.referral_target, a.referral_reason,
	a.education_recipient, a.education_notes,
	a.clinician, a.created_by, a.created_at, a.updated_at,
	COALESCE(p.name, ''), p.nik, COALESCE(p.age_group, ''), COALESCE(p.sex, ''), COALESCE(u.name, '')`

const assessmentJoins = `LEFT JOIN patient p ON p.id = a.patient_id
	LEFT JOIN app_user u ON u.id = a.created_by`

func scanAssessment(row pgx.Row) (*Assessment, error) {
	var a Assessment
	err := row.Scan(
		&a.ID, &a.PatientID, &a.VisitDate, &a.VisitTime, &a.Anamnesis,
		&a.ChiefComplaint, &a.PresentIllnessHistory, &a.AllergyHistory,
		&a.PastMedicalHistory, &a.MedicationHistory,
		&a.GCSEye, &a.GCSVerbal, &a.GCSMotor, &a.GeneralCondition,
		&a.Systolic, &a.Diastolic, &a.Temperature, &a.Pulse, &a.Respiration, &a.Weight, &a.Height,
		&a.Head, &a.Eyes, &a.Mouth, &a.Neck, &a.Thorax, &a.Cor, &a.Pulmo, &a.Abdomen,
		&a.Extremities, &a.AnusGenitalia,
		&a.SupplementaryExam, &a.SupplementaryResult,
		&a.WorkingDiagnosis, &a.TreatmentPlan, &a.FollowUp, &a.ReferralTarget, &a.ReferralReason,
		&a.EducationRecipient, &a.EducationNotes,
		&a.Clinician, &a.CreatedBy, &a.CreatedAt, &a.UpdatedAt,
		&a.PatientName, &a.PatientNIK, &a.PatientAgeGroup, &a.PatientSex, &a.CreatorName,
	)
	return &a, err
}

func (r *RepoPG) Create(ctx context.Context, a *Assessment) error {
	q := `INSERT INTO medical_assessment (patient_id, visit_date, visit_time, anamnesis_type,
		chief_complaint, present_illness_history, allergy_history, past_medical_history, medication_history,
		gcs_eye, gcs_verbal, gcs_motor, general_condition,
		systolic, diastolic, temperature, pulse, respiration, weight, height,
		head, eyes, mouth, neck, thorax, cor, pulmo, abdomen, extremities, anus_genitalia,
		supplementary_exam, supplementary_result,
		working_diagnosis, treatment_plan, follow_up, referral_target, referral_reason,
		education_recipient, education_notes, clinician, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
			$21, $22, $23, $24, $25, $26, $27, $28, $29, $30,
			$31, $32, $33, $34, $35, $36, $37, $38, $39, $40, $41)
		RETURNING id, created_at, updated_at`
	return r.conn(ctx).QueryRow(ctx, q,
		a.PatientID, a.VisitDate, a.VisitTime, a.Anamnesis,
		a.ChiefComplaint, a.PresentIllnessHistory, a.AllergyHistory, a.PastMedicalHistory, a.MedicationHistory,
		a.GCSEye, a.GCSVerbal, a.GCSMotor, a.GeneralCondition,
		a.Systolic, a.Diastolic, a.Temperature, a.Pulse, a.Respiration, a.Weight, a.Height,
		a.Head, a.Eyes, a.Mouth, a.Neck, a.Thorax, a.Cor, a.Pulmo, a.Abdomen, a.Extremities, a.AnusGenitalia,
		a.SupplementaryExam, a.SupplementaryResult,
		a.WorkingDiagnosis, a.TreatmentPlan, a.FollowUp, a.ReferralTarget, a.ReferralReason,
		a.EducationRecipient, a.EducationNotes, a.Clinician, a.CreatedBy,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
}

// notFound translates the pgx no-rows signal into the package sentinel so
// callers can tell a missing row from a storage failure.
func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (r *RepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Assessment, error) {
	q := fmt.Sprintf("SELECT %s FROM medical_assessment a %s WHERE a.id = $1", assessmentCols, assessmentJoins)
	a, err := scanAssessment(r.conn(ctx).QueryRow(ctx, q, id))
	if err != nil {
		return nil, notFound(err)
	}
	return a, nil
}

func (r *RepoPG) Update(ctx context.Context, a *Assessment) error {
	q := `UPDATE medical_assessment SET visit_date = $1, visit_time = $2, anamnesis_type = $3,
		chief_complaint = $4, present_illness_history = $5, allergy_history = $6,
		past_medical_history = $7, medication_history = $8,
		gcs_eye = $9, gcs_verbal = $10, gcs_motor = $11, general_condition = $12,
		systolic = $13, diastolic = $14, temperature = $15, pulse = $16, respiration = $17,
		weight = $18, height = $19,
		head = $20, eyes = $21, mouth = $22, neck = $23, thorax = $24, cor = $25,
		pulmo = $26, abdomen = $27, extremities = $28, anus_genitalia = $29,
		supplementary_exam = $30, supplementary_result = $31,
		working_diagnosis = $32, treatment_plan = $33, follow_up = $34,
		referral_target = $35, referral_reason = $36,
		education_recipient = $37, education_notes = $38, clinician = $39,
		updated_at = NOW()
		WHERE id = $40
		RETURNING updated_at`
	err := r.conn(ctx).QueryRow(ctx, q,
		a.VisitDate, a.VisitTime, a.Anamnesis,
		a.ChiefComplaint, a.PresentIllnessHistory, a.AllergyHistory,
		a.PastMedicalHistory, a.MedicationHistory,
		a.GCSEye, a.GCSVerbal, a.GCSMotor, a.GeneralCondition,
		a.Systolic, a.Diastolic, a.Temperature, a.Pulse, a.Respiration,
		a.Weight, a.Height,
		a.Head, a.Eyes, a.Mouth, a.Neck, a.Thorax, a.Cor,
		a.Pulmo, a.Abdomen, a.Extremities, a.AnusGenitalia,
		a.SupplementaryExam, a.SupplementaryResult,
		a.WorkingDiagnosis, a.TreatmentPlan, a.FollowUp,
		a.ReferralTarget, a.ReferralReason,
		a.EducationRecipient, a.EducationNotes, a.Clinician,
		a.ID,
	).Scan(&a.UpdatedAt)
	return notFound(err)
}

func (r *RepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, "DELETE FROM medical_assessment WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func buildAssessmentWhere(filter ListFilter) (string, []interface{}) {
	where := []string{}
	args := []interface{}{}
	idx := 1

	if filter.PatientID != nil {
		where = append(where, fmt.Sprintf("a.patient_id = $%d", idx))
		args = append(args, *filter.PatientID)
		idx++
	}
	if filter.FollowUp != "" {
		where = append(where, fmt.Sprintf("a.follow_up = $%d", idx))
		args = append(args, filter.FollowUp)
		idx++
	}
	if filter.From != nil {
		where = append(where, fmt.Sprintf("a.visit_date >= $%d", idx))
		args = append(args, *filter.From)
		idx++
	}
	if filter.To != nil {
		where = append(where, fmt.Sprintf("a.visit_date <= $%d", idx))
		args = append(args, *filter.To)
		idx++
	}
	if filter.CreatedBy != nil {
		where = append(where, fmt.Sprintf("a.created_by = $%d", idx))
		args = append(args, *filter.CreatedBy)
		idx++
	}

	if len(where) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(where, " AND "), args
}

func (r *RepoPG) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Assessment, int, error) {
	whereClause, args := buildAssessmentWhere(filter)

	countQ := fmt.Sprintf("SELECT COUNT(*) FROM medical_assessment a %s", whereClause)
	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQ, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	idx := len(args) + 1
	q := fmt.Sprintf("SELECT %s FROM medical_assessment a %s %s ORDER BY a.created_at DESC LIMIT $%d OFFSET $%d",
		assessmentCols, assessmentJoins, whereClause, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Assessment
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}

// All returns every matching assessment ordered by visit date, newest
// first, with no page bound. Report exports read the full result set.
func (r *RepoPG) All(ctx context.Context, filter ListFilter) ([]*Assessment, error) {
	whereClause, args := buildAssessmentWhere(filter)

	q := fmt.Sprintf("SELECT %s FROM medical_assessment a %s %s ORDER BY a.visit_date DESC, a.created_at DESC",
		assessmentCols, assessmentJoins, whereClause)
	rows, err := r.conn(ctx).Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Assessment
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (r *RepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Assessment, error) {
	q := fmt.Sprintf("SELECT %s FROM medical_assessment a %s WHERE a.patient_id = $1 ORDER BY a.created_at DESC",
		assessmentCols, assessmentJoins)
	rows, err := r.conn(ctx).Query(ctx, q, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Assessment
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

// Exists reports whether the patient row is present, using the active
// transaction when one is on the context.
func (r *RepoPG) Exists(ctx context.Context, patientID uuid.UUID) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM patient WHERE id = $1)", patientID).Scan(&exists)
	return exists, err
}

// statWindows computes the counting boundaries: today at local midnight, a
// rolling seven-day window, and day 1 of the current calendar month.
func statWindows(now time.Time) (dayStart, weekStart, monthStart time.Time) {
	dayStart = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	weekStart = now.Add(-7 * 24 * time.Hour)
	monthStart = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return dayStart, weekStart, monthStart
}

// Stats aggregates assessment counts over the statWindows boundaries.
func (r *RepoPG) Stats(ctx context.Context, now time.Time) (*Stats, error) {
	stats := &Stats{
		ByFollowUp:  make(map[string]int),
		ByAnamnesis: make(map[string]int),
	}

	dayStart, weekStart, monthStart := statWindows(now)

	q := `SELECT COUNT(*),
		COUNT(*) FILTER (WHERE created_at >= $1),
		COUNT(*) FILTER (WHERE created_at >= $2),
		COUNT(*) FILTER (WHERE created_at >= $3)
		FROM medical_assessment`
	if err := r.conn(ctx).QueryRow(ctx, q, dayStart, weekStart, monthStart).
		Scan(&stats.Total, &stats.Today, &stats.ThisWeek, &stats.ThisMonth); err != nil {
		return nil, err
	}

	rows, err := r.conn(ctx).Query(ctx, "SELECT follow_up, COUNT(*) FROM medical_assessment GROUP BY follow_up")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var k string
		var n int
		if err := rows.Scan(&k, &n); err != nil {
			return nil, err
		}
		stats.ByFollowUp[k] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = r.conn(ctx).Query(ctx, "SELECT anamnesis_type, COUNT(*) FROM medical_assessment GROUP BY anamnesis_type")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var k string
		var n int
		if err := rows.Scan(&k, &n); err != nil {
			return nil, err
		}
		stats.ByAnamnesis[k] = n
	}
	return stats, rows.Err()
}

func (r *RepoPG) TopDiagnoses(ctx context.Context, limit int) ([]DiagnosisCount, error) {
	q := `SELECT working_diagnosis, COUNT(*) AS n FROM medical_assessment
		GROUP BY working_diagnosis ORDER BY n DESC LIMIT $1`
	rows, err := r.conn(ctx).Query(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []DiagnosisCount
	for rows.Next() {
		var d DiagnosisCount
		if err := rows.Scan(&d.Diagnosis, &d.Count); err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	return result, rows.Err()
}
