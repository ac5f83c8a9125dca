package dashboard

import (
	"context"
	"fmt"
	"strings"

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

// rangeWhere renders a RangeFilter into a WHERE clause with positional
// arguments. Creation-time bounds form a half-open interval [From, To).
func rangeWhere(f RangeFilter) (string, []interface{}) {
	where := []string{}
	args := []interface{}{}
	idx := 1

	if f.From != nil {
		where = append(where, fmt.Sprintf("created_at >= $%d", idx))
		args = append(args, *f.From)
		idx++
	}
	if f.To != nil {
		where = append(where, fmt.Sprintf("created_at < $%d", idx))
		args = append(args, *f.To)
		idx++
	}
	if f.CreatedBy != nil {
		where = append(where, fmt.Sprintf("created_by = $%d", idx))
		args = append(args, *f.CreatedBy)
		idx++
	}

	if len(where) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(where, " AND "), args
}

func (r *RepoPG) countTable(ctx context.Context, table string, f RangeFilter) (int, error) {
	whereClause, args := rangeWhere(f)
	var n int
	q := fmt.Sprintf("SELECT COUNT(*) FROM %s %s", table, whereClause)
	err := r.conn(ctx).QueryRow(ctx, q, args...).Scan(&n)
	return n, err
}

func (r *RepoPG) CountPatients(ctx context.Context, f RangeFilter) (int, error) {
	return r.countTable(ctx, "patient", f)
}

func (r *RepoPG) CountAssessments(ctx context.Context, f RangeFilter) (int, error) {
	return r.countTable(ctx, "medical_assessment", f)
}

func (r *RepoPG) CountEnvironments(ctx context.Context) (int, error) {
	return r.countTable(ctx, "environment_assessment", RangeFilter{})
}

func (r *RepoPG) CountNeeds(ctx context.Context) (int, error) {
	return r.countTable(ctx, "needs_identification", RangeFilter{})
}

func (r *RepoPG) CountUsers(ctx context.Context) (int, error) {
	return r.countTable(ctx, "app_user", RangeFilter{})
}

func (r *RepoPG) groupBy(ctx context.Context, table, column string) (map[string]int, error) {
	q := fmt.Sprintf("SELECT %s, COUNT(*) FROM %s GROUP BY %s", column, table, column)
	rows, err := r.conn(ctx).Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]int)
	for rows.Next() {
		var value string
		var count int
		if err := rows.Scan(&value, &count); err != nil {
			return nil, err
		}
		result[value] = count
	}
	return result, rows.Err()
}

func (r *RepoPG) PatientsByAgeGroup(ctx context.Context) (map[string]int, error) {
	return r.groupBy(ctx, "patient", "age_group")
}

func (r *RepoPG) PatientsBySex(ctx context.Context) (map[string]int, error) {
	return r.groupBy(ctx, "patient", "sex")
}

func (r *RepoPG) AssessmentsByFollowUp(ctx context.Context) (map[string]int, error) {
	return r.groupBy(ctx, "medical_assessment", "follow_up")
}

func (r *RepoPG) EnvironmentsByWaterAccess(ctx context.Context) (map[string]int, error) {
	return r.groupBy(ctx, "environment_assessment", "water_access")
}

func (r *RepoPG) EnvironmentsBySanitation(ctx context.Context) (map[string]int, error) {
	return r.groupBy(ctx, "environment_assessment", "sanitation")
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

func (r *RepoPG) RecentPatients(ctx context.Context, limit int, f RangeFilter) ([]*RecentPatient, error) {
	whereClause, args := rangeWhere(f)
	q := fmt.Sprintf(`SELECT id, name, nik, sex, age_group, address, birth_date, created_at
		FROM patient %s ORDER BY created_at DESC LIMIT $%d`, whereClause, len(args)+1)
	args = append(args, limit)

	rows, err := r.conn(ctx).Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*RecentPatient
	for rows.Next() {
		var p RecentPatient
		if err := rows.Scan(&p.ID, &p.Name, &p.NIK, &p.Sex, &p.AgeGroup, &p.Address, &p.BirthDate, &p.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, &p)
	}
	return result, rows.Err()
}

func (r *RepoPG) RecentAssessments(ctx context.Context, limit int, f RangeFilter) ([]*RecentAssessment, error) {
	whereClause, args := rangeWhere(f)
	if whereClause != "" {
		whereClause = strings.ReplaceAll(whereClause, "created_at", "a.created_at")
		whereClause = strings.ReplaceAll(whereClause, "created_by", "a.created_by")
	}
	q := fmt.Sprintf(`SELECT a.id, a.patient_id, COALESCE(p.name, ''), p.nik,
		a.working_diagnosis, a.follow_up, a.visit_date, a.created_at
		FROM medical_assessment a
		LEFT JOIN patient p ON p.id = a.patient_id
		%s ORDER BY a.created_at DESC LIMIT $%d`, whereClause, len(args)+1)
	args = append(args, limit)

	rows, err := r.conn(ctx).Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*RecentAssessment
	for rows.Next() {
		var a RecentAssessment
		if err := rows.Scan(&a.ID, &a.PatientID, &a.PatientName, &a.PatientNIK,
			&a.WorkingDiagnosis, &a.FollowUp, &a.VisitDate, &a.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, &a)
	}
	return result, rows.Err()
}

func (r *RepoPG) ActiveDisasters(ctx context.Context) ([]*ActiveDisaster, error) {
	q := `SELECT id, name, disaster_type, occurred_at, location, province
		FROM disaster_event WHERE status = 'ACTIVE' ORDER BY occurred_at DESC`
	rows, err := r.conn(ctx).Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*ActiveDisaster
	for rows.Next() {
		var d ActiveDisaster
		if err := rows.Scan(&d.ID, &d.Name, &d.Type, &d.OccurredAt, &d.Location, &d.Province); err != nil {
			return nil, err
		}
		result = append(result, &d)
	}
	return result, rows.Err()
}
