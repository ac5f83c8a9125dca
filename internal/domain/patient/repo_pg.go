package patient

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

const patientCols = `p.id, p.nik, p.name, p.sex, p.birthplace, p.birth_date,
	p.address, p.rt, p.rw, p.village, p.district, p.regency, p.province,
	p.religion, p.occupation, p.phone, p.age_group, p.gestational_weeks,
	p.created_by, COALESCE(u.name, ''), p.created_at, p.updated_at`

const patientJoin = `LEFT JOIN app_user u ON u.id = p.created_by`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(
		&p.ID, &p.NIK, &p.Name, &p.Sex, &p.Birthplace, &p.BirthDate,
		&p.Address, &p.RT, &p.RW, &p.Village, &p.District, &p.Regency, &p.Province,
		&p.Religion, &p.Occupation, &p.Phone, &p.AgeGroup, &p.GestationalWeeks,
		&p.CreatedBy, &p.CreatorName, &p.CreatedAt, &p.UpdatedAt,
	)
	return &p, err
}

func (r *RepoPG) Create(ctx context.Context, p *Patient) error {
	q := `INSERT INTO patient (nik, name, sex, birthplace, birth_date, address,
		rt, rw, village, district, regency, province, religion, occupation,
		phone, age_group, gestational_weeks, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING id, created_at, updated_at`
	return r.conn(ctx).QueryRow(ctx, q,
		p.NIK, p.Name, p.Sex, p.Birthplace, p.BirthDate, p.Address,
		p.RT, p.RW, p.Village, p.District, p.Regency, p.Province,
		p.Religion, p.Occupation, p.Phone, p.AgeGroup, p.GestationalWeeks, p.CreatedBy,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

// notFound translates the pgx no-rows signal into the package sentinel so
// callers can tell a missing row from a storage failure.
func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (r *RepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	q := fmt.Sprintf("SELECT %s FROM patient p %s WHERE p.id = $1", patientCols, patientJoin)
	p, err := scanPatient(r.conn(ctx).QueryRow(ctx, q, id))
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

func (r *RepoPG) GetByNIK(ctx context.Context, nik string) (*Patient, error) {
	q := fmt.Sprintf("SELECT %s FROM patient p %s WHERE p.nik = $1", patientCols, patientJoin)
	p, err := scanPatient(r.conn(ctx).QueryRow(ctx, q, nik))
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

func (r *RepoPG) Update(ctx context.Context, p *Patient) error {
	q := `UPDATE patient SET nik = $1, name = $2, sex = $3, birthplace = $4,
		birth_date = $5, address = $6, rt = $7, rw = $8, village = $9,
		district = $10, regency = $11, province = $12, religion = $13,
		occupation = $14, phone = $15, age_group = $16, gestational_weeks = $17,
		updated_at = NOW()
		WHERE id = $18
		RETURNING updated_at`
	return notFound(r.conn(ctx).QueryRow(ctx, q,
		p.NIK, p.Name, p.Sex, p.Birthplace, p.BirthDate, p.Address,
		p.RT, p.RW, p.Village, p.District, p.Regency, p.Province,
		p.Religion, p.Occupation, p.Phone, p.AgeGroup, p.GestationalWeeks, p.ID,
	).Scan(&p.UpdatedAt))
}

func (r *RepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, "DELETE FROM patient WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func buildPatientWhere(filter ListFilter) (string, []interface{}) {
	where := []string{}
	args := []interface{}{}
	idx := 1

	if filter.Search != "" {
		where = append(where, fmt.Sprintf("(p.name ILIKE $%d OR p.nik ILIKE $%d OR p.address ILIKE $%d)", idx, idx, idx))
		args = append(args, "%"+filter.Search+"%")
		idx++
	}
	if filter.AgeGroup != "" {
		where = append(where, fmt.Sprintf("p.age_group = $%d", idx))
		args = append(args, filter.AgeGroup)
		idx++
	}
	if filter.Sex != "" {
		where = append(where, fmt.Sprintf("p.sex = $%d", idx))
		args = append(args, filter.Sex)
		idx++
	}
	if filter.From != nil {
		where = append(where, fmt.Sprintf("p.created_at >= $%d", idx))
		args = append(args, *filter.From)
		idx++
	}
	if filter.To != nil {
		where = append(where, fmt.Sprintf("p.created_at <= $%d", idx))
		args = append(args, *filter.To)
		idx++
	}

	if len(where) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(where, " AND "), args
}

func (r *RepoPG) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Patient, int, error) {
	whereClause, args := buildPatientWhere(filter)

	countQ := fmt.Sprintf("SELECT COUNT(*) FROM patient p %s", whereClause)
	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQ, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	idx := len(args) + 1
	q := fmt.Sprintf("SELECT %s FROM patient p %s %s ORDER BY p.created_at DESC LIMIT $%d OFFSET $%d",
		patientCols, patientJoin, whereClause, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

// All returns every matching patient, newest first, with no page bound.
// Report exports read the full result set.
func (r *RepoPG) All(ctx context.Context, filter ListFilter) ([]*Patient, error) {
	whereClause, args := buildPatientWhere(filter)

	q := fmt.Sprintf("SELECT %s FROM patient p %s %s ORDER BY p.created_at DESC",
		patientCols, patientJoin, whereClause)
	rows, err := r.conn(ctx).Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

// statWindows computes the counting boundaries: today at local midnight, a
// rolling seven-day window, and day 1 of the current calendar month.
func statWindows(now time.Time) (dayStart, weekStart, monthStart time.Time) {
	dayStart = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	weekStart = now.Add(-7 * 24 * time.Hour)
	monthStart = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return dayStart, weekStart, monthStart
}

// Stats aggregates registry counts over the statWindows boundaries.
func (r *RepoPG) Stats(ctx context.Context, now time.Time) (*Stats, error) {
	stats := &Stats{
		ByAgeGroup: make(map[string]int),
		BySex:      make(map[string]int),
	}

	dayStart, weekStart, monthStart := statWindows(now)

	q := `SELECT COUNT(*),
		COUNT(*) FILTER (WHERE created_at >= $1),
		COUNT(*) FILTER (WHERE created_at >= $2),
		COUNT(*) FILTER (WHERE created_at >= $3)
		FROM patient`
	if err := r.conn(ctx).QueryRow(ctx, q, dayStart, weekStart, monthStart).
		Scan(&stats.Total, &stats.Today, &stats.ThisWeek, &stats.ThisMonth); err != nil {
		return nil, err
	}

	rows, err := r.conn(ctx).Query(ctx, "SELECT age_group, COUNT(*) FROM patient GROUP BY age_group")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var group string
		var count int
		if err := rows.Scan(&group, &count); err != nil {
			return nil, err
		}
		stats.ByAgeGroup[group] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = r.conn(ctx).Query(ctx, "SELECT sex, COUNT(*) FROM patient GROUP BY sex")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var sex string
		var count int
		if err := rows.Scan(&sex, &count); err != nil {
			return nil, err
		}
		stats.BySex[sex] = count
	}
	return stats, rows.Err()
}
