package environment

import (
	"context"
	"errors"
	"fmt"
	"strings"

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

const envCols = `e.id, e.patient_id, e.water_access, e.sanitation, e.photos,
	e.notes, e.created_by, e.created_at, e.updated_at,
	COALESCE(p.name, ''), p.nik, COALESCE(p.age_group, ''), COALESCE(p.address, ''),
	COALESCE(p.rt, ''), COALESCE(p.rw, ''), COALESCE(p.village, ''), COALESCE(p.district, ''),
	COALESCE(u.name, '')`

const envJoins = `LEFT JOIN patient p ON p.id = e.patient_id
	LEFT JOIN app_user u ON u.id = e.created_by`

func scanEnvironment(row pgx.Row) (*Environment, error) {
	var e Environment
	err := row.Scan(
		&e.ID, &e.PatientID, &e.WaterAccess, &e.Sanitation, &e.Photos,
		&e.Notes, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt,
		&e.PatientName, &e.PatientNIK, &e.PatientAgeGroup, &e.PatientAddress,
		&e.PatientRT, &e.PatientRW, &e.PatientVillage, &e.PatientDistrict,
		&e.CreatorName,
	)
	return &e, err
}

func (r *RepoPG) Create(ctx context.Context, e *Environment) error {
	q := `INSERT INTO environment_assessment (patient_id, water_access, sanitation, photos, notes, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`
	return r.conn(ctx).QueryRow(ctx, q,
		e.PatientID, e.WaterAccess, e.Sanitation, e.Photos, e.Notes, e.CreatedBy,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
}

// notFound translates the pgx no-rows signal into the package sentinel so
// callers can tell a missing row from a storage failure.
func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (r *RepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Environment, error) {
	q := fmt.Sprintf("SELECT %s FROM environment_assessment e %s WHERE e.id = $1", envCols, envJoins)
	e, err := scanEnvironment(r.conn(ctx).QueryRow(ctx, q, id))
	if err != nil {
		return nil, notFound(err)
	}
	return e, nil
}

func (r *RepoPG) Update(ctx context.Context, e *Environment) error {
	q := `UPDATE environment_assessment
		SET water_access = $1, sanitation = $2, photos = $3, notes = $4, updated_at = NOW()
		WHERE id = $5
		RETURNING updated_at`
	return notFound(r.conn(ctx).QueryRow(ctx, q,
		e.WaterAccess, e.Sanitation, e.Photos, e.Notes, e.ID,
	).Scan(&e.UpdatedAt))
}

func (r *RepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, "DELETE FROM environment_assessment WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func buildEnvironmentWhere(filter ListFilter) (string, []interface{}) {
	where := []string{}
	args := []interface{}{}
	idx := 1

	if filter.PatientID != nil {
		where = append(where, fmt.Sprintf("e.patient_id = $%d", idx))
		args = append(args, *filter.PatientID)
		idx++
	}
	if filter.WaterAccess != "" {
		where = append(where, fmt.Sprintf("e.water_access = $%d", idx))
		args = append(args, filter.WaterAccess)
		idx++
	}
	if filter.Sanitation != "" {
		where = append(where, fmt.Sprintf("e.sanitation = $%d", idx))
		args = append(args, filter.Sanitation)
		idx++
	}
	if filter.CreatedBy != nil {
		where = append(where, fmt.Sprintf("e.created_by = $%d", idx))
		args = append(args, *filter.CreatedBy)
		idx++
	}
	if filter.From != nil {
		where = append(where, fmt.Sprintf("e.created_at >= $%d", idx))
		args = append(args, *filter.From)
		idx++
	}
	if filter.To != nil {
		where = append(where, fmt.Sprintf("e.created_at <= $%d", idx))
		args = append(args, *filter.To)
		idx++
	}

	if len(where) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(where, " AND "), args
}

func (r *RepoPG) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Environment, int, error) {
	whereClause, args := buildEnvironmentWhere(filter)

	countQ := fmt.Sprintf("SELECT COUNT(*) FROM environment_assessment e %s", whereClause)
	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQ, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	idx := len(args) + 1
	q := fmt.Sprintf("SELECT %s FROM environment_assessment e %s %s ORDER BY e.created_at DESC LIMIT $%d OFFSET $%d",
		envCols, envJoins, whereClause, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Environment
	for rows.Next() {
		e, err := scanEnvironment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, e)
	}
	return items, total, rows.Err()
}

// All returns every matching assessment, newest first, with no page
// bound. Report exports read the full result set.
func (r *RepoPG) All(ctx context.Context, filter ListFilter) ([]*Environment, error) {
	whereClause, args := buildEnvironmentWhere(filter)

	q := fmt.Sprintf("SELECT %s FROM environment_assessment e %s %s ORDER BY e.created_at DESC",
		envCols, envJoins, whereClause)
	rows, err := r.conn(ctx).Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Environment
	for rows.Next() {
		e, err := scanEnvironment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
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

func (r *RepoPG) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{
		ByWaterAccess: make(map[string]int),
		BySanitation:  make(map[string]int),
	}

	if err := r.conn(ctx).QueryRow(ctx, "SELECT COUNT(*) FROM environment_assessment").Scan(&stats.Total); err != nil {
		return nil, err
	}

	rows, err := r.conn(ctx).Query(ctx, "SELECT water_access, COUNT(*) FROM environment_assessment GROUP BY water_access")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var access string
		var count int
		if err := rows.Scan(&access, &count); err != nil {
			return nil, err
		}
		stats.ByWaterAccess[access] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = r.conn(ctx).Query(ctx, "SELECT sanitation, COUNT(*) FROM environment_assessment GROUP BY sanitation")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var cond string
		var count int
		if err := rows.Scan(&cond, &count); err != nil {
			return nil, err
		}
		stats.BySanitation[cond] = count
	}
	return stats, rows.Err()
}
