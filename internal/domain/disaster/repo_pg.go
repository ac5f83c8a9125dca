package disaster

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

const eventCols = `d.id, d.name, d.disaster_type, d.occurred_at, d.location,
	d.province, d.regency, d.subdistrict, d.description, d.status,
	d.created_at, d.updated_at`

func scanEvent(row pgx.Row) (*Event, error) {
	var e Event
	err := row.Scan(
		&e.ID, &e.Name, &e.Type, &e.OccurredAt, &e.Location,
		&e.Province, &e.Regency, &e.Subdistrict, &e.Description, &e.Status,
		&e.CreatedAt, &e.UpdatedAt,
	)
	return &e, err
}

func (r *RepoPG) Create(ctx context.Context, e *Event) error {
	q := `INSERT INTO disaster_event (name, disaster_type, occurred_at, location,
		province, regency, subdistrict, description, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`
	return r.conn(ctx).QueryRow(ctx, q,
		e.Name, e.Type, e.OccurredAt, e.Location,
		e.Province, e.Regency, e.Subdistrict, e.Description, e.Status,
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

func (r *RepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Event, error) {
	q := fmt.Sprintf("SELECT %s FROM disaster_event d WHERE d.id = $1", eventCols)
	e, err := scanEvent(r.conn(ctx).QueryRow(ctx, q, id))
	if err != nil {
		return nil, notFound(err)
	}
	return e, nil
}

func (r *RepoPG) Update(ctx context.Context, e *Event) error {
	q := `UPDATE disaster_event SET name = $1, disaster_type = $2, occurred_at = $3,
		location = $4, province = $5, regency = $6, subdistrict = $7,
		description = $8, status = $9, updated_at = NOW()
		WHERE id = $10
		RETURNING updated_at`
	return notFound(r.conn(ctx).QueryRow(ctx, q,
		e.Name, e.Type, e.OccurredAt, e.Location, e.Province, e.Regency,
		e.Subdistrict, e.Description, e.Status, e.ID,
	).Scan(&e.UpdatedAt))
}

func (r *RepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, "DELETE FROM disaster_event WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List orders events by occurrence date, most recent first.
func (r *RepoPG) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Event, int, error) {
	where := []string{}
	args := []interface{}{}
	idx := 1

	if filter.Search != "" {
		where = append(where, fmt.Sprintf("(d.name ILIKE $%d OR d.location ILIKE $%d OR d.description ILIKE $%d)", idx, idx, idx))
		args = append(args, "%"+filter.Search+"%")
		idx++
	}
	if filter.Type != "" {
		where = append(where, fmt.Sprintf("d.disaster_type = $%d", idx))
		args = append(args, filter.Type)
		idx++
	}
	if filter.Status != "" {
		where = append(where, fmt.Sprintf("d.status = $%d", idx))
		args = append(args, filter.Status)
		idx++
	}
	if filter.Province != "" {
		where = append(where, fmt.Sprintf("d.province ILIKE $%d", idx))
		args = append(args, "%"+filter.Province+"%")
		idx++
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	countQ := fmt.Sprintf("SELECT COUNT(*) FROM disaster_event d %s", whereClause)
	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQ, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := fmt.Sprintf("SELECT %s FROM disaster_event d %s ORDER BY d.occurred_at DESC LIMIT $%d OFFSET $%d",
		eventCols, whereClause, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, e)
	}
	return items, total, rows.Err()
}

func (r *RepoPG) Stats(ctx context.Context, recentN int) (*Stats, error) {
	stats := &Stats{ByType: make(map[string]int)}

	q := `SELECT COUNT(*),
		COUNT(*) FILTER (WHERE status = $1),
		COUNT(*) FILTER (WHERE status = $2)
		FROM disaster_event`
	if err := r.conn(ctx).QueryRow(ctx, q, StatusActive, StatusClosed).
		Scan(&stats.Total, &stats.Active, &stats.Closed); err != nil {
		return nil, err
	}

	rows, err := r.conn(ctx).Query(ctx, "SELECT disaster_type, COUNT(*) FROM disaster_event GROUP BY disaster_type")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var typ string
		var count int
		if err := rows.Scan(&typ, &count); err != nil {
			return nil, err
		}
		stats.ByType[typ] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	q = fmt.Sprintf("SELECT %s FROM disaster_event d ORDER BY d.occurred_at DESC LIMIT $1", eventCols)
	rows, err = r.conn(ctx).Query(ctx, q, recentN)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		stats.Recent = append(stats.Recent, e)
	}
	return stats, rows.Err()
}
