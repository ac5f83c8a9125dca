package user

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

const userCols = `u.id, u.email, u.password_hash, u.name, u.employee_id, u.role,
	u.job_title, u.work_unit, u.phone, u.photo, u.is_active, u.last_login_at,
	u.created_at, u.updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.EmployeeID, &u.Role,
		&u.JobTitle, &u.WorkUnit, &u.Phone, &u.Photo, &u.IsActive, &u.LastLoginAt,
		&u.CreatedAt, &u.UpdatedAt,
	)
	return &u, err
}

func (r *RepoPG) Create(ctx context.Context, u *User) error {
	q := `INSERT INTO app_user (email, password_hash, name, employee_id, role,
		job_title, work_unit, phone, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`
	return r.conn(ctx).QueryRow(ctx, q,
		u.Email, u.PasswordHash, u.Name, u.EmployeeID, u.Role,
		u.JobTitle, u.WorkUnit, u.Phone, u.IsActive,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
}

// notFound translates the pgx no-rows signal into the package sentinel so
// callers can tell a missing row from a storage failure.
func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (r *RepoPG) getOne(ctx context.Context, q string, arg interface{}) (*User, error) {
	u, err := scanUser(r.conn(ctx).QueryRow(ctx, q, arg))
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

func (r *RepoPG) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	q := fmt.Sprintf("SELECT %s FROM app_user u WHERE u.id = $1", userCols)
	return r.getOne(ctx, q, id)
}

func (r *RepoPG) GetByEmail(ctx context.Context, email string) (*User, error) {
	q := fmt.Sprintf("SELECT %s FROM app_user u WHERE LOWER(u.email) = LOWER($1)", userCols)
	return r.getOne(ctx, q, email)
}

func (r *RepoPG) GetByEmployeeID(ctx context.Context, employeeID string) (*User, error) {
	q := fmt.Sprintf("SELECT %s FROM app_user u WHERE u.employee_id = $1", userCols)
	return r.getOne(ctx, q, employeeID)
}

func (r *RepoPG) Update(ctx context.Context, u *User) error {
	q := `UPDATE app_user SET name = $1, employee_id = $2, role = $3,
		job_title = $4, work_unit = $5, phone = $6, photo = $7, is_active = $8,
		updated_at = NOW()
		WHERE id = $9
		RETURNING updated_at`
	return notFound(r.conn(ctx).QueryRow(ctx, q,
		u.Name, u.EmployeeID, u.Role, u.JobTitle, u.WorkUnit,
		u.Phone, u.Photo, u.IsActive, u.ID,
	).Scan(&u.UpdatedAt))
}

func (r *RepoPG) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	tag, err := r.conn(ctx).Exec(ctx,
		"UPDATE app_user SET password_hash = $1, updated_at = NOW() WHERE id = $2", hash, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *RepoPG) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.conn(ctx).Exec(ctx,
		"UPDATE app_user SET last_login_at = $1 WHERE id = $2", at, id)
	return err
}

func (r *RepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, "DELETE FROM app_user WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *RepoPG) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*User, int, error) {
	where := []string{}
	args := []interface{}{}
	idx := 1

	if filter.Search != "" {
		where = append(where, fmt.Sprintf("(u.name ILIKE $%d OR u.email ILIKE $%d OR u.employee_id ILIKE $%d)", idx, idx, idx))
		args = append(args, "%"+filter.Search+"%")
		idx++
	}
	if filter.Role != "" {
		where = append(where, fmt.Sprintf("u.role = $%d", idx))
		args = append(args, filter.Role)
		idx++
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	countQ := fmt.Sprintf("SELECT COUNT(*) FROM app_user u %s", whereClause)
	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQ, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := fmt.Sprintf("SELECT %s FROM app_user u %s ORDER BY u.created_at DESC LIMIT $%d OFFSET $%d",
		userCols, whereClause, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, u)
	}
	return items, total, rows.Err()
}
