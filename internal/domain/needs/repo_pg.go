package needs

import (
	"context"
	"errors"
	"fmt"
	"sort"
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

const needsCols = `n.id, n.patient_id, n.medicines, n.equipment, n.infrastructure,
	n.medicine_priority, n.equipment_priority, n.infrastructure_priority,
	n.notes, n.created_by, n.created_at, n.updated_at,
	COALESCE(p.name, ''), p.nik, COALESCE(p.age_group, ''), COALESCE(p.address, ''), COALESCE(u.name, '')`

const needsJoins = `LEFT JOIN patient p ON p.id = n.patient_id
	LEFT JOIN app_user u ON u.id = n.created_by`

func scanNeeds(row pgx.Row) (*Needs, error) {
	var n Needs
	var medicines, equipment, infrastructure []string
	err := row.Scan(
		&n.ID, &n.PatientID, &medicines, &equipment, &infrastructure,
		&n.MedicinePriority, &n.EquipmentPriority, &n.InfrastructurePriority,
		&n.Notes, &n.CreatedBy, &n.CreatedAt, &n.UpdatedAt,
		&n.PatientName, &n.PatientNIK, &n.PatientAgeGroup, &n.PatientAddress, &n.CreatorName,
	)
	if err != nil {
		return nil, err
	}
	n.Medicines = medicines
	n.Equipment = equipment
	n.Infrastructure = infrastructure
	return &n, nil
}

func (r *RepoPG) Create(ctx context.Context, n *Needs) error {
	q := `INSERT INTO needs_identification (patient_id, medicines, equipment, infrastructure,
		medicine_priority, equipment_priority, infrastructure_priority, notes, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`
	return r.conn(ctx).QueryRow(ctx, q,
		n.PatientID, []string(n.Medicines), []string(n.Equipment), []string(n.Infrastructure),
		n.MedicinePriority, n.EquipmentPriority, n.InfrastructurePriority, n.Notes, n.CreatedBy,
	).Scan(&n.ID, &n.CreatedAt, &n.UpdatedAt)
}

// notFound translates the pgx no-rows signal into the package sentinel so
// callers can tell a missing row from a storage failure.
func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (r *RepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Needs, error) {
	q := fmt.Sprintf("SELECT %s FROM needs_identification n %s WHERE n.id = $1", needsCols, needsJoins)
	n, err := scanNeeds(r.conn(ctx).QueryRow(ctx, q, id))
	if err != nil {
		return nil, notFound(err)
	}
	return n, nil
}

func (r *RepoPG) Update(ctx context.Context, n *Needs) error {
	q := `UPDATE needs_identification
		SET medicines = $1, equipment = $2, infrastructure = $3,
			medicine_priority = $4, equipment_priority = $5, infrastructure_priority = $6,
			notes = $7, updated_at = NOW()
		WHERE id = $8
		RETURNING updated_at`
	return notFound(r.conn(ctx).QueryRow(ctx, q,
		[]string(n.Medicines), []string(n.Equipment), []string(n.Infrastructure),
		n.MedicinePriority, n.EquipmentPriority, n.InfrastructurePriority,
		n.Notes, n.ID,
	).Scan(&n.UpdatedAt))
}

func (r *RepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, "DELETE FROM needs_identification WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func buildNeedsWhere(filter ListFilter) (string, []interface{}) {
	where := []string{}
	args := []interface{}{}
	idx := 1

	if filter.PatientID != nil {
		where = append(where, fmt.Sprintf("n.patient_id = $%d", idx))
		args = append(args, *filter.PatientID)
		idx++
	}
	if filter.MedicinePriority != "" {
		where = append(where, fmt.Sprintf("n.medicine_priority = $%d", idx))
		args = append(args, filter.MedicinePriority)
		idx++
	}
	if filter.EquipmentPriority != "" {
		where = append(where, fmt.Sprintf("n.equipment_priority = $%d", idx))
		args = append(args, filter.EquipmentPriority)
		idx++
	}
	if filter.InfrastructurePriority != "" {
		where = append(where, fmt.Sprintf("n.infrastructure_priority = $%d", idx))
		args = append(args, filter.InfrastructurePriority)
		idx++
	}
	if filter.CreatedBy != nil {
		where = append(where, fmt.Sprintf("n.created_by = $%d", idx))
		args = append(args, *filter.CreatedBy)
		idx++
	}
	if filter.From != nil {
		where = append(where, fmt.Sprintf("n.created_at >= $%d", idx))
		args = append(args, *filter.From)
		idx++
	}
	if filter.To != nil {
		where = append(where, fmt.Sprintf("n.created_at <= $%d", idx))
		args = append(args, *filter.To)
		idx++
	}

	if len(where) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(where, " AND "), args
}

func (r *RepoPG) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Needs, int, error) {
	whereClause, args := buildNeedsWhere(filter)

	countQ := fmt.Sprintf("SELECT COUNT(*) FROM needs_identification n %s", whereClause)
	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQ, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	idx := len(args) + 1
	q := fmt.Sprintf("SELECT %s FROM needs_identification n %s %s ORDER BY n.created_at DESC LIMIT $%d OFFSET $%d",
		needsCols, needsJoins, whereClause, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Needs
	for rows.Next() {
		n, err := scanNeeds(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, n)
	}
	return items, total, rows.Err()
}

// All returns every matching record, newest first, with no page bound.
// Report exports read the full result set.
func (r *RepoPG) All(ctx context.Context, filter ListFilter) ([]*Needs, error) {
	whereClause, args := buildNeedsWhere(filter)

	q := fmt.Sprintf("SELECT %s FROM needs_identification n %s %s ORDER BY n.created_at DESC",
		needsCols, needsJoins, whereClause)
	rows, err := r.conn(ctx).Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Needs
	for rows.Next() {
		n, err := scanNeeds(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, n)
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

// Stats counts records per priority level and ranks the topN most
// frequent items per list. Ties rank in first-seen order, reading rows
// oldest first, so repeated aggregation of the same data is stable.
func (r *RepoPG) Stats(ctx context.Context, topN int) (*Stats, error) {
	stats := &Stats{
		ByMedicinePriority:       make(map[string]int),
		ByEquipmentPriority:      make(map[string]int),
		ByInfrastructurePriority: make(map[string]int),
	}

	if err := r.conn(ctx).QueryRow(ctx, "SELECT COUNT(*) FROM needs_identification").Scan(&stats.Total); err != nil {
		return nil, err
	}

	for col, target := range map[string]map[string]int{
		"medicine_priority":       stats.ByMedicinePriority,
		"equipment_priority":      stats.ByEquipmentPriority,
		"infrastructure_priority": stats.ByInfrastructurePriority,
	} {
		q := fmt.Sprintf("SELECT %s, COUNT(*) FROM needs_identification GROUP BY %s", col, col)
		rows, err := r.conn(ctx).Query(ctx, q)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var priority string
			var count int
			if err := rows.Scan(&priority, &count); err != nil {
				rows.Close()
				return nil, err
			}
			target[priority] = count
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}
	}

	rows, err := r.conn(ctx).Query(ctx,
		"SELECT medicines, equipment, infrastructure FROM needs_identification ORDER BY created_at ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	medicines := newItemTally()
	equipment := newItemTally()
	infrastructure := newItemTally()
	for rows.Next() {
		var med, eq, infra []string
		if err := rows.Scan(&med, &eq, &infra); err != nil {
			return nil, err
		}
		medicines.add(med)
		equipment.add(eq)
		infrastructure.add(infra)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	stats.TopMedicines = medicines.top(topN)
	stats.TopEquipment = equipment.top(topN)
	stats.TopInfrastructure = infrastructure.top(topN)
	return stats, nil
}

// itemTally counts item occurrences while remembering first-seen order.
type itemTally struct {
	counts map[string]int
	order  []string
}

func newItemTally() *itemTally {
	return &itemTally{counts: make(map[string]int)}
}

func (t *itemTally) add(items []string) {
	for _, item := range items {
		if _, seen := t.counts[item]; !seen {
			t.order = append(t.order, item)
		}
		t.counts[item]++
	}
}

func (t *itemTally) top(n int) []ItemCount {
	ranked := make([]ItemCount, 0, len(t.order))
	for _, name := range t.order {
		ranked = append(ranked, ItemCount{Name: name, Count: t.counts[name]})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Count > ranked[j].Count })
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
