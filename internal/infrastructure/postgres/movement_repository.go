package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/vendhub-inventory/internal/domain/entity"
	"github.com/jhoicas/vendhub-inventory/internal/domain/repository"
)

var _ repository.MovementRepository = (*MovementRepo)(nil)

// MovementRepo registro de movimientos sobre PostgreSQL. Solo INSERT y SELECT.
type MovementRepo struct {
	q Querier
}

// NewMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewMovementRepository(q Querier) *MovementRepo {
	return &MovementRepo{q: q}
}

const movementColumns = `id, movement_type, item_id, quantity,
	COALESCE(from_level, ''), COALESCE(from_location_id, ''), COALESCE(to_level, ''), COALESCE(to_location_id, ''),
	COALESCE(performed_by, ''), COALESCE(task_id, ''), COALESCE(notes, ''), metadata, operation_date, created_at`

func scanMovement(row scanner) (*entity.MovementRecord, error) {
	var m entity.MovementRecord
	err := row.Scan(&m.ID, &m.Type, &m.ItemID, &m.Quantity,
		&m.FromLevel, &m.FromLocationID, &m.ToLevel, &m.ToLocationID,
		&m.PerformedBy, &m.TaskID, &m.Notes, &m.Metadata, &m.OperationDate, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Create inserta el movimiento; el caso de uso ya asignó ID y fechas.
func (r *MovementRepo) Create(ctx context.Context, m *entity.MovementRecord) error {
	query := `
		INSERT INTO movement_records (id, movement_type, item_id, quantity, from_level, from_location_id,
			to_level, to_location_id, performed_by, task_id, notes, metadata, operation_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	metadata := m.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	_, err := r.q.Exec(ctx, query,
		m.ID, m.Type, m.ItemID, m.Quantity,
		nullIfEmpty(string(m.FromLevel)), nullIfEmpty(m.FromLocationID),
		nullIfEmpty(string(m.ToLevel)), nullIfEmpty(m.ToLocationID),
		nullIfEmpty(m.PerformedBy), nullIfEmpty(m.TaskID), nullIfEmpty(m.Notes),
		metadata, m.OperationDate, m.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create movement %s: duplicado: %w", m.ID, err)
		}
		return fmt.Errorf("create movement: %w", err)
	}
	return nil
}

// GetByID (nil, nil) si no existe.
func (r *MovementRepo) GetByID(ctx context.Context, id string) (*entity.MovementRecord, error) {
	query := `SELECT ` + movementColumns + ` FROM movement_records WHERE id = $1`
	m, err := scanMovement(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get movement: %w", err)
	}
	return m, nil
}

// List movimientos más recientes primero (operation_date, luego created_at).
func (r *MovementRepo) List(ctx context.Context, f repository.MovementFilter) ([]*entity.MovementRecord, error) {
	w := movementWhere(f)
	query := `SELECT ` + movementColumns + ` FROM movement_records` + w.where() +
		` ORDER BY operation_date DESC, created_at DESC`
	if f.Limit > 0 {
		query += ` LIMIT ` + w.next(f.Limit)
	}
	if f.Offset > 0 {
		query += ` OFFSET ` + w.next(f.Offset)
	}
	rows, err := r.q.Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	defer rows.Close()
	list := make([]*entity.MovementRecord, 0)
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// Stats conteo y cantidad total por tipo, con los mismos filtros que List.
func (r *MovementRepo) Stats(ctx context.Context, f repository.MovementFilter) (*entity.MovementStats, error) {
	w := movementWhere(f)
	query := `SELECT movement_type, COUNT(*), COALESCE(SUM(quantity), 0) FROM movement_records` + w.where() +
		` GROUP BY movement_type ORDER BY movement_type`
	rows, err := r.q.Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("movement stats: %w", err)
	}
	defer rows.Close()
	stats := &entity.MovementStats{ByType: make([]entity.MovementTypeStats, 0)}
	for rows.Next() {
		var s entity.MovementTypeStats
		if err := rows.Scan(&s.Type, &s.Count, &s.Quantity); err != nil {
			return nil, fmt.Errorf("scan movement stats: %w", err)
		}
		stats.Total += s.Count
		stats.ByType = append(stats.ByType, s)
	}
	return stats, rows.Err()
}

func movementWhere(f repository.MovementFilter) *filter {
	w := &filter{}
	if f.Type != "" {
		w.add("movement_type = $%d", f.Type)
	}
	if f.ItemID != "" {
		w.add("item_id = $%d", f.ItemID)
	}
	if f.LocationID != "" {
		w.add("(from_location_id = $%[1]d OR to_location_id = $%[1]d)", f.LocationID)
	}
	if f.PerformedBy != "" {
		w.add("performed_by = $%d", f.PerformedBy)
	}
	if f.TaskID != "" {
		w.add("task_id = $%d", f.TaskID)
	}
	if f.From != nil {
		w.add("operation_date >= $%d", *f.From)
	}
	if f.To != nil {
		w.add("operation_date <= $%d", *f.To)
	}
	return w
}
