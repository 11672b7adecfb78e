package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/vendhub-inventory/internal/domain/entity"
	"github.com/jhoicas/vendhub-inventory/internal/domain/repository"
)

var (
	_ repository.CountRepository     = (*CountRepo)(nil)
	_ repository.ThresholdRepository = (*ThresholdRepo)(nil)
)

// CountRepo conteos físicos.
type CountRepo struct {
	q Querier
}

func NewCountRepository(q Querier) *CountRepo {
	return &CountRepo{q: q}
}

func (r *CountRepo) Create(ctx context.Context, c *entity.InventoryCount) error {
	query := `
		INSERT INTO inventory_counts (id, level, location_id, item_id, expected_quantity, counted_quantity,
			difference, difference_pct, severity, threshold_id, actions, adjusted, counted_by, counted_at, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	actions := c.Actions
	if actions == nil {
		actions = []string{}
	}
	_, err := r.q.Exec(ctx, query, c.ID, c.Level, c.LocationID, c.ItemID, c.ExpectedQuantity, c.CountedQuantity,
		c.Difference, c.DifferencePct, c.Severity, nullIfEmpty(c.ThresholdID), actions, c.Adjusted,
		nullIfEmpty(c.CountedBy), c.CountedAt, nullIfEmpty(c.Notes))
	if err != nil {
		return fmt.Errorf("create inventory count: %w", err)
	}
	return nil
}

// ListByLocation conteos más recientes primero.
func (r *CountRepo) ListByLocation(ctx context.Context, level entity.Level, locationID string, limit int) ([]*entity.InventoryCount, error) {
	query := `
		SELECT id, level, location_id, item_id, expected_quantity, counted_quantity, difference, difference_pct,
			severity, COALESCE(threshold_id::text, ''), COALESCE(actions, '{}'), adjusted, COALESCE(counted_by, ''),
			counted_at, COALESCE(notes, '')
		FROM inventory_counts WHERE level = $1 AND location_id = $2
		ORDER BY counted_at DESC LIMIT $3`
	rows, err := r.q.Query(ctx, query, level, locationID, limit)
	if err != nil {
		return nil, fmt.Errorf("list inventory counts: %w", err)
	}
	defer rows.Close()
	list := make([]*entity.InventoryCount, 0)
	for rows.Next() {
		var c entity.InventoryCount
		if err := rows.Scan(&c.ID, &c.Level, &c.LocationID, &c.ItemID, &c.ExpectedQuantity, &c.CountedQuantity,
			&c.Difference, &c.DifferencePct, &c.Severity, &c.ThresholdID, &c.Actions, &c.Adjusted, &c.CountedBy,
			&c.CountedAt, &c.Notes); err != nil {
			return nil, fmt.Errorf("scan inventory count: %w", err)
		}
		list = append(list, &c)
	}
	return list, rows.Err()
}

// ThresholdRepo umbrales de diferencia.
type ThresholdRepo struct {
	q Querier
}

func NewThresholdRepository(q Querier) *ThresholdRepo {
	return &ThresholdRepo{q: q}
}

func (r *ThresholdRepo) Create(ctx context.Context, t *entity.DifferenceThreshold) error {
	query := `
		INSERT INTO difference_thresholds (id, name, item_id, level, absolute_limit, percent_limit, severity,
			actions, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	actions := t.Actions
	if actions == nil {
		actions = []string{}
	}
	_, err := r.q.Exec(ctx, query, t.ID, t.Name, nullIfEmpty(t.ItemID), nullIfEmpty(string(t.Level)),
		t.AbsoluteLimit, t.PercentLimit, t.Severity, actions, t.IsActive, t.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("umbral %s duplicado: %w", t.Name, err)
		}
		return fmt.Errorf("create threshold: %w", err)
	}
	return nil
}

func (r *ThresholdRepo) List(ctx context.Context) ([]*entity.DifferenceThreshold, error) {
	return r.list(ctx, "")
}

func (r *ThresholdRepo) ListActive(ctx context.Context) ([]*entity.DifferenceThreshold, error) {
	return r.list(ctx, " WHERE is_active")
}

func (r *ThresholdRepo) list(ctx context.Context, where string) ([]*entity.DifferenceThreshold, error) {
	query := `
		SELECT id, name, COALESCE(item_id, ''), COALESCE(level, ''), absolute_limit, percent_limit, severity,
			COALESCE(actions, '{}'), is_active, created_at
		FROM difference_thresholds` + where + ` ORDER BY created_at, name`
	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list thresholds: %w", err)
	}
	defer rows.Close()
	list := make([]*entity.DifferenceThreshold, 0)
	for rows.Next() {
		var t entity.DifferenceThreshold
		if err := rows.Scan(&t.ID, &t.Name, &t.ItemID, &t.Level, &t.AbsoluteLimit, &t.PercentLimit, &t.Severity,
			&t.Actions, &t.IsActive, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan threshold: %w", err)
		}
		list = append(list, &t)
	}
	return list, rows.Err()
}
