package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/vendhub-inventory/internal/domain"
	"github.com/jhoicas/vendhub-inventory/internal/domain/entity"
	"github.com/jhoicas/vendhub-inventory/internal/domain/inventory"
	"github.com/jhoicas/vendhub-inventory/internal/domain/repository"
)

// CountUseCase conteos físicos y umbrales de diferencia.
type CountUseCase struct {
	tx         TxRunner
	counts     repository.CountRepository
	thresholds repository.ThresholdRepository
	opts       Options
}

func NewCountUseCase(tx TxRunner, counts repository.CountRepository, thresholds repository.ThresholdRepository, opts Options) *CountUseCase {
	return &CountUseCase{tx: tx, counts: counts, thresholds: thresholds, opts: opts.withDefaults()}
}

// RecordCountInput conteo de un ítem en una ubicación. Adjust lleva current_quantity al valor contado.
type RecordCountInput struct {
	Level      entity.Level
	LocationID string
	ItemID     string
	Counted    decimal.Decimal
	Actor      string
	Notes      string
	Adjust     bool
}

// CountResult conteo guardado y, si hubo ajuste, la fila y el movimiento ADJUSTMENT.
type CountResult struct {
	Count    *entity.InventoryCount
	Stock    *entity.StockRecord
	Movement *entity.MovementRecord
}

// CreateThresholdInput datos de un umbral nuevo.
type CreateThresholdInput struct {
	Name          string
	ItemID        string
	Level         entity.Level
	AbsoluteLimit *decimal.Decimal
	PercentLimit  *decimal.Decimal
	Severity      entity.Severity
	Actions       []string
}

// RecordCount compara el conteo contra el registro, clasifica la diferencia y la guarda.
// El ajuste es forzado: reserved_quantity no se toca y available puede quedar negativo;
// ese caso se informa en el log en lugar de corregirse.
func (uc *CountUseCase) RecordCount(ctx context.Context, in RecordCountInput) (*CountResult, error) {
	key := entity.StockKey{Level: in.Level, LocationID: in.LocationID, ItemID: in.ItemID}
	if err := validateKey(key); err != nil {
		return nil, err
	}
	counted := inventory.Normalize(in.Counted)
	if counted.IsNegative() {
		return nil, fmt.Errorf("cantidad contada %s: %w", counted, domain.ErrInvalidInput)
	}

	var res *CountResult
	err := uc.tx.Run(ctx, func(ctx context.Context, r Repositories) error {
		thresholds, err := r.Thresholds.ListActive(ctx)
		if err != nil {
			return err
		}
		if in.Adjust {
			if err := r.Stock.EnsureExists(ctx, key); err != nil {
				return err
			}
		}
		rec, err := r.Stock.GetForUpdate(ctx, key)
		if err != nil {
			return err
		}
		expected := decimal.Zero
		if rec != nil {
			expected = rec.CurrentQuantity
		}
		d := inventory.EvaluateDiscrepancy(expected, counted, in.ItemID, in.Level, thresholds)
		now := uc.opts.Now()

		count := &entity.InventoryCount{
			ID:               uuid.New().String(),
			Level:            in.Level,
			LocationID:       in.LocationID,
			ItemID:           in.ItemID,
			ExpectedQuantity: d.Expected,
			CountedQuantity:  d.Counted,
			Difference:       d.Difference,
			DifferencePct:    d.Percent,
			Severity:         d.Severity,
			CountedBy:        in.Actor,
			CountedAt:        now,
			Notes:            in.Notes,
		}
		if d.Threshold != nil {
			count.ThresholdID = d.Threshold.ID
			count.Actions = append([]string(nil), d.Threshold.Actions...)
		}
		res = &CountResult{Count: count}

		if rec != nil {
			rec.LastCountAt = &now
			rec.UpdatedAt = now
			if in.Adjust && !d.Difference.IsZero() {
				rec.CurrentQuantity = counted
				count.Adjusted = true
				mov := &entity.MovementRecord{
					Type:        entity.MovementAdjustment,
					ItemID:      in.ItemID,
					Quantity:    d.Difference.Abs(),
					PerformedBy: in.Actor,
					Notes:       in.Notes,
					Metadata: map[string]any{
						"previous":   d.Expected.StringFixed(inventory.QuantityScale),
						"counted":    d.Counted.StringFixed(inventory.QuantityScale),
						"difference": d.Difference.StringFixed(inventory.QuantityScale),
						"count_id":   count.ID,
					},
				}
				if d.Difference.IsPositive() {
					mov.ToLevel, mov.ToLocationID = in.Level, in.LocationID
				} else {
					mov.FromLevel, mov.FromLocationID = in.Level, in.LocationID
				}
				if err := appendMovement(ctx, r.Movements, mov, now); err != nil {
					return err
				}
				res.Movement = mov
			}
			if err := r.Stock.Save(ctx, rec); err != nil {
				return err
			}
			res.Stock = rec
		}
		if err := r.Counts.Create(ctx, count); err != nil {
			return fmt.Errorf("guardar conteo: %w", err)
		}
		return nil
	})
	if res != nil && res.Movement != nil {
		uc.opts.Metrics.ObserveStockChange(string(entity.MovementAdjustment), err)
	}
	if err != nil {
		return nil, err
	}

	if res.Count.Severity != entity.SeverityNone {
		uc.opts.Logger.Warn().
			Str("stock", key.String()).
			Str("severity", string(res.Count.Severity)).
			Str("difference", res.Count.Difference.StringFixed(inventory.QuantityScale)).
			Strs("actions", res.Count.Actions).
			Msg("diferencia de conteo sobre umbral")
	}
	if res.Stock != nil && res.Stock.Available().IsNegative() {
		uc.opts.Logger.Warn().
			Str("stock", key.String()).
			Str("available", res.Stock.Available().StringFixed(inventory.QuantityScale)).
			Msg("disponible negativo tras ajuste por conteo")
	}
	if res.Movement != nil {
		uc.opts.publish(ctx, []*entity.MovementRecord{res.Movement})
	}
	return res, nil
}

// ListCounts conteos de una ubicación, más recientes primero.
func (uc *CountUseCase) ListCounts(ctx context.Context, level entity.Level, locationID string, limit int) ([]*entity.InventoryCount, error) {
	if !level.Valid() || strings.TrimSpace(locationID) == "" {
		return nil, domain.ErrInvalidInput
	}
	if limit <= 0 || limit > DefaultMovementLimit {
		limit = DefaultMovementLimit
	}
	return uc.counts.ListByLocation(ctx, level, locationID, limit)
}

// CreateThreshold registra un umbral activo. Debe tener al menos un límite.
func (uc *CountUseCase) CreateThreshold(ctx context.Context, in CreateThresholdInput) (*entity.DifferenceThreshold, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("nombre requerido: %w", domain.ErrInvalidInput)
	}
	if in.Level != "" && !in.Level.Valid() {
		return nil, fmt.Errorf("nivel %q: %w", in.Level, domain.ErrInvalidInput)
	}
	if in.AbsoluteLimit == nil && in.PercentLimit == nil {
		return nil, fmt.Errorf("se requiere límite absoluto o porcentual: %w", domain.ErrInvalidInput)
	}
	for _, l := range []*decimal.Decimal{in.AbsoluteLimit, in.PercentLimit} {
		if l != nil && l.IsNegative() {
			return nil, fmt.Errorf("límite negativo: %w", domain.ErrInvalidInput)
		}
	}
	switch in.Severity {
	case entity.SeverityInfo, entity.SeverityWarning, entity.SeverityCritical:
	default:
		return nil, fmt.Errorf("severidad %q: %w", in.Severity, domain.ErrInvalidInput)
	}
	for _, a := range in.Actions {
		switch a {
		case entity.ThresholdActionCreateIncident, entity.ThresholdActionCreateTask, entity.ThresholdActionNotify:
		default:
			return nil, fmt.Errorf("acción %q: %w", a, domain.ErrInvalidInput)
		}
	}
	t := &entity.DifferenceThreshold{
		ID:            uuid.New().String(),
		Name:          strings.TrimSpace(in.Name),
		ItemID:        in.ItemID,
		Level:         in.Level,
		AbsoluteLimit: in.AbsoluteLimit,
		PercentLimit:  in.PercentLimit,
		Severity:      in.Severity,
		Actions:       in.Actions,
		IsActive:      true,
		CreatedAt:     uc.opts.Now(),
	}
	if err := uc.thresholds.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// ListThresholds todos los umbrales, activos o no.
func (uc *CountUseCase) ListThresholds(ctx context.Context) ([]*entity.DifferenceThreshold, error) {
	return uc.thresholds.List(ctx)
}

