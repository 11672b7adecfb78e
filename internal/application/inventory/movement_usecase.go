package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jhoicas/vendhub-inventory/internal/domain"
	"github.com/jhoicas/vendhub-inventory/internal/domain/entity"
	"github.com/jhoicas/vendhub-inventory/internal/domain/inventory"
	"github.com/jhoicas/vendhub-inventory/internal/domain/repository"
)

// DefaultMovementLimit tope de filas por consulta si no se configura otro.
const DefaultMovementLimit = 500

// MovementUseCase consultas del registro de movimientos y cambios de stock que no son
// transferencias (recepción, baja, venta POS).
type MovementUseCase struct {
	tx        TxRunner
	movements repository.MovementRepository
	maxLimit  int
	opts      Options
}

// NewMovementUseCase maxLimit <= 0 usa DefaultMovementLimit.
func NewMovementUseCase(tx TxRunner, movements repository.MovementRepository, maxLimit int, opts Options) *MovementUseCase {
	if maxLimit <= 0 {
		maxLimit = DefaultMovementLimit
	}
	return &MovementUseCase{tx: tx, movements: movements, maxLimit: maxLimit, opts: opts.withDefaults()}
}

// StockChangeInput cambio unilateral de stock en una ubicación.
type StockChangeInput struct {
	LocationID    string
	ItemID        string
	Quantity      decimal.Decimal
	Actor         string
	TaskID        string
	Notes         string
	OperationDate *time.Time
	Metadata      map[string]any
}

// StockChangeResult fila resultante y movimiento registrado.
type StockChangeResult struct {
	Stock    *entity.StockRecord
	Movement *entity.MovementRecord
}

// Get movimiento por id.
func (uc *MovementUseCase) Get(ctx context.Context, id string) (*entity.MovementRecord, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.ErrInvalidInput
	}
	m, err := uc.movements.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("movimiento %s: %w", id, domain.ErrNotFound)
	}
	return m, nil
}

// List movimientos filtrados, más recientes primero.
func (uc *MovementUseCase) List(ctx context.Context, filter repository.MovementFilter) ([]*entity.MovementRecord, error) {
	filter, err := uc.normalizeFilter(filter)
	if err != nil {
		return nil, err
	}
	return uc.movements.List(ctx, filter)
}

// Stats total y desglose por tipo para el mismo filtro (sin paginación).
func (uc *MovementUseCase) Stats(ctx context.Context, filter repository.MovementFilter) (*entity.MovementStats, error) {
	filter, err := uc.normalizeFilter(filter)
	if err != nil {
		return nil, err
	}
	filter.Limit, filter.Offset = 0, 0
	return uc.movements.Stats(ctx, filter)
}

func (uc *MovementUseCase) normalizeFilter(f repository.MovementFilter) (repository.MovementFilter, error) {
	if f.Type != "" && !f.Type.Valid() {
		return f, fmt.Errorf("tipo de movimiento %q: %w", f.Type, domain.ErrInvalidInput)
	}
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return f, fmt.Errorf("rango de fechas: %w", domain.ErrInvalidInput)
	}
	if f.Limit <= 0 || f.Limit > uc.maxLimit {
		f.Limit = uc.maxLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f, nil
}

// ReceiveWarehouse entrada de mercancía a bodega (WAREHOUSE_IN). Crea la fila si no existe.
func (uc *MovementUseCase) ReceiveWarehouse(ctx context.Context, in StockChangeInput) (*StockChangeResult, error) {
	key := entity.StockKey{Level: entity.LevelWarehouse, LocationID: in.LocationID, ItemID: in.ItemID}
	return uc.change(ctx, key, entity.MovementWarehouseIn, in, true, inventory.GuardNone)
}

// WriteOffWarehouse baja de bodega (WAREHOUSE_OUT). No puede consumir stock reservado.
func (uc *MovementUseCase) WriteOffWarehouse(ctx context.Context, in StockChangeInput) (*StockChangeResult, error) {
	key := entity.StockKey{Level: entity.LevelWarehouse, LocationID: in.LocationID, ItemID: in.ItemID}
	return uc.change(ctx, key, entity.MovementWarehouseOut, in, false, inventory.GuardAvailable)
}

// RecordSale descuento por venta en máquina (MACHINE_SALE). Es forzado: la venta ya ocurrió,
// así que el stock de la máquina puede quedar negativo y se deja registrado en el log.
func (uc *MovementUseCase) RecordSale(ctx context.Context, in StockChangeInput) (*StockChangeResult, error) {
	key := entity.StockKey{Level: entity.LevelMachine, LocationID: in.LocationID, ItemID: in.ItemID}
	return uc.change(ctx, key, entity.MovementMachineSale, in, false, inventory.GuardNone)
}

func (uc *MovementUseCase) change(ctx context.Context, key entity.StockKey, mt entity.MovementType, in StockChangeInput, credit bool, guard inventory.Guard) (_ *StockChangeResult, err error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	q, err := validQuantity(in.Quantity)
	if err != nil {
		return nil, err
	}
	ctx, span := startSpan(ctx, "inventory.StockChange",
		attribute.String("movement.type", string(mt)),
		attribute.String("stock.key", key.String()),
		attribute.String("quantity", q.String()),
	)
	defer func() { endSpan(span, err) }()

	delta := q
	if !credit {
		delta = q.Neg()
	}
	var res *StockChangeResult
	err = uc.tx.Run(ctx, func(ctx context.Context, r Repositories) error {
		if credit || guard == inventory.GuardNone {
			if err := r.Stock.EnsureExists(ctx, key); err != nil {
				return err
			}
		}
		rec, err := r.Stock.GetForUpdate(ctx, key)
		if err != nil {
			return err
		}
		if rec == nil {
			return fmt.Errorf("stock %s: %w", key, domain.ErrNotFound)
		}
		if err := inventory.ApplyDelta(rec, delta, decimal.Zero, guard); err != nil {
			return err
		}
		now := uc.opts.Now()
		rec.UpdatedAt = now

		mov := &entity.MovementRecord{
			Type:        mt,
			ItemID:      key.ItemID,
			Quantity:    q,
			PerformedBy: in.Actor,
			TaskID:      in.TaskID,
			Notes:       in.Notes,
			Metadata:    in.Metadata,
		}
		if credit {
			mov.ToLevel, mov.ToLocationID = key.Level, key.LocationID
		} else {
			mov.FromLevel, mov.FromLocationID = key.Level, key.LocationID
		}
		if in.OperationDate != nil {
			mov.OperationDate = *in.OperationDate
		}
		if err := r.Stock.Save(ctx, rec); err != nil {
			return err
		}
		if err := appendMovement(ctx, r.Movements, mov, now); err != nil {
			return err
		}
		res = &StockChangeResult{Stock: rec, Movement: mov}
		return nil
	})
	uc.opts.Metrics.ObserveStockChange(string(mt), err)
	if err != nil {
		return nil, err
	}
	if res.Stock.CurrentQuantity.IsNegative() {
		uc.opts.Logger.Warn().
			Str("stock", key.String()).
			Str("current_quantity", res.Stock.CurrentQuantity.StringFixed(inventory.QuantityScale)).
			Str("movement_type", string(mt)).
			Msg("stock negativo tras movimiento forzado")
	}
	uc.opts.publish(ctx, []*entity.MovementRecord{res.Movement})
	return res, nil
}

// appendMovement completa id, fechas y escala, y agrega el movimiento dentro de la tx en curso.
func appendMovement(ctx context.Context, repo repository.MovementRepository, m *entity.MovementRecord, now time.Time) error {
	m.Quantity = inventory.Normalize(m.Quantity)
	if !m.Type.Valid() || !m.Quantity.IsPositive() || m.ItemID == "" {
		return fmt.Errorf("movimiento %s: %w", m.Type, domain.ErrInvalidInput)
	}
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	m.CreatedAt = now
	if m.OperationDate.IsZero() {
		m.OperationDate = now
	}
	if err := repo.Create(ctx, m); err != nil {
		return fmt.Errorf("registrar movimiento: %w", err)
	}
	return nil
}
