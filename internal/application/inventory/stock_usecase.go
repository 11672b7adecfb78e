package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/vendhub-inventory/internal/domain"
	"github.com/jhoicas/vendhub-inventory/internal/domain/entity"
	"github.com/jhoicas/vendhub-inventory/internal/domain/inventory"
	"github.com/jhoicas/vendhub-inventory/internal/domain/repository"
)

// StockUseCase acceso genérico a las filas de stock de los tres niveles.
// Las lecturas son puras; la creación de filas vacías es explícita (EnsureExists).
type StockUseCase struct {
	tx    TxRunner
	stock repository.StockRepository
	opts  Options
}

// NewStockUseCase construye el caso de uso. stock es el repositorio fuera de transacción (pool).
func NewStockUseCase(tx TxRunner, stock repository.StockRepository, opts Options) *StockUseCase {
	return &StockUseCase{tx: tx, stock: stock, opts: opts.withDefaults()}
}

// Guardas de Mutate.
const (
	GuardNone      = inventory.GuardNone
	GuardCurrent   = inventory.GuardCurrent
	GuardAvailable = inventory.GuardAvailable
)

// MutateInput deltas a aplicar sobre una fila bloqueada.
type MutateInput struct {
	Key           entity.StockKey
	DeltaCurrent  decimal.Decimal
	DeltaReserved decimal.Decimal
	Guard         inventory.Guard
}

// Get devuelve la fila o ErrNotFound. No crea nada.
func (uc *StockUseCase) Get(ctx context.Context, key entity.StockKey) (*entity.StockRecord, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	rec, err := uc.stock.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("stock %s: %w", key, domain.ErrNotFound)
	}
	return rec, nil
}

// EnsureExists crea la fila en cero si no existe y la devuelve.
func (uc *StockUseCase) EnsureExists(ctx context.Context, key entity.StockKey) (*entity.StockRecord, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	if err := uc.stock.EnsureExists(ctx, key); err != nil {
		return nil, err
	}
	return uc.Get(ctx, key)
}

// GetOrCreate conserva la semántica histórica de "obtener o crear": puede escribir una fila vacía.
func (uc *StockUseCase) GetOrCreate(ctx context.Context, key entity.StockKey) (*entity.StockRecord, error) {
	return uc.EnsureExists(ctx, key)
}

// Mutate aplica los deltas bajo bloqueo pesimista y devuelve la fila actualizada.
// Un débito sobre una fila inexistente es ErrNotFound; un crédito crea la fila.
func (uc *StockUseCase) Mutate(ctx context.Context, in MutateInput) (*entity.StockRecord, error) {
	if err := validateKey(in.Key); err != nil {
		return nil, err
	}
	var out *entity.StockRecord
	err := uc.tx.Run(ctx, func(ctx context.Context, r Repositories) error {
		if !in.DeltaCurrent.IsNegative() && !in.DeltaReserved.IsPositive() || in.Guard == inventory.GuardNone {
			if err := r.Stock.EnsureExists(ctx, in.Key); err != nil {
				return err
			}
		}
		rec, err := r.Stock.GetForUpdate(ctx, in.Key)
		if err != nil {
			return err
		}
		if rec == nil {
			return fmt.Errorf("stock %s: %w", in.Key, domain.ErrNotFound)
		}
		if err := inventory.ApplyDelta(rec, in.DeltaCurrent, in.DeltaReserved, in.Guard); err != nil {
			return err
		}
		rec.UpdatedAt = uc.opts.Now()
		if err := r.Stock.Save(ctx, rec); err != nil {
			return err
		}
		out = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListByLocation filas vigentes de una ubicación.
func (uc *StockUseCase) ListByLocation(ctx context.Context, level entity.Level, locationID string) ([]*entity.StockRecord, error) {
	if !level.Valid() || strings.TrimSpace(locationID) == "" {
		return nil, domain.ErrInvalidInput
	}
	return uc.stock.ListByLocation(ctx, level, locationID)
}

// ListByItem filas de un ítem en todos los niveles.
func (uc *StockUseCase) ListByItem(ctx context.Context, itemID string) ([]*entity.StockRecord, error) {
	if strings.TrimSpace(itemID) == "" {
		return nil, domain.ErrInvalidInput
	}
	return uc.stock.ListByItem(ctx, itemID)
}

// ListLow filas en o bajo su mínimo (alerta de stock bajo).
func (uc *StockUseCase) ListLow(ctx context.Context, level entity.Level) ([]*entity.StockRecord, error) {
	if !level.Valid() {
		return nil, domain.ErrInvalidInput
	}
	return uc.stock.ListLow(ctx, level)
}

// SetMinStockLevel define (o quita con nil) el mínimo de la fila, creándola si hace falta.
func (uc *StockUseCase) SetMinStockLevel(ctx context.Context, key entity.StockKey, min *decimal.Decimal) (*entity.StockRecord, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	if min != nil && min.IsNegative() {
		return nil, domain.ErrInvalidInput
	}
	var out *entity.StockRecord
	err := uc.tx.Run(ctx, func(ctx context.Context, r Repositories) error {
		if err := r.Stock.EnsureExists(ctx, key); err != nil {
			return err
		}
		rec, err := r.Stock.GetForUpdate(ctx, key)
		if err != nil {
			return err
		}
		if rec == nil {
			return fmt.Errorf("stock %s: %w", key, domain.ErrNotFound)
		}
		if min != nil {
			v := inventory.Normalize(*min)
			rec.MinStockLevel = &v
		} else {
			rec.MinStockLevel = nil
		}
		rec.UpdatedAt = uc.opts.Now()
		out = rec
		return r.Stock.Save(ctx, rec)
	})
	return out, err
}

// SoftDeleteMachineStock borrado lógico de una fila de máquina. Solo se permite con
// cantidades en cero para no perder stock del registro.
func (uc *StockUseCase) SoftDeleteMachineStock(ctx context.Context, machineID, itemID string) error {
	key := entity.StockKey{Level: entity.LevelMachine, LocationID: machineID, ItemID: itemID}
	if err := validateKey(key); err != nil {
		return err
	}
	return uc.tx.Run(ctx, func(ctx context.Context, r Repositories) error {
		rec, err := r.Stock.GetForUpdate(ctx, key)
		if err != nil {
			return err
		}
		if rec == nil || rec.IsDeleted() {
			return fmt.Errorf("stock %s: %w", key, domain.ErrNotFound)
		}
		if !rec.CurrentQuantity.IsZero() || !rec.ReservedQuantity.IsZero() {
			return fmt.Errorf("stock %s con cantidad %s: %w", key, rec.CurrentQuantity.StringFixed(inventory.QuantityScale), domain.ErrConflict)
		}
		now := uc.opts.Now()
		rec.DeletedAt = &now
		rec.UpdatedAt = now
		return r.Stock.Save(ctx, rec)
	})
}

func validateKey(key entity.StockKey) error {
	if !key.Level.Valid() || strings.TrimSpace(key.LocationID) == "" || strings.TrimSpace(key.ItemID) == "" {
		return domain.ErrInvalidInput
	}
	return nil
}

// validQuantity cantidad estrictamente positiva, normalizada a 3 decimales.
func validQuantity(q decimal.Decimal) (decimal.Decimal, error) {
	q = inventory.Normalize(q)
	if !q.IsPositive() {
		return decimal.Zero, fmt.Errorf("cantidad %s: %w", q.String(), domain.ErrInvalidInput)
	}
	return q, nil
}
