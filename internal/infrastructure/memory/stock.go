package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/jhoicas/vendhub-inventory/internal/domain"
	"github.com/jhoicas/vendhub-inventory/internal/domain/entity"
	"github.com/jhoicas/vendhub-inventory/internal/domain/repository"
)

var _ repository.StockRepository = (*StockRepo)(nil)

// StockRepo filas de stock de los tres niveles.
type StockRepo struct {
	s  *Store
	tx *tx
}

func (r *StockRepo) read(key entity.StockKey) *entity.StockRecord {
	if r.tx != nil {
		if rec, ok := r.tx.stock[key]; ok {
			return rec.Clone()
		}
	}
	r.s.mu.RLock()
	rec := r.s.stock[key]
	r.s.mu.RUnlock()
	if rec == nil && r.tx != nil {
		rec = r.tx.inserted[key]
	}
	return rec.Clone()
}

// Get lectura sin bloqueo; (nil, nil) si no existe.
func (r *StockRepo) Get(_ context.Context, key entity.StockKey) (*entity.StockRecord, error) {
	return r.read(key), nil
}

// GetForUpdate bloquea la fila hasta el fin de la transacción.
func (r *StockRepo) GetForUpdate(ctx context.Context, key entity.StockKey) (*entity.StockRecord, error) {
	if r.tx == nil {
		return r.read(key), nil
	}
	if err := r.tx.lockStock(ctx, key); err != nil {
		return nil, fmt.Errorf("bloquear stock %s: %w", key, err)
	}
	return r.read(key), nil
}

// EnsureExists inserta la fila en cero si falta, sin tomar su bloqueo. Dentro de una transacción
// la inserción solo es visible para ella y se descarta con el rollback; en el commit se aplica
// únicamente si nadie confirmó la fila antes. Fuera de transacción se confirma de inmediato.
func (r *StockRepo) EnsureExists(_ context.Context, key entity.StockKey) error {
	if r.read(key) != nil {
		return nil
	}
	rec := entity.NewStockRecord(uuid.New().String(), key, r.s.now())
	if r.tx != nil {
		r.tx.inserted[key] = rec
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.stock[key]; !ok {
		r.s.stock[key] = rec
	}
	return nil
}

// Save persiste una fila previamente bloqueada en la transacción.
func (r *StockRepo) Save(ctx context.Context, rec *entity.StockRecord) error {
	key := rec.Key()
	return r.s.autocommit(r.tx, func(t *tx) error {
		if r.tx == nil {
			if err := t.lockStock(ctx, key); err != nil {
				return err
			}
		} else if _, ok := t.stockHeld[key]; !ok {
			return fmt.Errorf("guardar stock %s sin bloqueo: %w", key, domain.ErrConflict)
		}
		t.stock[key] = rec.Clone()
		return nil
	})
}

// ListByLocation filas vigentes de la ubicación, por ítem.
func (r *StockRepo) ListByLocation(_ context.Context, level entity.Level, locationID string) ([]*entity.StockRecord, error) {
	return r.list(func(rec *entity.StockRecord) bool {
		return rec.Level == level && rec.LocationID == locationID && !rec.IsDeleted()
	}), nil
}

// ListByItem filas vigentes del ítem en todos los niveles.
func (r *StockRepo) ListByItem(_ context.Context, itemID string) ([]*entity.StockRecord, error) {
	return r.list(func(rec *entity.StockRecord) bool {
		return rec.ItemID == itemID && !rec.IsDeleted()
	}), nil
}

// ListLow filas vigentes del nivel en o bajo su mínimo.
func (r *StockRepo) ListLow(_ context.Context, level entity.Level) ([]*entity.StockRecord, error) {
	return r.list(func(rec *entity.StockRecord) bool {
		return rec.Level == level && !rec.IsDeleted() && rec.IsLow()
	}), nil
}

func (r *StockRepo) list(match func(*entity.StockRecord) bool) []*entity.StockRecord {
	merged := make(map[entity.StockKey]*entity.StockRecord)
	r.s.mu.RLock()
	for k, rec := range r.s.stock {
		merged[k] = rec
	}
	r.s.mu.RUnlock()
	if r.tx != nil {
		for k, rec := range r.tx.inserted {
			if _, ok := merged[k]; !ok {
				merged[k] = rec
			}
		}
		for k, rec := range r.tx.stock {
			merged[k] = rec
		}
	}
	out := make([]*entity.StockRecord, 0)
	for _, rec := range merged {
		if match(rec) {
			out = append(out, rec.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key().Less(out[j].Key()) })
	return out
}
