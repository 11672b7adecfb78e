package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/vendhub-inventory/internal/domain/entity"
	"github.com/jhoicas/vendhub-inventory/internal/domain/repository"
)

var _ repository.StockRepository = (*StockRepo)(nil)

// StockRepo implementación de StockRepository sobre PostgreSQL (usable con pool o tx).
type StockRepo struct {
	q Querier
}

// NewStockRepository construye el adaptador de stock. Pasar pool o tx (Querier).
func NewStockRepository(q Querier) *StockRepo {
	return &StockRepo{q: q}
}

const stockColumns = `id, level, location_id, item_id, current_quantity, reserved_quantity, min_stock_level,
	last_refill_at, last_count_at, created_at, updated_at, deleted_at`

// scanner Scan común a pgx.Row y pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanStock(row scanner) (*entity.StockRecord, error) {
	var s entity.StockRecord
	err := row.Scan(&s.ID, &s.Level, &s.LocationID, &s.ItemID, &s.CurrentQuantity, &s.ReservedQuantity,
		&s.MinStockLevel, &s.LastRefillAt, &s.LastCountAt, &s.CreatedAt, &s.UpdatedAt, &s.DeletedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Get lectura sin bloqueo; (nil, nil) si no existe.
func (r *StockRepo) Get(ctx context.Context, key entity.StockKey) (*entity.StockRecord, error) {
	return r.getOne(ctx, key, "")
}

// GetForUpdate obtiene la fila y la bloquea hasta el fin de la transacción (SELECT FOR UPDATE).
func (r *StockRepo) GetForUpdate(ctx context.Context, key entity.StockKey) (*entity.StockRecord, error) {
	return r.getOne(ctx, key, " FOR UPDATE")
}

func (r *StockRepo) getOne(ctx context.Context, key entity.StockKey, suffix string) (*entity.StockRecord, error) {
	query := `SELECT ` + stockColumns + `
		FROM stock_records WHERE level = $1 AND location_id = $2 AND item_id = $3` + suffix
	s, err := scanStock(r.q.QueryRow(ctx, query, key.Level, key.LocationID, key.ItemID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get stock %s: %w", key, err)
	}
	return s, nil
}

// EnsureExists inserta la fila en cero; si ya existe no hace nada (ni bloquea).
func (r *StockRepo) EnsureExists(ctx context.Context, key entity.StockKey) error {
	query := `
		INSERT INTO stock_records (id, level, location_id, item_id, current_quantity, reserved_quantity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 0, 0, now(), now())
		ON CONFLICT (level, location_id, item_id) DO NOTHING`
	if _, err := r.q.Exec(ctx, query, uuid.New().String(), key.Level, key.LocationID, key.ItemID); err != nil {
		return fmt.Errorf("ensure stock %s: %w", key, err)
	}
	return nil
}

// Save persiste cantidades y marcas de una fila ya bloqueada.
func (r *StockRepo) Save(ctx context.Context, s *entity.StockRecord) error {
	query := `
		UPDATE stock_records SET current_quantity = $2, reserved_quantity = $3, min_stock_level = $4,
			last_refill_at = $5, last_count_at = $6, updated_at = $7, deleted_at = $8
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query, s.ID, s.CurrentQuantity, s.ReservedQuantity, s.MinStockLevel,
		s.LastRefillAt, s.LastCountAt, s.UpdatedAt, s.DeletedAt)
	if err != nil {
		return fmt.Errorf("save stock %s: %w", s.Key(), err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("save stock %s: %w", s.Key(), pgx.ErrNoRows)
	}
	return nil
}

// ListByLocation filas vigentes de una ubicación.
func (r *StockRepo) ListByLocation(ctx context.Context, level entity.Level, locationID string) ([]*entity.StockRecord, error) {
	query := `SELECT ` + stockColumns + `
		FROM stock_records WHERE level = $1 AND location_id = $2 AND deleted_at IS NULL
		ORDER BY item_id`
	return r.list(ctx, query, level, locationID)
}

// ListByItem filas vigentes del ítem en todos los niveles.
func (r *StockRepo) ListByItem(ctx context.Context, itemID string) ([]*entity.StockRecord, error) {
	query := `SELECT ` + stockColumns + `
		FROM stock_records WHERE item_id = $1 AND deleted_at IS NULL
		ORDER BY CASE level WHEN 'warehouse' THEN 0 WHEN 'operator' THEN 1 ELSE 2 END, location_id`
	return r.list(ctx, query, itemID)
}

// ListLow filas con mínimo definido y cantidad actual en o por debajo del mínimo.
func (r *StockRepo) ListLow(ctx context.Context, level entity.Level) ([]*entity.StockRecord, error) {
	query := `SELECT ` + stockColumns + `
		FROM stock_records
		WHERE level = $1 AND min_stock_level IS NOT NULL AND current_quantity <= min_stock_level AND deleted_at IS NULL
		ORDER BY location_id, item_id`
	return r.list(ctx, query, level)
}

func (r *StockRepo) list(ctx context.Context, query string, args ...any) ([]*entity.StockRecord, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list stock: %w", err)
	}
	defer rows.Close()
	var list []*entity.StockRecord
	for rows.Next() {
		s, err := scanStock(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stock: %w", err)
		}
		list = append(list, s)
	}
	return list, rows.Err()
}
