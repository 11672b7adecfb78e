package repository

import (
	"context"

	"github.com/jhoicas/vendhub-inventory/internal/domain/entity"
)

// StockRepository puerto para filas de stock de los tres niveles (bodega, operador, máquina).
// Usado dentro de transacciones para garantizar consistencia.
type StockRepository interface {
	// Get lectura pura; devuelve (nil, nil) si la fila no existe.
	Get(ctx context.Context, key entity.StockKey) (*entity.StockRecord, error)
	// GetForUpdate bloquea la fila hasta el fin de la transacción (SELECT FOR UPDATE); (nil, nil) si no existe.
	GetForUpdate(ctx context.Context, key entity.StockKey) (*entity.StockRecord, error)
	// EnsureExists crea la fila con cantidades en cero si no existe; no bloquea.
	EnsureExists(ctx context.Context, key entity.StockKey) error
	// Save persiste una fila previamente bloqueada con GetForUpdate.
	Save(ctx context.Context, stock *entity.StockRecord) error
	ListByLocation(ctx context.Context, level entity.Level, locationID string) ([]*entity.StockRecord, error)
	ListByItem(ctx context.Context, itemID string) ([]*entity.StockRecord, error)
	// ListLow filas del nivel con min_stock_level definido y current_quantity <= mínimo.
	ListLow(ctx context.Context, level entity.Level) ([]*entity.StockRecord, error)
}
