package repository

import (
	"context"

	"github.com/jhoicas/vendhub-inventory/internal/domain/entity"
)

// CountRepository puerto para conteos físicos.
type CountRepository interface {
	Create(ctx context.Context, count *entity.InventoryCount) error
	ListByLocation(ctx context.Context, level entity.Level, locationID string, limit int) ([]*entity.InventoryCount, error)
}

// ThresholdRepository puerto para umbrales de diferencia.
type ThresholdRepository interface {
	Create(ctx context.Context, threshold *entity.DifferenceThreshold) error
	List(ctx context.Context) ([]*entity.DifferenceThreshold, error)
	ListActive(ctx context.Context) ([]*entity.DifferenceThreshold, error)
}
