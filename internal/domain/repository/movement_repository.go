package repository

import (
	"context"
	"time"

	"github.com/jhoicas/vendhub-inventory/internal/domain/entity"
)

// MovementFilter filtros del registro de movimientos. Campos vacíos no filtran.
type MovementFilter struct {
	Type        entity.MovementType
	ItemID      string
	LocationID  string // coincide con origen o destino
	PerformedBy string
	TaskID      string
	From        *time.Time // operation_date >= From
	To          *time.Time // operation_date <= To
	Limit       int
	Offset      int
}

// MovementRepository puerto del registro de movimientos: solo inserción y consulta.
type MovementRepository interface {
	Create(ctx context.Context, movement *entity.MovementRecord) error
	GetByID(ctx context.Context, id string) (*entity.MovementRecord, error)
	List(ctx context.Context, filter MovementFilter) ([]*entity.MovementRecord, error)
	Stats(ctx context.Context, filter MovementFilter) (*entity.MovementStats, error)
}
