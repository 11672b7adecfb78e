package inventory

import (
	"context"
	"time"

	"github.com/jhoicas/vendhub-inventory/internal/domain/entity"
	"github.com/jhoicas/vendhub-inventory/internal/domain/inventory"
	"github.com/jhoicas/vendhub-inventory/internal/domain/repository"
	"github.com/jhoicas/vendhub-inventory/pkg/logger"
)

// Repositories repositorios atados a una misma transacción.
type Repositories struct {
	Stock        repository.StockRepository
	Movements    repository.MovementRepository
	Reservations repository.ReservationRepository
	Counts       repository.CountRepository
	Thresholds   repository.ThresholdRepository
}

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Commit si fn devuelve nil; Rollback en cualquier otro caso. Garantiza atomicidad para el motor de inventario.
type TxRunner interface {
	Run(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}

// MovementPublisher difunde movimientos ya confirmados (nunca antes del commit).
type MovementPublisher interface {
	PublishMovements(ctx context.Context, movements []*entity.MovementRecord) error
}

// Metrics observador de resultados de las operaciones del núcleo.
type Metrics interface {
	ObserveTransfer(kind string, err error, elapsed time.Duration)
	ObserveReservation(operation string, err error, count int)
	ObserveStockChange(movementType string, err error)
	AddExpired(count int)
}

// Options colaboradores opcionales de los casos de uso; los nil se reemplazan por no-ops.
type Options struct {
	Publisher MovementPublisher
	Metrics   Metrics
	Logger    *logger.Logger
	Now       func() time.Time
	Numbers   *inventory.ReservationNumberGenerator
}

func (o Options) withDefaults() Options {
	if o.Publisher == nil {
		o.Publisher = nopPublisher{}
	}
	if o.Metrics == nil {
		o.Metrics = nopMetrics{}
	}
	if o.Logger == nil {
		o.Logger = logger.Nop()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Numbers == nil {
		o.Numbers = inventory.NewReservationNumberGenerator()
	}
	return o
}

// publish difunde los movimientos confirmados; un fallo se registra pero no revierte nada.
func (o Options) publish(ctx context.Context, movements []*entity.MovementRecord) {
	if len(movements) == 0 {
		return
	}
	if err := o.Publisher.PublishMovements(ctx, movements); err != nil {
		o.Logger.Warn().Err(err).Int("movements", len(movements)).Msg("publicar movimientos")
	}
}

type nopPublisher struct{}

func (nopPublisher) PublishMovements(context.Context, []*entity.MovementRecord) error { return nil }

type nopMetrics struct{}

func (nopMetrics) ObserveTransfer(string, error, time.Duration) {}
func (nopMetrics) ObserveReservation(string, error, int)        {}
func (nopMetrics) ObserveStockChange(string, error)             {}
func (nopMetrics) AddExpired(int)                               {}
