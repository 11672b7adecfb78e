package repository

import (
	"context"
	"time"

	"github.com/jhoicas/vendhub-inventory/internal/domain/entity"
)

// TagHoldQuery identifica las retenciones por etiqueta de un ítem en una ubicación.
type TagHoldQuery struct {
	Tag         string
	ItemID      string
	Level       entity.Level
	ReferenceID string
}

// ReservationRepository puerto de persistencia de reservas.
type ReservationRepository interface {
	Create(ctx context.Context, reservation *entity.Reservation) error
	// Update persiste una reserva bloqueada o creada en la misma transacción.
	Update(ctx context.Context, reservation *entity.Reservation) error
	GetByID(ctx context.Context, id string) (*entity.Reservation, error)
	GetByNumber(ctx context.Context, number string) (*entity.Reservation, error)
	// GetForUpdate bloquea la reserva; (nil, nil) si no existe.
	GetForUpdate(ctx context.Context, id string) (*entity.Reservation, error)
	ListByTask(ctx context.Context, taskID string) ([]*entity.Reservation, error)
	// ListPendingByTaskForUpdate bloquea las reservas PENDING de la tarea (orden por id).
	ListPendingByTaskForUpdate(ctx context.Context, taskID string) ([]*entity.Reservation, error)
	// ListPendingByTagForUpdate bloquea las retenciones PENDING de la etiqueta, más antiguas primero.
	ListPendingByTagForUpdate(ctx context.Context, q TagHoldQuery) ([]*entity.Reservation, error)
	// ListExpiredIDs ids de reservas PENDING con expires_at < now, sin bloquear.
	ListExpiredIDs(ctx context.Context, now time.Time, limit int) ([]string, error)
}
