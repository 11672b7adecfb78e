package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/vendhub-inventory/internal/domain"
)

// ReservationStatus estado del ciclo de vida de una reserva.
type ReservationStatus string

const (
	ReservationPending            ReservationStatus = "PENDING"
	ReservationConfirmed          ReservationStatus = "CONFIRMED"
	ReservationPartiallyFulfilled ReservationStatus = "PARTIALLY_FULFILLED"
	ReservationFulfilled          ReservationStatus = "FULFILLED"
	ReservationCancelled          ReservationStatus = "CANCELLED"
	ReservationExpired            ReservationStatus = "EXPIRED"
)

// IsTerminal FULFILLED, CANCELLED y EXPIRED no admiten más cambios.
func (s ReservationStatus) IsTerminal() bool {
	return s == ReservationFulfilled || s == ReservationCancelled || s == ReservationExpired
}

// IsActive la reserva sigue reteniendo stock.
func (s ReservationStatus) IsActive() bool {
	return s == ReservationPending || s == ReservationConfirmed || s == ReservationPartiallyFulfilled
}

// CanTransition solo se sale de un estado activo, nunca de uno terminal.
// CONFIRMED y PARTIALLY_FULFILLED existen en el modelo pero ningún caso de uso los alcanza hoy.
func CanTransition(from, to ReservationStatus) bool {
	if !from.IsActive() || from == to {
		return false
	}
	switch to {
	case ReservationFulfilled, ReservationCancelled, ReservationExpired:
		return true
	case ReservationConfirmed:
		return from == ReservationPending
	case ReservationPartiallyFulfilled:
		return from == ReservationPending || from == ReservationConfirmed
	}
	return false
}

// Reservation retención provisional de stock contra una tarea (o contra una etiqueta opaca
// en el caso de las retenciones directas de bodega).
type Reservation struct {
	ID                string
	ReservationNumber string // se genera una vez; nunca se regenera si ya existe
	TaskID            string // vacío para retenciones por etiqueta
	Tag               string // vacío para reservas de tarea
	ItemID            string
	QuantityReserved  decimal.Decimal
	QuantityFulfilled decimal.Decimal
	Status            ReservationStatus
	Level             Level  // warehouse | operator
	ReferenceID       string // warehouse_id u operator_id
	ReservedAt        time.Time
	ExpiresAt         *time.Time // nil = no expira
	FulfilledAt       *time.Time
	CancelledAt       *time.Time
	Notes             string
	CreatedBy         string
	UpdatedAt         time.Time
}

// StockKey fila de stock sobre la que se retiene la cantidad.
func (r *Reservation) StockKey() StockKey {
	return StockKey{Level: r.Level, LocationID: r.ReferenceID, ItemID: r.ItemID}
}

// Remaining = reservada - cumplida.
func (r *Reservation) Remaining() decimal.Decimal {
	return r.QuantityReserved.Sub(r.QuantityFulfilled)
}

// IsExpired expires_at definido y anterior a now.
func (r *Reservation) IsExpired(now time.Time) bool {
	return r.ExpiresAt != nil && r.ExpiresAt.Before(now)
}

func (r *Reservation) IsActive() bool { return r.Status.IsActive() }

// Transition aplica el cambio de estado y sus marcas de tiempo.
func (r *Reservation) Transition(to ReservationStatus, now time.Time) error {
	if !CanTransition(r.Status, to) {
		return fmt.Errorf("reserva %s de %s a %s: %w", r.ReservationNumber, r.Status, to, domain.ErrInvalidTransition)
	}
	switch to {
	case ReservationFulfilled:
		r.QuantityFulfilled = r.QuantityReserved
		r.FulfilledAt = &now
	case ReservationCancelled, ReservationExpired:
		r.CancelledAt = &now
	}
	r.Status = to
	r.UpdatedAt = now
	return nil
}

// Clone copia profunda.
func (r *Reservation) Clone() *Reservation {
	if r == nil {
		return nil
	}
	c := *r
	c.ExpiresAt = cloneTime(r.ExpiresAt)
	c.FulfilledAt = cloneTime(r.FulfilledAt)
	c.CancelledAt = cloneTime(r.CancelledAt)
	return &c
}
