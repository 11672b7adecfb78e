package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/vendhub-inventory/internal/domain"
	"github.com/jhoicas/vendhub-inventory/internal/domain/entity"
	"github.com/jhoicas/vendhub-inventory/internal/domain/repository"
)

var _ repository.ReservationRepository = (*ReservationRepo)(nil)

// ReservationRepo reservas de tarea y retenciones por etiqueta sobre PostgreSQL.
type ReservationRepo struct {
	q Querier
}

// NewReservationRepository construye el adaptador. Pasar pool o tx (Querier).
func NewReservationRepository(q Querier) *ReservationRepo {
	return &ReservationRepo{q: q}
}

const reservationColumns = `id, reservation_number, COALESCE(task_id, ''), COALESCE(tag, ''), item_id,
	quantity_reserved, quantity_fulfilled, status, level, reference_id, reserved_at, expires_at,
	fulfilled_at, cancelled_at, COALESCE(notes, ''), COALESCE(created_by, ''), updated_at`

func scanReservation(row scanner) (*entity.Reservation, error) {
	var r entity.Reservation
	err := row.Scan(&r.ID, &r.ReservationNumber, &r.TaskID, &r.Tag, &r.ItemID,
		&r.QuantityReserved, &r.QuantityFulfilled, &r.Status, &r.Level, &r.ReferenceID, &r.ReservedAt, &r.ExpiresAt,
		&r.FulfilledAt, &r.CancelledAt, &r.Notes, &r.CreatedBy, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Create inserta la reserva; número o id repetido devuelve ErrDuplicate.
func (r *ReservationRepo) Create(ctx context.Context, res *entity.Reservation) error {
	query := `
		INSERT INTO reservations (id, reservation_number, task_id, tag, item_id, quantity_reserved, quantity_fulfilled,
			status, level, reference_id, reserved_at, expires_at, fulfilled_at, cancelled_at, notes, created_by, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`
	_, err := r.q.Exec(ctx, query,
		res.ID, res.ReservationNumber, nullIfEmpty(res.TaskID), nullIfEmpty(res.Tag), res.ItemID,
		res.QuantityReserved, res.QuantityFulfilled, res.Status, res.Level, res.ReferenceID,
		res.ReservedAt, res.ExpiresAt, res.FulfilledAt, res.CancelledAt,
		nullIfEmpty(res.Notes), nullIfEmpty(res.CreatedBy), res.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("reserva %s: %w", res.ReservationNumber, domain.ErrDuplicate)
		}
		return fmt.Errorf("create reservation: %w", err)
	}
	return nil
}

// Update persiste estado, cantidades y marcas de tiempo.
func (r *ReservationRepo) Update(ctx context.Context, res *entity.Reservation) error {
	query := `
		UPDATE reservations SET quantity_reserved = $2, quantity_fulfilled = $3, status = $4,
			fulfilled_at = $5, cancelled_at = $6, notes = $7, updated_at = $8
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query, res.ID, res.QuantityReserved, res.QuantityFulfilled, res.Status,
		res.FulfilledAt, res.CancelledAt, nullIfEmpty(res.Notes), res.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update reservation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("reserva %s: %w", res.ID, domain.ErrNotFound)
	}
	return nil
}

func (r *ReservationRepo) GetByID(ctx context.Context, id string) (*entity.Reservation, error) {
	return r.getOne(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = $1`, id)
}

func (r *ReservationRepo) GetByNumber(ctx context.Context, number string) (*entity.Reservation, error) {
	return r.getOne(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE reservation_number = $1`, number)
}

// GetForUpdate bloquea la reserva; (nil, nil) si no existe.
func (r *ReservationRepo) GetForUpdate(ctx context.Context, id string) (*entity.Reservation, error) {
	return r.getOne(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = $1 FOR UPDATE`, id)
}

func (r *ReservationRepo) getOne(ctx context.Context, query string, arg string) (*entity.Reservation, error) {
	res, err := scanReservation(r.q.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get reservation: %w", err)
	}
	return res, nil
}

func (r *ReservationRepo) ListByTask(ctx context.Context, taskID string) ([]*entity.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE task_id = $1
		ORDER BY reserved_at, reservation_number`
	return r.list(ctx, query, taskID)
}

// ListPendingByTaskForUpdate bloquea en orden de id, el mismo que usan todas las transacciones.
func (r *ReservationRepo) ListPendingByTaskForUpdate(ctx context.Context, taskID string) ([]*entity.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations
		WHERE task_id = $1 AND status = 'PENDING'
		ORDER BY id FOR UPDATE`
	return r.list(ctx, query, taskID)
}

// ListPendingByTagForUpdate retenciones más antiguas primero.
func (r *ReservationRepo) ListPendingByTagForUpdate(ctx context.Context, q repository.TagHoldQuery) ([]*entity.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations
		WHERE tag = $1 AND item_id = $2 AND level = $3 AND reference_id = $4 AND status = 'PENDING'
		ORDER BY reserved_at, reservation_number FOR UPDATE`
	return r.list(ctx, query, q.Tag, q.ItemID, q.Level, q.ReferenceID)
}

// ListExpiredIDs sin bloqueo; cada id se vuelve a validar bajo bloqueo al expirarlo.
func (r *ReservationRepo) ListExpiredIDs(ctx context.Context, now time.Time, limit int) ([]string, error) {
	query := `SELECT id FROM reservations
		WHERE status = 'PENDING' AND expires_at IS NOT NULL AND expires_at < $1
		ORDER BY expires_at LIMIT $2`
	rows, err := r.q.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list expired reservations: %w", err)
	}
	defer rows.Close()
	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan reservation id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *ReservationRepo) list(ctx context.Context, query string, args ...any) ([]*entity.Reservation, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	defer rows.Close()
	list := make([]*entity.Reservation, 0)
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		list = append(list, res)
	}
	return list, rows.Err()
}
