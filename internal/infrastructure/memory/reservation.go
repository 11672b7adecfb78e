package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jhoicas/vendhub-inventory/internal/domain"
	"github.com/jhoicas/vendhub-inventory/internal/domain/entity"
	"github.com/jhoicas/vendhub-inventory/internal/domain/repository"
)

var _ repository.ReservationRepository = (*ReservationRepo)(nil)

// ReservationRepo reservas de tarea y retenciones por etiqueta.
type ReservationRepo struct {
	s  *Store
	tx *tx
}

func (r *ReservationRepo) snapshot() map[string]*entity.Reservation {
	merged := make(map[string]*entity.Reservation)
	r.s.mu.RLock()
	for id, res := range r.s.reservations {
		merged[id] = res
	}
	r.s.mu.RUnlock()
	if r.tx != nil {
		for id, res := range r.tx.reservations {
			merged[id] = res
		}
	}
	return merged
}

func (r *ReservationRepo) read(id string) *entity.Reservation {
	if r.tx != nil {
		if res, ok := r.tx.reservations[id]; ok {
			return res.Clone()
		}
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.reservations[id].Clone()
}

// Create inserta una reserva nueva; el número debe ser único.
func (r *ReservationRepo) Create(_ context.Context, res *entity.Reservation) error {
	return r.s.autocommit(r.tx, func(t *tx) error {
		for _, other := range r.snapshot() {
			if other.ID == res.ID || other.ReservationNumber == res.ReservationNumber {
				return fmt.Errorf("reserva %s: %w", res.ReservationNumber, domain.ErrDuplicate)
			}
		}
		if _, ok := t.reservations[res.ID]; ok {
			return fmt.Errorf("reserva %s: %w", res.ReservationNumber, domain.ErrDuplicate)
		}
		t.reservations[res.ID] = res.Clone()
		return nil
	})
}

// Update persiste una reserva bloqueada o creada en la misma transacción.
func (r *ReservationRepo) Update(ctx context.Context, res *entity.Reservation) error {
	return r.s.autocommit(r.tx, func(t *tx) error {
		_, created := t.reservations[res.ID]
		if r.tx == nil {
			if err := t.lockReservation(ctx, res.ID); err != nil {
				return err
			}
		} else if _, held := t.resHeld[res.ID]; !held && !created {
			return fmt.Errorf("actualizar reserva %s sin bloqueo: %w", res.ReservationNumber, domain.ErrConflict)
		}
		if r.read(res.ID) == nil && !created {
			return fmt.Errorf("reserva %s: %w", res.ID, domain.ErrNotFound)
		}
		t.reservations[res.ID] = res.Clone()
		return nil
	})
}

func (r *ReservationRepo) GetByID(_ context.Context, id string) (*entity.Reservation, error) {
	return r.read(id), nil
}

func (r *ReservationRepo) GetByNumber(_ context.Context, number string) (*entity.Reservation, error) {
	for _, res := range r.snapshot() {
		if res.ReservationNumber == number {
			return res.Clone(), nil
		}
	}
	return nil, nil
}

// GetForUpdate bloquea la reserva; (nil, nil) si no existe.
func (r *ReservationRepo) GetForUpdate(ctx context.Context, id string) (*entity.Reservation, error) {
	if r.tx != nil {
		if err := r.tx.lockReservation(ctx, id); err != nil {
			return nil, fmt.Errorf("bloquear reserva %s: %w", id, err)
		}
	}
	return r.read(id), nil
}

// ListByTask reservas de la tarea en orden de creación.
func (r *ReservationRepo) ListByTask(_ context.Context, taskID string) ([]*entity.Reservation, error) {
	return r.filter(func(res *entity.Reservation) bool { return res.TaskID == taskID }), nil
}

// ListPendingByTaskForUpdate bloquea las PENDING de la tarea y vuelve a filtrar por estado
// después del bloqueo, igual que FOR UPDATE reevalúa la condición sobre la fila vigente.
func (r *ReservationRepo) ListPendingByTaskForUpdate(ctx context.Context, taskID string) ([]*entity.Reservation, error) {
	return r.lockPending(ctx, func(res *entity.Reservation) bool { return res.TaskID == taskID })
}

// ListPendingByTagForUpdate retenciones PENDING de la etiqueta, más antiguas primero.
func (r *ReservationRepo) ListPendingByTagForUpdate(ctx context.Context, q repository.TagHoldQuery) ([]*entity.Reservation, error) {
	return r.lockPending(ctx, func(res *entity.Reservation) bool {
		return res.Tag == q.Tag && res.ItemID == q.ItemID && res.Level == q.Level && res.ReferenceID == q.ReferenceID
	})
}

// ListExpiredIDs PENDING con expires_at < now, las que vencieron primero.
func (r *ReservationRepo) ListExpiredIDs(_ context.Context, now time.Time, limit int) ([]string, error) {
	list := r.filter(func(res *entity.Reservation) bool {
		return res.Status == entity.ReservationPending && res.IsExpired(now)
	})
	sort.SliceStable(list, func(i, j int) bool { return list[i].ExpiresAt.Before(*list[j].ExpiresAt) })
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	ids := make([]string, len(list))
	for i, res := range list {
		ids[i] = res.ID
	}
	return ids, nil
}

func (r *ReservationRepo) lockPending(ctx context.Context, match func(*entity.Reservation) bool) ([]*entity.Reservation, error) {
	candidates := r.filter(func(res *entity.Reservation) bool {
		return res.Status == entity.ReservationPending && match(res)
	})
	if r.tx == nil {
		return candidates, nil
	}
	ids := make([]string, len(candidates))
	for i, res := range candidates {
		ids[i] = res.ID
	}
	sort.Strings(ids)
	for _, id := range ids {
		if err := r.tx.lockReservation(ctx, id); err != nil {
			return nil, fmt.Errorf("bloquear reserva %s: %w", id, err)
		}
	}
	out := make([]*entity.Reservation, 0, len(candidates))
	for _, c := range candidates {
		if res := r.read(c.ID); res != nil && res.Status == entity.ReservationPending && match(res) {
			out = append(out, res)
		}
	}
	return out, nil
}

// filter copias que cumplen match, ordenadas por reserved_at y número.
func (r *ReservationRepo) filter(match func(*entity.Reservation) bool) []*entity.Reservation {
	out := make([]*entity.Reservation, 0)
	for _, res := range r.snapshot() {
		if match(res) {
			out = append(out, res.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ReservedAt.Equal(out[j].ReservedAt) {
			return out[i].ReservedAt.Before(out[j].ReservedAt)
		}
		return out[i].ReservationNumber < out[j].ReservationNumber
	})
	return out
}
