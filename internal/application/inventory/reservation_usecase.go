package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jhoicas/vendhub-inventory/internal/domain"
	"github.com/jhoicas/vendhub-inventory/internal/domain/entity"
	"github.com/jhoicas/vendhub-inventory/internal/domain/inventory"
	"github.com/jhoicas/vendhub-inventory/internal/domain/repository"
)

// DefaultExpireBatch reservas vencidas leídas por vuelta del barrido.
const DefaultExpireBatch = 500

// MaxReservationHours tope de expires_in_hours (un año).
const MaxReservationHours = 24 * 365

// ReservationSettings parámetros del coordinador de reservas.
type ReservationSettings struct {
	DefaultTTL  time.Duration // se aplica si la petición no indica horas; 0 = sin expiración
	ExpireBatch int
}

// ReservationUseCase ciclo de vida de las reservas: crear, cumplir, cancelar, expirar.
// También cubre las retenciones de bodega por etiqueta, que son reservas sin tarea.
type ReservationUseCase struct {
	tx           TxRunner
	reservations repository.ReservationRepository
	settings     ReservationSettings
	opts         Options
}

func NewReservationUseCase(tx TxRunner, reservations repository.ReservationRepository, settings ReservationSettings, opts Options) *ReservationUseCase {
	if settings.ExpireBatch <= 0 {
		settings.ExpireBatch = DefaultExpireBatch
	}
	return &ReservationUseCase{tx: tx, reservations: reservations, settings: settings, opts: opts.withDefaults()}
}

// ReservationItem línea de una reserva de tarea.
type ReservationItem struct {
	ItemID   string
	Quantity decimal.Decimal
}

// CreateReservationInput lote de reservas de una tarea contra una bodega u operador.
type CreateReservationInput struct {
	TaskID         string
	Level          entity.Level // warehouse | operator
	ReferenceID    string
	Items          []ReservationItem
	ExpiresInHours *float64 // nil = DefaultTTL
	Actor          string
	Notes          string
}

// WarehouseHoldInput retención (o liberación) de bodega identificada por una etiqueta opaca.
type WarehouseHoldInput struct {
	WarehouseID string
	ItemID      string
	Quantity    decimal.Decimal // en la liberación, 0 = liberar todo lo retenido
	Tag         string
	Actor       string
	Notes       string
}

// CreateReservations reserva todas las líneas en una sola transacción (todo o nada).
// No crea filas de stock: reservar donde no hay fila es ErrNotFound.
func (uc *ReservationUseCase) CreateReservations(ctx context.Context, in CreateReservationInput) (_ []*entity.Reservation, err error) {
	if strings.TrimSpace(in.TaskID) == "" || !in.Level.Reservable() || strings.TrimSpace(in.ReferenceID) == "" || len(in.Items) == 0 {
		return nil, domain.ErrInvalidInput
	}
	if h := in.ExpiresInHours; h != nil && !(*h > 0 && *h <= MaxReservationHours) {
		return nil, fmt.Errorf("expires_in_hours %v fuera de (0, %d]: %w", *h, MaxReservationHours, domain.ErrInvalidInput)
	}
	keys := make([]entity.StockKey, len(in.Items))
	qtys := make([]decimal.Decimal, len(in.Items))
	for i, it := range in.Items {
		keys[i] = entity.StockKey{Level: in.Level, LocationID: in.ReferenceID, ItemID: it.ItemID}
		if err := validateKey(keys[i]); err != nil {
			return nil, err
		}
		q, err := validQuantity(it.Quantity)
		if err != nil {
			return nil, err
		}
		qtys[i] = q
	}

	ctx, span := startSpan(ctx, "inventory.CreateReservations",
		attribute.String("task.id", in.TaskID),
		attribute.String("reservation.level", string(in.Level)),
		attribute.Int("reservation.items", len(in.Items)),
	)
	defer func() { endSpan(span, err) }()

	var out []*entity.Reservation
	var movs []*entity.MovementRecord
	err = uc.tx.Run(ctx, func(ctx context.Context, r Repositories) error {
		out, movs = nil, nil
		locked, err := lockStock(ctx, r.Stock, keys...)
		if err != nil {
			return err
		}
		now := uc.opts.Now()
		expires := uc.expiresAt(in.ExpiresInHours, now)
		for i, key := range keys {
			rec := locked[key]
			if rec == nil || rec.IsDeleted() {
				return fmt.Errorf("stock %s: %w", key, domain.ErrNotFound)
			}
			// Las líneas repetidas del mismo ítem se acumulan sobre la misma fila bloqueada.
			if err := inventory.ApplyDelta(rec, decimal.Zero, qtys[i], inventory.GuardAvailable); err != nil {
				return err
			}
			rec.UpdatedAt = now
			res, err := uc.newReservation(now, key, qtys[i], expires, in.Actor, in.Notes)
			if err != nil {
				return err
			}
			res.TaskID = in.TaskID
			if err := r.Reservations.Create(ctx, res); err != nil {
				return fmt.Errorf("crear reserva: %w", err)
			}
			mov := holdMovement(res, qtys[i], false, in.Actor)
			if err := appendMovement(ctx, r.Movements, mov, now); err != nil {
				return err
			}
			out = append(out, res)
			movs = append(movs, mov)
		}
		return saveStock(ctx, r.Stock, locked)
	})
	uc.opts.Metrics.ObserveReservation("create", err, len(out))
	if err != nil {
		return nil, err
	}
	uc.opts.publish(ctx, movs)
	return out, nil
}

// FulfillReservations cumple las reservas PENDING de la tarea. Sin pendientes devuelve lista vacía.
func (uc *ReservationUseCase) FulfillReservations(ctx context.Context, taskID string) ([]*entity.Reservation, error) {
	return uc.closeTask(ctx, taskID, entity.ReservationFulfilled, "fulfill")
}

// CancelReservations cancela las reservas PENDING de la tarea y libera lo retenido.
func (uc *ReservationUseCase) CancelReservations(ctx context.Context, taskID string) ([]*entity.Reservation, error) {
	return uc.closeTask(ctx, taskID, entity.ReservationCancelled, "cancel")
}

func (uc *ReservationUseCase) closeTask(ctx context.Context, taskID string, to entity.ReservationStatus, op string) (_ []*entity.Reservation, err error) {
	if strings.TrimSpace(taskID) == "" {
		return nil, domain.ErrInvalidInput
	}
	ctx, span := startSpan(ctx, "inventory.Reservations."+op, attribute.String("task.id", taskID))
	defer func() { endSpan(span, err) }()

	var out []*entity.Reservation
	var movs []*entity.MovementRecord
	err = uc.tx.Run(ctx, func(ctx context.Context, r Repositories) error {
		pending, err := r.Reservations.ListPendingByTaskForUpdate(ctx, taskID)
		if err != nil {
			return err
		}
		movs, err = uc.settle(ctx, r, pending, to)
		if err != nil {
			return err
		}
		out = pending
		return nil
	})
	uc.opts.Metrics.ObserveReservation(op, err, len(out))
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []*entity.Reservation{}
	}
	uc.opts.publish(ctx, movs)
	return out, nil
}

// settle lleva las reservas (ya bloqueadas) al estado terminal y descuenta lo retenido de su fila,
// con piso en cero. Bloquea las filas de stock después de las reservas, siempre en ese orden.
func (uc *ReservationUseCase) settle(ctx context.Context, r Repositories, list []*entity.Reservation, to entity.ReservationStatus) ([]*entity.MovementRecord, error) {
	if len(list) == 0 {
		return nil, nil
	}
	keys := make([]entity.StockKey, len(list))
	for i, res := range list {
		keys[i] = res.StockKey()
	}
	locked, err := lockStock(ctx, r.Stock, keys...)
	if err != nil {
		return nil, err
	}
	now := uc.opts.Now()
	movs := make([]*entity.MovementRecord, 0, len(list))
	for _, res := range list {
		held := res.Remaining()
		if rec := locked[res.StockKey()]; rec != nil {
			inventory.ReleaseReserved(rec, held)
			rec.UpdatedAt = now
		} else {
			uc.opts.Logger.Warn().
				Str("reservation_id", res.ID).
				Str("stock", res.StockKey().String()).
				Msg("reserva sin fila de stock; no hay cantidad que liberar")
		}
		if err := res.Transition(to, now); err != nil {
			return nil, err
		}
		if err := r.Reservations.Update(ctx, res); err != nil {
			return nil, fmt.Errorf("actualizar reserva %s: %w", res.ReservationNumber, err)
		}
		if held.IsPositive() {
			mov := holdMovement(res, held, true, res.CreatedBy)
			if err := appendMovement(ctx, r.Movements, mov, now); err != nil {
				return nil, err
			}
			movs = append(movs, mov)
		}
	}
	if err := saveStock(ctx, r.Stock, locked); err != nil {
		return nil, err
	}
	return movs, nil
}

// ExpireOldReservations expira las reservas PENDING vencidas. Cada reserva va en su propia
// transacción y el estado se vuelve a comprobar con la fila bloqueada, así que dos barridos
// simultáneos no la procesan dos veces. Devuelve cuántas expiró.
func (uc *ReservationUseCase) ExpireOldReservations(ctx context.Context) (_ int, err error) {
	ctx, span := startSpan(ctx, "inventory.ExpireOldReservations")
	defer func() { endSpan(span, err) }()

	var (
		count  int
		errs   []error
		movs   []*entity.MovementRecord
		failed = map[string]struct{}{}
	)
	for {
		now := uc.opts.Now()
		ids, err := uc.reservations.ListExpiredIDs(ctx, now, uc.settings.ExpireBatch)
		if err != nil {
			errs = append(errs, err)
			break
		}
		progress := 0
		for _, id := range ids {
			if _, ok := failed[id]; ok {
				continue
			}
			expired, m, err := uc.expireOne(ctx, id, now)
			if err != nil {
				failed[id] = struct{}{}
				errs = append(errs, fmt.Errorf("expirar reserva %s: %w", id, err))
				uc.opts.Logger.Error().Err(err).Str("reservation_id", id).Msg("expirar reserva")
				continue
			}
			progress++
			if expired {
				count++
				movs = append(movs, m...)
			}
		}
		if len(ids) < uc.settings.ExpireBatch || progress == 0 || ctx.Err() != nil {
			break
		}
	}

	uc.opts.Metrics.AddExpired(count)
	uc.opts.Metrics.ObserveReservation("expire", errors.Join(errs...), count)
	uc.opts.publish(ctx, movs)
	if count > 0 {
		uc.opts.Logger.Info().Int("expired", count).Msg("reservas expiradas")
	}
	return count, errors.Join(errs...)
}

func (uc *ReservationUseCase) expireOne(ctx context.Context, id string, now time.Time) (bool, []*entity.MovementRecord, error) {
	var (
		expired bool
		movs    []*entity.MovementRecord
	)
	err := uc.tx.Run(ctx, func(ctx context.Context, r Repositories) error {
		res, err := r.Reservations.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if res == nil || res.Status != entity.ReservationPending || !res.IsExpired(now) {
			return nil
		}
		movs, err = uc.settle(ctx, r, []*entity.Reservation{res}, entity.ReservationExpired)
		if err != nil {
			return err
		}
		expired = true
		return nil
	})
	if err != nil {
		return false, nil, err
	}
	return expired, movs, nil
}

// ReserveWarehouseStock retiene stock de bodega bajo una etiqueta. La retención es una reserva
// sin tarea ni expiración, de modo que comparte contabilidad con las reservas de tarea.
func (uc *ReservationUseCase) ReserveWarehouseStock(ctx context.Context, in WarehouseHoldInput) (_ *entity.Reservation, err error) {
	key := entity.StockKey{Level: entity.LevelWarehouse, LocationID: in.WarehouseID, ItemID: in.ItemID}
	if err := validateKey(key); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Tag) == "" {
		return nil, fmt.Errorf("etiqueta requerida: %w", domain.ErrInvalidInput)
	}
	q, err := validQuantity(in.Quantity)
	if err != nil {
		return nil, err
	}
	ctx, span := startSpan(ctx, "inventory.ReserveWarehouseStock",
		attribute.String("hold.tag", in.Tag),
		attribute.String("stock.key", key.String()),
	)
	defer func() { endSpan(span, err) }()

	var (
		out *entity.Reservation
		mov *entity.MovementRecord
	)
	err = uc.tx.Run(ctx, func(ctx context.Context, r Repositories) error {
		rec, err := r.Stock.GetForUpdate(ctx, key)
		if err != nil {
			return err
		}
		if rec == nil {
			return fmt.Errorf("stock %s: %w", key, domain.ErrNotFound)
		}
		if err := inventory.ApplyDelta(rec, decimal.Zero, q, inventory.GuardAvailable); err != nil {
			return err
		}
		now := uc.opts.Now()
		rec.UpdatedAt = now
		res, err := uc.newReservation(now, key, q, nil, in.Actor, in.Notes)
		if err != nil {
			return err
		}
		res.Tag = in.Tag
		if err := r.Reservations.Create(ctx, res); err != nil {
			return fmt.Errorf("crear retención: %w", err)
		}
		if err := r.Stock.Save(ctx, rec); err != nil {
			return err
		}
		mov = holdMovement(res, q, false, in.Actor)
		if err := appendMovement(ctx, r.Movements, mov, now); err != nil {
			return err
		}
		out = res
		return nil
	})
	uc.opts.Metrics.ObserveReservation("hold", err, 1)
	if err != nil {
		return nil, err
	}
	uc.opts.publish(ctx, []*entity.MovementRecord{mov})
	return out, nil
}

// ReleaseWarehouseReservation libera q de las retenciones de la etiqueta, las más antiguas primero.
// Una retención liberada en parte sigue PENDING con la cantidad reducida. q = 0 libera todo;
// q mayor a lo retenido es ErrInvalidInput. Devuelve las retenciones afectadas.
func (uc *ReservationUseCase) ReleaseWarehouseReservation(ctx context.Context, in WarehouseHoldInput) (_ []*entity.Reservation, err error) {
	key := entity.StockKey{Level: entity.LevelWarehouse, LocationID: in.WarehouseID, ItemID: in.ItemID}
	if err := validateKey(key); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Tag) == "" {
		return nil, fmt.Errorf("etiqueta requerida: %w", domain.ErrInvalidInput)
	}
	q := inventory.Normalize(in.Quantity)
	if q.IsNegative() {
		return nil, fmt.Errorf("cantidad %s: %w", q, domain.ErrInvalidInput)
	}
	ctx, span := startSpan(ctx, "inventory.ReleaseWarehouseReservation",
		attribute.String("hold.tag", in.Tag),
		attribute.String("stock.key", key.String()),
	)
	defer func() { endSpan(span, err) }()

	var (
		out []*entity.Reservation
		mov *entity.MovementRecord
	)
	err = uc.tx.Run(ctx, func(ctx context.Context, r Repositories) error {
		out = nil
		holds, err := r.Reservations.ListPendingByTagForUpdate(ctx, repository.TagHoldQuery{
			Tag: in.Tag, ItemID: in.ItemID, Level: entity.LevelWarehouse, ReferenceID: in.WarehouseID,
		})
		if err != nil {
			return err
		}
		held := decimal.Zero
		for _, h := range holds {
			held = held.Add(h.Remaining())
		}
		if !held.IsPositive() {
			return fmt.Errorf("retención %q sobre %s: %w", in.Tag, key, domain.ErrNotFound)
		}
		release := q
		if release.IsZero() {
			release = held
		}
		if release.GreaterThan(held) {
			return fmt.Errorf("liberar %s de %s retenido: %w",
				release.StringFixed(inventory.QuantityScale), held.StringFixed(inventory.QuantityScale), domain.ErrInvalidInput)
		}

		rec, err := r.Stock.GetForUpdate(ctx, key)
		if err != nil {
			return err
		}
		now := uc.opts.Now()
		left := release
		for _, h := range holds {
			if !left.IsPositive() {
				break
			}
			part := h.Remaining()
			if left.LessThan(part) {
				h.QuantityReserved = inventory.Normalize(h.QuantityReserved.Sub(left))
				h.UpdatedAt = now
				left = decimal.Zero
			} else {
				if err := h.Transition(entity.ReservationCancelled, now); err != nil {
					return err
				}
				left = left.Sub(part)
			}
			if err := r.Reservations.Update(ctx, h); err != nil {
				return fmt.Errorf("actualizar retención %s: %w", h.ReservationNumber, err)
			}
			out = append(out, h)
		}
		if rec != nil {
			inventory.ReleaseReserved(rec, release)
			rec.UpdatedAt = now
			if err := r.Stock.Save(ctx, rec); err != nil {
				return err
			}
		}
		mov = holdMovement(out[0], release, true, in.Actor)
		mov.Notes = in.Notes
		return appendMovement(ctx, r.Movements, mov, now)
	})
	uc.opts.Metrics.ObserveReservation("release", err, len(out))
	if err != nil {
		return nil, err
	}
	uc.opts.publish(ctx, []*entity.MovementRecord{mov})
	return out, nil
}

// ListByTask todas las reservas de la tarea, en cualquier estado.
func (uc *ReservationUseCase) ListByTask(ctx context.Context, taskID string) ([]*entity.Reservation, error) {
	if strings.TrimSpace(taskID) == "" {
		return nil, domain.ErrInvalidInput
	}
	return uc.reservations.ListByTask(ctx, taskID)
}

// GetByNumber reserva por número.
func (uc *ReservationUseCase) GetByNumber(ctx context.Context, number string) (*entity.Reservation, error) {
	if strings.TrimSpace(number) == "" {
		return nil, domain.ErrInvalidInput
	}
	res, err := uc.reservations.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, fmt.Errorf("reserva %s: %w", number, domain.ErrNotFound)
	}
	return res, nil
}

func (uc *ReservationUseCase) expiresAt(hours *float64, now time.Time) *time.Time {
	var ttl time.Duration
	switch {
	case hours != nil:
		ttl = time.Duration(*hours * float64(time.Hour))
	case uc.settings.DefaultTTL > 0:
		ttl = uc.settings.DefaultTTL
	default:
		return nil
	}
	t := now.Add(ttl)
	return &t
}

func (uc *ReservationUseCase) newReservation(now time.Time, key entity.StockKey, q decimal.Decimal, expires *time.Time, actor, notes string) (*entity.Reservation, error) {
	number, err := uc.opts.Numbers.Next(now)
	if err != nil {
		return nil, fmt.Errorf("generar número de reserva: %w", err)
	}
	return &entity.Reservation{
		ID:                uuid.New().String(),
		ReservationNumber: number,
		ItemID:            key.ItemID,
		QuantityReserved:  q,
		QuantityFulfilled: decimal.Zero,
		Status:            entity.ReservationPending,
		Level:             key.Level,
		ReferenceID:       key.LocationID,
		ReservedAt:        now,
		ExpiresAt:         expires,
		Notes:             notes,
		CreatedBy:         actor,
		UpdatedAt:         now,
	}, nil
}

// holdMovement movimiento de retención o liberación sobre la fila de la reserva.
func holdMovement(res *entity.Reservation, q decimal.Decimal, release bool, actor string) *entity.MovementRecord {
	t := entity.MovementOperatorReservation
	if res.Level == entity.LevelWarehouse {
		t = entity.MovementWarehouseReservation
	}
	if release {
		t = entity.MovementOperatorReservationRelease
		if res.Level == entity.LevelWarehouse {
			t = entity.MovementWarehouseReservationRelease
		}
	}
	meta := map[string]any{"reservation_number": res.ReservationNumber}
	if release {
		meta["status"] = string(res.Status)
	}
	if res.Tag != "" {
		meta["tag"] = res.Tag
	}
	return &entity.MovementRecord{
		Type:           t,
		ItemID:         res.ItemID,
		Quantity:       q,
		FromLevel:      res.Level,
		FromLocationID: res.ReferenceID,
		PerformedBy:    actor,
		TaskID:         res.TaskID,
		Metadata:       meta,
	}
}
