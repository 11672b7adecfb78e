package inventory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/vendhub-inventory/internal/application/inventory"
	"github.com/jhoicas/vendhub-inventory/internal/domain/entity"
	"github.com/jhoicas/vendhub-inventory/internal/infrastructure/memory"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordingPublisher struct {
	mu        sync.Mutex
	movements []*entity.MovementRecord
}

func (p *recordingPublisher) PublishMovements(_ context.Context, m []*entity.MovementRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.movements = append(p.movements, m...)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.movements)
}

type env struct {
	store        *memory.Store
	clock        *clock
	pub          *recordingPublisher
	stock        *inventory.StockUseCase
	transfers    *inventory.TransferUseCase
	reservations *inventory.ReservationUseCase
	movements    *inventory.MovementUseCase
	counts       *inventory.CountUseCase
}

func newEnv(t *testing.T) *env {
	t.Helper()
	c := newClock()
	s := memory.New(memory.WithClock(c.Now))
	pub := &recordingPublisher{}
	opts := inventory.Options{Publisher: pub, Now: c.Now}
	repos := s.Repositories()
	return &env{
		store:        s,
		clock:        c,
		pub:          pub,
		stock:        inventory.NewStockUseCase(s, repos.Stock, opts),
		transfers:    inventory.NewTransferUseCase(s, opts),
		reservations: inventory.NewReservationUseCase(s, repos.Reservations, inventory.ReservationSettings{}, opts),
		movements:    inventory.NewMovementUseCase(s, repos.Movements, 0, opts),
		counts:       inventory.NewCountUseCase(s, repos.Counts, repos.Thresholds, opts),
	}
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func hours(h float64) *float64 { return &h }

func warehouse(id, item string) entity.StockKey {
	return entity.StockKey{Level: entity.LevelWarehouse, LocationID: id, ItemID: item}
}

func operator(id, item string) entity.StockKey {
	return entity.StockKey{Level: entity.LevelOperator, LocationID: id, ItemID: item}
}

func machine(id, item string) entity.StockKey {
	return entity.StockKey{Level: entity.LevelMachine, LocationID: id, ItemID: item}
}

// put deja la fila con current = qty (crédito forzado sobre cero).
func (e *env) put(t *testing.T, key entity.StockKey, qty string) {
	t.Helper()
	_, err := e.stock.Mutate(context.Background(), inventory.MutateInput{
		Key: key, DeltaCurrent: d(qty), Guard: inventory.GuardNone,
	})
	require.NoError(t, err)
}

// row lectura pura; falla si la fila no existe.
func (e *env) row(t *testing.T, key entity.StockKey) *entity.StockRecord {
	t.Helper()
	rec, err := e.stock.Get(context.Background(), key)
	require.NoError(t, err)
	return rec
}

func assertQty(t *testing.T, want string, got decimal.Decimal, msg string) {
	t.Helper()
	require.Truef(t, d(want).Equal(got), "%s: esperado %s, obtenido %s", msg, want, got.String())
}
