// Package memory implementación en memoria del almacén de inventario para pruebas y entornos
// efímeros. Reproduce la semántica relevante de PostgreSQL: bloqueo exclusivo por fila hasta
// el fin de la transacción, escrituras invisibles para otros hasta el commit y rollback total.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/jhoicas/vendhub-inventory/internal/application/inventory"
	"github.com/jhoicas/vendhub-inventory/internal/domain/entity"
)

var _ inventory.TxRunner = (*Store)(nil)

// Store estado confirmado más las tablas de bloqueos por fila.
type Store struct {
	mu           sync.RWMutex
	stock        map[entity.StockKey]*entity.StockRecord
	reservations map[string]*entity.Reservation
	movements    []*entity.MovementRecord
	counts       []*entity.InventoryCount
	thresholds   []*entity.DifferenceThreshold

	stockLocks       *lockTable[entity.StockKey]
	reservationLocks *lockTable[string]
	now              func() time.Time
}

// Option configura el Store.
type Option func(*Store)

// WithClock reloj usado para created_at de las filas creadas por EnsureExists.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New crea un Store vacío.
func New(opts ...Option) *Store {
	s := &Store{
		stock:            make(map[entity.StockKey]*entity.StockRecord),
		reservations:     make(map[string]*entity.Reservation),
		stockLocks:       newLockTable[entity.StockKey](),
		reservationLocks: newLockTable[string](),
		now:              time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Run ejecuta fn en una transacción. Commit si fn devuelve nil; en otro caso se descarta
// la copia de trabajo. Los bloqueos se liberan siempre al salir.
func (s *Store) Run(ctx context.Context, fn func(ctx context.Context, repos inventory.Repositories) error) error {
	t := s.begin()
	defer t.release()
	if err := fn(ctx, s.repos(t)); err != nil {
		return err
	}
	s.commit(t)
	return nil
}

// Repositories repositorios fuera de transacción: cada escritura se confirma sola.
func (s *Store) Repositories() inventory.Repositories {
	return s.repos(nil)
}

func (s *Store) repos(t *tx) inventory.Repositories {
	return inventory.Repositories{
		Stock:        &StockRepo{s: s, tx: t},
		Movements:    &MovementRepo{s: s, tx: t},
		Reservations: &ReservationRepo{s: s, tx: t},
		Counts:       &CountRepo{s: s, tx: t},
		Thresholds:   &ThresholdRepo{s: s, tx: t},
	}
}

// tx copia de trabajo de una transacción.
type tx struct {
	s            *Store
	stockHeld    map[entity.StockKey]struct{}
	resHeld      map[string]struct{}
	stock        map[entity.StockKey]*entity.StockRecord
	inserted     map[entity.StockKey]*entity.StockRecord // filas en cero de EnsureExists, sin bloqueo
	reservations map[string]*entity.Reservation
	movements    []*entity.MovementRecord
	counts       []*entity.InventoryCount
	thresholds   []*entity.DifferenceThreshold
}

func (s *Store) begin() *tx {
	return &tx{
		s:            s,
		stockHeld:    make(map[entity.StockKey]struct{}),
		resHeld:      make(map[string]struct{}),
		stock:        make(map[entity.StockKey]*entity.StockRecord),
		inserted:     make(map[entity.StockKey]*entity.StockRecord),
		reservations: make(map[string]*entity.Reservation),
	}
}

func (s *Store) commit(t *tx) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, rec := range t.stock {
		s.stock[k] = rec
	}
	// ON CONFLICT DO NOTHING: otra transacción pudo confirmar la misma fila antes.
	for k, rec := range t.inserted {
		if _, ok := s.stock[k]; !ok {
			s.stock[k] = rec
		}
	}
	for id, r := range t.reservations {
		s.reservations[id] = r
	}
	s.movements = append(s.movements, t.movements...)
	s.counts = append(s.counts, t.counts...)
	s.thresholds = append(s.thresholds, t.thresholds...)
}

func (t *tx) lockStock(ctx context.Context, k entity.StockKey) error {
	if _, ok := t.stockHeld[k]; ok {
		return nil
	}
	if err := t.s.stockLocks.acquire(ctx, k); err != nil {
		return err
	}
	t.stockHeld[k] = struct{}{}
	return nil
}

func (t *tx) lockReservation(ctx context.Context, id string) error {
	if _, ok := t.resHeld[id]; ok {
		return nil
	}
	if err := t.s.reservationLocks.acquire(ctx, id); err != nil {
		return err
	}
	t.resHeld[id] = struct{}{}
	return nil
}

func (t *tx) release() {
	for k := range t.stockHeld {
		t.s.stockLocks.release(k)
	}
	for id := range t.resHeld {
		t.s.reservationLocks.release(id)
	}
	t.stockHeld = nil
	t.resHeld = nil
}

// autocommit ejecuta fn en una transacción propia cuando el repositorio no está atado a una.
func (s *Store) autocommit(t *tx, fn func(t *tx) error) error {
	if t != nil {
		return fn(t)
	}
	own := s.begin()
	defer own.release()
	if err := fn(own); err != nil {
		return err
	}
	s.commit(own)
	return nil
}

// lockTable un mutex por clave; la espera respeta la cancelación del contexto.
type lockTable[K comparable] struct {
	mu    sync.Mutex
	locks map[K]chan struct{}
}

func newLockTable[K comparable]() *lockTable[K] {
	return &lockTable[K]{locks: make(map[K]chan struct{})}
}

func (l *lockTable[K]) acquire(ctx context.Context, k K) error {
	l.mu.Lock()
	ch, ok := l.locks[k]
	if !ok {
		ch = make(chan struct{}, 1)
		l.locks[k] = ch
	}
	l.mu.Unlock()
	select {
	case ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *lockTable[K]) release(k K) {
	l.mu.Lock()
	ch := l.locks[k]
	l.mu.Unlock()
	<-ch
}
