package inventory

import (
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid"
)

// ReservationNumberPrefix prefijo visible de los números de reserva.
const ReservationNumberPrefix = "RSV-"

// ReservationNumberGenerator genera números de reserva ULID monótonos: ordenables por tiempo
// y sin colisiones dentro del proceso aunque se generen varios en el mismo milisegundo.
type ReservationNumberGenerator struct {
	mu      sync.Mutex
	entropy io.Reader // ulid.Monotonic: incrementa dentro del mismo milisegundo
}

// NewReservationNumberGenerator usa crypto/rand como fuente de entropía.
func NewReservationNumberGenerator() *ReservationNumberGenerator {
	return newReservationNumberGenerator(rand.Reader)
}

func newReservationNumberGenerator(r io.Reader) *ReservationNumberGenerator {
	return &ReservationNumberGenerator{entropy: ulid.Monotonic(r, 0)}
}

// Next devuelve un número nuevo para el instante indicado.
func (g *ReservationNumberGenerator) Next(now time.Time) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id, err := ulid.New(ulid.Timestamp(now), g.entropy)
	if err != nil {
		return "", err
	}
	return ReservationNumberPrefix + id.String(), nil
}
