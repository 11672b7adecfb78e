package inventory

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/vendhub-inventory/internal/domain"
	"github.com/jhoicas/vendhub-inventory/internal/domain/entity"
)

// QuantityScale decimales con que se guardan todas las cantidades (NUMERIC(15,3)).
const QuantityScale = 3

// ParseQuantity convierte a decimal cualquier representación que devuelva la capa de datos o el cliente:
// decimal, string ("100.500"), float, int. Nunca concatena: "100.500" se opera como 100.5.
func ParseQuantity(v any) (decimal.Decimal, error) {
	var d decimal.Decimal
	switch x := v.(type) {
	case decimal.Decimal:
		d = x
	case *decimal.Decimal:
		if x == nil {
			return decimal.Zero, nil
		}
		d = *x
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return decimal.Zero, nil
		}
		parsed, err := decimal.NewFromString(strings.Replace(s, ",", ".", 1))
		if err != nil {
			return decimal.Zero, fmt.Errorf("cantidad %q: %w", x, domain.ErrInvalidInput)
		}
		d = parsed
	case float64:
		d = decimal.NewFromFloat(x)
	case float32:
		d = decimal.NewFromFloat32(x)
	case int:
		d = decimal.NewFromInt(int64(x))
	case int64:
		d = decimal.NewFromInt(x)
	case int32:
		d = decimal.NewFromInt32(x)
	case nil:
		return decimal.Zero, nil
	default:
		return decimal.Zero, fmt.Errorf("cantidad de tipo %T: %w", v, domain.ErrInvalidInput)
	}
	return Normalize(d), nil
}

// Normalize redondea a QuantityScale decimales.
func Normalize(d decimal.Decimal) decimal.Decimal {
	return d.Round(QuantityScale)
}

// AddToStock suma dos cantidades en cualquier representación aceptada por ParseQuantity.
func AddToStock(current, delta any) (decimal.Decimal, error) {
	a, err := ParseQuantity(current)
	if err != nil {
		return decimal.Zero, err
	}
	b, err := ParseQuantity(delta)
	if err != nil {
		return decimal.Zero, err
	}
	return Normalize(a.Add(b)), nil
}

// Guard precondición que se verifica con la fila ya bloqueada.
type Guard int

const (
	// GuardNone ajustes forzados (ventas POS, conteos): se permite stock negativo.
	GuardNone Guard = iota
	// GuardCurrent un débito no puede superar current_quantity al momento del bloqueo.
	GuardCurrent
	// GuardAvailable débitos y nuevas reservas no pueden superar current - reserved.
	GuardAvailable
)

// ApplyDelta aplica los deltas a la fila bloqueada. reserved_quantity nunca queda por debajo de cero.
func ApplyDelta(rec *entity.StockRecord, deltaCurrent, deltaReserved decimal.Decimal, guard Guard) error {
	deltaCurrent = Normalize(deltaCurrent)
	deltaReserved = Normalize(deltaReserved)
	switch guard {
	case GuardCurrent:
		if deltaCurrent.IsNegative() && rec.CurrentQuantity.LessThan(deltaCurrent.Neg()) {
			return insufficient(rec, deltaCurrent.Neg(), rec.CurrentQuantity)
		}
	case GuardAvailable:
		need := decimal.Zero
		if deltaCurrent.IsNegative() {
			need = need.Add(deltaCurrent.Neg())
		}
		if deltaReserved.IsPositive() {
			need = need.Add(deltaReserved)
		}
		if need.IsPositive() && rec.Available().LessThan(need) {
			return insufficient(rec, need, rec.Available())
		}
	}
	rec.CurrentQuantity = Normalize(rec.CurrentQuantity.Add(deltaCurrent))
	reserved := rec.ReservedQuantity.Add(deltaReserved)
	if reserved.IsNegative() {
		reserved = decimal.Zero
	}
	rec.ReservedQuantity = Normalize(reserved)
	return nil
}

// ReleaseReserved descuenta q de reserved_quantity con piso en cero.
func ReleaseReserved(rec *entity.StockRecord, q decimal.Decimal) {
	_ = ApplyDelta(rec, decimal.Zero, q.Neg(), GuardNone)
}

func insufficient(rec *entity.StockRecord, requested, have decimal.Decimal) error {
	return fmt.Errorf("%s: solicitado %s, disponible %s: %w",
		rec.Key(), requested.StringFixed(QuantityScale), have.StringFixed(QuantityScale), domain.ErrInsufficientStock)
}
