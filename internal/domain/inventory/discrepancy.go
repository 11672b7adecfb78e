package inventory

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/vendhub-inventory/internal/domain/entity"
)

var hundred = decimal.NewFromInt(100)

// Discrepancy resultado de comparar un conteo físico contra el registro.
type Discrepancy struct {
	Expected   decimal.Decimal
	Counted    decimal.Decimal
	Difference decimal.Decimal // contado - esperado
	Percent    decimal.Decimal // |diferencia| / esperado * 100; 100 si esperado es 0 y hay diferencia
	Severity   entity.Severity
	Threshold  *entity.DifferenceThreshold
}

// EvaluateDiscrepancy calcula la diferencia y elige el umbral excedido más grave;
// a igual gravedad gana el más específico (ítem > nivel > global).
func EvaluateDiscrepancy(expected, counted decimal.Decimal, itemID string, level entity.Level, thresholds []*entity.DifferenceThreshold) Discrepancy {
	d := Discrepancy{
		Expected:   Normalize(expected),
		Counted:    Normalize(counted),
		Difference: Normalize(counted.Sub(expected)),
		Severity:   entity.SeverityNone,
	}
	abs := d.Difference.Abs()
	switch {
	case abs.IsZero():
		d.Percent = decimal.Zero
	case expected.IsZero():
		d.Percent = hundred
	default:
		d.Percent = abs.Div(expected.Abs()).Mul(hundred).Round(2)
	}
	if abs.IsZero() {
		return d
	}

	for _, t := range thresholds {
		if !t.Applies(itemID, level) || !exceeds(t, abs, d.Percent) {
			continue
		}
		if d.Threshold == nil ||
			t.Severity.Weight() > d.Threshold.Severity.Weight() ||
			(t.Severity.Weight() == d.Threshold.Severity.Weight() && t.Specificity() > d.Threshold.Specificity()) {
			d.Threshold = t
		}
	}
	if d.Threshold != nil {
		d.Severity = d.Threshold.Severity
	}
	return d
}

func exceeds(t *entity.DifferenceThreshold, abs, pct decimal.Decimal) bool {
	if t.AbsoluteLimit != nil && abs.GreaterThan(*t.AbsoluteLimit) {
		return true
	}
	if t.PercentLimit != nil && pct.GreaterThan(*t.PercentLimit) {
		return true
	}
	return false
}
