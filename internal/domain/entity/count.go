package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Severity gravedad de una diferencia de conteo.
type Severity string

const (
	SeverityNone     Severity = "NONE"
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

// Weight orden de gravedad (mayor = más grave).
func (s Severity) Weight() int {
	switch s {
	case SeverityInfo:
		return 1
	case SeverityWarning:
		return 2
	case SeverityCritical:
		return 3
	}
	return 0
}

// Acciones disparadas por un umbral.
const (
	ThresholdActionCreateIncident = "CREATE_INCIDENT"
	ThresholdActionCreateTask     = "CREATE_TASK"
	ThresholdActionNotify         = "NOTIFY"
)

// DifferenceThreshold límites absolutos o relativos para clasificar diferencias de conteo.
// ItemID y Level vacíos = umbral global.
type DifferenceThreshold struct {
	ID            string
	Name          string
	ItemID        string
	Level         Level
	AbsoluteLimit *decimal.Decimal // |diferencia| > límite
	PercentLimit  *decimal.Decimal // |diferencia| / esperado * 100 > límite
	Severity      Severity
	Actions       []string
	IsActive      bool
	CreatedAt     time.Time
}

// Specificity umbrales de ítem y nivel prevalecen sobre los globales.
func (t *DifferenceThreshold) Specificity() int {
	n := 0
	if t.ItemID != "" {
		n += 2
	}
	if t.Level != "" {
		n++
	}
	return n
}

// Applies indica si el umbral aplica al ítem y nivel.
func (t *DifferenceThreshold) Applies(itemID string, level Level) bool {
	if !t.IsActive {
		return false
	}
	if t.ItemID != "" && t.ItemID != itemID {
		return false
	}
	if t.Level != "" && t.Level != level {
		return false
	}
	return true
}

// InventoryCount conteo físico comparado contra la cantidad registrada.
type InventoryCount struct {
	ID               string
	Level            Level
	LocationID       string
	ItemID           string
	ExpectedQuantity decimal.Decimal
	CountedQuantity  decimal.Decimal
	Difference       decimal.Decimal // contado - esperado
	DifferencePct    decimal.Decimal
	Severity         Severity
	ThresholdID      string
	Actions          []string
	Adjusted         bool
	CountedBy        string
	CountedAt        time.Time
	Notes            string
}
