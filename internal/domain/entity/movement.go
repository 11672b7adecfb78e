package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// MovementType tipo de evento que afecta cantidades.
type MovementType string

// Tipos de movimiento de inventario.
const (
	MovementWarehouseIn                 MovementType = "WAREHOUSE_IN"  // recepción en bodega
	MovementWarehouseOut                MovementType = "WAREHOUSE_OUT" // baja / salida de bodega
	MovementWarehouseToOperator         MovementType = "WAREHOUSE_TO_OPERATOR"
	MovementOperatorToWarehouse         MovementType = "OPERATOR_TO_WAREHOUSE"
	MovementOperatorToMachine           MovementType = "OPERATOR_TO_MACHINE" // recarga de máquina
	MovementMachineToOperator           MovementType = "MACHINE_TO_OPERATOR"
	MovementMachineSale                 MovementType = "MACHINE_SALE"
	MovementAdjustment                  MovementType = "ADJUSTMENT" // ajuste por conteo físico
	MovementWarehouseReservation        MovementType = "WAREHOUSE_RESERVATION"
	MovementWarehouseReservationRelease MovementType = "WAREHOUSE_RESERVATION_RELEASE"
	MovementOperatorReservation         MovementType = "OPERATOR_RESERVATION"
	MovementOperatorReservationRelease  MovementType = "OPERATOR_RESERVATION_RELEASE"
)

// Valid indica si el tipo es conocido.
func (t MovementType) Valid() bool {
	switch t {
	case MovementWarehouseIn, MovementWarehouseOut, MovementWarehouseToOperator, MovementOperatorToWarehouse,
		MovementOperatorToMachine, MovementMachineToOperator, MovementMachineSale, MovementAdjustment,
		MovementWarehouseReservation, MovementWarehouseReservationRelease,
		MovementOperatorReservation, MovementOperatorReservationRelease:
		return true
	}
	return false
}

// MovementRecord hecho inmutable: una vez registrado no se actualiza ni se borra.
type MovementRecord struct {
	ID             string
	Type           MovementType
	ItemID         string
	Quantity       decimal.Decimal // siempre magnitud positiva
	FromLevel      Level           // vacío si no aplica (p. ej. WAREHOUSE_IN)
	FromLocationID string
	ToLevel        Level
	ToLocationID   string
	PerformedBy    string
	TaskID         string
	Notes          string
	Metadata       map[string]any
	OperationDate  time.Time // fecha efectiva de negocio; por defecto CreatedAt
	CreatedAt      time.Time
}

// MovementTypeStats agregado por tipo de movimiento.
type MovementTypeStats struct {
	Type     MovementType
	Count    int
	Quantity decimal.Decimal
}

// MovementStats total de movimientos y desglose por tipo.
type MovementStats struct {
	Total  int
	ByType []MovementTypeStats
}
