package entity

import "strings"

// Level nivel de custodia del inventario: bodega, operador o máquina.
type Level string

const (
	LevelWarehouse Level = "warehouse"
	LevelOperator  Level = "operator"
	LevelMachine   Level = "machine"
)

// ParseLevel acepta el nombre del nivel en cualquier capitalización.
func ParseLevel(s string) (Level, bool) {
	l := Level(strings.ToLower(strings.TrimSpace(s)))
	return l, l.Valid()
}

// Valid indica si el nivel es uno de los tres conocidos.
func (l Level) Valid() bool {
	switch l {
	case LevelWarehouse, LevelOperator, LevelMachine:
		return true
	}
	return false
}

// Reservable solo bodega y operador admiten reservas.
func (l Level) Reservable() bool {
	return l == LevelWarehouse || l == LevelOperator
}

// rank orden canónico entre niveles (bodega < operador < máquina).
func (l Level) rank() int {
	switch l {
	case LevelWarehouse:
		return 0
	case LevelOperator:
		return 1
	case LevelMachine:
		return 2
	}
	return 3
}
