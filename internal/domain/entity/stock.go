package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockKey identifica una fila de stock: (nivel, ubicación, ítem).
type StockKey struct {
	Level      Level
	LocationID string
	ItemID     string
}

// Less orden canónico de bloqueo. Toda operación que bloquea varias filas lo hace en este orden.
func (k StockKey) Less(o StockKey) bool {
	if k.Level != o.Level {
		return k.Level.rank() < o.Level.rank()
	}
	if k.LocationID != o.LocationID {
		return k.LocationID < o.LocationID
	}
	return k.ItemID < o.ItemID
}

func (k StockKey) String() string {
	return string(k.Level) + ":" + k.LocationID + ":" + k.ItemID
}

// StockRecord cantidad disponible y reservada de un ítem en una ubicación de un nivel.
// Una sola forma para los tres niveles (bodega, operador, máquina).
type StockRecord struct {
	ID               string
	Level            Level
	LocationID       string // warehouse_id, operator_id o machine_id según Level
	ItemID           string // nomenclatura
	CurrentQuantity  decimal.Decimal
	ReservedQuantity decimal.Decimal
	MinStockLevel    *decimal.Decimal // nil = sin alerta de stock bajo
	LastRefillAt     *time.Time
	LastCountAt      *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
	DeletedAt        *time.Time // borrado lógico (solo nivel máquina)
}

// NewStockRecord fila vacía (cantidades en cero) para la clave indicada.
func NewStockRecord(id string, key StockKey, now time.Time) *StockRecord {
	return &StockRecord{
		ID:               id,
		Level:            key.Level,
		LocationID:       key.LocationID,
		ItemID:           key.ItemID,
		CurrentQuantity:  decimal.Zero,
		ReservedQuantity: decimal.Zero,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func (s *StockRecord) Key() StockKey {
	return StockKey{Level: s.Level, LocationID: s.LocationID, ItemID: s.ItemID}
}

// Available = current - reserved. Puede ser negativo tras un ajuste forzado por conteo.
func (s *StockRecord) Available() decimal.Decimal {
	return s.CurrentQuantity.Sub(s.ReservedQuantity)
}

// IsLow indica si la cantidad actual está en o por debajo del mínimo configurado.
func (s *StockRecord) IsLow() bool {
	if s.MinStockLevel == nil {
		return false
	}
	return s.CurrentQuantity.LessThanOrEqual(*s.MinStockLevel)
}

// IsDeleted borrado lógico.
func (s *StockRecord) IsDeleted() bool {
	return s.DeletedAt != nil
}

// Clone copia profunda (punteros de tiempo y mínimo incluidos).
func (s *StockRecord) Clone() *StockRecord {
	if s == nil {
		return nil
	}
	c := *s
	if s.MinStockLevel != nil {
		v := *s.MinStockLevel
		c.MinStockLevel = &v
	}
	c.LastRefillAt = cloneTime(s.LastRefillAt)
	c.LastCountAt = cloneTime(s.LastCountAt)
	c.DeletedAt = cloneTime(s.DeletedAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
