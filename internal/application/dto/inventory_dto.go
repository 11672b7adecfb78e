package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/vendhub-inventory/internal/domain/entity"
)

// TransferRequest body para POST /api/inventory/transfers.
type TransferRequest struct {
	Kind          string          `json:"kind"` // WAREHOUSE_TO_OPERATOR | OPERATOR_TO_WAREHOUSE | OPERATOR_TO_MACHINE | MACHINE_TO_OPERATOR
	SourceID      string          `json:"source_id"`
	DestinationID string          `json:"destination_id"`
	ItemID        string          `json:"item_id"`
	Quantity      decimal.Decimal `json:"quantity"`
	TaskID        string          `json:"task_id,omitempty"`
	OperationDate *time.Time      `json:"operation_date,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	Metadata      map[string]any  `json:"metadata,omitempty"`
}

// TransferResponse filas origen y destino tras el movimiento.
type TransferResponse struct {
	Source      StockDTO    `json:"source"`
	Destination StockDTO    `json:"destination"`
	Movement    MovementDTO `json:"movement"`
}

// ReservationItemRequest línea de una reserva.
type ReservationItemRequest struct {
	ItemID   string          `json:"item_id"`
	Quantity decimal.Decimal `json:"quantity"`
}

// CreateReservationRequest body para POST /api/inventory/reservations.
type CreateReservationRequest struct {
	TaskID         string                   `json:"task_id"`
	Level          string                   `json:"level"` // warehouse | operator
	ReferenceID    string                   `json:"reference_id"`
	Items          []ReservationItemRequest `json:"items"`
	ExpiresInHours *float64                 `json:"expires_in_hours,omitempty"`
	Notes          string                   `json:"notes,omitempty"`
}

// WarehouseHoldRequest retención (o liberación) por etiqueta en bodega. Quantity 0 en liberación = todo.
type WarehouseHoldRequest struct {
	WarehouseID string          `json:"warehouse_id"`
	ItemID      string          `json:"item_id"`
	Quantity    decimal.Decimal `json:"quantity"`
	Tag         string          `json:"tag"`
	Notes       string          `json:"notes,omitempty"`
}

// StockChangeRequest body de recepciones, bajas y ventas.
type StockChangeRequest struct {
	LocationID    string          `json:"location_id"`
	ItemID        string          `json:"item_id"`
	Quantity      decimal.Decimal `json:"quantity"`
	TaskID        string          `json:"task_id,omitempty"`
	OperationDate *time.Time      `json:"operation_date,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	Metadata      map[string]any  `json:"metadata,omitempty"`
}

// StockChangeResponse fila resultante y movimiento registrado.
type StockChangeResponse struct {
	Stock    StockDTO    `json:"stock"`
	Movement MovementDTO `json:"movement"`
}

// MinStockRequest body de PUT .../min-level; null elimina el mínimo.
type MinStockRequest struct {
	MinStockLevel *decimal.Decimal `json:"min_stock_level"`
}

// RecordCountRequest body para POST /api/inventory/counts.
type RecordCountRequest struct {
	Level      string          `json:"level"`
	LocationID string          `json:"location_id"`
	ItemID     string          `json:"item_id"`
	Counted    decimal.Decimal `json:"counted_quantity"`
	Adjust     bool            `json:"adjust"`
	Notes      string          `json:"notes,omitempty"`
}

// CountResponse conteo y, si hubo ajuste, fila y movimiento.
type CountResponse struct {
	Count    CountDTO     `json:"count"`
	Stock    *StockDTO    `json:"stock,omitempty"`
	Movement *MovementDTO `json:"movement,omitempty"`
}

// CreateThresholdRequest body para POST /api/inventory/thresholds.
type CreateThresholdRequest struct {
	Name          string           `json:"name"`
	ItemID        string           `json:"item_id,omitempty"`
	Level         string           `json:"level,omitempty"`
	AbsoluteLimit *decimal.Decimal `json:"absolute_limit,omitempty"`
	PercentLimit  *decimal.Decimal `json:"percent_limit,omitempty"`
	Severity      string           `json:"severity"`
	Actions       []string         `json:"actions,omitempty"`
}

// StockDTO fila de stock de cualquier nivel.
type StockDTO struct {
	ID               string           `json:"id"`
	Level            string           `json:"level"`
	LocationID       string           `json:"location_id"`
	ItemID           string           `json:"item_id"`
	CurrentQuantity  decimal.Decimal  `json:"current_quantity"`
	ReservedQuantity decimal.Decimal  `json:"reserved_quantity"`
	Available        decimal.Decimal  `json:"available_quantity"`
	MinStockLevel    *decimal.Decimal `json:"min_stock_level,omitempty"`
	IsLow            bool             `json:"is_low"`
	LastRefillAt     *time.Time       `json:"last_refill_at,omitempty"`
	LastCountAt      *time.Time       `json:"last_count_at,omitempty"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// NewStockDTO mapea la entidad.
func NewStockDTO(s *entity.StockRecord) StockDTO {
	return StockDTO{
		ID:               s.ID,
		Level:            string(s.Level),
		LocationID:       s.LocationID,
		ItemID:           s.ItemID,
		CurrentQuantity:  s.CurrentQuantity,
		ReservedQuantity: s.ReservedQuantity,
		Available:        s.Available(),
		MinStockLevel:    s.MinStockLevel,
		IsLow:            s.IsLow(),
		LastRefillAt:     s.LastRefillAt,
		LastCountAt:      s.LastCountAt,
		UpdatedAt:        s.UpdatedAt,
	}
}

// NewStockDTOs mapea una lista; nunca devuelve nil.
func NewStockDTOs(list []*entity.StockRecord) []StockDTO {
	out := make([]StockDTO, 0, len(list))
	for _, s := range list {
		out = append(out, NewStockDTO(s))
	}
	return out
}

// MovementDTO registro del libro de movimientos.
type MovementDTO struct {
	ID             string          `json:"id"`
	Type           string          `json:"movement_type"`
	ItemID         string          `json:"item_id"`
	Quantity       decimal.Decimal `json:"quantity"`
	FromLevel      string          `json:"from_level,omitempty"`
	FromLocationID string          `json:"from_location_id,omitempty"`
	ToLevel        string          `json:"to_level,omitempty"`
	ToLocationID   string          `json:"to_location_id,omitempty"`
	PerformedBy    string          `json:"performed_by,omitempty"`
	TaskID         string          `json:"task_id,omitempty"`
	Notes          string          `json:"notes,omitempty"`
	Metadata       map[string]any  `json:"metadata,omitempty"`
	OperationDate  time.Time       `json:"operation_date"`
	CreatedAt      time.Time       `json:"created_at"`
}

func NewMovementDTO(m *entity.MovementRecord) MovementDTO {
	return MovementDTO{
		ID:             m.ID,
		Type:           string(m.Type),
		ItemID:         m.ItemID,
		Quantity:       m.Quantity,
		FromLevel:      string(m.FromLevel),
		FromLocationID: m.FromLocationID,
		ToLevel:        string(m.ToLevel),
		ToLocationID:   m.ToLocationID,
		PerformedBy:    m.PerformedBy,
		TaskID:         m.TaskID,
		Notes:          m.Notes,
		Metadata:       m.Metadata,
		OperationDate:  m.OperationDate,
		CreatedAt:      m.CreatedAt,
	}
}

func NewMovementDTOs(list []*entity.MovementRecord) []MovementDTO {
	out := make([]MovementDTO, 0, len(list))
	for _, m := range list {
		out = append(out, NewMovementDTO(m))
	}
	return out
}

// MovementStatsDTO agregados del libro de movimientos.
type MovementStatsDTO struct {
	Total  int                    `json:"total"`
	ByType []MovementTypeStatsDTO `json:"by_type"`
}

type MovementTypeStatsDTO struct {
	Type     string          `json:"movement_type"`
	Count    int             `json:"count"`
	Quantity decimal.Decimal `json:"total_quantity"`
}

func NewMovementStatsDTO(s *entity.MovementStats) MovementStatsDTO {
	out := MovementStatsDTO{Total: s.Total, ByType: make([]MovementTypeStatsDTO, 0, len(s.ByType))}
	for _, t := range s.ByType {
		out.ByType = append(out.ByType, MovementTypeStatsDTO{Type: string(t.Type), Count: t.Count, Quantity: t.Quantity})
	}
	return out
}

// ReservationDTO reserva de tarea o retención por etiqueta.
type ReservationDTO struct {
	ID                string          `json:"id"`
	ReservationNumber string          `json:"reservation_number"`
	TaskID            string          `json:"task_id,omitempty"`
	Tag               string          `json:"tag,omitempty"`
	ItemID            string          `json:"item_id"`
	QuantityReserved  decimal.Decimal `json:"quantity_reserved"`
	QuantityFulfilled decimal.Decimal `json:"quantity_fulfilled"`
	Status            string          `json:"status"`
	Level             string          `json:"level"`
	ReferenceID       string          `json:"reference_id"`
	ReservedAt        time.Time       `json:"reserved_at"`
	ExpiresAt         *time.Time      `json:"expires_at,omitempty"`
	FulfilledAt       *time.Time      `json:"fulfilled_at,omitempty"`
	CancelledAt       *time.Time      `json:"cancelled_at,omitempty"`
	Notes             string          `json:"notes,omitempty"`
	CreatedBy         string          `json:"created_by,omitempty"`
}

func NewReservationDTO(r *entity.Reservation) ReservationDTO {
	return ReservationDTO{
		ID:                r.ID,
		ReservationNumber: r.ReservationNumber,
		TaskID:            r.TaskID,
		Tag:               r.Tag,
		ItemID:            r.ItemID,
		QuantityReserved:  r.QuantityReserved,
		QuantityFulfilled: r.QuantityFulfilled,
		Status:            string(r.Status),
		Level:             string(r.Level),
		ReferenceID:       r.ReferenceID,
		ReservedAt:        r.ReservedAt,
		ExpiresAt:         r.ExpiresAt,
		FulfilledAt:       r.FulfilledAt,
		CancelledAt:       r.CancelledAt,
		Notes:             r.Notes,
		CreatedBy:         r.CreatedBy,
	}
}

func NewReservationDTOs(list []*entity.Reservation) []ReservationDTO {
	out := make([]ReservationDTO, 0, len(list))
	for _, r := range list {
		out = append(out, NewReservationDTO(r))
	}
	return out
}

// CountDTO conteo físico registrado.
type CountDTO struct {
	ID               string          `json:"id"`
	Level            string          `json:"level"`
	LocationID       string          `json:"location_id"`
	ItemID           string          `json:"item_id"`
	ExpectedQuantity decimal.Decimal `json:"expected_quantity"`
	CountedQuantity  decimal.Decimal `json:"counted_quantity"`
	Difference       decimal.Decimal `json:"difference"`
	DifferencePct    decimal.Decimal `json:"difference_pct"`
	Severity         string          `json:"severity"`
	ThresholdID      string          `json:"threshold_id,omitempty"`
	Actions          []string        `json:"actions,omitempty"`
	Adjusted         bool            `json:"adjusted"`
	CountedBy        string          `json:"counted_by,omitempty"`
	CountedAt        time.Time       `json:"counted_at"`
	Notes            string          `json:"notes,omitempty"`
}

func NewCountDTO(c *entity.InventoryCount) CountDTO {
	return CountDTO{
		ID:               c.ID,
		Level:            string(c.Level),
		LocationID:       c.LocationID,
		ItemID:           c.ItemID,
		ExpectedQuantity: c.ExpectedQuantity,
		CountedQuantity:  c.CountedQuantity,
		Difference:       c.Difference,
		DifferencePct:    c.DifferencePct,
		Severity:         string(c.Severity),
		ThresholdID:      c.ThresholdID,
		Actions:          c.Actions,
		Adjusted:         c.Adjusted,
		CountedBy:        c.CountedBy,
		CountedAt:        c.CountedAt,
		Notes:            c.Notes,
	}
}

// ThresholdDTO umbral de diferencia de conteo.
type ThresholdDTO struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	ItemID        string           `json:"item_id,omitempty"`
	Level         string           `json:"level,omitempty"`
	AbsoluteLimit *decimal.Decimal `json:"absolute_limit,omitempty"`
	PercentLimit  *decimal.Decimal `json:"percent_limit,omitempty"`
	Severity      string           `json:"severity"`
	Actions       []string         `json:"actions"`
	IsActive      bool             `json:"is_active"`
	CreatedAt     time.Time        `json:"created_at"`
}

func NewThresholdDTO(t *entity.DifferenceThreshold) ThresholdDTO {
	actions := t.Actions
	if actions == nil {
		actions = []string{}
	}
	return ThresholdDTO{
		ID:            t.ID,
		Name:          t.Name,
		ItemID:        t.ItemID,
		Level:         string(t.Level),
		AbsoluteLimit: t.AbsoluteLimit,
		PercentLimit:  t.PercentLimit,
		Severity:      string(t.Severity),
		Actions:       actions,
		IsActive:      t.IsActive,
		CreatedAt:     t.CreatedAt,
	}
}

// RefillSuggestionDTO sugerencia de reposición para una fila bajo mínimo.
type RefillSuggestionDTO struct {
	Stock             StockDTO        `json:"stock"`
	IdealStock        decimal.Decimal `json:"ideal_stock"`        // mínimo * 1.5
	SuggestedQuantity decimal.Decimal `json:"suggested_quantity"` // ideal - actual
	Consumed          decimal.Decimal `json:"consumed"`           // salida en la ventana
	Priority          int             `json:"priority"`           // 1 = más urgente
}
