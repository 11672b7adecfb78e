package inventory

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/vendhub-inventory/internal/domain"
	"github.com/jhoicas/vendhub-inventory/internal/domain/entity"
	"github.com/jhoicas/vendhub-inventory/internal/domain/inventory"
	"github.com/jhoicas/vendhub-inventory/internal/domain/repository"
)

// DefaultRefillWindow ventana de consumo histórico usada para priorizar.
const DefaultRefillWindow = 30 * 24 * time.Hour

// idealFactor stock ideal = mínimo * 1.5
var idealFactor = decimal.NewFromFloat(1.5)

// consumption movimiento que representa salida de cada nivel (lo que "vende" la ubicación).
var consumption = map[entity.Level]entity.MovementType{
	entity.LevelWarehouse: entity.MovementWarehouseToOperator,
	entity.LevelOperator:  entity.MovementOperatorToMachine,
	entity.LevelMachine:   entity.MovementMachineSale,
}

// RefillSuggestion fila bajo mínimo con la cantidad sugerida de reposición.
type RefillSuggestion struct {
	Stock             *entity.StockRecord
	IdealStock        decimal.Decimal
	SuggestedQuantity decimal.Decimal
	Consumed          decimal.Decimal // salida en la ventana
	Priority          int             // 1 = más urgente
}

// ReplenishmentUseCase arma la lista de reposición a partir de las filas bajo mínimo.
type ReplenishmentUseCase struct {
	stock     repository.StockRepository
	movements repository.MovementRepository
	opts      Options
}

func NewReplenishmentUseCase(stock repository.StockRepository, movements repository.MovementRepository, opts Options) *ReplenishmentUseCase {
	return &ReplenishmentUseCase{stock: stock, movements: movements, opts: opts.withDefaults()}
}

// GenerateRefillList filas del nivel en o bajo su mínimo; locationID vacío = todas las ubicaciones.
// Orden: mayor consumo reciente, luego mayor déficit relativo al mínimo.
func (uc *ReplenishmentUseCase) GenerateRefillList(ctx context.Context, level entity.Level, locationID string, window time.Duration) ([]RefillSuggestion, error) {
	if !level.Valid() {
		return nil, domain.ErrInvalidInput
	}
	if window <= 0 {
		window = DefaultRefillWindow
	}
	low, err := uc.stock.ListLow(ctx, level)
	if err != nil {
		return nil, err
	}
	from := uc.opts.Now().Add(-window)

	out := make([]RefillSuggestion, 0, len(low))
	for _, rec := range low {
		if locationID != "" && rec.LocationID != locationID {
			continue
		}
		if rec.MinStockLevel == nil {
			continue
		}
		ideal := inventory.Normalize(rec.MinStockLevel.Mul(idealFactor))
		suggested := ideal.Sub(rec.CurrentQuantity)
		if suggested.IsNegative() {
			suggested = decimal.Zero
		}
		stats, err := uc.movements.Stats(ctx, repository.MovementFilter{
			Type:       consumption[level],
			ItemID:     rec.ItemID,
			LocationID: rec.LocationID,
			From:       &from,
		})
		if err != nil {
			return nil, err
		}
		consumed := decimal.Zero
		if stats != nil {
			for _, s := range stats.ByType {
				consumed = consumed.Add(s.Quantity)
			}
		}
		out = append(out, RefillSuggestion{
			Stock:             rec,
			IdealStock:        ideal,
			SuggestedQuantity: inventory.Normalize(suggested),
			Consumed:          consumed,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.Consumed.Equal(b.Consumed) {
			return a.Consumed.GreaterThan(b.Consumed)
		}
		return deficitRatio(a).GreaterThan(deficitRatio(b))
	})
	for i := range out {
		out[i].Priority = i + 1
	}
	return out, nil
}

func deficitRatio(s RefillSuggestion) decimal.Decimal {
	min := *s.Stock.MinStockLevel
	if min.IsZero() {
		return decimal.Zero
	}
	return min.Sub(s.Stock.CurrentQuantity).Div(min)
}
