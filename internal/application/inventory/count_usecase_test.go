package inventory_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/vendhub-inventory/internal/application/inventory"
	"github.com/jhoicas/vendhub-inventory/internal/domain"
	"github.com/jhoicas/vendhub-inventory/internal/domain/entity"
)

func ptr(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

func TestRecordCount_AjusteConUmbral(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.put(t, warehouse("wh-1", "A"), "100")

	_, err := e.counts.CreateThreshold(ctx, inventory.CreateThresholdInput{
		Name: "global", AbsoluteLimit: ptr("2"), Severity: entity.SeverityWarning, Actions: []string{entity.ThresholdActionNotify},
	})
	require.NoError(t, err)
	crit, err := e.counts.CreateThreshold(ctx, inventory.CreateThresholdInput{
		Name: "A crítico", ItemID: "A", PercentLimit: ptr("10"), Severity: entity.SeverityCritical,
		Actions: []string{entity.ThresholdActionCreateIncident},
	})
	require.NoError(t, err)

	res, err := e.counts.RecordCount(ctx, inventory.RecordCountInput{
		Level: entity.LevelWarehouse, LocationID: "wh-1", ItemID: "A", Counted: d("80"), Actor: "auditor", Adjust: true,
	})
	require.NoError(t, err)
	assertQty(t, "-20", res.Count.Difference, "diferencia")
	assertQty(t, "20", res.Count.DifferencePct, "porcentaje")
	assert.Equal(t, entity.SeverityCritical, res.Count.Severity)
	assert.Equal(t, crit.ID, res.Count.ThresholdID)
	assert.Equal(t, []string{entity.ThresholdActionCreateIncident}, res.Count.Actions)
	assert.True(t, res.Count.Adjusted)
	assertQty(t, "80", e.row(t, warehouse("wh-1", "A")).CurrentQuantity, "ajustado")
	require.NotNil(t, res.Movement)
	assert.Equal(t, entity.MovementAdjustment, res.Movement.Type)
	assertQty(t, "20", res.Movement.Quantity, "magnitud")
	assert.Equal(t, "100.000", res.Movement.Metadata["previous"])
	assert.Equal(t, "wh-1", res.Movement.FromLocationID)

	counts, err := e.counts.ListCounts(ctx, entity.LevelWarehouse, "wh-1", 0)
	require.NoError(t, err)
	assert.Len(t, counts, 1)
}

func TestRecordCount_SinAjusteNoTocaStock(t *testing.T) {
	e := newEnv(t)
	e.put(t, warehouse("wh-1", "A"), "10")

	res, err := e.counts.RecordCount(context.Background(), inventory.RecordCountInput{
		Level: entity.LevelWarehouse, LocationID: "wh-1", ItemID: "A", Counted: d("9"),
	})
	require.NoError(t, err)
	assert.False(t, res.Count.Adjusted)
	assert.Nil(t, res.Movement)
	assert.Equal(t, entity.SeverityNone, res.Count.Severity)
	rec := e.row(t, warehouse("wh-1", "A"))
	assertQty(t, "10", rec.CurrentQuantity, "sin ajuste")
	assert.NotNil(t, rec.LastCountAt)
}

func TestRecordCount_DisponibleNegativoSeInforma(t *testing.T) {
	e := newEnv(t)
	e.put(t, operator("op-1", "A"), "60")
	reserve(t, e, "task-1", "op-1", nil, inventory.ReservationItem{ItemID: "A", Quantity: d("50")})

	res, err := e.counts.RecordCount(context.Background(), inventory.RecordCountInput{
		Level: entity.LevelOperator, LocationID: "op-1", ItemID: "A", Counted: d("30"), Adjust: true,
	})
	require.NoError(t, err)
	assertQty(t, "30", res.Stock.CurrentQuantity, "current")
	assertQty(t, "50", res.Stock.ReservedQuantity, "reservado intacto")
	assertQty(t, "-20", res.Stock.Available(), "disponible negativo")
}

func TestCreateThreshold_Validaciones(t *testing.T) {
	e := newEnv(t)
	cases := map[string]inventory.CreateThresholdInput{
		"sin nombre":      {AbsoluteLimit: ptr("1"), Severity: entity.SeverityInfo},
		"sin límites":     {Name: "x", Severity: entity.SeverityInfo},
		"severidad NONE":  {Name: "x", AbsoluteLimit: ptr("1"), Severity: entity.SeverityNone},
		"acción inválida": {Name: "x", AbsoluteLimit: ptr("1"), Severity: entity.SeverityInfo, Actions: []string{"EMAIL"}},
		"límite negativo": {Name: "x", PercentLimit: ptr("-1"), Severity: entity.SeverityInfo},
	}
	for name, in := range cases {
		_, err := e.counts.CreateThreshold(context.Background(), in)
		assert.ErrorIs(t, err, domain.ErrInvalidInput, name)
	}
	list, err := e.counts.ListThresholds(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}
