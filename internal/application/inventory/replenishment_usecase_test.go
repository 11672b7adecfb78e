package inventory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/vendhub-inventory/internal/application/inventory"
	"github.com/jhoicas/vendhub-inventory/internal/domain"
	"github.com/jhoicas/vendhub-inventory/internal/domain/entity"
)

func TestGenerateRefillList_PrioridadPorConsumo(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.put(t, operator("op-1", "A"), "100")
	e.put(t, operator("op-1", "B"), "100")
	for _, it := range []struct{ item, stock, min string }{{"A", "5", "10"}, {"B", "1", "10"}} {
		_, err := e.transfers.Transfer(ctx, inventory.TransferInput{
			Kind: inventory.TransferOperatorToMachine, SourceID: "op-1", DestinationID: "m-1", ItemID: it.item, Quantity: d("20"),
		})
		require.NoError(t, err)
		_, err = e.stock.SetMinStockLevel(ctx, machine("m-1", it.item), ptr(it.min))
		require.NoError(t, err)
	}
	// B vendió más en la ventana, así que va primero
	sales := map[string]string{"A": "15", "B": "19"}
	_, err := e.movements.RecordSale(ctx, inventory.StockChangeInput{LocationID: "m-1", ItemID: "A", Quantity: d(sales["A"])})
	require.NoError(t, err)
	_, err = e.movements.RecordSale(ctx, inventory.StockChangeInput{LocationID: "m-1", ItemID: "B", Quantity: d(sales["B"])})
	require.NoError(t, err)

	uc := inventory.NewReplenishmentUseCase(e.store.Repositories().Stock, e.store.Repositories().Movements, inventory.Options{Now: e.clock.Now})
	list, err := uc.GenerateRefillList(ctx, entity.LevelMachine, "m-1", 0)
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, "B", list[0].Stock.ItemID)
	assert.Equal(t, 1, list[0].Priority)
	assertQty(t, "19", list[0].Consumed, "ventas B")
	assertQty(t, "15", list[0].IdealStock, "ideal")
	assertQty(t, "14", list[0].SuggestedQuantity, "sugerido B")
	assert.Equal(t, "A", list[1].Stock.ItemID)
	assertQty(t, "10", list[1].SuggestedQuantity, "sugerido A")

	_, err = uc.GenerateRefillList(ctx, "", "", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
