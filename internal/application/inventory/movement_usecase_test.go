package inventory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/vendhub-inventory/internal/application/inventory"
	"github.com/jhoicas/vendhub-inventory/internal/domain"
	"github.com/jhoicas/vendhub-inventory/internal/domain/entity"
	"github.com/jhoicas/vendhub-inventory/internal/domain/repository"
)

func TestReceiveWarehouse_CreaFilaYMovimiento(t *testing.T) {
	e := newEnv(t)
	res, err := e.movements.ReceiveWarehouse(context.Background(), inventory.StockChangeInput{
		LocationID: "wh-1", ItemID: "A", Quantity: d("100.500"), Actor: "user-1", Notes: "factura 991",
	})
	require.NoError(t, err)
	assertQty(t, "100.5", res.Stock.CurrentQuantity, "recepción")
	assert.Equal(t, entity.MovementWarehouseIn, res.Movement.Type)
	assert.Equal(t, "wh-1", res.Movement.ToLocationID)
	assert.Empty(t, res.Movement.FromLocationID)

	res, err = e.movements.ReceiveWarehouse(context.Background(), inventory.StockChangeInput{
		LocationID: "wh-1", ItemID: "A", Quantity: d("25.75"),
	})
	require.NoError(t, err)
	assertQty(t, "126.25", res.Stock.CurrentQuantity, "segunda recepción")
	assert.Equal(t, 2, e.pub.count())
}

func TestWriteOffWarehouse_NoConsumeReservado(t *testing.T) {
	e := newEnv(t)
	e.put(t, warehouse("wh-1", "A"), "10")
	hold(t, e, "promo", "8")

	_, err := e.movements.WriteOffWarehouse(context.Background(), inventory.StockChangeInput{
		LocationID: "wh-1", ItemID: "A", Quantity: d("3"),
	})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	res, err := e.movements.WriteOffWarehouse(context.Background(), inventory.StockChangeInput{
		LocationID: "wh-1", ItemID: "A", Quantity: d("2"),
	})
	require.NoError(t, err)
	assertQty(t, "8", res.Stock.CurrentQuantity, "bodega")
	assert.Equal(t, "wh-1", res.Movement.FromLocationID)

	_, err = e.movements.WriteOffWarehouse(context.Background(), inventory.StockChangeInput{
		LocationID: "wh-9", ItemID: "A", Quantity: d("1"),
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRecordSale_PuedeDejarNegativo(t *testing.T) {
	e := newEnv(t)
	e.put(t, machine("m-1", "A"), "2")

	res, err := e.movements.RecordSale(context.Background(), inventory.StockChangeInput{
		LocationID: "m-1", ItemID: "A", Quantity: d("5"), Metadata: map[string]any{"pos_ticket": "T-1"},
	})
	require.NoError(t, err)
	assertQty(t, "-3", res.Stock.CurrentQuantity, "máquina")
	assert.Equal(t, entity.MovementMachineSale, res.Movement.Type)
	assert.Equal(t, "T-1", res.Movement.Metadata["pos_ticket"])
}

func TestMovements_ListaStatsYTope(t *testing.T) {
	e := newEnv(t)
	uc := inventory.NewMovementUseCase(e.store, e.store.Repositories().Movements, 2, inventory.Options{Now: e.clock.Now})
	for i := 0; i < 3; i++ {
		_, err := e.movements.ReceiveWarehouse(context.Background(), inventory.StockChangeInput{
			LocationID: "wh-1", ItemID: "A", Quantity: d("1"), Actor: "user-1",
		})
		require.NoError(t, err)
		e.clock.Advance(time.Minute)
	}
	_, err := e.transfers.Transfer(context.Background(), inventory.TransferInput{
		Kind: inventory.TransferWarehouseToOperator, SourceID: "wh-1", DestinationID: "op-1", ItemID: "A", Quantity: d("2"), TaskID: "task-9",
	})
	require.NoError(t, err)

	list, err := uc.List(context.Background(), repository.MovementFilter{Limit: 100})
	require.NoError(t, err)
	assert.Len(t, list, 2, "el tope configurado manda")
	assert.Equal(t, entity.MovementWarehouseToOperator, list[0].Type, "más reciente primero")

	byTask, err := e.movements.List(context.Background(), repository.MovementFilter{TaskID: "task-9"})
	require.NoError(t, err)
	require.Len(t, byTask, 1)

	got, err := e.movements.Get(context.Background(), byTask[0].ID)
	require.NoError(t, err)
	assert.Equal(t, byTask[0].ID, got.ID)
	_, err = e.movements.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	stats, err := uc.Stats(context.Background(), repository.MovementFilter{ItemID: "A"})
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Total, "las estadísticas no se paginan")
	require.Len(t, stats.ByType, 2)
	assert.Equal(t, entity.MovementWarehouseIn, stats.ByType[0].Type)
	assert.Equal(t, 3, stats.ByType[0].Count)
	assertQty(t, "3", stats.ByType[0].Quantity, "entradas")
	assertQty(t, "2", stats.ByType[1].Quantity, "transferido")

	from, to := e.clock.Now(), e.clock.Now().Add(-time.Hour)
	_, err = e.movements.List(context.Background(), repository.MovementFilter{From: &from, To: &to})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = e.movements.List(context.Background(), repository.MovementFilter{Type: "TELEPORT"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
