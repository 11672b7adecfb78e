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

func TestStock_GetEsLecturaPura(t *testing.T) {
	e := newEnv(t)
	key := warehouse("wh-1", "A")

	_, err := e.stock.Get(context.Background(), key)
	require.ErrorIs(t, err, domain.ErrNotFound)
	_, err = e.stock.Get(context.Background(), key)
	require.ErrorIs(t, err, domain.ErrNotFound, "la lectura anterior no creó la fila")

	rec, err := e.stock.GetOrCreate(context.Background(), key)
	require.NoError(t, err)
	assertQty(t, "0", rec.CurrentQuantity, "fila nueva")
	assertQty(t, "0", rec.ReservedQuantity, "fila nueva")
}

func TestStock_MutateGuardas(t *testing.T) {
	e := newEnv(t)
	key := operator("op-1", "A")
	e.put(t, key, "10")

	_, err := e.stock.Mutate(context.Background(), inventory.MutateInput{Key: key, DeltaReserved: d("4"), Guard: inventory.GuardAvailable})
	require.NoError(t, err)
	_, err = e.stock.Mutate(context.Background(), inventory.MutateInput{Key: key, DeltaCurrent: d("-7"), Guard: inventory.GuardAvailable})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock, "solo hay 6 disponibles")
	rec, err := e.stock.Mutate(context.Background(), inventory.MutateInput{Key: key, DeltaCurrent: d("-7"), Guard: inventory.GuardCurrent})
	require.NoError(t, err, "GuardCurrent solo mira current")
	assertQty(t, "3", rec.CurrentQuantity, "current")

	_, err = e.stock.Mutate(context.Background(), inventory.MutateInput{Key: operator("op-2", "A"), DeltaCurrent: d("-1"), Guard: inventory.GuardCurrent})
	assert.ErrorIs(t, err, domain.ErrNotFound, "un débito no crea filas")
}

func TestStock_SoftDeleteDeMaquina(t *testing.T) {
	e := newEnv(t)
	e.put(t, operator("op-1", "A"), "5")
	e.put(t, machine("m-1", "A"), "2")

	err := e.stock.SoftDeleteMachineStock(context.Background(), "m-1", "A")
	assert.ErrorIs(t, err, domain.ErrConflict, "con stock no se borra")

	_, err = e.transfers.Transfer(context.Background(), inventory.TransferInput{
		Kind: inventory.TransferMachineToOperator, SourceID: "m-1", DestinationID: "op-1", ItemID: "A", Quantity: d("2"),
	})
	require.NoError(t, err)
	require.NoError(t, e.stock.SoftDeleteMachineStock(context.Background(), "m-1", "A"))

	list, err := e.stock.ListByLocation(context.Background(), entity.LevelMachine, "m-1")
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = e.transfers.Transfer(context.Background(), inventory.TransferInput{
		Kind: inventory.TransferMachineToOperator, SourceID: "m-1", DestinationID: "op-1", ItemID: "A", Quantity: d("1"),
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// una recarga reactiva la fila
	res, err := e.transfers.Transfer(context.Background(), inventory.TransferInput{
		Kind: inventory.TransferOperatorToMachine, SourceID: "op-1", DestinationID: "m-1", ItemID: "A", Quantity: d("1"),
	})
	require.NoError(t, err)
	assert.False(t, res.Destination.IsDeleted())
}

func TestStock_MinimoYListaBaja(t *testing.T) {
	e := newEnv(t)
	e.put(t, warehouse("wh-1", "A"), "4")
	e.put(t, warehouse("wh-1", "B"), "40")

	_, err := e.stock.SetMinStockLevel(context.Background(), warehouse("wh-1", "A"), ptr("5"))
	require.NoError(t, err)
	_, err = e.stock.SetMinStockLevel(context.Background(), warehouse("wh-1", "B"), ptr("5"))
	require.NoError(t, err)
	_, err = e.stock.SetMinStockLevel(context.Background(), warehouse("wh-1", "B"), ptr("-1"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	low, err := e.stock.ListLow(context.Background(), entity.LevelWarehouse)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, "A", low[0].ItemID)

	byItem, err := e.stock.ListByItem(context.Background(), "B")
	require.NoError(t, err)
	assert.Len(t, byItem, 1)
}
