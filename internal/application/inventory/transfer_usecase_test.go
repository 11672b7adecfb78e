package inventory_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/vendhub-inventory/internal/application/inventory"
	"github.com/jhoicas/vendhub-inventory/internal/domain"
	"github.com/jhoicas/vendhub-inventory/internal/domain/entity"
	"github.com/jhoicas/vendhub-inventory/internal/domain/repository"
)

// ──────────────────────────────────────────────────────────────────────────────
// Escenario completo: transferencia, reserva y cancelación
// ──────────────────────────────────────────────────────────────────────────────

func TestEscenario_TransferenciaReservaYCancelacion(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.put(t, warehouse("wh-1", "X"), "100")
	_, err := e.reservations.ReserveWarehouseStock(ctx, inventory.WarehouseHoldInput{
		WarehouseID: "wh-1", ItemID: "X", Quantity: d("10"), Tag: "pedido-7",
	})
	require.NoError(t, err)

	res, err := e.transfers.Transfer(ctx, inventory.TransferInput{
		Kind: inventory.TransferWarehouseToOperator, SourceID: "wh-1", DestinationID: "op-1",
		ItemID: "X", Quantity: d("30"), Actor: "user-1",
	})
	require.NoError(t, err)
	assertQty(t, "70", res.Source.CurrentQuantity, "bodega")
	assertQty(t, "10", res.Source.ReservedQuantity, "reservado en bodega")
	assertQty(t, "30", res.Destination.CurrentQuantity, "operador")

	movs, err := e.movements.List(ctx, repository.MovementFilter{Type: entity.MovementWarehouseToOperator})
	require.NoError(t, err)
	require.Len(t, movs, 1)
	assertQty(t, "30", movs[0].Quantity, "movimiento")
	assert.Equal(t, "wh-1", movs[0].FromLocationID)
	assert.Equal(t, "op-1", movs[0].ToLocationID)
	assert.Equal(t, "user-1", movs[0].PerformedBy)

	created, err := e.reservations.CreateReservations(ctx, inventory.CreateReservationInput{
		TaskID: "task-1", Level: entity.LevelOperator, ReferenceID: "op-1",
		Items:          []inventory.ReservationItem{{ItemID: "X", Quantity: d("20")}},
		ExpiresInHours: hours(24),
	})
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, entity.ReservationPending, created[0].Status)
	require.NotNil(t, created[0].ExpiresAt)
	assert.Equal(t, e.clock.Now().Add(24*time.Hour), *created[0].ExpiresAt)
	assertQty(t, "20", e.row(t, operator("op-1", "X")).ReservedQuantity, "reservado tras crear")

	cancelled, err := e.reservations.CancelReservations(ctx, "task-1")
	require.NoError(t, err)
	require.Len(t, cancelled, 1)
	assert.Equal(t, entity.ReservationCancelled, cancelled[0].Status)
	assert.NotNil(t, cancelled[0].CancelledAt)
	assertQty(t, "0", e.row(t, operator("op-1", "X")).ReservedQuantity, "reservado tras cancelar")
	assertQty(t, "30", e.row(t, operator("op-1", "X")).CurrentQuantity, "la cancelación no toca current")
}

// ──────────────────────────────────────────────────────────────────────────────
// Conservación y errores
// ──────────────────────────────────────────────────────────────────────────────

func TestTransfer_ConservaLaSuma(t *testing.T) {
	cases := []struct {
		kind     inventory.TransferKind
		src, dst func(id, item string) entity.StockKey
	}{
		{inventory.TransferWarehouseToOperator, warehouse, operator},
		{inventory.TransferOperatorToWarehouse, operator, warehouse},
		{inventory.TransferOperatorToMachine, operator, machine},
		{inventory.TransferMachineToOperator, machine, operator},
	}
	for _, tc := range cases {
		t.Run(string(tc.kind), func(t *testing.T) {
			e := newEnv(t)
			src, dst := tc.src("a", "item"), tc.dst("b", "item")
			e.put(t, src, "12.5")
			e.put(t, dst, "1.25")

			_, err := e.transfers.Transfer(context.Background(), inventory.TransferInput{
				Kind: tc.kind, SourceID: "a", DestinationID: "b", ItemID: "item", Quantity: d("2.125"),
			})
			require.NoError(t, err)
			s, t2 := e.row(t, src), e.row(t, dst)
			assertQty(t, "10.375", s.CurrentQuantity, "origen")
			assertQty(t, "3.375", t2.CurrentQuantity, "destino")
			assertQty(t, "13.75", s.CurrentQuantity.Add(t2.CurrentQuantity), "suma")
		})
	}
}

func TestTransfer_StockInsuficienteNoDejaEfectos(t *testing.T) {
	e := newEnv(t)
	e.put(t, operator("op-1", "X"), "5")

	_, err := e.transfers.Transfer(context.Background(), inventory.TransferInput{
		Kind: inventory.TransferOperatorToMachine, SourceID: "op-1", DestinationID: "m-1", ItemID: "X", Quantity: d("6"),
	})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	assertQty(t, "5", e.row(t, operator("op-1", "X")).CurrentQuantity, "origen intacto")
	_, err = e.stock.Get(context.Background(), machine("m-1", "X"))
	assert.ErrorIs(t, err, domain.ErrNotFound, "el destino creado en la transacción se descarta")
	stats, err := e.movements.Stats(context.Background(), repository.MovementFilter{})
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Total)
	assert.Equal(t, 0, e.pub.count())
}

func TestTransfer_OrigenInexistente(t *testing.T) {
	e := newEnv(t)
	_, err := e.transfers.Transfer(context.Background(), inventory.TransferInput{
		Kind: inventory.TransferWarehouseToOperator, SourceID: "wh-x", DestinationID: "op-1", ItemID: "X", Quantity: d("1"),
	})
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTransfer_CantidadCeroORechazada(t *testing.T) {
	e := newEnv(t)
	e.put(t, warehouse("wh-1", "X"), "5")
	for _, q := range []string{"0", "-1", "0.0004"} {
		_, err := e.transfers.Transfer(context.Background(), inventory.TransferInput{
			Kind: inventory.TransferWarehouseToOperator, SourceID: "wh-1", DestinationID: "op-1", ItemID: "X", Quantity: d(q),
		})
		assert.ErrorIs(t, err, domain.ErrInvalidInput, q)
	}
	_, err := e.transfers.Transfer(context.Background(), inventory.TransferInput{
		Kind: "WAREHOUSE_TO_MACHINE", SourceID: "wh-1", DestinationID: "m-1", ItemID: "X", Quantity: d("1"),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestTransfer_RecargaDeMaquinaMarcaFecha(t *testing.T) {
	e := newEnv(t)
	e.put(t, operator("op-1", "X"), "5")
	res, err := e.transfers.Transfer(context.Background(), inventory.TransferInput{
		Kind: inventory.TransferOperatorToMachine, SourceID: "op-1", DestinationID: "m-1", ItemID: "X", Quantity: d("2"),
	})
	require.NoError(t, err)
	require.NotNil(t, res.Destination.LastRefillAt)
	assert.Equal(t, e.clock.Now(), *res.Destination.LastRefillAt)
	assert.Equal(t, entity.MovementOperatorToMachine, res.Movement.Type)
	assert.Equal(t, 1, e.pub.count())
}

func TestTransfer_FechaDeOperacionExplicita(t *testing.T) {
	e := newEnv(t)
	e.put(t, warehouse("wh-1", "X"), "5")
	opDate := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	res, err := e.transfers.Transfer(context.Background(), inventory.TransferInput{
		Kind: inventory.TransferWarehouseToOperator, SourceID: "wh-1", DestinationID: "op-1", ItemID: "X",
		Quantity: d("1"), OperationDate: &opDate, Notes: "carga atrasada",
	})
	require.NoError(t, err)
	assert.Equal(t, opDate, res.Movement.OperationDate)
	assert.Equal(t, e.clock.Now(), res.Movement.CreatedAt)
}

// ──────────────────────────────────────────────────────────────────────────────
// Concurrencia
// ──────────────────────────────────────────────────────────────────────────────

func TestTransfer_ConcurrenciaSinSobregiro(t *testing.T) {
	e := newEnv(t)
	e.put(t, warehouse("wh-1", "X"), "100")

	const workers = 25
	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		ok, rejected int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := e.transfers.Transfer(context.Background(), inventory.TransferInput{
				Kind: inventory.TransferWarehouseToOperator, SourceID: "wh-1",
				DestinationID: fmt.Sprintf("op-%d", i%3), ItemID: "X", Quantity: d("10"),
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, domain.ErrInsufficientStock):
				rejected++
			default:
				t.Errorf("error inesperado: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 10, ok)
	assert.Equal(t, workers-10, rejected)
	assertQty(t, "0", e.row(t, warehouse("wh-1", "X")).CurrentQuantity, "bodega")
	total := d("0")
	for i := 0; i < 3; i++ {
		total = total.Add(e.row(t, operator(fmt.Sprintf("op-%d", i), "X")).CurrentQuantity)
	}
	assertQty(t, "100", total, "operadores")
}

func TestTransfer_DireccionesOpuestasNoSeBloquean(t *testing.T) {
	e := newEnv(t)
	e.put(t, warehouse("wh-1", "X"), "1000")
	e.put(t, operator("op-1", "X"), "1000")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			in := inventory.TransferInput{
				Kind: inventory.TransferWarehouseToOperator, SourceID: "wh-1", DestinationID: "op-1", ItemID: "X", Quantity: d("1"),
			}
			if i%2 == 1 {
				in.Kind, in.SourceID, in.DestinationID = inventory.TransferOperatorToWarehouse, "op-1", "wh-1"
			}
			if _, err := e.transfers.Transfer(ctx, in); err != nil {
				t.Errorf("transferencia %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	w, o := e.row(t, warehouse("wh-1", "X")), e.row(t, operator("op-1", "X"))
	assertQty(t, "1000", w.CurrentQuantity, "bodega")
	assertQty(t, "1000", o.CurrentQuantity, "operador")
}
