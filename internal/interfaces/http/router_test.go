package http_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/vendhub-inventory/internal/application/dto"
	"github.com/jhoicas/vendhub-inventory/internal/application/inventory"
	apphttp "github.com/jhoicas/vendhub-inventory/internal/interfaces/http"
	"github.com/jhoicas/vendhub-inventory/internal/infrastructure/memory"
	pkgjwt "github.com/jhoicas/vendhub-inventory/pkg/jwt"
)

// ──────────────────────────────────────────────────────────────────────────────
// App completa sobre el almacén en memoria
// ──────────────────────────────────────────────────────────────────────────────

func newInventoryApp(t *testing.T) *fiber.App {
	t.Helper()
	now := func() time.Time { return time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC) }
	s := memory.New(memory.WithClock(now))
	repos := s.Repositories()
	opts := inventory.Options{Now: now}

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		Transfers:     inventory.NewTransferUseCase(s, opts),
		Stock:         inventory.NewStockUseCase(s, repos.Stock, opts),
		Movements:     inventory.NewMovementUseCase(s, repos.Movements, 0, opts),
		Reservations:  inventory.NewReservationUseCase(s, repos.Reservations, inventory.ReservationSettings{}, opts),
		Counts:        inventory.NewCountUseCase(s, repos.Counts, repos.Thresholds, opts),
		Replenishment: inventory.NewReplenishmentUseCase(repos.Stock, repos.Movements, opts),
		JWTSecret:     testJWTSecret,
	})
	return app
}

func call(t *testing.T, app *fiber.App, role, method, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", tokenForRole(t, role))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func qty(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// ──────────────────────────────────────────────────────────────────────────────
// Flujo completo
// ──────────────────────────────────────────────────────────────────────────────

func TestRouter_RecepcionTransferenciaYReserva(t *testing.T) {
	app := newInventoryApp(t)

	resp := call(t, app, pkgjwt.RoleManager, http.MethodPost, "/api/inventory/receipts", fiber.Map{
		"location_id": "w1", "item_id": "cola", "quantity": 100,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	receipt := decode[dto.StockChangeResponse](t, resp)
	assert.True(t, receipt.Stock.CurrentQuantity.Equal(qty("100")))
	assert.Equal(t, "WAREHOUSE_IN", receipt.Movement.Type)

	resp = call(t, app, pkgjwt.RoleOperator, http.MethodPost, "/api/inventory/transfers", fiber.Map{
		"kind": "warehouse_to_operator", "source_id": "w1", "destination_id": "op1", "item_id": "cola", "quantity": "30",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	tr := decode[dto.TransferResponse](t, resp)
	assert.True(t, tr.Source.CurrentQuantity.Equal(qty("70")))
	assert.True(t, tr.Destination.CurrentQuantity.Equal(qty("30")))
	assert.Equal(t, "WAREHOUSE_TO_OPERATOR", tr.Movement.Type)

	resp = call(t, app, pkgjwt.RoleOperator, http.MethodPost, "/api/inventory/reservations", fiber.Map{
		"task_id": "T1", "level": "operator", "reference_id": "op1",
		"items": []fiber.Map{{"item_id": "cola", "quantity": 20}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[[]dto.ReservationDTO](t, resp)
	require.Len(t, created, 1)
	assert.Equal(t, "PENDING", created[0].Status)
	assert.Nil(t, created[0].ExpiresAt)

	resp = call(t, app, pkgjwt.RoleOperator, http.MethodGet, "/api/inventory/stock/operator/op1/cola", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	row := decode[dto.StockDTO](t, resp)
	assert.True(t, row.ReservedQuantity.Equal(qty("20")))
	assert.True(t, row.Available.Equal(qty("10")))

	resp = call(t, app, pkgjwt.RoleOperator, http.MethodGet, "/api/inventory/reservations/"+created[0].ReservationNumber, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "T1", decode[dto.ReservationDTO](t, resp).TaskID)

	resp = call(t, app, pkgjwt.RoleOperator, http.MethodPost, "/api/inventory/reservations/task/T1/cancel", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cancelled := decode[[]dto.ReservationDTO](t, resp)
	require.Len(t, cancelled, 1)
	assert.Equal(t, "CANCELLED", cancelled[0].Status)

	// segunda cancelación: nada pendiente
	resp = call(t, app, pkgjwt.RoleOperator, http.MethodPost, "/api/inventory/reservations/task/T1/cancel", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[[]dto.ReservationDTO](t, resp))

	resp = call(t, app, pkgjwt.RoleOperator, http.MethodGet, "/api/inventory/movements/stats?item_id=cola", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stats := decode[dto.MovementStatsDTO](t, resp)
	// recepción, transferencia, reserva y liberación
	assert.Equal(t, 4, stats.Total)
}

// ──────────────────────────────────────────────────────────────────────────────
// Errores y permisos
// ──────────────────────────────────────────────────────────────────────────────

func TestRouter_StockInsuficienteEs409(t *testing.T) {
	app := newInventoryApp(t)
	resp := call(t, app, pkgjwt.RoleAdmin, http.MethodPost, "/api/inventory/receipts", fiber.Map{
		"location_id": "w1", "item_id": "agua", "quantity": 5,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = call(t, app, pkgjwt.RoleOperator, http.MethodPost, "/api/inventory/transfers", fiber.Map{
		"kind": "WAREHOUSE_TO_OPERATOR", "source_id": "w1", "destination_id": "op1", "item_id": "agua", "quantity": 6,
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "INSUFFICIENT_STOCK", decode[dto.ErrorResponse](t, resp).Code)
}

func TestRouter_ErroresDeEntrada(t *testing.T) {
	app := newInventoryApp(t)

	resp := call(t, app, pkgjwt.RoleOperator, http.MethodPost, "/api/inventory/transfers", fiber.Map{
		"kind": "MACHINE_TO_WAREHOUSE", "source_id": "m1", "destination_id": "w1", "item_id": "x", "quantity": 1,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = call(t, app, pkgjwt.RoleOperator, http.MethodPost, "/api/inventory/transfers", fiber.Map{
		"kind": "OPERATOR_TO_MACHINE", "source_id": "op9", "destination_id": "m1", "item_id": "x", "quantity": 1,
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = call(t, app, pkgjwt.RoleOperator, http.MethodGet, "/api/inventory/stock/planet/x", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = call(t, app, pkgjwt.RoleOperator, http.MethodGet, "/api/inventory/stock/warehouse/w1/nada", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = call(t, app, pkgjwt.RoleOperator, http.MethodGet, "/api/inventory/movements?from=ayer", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRouter_Permisos(t *testing.T) {
	app := newInventoryApp(t)

	resp := call(t, app, pkgjwt.RoleOperator, http.MethodPost, "/api/inventory/receipts", fiber.Map{
		"location_id": "w1", "item_id": "cola", "quantity": 1,
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = call(t, app, pkgjwt.RoleManager, http.MethodPost, "/api/inventory/reservations/expire", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = call(t, app, pkgjwt.RoleAdmin, http.MethodPost, "/api/inventory/reservations/expire", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]any](t, resp)
	assert.EqualValues(t, 0, body["expired"])
}

func TestRouter_ConteoConAjuste(t *testing.T) {
	app := newInventoryApp(t)
	resp := call(t, app, pkgjwt.RoleAdmin, http.MethodPost, "/api/inventory/receipts", fiber.Map{
		"location_id": "w1", "item_id": "cola", "quantity": 10,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = call(t, app, pkgjwt.RoleOperator, http.MethodPost, "/api/inventory/counts", fiber.Map{
		"level": "warehouse", "location_id": "w1", "item_id": "cola", "counted_quantity": 8, "adjust": true,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	out := decode[dto.CountResponse](t, resp)
	assert.True(t, out.Count.Difference.Equal(qty("-2")))
	require.NotNil(t, out.Stock)
	assert.True(t, out.Stock.CurrentQuantity.Equal(qty("8")))
	require.NotNil(t, out.Movement)
	assert.Equal(t, "ADJUSTMENT", out.Movement.Type)
}
