package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/vendhub-inventory/internal/application/inventory"
	"github.com/jhoicas/vendhub-inventory/pkg/jwt"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Transfers     *inventory.TransferUseCase
	Stock         *inventory.StockUseCase
	Movements     *inventory.MovementUseCase
	Reservations  *inventory.ReservationUseCase
	Counts        *inventory.CountUseCase
	Replenishment *inventory.ReplenishmentUseCase
	JWTSecret     string
}

// Router registra las rutas de la API. Todas bajo /api/inventory y con Bearer Token.
func Router(app *fiber.App, deps RouterDeps) {
	inv := app.Group("/api/inventory", AuthMiddleware(deps.JWTSecret))

	anyRole := RequireRole(jwt.RoleAdmin, jwt.RoleManager, jwt.RoleOperator)
	managers := RequireRole(jwt.RoleAdmin, jwt.RoleManager)
	admins := RequireRole(jwt.RoleAdmin)

	invHandler := NewInventoryHandler(deps.Transfers, deps.Stock, deps.Movements, deps.Replenishment)
	inv.Post("/transfers", anyRole, invHandler.Transfer)
	inv.Post("/receipts", managers, invHandler.Receive)
	inv.Post("/write-offs", managers, invHandler.WriteOff)
	inv.Post("/sales", anyRole, invHandler.Sale)

	// Stock (rutas fijas antes que las parametrizadas)
	inv.Get("/stock/low/:level", anyRole, invHandler.ListLowStock)
	inv.Delete("/stock/machine/:machineId/:itemId", managers, invHandler.DeleteMachineStock)
	inv.Get("/stock/:level/:locationId", anyRole, invHandler.ListStock)
	inv.Get("/stock/:level/:locationId/:itemId", anyRole, invHandler.GetStock)
	inv.Put("/stock/:level/:locationId/:itemId/min-level", managers, invHandler.SetMinStockLevel)
	inv.Get("/replenishment/:level/:locationId", anyRole, invHandler.RefillList)

	// Reservas
	resHandler := NewReservationHandler(deps.Reservations)
	inv.Post("/reservations", anyRole, resHandler.Create)
	inv.Post("/reservations/expire", admins, resHandler.Expire)
	inv.Get("/reservations/task/:taskId", anyRole, resHandler.ListByTask)
	inv.Post("/reservations/task/:taskId/fulfill", anyRole, resHandler.Fulfill)
	inv.Post("/reservations/task/:taskId/cancel", anyRole, resHandler.Cancel)
	inv.Get("/reservations/:number", anyRole, resHandler.GetByNumber)
	inv.Post("/warehouse-holds", managers, resHandler.Hold)
	inv.Post("/warehouse-holds/release", managers, resHandler.Release)

	// Movimientos
	movHandler := NewMovementHandler(deps.Movements)
	inv.Get("/movements", anyRole, movHandler.List)
	inv.Get("/movements/stats", anyRole, movHandler.Stats)
	inv.Get("/movements/:id", anyRole, movHandler.GetByID)

	// Conteos y umbrales
	countHandler := NewCountHandler(deps.Counts)
	inv.Post("/counts", anyRole, countHandler.Record)
	inv.Get("/counts/:level/:locationId", anyRole, countHandler.List)
	inv.Post("/thresholds", managers, countHandler.CreateThreshold)
	inv.Get("/thresholds", anyRole, countHandler.ListThresholds)
}
