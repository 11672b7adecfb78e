package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/vendhub-inventory/internal/application/dto"
	"github.com/jhoicas/vendhub-inventory/internal/application/inventory"
	"github.com/jhoicas/vendhub-inventory/internal/domain/entity"
)

// InventoryHandler transferencias, consultas de stock y cambios de un solo nivel (protegido).
type InventoryHandler struct {
	transfers     *inventory.TransferUseCase
	stock         *inventory.StockUseCase
	movements     *inventory.MovementUseCase
	replenishment *inventory.ReplenishmentUseCase
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(transfers *inventory.TransferUseCase, stock *inventory.StockUseCase, movements *inventory.MovementUseCase, replenishment *inventory.ReplenishmentUseCase) *InventoryHandler {
	return &InventoryHandler{transfers: transfers, stock: stock, movements: movements, replenishment: replenishment}
}

// Transfer godoc
// @Summary      Transferir stock entre niveles
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.TransferRequest  true  "kind, source_id, destination_id, item_id, quantity"
// @Success      201   {object}  dto.TransferResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/transfers [post]
func (h *InventoryHandler) Transfer(c *fiber.Ctx) error {
	var in dto.TransferRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	kind, ok := inventory.ParseTransferKind(in.Kind)
	if !ok {
		return badParam(c, "kind inválido")
	}
	res, err := h.transfers.Transfer(c.Context(), inventory.TransferInput{
		Kind:          kind,
		SourceID:      in.SourceID,
		DestinationID: in.DestinationID,
		ItemID:        in.ItemID,
		Quantity:      in.Quantity,
		Actor:         GetUserID(c),
		TaskID:        in.TaskID,
		OperationDate: in.OperationDate,
		Notes:         in.Notes,
		Metadata:      in.Metadata,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.TransferResponse{
		Source:      dto.NewStockDTO(res.Source),
		Destination: dto.NewStockDTO(res.Destination),
		Movement:    dto.NewMovementDTO(res.Movement),
	})
}

// ListStock godoc
// @Summary      Stock de una ubicación
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        level       path  string  true  "warehouse | operator | machine"
// @Param        locationId  path  string  true  "id de la ubicación"
// @Success      200  {array}   dto.StockDTO
// @Router       /api/inventory/stock/{level}/{locationId} [get]
func (h *InventoryHandler) ListStock(c *fiber.Ctx) error {
	level, ok := entity.ParseLevel(c.Params("level"))
	if !ok {
		return badParam(c, "nivel inválido")
	}
	list, err := h.stock.ListByLocation(c.Context(), level, c.Params("locationId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NewStockDTOs(list))
}

// GetStock fila de un ítem; 404 si nunca se creó.
func (h *InventoryHandler) GetStock(c *fiber.Ctx) error {
	key, ok := stockKey(c)
	if !ok {
		return badParam(c, "nivel inválido")
	}
	rec, err := h.stock.Get(c.Context(), key)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NewStockDTO(rec))
}

// ListLowStock filas en o bajo su mínimo.
func (h *InventoryHandler) ListLowStock(c *fiber.Ctx) error {
	level, ok := entity.ParseLevel(c.Params("level"))
	if !ok {
		return badParam(c, "nivel inválido")
	}
	list, err := h.stock.ListLow(c.Context(), level)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NewStockDTOs(list))
}

// SetMinStockLevel define o elimina (null) el mínimo de una fila.
func (h *InventoryHandler) SetMinStockLevel(c *fiber.Ctx) error {
	key, ok := stockKey(c)
	if !ok {
		return badParam(c, "nivel inválido")
	}
	var in dto.MinStockRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	rec, err := h.stock.SetMinStockLevel(c.Context(), key, in.MinStockLevel)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NewStockDTO(rec))
}

// DeleteMachineStock borrado lógico de una fila de máquina en cero.
func (h *InventoryHandler) DeleteMachineStock(c *fiber.Ctx) error {
	if err := h.stock.SoftDeleteMachineStock(c.Context(), c.Params("machineId"), c.Params("itemId")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Receive recepción en bodega (WAREHOUSE_IN).
func (h *InventoryHandler) Receive(c *fiber.Ctx) error {
	return h.stockChange(c, h.movements.ReceiveWarehouse)
}

// WriteOff baja de bodega (WAREHOUSE_OUT); no consume lo reservado.
func (h *InventoryHandler) WriteOff(c *fiber.Ctx) error {
	return h.stockChange(c, h.movements.WriteOffWarehouse)
}

// Sale venta en máquina (MACHINE_SALE).
func (h *InventoryHandler) Sale(c *fiber.Ctx) error {
	return h.stockChange(c, h.movements.RecordSale)
}

func (h *InventoryHandler) stockChange(c *fiber.Ctx, fn func(context.Context, inventory.StockChangeInput) (*inventory.StockChangeResult, error)) error {
	var in dto.StockChangeRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	res, err := fn(c.Context(), inventory.StockChangeInput{
		LocationID:    in.LocationID,
		ItemID:        in.ItemID,
		Quantity:      in.Quantity,
		Actor:         GetUserID(c),
		TaskID:        in.TaskID,
		Notes:         in.Notes,
		OperationDate: in.OperationDate,
		Metadata:      in.Metadata,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.StockChangeResponse{
		Stock:    dto.NewStockDTO(res.Stock),
		Movement: dto.NewMovementDTO(res.Movement),
	})
}

// RefillList godoc
// @Summary      Lista de reposición de una ubicación
// @Description  Filas bajo mínimo con la cantidad sugerida, ordenadas por consumo reciente.
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        level        path   string  true   "warehouse | operator | machine"
// @Param        locationId   path   string  true   "id de la ubicación"
// @Param        window_days  query  int     false  "ventana de consumo en días (30 por defecto)"
// @Success      200  {array}   dto.RefillSuggestionDTO
// @Router       /api/inventory/replenishment/{level}/{locationId} [get]
func (h *InventoryHandler) RefillList(c *fiber.Ctx) error {
	level, ok := entity.ParseLevel(c.Params("level"))
	if !ok {
		return badParam(c, "nivel inválido")
	}
	window := time.Duration(c.QueryInt("window_days", 0)) * 24 * time.Hour
	list, err := h.replenishment.GenerateRefillList(c.Context(), level, c.Params("locationId"), window)
	if err != nil {
		return respondError(c, err)
	}
	out := make([]dto.RefillSuggestionDTO, 0, len(list))
	for _, s := range list {
		out = append(out, dto.RefillSuggestionDTO{
			Stock:             dto.NewStockDTO(s.Stock),
			IdealStock:        s.IdealStock,
			SuggestedQuantity: s.SuggestedQuantity,
			Consumed:          s.Consumed,
			Priority:          s.Priority,
		})
	}
	return c.JSON(fiber.Map{"total": len(out), "suggestions": out})
}

func stockKey(c *fiber.Ctx) (entity.StockKey, bool) {
	level, ok := entity.ParseLevel(c.Params("level"))
	return entity.StockKey{Level: level, LocationID: c.Params("locationId"), ItemID: c.Params("itemId")}, ok
}
