package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/vendhub-inventory/internal/application/dto"
	"github.com/jhoicas/vendhub-inventory/internal/application/inventory"
	"github.com/jhoicas/vendhub-inventory/internal/domain/entity"
)

// ReservationHandler reservas de tarea y retenciones por etiqueta en bodega.
type ReservationHandler struct {
	uc *inventory.ReservationUseCase
}

func NewReservationHandler(uc *inventory.ReservationUseCase) *ReservationHandler {
	return &ReservationHandler{uc: uc}
}

// Create godoc
// @Summary      Reservar stock para una tarea
// @Description  Todas las líneas en una transacción: si una falla no se reserva nada.
// @Tags         reservations
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateReservationRequest  true  "task_id, level, reference_id, items"
// @Success      201   {array}   dto.ReservationDTO
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/reservations [post]
func (h *ReservationHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateReservationRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	level, ok := entity.ParseLevel(in.Level)
	if !ok {
		return badParam(c, "nivel inválido")
	}
	items := make([]inventory.ReservationItem, 0, len(in.Items))
	for _, it := range in.Items {
		items = append(items, inventory.ReservationItem{ItemID: it.ItemID, Quantity: it.Quantity})
	}
	list, err := h.uc.CreateReservations(c.Context(), inventory.CreateReservationInput{
		TaskID:         in.TaskID,
		Level:          level,
		ReferenceID:    in.ReferenceID,
		Items:          items,
		ExpiresInHours: in.ExpiresInHours,
		Actor:          GetUserID(c),
		Notes:          in.Notes,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewReservationDTOs(list))
}

// ListByTask reservas de una tarea en cualquier estado.
func (h *ReservationHandler) ListByTask(c *fiber.Ctx) error {
	list, err := h.uc.ListByTask(c.Context(), c.Params("taskId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NewReservationDTOs(list))
}

// GetByNumber reserva por número (RSV-...).
func (h *ReservationHandler) GetByNumber(c *fiber.Ctx) error {
	res, err := h.uc.GetByNumber(c.Context(), c.Params("number"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NewReservationDTO(res))
}

// Fulfill cumple las reservas pendientes de la tarea. Sin pendientes responde lista vacía.
func (h *ReservationHandler) Fulfill(c *fiber.Ctx) error {
	list, err := h.uc.FulfillReservations(c.Context(), c.Params("taskId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NewReservationDTOs(list))
}

// Cancel cancela las reservas pendientes de la tarea.
func (h *ReservationHandler) Cancel(c *fiber.Ctx) error {
	list, err := h.uc.CancelReservations(c.Context(), c.Params("taskId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NewReservationDTOs(list))
}

// Expire barrido manual de reservas vencidas (solo admin).
func (h *ReservationHandler) Expire(c *fiber.Ctx) error {
	n, err := h.uc.ExpireOldReservations(c.Context())
	if err != nil && n == 0 {
		return respondError(c, err)
	}
	body := fiber.Map{"expired": n}
	if err != nil {
		body["errors"] = err.Error()
	}
	return c.JSON(body)
}

// Hold retención por etiqueta sobre el disponible de una bodega.
func (h *ReservationHandler) Hold(c *fiber.Ctx) error {
	var in dto.WarehouseHoldRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	res, err := h.uc.ReserveWarehouseStock(c.Context(), holdInput(c, in))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewReservationDTO(res))
}

// Release libera retenciones de la etiqueta, más antiguas primero. quantity 0 libera todo.
func (h *ReservationHandler) Release(c *fiber.Ctx) error {
	var in dto.WarehouseHoldRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	list, err := h.uc.ReleaseWarehouseReservation(c.Context(), holdInput(c, in))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NewReservationDTOs(list))
}

func holdInput(c *fiber.Ctx, in dto.WarehouseHoldRequest) inventory.WarehouseHoldInput {
	return inventory.WarehouseHoldInput{
		WarehouseID: in.WarehouseID,
		ItemID:      in.ItemID,
		Quantity:    in.Quantity,
		Tag:         in.Tag,
		Actor:       GetUserID(c),
		Notes:       in.Notes,
	}
}
