package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/vendhub-inventory/internal/application/dto"
	"github.com/jhoicas/vendhub-inventory/internal/application/inventory"
	"github.com/jhoicas/vendhub-inventory/internal/domain/entity"
	"github.com/jhoicas/vendhub-inventory/internal/domain/repository"
)

// MovementHandler consultas del libro de movimientos.
type MovementHandler struct {
	uc *inventory.MovementUseCase
}

func NewMovementHandler(uc *inventory.MovementUseCase) *MovementHandler {
	return &MovementHandler{uc: uc}
}

// List godoc
// @Summary      Listar movimientos
// @Tags         movements
// @Security     Bearer
// @Produce      json
// @Param        type          query  string  false  "tipo de movimiento"
// @Param        item_id       query  string  false  "ítem"
// @Param        location_id   query  string  false  "origen o destino"
// @Param        performed_by  query  string  false  "usuario"
// @Param        task_id       query  string  false  "tarea"
// @Param        from          query  string  false  "RFC3339"
// @Param        to            query  string  false  "RFC3339"
// @Param        limit         query  int     false  "máximo de filas"
// @Param        offset        query  int     false  "desplazamiento"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/inventory/movements [get]
func (h *MovementHandler) List(c *fiber.Ctx) error {
	f, err := movementFilter(c)
	if err != nil {
		return badParam(c, err.Error())
	}
	list, err := h.uc.List(c.Context(), f)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"movements": dto.NewMovementDTOs(list),
		"page":      dto.NewPageResponse(f.Limit, f.Offset, len(list)),
	})
}

// Stats totales por tipo con los mismos filtros que List.
func (h *MovementHandler) Stats(c *fiber.Ctx) error {
	f, err := movementFilter(c)
	if err != nil {
		return badParam(c, err.Error())
	}
	stats, err := h.uc.Stats(c.Context(), f)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NewMovementStatsDTO(stats))
}

func (h *MovementHandler) GetByID(c *fiber.Ctx) error {
	m, err := h.uc.Get(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NewMovementDTO(m))
}

func movementFilter(c *fiber.Ctx) (repository.MovementFilter, error) {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return repository.MovementFilter{}, err
	}
	page.DefaultPage()
	f := repository.MovementFilter{
		Type:        entity.MovementType(c.Query("type")),
		ItemID:      c.Query("item_id"),
		LocationID:  c.Query("location_id"),
		PerformedBy: c.Query("performed_by"),
		TaskID:      c.Query("task_id"),
		Limit:       page.Limit,
		Offset:      page.Offset,
	}
	var err error
	if f.From, err = queryTime(c, "from"); err != nil {
		return f, err
	}
	if f.To, err = queryTime(c, "to"); err != nil {
		return f, err
	}
	return f, nil
}

func queryTime(c *fiber.Ctx, name string) (*time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, name+" debe ser RFC3339")
	}
	return &t, nil
}
