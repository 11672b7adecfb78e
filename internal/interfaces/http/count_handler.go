package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/vendhub-inventory/internal/application/dto"
	"github.com/jhoicas/vendhub-inventory/internal/application/inventory"
	"github.com/jhoicas/vendhub-inventory/internal/domain/entity"
)

// CountHandler conteos físicos y umbrales de diferencia.
type CountHandler struct {
	uc *inventory.CountUseCase
}

func NewCountHandler(uc *inventory.CountUseCase) *CountHandler {
	return &CountHandler{uc: uc}
}

// Record godoc
// @Summary      Registrar conteo físico
// @Description  Compara contra el stock registrado; con adjust=true iguala la cantidad actual al conteo.
// @Tags         counts
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RecordCountRequest  true  "level, location_id, item_id, counted_quantity, adjust"
// @Success      201   {object}  dto.CountResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/inventory/counts [post]
func (h *CountHandler) Record(c *fiber.Ctx) error {
	var in dto.RecordCountRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	level, ok := entity.ParseLevel(in.Level)
	if !ok {
		return badParam(c, "nivel inválido")
	}
	res, err := h.uc.RecordCount(c.Context(), inventory.RecordCountInput{
		Level:      level,
		LocationID: in.LocationID,
		ItemID:     in.ItemID,
		Counted:    in.Counted,
		Actor:      GetUserID(c),
		Notes:      in.Notes,
		Adjust:     in.Adjust,
	})
	if err != nil {
		return respondError(c, err)
	}
	out := dto.CountResponse{Count: dto.NewCountDTO(res.Count)}
	if res.Stock != nil {
		s := dto.NewStockDTO(res.Stock)
		out.Stock = &s
	}
	if res.Movement != nil {
		m := dto.NewMovementDTO(res.Movement)
		out.Movement = &m
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// List conteos de una ubicación, más recientes primero.
func (h *CountHandler) List(c *fiber.Ctx) error {
	level, ok := entity.ParseLevel(c.Params("level"))
	if !ok {
		return badParam(c, "nivel inválido")
	}
	list, err := h.uc.ListCounts(c.Context(), level, c.Params("locationId"), c.QueryInt("limit", 0))
	if err != nil {
		return respondError(c, err)
	}
	out := make([]dto.CountDTO, 0, len(list))
	for _, cnt := range list {
		out = append(out, dto.NewCountDTO(cnt))
	}
	return c.JSON(out)
}

func (h *CountHandler) CreateThreshold(c *fiber.Ctx) error {
	var in dto.CreateThresholdRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	var level entity.Level
	if in.Level != "" {
		l, ok := entity.ParseLevel(in.Level)
		if !ok {
			return badParam(c, "nivel inválido")
		}
		level = l
	}
	th, err := h.uc.CreateThreshold(c.Context(), inventory.CreateThresholdInput{
		Name:          in.Name,
		ItemID:        in.ItemID,
		Level:         level,
		AbsoluteLimit: in.AbsoluteLimit,
		PercentLimit:  in.PercentLimit,
		Severity:      entity.Severity(strings.ToUpper(strings.TrimSpace(in.Severity))),
		Actions:       in.Actions,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewThresholdDTO(th))
}

func (h *CountHandler) ListThresholds(c *fiber.Ctx) error {
	list, err := h.uc.ListThresholds(c.Context())
	if err != nil {
		return respondError(c, err)
	}
	out := make([]dto.ThresholdDTO, 0, len(list))
	for _, th := range list {
		out = append(out, dto.NewThresholdDTO(th))
	}
	return c.JSON(out)
}
