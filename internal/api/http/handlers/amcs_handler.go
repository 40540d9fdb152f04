package handlers

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/garage-service/internal/api/dto"
	"github.com/spec-kit/garage-service/internal/domain"
	"github.com/spec-kit/garage-service/internal/service"
	apperrors "github.com/spec-kit/garage-service/pkg/util/errorutil"
)

// AMCsHandler exposes maintenance contract management.
type AMCsHandler struct {
	service *service.AMCService
}

func NewAMCsHandler(amcService *service.AMCService) *AMCsHandler {
	return &AMCsHandler{service: amcService}
}

// ListAMCs GET /api/amcs?status=Active&expiringWithinDays=30.
func (h *AMCsHandler) ListAMCs(c *fiber.Ctx) error {
	filter := service.AMCListFilter{}
	if s := c.Query("status"); s != "" {
		status := domain.AMCStatus(s)
		filter.Status = &status
	}
	if days := parseInt(c.Query("expiringWithinDays"), 0); days > 0 {
		filter.ExpiringWithin = time.Duration(days) * 24 * time.Hour
	}
	amcs, err := h.service.ListAMCs(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": amcs})
}

// GetAMC GET /api/amcs/:id.
func (h *AMCsHandler) GetAMC(c *fiber.Ctx) error {
	amc, err := h.service.GetAMC(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": amc})
}

// CreateAMC POST /api/amcs.
func (h *AMCsHandler) CreateAMC(c *fiber.Ctx) error {
	var input service.AMCInput
	if err := c.BodyParser(&input); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	amc, err := h.service.CreateAMC(c.UserContext(), actorFrom(c), input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": amc})
}

// ChangeStatus POST /api/amcs/:id/status.
func (h *AMCsHandler) ChangeStatus(c *fiber.Ctx) error {
	status, err := parseStatus(c)
	if err != nil {
		return err
	}
	amc, err := h.service.ChangeStatus(c.UserContext(), actorFrom(c), c.Params("id"), domain.AMCStatus(status))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": amc})
}

// Renew POST /api/amcs/:id/renew.
func (h *AMCsHandler) Renew(c *fiber.Ctx) error {
	var req dto.RenewAMCRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	prev, next, err := h.service.Renew(c.UserContext(), actorFrom(c), c.Params("id"), req.Price)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.RenewAMCResponse{Previous: prev, Renewal: next}})
}
