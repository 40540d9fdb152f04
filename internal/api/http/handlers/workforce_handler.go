package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/garage-service/internal/api/dto"
	"github.com/spec-kit/garage-service/internal/domain"
	"github.com/spec-kit/garage-service/internal/service"
	apperrors "github.com/spec-kit/garage-service/pkg/util/errorutil"
)

// WorkforceHandler exposes workforce management and check-ins.
type WorkforceHandler struct {
	service *service.WorkforceService
}

// NewWorkforceHandler constructs handler.
func NewWorkforceHandler(workforceService *service.WorkforceService) *WorkforceHandler {
	return &WorkforceHandler{service: workforceService}
}

// ListMembers GET /api/workforce?role=Technician&active=true.
func (h *WorkforceHandler) ListMembers(c *fiber.Ctx) error {
	filters := service.WorkforceListFilters{}
	if r := c.Query("role"); r != "" {
		role := domain.WorkforceRole(r)
		filters.Role = &role
	}
	if a := c.Query("active"); a != "" {
		active, err := strconv.ParseBool(a)
		if err != nil {
			return apperrors.NewFieldValidationError("invalid filter", map[string]string{"active": "boolean"})
		}
		filters.Active = &active
	}
	members, err := h.service.ListMembers(c.UserContext(), filters)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": members})
}

// CreateMember POST /api/workforce.
func (h *WorkforceHandler) CreateMember(c *fiber.Ctx) error {
	var input service.WorkforceInput
	if err := c.BodyParser(&input); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	member, err := h.service.CreateMember(c.UserContext(), actorFrom(c), input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": member})
}

// CheckIn POST /api/workforce/:id/check-in.
func (h *WorkforceHandler) CheckIn(c *fiber.Ctx) error {
	member, err := h.service.CheckIn(c.UserContext(), actorFrom(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": member})
}

// SetActive POST /api/workforce/:id/active.
func (h *WorkforceHandler) SetActive(c *fiber.Ctx) error {
	var req dto.SetActiveRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Active == nil {
		return apperrors.NewFieldValidationError("active required", map[string]string{"active": "required"})
	}
	member, err := h.service.SetActive(c.UserContext(), actorFrom(c), c.Params("id"), *req.Active)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": member})
}

// Attendance GET /api/workforce/attendance.
func (h *WorkforceHandler) Attendance(c *fiber.Ctx) error {
	attendance, err := h.service.Attendance(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": attendance})
}
