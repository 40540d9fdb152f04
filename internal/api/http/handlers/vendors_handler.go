package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/garage-service/internal/domain"
	"github.com/spec-kit/garage-service/internal/service"
	apperrors "github.com/spec-kit/garage-service/pkg/util/errorutil"
)

// VendorsHandler exposes vendor management.
type VendorsHandler struct {
	service *service.VendorService
}

func NewVendorsHandler(vendorService *service.VendorService) *VendorsHandler {
	return &VendorsHandler{service: vendorService}
}

// ListVendors GET /api/vendors.
func (h *VendorsHandler) ListVendors(c *fiber.Ctx) error {
	var status *domain.VendorStatus
	if s := c.Query("status"); s != "" {
		vs := domain.VendorStatus(s)
		status = &vs
	}
	vendors, err := h.service.ListVendors(c.UserContext(), status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": vendors})
}

// GetVendor GET /api/vendors/:id.
func (h *VendorsHandler) GetVendor(c *fiber.Ctx) error {
	vendor, err := h.service.GetVendor(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": vendor})
}

// CreateVendor POST /api/vendors.
func (h *VendorsHandler) CreateVendor(c *fiber.Ctx) error {
	var input service.VendorInput
	if err := c.BodyParser(&input); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	vendor, err := h.service.CreateVendor(c.UserContext(), actorFrom(c), input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": vendor})
}

// ChangeStatus POST /api/vendors/:id/status.
func (h *VendorsHandler) ChangeStatus(c *fiber.Ctx) error {
	status, err := parseStatus(c)
	if err != nil {
		return err
	}
	vendor, err := h.service.ChangeStatus(c.UserContext(), actorFrom(c), c.Params("id"), domain.VendorStatus(status))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": vendor})
}
