package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/garage-service/internal/api/dto"
	"github.com/spec-kit/garage-service/internal/domain"
	"github.com/spec-kit/garage-service/internal/service"
	apperrors "github.com/spec-kit/garage-service/pkg/util/errorutil"
)

// InvoicesHandler exposes billing endpoints.
type InvoicesHandler struct {
	service *service.InvoiceService
}

// NewInvoicesHandler constructs handler.
func NewInvoicesHandler(invoiceService *service.InvoiceService) *InvoicesHandler {
	return &InvoicesHandler{service: invoiceService}
}

// ListInvoices GET /api/invoices.
func (h *InvoicesHandler) ListInvoices(c *fiber.Ctx) error {
	filter := service.InvoiceListFilter{}
	if status := c.Query("status"); status != "" {
		s := domain.InvoiceStatus(status)
		filter.Status = &s
	}
	if customer := c.Query("customerId"); customer != "" {
		filter.CustomerID = &customer
	}
	invoices, err := h.service.ListInvoices(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": invoices})
}

// GetInvoice GET /api/invoices/:id.
func (h *InvoicesHandler) GetInvoice(c *fiber.Ctx) error {
	invoice, err := h.service.GetInvoice(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": invoice})
}

// MarkPaid POST /api/invoices/:id/pay.
func (h *InvoicesHandler) MarkPaid(c *fiber.Ctx) error {
	var req dto.MarkPaidRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	invoice, err := h.service.MarkPaid(c.UserContext(), actorFrom(c), c.Params("id"), req.Reference)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": invoice})
}

// StartCheckout POST /api/invoices/:id/checkout.
func (h *InvoicesHandler) StartCheckout(c *fiber.Ctx) error {
	var req dto.CheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	invoice, err := h.service.StartCheckout(c.UserContext(), actorFrom(c), c.Params("id"), req.OrderID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": invoice})
}

// RecordPayment POST /api/invoices/:id/payment verifies a gateway checkout.
func (h *InvoicesHandler) RecordPayment(c *fiber.Ctx) error {
	var input service.PaymentInput
	if err := c.BodyParser(&input); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	invoice, err := h.service.RecordPayment(c.UserContext(), actorFrom(c), c.Params("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": invoice})
}
