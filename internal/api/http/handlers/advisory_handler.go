package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/garage-service/internal/advisory"
	"github.com/spec-kit/garage-service/internal/auth"
	"github.com/spec-kit/garage-service/internal/service"
	apperrors "github.com/spec-kit/garage-service/pkg/util/errorutil"
)

// AdvisoryHandler fronts the AI advisory flows.
type AdvisoryHandler struct {
	advisory *advisory.Service
	tickets  *service.TicketService
	invoices *service.InvoiceService
	amcs     *service.AMCService
}

// NewAdvisoryHandler constructs handler. The record services are optional and only
// used to attach a customer's history to support requests.
func NewAdvisoryHandler(advisoryService *advisory.Service, tickets *service.TicketService, invoices *service.InvoiceService, amcs *service.AMCService) *AdvisoryHandler {
	return &AdvisoryHandler{advisory: advisoryService, tickets: tickets, invoices: invoices, amcs: amcs}
}

// Support POST /api/ai/support.
func (h *AdvisoryHandler) Support(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var input advisory.SupportInput
	if err := c.BodyParser(&input); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if !principal.IsStaff() {
		input.CustomerID = principal.ID
		if input.CustomerName == "" {
			input.CustomerName = principal.Name
		}
	}
	if err := h.advisory.ValidateSupport(input); err != nil {
		return err
	}
	if input.CustomerID != "" {
		if err := h.attachHistory(c.UserContext(), c.App().Config().JSONEncoder, &input); err != nil {
			return err
		}
	}
	out, err := h.advisory.CustomerSupport(c.UserContext(), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": out})
}

// Maintenance POST /api/ai/maintenance.
func (h *AdvisoryHandler) Maintenance(c *fiber.Ctx) error {
	var input advisory.MaintenanceInput
	if err := c.BodyParser(&input); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	out, err := h.advisory.PredictiveMaintenance(c.UserContext(), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": out})
}

// DriverBehavior POST /api/ai/driver-behavior.
func (h *AdvisoryHandler) DriverBehavior(c *fiber.Ctx) error {
	var input advisory.DriverBehaviorInput
	if err := c.BodyParser(&input); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	out, err := h.advisory.DriverBehavior(c.UserContext(), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": out})
}

// DataAnalysis POST /api/ai/data-analysis.
func (h *AdvisoryHandler) DataAnalysis(c *fiber.Ctx) error {
	var input advisory.DataAnalysisInput
	if err := c.BodyParser(&input); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	out, err := h.advisory.DataAnalysis(c.UserContext(), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": out})
}

// attachHistory fills the customer's tickets, invoices and contracts when the caller
// did not send them.
func (h *AdvisoryHandler) attachHistory(ctx context.Context, encode func(any) ([]byte, error), input *advisory.SupportInput) error {
	customerID := input.CustomerID
	if input.Complaints == "" && h.tickets != nil {
		tickets, err := h.tickets.ListTickets(ctx, service.TicketListFilter{CustomerID: &customerID})
		if err != nil {
			return err
		}
		if input.Complaints, err = encodeString(encode, tickets); err != nil {
			return err
		}
	}
	if input.Invoices == "" && h.invoices != nil {
		invoices, err := h.invoices.ListInvoices(ctx, service.InvoiceListFilter{CustomerID: &customerID})
		if err != nil {
			return err
		}
		if input.Invoices, err = encodeString(encode, invoices); err != nil {
			return err
		}
	}
	if input.AMC == "" && h.amcs != nil {
		all, err := h.amcs.ListAMCs(ctx, service.AMCListFilter{})
		if err != nil {
			return err
		}
		owned := all[:0]
		for _, amc := range all {
			if amc.CustomerID == customerID {
				owned = append(owned, amc)
			}
		}
		if input.AMC, err = encodeString(encode, owned); err != nil {
			return err
		}
	}
	return nil
}

func encodeString(encode func(any) ([]byte, error), v any) (string, error) {
	body, err := encode(v)
	if err != nil {
		return "", apperrors.NewInternalError(err)
	}
	return string(body), nil
}
