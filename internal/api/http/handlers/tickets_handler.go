package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/garage-service/internal/api/dto"
	"github.com/spec-kit/garage-service/internal/auth"
	"github.com/spec-kit/garage-service/internal/domain"
	"github.com/spec-kit/garage-service/internal/events"
	"github.com/spec-kit/garage-service/internal/service"
	apperrors "github.com/spec-kit/garage-service/pkg/util/errorutil"
)

// TicketsHandler manages ticket endpoints.
type TicketsHandler struct {
	service  *service.TicketService
	invoices *service.InvoiceService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService, invoiceService *service.InvoiceService) *TicketsHandler {
	return &TicketsHandler{service: ticketService, invoices: invoiceService}
}

// CreateTicket POST /api/tickets. Customers always open tickets for themselves.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var input service.TicketCreateInput
	if err := c.BodyParser(&input); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if !principal.IsStaff() {
		input.CustomerID = principal.ID
		if strings.TrimSpace(input.CustomerName) == "" {
			input.CustomerName = principal.Name
		}
	}
	ticket, err := h.service.CreateTicket(c.UserContext(), principal.Actor(), input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticket})
}

// ListTickets GET /api/tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	tickets, err := h.service.ListTickets(c.UserContext(), parseTicketQuery(c))
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for _, t := range tickets {
		items = append(items, dto.NewTicketSummary(t))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /api/tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, err := h.service.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticket})
}

// StreamTicket GET /api/tickets/:id/stream pushes the ticket after every change.
func (h *TicketsHandler) StreamTicket(c *fiber.Ctx) error {
	ticket, err := h.service.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	subscribe := func(ctx context.Context, push func(any)) (events.Subscription, error) {
		return h.service.Watch(ctx, ticket.ID, func(t *domain.Ticket) { push(t) })
	}
	return streamSSE(c, ticket, subscribe, nil)
}

// UpdateTicket PATCH /api/tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	var input service.TicketDetailsInput
	if err := c.BodyParser(&input); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.UpdateDetails(c.UserContext(), actorFrom(c), c.Params("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticket})
}

// AssignTechnician POST /api/tickets/:id/assign.
func (h *TicketsHandler) AssignTechnician(c *fiber.Ctx) error {
	var req dto.AssignTechnicianRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.AssignTechnician(c.UserContext(), actorFrom(c), c.Params("id"), req.TechnicianID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticket})
}

// ChangeStatus POST /api/tickets/:id/status.
func (h *TicketsHandler) ChangeStatus(c *fiber.Ctx) error {
	status, err := parseStatus(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.ChangeStatus(c.UserContext(), actorFrom(c), c.Params("id"), domain.TicketStatus(status))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticket})
}

// SetEstimate POST /api/tickets/:id/estimate.
func (h *TicketsHandler) SetEstimate(c *fiber.Ctx) error {
	var input service.ItemsInput
	if err := c.BodyParser(&input); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.SetEstimatedItems(c.UserContext(), actorFrom(c), c.Params("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticket})
}

// SetActuals POST /api/tickets/:id/actual.
func (h *TicketsHandler) SetActuals(c *fiber.Ctx) error {
	var input service.ItemsInput
	if err := c.BodyParser(&input); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.SetActualItems(c.UserContext(), actorFrom(c), c.Params("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticket})
}

// CreateInvoice POST /api/tickets/:id/invoice.
func (h *TicketsHandler) CreateInvoice(c *fiber.Ctx) error {
	invoice, err := h.invoices.CreateFromTicket(c.UserContext(), actorFrom(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": invoice})
}

func parseTicketQuery(c *fiber.Ctx) service.TicketListFilter {
	filter := service.TicketListFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.TrimSpace(part)))
		}
	}
	if technician := c.Query("technician"); technician != "" {
		filter.Technician = &technician
	}
	if customer := c.Query("customerId"); customer != "" {
		filter.CustomerID = &customer
	}
	if vehicle := c.Query("vehicleNumber"); vehicle != "" {
		filter.VehicleNumber = &vehicle
	}
	if search := c.Query("search"); search != "" {
		filter.SearchTerm = &search
	}
	if from := parseTime(c.Query("createdFrom")); from != nil {
		filter.CreatedFrom = from
	}
	if to := parseTime(c.Query("createdTo")); to != nil {
		filter.CreatedTo = to
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("pageSize"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parseStatus(c *fiber.Ctx) (string, error) {
	var req dto.StatusChangeRequest
	if err := c.BodyParser(&req); err != nil {
		return "", apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Status) == "" {
		return "", apperrors.NewFieldValidationError("status required", map[string]string{"status": "required"})
	}
	return req.Status, nil
}

func actorFrom(c *fiber.Ctx) events.Actor {
	principal, _ := auth.PrincipalFromContext(c)
	return principal.Actor()
}

func parseTime(val string) *time.Time {
	if val == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil
	}
	return &t
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
