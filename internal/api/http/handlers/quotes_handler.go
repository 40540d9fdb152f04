package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/garage-service/internal/api/dto"
	"github.com/spec-kit/garage-service/internal/domain"
	"github.com/spec-kit/garage-service/internal/service"
	apperrors "github.com/spec-kit/garage-service/pkg/util/errorutil"
)

// QuotesHandler exposes quotes and sales orders.
type QuotesHandler struct {
	service *service.QuoteService
}

func NewQuotesHandler(quoteService *service.QuoteService) *QuotesHandler {
	return &QuotesHandler{service: quoteService}
}

// ListQuotes GET /api/quotes.
func (h *QuotesHandler) ListQuotes(c *fiber.Ctx) error {
	filter := service.QuoteListFilter{}
	if s := c.Query("status"); s != "" {
		status := domain.QuoteStatus(s)
		filter.Status = &status
	}
	if branch := c.Query("branch"); branch != "" {
		filter.Branch = &branch
	}
	quotes, err := h.service.ListQuotes(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": quotes})
}

// GetQuote GET /api/quotes/:id.
func (h *QuotesHandler) GetQuote(c *fiber.Ctx) error {
	quote, err := h.service.GetQuote(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": quote})
}

// CreateQuote POST /api/quotes.
func (h *QuotesHandler) CreateQuote(c *fiber.Ctx) error {
	var input service.QuoteInput
	if err := c.BodyParser(&input); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	quote, err := h.service.CreateQuote(c.UserContext(), actorFrom(c), input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": quote})
}

// ChangeStatus POST /api/quotes/:id/status.
func (h *QuotesHandler) ChangeStatus(c *fiber.Ctx) error {
	status, err := parseStatus(c)
	if err != nil {
		return err
	}
	quote, err := h.service.ChangeStatus(c.UserContext(), actorFrom(c), c.Params("id"), domain.QuoteStatus(status))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": quote})
}

// Convert POST /api/quotes/:id/convert.
func (h *QuotesHandler) Convert(c *fiber.Ctx) error {
	quote, order, err := h.service.Convert(c.UserContext(), actorFrom(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.ConvertQuoteResponse{Quote: quote, SalesOrder: order}})
}

// ListSalesOrders GET /api/sales-orders.
func (h *QuotesHandler) ListSalesOrders(c *fiber.Ctx) error {
	var status *domain.SalesOrderStatus
	if s := c.Query("status"); s != "" {
		st := domain.SalesOrderStatus(s)
		status = &st
	}
	orders, err := h.service.ListSalesOrders(c.UserContext(), status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": orders})
}

// GetSalesOrder GET /api/sales-orders/:id.
func (h *QuotesHandler) GetSalesOrder(c *fiber.Ctx) error {
	order, err := h.service.GetSalesOrder(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": order})
}

// ChangeSalesOrderStatus POST /api/sales-orders/:id/status.
func (h *QuotesHandler) ChangeSalesOrderStatus(c *fiber.Ctx) error {
	status, err := parseStatus(c)
	if err != nil {
		return err
	}
	order, err := h.service.ChangeSalesOrderStatus(c.UserContext(), actorFrom(c), c.Params("id"), domain.SalesOrderStatus(status))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": order})
}
