package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/garage-service/internal/domain"
	"github.com/spec-kit/garage-service/internal/service"
	apperrors "github.com/spec-kit/garage-service/pkg/util/errorutil"
)

// CatalogHandler exposes the inventory catalog.
type CatalogHandler struct {
	service *service.CatalogService
}

func NewCatalogHandler(catalogService *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{service: catalogService}
}

// ListItems GET /api/catalog?kind=part|service.
func (h *CatalogHandler) ListItems(c *fiber.Ctx) error {
	var kind *domain.ItemKind
	if k := c.Query("kind"); k != "" {
		ik := domain.ItemKind(k)
		kind = &ik
	}
	items, err := h.service.ListItems(c.UserContext(), kind)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetItem GET /api/catalog/:id.
func (h *CatalogHandler) GetItem(c *fiber.Ctx) error {
	item, err := h.service.GetItem(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": item})
}

// CreateItem POST /api/catalog.
func (h *CatalogHandler) CreateItem(c *fiber.Ctx) error {
	var input service.CatalogItemInput
	if err := c.BodyParser(&input); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	item, err := h.service.CreateItem(c.UserContext(), actorFrom(c), input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": item})
}
