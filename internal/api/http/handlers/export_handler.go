package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/garage-service/internal/service"
)

// ExportHandler streams collections as CSV downloads.
type ExportHandler struct {
	service *service.ExportService
}

func NewExportHandler(exports *service.ExportService) *ExportHandler {
	return &ExportHandler{service: exports}
}

// Export GET /api/export/:collection.
func (h *ExportHandler) Export(c *fiber.Ctx) error {
	target := c.Params("collection")
	body, err := h.service.Export(c.UserContext(), target)
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s.csv"`, target))
	return c.Send(body)
}
