package handlers

import (
	"errors"
	"io/fs"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/garage-service/internal/domain"
	apperrors "github.com/spec-kit/garage-service/pkg/util/errorutil"
)

// BranchSource yields the branch roster.
type BranchSource interface {
	Load() ([]domain.Branch, error)
}

// BranchesHandler lists garage branches from the roster spreadsheet.
type BranchesHandler struct {
	source BranchSource
	logger *zap.Logger
}

func NewBranchesHandler(source BranchSource, logger *zap.Logger) *BranchesHandler {
	return &BranchesHandler{source: source, logger: logger}
}

// List GET /api/branches.
func (h *BranchesHandler) List(c *fiber.Ctx) error {
	branches, err := h.source.Load()
	if err != nil {
		h.logger.Warn("load branches", zap.Error(err))
		if errors.Is(err, fs.ErrNotExist) {
			return apperrors.NewExternalServiceError("branch roster unavailable", err)
		}
		return apperrors.NewInternalError(err)
	}
	if branches == nil {
		branches = []domain.Branch{}
	}
	return c.JSON(fiber.Map{"data": branches})
}
