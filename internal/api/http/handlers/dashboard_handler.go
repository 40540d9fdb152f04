package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/garage-service/internal/events"
	"github.com/spec-kit/garage-service/internal/service"
)

// DashboardHandler serves the operational summary.
type DashboardHandler struct {
	service *service.DashboardService
	feed    events.Feed
	now     func() time.Time
}

// NewDashboardHandler constructs handler. feed may be nil, which disables the stream.
func NewDashboardHandler(dashboard *service.DashboardService, feed events.Feed) *DashboardHandler {
	return &DashboardHandler{service: dashboard, feed: feed, now: time.Now}
}

// Summary GET /api/dashboard.
func (h *DashboardHandler) Summary(c *fiber.Ctx) error {
	summary, err := h.service.Summary(c.UserContext(), h.now())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": summary})
}

// Stream GET /api/dashboard/stream pushes a recomputed summary after every change.
func (h *DashboardHandler) Stream(c *fiber.Ctx) error {
	if h.feed == nil {
		return fiber.NewError(fiber.StatusNotImplemented, "change feed disabled")
	}
	summary, err := h.service.Summary(c.UserContext(), h.now())
	if err != nil {
		return err
	}
	subscribe := func(ctx context.Context, push func(any)) (events.Subscription, error) {
		return h.feed.Subscribe(ctx, events.AllCollections, func(context.Context, events.Event) {
			push(nil)
		})
	}
	refresh := func(ctx context.Context) (any, error) {
		return h.service.Summary(ctx, h.now())
	}
	return streamSSE(c, summary, subscribe, refresh)
}
