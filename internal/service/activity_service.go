package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/garage-service/internal/events"
	"github.com/spec-kit/garage-service/internal/observability"
)

// ActivityService records every accepted write seen on the change feed.
type ActivityService struct {
	feed    events.Feed
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewActivityService creates the service.
func NewActivityService(feed events.Feed, logger *zap.Logger, metrics *observability.Metrics) *ActivityService {
	return &ActivityService{
		feed:    feed,
		logger:  loggerOrNop(logger),
		metrics: metrics,
	}
}

// Start subscribes to all collections until ctx ends or the subscription is released.
func (a *ActivityService) Start(ctx context.Context) (events.Subscription, error) {
	if a.feed == nil {
		return nil, errNoFeed
	}
	return a.feed.Subscribe(ctx, events.AllCollections, a.handle)
}

func (a *ActivityService) handle(_ context.Context, event events.Event) {
	a.metrics.RecordFeedEvent(event.Collection, string(event.Type))

	fields := []zap.Field{
		zap.String("collection", event.Collection),
		zap.String("document_id", event.DocumentID),
		zap.String("actor_id", event.Actor.ID),
		zap.String("actor_role", event.Actor.Role),
	}
	switch event.Type {
	case events.EventStatusChanged:
		a.logger.Info("StatusChanged", append(fields,
			zap.String("from", event.Detail["from"]),
			zap.String("to", event.Detail["to"]))...)
	case events.EventPaid:
		a.logger.Info("InvoicePaid", fields...)
	case events.EventAssigned:
		a.logger.Info("TechnicianAssigned", append(fields, zap.String("technician", event.Detail["technician"]))...)
	default:
		a.logger.Debug("DocumentChanged", append(fields, zap.String("type", string(event.Type)))...)
	}
}
