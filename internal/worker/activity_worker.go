package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/garage-service/internal/events"
	"github.com/spec-kit/garage-service/internal/service"
)

// StartActivityWorker subscribes the activity recorder to the change feed. The returned
// subscription is released by the caller on shutdown; a nil service yields a no-op.
func StartActivityWorker(ctx context.Context, activity *service.ActivityService, logger *zap.Logger) events.Subscription {
	if activity == nil {
		return noopSubscription{}
	}
	sub, err := activity.Start(ctx)
	if err != nil {
		logger.Warn("activity worker not started", zap.Error(err))
		return noopSubscription{}
	}
	logger.Info("activity worker started")
	return sub
}

type noopSubscription struct{}

func (noopSubscription) Unsubscribe() {}
