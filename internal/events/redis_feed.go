package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// redisFeed fans changes out through Redis pub/sub so every replica sees them.
type redisFeed struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

// NewRedisFeed publishes events on "<prefix>:<collection>" channels.
func NewRedisFeed(client *redis.Client, prefix string, logger *zap.Logger) Feed {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &redisFeed{client: client, prefix: prefix, logger: logger}
}

func (f *redisFeed) channel(collection string) string {
	return fmt.Sprintf("%s:%s", f.prefix, collection)
}

func (f *redisFeed) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return f.client.Publish(ctx, f.channel(event.Collection), payload).Err()
}

// Subscribe starts one receiving goroutine per subscription. AllCollections uses a
// pattern subscription.
func (f *redisFeed) Subscribe(ctx context.Context, collection string, handler Handler) (Subscription, error) {
	subCtx, cancel := context.WithCancel(ctx)

	var pubsub *redis.PubSub
	if collection == AllCollections {
		pubsub = f.client.PSubscribe(subCtx, f.channel("*"))
	} else {
		pubsub = f.client.Subscribe(subCtx, f.channel(collection))
	}
	// wait for the subscription to be confirmed so no publish is missed
	if _, err := pubsub.Receive(subCtx); err != nil {
		cancel()
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", collection, err)
	}

	messages := pubsub.Channel()
	go func() {
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				var event Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					f.logger.Warn("dropping undecodable change event",
						zap.String("channel", msg.Channel), zap.Error(err))
					continue
				}
				f.dispatch(subCtx, handler, event)
			}
		}
	}()

	return newSubscription(ctx, func() {
		cancel()
		_ = pubsub.Close()
	}), nil
}

func (f *redisFeed) dispatch(ctx context.Context, handler Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Error("feed handler panicked",
				zap.String("collection", event.Collection),
				zap.Any("panic", r))
		}
	}()
	handler(ctx, event)
}

// Close leaves the client open; it is owned by the persistence layer.
func (f *redisFeed) Close() error {
	return nil
}
