package events

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Handler receives published events.
type Handler func(context.Context, Event)

// Subscription is the cancellation handle returned by Subscribe.
// Unsubscribe is idempotent; a subscription also ends when its context is cancelled.
type Subscription interface {
	Unsubscribe()
}

// Feed publishes collection changes and lets consumers subscribe to them.
type Feed interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(ctx context.Context, collection string, handler Handler) (Subscription, error)
	Close() error
}

type memoryListener struct {
	collection string
	handler    Handler
}

// memoryFeed is a synchronous in-process feed.
type memoryFeed struct {
	mu        sync.RWMutex
	nextID    uint64
	listeners map[uint64]memoryListener
	logger    *zap.Logger
}

// NewMemoryFeed creates a feed that invokes handlers on the publishing goroutine.
func NewMemoryFeed(logger *zap.Logger) Feed {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &memoryFeed{
		listeners: make(map[uint64]memoryListener),
		logger:    logger,
	}
}

// Publish synchronously invokes handlers registered for the event's collection.
func (f *memoryFeed) Publish(ctx context.Context, event Event) error {
	f.mu.RLock()
	handlers := make([]Handler, 0, len(f.listeners))
	for _, l := range f.listeners {
		if l.collection == AllCollections || l.collection == event.Collection {
			handlers = append(handlers, l.handler)
		}
	}
	f.mu.RUnlock()

	for _, handler := range handlers {
		f.invoke(ctx, handler, event)
	}
	return nil
}

func (f *memoryFeed) invoke(ctx context.Context, handler Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Error("feed handler panicked",
				zap.String("collection", event.Collection),
				zap.Any("panic", r))
		}
	}()
	handler(ctx, event)
}

// Subscribe registers a handler for the given collection.
func (f *memoryFeed) Subscribe(ctx context.Context, collection string, handler Handler) (Subscription, error) {
	f.mu.Lock()
	f.nextID++
	id := f.nextID
	f.listeners[id] = memoryListener{collection: collection, handler: handler}
	f.mu.Unlock()

	return newSubscription(ctx, func() {
		f.mu.Lock()
		delete(f.listeners, id)
		f.mu.Unlock()
	}), nil
}

func (f *memoryFeed) Close() error {
	f.mu.Lock()
	f.listeners = make(map[uint64]memoryListener)
	f.mu.Unlock()
	return nil
}

// subscription runs cancel exactly once, on Unsubscribe or when ctx ends.
type subscription struct {
	once   sync.Once
	done   chan struct{}
	cancel func()
}

func newSubscription(ctx context.Context, cancel func()) *subscription {
	s := &subscription{done: make(chan struct{}), cancel: cancel}
	go func() {
		select {
		case <-ctx.Done():
			s.Unsubscribe()
		case <-s.done:
		}
	}()
	return s
}

func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		close(s.done)
		s.cancel()
	})
}
