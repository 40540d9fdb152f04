package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) handle(_ context.Context, e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func TestMemoryFeed_DeliversByCollection(t *testing.T) {
	ctx := context.Background()
	feed := NewMemoryFeed(zap.NewNop())

	var tickets, all recorder
	sub, err := feed.Subscribe(ctx, "complaints", tickets.handle)
	require.NoError(t, err)
	defer sub.Unsubscribe()
	allSub, err := feed.Subscribe(ctx, AllCollections, all.handle)
	require.NoError(t, err)
	defer allSub.Unsubscribe()

	require.NoError(t, feed.Publish(ctx, NewEvent("complaints", EventCreated, "t1", time.Now())))
	require.NoError(t, feed.Publish(ctx, NewEvent("vendors", EventCreated, "v1", time.Now())))

	assert.Equal(t, 1, tickets.count())
	assert.Equal(t, 2, all.count())
	assert.Equal(t, "t1", tickets.events[0].DocumentID)
}

func TestMemoryFeed_Unsubscribe(t *testing.T) {
	ctx := context.Background()
	feed := NewMemoryFeed(nil)

	var rec recorder
	sub, err := feed.Subscribe(ctx, "complaints", rec.handle)
	require.NoError(t, err)

	sub.Unsubscribe()
	sub.Unsubscribe()
	require.NoError(t, feed.Publish(ctx, NewEvent("complaints", EventUpdated, "t1", time.Now())))
	assert.Zero(t, rec.count())
}

func TestMemoryFeed_ContextCancelEndsSubscription(t *testing.T) {
	feed := NewMemoryFeed(nil)
	ctx, cancel := context.WithCancel(context.Background())

	var rec recorder
	_, err := feed.Subscribe(ctx, "complaints", rec.handle)
	require.NoError(t, err)
	cancel()

	mf := feed.(*memoryFeed)
	require.Eventually(t, func() bool {
		mf.mu.RLock()
		defer mf.mu.RUnlock()
		return len(mf.listeners) == 0
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, feed.Publish(context.Background(), NewEvent("complaints", EventUpdated, "t1", time.Now())))
	assert.Zero(t, rec.count())
}

func TestMemoryFeed_PanickingHandlerDoesNotStopOthers(t *testing.T) {
	ctx := context.Background()
	feed := NewMemoryFeed(nil)

	var rec recorder
	_, err := feed.Subscribe(ctx, "complaints", func(context.Context, Event) { panic("boom") })
	require.NoError(t, err)
	_, err = feed.Subscribe(ctx, "complaints", rec.handle)
	require.NoError(t, err)

	require.NoError(t, feed.Publish(ctx, NewEvent("complaints", EventUpdated, "t1", time.Now())))
	assert.Equal(t, 1, rec.count())
}

func TestRedisFeed_PublishSubscribe(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer client.Close()

	ctx := context.Background()
	feed := NewRedisFeed(client, "garage:test", zap.NewNop())

	var tickets, all recorder
	sub, err := feed.Subscribe(ctx, "complaints", tickets.handle)
	require.NoError(t, err)
	allSub, err := feed.Subscribe(ctx, AllCollections, all.handle)
	require.NoError(t, err)

	event := NewEvent("complaints", EventStatusChanged, "t1", time.Now().UTC())
	event.Detail = StatusDetail("Open", "Technician Assigned")
	require.NoError(t, feed.Publish(ctx, event))
	require.NoError(t, feed.Publish(ctx, NewEvent("invoices", EventCreated, "i1", time.Now().UTC())))

	require.Eventually(t, func() bool { return tickets.count() == 1 && all.count() == 2 }, 2*time.Second, 10*time.Millisecond)

	tickets.mu.Lock()
	got := tickets.events[0]
	tickets.mu.Unlock()
	assert.Equal(t, event.ID, got.ID)
	assert.Equal(t, "Technician Assigned", got.Detail["to"])

	sub.Unsubscribe()
	allSub.Unsubscribe()
	require.NoError(t, feed.Close())
}
