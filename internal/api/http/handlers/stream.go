package handlers

import (
	"bufio"
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"github.com/spec-kit/garage-service/internal/events"
)

const streamKeepAlive = 15 * time.Second

// streamSubscribe registers push with a feed; push(nil) asks the stream to call refresh.
type streamSubscribe func(ctx context.Context, push func(payload any)) (events.Subscription, error)

// streamSSE answers with a text/event-stream that sends initial, then one "update" event per
// push until the client goes away. The subscription is released when the writer returns.
func streamSSE(c *fiber.Ctx, initial any, subscribe streamSubscribe, refresh func(context.Context) (any, error)) error {
	encode := c.App().Config().JSONEncoder

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		// the request context is gone once the handler returns
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		updates := make(chan any, 1)
		pending := make(chan struct{}, 1)
		push := func(payload any) {
			if payload == nil {
				select {
				case pending <- struct{}{}:
				default:
				}
				return
			}
			select {
			case <-updates:
			default:
			}
			select {
			case updates <- payload:
			default:
			}
		}

		sub, err := subscribe(ctx, push)
		if err != nil {
			_ = writeEvent(w, encode, "error", fiber.Map{"message": "subscription failed"})
			return
		}
		defer sub.Unsubscribe()

		if writeEvent(w, encode, "update", initial) != nil {
			return
		}

		ticker := time.NewTicker(streamKeepAlive)
		defer ticker.Stop()
		for {
			select {
			case payload := <-updates:
				if writeEvent(w, encode, "update", payload) != nil {
					return
				}
			case <-pending:
				if refresh == nil {
					continue
				}
				payload, err := refresh(ctx)
				if err != nil {
					continue
				}
				if writeEvent(w, encode, "update", payload) != nil {
					return
				}
			case <-ticker.C:
				if _, err := w.WriteString(": keep-alive\n\n"); err != nil {
					return
				}
				if w.Flush() != nil {
					return
				}
			}
		}
	}))
	return nil
}

func writeEvent(w *bufio.Writer, encode func(any) ([]byte, error), name string, payload any) error {
	body, err := encode(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, body); err != nil {
		return err
	}
	return w.Flush()
}
