package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/garage-service/internal/domain"
	"github.com/spec-kit/garage-service/internal/events"
	"github.com/spec-kit/garage-service/internal/repository"
	apperrors "github.com/spec-kit/garage-service/pkg/util/errorutil"
)

var errNoFeed = errors.New("change feed not configured")

// Clock returns the current time. Services take one so tests can pin timestamps.
type Clock func() time.Time

func clockOrNow(c Clock) Clock {
	if c == nil {
		return time.Now
	}
	return c
}

func loggerOrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

// generateNumber builds a human readable document number such as TKT-1A2B3C4D.
func generateNumber(prefix string) string {
	return prefix + "-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// mapStoreError translates repository sentinels into API errors.
func mapStoreError(err error, resource, id string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound(resource, map[string]any{"id": id})
	case errors.Is(err, repository.ErrDuplicate):
		return apperrors.NewConflict(resource+" already exists", map[string]any{"id": id})
	case errors.Is(err, repository.ErrStale):
		return &apperrors.DomainError{
			Code:       apperrors.CodeConflict,
			Message:    resource + " was changed by another request",
			HTTPStatus: http.StatusConflict,
			Details:    map[string]any{"id": id},
			Err:        err,
		}
	}
	return apperrors.MapError(err)
}

// maxWriteAttempts bounds read-modify-write cycles lost to concurrent writers.
const maxWriteAttempts = 3

// retryStale reruns a read-modify-write cycle while its save loses to a concurrent
// write. fn must re-read the document on every call so each attempt sees the latest state.
func retryStale(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		if err = fn(); !errors.Is(err, repository.ErrStale) {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return err
		}
	}
	return err
}

// mapTransitionError translates status machine rejections into API errors.
func mapTransitionError(err error, resource string) error {
	var te *domain.TransitionError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &te):
		if te.Unknown {
			return apperrors.NewUnknownStatusError(te.To)
		}
		return apperrors.NewTransitionError(resource+" status change not allowed", map[string]any{
			"from": te.From,
			"to":   te.To,
		})
	case errors.Is(err, domain.ErrConvertViaStatus):
		return apperrors.NewTransitionError(err.Error(), map[string]any{"to": string(domain.QuoteStatusConverted)})
	case errors.Is(err, domain.ErrAlreadyConverted), errors.Is(err, domain.ErrAlreadyRenewed):
		return apperrors.NewConflict(err.Error(), nil)
	}
	return apperrors.MapError(err)
}

// publisher emits change events after accepted writes. A failed publish is logged and
// never fails the write that caused it.
type publisher struct {
	feed   events.Feed
	logger *zap.Logger
}

func (p publisher) publish(ctx context.Context, event events.Event) {
	if p.feed == nil {
		return
	}
	if err := p.feed.Publish(ctx, event); err != nil {
		p.logger.Warn("publish change event",
			zap.String("collection", event.Collection),
			zap.String("document_id", event.DocumentID),
			zap.String("type", string(event.Type)),
			zap.Error(err))
	}
}

func (p publisher) change(ctx context.Context, actor events.Actor, collection string, typ events.EventType, id string, at time.Time, detail map[string]string) {
	event := events.NewEvent(collection, typ, id, at)
	event.Actor = actor
	event.Detail = detail
	p.publish(ctx, event)
}

func requireID(id, resource string) error {
	if strings.TrimSpace(id) == "" {
		return apperrors.NewFieldValidationError(resource+" id required", map[string]string{"id": "required"})
	}
	return nil
}
