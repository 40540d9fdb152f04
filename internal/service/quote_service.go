package service

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/garage-service/internal/domain"
	"github.com/spec-kit/garage-service/internal/events"
	"github.com/spec-kit/garage-service/internal/repository"
	apperrors "github.com/spec-kit/garage-service/pkg/util/errorutil"
	"github.com/spec-kit/garage-service/pkg/util/validation"
)

// QuoteService manages sales quotes and the orders they convert into.
type QuoteService struct {
	quotes   repository.Collection[domain.Quote]
	orders   repository.Collection[domain.SalesOrder]
	items    itemResolver
	events   publisher
	validate *validation.Validator
	now      Clock
}

// QuoteDependencies bundles collaborators for the quote service.
type QuoteDependencies struct {
	QuoteRepo      repository.Collection[domain.Quote]
	SalesOrderRepo repository.Collection[domain.SalesOrder]
	CatalogRepo    repository.Collection[domain.CatalogItem]
	Feed           events.Feed
	Logger         *zap.Logger
	Clock          Clock
}

// QuoteInput describes a new quote.
type QuoteInput struct {
	CustomerName string     `json:"customerName" validate:"required,max=200"`
	Branch       string     `json:"branch" validate:"required,max=200"`
	Items        ItemsInput `json:"items"`
}

// QuoteListFilter narrows quote listings.
type QuoteListFilter struct {
	Status *domain.QuoteStatus
	Branch *string
}

// NewQuoteService constructs the service.
func NewQuoteService(deps QuoteDependencies) *QuoteService {
	return &QuoteService{
		quotes:   deps.QuoteRepo,
		orders:   deps.SalesOrderRepo,
		items:    itemResolver{catalog: deps.CatalogRepo},
		events:   publisher{feed: deps.Feed, logger: loggerOrNop(deps.Logger)},
		validate: validation.New(),
		now:      clockOrNow(deps.Clock),
	}
}

// CreateQuote drafts a quote. Total is the sum of item prices.
func (s *QuoteService) CreateQuote(ctx context.Context, actor events.Actor, input QuoteInput) (*domain.Quote, error) {
	if err := s.validate.Struct("invalid quote", input); err != nil {
		return nil, err
	}
	if len(input.Items.Parts)+len(input.Items.Services) == 0 {
		return nil, apperrors.NewFieldValidationError("invalid quote", map[string]string{"items": "required"})
	}
	set, err := s.items.resolve(ctx, input.Items)
	if err != nil {
		return nil, err
	}
	items := slices.Concat(set.Parts, set.Services)

	now := s.now()
	quote := &domain.Quote{
		ID:            uuid.NewString(),
		QuoteNumber:   generateNumber("QT"),
		CustomerName:  strings.TrimSpace(input.CustomerName),
		Branch:        strings.TrimSpace(input.Branch),
		Items:         items,
		Total:         domain.SumPrices(items),
		Status:        domain.QuoteStatusDraft,
		StatusHistory: []domain.StatusEntry[domain.QuoteStatus]{{Status: domain.QuoteStatusDraft, Timestamp: now}},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.quotes.Insert(ctx, quote.ID, quote); err != nil {
		return nil, mapStoreError(err, "quote", quote.ID)
	}
	s.events.change(ctx, actor, repository.CollectionQuotes, events.EventCreated, quote.ID, now, nil)
	return quote, nil
}

// GetQuote returns a quote by id.
func (s *QuoteService) GetQuote(ctx context.Context, id string) (*domain.Quote, error) {
	if err := requireID(id, "quote"); err != nil {
		return nil, err
	}
	quote, err := s.quotes.Get(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, "quote", id)
	}
	return quote, nil
}

// ListQuotes returns quotes in creation order.
func (s *QuoteService) ListQuotes(ctx context.Context, filter QuoteListFilter) ([]*domain.Quote, error) {
	if filter.Status != nil && !domain.QuoteStatusMachine.Known(*filter.Status) {
		return nil, apperrors.NewUnknownStatusError(string(*filter.Status))
	}
	var (
		all []*domain.Quote
		err error
	)
	if filter.Branch != nil {
		all, err = s.quotes.FindBy(ctx, "branch", strings.TrimSpace(*filter.Branch))
	} else {
		all, err = s.quotes.List(ctx)
	}
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if filter.Status == nil {
		return all, nil
	}
	out := make([]*domain.Quote, 0, len(all))
	for _, q := range all {
		if q.Status == *filter.Status {
			out = append(out, q)
		}
	}
	return out, nil
}

// ChangeStatus sends, accepts or rejects a quote.
func (s *QuoteService) ChangeStatus(ctx context.Context, actor events.Actor, id string, next domain.QuoteStatus) (*domain.Quote, error) {
	var (
		quote   *domain.Quote
		from    domain.QuoteStatus
		changed bool
	)
	now := s.now()
	err := retryStale(ctx, func() error {
		var err error
		if quote, err = s.GetQuote(ctx, id); err != nil {
			return err
		}
		from = quote.Status
		if changed, err = quote.ChangeStatus(next, now); err != nil {
			return mapTransitionError(err, "quote")
		}
		if !changed {
			return nil
		}
		return mapStoreError(s.quotes.Replace(ctx, quote.ID, quote), "quote", quote.ID)
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		return quote, nil
	}
	s.events.change(ctx, actor, repository.CollectionQuotes, events.EventStatusChanged, quote.ID, now,
		events.StatusDetail(string(from), string(next)))
	return quote, nil
}

// Convert turns an Accepted quote into a Pending sales order. The versioned write of
// the quote lets only one of several concurrent conversions through, and the unique
// quoteId on sales orders backs it up.
func (s *QuoteService) Convert(ctx context.Context, actor events.Actor, id string) (*domain.Quote, *domain.SalesOrder, error) {
	var (
		quote *domain.Quote
		order *domain.SalesOrder
		from  domain.QuoteStatus
	)
	now := s.now()
	orderID, orderNumber := uuid.NewString(), generateNumber("SO")
	err := retryStale(ctx, func() error {
		var err error
		if quote, err = s.GetQuote(ctx, id); err != nil {
			return err
		}
		from = quote.Status
		if order, err = quote.Convert(orderID, orderNumber, now); err != nil {
			return mapTransitionError(err, "quote")
		}
		return mapStoreError(s.quotes.Replace(ctx, quote.ID, quote), "quote", quote.ID)
	})
	if err != nil {
		return nil, nil, err
	}
	if err := s.orders.Insert(ctx, order.ID, order); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, nil, mapTransitionError(domain.ErrAlreadyConverted, "quote")
		}
		return nil, nil, mapStoreError(err, "sales order", order.ID)
	}
	s.events.change(ctx, actor, repository.CollectionQuotes, events.EventStatusChanged, quote.ID, now,
		events.StatusDetail(string(from), string(domain.QuoteStatusConverted)))
	s.events.change(ctx, actor, repository.CollectionSalesOrders, events.EventCreated, order.ID, now,
		map[string]string{"quoteId": quote.ID})
	return quote, order, nil
}

// GetSalesOrder returns a sales order by id.
func (s *QuoteService) GetSalesOrder(ctx context.Context, id string) (*domain.SalesOrder, error) {
	if err := requireID(id, "sales order"); err != nil {
		return nil, err
	}
	order, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, "sales order", id)
	}
	return order, nil
}

// ListSalesOrders returns sales orders in creation order.
func (s *QuoteService) ListSalesOrders(ctx context.Context, status *domain.SalesOrderStatus) ([]*domain.SalesOrder, error) {
	if status != nil && !domain.SalesOrderStatusMachine.Known(*status) {
		return nil, apperrors.NewUnknownStatusError(string(*status))
	}
	var (
		orders []*domain.SalesOrder
		err    error
	)
	if status != nil {
		orders, err = s.orders.FindBy(ctx, "status", string(*status))
	} else {
		orders, err = s.orders.List(ctx)
	}
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return orders, nil
}

// ChangeSalesOrderStatus fulfils or cancels a pending order.
func (s *QuoteService) ChangeSalesOrderStatus(ctx context.Context, actor events.Actor, id string, next domain.SalesOrderStatus) (*domain.SalesOrder, error) {
	var (
		order   *domain.SalesOrder
		from    domain.SalesOrderStatus
		changed bool
	)
	now := s.now()
	err := retryStale(ctx, func() error {
		var err error
		if order, err = s.GetSalesOrder(ctx, id); err != nil {
			return err
		}
		from = order.Status
		if changed, err = order.ChangeStatus(next, now); err != nil {
			return mapTransitionError(err, "sales order")
		}
		if !changed {
			return nil
		}
		return mapStoreError(s.orders.Replace(ctx, order.ID, order), "sales order", order.ID)
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		return order, nil
	}
	s.events.change(ctx, actor, repository.CollectionSalesOrders, events.EventStatusChanged, order.ID, now,
		events.StatusDetail(string(from), string(next)))
	return order, nil
}
