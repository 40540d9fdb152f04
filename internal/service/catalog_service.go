package service

import (
	"context"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/spec-kit/garage-service/internal/domain"
	"github.com/spec-kit/garage-service/internal/events"
	"github.com/spec-kit/garage-service/internal/repository"
	apperrors "github.com/spec-kit/garage-service/pkg/util/errorutil"
	"github.com/spec-kit/garage-service/pkg/util/validation"
)

// CatalogService manages the shared parts and services inventory.
type CatalogService struct {
	catalog  repository.Collection[domain.CatalogItem]
	events   publisher
	validate *validation.Validator
	now      Clock
}

// CatalogItemInput describes a new catalog entry.
type CatalogItemInput struct {
	Name    string          `json:"name" validate:"required,max=200"`
	Kind    domain.ItemKind `json:"kind" validate:"required,oneof=part service"`
	Price   decimal.Decimal `json:"price"`
	GSTRate decimal.Decimal `json:"gstRate"`
	Stock   int             `json:"stock" validate:"gte=0"`
}

// NewCatalogService constructs the service.
func NewCatalogService(catalog repository.Collection[domain.CatalogItem], feed events.Feed, logger *zap.Logger, clock Clock) *CatalogService {
	return &CatalogService{
		catalog:  catalog,
		events:   publisher{feed: feed, logger: loggerOrNop(logger)},
		validate: validation.New(),
		now:      clockOrNow(clock),
	}
}

// CreateItem adds an entry to the catalog.
func (s *CatalogService) CreateItem(ctx context.Context, actor events.Actor, input CatalogItemInput) (*domain.CatalogItem, error) {
	fields, err := s.validate.Fields(input)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if fields == nil {
		fields = map[string]string{}
	}
	if input.Price.IsNegative() {
		fields["price"] = "gte"
	}
	if input.GSTRate.IsNegative() || input.GSTRate.GreaterThan(decimal.NewFromInt(100)) {
		fields["gstRate"] = "range"
	}
	if len(fields) > 0 {
		return nil, apperrors.NewFieldValidationError("invalid catalog item", fields)
	}

	now := s.now()
	item := &domain.CatalogItem{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(input.Name),
		Kind:      input.Kind,
		Price:     input.Price,
		GSTRate:   input.GSTRate,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if item.Kind == domain.ItemKindPart {
		item.Stock = input.Stock
	}
	if err := s.catalog.Insert(ctx, item.ID, item); err != nil {
		return nil, mapStoreError(err, "catalog item", item.ID)
	}
	s.events.change(ctx, actor, repository.CollectionCatalog, events.EventCreated, item.ID, now, nil)
	return item, nil
}

// GetItem returns a catalog entry by id.
func (s *CatalogService) GetItem(ctx context.Context, id string) (*domain.CatalogItem, error) {
	if err := requireID(id, "catalog item"); err != nil {
		return nil, err
	}
	item, err := s.catalog.Get(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, "catalog item", id)
	}
	return item, nil
}

// ListItems returns the catalog sorted by name, optionally restricted to one kind.
func (s *CatalogService) ListItems(ctx context.Context, kind *domain.ItemKind) ([]*domain.CatalogItem, error) {
	var (
		items []*domain.CatalogItem
		err   error
	)
	if kind != nil {
		if *kind != domain.ItemKindPart && *kind != domain.ItemKindService {
			return nil, apperrors.NewFieldValidationError("invalid filter", map[string]string{"kind": "oneof"})
		}
		items, err = s.catalog.FindBy(ctx, "kind", string(*kind))
	} else {
		items, err = s.catalog.List(ctx)
	}
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	slices.SortStableFunc(items, func(a, b *domain.CatalogItem) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	return items, nil
}
