package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/spec-kit/garage-service/internal/domain"
	"github.com/spec-kit/garage-service/internal/repository"
	apperrors "github.com/spec-kit/garage-service/pkg/util/errorutil"
)

// LineItemInput references a catalog entry, or describes an ad hoc line when CatalogID is empty.
type LineItemInput struct {
	CatalogID string           `json:"catalogId"`
	Name      string           `json:"name" validate:"required_without=CatalogID,max=200"`
	Price     *decimal.Decimal `json:"price"`
	GSTRate   *decimal.Decimal `json:"gstRate"`
}

// ItemsInput replaces a ticket's estimated or actual item set.
type ItemsInput struct {
	Parts    []LineItemInput `json:"parts" validate:"dive"`
	Services []LineItemInput `json:"services" validate:"dive"`
}

// itemResolver snapshots catalog entries onto line items.
type itemResolver struct {
	catalog repository.Collection[domain.CatalogItem]
}

func (r itemResolver) resolve(ctx context.Context, in ItemsInput) (domain.ItemSet, error) {
	fields := map[string]string{}
	parts, err := r.resolveGroup(ctx, "parts", domain.ItemKindPart, in.Parts, fields)
	if err != nil {
		return domain.ItemSet{}, err
	}
	services, err := r.resolveGroup(ctx, "services", domain.ItemKindService, in.Services, fields)
	if err != nil {
		return domain.ItemSet{}, err
	}
	if len(fields) > 0 {
		return domain.ItemSet{}, apperrors.NewFieldValidationError("invalid items", fields)
	}
	return domain.ItemSet{Parts: parts, Services: services}, nil
}

func (r itemResolver) resolveGroup(ctx context.Context, group string, kind domain.ItemKind, in []LineItemInput, fields map[string]string) ([]domain.LineItem, error) {
	out := make([]domain.LineItem, 0, len(in))
	for i, item := range in {
		path := fmt.Sprintf("%s[%d]", group, i)
		if item.CatalogID == "" {
			line, ok := adHocItem(path, kind, item, fields)
			if ok {
				out = append(out, line)
			}
			continue
		}
		if r.catalog == nil {
			fields[path+".catalogId"] = "unknown"
			continue
		}
		entry, err := r.catalog.Get(ctx, item.CatalogID)
		if errors.Is(err, repository.ErrNotFound) {
			fields[path+".catalogId"] = "unknown"
			continue
		}
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		if entry.Kind != kind {
			fields[path+".catalogId"] = "kind"
			continue
		}
		out = append(out, entry.LineItem())
	}
	return out, nil
}

func adHocItem(path string, kind domain.ItemKind, in LineItemInput, fields map[string]string) (domain.LineItem, bool) {
	ok := true
	if in.Name == "" {
		fields[path+".name"] = "required"
		ok = false
	}
	switch {
	case in.Price == nil:
		fields[path+".price"] = "required"
		ok = false
	case in.Price.IsNegative():
		fields[path+".price"] = "gte"
		ok = false
	}
	gst := decimal.Zero
	if in.GSTRate != nil {
		if in.GSTRate.IsNegative() {
			fields[path+".gstRate"] = "gte"
			ok = false
		}
		gst = *in.GSTRate
	}
	if !ok {
		return domain.LineItem{}, false
	}
	return domain.LineItem{Name: in.Name, Kind: kind, Price: *in.Price, GSTRate: gst}, true
}
