package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/spec-kit/garage-service/internal/domain"
	"github.com/spec-kit/garage-service/internal/events"
	"github.com/spec-kit/garage-service/internal/repository"
	apperrors "github.com/spec-kit/garage-service/pkg/util/errorutil"
	"github.com/spec-kit/garage-service/pkg/util/validation"
)

// AMCService manages annual maintenance contracts.
type AMCService struct {
	amcs     repository.Collection[domain.AMC]
	events   publisher
	validate *validation.Validator
	now      Clock
}

// AMCInput describes a new contract.
type AMCInput struct {
	CustomerID    string          `json:"customerId" validate:"max=128"`
	CustomerName  string          `json:"customerName" validate:"required,max=200"`
	VehicleNumber string          `json:"vehicleNumber" validate:"required,max=32"`
	PlanName      string          `json:"planName" validate:"required,max=200"`
	StartDate     time.Time       `json:"startDate" validate:"required"`
	EndDate       time.Time       `json:"endDate" validate:"required,gtfield=StartDate"`
	Price         decimal.Decimal `json:"price"`
}

// AMCListFilter narrows contract listings.
type AMCListFilter struct {
	Status *domain.AMCStatus
	// ExpiringWithin keeps only active contracts ending inside the window from now.
	ExpiringWithin time.Duration
}

// NewAMCService constructs the service.
func NewAMCService(amcs repository.Collection[domain.AMC], feed events.Feed, logger *zap.Logger, clock Clock) *AMCService {
	return &AMCService{
		amcs:     amcs,
		events:   publisher{feed: feed, logger: loggerOrNop(logger)},
		validate: validation.New(),
		now:      clockOrNow(clock),
	}
}

// CreateAMC registers an Active contract.
func (s *AMCService) CreateAMC(ctx context.Context, actor events.Actor, input AMCInput) (*domain.AMC, error) {
	if err := s.validate.Struct("invalid contract", input); err != nil {
		return nil, err
	}
	if input.Price.IsNegative() {
		return nil, apperrors.NewFieldValidationError("invalid contract", map[string]string{"price": "gte"})
	}
	now := s.now()
	amc := &domain.AMC{
		ID:            uuid.NewString(),
		CustomerID:    strings.TrimSpace(input.CustomerID),
		CustomerName:  strings.TrimSpace(input.CustomerName),
		VehicleNumber: domain.NormalizeVehicleNumber(input.VehicleNumber),
		PlanName:      strings.TrimSpace(input.PlanName),
		StartDate:     input.StartDate,
		EndDate:       input.EndDate,
		Price:         input.Price,
		Status:        domain.AMCStatusActive,
		StatusHistory: []domain.StatusEntry[domain.AMCStatus]{{Status: domain.AMCStatusActive, Timestamp: now}},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.amcs.Insert(ctx, amc.ID, amc); err != nil {
		return nil, mapStoreError(err, "contract", amc.ID)
	}
	s.events.change(ctx, actor, repository.CollectionAMCs, events.EventCreated, amc.ID, now, nil)
	return amc, nil
}

// GetAMC returns a contract by id.
func (s *AMCService) GetAMC(ctx context.Context, id string) (*domain.AMC, error) {
	if err := requireID(id, "contract"); err != nil {
		return nil, err
	}
	amc, err := s.amcs.Get(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, "contract", id)
	}
	return amc, nil
}

// ListAMCs returns contracts in creation order.
func (s *AMCService) ListAMCs(ctx context.Context, filter AMCListFilter) ([]*domain.AMC, error) {
	if filter.Status != nil && !domain.AMCStatusMachine.Known(*filter.Status) {
		return nil, apperrors.NewUnknownStatusError(string(*filter.Status))
	}
	all, err := s.amcs.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	now := s.now()
	out := make([]*domain.AMC, 0, len(all))
	for _, amc := range all {
		if filter.Status != nil && amc.Status != *filter.Status {
			continue
		}
		if filter.ExpiringWithin > 0 && !amc.ExpiringWithin(now, filter.ExpiringWithin) {
			continue
		}
		out = append(out, amc)
	}
	return out, nil
}

// ChangeStatus expires or cancels a contract. Renewal goes through Renew.
func (s *AMCService) ChangeStatus(ctx context.Context, actor events.Actor, id string, next domain.AMCStatus) (*domain.AMC, error) {
	if next == domain.AMCStatusRenewed {
		return nil, apperrors.NewTransitionError("contracts become Renewed only through renewal", map[string]any{"to": string(next)})
	}
	var (
		amc     *domain.AMC
		from    domain.AMCStatus
		changed bool
	)
	now := s.now()
	err := retryStale(ctx, func() error {
		var err error
		if amc, err = s.GetAMC(ctx, id); err != nil {
			return err
		}
		from = amc.Status
		if changed, err = amc.ChangeStatus(next, now); err != nil {
			return mapTransitionError(err, "contract")
		}
		if !changed {
			return nil
		}
		return mapStoreError(s.amcs.Replace(ctx, amc.ID, amc), "contract", amc.ID)
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		return amc, nil
	}
	s.events.change(ctx, actor, repository.CollectionAMCs, events.EventStatusChanged, amc.ID, now,
		events.StatusDetail(string(from), string(next)))
	return amc, nil
}

// Renew closes out a contract and starts its successor at the old end date. A nil
// price carries the old price over. The versioned write of the old contract decides
// between racing renewals and cancellations; only its winner stores a successor.
func (s *AMCService) Renew(ctx context.Context, actor events.Actor, id string, price *decimal.Decimal) (*domain.AMC, *domain.AMC, error) {
	if price != nil && price.IsNegative() {
		return nil, nil, apperrors.NewFieldValidationError("invalid renewal", map[string]string{"price": "gte"})
	}
	var (
		old     *domain.AMC
		renewed *domain.AMC
		from    domain.AMCStatus
	)
	now := s.now()
	successorID := uuid.NewString()
	err := retryStale(ctx, func() error {
		var err error
		if old, err = s.GetAMC(ctx, id); err != nil {
			return err
		}
		newPrice := old.Price
		if price != nil {
			newPrice = *price
		}
		from = old.Status
		if renewed, err = old.Renew(successorID, newPrice, now); err != nil {
			return mapTransitionError(err, "contract")
		}
		return mapStoreError(s.amcs.Replace(ctx, old.ID, old), "contract", old.ID)
	})
	if err != nil {
		return nil, nil, err
	}
	if err := s.amcs.Insert(ctx, renewed.ID, renewed); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, nil, mapTransitionError(domain.ErrAlreadyRenewed, "contract")
		}
		return nil, nil, mapStoreError(err, "contract", renewed.ID)
	}
	s.events.change(ctx, actor, repository.CollectionAMCs, events.EventStatusChanged, old.ID, now,
		events.StatusDetail(string(from), string(domain.AMCStatusRenewed)))
	s.events.change(ctx, actor, repository.CollectionAMCs, events.EventCreated, renewed.ID, now,
		map[string]string{"renewalOf": old.ID})
	return old, renewed, nil
}
