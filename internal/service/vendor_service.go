package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/garage-service/internal/domain"
	"github.com/spec-kit/garage-service/internal/events"
	"github.com/spec-kit/garage-service/internal/repository"
	apperrors "github.com/spec-kit/garage-service/pkg/util/errorutil"
	"github.com/spec-kit/garage-service/pkg/util/validation"
)

// VendorService manages suppliers.
type VendorService struct {
	vendors  repository.Collection[domain.Vendor]
	events   publisher
	validate *validation.Validator
	now      Clock
}

// VendorInput describes a new vendor.
type VendorInput struct {
	Name        string `json:"name" validate:"required,max=200"`
	ContactName string `json:"contactName" validate:"max=200"`
	Phone       string `json:"phone" validate:"max=32"`
	Email       string `json:"email" validate:"omitempty,email"`
	Category    string `json:"category" validate:"max=100"`
}

// NewVendorService constructs the service.
func NewVendorService(vendors repository.Collection[domain.Vendor], feed events.Feed, logger *zap.Logger, clock Clock) *VendorService {
	return &VendorService{
		vendors:  vendors,
		events:   publisher{feed: feed, logger: loggerOrNop(logger)},
		validate: validation.New(),
		now:      clockOrNow(clock),
	}
}

// CreateVendor registers an Active vendor.
func (s *VendorService) CreateVendor(ctx context.Context, actor events.Actor, input VendorInput) (*domain.Vendor, error) {
	if err := s.validate.Struct("invalid vendor", input); err != nil {
		return nil, err
	}
	now := s.now()
	vendor := &domain.Vendor{
		ID:            uuid.NewString(),
		Name:          strings.TrimSpace(input.Name),
		ContactName:   strings.TrimSpace(input.ContactName),
		Phone:         strings.TrimSpace(input.Phone),
		Email:         strings.TrimSpace(input.Email),
		Category:      strings.TrimSpace(input.Category),
		Status:        domain.VendorStatusActive,
		StatusHistory: []domain.StatusEntry[domain.VendorStatus]{{Status: domain.VendorStatusActive, Timestamp: now}},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.vendors.Insert(ctx, vendor.ID, vendor); err != nil {
		return nil, mapStoreError(err, "vendor", vendor.ID)
	}
	s.events.change(ctx, actor, repository.CollectionVendors, events.EventCreated, vendor.ID, now, nil)
	return vendor, nil
}

// GetVendor returns a vendor by id.
func (s *VendorService) GetVendor(ctx context.Context, id string) (*domain.Vendor, error) {
	if err := requireID(id, "vendor"); err != nil {
		return nil, err
	}
	vendor, err := s.vendors.Get(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, "vendor", id)
	}
	return vendor, nil
}

// ListVendors returns vendors in creation order, optionally by status.
func (s *VendorService) ListVendors(ctx context.Context, status *domain.VendorStatus) ([]*domain.Vendor, error) {
	if status == nil {
		vendors, err := s.vendors.List(ctx)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		return vendors, nil
	}
	if !domain.VendorStatusMachine.Known(*status) {
		return nil, apperrors.NewUnknownStatusError(string(*status))
	}
	vendors, err := s.vendors.FindBy(ctx, "status", string(*status))
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return vendors, nil
}

// ChangeStatus moves a vendor between Active, Inactive and Blacklisted.
func (s *VendorService) ChangeStatus(ctx context.Context, actor events.Actor, id string, next domain.VendorStatus) (*domain.Vendor, error) {
	var (
		vendor  *domain.Vendor
		from    domain.VendorStatus
		changed bool
	)
	now := s.now()
	err := retryStale(ctx, func() error {
		var err error
		if vendor, err = s.GetVendor(ctx, id); err != nil {
			return err
		}
		from = vendor.Status
		if changed, err = vendor.ChangeStatus(next, now); err != nil {
			return mapTransitionError(err, "vendor")
		}
		if !changed {
			return nil
		}
		return mapStoreError(s.vendors.Replace(ctx, vendor.ID, vendor), "vendor", vendor.ID)
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		return vendor, nil
	}
	s.events.change(ctx, actor, repository.CollectionVendors, events.EventStatusChanged, vendor.ID, now,
		events.StatusDetail(string(from), string(next)))
	return vendor, nil
}
