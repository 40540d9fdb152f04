package service

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/garage-service/internal/domain"
	"github.com/spec-kit/garage-service/internal/events"
	"github.com/spec-kit/garage-service/internal/observability"
	"github.com/spec-kit/garage-service/internal/repository"
	apperrors "github.com/spec-kit/garage-service/pkg/util/errorutil"
	"github.com/spec-kit/garage-service/pkg/util/validation"
)

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets   repository.TicketRepository
	workforce repository.WorkforceRepository
	items     itemResolver
	events    publisher
	feed      events.Feed
	metrics   *observability.Metrics
	logger    *zap.Logger
	validate  *validation.Validator
	now       Clock
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo    repository.TicketRepository
	CatalogRepo   repository.Collection[domain.CatalogItem]
	WorkforceRepo repository.WorkforceRepository
	Feed          events.Feed
	Metrics       *observability.Metrics
	Logger        *zap.Logger
	Clock         Clock
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	CustomerID    string   `json:"customerId" validate:"max=128"`
	CustomerName  string   `json:"customerName" validate:"required,max=200"`
	VehicleNumber string   `json:"vehicleNumber" validate:"required,max=32"`
	Title         string   `json:"title" validate:"required,max=200"`
	Description   string   `json:"description" validate:"max=8000"`
	Attachments   []string `json:"attachments" validate:"max=20,dive,url"`
}

// TicketDetailsInput is a partial update; nil fields are left alone.
type TicketDetailsInput struct {
	Title         *string   `json:"title" validate:"omitempty,min=1,max=200"`
	Description   *string   `json:"description" validate:"omitempty,max=8000"`
	VehicleNumber *string   `json:"vehicleNumber" validate:"omitempty,min=1,max=32"`
	Attachments   *[]string `json:"attachments" validate:"omitempty,max=20,dive,url"`
}

// TicketListFilter describes staff listing filters.
type TicketListFilter struct {
	Statuses      []domain.TicketStatus
	Technician    *string
	CustomerID    *string
	VehicleNumber *string
	SearchTerm    *string
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
	Limit         int
	Offset        int
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := loggerOrNop(deps.Logger)
	return &TicketService{
		tickets:   deps.TicketRepo,
		workforce: deps.WorkforceRepo,
		items:     itemResolver{catalog: deps.CatalogRepo},
		events:    publisher{feed: deps.Feed, logger: logger},
		feed:      deps.Feed,
		metrics:   deps.Metrics,
		logger:    logger,
		validate:  validation.New(),
		now:       clockOrNow(deps.Clock),
	}
}

// CreateTicket opens a ticket for a customer.
func (s *TicketService) CreateTicket(ctx context.Context, actor events.Actor, input TicketCreateInput) (*domain.Ticket, error) {
	if err := s.validate.Struct("invalid ticket", input); err != nil {
		return nil, err
	}
	now := s.now()
	ticket := domain.NewTicket(uuid.NewString(), generateNumber("TKT"), now)
	ticket.CustomerID = strings.TrimSpace(input.CustomerID)
	if ticket.CustomerID == "" {
		ticket.CustomerID = actor.ID
	}
	ticket.CustomerName = strings.TrimSpace(input.CustomerName)
	ticket.VehicleNumber = domain.NormalizeVehicleNumber(input.VehicleNumber)
	ticket.Title = strings.TrimSpace(input.Title)
	ticket.Description = strings.TrimSpace(input.Description)
	if input.Attachments != nil {
		ticket.Attachments = slices.Clone(input.Attachments)
	}

	if err := s.tickets.Insert(ctx, ticket.ID, ticket); err != nil {
		return nil, mapStoreError(err, "ticket", ticket.ID)
	}
	s.events.change(ctx, actor, repository.CollectionTickets, events.EventCreated, ticket.ID, now, nil)
	return ticket, nil
}

// GetTicket returns a ticket by id.
func (s *TicketService) GetTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	if err := requireID(ticketID, "ticket"); err != nil {
		return nil, err
	}
	ticket, err := s.tickets.Get(ctx, ticketID)
	if err != nil {
		return nil, mapStoreError(err, "ticket", ticketID)
	}
	ticket.Normalize()
	return ticket, nil
}

// ListTickets returns tickets matching the filter, newest first.
func (s *TicketService) ListTickets(ctx context.Context, filter TicketListFilter) ([]*domain.Ticket, error) {
	for _, status := range filter.Statuses {
		if !domain.TicketStatusMachine.Known(status) {
			return nil, apperrors.NewUnknownStatusError(string(status))
		}
	}
	tickets, err := s.tickets.ListWithFilter(ctx, repository.TicketFilter{
		Statuses:      filter.Statuses,
		Technician:    filter.Technician,
		CustomerID:    filter.CustomerID,
		VehicleNumber: filter.VehicleNumber,
		SearchTerm:    filter.SearchTerm,
		CreatedFrom:   filter.CreatedFrom,
		CreatedTo:     filter.CreatedTo,
		Limit:         filter.Limit,
		Offset:        filter.Offset,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// UpdateDetails applies a partial update of descriptive fields.
func (s *TicketService) UpdateDetails(ctx context.Context, actor events.Actor, ticketID string, input TicketDetailsInput) (*domain.Ticket, error) {
	if err := s.validate.Struct("invalid ticket update", input); err != nil {
		return nil, err
	}
	var ticket *domain.Ticket
	now := s.now()
	err := retryStale(ctx, func() error {
		var err error
		if ticket, err = s.GetTicket(ctx, ticketID); err != nil {
			return err
		}
		if input.Title != nil {
			ticket.Title = strings.TrimSpace(*input.Title)
		}
		if input.Description != nil {
			ticket.Description = strings.TrimSpace(*input.Description)
		}
		if input.VehicleNumber != nil {
			ticket.VehicleNumber = domain.NormalizeVehicleNumber(*input.VehicleNumber)
		}
		if input.Attachments != nil {
			ticket.Attachments = slices.Clone(*input.Attachments)
			if ticket.Attachments == nil {
				ticket.Attachments = []string{}
			}
		}
		ticket.UpdatedAt = now
		return s.save(ctx, ticket)
	})
	if err != nil {
		return nil, err
	}
	s.events.change(ctx, actor, repository.CollectionTickets, events.EventUpdated, ticket.ID, now, nil)
	return ticket, nil
}

// ChangeStatus moves the ticket through its status machine. Re-posting the current
// status returns the ticket unchanged. A write that loses to a concurrent update is
// re-applied to the fresh ticket, so the move is judged against the latest status.
func (s *TicketService) ChangeStatus(ctx context.Context, actor events.Actor, ticketID string, next domain.TicketStatus) (*domain.Ticket, error) {
	if !domain.TicketStatusMachine.Known(next) {
		return nil, apperrors.NewUnknownStatusError(string(next))
	}
	var (
		ticket  *domain.Ticket
		from    domain.TicketStatus
		changed bool
	)
	now := s.now()
	err := retryStale(ctx, func() error {
		var err error
		if ticket, err = s.GetTicket(ctx, ticketID); err != nil {
			return err
		}
		from = ticket.Status
		if changed, err = ticket.ApplyTransition(next, now); err != nil {
			return mapTransitionError(err, "ticket")
		}
		if !changed {
			return nil
		}
		return s.save(ctx, ticket)
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		return ticket, nil
	}
	s.metrics.RecordTransition(string(next))
	s.events.change(ctx, actor, repository.CollectionTickets, events.EventStatusChanged, ticket.ID, now,
		events.StatusDetail(string(from), string(next)))
	return ticket, nil
}

// SetEstimatedItems replaces the estimate while the ticket is still being quoted.
func (s *TicketService) SetEstimatedItems(ctx context.Context, actor events.Actor, ticketID string, input ItemsInput) (*domain.Ticket, error) {
	return s.setItems(ctx, actor, ticketID, input, "estimated")
}

// SetActualItems replaces the items actually used, from approval until resolution.
func (s *TicketService) SetActualItems(ctx context.Context, actor events.Actor, ticketID string, input ItemsInput) (*domain.Ticket, error) {
	return s.setItems(ctx, actor, ticketID, input, "actual")
}

func (s *TicketService) setItems(ctx context.Context, actor events.Actor, ticketID string, input ItemsInput, which string) (*domain.Ticket, error) {
	if err := s.validate.Struct("invalid items", input); err != nil {
		return nil, err
	}
	var (
		ticket   *domain.Ticket
		set      domain.ItemSet
		resolved bool
	)
	now := s.now()
	err := retryStale(ctx, func() error {
		var err error
		if ticket, err = s.GetTicket(ctx, ticketID); err != nil {
			return err
		}
		allowed := ticket.AcceptsActuals()
		if which == "estimated" {
			allowed = ticket.AcceptsEstimate()
		}
		if !allowed {
			return apperrors.NewConflict(which+" items cannot be changed in this status", map[string]any{
				"status": string(ticket.Status),
			})
		}
		if !resolved {
			if set, err = s.items.resolve(ctx, input); err != nil {
				return err
			}
			resolved = true
		}
		if which == "estimated" {
			ticket.EstimatedItems = set
		} else {
			ticket.ActualItems = set
		}
		ticket.UpdatedAt = now
		return s.save(ctx, ticket)
	})
	if err != nil {
		return nil, err
	}
	s.events.change(ctx, actor, repository.CollectionTickets, events.EventItemsChanged, ticket.ID, now,
		map[string]string{"items": which})
	return ticket, nil
}

// Watch calls fn with a fresh snapshot every time the ticket changes. An empty ticketID
// watches every ticket. The returned subscription must be released with Unsubscribe.
func (s *TicketService) Watch(ctx context.Context, ticketID string, fn func(*domain.Ticket)) (events.Subscription, error) {
	if s.feed == nil {
		return nil, apperrors.NewInternalError(errNoFeed)
	}
	return s.feed.Subscribe(ctx, repository.CollectionTickets, func(ctx context.Context, event events.Event) {
		if ticketID != "" && event.DocumentID != ticketID {
			return
		}
		ticket, err := s.tickets.Get(ctx, event.DocumentID)
		if err != nil {
			s.logger.Warn("watch: reload ticket", zap.String("ticket_id", event.DocumentID), zap.Error(err))
			return
		}
		ticket.Normalize()
		fn(ticket)
	})
}

func (s *TicketService) save(ctx context.Context, ticket *domain.Ticket) error {
	if err := s.tickets.Replace(ctx, ticket.ID, ticket); err != nil {
		return mapStoreError(err, "ticket", ticket.ID)
	}
	return nil
}
