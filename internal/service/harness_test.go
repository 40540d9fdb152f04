package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/garage-service/internal/domain"
	"github.com/spec-kit/garage-service/internal/events"
	"github.com/spec-kit/garage-service/internal/payment"
	"github.com/spec-kit/garage-service/internal/repository"
	apperrors "github.com/spec-kit/garage-service/pkg/util/errorutil"
)

var (
	testNow   = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	testStaff = events.Actor{ID: "staff-1", Role: "STAFF"}
)

type harness struct {
	store     *repository.Store
	feed      events.Feed
	verifier  *payment.Verifier
	tickets   *TicketService
	invoices  *InvoiceService
	catalog   *CatalogService
	vendors   *VendorService
	amcs      *AMCService
	quotes    *QuoteService
	workforce *WorkforceService

	mu       sync.Mutex
	now      time.Time
	received []events.Event
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		store:    repository.NewMemoryStore(),
		feed:     events.NewMemoryFeed(zap.NewNop()),
		verifier: payment.NewVerifier("checkout-secret"),
		now:      testNow,
	}
	clock := h.clock
	h.tickets = NewTicketService(TicketDependencies{
		TicketRepo:    h.store.Tickets,
		CatalogRepo:   h.store.Catalog,
		WorkforceRepo: h.store.Workforce,
		Feed:          h.feed,
		Clock:         clock,
	})
	h.invoices = NewInvoiceService(InvoiceDependencies{
		InvoiceRepo: h.store.Invoices,
		TicketRepo:  h.store.Tickets,
		Verifier:    h.verifier,
		Feed:        h.feed,
		Clock:       clock,
	})
	h.catalog = NewCatalogService(h.store.Catalog, h.feed, nil, clock)
	h.vendors = NewVendorService(h.store.Vendors, h.feed, nil, clock)
	h.amcs = NewAMCService(h.store.AMCs, h.feed, nil, clock)
	h.quotes = NewQuoteService(QuoteDependencies{
		QuoteRepo:      h.store.Quotes,
		SalesOrderRepo: h.store.SalesOrders,
		CatalogRepo:    h.store.Catalog,
		Feed:           h.feed,
		Clock:          clock,
	})
	h.workforce = NewWorkforceService(h.store.Workforce, h.feed, nil, clock)

	sub, err := h.feed.Subscribe(context.Background(), events.AllCollections, func(_ context.Context, e events.Event) {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.received = append(h.received, e)
	})
	require.NoError(t, err)
	t.Cleanup(sub.Unsubscribe)
	return h
}

func (h *harness) clock() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.now
}

func (h *harness) advance(d time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.now = h.now.Add(d)
}

func (h *harness) eventTypes(collection string) []events.EventType {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []events.EventType
	for _, e := range h.received {
		if e.Collection == collection {
			out = append(out, e.Type)
		}
	}
	return out
}

func (h *harness) createTicket(t *testing.T) *domain.Ticket {
	t.Helper()
	ticket, err := h.tickets.CreateTicket(context.Background(), testStaff, TicketCreateInput{
		CustomerID:    "cust-1",
		CustomerName:  "Asha Rao",
		VehicleNumber: "ka-01 ab 1234",
		Title:         "Brakes squeal",
		Description:   "Noise when braking at low speed",
	})
	require.NoError(t, err)
	return ticket
}

func (h *harness) createTechnician(t *testing.T, name string) *domain.WorkforceMember {
	t.Helper()
	member, err := h.workforce.CreateMember(context.Background(), testStaff, WorkforceInput{
		Name: name,
		Role: domain.WorkforceRoleTechnician,
	})
	require.NoError(t, err)
	return member
}

// brakeJob is 500 + 350 with 18% GST on both lines.
func brakeJob() ItemsInput {
	return ItemsInput{
		Parts:    []LineItemInput{{Name: "Brake pad set", Price: dec("500"), GSTRate: dec("18")}},
		Services: []LineItemInput{{Name: "Brake service labour", Price: dec("350"), GSTRate: dec("18")}},
	}
}

// resolveTicket walks a new ticket through every step up to Resolved with brakeJob as actuals.
func (h *harness) resolveTicket(t *testing.T) *domain.Ticket {
	t.Helper()
	ctx := context.Background()
	ticket := h.createTicket(t)
	tech := h.createTechnician(t, "Ravi")

	_, err := h.tickets.AssignTechnician(ctx, testStaff, ticket.ID, tech.ID)
	require.NoError(t, err)
	_, err = h.tickets.SetEstimatedItems(ctx, testStaff, ticket.ID, brakeJob())
	require.NoError(t, err)
	for _, next := range []domain.TicketStatus{
		domain.TicketStatusEstimateShared,
		domain.TicketStatusEstimateApproved,
		domain.TicketStatusInProgress,
	} {
		_, err = h.tickets.ChangeStatus(ctx, testStaff, ticket.ID, next)
		require.NoError(t, err)
	}
	_, err = h.tickets.SetActualItems(ctx, testStaff, ticket.ID, brakeJob())
	require.NoError(t, err)
	h.advance(time.Hour)
	resolved, err := h.tickets.ChangeStatus(ctx, testStaff, ticket.ID, domain.TicketStatusResolved)
	require.NoError(t, err)
	return resolved
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func requireCode(t *testing.T, err error, code string, status int) *apperrors.DomainError {
	t.Helper()
	require.Error(t, err)
	domainErr := apperrors.ToDomainError(err)
	require.Equal(t, code, domainErr.Code, "message: %s", domainErr.Message)
	require.Equal(t, status, domainErr.HTTPStatus)
	return domainErr
}
