package service

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/garage-service/internal/domain"
	"github.com/spec-kit/garage-service/internal/events"
	"github.com/spec-kit/garage-service/internal/payment"
	"github.com/spec-kit/garage-service/internal/repository"
	apperrors "github.com/spec-kit/garage-service/pkg/util/errorutil"
	"github.com/spec-kit/garage-service/pkg/util/validation"
)

// InvoiceService derives invoices from resolved tickets and records payment.
type InvoiceService struct {
	invoices repository.Collection[domain.Invoice]
	tickets  repository.TicketRepository
	verifier *payment.Verifier
	events   publisher
	logger   *zap.Logger
	validate *validation.Validator
	now      Clock
}

// InvoiceDependencies bundles collaborators for the invoice service.
type InvoiceDependencies struct {
	InvoiceRepo repository.Collection[domain.Invoice]
	TicketRepo  repository.TicketRepository
	Verifier    *payment.Verifier
	Feed        events.Feed
	Logger      *zap.Logger
	Clock       Clock
}

// PaymentInput carries the checkout result returned by the payment gateway.
type PaymentInput struct {
	OrderID   string `json:"orderId" validate:"required"`
	PaymentID string `json:"paymentId" validate:"required"`
	Signature string `json:"signature" validate:"required,hexadecimal"`
}

// InvoiceListFilter narrows invoice listings.
type InvoiceListFilter struct {
	Status     *domain.InvoiceStatus
	CustomerID *string
}

// NewInvoiceService constructs the service.
func NewInvoiceService(deps InvoiceDependencies) *InvoiceService {
	logger := loggerOrNop(deps.Logger)
	return &InvoiceService{
		invoices: deps.InvoiceRepo,
		tickets:  deps.TicketRepo,
		verifier: deps.Verifier,
		events:   publisher{feed: deps.Feed, logger: logger},
		logger:   logger,
		validate: validation.New(),
		now:      clockOrNow(deps.Clock),
	}
}

// CreateFromTicket bills a Resolved or Closed ticket. A ticket is billed at most once;
// a second attempt fails with a conflict naming the existing invoice.
func (s *InvoiceService) CreateFromTicket(ctx context.Context, actor events.Actor, ticketID string) (*domain.Invoice, error) {
	if err := requireID(ticketID, "ticket"); err != nil {
		return nil, err
	}
	ticket, err := s.tickets.Get(ctx, ticketID)
	if err != nil {
		return nil, mapStoreError(err, "ticket", ticketID)
	}
	ticket.Normalize()

	if existing, err := s.existingFor(ctx, ticketID); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, duplicateInvoice(existing)
	}

	now := s.now()
	invoice, err := domain.DeriveInvoice(ticket, now)
	if errors.Is(err, domain.ErrTicketNotBillable) {
		return nil, apperrors.NewConflict(err.Error(), map[string]any{"status": string(ticket.Status)})
	}
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	invoice.ID = uuid.NewString()
	invoice.InvoiceNumber = generateNumber("INV")

	if err := s.invoices.Insert(ctx, invoice.ID, invoice); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// lost a race with a concurrent request for the same ticket
			if existing, findErr := s.existingFor(ctx, ticketID); findErr == nil && existing != nil {
				return nil, duplicateInvoice(existing)
			}
		}
		return nil, mapStoreError(err, "invoice", invoice.ID)
	}
	s.events.change(ctx, actor, repository.CollectionInvoices, events.EventCreated, invoice.ID, now,
		map[string]string{"ticketId": ticketID})
	return invoice, nil
}

// GetInvoice returns an invoice by id.
func (s *InvoiceService) GetInvoice(ctx context.Context, invoiceID string) (*domain.Invoice, error) {
	if err := requireID(invoiceID, "invoice"); err != nil {
		return nil, err
	}
	invoice, err := s.invoices.Get(ctx, invoiceID)
	if err != nil {
		return nil, mapStoreError(err, "invoice", invoiceID)
	}
	return invoice, nil
}

// ListInvoices returns invoices newest first.
func (s *InvoiceService) ListInvoices(ctx context.Context, filter InvoiceListFilter) ([]*domain.Invoice, error) {
	if filter.Status != nil && !domain.InvoiceStatusMachine.Known(*filter.Status) {
		return nil, apperrors.NewUnknownStatusError(string(*filter.Status))
	}
	var (
		all []*domain.Invoice
		err error
	)
	if filter.CustomerID != nil {
		all, err = s.invoices.FindBy(ctx, "customerId", *filter.CustomerID)
	} else {
		all, err = s.invoices.List(ctx)
	}
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	out := make([]*domain.Invoice, 0, len(all))
	for _, inv := range all {
		if filter.Status != nil && inv.Status != *filter.Status {
			continue
		}
		out = append(out, inv)
	}
	slices.SortStableFunc(out, func(a, b *domain.Invoice) int {
		return b.Date.Compare(a.Date)
	})
	return out, nil
}

// MarkPaid records an offline payment. Paying a paid invoice is a no-op.
func (s *InvoiceService) MarkPaid(ctx context.Context, actor events.Actor, invoiceID, reference string) (*domain.Invoice, error) {
	reference = strings.TrimSpace(reference)
	var (
		invoice *domain.Invoice
		changed bool
	)
	now := s.now()
	err := retryStale(ctx, func() error {
		var err error
		if invoice, err = s.GetInvoice(ctx, invoiceID); err != nil {
			return err
		}
		if changed, err = invoice.MarkPaid(reference, now); err != nil || !changed {
			return mapTransitionError(err, "invoice")
		}
		return mapStoreError(s.invoices.Replace(ctx, invoice.ID, invoice), "invoice", invoice.ID)
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.publishPaid(ctx, actor, invoice, now)
	}
	return invoice, nil
}

// StartCheckout binds the gateway order opened for this invoice. Only a payment signed
// for that order can later settle it, and an order can be bound to one invoice only.
func (s *InvoiceService) StartCheckout(ctx context.Context, actor events.Actor, invoiceID, orderID string) (*domain.Invoice, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, apperrors.NewFieldValidationError("invalid checkout", map[string]string{"orderId": "required"})
	}
	var (
		invoice *domain.Invoice
		changed bool
	)
	err := retryStale(ctx, func() error {
		var err error
		if invoice, err = s.GetInvoice(ctx, invoiceID); err != nil {
			return err
		}
		if changed, err = invoice.StartCheckout(orderID); err != nil {
			return apperrors.NewConflict(err.Error(), map[string]any{
				"status":         string(invoice.Status),
				"gatewayOrderId": invoice.GatewayOrderID,
			})
		}
		if !changed {
			return nil
		}
		err = s.invoices.Replace(ctx, invoice.ID, invoice)
		if errors.Is(err, repository.ErrDuplicate) {
			return apperrors.NewConflict("gateway order already bound to another invoice", map[string]any{"orderId": orderID})
		}
		return mapStoreError(err, "invoice", invoice.ID)
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.events.change(ctx, actor, repository.CollectionInvoices, events.EventUpdated, invoice.ID, s.now(),
			map[string]string{"gatewayOrderId": orderID})
	}
	return invoice, nil
}

// RecordPayment verifies the gateway signature for orderId|paymentId and settles the
// invoice the order was opened for. A gateway payment settles at most one invoice;
// replaying the same payment is a no-op on its own invoice and a conflict elsewhere.
func (s *InvoiceService) RecordPayment(ctx context.Context, actor events.Actor, invoiceID string, input PaymentInput) (*domain.Invoice, error) {
	if err := s.validate.Struct("invalid payment", input); err != nil {
		return nil, err
	}
	if s.verifier == nil {
		return nil, apperrors.NewExternalServiceError("payment verification unavailable", payment.ErrNotConfigured)
	}
	if err := s.verifier.Verify(input.OrderID, input.PaymentID, input.Signature); err != nil {
		if errors.Is(err, payment.ErrNotConfigured) {
			return nil, apperrors.NewExternalServiceError("payment verification unavailable", err)
		}
		s.logger.Warn("payment signature rejected",
			zap.String("invoice_id", invoiceID), zap.String("order_id", input.OrderID), zap.Error(err))
		return nil, apperrors.NewFieldValidationError("payment signature mismatch", map[string]string{"signature": "mismatch"})
	}

	var (
		invoice *domain.Invoice
		changed bool
	)
	now := s.now()
	err := retryStale(ctx, func() error {
		var err error
		if invoice, err = s.GetInvoice(ctx, invoiceID); err != nil {
			return err
		}
		if invoice.GatewayOrderID == "" || invoice.GatewayOrderID != input.OrderID {
			return apperrors.NewConflict("payment order does not belong to this invoice", map[string]any{
				"invoiceId": invoice.ID,
				"orderId":   input.OrderID,
			})
		}
		if invoice.Status == domain.InvoiceStatusPaid {
			changed = false
			if invoice.GatewayPaymentID == input.PaymentID {
				return nil
			}
			return apperrors.NewConflict("invoice already paid", map[string]any{"invoiceId": invoice.ID})
		}
		if changed, err = invoice.MarkPaid(input.PaymentID, now); err != nil {
			return mapTransitionError(err, "invoice")
		}
		invoice.GatewayPaymentID = input.PaymentID
		err = s.invoices.Replace(ctx, invoice.ID, invoice)
		if errors.Is(err, repository.ErrDuplicate) {
			return apperrors.NewConflict("payment already applied to another invoice", map[string]any{"paymentId": input.PaymentID})
		}
		return mapStoreError(err, "invoice", invoice.ID)
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.publishPaid(ctx, actor, invoice, now)
	}
	return invoice, nil
}

func (s *InvoiceService) publishPaid(ctx context.Context, actor events.Actor, invoice *domain.Invoice, now time.Time) {
	s.events.change(ctx, actor, repository.CollectionInvoices, events.EventPaid, invoice.ID, now,
		events.StatusDetail(string(domain.InvoiceStatusUnpaid), string(domain.InvoiceStatusPaid)))
}

func (s *InvoiceService) existingFor(ctx context.Context, ticketID string) (*domain.Invoice, error) {
	found, err := s.invoices.FindBy(ctx, "ticketId", ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if len(found) == 0 {
		return nil, nil
	}
	return found[0], nil
}

func duplicateInvoice(existing *domain.Invoice) error {
	return apperrors.NewConflict("ticket already invoiced", map[string]any{
		"invoiceId":     existing.ID,
		"invoiceNumber": existing.InvoiceNumber,
	})
}
