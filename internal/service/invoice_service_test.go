package service

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/garage-service/internal/domain"
	"github.com/spec-kit/garage-service/internal/events"
	"github.com/spec-kit/garage-service/internal/repository"
	apperrors "github.com/spec-kit/garage-service/pkg/util/errorutil"
)

func TestCreateFromTicket_Totals(t *testing.T) {
	h := newHarness(t)
	ticket := h.resolveTicket(t)
	h.advance(time.Hour)

	invoice, err := h.invoices.CreateFromTicket(context.Background(), testStaff, ticket.ID)
	require.NoError(t, err)

	assert.Regexp(t, `^INV-[0-9A-F]{8}$`, invoice.InvoiceNumber)
	assert.Equal(t, ticket.ID, invoice.TicketID)
	assert.Equal(t, "cust-1", invoice.CustomerID)
	assert.Equal(t, "850", invoice.Total.String())
	assert.Equal(t, "153", invoice.TaxTotal.String())
	assert.Equal(t, "1003", invoice.AmountDue.String())
	assert.Equal(t, domain.InvoiceStatusUnpaid, invoice.Status)
	assert.Equal(t, testNow.Add(2*time.Hour), invoice.Date)
	require.Len(t, invoice.Parts, 1)
	require.Len(t, invoice.Services, 1)
	assert.Equal(t, []events.EventType{events.EventCreated}, h.eventTypes(repository.CollectionInvoices))
}

func TestCreateFromTicket_DuplicateNamesExistingInvoice(t *testing.T) {
	h := newHarness(t)
	ticket := h.resolveTicket(t)
	ctx := context.Background()

	first, err := h.invoices.CreateFromTicket(ctx, testStaff, ticket.ID)
	require.NoError(t, err)

	_, err = h.invoices.CreateFromTicket(ctx, testStaff, ticket.ID)
	domainErr := requireCode(t, err, apperrors.CodeConflict, http.StatusConflict)
	assert.Equal(t, first.ID, domainErr.Details["invoiceId"])
	assert.Equal(t, first.InvoiceNumber, domainErr.Details["invoiceNumber"])

	all, err := h.invoices.ListInvoices(ctx, InvoiceListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCreateFromTicket_ConcurrentRequestsBillOnce(t *testing.T) {
	h := newHarness(t)
	ticket := h.resolveTicket(t)

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		created   int
		conflicts int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.invoices.CreateFromTicket(context.Background(), testStaff, ticket.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case apperrors.IsCode(err, apperrors.CodeConflict):
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, workers-1, conflicts)
}

func TestCreateFromTicket_RequiresResolvedTicket(t *testing.T) {
	h := newHarness(t)
	ticket := h.createTicket(t)

	_, err := h.invoices.CreateFromTicket(context.Background(), testStaff, ticket.ID)
	domainErr := requireCode(t, err, apperrors.CodeConflict, http.StatusConflict)
	assert.Equal(t, "Open", domainErr.Details["status"])

	_, err = h.invoices.CreateFromTicket(context.Background(), testStaff, "missing")
	requireCode(t, err, apperrors.CodeNotFound, http.StatusNotFound)
}

func TestMarkPaid_IsIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	invoice, err := h.invoices.CreateFromTicket(ctx, testStaff, h.resolveTicket(t).ID)
	require.NoError(t, err)

	paid, err := h.invoices.MarkPaid(ctx, testStaff, invoice.ID, " cash-001 ")
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusPaid, paid.Status)
	assert.Equal(t, "cash-001", paid.PaymentRef)
	require.NotNil(t, paid.PaidAt)

	again, err := h.invoices.MarkPaid(ctx, testStaff, invoice.ID, "cash-002")
	require.NoError(t, err)
	assert.Equal(t, "cash-001", again.PaymentRef)
	assert.Equal(t,
		[]events.EventType{events.EventCreated, events.EventPaid},
		h.eventTypes(repository.CollectionInvoices))
}

func TestRecordPayment_VerifiesSignature(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	invoice, err := h.invoices.CreateFromTicket(ctx, testStaff, h.resolveTicket(t).ID)
	require.NoError(t, err)
	_, err = h.invoices.StartCheckout(ctx, testStaff, invoice.ID, "order_1")
	require.NoError(t, err)

	_, err = h.invoices.RecordPayment(ctx, testStaff, invoice.ID, PaymentInput{
		OrderID:   "order_1",
		PaymentID: "pay_1",
		Signature: h.verifier.Sign("order_1", "pay_2"),
	})
	domainErr := requireCode(t, err, apperrors.CodeValidation, http.StatusBadRequest)
	assert.Equal(t, map[string]string{"signature": "mismatch"}, domainErr.Details["fields"])

	unpaid, err := h.invoices.GetInvoice(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusUnpaid, unpaid.Status)

	paid, err := h.invoices.RecordPayment(ctx, testStaff, invoice.ID, PaymentInput{
		OrderID:   "order_1",
		PaymentID: "pay_1",
		Signature: h.verifier.Sign("order_1", "pay_1"),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusPaid, paid.Status)
	assert.Equal(t, "pay_1", paid.PaymentRef)
	assert.Equal(t, "pay_1", paid.GatewayPaymentID)
}

func TestStartCheckout_BindsOneOrderPerInvoice(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	first, err := h.invoices.CreateFromTicket(ctx, testStaff, h.resolveTicket(t).ID)
	require.NoError(t, err)
	second, err := h.invoices.CreateFromTicket(ctx, testStaff, h.resolveTicket(t).ID)
	require.NoError(t, err)

	_, err = h.invoices.StartCheckout(ctx, testStaff, first.ID, " ")
	domainErr := requireCode(t, err, apperrors.CodeValidation, http.StatusBadRequest)
	assert.Equal(t, map[string]string{"orderId": "required"}, domainErr.Details["fields"])

	bound, err := h.invoices.StartCheckout(ctx, testStaff, first.ID, "order_1")
	require.NoError(t, err)
	assert.Equal(t, "order_1", bound.GatewayOrderID)

	again, err := h.invoices.StartCheckout(ctx, testStaff, first.ID, "order_1")
	require.NoError(t, err)
	assert.Equal(t, bound.Version, again.Version)

	_, err = h.invoices.StartCheckout(ctx, testStaff, first.ID, "order_2")
	domainErr = requireCode(t, err, apperrors.CodeConflict, http.StatusConflict)
	assert.Equal(t, "order_1", domainErr.Details["gatewayOrderId"])

	_, err = h.invoices.StartCheckout(ctx, testStaff, second.ID, "order_1")
	requireCode(t, err, apperrors.CodeConflict, http.StatusConflict)

	untouched, err := h.invoices.GetInvoice(ctx, second.ID)
	require.NoError(t, err)
	assert.Empty(t, untouched.GatewayOrderID)
}

func TestRecordPayment_ReplayCannotSettleAnotherInvoice(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	first, err := h.invoices.CreateFromTicket(ctx, testStaff, h.resolveTicket(t).ID)
	require.NoError(t, err)
	second, err := h.invoices.CreateFromTicket(ctx, testStaff, h.resolveTicket(t).ID)
	require.NoError(t, err)
	_, err = h.invoices.StartCheckout(ctx, testStaff, first.ID, "order_1")
	require.NoError(t, err)

	signed := PaymentInput{
		OrderID:   "order_1",
		PaymentID: "pay_1",
		Signature: h.verifier.Sign("order_1", "pay_1"),
	}
	_, err = h.invoices.RecordPayment(ctx, testStaff, first.ID, signed)
	require.NoError(t, err)

	// Replaying the same payment is a no-op on its own invoice.
	replayed, err := h.invoices.RecordPayment(ctx, testStaff, first.ID, signed)
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusPaid, replayed.Status)

	// An invoice with no checkout rejects the payment.
	_, err = h.invoices.RecordPayment(ctx, testStaff, second.ID, signed)
	requireCode(t, err, apperrors.CodeConflict, http.StatusConflict)

	// So does an invoice bound to a different gateway order.
	_, err = h.invoices.StartCheckout(ctx, testStaff, second.ID, "order_2")
	require.NoError(t, err)
	_, err = h.invoices.RecordPayment(ctx, testStaff, second.ID, signed)
	domainErr := requireCode(t, err, apperrors.CodeConflict, http.StatusConflict)
	assert.Equal(t, "order_1", domainErr.Details["orderId"])

	unpaid, err := h.invoices.GetInvoice(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusUnpaid, unpaid.Status)
	assert.Empty(t, unpaid.GatewayPaymentID)

	assert.Equal(t,
		[]events.EventType{events.EventCreated, events.EventCreated, events.EventUpdated, events.EventPaid, events.EventUpdated},
		h.eventTypes(repository.CollectionInvoices))
}

func TestRecordPayment_PaymentIDSettlesOneInvoice(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	first, err := h.invoices.CreateFromTicket(ctx, testStaff, h.resolveTicket(t).ID)
	require.NoError(t, err)
	second, err := h.invoices.CreateFromTicket(ctx, testStaff, h.resolveTicket(t).ID)
	require.NoError(t, err)
	_, err = h.invoices.StartCheckout(ctx, testStaff, first.ID, "order_1")
	require.NoError(t, err)
	_, err = h.invoices.StartCheckout(ctx, testStaff, second.ID, "order_2")
	require.NoError(t, err)

	_, err = h.invoices.RecordPayment(ctx, testStaff, first.ID, PaymentInput{
		OrderID: "order_1", PaymentID: "pay_1", Signature: h.verifier.Sign("order_1", "pay_1"),
	})
	require.NoError(t, err)

	_, err = h.invoices.RecordPayment(ctx, testStaff, second.ID, PaymentInput{
		OrderID: "order_2", PaymentID: "pay_1", Signature: h.verifier.Sign("order_2", "pay_1"),
	})
	domainErr := requireCode(t, err, apperrors.CodeConflict, http.StatusConflict)
	assert.Equal(t, "pay_1", domainErr.Details["paymentId"])

	unpaid, err := h.invoices.GetInvoice(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusUnpaid, unpaid.Status)
}

func TestRecordPayment_WithoutSecret(t *testing.T) {
	h := newHarness(t)
	invoices := NewInvoiceService(InvoiceDependencies{
		InvoiceRepo: h.store.Invoices,
		TicketRepo:  h.store.Tickets,
		Clock:       h.clock,
	})
	_, err := invoices.RecordPayment(context.Background(), testStaff, "inv-1", PaymentInput{
		OrderID: "o", PaymentID: "p", Signature: "abcd",
	})
	requireCode(t, err, apperrors.CodeExternalService, http.StatusBadGateway)
}

func TestListInvoices_Filters(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	first, err := h.invoices.CreateFromTicket(ctx, testStaff, h.resolveTicket(t).ID)
	require.NoError(t, err)
	h.advance(time.Hour)
	second, err := h.invoices.CreateFromTicket(ctx, testStaff, h.resolveTicket(t).ID)
	require.NoError(t, err)
	_, err = h.invoices.MarkPaid(ctx, testStaff, first.ID, "")
	require.NoError(t, err)

	all, err := h.invoices.ListInvoices(ctx, InvoiceListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID)

	unpaid := domain.InvoiceStatusUnpaid
	open, err := h.invoices.ListInvoices(ctx, InvoiceListFilter{Status: &unpaid})
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, second.ID, open[0].ID)

	bogus := domain.InvoiceStatus("Refunded")
	_, err = h.invoices.ListInvoices(ctx, InvoiceListFilter{Status: &bogus})
	requireCode(t, err, apperrors.CodeInvalidTransition, http.StatusBadRequest)
}
