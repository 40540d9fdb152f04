package domain

import (
	"errors"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus tracks payment state.
type InvoiceStatus string

const (
	InvoiceStatusUnpaid InvoiceStatus = "Unpaid"
	InvoiceStatusPaid   InvoiceStatus = "Paid"
)

// InvoiceStatusMachine only allows flipping an unpaid invoice to paid.
var InvoiceStatusMachine = NewStatusMachine(map[InvoiceStatus][]InvoiceStatus{
	InvoiceStatusUnpaid: {InvoiceStatusPaid},
	InvoiceStatusPaid:   {},
})

// ErrTicketNotBillable is returned when invoicing a ticket that has not been resolved.
var ErrTicketNotBillable = errors.New("ticket must be Resolved or Closed before invoicing")

// Invoice is derived from a resolved ticket's actual items.
//
// Total is the plain sum of part and service prices. TaxTotal applies each line's gstRate
// and AmountDue is what the customer pays; both are rounded to 2 decimal places.
type Invoice struct {
	ID            string                       `json:"id"`
	InvoiceNumber string                       `json:"invoiceNumber"`
	TicketID      string                       `json:"ticketId"`
	CustomerID    string                       `json:"customerId"`
	CustomerName  string                       `json:"customerName"`
	VehicleNumber string                       `json:"vehicleNumber"`
	Parts         []LineItem                   `json:"parts"`
	Services      []LineItem                   `json:"services"`
	Total         decimal.Decimal              `json:"total"`
	TaxTotal      decimal.Decimal              `json:"taxTotal"`
	AmountDue     decimal.Decimal              `json:"amountDue"`
	Status        InvoiceStatus                `json:"status"`
	StatusHistory []StatusEntry[InvoiceStatus] `json:"statusHistory"`
	Date          time.Time                    `json:"date"`
	PaidAt        *time.Time                   `json:"paidAt,omitempty"`
	PaymentRef    string                       `json:"paymentRef,omitempty"`

	// GatewayOrderID is the checkout order opened for this invoice; only a payment
	// signed for that order can settle it.
	GatewayOrderID   string `json:"gatewayOrderId,omitempty"`
	GatewayPaymentID string `json:"gatewayPaymentId,omitempty"`

	Revision
}

// DeriveInvoice computes an unpaid invoice snapshot from the ticket's actual items.
func DeriveInvoice(t *Ticket, now time.Time) (*Invoice, error) {
	if !t.Status.IsTerminal() {
		return nil, ErrTicketNotBillable
	}
	items := t.ActualItems.normalized()
	total := SumPrices(items.Parts, items.Services)
	tax := SumTax(items.Parts, items.Services)
	return &Invoice{
		TicketID:      t.ID,
		CustomerID:    t.CustomerID,
		CustomerName:  t.CustomerName,
		VehicleNumber: t.VehicleNumber,
		Parts:         slices.Clone(items.Parts),
		Services:      slices.Clone(items.Services),
		Total:         total,
		TaxTotal:      tax,
		AmountDue:     total.Add(tax).Round(2),
		Status:        InvoiceStatusUnpaid,
		StatusHistory: []StatusEntry[InvoiceStatus]{{Status: InvoiceStatusUnpaid, Timestamp: now}},
		Date:          now,
	}, nil
}

// ErrCheckoutLocked is returned when a different gateway order is opened for an
// invoice that already has one, or for a paid invoice.
var ErrCheckoutLocked = errors.New("invoice checkout already started")

// StartCheckout binds a gateway order to the invoice. Re-binding the same order is a no-op.
func (inv *Invoice) StartCheckout(orderID string) (bool, error) {
	if inv.GatewayOrderID == orderID {
		return false, nil
	}
	if inv.Status == InvoiceStatusPaid || inv.GatewayOrderID != "" {
		return false, ErrCheckoutLocked
	}
	inv.GatewayOrderID = orderID
	return true, nil
}

// MarkPaid flips the invoice to Paid, recording the payment reference.
func (inv *Invoice) MarkPaid(ref string, at time.Time) (bool, error) {
	changed, err := transition(InvoiceStatusMachine, &inv.Status, &inv.StatusHistory, InvoiceStatusPaid, at)
	if err != nil || !changed {
		return changed, err
	}
	paid := at
	inv.PaidAt = &paid
	inv.PaymentRef = ref
	return true, nil
}
