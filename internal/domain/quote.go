package domain

import (
	"errors"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// QuoteStatus enumerates the sales quote lifecycle.
type QuoteStatus string

const (
	QuoteStatusDraft     QuoteStatus = "Draft"
	QuoteStatusSent      QuoteStatus = "Sent"
	QuoteStatusAccepted  QuoteStatus = "Accepted"
	QuoteStatusRejected  QuoteStatus = "Rejected"
	QuoteStatusConverted QuoteStatus = "Converted"
)

var QuoteStatusMachine = NewStatusMachine(map[QuoteStatus][]QuoteStatus{
	QuoteStatusDraft:     {QuoteStatusSent},
	QuoteStatusSent:      {QuoteStatusAccepted, QuoteStatusRejected},
	QuoteStatusAccepted:  {QuoteStatusConverted},
	QuoteStatusRejected:  {},
	QuoteStatusConverted: {},
})

// SalesOrderStatus enumerates fulfilment states of a sales order.
type SalesOrderStatus string

const (
	SalesOrderStatusPending   SalesOrderStatus = "Pending"
	SalesOrderStatusFulfilled SalesOrderStatus = "Fulfilled"
	SalesOrderStatusCancelled SalesOrderStatus = "Cancelled"
)

var SalesOrderStatusMachine = NewStatusMachine(map[SalesOrderStatus][]SalesOrderStatus{
	SalesOrderStatusPending:   {SalesOrderStatusFulfilled, SalesOrderStatusCancelled},
	SalesOrderStatusFulfilled: {},
	SalesOrderStatusCancelled: {},
})

var (
	// ErrConvertViaStatus is returned when Converted is requested as a plain status change.
	ErrConvertViaStatus = errors.New("quotes become Converted only through conversion")
	ErrAlreadyConverted = errors.New("quote already converted")
)

// Quote is a priced offer to a customer. Branch names the issuing branch.
type Quote struct {
	ID            string                     `json:"id"`
	QuoteNumber   string                     `json:"quoteNumber"`
	CustomerName  string                     `json:"customerName"`
	Branch        string                     `json:"branch"`
	Items         []LineItem                 `json:"items"`
	Total         decimal.Decimal            `json:"total"`
	Status        QuoteStatus                `json:"status"`
	StatusHistory []StatusEntry[QuoteStatus] `json:"statusHistory"`
	SalesOrderID  string                     `json:"salesOrderId,omitempty"`
	CreatedAt     time.Time                  `json:"createdAt"`
	UpdatedAt     time.Time                  `json:"updatedAt"`

	Revision
}

// SalesOrder is the order a quote converts into.
type SalesOrder struct {
	ID            string                          `json:"id"`
	OrderNumber   string                          `json:"orderNumber"`
	QuoteID       string                          `json:"quoteId"`
	CustomerName  string                          `json:"customerName"`
	Branch        string                          `json:"branch"`
	Items         []LineItem                      `json:"items"`
	Total         decimal.Decimal                 `json:"total"`
	Status        SalesOrderStatus                `json:"status"`
	StatusHistory []StatusEntry[SalesOrderStatus] `json:"statusHistory"`
	CreatedAt     time.Time                       `json:"createdAt"`
	UpdatedAt     time.Time                       `json:"updatedAt"`

	Revision
}

// ChangeStatus applies a quote transition other than conversion.
func (q *Quote) ChangeStatus(next QuoteStatus, at time.Time) (bool, error) {
	if next == QuoteStatusConverted && q.Status != QuoteStatusConverted {
		return false, ErrConvertViaStatus
	}
	changed, err := transition(QuoteStatusMachine, &q.Status, &q.StatusHistory, next, at)
	if changed {
		q.UpdatedAt = at
	}
	return changed, err
}

// Convert turns an accepted quote into a pending sales order and records the pointer.
func (q *Quote) Convert(orderID, orderNumber string, now time.Time) (*SalesOrder, error) {
	changed, err := transition(QuoteStatusMachine, &q.Status, &q.StatusHistory, QuoteStatusConverted, now)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, ErrAlreadyConverted
	}
	q.SalesOrderID = orderID
	q.UpdatedAt = now
	return &SalesOrder{
		ID:            orderID,
		OrderNumber:   orderNumber,
		QuoteID:       q.ID,
		CustomerName:  q.CustomerName,
		Branch:        q.Branch,
		Items:         slices.Clone(q.Items),
		Total:         q.Total,
		Status:        SalesOrderStatusPending,
		StatusHistory: []StatusEntry[SalesOrderStatus]{{Status: SalesOrderStatusPending, Timestamp: now}},
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// ChangeStatus applies a sales order transition.
func (o *SalesOrder) ChangeStatus(next SalesOrderStatus, at time.Time) (bool, error) {
	changed, err := transition(SalesOrderStatusMachine, &o.Status, &o.StatusHistory, next, at)
	if changed {
		o.UpdatedAt = at
	}
	return changed, err
}
