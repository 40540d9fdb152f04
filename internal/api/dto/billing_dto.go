package dto

import (
	"github.com/shopspring/decimal"

	"github.com/spec-kit/garage-service/internal/domain"
)

// MarkPaidRequest records an offline payment.
type MarkPaidRequest struct {
	Reference string `json:"reference"`
}

// CheckoutRequest binds the gateway order opened for an invoice.
type CheckoutRequest struct {
	OrderID string `json:"orderId"`
}

// RenewAMCRequest optionally reprices the successor contract.
type RenewAMCRequest struct {
	Price *decimal.Decimal `json:"price"`
}

// RenewAMCResponse returns both sides of a renewal.
type RenewAMCResponse struct {
	Previous *domain.AMC `json:"previous"`
	Renewal  *domain.AMC `json:"renewal"`
}

// ConvertQuoteResponse returns the converted quote and its new order.
type ConvertQuoteResponse struct {
	Quote      *domain.Quote      `json:"quote"`
	SalesOrder *domain.SalesOrder `json:"salesOrder"`
}
