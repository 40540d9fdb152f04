package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/spec-kit/garage-service/internal/domain"
)

// StatusChangeRequest carries the requested next status for any status machine.
type StatusChangeRequest struct {
	Status string `json:"status"`
}

// AssignTechnicianRequest payload.
type AssignTechnicianRequest struct {
	TechnicianID string `json:"technicianId"`
}

// TicketSummary is the list representation of a ticket.
type TicketSummary struct {
	ID            string              `json:"id"`
	TicketNumber  string              `json:"ticketNumber"`
	CustomerName  string              `json:"customerName"`
	VehicleNumber string              `json:"vehicleNumber"`
	Title         string              `json:"title"`
	Status        domain.TicketStatus `json:"status"`
	Technician    string              `json:"technician"`
	EstimateTotal decimal.Decimal     `json:"estimateTotal"`
	CreatedAt     time.Time           `json:"createdAt"`
	UpdatedAt     time.Time           `json:"updatedAt"`
	ResolvedAt    *time.Time          `json:"resolvedAt,omitempty"`
}

// NewTicketSummary builds the list representation.
func NewTicketSummary(t *domain.Ticket) TicketSummary {
	return TicketSummary{
		ID:            t.ID,
		TicketNumber:  t.TicketNumber,
		CustomerName:  t.CustomerName,
		VehicleNumber: t.VehicleNumber,
		Title:         t.Title,
		Status:        t.Status,
		Technician:    t.Technician,
		EstimateTotal: domain.SumPrices(t.EstimatedItems.Parts, t.EstimatedItems.Services),
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
		ResolvedAt:    t.ResolvedAt,
	}
}
