package domain

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// TicketStatus enumerates lifecycle states for service tickets.
type TicketStatus string

const (
	TicketStatusOpen               TicketStatus = "Open"
	TicketStatusTechnicianAssigned TicketStatus = "Technician Assigned"
	TicketStatusEstimateShared     TicketStatus = "Estimate Shared"
	TicketStatusEstimateApproved   TicketStatus = "Estimate Approved"
	TicketStatusInProgress         TicketStatus = "In Progress"
	TicketStatusResolved           TicketStatus = "Resolved"
	TicketStatusClosed             TicketStatus = "Closed"
)

// UnassignedTechnician is the technician value of a fresh ticket.
const UnassignedTechnician = "Unassigned"

// TicketStatuses lists every status in workflow order.
var TicketStatuses = []TicketStatus{
	TicketStatusOpen,
	TicketStatusTechnicianAssigned,
	TicketStatusEstimateShared,
	TicketStatusEstimateApproved,
	TicketStatusInProgress,
	TicketStatusResolved,
	TicketStatusClosed,
}

// TicketStatusMachine allows single-step forward moves only; Closed is terminal.
var TicketStatusMachine = NewStatusMachine(map[TicketStatus][]TicketStatus{
	TicketStatusOpen:               {TicketStatusTechnicianAssigned},
	TicketStatusTechnicianAssigned: {TicketStatusEstimateShared},
	TicketStatusEstimateShared:     {TicketStatusEstimateApproved},
	TicketStatusEstimateApproved:   {TicketStatusInProgress},
	TicketStatusInProgress:         {TicketStatusResolved},
	TicketStatusResolved:           {TicketStatusClosed},
	TicketStatusClosed:             {},
})

// IsTerminal reports whether the status counts as resolved for billing and reporting.
func (s TicketStatus) IsTerminal() bool {
	return s == TicketStatusResolved || s == TicketStatusClosed
}

// ItemKind separates catalog parts from labour services.
type ItemKind string

const (
	ItemKindPart    ItemKind = "part"
	ItemKindService ItemKind = "service"
)

// ItemSet groups the parts and services applied to a ticket.
type ItemSet struct {
	Parts    []LineItem `json:"parts"`
	Services []LineItem `json:"services"`
}

// MarshalJSON always emits arrays, never null.
func (s ItemSet) MarshalJSON() ([]byte, error) {
	type plain ItemSet
	out := plain(s.normalized())
	return json.Marshal(out)
}

func (s ItemSet) normalized() ItemSet {
	if s.Parts == nil {
		s.Parts = []LineItem{}
	}
	if s.Services == nil {
		s.Services = []LineItem{}
	}
	return s
}

// Names returns part and service names in order.
func (s ItemSet) Names() []string {
	names := make([]string, 0, len(s.Parts)+len(s.Services))
	for _, p := range s.Parts {
		names = append(names, p.Name)
	}
	for _, sv := range s.Services {
		names = append(names, sv.Name)
	}
	return names
}

// Ticket is a customer-reported service request (stored in the complaints collection).
type Ticket struct {
	ID             string                      `json:"id"`
	TicketNumber   string                      `json:"ticketNumber"`
	CustomerID     string                      `json:"customerId"`
	CustomerName   string                      `json:"customerName"`
	VehicleNumber  string                      `json:"vehicleNumber"`
	Title          string                      `json:"title"`
	Description    string                      `json:"description"`
	Attachments    []string                    `json:"attachments"`
	Status         TicketStatus                `json:"status"`
	Technician     string                      `json:"technician"`
	EstimatedItems ItemSet                     `json:"estimatedItems"`
	ActualItems    ItemSet                     `json:"actualItems"`
	StatusHistory  []StatusEntry[TicketStatus] `json:"statusHistory"`
	CreatedAt      time.Time                   `json:"createdAt"`
	UpdatedAt      time.Time                   `json:"updatedAt"`
	ResolvedAt     *time.Time                  `json:"resolvedAt,omitempty"`

	Revision
}

// NewTicket builds an Open ticket with its initial history entry.
func NewTicket(id, number string, now time.Time) *Ticket {
	return &Ticket{
		ID:             id,
		TicketNumber:   number,
		Attachments:    []string{},
		Status:         TicketStatusOpen,
		Technician:     UnassignedTechnician,
		EstimatedItems: ItemSet{}.normalized(),
		ActualItems:    ItemSet{}.normalized(),
		StatusHistory:  []StatusEntry[TicketStatus]{{Status: TicketStatusOpen, Timestamp: now}},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// ApplyTransition moves the ticket to next, appending history and stamping resolvedAt on
// the first entry into Resolved or Closed. Returns false when next equals the current status.
func (t *Ticket) ApplyTransition(next TicketStatus, at time.Time) (bool, error) {
	changed, err := transition(TicketStatusMachine, &t.Status, &t.StatusHistory, next, at)
	if err != nil || !changed {
		return changed, err
	}
	if next.IsTerminal() && t.ResolvedAt == nil {
		resolved := at
		t.ResolvedAt = &resolved
	}
	t.UpdatedAt = at
	return true, nil
}

// AcceptsEstimate reports whether estimated items may still be edited.
func (t *Ticket) AcceptsEstimate() bool {
	switch t.Status {
	case TicketStatusOpen, TicketStatusTechnicianAssigned, TicketStatusEstimateShared:
		return true
	}
	return false
}

// AcceptsActuals reports whether actual items may be edited.
func (t *Ticket) AcceptsActuals() bool {
	switch t.Status {
	case TicketStatusEstimateApproved, TicketStatusInProgress, TicketStatusResolved:
		return true
	}
	return false
}

// Normalize fills absent collections after decoding a stored document.
func (t *Ticket) Normalize() {
	if t.Attachments == nil {
		t.Attachments = []string{}
	}
	t.EstimatedItems = t.EstimatedItems.normalized()
	t.ActualItems = t.ActualItems.normalized()
	if t.Technician == "" {
		t.Technician = UnassignedTechnician
	}
}

// CheckInvariants verifies the history/status/resolvedAt relationships.
func (t *Ticket) CheckInvariants() error {
	if len(t.StatusHistory) == 0 {
		return errors.New("status history is empty")
	}
	if last := t.StatusHistory[len(t.StatusHistory)-1]; last.Status != t.Status {
		return errors.New("last history entry does not match status")
	}
	if t.Status.IsTerminal() != (t.ResolvedAt != nil) {
		return errors.New("resolvedAt inconsistent with status")
	}
	if t.EstimatedItems.Parts == nil || t.EstimatedItems.Services == nil ||
		t.ActualItems.Parts == nil || t.ActualItems.Services == nil {
		return errors.New("item sets must be present")
	}
	return nil
}

// NormalizeVehicleNumber strips spaces and dashes and upper-cases a registration.
func NormalizeVehicleNumber(raw string) string {
	normalized := strings.TrimSpace(raw)
	normalized = strings.ReplaceAll(normalized, " ", "")
	normalized = strings.ReplaceAll(normalized, "-", "")
	return strings.ToUpper(normalized)
}
