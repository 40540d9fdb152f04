package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// AMCStatus enumerates states of an annual maintenance contract.
type AMCStatus string

const (
	AMCStatusActive    AMCStatus = "Active"
	AMCStatusExpired   AMCStatus = "Expired"
	AMCStatusCancelled AMCStatus = "Cancelled"
	AMCStatusRenewed   AMCStatus = "Renewed"
)

var AMCStatusMachine = NewStatusMachine(map[AMCStatus][]AMCStatus{
	AMCStatusActive:    {AMCStatusExpired, AMCStatusCancelled, AMCStatusRenewed},
	AMCStatusExpired:   {AMCStatusRenewed},
	AMCStatusCancelled: {},
	AMCStatusRenewed:   {},
})

// ErrAlreadyRenewed is returned when renewing a contract a second time.
var ErrAlreadyRenewed = errors.New("contract already renewed")

// AMC is a subscription-style service plan tied to a vehicle.
type AMC struct {
	ID            string                   `json:"id"`
	CustomerID    string                   `json:"customerId"`
	CustomerName  string                   `json:"customerName"`
	VehicleNumber string                   `json:"vehicleNumber"`
	PlanName      string                   `json:"planName"`
	StartDate     time.Time                `json:"startDate"`
	EndDate       time.Time                `json:"endDate"`
	Price         decimal.Decimal          `json:"price"`
	Status        AMCStatus                `json:"status"`
	StatusHistory []StatusEntry[AMCStatus] `json:"statusHistory"`
	RenewedByID   string                   `json:"renewedById,omitempty"`
	RenewalOfID   string                   `json:"renewalOfId,omitempty"`
	CreatedAt     time.Time                `json:"createdAt"`
	UpdatedAt     time.Time                `json:"updatedAt"`

	Revision
}

// ChangeStatus applies an AMC status transition.
func (a *AMC) ChangeStatus(next AMCStatus, at time.Time) (bool, error) {
	changed, err := transition(AMCStatusMachine, &a.Status, &a.StatusHistory, next, at)
	if changed {
		a.UpdatedAt = at
	}
	return changed, err
}

// ExpiringWithin reports whether an active contract ends in [now, now+window].
func (a *AMC) ExpiringWithin(now time.Time, window time.Duration) bool {
	if a.Status != AMCStatusActive {
		return false
	}
	return !a.EndDate.Before(now) && !a.EndDate.After(now.Add(window))
}

// Renew marks a as Renewed and returns the successor contract covering the same
// duration from a's end date.
func (a *AMC) Renew(newID string, price decimal.Decimal, now time.Time) (*AMC, error) {
	changed, err := a.ChangeStatus(AMCStatusRenewed, now)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, ErrAlreadyRenewed
	}
	a.RenewedByID = newID
	term := a.EndDate.Sub(a.StartDate)
	next := &AMC{
		ID:            newID,
		CustomerID:    a.CustomerID,
		CustomerName:  a.CustomerName,
		VehicleNumber: a.VehicleNumber,
		PlanName:      a.PlanName,
		StartDate:     a.EndDate,
		EndDate:       a.EndDate.Add(term),
		Price:         price,
		Status:        AMCStatusActive,
		StatusHistory: []StatusEntry[AMCStatus]{{Status: AMCStatusActive, Timestamp: now}},
		RenewalOfID:   a.ID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	return next, nil
}
