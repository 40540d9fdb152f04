package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVendorTransitions(t *testing.T) {
	v := &Vendor{Status: VendorStatusActive, StatusHistory: []StatusEntry[VendorStatus]{{Status: VendorStatusActive, Timestamp: t0}}}

	changed, err := v.ChangeStatus(VendorStatusInactive, t0.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, changed)

	_, err = v.ChangeStatus(VendorStatusBlacklisted, t0.Add(2*time.Hour))
	require.NoError(t, err)

	_, err = v.ChangeStatus(VendorStatusActive, t0.Add(3*time.Hour))
	var terr *TransitionError
	require.True(t, errors.As(err, &terr))
	assert.Len(t, v.StatusHistory, 3)
}

func TestAMCRenew(t *testing.T) {
	start := t0
	end := t0.AddDate(1, 0, 0)
	a := &AMC{
		ID: "amc-1", CustomerID: "c1", PlanName: "Gold", StartDate: start, EndDate: end,
		Status: AMCStatusActive, StatusHistory: []StatusEntry[AMCStatus]{{Status: AMCStatusActive, Timestamp: t0}},
	}

	assert.True(t, a.ExpiringWithin(end.Add(-24*time.Hour), 30*24*time.Hour))
	assert.False(t, a.ExpiringWithin(start, 30*24*time.Hour))

	next, err := a.Renew("amc-2", decimal.NewFromInt(4999), end)
	require.NoError(t, err)
	assert.Equal(t, AMCStatusRenewed, a.Status)
	assert.Equal(t, "amc-2", a.RenewedByID)
	assert.Equal(t, end, next.StartDate)
	assert.Equal(t, end.Add(end.Sub(start)), next.EndDate)
	assert.Equal(t, AMCStatusActive, next.Status)

	_, err = a.Renew("amc-3", decimal.Zero, end)
	assert.ErrorIs(t, err, ErrAlreadyRenewed)
}

func TestQuoteConversion(t *testing.T) {
	q := &Quote{
		ID: "q-1", CustomerName: "Fleet Co", Branch: "Pune",
		Items:  []LineItem{item("Service", ItemKindService, "1200", "18")},
		Total:  decimal.NewFromInt(1200),
		Status: QuoteStatusDraft, StatusHistory: []StatusEntry[QuoteStatus]{{Status: QuoteStatusDraft, Timestamp: t0}},
	}

	_, err := q.Convert("so-1", "SO-1", t0)
	require.Error(t, err, "draft quotes cannot convert")

	_, err = q.ChangeStatus(QuoteStatusConverted, t0)
	assert.ErrorIs(t, err, ErrConvertViaStatus)

	_, err = q.ChangeStatus(QuoteStatusSent, t0)
	require.NoError(t, err)
	_, err = q.ChangeStatus(QuoteStatusAccepted, t0)
	require.NoError(t, err)

	order, err := q.Convert("so-1", "SO-1", t0.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, QuoteStatusConverted, q.Status)
	assert.Equal(t, "so-1", q.SalesOrderID)
	assert.Equal(t, "Pune", order.Branch)
	assert.Equal(t, q.ID, order.QuoteID)
	assert.Equal(t, SalesOrderStatusPending, order.Status)
	assert.True(t, q.Total.Equal(order.Total))

	_, err = q.Convert("so-2", "SO-2", t0.Add(time.Hour))
	assert.ErrorIs(t, err, ErrAlreadyConverted)

	_, err = order.ChangeStatus(SalesOrderStatusFulfilled, t0.Add(2*time.Hour))
	require.NoError(t, err)
	_, err = order.ChangeStatus(SalesOrderStatusCancelled, t0.Add(3*time.Hour))
	assert.Error(t, err)
}

func TestWorkforcePresentOn(t *testing.T) {
	m := &WorkforceMember{Name: "Ravi", Role: WorkforceRoleTechnician}
	assert.False(t, m.PresentOn(t0))

	in := t0.Add(2 * time.Hour)
	m.LastCheckIn = &in
	assert.True(t, m.PresentOn(t0))
	assert.False(t, m.PresentOn(t0.AddDate(0, 0, 1)))
	assert.True(t, WorkforceRoleAdvisor.Known())
	assert.False(t, WorkforceRole("Intern").Known())
}
