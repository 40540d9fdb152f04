package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func TestApplyTransition_HistoryGrowsWithEachAcceptedMove(t *testing.T) {
	tk := NewTicket("id-1", "TKT-00000001", t0)
	require.NoError(t, tk.CheckInvariants())

	for i, next := range TicketStatuses[1:] {
		before := len(tk.StatusHistory)
		at := t0.Add(time.Duration(i+1) * time.Hour)

		changed, err := tk.ApplyTransition(next, at)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Len(t, tk.StatusHistory, before+1)

		last := tk.StatusHistory[len(tk.StatusHistory)-1]
		assert.Equal(t, next, last.Status)
		assert.Equal(t, tk.Status, last.Status)
		assert.Equal(t, at, last.Timestamp)
		require.NoError(t, tk.CheckInvariants())
	}
	assert.Equal(t, TicketStatusClosed, tk.Status)
}

func TestApplyTransition_ResolvedAt(t *testing.T) {
	tk := NewTicket("id-1", "TKT-00000001", t0)

	_, err := tk.ApplyTransition(TicketStatusTechnicianAssigned, t0.Add(time.Minute))
	require.NoError(t, err)
	assert.Nil(t, tk.ResolvedAt)

	steps := []TicketStatus{TicketStatusEstimateShared, TicketStatusEstimateApproved, TicketStatusInProgress}
	for _, s := range steps {
		_, err := tk.ApplyTransition(s, t0.Add(time.Hour))
		require.NoError(t, err)
		assert.Nil(t, tk.ResolvedAt)
	}

	resolvedAt := t0.Add(48 * time.Hour)
	_, err = tk.ApplyTransition(TicketStatusResolved, resolvedAt)
	require.NoError(t, err)
	require.NotNil(t, tk.ResolvedAt)
	assert.Equal(t, resolvedAt, *tk.ResolvedAt)

	// closing keeps the original resolution time
	_, err = tk.ApplyTransition(TicketStatusClosed, resolvedAt.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, resolvedAt, *tk.ResolvedAt)
}

func TestApplyTransition_SameStatusIsNoop(t *testing.T) {
	tk := NewTicket("id-1", "TKT-00000001", t0)

	changed, err := tk.ApplyTransition(TicketStatusOpen, t0.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Len(t, tk.StatusHistory, 1)
	assert.Equal(t, t0, tk.UpdatedAt)
}

func TestApplyTransition_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		from    []TicketStatus
		to      TicketStatus
		unknown bool
	}{
		{name: "unknown status", to: TicketStatus("Pending Parts"), unknown: true},
		{name: "skip ahead", to: TicketStatusInProgress},
		{name: "backwards", from: []TicketStatus{TicketStatusTechnicianAssigned, TicketStatusEstimateShared}, to: TicketStatusOpen},
		{name: "closed is terminal", from: TicketStatuses[1:], to: TicketStatusResolved},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tk := NewTicket("id-1", "TKT-00000001", t0)
			for _, s := range tt.from {
				_, err := tk.ApplyTransition(s, t0)
				require.NoError(t, err)
			}
			status, history := tk.Status, len(tk.StatusHistory)

			changed, err := tk.ApplyTransition(tt.to, t0.Add(time.Hour))
			assert.False(t, changed)
			var terr *TransitionError
			require.True(t, errors.As(err, &terr))
			assert.Equal(t, tt.unknown, terr.Unknown)
			assert.Equal(t, status, tk.Status)
			assert.Len(t, tk.StatusHistory, history)
		})
	}
}

func TestTicketJSON_ItemSetsNeverNull(t *testing.T) {
	var tk Ticket
	require.NoError(t, json.Unmarshal([]byte(`{"id":"x","status":"Open"}`), &tk))

	raw, err := json.Marshal(tk)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"estimatedItems":{"parts":[],"services":[]}`)
	assert.Contains(t, string(raw), `"actualItems":{"parts":[],"services":[]}`)

	tk.Normalize()
	assert.Equal(t, UnassignedTechnician, tk.Technician)
	assert.NotNil(t, tk.Attachments)
}

func TestEditWindows(t *testing.T) {
	tk := NewTicket("id-1", "TKT-00000001", t0)
	assert.True(t, tk.AcceptsEstimate())
	assert.False(t, tk.AcceptsActuals())

	for _, s := range []TicketStatus{TicketStatusTechnicianAssigned, TicketStatusEstimateShared, TicketStatusEstimateApproved} {
		_, err := tk.ApplyTransition(s, t0)
		require.NoError(t, err)
	}
	assert.False(t, tk.AcceptsEstimate())
	assert.True(t, tk.AcceptsActuals())
}

func TestNormalizeVehicleNumber(t *testing.T) {
	assert.Equal(t, "MH12AB1234", NormalizeVehicleNumber(" mh-12 ab 1234 "))
}
