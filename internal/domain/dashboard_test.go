package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAttendancePercentage(t *testing.T) {
	tests := []struct {
		present, total int
		want           float64
	}{
		{0, 0, 0},
		{5, 0, 0},
		{8, 10, 80.0},
		{1, 3, 33.3},
		{2, 3, 66.7},
		{10, 10, 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, AttendancePercentage(tt.present, tt.total), "%d/%d", tt.present, tt.total)
	}
}

func TestStatusCounts(t *testing.T) {
	open := NewTicket("a", "TKT-A", t0)
	other := NewTicket("b", "TKT-B", t0)
	_, _ = other.ApplyTransition(TicketStatusTechnicianAssigned, t0)

	counts := StatusCounts([]*Ticket{open, other, NewTicket("c", "TKT-C", t0)})
	assert.Equal(t, 2, counts[TicketStatusOpen])
	assert.Equal(t, 1, counts[TicketStatusTechnicianAssigned])
	assert.Len(t, counts, len(TicketStatuses))
	assert.Zero(t, counts[TicketStatusClosed])
}

func TestCountResolvedWithin(t *testing.T) {
	now := t0.Add(30 * 24 * time.Hour)
	at := func(d time.Duration) *Ticket {
		tk := NewTicket("x", "TKT-X", t0)
		r := now.Add(-d)
		tk.ResolvedAt = &r
		return tk
	}
	tickets := []*Ticket{
		at(time.Hour),
		at(7 * 24 * time.Hour),
		at(8 * 24 * time.Hour),
		at(-time.Hour),
		NewTicket("open", "TKT-O", t0),
	}
	assert.Equal(t, 2, CountResolvedWithin(tickets, now, 7*24*time.Hour))
}
