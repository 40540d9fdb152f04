package domain

import (
	"math"
	"time"
)

// StatusCounts groups tickets by status. Every known status is present, zero if unused.
func StatusCounts(tickets []*Ticket) map[TicketStatus]int {
	counts := make(map[TicketStatus]int, len(TicketStatuses))
	for _, s := range TicketStatuses {
		counts[s] = 0
	}
	for _, t := range tickets {
		counts[t.Status]++
	}
	return counts
}

// CountResolvedWithin counts tickets whose resolvedAt lies in [now-window, now].
func CountResolvedWithin(tickets []*Ticket, now time.Time, window time.Duration) int {
	from := now.Add(-window)
	n := 0
	for _, t := range tickets {
		if t.ResolvedAt == nil {
			continue
		}
		if !t.ResolvedAt.Before(from) && !t.ResolvedAt.After(now) {
			n++
		}
	}
	return n
}

// AttendancePercentage returns present/total*100 rounded to one decimal, or 0 when total is 0.
func AttendancePercentage(present, total int) float64 {
	if total <= 0 {
		return 0
	}
	pct := float64(present) / float64(total) * 100
	return math.Round(pct*10) / 10
}
