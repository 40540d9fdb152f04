package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/spec-kit/garage-service/internal/domain"
	"github.com/spec-kit/garage-service/internal/repository"
	apperrors "github.com/spec-kit/garage-service/pkg/util/errorutil"
)

const (
	resolvedWindow    = 7 * 24 * time.Hour
	expiringAMCWindow = 30 * 24 * time.Hour
)

// DashboardService aggregates the operational overview. Nothing is cached; every call
// reads the full collections.
type DashboardService struct {
	store *repository.Store
}

// DashboardSummary is the overview shown to staff.
type DashboardSummary struct {
	GeneratedAt       time.Time                   `json:"generatedAt"`
	TicketsByStatus   map[domain.TicketStatus]int `json:"ticketsByStatus"`
	OpenTickets       int                         `json:"openTickets"`
	ResolvedLast7Days int                         `json:"resolvedLast7Days"`
	UnpaidInvoices    int                         `json:"unpaidInvoices"`
	AmountOutstanding decimal.Decimal             `json:"amountOutstanding"`
	ActiveAMCs        int                         `json:"activeAmcs"`
	AMCsExpiringSoon  int                         `json:"amcsExpiringSoon"`
	VendorsByStatus   map[domain.VendorStatus]int `json:"vendorsByStatus"`
	Attendance        Attendance                  `json:"attendance"`
}

// NewDashboardService constructs the service.
func NewDashboardService(store *repository.Store) *DashboardService {
	return &DashboardService{store: store}
}

// Summary computes the overview as of now.
func (s *DashboardService) Summary(ctx context.Context, now time.Time) (*DashboardSummary, error) {
	tickets, err := s.store.Tickets.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	invoices, err := s.store.Invoices.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	amcs, err := s.store.AMCs.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	vendors, err := s.store.Vendors.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	active := true
	members, err := s.store.Workforce.ListWithFilter(ctx, repository.WorkforceFilter{Active: &active})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	summary := &DashboardSummary{
		GeneratedAt:       now,
		TicketsByStatus:   domain.StatusCounts(tickets),
		ResolvedLast7Days: domain.CountResolvedWithin(tickets, now, resolvedWindow),
		AmountOutstanding: decimal.Zero,
		VendorsByStatus: map[domain.VendorStatus]int{
			domain.VendorStatusActive:      0,
			domain.VendorStatusInactive:    0,
			domain.VendorStatusBlacklisted: 0,
		},
		Attendance: tallyAttendance(members, now),
	}
	for _, t := range tickets {
		if !t.Status.IsTerminal() {
			summary.OpenTickets++
		}
	}
	for _, inv := range invoices {
		if inv.Status == domain.InvoiceStatusUnpaid {
			summary.UnpaidInvoices++
			summary.AmountOutstanding = summary.AmountOutstanding.Add(inv.AmountDue)
		}
	}
	for _, amc := range amcs {
		if amc.Status == domain.AMCStatusActive {
			summary.ActiveAMCs++
		}
		if amc.ExpiringWithin(now, expiringAMCWindow) {
			summary.AMCsExpiringSoon++
		}
	}
	for _, v := range vendors {
		summary.VendorsByStatus[v.Status]++
	}
	return summary, nil
}
