package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"time"

	"github.com/spec-kit/garage-service/internal/domain"
	"github.com/spec-kit/garage-service/internal/repository"
	apperrors "github.com/spec-kit/garage-service/pkg/util/errorutil"
)

// Export targets accepted by ExportService.
const (
	ExportTickets  = "tickets"
	ExportInvoices = "invoices"
	ExportVendors  = "vendors"
	ExportAMCs     = "amcs"
	ExportQuotes   = "quotes"
)

// ExportService renders collections as CSV, flattening nested item lists to
// comma-joined names.
type ExportService struct {
	store *repository.Store
}

// NewExportService constructs the service.
func NewExportService(store *repository.Store) *ExportService {
	return &ExportService{store: store}
}

// Export returns the CSV body for target. An empty collection is reported as
// NO_RECORDS instead of producing a header-only file.
func (s *ExportService) Export(ctx context.Context, target string) ([]byte, error) {
	var (
		header []string
		rows   [][]string
		err    error
	)
	switch target {
	case ExportTickets:
		header, rows, err = s.tickets(ctx)
	case ExportInvoices:
		header, rows, err = s.invoices(ctx)
	case ExportVendors:
		header, rows, err = s.vendors(ctx)
	case ExportAMCs:
		header, rows, err = s.amcs(ctx)
	case ExportQuotes:
		header, rows, err = s.quotes(ctx)
	default:
		return nil, apperrors.NewFieldValidationError("unsupported export", map[string]string{"collection": "oneof"})
	}
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if len(rows) == 0 {
		return nil, apperrors.NewNoRecords(target)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return buf.Bytes(), nil
}

func (s *ExportService) tickets(ctx context.Context) ([]string, [][]string, error) {
	tickets, err := s.store.Tickets.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	header := []string{"Ticket Number", "Customer", "Vehicle", "Title", "Status", "Technician",
		"Estimated Items", "Actual Items", "Created At", "Resolved At"}
	rows := make([][]string, 0, len(tickets))
	for _, t := range tickets {
		t.Normalize()
		rows = append(rows, []string{
			t.TicketNumber,
			t.CustomerName,
			t.VehicleNumber,
			t.Title,
			string(t.Status),
			t.Technician,
			strings.Join(t.EstimatedItems.Names(), ", "),
			strings.Join(t.ActualItems.Names(), ", "),
			formatTime(&t.CreatedAt),
			formatTime(t.ResolvedAt),
		})
	}
	return header, rows, nil
}

func (s *ExportService) invoices(ctx context.Context) ([]string, [][]string, error) {
	invoices, err := s.store.Invoices.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	header := []string{"Invoice Number", "Customer", "Vehicle", "Parts", "Services",
		"Total", "Tax", "Amount Due", "Status", "Date"}
	rows := make([][]string, 0, len(invoices))
	for _, inv := range invoices {
		rows = append(rows, []string{
			inv.InvoiceNumber,
			inv.CustomerName,
			inv.VehicleNumber,
			joinNames(inv.Parts),
			joinNames(inv.Services),
			inv.Total.StringFixed(2),
			inv.TaxTotal.StringFixed(2),
			inv.AmountDue.StringFixed(2),
			string(inv.Status),
			formatTime(&inv.Date),
		})
	}
	return header, rows, nil
}

func (s *ExportService) vendors(ctx context.Context) ([]string, [][]string, error) {
	vendors, err := s.store.Vendors.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	header := []string{"Name", "Contact", "Phone", "Email", "Category", "Status"}
	rows := make([][]string, 0, len(vendors))
	for _, v := range vendors {
		rows = append(rows, []string{v.Name, v.ContactName, v.Phone, v.Email, v.Category, string(v.Status)})
	}
	return header, rows, nil
}

func (s *ExportService) amcs(ctx context.Context) ([]string, [][]string, error) {
	amcs, err := s.store.AMCs.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	header := []string{"Customer", "Vehicle", "Plan", "Start Date", "End Date", "Price", "Status"}
	rows := make([][]string, 0, len(amcs))
	for _, a := range amcs {
		rows = append(rows, []string{
			a.CustomerName,
			a.VehicleNumber,
			a.PlanName,
			a.StartDate.Format(time.DateOnly),
			a.EndDate.Format(time.DateOnly),
			a.Price.StringFixed(2),
			string(a.Status),
		})
	}
	return header, rows, nil
}

func (s *ExportService) quotes(ctx context.Context) ([]string, [][]string, error) {
	quotes, err := s.store.Quotes.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	header := []string{"Quote Number", "Customer", "Branch", "Items", "Total", "Status"}
	rows := make([][]string, 0, len(quotes))
	for _, q := range quotes {
		rows = append(rows, []string{
			q.QuoteNumber,
			q.CustomerName,
			q.Branch,
			joinNames(q.Items),
			q.Total.StringFixed(2),
			string(q.Status),
		})
	}
	return header, rows, nil
}

func joinNames(items []domain.LineItem) string {
	names := make([]string, len(items))
	for i, item := range items {
		names[i] = item.Name
	}
	return strings.Join(names, ", ")
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
