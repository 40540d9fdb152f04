package repository

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/garage-service/internal/domain"
)

const (
	defaultListLimit = 20
	maxListLimit     = 200
)

// TicketFilter captures staff search parameters.
type TicketFilter struct {
	Statuses      []domain.TicketStatus
	Technician    *string
	CustomerID    *string
	VehicleNumber *string
	SearchTerm    *string
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
	Limit         int
	Offset        int
}

func (f TicketFilter) page() (limit, offset int) {
	limit = f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset = f.Offset
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func (f TicketFilter) search() string {
	if f.SearchTerm == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(*f.SearchTerm))
}

// Matches reports whether t satisfies every set criterion. Paging is not applied.
func (f TicketFilter) Matches(t *domain.Ticket) bool {
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, t.Status) {
		return false
	}
	if f.Technician != nil && t.Technician != *f.Technician {
		return false
	}
	if f.CustomerID != nil && t.CustomerID != *f.CustomerID {
		return false
	}
	if f.VehicleNumber != nil && t.VehicleNumber != domain.NormalizeVehicleNumber(*f.VehicleNumber) {
		return false
	}
	if f.CreatedFrom != nil && t.CreatedAt.Before(*f.CreatedFrom) {
		return false
	}
	if f.CreatedTo != nil && t.CreatedAt.After(*f.CreatedTo) {
		return false
	}
	if term := f.search(); term != "" {
		haystack := strings.ToLower(t.Title + "\n" + t.Description + "\n" + t.TicketNumber)
		if !strings.Contains(haystack, term) {
			return false
		}
	}
	return true
}

// TicketRepository encapsulates ticket persistence in the complaints collection.
type TicketRepository interface {
	Collection[domain.Ticket]
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]*domain.Ticket, error)
}

type ticketRepository struct {
	*pgCollection[domain.Ticket]
}

// NewTicketRepository instantiates the Postgres repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pgCollection: &pgCollection[domain.Ticket]{pool: pool, name: CollectionTickets}}
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]*domain.Ticket, error) {
	clauses := []string{"collection=$1"}
	args := []any{CollectionTickets}

	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, string(status))
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("data->>'status' IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.Technician != nil {
		args = append(args, *filter.Technician)
		clauses = append(clauses, fmt.Sprintf("data->>'technician'=$%d", len(args)))
	}
	if filter.CustomerID != nil {
		args = append(args, *filter.CustomerID)
		clauses = append(clauses, fmt.Sprintf("data->>'customerId'=$%d", len(args)))
	}
	if filter.VehicleNumber != nil {
		args = append(args, domain.NormalizeVehicleNumber(*filter.VehicleNumber))
		clauses = append(clauses, fmt.Sprintf("data->>'vehicleNumber'=$%d", len(args)))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("(data->>'createdAt')::timestamptz >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("(data->>'createdAt')::timestamptz <= $%d", len(args)))
	}
	if term := filter.search(); term != "" {
		args = append(args, "%"+term+"%")
		p := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf(
			"(LOWER(data->>'title') LIKE %s OR LOWER(data->>'description') LIKE %s OR LOWER(data->>'ticketNumber') LIKE %s)", p, p, p))
	}

	limit, offset := filter.page()
	query := fmt.Sprintf(`SELECT data FROM documents WHERE %s ORDER BY created_at DESC, id LIMIT %d OFFSET %d`,
		strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	tickets, err := scanDocuments[domain.Ticket](rows)
	if err != nil {
		return nil, err
	}
	for _, t := range tickets {
		t.Normalize()
	}
	return tickets, nil
}

type memoryTicketRepository struct {
	*memoryCollection[domain.Ticket]
}

// NewMemoryTicketRepository returns an in-process ticket repository.
func NewMemoryTicketRepository() TicketRepository {
	return &memoryTicketRepository{memoryCollection: newMemoryCollection[domain.Ticket](CollectionTickets)}
}

func (r *memoryTicketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]*domain.Ticket, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	matched := make([]*domain.Ticket, 0, len(all))
	for _, t := range all {
		t.Normalize()
		if filter.Matches(t) {
			matched = append(matched, t)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	limit, offset := filter.page()
	if offset >= len(matched) {
		return []*domain.Ticket{}, nil
	}
	end := min(offset+limit, len(matched))
	return matched[offset:end], nil
}
