package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/garage-service/internal/domain"
)

// WorkforceFilter defines query params for workforce listing.
type WorkforceFilter struct {
	Role   *domain.WorkforceRole
	Active *bool
}

// Matches reports whether m satisfies the filter.
func (f WorkforceFilter) Matches(m *domain.WorkforceMember) bool {
	if f.Role != nil && m.Role != *f.Role {
		return false
	}
	if f.Active != nil && m.Active != *f.Active {
		return false
	}
	return true
}

// WorkforceRepository handles persistence for workforce members (users collection).
type WorkforceRepository interface {
	Collection[domain.WorkforceMember]
	ListWithFilter(ctx context.Context, filter WorkforceFilter) ([]*domain.WorkforceMember, error)
}

type workforceRepository struct {
	*pgCollection[domain.WorkforceMember]
}

// NewWorkforceRepository instantiates the Postgres repository.
func NewWorkforceRepository(pool *pgxpool.Pool) WorkforceRepository {
	return &workforceRepository{pgCollection: &pgCollection[domain.WorkforceMember]{pool: pool, name: CollectionUsers}}
}

func (r *workforceRepository) ListWithFilter(ctx context.Context, filter WorkforceFilter) ([]*domain.WorkforceMember, error) {
	clauses := []string{"collection=$1"}
	args := []any{CollectionUsers}

	if filter.Role != nil {
		args = append(args, string(*filter.Role))
		clauses = append(clauses, fmt.Sprintf("data->>'role'=$%d", len(args)))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		clauses = append(clauses, fmt.Sprintf("(data->>'active')::boolean=$%d", len(args)))
	}

	query := fmt.Sprintf(`SELECT data FROM documents WHERE %s ORDER BY data->>'name'`, strings.Join(clauses, " AND "))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDocuments[domain.WorkforceMember](rows)
}

type memoryWorkforceRepository struct {
	*memoryCollection[domain.WorkforceMember]
}

// NewMemoryWorkforceRepository returns an in-process workforce repository.
func NewMemoryWorkforceRepository() WorkforceRepository {
	return &memoryWorkforceRepository{memoryCollection: newMemoryCollection[domain.WorkforceMember](CollectionUsers)}
}

func (r *memoryWorkforceRepository) ListWithFilter(ctx context.Context, filter WorkforceFilter) ([]*domain.WorkforceMember, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.WorkforceMember, 0, len(all))
	for _, m := range all {
		if filter.Matches(m) {
			out = append(out, m)
		}
	}
	return out, nil
}
