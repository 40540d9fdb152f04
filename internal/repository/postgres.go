package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// pgCollection stores documents as JSONB rows of the shared documents table.
type pgCollection[T any] struct {
	pool *pgxpool.Pool
	name string
}

// NewCollection returns a Postgres-backed collection. Unique options are enforced
// by the indexes created in the migrations, so they are not consulted here.
func NewCollection[T any](pool *pgxpool.Pool, name string, _ ...CollectionOption) Collection[T] {
	return &pgCollection[T]{pool: pool, name: name}
}

func (c *pgCollection[T]) Name() string { return c.name }

func (c *pgCollection[T]) Insert(ctx context.Context, id string, doc *T) error {
	const query = `
        INSERT INTO documents (collection, id, data)
        VALUES ($1,$2,$3)`
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	_, err = c.pool.Exec(ctx, query, c.name, id, raw)
	return mapPgError(err)
}

func (c *pgCollection[T]) Replace(ctx context.Context, id string, doc *T) error {
	versioned, expected, hasVersion := versionOf(doc)
	if !hasVersion {
		const query = `
        UPDATE documents SET data=$3, updated_at=NOW()
        WHERE collection=$1 AND id=$2`
		raw, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		cmd, err := c.pool.Exec(ctx, query, c.name, id, raw)
		if err != nil {
			return mapPgError(err)
		}
		if cmd.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	}

	const query = `
        UPDATE documents SET data=$3, updated_at=NOW()
        WHERE collection=$1 AND id=$2 AND COALESCE((data->>'version')::bigint, 0)=$4`
	versioned.SetDocumentVersion(expected + 1)
	raw, err := json.Marshal(doc)
	if err != nil {
		versioned.SetDocumentVersion(expected)
		return err
	}
	cmd, err := c.pool.Exec(ctx, query, c.name, id, raw, expected)
	if err == nil && cmd.RowsAffected() == 0 {
		err = c.missingOrStale(ctx, id)
	}
	if err != nil {
		versioned.SetDocumentVersion(expected)
		return mapPgError(err)
	}
	return nil
}

// missingOrStale explains a versioned update that matched no row.
func (c *pgCollection[T]) missingOrStale(ctx context.Context, id string) error {
	const query = `SELECT EXISTS (SELECT 1 FROM documents WHERE collection=$1 AND id=$2)`
	var exists bool
	if err := c.pool.QueryRow(ctx, query, c.name, id).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return ErrStale
	}
	return ErrNotFound
}

func (c *pgCollection[T]) Get(ctx context.Context, id string) (*T, error) {
	const query = `SELECT data FROM documents WHERE collection=$1 AND id=$2`
	var raw []byte
	if err := c.pool.QueryRow(ctx, query, c.name, id).Scan(&raw); err != nil {
		return nil, mapPgError(err)
	}
	return decode[T](raw)
}

func (c *pgCollection[T]) List(ctx context.Context) ([]*T, error) {
	const query = `SELECT data FROM documents WHERE collection=$1 ORDER BY created_at, id`
	rows, err := c.pool.Query(ctx, query, c.name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDocuments[T](rows)
}

func (c *pgCollection[T]) FindBy(ctx context.Context, field, value string) ([]*T, error) {
	const query = `SELECT data FROM documents WHERE collection=$1 AND data->>$2 = $3 ORDER BY created_at, id`
	rows, err := c.pool.Query(ctx, query, c.name, field, value)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDocuments[T](rows)
}

func scanDocuments[T any](rows pgx.Rows) ([]*T, error) {
	var result []*T
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		doc, err := decode[T](raw)
		if err != nil {
			return nil, err
		}
		result = append(result, doc)
	}
	return result, rows.Err()
}

func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicate
	}
	return err
}
