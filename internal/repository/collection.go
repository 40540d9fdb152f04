package repository

import (
	"context"
	"errors"
)

// Collection names, matching the document store layout the clients already use.
const (
	CollectionTickets     = "complaints"
	CollectionInvoices    = "invoices"
	CollectionCatalog     = "inventory"
	CollectionVendors     = "vendors"
	CollectionAMCs        = "amcs"
	CollectionQuotes      = "quotes"
	CollectionSalesOrders = "salesOrders"
	CollectionUsers       = "users"
)

var (
	// ErrNotFound is returned when no document has the requested id.
	ErrNotFound = errors.New("document not found")
	// ErrDuplicate is returned when an id or unique field value is already taken.
	ErrDuplicate = errors.New("duplicate document")
	// ErrStale is returned when Replace is given a document older than the stored one.
	ErrStale = errors.New("document changed since it was read")
)

// Versioned documents are replaced only if their version still matches the stored
// one. A successful Replace advances the caller's copy to the new version.
type Versioned interface {
	DocumentVersion() int64
	SetDocumentVersion(int64)
}

// versionOf reports the expected stored version of doc, if it carries one.
func versionOf(doc any) (Versioned, int64, bool) {
	v, ok := doc.(Versioned)
	if !ok {
		return nil, 0, false
	}
	return v, v.DocumentVersion(), true
}

// Collection persists JSON documents of one type keyed by id.
// Writes are per-document; there are no cross-document transactions.
type Collection[T any] interface {
	Name() string
	Insert(ctx context.Context, id string, doc *T) error
	// Replace overwrites a stored document. Versioned documents fail with ErrStale
	// when another write landed since they were read.
	Replace(ctx context.Context, id string, doc *T) error
	Get(ctx context.Context, id string) (*T, error)
	// List returns every document in creation order.
	List(ctx context.Context) ([]*T, error)
	// FindBy returns documents whose top-level field equals value.
	FindBy(ctx context.Context, field, value string) ([]*T, error)
}

type collectionOptions struct {
	unique []string
}

// CollectionOption customises a collection.
type CollectionOption func(*collectionOptions)

// WithUnique rejects inserts and replaces that would give two documents the same
// value for field. The Postgres backend enforces this through a unique index.
func WithUnique(field string) CollectionOption {
	return func(o *collectionOptions) {
		o.unique = append(o.unique, field)
	}
}

func buildOptions(opts []CollectionOption) collectionOptions {
	var o collectionOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
