package repository

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/garage-service/internal/domain"
)

// One invoice per ticket, and a gateway order or payment settles at most one invoice.
var invoiceOptions = []CollectionOption{
	WithUnique("ticketId"),
	WithUnique("gatewayOrderId"),
	WithUnique("gatewayPaymentId"),
}

// Store bundles every collection the services work with.
type Store struct {
	Tickets     TicketRepository
	Invoices    Collection[domain.Invoice]
	Catalog     Collection[domain.CatalogItem]
	Vendors     Collection[domain.Vendor]
	AMCs        Collection[domain.AMC]
	Quotes      Collection[domain.Quote]
	SalesOrders Collection[domain.SalesOrder]
	Workforce   WorkforceRepository
}

// NewPostgresStore wires collections onto the documents table.
func NewPostgresStore(pool *pgxpool.Pool) *Store {
	return &Store{
		Tickets:     NewTicketRepository(pool),
		Invoices:    NewCollection[domain.Invoice](pool, CollectionInvoices, invoiceOptions...),
		Catalog:     NewCollection[domain.CatalogItem](pool, CollectionCatalog),
		Vendors:     NewCollection[domain.Vendor](pool, CollectionVendors),
		AMCs:        NewCollection[domain.AMC](pool, CollectionAMCs, WithUnique("renewalOfId")),
		Quotes:      NewCollection[domain.Quote](pool, CollectionQuotes),
		SalesOrders: NewCollection[domain.SalesOrder](pool, CollectionSalesOrders, WithUnique("quoteId")),
		Workforce:   NewWorkforceRepository(pool),
	}
}

// NewMemoryStore builds in-process collections, used when no database is configured and in tests.
func NewMemoryStore() *Store {
	return &Store{
		Tickets:     NewMemoryTicketRepository(),
		Invoices:    NewMemoryCollection[domain.Invoice](CollectionInvoices, invoiceOptions...),
		Catalog:     NewMemoryCollection[domain.CatalogItem](CollectionCatalog),
		Vendors:     NewMemoryCollection[domain.Vendor](CollectionVendors),
		AMCs:        NewMemoryCollection[domain.AMC](CollectionAMCs, WithUnique("renewalOfId")),
		Quotes:      NewMemoryCollection[domain.Quote](CollectionQuotes),
		SalesOrders: NewMemoryCollection[domain.SalesOrder](CollectionSalesOrders, WithUnique("quoteId")),
		Workforce:   NewMemoryWorkforceRepository(),
	}
}
