package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/garage-service/internal/domain"
)

func TestMemoryCollection_CRUD(t *testing.T) {
	ctx := context.Background()
	vendors := NewMemoryCollection[domain.Vendor](CollectionVendors)

	v := &domain.Vendor{ID: "v1", Name: "Bosch", Status: domain.VendorStatusActive}
	require.NoError(t, vendors.Insert(ctx, v.ID, v))
	assert.ErrorIs(t, vendors.Insert(ctx, v.ID, v), ErrDuplicate)

	got, err := vendors.Get(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, "Bosch", got.Name)

	// stored documents are isolated from the caller's copy
	got.Name = "changed"
	again, err := vendors.Get(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, "Bosch", again.Name)

	v.Status = domain.VendorStatusInactive
	require.NoError(t, vendors.Replace(ctx, v.ID, v))
	found, err := vendors.FindBy(ctx, "status", "Inactive")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "v1", found[0].ID)

	assert.ErrorIs(t, vendors.Replace(ctx, "missing", v), ErrNotFound)
	_, err = vendors.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryCollection_ListKeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	items := NewMemoryCollection[domain.CatalogItem](CollectionCatalog)
	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, items.Insert(ctx, id, &domain.CatalogItem{ID: id}))
	}

	all, err := items.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"c", "a", "b"}, []string{all[0].ID, all[1].ID, all[2].ID})
}

func TestMemoryCollection_UniqueField(t *testing.T) {
	ctx := context.Background()
	invoices := NewMemoryCollection[domain.Invoice](CollectionInvoices, WithUnique("ticketId"))

	require.NoError(t, invoices.Insert(ctx, "inv-1", &domain.Invoice{ID: "inv-1", TicketID: "t1"}))
	assert.ErrorIs(t, invoices.Insert(ctx, "inv-2", &domain.Invoice{ID: "inv-2", TicketID: "t1"}), ErrDuplicate)
	require.NoError(t, invoices.Insert(ctx, "inv-3", &domain.Invoice{ID: "inv-3", TicketID: "t2"}))

	// re-saving the owner is fine, stealing another ticket is not
	require.NoError(t, invoices.Replace(ctx, "inv-1", &domain.Invoice{ID: "inv-1", TicketID: "t1", Status: domain.InvoiceStatusPaid}))
	assert.ErrorIs(t, invoices.Replace(ctx, "inv-3", &domain.Invoice{ID: "inv-3", TicketID: "t1"}), ErrDuplicate)

	// moving to a free value releases the old one
	require.NoError(t, invoices.Replace(ctx, "inv-3", &domain.Invoice{ID: "inv-3", TicketID: "t3"}))
	require.NoError(t, invoices.Insert(ctx, "inv-4", &domain.Invoice{ID: "inv-4", TicketID: "t2"}))
}

func TestMemoryCollection_ReplaceRejectsStaleVersion(t *testing.T) {
	ctx := context.Background()
	vendors := NewMemoryCollection[domain.Vendor](CollectionVendors)
	require.NoError(t, vendors.Insert(ctx, "v1", &domain.Vendor{ID: "v1", Name: "Bosch", Status: domain.VendorStatusActive}))

	first, err := vendors.Get(ctx, "v1")
	require.NoError(t, err)
	second, err := vendors.Get(ctx, "v1")
	require.NoError(t, err)

	first.Name = "Bosch Spares"
	require.NoError(t, vendors.Replace(ctx, "v1", first))
	assert.Equal(t, int64(1), first.Version)

	second.Status = domain.VendorStatusInactive
	assert.ErrorIs(t, vendors.Replace(ctx, "v1", second), ErrStale)
	assert.Equal(t, int64(0), second.Version, "a rejected write leaves the caller's version alone")

	stored, err := vendors.Get(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, "Bosch Spares", stored.Name)
	assert.Equal(t, domain.VendorStatusActive, stored.Status)

	// re-reading picks up the new version
	stored.Status = domain.VendorStatusInactive
	require.NoError(t, vendors.Replace(ctx, "v1", stored))
	assert.Equal(t, int64(2), stored.Version)
}

func TestMemoryCollection_UniqueLinkFieldsIgnoreUnset(t *testing.T) {
	ctx := context.Background()
	amcs := NewMemoryCollection[domain.AMC](CollectionAMCs, WithUnique("renewalOfId"))

	require.NoError(t, amcs.Insert(ctx, "a1", &domain.AMC{ID: "a1"}))
	require.NoError(t, amcs.Insert(ctx, "a2", &domain.AMC{ID: "a2"}))
	require.NoError(t, amcs.Insert(ctx, "a3", &domain.AMC{ID: "a3", RenewalOfID: "a1"}))
	assert.ErrorIs(t, amcs.Insert(ctx, "a4", &domain.AMC{ID: "a4", RenewalOfID: "a1"}), ErrDuplicate)
}

func TestMemoryTicketRepository_ListWithFilter(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTicketRepository()
	base := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

	seed := []struct {
		id, title, vehicle, tech string
		status                   domain.TicketStatus
	}{
		{"t1", "Brake noise", "MH12AB1234", "Ravi", domain.TicketStatusOpen},
		{"t2", "Oil change", "MH12AB9999", "Ravi", domain.TicketStatusTechnicianAssigned},
		{"t3", "AC not cooling", "KA01ZZ0001", "Meena", domain.TicketStatusTechnicianAssigned},
	}
	for i, s := range seed {
		tk := domain.NewTicket(s.id, "TKT-"+s.id, base.Add(time.Duration(i)*time.Hour))
		tk.Title = s.title
		tk.VehicleNumber = s.vehicle
		tk.Technician = s.tech
		tk.Status = s.status
		require.NoError(t, repo.Insert(ctx, tk.ID, tk))
	}

	ravi := "Ravi"
	got, err := repo.ListWithFilter(ctx, TicketFilter{Technician: &ravi})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "t2", got[0].ID, "newest first")

	got, err = repo.ListWithFilter(ctx, TicketFilter{Statuses: []domain.TicketStatus{domain.TicketStatusTechnicianAssigned}})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	vehicle := "mh-12 ab 1234"
	got, err = repo.ListWithFilter(ctx, TicketFilter{VehicleNumber: &vehicle})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "t1", got[0].ID)

	term := "  COOLING "
	got, err = repo.ListWithFilter(ctx, TicketFilter{SearchTerm: &term})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "t3", got[0].ID)

	from := base.Add(30 * time.Minute)
	got, err = repo.ListWithFilter(ctx, TicketFilter{CreatedFrom: &from, Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "t2", got[0].ID)

	got, err = repo.ListWithFilter(ctx, TicketFilter{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMemoryWorkforceRepository_ListWithFilter(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryWorkforceRepository()
	require.NoError(t, repo.Insert(ctx, "u1", &domain.WorkforceMember{ID: "u1", Role: domain.WorkforceRoleTechnician, Active: true}))
	require.NoError(t, repo.Insert(ctx, "u2", &domain.WorkforceMember{ID: "u2", Role: domain.WorkforceRoleAdvisor, Active: true}))
	require.NoError(t, repo.Insert(ctx, "u3", &domain.WorkforceMember{ID: "u3", Role: domain.WorkforceRoleTechnician}))

	tech := domain.WorkforceRoleTechnician
	active := true
	got, err := repo.ListWithFilter(ctx, WorkforceFilter{Role: &tech, Active: &active})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "u1", got[0].ID)
}
