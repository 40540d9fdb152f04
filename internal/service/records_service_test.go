package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/garage-service/internal/domain"
	"github.com/spec-kit/garage-service/internal/events"
	"github.com/spec-kit/garage-service/internal/repository"
	apperrors "github.com/spec-kit/garage-service/pkg/util/errorutil"
)

func TestCatalog_CreateAndList(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.catalog.CreateItem(ctx, testStaff, CatalogItemInput{Name: "wheel alignment", Kind: domain.ItemKindService, Price: *dec("600"), GSTRate: *dec("18"), Stock: 5})
	require.NoError(t, err)
	part, err := h.catalog.CreateItem(ctx, testStaff, CatalogItemInput{Name: "Air filter", Kind: domain.ItemKindPart, Price: *dec("300"), GSTRate: *dec("28"), Stock: 12})
	require.NoError(t, err)
	assert.Equal(t, 12, part.Stock)

	all, err := h.catalog.ListItems(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Air filter", all[0].Name)
	assert.Equal(t, 0, all[1].Stock)

	kind := domain.ItemKindPart
	parts, err := h.catalog.ListItems(ctx, &kind)
	require.NoError(t, err)
	require.Len(t, parts, 1)

	_, err = h.catalog.CreateItem(ctx, testStaff, CatalogItemInput{Name: "Bad", Kind: "gadget", Price: *dec("-5"), GSTRate: *dec("101")})
	domainErr := requireCode(t, err, apperrors.CodeValidation, http.StatusBadRequest)
	fields := domainErr.Details["fields"].(map[string]string)
	assert.Equal(t, "oneof", fields["kind"])
	assert.Equal(t, "gte", fields["price"])
	assert.Equal(t, "range", fields["gstRate"])
}

func TestVendor_StatusChanges(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	vendor, err := h.vendors.CreateVendor(ctx, testStaff, VendorInput{Name: "Bosch Service", Email: "parts@bosch.example"})
	require.NoError(t, err)
	assert.Equal(t, domain.VendorStatusActive, vendor.Status)

	blacklisted, err := h.vendors.ChangeStatus(ctx, testStaff, vendor.ID, domain.VendorStatusBlacklisted)
	require.NoError(t, err)
	assert.Len(t, blacklisted.StatusHistory, 2)

	_, err = h.vendors.ChangeStatus(ctx, testStaff, vendor.ID, "Archived")
	requireCode(t, err, apperrors.CodeInvalidTransition, http.StatusBadRequest)

	status := domain.VendorStatusBlacklisted
	listed, err := h.vendors.ListVendors(ctx, &status)
	require.NoError(t, err)
	require.Len(t, listed, 1)

	_, err = h.vendors.CreateVendor(ctx, testStaff, VendorInput{Name: "x", Email: "not-an-email"})
	requireCode(t, err, apperrors.CodeValidation, http.StatusBadRequest)
}

func newContract(t *testing.T, h *harness) *domain.AMC {
	t.Helper()
	amc, err := h.amcs.CreateAMC(context.Background(), testStaff, AMCInput{
		CustomerID:    "cust-1",
		CustomerName:  "Asha Rao",
		VehicleNumber: "KA01AB1234",
		PlanName:      "Gold",
		StartDate:     testNow.AddDate(-1, 0, 10),
		EndDate:       testNow.AddDate(0, 0, 10),
		Price:         *dec("12000"),
	})
	require.NoError(t, err)
	return amc
}

func TestAMC_Renew(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	amc := newContract(t, h)

	old, renewed, err := h.amcs.Renew(ctx, testStaff, amc.ID, dec("13000"))
	require.NoError(t, err)
	assert.Equal(t, domain.AMCStatusRenewed, old.Status)
	assert.Equal(t, renewed.ID, old.RenewedByID)
	assert.Equal(t, domain.AMCStatusActive, renewed.Status)
	assert.Equal(t, amc.EndDate, renewed.StartDate)
	assert.Equal(t, amc.EndDate.Sub(amc.StartDate), renewed.EndDate.Sub(renewed.StartDate))
	assert.Equal(t, "13000", renewed.Price.String())

	stored, err := h.amcs.GetAMC(ctx, renewed.ID)
	require.NoError(t, err)
	assert.Equal(t, "Gold", stored.PlanName)

	_, _, err = h.amcs.Renew(ctx, testStaff, amc.ID, nil)
	require.Error(t, err)
	all, err := h.amcs.ListAMCs(ctx, AMCListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestAMC_StatusRules(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	amc := newContract(t, h)

	_, err := h.amcs.ChangeStatus(ctx, testStaff, amc.ID, domain.AMCStatusRenewed)
	requireCode(t, err, apperrors.CodeInvalidTransition, http.StatusConflict)

	soon, err := h.amcs.ListAMCs(ctx, AMCListFilter{ExpiringWithin: 30 * 24 * time.Hour})
	require.NoError(t, err)
	assert.Len(t, soon, 1)

	cancelled, err := h.amcs.ChangeStatus(ctx, testStaff, amc.ID, domain.AMCStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, domain.AMCStatusCancelled, cancelled.Status)

	_, _, err = h.amcs.Renew(ctx, testStaff, amc.ID, nil)
	requireCode(t, err, apperrors.CodeInvalidTransition, http.StatusConflict)

	_, err = h.amcs.CreateAMC(ctx, testStaff, AMCInput{
		CustomerName: "x", VehicleNumber: "y", PlanName: "z",
		StartDate: testNow, EndDate: testNow.Add(-time.Hour),
	})
	domainErr := requireCode(t, err, apperrors.CodeValidation, http.StatusBadRequest)
	assert.Equal(t, "gtfield", domainErr.Details["fields"].(map[string]string)["endDate"])
}

func TestQuote_ConvertToSalesOrder(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	quote, err := h.quotes.CreateQuote(ctx, testStaff, QuoteInput{
		CustomerName: "Fleet Co",
		Branch:       "Indiranagar",
		Items:        brakeJob(),
	})
	require.NoError(t, err)
	assert.Regexp(t, `^QT-`, quote.QuoteNumber)
	assert.Equal(t, "850", quote.Total.String())
	assert.Len(t, quote.Items, 2)

	_, _, err = h.quotes.Convert(ctx, testStaff, quote.ID)
	requireCode(t, err, apperrors.CodeInvalidTransition, http.StatusConflict)

	_, err = h.quotes.ChangeStatus(ctx, testStaff, quote.ID, domain.QuoteStatusSent)
	require.NoError(t, err)
	_, err = h.quotes.ChangeStatus(ctx, testStaff, quote.ID, domain.QuoteStatusAccepted)
	require.NoError(t, err)
	_, err = h.quotes.ChangeStatus(ctx, testStaff, quote.ID, domain.QuoteStatusConverted)
	requireCode(t, err, apperrors.CodeInvalidTransition, http.StatusConflict)

	converted, order, err := h.quotes.Convert(ctx, testStaff, quote.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.QuoteStatusConverted, converted.Status)
	assert.Equal(t, order.ID, converted.SalesOrderID)
	assert.Equal(t, quote.ID, order.QuoteID)
	assert.Equal(t, domain.SalesOrderStatusPending, order.Status)
	assert.Equal(t, "850", order.Total.String())

	_, _, err = h.quotes.Convert(ctx, testStaff, quote.ID)
	requireCode(t, err, apperrors.CodeConflict, http.StatusConflict)

	fulfilled, err := h.quotes.ChangeSalesOrderStatus(ctx, testStaff, order.ID, domain.SalesOrderStatusFulfilled)
	require.NoError(t, err)
	assert.Equal(t, domain.SalesOrderStatusFulfilled, fulfilled.Status)

	orders, err := h.quotes.ListSalesOrders(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, orders, 1)
	assert.Contains(t, h.eventTypes(repository.CollectionSalesOrders), events.EventCreated)
}

func TestQuote_RequiresItems(t *testing.T) {
	h := newHarness(t)
	_, err := h.quotes.CreateQuote(context.Background(), testStaff, QuoteInput{CustomerName: "A", Branch: "B"})
	domainErr := requireCode(t, err, apperrors.CodeValidation, http.StatusBadRequest)
	assert.Equal(t, "required", domainErr.Details["fields"].(map[string]string)["items"])
}

func TestWorkforce_Attendance(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	a := h.createTechnician(t, "A")
	b := h.createTechnician(t, "B")
	h.createTechnician(t, "C")
	gone := h.createTechnician(t, "D")

	_, err := h.workforce.CheckIn(ctx, testStaff, a.ID)
	require.NoError(t, err)
	_, err = h.workforce.CheckIn(ctx, testStaff, gone.ID)
	require.NoError(t, err)
	_, err = h.workforce.SetActive(ctx, testStaff, gone.ID, false)
	require.NoError(t, err)

	att, err := h.workforce.Attendance(ctx)
	require.NoError(t, err)
	assert.Equal(t, Attendance{Present: 1, Total: 3, Percentage: 33.3}, att)

	_, err = h.workforce.CheckIn(ctx, testStaff, gone.ID)
	requireCode(t, err, apperrors.CodeConflict, http.StatusConflict)

	// yesterday's check-ins do not count today
	h.advance(24 * time.Hour)
	_, err = h.workforce.CheckIn(ctx, testStaff, b.ID)
	require.NoError(t, err)
	att, err = h.workforce.Attendance(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, att.Present)
}

func TestWorkforce_EmptyRosterHasZeroAttendance(t *testing.T) {
	h := newHarness(t)
	att, err := h.workforce.Attendance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Attendance{}, att)
}
