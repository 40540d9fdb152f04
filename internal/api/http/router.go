package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/garage-service/internal/api/http/handlers"
	"github.com/spec-kit/garage-service/internal/auth"
	"github.com/spec-kit/garage-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	Invoices       *handlers.InvoicesHandler
	Catalog        *handlers.CatalogHandler
	Vendors        *handlers.VendorsHandler
	AMCs           *handlers.AMCsHandler
	Quotes         *handlers.QuotesHandler
	Workforce      *handlers.WorkforceHandler
	Dashboard      *handlers.DashboardHandler
	Export         *handlers.ExportHandler
	Branches       *handlers.BranchesHandler
	Advisory       *handlers.AdvisoryHandler
	Metrics        *observability.Metrics
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Metrics.Registry, promhttp.HandlerOpts{})))
	}

	api := app.Group("/api", cfg.AuthMiddleware.Handle)
	anyRole := auth.RequireAnyRole()
	staff := auth.RequireStaff()

	api.Get("/branches", anyRole, cfg.Branches.List)
	api.Post("/tickets", anyRole, cfg.Tickets.CreateTicket)
	api.Post("/ai/support", anyRole, cfg.Advisory.Support)

	tickets := api.Group("/tickets", staff)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Get("/:id/stream", cfg.Tickets.StreamTicket)
	tickets.Patch("/:id", cfg.Tickets.UpdateTicket)
	tickets.Post("/:id/assign", cfg.Tickets.AssignTechnician)
	tickets.Post("/:id/status", cfg.Tickets.ChangeStatus)
	tickets.Post("/:id/estimate", cfg.Tickets.SetEstimate)
	tickets.Post("/:id/actual", cfg.Tickets.SetActuals)
	tickets.Post("/:id/invoice", cfg.Tickets.CreateInvoice)

	invoices := api.Group("/invoices", staff)
	invoices.Get("/", cfg.Invoices.ListInvoices)
	invoices.Get("/:id", cfg.Invoices.GetInvoice)
	invoices.Post("/:id/pay", cfg.Invoices.MarkPaid)
	invoices.Post("/:id/checkout", cfg.Invoices.StartCheckout)
	invoices.Post("/:id/payment", cfg.Invoices.RecordPayment)

	catalog := api.Group("/catalog", staff)
	catalog.Get("/", cfg.Catalog.ListItems)
	catalog.Post("/", cfg.Catalog.CreateItem)
	catalog.Get("/:id", cfg.Catalog.GetItem)

	vendors := api.Group("/vendors", staff)
	vendors.Get("/", cfg.Vendors.ListVendors)
	vendors.Post("/", cfg.Vendors.CreateVendor)
	vendors.Get("/:id", cfg.Vendors.GetVendor)
	vendors.Post("/:id/status", cfg.Vendors.ChangeStatus)

	amcs := api.Group("/amcs", staff)
	amcs.Get("/", cfg.AMCs.ListAMCs)
	amcs.Post("/", cfg.AMCs.CreateAMC)
	amcs.Get("/:id", cfg.AMCs.GetAMC)
	amcs.Post("/:id/status", cfg.AMCs.ChangeStatus)
	amcs.Post("/:id/renew", cfg.AMCs.Renew)

	quotes := api.Group("/quotes", staff)
	quotes.Get("/", cfg.Quotes.ListQuotes)
	quotes.Post("/", cfg.Quotes.CreateQuote)
	quotes.Get("/:id", cfg.Quotes.GetQuote)
	quotes.Post("/:id/status", cfg.Quotes.ChangeStatus)
	quotes.Post("/:id/convert", cfg.Quotes.Convert)

	orders := api.Group("/sales-orders", staff)
	orders.Get("/", cfg.Quotes.ListSalesOrders)
	orders.Get("/:id", cfg.Quotes.GetSalesOrder)
	orders.Post("/:id/status", cfg.Quotes.ChangeSalesOrderStatus)

	workforce := api.Group("/workforce", staff)
	workforce.Get("/", cfg.Workforce.ListMembers)
	workforce.Post("/", cfg.Workforce.CreateMember)
	workforce.Get("/attendance", cfg.Workforce.Attendance)
	workforce.Post("/:id/check-in", cfg.Workforce.CheckIn)
	workforce.Post("/:id/active", cfg.Workforce.SetActive)

	api.Get("/dashboard", staff, cfg.Dashboard.Summary)
	api.Get("/dashboard/stream", staff, cfg.Dashboard.Stream)
	api.Get("/export/:collection", staff, cfg.Export.Export)

	ai := api.Group("/ai", staff)
	ai.Post("/maintenance", cfg.Advisory.Maintenance)
	ai.Post("/driver-behavior", cfg.Advisory.DriverBehavior)
	ai.Post("/data-analysis", cfg.Advisory.DataAnalysis)
}
