package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/garage-service/internal/advisory"
	httptransport "github.com/spec-kit/garage-service/internal/api/http"
	"github.com/spec-kit/garage-service/internal/api/http/handlers"
	"github.com/spec-kit/garage-service/internal/auth"
	"github.com/spec-kit/garage-service/internal/branches"
	"github.com/spec-kit/garage-service/internal/config"
	"github.com/spec-kit/garage-service/internal/events"
	"github.com/spec-kit/garage-service/internal/llm"
	"github.com/spec-kit/garage-service/internal/observability"
	"github.com/spec-kit/garage-service/internal/payment"
	"github.com/spec-kit/garage-service/internal/persistence"
	"github.com/spec-kit/garage-service/internal/repository"
	"github.com/spec-kit/garage-service/internal/service"
	"github.com/spec-kit/garage-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	metrics := observability.NewMetrics()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	store := repository.NewMemoryStore()
	if pg.Configured() {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		store = repository.NewPostgresStore(pg.PoolHandle())
	}

	var (
		feed  events.Feed
		redis *persistence.Redis
	)
	if cfg.Feed.Backend == "redis" {
		redis = persistence.NewRedis(ctx, cfg.Redis, logger)
		defer redis.Close()
		feed = events.NewRedisFeed(redis.Client, cfg.Feed.ChannelPrefix, logger)
	} else {
		feed = events.NewMemoryFeed(logger)
	}

	tickets := service.NewTicketService(service.TicketDependencies{
		TicketRepo:    store.Tickets,
		CatalogRepo:   store.Catalog,
		WorkforceRepo: store.Workforce,
		Feed:          feed,
		Metrics:       metrics,
		Logger:        logger,
	})
	invoices := service.NewInvoiceService(service.InvoiceDependencies{
		InvoiceRepo: store.Invoices,
		TicketRepo:  store.Tickets,
		Verifier:    payment.NewVerifier(cfg.Payment.KeySecret),
		Feed:        feed,
		Logger:      logger,
	})
	catalog := service.NewCatalogService(store.Catalog, feed, logger, nil)
	vendors := service.NewVendorService(store.Vendors, feed, logger, nil)
	amcs := service.NewAMCService(store.AMCs, feed, logger, nil)
	quotes := service.NewQuoteService(service.QuoteDependencies{
		QuoteRepo:      store.Quotes,
		SalesOrderRepo: store.SalesOrders,
		CatalogRepo:    store.Catalog,
		Feed:           feed,
		Logger:         logger,
	})
	workforce := service.NewWorkforceService(store.Workforce, feed, logger, nil)
	advisor := advisory.NewService(llm.NewClient(cfg.AI, logger), cfg.AI.Timeout, logger, metrics)

	activitySub := worker.StartActivityWorker(ctx, service.NewActivityService(feed, logger, metrics), logger)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Tickets:        handlers.NewTicketsHandler(tickets, invoices),
		Invoices:       handlers.NewInvoicesHandler(invoices),
		Catalog:        handlers.NewCatalogHandler(catalog),
		Vendors:        handlers.NewVendorsHandler(vendors),
		AMCs:           handlers.NewAMCsHandler(amcs),
		Quotes:         handlers.NewQuotesHandler(quotes),
		Workforce:      handlers.NewWorkforceHandler(workforce),
		Dashboard:      handlers.NewDashboardHandler(service.NewDashboardService(store), feed),
		Export:         handlers.NewExportHandler(service.NewExportService(store)),
		Branches:       handlers.NewBranchesHandler(branches.NewReader(cfg.Branches.FilePath, cfg.Branches.SheetName), logger),
		Advisory:       handlers.NewAdvisoryHandler(advisor, tickets, invoices, amcs),
		Metrics:        metrics,
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	activitySub.Unsubscribe()
	cancel()
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("fiber shutdown", zap.Error(err))
	}
	if err := feed.Close(); err != nil {
		logger.Warn("close feed", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
