package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/fieldstock/fieldstock-backend/internal/spares/consumers"
	"github.com/fieldstock/fieldstock-backend/internal/spares/events"
	"github.com/fieldstock/fieldstock-backend/internal/spares/handler"
	"github.com/fieldstock/fieldstock-backend/internal/spares/movement"
	"github.com/fieldstock/fieldstock-backend/internal/spares/repository"
	"github.com/fieldstock/fieldstock-backend/internal/spares/service"
	"github.com/fieldstock/fieldstock-backend/pkg/auth"
	"github.com/fieldstock/fieldstock-backend/pkg/config"
	"github.com/fieldstock/fieldstock-backend/pkg/database"
	"github.com/fieldstock/fieldstock-backend/pkg/httputil"
	"github.com/fieldstock/fieldstock-backend/pkg/logger"
	"github.com/fieldstock/fieldstock-backend/pkg/messaging"
)

func main() {
	// Load configuration with validation (fails fast in production if required config is missing)
	cfg, err := config.LoadWithValidation("spares-service")
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New("spares-service", cfg.Server.Environment)
	log.Info().Msg("starting Spares Service")

	// Connect to database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Connect to RabbitMQ
	rmq, err := messaging.New(&cfg.RabbitMQ, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer rmq.Close()

	// Initialize event publisher
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeSpareEvents, "spares-service", log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create event publisher")
	}
	eventPublisher := events.NewSpareEventPublisher(publisher, log)

	// Initialize repositories
	spareRepo := repository.NewSpareRepository(db)
	locationRepo := repository.NewLocationRepository(db)
	inventoryRepo := repository.NewInventoryRepository(db)
	movementRepo := repository.NewMovementRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	mslRepo := repository.NewMSLRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)

	// Initialize services
	table := movement.DefaultTable()
	requestService := service.NewRequestService(requestRepo, eventPublisher, log)
	approvalService := service.NewApprovalService(db, table, inventoryRepo, movementRepo, requestRepo, eventPublisher, log)
	consumptionService := service.NewConsumptionService(db, table, inventoryRepo, movementRepo, eventPublisher, log)
	pricingService := service.NewPricingService(invoiceRepo, spareRepo, log)
	scanner := service.NewMSLScanner(inventoryRepo, locationRepo, mslRepo, requestRepo, eventPublisher, log)

	// Initialize handlers
	spareHandler := handler.NewSpareHandler(spareRepo, pricingService, log)
	locationHandler := handler.NewLocationHandler(locationRepo, log)
	inventoryHandler := handler.NewInventoryHandler(inventoryRepo, log)
	requestHandler := handler.NewRequestHandler(requestService, approvalService, log)
	movementHandler := handler.NewMovementHandler(movementRepo, approvalService, log)
	mslHandler := handler.NewMSLHandler(mslRepo, scanner, log)
	consumptionHandler := handler.NewConsumptionHandler(consumptionService, log)
	invoiceHandler := handler.NewInvoiceHandler(invoiceRepo, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start the movement event consumer
	movementConsumer, err := consumers.NewMovementEventConsumer(rmq, movementRepo, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create movement event consumer")
	}
	if err := movementConsumer.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start movement event consumer")
	}

	// Start the periodic MSL scan
	var scheduler *service.ScanScheduler
	if cfg.Scanner.Enabled {
		scheduler = service.NewScanScheduler(scanner, cfg.Scanner.Interval, log)
		scheduler.Start(ctx)
	}

	// JWT auth
	authManager := auth.NewManager(&cfg.JWT)

	// Create router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))
	r.Use(httputil.Auth(authManager))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]interface{}{
			"status":   "healthy",
			"service":  "spares-service",
			"database": db.Health(r.Context()),
			"rabbitmq": rmq.Health(),
		})
	})

	// API routes
	r.Route("/api/v1/spares", func(r chi.Router) {
		// Spare master data
		r.Route("/parts", func(r chi.Router) {
			r.Get("/", spareHandler.List)
			r.Post("/", spareHandler.Create)
			r.Get("/{id}", spareHandler.Get)
			r.Get("/{id}/return-price", spareHandler.ReturnPrice)
			r.Get("/{id}/msl", mslHandler.ListBySpare)
		})

		// Locations
		r.Route("/locations", func(r chi.Router) {
			r.Get("/", locationHandler.List)
			r.Post("/", locationHandler.Create)
			r.Get("/{id}", locationHandler.Get)
		})

		// Stock ledger
		r.Route("/inventory", func(r chi.Router) {
			r.Get("/", inventoryHandler.List)
			r.Get("/item", inventoryHandler.Get)
			r.Get("/availability", inventoryHandler.Availability)
		})

		// Requests
		r.Route("/requests", func(r chi.Router) {
			r.Get("/", requestHandler.List)
			r.Post("/", requestHandler.Create)
			r.Get("/{id}", requestHandler.Get)
			r.Post("/{id}/approve", requestHandler.Approve)
			r.Post("/{id}/cancel", requestHandler.Cancel)
		})

		// Movements
		r.Route("/movements", func(r chi.Router) {
			r.Get("/", movementHandler.List)
			r.Get("/{id}", movementHandler.Get)
			r.Post("/{id}/complete", movementHandler.Complete)
		})

		// MSL thresholds
		r.Route("/msl", func(r chi.Router) {
			r.Post("/", mslHandler.Create)
			r.Delete("/{id}", mslHandler.Deactivate)
			r.Post("/scan", mslHandler.Scan)
		})

		// Consumption
		r.Post("/consumptions", consumptionHandler.Create)

		// Purchase invoices
		r.Post("/invoices", invoiceHandler.Create)
	})

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Stop the scan scheduler
	if scheduler != nil {
		scheduler.Stop()
	}
	cancel()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
