package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/runtime"

	"github.com/joao-fontenele/chopflow/internal/auth"
	"github.com/joao-fontenele/chopflow/internal/catalog"
	"github.com/joao-fontenele/chopflow/internal/config"
	"github.com/joao-fontenele/chopflow/internal/domain"
	"github.com/joao-fontenele/chopflow/internal/messaging"
	"github.com/joao-fontenele/chopflow/internal/orders"
	"github.com/joao-fontenele/chopflow/internal/payments"
	"github.com/joao-fontenele/chopflow/internal/reviews"
	"github.com/joao-fontenele/chopflow/internal/server"
	"github.com/joao-fontenele/chopflow/internal/telemetry"
	"github.com/joao-fontenele/chopflow/internal/users"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}))

	if err := cfg.ValidateAPI(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	// Prices and totals go out as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, cfg.Telemetry)
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider(cfg.Telemetry)
	if err != nil {
		logger.Error("failed to initialize meter", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(ctx) }()

	if err := runtime.Start(); err != nil {
		logger.Error("failed to start runtime instrumentation", "error", err)
		os.Exit(1)
	}

	db, err := telemetry.OpenDB(cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	var orderEvents, paymentEvents *messaging.Producer
	if cfg.Kafka.Enabled() {
		orderEvents = messaging.NewProducer(cfg.Kafka.Brokers, domain.TopicOrderCreated)
		defer func() { _ = orderEvents.Close() }()
		paymentEvents = messaging.NewProducer(cfg.Kafka.Brokers, domain.TopicPaymentConfirmed)
		defer func() { _ = paymentEvents.Close() }()
	} else {
		logger.Info("kafka not configured, events are not published")
	}

	if cfg.Payment.MockMode() {
		logger.Warn("payment gateway secret not set: payments run in mock mode and webhook signatures are not checked")
	}

	paymentMetrics, err := telemetry.NewPaymentMetrics()
	if err != nil {
		logger.Error("failed to create payment metrics", "error", err)
		os.Exit(1)
	}

	tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		logger.Error("failed to create token manager", "error", err)
		os.Exit(1)
	}
	authorizer, err := auth.NewAuthorizer()
	if err != nil {
		logger.Error("failed to create authorizer", "error", err)
		os.Exit(1)
	}

	userRepo := users.NewUserRepository(db)
	catalogRepo := catalog.NewCatalogRepository(db)
	orderRepo := orders.NewOrderRepository(db)
	reviewRepo := reviews.NewReviewRepository(db)

	paymentService := payments.NewService(
		cfg.Payment,
		orderRepo,
		userRepo,
		payments.NewClient(cfg.Payment, logger),
		publisherOrNil(paymentEvents),
		paymentMetrics,
		logger,
	)

	router := server.NewRouter(cfg.Server, server.Deps{
		Auth:     auth.NewMiddleware(tokens, userRepo, authorizer, logger),
		Users:    users.NewHandler(userRepo, catalogRepo, tokens, logger),
		Catalog:  catalog.NewHandler(catalogRepo, logger),
		Orders:   orders.NewHandler(orderRepo, catalogRepo, publisherOrNil(orderEvents), logger),
		Payments: payments.NewHandler(paymentService, logger),
		Reviews:  reviews.NewHandler(reviewRepo, orderRepo, logger),
		Metrics:  metricsHandler,
		DB:       db,
	}, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("starting api", "port", cfg.Server.Port, "mock_payments", cfg.Payment.MockMode())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}

// publisherOrNil keeps a nil *Producer from becoming a non-nil interface.
func publisherOrNil(p *messaging.Producer) interface {
	Publish(ctx context.Context, key string, event any) error
} {
	if p == nil {
		return nil
	}
	return p
}
