package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/joao-fontenele/chopflow/internal/config"
	"github.com/joao-fontenele/chopflow/internal/domain"
	"github.com/joao-fontenele/chopflow/internal/messaging"
	"github.com/joao-fontenele/chopflow/internal/notify"
	"github.com/joao-fontenele/chopflow/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}))

	if !cfg.Kafka.Enabled() {
		logger.Error("KAFKA_BROKERS environment variable is required")
		os.Exit(1)
	}
	if cfg.Email.ServiceURL == "" {
		logger.Error("EMAIL_SERVICE_URL environment variable is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, cfg.Telemetry)
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	consumer := messaging.NewConsumer(cfg.Kafka.Brokers, domain.TopicPaymentConfirmed, cfg.Kafka.GroupID)
	defer func() { _ = consumer.Close() }()

	httpClient := &http.Client{
		Timeout:   10 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	receipts := notify.NewReceiptSender(cfg.Email.ServiceURL, httpClient, logger)

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		<-stop
		logger.Info("shutting down")
		cancel()
	}()

	logger.Info("starting receipt worker", "brokers", cfg.Kafka.Brokers, "group_id", cfg.Kafka.GroupID)

	if err := consumer.Consume(ctx, receipts.Handle); err != nil {
		logger.Error("consumer error", "error", err)
		os.Exit(1)
	}
	logger.Info("consumer stopped")
}
