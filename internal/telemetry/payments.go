package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// PaymentMetrics counts reconciliation outcomes. Instruments come from the
// global MeterProvider, so they are no-ops until InitMeterProvider runs.
type PaymentMetrics struct {
	initialized   metric.Int64Counter
	confirmations metric.Int64Counter
	webhooks      metric.Int64Counter
	gatewayErrors metric.Int64Counter
}

func NewPaymentMetrics() (*PaymentMetrics, error) {
	meter := otel.Meter("chopflow/payments")

	initialized, err := meter.Int64Counter("payments.initialized",
		metric.WithDescription("Payment initializations by mode"))
	if err != nil {
		return nil, err
	}
	confirmations, err := meter.Int64Counter("payments.confirmations",
		metric.WithDescription("Paid transitions applied, by source and whether the order changed"))
	if err != nil {
		return nil, err
	}
	webhooks, err := meter.Int64Counter("payments.webhooks",
		metric.WithDescription("Webhook deliveries by outcome"))
	if err != nil {
		return nil, err
	}
	gatewayErrors, err := meter.Int64Counter("payments.gateway_errors",
		metric.WithDescription("Failed calls to the payment gateway by operation"))
	if err != nil {
		return nil, err
	}

	return &PaymentMetrics{
		initialized:   initialized,
		confirmations: confirmations,
		webhooks:      webhooks,
		gatewayErrors: gatewayErrors,
	}, nil
}

func (m *PaymentMetrics) Initialized(ctx context.Context, mode string) {
	m.initialized.Add(ctx, 1, metric.WithAttributes(attribute.String("mode", mode)))
}

func (m *PaymentMetrics) Confirmed(ctx context.Context, source string, changed bool) {
	m.confirmations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", source),
		attribute.Bool("changed", changed),
	))
}

func (m *PaymentMetrics) Webhook(ctx context.Context, outcome string) {
	m.webhooks.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *PaymentMetrics) GatewayError(ctx context.Context, operation string) {
	m.gatewayErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", operation)))
}
