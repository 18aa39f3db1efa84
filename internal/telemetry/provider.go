package telemetry

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/joao-fontenele/chopflow/internal/config"
)

// InitTracerProvider exports spans over OTLP/gRPC. When telemetry is disabled
// only the propagator is installed, so trace context still flows through
// Kafka headers and outbound requests.
func InitTracerProvider(ctx context.Context, cfg config.TelemetryConfig) (func(context.Context) error, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(newResource(cfg)),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}

func newResource(cfg config.TelemetryConfig) *resource.Resource {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
	)
}

// WithHTTPRoute wraps an http.HandlerFunc to add the http.route attribute
// to the current span using the request's Pattern.
// This works around otelhttp not adding the route attribute after routing.
func WithHTTPRoute(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Pattern != "" {
			span := oteltrace.SpanFromContext(r.Context())
			span.SetAttributes(semconv.HTTPRoute(r.Pattern))
		}
		h(w, r)
	}
}
