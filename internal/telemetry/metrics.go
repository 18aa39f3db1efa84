package telemetry

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/sdk/metric"

	"github.com/joao-fontenele/chopflow/internal/config"
)

// InitMeterProvider initializes the Prometheus exporter and MeterProvider.
// It returns an http.Handler for the /metrics endpoint and a shutdown function.
func InitMeterProvider(cfg config.TelemetryConfig) (http.Handler, func(context.Context) error, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, err
	}

	mp := metric.NewMeterProvider(
		metric.WithReader(exporter),
		metric.WithResource(newResource(cfg)),
	)
	otel.SetMeterProvider(mp)

	return promhttp.Handler(), mp.Shutdown, nil
}
