package observability

// https://opentelemetry.io/docs/languages/go/exporters/

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/benz9527/xcontainer/lib/infra"
)

// ShutdownFunc flushes and stops the installed meter provider.
type ShutdownFunc func(ctx context.Context) error

// installMeterProvider makes the reader the source of the global
// meter provider, the allocator and container instruments report to it.
func installMeterProvider(reader sdkmetric.Reader) ShutdownFunc {
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(mp)
	return mp.Shutdown
}

// NewConsoleMetricsExporter prints the metrics every interval.
// For test and dev environment.
func NewConsoleMetricsExporter(interval, timeout time.Duration, opts ...stdoutmetric.Option) (ShutdownFunc, error) {
	exp, err := stdoutmetric.New(opts...)
	if err != nil {
		return nil, infra.WrapErrorStackWithMessage(err, "[observability] stdout metrics exporter")
	}
	return installMeterProvider(sdkmetric.NewPeriodicReader(exp,
		sdkmetric.WithInterval(interval),
		sdkmetric.WithTimeout(timeout),
	)), nil
}

// NewPrometheusMetricsExporter registers the metrics into the prometheus
// default registerer unless another is given by the options. The
// metrics are pulled by the prometheus HTTP handler.
func NewPrometheusMetricsExporter(opts ...prometheus.Option) (ShutdownFunc, error) {
	reader, err := prometheus.New(opts...)
	if err != nil {
		return nil, infra.WrapErrorStackWithMessage(err, "[observability] prometheus metrics exporter")
	}
	return installMeterProvider(reader), nil
}
