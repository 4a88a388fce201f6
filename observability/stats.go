package observability

import (
	"context"
	"runtime"
	"strings"
	"sync"

	"github.com/samber/lo"
	otelruntime "go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterPrefix = "xcontainer"

var (
	once sync.Once
)

// Meter returns the named meter of the global provider,
// "xcontainer/<name>" or "xcontainer/default".
func Meter(name string) metric.Meter {
	builder := &strings.Builder{}
	builder.WriteString(meterPrefix)
	builder.WriteString("/")
	if len(strings.TrimSpace(name)) > 0 {
		builder.WriteString(name)
	} else {
		builder.WriteString("default")
	}
	return otel.Meter(
		builder.String(),
		metric.WithInstrumentationVersion(otelruntime.Version()),
	)
}

// Lener is a container reporting its number of elements.
type Lener interface {
	Len() int64
}

// ObserveLen registers an observable gauge "container.len" reporting
// the length of c, labelled by name.
func ObserveLen(meter metric.Meter, name string, c Lener) (metric.Int64ObservableGauge, error) {
	attrs := metric.WithAttributes(attribute.String("container", name))
	return meter.Int64ObservableGauge(
		"container.len",
		metric.WithDescription("The number of elements in the container."),
		metric.WithInt64Callback(func(_ context.Context, ob metric.Int64Observer) error {
			ob.Observe(c.Len(), attrs)
			return nil
		}),
	)
}

type appStats struct {
	ctx              context.Context
	shutdownCallback func(ctx context.Context) error
	goroutines       metric.Int64ObservableUpDownCounter
}

func (stats *appStats) waitForShutdown() {
	if stats == nil || stats.shutdownCallback == nil {
		return
	}
	go func() {
		<-stats.ctx.Done()
		_ = stats.shutdownCallback(context.Background())
	}()
}

// InitRuntimeStats starts the go runtime metrics on the global provider
// once. shutdown is called after ctx is done.
func InitRuntimeStats(ctx context.Context, name string, shutdown func(ctx context.Context) error) {
	once.Do(func() {
		stats := &appStats{
			ctx:              ctx,
			shutdownCallback: shutdown,
			goroutines: lo.Must[metric.Int64ObservableUpDownCounter](Meter(name).Int64ObservableUpDownCounter(
				"app.core.goroutines",
				metric.WithDescription(`The application goroutines' info.`),
				metric.WithInt64Callback(func(ctx context.Context, ob metric.Int64Observer) error {
					ob.Observe(int64(runtime.NumGoroutine()))
					return nil
				}),
			)),
		}
		_ = otelruntime.Start()
		stats.waitForShutdown()
	})
}
