package alloc

import (
	"context"
	"errors"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var _ Allocator = (*instrumentedAllocator)(nil)

type instrumentedAllocator struct {
	inner     Allocator
	attrs     metric.MeasurementOption
	allocated metric.Int64Counter
	released  metric.Int64Counter
	failed    metric.Int64Counter
	live      metric.Int64ObservableGauge
}

func (a *instrumentedAllocator) Allocate() (Handle, error) {
	h, err := a.inner.Allocate()
	if err != nil {
		a.failed.Add(context.Background(), 1, a.attrs)
		return h, err
	}
	a.allocated.Add(context.Background(), 1, a.attrs)
	return h, nil
}

func (a *instrumentedAllocator) Deallocate(h Handle) {
	a.inner.Deallocate(h)
	a.released.Add(context.Background(), 1, a.attrs)
}

func (a *instrumentedAllocator) Live() int64 {
	return a.inner.Live()
}

func (a *instrumentedAllocator) Equal(other Allocator) bool {
	return a.inner.Equal(other)
}

func (a *instrumentedAllocator) Unwrap() Allocator {
	return a.inner
}

// NewInstrumentedAllocator decorates inner with OpenTelemetry instruments.
// The name is attached to every measurement as the "allocator" attribute.
func NewInstrumentedAllocator(inner Allocator, meter metric.Meter, name string) (Allocator, error) {
	if inner == nil || meter == nil {
		return nil, errors.New("[alloc] instrumented allocator requires inner allocator and meter")
	}

	attrs := metric.WithAttributes(attribute.String("allocator", name))
	a := &instrumentedAllocator{
		inner: inner,
		attrs: attrs,
		allocated: lo.Must[metric.Int64Counter](meter.Int64Counter(
			"alloc.slots.allocated",
			metric.WithDescription(`The number of slots handed out.`),
		)),
		released: lo.Must[metric.Int64Counter](meter.Int64Counter(
			"alloc.slots.released",
			metric.WithDescription(`The number of slots given back.`),
		)),
		failed: lo.Must[metric.Int64Counter](meter.Int64Counter(
			"alloc.slots.failed",
			metric.WithDescription(`The number of rejected slot allocations.`),
		)),
	}
	a.live = lo.Must[metric.Int64ObservableGauge](meter.Int64ObservableGauge(
		"alloc.slots.live",
		metric.WithDescription(`The number of slots currently reserved.`),
		metric.WithInt64Callback(func(ctx context.Context, ob metric.Int64Observer) error {
			ob.Observe(inner.Live(), attrs)
			return nil
		}),
	))
	return a, nil
}
