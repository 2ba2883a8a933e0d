package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
)

// Metrics records admin metrics.
type Metrics struct {
	cacheHits         metric.Int64Counter
	cacheMisses       metric.Int64Counter
	resolveDuration   metric.Float64Histogram
	operationCount    metric.Int64Counter
	operationDuration metric.Float64Histogram
}

var noopMetrics = mustNoopMetrics()

func mustNoopMetrics() *Metrics {
	m, err := newMetrics(metricnoop.NewMeterProvider().Meter(instrumentationName))
	if err != nil {
		panic(err)
	}
	return m
}

func newMetrics(meter metric.Meter) (*Metrics, error) {
	var (
		m   Metrics
		err error
	)
	if m.cacheHits, err = meter.Int64Counter("admin.metadata.cache.hits",
		metric.WithDescription("Metadata cache hits")); err != nil {
		return nil, err
	}
	if m.cacheMisses, err = meter.Int64Counter("admin.metadata.cache.misses",
		metric.WithDescription("Metadata cache misses")); err != nil {
		return nil, err
	}
	if m.resolveDuration, err = meter.Float64Histogram("admin.metadata.resolve.duration",
		metric.WithDescription("Duration of metadata resolution"), metric.WithUnit("ms")); err != nil {
		return nil, err
	}
	if m.operationCount, err = meter.Int64Counter("admin.entity.operations",
		metric.WithDescription("Entity operations by kind and outcome")); err != nil {
		return nil, err
	}
	if m.operationDuration, err = meter.Float64Histogram("admin.entity.operation.duration",
		metric.WithDescription("Duration of entity operations"), metric.WithUnit("ms")); err != nil {
		return nil, err
	}
	return &m, nil
}

// RecordCacheHit counts a metadata cache hit.
func (m *Metrics) RecordCacheHit(ctx context.Context) {
	m.cacheHits.Add(ctx, 1)
}

// RecordCacheMiss counts a metadata cache miss.
func (m *Metrics) RecordCacheMiss(ctx context.Context) {
	m.cacheMisses.Add(ctx, 1)
}

// RecordResolve records the duration of a resolution pass.
func (m *Metrics) RecordResolve(ctx context.Context, d time.Duration, entities int) {
	m.resolveDuration.Record(ctx, float64(d.Microseconds())/1000,
		metric.WithAttributes(AttrEntityCount.Int(entities)))
}

// RecordOperation counts an entity operation and records its duration.
func (m *Metrics) RecordOperation(ctx context.Context, operation, entity string, d time.Duration, err error) {
	attrs := metric.WithAttributes(
		AttrOperation.String(operation),
		AttrEntity.String(entity),
		attribute.Bool("error", err != nil),
	)
	m.operationCount.Add(ctx, 1, attrs)
	m.operationDuration.Record(ctx, float64(d.Microseconds())/1000, attrs)
}
