package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	servertiming "github.com/mitchellh/go-server-timing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestNilConfigIsSafe(t *testing.T) {
	var cfg *Config

	ctx, span := cfg.Tracer().StartEntityRead(context.Background(), "Product", "1")
	RecordError(span, errors.New("boom"))
	span.End()

	cfg.Metrics().RecordCacheHit(ctx)
	cfg.Metrics().RecordOperation(ctx, "update", "Product", time.Millisecond, nil)
	cfg.StartServerTiming(ctx, "resolve").Stop()

	assert.False(t, cfg.ServerTimingEnabled())
	assert.NotNil(t, cfg.Logger())
}

func TestConfigInitialize(t *testing.T) {
	cfg := NewConfig(WithServiceName("admin-test"), WithServiceVersion("1.2.3"), WithServerTiming(), WithDetailedDBTracing())
	require.NoError(t, cfg.Initialize())

	assert.True(t, cfg.ServerTimingEnabled())
	assert.True(t, cfg.DetailedDBTracingEnabled())
	assert.Equal(t, "admin-test", cfg.Tracer().serviceName)

	_, span := cfg.Tracer().StartMetadataResolve(context.Background())
	span.End()
	cfg.Metrics().RecordResolve(context.Background(), 3*time.Millisecond, 4)
}

func TestStartServerTiming(t *testing.T) {
	header := &servertiming.Header{}
	ctx := servertiming.NewContext(context.Background(), header)

	m := StartServerTimingWithDesc(ctx, "metadata", "Metadata resolution")
	time.Sleep(time.Millisecond)
	m.Stop()

	require.Len(t, header.Metrics, 1)
	assert.Equal(t, "metadata", header.Metrics[0].Name)
	assert.Equal(t, "Metadata resolution", header.Metrics[0].Desc)
	assert.Greater(t, header.Metrics[0].Duration, time.Duration(0))
}

func TestStartServerTiming_WithoutHeader(t *testing.T) {
	m := StartServerTiming(context.Background(), "noop")
	assert.Nil(t, m.metric)
	m.Stop()
}

func TestConfigStartServerTiming_Disabled(t *testing.T) {
	header := &servertiming.Header{}
	ctx := servertiming.NewContext(context.Background(), header)

	cfg := NewConfig()
	require.NoError(t, cfg.Initialize())
	cfg.StartServerTiming(ctx, "skipped").Stop()

	assert.Empty(t, header.Metrics)
}

type timedRow struct {
	ID   int
	Name string
}

func TestGORMCallbacks(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&timedRow{}))

	cfg := NewConfig(WithServerTiming(), WithDetailedDBTracing())
	require.NoError(t, cfg.Initialize())
	require.NoError(t, RegisterGORMCallbacks(db, cfg))
	require.NoError(t, RegisterServerTimingCallbacks(db))

	header := &servertiming.Header{}
	ctx := servertiming.NewContext(context.Background(), header)

	require.NoError(t, db.WithContext(ctx).Create(&timedRow{Name: "a"}).Error)
	var rows []timedRow
	require.NoError(t, db.WithContext(ctx).Find(&rows).Error)

	assert.Len(t, rows, 1)
	require.Len(t, header.Metrics, 2)
	for _, m := range header.Metrics {
		assert.Equal(t, "db", m.Name)
	}
}

type countingTracerProvider struct {
	tracenoop.TracerProvider
	spans map[string]int
}

func (p *countingTracerProvider) Tracer(name string, opts ...trace.TracerOption) trace.Tracer {
	return countingTracer{Tracer: p.TracerProvider.Tracer(name, opts...), spans: p.spans}
}

type countingTracer struct {
	trace.Tracer
	spans map[string]int
}

func (t countingTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	t.spans[name]++
	return t.Tracer.Start(ctx, name, opts...)
}

func TestGORMCallbacks_RegisteredTwiceRunOnce(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&timedRow{}))

	tp := &countingTracerProvider{spans: map[string]int{}}
	cfg := NewConfig(WithTracerProvider(tp), WithServerTiming(), WithDetailedDBTracing())
	require.NoError(t, cfg.Initialize())
	for range 2 {
		require.NoError(t, RegisterGORMCallbacks(db, cfg))
		require.NoError(t, RegisterServerTimingCallbacks(db))
	}

	header := &servertiming.Header{}
	ctx := servertiming.NewContext(context.Background(), header)
	var rows []timedRow
	require.NoError(t, db.WithContext(ctx).Find(&rows).Error)

	assert.Equal(t, 1, tp.spans["gorm.query"])
	assert.Len(t, header.Metrics, 1)
}
