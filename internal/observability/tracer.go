package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// Attribute keys set on admin spans.
const (
	AttrService     = attribute.Key("service.name")
	AttrEntity      = attribute.Key("admin.entity")
	AttrEntityKey   = attribute.Key("admin.entity.key")
	AttrEntityCount = attribute.Key("admin.entity.count")
	AttrSearchTerm  = attribute.Key("admin.search")
	AttrResultCount = attribute.Key("admin.result.count")
	AttrOperation   = attribute.Key("admin.operation")
)

// Tracer starts spans for admin operations.
type Tracer struct {
	tracer      trace.Tracer
	serviceName string
}

var noopTracer = newTracer(tracenoop.NewTracerProvider().Tracer(instrumentationName), DefaultServiceName)

func newTracer(t trace.Tracer, serviceName string) *Tracer {
	return &Tracer{tracer: t, serviceName: serviceName}
}

// Start starts a span with the service attribute set.
func (t *Tracer) Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, AttrService.String(t.serviceName))
	return t.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// StartMetadataResolve starts the span of a metadata resolution pass.
func (t *Tracer) StartMetadataResolve(ctx context.Context) (context.Context, trace.Span) {
	return t.Start(ctx, "admin.metadata.resolve")
}

// StartEntitySearch starts the span of a list query.
func (t *Tracer) StartEntitySearch(ctx context.Context, entity, search string) (context.Context, trace.Span) {
	return t.Start(ctx, "admin.entity.search", AttrEntity.String(entity), AttrSearchTerm.String(search))
}

// StartEntityRead starts the span of a single instance read.
func (t *Tracer) StartEntityRead(ctx context.Context, entity, key string) (context.Context, trace.Span) {
	return t.Start(ctx, "admin.entity.read", AttrEntity.String(entity), AttrEntityKey.String(key))
}

// StartEntityCreate starts the span of an insert.
func (t *Tracer) StartEntityCreate(ctx context.Context, entity string) (context.Context, trace.Span) {
	return t.Start(ctx, "admin.entity.create", AttrEntity.String(entity))
}

// StartEntityUpdate starts the span of an update.
func (t *Tracer) StartEntityUpdate(ctx context.Context, entity, key string) (context.Context, trace.Span) {
	return t.Start(ctx, "admin.entity.update", AttrEntity.String(entity), AttrEntityKey.String(key))
}

// StartEntityDelete starts the span of a delete of count instances.
func (t *Tracer) StartEntityDelete(ctx context.Context, entity string, count int) (context.Context, trace.Span) {
	return t.Start(ctx, "admin.entity.delete", AttrEntity.String(entity), AttrEntityCount.Int(count))
}

// RecordError marks span as failed when err is not nil.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
