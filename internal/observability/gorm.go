package observability

import (
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

const (
	spanInstanceKey   = "forgeadmin:span"
	timingInstanceKey = "forgeadmin:server_timing"
)

type registerFunc func(db *gorm.DB, name string, fn func(*gorm.DB)) error

// callbackProcessor is the part of a GORM callback processor used to find and
// drop callbacks registered by an earlier call.
type callbackProcessor interface {
	Get(name string) func(*gorm.DB)
	Remove(name string) error
}

type gormOperation struct {
	name      string
	processor func(db *gorm.DB) callbackProcessor
	before    registerFunc
	after     registerFunc
}

var gormOperations = []gormOperation{
	{"create",
		func(db *gorm.DB) callbackProcessor { return db.Callback().Create() },
		func(db *gorm.DB, n string, fn func(*gorm.DB)) error { return db.Callback().Create().Before("gorm:create").Register(n, fn) },
		func(db *gorm.DB, n string, fn func(*gorm.DB)) error { return db.Callback().Create().After("gorm:create").Register(n, fn) }},
	{"query",
		func(db *gorm.DB) callbackProcessor { return db.Callback().Query() },
		func(db *gorm.DB, n string, fn func(*gorm.DB)) error { return db.Callback().Query().Before("gorm:query").Register(n, fn) },
		func(db *gorm.DB, n string, fn func(*gorm.DB)) error { return db.Callback().Query().After("gorm:query").Register(n, fn) }},
	{"update",
		func(db *gorm.DB) callbackProcessor { return db.Callback().Update() },
		func(db *gorm.DB, n string, fn func(*gorm.DB)) error { return db.Callback().Update().Before("gorm:update").Register(n, fn) },
		func(db *gorm.DB, n string, fn func(*gorm.DB)) error { return db.Callback().Update().After("gorm:update").Register(n, fn) }},
	{"delete",
		func(db *gorm.DB) callbackProcessor { return db.Callback().Delete() },
		func(db *gorm.DB, n string, fn func(*gorm.DB)) error { return db.Callback().Delete().Before("gorm:delete").Register(n, fn) },
		func(db *gorm.DB, n string, fn func(*gorm.DB)) error { return db.Callback().Delete().After("gorm:delete").Register(n, fn) }},
	{"row",
		func(db *gorm.DB) callbackProcessor { return db.Callback().Row() },
		func(db *gorm.DB, n string, fn func(*gorm.DB)) error { return db.Callback().Row().Before("gorm:row").Register(n, fn) },
		func(db *gorm.DB, n string, fn func(*gorm.DB)) error { return db.Callback().Row().After("gorm:row").Register(n, fn) }},
	{"raw",
		func(db *gorm.DB) callbackProcessor { return db.Callback().Raw() },
		func(db *gorm.DB, n string, fn func(*gorm.DB)) error { return db.Callback().Raw().Before("gorm:raw").Register(n, fn) },
		func(db *gorm.DB, n string, fn func(*gorm.DB)) error { return db.Callback().Raw().After("gorm:raw").Register(n, fn) }},
}

// register adds fn under name, dropping a callback registered under the same
// name by an earlier call so repeated registration leaves a single handler.
func (op gormOperation) register(db *gorm.DB, reg registerFunc, name string, fn func(*gorm.DB)) error {
	p := op.processor(db)
	if p.Get(name) != nil {
		if err := p.Remove(name); err != nil {
			return err
		}
	}
	return reg(db, name, fn)
}

// RegisterGORMCallbacks creates a span around every statement executed through db.
func RegisterGORMCallbacks(db *gorm.DB, cfg *Config) error {
	tracer := cfg.Tracer()
	for _, op := range gormOperations {
		before := func(tx *gorm.DB) {
			ctx, span := tracer.Start(tx.Statement.Context, "gorm."+op.name,
				attribute.String("db.table", tx.Statement.Table))
			tx.Statement.Context = ctx
			tx.InstanceSet(spanInstanceKey, span)
		}
		after := func(tx *gorm.DB) {
			v, ok := tx.InstanceGet(spanInstanceKey)
			if !ok {
				return
			}
			span, ok := v.(trace.Span)
			if !ok {
				return
			}
			span.SetAttributes(
				attribute.String("db.statement", tx.Statement.SQL.String()),
				attribute.Int64("db.rows_affected", tx.RowsAffected),
			)
			RecordError(span, tx.Error)
			span.End()
		}
		if err := op.register(db, op.before, "forgeadmin:trace_before_"+op.name, before); err != nil {
			return fmt.Errorf("failed to register %s trace callback: %w", op.name, err)
		}
		if err := op.register(db, op.after, "forgeadmin:trace_after_"+op.name, after); err != nil {
			return fmt.Errorf("failed to register %s trace callback: %w", op.name, err)
		}
	}
	return nil
}

// RegisterServerTimingCallbacks adds a "db" Server-Timing metric for every statement executed through db.
func RegisterServerTimingCallbacks(db *gorm.DB) error {
	for _, op := range gormOperations {
		before := func(tx *gorm.DB) {
			tx.InstanceSet(timingInstanceKey, StartServerTimingWithDesc(tx.Statement.Context, "db", "Database"))
		}
		after := func(tx *gorm.DB) {
			if v, ok := tx.InstanceGet(timingInstanceKey); ok {
				if m, ok := v.(*ServerTimingMetric); ok {
					m.Stop()
				}
			}
		}
		if err := op.register(db, op.before, "forgeadmin:timing_before_"+op.name, before); err != nil {
			return fmt.Errorf("failed to register %s timing callback: %w", op.name, err)
		}
		if err := op.register(db, op.after, "forgeadmin:timing_after_"+op.name, after); err != nil {
			return fmt.Errorf("failed to register %s timing callback: %w", op.name, err)
		}
	}
	return nil
}
