package admin

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/saritasa-nest/saritasa-forge-admin-sub001/internal/observability"
)

// ObservabilityConfig configures OpenTelemetry-based observability for the service.
type ObservabilityConfig struct {
	// TracerProvider for distributed tracing. Nil keeps tracing disabled.
	TracerProvider trace.TracerProvider

	// MeterProvider for metrics collection. Nil keeps metrics disabled.
	MeterProvider metric.MeterProvider

	// ServiceName identifies the admin service in telemetry data.
	// Default: "forgeadmin"
	ServiceName string

	// ServiceVersion is the version of the admin service.
	ServiceVersion string

	// EnableDetailedDBTracing adds a span for every GORM operation.
	EnableDetailedDBTracing bool

	// EnableServerTiming records search, read and write durations, and every
	// database statement, as Server-Timing metrics on the request context.
	// Hosts expose them with github.com/mitchellh/go-server-timing middleware.
	EnableServerTiming bool
}

// SetObservability configures OpenTelemetry-based observability for the service.
// Call it before serving requests.
//
// Example:
//
//	tp := sdktrace.NewTracerProvider(...)
//	mp := sdkmetric.NewMeterProvider(...)
//	err := service.SetObservability(admin.ObservabilityConfig{
//	    TracerProvider: tp,
//	    MeterProvider:  mp,
//	    ServiceName:    "backoffice",
//	})
func (s *Service) SetObservability(cfg ObservabilityConfig) error {
	opts := []observability.Option{}

	if cfg.TracerProvider != nil {
		opts = append(opts, observability.WithTracerProvider(cfg.TracerProvider))
	}
	if cfg.MeterProvider != nil {
		opts = append(opts, observability.WithMeterProvider(cfg.MeterProvider))
	}
	if cfg.ServiceName != "" {
		opts = append(opts, observability.WithServiceName(cfg.ServiceName))
	}
	if cfg.ServiceVersion != "" {
		opts = append(opts, observability.WithServiceVersion(cfg.ServiceVersion))
	}
	if s.logger != nil {
		opts = append(opts, observability.WithLogger(s.logger))
	}
	if cfg.EnableDetailedDBTracing {
		opts = append(opts, observability.WithDetailedDBTracing())
	}
	if cfg.EnableServerTiming {
		opts = append(opts, observability.WithServerTiming())
	}

	obsCfg := observability.NewConfig(opts...)
	if err := obsCfg.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}

	s.observability = obsCfg
	s.resolver.SetObservability(obsCfg)
	s.entities.SetObservability(obsCfg)

	if cfg.EnableDetailedDBTracing {
		if err := observability.RegisterGORMCallbacks(s.db, obsCfg); err != nil {
			return fmt.Errorf("failed to register GORM callbacks: %w", err)
		}
	}
	if cfg.EnableServerTiming {
		if err := observability.RegisterServerTimingCallbacks(s.db); err != nil {
			return fmt.Errorf("failed to register server timing callbacks: %w", err)
		}
	}

	return nil
}
