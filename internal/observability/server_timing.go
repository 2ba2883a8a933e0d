package observability

import (
	"context"

	servertiming "github.com/mitchellh/go-server-timing"
)

// ServerTimingMetric times one step for the Server-Timing header.
// A metric started without a timing header in the context is a no-op.
type ServerTimingMetric struct {
	metric *servertiming.Metric
}

// StartServerTiming starts a metric named name.
func StartServerTiming(ctx context.Context, name string) *ServerTimingMetric {
	return StartServerTimingWithDesc(ctx, name, "")
}

// StartServerTimingWithDesc starts a metric with a description.
func StartServerTimingWithDesc(ctx context.Context, name, description string) *ServerTimingMetric {
	header := servertiming.FromContext(ctx)
	if header == nil {
		return &ServerTimingMetric{}
	}
	m := header.NewMetric(name)
	if description != "" {
		m = m.WithDesc(description)
	}
	return &ServerTimingMetric{metric: m.Start()}
}

// Stop ends the metric. It is safe to call on a no-op metric.
func (m *ServerTimingMetric) Stop() {
	if m == nil || m.metric == nil {
		return
	}
	m.metric.Stop()
}

// StartServerTiming starts a metric when Server-Timing is enabled on c.
func (c *Config) StartServerTiming(ctx context.Context, name string) *ServerTimingMetric {
	if !c.ServerTimingEnabled() {
		return &ServerTimingMetric{}
	}
	return StartServerTiming(ctx, name)
}
