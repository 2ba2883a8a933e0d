// Package resolver builds the admin metadata graph from the raw entity model and
// the host configuration.
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"github.com/saritasa-nest/saritasa-forge-admin-sub001/internal/cache"
	"github.com/saritasa-nest/saritasa-forge-admin-sub001/internal/introspect"
	"github.com/saritasa-nest/saritasa-forge-admin-sub001/internal/metadata"
	"github.com/saritasa-nest/saritasa-forge-admin-sub001/internal/observability"
	"github.com/saritasa-nest/saritasa-forge-admin-sub001/internal/options"
)

// DefaultMaxNavigationDepth is used when neither the options nor the entity set a depth.
const DefaultMaxNavigationDepth = 1

// Config configures a Resolver. Zero values select defaults.
type Config struct {
	// MaxNavigationDepth is the fallback depth when options do not set one.
	// Negative values disable nested navigations.
	MaxNavigationDepth *int
	Logger             *slog.Logger
	Observability      *observability.Config
}

// Resolver resolves and caches the metadata graph.
type Resolver struct {
	provider     introspect.Provider
	options      *options.Options
	cache        *cache.GraphCache
	defaultDepth int
	logger       *slog.Logger
	obs          *observability.Config
}

// New returns a resolver over provider and opts.
func New(provider introspect.Provider, opts *options.Options, cfg Config) *Resolver {
	if opts == nil {
		opts = options.New()
	}
	depth := DefaultMaxNavigationDepth
	if cfg.MaxNavigationDepth != nil {
		depth = max(*cfg.MaxNavigationDepth, 0)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		provider:     provider,
		options:      opts,
		cache:        cache.New(),
		defaultDepth: depth,
		logger:       logger,
		obs:          cfg.Observability,
	}
}

// SetLogger replaces the logger. A nil logger selects slog.Default.
func (r *Resolver) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	r.logger = logger
}

// SetObservability replaces the observability configuration.
func (r *Resolver) SetObservability(cfg *observability.Config) {
	r.obs = cfg
}

// Cache returns the graph cache.
func (r *Resolver) Cache() *cache.GraphCache {
	return r.cache
}

// Invalidate drops the cached graph.
func (r *Resolver) Invalidate() {
	r.cache.Invalidate()
	r.logger.Debug("Metadata cache invalidated")
}

// GetMetadata returns the cached graph, resolving it on a miss.
func (r *Resolver) GetMetadata(ctx context.Context) (*metadata.Graph, error) {
	if g, ok := r.cache.Peek(); ok {
		r.obs.Metrics().RecordCacheHit(ctx)
		return g, nil
	}
	r.obs.Metrics().RecordCacheMiss(ctx)
	return r.cache.Get(ctx, r.Resolve)
}

// Resolve builds a fresh graph without consulting the cache.
func (r *Resolver) Resolve(ctx context.Context) (*metadata.Graph, error) {
	start := time.Now()
	ctx, span := r.obs.Tracer().StartMetadataResolve(ctx)
	defer span.End()
	timing := r.obs.StartServerTiming(ctx, "metadata")
	defer timing.Stop()

	raws, err := r.provider.Entities(ctx)
	if err != nil {
		observability.RecordError(span, err)
		return nil, fmt.Errorf("failed to read entity model: %w", err)
	}

	base := make(map[reflect.Type]*metadata.EntityMetadata, len(raws))
	var included []*metadata.EntityMetadata
	for _, raw := range raws {
		eo, configured := r.options.Entity(raw.Type)
		attrs, _ := metadata.ReadEntityAttributes(raw.Type)

		e := r.buildEntity(raw, eo, attrs)
		base[raw.Type] = e

		if r.options.IncludeAllEntities || configured || attrs.Include {
			included = append(included, e)
		}
	}

	for _, e := range included {
		for _, nav := range e.Navigations {
			r.expandNavigation(nav, e.Type, base, e.MaxNavigationDepth)
		}
	}

	assignIdentifiers(included)
	graph := metadata.NewGraph(included)

	r.obs.Metrics().RecordResolve(ctx, time.Since(start), len(included))
	r.logger.Debug("Resolved admin metadata",
		"entities", len(included),
		"model_entities", len(raws),
		"fingerprint", graph.Fingerprint,
		"duration", time.Since(start),
	)
	if len(included) == 0 && len(raws) > 0 && !r.options.IncludeAllEntities {
		r.logger.Warn("No entities matched the admin configuration", "model_entities", len(raws))
	}
	return graph, nil
}

// expandNavigation fills the target tree of nav, descending while remaining depth allows.
func (r *Resolver) expandNavigation(nav *metadata.NavigationMetadata, owner reflect.Type, base map[reflect.Type]*metadata.EntityMetadata, remaining int) {
	target, ok := base[nav.TargetType]
	if !ok {
		return
	}
	nav.TargetEntityName = target.Name

	var navOpts *options.NavigationOptions
	if eo, ok := r.options.Entity(owner); ok {
		navOpts, _ = eo.Navigation(nav.Name)
	}

	props := make([]*metadata.PropertyMetadata, 0, len(target.Properties))
	for _, tp := range target.Properties {
		c := tp.Clone()
		if navOpts != nil {
			if po, ok := navOpts.TargetProperty(tp.Name); ok {
				po.PropertyOverrides.ApplyProperty(c)
			}
		}
		props = append(props, c)
	}
	sortByOrder(props, func(p *metadata.PropertyMetadata) *int { return p.Order })
	nav.TargetEntityProperties = props
	nav.TargetEntityNavigations = []*metadata.NavigationMetadata{}

	if remaining <= 0 {
		return
	}
	for _, tn := range target.Navigations {
		c := tn.Clone()
		r.expandNavigation(c, target.Type, base, remaining-1)
		nav.TargetEntityNavigations = append(nav.TargetEntityNavigations, c)
	}
}
