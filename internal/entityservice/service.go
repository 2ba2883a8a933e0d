// Package entityservice reads and writes entity instances described by admin
// metadata.
package entityservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/saritasa-nest/saritasa-forge-admin-sub001/internal/metadata"
	"github.com/saritasa-nest/saritasa-forge-admin-sub001/internal/observability"
	"github.com/saritasa-nest/saritasa-forge-admin-sub001/internal/query"
	"github.com/saritasa-nest/saritasa-forge-admin-sub001/internal/store"
	"github.com/saritasa-nest/saritasa-forge-admin-sub001/internal/validation"
)

// Config configures a Service. Zero values select defaults.
type Config struct {
	// KeyCodec encodes composite primary keys. Defaults to query.DefaultKeyCodec.
	KeyCodec      query.KeyCodec
	Query         query.Builder
	Logger        *slog.Logger
	Observability *observability.Config
}

// Service runs entity operations against a store.
type Service struct {
	store   *store.Store
	codec   query.KeyCodec
	planner query.Builder
	logger  *slog.Logger
	obs     *observability.Config
}

// New returns a service over st.
func New(st *store.Store, cfg Config) *Service {
	codec := cfg.KeyCodec
	if codec == nil {
		codec = query.DefaultKeyCodec
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:   st,
		codec:   codec,
		planner: cfg.Query,
		logger:  logger,
		obs:     cfg.Observability,
	}
}

// SetLogger replaces the logger. A nil logger selects slog.Default.
func (s *Service) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	s.logger = logger
	s.store.SetLogger(logger)
}

// SetObservability replaces the observability configuration.
func (s *Service) SetObservability(cfg *observability.Config) {
	s.obs = cfg
}

// Store returns the underlying store.
func (s *Service) Store() *store.Store {
	return s.store
}

// Key renders the primary key string of instance.
func (s *Service) Key(e *metadata.EntityMetadata, instance any) (string, error) {
	return query.EncodeKey(s.codec, e, instance)
}

// Plan builds the list plan for req without running it.
func (s *Service) Plan(e *metadata.EntityMetadata, req query.Request) (*query.Plan, error) {
	return s.planner.Build(e, req)
}

// Search returns one page of instances matching req.
func (s *Service) Search(ctx context.Context, e *metadata.EntityMetadata, req query.Request) (result *query.Result, err error) {
	start := time.Now()
	ctx, span := s.obs.Tracer().StartEntitySearch(ctx, e.Name, req.Search)
	defer span.End()
	timing := s.obs.StartServerTiming(ctx, "search")
	defer timing.Stop()
	defer func() {
		observability.RecordError(span, err)
		s.obs.Metrics().RecordOperation(ctx, "search", e.Name, time.Since(start), err)
	}()

	plan, err := s.planner.Build(e, req)
	if err != nil {
		return nil, err
	}
	return s.store.Search(ctx, plan)
}

// GetInstance loads the instance with the given primary key string and the
// requested navigations. Other navigations are left unloaded.
func (s *Service) GetInstance(ctx context.Context, e *metadata.EntityMetadata, key string, include []string) (instance any, err error) {
	start := time.Now()
	ctx, span := s.obs.Tracer().StartEntityRead(ctx, e.Name, key)
	defer span.End()
	defer func() {
		observability.RecordError(span, err)
		s.obs.Metrics().RecordOperation(ctx, "read", e.Name, time.Since(start), err)
	}()

	keys, err := query.DecodeKey(s.codec, e, key)
	if err != nil {
		return nil, err
	}
	include, err = query.ResolveIncludes(e, include)
	if err != nil {
		return nil, err
	}

	instance, err = s.store.Get(ctx, e, keys, include)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s %q", ErrInstanceNotFound, e.Name, key)
	}
	if err != nil {
		return nil, err
	}
	return instance, nil
}

// Validate checks instance against the rules of props, or of every property
// of e when props is nil.
func (s *Service) Validate(ctx context.Context, e *metadata.EntityMetadata, instance any, props []*metadata.PropertyMetadata) (bool, *validation.ValidationErrors) {
	if props == nil {
		props = e.Properties
	}
	errs := validation.Validate(ctx, props, instance)
	return !errs.HasErrors(), errs
}

func (s *Service) checkInstance(e *metadata.EntityMetadata, instance any) error {
	if !e.IsInstance(instance) {
		return fmt.Errorf("%w: expected *%s, got %T", ErrMixedEntityTypes, e.Type.Name(), instance)
	}
	return nil
}
