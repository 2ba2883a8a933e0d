// Package admin derives an administrative back office from GORM models.
//
// A Service inspects registered models, merges what it finds with struct tags,
// AdminEntity methods and host options, and exposes the result as a metadata
// graph: entities with ordered properties, navigations expanded to a bounded
// depth, search and sort eligibility, and capability flags. The same metadata
// drives list queries (search, ordering, paging, projection) and instance
// reads and writes, so no per-entity code is needed.
//
// # Configuration
//
// Struct tags describe individual properties:
//
//	type Product struct {
//	    ID    int
//	    Name  string `admin:"order=1,search=contains,required,maxlength=120"`
//	    Sku   string `admin:"search=starts-with,display=SKU"`
//	    Notes string `admin:"hidden-list"`
//	    Shop  *Shop  `admin:"search=contains"`
//	}
//
// An optional AdminEntity method describes the entity itself:
//
//	func (Product) AdminEntity() admin.EntityAttributes {
//	    return admin.EntityAttributes{Group: "Catalog", Include: true}
//	}
//
// Options built with NewOptionsBuilder override both:
//
//	opts := admin.NewOptionsBuilder().
//	    ConfigureEntity(Product{}, func(e *admin.EntityOptionsBuilder) {
//	        e.SetPluralName("Catalog items").
//	            SetSearchFunction(func(ctx context.Context, db *gorm.DB, term string) *gorm.DB {
//	                return db.Where("sku = ?", term)
//	            })
//	    }).
//	    Options()
//
// # Lifecycle actions
//
// Create and update actions run inside the write transaction and abort it by
// returning an error. The after update action runs once the transaction has
// committed; its error is logged and does not affect the result. Callbacks that
// need the active transaction read it with TransactionFromContext.
package admin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/saritasa-nest/saritasa-forge-admin-sub001/internal/cache"
	"github.com/saritasa-nest/saritasa-forge-admin-sub001/internal/entityservice"
	"github.com/saritasa-nest/saritasa-forge-admin-sub001/internal/introspect"
	"github.com/saritasa-nest/saritasa-forge-admin-sub001/internal/observability"
	"github.com/saritasa-nest/saritasa-forge-admin-sub001/internal/options"
	"github.com/saritasa-nest/saritasa-forge-admin-sub001/internal/query"
	"github.com/saritasa-nest/saritasa-forge-admin-sub001/internal/resolver"
	"github.com/saritasa-nest/saritasa-forge-admin-sub001/internal/store"
)

// Config controls optional service behaviours. Zero values select defaults.
type Config struct {
	// MaxNavigationDepth is the navigation depth used when the options set none.
	// Default: 1. A negative value disables nested navigations.
	MaxNavigationDepth int

	// DefaultPageSize is the page size of list requests that do not set one.
	// Default: 25.
	DefaultPageSize int

	// MaxPageSize caps the page size of list requests. Default: 500.
	MaxPageSize int

	// SplitSearchTerms searches each white space separated term on its own and
	// requires every term to match.
	SplitSearchTerms bool

	// AllowListPolicy, when set to KeepAllIfEmpty, overrides the policy of the options.
	AllowListPolicy AllowListPolicy

	// KeyCodec encodes composite primary keys. Default: parts joined with "--".
	KeyCodec KeyCodec
}

const (
	// DefaultMaxNavigationDepth is the default depth of nested navigations.
	DefaultMaxNavigationDepth = resolver.DefaultMaxNavigationDepth

	// DefaultPageSize is the default number of instances per list page.
	DefaultPageSize = query.DefaultPageSize

	// DefaultMaxPageSize is the default cap on requested page sizes.
	DefaultMaxPageSize = query.DefaultMaxPageSize
)

// Service resolves admin metadata and runs entity operations.
type Service struct {
	db       *gorm.DB
	provider *introspect.GormProvider
	resolver *resolver.Resolver
	entities *entityservice.Service
	logger   *slog.Logger

	observability *observability.Config
	invalidator   *cache.RedisInvalidator
}

// NewService creates a service over db for the given models. Models reachable
// from them through relationships are discovered automatically. A nil opts
// includes only models marked by their AdminEntity method.
func NewService(db *gorm.DB, opts *Options, models ...any) (*Service, error) {
	return NewServiceWithConfig(db, opts, Config{}, models...)
}

// NewServiceWithConfig creates a service with additional configuration.
func NewServiceWithConfig(db *gorm.DB, opts *Options, cfg Config, models ...any) (*Service, error) {
	if db == nil {
		return nil, fmt.Errorf("admin: database handle is required")
	}
	if opts == nil {
		opts = options.New()
	}
	if cfg.AllowListPolicy != options.ClearIfEmpty {
		opts.AllowListPolicy = cfg.AllowListPolicy
	}

	depth := cfg.MaxNavigationDepth
	switch {
	case depth == 0:
		depth = DefaultMaxNavigationDepth
	case depth < 0:
		depth = 0
	}
	maxPage := cfg.MaxPageSize
	if maxPage <= 0 {
		maxPage = DefaultMaxPageSize
	}
	defaultPage := cfg.DefaultPageSize
	if defaultPage <= 0 {
		defaultPage = min(DefaultPageSize, maxPage)
	}
	if defaultPage > maxPage {
		return nil, fmt.Errorf("admin: default page size %d exceeds max page size %d", defaultPage, maxPage)
	}

	logger := slog.Default()
	provider := introspect.NewGormProvider(db, models...)
	st := store.New(db)
	st.SetLogger(logger)

	return &Service{
		db:       db,
		provider: provider,
		resolver: resolver.New(provider, opts, resolver.Config{MaxNavigationDepth: &depth, Logger: logger}),
		entities: entityservice.New(st, entityservice.Config{
			KeyCodec: cfg.KeyCodec,
			Query: query.Builder{
				DefaultPageSize:  defaultPage,
				MaxPageSize:      maxPage,
				SplitSearchTerms: cfg.SplitSearchTerms,
			},
			Logger: logger,
		}),
		logger: logger,
	}, nil
}

// SetLogger sets a custom logger for the service.
// If logger is nil, slog.Default() is used.
func (s *Service) SetLogger(logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	s.logger = logger
	s.resolver.SetLogger(logger)
	s.entities.SetLogger(logger)
	return nil
}

// DB returns the database handle of the service.
func (s *Service) DB() *gorm.DB {
	return s.db
}

// RegisterEntity adds models after construction and drops the cached metadata.
func (s *Service) RegisterEntity(models ...any) error {
	for _, m := range models {
		if m == nil {
			return fmt.Errorf("admin: model must not be nil")
		}
		if _, err := introspect.ParseSchema(s.db, reflect.TypeOf(m)); err != nil {
			return fmt.Errorf("admin: %w", err)
		}
	}
	s.provider.Register(models...)
	s.resolver.Invalidate()
	return nil
}

// GetMetadata returns the metadata graph, resolving it on first use and
// serving it from the cache afterwards.
func (s *Service) GetMetadata(ctx context.Context) (*Graph, error) {
	return s.resolver.GetMetadata(ctx)
}

// GetEntities returns the visible entities grouped for navigation menus.
func (s *Service) GetEntities(ctx context.Context) ([]GroupedEntities, error) {
	g, err := s.GetMetadata(ctx)
	if err != nil {
		return nil, err
	}
	return g.Grouped(), nil
}

// GetEntityByID returns the entity with the given resolution id.
func (s *Service) GetEntityByID(ctx context.Context, id uuid.UUID) (*EntityMetadata, error) {
	g, err := s.GetMetadata(ctx)
	if err != nil {
		return nil, err
	}
	e, ok := g.ByID(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEntityNotFound, id)
	}
	return e, nil
}

// GetEntityByStringID returns the entity with the given url identifier.
func (s *Service) GetEntityByStringID(ctx context.Context, id string) (*EntityMetadata, error) {
	g, err := s.GetMetadata(ctx)
	if err != nil {
		return nil, err
	}
	e, ok := g.ByStringID(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrEntityNotFound, id)
	}
	return e, nil
}

// GetEntityFor returns the entity of model, a value or pointer of a model type.
func (s *Service) GetEntityFor(ctx context.Context, model any) (*EntityMetadata, error) {
	g, err := s.GetMetadata(ctx)
	if err != nil {
		return nil, err
	}
	e, ok := g.ByType(reflect.TypeOf(model))
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrEntityNotFound, model)
	}
	return e, nil
}

// InvalidateMetadata drops the cached metadata so the next request resolves it
// again. With Redis invalidation enabled the other processes drop theirs too.
func (s *Service) InvalidateMetadata(ctx context.Context) error {
	s.resolver.Invalidate()
	if s.invalidator != nil {
		return s.invalidator.Publish(ctx)
	}
	return nil
}

// EnableRedisInvalidation shares metadata invalidations between processes over
// Redis pub/sub. An empty channel selects the default channel. The returned
// function stops listening.
func (s *Service) EnableRedisInvalidation(ctx context.Context, client redis.UniversalClient, channel string) (func() error, error) {
	inv, err := cache.NewRedisInvalidator(client, channel, s.resolver, s.logger)
	if err != nil {
		return nil, fmt.Errorf("admin: %w", err)
	}
	stop, err := inv.Listen(ctx)
	if err != nil {
		return nil, err
	}
	s.invalidator = inv
	s.logger.Info("Redis metadata invalidation enabled", "channel", inv.Channel())
	return stop, nil
}

// CacheStats reports metadata cache usage.
func (s *Service) CacheStats() CacheStats {
	return s.resolver.Cache().Stats()
}
