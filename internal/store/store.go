// Package store executes admin query plans against a GORM connection.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	"github.com/saritasa-nest/saritasa-forge-admin-sub001/internal/introspect"
	"github.com/saritasa-nest/saritasa-forge-admin-sub001/internal/metadata"
	"github.com/saritasa-nest/saritasa-forge-admin-sub001/internal/query"
	"github.com/saritasa-nest/saritasa-forge-admin-sub001/internal/scope"
)

// Store runs plans and key lookups.
type Store struct {
	db      *gorm.DB
	dialect Dialect
	logger  *slog.Logger
}

// New returns a store over db.
func New(db *gorm.DB) *Store {
	return &Store{db: db, dialect: DialectOf(db), logger: slog.Default()}
}

// SetLogger replaces the logger. A nil logger selects slog.Default.
func (s *Store) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	s.logger = logger
}

// DB returns the underlying connection.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Dialect returns the SQL dialect of the connection.
func (s *Store) Dialect() Dialect {
	return s.dialect
}

// Conn returns the transaction attached to ctx, or the store connection.
func (s *Store) Conn(ctx context.Context) *gorm.DB {
	if tx, ok := TransactionFromContext(ctx); ok {
		return tx.WithContext(ctx)
	}
	return s.db.WithContext(ctx)
}

// Schema returns the parsed GORM schema of t.
func (s *Store) Schema(t reflect.Type) (*schema.Schema, error) {
	return introspect.ParseSchema(s.db, t)
}

func (s *Store) compile(plan *query.Plan) (*sqlBuilder, error) {
	sch, err := s.Schema(plan.Entity.Type)
	if err != nil {
		return nil, err
	}
	return newCompiler(s.dialect, sch).compile(plan)
}

// Statement renders plan as a parameterized SELECT statement. Custom query
// and search functions are host code and are not part of the statement.
func (s *Store) Statement(plan *query.Plan) (string, []any, error) {
	qb, err := s.compile(plan)
	if err != nil {
		return "", nil, err
	}
	sql, args := qb.ToSQL()
	return sql, args, nil
}

// Search runs plan and returns the page of instances with the total count.
//
// The custom query function is applied first, then the metadata search
// predicate, then the custom search function, then ordering and paging.
func (s *Store) Search(ctx context.Context, plan *query.Plan) (*query.Result, error) {
	qb, err := s.compile(plan)
	if err != nil {
		return nil, err
	}

	e := plan.Entity
	tx := s.Conn(ctx).Model(e.New())
	if plan.CustomQuery != nil {
		tx = plan.CustomQuery(ctx, tx)
	}
	tx = qb.applyFilter(tx)
	if plan.SearchFunction != nil && plan.Search != "" {
		tx = plan.SearchFunction(ctx, tx, plan.Search)
	}
	tx = tx.Session(&gorm.Session{})

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count %s: %w", e.Name, err)
	}

	sql, args := qb.ToSQL()
	s.logger.Debug("Executing query", "entity", e.Name, "sql", sql, "args", args)

	q := qb.applyWindow(tx)
	for _, inc := range plan.Include {
		q = q.Preload(inc)
	}
	dest := e.NewSlice()
	if err := q.Find(dest).Error; err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", e.Name, err)
	}

	return &query.Result{Items: items(dest), Total: total, Page: plan.Page}, nil
}

// Get loads the instance with the given key values, preloading include.
// It returns gorm.ErrRecordNotFound, wrapped, when no row matches.
func (s *Store) Get(ctx context.Context, e *metadata.EntityMetadata, keys []any, include []string) (any, error) {
	where, err := s.KeyScope(e, keys)
	if err != nil {
		return nil, err
	}
	tx := where.Apply(s.Conn(ctx).Model(e.New()))
	for _, inc := range include {
		tx = tx.Preload(inc)
	}
	dest := e.New()
	if err := tx.Take(dest).Error; err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", e.Name, err)
	}
	return dest, nil
}

// KeyScope returns the condition selecting the row with the given key values.
func (s *Store) KeyScope(e *metadata.EntityMetadata, keys []any) (scope.QueryScope, error) {
	pks := e.PrimaryKeys()
	if len(pks) == 0 || len(pks) != len(keys) {
		return scope.QueryScope{}, fmt.Errorf("%w: %s expects %d key values, got %d", query.ErrInvalidKey, e.Name, len(pks), len(keys))
	}
	parts := make([]scope.QueryScope, 0, len(pks))
	for i, pk := range pks {
		col := s.dialect.Quote(pk.Column)
		if e.Table != "" {
			col = s.dialect.Column(e.Table, pk.Column)
		}
		parts = append(parts, scope.New(col+" = ?", keys[i]))
	}
	return scope.All(parts...), nil
}

// items converts a pointer to a slice of T into pointers to its elements.
func items(slicePtr any) []any {
	v := reflect.ValueOf(slicePtr).Elem()
	out := make([]any, v.Len())
	for i := range out {
		out[i] = v.Index(i).Addr().Interface()
	}
	return out
}
