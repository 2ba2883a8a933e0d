package entityservice

import (
	"context"

	"gorm.io/gorm"

	"github.com/saritasa-nest/saritasa-forge-admin-sub001/internal/store"
)

// runInTransaction runs fn in the transaction attached to ctx, or in a new one.
// The context passed to fn carries the transaction so lifecycle callbacks and
// store calls share it.
func (s *Service) runInTransaction(ctx context.Context, fn func(ctx context.Context, tx *gorm.DB) error) error {
	if ctxTx, ok := store.TransactionFromContext(ctx); ok {
		return fn(ctx, ctxTx.WithContext(ctx))
	}

	return s.store.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(store.WithTransaction(ctx, tx), tx)
	})
}
