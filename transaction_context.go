package admin

import (
	"context"

	"gorm.io/gorm"

	"github.com/saritasa-nest/saritasa-forge-admin-sub001/internal/store"
)

// TransactionFromContext returns the transaction of the write operation that
// invoked a lifecycle action. Create and update actions also receive it as
// their tx argument; other host code running within the operation reads it
// from the context.
func TransactionFromContext(ctx context.Context) (*gorm.DB, bool) {
	return store.TransactionFromContext(ctx)
}

// WithTransaction makes service calls using ctx join tx instead of opening
// their own transaction. The caller commits or rolls back tx.
func WithTransaction(ctx context.Context, tx *gorm.DB) context.Context {
	return store.WithTransaction(ctx, tx)
}
