package store

import (
	"context"

	"gorm.io/gorm"
)

// Context keys for request-scoped values
type contextKey string

const transactionDBKey contextKey = "forgeadmin_transaction_db"

// WithTransaction attaches an active transaction to ctx. Store calls and
// lifecycle callbacks receiving ctx use it instead of opening their own.
func WithTransaction(ctx context.Context, tx *gorm.DB) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, transactionDBKey, tx)
}

// TransactionFromContext retrieves the active transaction stored in ctx.
func TransactionFromContext(ctx context.Context) (*gorm.DB, bool) {
	if ctx == nil {
		return nil, false
	}
	tx, ok := ctx.Value(transactionDBKey).(*gorm.DB)
	if !ok || tx == nil {
		return nil, false
	}
	return tx, true
}
