package scope

import (
	"strings"

	"gorm.io/gorm"
)

// QueryScope represents a SQL condition that can be added to a query.
// It carries a raw SQL predicate and its arguments for safe parameter binding.
type QueryScope struct {
	// Condition is the SQL WHERE clause condition (e.g., "tenant_id = ?")
	Condition string
	// Args contains the parameter values for placeholders in Condition
	Args []any
}

// New returns a scope for condition and args.
func New(condition string, args ...any) QueryScope {
	return QueryScope{Condition: condition, Args: args}
}

// IsZero reports whether the scope carries no condition.
func (s QueryScope) IsZero() bool {
	return s.Condition == ""
}

// Apply adds the scope to db as a WHERE condition. A zero scope leaves db unchanged.
func (s QueryScope) Apply(db *gorm.DB) *gorm.DB {
	if s.IsZero() {
		return db
	}
	return db.Where(s.Condition, s.Args...)
}

// All joins scopes with AND.
func All(scopes ...QueryScope) QueryScope {
	return combine(" AND ", scopes)
}

// Any joins scopes with OR.
func Any(scopes ...QueryScope) QueryScope {
	return combine(" OR ", scopes)
}

func combine(op string, scopes []QueryScope) QueryScope {
	parts := make([]string, 0, len(scopes))
	var args []any
	for _, s := range scopes {
		if s.IsZero() {
			continue
		}
		parts = append(parts, s.Condition)
		args = append(args, s.Args...)
	}
	switch len(parts) {
	case 0:
		return QueryScope{}
	case 1:
		return QueryScope{Condition: parts[0], Args: args}
	default:
		return QueryScope{Condition: "(" + strings.Join(parts, op) + ")", Args: args}
	}
}
