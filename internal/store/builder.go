package store

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/saritasa-nest/saritasa-forge-admin-sub001/internal/scope"
)

// sqlBuilder accumulates the clauses of a compiled list query. The same clauses
// render to a parameterized statement with ToSQL or are applied to a GORM chain.
type sqlBuilder struct {
	dialect  Dialect
	table    string
	selects  []string
	joins    []scope.QueryScope
	wheres   []scope.QueryScope
	orderBys []string
	limit    *int
	offset   int
}

func newSQLBuilder(dialect Dialect, table string) *sqlBuilder {
	return &sqlBuilder{dialect: dialect, table: table}
}

// Select sets the SELECT columns for the query
func (qb *sqlBuilder) Select(cols ...string) *sqlBuilder {
	qb.selects = append(qb.selects, cols...)
	return qb
}

// Join adds a JOIN clause to the query
func (qb *sqlBuilder) Join(sql string, args ...any) *sqlBuilder {
	qb.joins = append(qb.joins, scope.New(sql, args...))
	return qb
}

// Where adds a WHERE condition to the query
func (qb *sqlBuilder) Where(s scope.QueryScope) *sqlBuilder {
	if !s.IsZero() {
		qb.wheres = append(qb.wheres, s)
	}
	return qb
}

// OrderBy adds an ORDER BY term to the query
func (qb *sqlBuilder) OrderBy(order string) *sqlBuilder {
	qb.orderBys = append(qb.orderBys, order)
	return qb
}

func (qb *sqlBuilder) Limit(n int) *sqlBuilder {
	qb.limit = &n
	return qb
}

func (qb *sqlBuilder) Offset(n int) *sqlBuilder {
	qb.offset = n
	return qb
}

// Clone creates a copy that can be extended without affecting qb.
func (qb *sqlBuilder) Clone() *sqlBuilder {
	clone := &sqlBuilder{
		dialect:  qb.dialect,
		table:    qb.table,
		selects:  append([]string{}, qb.selects...),
		joins:    append([]scope.QueryScope{}, qb.joins...),
		wheres:   append([]scope.QueryScope{}, qb.wheres...),
		orderBys: append([]string{}, qb.orderBys...),
		offset:   qb.offset,
	}
	if qb.limit != nil {
		limitCopy := *qb.limit
		clone.limit = &limitCopy
	}
	return clone
}

// ToSQL builds the SELECT statement with parameterized arguments.
func (qb *sqlBuilder) ToSQL() (string, []any) {
	var sql strings.Builder
	sql.WriteString("SELECT ")
	if len(qb.selects) > 0 {
		sql.WriteString(strings.Join(qb.selects, ", "))
	} else {
		sql.WriteString("*")
	}
	args := qb.writeFrom(&sql)

	if len(qb.orderBys) > 0 {
		sql.WriteString(" ORDER BY ")
		sql.WriteString(strings.Join(qb.orderBys, ", "))
	}

	if qb.limit != nil {
		fmt.Fprintf(&sql, " LIMIT %d", *qb.limit)
	} else if qb.offset > 0 && qb.dialect == MySQL {
		// MySQL requires LIMIT when OFFSET is used
		sql.WriteString(" LIMIT 18446744073709551615")
	}
	if qb.offset > 0 {
		fmt.Fprintf(&sql, " OFFSET %d", qb.offset)
	}
	return qb.dialect.placeholders(sql.String()), args
}

// ToCountSQL builds the COUNT(*) statement over the same rows.
func (qb *sqlBuilder) ToCountSQL() (string, []any) {
	var sql strings.Builder
	sql.WriteString("SELECT COUNT(*)")
	args := qb.writeFrom(&sql)
	return qb.dialect.placeholders(sql.String()), args
}

func (qb *sqlBuilder) writeFrom(sql *strings.Builder) []any {
	var args []any
	if qb.table != "" {
		sql.WriteString(" FROM ")
		sql.WriteString(qb.dialect.Quote(qb.table))
	}
	for _, j := range qb.joins {
		sql.WriteString(" ")
		sql.WriteString(j.Condition)
		args = append(args, j.Args...)
	}
	if len(qb.wheres) > 0 {
		sql.WriteString(" WHERE ")
		conditions := make([]string, 0, len(qb.wheres))
		for _, w := range qb.wheres {
			conditions = append(conditions, w.Condition)
			args = append(args, w.Args...)
		}
		sql.WriteString(strings.Join(conditions, " AND "))
	}
	return args
}

// applyFilter adds the joins and conditions to db.
func (qb *sqlBuilder) applyFilter(db *gorm.DB) *gorm.DB {
	for _, j := range qb.joins {
		db = db.Joins(j.Condition, j.Args...)
	}
	for _, w := range qb.wheres {
		db = w.Apply(db)
	}
	return db
}

// applyWindow adds the projection, ordering and paging to db.
func (qb *sqlBuilder) applyWindow(db *gorm.DB) *gorm.DB {
	if len(qb.selects) > 0 {
		db = db.Select(strings.Join(qb.selects, ", "))
	}
	for _, o := range qb.orderBys {
		db = db.Order(o)
	}
	if qb.limit != nil {
		db = db.Limit(*qb.limit)
	}
	if qb.offset > 0 {
		db = db.Offset(qb.offset)
	}
	return db
}
