package store

import (
	"fmt"
	"reflect"
	"strings"

	"gorm.io/gorm/schema"

	"github.com/saritasa-nest/saritasa-forge-admin-sub001/internal/metadata"
	"github.com/saritasa-nest/saritasa-forge-admin-sub001/internal/query"
	"github.com/saritasa-nest/saritasa-forge-admin-sub001/internal/scope"
)

// aliasSeparator joins navigation names into table aliases, e.g. "Shop__Address".
const aliasSeparator = "__"

// compiler translates a plan into SQL clauses for one root schema.
//
// Predicates over navigations compile to correlated EXISTS subqueries, which
// works for single and collection navigations alike and never multiplies rows.
// Orderings over navigations use LEFT JOINs; only single navigations are
// orderable.
type compiler struct {
	dialect Dialect
	root    *schema.Schema
	qb      *sqlBuilder
	joined  map[string]bool
}

func newCompiler(dialect Dialect, root *schema.Schema) *compiler {
	return &compiler{
		dialect: dialect,
		root:    root,
		qb:      newSQLBuilder(dialect, root.Table),
		joined:  map[string]bool{},
	}
}

func (c *compiler) compile(plan *query.Plan) (*sqlBuilder, error) {
	if plan.Filter != nil {
		where, err := c.predicate(plan.Filter)
		if err != nil {
			return nil, err
		}
		c.qb.Where(where)
	}

	for _, o := range plan.Order {
		col, err := c.orderColumn(o.Path)
		if err != nil {
			return nil, err
		}
		if o.Descending {
			col += " DESC"
		}
		c.qb.OrderBy(col)
	}

	c.qb.Select(c.selection(plan)...)
	c.qb.Limit(plan.Page.Size).Offset(plan.Page.Offset())
	return c.qb, nil
}

// selection returns the projected columns. Primary and foreign keys are always
// selected so keys can be encoded and navigations loaded.
func (c *compiler) selection(plan *query.Plan) []string {
	if len(plan.Properties) == 0 || len(plan.Include) > 0 {
		return []string{c.dialect.Quote(c.root.Table) + ".*"}
	}
	seen := map[string]bool{}
	var cols []string
	add := func(column string) {
		if column == "" || seen[column] {
			return
		}
		seen[column] = true
		cols = append(cols, c.dialect.Column(c.root.Table, column))
	}
	for _, pk := range c.root.PrimaryFields {
		add(pk.DBName)
	}
	for _, p := range plan.Properties {
		add(p.Column)
	}
	for _, rel := range c.root.Relationships.BelongsTo {
		for _, ref := range rel.References {
			if ref.ForeignKey != nil && !ref.OwnPrimaryKey {
				add(ref.ForeignKey.DBName)
			}
		}
	}
	return cols
}

func (c *compiler) predicate(p query.Predicate) (scope.QueryScope, error) {
	switch x := p.(type) {
	case query.Compare:
		return c.comparePath(x)
	case query.And:
		parts, err := c.predicates(x)
		if err != nil {
			return scope.QueryScope{}, err
		}
		return scope.All(parts...), nil
	case query.Or:
		parts, err := c.predicates(x)
		if err != nil {
			return scope.QueryScope{}, err
		}
		return scope.Any(parts...), nil
	default:
		return scope.QueryScope{}, fmt.Errorf("%w: unsupported predicate %T", query.ErrInvalidQuery, p)
	}
}

func (c *compiler) predicates(ps []query.Predicate) ([]scope.QueryScope, error) {
	parts := make([]scope.QueryScope, 0, len(ps))
	for _, p := range ps {
		part, err := c.predicate(p)
		if err != nil {
			return nil, err
		}
		parts = append(parts, part)
	}
	return parts, nil
}

// comparePath compiles a comparison, nesting one EXISTS per navigation.
func (c *compiler) comparePath(cmp query.Compare) (scope.QueryScope, error) {
	if cmp.Path.Property == nil || cmp.Path.Property.Column == "" {
		return scope.QueryScope{}, fmt.Errorf("%w: %q is not a stored property", query.ErrInvalidQuery, cmp.Path.String())
	}
	return c.exists(c.root, c.root.Table, "", cmp.Path.Navigations, func(alias string) scope.QueryScope {
		return c.compare(cmp, c.dialect.Column(alias, cmp.Path.Property.Column))
	})
}

func (c *compiler) exists(parent *schema.Schema, parentAlias, prefix string, navs []*metadata.NavigationMetadata, leaf func(alias string) scope.QueryScope) (scope.QueryScope, error) {
	if len(navs) == 0 {
		return leaf(parentAlias), nil
	}
	nav := navs[0]
	rel, err := relationship(parent, nav.Name)
	if err != nil {
		return scope.QueryScope{}, err
	}
	alias := joinAlias(prefix, nav.Name)

	inner, err := c.exists(rel.FieldSchema, alias, alias, navs[1:], leaf)
	if err != nil {
		return scope.QueryScope{}, err
	}
	from, link := c.source(rel, parentAlias, alias)
	cond := scope.All(link, inner)
	return scope.New(
		"EXISTS (SELECT 1 FROM "+from.Condition+" WHERE "+cond.Condition+")",
		append(append([]any{}, from.Args...), cond.Args...)...,
	), nil
}

// compare renders one operator against a column expression.
func (c *compiler) compare(cmp query.Compare, column string) scope.QueryScope {
	expr := column
	if !isStringType(cmp.Path.Property.Type) {
		expr = c.dialect.Text(column)
	}
	switch cmp.Op {
	case query.OpStartsWith:
		switch c.dialect {
		case SQLite:
			// LIKE ignores ASCII case in SQLite; GLOB does not.
			return scope.New(expr+" GLOB ?", escapeGlob(cmp.Term)+"*")
		case MySQL:
			return scope.New("BINARY "+expr+" LIKE ? ESCAPE '!'", escapeLike(cmp.Term)+"%")
		default:
			return scope.New(expr+" LIKE ? ESCAPE '!'", escapeLike(cmp.Term)+"%")
		}
	case query.OpEquals:
		return scope.New("LOWER("+expr+") = ?", strings.ToLower(cmp.Term))
	default:
		return scope.New("LOWER("+expr+") LIKE ? ESCAPE '!'", "%"+escapeLike(strings.ToLower(cmp.Term))+"%")
	}
}

// orderColumn joins the navigations of path and returns its column.
func (c *compiler) orderColumn(path query.Path) (string, error) {
	if path.Property == nil || path.Property.Column == "" {
		return "", fmt.Errorf("%w: %q is not a stored property", query.ErrInvalidQuery, path.String())
	}
	parent, parentAlias, prefix := c.root, c.root.Table, ""
	for _, nav := range path.Navigations {
		rel, err := relationship(parent, nav.Name)
		if err != nil {
			return "", err
		}
		if rel.Type == schema.HasMany || rel.Type == schema.Many2Many {
			return "", fmt.Errorf("%w: cannot order by collection %q", query.ErrInvalidQuery, nav.Name)
		}
		alias := joinAlias(prefix, nav.Name)
		if !c.joined[alias] {
			from, link := c.source(rel, parentAlias, alias)
			c.qb.Join("LEFT JOIN "+from.Condition+" ON "+link.Condition, append(append([]any{}, from.Args...), link.Args...)...)
			c.joined[alias] = true
		}
		parent, parentAlias, prefix = rel.FieldSchema, alias, alias
	}
	return c.dialect.Column(parentAlias, path.Property.Column), nil
}

// source returns the FROM fragment for the target of rel aliased as alias and
// the condition linking it to parentAlias.
func (c *compiler) source(rel *schema.Relationship, parentAlias, alias string) (from, link scope.QueryScope) {
	q := c.dialect.Quote
	target := q(rel.FieldSchema.Table) + " " + q(alias)

	if rel.Type == schema.Many2Many && rel.JoinTable != nil {
		linkAlias := alias + aliasSeparator + "link"
		var targetConds, ownerConds []string
		for _, ref := range rel.References {
			if ref.ForeignKey == nil || ref.PrimaryKey == nil {
				continue
			}
			if ref.OwnPrimaryKey {
				ownerConds = append(ownerConds, c.dialect.Column(linkAlias, ref.ForeignKey.DBName)+" = "+c.dialect.Column(parentAlias, ref.PrimaryKey.DBName))
			} else {
				targetConds = append(targetConds, c.dialect.Column(alias, ref.PrimaryKey.DBName)+" = "+c.dialect.Column(linkAlias, ref.ForeignKey.DBName))
			}
		}
		from = scope.New(q(rel.JoinTable.Table) + " " + q(linkAlias) + " JOIN " + target + " ON " + strings.Join(targetConds, " AND "))
		link = scope.New(strings.Join(ownerConds, " AND "))
		return from, link
	}

	var conds []string
	var args []any
	for _, ref := range rel.References {
		switch {
		case ref.PrimaryKey == nil && ref.ForeignKey != nil:
			// polymorphic type column
			conds = append(conds, c.dialect.Column(alias, ref.ForeignKey.DBName)+" = ?")
			args = append(args, ref.PrimaryValue)
		case ref.OwnPrimaryKey:
			conds = append(conds, c.dialect.Column(alias, ref.ForeignKey.DBName)+" = "+c.dialect.Column(parentAlias, ref.PrimaryKey.DBName))
		default:
			conds = append(conds, c.dialect.Column(alias, ref.PrimaryKey.DBName)+" = "+c.dialect.Column(parentAlias, ref.ForeignKey.DBName))
		}
	}
	return scope.New(target), scope.New(strings.Join(conds, " AND "), args...)
}

func relationship(s *schema.Schema, name string) (*schema.Relationship, error) {
	if rel, ok := s.Relationships.Relations[name]; ok {
		return rel, nil
	}
	return nil, fmt.Errorf("%w: %s has no relationship %q", query.ErrInvalidQuery, s.Name, name)
}

func joinAlias(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + aliasSeparator + name
}

func isStringType(t reflect.Type) bool {
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t != nil && t.Kind() == reflect.String
}

var (
	likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	globEscaper = strings.NewReplacer("[", "[[]", "*", "[*]", "?", "[?]")
)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
func escapeGlob(s string) string { return globEscaper.Replace(s) }
