// Package query plans admin list queries from entity metadata: search
// predicates, ordering, paging and projection. Plans are plain data; the
// store package compiles them to SQL.
package query

import (
	"errors"
	"strings"

	"github.com/saritasa-nest/saritasa-forge-admin-sub001/internal/metadata"
)

var (
	// ErrInvalidQuery is returned for order paths, projections or includes that
	// do not resolve against the entity metadata.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrInvalidKey is returned for primary key strings that do not decode.
	ErrInvalidKey = errors.New("invalid key")
)

// Operator is the comparison applied by a Compare predicate.
type Operator int

const (
	// OpContains matches a case-insensitive substring.
	OpContains Operator = iota
	// OpStartsWith matches a case-sensitive prefix.
	OpStartsWith
	// OpEquals matches the whole value, ignoring case.
	OpEquals
)

func (o Operator) String() string {
	switch o {
	case OpContains:
		return "contains"
	case OpStartsWith:
		return "startswith"
	case OpEquals:
		return "equals"
	default:
		return "unknown"
	}
}

// OperatorFor maps a search type to its operator. SearchNone has none.
func OperatorFor(st metadata.SearchType) (Operator, bool) {
	switch st {
	case metadata.SearchContainsCaseInsensitive:
		return OpContains, true
	case metadata.SearchStartsWithCaseSensitive:
		return OpStartsWith, true
	case metadata.SearchExactMatchCaseInsensitive:
		return OpEquals, true
	default:
		return 0, false
	}
}

// Path addresses a property of the root entity, optionally through navigations.
type Path struct {
	Navigations []*metadata.NavigationMetadata
	Property    *metadata.PropertyMetadata
}

// String renders the path in dotted form, e.g. "Shop.Address.Street".
func (p Path) String() string {
	parts := make([]string, 0, len(p.Navigations)+1)
	for _, n := range p.Navigations {
		parts = append(parts, n.Name)
	}
	if p.Property != nil {
		parts = append(parts, p.Property.Name)
	}
	return strings.Join(parts, ".")
}

// Predicate is a filter expression. Implementations are Compare, And and Or.
type Predicate interface {
	predicate()
}

// Compare tests the value at Path against Term.
type Compare struct {
	Op   Operator
	Path Path
	Term string
}

// And matches when every operand matches.
type And []Predicate

// Or matches when any operand matches.
type Or []Predicate

func (Compare) predicate() {}
func (And) predicate()     {}
func (Or) predicate()      {}

// Contains builds a case-insensitive substring predicate.
func Contains(path Path, term string) Compare {
	return Compare{Op: OpContains, Path: path, Term: term}
}

// StartsWith builds a case-sensitive prefix predicate.
func StartsWith(path Path, term string) Compare {
	return Compare{Op: OpStartsWith, Path: path, Term: term}
}

// Equals builds a case-insensitive equality predicate.
func Equals(path Path, term string) Compare {
	return Compare{Op: OpEquals, Path: path, Term: term}
}

// AllOf combines predicates with AND. Nil operands are dropped; nested Ands are
// flattened. It returns nil when nothing remains.
func AllOf(preds ...Predicate) Predicate {
	var out And
	for _, p := range preds {
		switch x := p.(type) {
		case nil:
		case And:
			out = append(out, x...)
		default:
			out = append(out, x)
		}
	}
	return collapse(out, func(ps []Predicate) Predicate { return And(ps) })
}

// AnyOf combines predicates with OR, mirroring AllOf.
func AnyOf(preds ...Predicate) Predicate {
	var out Or
	for _, p := range preds {
		switch x := p.(type) {
		case nil:
		case Or:
			out = append(out, x...)
		default:
			out = append(out, x)
		}
	}
	return collapse(out, func(ps []Predicate) Predicate { return Or(ps) })
}

func collapse(ps []Predicate, wrap func([]Predicate) Predicate) Predicate {
	switch len(ps) {
	case 0:
		return nil
	case 1:
		return ps[0]
	default:
		return wrap(ps)
	}
}
