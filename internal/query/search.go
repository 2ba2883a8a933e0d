package query

import (
	"reflect"
	"strings"
	"unicode"

	"github.com/saritasa-nest/saritasa-forge-admin-sub001/internal/metadata"
)

// Target is one searchable path with the operator used against it.
type Target struct {
	Path Path
	Op   Operator
}

// SearchTargets lists the searchable paths of an entity.
//
// Root properties take part when their SearchType is set and they map to a
// column. A navigation takes part when its own SearchType is set: its target
// properties with a SearchType use their own operator, and when none has one,
// the string target properties are searched with the navigation's operator.
// Nested navigations follow the same rule.
func SearchTargets(e *metadata.EntityMetadata) []Target {
	var targets []Target
	for _, p := range e.Properties {
		if op, ok := OperatorFor(p.SearchType); ok && p.IsQueryable() {
			targets = append(targets, Target{Path: Path{Property: p}, Op: op})
		}
	}
	for _, n := range e.Navigations {
		targets = append(targets, navigationTargets(nil, n)...)
	}
	return targets
}

func navigationTargets(prefix []*metadata.NavigationMetadata, n *metadata.NavigationMetadata) []Target {
	navOp, ok := OperatorFor(n.SearchType)
	if !ok {
		return nil
	}
	navs := append(append([]*metadata.NavigationMetadata{}, prefix...), n)

	var targets []Target
	for _, p := range n.TargetEntityProperties {
		if op, ok := OperatorFor(p.SearchType); ok && p.IsQueryable() {
			targets = append(targets, Target{Path: Path{Navigations: navs, Property: p}, Op: op})
		}
	}
	if len(targets) == 0 {
		for _, p := range n.TargetEntityProperties {
			if p.IsQueryable() && isString(p.Type) {
				targets = append(targets, Target{Path: Path{Navigations: navs, Property: p}, Op: navOp})
			}
		}
	}
	for _, child := range n.TargetEntityNavigations {
		targets = append(targets, navigationTargets(navs, child)...)
	}
	return targets
}

// BuildSearch returns the metadata-driven predicate for search, or nil when the
// entity has no searchable paths or the search is blank. Every target is OR'd
// against a term; with split set, each term of the search forms one such group
// and the groups are AND'd.
func BuildSearch(e *metadata.EntityMetadata, search string, split bool) Predicate {
	targets := SearchTargets(e)
	if len(targets) == 0 {
		return nil
	}

	var terms []string
	if split {
		terms = SplitTerms(search)
	} else if t := strings.TrimSpace(search); t != "" {
		terms = []string{t}
	}

	groups := make([]Predicate, 0, len(terms))
	for _, term := range terms {
		alternatives := make([]Predicate, 0, len(targets))
		for _, t := range targets {
			alternatives = append(alternatives, Compare{Op: t.Op, Path: t.Path, Term: term})
		}
		groups = append(groups, AnyOf(alternatives...))
	}
	return AllOf(groups...)
}

// SplitTerms splits a search string on white space. Double quotes group a
// phrase into one term.
func SplitTerms(search string) []string {
	var (
		terms   []string
		current strings.Builder
		quoted  bool
	)
	flush := func() {
		if current.Len() > 0 {
			terms = append(terms, current.String())
			current.Reset()
		}
	}
	for _, r := range search {
		switch {
		case r == '"':
			flush()
			quoted = !quoted
		case unicode.IsSpace(r) && !quoted:
			flush()
		default:
			current.WriteRune(r)
		}
	}
	flush()
	return terms
}

func isString(t reflect.Type) bool {
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t != nil && t.Kind() == reflect.String
}
