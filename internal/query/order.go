package query

import (
	"fmt"
	"strings"

	"github.com/saritasa-nest/saritasa-forge-admin-sub001/internal/metadata"
)

// OrderBy is a requested ordering by a dotted property path.
type OrderBy struct {
	Path       string
	Descending bool
}

// ParseOrderBy parses "Name", "Name desc" or "-Name" style clauses.
func ParseOrderBy(s string) OrderBy {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "-") {
		return OrderBy{Path: strings.TrimSpace(s[1:]), Descending: true}
	}
	fields := strings.Fields(s)
	if len(fields) == 2 {
		switch strings.ToLower(fields[1]) {
		case "desc":
			return OrderBy{Path: fields[0], Descending: true}
		case "asc":
			return OrderBy{Path: fields[0]}
		}
	}
	return OrderBy{Path: s}
}

// Order is a resolved ordering term.
type Order struct {
	Path       Path
	Descending bool
}

// ResolveOrder resolves requested orderings against e. Paths may traverse
// single-valued navigations. The primary key is appended, ascending, as the
// final tie-breaker unless it is already ordered on, so paging is deterministic.
func ResolveOrder(e *metadata.EntityMetadata, requested []OrderBy) ([]Order, error) {
	orders := make([]Order, 0, len(requested)+1)
	seen := map[string]bool{}
	for _, ob := range requested {
		path, err := ResolvePath(e, ob.Path)
		if err != nil {
			return nil, err
		}
		if !path.Property.IsSortable {
			return nil, fmt.Errorf("%w: property %q is not sortable", ErrInvalidQuery, ob.Path)
		}
		key := path.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		orders = append(orders, Order{Path: path, Descending: ob.Descending})
	}
	for _, pk := range e.PrimaryKeys() {
		if !pk.IsQueryable() || seen[pk.Name] {
			continue
		}
		orders = append(orders, Order{Path: Path{Property: pk}})
	}
	return orders, nil
}

// ResolvePath resolves a dotted path like "Shop.Address.Street" to a column
// backed property, walking single-valued navigations only.
func ResolvePath(e *metadata.EntityMetadata, dotted string) (Path, error) {
	segments := strings.Split(dotted, ".")
	if dotted == "" {
		return Path{}, fmt.Errorf("%w: empty property path", ErrInvalidQuery)
	}

	var (
		path  Path
		props = e.Properties
		navs  = e.Navigations
	)
	for i, seg := range segments {
		last := i == len(segments)-1
		if last {
			p := findProperty(props, seg)
			if p == nil {
				return Path{}, fmt.Errorf("%w: unknown property %q", ErrInvalidQuery, dotted)
			}
			if !p.IsQueryable() {
				return Path{}, fmt.Errorf("%w: property %q is not stored", ErrInvalidQuery, dotted)
			}
			path.Property = p
			break
		}

		n := findNavigation(navs, seg)
		if n == nil {
			return Path{}, fmt.Errorf("%w: unknown navigation %q in %q", ErrInvalidQuery, seg, dotted)
		}
		if n.IsCollection {
			return Path{}, fmt.Errorf("%w: navigation %q is a collection", ErrInvalidQuery, seg)
		}
		path.Navigations = append(path.Navigations, n)
		props = n.TargetEntityProperties
		navs = n.TargetEntityNavigations
	}
	return path, nil
}

func findProperty(props []*metadata.PropertyMetadata, name string) *metadata.PropertyMetadata {
	for _, p := range props {
		if p.Name == name {
			return p
		}
	}
	for _, p := range props {
		if strings.EqualFold(p.Name, name) {
			return p
		}
	}
	return nil
}

func findNavigation(navs []*metadata.NavigationMetadata, name string) *metadata.NavigationMetadata {
	for _, n := range navs {
		if n.Name == name {
			return n
		}
	}
	for _, n := range navs {
		if strings.EqualFold(n.Name, name) {
			return n
		}
	}
	return nil
}
