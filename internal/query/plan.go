package query

import (
	"fmt"
	"math"
	"strings"

	"github.com/saritasa-nest/saritasa-forge-admin-sub001/internal/metadata"
)

const (
	// DefaultPageSize is used when a request does not set a valid page size.
	DefaultPageSize = 25
	// DefaultMaxPageSize caps requested page sizes.
	DefaultMaxPageSize = 500
)

// Page is a 1-based page window.
type Page struct {
	Number int
	Size   int
}

// Offset returns the number of rows skipped before the page. It saturates at
// the last page whose offset fits in an int.
func (p Page) Offset() int {
	if p.Number <= 1 || p.Size < 1 {
		return 0
	}
	return (min(p.Number, lastPage(p.Size)) - 1) * p.Size
}

// lastPage is the highest page number of the given size whose offset fits in an int.
func lastPage(size int) int {
	return math.MaxInt / size
}

// NormalizePage clamps number into [1, lastPage(size)] and size into
// [1, maxSize]. A size below 1 selects defaultSize.
func NormalizePage(number, size, defaultSize, maxSize int) Page {
	if defaultSize < 1 {
		defaultSize = DefaultPageSize
	}
	if maxSize < 1 {
		maxSize = DefaultMaxPageSize
	}
	if number < 1 {
		number = 1
	}
	if size < 1 {
		size = defaultSize
	}
	if size > maxSize {
		size = maxSize
	}
	if number > lastPage(size) {
		number = lastPage(size)
	}
	return Page{Number: number, Size: size}
}

// Request is a list request as issued by the presentation layer.
type Request struct {
	Search     string
	OrderBy    []OrderBy
	Page       int
	PageSize   int
	Properties []string
	Include    []string
}

// Plan is a fully resolved list query.
type Plan struct {
	Entity *metadata.EntityMetadata
	// Properties is the projection. It holds column-backed properties only.
	Properties []*metadata.PropertyMetadata
	// Filter is the metadata-driven search predicate, nil when there is none.
	Filter Predicate
	// Search is the raw search string handed to SearchFunction.
	Search         string
	SearchFunction metadata.SearchFunc
	CustomQuery    metadata.QueryFunc
	Order          []Order
	Page           Page
	Include        []string
}

// Builder turns requests into plans.
type Builder struct {
	DefaultPageSize  int
	MaxPageSize      int
	SplitSearchTerms bool
}

// Build resolves req against e.
func (b Builder) Build(e *metadata.EntityMetadata, req Request) (*Plan, error) {
	props, err := SelectProperties(e, req.Properties)
	if err != nil {
		return nil, err
	}
	order, err := ResolveOrder(e, req.OrderBy)
	if err != nil {
		return nil, err
	}
	include, err := ResolveIncludes(e, req.Include)
	if err != nil {
		return nil, err
	}

	search := strings.TrimSpace(req.Search)
	plan := &Plan{
		Entity:      e,
		Properties:  props,
		Search:      search,
		CustomQuery: e.CustomQueryFunction,
		Order:       order,
		Page:        NormalizePage(req.Page, req.PageSize, b.DefaultPageSize, b.MaxPageSize),
		Include:     include,
	}
	if search != "" {
		plan.Filter = BuildSearch(e, search, b.SplitSearchTerms)
		plan.SearchFunction = e.SearchFunction
	}
	return plan, nil
}

// SelectProperties resolves projected property names. An empty list selects
// every column-backed property of e.
func SelectProperties(e *metadata.EntityMetadata, names []string) ([]*metadata.PropertyMetadata, error) {
	if len(names) == 0 {
		props := make([]*metadata.PropertyMetadata, 0, len(e.Properties))
		for _, p := range e.Properties {
			if p.IsQueryable() {
				props = append(props, p)
			}
		}
		return props, nil
	}
	props := make([]*metadata.PropertyMetadata, 0, len(names))
	for _, name := range names {
		p := e.FindProperty(name)
		if p == nil {
			return nil, fmt.Errorf("%w: unknown property %q", ErrInvalidQuery, name)
		}
		if p.IsQueryable() {
			props = append(props, p)
		}
	}
	return props, nil
}

// ResolveIncludes validates dotted navigation paths such as "Shop.Address"
// and returns them with canonical names.
func ResolveIncludes(e *metadata.EntityMetadata, includes []string) ([]string, error) {
	out := make([]string, 0, len(includes))
	for _, inc := range includes {
		navs := e.Navigations
		var parts []string
		for _, seg := range strings.Split(inc, ".") {
			n := findNavigation(navs, seg)
			if n == nil {
				return nil, fmt.Errorf("%w: unknown navigation %q", ErrInvalidQuery, inc)
			}
			parts = append(parts, n.Name)
			navs = n.TargetEntityNavigations
		}
		out = append(out, strings.Join(parts, "."))
	}
	return out, nil
}
