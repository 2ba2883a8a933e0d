package query

import (
	"github.com/saritasa-nest/saritasa-forge-admin-sub001/internal/metadata"
)

// Result is one page of a list query.
type Result struct {
	Items []any
	Total int64
	Page  Page
}

// TotalPages returns the number of pages needed for Total items.
func (r *Result) TotalPages() int {
	if r.Page.Size < 1 || r.Total == 0 {
		return 0
	}
	return int((r.Total + int64(r.Page.Size) - 1) / int64(r.Page.Size))
}

// Project copies the named properties of instance into a map keyed by
// property name. Properties whose value cannot be read are omitted.
func Project(props []*metadata.PropertyMetadata, instance any) map[string]any {
	out := make(map[string]any, len(props))
	for _, p := range props {
		if v, ok := p.Value(instance); ok {
			out[p.Name] = v
		}
	}
	return out
}

// ProjectAll projects every item of a result.
func ProjectAll(props []*metadata.PropertyMetadata, items []any) []map[string]any {
	rows := make([]map[string]any, 0, len(items))
	for _, item := range items {
		rows = append(rows, Project(props, item))
	}
	return rows
}
