package main

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	admin "github.com/saritasa-nest/saritasa-forge-admin-sub001"
)

const (
	formatTable = "table"
	formatYAML  = "yaml"
)

// table renders aligned columns with a colored header.
type table struct {
	headers []string
	rows    [][]string
}

func newTable(headers ...string) *table {
	return &table{headers: headers}
}

func (t *table) AddRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

func (t *table) Render(w io.Writer) {
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = utf8.RuneCountInString(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], utf8.RuneCountInString(cell))
			}
		}
	}

	header := color.New(color.Bold, color.FgCyan)
	for i, h := range t.headers {
		header.Fprint(w, padRight(h, widths[i]))
		if i < len(t.headers)-1 {
			fmt.Fprint(w, "  ")
		}
	}
	fmt.Fprintln(w)

	for _, row := range t.rows {
		for i, cell := range row {
			if i >= len(widths) {
				break
			}
			fmt.Fprint(w, padRight(cell, widths[i]))
			if i < len(row)-1 {
				fmt.Fprint(w, "  ")
			}
		}
		fmt.Fprintln(w)
	}
}

func padRight(s string, width int) string {
	if n := utf8.RuneCountInString(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode yaml: %w", err)
	}
	return enc.Close()
}

func yesNo(v bool) string {
	if v {
		return color.GreenString("yes")
	}
	return color.HiBlackString("no")
}

// entitySummary is the yaml form of one entity in a listing.
type entitySummary struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	DisplayName string `yaml:"display_name"`
	PluralName  string `yaml:"plural_name"`
	Group       string `yaml:"group,omitempty"`
	CanAdd      bool   `yaml:"can_add"`
	CanEdit     bool   `yaml:"can_edit"`
	CanDelete   bool   `yaml:"can_delete"`
}

func summarize(e *admin.EntityMetadata) entitySummary {
	s := entitySummary{
		ID:          e.StringID,
		Name:        e.Name,
		DisplayName: e.DisplayName,
		PluralName:  e.PluralName,
		CanAdd:      e.CanAdd,
		CanEdit:     e.CanEdit,
		CanDelete:   e.CanDelete,
	}
	if e.Group != nil {
		s.Group = e.Group.Name
	}
	return s
}

// entityDetail is the yaml form of a single entity.
type entityDetail struct {
	entitySummary `yaml:",inline"`
	Description   string           `yaml:"description,omitempty"`
	Properties    []propertyDetail `yaml:"properties"`
	Navigations   []navDetail      `yaml:"navigations,omitempty"`
}

type propertyDetail struct {
	Name        string `yaml:"name"`
	DisplayName string `yaml:"display_name"`
	Column      string `yaml:"column,omitempty"`
	Type        string `yaml:"type"`
	Search      string `yaml:"search,omitempty"`
	Sortable    bool   `yaml:"sortable"`
	Editable    bool   `yaml:"editable"`
	PrimaryKey  bool   `yaml:"primary_key,omitempty"`
	Calculated  bool   `yaml:"calculated,omitempty"`
	HiddenList  bool   `yaml:"hidden_list,omitempty"`
}

type navDetail struct {
	Name       string      `yaml:"name"`
	Target     string      `yaml:"target"`
	Collection bool        `yaml:"collection,omitempty"`
	Search     string      `yaml:"search,omitempty"`
	Properties []string    `yaml:"properties,omitempty"`
	Nested     []navDetail `yaml:"navigations,omitempty"`
}

func describe(e *admin.EntityMetadata) entityDetail {
	d := entityDetail{entitySummary: summarize(e), Description: e.Description}
	for _, p := range e.Properties {
		d.Properties = append(d.Properties, describeProperty(p))
	}
	d.Navigations = describeNavigations(e.Navigations)
	return d
}

func describeProperty(p *admin.PropertyMetadata) propertyDetail {
	pd := propertyDetail{
		Name:        p.Name,
		DisplayName: p.DisplayName,
		Column:      p.Column,
		Type:        p.Type.String(),
		Sortable:    p.IsSortable,
		Editable:    p.IsEditable,
		PrimaryKey:  p.IsPrimaryKey,
		Calculated:  p.IsCalculatedProperty,
		HiddenList:  p.IsHiddenFromListView,
	}
	if p.SearchType != admin.SearchNone {
		pd.Search = p.SearchType.String()
	}
	return pd
}

func describeNavigations(navs []*admin.NavigationMetadata) []navDetail {
	var out []navDetail
	for _, n := range navs {
		nd := navDetail{Name: n.Name, Target: n.TargetEntityName, Collection: n.IsCollection}
		if n.SearchType != admin.SearchNone {
			nd.Search = n.SearchType.String()
		}
		for _, p := range n.TargetEntityProperties {
			nd.Properties = append(nd.Properties, p.Name)
		}
		nd.Nested = describeNavigations(n.TargetEntityNavigations)
		out = append(out, nd)
	}
	return out
}

// renderRow formats the projected values of one instance.
func renderRow(props []*admin.PropertyMetadata, instance any) []string {
	cells := make([]string, len(props))
	for i, p := range props {
		v, _ := p.Value(instance)
		cells[i] = p.FormatValue(v)
	}
	return cells
}

func rowMap(props []*admin.PropertyMetadata, instance any) map[string]string {
	cells := renderRow(props, instance)
	m := make(map[string]string, len(props))
	for i, p := range props {
		m[p.Name] = cells[i]
	}
	return m
}
