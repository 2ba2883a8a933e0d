// Package options holds the host supplied admin configuration and the fluent
// builders used to produce it.
package options

import (
	"reflect"
	"slices"

	"github.com/saritasa-nest/saritasa-forge-admin-sub001/internal/metadata"
)

// AllowListPolicy decides what "exclude all properties" does when nothing is included.
type AllowListPolicy int

const (
	// ClearIfEmpty removes every property and navigation when the allow-list is empty.
	ClearIfEmpty AllowListPolicy = iota
	// KeepAllIfEmpty keeps every property and navigation when the allow-list is empty.
	KeepAllIfEmpty
)

func (p AllowListPolicy) String() string {
	if p == KeepAllIfEmpty {
		return "keep-all"
	}
	return "clear"
}

// Options is the global admin configuration.
type Options struct {
	IncludeAllEntities bool
	MaxNavigationDepth *int
	AllowListPolicy    AllowListPolicy
	Groups             []metadata.Group

	entities []*EntityOptions
	byType   map[reflect.Type]*EntityOptions
}

// New returns empty options.
func New() *Options {
	return &Options{byType: map[reflect.Type]*EntityOptions{}}
}

// Entity returns the options recorded for an entity type.
func (o *Options) Entity(t reflect.Type) (*EntityOptions, bool) {
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	e, ok := o.byType[t]
	return e, ok
}

// Entities returns the entity options in the order they were first configured.
func (o *Options) Entities() []*EntityOptions {
	return o.entities
}

// Group finds a declared group by name.
func (o *Options) Group(name string) (metadata.Group, bool) {
	for _, g := range o.Groups {
		if g.Name == name {
			return g, true
		}
	}
	return metadata.Group{}, false
}

func (o *Options) entity(t reflect.Type) *EntityOptions {
	if e, ok := o.byType[t]; ok {
		return e
	}
	e := &EntityOptions{Type: t}
	o.byType[t] = e
	o.entities = append(o.entities, e)
	return e
}

// EntityOptions is the configuration of one entity type. Repeated configuration
// of the same type updates this single record.
type EntityOptions struct {
	Type reflect.Type

	DisplayName        *string
	PluralName         *string
	Description        *string
	Group              *string
	IsHidden           *bool
	CanAdd             *bool
	CanEdit            *bool
	CanDelete          *bool
	MaxNavigationDepth *int

	ExcludeAllProperties    bool
	IncludedProperties      []string
	CalculatedPropertyNames []string

	SearchFunction      metadata.SearchFunc
	CustomQueryFunction metadata.QueryFunc
	AfterUpdateAction   metadata.AfterUpdateFunc
	CreateAction        metadata.CreateFunc
	UpdateAction        metadata.UpdateFunc

	CreateMessage     *string
	SaveMessage       *string
	DeleteMessage     *string
	BulkDeleteMessage *string

	properties  []*PropertyOptions
	navigations []*NavigationOptions
}

// Property returns the options recorded for a property.
func (e *EntityOptions) Property(name string) (*PropertyOptions, bool) {
	for _, p := range e.properties {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// Properties returns every configured property.
func (e *EntityOptions) Properties() []*PropertyOptions {
	return e.properties
}

// Navigation returns the options recorded for a navigation.
func (e *EntityOptions) Navigation(name string) (*NavigationOptions, bool) {
	for _, n := range e.navigations {
		if n.Name == name {
			return n, true
		}
	}
	return nil, false
}

// Navigations returns every configured navigation.
func (e *EntityOptions) Navigations() []*NavigationOptions {
	return e.navigations
}

// IncludedNavigations returns the names of navigations explicitly included.
func (e *EntityOptions) IncludedNavigations() []string {
	var names []string
	for _, n := range e.navigations {
		if n.Included {
			names = append(names, n.Name)
		}
	}
	return names
}

// IsPropertyIncluded reports whether name is on the property allow-list.
func (e *EntityOptions) IsPropertyIncluded(name string) bool {
	return slices.Contains(e.IncludedProperties, name) || slices.Contains(e.CalculatedPropertyNames, name)
}

func (e *EntityOptions) property(name string) *PropertyOptions {
	if p, ok := e.Property(name); ok {
		return p
	}
	p := &PropertyOptions{Name: name}
	e.properties = append(e.properties, p)
	return p
}

func (e *EntityOptions) navigation(name string) *NavigationOptions {
	if n, ok := e.Navigation(name); ok {
		return n
	}
	n := &NavigationOptions{Name: name}
	e.navigations = append(e.navigations, n)
	return n
}

// PropertyOptions is the configuration of one property.
type PropertyOptions struct {
	Name string
	metadata.PropertyOverrides
}

// NavigationOptions is the configuration of one navigation and of how its
// target properties appear through it.
type NavigationOptions struct {
	Name     string
	Included bool
	metadata.PropertyOverrides

	properties []*PropertyOptions
}

// TargetProperty returns the options recorded for a target property seen through this navigation.
func (n *NavigationOptions) TargetProperty(name string) (*PropertyOptions, bool) {
	for _, p := range n.properties {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// TargetProperties returns every configured target property.
func (n *NavigationOptions) TargetProperties() []*PropertyOptions {
	return n.properties
}

func (n *NavigationOptions) targetProperty(name string) *PropertyOptions {
	if p, ok := n.TargetProperty(name); ok {
		return p
	}
	p := &PropertyOptions{Name: name}
	n.properties = append(n.properties, p)
	return p
}

func appendUnique(list []string, names ...string) []string {
	for _, n := range names {
		if !slices.Contains(list, n) {
			list = append(list, n)
		}
	}
	return list
}
