package options

import (
	"reflect"

	"golang.org/x/text/language"

	"github.com/saritasa-nest/saritasa-forge-admin-sub001/internal/metadata"
)

// EntityConfiguration is a reusable configuration unit for one entity type.
type EntityConfiguration interface {
	// Model returns a value or pointer of the configured entity type.
	Model() any
	Configure(b *EntityOptionsBuilder)
}

// Builder produces Options through fluent calls.
type Builder struct {
	opts *Options
}

// NewBuilder returns a builder over empty options.
func NewBuilder() *Builder {
	return &Builder{opts: New()}
}

// Options returns the built options. The builder keeps writing to the same value.
func (b *Builder) Options() *Options {
	return b.opts
}

// IncludeAllEntities includes every ORM mapped entity, configured or not.
func (b *Builder) IncludeAllEntities() *Builder {
	b.opts.IncludeAllEntities = true
	return b
}

// SetMaxNavigationDepth sets the default navigation depth for all entities.
func (b *Builder) SetMaxNavigationDepth(depth int) *Builder {
	if depth < 0 {
		depth = 0
	}
	b.opts.MaxNavigationDepth = &depth
	return b
}

// SetAllowListPolicy sets how entities that exclude all properties treat an empty allow-list.
func (b *Builder) SetAllowListPolicy(policy AllowListPolicy) *Builder {
	b.opts.AllowListPolicy = policy
	return b
}

// AddGroup declares an entity group. Redeclaring a group updates its description.
func (b *Builder) AddGroup(name, description string) *Builder {
	for i, g := range b.opts.Groups {
		if g.Name == name {
			b.opts.Groups[i].Description = description
			return b
		}
	}
	b.opts.Groups = append(b.opts.Groups, metadata.Group{Name: name, Description: description})
	return b
}

// ConfigureEntity configures the entity type of model.
func (b *Builder) ConfigureEntity(model any, configure func(*EntityOptionsBuilder)) *Builder {
	t := reflect.TypeOf(model)
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil {
		return b
	}
	eb := &EntityOptionsBuilder{o: b.opts.entity(t)}
	if configure != nil {
		configure(eb)
	}
	return b
}

// AddEntityConfiguration applies reusable entity configurations in order.
func (b *Builder) AddEntityConfiguration(cfgs ...EntityConfiguration) *Builder {
	for _, c := range cfgs {
		b.ConfigureEntity(c.Model(), c.Configure)
	}
	return b
}

// EntityOptionsBuilder configures one entity.
type EntityOptionsBuilder struct {
	o *EntityOptions
}

// Options returns the entity options being built.
func (b *EntityOptionsBuilder) Options() *EntityOptions {
	return b.o
}

func (b *EntityOptionsBuilder) SetDisplayName(name string) *EntityOptionsBuilder {
	b.o.DisplayName = &name
	return b
}

func (b *EntityOptionsBuilder) SetPluralName(name string) *EntityOptionsBuilder {
	b.o.PluralName = &name
	return b
}

func (b *EntityOptionsBuilder) SetDescription(description string) *EntityOptionsBuilder {
	b.o.Description = &description
	return b
}

func (b *EntityOptionsBuilder) SetGroup(name string) *EntityOptionsBuilder {
	b.o.Group = &name
	return b
}

func (b *EntityOptionsBuilder) SetIsHidden(hidden bool) *EntityOptionsBuilder {
	b.o.IsHidden = &hidden
	return b
}

func (b *EntityOptionsBuilder) SetCanAdd(v bool) *EntityOptionsBuilder {
	b.o.CanAdd = &v
	return b
}

func (b *EntityOptionsBuilder) SetCanEdit(v bool) *EntityOptionsBuilder {
	b.o.CanEdit = &v
	return b
}

func (b *EntityOptionsBuilder) SetCanDelete(v bool) *EntityOptionsBuilder {
	b.o.CanDelete = &v
	return b
}

// SetMaxNavigationDepth overrides the global navigation depth for this entity.
func (b *EntityOptionsBuilder) SetMaxNavigationDepth(depth int) *EntityOptionsBuilder {
	if depth < 0 {
		depth = 0
	}
	b.o.MaxNavigationDepth = &depth
	return b
}

// ExcludeAllProperties hides every property and navigation not explicitly included.
func (b *EntityOptionsBuilder) ExcludeAllProperties() *EntityOptionsBuilder {
	b.o.ExcludeAllProperties = true
	return b
}

// IncludeProperties adds names to the property allow-list.
func (b *EntityOptionsBuilder) IncludeProperties(names ...string) *EntityOptionsBuilder {
	b.o.IncludedProperties = appendUnique(b.o.IncludedProperties, names...)
	return b
}

// AddCalculatedProperties exposes fields or no-argument methods that are not mapped to columns.
func (b *EntityOptionsBuilder) AddCalculatedProperties(names ...string) *EntityOptionsBuilder {
	b.o.CalculatedPropertyNames = appendUnique(b.o.CalculatedPropertyNames, names...)
	return b
}

func (b *EntityOptionsBuilder) SetSearchFunction(fn metadata.SearchFunc) *EntityOptionsBuilder {
	b.o.SearchFunction = fn
	return b
}

func (b *EntityOptionsBuilder) SetCustomQuery(fn metadata.QueryFunc) *EntityOptionsBuilder {
	b.o.CustomQueryFunction = fn
	return b
}

func (b *EntityOptionsBuilder) SetAfterUpdateAction(fn metadata.AfterUpdateFunc) *EntityOptionsBuilder {
	b.o.AfterUpdateAction = fn
	return b
}

func (b *EntityOptionsBuilder) SetCreateAction(fn metadata.CreateFunc) *EntityOptionsBuilder {
	b.o.CreateAction = fn
	return b
}

func (b *EntityOptionsBuilder) SetUpdateAction(fn metadata.UpdateFunc) *EntityOptionsBuilder {
	b.o.UpdateAction = fn
	return b
}

func (b *EntityOptionsBuilder) SetCreateMessage(msg string) *EntityOptionsBuilder {
	b.o.CreateMessage = &msg
	return b
}

func (b *EntityOptionsBuilder) SetSaveMessage(msg string) *EntityOptionsBuilder {
	b.o.SaveMessage = &msg
	return b
}

func (b *EntityOptionsBuilder) SetDeleteMessage(msg string) *EntityOptionsBuilder {
	b.o.DeleteMessage = &msg
	return b
}

func (b *EntityOptionsBuilder) SetBulkDeleteMessage(msg string) *EntityOptionsBuilder {
	b.o.BulkDeleteMessage = &msg
	return b
}

// ConfigureProperty configures a property, or a calculated property, by name.
func (b *EntityOptionsBuilder) ConfigureProperty(name string, configure func(*PropertyOptionsBuilder)) *EntityOptionsBuilder {
	pb := newPropertyOptionsBuilder(b.o.property(name))
	if configure != nil {
		configure(pb)
	}
	return b
}

// IncludeNavigation includes a navigation and configures how it is shown.
func (b *EntityOptionsBuilder) IncludeNavigation(name string, configure func(*NavigationOptionsBuilder)) *EntityOptionsBuilder {
	n := b.o.navigation(name)
	n.Included = true
	nb := &NavigationOptionsBuilder{n: n}
	nb.overridesBuilder = overridesBuilder[*NavigationOptionsBuilder]{o: &n.PropertyOverrides, self: nb}
	if configure != nil {
		configure(nb)
	}
	return b
}

// overridesBuilder carries the setters shared by property and navigation builders.
type overridesBuilder[B any] struct {
	o    *metadata.PropertyOverrides
	self B
}

func (b overridesBuilder[B]) SetDisplayName(name string) B {
	b.o.DisplayName = &name
	return b.self
}

func (b overridesBuilder[B]) SetDescription(description string) B {
	b.o.Description = &description
	return b.self
}

func (b overridesBuilder[B]) SetOrder(order int) B {
	b.o.Order = &order
	return b.self
}

func (b overridesBuilder[B]) SetIsHidden(v bool) B {
	b.o.IsHidden = &v
	return b.self
}

func (b overridesBuilder[B]) SetIsHiddenFromListView(v bool) B {
	b.o.IsHiddenFromListView = &v
	return b.self
}

func (b overridesBuilder[B]) SetIsHiddenFromDetails(v bool) B {
	b.o.IsHiddenFromDetails = &v
	return b.self
}

func (b overridesBuilder[B]) SetIsExcludedFromQuery(v bool) B {
	b.o.IsExcludedFromQuery = &v
	return b.self
}

func (b overridesBuilder[B]) SetDisplayFormat(format string) B {
	b.o.DisplayFormat = &format
	return b.self
}

func (b overridesBuilder[B]) SetFormatProvider(lang language.Tag) B {
	b.o.FormatProvider = &lang
	return b.self
}

func (b overridesBuilder[B]) SetSearchType(st metadata.SearchType) B {
	b.o.SearchType = &st
	return b.self
}

func (b overridesBuilder[B]) SetIsSortable(v bool) B {
	b.o.IsSortable = &v
	return b.self
}

func (b overridesBuilder[B]) SetIsReadOnly(v bool) B {
	b.o.IsReadOnly = &v
	return b.self
}

func (b overridesBuilder[B]) SetEmptyValueDisplay(text string) B {
	b.o.EmptyValueDisplay = &text
	return b.self
}

// PropertyOptionsBuilder configures one property.
type PropertyOptionsBuilder struct {
	overridesBuilder[*PropertyOptionsBuilder]
	p *PropertyOptions
}

func newPropertyOptionsBuilder(p *PropertyOptions) *PropertyOptionsBuilder {
	pb := &PropertyOptionsBuilder{p: p}
	pb.overridesBuilder = overridesBuilder[*PropertyOptionsBuilder]{o: &p.PropertyOverrides, self: pb}
	return pb
}

func (b *PropertyOptionsBuilder) SetUploadFileStrategy(s metadata.UploadFileStrategy) *PropertyOptionsBuilder {
	b.p.UploadFileStrategy = s
	return b
}

func (b *PropertyOptionsBuilder) SetRequired() *PropertyOptionsBuilder {
	b.p.Validation.Required = true
	return b
}

func (b *PropertyOptionsBuilder) SetMaxLength(n int) *PropertyOptionsBuilder {
	b.p.Validation.MaxLength = &n
	return b
}

func (b *PropertyOptionsBuilder) SetMinLength(n int) *PropertyOptionsBuilder {
	b.p.Validation.MinLength = &n
	return b
}

// SetRange bounds a numeric property, inclusive on both ends.
func (b *PropertyOptionsBuilder) SetRange(min, max float64) *PropertyOptionsBuilder {
	b.p.Validation.Min = &min
	b.p.Validation.Max = &max
	return b
}

func (b *PropertyOptionsBuilder) SetPattern(pattern string) *PropertyOptionsBuilder {
	b.p.Validation.Pattern = pattern
	return b
}

// NavigationOptionsBuilder configures one navigation.
type NavigationOptionsBuilder struct {
	overridesBuilder[*NavigationOptionsBuilder]
	n *NavigationOptions
}

// ConfigureProperty configures how a target property appears through this navigation.
func (b *NavigationOptionsBuilder) ConfigureProperty(name string, configure func(*PropertyOptionsBuilder)) *NavigationOptionsBuilder {
	pb := newPropertyOptionsBuilder(b.n.targetProperty(name))
	if configure != nil {
		configure(pb)
	}
	return b
}
