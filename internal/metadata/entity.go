package metadata

import (
	"context"
	"reflect"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/language"
	"gorm.io/gorm"
)

// SearchFunc narrows a query with a host supplied search over the given term.
type SearchFunc func(ctx context.Context, db *gorm.DB, term string) *gorm.DB

// QueryFunc customizes the base query of an entity before any filtering is applied.
type QueryFunc func(ctx context.Context, db *gorm.DB) *gorm.DB

// CreateFunc runs inside the create transaction before the instance is inserted.
type CreateFunc func(ctx context.Context, tx *gorm.DB, entity any) error

// UpdateFunc runs inside the update transaction before the changes are written.
// Implementations may add or remove entries in changes, keyed by column name.
type UpdateFunc func(ctx context.Context, tx *gorm.DB, entity any, changes map[string]any) error

// AfterUpdateFunc runs after a successful update with the pre-edit snapshot and the refreshed instance.
type AfterUpdateFunc func(ctx context.Context, db *gorm.DB, original, updated any) error

// UploadFileStrategy stores uploaded file content and returns the value persisted in the property.
type UploadFileStrategy interface {
	Upload(ctx context.Context, fileName string, content []byte) (any, error)
	Remove(ctx context.Context, value any) error
}

// Group is an entity grouping shown in the admin navigation.
type Group struct {
	Name        string
	Description string
}

// Messages are the user facing texts shown after entity operations.
type Messages struct {
	Create     string
	Save       string
	Delete     string
	BulkDelete string
}

// DefaultMessages returns the messages used when an entity does not override them.
func DefaultMessages() Messages {
	return Messages{
		Create:     "Entity was created successfully.",
		Save:       "Entity was saved successfully.",
		Delete:     "Entity was deleted successfully.",
		BulkDelete: "Selected entities were deleted successfully.",
	}
}

// ValidationRules are the declarative constraints checked before an instance is written.
type ValidationRules struct {
	Required  bool
	MinLength *int
	MaxLength *int
	Min       *float64
	Max       *float64
	Pattern   string
}

// IsZero reports whether no rule is set.
func (r ValidationRules) IsZero() bool {
	return !r.Required && r.MinLength == nil && r.MaxLength == nil && r.Min == nil && r.Max == nil && r.Pattern == ""
}

// PropertyBase holds the display and query attributes shared by properties and navigations.
type PropertyBase struct {
	Name                 string
	DisplayName          string
	Description          string
	Order                *int
	IsHidden             bool
	IsHiddenFromListView bool
	IsHiddenFromDetails  bool
	IsExcludedFromQuery  bool
	DisplayFormat        string
	FormatProvider       language.Tag
	SearchType           SearchType
	IsSortable           bool
	IsReadOnly           bool
	EmptyValueDisplay    string

	accessor Accessor
}

// Accessor returns the reader bound to this member.
func (b *PropertyBase) Accessor() Accessor {
	return b.accessor
}

// SetAccessor binds the member to a field or method of the owning type.
func (b *PropertyBase) SetAccessor(a Accessor) {
	b.accessor = a
}

// Value reads the member from an instance of the owning type.
func (b *PropertyBase) Value(instance any) (any, bool) {
	return b.accessor.Get(instance)
}

// PropertyMetadata describes a scalar member of an entity.
type PropertyMetadata struct {
	PropertyBase

	Type                     reflect.Type
	Column                   string
	IsPrimaryKey             bool
	IsForeignKey             bool
	IsEditable               bool
	IsShadow                 bool
	IsValueGeneratedOnAdd    bool
	IsValueGeneratedOnUpdate bool
	IsCalculatedProperty     bool
	IsNullable               bool
	UploadFileStrategy       UploadFileStrategy
	Validation               ValidationRules
}

// IsQueryable reports whether the property maps to a column that queries may reference.
func (p *PropertyMetadata) IsQueryable() bool {
	return !p.IsCalculatedProperty && !p.IsExcludedFromQuery && p.Column != ""
}

// FormatValue renders a value of this property for display.
func (p *PropertyMetadata) FormatValue(value any) string {
	return FormatValue(value, p.DisplayFormat, p.FormatProvider, p.EmptyValueDisplay)
}

// Clone returns a shallow copy of the property.
func (p *PropertyMetadata) Clone() *PropertyMetadata {
	c := *p
	return &c
}

// NavigationMetadata describes a relationship from an entity to another entity.
type NavigationMetadata struct {
	PropertyBase

	TargetType              reflect.Type
	TargetEntityName        string
	IsCollection            bool
	TargetEntityProperties  []*PropertyMetadata
	TargetEntityNavigations []*NavigationMetadata
}

// Clone returns a copy of the navigation without its resolved target tree.
func (n *NavigationMetadata) Clone() *NavigationMetadata {
	c := *n
	c.TargetEntityProperties = nil
	c.TargetEntityNavigations = nil
	return &c
}

// FindTargetProperty finds a property of the navigation target by name.
func (n *NavigationMetadata) FindTargetProperty(name string) *PropertyMetadata {
	return findProperty(n.TargetEntityProperties, name)
}

// FindTargetNavigation finds a nested navigation of the navigation target by name.
func (n *NavigationMetadata) FindTargetNavigation(name string) *NavigationMetadata {
	return findNavigation(n.TargetEntityNavigations, name)
}

// EntityMetadata holds the resolved admin description of an entity type.
type EntityMetadata struct {
	ID          uuid.UUID
	StringID    string
	Name        string
	DisplayName string
	PluralName  string
	Description string
	Type        reflect.Type
	Table       string

	IsEditable bool
	IsHidden   bool
	IsKeyless  bool
	CanAdd     bool
	CanEdit    bool
	CanDelete  bool
	Group      *Group

	Properties  []*PropertyMetadata
	Navigations []*NavigationMetadata

	// KeyProperties holds the primary key, including key properties an
	// allow-list left out of Properties.
	KeyProperties []*PropertyMetadata

	SearchFunction      SearchFunc
	CustomQueryFunction QueryFunc
	AfterUpdateAction   AfterUpdateFunc
	CreateAction        CreateFunc
	UpdateAction        UpdateFunc

	Messages           Messages
	MaxNavigationDepth int
}

// FindProperty finds a property by name.
func (e *EntityMetadata) FindProperty(name string) *PropertyMetadata {
	return findProperty(e.Properties, name)
}

// FindNavigation finds a navigation by name.
func (e *EntityMetadata) FindNavigation(name string) *NavigationMetadata {
	return findNavigation(e.Navigations, name)
}

// PrimaryKeys returns the key properties in declaration order.
func (e *EntityMetadata) PrimaryKeys() []*PropertyMetadata {
	if len(e.KeyProperties) > 0 {
		return e.KeyProperties
	}
	var keys []*PropertyMetadata
	for _, p := range e.Properties {
		if p.IsPrimaryKey {
			keys = append(keys, p)
		}
	}
	return keys
}

// EditableProperties returns the properties an admin form may change.
func (e *EntityMetadata) EditableProperties() []*PropertyMetadata {
	var props []*PropertyMetadata
	for _, p := range e.Properties {
		if p.IsEditable {
			props = append(props, p)
		}
	}
	return props
}

// New allocates a zero instance of the entity type and returns a pointer to it.
func (e *EntityMetadata) New() any {
	return reflect.New(e.Type).Interface()
}

// NewSlice allocates an empty slice of the entity type and returns a pointer to it.
func (e *EntityMetadata) NewSlice() any {
	return reflect.New(reflect.SliceOf(e.Type)).Interface()
}

// IsInstance reports whether value is a pointer to the entity type.
func (e *EntityMetadata) IsInstance(value any) bool {
	t := reflect.TypeOf(value)
	return t != nil && t.Kind() == reflect.Ptr && t.Elem() == e.Type
}

func findProperty(props []*PropertyMetadata, name string) *PropertyMetadata {
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

func findNavigation(navs []*NavigationMetadata, name string) *NavigationMetadata {
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
