// Package introspect reads the raw entity model from the ORM mapping.
package introspect

import (
	"context"
	"reflect"
)

// RelationKind is the cardinality of a navigation.
type RelationKind string

const (
	HasOne     RelationKind = "has_one"
	HasMany    RelationKind = "has_many"
	BelongsTo  RelationKind = "belongs_to"
	ManyToMany RelationKind = "many_to_many"
)

// IsCollection reports whether the relation yields many targets.
func (k RelationKind) IsCollection() bool {
	return k == HasMany || k == ManyToMany
}

// Entity is an ORM mapped type before any admin configuration is applied.
type Entity struct {
	Name        string
	Type        reflect.Type
	Table       string
	Properties  []Property
	Navigations []Navigation
}

// Property is a column mapped member of an Entity. IsShadow marks a stored
// column whose value is never read into the model, such as a GORM write-only
// field (`gorm:"<-;->:false"`).
type Property struct {
	Name                string
	Column              string
	Type                reflect.Type
	Index               []int
	Tag                 reflect.StructTag
	IsPrimaryKey        bool
	IsForeignKey        bool
	IsShadow            bool
	IsGeneratedOnAdd    bool
	IsGeneratedOnUpdate bool
	IsNullable          bool
	IsUpdatable         bool
}

// Navigation is a relationship member of an Entity.
type Navigation struct {
	Name   string
	Index  []int
	Tag    reflect.StructTag
	Target reflect.Type
	Kind   RelationKind
}

// Provider supplies the raw entity model.
type Provider interface {
	Entities(ctx context.Context) ([]Entity, error)
}

// Static is a Provider over a fixed entity list.
type Static []Entity

// Entities returns the fixed list.
func (s Static) Entities(context.Context) ([]Entity, error) {
	return s, nil
}
