package introspect

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// GormProvider derives entities from GORM schemas. Registered models come
// first, followed by every type reachable from them through relationships.
type GormProvider struct {
	db *gorm.DB

	mu     sync.RWMutex
	models []reflect.Type
}

// NewGormProvider returns a provider over the given models.
func NewGormProvider(db *gorm.DB, models ...any) *GormProvider {
	p := &GormProvider{db: db}
	p.Register(models...)
	return p
}

// Register adds models. Already registered types are ignored.
func (p *GormProvider) Register(models ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, m := range models {
		t := reflect.TypeOf(m)
		for t != nil && t.Kind() == reflect.Ptr {
			t = t.Elem()
		}
		if t == nil || containsType(p.models, t) {
			continue
		}
		p.models = append(p.models, t)
	}
}

// Schema parses the GORM schema of an entity type.
func (p *GormProvider) Schema(t reflect.Type) (*schema.Schema, error) {
	return ParseSchema(p.db, t)
}

// ParseSchema parses the GORM schema of t using the schema cache of db.
func ParseSchema(db *gorm.DB, t reflect.Type) (*schema.Schema, error) {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(reflect.New(t).Interface()); err != nil {
		return nil, fmt.Errorf("failed to parse schema of %s: %w", t.Name(), err)
	}
	return stmt.Schema, nil
}

// Entities parses every registered model and the models reachable from them.
func (p *GormProvider) Entities(ctx context.Context) ([]Entity, error) {
	p.mu.RLock()
	queue := append([]reflect.Type(nil), p.models...)
	p.mu.RUnlock()

	var schemas []*schema.Schema
	seen := map[reflect.Type]bool{}
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		t := queue[0]
		queue = queue[1:]
		if seen[t] {
			continue
		}
		seen[t] = true

		s, err := p.Schema(t)
		if err != nil {
			return nil, err
		}
		schemas = append(schemas, s)
		for _, rel := range orderedRelations(s) {
			if rel.FieldSchema != nil && !seen[rel.FieldSchema.ModelType] {
				queue = append(queue, rel.FieldSchema.ModelType)
			}
		}
	}

	foreignKeys := collectForeignKeys(schemas)
	entities := make([]Entity, 0, len(schemas))
	for _, s := range schemas {
		entities = append(entities, buildEntity(s, foreignKeys[s.ModelType]))
	}
	return entities, nil
}

func buildEntity(s *schema.Schema, foreignKeys map[string]bool) Entity {
	e := Entity{Name: s.Name, Type: s.ModelType, Table: s.Table}
	for _, f := range s.Fields {
		if f.DBName == "" {
			continue
		}
		e.Properties = append(e.Properties, Property{
			Name:                f.Name,
			Column:              f.DBName,
			Type:                f.FieldType,
			Index:               f.StructField.Index,
			Tag:                 f.Tag,
			IsPrimaryKey:        f.PrimaryKey,
			IsForeignKey:        foreignKeys[f.Name],
			IsShadow:            !f.Readable,
			IsGeneratedOnAdd:    f.AutoIncrement || f.AutoCreateTime > 0 || (f.PrimaryKey && f.HasDefaultValue && f.DefaultValueInterface == nil && f.DefaultValue == ""),
			IsGeneratedOnUpdate: f.AutoUpdateTime > 0,
			IsNullable:          isTypeNullable(f.FieldType) && !f.NotNull,
			IsUpdatable:         f.Updatable,
		})
	}
	for _, rel := range orderedRelations(s) {
		if rel.FieldSchema == nil || rel.Field == nil {
			continue
		}
		e.Navigations = append(e.Navigations, Navigation{
			Name:   rel.Name,
			Index:  rel.Field.StructField.Index,
			Tag:    rel.Field.Tag,
			Target: rel.FieldSchema.ModelType,
			Kind:   RelationKind(rel.Type),
		})
	}
	return e
}

// orderedRelations returns the relationships of s in struct field order.
func orderedRelations(s *schema.Schema) []*schema.Relationship {
	rels := make([]*schema.Relationship, 0, len(s.Relationships.Relations))
	for _, rel := range s.Relationships.Relations {
		if rel.Field == nil {
			continue
		}
		rels = append(rels, rel)
	}
	sort.SliceStable(rels, func(i, j int) bool {
		return lessIndex(rels[i].Field.StructField.Index, rels[j].Field.StructField.Index)
	})
	return rels
}

// collectForeignKeys maps each model type to the names of its fields used as a foreign key by any relationship.
func collectForeignKeys(schemas []*schema.Schema) map[reflect.Type]map[string]bool {
	result := map[reflect.Type]map[string]bool{}
	for _, s := range schemas {
		for _, rel := range s.Relationships.Relations {
			if rel.JoinTable != nil {
				continue
			}
			for _, ref := range rel.References {
				if ref.ForeignKey == nil || ref.ForeignKey.Schema == nil {
					continue
				}
				t := ref.ForeignKey.Schema.ModelType
				if result[t] == nil {
					result[t] = map[string]bool{}
				}
				result[t][ref.ForeignKey.Name] = true
			}
		}
	}
	return result
}

func lessIndex(a, b []int) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

// isTypeNullable checks if a Go type can represent null values
func isTypeNullable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice:
		return true
	default:
		return false
	}
}

func containsType(list []reflect.Type, t reflect.Type) bool {
	for _, x := range list {
		if x == t {
			return true
		}
	}
	return false
}
