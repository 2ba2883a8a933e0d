package metadata

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
)

// Graph is the resolved metadata of every admin entity.
type Graph struct {
	Entities []*EntityMetadata
	// Fingerprint hashes the shape of the graph, excluding per-resolution ids.
	Fingerprint uint64

	byID       map[uuid.UUID]*EntityMetadata
	byStringID map[string]*EntityMetadata
	byType     map[reflect.Type]*EntityMetadata
}

// NewGraph indexes the given entities.
func NewGraph(entities []*EntityMetadata) *Graph {
	g := &Graph{
		Entities:   entities,
		byID:       make(map[uuid.UUID]*EntityMetadata, len(entities)),
		byStringID: make(map[string]*EntityMetadata, len(entities)),
		byType:     make(map[reflect.Type]*EntityMetadata, len(entities)),
	}
	for _, e := range entities {
		g.byID[e.ID] = e
		g.byStringID[strings.ToLower(e.StringID)] = e
		g.byType[e.Type] = e
	}
	g.Fingerprint = fingerprint(entities)
	return g
}

// ByID finds an entity by its resolution id.
func (g *Graph) ByID(id uuid.UUID) (*EntityMetadata, bool) {
	e, ok := g.byID[id]
	return e, ok
}

// ByStringID finds an entity by its url identifier, ignoring case.
func (g *Graph) ByStringID(id string) (*EntityMetadata, bool) {
	e, ok := g.byStringID[strings.ToLower(id)]
	return e, ok
}

// ByType finds an entity by its model type. Pointer types are dereferenced.
func (g *Graph) ByType(t reflect.Type) (*EntityMetadata, bool) {
	e, ok := g.byType[dereferenceType(t)]
	return e, ok
}

// GroupedEntities is a group with the visible entities assigned to it.
type GroupedEntities struct {
	Group    Group
	Entities []*EntityMetadata
}

// Grouped returns the visible entities grouped by their group, in first-seen order.
// Entities without a group come first under an unnamed group.
func (g *Graph) Grouped() []GroupedEntities {
	var result []GroupedEntities
	index := map[string]int{}
	for _, e := range g.Entities {
		if e.IsHidden {
			continue
		}
		var grp Group
		if e.Group != nil {
			grp = *e.Group
		}
		i, ok := index[grp.Name]
		if !ok {
			i = len(result)
			index[grp.Name] = i
			result = append(result, GroupedEntities{Group: grp})
		}
		result[i].Entities = append(result[i].Entities, e)
	}
	for i, r := range result {
		if r.Group.Name == "" && i > 0 {
			copy(result[1:i+1], result[0:i])
			result[0] = r
			break
		}
	}
	return result
}

func fingerprint(entities []*EntityMetadata) uint64 {
	d := xxhash.New()
	w := func(parts ...string) {
		for _, p := range parts {
			_, _ = d.WriteString(p)
			_, _ = d.WriteString("\x00")
		}
	}
	var writeProps func(props []*PropertyMetadata)
	writeProps = func(props []*PropertyMetadata) {
		for _, p := range props {
			w("p", p.Name, p.DisplayName, p.Column, p.SearchType.String(),
				strconv.FormatBool(p.IsPrimaryKey), strconv.FormatBool(p.IsEditable),
				strconv.FormatBool(p.IsSortable), strconv.FormatBool(p.IsCalculatedProperty))
		}
	}
	var writeNavs func(navs []*NavigationMetadata)
	writeNavs = func(navs []*NavigationMetadata) {
		for _, n := range navs {
			w("n", n.Name, n.TargetEntityName, strconv.FormatBool(n.IsCollection))
			writeProps(n.TargetEntityProperties)
			w("[")
			writeNavs(n.TargetEntityNavigations)
			w("]")
		}
	}
	for _, e := range entities {
		w("e", e.Name, e.StringID, e.DisplayName, e.PluralName, e.Table,
			strconv.FormatBool(e.IsHidden), strconv.Itoa(e.MaxNavigationDepth))
		writeProps(e.Properties)
		writeNavs(e.Navigations)
	}
	return d.Sum64()
}
