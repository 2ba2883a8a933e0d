package metadata

import (
	"reflect"
	"testing"

	"github.com/google/uuid"
)

type graphShop struct{ ID int }
type graphProduct struct{ ID int }
type graphLog struct{ ID int }

func testEntities() []*EntityMetadata {
	catalog := &Group{Name: "Catalog", Description: "Products and shops"}
	return []*EntityMetadata{
		{ID: uuid.New(), StringID: "shops", Name: "graphShop", Type: reflect.TypeOf(graphShop{}), Group: catalog},
		{ID: uuid.New(), StringID: "logs", Name: "graphLog", Type: reflect.TypeOf(graphLog{})},
		{ID: uuid.New(), StringID: "products", Name: "graphProduct", Type: reflect.TypeOf(graphProduct{}), Group: catalog,
			Properties: []*PropertyMetadata{{PropertyBase: PropertyBase{Name: "ID"}, IsPrimaryKey: true}}},
		{ID: uuid.New(), StringID: "hidden", Name: "hidden", IsHidden: true},
	}
}

func TestGraph_Lookups(t *testing.T) {
	entities := testEntities()
	g := NewGraph(entities)

	if e, ok := g.ByStringID("Products"); !ok || e != entities[2] {
		t.Fatalf("ByStringID(Products) = %v, %v", e, ok)
	}
	if e, ok := g.ByID(entities[0].ID); !ok || e != entities[0] {
		t.Fatalf("ByID() = %v, %v", e, ok)
	}
	if e, ok := g.ByType(reflect.TypeOf(&graphLog{})); !ok || e != entities[1] {
		t.Fatalf("ByType(*graphLog) = %v, %v", e, ok)
	}
	if _, ok := g.ByStringID("missing"); ok {
		t.Fatalf("expected missing lookup to fail")
	}
}

func TestGraph_Grouped(t *testing.T) {
	g := NewGraph(testEntities())
	groups := g.Grouped()

	if len(groups) != 2 {
		t.Fatalf("len(groups) = %d, want 2", len(groups))
	}
	if groups[0].Group.Name != "" || len(groups[0].Entities) != 1 || groups[0].Entities[0].StringID != "logs" {
		t.Fatalf("ungrouped first = %+v", groups[0])
	}
	if groups[1].Group.Name != "Catalog" || len(groups[1].Entities) != 2 {
		t.Fatalf("catalog group = %+v", groups[1])
	}
}

func TestGraph_FingerprintIgnoresIDs(t *testing.T) {
	a := NewGraph(testEntities())
	b := NewGraph(testEntities())
	if a.Fingerprint != b.Fingerprint {
		t.Fatalf("fingerprints differ for equal shapes: %d != %d", a.Fingerprint, b.Fingerprint)
	}

	changed := testEntities()
	changed[2].Properties[0].DisplayName = "Identifier"
	if NewGraph(changed).Fingerprint == a.Fingerprint {
		t.Fatalf("fingerprint did not change with display name")
	}
}
