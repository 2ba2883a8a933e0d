package query

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/saritasa-nest/saritasa-forge-admin-sub001/internal/metadata"
)

type address struct {
	ID     int
	Street string
	Zip    int
}

type shop struct {
	ID        int
	Name      string
	Code      string
	AddressID int
	Address   *address
	Products  []product
}

type product struct {
	ID     int
	Name   string
	ShopID int
}

type lineKey struct {
	OrderID uuid.UUID
	Line    int
}

func prop(t *testing.T, owner any, name, column string) *metadata.PropertyMetadata {
	t.Helper()
	a, typ, ok := metadata.ResolveMember(reflect.TypeOf(owner), name)
	if !ok {
		t.Fatalf("member %s not found on %T", name, owner)
	}
	p := &metadata.PropertyMetadata{
		PropertyBase: metadata.PropertyBase{Name: name, DisplayName: name, IsSortable: true},
		Type:         typ,
		Column:       column,
	}
	p.SetAccessor(a)
	return p
}

func shopMetadata(t *testing.T) *metadata.EntityMetadata {
	t.Helper()
	id := prop(t, shop{}, "ID", "id")
	id.IsPrimaryKey = true
	name := prop(t, shop{}, "Name", "name")
	name.SearchType = metadata.SearchContainsCaseInsensitive
	code := prop(t, shop{}, "Code", "code")
	code.SearchType = metadata.SearchStartsWithCaseSensitive
	code.IsSortable = false

	street := prop(t, address{}, "Street", "street")
	zip := prop(t, address{}, "Zip", "zip")
	addr := &metadata.NavigationMetadata{
		PropertyBase:            metadata.PropertyBase{Name: "Address"},
		TargetEntityName:        "address",
		TargetEntityProperties:  []*metadata.PropertyMetadata{prop(t, address{}, "ID", "id"), street, zip},
		TargetEntityNavigations: []*metadata.NavigationMetadata{},
	}
	products := &metadata.NavigationMetadata{
		PropertyBase:           metadata.PropertyBase{Name: "Products"},
		IsCollection:           true,
		TargetEntityProperties: []*metadata.PropertyMetadata{prop(t, product{}, "Name", "name")},
	}

	return &metadata.EntityMetadata{
		Name:        "shop",
		Type:        reflect.TypeOf(shop{}),
		Properties:  []*metadata.PropertyMetadata{id, name, code, prop(t, shop{}, "AddressID", "address_id")},
		Navigations: []*metadata.NavigationMetadata{addr, products},
	}
}

func TestBuildSearch_SingleTermOrsAllTargets(t *testing.T) {
	e := shopMetadata(t)

	got := BuildSearch(e, "  acme ", false)
	or, ok := got.(Or)
	if !ok {
		t.Fatalf("BuildSearch() = %T, want Or", got)
	}
	if len(or) != 2 {
		t.Fatalf("len(Or) = %d, want 2", len(or))
	}
	first := or[0].(Compare)
	if first.Op != OpContains || first.Path.String() != "Name" || first.Term != "acme" {
		t.Errorf("first = %+v, want contains Name acme", first)
	}
	second := or[1].(Compare)
	if second.Op != OpStartsWith || second.Path.String() != "Code" {
		t.Errorf("second = %+v, want startswith Code", second)
	}
}

func TestBuildSearch_NavigationParticipation(t *testing.T) {
	e := shopMetadata(t)
	e.Navigations[0].SearchType = metadata.SearchExactMatchCaseInsensitive

	targets := SearchTargets(e)
	if len(targets) != 3 {
		t.Fatalf("len(targets) = %d, want 3", len(targets))
	}
	nav := targets[2]
	if nav.Path.String() != "Address.Street" || nav.Op != OpEquals {
		t.Errorf("navigation target = %s %v, want Address.Street equals", nav.Path, nav.Op)
	}

	e.Navigations[0].TargetEntityProperties[2].SearchType = metadata.SearchContainsCaseInsensitive
	targets = SearchTargets(e)
	if got := targets[2].Path.String(); got != "Address.Zip" {
		t.Errorf("explicit target property = %s, want Address.Zip", got)
	}
}

func TestBuildSearch_SplitTermsAreAnded(t *testing.T) {
	e := shopMetadata(t)

	got := BuildSearch(e, `red "coffee cup"`, true)
	and, ok := got.(And)
	if !ok {
		t.Fatalf("BuildSearch() = %T, want And", got)
	}
	if len(and) != 2 {
		t.Fatalf("len(And) = %d, want 2", len(and))
	}
	if term := and[1].(Or)[0].(Compare).Term; term != "coffee cup" {
		t.Errorf("second term = %q, want %q", term, "coffee cup")
	}
}

func TestBuildSearch_NoTargetsOrBlank(t *testing.T) {
	e := shopMetadata(t)
	if got := BuildSearch(e, "   ", false); got != nil {
		t.Errorf("blank search = %v, want nil", got)
	}

	e.Properties[1].SearchType = metadata.SearchNone
	e.Properties[2].SearchType = metadata.SearchNone
	if got := BuildSearch(e, "acme", false); got != nil {
		t.Errorf("no searchable properties = %v, want nil", got)
	}
}

func TestSplitTerms(t *testing.T) {
	tests := map[string][]string{
		"":                  nil,
		"one":               {"one"},
		" one   two ":       {"one", "two"},
		`"a b" c`:           {"a b", "c"},
		`x"y z"`:            {"x", "y z"},
		`"unterminated one`: {"unterminated one"},
	}
	for in, want := range tests {
		if got := SplitTerms(in); !reflect.DeepEqual(got, want) {
			t.Errorf("SplitTerms(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAllOfAnyOf(t *testing.T) {
	a := Contains(Path{}, "a")
	b := Equals(Path{}, "b")

	if got := AllOf(nil, nil); got != nil {
		t.Errorf("AllOf(nil, nil) = %v, want nil", got)
	}
	if got, ok := AllOf(a).(Compare); !ok || got.Term != "a" {
		t.Errorf("AllOf(a) = %v, want a", got)
	}
	if got := AllOf(And{a, b}, a); len(got.(And)) != 3 {
		t.Errorf("AllOf did not flatten: %v", got)
	}
	if got := AnyOf(Or{a}, b, nil); len(got.(Or)) != 2 {
		t.Errorf("AnyOf did not flatten: %v", got)
	}
}

func TestResolveOrder(t *testing.T) {
	e := shopMetadata(t)

	orders, err := ResolveOrder(e, []OrderBy{{Path: "Address.Street", Descending: true}, {Path: "name"}})
	if err != nil {
		t.Fatalf("ResolveOrder() error = %v", err)
	}
	got := make([]string, 0, len(orders))
	for _, o := range orders {
		got = append(got, o.Path.String())
	}
	want := []string{"Address.Street", "Name", "ID"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("order paths = %v, want %v", got, want)
	}
	if !orders[0].Descending || orders[1].Descending {
		t.Errorf("directions = %v/%v, want desc/asc", orders[0].Descending, orders[1].Descending)
	}

	orders, err = ResolveOrder(e, nil)
	if err != nil || len(orders) != 1 || orders[0].Path.Property.Name != "ID" {
		t.Errorf("default order = %v (%v), want ID", orders, err)
	}

	orders, _ = ResolveOrder(e, []OrderBy{{Path: "ID", Descending: true}})
	if len(orders) != 1 {
		t.Errorf("explicit key order should not be duplicated, got %d terms", len(orders))
	}
}

func TestResolveOrder_Invalid(t *testing.T) {
	e := shopMetadata(t)
	for _, path := range []string{"Missing", "Code", "Products.Name", "Address.Missing", ""} {
		if _, err := ResolveOrder(e, []OrderBy{{Path: path}}); !errors.Is(err, ErrInvalidQuery) {
			t.Errorf("ResolveOrder(%q) error = %v, want ErrInvalidQuery", path, err)
		}
	}
}

func TestParseOrderBy(t *testing.T) {
	tests := map[string]OrderBy{
		"Name":           {Path: "Name"},
		"-Name":          {Path: "Name", Descending: true},
		"Shop.Name desc": {Path: "Shop.Name", Descending: true},
		"Name ASC":       {Path: "Name"},
	}
	for in, want := range tests {
		if got := ParseOrderBy(in); got != want {
			t.Errorf("ParseOrderBy(%q) = %+v, want %+v", in, got, want)
		}
	}
}

func TestNormalizePage(t *testing.T) {
	tests := []struct {
		number, size int
		want         Page
		offset       int
	}{
		{1, 10, Page{1, 10}, 0},
		{3, 10, Page{3, 10}, 20},
		{0, 10, Page{1, 10}, 0},
		{-4, 0, Page{1, 25}, 0},
		{2, -1, Page{2, 25}, 25},
		{1, 10000, Page{1, 500}, 0},
		{math.MaxInt/500 + 2, 500, Page{math.MaxInt / 500, 500}, (math.MaxInt/500 - 1) * 500},
		{math.MaxInt, 0, Page{math.MaxInt / 25, 25}, (math.MaxInt/25 - 1) * 25},
		{math.MaxInt, 1, Page{math.MaxInt, 1}, math.MaxInt - 1},
	}
	for _, tt := range tests {
		got := NormalizePage(tt.number, tt.size, 25, 500)
		if got != tt.want {
			t.Errorf("NormalizePage(%d, %d) = %+v, want %+v", tt.number, tt.size, got, tt.want)
		}
		if got.Offset() != tt.offset {
			t.Errorf("Offset() = %d, want %d", got.Offset(), tt.offset)
		}
	}
}

func TestPage_OffsetNeverNegative(t *testing.T) {
	for _, p := range []Page{{math.MaxInt, 1}, {math.MaxInt, 500}, {math.MaxInt / 2, 3}, {0, 10}, {5, 0}} {
		if off := p.Offset(); off < 0 {
			t.Errorf("%+v.Offset() = %d, want >= 0", p, off)
		}
	}
}

func TestBuilder_Build(t *testing.T) {
	e := shopMetadata(t)
	calls := 0
	e.SearchFunction = func(_ context.Context, db *gorm.DB, _ string) *gorm.DB {
		calls++
		return db
	}

	plan, err := Builder{DefaultPageSize: 10}.Build(e, Request{
		Search:     " acme ",
		Properties: []string{"Name", "ID"},
		Include:    []string{"address"},
		Page:       2,
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if plan.Search != "acme" || plan.Filter == nil || plan.SearchFunction == nil {
		t.Errorf("search not planned: %+v", plan)
	}
	if plan.Page != (Page{Number: 2, Size: 10}) {
		t.Errorf("Page = %+v", plan.Page)
	}
	if len(plan.Properties) != 2 || plan.Properties[0].Name != "Name" {
		t.Errorf("Properties = %v", plan.Properties)
	}
	if !reflect.DeepEqual(plan.Include, []string{"Address"}) {
		t.Errorf("Include = %v, want [Address]", plan.Include)
	}
	if calls != 0 {
		t.Errorf("search function must not run while planning")
	}

	plan, err = Builder{}.Build(e, Request{})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if plan.Filter != nil || plan.SearchFunction != nil {
		t.Errorf("blank search should not filter")
	}
	if len(plan.Properties) != 4 {
		t.Errorf("default projection = %d properties, want 4", len(plan.Properties))
	}

	if _, err := (Builder{}).Build(e, Request{Include: []string{"Owner"}}); !errors.Is(err, ErrInvalidQuery) {
		t.Errorf("unknown include error = %v, want ErrInvalidQuery", err)
	}
	if _, err := (Builder{}).Build(e, Request{Properties: []string{"Nope"}}); !errors.Is(err, ErrInvalidQuery) {
		t.Errorf("unknown property error = %v, want ErrInvalidQuery", err)
	}
}

func TestProject(t *testing.T) {
	e := shopMetadata(t)
	s := &shop{ID: 7, Name: "Acme", Code: "AC"}

	got := Project(e.Properties[:2], s)
	want := map[string]any{"ID": 7, "Name": "Acme"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Project() = %v, want %v", got, want)
	}

	r := &Result{Items: []any{s, &shop{ID: 8}}, Total: 51, Page: Page{Number: 1, Size: 25}}
	if rows := ProjectAll(e.Properties[:1], r.Items); len(rows) != 2 || rows[1]["ID"] != 8 {
		t.Errorf("ProjectAll() = %v", rows)
	}
	if r.TotalPages() != 3 {
		t.Errorf("TotalPages() = %d, want 3", r.TotalPages())
	}
}

func TestKeyRoundTrip(t *testing.T) {
	idProp := prop(t, lineKey{}, "OrderID", "order_id")
	idProp.IsPrimaryKey = true
	lineProp := prop(t, lineKey{}, "Line", "line")
	lineProp.IsPrimaryKey = true
	e := &metadata.EntityMetadata{Name: "line", Properties: []*metadata.PropertyMetadata{idProp, lineProp}}

	instance := &lineKey{OrderID: uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8"), Line: 3}
	key, err := EncodeKey(DefaultKeyCodec, e, instance)
	if err != nil {
		t.Fatalf("EncodeKey() error = %v", err)
	}
	if key != "6ba7b810-9dad-11d1-80b4-00c04fd430c8--3" {
		t.Errorf("EncodeKey() = %q", key)
	}

	values, err := DecodeKey(DefaultKeyCodec, e, key)
	if err != nil {
		t.Fatalf("DecodeKey() error = %v", err)
	}
	if values[0] != instance.OrderID || values[1] != 3 {
		t.Errorf("DecodeKey() = %v", values)
	}

	if _, err := DecodeKey(DefaultKeyCodec, e, "only-one-part"); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("part count mismatch error = %v, want ErrInvalidKey", err)
	}
	if _, err := DecodeKey(DefaultKeyCodec, e, "not-a-uuid--1"); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("bad uuid error = %v, want ErrInvalidKey", err)
	}
}

func TestDelimitedKeyCodec(t *testing.T) {
	codec := DelimitedKeyCodec{}
	parts := []string{"a", "b-c", "", "d"}
	key, err := codec.Encode(parts)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	got, err := codec.Decode(key)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if !reflect.DeepEqual(got, parts) {
		t.Errorf("round trip = %q, want %q", got, parts)
	}

	if _, err := codec.Encode([]string{"a--b"}); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("Encode() with separator error = %v, want ErrInvalidKey", err)
	}
	if _, err := codec.Decode(""); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("Decode(\"\") error = %v, want ErrInvalidKey", err)
	}
}

func TestParseKeyPart(t *testing.T) {
	ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		typ  reflect.Type
		in   string
		want any
	}{
		{reflect.TypeOf(""), "abc", "abc"},
		{reflect.TypeOf(int64(0)), "-12", int64(-12)},
		{reflect.TypeOf(uint(0)), "12", uint(12)},
		{reflect.TypeOf(0.0), "1.5", 1.5},
		{reflect.TypeOf(true), "true", true},
	}
	for _, tt := range tests {
		got, err := ParseKeyPart(tt.typ, tt.in)
		if err != nil {
			t.Fatalf("ParseKeyPart(%s, %q) error = %v", tt.typ, tt.in, err)
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ParseKeyPart(%s, %q) = %v, want %v", tt.typ, tt.in, got, tt.want)
		}
	}
	got, err := ParseKeyPart(reflect.TypeOf(&ts), FormatKeyPart(&ts))
	if err != nil || !got.(time.Time).Equal(ts) {
		t.Errorf("ParseKeyPart(time) = %v (%v), want %v", got, err, ts)
	}
	if _, err := ParseKeyPart(reflect.TypeOf(0), "x"); err == nil {
		t.Error("ParseKeyPart(int, x) expected error")
	}
}
