package metadata

import (
	"reflect"
	"testing"
)

type Audit struct {
	CreatedBy string
}

type accessorOwner struct {
	*Audit
	Name     string
	Nickname *string
	Quantity int
	Price    float64
}

func (o accessorOwner) Total() float64 {
	return float64(o.Quantity) * o.Price
}

func (o *accessorOwner) Label() string {
	return "owner:" + o.Name
}

func TestAccessor_FieldGetAndSet(t *testing.T) {
	a, typ, ok := ResolveMember(reflect.TypeOf(accessorOwner{}), "Name")
	if !ok || typ.Kind() != reflect.String {
		t.Fatalf("ResolveMember(Name) = %v, %v", typ, ok)
	}
	owner := &accessorOwner{Name: "Ann"}

	v, ok := a.Get(owner)
	if !ok || v != "Ann" {
		t.Fatalf("Get() = %v, %v, want Ann", v, ok)
	}
	if err := a.Set(owner, "Bob"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if owner.Name != "Bob" {
		t.Fatalf("Name = %s, want Bob", owner.Name)
	}
	if err := a.Set(*owner, "Eve"); err == nil {
		t.Fatalf("Set on non-pointer should fail")
	}
}

func TestAccessor_SetPointerField(t *testing.T) {
	a, _, _ := ResolveMember(reflect.TypeOf(accessorOwner{}), "Nickname")
	owner := &accessorOwner{}
	if err := a.Set(owner, "Nick"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if owner.Nickname == nil || *owner.Nickname != "Nick" {
		t.Fatalf("Nickname = %v, want Nick", owner.Nickname)
	}
	if err := a.Set(owner, nil); err != nil || owner.Nickname != nil {
		t.Fatalf("Set(nil) = %v, Nickname = %v", err, owner.Nickname)
	}
}

func TestAccessor_PromotedFieldThroughNilPointer(t *testing.T) {
	a, _, ok := ResolveMember(reflect.TypeOf(accessorOwner{}), "CreatedBy")
	if !ok {
		t.Fatalf("promoted field not resolved")
	}
	if _, ok := a.Get(&accessorOwner{}); ok {
		t.Fatalf("Get through nil embedded pointer should report false")
	}
	v, ok := a.Get(&accessorOwner{Audit: &Audit{CreatedBy: "admin"}})
	if !ok || v != "admin" {
		t.Fatalf("Get() = %v, %v, want admin", v, ok)
	}
}

func TestAccessor_Methods(t *testing.T) {
	owner := accessorOwner{Name: "Ann", Quantity: 3, Price: 2.5}

	total, _, ok := ResolveMember(reflect.TypeOf(owner), "Total")
	if !ok || !total.IsMethod() {
		t.Fatalf("Total not resolved as method")
	}
	for _, instance := range []any{owner, &owner} {
		v, ok := total.Get(instance)
		if !ok || v != 7.5 {
			t.Fatalf("Total on %T = %v, %v, want 7.5", instance, v, ok)
		}
	}

	label, typ, ok := ResolveMember(reflect.TypeOf(owner), "Label")
	if !ok || typ.Kind() != reflect.String {
		t.Fatalf("Label not resolved on pointer receiver")
	}
	for _, instance := range []any{owner, &owner} {
		v, ok := label.Get(instance)
		if !ok || v != "owner:Ann" {
			t.Fatalf("Label on %T = %v, %v", instance, v, ok)
		}
	}
	if _, ok := label.Get((*accessorOwner)(nil)); ok {
		t.Fatalf("Label on nil pointer should report false")
	}
}

func TestResolveMember_Unknown(t *testing.T) {
	if _, _, ok := ResolveMember(reflect.TypeOf(accessorOwner{}), "Missing"); ok {
		t.Fatalf("expected Missing to be unresolved")
	}
	if _, _, ok := ResolveMember(reflect.TypeOf(0), "Name"); ok {
		t.Fatalf("expected non-struct to be unresolved")
	}
}
