package metadata

import (
	"fmt"
	"reflect"
)

type accessorKind int

const (
	accessorNone accessorKind = iota
	accessorField
	accessorMethod
)

// Accessor reads a member value from an entity instance. It is bound either to a
// struct field, by index path, or to an exported method taking no arguments.
type Accessor struct {
	kind   accessorKind
	index  []int
	method string
}

// FieldAccessor binds to the struct field at the given index path.
func FieldAccessor(index []int) Accessor {
	return Accessor{kind: accessorField, index: append([]int(nil), index...)}
}

// MethodAccessor binds to a method with no arguments and a single result.
func MethodAccessor(name string) Accessor {
	return Accessor{kind: accessorMethod, method: name}
}

// IsValid reports whether the accessor is bound.
func (a Accessor) IsValid() bool {
	return a.kind != accessorNone
}

// IsMethod reports whether the accessor reads a method result.
func (a Accessor) IsMethod() bool {
	return a.kind == accessorMethod
}

// Get reads the member from instance, which may be a struct or a pointer to one.
// The boolean result is false when the value cannot be read, for example through a nil embedded pointer.
func (a Accessor) Get(instance any) (any, bool) {
	v := reflect.ValueOf(instance)
	switch a.kind {
	case accessorField:
		v = indirect(v)
		if !v.IsValid() || v.Kind() != reflect.Struct {
			return nil, false
		}
		f, err := v.FieldByIndexErr(a.index)
		if err != nil {
			return nil, false
		}
		return f.Interface(), true
	case accessorMethod:
		return a.call(v)
	default:
		return nil, false
	}
}

// Set assigns value to the bound field. instance must be a pointer to a struct.
func (a Accessor) Set(instance any, value any) error {
	if a.kind != accessorField {
		return fmt.Errorf("member is not settable")
	}
	v := reflect.ValueOf(instance)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return fmt.Errorf("instance must be a non-nil pointer, got %T", instance)
	}
	f, err := v.Elem().FieldByIndexErr(a.index)
	if err != nil {
		return err
	}
	if value == nil {
		f.Set(reflect.Zero(f.Type()))
		return nil
	}
	nv := reflect.ValueOf(value)
	switch {
	case nv.Type().AssignableTo(f.Type()):
		f.Set(nv)
	case nv.Type().ConvertibleTo(f.Type()):
		f.Set(nv.Convert(f.Type()))
	case f.Kind() == reflect.Ptr && nv.Type().ConvertibleTo(f.Type().Elem()):
		p := reflect.New(f.Type().Elem())
		p.Elem().Set(nv.Convert(f.Type().Elem()))
		f.Set(p)
	default:
		return fmt.Errorf("cannot assign %s to %s", nv.Type(), f.Type())
	}
	return nil
}

func (a Accessor) call(v reflect.Value) (any, bool) {
	if !v.IsValid() {
		return nil, false
	}
	if v.Kind() == reflect.Ptr && v.IsNil() {
		return nil, false
	}
	m := v.MethodByName(a.method)
	if !m.IsValid() && v.Kind() == reflect.Ptr {
		m = v.Elem().MethodByName(a.method)
	}
	if !m.IsValid() && v.Kind() == reflect.Struct {
		// Pointer receiver on a value: copy into an addressable value first.
		p := reflect.New(v.Type())
		p.Elem().Set(v)
		m = p.MethodByName(a.method)
	}
	if !m.IsValid() {
		return nil, false
	}
	out := m.Call(nil)
	if len(out) == 0 {
		return nil, false
	}
	return out[0].Interface(), true
}

// ResolveMember binds name to a readable member of t: an exported field
// (including promoted fields) or an exported method with no arguments and one
// result on either the value or pointer receiver.
func ResolveMember(t reflect.Type, name string) (Accessor, reflect.Type, bool) {
	t = dereferenceType(t)
	if t.Kind() != reflect.Struct {
		return Accessor{}, nil, false
	}
	if f, ok := t.FieldByName(name); ok && f.IsExported() {
		return FieldAccessor(f.Index), f.Type, true
	}
	for _, candidate := range []reflect.Type{t, reflect.PointerTo(t)} {
		m, ok := candidate.MethodByName(name)
		if !ok {
			continue
		}
		// The receiver counts as the first input.
		if m.Type.NumIn() != 1 || m.Type.NumOut() != 1 {
			continue
		}
		return MethodAccessor(name), m.Type.Out(0), true
	}
	return Accessor{}, nil, false
}

func indirect(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

func dereferenceType(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}
