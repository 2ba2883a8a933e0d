package entityservice

import (
	"reflect"

	"github.com/saritasa-nest/saritasa-forge-admin-sub001/internal/metadata"
)

// Snapshot returns a deep copy of instance for a later Diff. Pointers, slices
// and maps reachable through exported fields are copied; values with
// unexported state, such as time.Time, are copied by value.
func Snapshot(e *metadata.EntityMetadata, instance any) any {
	if !e.IsInstance(instance) {
		return nil
	}
	v := reflect.ValueOf(instance)
	if v.IsNil() {
		return nil
	}
	return deepCopy(v, map[uintptr]reflect.Value{}).Interface()
}

// Diff returns the editable columns whose values differ between original and
// updated, mapped to the updated values. A nil original marks every editable
// column as changed.
func Diff(e *metadata.EntityMetadata, original, updated any) map[string]any {
	changes := map[string]any{}
	for _, p := range e.Properties {
		if !p.IsEditable || p.IsPrimaryKey || p.Column == "" {
			continue
		}
		newValue, ok := p.Value(updated)
		if !ok {
			continue
		}
		if original != nil {
			oldValue, ok := p.Value(original)
			if ok && valuesEqual(oldValue, newValue) {
				continue
			}
		}
		changes[p.Column] = newValue
	}
	return changes
}

// valuesEqual compares with an Equal method when the type has one, as
// time.Time and decimal.Decimal do.
func valuesEqual(a, b any) bool {
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if !va.IsValid() || !vb.IsValid() {
		return va.IsValid() == vb.IsValid()
	}
	if va.Type() != vb.Type() {
		return false
	}
	if va.Kind() == reflect.Ptr {
		if va.IsNil() || vb.IsNil() {
			return va.IsNil() == vb.IsNil()
		}
		return valuesEqual(va.Elem().Interface(), vb.Elem().Interface())
	}
	if m := va.MethodByName("Equal"); m.IsValid() {
		mt := m.Type()
		if mt.NumIn() == 1 && mt.In(0) == va.Type() && mt.NumOut() == 1 && mt.Out(0).Kind() == reflect.Bool {
			return m.Call([]reflect.Value{vb})[0].Bool()
		}
	}
	return reflect.DeepEqual(a, b)
}

// deepCopy copies v. seen maps visited pointers to their copies so shared and
// cyclic references keep their shape.
func deepCopy(v reflect.Value, seen map[uintptr]reflect.Value) reflect.Value {
	switch v.Kind() {
	case reflect.Ptr:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		if out, ok := seen[v.Pointer()]; ok {
			return out
		}
		out := reflect.New(v.Type().Elem())
		seen[v.Pointer()] = out
		out.Elem().Set(deepCopy(v.Elem(), seen))
		return out
	case reflect.Slice:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(deepCopy(v.Index(i), seen))
		}
		return out
	case reflect.Map:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		out := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), deepCopy(iter.Value(), seen))
		}
		return out
	case reflect.Struct:
		out := reflect.New(v.Type()).Elem()
		out.Set(v)
		for i := 0; i < v.NumField(); i++ {
			if !v.Type().Field(i).IsExported() {
				continue
			}
			out.Field(i).Set(deepCopy(v.Field(i), seen))
		}
		return out
	case reflect.Array:
		out := reflect.New(v.Type()).Elem()
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(deepCopy(v.Index(i), seen))
		}
		return out
	default:
		out := reflect.New(v.Type()).Elem()
		out.Set(v)
		return out
	}
}
