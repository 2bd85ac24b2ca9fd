package marshal

import (
	"reflect"
	"strings"

	"github.com/callforge/callforge/errors"
)

// FromSlot converts an untyped argument-slot value to the exact type t.
// This is the only point where generic slot storage crosses into the
// statically-typed world of the forwarded call.
func FromSlot(value any, t reflect.Type) (reflect.Value, error) {
	if value == nil {
		switch t.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map, reflect.Chan, reflect.Func:
			return reflect.Zero(t), nil
		}
		return reflect.Value{}, errors.NilPointer(errors.PhaseMarshal, nil, t.String())
	}
	return Convert(reflect.ValueOf(value), t)
}

// ToSlot converts a typed value back to untyped slot storage.
func ToSlot(v reflect.Value) any {
	if !v.IsValid() {
		return nil
	}
	return v.Interface()
}

// Convert coerces v to type t. Beyond Go's own convertibility rules it
// handles pointer chains, struct-from-map (honoring json tags),
// struct-from-struct by field name, and element-wise slice/map conversion.
func Convert(v reflect.Value, t reflect.Type) (reflect.Value, error) {
	if v.IsValid() && v.Kind() == reflect.Interface {
		inner := v.Interface()
		if inner == nil {
			if t.Kind() != reflect.Pointer && t.Kind() != reflect.Interface {
				return reflect.Value{}, errors.NilPointer(errors.PhaseMarshal, nil, t.String())
			}
			return reflect.Zero(t), nil
		}
		v = reflect.ValueOf(inner)
	}

	if v.IsValid() {
		if v.Type() == t {
			return v, nil
		}
		if t.Kind() == reflect.Interface && v.Type().Implements(t) {
			return v.Convert(t), nil
		}
		if convertibleKeepingMeaning(v.Type(), t) {
			return v.Convert(t), nil
		}
	}

	// Build the target through reflect.New so it is settable, unwrapping
	// pointer chains as we go.
	deref := 0
	ret := reflect.New(t)
	for ; t.Kind() == reflect.Pointer; deref++ {
		t = t.Elem()
		ret.Elem().Set(reflect.New(t))
		ret = ret.Elem()
	}
	elem := ret.Elem()

	// A pointer source converts through its pointee.
	for v.IsValid() && v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return reflect.Value{}, errors.NilPointer(errors.PhaseMarshal, nil, t.String())
		}
		v = v.Elem()
	}

	var err error
	switch elem.Kind() {
	case reflect.Struct:
		err = convertToStruct(v, elem, t)
	case reflect.Map:
		err = convertToMap(v, elem, t)
	case reflect.Slice:
		err = convertToSlice(v, elem, t)
	default:
		if v.IsValid() && convertibleKeepingMeaning(v.Type(), t) {
			elem.Set(v.Convert(t))
		} else {
			err = errors.TypeMismatch(errors.PhaseMarshal, nil, valueTypeName(v), t.String())
		}
	}
	if err != nil {
		return reflect.Value{}, err
	}

	if deref == 0 {
		ret = ret.Elem()
	} else {
		for deref--; deref > 0; deref-- {
			ret = ret.Addr()
		}
	}
	return ret, nil
}

// convertibleKeepingMeaning rejects the convertibility corner cases where
// reflect.Convert succeeds but mangles the value (e.g. int -> string yields
// a rune string).
func convertibleKeepingMeaning(from, to reflect.Type) bool {
	if !from.ConvertibleTo(to) {
		return false
	}
	if to.Kind() == reflect.String && from.Kind() != reflect.String {
		switch from.Kind() {
		case reflect.Slice:
			k := from.Elem().Kind()
			return k == reflect.Uint8 || k == reflect.Int32
		default:
			return false
		}
	}
	return true
}

func convertToSlice(v, r reflect.Value, rt reflect.Type) error {
	if !v.IsValid() || (v.Kind() != reflect.Slice && v.Kind() != reflect.Array) {
		return errors.TypeMismatch(errors.PhaseMarshal, nil, valueTypeName(v), rt.String())
	}
	r.Set(reflect.MakeSlice(rt, 0, v.Len()))
	for i := 0; i < v.Len(); i++ {
		converted, err := Convert(v.Index(i), rt.Elem())
		if err != nil {
			return err
		}
		r.Set(reflect.Append(r, converted))
	}
	return nil
}

func convertToMap(v, r reflect.Value, rt reflect.Type) error {
	if !v.IsValid() || v.Kind() != reflect.Map {
		return errors.TypeMismatch(errors.PhaseMarshal, nil, valueTypeName(v), rt.String())
	}
	r.Set(reflect.MakeMap(rt))
	for _, k := range v.MapKeys() {
		ck, err := Convert(k, rt.Key())
		if err != nil {
			return err
		}
		cv, err := Convert(v.MapIndex(k), rt.Elem())
		if err != nil {
			return err
		}
		r.SetMapIndex(ck, cv)
	}
	return nil
}

func convertToStruct(v, r reflect.Value, rt reflect.Type) error {
	if !v.IsValid() || (v.Kind() != reflect.Map && v.Kind() != reflect.Struct) {
		return errors.TypeMismatch(errors.PhaseMarshal, nil, valueTypeName(v), rt.String())
	}

	for i := 0; i < r.NumField(); i++ {
		fv := r.Field(i)
		if !fv.CanSet() {
			continue
		}
		ft := rt.Field(i)

		var (
			converted reflect.Value
			err       error
		)
		switch v.Kind() {
		case reflect.Map:
			key := fieldKey(ft)
			if key == "" {
				continue
			}
			mv := v.MapIndex(reflect.ValueOf(key))
			if !mv.IsValid() {
				continue
			}
			converted, err = Convert(mv, fv.Type())
		case reflect.Struct:
			sv := v.FieldByName(ft.Name)
			if !sv.IsValid() {
				continue
			}
			converted, err = Convert(sv, fv.Type())
		}
		if err != nil {
			return errors.New(errors.PhaseMarshal, errors.KindTypeMismatch).
				Path(ft.Name).
				Cause(err).
				Detail("cannot fill struct field").
				Build()
		}
		if converted.IsValid() {
			fv.Set(converted)
		}
	}
	return nil
}

func fieldKey(ft reflect.StructField) string {
	key := ft.Tag.Get("json")
	if key != "" {
		key = strings.Split(strings.Trim(key, `"`), ",")[0]
		if key == "-" {
			return ""
		}
	}
	if key == "" {
		key = ft.Name
	}
	return key
}

func valueTypeName(v reflect.Value) string {
	if !v.IsValid() {
		return "<invalid>"
	}
	return v.Type().String()
}
