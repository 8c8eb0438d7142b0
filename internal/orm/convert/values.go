package convert

import (
	"database/sql/driver"
	"reflect"
)

// IsNull reports whether v is the absence of a value: untyped nil, a nil
// pointer, map, slice, interface, channel or func, or a driver.Valuer whose
// Value is nil (sql.NullString{} and friends).
func IsNull(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface, reflect.Chan, reflect.Func:
		if rv.IsNil() {
			return true
		}
	}
	if valuer, ok := v.(driver.Valuer); ok {
		value, err := valuer.Value()
		return err == nil && value == nil
	}
	return false
}

// Indirect dereferences pointers until a non-pointer value is reached. A nil
// pointer anywhere along the chain yields nil.
func Indirect(v interface{}) interface{} {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	return rv.Interface()
}

// Equivalent compares two property values after dereferencing. Both null is
// equivalent, one null is not. Types with an Equal(T) bool method (time.Time,
// decimal.Decimal, Date) are compared with it, everything else deeply.
func Equivalent(a, b interface{}) bool {
	aNull, bNull := IsNull(a), IsNull(b)
	if aNull || bNull {
		return aNull && bNull
	}
	a, b = Indirect(a), Indirect(b)

	av, bv := reflect.ValueOf(a), reflect.ValueOf(b)
	if av.Type() == bv.Type() {
		if m := av.MethodByName("Equal"); m.IsValid() {
			mt := m.Type()
			if mt.NumIn() == 1 && mt.In(0) == av.Type() && mt.NumOut() == 1 && mt.Out(0).Kind() == reflect.Bool {
				return m.Call([]reflect.Value{bv})[0].Bool()
			}
		}
	}
	return reflect.DeepEqual(a, b)
}
