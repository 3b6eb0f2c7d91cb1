package metadata

import "reflect"

// ValueKind tells whether a member currently holds no value, one value or a collection.
type ValueKind int

const (
	Absent ValueKind = iota
	Scalar
	Many
)

func (k ValueKind) String() string {
	switch k {
	case Scalar:
		return "scalar"
	case Many:
		return "many"
	default:
		return "absent"
	}
}

// Value is a snapshot of a member's value produced by its accessor.
type Value struct {
	Kind   ValueKind
	scalar any
	many   []any
}

// ScalarValue returns the single value of a Scalar. It is nil for other kinds.
func (v Value) ScalarValue() any {
	return v.scalar
}

// Values returns the elements of a Many, or a one-element slice for a Scalar.
func (v Value) Values() []any {
	switch v.Kind {
	case Scalar:
		return []any{v.scalar}
	case Many:
		return v.many
	default:
		return nil
	}
}

func absent() Value {
	return Value{Kind: Absent}
}

func scalar(v any) Value {
	return Value{Kind: Scalar, scalar: v}
}

// indirect follows pointers and interfaces. The result is invalid when a nil is met.
func indirect(rv reflect.Value) reflect.Value {
	for rv.IsValid() && (rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface) {
		if rv.IsNil() {
			return reflect.Value{}
		}
		rv = rv.Elem()
	}
	return rv
}

func deref(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// isCollection reports whether t holds several values. Byte slices are treated as text.
func isCollection(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Slice:
		return t.Elem().Kind() != reflect.Uint8
	case reflect.Array:
		return true
	default:
		return false
	}
}

// isCoordinatePair reports whether t can hold one geo point as [lat, lon]: a [2]float64
// array or a float64 slice.
func isCoordinatePair(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Array:
		return t.Len() == 2 && t.Elem().Kind() == reflect.Float64
	case reflect.Slice:
		return t.Elem().Kind() == reflect.Float64
	default:
		return false
	}
}

// many snapshots a slice or array. A nil slice counts as no value.
func many(rv reflect.Value) Value {
	if rv.Kind() == reflect.Slice && rv.IsNil() {
		return absent()
	}
	out := make([]any, rv.Len())
	for i := range out {
		elem := indirect(rv.Index(i))
		if elem.IsValid() {
			out[i] = elem.Interface()
		}
	}
	return Value{Kind: Many, many: out}
}

type getterFunc func(entity reflect.Value) (reflect.Value, bool)

// newAccessor picks the value shape once from the member's static type and multiple.
// Interface-typed members are the only ones classified at read time. A non-multiple
// slice member (a coordinate pair) counts as absent while nil.
func newAccessor(static reflect.Type, multiple bool, get getterFunc) func(reflect.Value) Value {
	switch {
	case static.Kind() == reflect.Interface:
		return func(entity reflect.Value) Value {
			rv, ok := get(entity)
			if !ok {
				return absent()
			}
			rv = indirect(rv)
			if !rv.IsValid() {
				return absent()
			}
			if isCollection(rv.Type()) {
				return many(rv)
			}
			return scalar(rv.Interface())
		}
	case multiple:
		return func(entity reflect.Value) Value {
			rv, ok := get(entity)
			if !ok {
				return absent()
			}
			rv = indirect(rv)
			if !rv.IsValid() {
				return absent()
			}
			return many(rv)
		}
	default:
		return func(entity reflect.Value) Value {
			rv, ok := get(entity)
			if !ok {
				return absent()
			}
			rv = indirect(rv)
			if !rv.IsValid() || (rv.Kind() == reflect.Slice && rv.IsNil()) {
				return absent()
			}
			return scalar(rv.Interface())
		}
	}
}
