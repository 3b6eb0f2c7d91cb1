package metadata

import (
	"reflect"

	"github.com/hyperjump/fieldmap/internal/models"
)

// Descriptor declares a member explicitly, for values struct tags cannot reach such as
// computed getters. Build descriptors with Getter and IDGetter and pass them to Register.
type Descriptor struct {
	name      string
	id        bool
	static    reflect.Type
	indexType models.IndexType
	emitNull  bool
	get       getterFunc
}

// DescriptorOption customizes a Descriptor.
type DescriptorOption func(*Descriptor)

// WithIndexType overrides the inferred index type.
func WithIndexType(it models.IndexType) DescriptorOption {
	return func(d *Descriptor) { d.indexType = it }
}

// EmitNull asks for a nil entry when the getter yields no value.
func EmitNull() DescriptorOption {
	return func(d *Descriptor) { d.emitNull = true }
}

// Getter declares a searchable member named name whose value is fn(entity).
// T may be the entity struct type or a pointer to it.
func Getter[T, V any](name string, fn func(T) V, opts ...DescriptorOption) Descriptor {
	d := Descriptor{
		name:      name,
		static:    reflect.TypeOf((*V)(nil)).Elem(),
		indexType: models.IndexTypeAuto,
		get:       bindGetter(fn),
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

// IDGetter declares the identifier member of the entity as fn(entity).
func IDGetter[T, V any](fn func(T) V) Descriptor {
	return Descriptor{
		name:      "id",
		id:        true,
		static:    reflect.TypeOf((*V)(nil)).Elem(),
		indexType: models.IndexTypeIdentifier,
		get:       bindGetter(fn),
	}
}

func bindGetter[T, V any](fn func(T) V) getterFunc {
	return func(entity reflect.Value) (reflect.Value, bool) {
		var arg T
		want := reflect.TypeOf((*T)(nil)).Elem()
		switch {
		case entity.Type() == want:
			arg = entity.Interface().(T)
		case want.Kind() == reflect.Pointer && want.Elem() == entity.Type():
			if entity.CanAddr() {
				arg = entity.Addr().Interface().(T)
			} else {
				p := reflect.New(entity.Type())
				p.Elem().Set(entity)
				arg = p.Interface().(T)
			}
		default:
			return reflect.Value{}, false
		}
		return reflect.ValueOf(fn(arg)), true
	}
}

func entityTypeOf[T any]() reflect.Type {
	return deref(reflect.TypeOf((*T)(nil)).Elem())
}
