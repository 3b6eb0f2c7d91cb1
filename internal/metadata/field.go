package metadata

import (
	"reflect"

	"github.com/hyperjump/fieldmap/internal/models"
)

// Member identifies where a field's value comes from: a struct field reached through
// Index, or a registered getter.
type Member struct {
	Name   string
	Index  []int
	Getter bool
}

// Field is the resolved search metadata of one member of an entity type.
// It is immutable once built.
type Field struct {
	EntityType  reflect.Type
	Member      Member
	Name        string
	EncodedName string
	IndexType   models.IndexType
	// Type is the member's static type; ElemType is its element type for collections
	// and equal to Type otherwise.
	Type     reflect.Type
	ElemType reflect.Type
	Multiple bool
	// EmitNull makes the document builder emit one nil entry when the member has no value.
	EmitNull bool

	accessor func(reflect.Value) Value
}

// Value reads the member from entity, which must be a value or pointer of the field's entity type.
func (f *Field) Value(entity any) Value {
	rv := indirect(reflect.ValueOf(entity))
	if !rv.IsValid() || rv.Type() != f.EntityType {
		return absent()
	}
	return f.accessor(rv)
}

func fieldGetter(index []int) getterFunc {
	return func(entity reflect.Value) (reflect.Value, bool) {
		rv, err := entity.FieldByIndexErr(index)
		if err != nil {
			// nil embedded pointer on the path
			return reflect.Value{}, false
		}
		return rv, true
	}
}
