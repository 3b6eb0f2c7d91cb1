package metadata

import (
	"reflect"

	"github.com/hyperjump/fieldmap/internal/naming"
)

// maxSuggestionDistance bounds how far a misspelled field name may be from a suggestion.
const maxSuggestionDistance = 2

// Entity is the resolved search metadata of one entity type.
type Entity struct {
	Type reflect.Type
	// ID is the identifier member. It is always set on a successfully built Entity.
	ID *Field

	fields    []*Field
	byName    map[string]*Field
	byEncoded map[string]*Field
}

// Name returns the entity type's name without its package.
func (e *Entity) Name() string {
	return e.Type.Name()
}

// Fields returns the searchable fields in declaration order, followed by registered getters.
func (e *Entity) Fields() []*Field {
	return append([]*Field(nil), e.fields...)
}

// HasFields reports whether the entity declares at least one searchable member.
func (e *Entity) HasFields() bool {
	return len(e.fields) > 0
}

// Field returns the field declared as name.
func (e *Entity) Field(name string) (*Field, error) {
	if f, ok := e.byName[name]; ok {
		return f, nil
	}
	return nil, &UnknownFieldError{Type: e.Type, Name: name, Suggestion: e.suggest(name, false)}
}

// FieldByEncodedName returns the field whose encoded name is encoded.
func (e *Entity) FieldByEncodedName(encoded string) (*Field, error) {
	if f, ok := e.byEncoded[encoded]; ok {
		return f, nil
	}
	return nil, &UnknownFieldError{Type: e.Type, Name: encoded, Encoded: true, Suggestion: e.suggest(encoded, true)}
}

// IDValue returns the identifier of entity, or nil when the member holds no value.
func (e *Entity) IDValue(entity any) any {
	v := e.ID.Value(entity)
	if v.Kind != Scalar {
		return nil
	}
	return v.ScalarValue()
}

func (e *Entity) suggest(name string, encoded bool) string {
	candidates := make([]string, len(e.fields))
	for i, f := range e.fields {
		if encoded {
			candidates[i] = f.EncodedName
		} else {
			candidates[i] = f.Name
		}
	}
	if s, ok := naming.Suggest(name, candidates, maxSuggestionDistance); ok {
		return s
	}
	return ""
}
