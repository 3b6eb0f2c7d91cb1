package indexer

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/hyperjump/fieldmap/internal/convert"
	"github.com/hyperjump/fieldmap/internal/metadata"
	"github.com/hyperjump/fieldmap/internal/models"
	"github.com/hyperjump/fieldmap/internal/search"
)

// ErrUnsupportedMultiplicity is matched by every *MultiplicityError.
var ErrUnsupportedMultiplicity = errors.New("unsupported multiplicity")

// MultiplicityError reports a number or date member holding a collection.
type MultiplicityError struct {
	Type      reflect.Type
	Field     string
	IndexType models.IndexType
}

func (e *MultiplicityError) Error() string {
	return fmt.Sprintf("field %q of %s: %s fields cannot hold multiple values",
		e.Field, metadata.TypeName(e.Type), e.IndexType)
}

func (e *MultiplicityError) Is(target error) bool {
	return target == ErrUnsupportedMultiplicity
}

// FieldBuilder turns the searchable members of an entity into document fields.
type FieldBuilder struct {
	meta *search.Metadata
	conv convert.Converter
}

// NewFieldBuilder creates a field builder.
func NewFieldBuilder(meta *search.Metadata, conv convert.Converter) *FieldBuilder {
	return &FieldBuilder{meta: meta, conv: conv}
}

// Build returns the fields of entity in declaration order. A member without a value is
// skipped unless it is marked emitnull, in which case a single nil entry is emitted.
func (b *FieldBuilder) Build(entity any) ([]models.Field, error) {
	fields, err := b.meta.Fields(search.TypeOf(entity))
	if err != nil {
		return nil, err
	}
	out := make([]models.Field, 0, len(fields))
	for _, f := range fields {
		out, err = b.appendField(out, f, entity)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (b *FieldBuilder) appendField(out []models.Field, f *metadata.Field, entity any) ([]models.Field, error) {
	v := f.Value(entity)
	switch v.Kind {
	case metadata.Absent:
		if f.EmitNull {
			out = append(out, models.Field{Name: f.EncodedName, IndexType: f.IndexType})
		}
		return out, nil
	case metadata.Many:
		if !f.IndexType.SupportsMultipleValues() {
			return nil, &MultiplicityError{Type: f.EntityType, Field: f.Name, IndexType: f.IndexType}
		}
	}
	for _, raw := range v.Values() {
		if raw == nil {
			continue
		}
		val, err := b.normalize(f.IndexType, raw)
		if err != nil {
			return nil, fmt.Errorf("field %q of %s: %w", f.Name, metadata.TypeName(f.EntityType), err)
		}
		out = append(out, models.Field{Name: f.EncodedName, IndexType: f.IndexType, Value: val})
	}
	return out, nil
}

func (b *FieldBuilder) normalize(it models.IndexType, raw any) (any, error) {
	switch it {
	case models.IndexTypeNumber:
		return b.conv.Convert(raw, convert.Number)
	case models.IndexTypeDate:
		return b.conv.Convert(raw, convert.Date)
	case models.IndexTypeGeoPoint:
		return b.conv.Convert(raw, convert.GeoPoint)
	default:
		return b.conv.Convert(raw, convert.String)
	}
}
