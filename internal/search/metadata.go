// Package search exposes the read API over entity search metadata used by the
// document builder, the query compiler and the HTTP layer.
package search

import (
	"fmt"
	"reflect"

	"github.com/hyperjump/fieldmap/internal/metadata"
	"github.com/hyperjump/fieldmap/internal/models"
)

// Metadata is a stable facade over a metadata.Registry.
type Metadata struct {
	registry *metadata.Registry
}

// NewMetadata wraps registry.
func NewMetadata(registry *metadata.Registry) *Metadata {
	return &Metadata{registry: registry}
}

// Registry returns the underlying registry.
func (m *Metadata) Registry() *metadata.Registry {
	return m.registry
}

// TypeOf returns the entity type of entity, dereferencing pointers.
func TypeOf(entity any) reflect.Type {
	t := reflect.TypeOf(entity)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// Entity returns the resolved metadata of entityType.
func (m *Metadata) Entity(entityType reflect.Type) (*metadata.Entity, error) {
	return m.registry.For(entityType)
}

// GetID returns the identifier value of entity. The value is nil when the identifier
// member is unset (for example a nil pointer).
func (m *Metadata) GetID(entity any) (any, error) {
	e, err := m.registry.ForValue(entity)
	if err != nil {
		return nil, fmt.Errorf("get id: %w", err)
	}
	return e.IDValue(entity), nil
}

// Fields returns the searchable fields of entityType in declaration order.
func (m *Metadata) Fields(entityType reflect.Type) ([]*metadata.Field, error) {
	e, err := m.registry.For(entityType)
	if err != nil {
		return nil, err
	}
	return e.Fields(), nil
}

// HasIndexedFields reports whether entityType declares any searchable member.
func (m *Metadata) HasIndexedFields(entityType reflect.Type) (bool, error) {
	e, err := m.registry.For(entityType)
	if err != nil {
		return false, err
	}
	return e.HasFields(), nil
}

// Field returns the metadata of the field declared as name.
func (m *Metadata) Field(entityType reflect.Type, name string) (*metadata.Field, error) {
	e, err := m.registry.For(entityType)
	if err != nil {
		return nil, err
	}
	return e.Field(name)
}

// EncodeFieldName returns the index name of the field declared as name.
func (m *Metadata) EncodeFieldName(entityType reflect.Type, name string) (string, error) {
	f, err := m.Field(entityType, name)
	if err != nil {
		return "", err
	}
	return f.EncodedName, nil
}

// DecodeFieldName returns the declared name of the field indexed as encoded.
func (m *Metadata) DecodeFieldName(entityType reflect.Type, encoded string) (string, error) {
	e, err := m.registry.For(entityType)
	if err != nil {
		return "", err
	}
	f, err := e.FieldByEncodedName(encoded)
	if err != nil {
		return "", err
	}
	return f.Name, nil
}

// FieldType returns the static Go type of the field declared as name.
func (m *Metadata) FieldType(entityType reflect.Type, name string) (reflect.Type, error) {
	f, err := m.Field(entityType, name)
	if err != nil {
		return nil, err
	}
	return f.Type, nil
}

// IndexType returns the resolved index type of the field declared as name.
func (m *Metadata) IndexType(entityType reflect.Type, name string) (models.IndexType, error) {
	f, err := m.Field(entityType, name)
	if err != nil {
		return "", err
	}
	return f.IndexType, nil
}
