package indexer

import (
	"errors"
	"fmt"

	"github.com/hyperjump/fieldmap/internal/convert"
	"github.com/hyperjump/fieldmap/internal/metadata"
	"github.com/hyperjump/fieldmap/internal/models"
	"github.com/hyperjump/fieldmap/internal/search"
)

// ErrMissingID is returned when an entity's identifier member holds no value.
var ErrMissingID = errors.New("entity has no identifier value")

// DocumentBuilder builds index documents from entities.
type DocumentBuilder struct {
	meta   *search.Metadata
	conv   convert.Converter
	fields *FieldBuilder
}

// NewDocumentBuilder creates a document builder.
func NewDocumentBuilder(meta *search.Metadata, conv convert.Converter) *DocumentBuilder {
	return &DocumentBuilder{
		meta:   meta,
		conv:   conv,
		fields: NewFieldBuilder(meta, conv),
	}
}

// Metadata returns the metadata facade the builder reads from.
func (b *DocumentBuilder) Metadata() *search.Metadata {
	return b.meta
}

// Build returns the document of entity. Building the same entity twice yields equal documents.
func (b *DocumentBuilder) Build(entity any) (*models.Document, error) {
	e, err := b.meta.Entity(search.TypeOf(entity))
	if err != nil {
		return nil, err
	}
	id, err := b.DocumentID(entity)
	if err != nil {
		return nil, err
	}
	fields, err := b.fields.Build(entity)
	if err != nil {
		return nil, err
	}
	return &models.Document{ID: id, Type: e.Name(), Fields: fields}, nil
}

// DocumentID returns the identifier of entity converted to a string.
func (b *DocumentBuilder) DocumentID(entity any) (string, error) {
	raw, err := b.meta.GetID(entity)
	if err != nil {
		return "", err
	}
	if raw == nil {
		return "", fmt.Errorf("%s: %w", metadata.TypeName(search.TypeOf(entity)), ErrMissingID)
	}
	v, err := b.conv.Convert(raw, convert.String)
	if err != nil {
		return "", fmt.Errorf("convert id of %s: %w", metadata.TypeName(search.TypeOf(entity)), err)
	}
	id, _ := v.(string)
	if id == "" {
		return "", fmt.Errorf("%s: %w", metadata.TypeName(search.TypeOf(entity)), ErrMissingID)
	}
	return id, nil
}
