package keyword

import (
	"fmt"
	"reflect"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/analysis/char/html"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/hyperjump/fieldmap/internal/models"
	"github.com/hyperjump/fieldmap/internal/search"
)

const (
	// typeField holds the entity type name of every indexed document.
	typeField    = "_type"
	htmlAnalyzer = "fieldmap_html"
)

// NewIndexMapping builds a bleve mapping with one document mapping per entity type.
// Each searchable field is mapped by its index type: text and html are analyzed,
// identifiers are kept as a single keyword token.
func NewIndexMapping(meta *search.Metadata, entityTypes ...reflect.Type) (*mapping.IndexMappingImpl, error) {
	im := bleve.NewIndexMapping()
	im.TypeField = typeField
	err := im.AddCustomAnalyzer(htmlAnalyzer, map[string]interface{}{
		"type":          custom.Name,
		"char_filters":  []string{html.Name},
		"tokenizer":     unicode.Name,
		"token_filters": []string{lowercase.Name},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register html analyzer: %w", err)
	}

	for _, t := range entityTypes {
		e, err := meta.Entity(t)
		if err != nil {
			return nil, err
		}
		docMapping := bleve.NewDocumentMapping()
		docMapping.Dynamic = false
		docMapping.AddFieldMappingsAt(typeField, bleve.NewKeywordFieldMapping())
		for _, f := range e.Fields() {
			docMapping.AddFieldMappingsAt(f.EncodedName, fieldMapping(f.IndexType))
		}
		im.AddDocumentMapping(e.Name(), docMapping)
	}
	return im, nil
}

func fieldMapping(it models.IndexType) *mapping.FieldMapping {
	switch it {
	case models.IndexTypeIdentifier:
		return bleve.NewKeywordFieldMapping()
	case models.IndexTypeHTML:
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = htmlAnalyzer
		return fm
	case models.IndexTypeNumber:
		return bleve.NewNumericFieldMapping()
	case models.IndexTypeDate:
		return bleve.NewDateTimeFieldMapping()
	case models.IndexTypeGeoPoint:
		return bleve.NewGeoPointFieldMapping()
	default:
		// standard analyzer: lowercase + tokenize, no stemming
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = standard.Name
		return fm
	}
}

// bleveDocument flattens doc into the map bleve indexes. Repeated names become slices.
func bleveDocument(doc *models.Document) map[string]interface{} {
	out := map[string]interface{}{typeField: doc.Type}
	for _, f := range doc.Fields {
		if f.Value == nil {
			continue
		}
		v := f.Value
		if p, ok := v.(models.GeoPoint); ok {
			v = map[string]interface{}{"lat": p.Lat, "lon": p.Lon}
		}
		switch existing := out[f.Name].(type) {
		case nil:
			out[f.Name] = v
		case []interface{}:
			out[f.Name] = append(existing, v)
		default:
			out[f.Name] = []interface{}{existing, v}
		}
	}
	return out
}

func documentKey(typeName, id string) string {
	return typeName + "/" + id
}
