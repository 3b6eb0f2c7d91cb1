package models

import (
	"fmt"
	"strings"
)

// IndexType is the category a field is indexed under.
type IndexType string

const (
	// IndexTypeAuto is only valid in declarations; it asks for the category to be inferred
	// from the member's static type.
	IndexTypeAuto       IndexType = "auto"
	IndexTypeIdentifier IndexType = "identifier"
	IndexTypeText       IndexType = "text"
	IndexTypeHTML       IndexType = "html"
	IndexTypeNumber     IndexType = "number"
	IndexTypeDate       IndexType = "date"
	IndexTypeGeoPoint   IndexType = "geopoint"
)

// ParseIndexType parses s case-insensitively. An empty string parses as IndexTypeAuto.
func ParseIndexType(s string) (IndexType, error) {
	switch t := IndexType(strings.ToLower(strings.TrimSpace(s))); t {
	case "":
		return IndexTypeAuto, nil
	case IndexTypeAuto, IndexTypeIdentifier, IndexTypeText, IndexTypeHTML,
		IndexTypeNumber, IndexTypeDate, IndexTypeGeoPoint:
		return t, nil
	default:
		return "", fmt.Errorf("unknown index type %q", s)
	}
}

// Resolved reports whether t is a concrete category (anything but auto).
func (t IndexType) Resolved() bool {
	return t != IndexTypeAuto && t != ""
}

// SupportsMultipleValues reports whether a field of this type may hold several values.
// Number and date fields are single-valued in the search grammar.
func (t IndexType) SupportsMultipleValues() bool {
	return t != IndexTypeNumber && t != IndexTypeDate
}

func (t IndexType) String() string {
	return string(t)
}
