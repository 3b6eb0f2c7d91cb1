// Package keyword provides a local keyword index for built entity documents.
package keyword

import (
	"context"

	"github.com/hyperjump/fieldmap/internal/models"
)

// SearchOptions optional parameters for keyword search. Nil means use defaults.
type SearchOptions struct {
	// Type restricts hits to documents of one entity type.
	Type string
	// Field restricts matching to one encoded field name. Empty searches all fields.
	Field string
	// FuzzyEnabled enables fuzzy matching for typo tolerance.
	FuzzyEnabled bool
	// Fuzziness is the maximum Levenshtein edit distance for fuzzy matching (1 or 2).
	// Default is 2 when FuzzyEnabled is true.
	Fuzziness int
}

// KeywordIndex defines keyword index operations on entity documents.
type KeywordIndex interface {
	Index(ctx context.Context, doc *models.Document) error
	Delete(ctx context.Context, typeName, id string) error
	Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*KeywordResult, error)
	// DocCount returns the total number of documents in the index.
	DocCount() (uint64, error)
	Close() error
}

// KeywordResult is a single keyword search hit.
type KeywordResult struct {
	Type  string  `json:"type"`
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}
