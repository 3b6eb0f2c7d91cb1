package keyword

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
	"github.com/hyperjump/fieldmap/internal/models"
)

// BleveIndex implements KeywordIndex using Bleve.
type BleveIndex struct {
	index bleve.Index
	path  string
}

// NewBleveIndex creates or opens a Bleve index at path. An empty path creates an
// in-memory index. An existing index keeps the mapping it was created with; remove
// the index directory after changing entity declarations to force a rebuild.
func NewBleveIndex(path string, im mapping.IndexMapping) (*BleveIndex, error) {
	if path == "" {
		index, err := bleve.NewMemOnly(im)
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory Bleve index: %w", err)
		}
		return &BleveIndex{index: index}, nil
	}

	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index, path: path}, nil
	}

	index, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index, path: path}, nil
}

// Index indexes doc under its type and id, replacing any earlier version.
func (b *BleveIndex) Index(ctx context.Context, doc *models.Document) error {
	if doc.ID == "" || doc.Type == "" {
		return fmt.Errorf("document needs both a type and an id")
	}
	return b.index.Index(documentKey(doc.Type, doc.ID), bleveDocument(doc))
}

// Search runs a match query (or a fuzzy query when opts.FuzzyEnabled) and returns up to limit hits.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*KeywordResult, error) {
	if opts == nil {
		opts = &SearchOptions{}
	}
	fuzziness := 2
	if opts.Fuzziness > 0 {
		fuzziness = opts.Fuzziness
	}

	var q blevequery.Query
	if opts.FuzzyEnabled {
		q = b.buildFuzzyQuery(query, fuzziness, opts.Field)
	} else {
		mq := bleve.NewMatchQuery(query)
		if opts.Field != "" {
			mq.SetField(opts.Field)
		}
		q = mq
	}
	if opts.Type != "" {
		tq := bleve.NewTermQuery(opts.Type)
		tq.SetField(typeField)
		q = bleve.NewConjunctionQuery(tq, q)
	}

	req := bleve.NewSearchRequest(q)
	req.Size = limit
	results, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	out := make([]*KeywordResult, len(results.Hits))
	for i, hit := range results.Hits {
		typ, id, _ := strings.Cut(hit.ID, "/")
		out[i] = &KeywordResult{Type: typ, ID: id, Score: hit.Score}
	}
	return out, nil
}

// tokenizeQuery splits query into lowercase terms, filtering out empty strings.
func tokenizeQuery(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

// buildFuzzyQuery creates a disjunction of FuzzyQueries for each term in the query.
// If field is empty, searches all fields; otherwise restricts to the specified field.
func (b *BleveIndex) buildFuzzyQuery(queryStr string, fuzziness int, field string) blevequery.Query {
	terms := tokenizeQuery(queryStr)
	if len(terms) == 0 {
		mq := bleve.NewMatchQuery(queryStr)
		if field != "" {
			mq.SetField(field)
		}
		return mq
	}

	queries := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		fq := bleve.NewFuzzyQuery(term)
		fq.SetFuzziness(fuzziness)
		if field != "" {
			fq.SetField(field)
		}
		queries = append(queries, fq)
	}
	if len(queries) == 1 {
		return queries[0]
	}
	// any term may match
	return bleve.NewDisjunctionQuery(queries...)
}

// Delete removes the document of entity type typeName with the given id.
func (b *BleveIndex) Delete(ctx context.Context, typeName, id string) error {
	return b.index.Delete(documentKey(typeName, id))
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}

// DocCount returns the total number of documents in the index.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// DiskUsage returns the bytes the index occupies on disk. In-memory indexes report 0.
func (b *BleveIndex) DiskUsage() (int64, error) {
	if b.path == "" {
		return 0, nil
	}
	var total int64
	err := filepath.WalkDir(b.path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to measure index size: %w", err)
	}
	return total, nil
}
