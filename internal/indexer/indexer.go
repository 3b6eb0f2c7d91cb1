// Package indexer builds index documents from entities and feeds them to the keyword index.
package indexer

import (
	"context"
	"fmt"

	"github.com/hyperjump/fieldmap/internal/keyword"
	"github.com/hyperjump/fieldmap/internal/models"
	"github.com/hyperjump/fieldmap/internal/search"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Indexer indexes entities into a keyword index.
type Indexer struct {
	builder      *DocumentBuilder
	keywordIndex keyword.KeywordIndex
	workers      int
	logger       *zap.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for debug output (entity indexed, entity skipped, etc.).
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// WithWorkers bounds the number of entities IndexAll processes at once.
func WithWorkers(n int) IndexerOption {
	return func(idx *Indexer) {
		if n > 0 {
			idx.workers = n
		}
	}
}

// NewIndexer creates an indexer with the given dependencies.
func NewIndexer(builder *DocumentBuilder, keywordIndex keyword.KeywordIndex, opts ...IndexerOption) *Indexer {
	idx := &Indexer{
		builder:      builder,
		keywordIndex: keywordIndex,
		workers:      4,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Builder returns the document builder used by the indexer.
func (idx *Indexer) Builder() *DocumentBuilder {
	return idx.builder
}

// IndexEntity builds the document of entity and indexes it. Entities whose type declares
// no searchable members are skipped and yield a nil document.
func (idx *Indexer) IndexEntity(ctx context.Context, entity any) (*models.Document, error) {
	typ := search.TypeOf(entity)
	ok, err := idx.builder.Metadata().HasIndexedFields(typ)
	if err != nil {
		return nil, err
	}
	if !ok {
		idx.logger.Debug("entity skipped: no searchable fields", zap.Stringer("type", typ))
		return nil, nil
	}
	doc, err := idx.builder.Build(entity)
	if err != nil {
		return nil, fmt.Errorf("failed to build document: %w", err)
	}
	if err := idx.keywordIndex.Index(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to index document: %w", err)
	}
	idx.logger.Debug("entity indexed",
		zap.String("type", doc.Type),
		zap.String("id", doc.ID),
		zap.Int("fields", len(doc.Fields)),
	)
	return doc, nil
}

// IndexAll indexes entities concurrently and returns how many documents were indexed.
// The first failure cancels the remaining work.
func (idx *Indexer) IndexAll(ctx context.Context, entities []any) (int, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(idx.workers)
	indexed := make([]bool, len(entities))
	for i, entity := range entities {
		i, entity := i, entity
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			doc, err := idx.IndexEntity(gctx, entity)
			if err != nil {
				return fmt.Errorf("entity %d: %w", i, err)
			}
			indexed[i] = doc != nil
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	n := 0
	for _, ok := range indexed {
		if ok {
			n++
		}
	}
	return n, nil
}

// DeleteEntity removes the document of entity from the index.
func (idx *Indexer) DeleteEntity(ctx context.Context, entity any) error {
	e, err := idx.builder.Metadata().Entity(search.TypeOf(entity))
	if err != nil {
		return err
	}
	id, err := idx.builder.DocumentID(entity)
	if err != nil {
		return err
	}
	return idx.DeleteDocument(ctx, e.Name(), id)
}

// DeleteDocument removes the document of entity type typeName with the given id.
func (idx *Indexer) DeleteDocument(ctx context.Context, typeName, id string) error {
	if err := idx.keywordIndex.Delete(ctx, typeName, id); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	idx.logger.Debug("document deleted", zap.String("type", typeName), zap.String("id", id))
	return nil
}
