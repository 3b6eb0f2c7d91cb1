package indexer

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/hyperjump/fieldmap/internal/keyword"
	"github.com/hyperjump/fieldmap/internal/models"
	"go.uber.org/zap"
)

type recordingIndex struct {
	mu      sync.Mutex
	docs    map[string]*models.Document
	deleted []string
	failOn  string
}

func newRecordingIndex() *recordingIndex {
	return &recordingIndex{docs: make(map[string]*models.Document)}
}

func (r *recordingIndex) Index(_ context.Context, doc *models.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if doc.ID == r.failOn {
		return fmt.Errorf("index %s: disk full", doc.ID)
	}
	r.docs[doc.Type+"/"+doc.ID] = doc
	return nil
}

func (r *recordingIndex) Delete(_ context.Context, typeName, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, typeName+"/"+id)
	delete(r.docs, typeName+"/"+id)
	return nil
}

func (r *recordingIndex) Search(context.Context, string, int, *keyword.SearchOptions) ([]*keyword.KeywordResult, error) {
	return nil, nil
}

func (r *recordingIndex) DocCount() (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return uint64(len(r.docs)), nil
}

func (r *recordingIndex) Close() error { return nil }

func TestIndexer_IndexEntity(t *testing.T) {
	kw := newRecordingIndex()
	idx := NewIndexer(newBuilder(), kw, WithLogger(zap.NewNop()))
	ctx := context.Background()

	doc, err := idx.IndexEntity(ctx, &User{ID: "u1", Name: "Alice"})
	if err != nil {
		t.Fatalf("IndexEntity: %v", err)
	}
	if doc == nil || doc.ID != "u1" {
		t.Fatalf("unexpected document: %+v", doc)
	}
	if _, ok := kw.docs["User/u1"]; !ok {
		t.Error("document was not sent to the keyword index")
	}

	doc, err = idx.IndexEntity(ctx, Unsearchable{ID: "x"})
	if err != nil {
		t.Fatalf("IndexEntity unsearchable: %v", err)
	}
	if doc != nil {
		t.Errorf("entity without searchable fields should be skipped, got %+v", doc)
	}
	if n, _ := kw.DocCount(); n != 1 {
		t.Errorf("DocCount = %d, want 1", n)
	}

	_, err = idx.IndexEntity(ctx, Measurements{ID: "m", Weights: []float64{1, 2}})
	if !errors.Is(err, ErrUnsupportedMultiplicity) {
		t.Errorf("expected multiplicity error, got %v", err)
	}
}

func TestIndexer_IndexAll(t *testing.T) {
	kw := newRecordingIndex()
	idx := NewIndexer(newBuilder(), kw, WithWorkers(3))
	entities := make([]any, 0, 21)
	for i := 0; i < 20; i++ {
		entities = append(entities, User{ID: fmt.Sprintf("u%d", i), Name: "n"})
	}
	entities = append(entities, Unsearchable{ID: "skip"})

	n, err := idx.IndexAll(context.Background(), entities)
	if err != nil {
		t.Fatalf("IndexAll: %v", err)
	}
	if n != 20 {
		t.Errorf("indexed %d, want 20", n)
	}
	if len(kw.docs) != 20 {
		t.Errorf("keyword index holds %d docs", len(kw.docs))
	}
}

func TestIndexer_IndexAllStopsOnError(t *testing.T) {
	kw := newRecordingIndex()
	kw.failOn = "bad"
	idx := NewIndexer(newBuilder(), kw, WithWorkers(1))
	_, err := idx.IndexAll(context.Background(), []any{User{ID: "ok", Name: "a"}, User{ID: "bad", Name: "b"}})
	if err == nil {
		t.Fatal("expected error")
	}
	if got := err.Error(); got != "entity 1: failed to index document: index bad: disk full" {
		t.Errorf("error = %q", got)
	}
}

func TestIndexer_Delete(t *testing.T) {
	kw := newRecordingIndex()
	idx := NewIndexer(newBuilder(), kw)
	ctx := context.Background()
	if _, err := idx.IndexEntity(ctx, User{ID: "u1", Name: "a"}); err != nil {
		t.Fatal(err)
	}
	if err := idx.DeleteEntity(ctx, &User{ID: "u1"}); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(kw.deleted, []string{"User/u1"}) {
		t.Errorf("deleted = %v", kw.deleted)
	}
	if err := idx.DeleteEntity(ctx, User{}); !errors.Is(err, ErrMissingID) {
		t.Errorf("expected ErrMissingID, got %v", err)
	}
}

func TestIndexer_WithBleve(t *testing.T) {
	b := newBuilder()
	im, err := keyword.NewIndexMapping(b.Metadata(), reflect.TypeOf(Listing{}))
	if err != nil {
		t.Fatal(err)
	}
	kw, err := keyword.NewBleveIndex("", im)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = kw.Close() }()

	idx := NewIndexer(b, kw)
	ctx := context.Background()
	if _, err := idx.IndexEntity(ctx, Listing{
		ID:     7,
		Title:  "Brass lamp",
		Tags:   []string{"vintage", "light"},
		Price:  20,
		Listed: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	}); err != nil {
		t.Fatalf("IndexEntity: %v", err)
	}
	results, err := kw.Search(ctx, "vintage", 10, &keyword.SearchOptions{Type: "Listing", Field: "tags"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].ID != "7" {
		t.Fatalf("results = %+v", results)
	}
}
