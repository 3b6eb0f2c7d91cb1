package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/hyperjump/fieldmap/internal/config"
	"github.com/hyperjump/fieldmap/internal/convert"
	"github.com/hyperjump/fieldmap/internal/indexer"
	"github.com/hyperjump/fieldmap/internal/keyword"
	"github.com/hyperjump/fieldmap/internal/metadata"
	"github.com/hyperjump/fieldmap/internal/query"
	"github.com/hyperjump/fieldmap/internal/search"
	"go.uber.org/zap"
)

type product struct {
	SKU   string   `json:"sku" searchid:""`
	Name  string   `json:"name" search:"name"`
	Tags  []string `json:"tags" search:"tags"`
	Price float64  `json:"price" search:"unit price"`
}

type reading struct {
	ID      string    `json:"id" searchid:""`
	Samples []float64 `json:"samples" search:"samples"`
}

type orphan struct {
	Name string `json:"name" search:"name"`
}

func newTestServer(t *testing.T) (*Server, keyword.KeywordIndex) {
	t.Helper()
	meta := search.NewMetadata(metadata.NewRegistry(nil))
	conv := convert.New()
	types := []reflect.Type{reflect.TypeOf(product{}), reflect.TypeOf(reading{})}
	im, err := keyword.NewIndexMapping(meta, types...)
	if err != nil {
		t.Fatalf("NewIndexMapping: %v", err)
	}
	kw, err := keyword.NewBleveIndex("", im)
	if err != nil {
		t.Fatalf("NewBleveIndex: %v", err)
	}
	t.Cleanup(func() { _ = kw.Close() })
	idx := indexer.NewIndexer(indexer.NewDocumentBuilder(meta, conv), kw)
	srv := NewServer(
		idx,
		query.NewCompiler(meta, conv),
		kw,
		append(types, reflect.TypeOf(&orphan{})),
		&config.ServerConfig{Host: "localhost", Port: 0},
		zap.NewNop(),
	)
	return srv, kw
}

func do(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHandleHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := do(t, srv.Router(), http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp map[string]string
	decode(t, rec, &resp)
	if resp["status"] != "ok" {
		t.Errorf("status body = %v", resp)
	}
}

func TestHandleListFields(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := do(t, srv.Router(), http.MethodGet, "/api/v1/entities/Product/fields", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Type   string      `json:"type"`
		ID     string      `json:"id"`
		Fields []fieldInfo `json:"fields"`
	}
	decode(t, rec, &resp)
	if resp.Type != "product" || resp.ID != "SKU" {
		t.Errorf("type/id = %q/%q", resp.Type, resp.ID)
	}
	if len(resp.Fields) != 3 {
		t.Fatalf("fields = %+v", resp.Fields)
	}
	price := resp.Fields[2]
	if price.Name != "unit price" || price.EncodedName != "unit_price" || price.IndexType != "number" {
		t.Errorf("price field = %+v", price)
	}
	if !resp.Fields[1].Multiple {
		t.Error("tags should be multiple")
	}
}

func TestHandleListFields_UnknownType(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := do(t, srv.Router(), http.MethodGet, "/api/v1/entities/invoice/fields", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestHandleListFields_BadConfiguration(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := do(t, srv.Router(), http.MethodGet, "/api/v1/entities/orphan/fields", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestHandleIndexEntity(t *testing.T) {
	srv, kw := newTestServer(t)
	h := srv.Router()

	rec := do(t, h, http.MethodPost, "/api/v1/entities/product/documents", map[string]interface{}{
		"sku": "p-1", "name": "Trail shoe", "tags": []string{"outdoor", "running"}, "price": 89.5,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var doc struct {
		ID     string `json:"id"`
		Type   string `json:"type"`
		Fields []struct {
			Name string `json:"name"`
		} `json:"fields"`
	}
	decode(t, rec, &doc)
	if doc.ID != "p-1" || doc.Type != "product" {
		t.Errorf("document = %+v", doc)
	}
	// name, two tags, price
	if len(doc.Fields) != 4 {
		t.Errorf("fields = %+v", doc.Fields)
	}
	if n, _ := kw.DocCount(); n != 1 {
		t.Errorf("DocCount = %d", n)
	}

	rec = do(t, h, http.MethodPost, "/api/v1/entities/product/search", searchRequest{Query: "trail"})
	if rec.Code != http.StatusOK {
		t.Fatalf("search status = %d: %s", rec.Code, rec.Body.String())
	}
	var hits struct {
		Total   int                     `json:"total"`
		Results []keyword.KeywordResult `json:"results"`
	}
	decode(t, rec, &hits)
	if hits.Total != 1 || hits.Results[0].ID != "p-1" {
		t.Errorf("search hits = %+v", hits)
	}

	rec = do(t, h, http.MethodDelete, "/api/v1/entities/product/documents/p-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if n, _ := kw.DocCount(); n != 0 {
		t.Errorf("DocCount after delete = %d", n)
	}
}

func TestHandleIndexEntity_Errors(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Router()
	tests := []struct {
		name string
		path string
		body interface{}
		want int
	}{
		{"malformed body", "/api/v1/entities/product/documents", "{", http.StatusBadRequest},
		{"missing id", "/api/v1/entities/product/documents", map[string]string{"name": "x"}, http.StatusUnprocessableEntity},
		{"number collection", "/api/v1/entities/reading/documents", map[string]interface{}{"id": "r", "samples": []float64{1, 2}}, http.StatusUnprocessableEntity},
		{"unknown type", "/api/v1/entities/nope/documents", map[string]string{}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, tt.path, tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestHandleCompileQuery(t *testing.T) {
	srv, _ := newTestServer(t)
	body := `{"fragments":[
		{"field":"unit price","op":">","value":10},
		{"raw":"AND"},
		{"field":"tags","op":"in","values":["a","b\"c"]}
	]}`
	rec := do(t, srv.Router(), http.MethodPost, "/api/v1/entities/product/query", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp compileResponse
	decode(t, rec, &resp)
	want := `unit_price>"10" AND tags:("a" OR "b\"c")`
	if resp.Query != want {
		t.Errorf("query = %s, want %s", resp.Query, want)
	}
}

func TestHandleCompileQuery_Errors(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Router()
	tests := []struct {
		name     string
		body     string
		want     int
		contains string
	}{
		{"unknown field", `{"fragments":[{"field":"nmae","op":"=","value":"x"}]}`, http.StatusBadRequest, "did you mean"},
		{"empty collection", `{"fragments":[{"field":"tags","op":"in","values":[]}]}`, http.StatusBadRequest, ""},
		{"unknown operator", `{"fragments":[{"field":"name","op":"~~","value":"x"}]}`, http.StatusBadRequest, "unknown operator"},
		{"no fragments", `{"fragments":[]}`, http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/v1/entities/product/query", tt.body)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body.String())
			}
			if tt.contains != "" && !strings.Contains(rec.Body.String(), tt.contains) {
				t.Errorf("body %s does not contain %q", rec.Body.String(), tt.contains)
			}
		})
	}
}

func TestHandleStatus(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := do(t, srv.Router(), http.MethodGet, "/api/v1/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Documents   uint64   `json:"documents"`
		EntityTypes []string `json:"entity_types"`
	}
	decode(t, rec, &resp)
	if resp.Documents != 0 {
		t.Errorf("documents = %d", resp.Documents)
	}
	if !reflect.DeepEqual(resp.EntityTypes, []string{"orphan", "product", "reading"}) {
		t.Errorf("entity_types = %v", resp.EntityTypes)
	}
}

func TestHandleIndexEntity_Batch(t *testing.T) {
	srv, kw := newTestServer(t)
	h := srv.Router()

	rec := do(t, h, http.MethodPost, "/api/v1/entities/product/documents", []map[string]interface{}{
		{"sku": "p-1", "name": "Trail shoe"},
		{"sku": "p-2", "name": "Road shoe", "tags": []string{"running"}},
		{"sku": "p-3", "name": "Sandal", "price": 20},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp batchResponse
	decode(t, rec, &resp)
	if resp.Indexed != 3 || resp.Total != 3 {
		t.Errorf("batch response = %+v", resp)
	}
	if n, _ := kw.DocCount(); n != 3 {
		t.Errorf("DocCount = %d, want 3", n)
	}

	rec = do(t, h, http.MethodPost, "/api/v1/entities/reading/documents", `[{"id":"r1","samples":[1,2]}]`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("number collection in batch: status = %d: %s", rec.Code, rec.Body.String())
	}
	rec = do(t, h, http.MethodPost, "/api/v1/entities/product/documents", `[{"sku":"p-9"}, 42]`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed batch element: status = %d", rec.Code)
	}
}
