package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/hyperjump/fieldmap/internal/indexer"
	"github.com/hyperjump/fieldmap/internal/keyword"
	"github.com/hyperjump/fieldmap/internal/metadata"
	"github.com/hyperjump/fieldmap/internal/models"
	"github.com/hyperjump/fieldmap/internal/query"
	"github.com/hyperjump/fieldmap/pkg/utils"
	"go.uber.org/zap"
)

const (
	defaultSearchLimit = 10
	maxSearchLimit     = 100
	maxLoggedQueryLen  = 200
)

// fieldInfo describes one searchable field of an entity type.
type fieldInfo struct {
	Name        string           `json:"name"`
	EncodedName string           `json:"encoded_name"`
	IndexType   models.IndexType `json:"index_type"`
	Multiple    bool             `json:"multiple"`
	GoType      string           `json:"go_type"`
	Member      string           `json:"member"`
}

type batchResponse struct {
	Indexed int `json:"indexed"`
	Total   int `json:"total"`
}

type compileResponse struct {
	Query string `json:"query"`
}

type searchRequest struct {
	Query string `json:"query"`
	Field string `json:"field,omitempty"`
	Fuzzy bool   `json:"fuzzy,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

// entityType resolves the {type} URL parameter. It writes a 404 and returns nil for
// types the server does not serve.
func (s *Server) entityType(w http.ResponseWriter, r *http.Request) reflect.Type {
	name := strings.ToLower(chi.URLParam(r, "type"))
	t, ok := s.entities[name]
	if !ok {
		s.respondError(w, http.StatusNotFound, "unknown entity type: "+name)
		return nil
	}
	return t
}

func (s *Server) handleListFields(w http.ResponseWriter, r *http.Request) {
	t := s.entityType(w, r)
	if t == nil {
		return
	}
	e, err := s.indexer.Builder().Metadata().Entity(t)
	if err != nil {
		s.logger.Error("resolve metadata failed", zap.Stringer("type", t), zap.Error(err))
		s.respondError(w, statusFor(err, http.StatusInternalServerError), err.Error())
		return
	}
	fields := make([]fieldInfo, 0, len(e.Fields()))
	for _, f := range e.Fields() {
		fields = append(fields, fieldInfo{
			Name:        f.Name,
			EncodedName: f.EncodedName,
			IndexType:   f.IndexType,
			Multiple:    f.Multiple,
			GoType:      f.Type.String(),
			Member:      f.Member.Name,
		})
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"type":   e.Name(),
		"id":     e.ID.Member.Name,
		"fields": fields,
	})
}

func (s *Server) handleIndexEntity(w http.ResponseWriter, r *http.Request) {
	t := s.entityType(w, r)
	if t == nil {
		return
	}
	var body json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 && trimmed[0] == '[' {
		s.indexBatch(w, r, t, trimmed)
		return
	}
	entity := reflect.New(t)
	if err := json.Unmarshal(body, entity.Interface()); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	doc, err := s.indexer.IndexEntity(r.Context(), entity.Interface())
	if err != nil {
		s.logger.Error("indexing failed", zap.Stringer("type", t), zap.Error(err))
		s.respondError(w, statusFor(err, http.StatusInternalServerError), err.Error())
		return
	}
	if doc == nil {
		s.respondJSON(w, http.StatusOK, map[string]string{"status": "skipped"})
		return
	}
	s.respondJSON(w, http.StatusCreated, doc)
}

// indexBatch indexes a JSON array of entities of type t concurrently.
func (s *Server) indexBatch(w http.ResponseWriter, r *http.Request, t reflect.Type, body []byte) {
	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	entities := make([]any, len(items))
	for i, item := range items {
		entity := reflect.New(t)
		if err := json.Unmarshal(item, entity.Interface()); err != nil {
			s.respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid entity %d", i))
			return
		}
		entities[i] = entity.Interface()
	}
	n, err := s.indexer.IndexAll(r.Context(), entities)
	if err != nil {
		s.logger.Error("batch indexing failed", zap.Stringer("type", t), zap.Error(err))
		s.respondError(w, statusFor(err, http.StatusInternalServerError), err.Error())
		return
	}
	s.logger.Debug("batch indexed", zap.Stringer("type", t), zap.Int("indexed", n), zap.Int("total", len(entities)))
	s.respondJSON(w, http.StatusCreated, batchResponse{Indexed: n, Total: len(entities)})
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	t := s.entityType(w, r)
	if t == nil {
		return
	}
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete document request", zap.Stringer("type", t), zap.String("id", id))
	if err := s.indexer.DeleteDocument(r.Context(), t.Name(), id); err != nil {
		s.logger.Error("deletion failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleCompileQuery(w http.ResponseWriter, r *http.Request) {
	t := s.entityType(w, r)
	if t == nil {
		return
	}
	var req models.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	q, err := query.FromRequest(&req)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	compiled, err := s.compiler.Compile(t, q)
	if err != nil {
		s.logger.Debug("compile failed", zap.Stringer("type", t), zap.Error(err))
		s.respondError(w, statusFor(err, http.StatusBadRequest), err.Error())
		return
	}
	s.logger.Debug("query compiled",
		zap.Stringer("type", t),
		zap.String("query", utils.Truncate(compiled, maxLoggedQueryLen)),
	)
	s.respondJSON(w, http.StatusOK, compileResponse{Query: compiled})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	t := s.entityType(w, r)
	if t == nil {
		return
	}
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		s.respondError(w, http.StatusBadRequest, "query is required")
		return
	}
	opts := &keyword.SearchOptions{Type: t.Name(), FuzzyEnabled: req.Fuzzy}
	if req.Field != "" {
		encoded, err := s.indexer.Builder().Metadata().EncodeFieldName(t, req.Field)
		if err != nil {
			s.respondError(w, statusFor(err, http.StatusBadRequest), err.Error())
			return
		}
		opts.Field = encoded
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}
	s.logger.Debug("search request", zap.Stringer("type", t), zap.String("query", req.Query), zap.Int("limit", limit))
	hits, err := s.keywordIndex.Search(r.Context(), req.Query, limit, opts)
	if err != nil {
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"results": hits, "total": len(hits)})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	docCount, err := s.keywordIndex.DocCount()
	if err != nil {
		s.logger.Error("status: count documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := map[string]interface{}{
		"documents":    docCount,
		"entity_types": s.entityNames(),
	}
	if du, ok := s.keywordIndex.(diskUser); ok {
		if n, err := du.DiskUsage(); err == nil {
			resp["disk_usage_bytes"] = n
		} else {
			s.logger.Warn("status: measure index size failed", zap.Error(err))
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// diskUser is implemented by keyword indexes that live on disk.
type diskUser interface {
	DiskUsage() (int64, error)
}

// statusFor maps domain errors to HTTP status codes. Errors it does not recognize get
// fallback.
func statusFor(err error, fallback int) int {
	switch {
	case errors.Is(err, metadata.ErrConfiguration):
		return http.StatusInternalServerError
	case errors.Is(err, metadata.ErrUnknownField), errors.Is(err, query.ErrEmptyCollection):
		return http.StatusBadRequest
	case errors.Is(err, indexer.ErrUnsupportedMultiplicity), errors.Is(err, indexer.ErrMissingID):
		return http.StatusUnprocessableEntity
	default:
		return fallback
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
