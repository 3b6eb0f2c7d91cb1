// Package server provides the HTTP API for fieldmap.
package server

import (
	"context"
	"fmt"
	"net/http"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/fieldmap/internal/config"
	"github.com/hyperjump/fieldmap/internal/indexer"
	"github.com/hyperjump/fieldmap/internal/keyword"
	"github.com/hyperjump/fieldmap/internal/query"
	"go.uber.org/zap"
)

// Server is the HTTP server for the fieldmap API.
type Server struct {
	indexer      *indexer.Indexer
	compiler     *query.Compiler
	keywordIndex keyword.KeywordIndex
	entities     map[string]reflect.Type
	config       *config.ServerConfig
	logger       *zap.Logger
	server       *http.Server
}

// NewServer creates a server with the given dependencies. entityTypes are the types the
// API accepts, addressed by their lowercased type name in URLs.
func NewServer(
	idx *indexer.Indexer,
	compiler *query.Compiler,
	keywordIndex keyword.KeywordIndex,
	entityTypes []reflect.Type,
	cfg *config.ServerConfig,
	logger *zap.Logger,
) *Server {
	entities := make(map[string]reflect.Type, len(entityTypes))
	for _, t := range entityTypes {
		for t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		entities[strings.ToLower(t.Name())] = t
	}
	return &Server{
		indexer:      idx,
		compiler:     compiler,
		keywordIndex: keywordIndex,
		entities:     entities,
		config:       cfg,
		logger:       logger,
	}
}

// Router returns the API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Get("/health", s.handleHealth)
	r.Get("/api/v1/status", s.handleStatus)
	r.Route("/api/v1/entities/{type}", func(r chi.Router) {
		r.Get("/fields", s.handleListFields)
		r.Post("/documents", s.handleIndexEntity)
		r.Delete("/documents/{id}", s.handleDeleteDocument)
		r.Post("/query", s.handleCompileQuery)
		r.Post("/search", s.handleSearch)
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) entityNames() []string {
	names := make([]string, 0, len(s.entities))
	for name := range s.entities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
