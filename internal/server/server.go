// Package server provides the HTTP and WebSocket API for Matome.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/matomesearch/matome/internal/analyze"
	"github.com/matomesearch/matome/internal/archive"
	"github.com/matomesearch/matome/internal/cache"
	"github.com/matomesearch/matome/internal/config"
	"github.com/matomesearch/matome/internal/search"
	"github.com/matomesearch/matome/internal/source"
	"github.com/matomesearch/matome/internal/storage"
)

// Server is the HTTP server for the Matome API.
type Server struct {
	orchestrator *search.Orchestrator
	analyzer     *analyze.Analyzer
	registry     *source.Registry
	cache        *cache.ResponseCache
	store        storage.Store
	archive      *archive.Index
	config       *config.ServerConfig
	logger       *zap.Logger
	server       *http.Server
}

// NewServer creates a server with the given dependencies. store and archiveIndex
// may be nil; the routes backed by them respond 503.
func NewServer(
	orchestrator *search.Orchestrator,
	analyzer *analyze.Analyzer,
	registry *source.Registry,
	responseCache *cache.ResponseCache,
	store storage.Store,
	archiveIndex *archive.Index,
	cfg *config.ServerConfig,
	logger *zap.Logger,
) *Server {
	return &Server{
		orchestrator: orchestrator,
		analyzer:     analyzer,
		registry:     registry,
		cache:        responseCache,
		store:        store,
		archive:      archiveIndex,
		config:       cfg,
		logger:       logger,
	}
}

// router assembles the route tree. The WebSocket endpoint sits outside the
// timeout and compression middleware; both break long-lived hijacked
// connections.
func (s *Server) router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))
		r.Use(middleware.Compress(5))

		r.Get("/", s.handleRoot)
		r.Get("/health", s.handleHealth)
		r.Post("/api/search", s.handleSearch)
		r.Post("/api/analyze", s.handleAnalyze)
		r.Get("/api/history", s.handleHistory)
		r.Get("/api/analytics", s.handleAnalytics)
		r.Get("/api/suggest", s.handleSuggest)
		r.Get("/api/cache/stats", s.handleCacheStats)
		r.Post("/api/cache/clear", s.handleCacheClear)
		r.Get("/api/sources", s.handleSources)
	})
	r.Get("/ws/search", s.handleSearchSocket)

	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router(),
		ReadTimeout:  time.Duration(s.config.ReadTimeout),
		WriteTimeout: time.Duration(s.config.WriteTimeout),
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
