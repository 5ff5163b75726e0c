// Package server provides the HTTP API for lost and found matching.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/lostfound/internal/config"
	"github.com/hyperjump/lostfound/internal/indexer"
	"github.com/hyperjump/lostfound/internal/keyword"
	"github.com/hyperjump/lostfound/internal/match"
	"github.com/hyperjump/lostfound/internal/reconcile"
	"github.com/hyperjump/lostfound/internal/storage"
	"github.com/hyperjump/lostfound/internal/vector"
	"github.com/hyperjump/lostfound/pkg/utils"
)

// Server is the HTTP server for the lostfound API.
type Server struct {
	engine     *match.Engine
	indexer    *indexer.Indexer
	reconciler *reconcile.Reconciler
	storage    storage.RecordStore
	keyword    keyword.KeywordIndex // optional; discover ignores q when nil
	vectors    *vector.Index
	config     *config.Config
	logger     *zap.Logger
	server     *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	engine *match.Engine,
	idx *indexer.Indexer,
	reconciler *reconcile.Reconciler,
	storage storage.RecordStore,
	kw keyword.KeywordIndex,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		engine:     engine,
		indexer:    idx,
		reconciler: reconciler,
		storage:    storage,
		keyword:    kw,
		vectors:    reconciler.Index(),
		config:     cfg,
		logger:     utils.OrNop(logger),
	}
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))
	if s.config.Debug {
		r.Use(middleware.Logger)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/matches", s.handleMatches)
		r.Post("/items", s.handleReport)
		r.Get("/items", s.handleDiscover)
		r.Get("/items/{id}", s.handleGetItem)
		r.Put("/items/{id}/embedding", s.handleStoreEmbedding)
		r.Post("/reconcile", s.handleReconcile)
		r.Get("/status", s.handleStatus)
	})
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops. A shutdown through Stop
// returns nil.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
