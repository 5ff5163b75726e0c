package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/lostfound/internal/config"
	"github.com/hyperjump/lostfound/internal/indexer"
	"github.com/hyperjump/lostfound/internal/keyword"
	"github.com/hyperjump/lostfound/internal/match"
	"github.com/hyperjump/lostfound/internal/reconcile"
	"github.com/hyperjump/lostfound/internal/storage"
	"github.com/hyperjump/lostfound/internal/vector"
)

// Components holds initialized services.
type Components struct {
	Storage      storage.RecordStore
	Vectors      *vector.Index
	KeywordIndex keyword.KeywordIndex
	Reconciler   *reconcile.Reconciler
	Engine       *match.Engine
	Indexer      *indexer.Indexer
}

func (c *Components) Close() {
	if c.KeywordIndex != nil {
		_ = c.KeywordIndex.Close()
	}
	if c.Vectors != nil {
		_ = c.Vectors.Close()
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

func openStore(cfg *config.Config, logger *zap.Logger) (storage.RecordStore, error) {
	switch cfg.Storage.Backend {
	case config.BackendJSON:
		return storage.NewJSONStorage(cfg.Storage.ItemsPath, logger)
	default:
		return storage.NewSQLiteStorage(cfg.Storage.DatabasePath, logger)
	}
}

// initializeComponents opens the record store and the persisted vector index, brings
// the index up to date with the store, and builds the keyword index from the records.
func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	c := &Components{}
	store, err := openStore(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	c.Storage = store

	vectors, err := vector.Load(vector.Options{
		IndexType:  cfg.Vector.IndexType,
		Dimensions: cfg.Vector.Dimensions,
		IndexPath:  cfg.Storage.IndexPath,
		IDMapPath:  cfg.Storage.IDMapPath,
		Logger:     logger,
	})
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize vector index: %w", err)
	}
	c.Vectors = vectors
	logger.Info("vector index initialized",
		zap.String("type", vectors.Type()),
		zap.Int("size", vectors.Size()),
		zap.Bool("faiss_available", vector.IsFAISSAvailable()))

	c.Reconciler = reconcile.New(store, vectors, reconcile.WithLogger(logger))
	if _, err := c.Reconciler.Reconcile(ctx); err != nil {
		// Matching still works against whatever the index already holds.
		logger.Warn("initial reconcile failed", zap.Error(err))
	}

	kw, err := keyword.NewMemBleveIndex()
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
	}
	c.KeywordIndex = kw
	if n, err := keyword.Rebuild(ctx, kw, store, logger); err != nil {
		logger.Warn("keyword index rebuild failed", zap.Error(err))
	} else {
		logger.Debug("keyword index built", zap.Int("items", n))
	}

	c.Engine = match.NewEngine(vectors, store,
		match.WithThreshold(cfg.Match.ScoreThreshold),
		match.WithLogger(logger))
	c.Indexer = indexer.NewIndexer(store, vectors, kw, c.Engine, &cfg.Match,
		indexer.WithLogger(logger),
		indexer.WithWriteLock(c.Reconciler.Locker()))
	return c, nil
}

// refresh re-runs reconciliation and the keyword rebuild after the record store
// changed outside this process.
func (c *Components) refresh(ctx context.Context, logger *zap.Logger) {
	if _, err := c.Reconciler.Reconcile(ctx); err != nil {
		logger.Warn("reconcile after change failed", zap.Error(err))
		return
	}
	if _, err := keyword.Rebuild(ctx, c.KeywordIndex, c.Storage, logger); err != nil {
		logger.Warn("keyword index rebuild failed", zap.Error(err))
	}
}
