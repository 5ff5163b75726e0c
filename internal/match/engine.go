// Package match finds reports similar to a query embedding and filters them to the
// opposing report type.
package match

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/lostfound/internal/itemid"
	"github.com/hyperjump/lostfound/internal/models"
	"github.com/hyperjump/lostfound/internal/storage"
	"github.com/hyperjump/lostfound/internal/vector"
	"github.com/hyperjump/lostfound/pkg/utils"
)

// Reason is attached to every match.
const Reason = "Image and description are semantically similar"

// DefaultThreshold is the minimum score a hit needs to be returned.
const DefaultThreshold = 0.5

// Searcher is the nearest-neighbor lookup the engine queries. *vector.Index implements it.
type Searcher interface {
	Search(ctx context.Context, query []float32, topK int) ([]*vector.VectorResult, error)
}

// Engine joins index hits with their records.
type Engine struct {
	index     Searcher
	store     storage.RecordStore
	threshold float64
	logger    *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithThreshold sets the minimum score.
func WithThreshold(t float64) Option {
	return func(e *Engine) { e.threshold = t }
}

// NewEngine returns an engine over index and store.
func NewEngine(index Searcher, store storage.RecordStore, opts ...Option) *Engine {
	e := &Engine{index: index, store: store, threshold: DefaultThreshold}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = utils.OrNop(e.logger)
	return e
}

// Threshold returns the configured minimum score.
func (e *Engine) Threshold() float64 {
	return e.threshold
}

// FindMatches returns up to topK records similar to query, best first. When reportType
// is set only records of the opposite type are kept. Failures, including an unknown
// report type, are logged and yield an empty slice.
func (e *Engine) FindMatches(ctx context.Context, query []float32, topK int, reportType models.ReportType) []models.MatchResult {
	matches, err := e.findMatches(ctx, query, topK, reportType)
	if err != nil {
		e.logger.Error("find matches failed", zap.Error(err))
		return []models.MatchResult{}
	}
	return matches
}

func (e *Engine) findMatches(ctx context.Context, query []float32, topK int, reportType models.ReportType) ([]models.MatchResult, error) {
	if reportType != "" && !reportType.Valid() {
		return nil, fmt.Errorf("unknown report type %q", reportType)
	}
	hits, err := e.index.Search(ctx, query, topK)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	matches := make([]models.MatchResult, 0, len(hits))
	if len(hits) == 0 {
		return matches, nil
	}

	records, err := e.store.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}
	byID := make(map[string]*models.ItemRecord, len(records))
	for _, rec := range records {
		if _, ok := byID[rec.ItemID]; !ok {
			byID[rec.ItemID] = rec
		}
	}

	want := reportType.Opposite()
	for _, hit := range hits {
		if hit.Score < e.threshold {
			continue
		}
		rec, ok := byID[hit.ID]
		if !ok {
			e.logger.Debug("index hit without record", zap.String("item_id", hit.ID))
			continue
		}
		if reportType != "" && itemid.ReportTypeOf(hit.ID) != want {
			continue
		}
		itemType := rec.ItemType
		if itemType == "" {
			itemType = rec.Category
		}
		matches = append(matches, models.MatchResult{
			ItemID:      rec.ItemID,
			ItemType:    itemType,
			Description: rec.Description,
			Location:    rec.Location,
			ReportType:  rec.ReportType,
			ImageURL:    rec.ImageURL,
			Score:       utils.Round(hit.Score, 3),
			Confidence:  ConfidenceLabel(hit.Score),
			Reason:      Reason,
		})
	}
	e.logger.Debug("matches found",
		zap.Int("hits", len(hits)), zap.Int("matches", len(matches)), zap.String("report_type", string(reportType)))
	return matches, nil
}

// StoreEmbedding saves embedding on the record itemID. The index is not modified; the
// next reconcile picks the vector up. It reports whether the update succeeded.
func (e *Engine) StoreEmbedding(ctx context.Context, itemID string, embedding []float32) bool {
	if err := e.store.UpdateEmbedding(ctx, itemID, embedding); err != nil {
		e.logger.Warn("store embedding failed", zap.String("item_id", itemID), zap.Error(err))
		return false
	}
	e.logger.Debug("embedding stored", zap.String("item_id", itemID), zap.Int("dimensions", len(embedding)))
	return true
}
