// Package indexer files new lost and found reports into the record store, the vector
// index and the keyword index.
package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/hyperjump/lostfound/internal/config"
	"github.com/hyperjump/lostfound/internal/itemid"
	"github.com/hyperjump/lostfound/internal/keyword"
	"github.com/hyperjump/lostfound/internal/models"
	"github.com/hyperjump/lostfound/internal/storage"
	"github.com/hyperjump/lostfound/internal/vector"
)

// Matcher finds candidate matches for a new report.
type Matcher interface {
	FindMatches(ctx context.Context, query []float32, topK int, reportType models.ReportType) []models.MatchResult
}

// VectorIndex is the part of the vector index the indexer writes to.
type VectorIndex interface {
	Add(ctx context.Context, vector []float32, itemID string) error
	Dimensions() int
}

var _ VectorIndex = (*vector.Index)(nil)

// Indexer files reports into storage, the vector index and the keyword index.
type Indexer struct {
	storage      storage.RecordStore
	vectorIndex  VectorIndex
	keywordIndex keyword.KeywordIndex
	matcher      Matcher
	config       *config.MatchConfig
	writeLock    sync.Locker
	logger       *zap.Logger // optional; when set, logs debug events
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// WithWriteLock sets a lock held while a record is stored and its vector appended.
func WithWriteLock(l sync.Locker) IndexerOption {
	return func(idx *Indexer) { idx.writeLock = l }
}

// NewIndexer creates an indexer with the given dependencies.
// keywordIndex may be nil; reports are then not keyword-searchable.
func NewIndexer(
	storage storage.RecordStore,
	vectorIndex VectorIndex,
	keywordIndex keyword.KeywordIndex,
	matcher Matcher,
	cfg *config.MatchConfig,
	opts ...IndexerOption,
) *Indexer {
	idx := &Indexer{
		storage:      storage,
		vectorIndex:  vectorIndex,
		keywordIndex: keywordIndex,
		matcher:      matcher,
		config:       cfg,
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Report files a new item. A lost report is first matched against found items so the
// reporter sees candidates immediately; the record is then stored and its vector
// appended to the index. A failed index append is returned after the record is
// stored; the next reconcile adds the missing vector. An explicit item ID must carry
// the prefix of its report type.
func (idx *Indexer) Report(ctx context.Context, input *models.ItemInput) (*models.ReportResponse, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	if dims := idx.vectorIndex.Dimensions(); len(input.Embedding) != dims {
		return nil, fmt.Errorf("%w: got %d, expected %d", vector.ErrDimensionMismatch, len(input.Embedding), dims)
	}
	if input.ItemID != "" && itemid.ReportTypeOf(input.ItemID) != input.ReportType {
		return nil, fmt.Errorf("%w: item_id %q does not carry the %s prefix", models.ErrInvalidInput, input.ItemID, input.ReportType)
	}
	category := normalizeCategory(input.Category)
	itemID := input.ItemID
	if itemID == "" {
		itemID = itemid.New(input.ReportType, category)
	}

	var matches []models.MatchResult
	if input.ReportType == models.ReportLost && idx.matcher != nil {
		matches = idx.matcher.FindMatches(ctx, input.Embedding, idx.topK(), models.ReportLost)
	}

	rec := &models.ItemRecord{
		ItemID:      itemID,
		ReportType:  input.ReportType,
		Category:    category,
		ItemType:    Preprocess(input.ItemType),
		Location:    Preprocess(input.Location),
		Description: Preprocess(input.Description),
		ImageURL:    input.ImageURL,
		Embedding:   input.Embedding,
	}
	if err := idx.write(ctx, rec); err != nil {
		return nil, err
	}
	if idx.logger != nil {
		idx.logger.Debug("item reported",
			zap.String("item_id", itemID),
			zap.String("report_type", string(rec.ReportType)),
			zap.Int("matches", len(matches)))
	}

	resp := &models.ReportResponse{
		Status:  "success",
		Message: reportMessage(rec.ReportType),
		ItemID:  itemID,
	}
	if input.ReportType == models.ReportLost {
		if matches == nil {
			matches = []models.MatchResult{}
		}
		resp.Matches = matches
	}
	return resp, nil
}

func (idx *Indexer) write(ctx context.Context, rec *models.ItemRecord) error {
	if idx.writeLock != nil {
		idx.writeLock.Lock()
		defer idx.writeLock.Unlock()
	}
	if err := idx.storage.Insert(ctx, rec); err != nil {
		return fmt.Errorf("failed to store item: %w", err)
	}
	if idx.keywordIndex != nil {
		if err := idx.keywordIndex.Index(ctx, rec); err != nil && idx.logger != nil {
			idx.logger.Warn("keyword index failed", zap.String("item_id", rec.ItemID), zap.Error(err))
		}
	}
	if err := idx.vectorIndex.Add(ctx, rec.Embedding, rec.ItemID); err != nil {
		return fmt.Errorf("failed to index vector for %s: %w", rec.ItemID, err)
	}
	return nil
}

func reportMessage(r models.ReportType) string {
	if r == models.ReportLost {
		return "Lost item reported successfully"
	}
	return "Found item reported successfully"
}

func (idx *Indexer) topK() int {
	if idx.config != nil && idx.config.TopK > 0 {
		return idx.config.TopK
	}
	return 5
}

// ImportFile reads a JSON array of item inputs from path and reports each one in
// order. It returns the number imported and stops at the first error.
func (idx *Indexer) ImportFile(ctx context.Context, path string) (n int, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read import file: %w", err)
	}
	var inputs []*models.ItemInput
	if err := json.Unmarshal(data, &inputs); err != nil {
		return 0, fmt.Errorf("decode import file: %w", err)
	}
	for i, input := range inputs {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		if _, err := idx.Report(ctx, input); err != nil {
			return n, fmt.Errorf("item %d: %w", i, err)
		}
		n++
	}
	return n, nil
}
