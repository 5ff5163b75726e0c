package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/lostfound/internal/models"
)

// JSONStorage implements RecordStore on a single JSON array file. The file is re-read
// on every call so edits made by other processes are visible; writes go through a
// temporary file and rename.
type JSONStorage struct {
	path   string
	logger *zap.Logger
	mu     sync.Mutex
}

// NewJSONStorage returns a store backed by path. The file is created on first write.
func NewJSONStorage(path string, logger *zap.Logger) (*JSONStorage, error) {
	if path == "" {
		return nil, fmt.Errorf("items path is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create items directory: %w", err)
	}
	return &JSONStorage{path: path, logger: logger}, nil
}

// Path returns the backing file path.
func (s *JSONStorage) Path() string {
	return s.path
}

// jsonRecord is the on-disk shape. Embedding and created_at are decoded leniently:
// files written by other tools may carry timestamps without a zone or a malformed vector.
type jsonRecord struct {
	ItemID      string            `json:"item_id"`
	ReportType  models.ReportType `json:"reportType"`
	Category    string            `json:"category"`
	ItemType    string            `json:"itemType,omitempty"`
	Location    string            `json:"location"`
	Description string            `json:"description"`
	ImageURL    string            `json:"imageUrl"`
	Embedding   json.RawMessage   `json:"embedding,omitempty"`
	CreatedAt   string            `json:"created_at,omitempty"`
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func parseTime(s string) time.Time {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func (s *JSONStorage) toRecord(jr jsonRecord) *models.ItemRecord {
	rec := &models.ItemRecord{
		ItemID:      jr.ItemID,
		ReportType:  jr.ReportType,
		Category:    jr.Category,
		ItemType:    jr.ItemType,
		Location:    jr.Location,
		Description: jr.Description,
		ImageURL:    jr.ImageURL,
		CreatedAt:   parseTime(jr.CreatedAt),
	}
	if len(jr.Embedding) > 0 && string(jr.Embedding) != "null" {
		if err := json.Unmarshal(jr.Embedding, &rec.Embedding); err != nil {
			s.logger.Warn("ignoring malformed embedding", zap.String("item_id", jr.ItemID), zap.Error(err))
			rec.Embedding = nil
		}
	}
	return rec
}

func fromRecord(rec *models.ItemRecord) jsonRecord {
	jr := jsonRecord{
		ItemID:      rec.ItemID,
		ReportType:  rec.ReportType,
		Category:    rec.Category,
		ItemType:    rec.ItemType,
		Location:    rec.Location,
		Description: rec.Description,
		ImageURL:    rec.ImageURL,
	}
	if !rec.CreatedAt.IsZero() {
		jr.CreatedAt = rec.CreatedAt.UTC().Format(time.RFC3339Nano)
	}
	if len(rec.Embedding) > 0 {
		jr.Embedding, _ = json.Marshal(rec.Embedding)
	}
	return jr
}

func (s *JSONStorage) readLocked() ([]jsonRecord, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []jsonRecord{}, nil
		}
		return nil, fmt.Errorf("read items file: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return []jsonRecord{}, nil
	}
	var items []jsonRecord
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode items file: %w", err)
	}
	return items, nil
}

func (s *JSONStorage) writeLocked(items []jsonRecord) error {
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("encode items: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create items dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write items file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename items file: %w", err)
	}
	return nil
}

// GetAll returns every record in file order.
func (s *JSONStorage) GetAll(ctx context.Context) ([]*models.ItemRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items, err := s.readLocked()
	if err != nil {
		return nil, err
	}
	out := make([]*models.ItemRecord, 0, len(items))
	for _, jr := range items {
		out = append(out, s.toRecord(jr))
	}
	return out, nil
}

// Get returns the first record with itemID.
func (s *JSONStorage) Get(ctx context.Context, itemID string) (*models.ItemRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items, err := s.readLocked()
	if err != nil {
		return nil, err
	}
	for _, jr := range items {
		if jr.ItemID == itemID {
			return s.toRecord(jr), nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, itemID)
}

// Insert appends a record. CreatedAt is set when zero. Duplicate item IDs are rejected.
func (s *JSONStorage) Insert(ctx context.Context, rec *models.ItemRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	items, err := s.readLocked()
	if err != nil {
		return err
	}
	for _, jr := range items {
		if jr.ItemID == rec.ItemID {
			return fmt.Errorf("failed to insert item %s: duplicate item_id", rec.ItemID)
		}
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	items = append(items, fromRecord(rec))
	if err := s.writeLocked(items); err != nil {
		return err
	}
	s.logger.Debug("item inserted", zap.String("item_id", rec.ItemID), zap.Int("total", len(items)))
	return nil
}

// UpdateEmbedding replaces the embedding of an existing record.
func (s *JSONStorage) UpdateEmbedding(ctx context.Context, itemID string, embedding []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	items, err := s.readLocked()
	if err != nil {
		return err
	}
	for i := range items {
		if items[i].ItemID != itemID {
			continue
		}
		items[i].Embedding = nil
		if len(embedding) > 0 {
			items[i].Embedding, _ = json.Marshal(embedding)
		}
		return s.writeLocked(items)
	}
	return fmt.Errorf("%w: %s", ErrNotFound, itemID)
}

// List returns records matching filter, newest first unless filter.Oldest.
func (s *JSONStorage) List(ctx context.Context, filter models.ItemFilter) ([]*models.ItemRecord, error) {
	all, err := s.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*models.ItemRecord, 0, len(all))
	for _, rec := range all {
		if MatchesFilter(rec, filter) {
			out = append(out, rec)
		}
	}
	// Reverse file order first so equal timestamps still list newest first.
	if !filter.Oldest {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if filter.Oldest {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return Page(out, filter.Offset, filter.Limit), nil
}

// MatchesFilter reports whether rec passes the report type, category and location filters.
func MatchesFilter(rec *models.ItemRecord, filter models.ItemFilter) bool {
	if filter.ReportType != "" && rec.ReportType != filter.ReportType {
		return false
	}
	if filter.Category != "" && !containsFold(rec.Category, filter.Category) {
		return false
	}
	if filter.Location != "" && !containsFold(rec.Location, filter.Location) {
		return false
	}
	return true
}

// Page applies offset and limit to items. A non-positive limit means no limit.
func Page(items []*models.ItemRecord, offset, limit int) []*models.ItemRecord {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []*models.ItemRecord{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// Count returns the number of records in the file.
func (s *JSONStorage) Count(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items, err := s.readLocked()
	if err != nil {
		return 0, err
	}
	return int64(len(items)), nil
}

// Close is a no-op; the file is not held open.
func (s *JSONStorage) Close() error {
	return nil
}
