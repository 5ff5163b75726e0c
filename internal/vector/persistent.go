package vector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Options configures a persistent Index.
type Options struct {
	IndexType  string
	Dimensions int
	// IndexPath is the serialized flat index; IDMapPath is the JSON array of item IDs
	// where position i names slot i.
	IndexPath string
	IDMapPath string
	Logger    *zap.Logger
}

// Index pairs a FlatIndex with the ordered slot→item ID map. Both are mutated
// together under one lock and persisted together, so len(idMap) == flat.Ntotal()
// holds after every mutating call returns.
type Index struct {
	opts   Options
	logger *zap.Logger

	mu    sync.RWMutex
	flat  FlatIndex
	idMap []string
}

// Load returns the index persisted at opts.IndexPath, or an empty inner-product
// index of opts.Dimensions when no index file exists. A missing id map file yields
// an empty map.
func Load(opts Options) (*Index, error) {
	if opts.Dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	opts.IndexType = resolveIndexType(opts.IndexType, logger)

	var flat FlatIndex
	if _, err := os.Stat(opts.IndexPath); opts.IndexPath == "" || errors.Is(err, os.ErrNotExist) {
		logger.Info("creating new vector index", zap.String("type", opts.IndexType), zap.Int("dimensions", opts.Dimensions))
		flat, err = NewFlatIndex(opts.IndexType, opts.Dimensions)
		if err != nil {
			return nil, fmt.Errorf("create vector index: %w", err)
		}
	} else {
		logger.Info("loading vector index", zap.String("path", opts.IndexPath))
		flat, err = ReadFlatIndex(opts.IndexType, opts.IndexPath)
		if err != nil {
			return nil, fmt.Errorf("load vector index: %w", err)
		}
		if flat.Dimensions() != opts.Dimensions {
			_ = flat.Close()
			return nil, fmt.Errorf("%w: index file has %d, config expects %d", ErrDimensionMismatch, flat.Dimensions(), opts.Dimensions)
		}
	}

	idMap, err := readIDMap(opts.IDMapPath)
	if err != nil {
		_ = flat.Close()
		return nil, err
	}
	idMap = alignIDMap(idMap, flat.Ntotal(), logger)

	return &Index{opts: opts, logger: logger, flat: flat, idMap: idMap}, nil
}

// resolveIndexType falls back to the memory backend when FAISS is requested but not compiled in.
func resolveIndexType(indexType string, logger *zap.Logger) string {
	if IndexType(indexType) == IndexTypeFAISS && !IsFAISSAvailable() {
		logger.Warn("FAISS not available, falling back to memory index")
		return string(IndexTypeMemory)
	}
	if indexType == "" {
		return string(IndexTypeMemory)
	}
	return indexType
}

// alignIDMap makes the id map length equal to the vector count. Extra IDs have no
// vector and are dropped, so reconciliation re-adds their records. Vectors without an
// ID get an empty placeholder, which search never returns.
func alignIDMap(idMap []string, ntotal int, logger *zap.Logger) []string {
	switch {
	case len(idMap) > ntotal:
		logger.Warn("id map longer than vector index, truncating",
			zap.Int("id_map", len(idMap)), zap.Int("vectors", ntotal))
		return idMap[:ntotal]
	case len(idMap) < ntotal:
		logger.Warn("vector index longer than id map, unmapped slots will be skipped",
			zap.Int("id_map", len(idMap)), zap.Int("vectors", ntotal))
		for len(idMap) < ntotal {
			idMap = append(idMap, "")
		}
	}
	return idMap
}

// Add appends vector under itemID and persists the index before returning. A
// persistence error is returned: in-memory state is then ahead of disk until the next
// successful persist.
func (ix *Index) Add(ctx context.Context, vector []float32, itemID string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if err := ix.appendLocked(vector, itemID); err != nil {
		return err
	}
	if err := ix.persistLocked(); err != nil {
		return err
	}
	ix.logger.Debug("vector added", zap.String("item_id", itemID), zap.Int("total", len(ix.idMap)))
	return nil
}

func (ix *Index) appendLocked(vector []float32, itemID string) error {
	if len(vector) != ix.opts.Dimensions {
		return fmt.Errorf("%w: got %d, expected %d", ErrDimensionMismatch, len(vector), ix.opts.Dimensions)
	}
	if err := ix.flat.Add([][]float32{vector}); err != nil {
		return fmt.Errorf("add vector for %s: %w", itemID, err)
	}
	ix.idMap = append(ix.idMap, itemID)
	return nil
}

// Search returns up to topK hits ordered by descending score, ties broken by lower
// slot. An empty index yields an empty result. Slots outside the id map are dropped.
func (ix *Index) Search(ctx context.Context, query []float32, topK int) ([]*VectorResult, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	results := make([]*VectorResult, 0)
	if topK <= 0 || ix.flat.Ntotal() == 0 {
		return results, nil
	}
	hits, err := ix.flat.Search(query, topK)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Slot < hits[j].Slot
	})
	for _, h := range hits {
		if h.Slot < 0 || h.Slot >= int64(len(ix.idMap)) {
			continue
		}
		id := ix.idMap[h.Slot]
		if id == "" {
			continue
		}
		results = append(results, &VectorResult{ID: id, Slot: h.Slot, Score: h.Score})
	}
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Persist writes the index file, then the id map file.
func (ix *Index) Persist() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.persistLocked()
}

func (ix *Index) persistLocked() error {
	if ix.opts.IndexPath == "" || ix.opts.IDMapPath == "" {
		return nil
	}
	if err := writeAtomic(ix.opts.IndexPath, ix.flat.WriteFile); err != nil {
		return fmt.Errorf("persist vector index: %w", err)
	}
	if err := writeIDMap(ix.opts.IDMapPath, ix.idMap); err != nil {
		return fmt.Errorf("persist id map: %w", err)
	}
	return nil
}

// Update runs fn with exclusive access to the index. When fn changed the index and
// returned nil, the index is persisted once. It reports whether anything changed.
func (ix *Index) Update(fn func(b *Batch) error) (bool, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	b := &Batch{ix: ix}
	if err := fn(b); err != nil {
		return b.changed, err
	}
	if !b.changed {
		return false, nil
	}
	if err := ix.persistLocked(); err != nil {
		return true, err
	}
	return true, nil
}

// Size returns the number of vectors in the index.
func (ix *Index) Size() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.flat.Ntotal()
}

// IDMap returns a copy of the slot→item ID map.
func (ix *Index) IDMap() []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return append([]string(nil), ix.idMap...)
}

// Dimensions returns the configured vector dimension.
func (ix *Index) Dimensions() int {
	return ix.opts.Dimensions
}

// Type returns the flat backend type.
func (ix *Index) Type() string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.flat.Type()
}

// Close releases the flat index.
func (ix *Index) Close() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.flat.Close()
}

// Batch is the mutable view handed to Update.
type Batch struct {
	ix      *Index
	changed bool
	present map[string]struct{}
}

// Len returns the current number of vectors.
func (b *Batch) Len() int {
	return b.ix.flat.Ntotal()
}

// Contains reports whether itemID already has a slot.
func (b *Batch) Contains(itemID string) bool {
	if b.present == nil {
		b.present = make(map[string]struct{}, len(b.ix.idMap))
		for _, id := range b.ix.idMap {
			if id != "" {
				b.present[id] = struct{}{}
			}
		}
	}
	_, ok := b.present[itemID]
	return ok
}

// Append adds vector under itemID without persisting.
func (b *Batch) Append(vector []float32, itemID string) error {
	if err := b.ix.appendLocked(vector, itemID); err != nil {
		return err
	}
	b.changed = true
	if b.present != nil {
		b.present[itemID] = struct{}{}
	}
	return nil
}

// Persisted reports whether the index file and the id map file both exist. An index
// without file paths counts as persisted.
func (b *Batch) Persisted() bool {
	for _, p := range []string{b.ix.opts.IndexPath, b.ix.opts.IDMapPath} {
		if p == "" {
			return true
		}
		if _, err := os.Stat(p); err != nil {
			return false
		}
	}
	return true
}

// Reset replaces the index with a fresh empty one of the same type and dimension.
func (b *Batch) Reset() error {
	flat, err := NewFlatIndex(b.ix.opts.IndexType, b.ix.opts.Dimensions)
	if err != nil {
		return fmt.Errorf("create vector index: %w", err)
	}
	_ = b.ix.flat.Close()
	b.ix.flat = flat
	b.ix.idMap = nil
	b.present = nil
	b.changed = true
	return nil
}

func readIDMap(path string) ([]string, error) {
	if path == "" {
		return []string{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("read id map: %w", err)
	}
	var idMap []string
	if err := json.Unmarshal(data, &idMap); err != nil {
		return nil, fmt.Errorf("decode id map: %w", err)
	}
	if idMap == nil {
		idMap = []string{}
	}
	return idMap, nil
}

func writeIDMap(path string, idMap []string) error {
	if idMap == nil {
		idMap = []string{}
	}
	data, err := json.MarshalIndent(idMap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode id map: %w", err)
	}
	return writeAtomic(path, func(tmp string) error {
		return os.WriteFile(tmp, data, 0644)
	})
}

// writeAtomic calls write with a temporary path next to path and renames the result into place.
func writeAtomic(path string, write func(tmp string) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := write(tmp); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}
