// Package reconcile brings the vector index into agreement with the record store.
package reconcile

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/lostfound/internal/storage"
	"github.com/hyperjump/lostfound/internal/vector"
	"github.com/hyperjump/lostfound/pkg/utils"
)

// Report summarizes one reconciliation pass.
type Report struct {
	Records        int           `json:"records"`
	WithEmbedding  int           `json:"with_embedding"`
	AlreadyIndexed int           `json:"already_indexed"`
	Added          int           `json:"added"`
	Skipped        int           `json:"skipped"`
	Rebuilt        bool          `json:"rebuilt"`
	IndexSize      int           `json:"index_size"`
	Duration       time.Duration `json:"duration_ns"`
}

// Reconciler appends records that have an embedding but no index slot.
// Records removed from the store keep their slots.
type Reconciler struct {
	store  storage.RecordStore
	index  *vector.Index
	logger *zap.Logger
	mu     sync.Mutex
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Reconciler) { r.logger = l }
}

// New returns a Reconciler over store and index.
func New(store storage.RecordStore, index *vector.Index, opts ...Option) *Reconciler {
	r := &Reconciler{store: store, index: index}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = utils.OrNop(r.logger)
	return r
}

// Index returns the live index the reconciler maintains.
func (r *Reconciler) Index() *vector.Index {
	return r.index
}

// Locker returns the lock held for the duration of a pass. Writers that insert a record
// and then append its vector hold it too, so a pass never sees one without the other.
func (r *Reconciler) Locker() sync.Locker {
	return &r.mu
}

// Reconcile runs one pass. When the store cannot be read the index is left untouched
// and the error is returned. An empty index is rebuilt from scratch; otherwise missing
// records are appended in store order. The index is persisted once, and only if it changed
// or if it is empty and has never been written.
func (r *Reconciler) Reconcile(ctx context.Context) (*Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	start := time.Now()

	records, err := r.store.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("reconcile: read records: %w", err)
	}
	report := &Report{Records: len(records)}

	_, err = r.index.Update(func(b *vector.Batch) error {
		var missing []int
		queued := make(map[string]struct{})
		for i, rec := range records {
			if !rec.HasEmbedding() {
				continue
			}
			report.WithEmbedding++
			if b.Contains(rec.ItemID) {
				report.AlreadyIndexed++
				continue
			}
			if _, dup := queued[rec.ItemID]; dup {
				continue
			}
			queued[rec.ItemID] = struct{}{}
			missing = append(missing, i)
		}
		if len(missing) == 0 {
			if b.Len() == 0 && !b.Persisted() {
				// Nothing to index yet; still leave an empty index and id map on disk.
				return b.Reset()
			}
			return nil
		}
		if b.Len() == 0 {
			if err := b.Reset(); err != nil {
				return err
			}
			report.Rebuilt = true
		}
		for _, i := range missing {
			rec := records[i]
			if err := b.Append(rec.Embedding, rec.ItemID); err != nil {
				report.Skipped++
				r.logger.Warn("skipping record during reconcile",
					zap.String("item_id", rec.ItemID), zap.Error(err))
				continue
			}
			report.Added++
		}
		return nil
	})
	report.IndexSize = r.index.Size()
	report.Duration = time.Since(start)
	if err != nil {
		return report, fmt.Errorf("reconcile: %w", err)
	}

	if report.Added == 0 && report.Skipped == 0 {
		r.logger.Debug("index up to date", zap.Int("records", report.Records), zap.Int("index_size", report.IndexSize))
	} else {
		r.logger.Info("index reconciled",
			zap.Int("records", report.Records),
			zap.Int("added", report.Added),
			zap.Int("skipped", report.Skipped),
			zap.Bool("rebuilt", report.Rebuilt),
			zap.Int("index_size", report.IndexSize),
		)
	}
	return report, nil
}
