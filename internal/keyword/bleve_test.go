package keyword

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/lostfound/internal/models"
	"github.com/hyperjump/lostfound/internal/storage"
)

func newTestIndex(t *testing.T) *BleveIndex {
	t.Helper()
	idx, err := NewMemBleveIndex()
	if err != nil {
		t.Fatalf("NewMemBleveIndex: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func seed(t *testing.T, idx *BleveIndex) {
	t.Helper()
	records := []*models.ItemRecord{
		{ItemID: "LOST-WALLET-1", ReportType: models.ReportLost, Category: "wallet", ItemType: "Wallet",
			Description: "Brown leather wallet with student card", Location: "Main Library"},
		{ItemID: "FOUND-WALLET-2", ReportType: models.ReportFound, Category: "wallet", ItemType: "Wallet",
			Description: "Black wallet near the stairs", Location: "Gym"},
		{ItemID: "FOUND-KEYS-3", ReportType: models.ReportFound, Category: "keys", ItemType: "Keys",
			Description: "Bunch of keys with a red Toyota fob", Location: "Library parking"},
	}
	for _, rec := range records {
		if err := idx.Index(context.Background(), rec); err != nil {
			t.Fatalf("Index %s: %v", rec.ItemID, err)
		}
	}
}

func resultIDs(results []*KeywordResult) map[string]bool {
	out := make(map[string]bool, len(results))
	for _, r := range results {
		out[r.ID] = true
	}
	return out
}

func TestBleveIndex_Search(t *testing.T) {
	idx := newTestIndex(t)
	seed(t, idx)
	ctx := context.Background()

	tests := []struct {
		name  string
		query string
		opts  *SearchOptions
		want  []string
	}{
		{"category", "wallet", nil, []string{"LOST-WALLET-1", "FOUND-WALLET-2"}},
		{"description word", "toyota", nil, []string{"FOUND-KEYS-3"}},
		{"location", "library", nil, []string{"LOST-WALLET-1", "FOUND-KEYS-3"}},
		{"report type filter", "wallet", &SearchOptions{ReportType: models.ReportFound}, []string{"FOUND-WALLET-2"}},
		{"fuzzy", "walet", &SearchOptions{FuzzyEnabled: true}, []string{"LOST-WALLET-1", "FOUND-WALLET-2"}},
		{"no match", "umbrella", nil, nil},
		{"blank", "   ", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := idx.Search(ctx, tt.query, 10, tt.opts)
			if err != nil {
				t.Fatalf("Search: %v", err)
			}
			got := resultIDs(results)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for _, id := range tt.want {
				if !got[id] {
					t.Errorf("missing %s in %v", id, got)
				}
			}
		})
	}
}

func TestBleveIndex_CategoryOutranksDescription(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	_ = idx.Index(ctx, &models.ItemRecord{ItemID: "FOUND-BAG-1", Category: "bag", Description: "bag with a phone inside"})
	_ = idx.Index(ctx, &models.ItemRecord{ItemID: "FOUND-PHONE-2", Category: "phone", ItemType: "Phone", Description: "cracked screen"})

	results, err := idx.Search(ctx, "phone", 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 || results[0].ID != "FOUND-PHONE-2" {
		t.Errorf("category match should rank first: %+v", results)
	}
}

func TestBleveIndex_Delete(t *testing.T) {
	idx := newTestIndex(t)
	seed(t, idx)
	ctx := context.Background()
	if err := idx.Delete(ctx, "FOUND-KEYS-3"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	results, err := idx.Search(ctx, "toyota", 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("expected 0 results after delete, got %d", len(results))
	}
	n, _ := idx.DocCount()
	if n != 2 {
		t.Errorf("DocCount = %d, want 2", n)
	}
}

func TestNewBleveIndex_PersistsOnDisk(t *testing.T) {
	indexPath := filepath.Join(t.TempDir(), "sub", "bleve")
	idx, err := NewBleveIndex(indexPath)
	if err != nil {
		t.Fatalf("NewBleveIndex: %v", err)
	}
	ctx := context.Background()
	if err := idx.Index(ctx, &models.ItemRecord{ItemID: "LOST-1", Description: "uniqueword"}); err != nil {
		t.Fatal(err)
	}
	if err := idx.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(indexPath); err != nil {
		t.Errorf("index path should exist: %v", err)
	}

	reopened, err := NewBleveIndex(indexPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	results, err := reopened.Search(ctx, "uniqueword", 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Errorf("got %d results after reopen", len(results))
	}
}

type listStore struct {
	storage.RecordStore
	records []*models.ItemRecord
	err     error
}

func (s *listStore) GetAll(ctx context.Context) ([]*models.ItemRecord, error) {
	return s.records, s.err
}

func TestRebuild(t *testing.T) {
	idx := newTestIndex(t)
	store := &listStore{records: []*models.ItemRecord{
		{ItemID: "LOST-1", Description: "blue umbrella"},
		{ItemID: "FOUND-2", Description: "umbrella with wooden handle"},
	}}
	n, err := Rebuild(context.Background(), idx, store, nil)
	if err != nil || n != 2 {
		t.Fatalf("Rebuild = %d, %v", n, err)
	}
	results, _ := idx.Search(context.Background(), "umbrella", 10, nil)
	if len(results) != 2 {
		t.Errorf("got %d results", len(results))
	}

	if _, err := Rebuild(context.Background(), idx, &listStore{err: errors.New("down")}, nil); err == nil {
		t.Error("expected store error")
	}
}
