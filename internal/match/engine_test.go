package match

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/hyperjump/lostfound/internal/models"
	"github.com/hyperjump/lostfound/internal/storage"
	"github.com/hyperjump/lostfound/internal/vector"
)

// fakeSearcher returns fixed hits regardless of the query.
type fakeSearcher struct {
	hits []*vector.VectorResult
	err  error
}

func (f *fakeSearcher) Search(ctx context.Context, query []float32, topK int) ([]*vector.VectorResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	if topK < len(f.hits) {
		return f.hits[:topK], nil
	}
	return f.hits, nil
}

type fakeStore struct {
	records []*models.ItemRecord
	err     error
	updated map[string][]float32
}

func (f *fakeStore) GetAll(ctx context.Context) ([]*models.ItemRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

func (f *fakeStore) Get(ctx context.Context, id string) (*models.ItemRecord, error) {
	for _, r := range f.records {
		if r.ItemID == id {
			return r, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (f *fakeStore) Insert(ctx context.Context, rec *models.ItemRecord) error {
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeStore) UpdateEmbedding(ctx context.Context, id string, emb []float32) error {
	if f.err != nil {
		return f.err
	}
	if _, err := f.Get(ctx, id); err != nil {
		return err
	}
	if f.updated == nil {
		f.updated = make(map[string][]float32)
	}
	f.updated[id] = emb
	return nil
}

func (f *fakeStore) List(ctx context.Context, filter models.ItemFilter) ([]*models.ItemRecord, error) {
	return f.records, nil
}

func (f *fakeStore) Count(ctx context.Context) (int64, error) { return int64(len(f.records)), nil }
func (f *fakeStore) Close() error                             { return nil }

func hit(id string, score float64) *vector.VectorResult {
	return &vector.VectorResult{ID: id, Score: score}
}

func rec(id string, rt models.ReportType) *models.ItemRecord {
	return &models.ItemRecord{ItemID: id, ReportType: rt, Category: "wallet", Description: "desc " + id, Location: "Library"}
}

func ids(matches []models.MatchResult) []string {
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.ItemID
	}
	return out
}

func TestFindMatches_OppositionFilter(t *testing.T) {
	searcher := &fakeSearcher{hits: []*vector.VectorResult{hit("LOST-A", 0.9), hit("FOUND-B", 0.8)}}
	store := &fakeStore{records: []*models.ItemRecord{rec("LOST-A", models.ReportLost), rec("FOUND-B", models.ReportFound)}}
	e := NewEngine(searcher, store)

	tests := []struct {
		reportType models.ReportType
		want       []string
	}{
		{models.ReportLost, []string{"FOUND-B"}},
		{models.ReportFound, []string{"LOST-A"}},
		{"", []string{"LOST-A", "FOUND-B"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.reportType), func(t *testing.T) {
			got := ids(e.FindMatches(context.Background(), []float32{1}, 5, tt.reportType))
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestFindMatches_Threshold(t *testing.T) {
	searcher := &fakeSearcher{hits: []*vector.VectorResult{hit("FOUND-1", 0.5), hit("FOUND-2", 0.49)}}
	store := &fakeStore{records: []*models.ItemRecord{rec("FOUND-1", models.ReportFound), rec("FOUND-2", models.ReportFound)}}
	got := NewEngine(searcher, store, WithThreshold(0.5)).FindMatches(context.Background(), []float32{1}, 5, "")
	if len(got) != 1 || got[0].ItemID != "FOUND-1" {
		t.Errorf("got %v, want [FOUND-1]", ids(got))
	}
}

func TestConfidenceLabel(t *testing.T) {
	tests := []struct {
		score float64
		want  models.Confidence
	}{
		{1.0, models.ConfidenceHigh},
		{0.75, models.ConfidenceHigh},
		{0.749, models.ConfidenceMedium},
		{0.5, models.ConfidenceMedium},
		{0.499, models.ConfidenceLow},
		{-0.2, models.ConfidenceLow},
	}
	for _, tt := range tests {
		if got := ConfidenceLabel(tt.score); got != tt.want {
			t.Errorf("ConfidenceLabel(%v) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestFindMatches_Scenario(t *testing.T) {
	dir := t.TempDir()
	ix, err := vector.Load(vector.Options{
		Dimensions: 2,
		IndexPath:  filepath.Join(dir, "faiss_index.index"),
		IDMapPath:  filepath.Join(dir, "id_map.json"),
	})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := ix.Add(ctx, []float32{0.82, 0}, "FOUND-100"); err != nil {
		t.Fatal(err)
	}
	if err := ix.Add(ctx, []float32{0.60, 0}, "LOST-200"); err != nil {
		t.Fatal(err)
	}
	store := &fakeStore{records: []*models.ItemRecord{
		{ItemID: "FOUND-100", ReportType: models.ReportFound, ItemType: "Umbrella", Description: "black umbrella", Location: "Gym", ImageURL: "u.jpg"},
		{ItemID: "LOST-200", ReportType: models.ReportLost, Category: "umbrella"},
	}}

	got := NewEngine(ix, store).FindMatches(ctx, []float32{1, 0}, 5, models.ReportLost)
	if len(got) != 1 {
		t.Fatalf("got %d matches: %v", len(got), ids(got))
	}
	m := got[0]
	if m.ItemID != "FOUND-100" || m.Confidence != models.ConfidenceHigh || m.Score != 0.82 {
		t.Errorf("match = %+v", m)
	}
	if m.ItemType != "Umbrella" || m.Location != "Gym" || m.ImageURL != "u.jpg" || m.ReportType != models.ReportFound {
		t.Errorf("record fields not joined: %+v", m)
	}
	if m.Reason != Reason {
		t.Errorf("reason = %q", m.Reason)
	}
}

func TestFindMatches_DropsHitsWithoutRecord(t *testing.T) {
	searcher := &fakeSearcher{hits: []*vector.VectorResult{hit("FOUND-ghost", 0.95), hit("FOUND-1", 0.7)}}
	store := &fakeStore{records: []*models.ItemRecord{rec("FOUND-1", models.ReportFound)}}
	got := NewEngine(searcher, store).FindMatches(context.Background(), []float32{1}, 5, models.ReportLost)
	if len(got) != 1 || got[0].ItemID != "FOUND-1" || got[0].Confidence != models.ConfidenceMedium {
		t.Errorf("got %+v", got)
	}
	if got[0].ItemType != "wallet" {
		t.Errorf("ItemType should fall back to category, got %q", got[0].ItemType)
	}
}

func TestFindMatches_UnknownPrefixFiltered(t *testing.T) {
	searcher := &fakeSearcher{hits: []*vector.VectorResult{hit("found-lower", 0.9), hit("ITEM-7", 0.9)}}
	store := &fakeStore{records: []*models.ItemRecord{rec("found-lower", models.ReportFound), rec("ITEM-7", models.ReportFound)}}
	e := NewEngine(searcher, store)
	if got := e.FindMatches(context.Background(), []float32{1}, 5, models.ReportLost); len(got) != 0 {
		t.Errorf("prefix match must be case-sensitive: %v", ids(got))
	}
	if got := e.FindMatches(context.Background(), []float32{1}, 5, ""); len(got) != 2 {
		t.Errorf("no filter should keep both: %v", ids(got))
	}
}

func TestFindMatches_UnknownReportTypeYieldsNothing(t *testing.T) {
	searcher := &fakeSearcher{hits: []*vector.VectorResult{hit("ITEM-7", 0.9), hit("FOUND-1", 0.8)}}
	store := &fakeStore{records: []*models.ItemRecord{rec("ITEM-7", models.ReportFound), rec("FOUND-1", models.ReportFound)}}
	got := NewEngine(searcher, store).FindMatches(context.Background(), []float32{1}, 5, "stolen")
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", ids(got))
	}
}

func TestFindMatches_FailuresDegradeToEmpty(t *testing.T) {
	tests := []struct {
		name     string
		searcher *fakeSearcher
		store    *fakeStore
	}{
		{"store unavailable", &fakeSearcher{hits: []*vector.VectorResult{hit("FOUND-1", 0.9)}}, &fakeStore{err: errors.New("down")}},
		{"search error", &fakeSearcher{err: vector.ErrDimensionMismatch}, &fakeStore{}},
		{"no hits", &fakeSearcher{}, &fakeStore{err: errors.New("not consulted")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewEngine(tt.searcher, tt.store).FindMatches(context.Background(), []float32{1}, 5, models.ReportLost)
			if got == nil || len(got) != 0 {
				t.Errorf("expected empty non-nil slice, got %v", got)
			}
		})
	}
}

func TestFindMatches_RoundsScore(t *testing.T) {
	searcher := &fakeSearcher{hits: []*vector.VectorResult{hit("FOUND-1", 0.81949)}}
	store := &fakeStore{records: []*models.ItemRecord{rec("FOUND-1", models.ReportFound)}}
	got := NewEngine(searcher, store).FindMatches(context.Background(), []float32{1}, 5, "")
	if len(got) != 1 || got[0].Score != 0.819 {
		t.Errorf("got %+v", got)
	}
}

func TestStoreEmbedding(t *testing.T) {
	store := &fakeStore{records: []*models.ItemRecord{rec("LOST-1", models.ReportLost)}}
	searcher := &fakeSearcher{}
	e := NewEngine(searcher, store)
	if !e.StoreEmbedding(context.Background(), "LOST-1", []float32{0.1, 0.2}) {
		t.Fatal("expected success")
	}
	if len(store.updated["LOST-1"]) != 2 {
		t.Errorf("embedding not stored: %v", store.updated)
	}
	if e.StoreEmbedding(context.Background(), "LOST-404", []float32{1}) {
		t.Error("expected false for missing item")
	}
	store.err = errors.New("down")
	if e.StoreEmbedding(context.Background(), "LOST-1", []float32{1}) {
		t.Error("expected false when store fails")
	}
}
