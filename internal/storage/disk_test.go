package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDiskUsageBytes(t *testing.T) {
	dir := t.TempDir()
	write := func(p string, n int) string {
		t.Helper()
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, make([]byte, n), 0644); err != nil {
			t.Fatal(err)
		}
		return p
	}
	items := write(filepath.Join(dir, "items.json"), 100)
	index := write(filepath.Join(dir, "faiss_index.index"), 40)
	idMap := write(filepath.Join(dir, "id_map.json"), 10)
	bleveDir := filepath.Join(dir, "keyword")
	write(filepath.Join(bleveDir, "store", "root.bolt"), 7)
	write(filepath.Join(bleveDir, "index_meta.json"), 3)

	tests := []struct {
		name  string
		paths []string
		want  int64
	}{
		{"records only", []string{items}, 100},
		{"records index and id map", []string{items, index, idMap}, 150},
		{"keyword index directory", []string{bleveDir}, 10},
		{"everything", []string{items, index, idMap, bleveDir}, 160},
		{"index not written yet", []string{items, filepath.Join(dir, "missing.index")}, 100},
		{"empty paths skipped", []string{"", idMap, ""}, 10},
		{"nothing", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DiskUsageBytes(tt.paths...)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("DiskUsageBytes(%v) = %d, want %d", tt.paths, got, tt.want)
			}
		})
	}
}
