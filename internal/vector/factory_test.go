package vector

import "testing"

func TestNewFlatIndex_Memory(t *testing.T) {
	idx, err := NewFlatIndex("memory", 3)
	if err != nil {
		t.Fatalf("NewFlatIndex(memory): %v", err)
	}
	defer idx.Close()

	if err := idx.Add([][]float32{{1, 0, 0}}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if idx.Ntotal() != 1 {
		t.Errorf("Ntotal=%d, want 1", idx.Ntotal())
	}
	if idx.Type() != "memory" {
		t.Errorf("Type=%s", idx.Type())
	}
}

func TestNewFlatIndex_Empty(t *testing.T) {
	// Empty string should default to memory
	idx, err := NewFlatIndex("", 3)
	if err != nil {
		t.Fatalf("NewFlatIndex(''): %v", err)
	}
	defer idx.Close()

	if idx.Ntotal() != 0 {
		t.Errorf("Ntotal=%d, want 0", idx.Ntotal())
	}
}

func TestNewFlatIndex_Unknown(t *testing.T) {
	if _, err := NewFlatIndex("hnsw", 3); err == nil {
		t.Error("expected error for unknown index type")
	}
	if _, err := ReadFlatIndex("hnsw", "/tmp/x"); err == nil {
		t.Error("expected error for unknown index type on read")
	}
}

func TestNewFlatIndex_InvalidDimension(t *testing.T) {
	if _, err := NewFlatIndex("memory", 0); err == nil {
		t.Error("expected error for zero dimension")
	}
}

func TestIsFAISSAvailable(t *testing.T) {
	// The result depends on build tags; this only checks it does not panic.
	t.Logf("FAISS available: %v", IsFAISSAvailable())
}

func TestNewFlatIndex_FAISS(t *testing.T) {
	if !IsFAISSAvailable() {
		t.Skip("FAISS not available (build with -tags=faiss)")
	}

	idx, err := NewFlatIndex("faiss", 3)
	if err != nil {
		t.Fatalf("NewFlatIndex(faiss): %v", err)
	}
	defer idx.Close()

	if err := idx.Add([][]float32{{1, 0, 0}}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if idx.Ntotal() != 1 {
		t.Errorf("Ntotal=%d, want 1", idx.Ntotal())
	}
}
