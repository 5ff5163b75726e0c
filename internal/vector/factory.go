package vector

import "fmt"

// IndexType represents the type of flat index backend.
type IndexType string

const (
	// IndexTypeMemory uses in-memory brute-force search.
	IndexTypeMemory IndexType = "memory"
	// IndexTypeFAISS uses FAISS IndexFlatIP. Requires the FAISS C library and -tags=faiss.
	IndexTypeFAISS IndexType = "faiss"
)

// NewFlatIndex creates an empty flat index of the specified type.
// Supported types: "memory" (default), "faiss".
func NewFlatIndex(indexType string, dimensions int) (FlatIndex, error) {
	switch IndexType(indexType) {
	case IndexTypeMemory, "":
		return NewMemoryIndex(dimensions)
	case IndexTypeFAISS:
		return NewFAISSIndex(dimensions)
	default:
		return nil, fmt.Errorf("unknown index type: %s (supported: memory, faiss)", indexType)
	}
}

// ReadFlatIndex loads a flat index of the specified type from path.
func ReadFlatIndex(indexType string, path string) (FlatIndex, error) {
	switch IndexType(indexType) {
	case IndexTypeMemory, "":
		return ReadMemoryIndex(path)
	case IndexTypeFAISS:
		return ReadFAISSIndex(path)
	default:
		return nil, fmt.Errorf("unknown index type: %s (supported: memory, faiss)", indexType)
	}
}

// IsFAISSAvailable returns true if FAISS support is compiled in.
// This is determined by the build tag -tags=faiss.
func IsFAISSAvailable() bool {
	idx, err := NewFAISSIndex(1)
	if err != nil {
		return false
	}
	_ = idx.Close()
	return true
}
