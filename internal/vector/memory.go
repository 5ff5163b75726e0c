package vector

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
)

// memoryMagic marks files written by MemoryIndex ("LFMI").
const memoryMagic uint32 = 0x494d464c

// MemoryIndex is an in-memory flat index using brute-force inner product search.
// It is always available and is the default when FAISS is not compiled in.
type MemoryIndex struct {
	dimensions int
	vectors    [][]float32
	mu         sync.RWMutex
}

// NewMemoryIndex creates an empty in-memory index with the given dimension.
func NewMemoryIndex(dimensions int) (*MemoryIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &MemoryIndex{
		dimensions: dimensions,
		vectors:    make([][]float32, 0),
	}, nil
}

// Type returns the index type identifier.
func (m *MemoryIndex) Type() string {
	return string(IndexTypeMemory)
}

// Add appends vectors. Either all vectors are added or none.
func (m *MemoryIndex) Add(vectors [][]float32) error {
	for _, vec := range vectors {
		if len(vec) != m.dimensions {
			return fmt.Errorf("%w: got %d, expected %d", ErrDimensionMismatch, len(vec), m.dimensions)
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, vec := range vectors {
		cp := make([]float32, m.dimensions)
		copy(cp, vec)
		m.vectors = append(m.vectors, cp)
	}
	return nil
}

// Search returns the top-k slots by inner product. Equal scores keep slot order.
func (m *MemoryIndex) Search(query []float32, k int) ([]Hit, error) {
	if len(query) != m.dimensions {
		return nil, fmt.Errorf("query %w: got %d, expected %d", ErrDimensionMismatch, len(query), m.dimensions)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if k <= 0 || len(m.vectors) == 0 {
		return nil, nil
	}
	hits := make([]Hit, len(m.vectors))
	for i, vec := range m.vectors {
		hits[i] = Hit{Slot: int64(i), Score: InnerProduct(query, vec)}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

// Ntotal returns the number of stored vectors.
func (m *MemoryIndex) Ntotal() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.vectors)
}

// Dimensions returns the vector dimension.
func (m *MemoryIndex) Dimensions() int {
	return m.dimensions
}

// WriteFile writes the index to path. Format (little endian): magic (4), dimension (4),
// count (4), then count*dimension float32 values in slot order.
func (m *MemoryIndex) WriteFile(path string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	w := bufio.NewWriter(f)
	header := []uint32{memoryMagic, uint32(m.dimensions), uint32(len(m.vectors))}
	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		_ = f.Close()
		return fmt.Errorf("write header: %w", err)
	}
	for _, vec := range m.vectors {
		if err := binary.Write(w, binary.LittleEndian, vec); err != nil {
			_ = f.Close()
			return fmt.Errorf("write vector: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return fmt.Errorf("flush index file: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("sync index file: %w", err)
	}
	return f.Close()
}

// ReadMemoryIndex loads an index previously written by WriteFile.
func ReadMemoryIndex(path string) (*MemoryIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open index file: %w", err)
	}
	defer f.Close()
	r := bufio.NewReader(f)
	var header [3]uint32
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if header[0] != memoryMagic {
		return nil, fmt.Errorf("%s is not a memory index file", path)
	}
	dim, n := int(header[1]), int(header[2])
	idx, err := NewMemoryIndex(dim)
	if err != nil {
		return nil, err
	}
	idx.vectors = make([][]float32, 0, n)
	for i := 0; i < n; i++ {
		vec := make([]float32, dim)
		if err := binary.Read(r, binary.LittleEndian, vec); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, fmt.Errorf("index file truncated at vector %d of %d", i, n)
			}
			return nil, fmt.Errorf("read vector: %w", err)
		}
		idx.vectors = append(idx.vectors, vec)
	}
	return idx, nil
}

// Close is a no-op for MemoryIndex.
func (m *MemoryIndex) Close() error {
	return nil
}
