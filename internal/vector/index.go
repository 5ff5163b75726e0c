// Package vector provides the nearest-neighbor index over item embeddings: flat
// inner-product backends and the persistent Index that pairs them with the slot→ID map.
package vector

import "errors"

// ErrDimensionMismatch is returned when a vector does not have the index dimension.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// FlatIndex is an exact inner-product index addressed by slot. Slots are assigned
// in insertion order starting at 0 and never change.
type FlatIndex interface {
	// Add appends vectors; the first gets slot Ntotal().
	Add(vectors [][]float32) error
	// Search returns up to k hits ordered by descending score.
	Search(query []float32, k int) ([]Hit, error)
	Ntotal() int
	Dimensions() int
	// WriteFile serializes the index to path.
	WriteFile(path string) error
	Close() error
	Type() string
}

// Hit is a raw search hit from a FlatIndex. Slot may be -1 for padding.
type Hit struct {
	Slot  int64
	Score float64
}

// VectorResult is a single search hit resolved to an item identifier.
type VectorResult struct {
	ID    string
	Slot  int64
	Score float64 // raw inner product
}
