// Package keyword provides full-text search over item report text for the discover view.
package keyword

import (
	"context"

	"github.com/hyperjump/lostfound/internal/models"
)

// SearchOptions optional parameters for keyword search. Nil means use defaults.
type SearchOptions struct {
	// ReportType restricts hits to one report type when set.
	ReportType models.ReportType
	// FuzzyEnabled enables fuzzy matching for typo tolerance ("walet" finds "wallet").
	FuzzyEnabled bool
	// Fuzziness is the maximum Levenshtein edit distance for fuzzy matching (1 or 2).
	// Default is 1 when FuzzyEnabled is true.
	Fuzziness int
}

// KeywordIndex defines keyword search operations over item records.
type KeywordIndex interface {
	Index(ctx context.Context, rec *models.ItemRecord) error
	Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*KeywordResult, error)
	Delete(ctx context.Context, itemID string) error
	// DocCount returns the number of indexed records.
	DocCount() (uint64, error)
	Close() error
}

// KeywordResult is a single keyword search hit.
type KeywordResult struct {
	ID    string
	Score float64
}
