// Package models defines core data structures for item reports and matches.
package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidInput marks a report or query rejected by validation.
var ErrInvalidInput = errors.New("invalid input")

// ReportType is the kind of report an item was filed under.
type ReportType string

const (
	ReportLost  ReportType = "lost"
	ReportFound ReportType = "found"
)

// Valid reports whether r is one of the known report types.
func (r ReportType) Valid() bool {
	return r == ReportLost || r == ReportFound
}

// Opposite returns the report type a match must have: lost items match found ones and vice versa.
// Unknown types return "".
func (r ReportType) Opposite() ReportType {
	switch r {
	case ReportLost:
		return ReportFound
	case ReportFound:
		return ReportLost
	default:
		return ""
	}
}

// ParseReportType parses s into a ReportType. The empty string is accepted and means "any".
func ParseReportType(s string) (ReportType, error) {
	r := ReportType(s)
	if s == "" || r.Valid() {
		return r, nil
	}
	return "", fmt.Errorf("%w: report_type %q (use 'lost' or 'found')", ErrInvalidInput, s)
}

// ItemRecord is a single lost or found report as kept by the record store.
// Embedding is optional; records without one are never indexed.
type ItemRecord struct {
	ItemID      string     `json:"item_id"`
	ReportType  ReportType `json:"reportType"`
	Category    string     `json:"category"`
	ItemType    string     `json:"itemType,omitempty"`
	Location    string     `json:"location"`
	Description string     `json:"description"`
	ImageURL    string     `json:"imageUrl"`
	Embedding   []float32  `json:"embedding,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// HasEmbedding reports whether the record carries a non-empty embedding.
func (r *ItemRecord) HasEmbedding() bool {
	return len(r.Embedding) > 0
}

// ItemInput is the input for reporting a new item. The embedding is produced
// upstream (image/text encoder and fusion) and must already have the index dimension.
type ItemInput struct {
	ItemID      string     `json:"item_id,omitempty"`
	ReportType  ReportType `json:"report_type"`
	Category    string     `json:"category,omitempty"`
	ItemType    string     `json:"item_type,omitempty"`
	Location    string     `json:"location"`
	Description string     `json:"description"`
	ImageURL    string     `json:"image_url"`
	Embedding   []float32  `json:"embedding"`
}

// Validate checks required fields and fills defaults.
func (in *ItemInput) Validate() error {
	if !in.ReportType.Valid() {
		return fmt.Errorf("%w: report_type %q (use 'lost' or 'found')", ErrInvalidInput, in.ReportType)
	}
	if len(in.Embedding) == 0 {
		return fmt.Errorf("%w: embedding is required", ErrInvalidInput)
	}
	if in.Category == "" {
		in.Category = "general"
	}
	return nil
}

// ItemFilter selects records for the discover listing. Zero values mean "no filter".
type ItemFilter struct {
	ReportType ReportType `json:"report_type,omitempty"`
	Category   string     `json:"category,omitempty"`
	Location   string     `json:"location,omitempty"`
	// Oldest sorts by creation time ascending; the default is newest first.
	Oldest bool `json:"oldest,omitempty"`
	Limit  int  `json:"limit,omitempty"`
	Offset int  `json:"offset,omitempty"`
}
