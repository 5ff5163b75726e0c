package models

import "fmt"

// Confidence is a coarse bucket derived from a similarity score.
type Confidence string

const (
	ConfidenceHigh   Confidence = "High"
	ConfidenceMedium Confidence = "Medium"
	ConfidenceLow    Confidence = "Low"
)

// MatchResult is one candidate returned for a query vector, joined with its record.
type MatchResult struct {
	ItemID      string     `json:"item_id"`
	ItemType    string     `json:"itemType"`
	Description string     `json:"description"`
	Location    string     `json:"location"`
	ReportType  ReportType `json:"reportType"`
	ImageURL    string     `json:"imageUrl"`
	Score       float64    `json:"score"`
	Confidence  Confidence `json:"confidence"`
	Reason      string     `json:"reason"`
}

// MatchQuery is a request for matches against the index.
type MatchQuery struct {
	Embedding  []float32  `json:"embedding"`
	TopK       int        `json:"top_k,omitempty"`
	ReportType ReportType `json:"report_type,omitempty"`
}

// Validate checks the query and normalizes TopK into [1, maxTopK] using defaultTopK when unset.
func (q *MatchQuery) Validate(defaultTopK, maxTopK int) error {
	if len(q.Embedding) == 0 {
		return fmt.Errorf("%w: embedding cannot be empty", ErrInvalidInput)
	}
	if q.ReportType != "" && !q.ReportType.Valid() {
		return fmt.Errorf("%w: report_type %q (use 'lost' or 'found')", ErrInvalidInput, q.ReportType)
	}
	if q.TopK <= 0 {
		q.TopK = defaultTopK
	}
	if maxTopK > 0 && q.TopK > maxTopK {
		q.TopK = maxTopK
	}
	return nil
}

// MatchResponse is the response for a match request.
type MatchResponse struct {
	Matches   []MatchResult `json:"matches"`
	Total     int           `json:"total"`
	QueryTime int64         `json:"query_time_ms"`
}

// ReportResponse is the response for a new item report.
type ReportResponse struct {
	Status  string        `json:"status"`
	Message string        `json:"message"`
	ItemID  string        `json:"item_id"`
	Matches []MatchResult `json:"matches,omitempty"`
}
