// Package cli provides output helpers for the lostfound command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/lostfound/internal/models"
	"github.com/hyperjump/lostfound/internal/reconcile"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat accepts "text", "json" or "" (text).
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (use text or json)", s)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteMatches writes a match response to w in the given format.
func WriteMatches(w io.Writer, response *models.MatchResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	fmt.Fprintf(w, "\nFound %d matches in %dms\n\n", response.Total, response.QueryTime)
	for i, m := range response.Matches {
		writeOneMatch(w, i+1, m)
	}
	return nil
}

func writeOneMatch(w io.Writer, rank int, m models.MatchResult) {
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "#%d %s | Score: %.3f | Confidence: %s\n", rank, m.ItemID, m.Score, m.Confidence)
	if m.ItemType != "" {
		fmt.Fprintf(w, "Type: %s\n", m.ItemType)
	}
	if m.Location != "" {
		fmt.Fprintf(w, "Location: %s\n", m.Location)
	}
	if m.ImageURL != "" {
		fmt.Fprintf(w, "Image: %s\n", m.ImageURL)
	}
	if m.Description != "" {
		fmt.Fprintf(w, "\n%s\n", Truncate(m.Description, 200))
	}
	fmt.Fprintln(w)
}

// WriteReport writes the result of filing a report.
func WriteReport(w io.Writer, resp *models.ReportResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, resp)
	}
	fmt.Fprintf(w, "%s\nItem ID: %s\n", resp.Message, resp.ItemID)
	if resp.Matches == nil {
		return nil
	}
	return WriteMatches(w, &models.MatchResponse{Matches: resp.Matches, Total: len(resp.Matches)}, format)
}

// WriteItems writes records for the discover listing. Embeddings are never printed in
// text mode.
func WriteItems(w io.Writer, items []*models.ItemRecord, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, items)
	}
	fmt.Fprintf(w, "\n%d items\n\n", len(items))
	for _, rec := range items {
		fmt.Fprintf(w, "%-28s %-6s %-12s %-20s %s\n",
			rec.ItemID, rec.ReportType, Truncate(rec.Category, 12), Truncate(rec.Location, 20),
			TruncateWords(rec.Description, 10))
	}
	return nil
}

// WriteReconcile writes a reconcile report.
func WriteReconcile(w io.Writer, report *reconcile.Report, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, report)
	}
	fmt.Fprintf(w, "Records: %d (%d with embedding, %d already indexed)\n",
		report.Records, report.WithEmbedding, report.AlreadyIndexed)
	fmt.Fprintf(w, "Added: %d  Skipped: %d  Rebuilt: %v\n", report.Added, report.Skipped, report.Rebuilt)
	fmt.Fprintf(w, "Index size: %d (%s)\n", report.IndexSize, report.Duration)
	return nil
}

// Truncate truncates s to maxLen bytes and appends "..." if truncated.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
