package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/lostfound/internal/models"
	"github.com/hyperjump/lostfound/internal/reconcile"
)

func sampleMatches() *models.MatchResponse {
	return &models.MatchResponse{
		Matches: []models.MatchResult{{
			ItemID:      "FOUND-100",
			ItemType:    "Umbrella",
			Description: "black umbrella with wooden handle",
			Location:    "Gym",
			ReportType:  models.ReportFound,
			Score:       0.82,
			Confidence:  models.ConfidenceHigh,
			Reason:      "Image and description are semantically similar",
		}},
		Total:     1,
		QueryTime: 3,
	}
}

func TestWriteMatches_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteMatches(&buf, sampleMatches(), OutputJSON); err != nil {
		t.Fatalf("WriteMatches(json): %v", err)
	}
	var decoded models.MatchResponse
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if decoded.Total != 1 || decoded.Matches[0].ItemID != "FOUND-100" {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestWriteMatches_Text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteMatches(&buf, sampleMatches(), OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Found 1 matches", "FOUND-100", "Score: 0.820", "Confidence: High", "Location: Gym"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteReport(t *testing.T) {
	var buf bytes.Buffer
	resp := &models.ReportResponse{Status: "success", Message: "Found item reported successfully", ItemID: "FOUND-1"}
	if err := WriteReport(&buf, resp, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Item ID: FOUND-1") || strings.Contains(buf.String(), "matches") {
		t.Errorf("found report output:\n%s", buf.String())
	}

	buf.Reset()
	resp = &models.ReportResponse{Message: "Lost item reported successfully", ItemID: "LOST-1", Matches: []models.MatchResult{}}
	if err := WriteReport(&buf, resp, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Found 0 matches") {
		t.Errorf("lost report output:\n%s", buf.String())
	}
}

func TestWriteItems(t *testing.T) {
	items := []*models.ItemRecord{
		{ItemID: "LOST-WALLET-1", ReportType: models.ReportLost, Category: "wallet", Location: "Library",
			Description: "brown wallet", Embedding: []float32{0.123456}},
	}
	var buf bytes.Buffer
	if err := WriteItems(&buf, items, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "1 items") || !strings.Contains(out, "LOST-WALLET-1") {
		t.Errorf("output:\n%s", out)
	}
	if strings.Contains(out, "0.123456") {
		t.Error("text output should not print embeddings")
	}
}

func TestWriteReconcile(t *testing.T) {
	report := &reconcile.Report{Records: 3, WithEmbedding: 2, Added: 2, Rebuilt: true, IndexSize: 2, Duration: time.Millisecond}
	var buf bytes.Buffer
	if err := WriteReconcile(&buf, report, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Added: 2") || !strings.Contains(buf.String(), "Rebuilt: true") {
		t.Errorf("output:\n%s", buf.String())
	}
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", OutputText, false},
		{"text", OutputText, false},
		{"JSON", OutputJSON, false},
		{"yaml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseOutputFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseOutputFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		s      string
		maxLen int
		want   string
	}{
		{"hello", 10, "hello"},
		{"hello world", 5, "hello..."},
		{"", 5, ""},
		{"abc", 0, "abc"},
	}
	for _, tt := range tests {
		if got := Truncate(tt.s, tt.maxLen); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.s, tt.maxLen, got, tt.want)
		}
	}
}

func TestTruncateWords(t *testing.T) {
	if got := TruncateWords("a b c d", 2); got != "a b..." {
		t.Errorf("got %q", got)
	}
	if got := TruncateWords("a b", 5); got != "a b" {
		t.Errorf("got %q", got)
	}
}
