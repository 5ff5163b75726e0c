package models

import "testing"

func TestReportType_Opposite(t *testing.T) {
	tests := []struct {
		in   ReportType
		want ReportType
	}{
		{ReportLost, ReportFound},
		{ReportFound, ReportLost},
		{"", ""},
		{"stolen", ""},
	}
	for _, tt := range tests {
		if got := tt.in.Opposite(); got != tt.want {
			t.Errorf("%q.Opposite() = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseReportType(t *testing.T) {
	tests := []struct {
		in      string
		want    ReportType
		wantErr bool
	}{
		{"lost", ReportLost, false},
		{"found", ReportFound, false},
		{"", "", false},
		{"LOST", "", true},
		{"other", "", true},
	}
	for _, tt := range tests {
		got, err := ParseReportType(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseReportType(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseReportType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestItemInput_Validate(t *testing.T) {
	tests := []struct {
		name    string
		input   *ItemInput
		wantErr bool
	}{
		{"valid lost", &ItemInput{ReportType: ReportLost, Embedding: []float32{1}}, false},
		{"valid found", &ItemInput{ReportType: ReportFound, Embedding: []float32{1}}, false},
		{"bad report type", &ItemInput{ReportType: "misplaced", Embedding: []float32{1}}, true},
		{"missing embedding", &ItemInput{ReportType: ReportLost}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.input.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && tt.input.Category != "general" {
				t.Errorf("category should default to general, got %q", tt.input.Category)
			}
		})
	}
}

func TestMatchQuery_Validate(t *testing.T) {
	tests := []struct {
		name     string
		query    *MatchQuery
		wantErr  bool
		wantTopK int
	}{
		{"empty embedding", &MatchQuery{}, true, 0},
		{"sets default top_k", &MatchQuery{Embedding: []float32{1}}, false, 5},
		{"caps top_k", &MatchQuery{Embedding: []float32{1}, TopK: 500}, false, 100},
		{"keeps top_k", &MatchQuery{Embedding: []float32{1}, TopK: 7}, false, 7},
		{"bad report type", &MatchQuery{Embedding: []float32{1}, ReportType: "x"}, true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.query.Validate(5, 100)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && tt.query.TopK != tt.wantTopK {
				t.Errorf("TopK = %d, want %d", tt.query.TopK, tt.wantTopK)
			}
		})
	}
}
