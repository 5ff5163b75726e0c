package e2e

import (
	"testing"

	"github.com/hyperjump/lostfound/internal/itemid"
	"github.com/hyperjump/lostfound/internal/models"
	"github.com/hyperjump/lostfound/internal/vector"
)

func TestBuildCorpus_Counts(t *testing.T) {
	c := BuildCorpus(20)
	if c.TotalQueries != 20 {
		t.Errorf("expected 20 queries, got %d", c.TotalQueries)
	}
	if len(c.Found) != 30 {
		t.Errorf("expected 30 found items (20 pairs + 10 distractors), got %d", len(c.Found))
	}
	if c.TotalItems != 50 {
		t.Errorf("expected 50 items, got %d", c.TotalItems)
	}
}

func TestBuildCorpus_CapsPairsAtHalfDimensions(t *testing.T) {
	if got := BuildCorpus(1000).TotalQueries; got != Dimensions/2 {
		t.Errorf("pairs = %d, want %d", got, Dimensions/2)
	}
}

func TestBuildCorpus_IDsCarryReportType(t *testing.T) {
	c := BuildCorpus(10)
	seen := make(map[string]bool)
	check := func(it E2EItem) {
		if got := itemid.ReportTypeOf(it.ID); got != it.ReportType {
			t.Errorf("%s: prefix says %q, item is %q", it.ID, got, it.ReportType)
		}
		if seen[it.ID] {
			t.Errorf("duplicate id %s", it.ID)
		}
		seen[it.ID] = true
		if len(it.Embedding) != Dimensions {
			t.Errorf("%s: %d dims", it.ID, len(it.Embedding))
		}
	}
	for _, it := range c.Found {
		check(it)
	}
	for _, tc := range c.TestCases {
		check(tc.Lost)
		if tc.Lost.ReportType != models.ReportLost {
			t.Errorf("%s should be a lost report", tc.Lost.ID)
		}
	}
}

func TestBuildCorpus_ExpectedScoresSeparate(t *testing.T) {
	c := BuildCorpus(10)
	byID := make(map[string]E2EItem)
	for _, it := range c.Found {
		byID[it.ID] = it
	}
	for _, tc := range c.TestCases {
		pair := vector.InnerProduct(tc.Lost.Embedding, byID[tc.ExpectedIDs[0]].Embedding)
		if pair < 0.75 {
			t.Errorf("%s: pair score %f should be High", tc.Description, pair)
		}
		for _, it := range c.Found {
			if containsID(tc.ExpectedIDs, it.ID) {
				continue
			}
			if s := vector.InnerProduct(tc.Lost.Embedding, it.Embedding); s >= 0.5 {
				t.Errorf("%s: unrelated %s scores %f", tc.Description, it.ID, s)
			}
		}
	}
}

func containsID(ids []string, id string) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
