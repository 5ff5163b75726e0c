// Package e2e provides end-to-end tests with a synthetic lost and found corpus.
package e2e

import (
	"fmt"
	"strings"

	"github.com/hyperjump/lostfound/internal/models"
	"github.com/hyperjump/lostfound/pkg/utils"
)

// Dimensions is the vector dimension of the corpus. Each pair owns one axis.
const Dimensions = 64

// E2EItem is one report in the corpus.
type E2EItem struct {
	ID          string
	ReportType  models.ReportType
	Category    string
	Location    string
	Description string
	Embedding   []float32
}

// QueryTestCase is a lost report and the found items it must be matched with, best first.
type QueryTestCase struct {
	Lost        E2EItem
	ExpectedIDs []string
	// ExpectedConfidence holds the confidence for each of ExpectedIDs.
	ExpectedConfidence []models.Confidence
	Description        string
}

// Corpus holds found items, lost queries, and the expected matches.
type Corpus struct {
	Found        []E2EItem
	TestCases    []QueryTestCase
	TotalItems   int
	TotalQueries int
}

var topics = []struct {
	category    string
	location    string
	description string
}{
	{"wallet", "Library", "brown leather wallet with student card"},
	{"umbrella", "Gym", "black umbrella with wooden handle"},
	{"phone", "Bus stop", "cracked phone in a blue case"},
	{"keys", "Cafeteria", "bunch of keys on a red lanyard"},
	{"bag", "Train station", "grey backpack with laptop sleeve"},
	{"glasses", "Lecture hall", "round reading glasses in a case"},
	{"watch", "Swimming pool", "silver watch with metal strap"},
	{"bottle", "Park", "green steel water bottle"},
}

// BuildCorpus returns n lost/found pairs (n <= Dimensions/2). The found item of pair i
// sits close to the lost query (High confidence); every even pair also gets a
// Medium-confidence distractor.
func BuildCorpus(n int) *Corpus {
	if n > Dimensions/2 {
		n = Dimensions / 2
	}
	c := &Corpus{}
	for i := 0; i < n; i++ {
		topic := topics[i%len(topics)]
		axis := i
		spare := Dimensions/2 + i

		found := E2EItem{
			ID:          fmt.Sprintf("FOUND-%s-P%02d", strings.ToUpper(topic.category), i),
			ReportType:  models.ReportFound,
			Category:    topic.category,
			Location:    topic.location,
			Description: topic.description,
			Embedding:   unit(map[int]float32{axis: 1, (axis + 1) % (Dimensions / 2): 0.3}),
		}
		c.Found = append(c.Found, found)
		tc := QueryTestCase{
			Lost: E2EItem{
				ID:          fmt.Sprintf("LOST-%s-P%02d", strings.ToUpper(topic.category), i),
				ReportType:  models.ReportLost,
				Category:    topic.category,
				Location:    topic.location,
				Description: "lost " + topic.description,
				Embedding:   unit(map[int]float32{axis: 1}),
			},
			ExpectedIDs:        []string{found.ID},
			ExpectedConfidence: []models.Confidence{models.ConfidenceHigh},
			Description:        fmt.Sprintf("lost %s pair %d", topic.category, i),
		}
		if i%2 == 0 {
			distractor := E2EItem{
				ID:          fmt.Sprintf("FOUND-%s-D%02d", strings.ToUpper(topic.category), i),
				ReportType:  models.ReportFound,
				Category:    topic.category,
				Location:    "Lost property office",
				Description: "similar " + topic.category,
				Embedding:   unit(map[int]float32{axis: 0.6, spare: 0.8}),
			}
			c.Found = append(c.Found, distractor)
			tc.ExpectedIDs = append(tc.ExpectedIDs, distractor.ID)
			tc.ExpectedConfidence = append(tc.ExpectedConfidence, models.ConfidenceMedium)
		}
		c.TestCases = append(c.TestCases, tc)
	}
	c.TotalItems = len(c.Found) + len(c.TestCases)
	c.TotalQueries = len(c.TestCases)
	return c
}

// unit returns an L2-normalized vector with the given components set.
func unit(components map[int]float32) []float32 {
	v := make([]float32, Dimensions)
	for i, x := range components {
		v[i] = x
	}
	utils.NormalizeL2(v)
	return v
}

// Input converts a corpus item to a report input.
func (it E2EItem) Input() *models.ItemInput {
	return &models.ItemInput{
		ItemID:      it.ID,
		ReportType:  it.ReportType,
		Category:    it.Category,
		Location:    it.Location,
		Description: it.Description,
		Embedding:   append([]float32(nil), it.Embedding...),
	}
}
