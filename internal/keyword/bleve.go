package keyword

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
	"go.uber.org/zap"

	"github.com/hyperjump/lostfound/internal/models"
	"github.com/hyperjump/lostfound/internal/storage"
)

// Text fields searched by a query, with their boosts. Category and item type are
// short and precise, so a hit there counts more than one in a free-text description.
var searchFields = []struct {
	name  string
	boost float64
}{
	{"item_type", 2.0},
	{"category", 2.0},
	{"description", 1.0},
	{"location", 1.0},
}

// itemDoc is the Bleve document for one record.
type itemDoc struct {
	ItemType    string `json:"item_type"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Location    string `json:"location"`
	ReportType  string `json:"report_type"`
}

// BleveIndex implements KeywordIndex using Bleve.
type BleveIndex struct {
	index bleve.Index
}

func newMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// Standard analyzer (lowercase + tokenize, no stemming) keeps brand names and
	// colours intact.
	textFieldMapping.Analyzer = standard.Name
	for _, f := range searchFields {
		docMapping.AddFieldMappingsAt(f.name, textFieldMapping)
	}
	keywordFieldMapping := bleve.NewKeywordFieldMapping()
	docMapping.AddFieldMappingsAt("report_type", keywordFieldMapping)
	im.AddDocumentMapping("item", docMapping)
	im.DefaultType = "item"
	im.DefaultMapping = docMapping
	return im
}

// NewBleveIndex creates or opens a Bleve index at path.
// If you change the index mapping in code, remove the index directory to force a full re-index.
func NewBleveIndex(path string) (*BleveIndex, error) {
	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	index, err := bleve.New(path, newMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// NewMemBleveIndex creates an in-memory Bleve index. It is rebuilt from the record
// store on every start.
func NewMemBleveIndex() (*BleveIndex, error) {
	index, err := bleve.NewMemOnly(newMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// Index indexes a record by item ID.
func (b *BleveIndex) Index(ctx context.Context, rec *models.ItemRecord) error {
	return b.index.Index(rec.ItemID, &itemDoc{
		ItemType:    rec.ItemType,
		Category:    rec.Category,
		Description: rec.Description,
		Location:    rec.Location,
		ReportType:  string(rec.ReportType),
	})
}

// Search runs a boosted disjunction over the text fields and returns up to limit hits,
// best first.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*KeywordResult, error) {
	if strings.TrimSpace(query) == "" || limit <= 0 {
		return []*KeywordResult{}, nil
	}
	fuzziness := 0
	var reportType models.ReportType
	if opts != nil {
		reportType = opts.ReportType
		if opts.FuzzyEnabled {
			fuzziness = 1
			if opts.Fuzziness > 0 {
				fuzziness = opts.Fuzziness
			}
		}
	}

	fieldQueries := make([]blevequery.Query, 0, len(searchFields))
	for _, f := range searchFields {
		fieldQueries = append(fieldQueries, buildFieldQuery(query, f.name, f.boost, fuzziness))
	}
	var q blevequery.Query = bleve.NewDisjunctionQuery(fieldQueries...)
	if reportType != "" {
		tq := bleve.NewTermQuery(string(reportType))
		tq.SetField("report_type")
		q = bleve.NewConjunctionQuery(q, tq)
	}

	search := bleve.NewSearchRequest(q)
	search.Size = limit
	results, err := b.index.Search(search)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	out := make([]*KeywordResult, len(results.Hits))
	for i, hit := range results.Hits {
		out[i] = &KeywordResult{ID: hit.ID, Score: hit.Score}
	}
	return out, nil
}

// buildFieldQuery matches query against one field. With fuzziness > 0 each term
// becomes a FuzzyQuery and any term may match.
func buildFieldQuery(query, field string, boost float64, fuzziness int) blevequery.Query {
	if fuzziness <= 0 {
		mq := bleve.NewMatchQuery(query)
		mq.SetField(field)
		mq.SetBoost(boost)
		return mq
	}
	terms := tokenizeQuery(query)
	queries := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		fq := bleve.NewFuzzyQuery(term)
		fq.SetFuzziness(fuzziness)
		fq.SetField(field)
		fq.SetBoost(boost)
		queries = append(queries, fq)
	}
	return bleve.NewDisjunctionQuery(queries...)
}

// tokenizeQuery splits query into lowercase terms.
func tokenizeQuery(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

// Delete removes a record from the index.
func (b *BleveIndex) Delete(ctx context.Context, itemID string) error {
	return b.index.Delete(itemID)
}

// DocCount returns the number of indexed records.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}

// Rebuild indexes every record in store into idx. Records that
// fail to index are logged and skipped. It returns the number indexed.
func Rebuild(ctx context.Context, idx KeywordIndex, store storage.RecordStore, logger *zap.Logger) (int, error) {
	records, err := store.GetAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("load records for keyword index: %w", err)
	}
	n := 0
	for _, rec := range records {
		if err := idx.Index(ctx, rec); err != nil {
			if logger != nil {
				logger.Warn("keyword index failed", zap.String("item_id", rec.ItemID), zap.Error(err))
			}
			continue
		}
		n++
	}
	return n, nil
}
