// Package archive maintains a local full-text index of previously fetched
// results, so earlier fan-out output stays searchable offline through the
// archive source.
package archive

import (
	"fmt"
	"os"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/matomesearch/matome/internal/models"
	"github.com/matomesearch/matome/internal/rank"
)

// Index wraps a bleve index of result records keyed by normalized URL, so
// re-archiving a URL updates its record instead of duplicating it.
type Index struct {
	index bleve.Index
}

// Open creates or opens the index at path. An existing index is reused;
// remove the directory to force a rebuild after a mapping change.
func Open(path string) (*Index, error) {
	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open archive index: %w", openErr)
		}
		return &Index{index: index}, nil
	}

	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()
	// Standard analyzer (lowercase + tokenize, no stemming) so queries match
	// archived words exactly.
	textMapping := bleve.NewTextFieldMapping()
	textMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("title", textMapping)
	docMapping.AddFieldMappingsAt("snippet", textMapping)
	keywordMapping := bleve.NewKeywordFieldMapping()
	docMapping.AddFieldMappingsAt("url", keywordMapping)
	docMapping.AddFieldMappingsAt("source", keywordMapping)
	docMapping.AddFieldMappingsAt("language", keywordMapping)
	im.DefaultMapping = docMapping

	index, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("failed to create archive index: %w", err)
	}
	return &Index{index: index}, nil
}

// Add indexes the results in one batch. Results without a URL are skipped.
func (i *Index) Add(results []models.Result) error {
	if len(results) == 0 {
		return nil
	}
	batch := i.index.NewBatch()
	for _, r := range results {
		if r.URL == "" {
			continue
		}
		doc := map[string]interface{}{
			"title":    r.Title,
			"url":      r.URL,
			"snippet":  r.Snippet,
			"source":   r.Source,
			"language": r.Language,
		}
		if err := batch.Index(rank.NormalizeURL(r.URL), doc); err != nil {
			return fmt.Errorf("failed to batch result: %w", err)
		}
	}
	if err := i.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to index results: %w", err)
	}
	return nil
}

// Search runs a match query over the archived records and returns up to
// limit reconstructed results, best match first.
func (i *Index) Search(query string, limit int) ([]models.Result, error) {
	req := bleve.NewSearchRequest(bleve.NewMatchQuery(query))
	req.Size = limit
	req.Fields = []string{"*"}

	res, err := i.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("archive search failed: %w", err)
	}

	out := make([]models.Result, 0, len(res.Hits))
	for _, hit := range res.Hits {
		out = append(out, models.Result{
			Title:    fieldString(hit.Fields, "title"),
			URL:      fieldString(hit.Fields, "url"),
			Snippet:  fieldString(hit.Fields, "snippet"),
			Source:   fieldString(hit.Fields, "source"),
			Language: fieldString(hit.Fields, "language"),
		})
	}
	return out, nil
}

func fieldString(fields map[string]interface{}, name string) string {
	if v, ok := fields[name].(string); ok {
		return v
	}
	return ""
}

// Count returns the number of archived records.
func (i *Index) Count() (uint64, error) {
	return i.index.DocCount()
}

// Close closes the underlying index.
func (i *Index) Close() error {
	return i.index.Close()
}
