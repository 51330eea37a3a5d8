package source

import (
	"context"
	"fmt"

	"github.com/matomesearch/matome/internal/archive"
	"github.com/matomesearch/matome/internal/models"
)

// Archive serves previously archived results from the local index, making
// earlier fan-out output available without network access.
type Archive struct {
	index *archive.Index
}

// NewArchive creates the adapter over an open archive index.
func NewArchive(index *archive.Index) *Archive {
	return &Archive{index: index}
}

// Name implements Adapter.
func (a *Archive) Name() string { return "archive" }

// Fetch queries the archive. Hits keep their archived language but are
// re-tagged with this source; the original source survives in metadata.
func (a *Archive) Fetch(ctx context.Context, query string, languages []string, maxResults int) ([]models.Result, error) {
	results, err := a.index.Search(query, maxResults)
	if err != nil {
		return nil, fmt.Errorf("archive search failed: %w", err)
	}
	for i := range results {
		origin := results[i].Source
		results[i].Source = a.Name()
		if origin != "" {
			results[i].Metadata = map[string]string{"origin": origin}
		}
	}
	return results, nil
}
