// Package storage persists search history and per-search results on SQLite
// and aggregates them into usage analytics.
package storage

import (
	"context"

	"github.com/matomesearch/matome/internal/models"
)

// Store defines history persistence. Writes happen off the request path and
// are best-effort; a failing store never fails a search.
type Store interface {
	// RecordSearch inserts one completed search.
	RecordSearch(ctx context.Context, rec *models.SearchRecord) error
	// RecordResults inserts the ranked results of a search in rank order.
	RecordResults(ctx context.Context, searchID string, results []models.ScoredResult) error

	// History returns the most recent searches, newest first. A non-empty
	// query narrows to searches containing it.
	History(ctx context.Context, limit int, query string) ([]*models.SearchRecord, error)
	// Analytics aggregates the stored history.
	Analytics(ctx context.Context) (*models.Analytics, error)
	// Suggestions returns distinct past queries starting with prefix.
	Suggestions(ctx context.Context, prefix string, limit int) ([]string, error)

	Close() error
}
