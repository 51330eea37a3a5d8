// Package rank deduplicates aggregated results and orders them against the
// query with a fixed additive scoring heuristic.
package rank

import (
	"strings"

	"github.com/matomesearch/matome/internal/models"
)

// NormalizeURL reduces a URL to its deduplication identity: lowercased, no
// scheme, no leading www., no trailing slash.
func NormalizeURL(rawURL string) string {
	u := strings.ToLower(rawURL)
	u = strings.TrimPrefix(u, "http://")
	u = strings.TrimPrefix(u, "https://")
	u = strings.TrimPrefix(u, "www.")
	return strings.TrimRight(u, "/")
}

// Dedupe removes results whose URLs normalize identically, regardless of
// source. The first occurrence in input order is kept; output order is
// otherwise unchanged. Idempotent.
func Dedupe(results []models.Result) []models.Result {
	seen := make(map[string]bool, len(results))
	unique := make([]models.Result, 0, len(results))
	for _, r := range results {
		key := NormalizeURL(r.URL)
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, r)
	}
	return unique
}
