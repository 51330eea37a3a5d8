package models

import "time"

// Search outcome states. Partial means at least one source succeeded and at
// least one failed; failed means every source failed.
const (
	StatusCompleted = "completed"
	StatusPartial   = "partial"
	StatusFailed    = "failed"
)

// Result is a single raw hit as emitted by a source adapter. Immutable once
// emitted; adapters never share Result values across calls.
type Result struct {
	Title    string            `json:"title"`
	URL      string            `json:"url"`
	Snippet  string            `json:"snippet"`
	Source   string            `json:"source"`
	Language string            `json:"language"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ScoredResult is a Result with the relevance score assigned by the ranker.
// Scores are always at least the ranker's floor, never zero.
type ScoredResult struct {
	Result
	Score float64 `json:"score"`
}

// SearchResponse is the assembled answer for one search request. Constructed
// once by the orchestrator and immutable afterwards; cached by value.
type SearchResponse struct {
	SearchID     string            `json:"search_id"`
	Query        string            `json:"query"`
	Mode         string            `json:"mode"`
	Status       string            `json:"status"`
	Sources      []string          `json:"requested_sources"`
	Errors       map[string]string `json:"errors,omitempty"`
	TotalResults int               `json:"total_results"`
	Page         int               `json:"page"`
	PageSize     int               `json:"page_size"`
	TotalPages   int               `json:"total_pages"`
	Results      []ScoredResult    `json:"results"`
	DurationMS   float64           `json:"duration_ms"`
	FromCache    bool              `json:"from_cache"`
}

// SearchRecord is the persistence shape handed to the store after each
// non-cached search.
type SearchRecord struct {
	SearchID     string    `json:"search_id"`
	Query        string    `json:"query"`
	Mode         string    `json:"mode"`
	Languages    []string  `json:"languages"`
	Sources      []string  `json:"sources"`
	Status       string    `json:"status"`
	ResultsCount int       `json:"results_count"`
	Timestamp    time.Time `json:"timestamp"`
	DurationMS   float64   `json:"duration_ms"`
	ClientIP     string    `json:"client_ip,omitempty"`
}

// QueryCount pairs a query string with how often it was searched.
type QueryCount struct {
	Query string `json:"query"`
	Count int    `json:"count"`
}

// Analytics aggregates stored search history.
type Analytics struct {
	TotalSearches int            `json:"total_searches"`
	StatusCounts  map[string]int `json:"status_counts"`
	AvgDurationMS float64        `json:"avg_duration_ms"`
	TopQueries    []QueryCount   `json:"top_queries"`
}
