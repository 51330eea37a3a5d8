// Package cli provides output formatting for the Matome CLI.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/matomesearch/matome/internal/models"
)

// OutputFormat selects how CLI subcommands render their output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

const snippetMaxLen = 200

// WriteSearchResults writes a search response to w in the given format.
// Use OutputJSON for parseable output consumable by other apps.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	writeSearchResultsText(w, response)
	return nil
}

func writeSearchResultsText(w io.Writer, response *models.SearchResponse) {
	fmt.Fprintf(w, "\nFound %d results for %q in %.1fms [%s]\n",
		response.TotalResults, response.Query, response.DurationMS, response.Status)
	if response.FromCache {
		fmt.Fprintln(w, "(served from cache)")
	}
	for name, msg := range response.Errors {
		fmt.Fprintf(w, "source %s failed: %s\n", name, msg)
	}
	fmt.Fprintln(w)
	// Rank numbers continue across pages so page 2 starts where page 1 ended.
	offset := (response.Page - 1) * response.PageSize
	for i, result := range response.Results {
		writeOneResult(w, offset+i+1, result)
	}
	if response.TotalPages > 1 {
		fmt.Fprintf(w, "page %d of %d\n", response.Page, response.TotalPages)
	}
}

func writeOneResult(w io.Writer, rank int, result models.ScoredResult) {
	fmt.Fprintf(w, "%2d. %s\n", rank, result.Title)
	fmt.Fprintf(w, "    %s\n", result.URL)
	if result.Snippet != "" {
		fmt.Fprintf(w, "    %s\n", Truncate(result.Snippet, snippetMaxLen))
	}
	fmt.Fprintf(w, "    [%s] score %.2f\n\n", result.Source, result.Score)
}

// WriteAnalysis writes a query analysis to w in the given format.
func WriteAnalysis(w io.Writer, analysis *models.QueryAnalysis, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, analysis)
	}
	fmt.Fprintf(w, "query:       %s\n", analysis.Query)
	fmt.Fprintf(w, "language:    %s\n", analysis.Language)
	fmt.Fprintf(w, "intent:      %s\n", analysis.Intent)
	fmt.Fprintf(w, "complexity:  %s\n", analysis.Complexity)
	fmt.Fprintf(w, "sentiment:   %s\n", analysis.Sentiment)
	if len(analysis.Keywords) > 0 {
		fmt.Fprintf(w, "keywords:    %s\n", strings.Join(analysis.Keywords, ", "))
	}
	if len(analysis.Entities) > 0 {
		fmt.Fprintf(w, "entities:    %s\n", strings.Join(analysis.Entities, ", "))
	}
	fmt.Fprintf(w, "technical:   %t\n", analysis.IsTechnical)
	fmt.Fprintf(w, "sensitive:   %t\n", analysis.IsSensitive)
	fmt.Fprintf(w, "suggested:   %s (%s mode)\n",
		strings.Join(analysis.SuggestedSources, ", "), analysis.SuggestedMode)
	return nil
}

// WriteHistory writes search history records to w in the given format,
// newest first as returned by the store.
func WriteHistory(w io.Writer, records []*models.SearchRecord, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, records)
	}
	if len(records) == 0 {
		fmt.Fprintln(w, "no searches recorded")
		return nil
	}
	for _, rec := range records {
		fmt.Fprintf(w, "%s  %-9s  %4d results  %7.1fms  %s\n",
			rec.Timestamp.Local().Format("2006-01-02 15:04"),
			rec.Status, rec.ResultsCount, rec.DurationMS, rec.Query)
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Truncate truncates s to maxLen and appends "..." if truncated.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
