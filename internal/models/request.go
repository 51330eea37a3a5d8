// Package models defines the request, result, and record types shared across
// the search pipeline.
package models

import (
	"fmt"
	"strings"
)

// ValidationError marks a request the caller must fix. Transport layers map
// it to a client error; it is never retried.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Search modes. Mode is advisory: it is echoed back and recorded but does not
// change pipeline behavior.
const (
	ModeAggregation = "aggregation"
	ModeCrawling    = "crawling"
)

// Request bounds. Zero-valued fields take the defaults; values outside the
// bounds are rejected by Validate.
const (
	DefaultMaxResults = 20
	MaxMaxResults     = 100
	DefaultPageSize   = 10
	MaxPageSize       = 50
)

// SearchRequest is a single aggregation query across one or more sources.
type SearchRequest struct {
	Query      string   `json:"query"`
	Mode       string   `json:"mode,omitempty"`
	Languages  []string `json:"languages,omitempty"`
	Sources    []string `json:"sources,omitempty"`
	MaxResults int      `json:"max_results,omitempty"`
	Page       int      `json:"page,omitempty"`
	PageSize   int      `json:"page_size,omitempty"`
}

// Validate normalizes the request in place and reports the first invalid
// field. Nil languages and sources take defaults; an explicitly empty sources
// list is an error because a search with no sources can never produce results.
// Zero numeric fields take defaults, anything else out of range is rejected.
func (r *SearchRequest) Validate() error {
	r.Query = strings.TrimSpace(r.Query)
	if r.Query == "" {
		return &ValidationError{Msg: "query cannot be empty"}
	}
	if r.Mode == "" {
		r.Mode = ModeAggregation
	}
	if r.Languages == nil {
		r.Languages = []string{"en", "it"}
	}
	if r.Sources == nil {
		r.Sources = []string{"duckduckgo"}
	}
	if len(r.Sources) == 0 {
		return &ValidationError{Msg: "at least one source must be selected"}
	}
	switch {
	case r.MaxResults == 0:
		r.MaxResults = DefaultMaxResults
	case r.MaxResults < 0 || r.MaxResults > MaxMaxResults:
		return &ValidationError{Msg: fmt.Sprintf("max_results must be between 1 and %d", MaxMaxResults)}
	}
	switch {
	case r.Page == 0:
		r.Page = 1
	case r.Page < 0:
		return &ValidationError{Msg: "page must be at least 1"}
	}
	switch {
	case r.PageSize == 0:
		r.PageSize = DefaultPageSize
	case r.PageSize < 0 || r.PageSize > MaxPageSize:
		return &ValidationError{Msg: fmt.Sprintf("page_size must be between 1 and %d", MaxPageSize)}
	}
	return nil
}
