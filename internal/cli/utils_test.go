package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/matomesearch/matome/internal/models"
)

func sampleResponse() *models.SearchResponse {
	return &models.SearchResponse{
		SearchID:     "abc-123",
		Query:        "go generics",
		Mode:         "general",
		Status:       models.StatusCompleted,
		Sources:      []string{"duckduckgo"},
		TotalResults: 2,
		Page:         1,
		PageSize:     10,
		TotalPages:   1,
		Results: []models.ScoredResult{
			{
				Result: models.Result{
					Title:   "Go Generics Tutorial",
					URL:     "https://example.com/generics",
					Snippet: "Type parameters in Go",
					Source:  "duckduckgo",
				},
				Score: 0.91,
			},
			{
				Result: models.Result{
					Title:  "Generics Proposal",
					URL:    "https://example.com/proposal",
					Source: "wikipedia",
				},
				Score: 0.64,
			},
		},
		DurationMS: 123.4,
	}
}

func TestWriteSearchResults_JSON(t *testing.T) {
	response := sampleResponse()
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, response, OutputJSON); err != nil {
		t.Fatalf("WriteSearchResults(json): %v", err)
	}
	var decoded models.SearchResponse
	if err := json.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Query != response.Query || decoded.TotalResults != response.TotalResults {
		t.Errorf("decoded query=%q total=%d, want query=%q total=%d",
			decoded.Query, decoded.TotalResults, response.Query, response.TotalResults)
	}
	if len(decoded.Results) != 2 || decoded.Results[0].Title != "Go Generics Tutorial" {
		t.Errorf("decoded results: want two with first title preserved, got %+v", decoded.Results)
	}
}

func TestWriteSearchResults_text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, sampleResponse(), OutputText); err != nil {
		t.Fatalf("WriteSearchResults(text): %v", err)
	}
	out := buf.String()
	for _, sub := range []string{
		"Found 2 results", `"go generics"`, "123.4ms", "completed",
		"1. Go Generics Tutorial", "https://example.com/generics",
		"Type parameters in Go", "[duckduckgo] score 0.91", "[wikipedia] score 0.64",
	} {
		if !strings.Contains(out, sub) {
			t.Errorf("text output missing %q:\n%s", sub, out)
		}
	}
	if strings.Contains(out, "page 1 of 1") {
		t.Errorf("single-page response should omit the page footer:\n%s", out)
	}
}

func TestWriteSearchResults_text_pagination(t *testing.T) {
	response := sampleResponse()
	response.Page = 3
	response.PageSize = 5
	response.TotalPages = 4
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, response, OutputText); err != nil {
		t.Fatalf("WriteSearchResults(text): %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "page 3 of 4") {
		t.Errorf("expected page footer in output:\n%s", out)
	}
	if !strings.Contains(out, "11. Go Generics Tutorial") {
		t.Errorf("rank numbering should continue across pages (want 11.):\n%s", out)
	}
}

func TestWriteSearchResults_text_cacheAndErrors(t *testing.T) {
	response := sampleResponse()
	response.Status = models.StatusPartial
	response.FromCache = true
	response.Errors = map[string]string{"wikipedia": "timeout"}
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, response, OutputText); err != nil {
		t.Fatalf("WriteSearchResults(text): %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "(served from cache)") {
		t.Errorf("expected cache note in output:\n%s", out)
	}
	if !strings.Contains(out, "source wikipedia failed: timeout") {
		t.Errorf("expected source failure line in output:\n%s", out)
	}
}

func TestWriteSearchResults_unknownFormatTreatedAsText(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, sampleResponse(), OutputFormat("unknown")); err != nil {
		t.Fatalf("WriteSearchResults(unknown): %v", err)
	}
	if !strings.Contains(buf.String(), "Found") {
		t.Errorf("unknown format should fall back to text; got %q", buf.String())
	}
}

func TestWriteAnalysis(t *testing.T) {
	analysis := &models.QueryAnalysis{
		Query:            "how to install postgres",
		Language:         "en",
		Intent:           "howto",
		Complexity:       "moderate",
		Keywords:         []string{"install", "postgres"},
		SuggestedSources: []string{"duckduckgo", "wikipedia"},
		SuggestedMode:    "general",
		IsTechnical:      true,
		Sentiment:        "neutral",
	}
	var buf bytes.Buffer
	if err := WriteAnalysis(&buf, analysis, OutputText); err != nil {
		t.Fatalf("WriteAnalysis(text): %v", err)
	}
	out := buf.String()
	for _, sub := range []string{
		"query:       how to install postgres",
		"intent:      howto",
		"keywords:    install, postgres",
		"technical:   true",
		"suggested:   duckduckgo, wikipedia (general mode)",
	} {
		if !strings.Contains(out, sub) {
			t.Errorf("analysis output missing %q:\n%s", sub, out)
		}
	}

	buf.Reset()
	if err := WriteAnalysis(&buf, analysis, OutputJSON); err != nil {
		t.Fatalf("WriteAnalysis(json): %v", err)
	}
	var decoded models.QueryAnalysis
	if err := json.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatalf("analysis JSON decode: %v", err)
	}
	if decoded.Intent != "howto" || !decoded.IsTechnical {
		t.Errorf("decoded analysis = %+v, want intent howto and technical", decoded)
	}
}

func TestWriteHistory(t *testing.T) {
	records := []*models.SearchRecord{
		{
			Query:        "go concurrency",
			Status:       models.StatusCompleted,
			ResultsCount: 14,
			Timestamp:    time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC),
			DurationMS:   88.5,
		},
		{
			Query:        "rust borrow checker",
			Status:       models.StatusPartial,
			ResultsCount: 3,
			Timestamp:    time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC),
			DurationMS:   512.0,
		},
	}
	var buf bytes.Buffer
	if err := WriteHistory(&buf, records, OutputText); err != nil {
		t.Fatalf("WriteHistory(text): %v", err)
	}
	out := buf.String()
	for _, sub := range []string{"go concurrency", "rust borrow checker", "completed", "partial", "14 results"} {
		if !strings.Contains(out, sub) {
			t.Errorf("history output missing %q:\n%s", sub, out)
		}
	}
}

func TestWriteHistory_empty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteHistory(&buf, nil, OutputText); err != nil {
		t.Fatalf("WriteHistory(empty): %v", err)
	}
	if !strings.Contains(buf.String(), "no searches recorded") {
		t.Errorf("empty history should say so; got %q", buf.String())
	}

	buf.Reset()
	if err := WriteHistory(&buf, []*models.SearchRecord{}, OutputJSON); err != nil {
		t.Fatalf("WriteHistory(json empty): %v", err)
	}
	if got := strings.TrimSpace(buf.String()); got != "[]" {
		t.Errorf("empty history JSON = %q, want []", got)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name   string
		s      string
		maxLen int
		want   string
	}{
		{"empty", "", 5, ""},
		{"short", "hi", 5, "hi"},
		{"exact", "hello", 5, "hello"},
		{"long", "hello world", 5, "hello..."},
		{"maxLen zero", "ab", 0, "ab"},
		{"maxLen negative", "ab", -1, "ab"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Truncate(tt.s, tt.maxLen)
			if got != tt.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.s, tt.maxLen, got, tt.want)
			}
		})
	}
}
