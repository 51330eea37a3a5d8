package e2e

import (
	"testing"

	"github.com/matomesearch/matome/internal/models"
)

func TestBuildCorpus_HasResultsAndQueries(t *testing.T) {
	c := BuildCorpus()
	if c.TotalResults < 30 {
		t.Errorf("expected at least 30 archived results, got %d", c.TotalResults)
	}
	if c.TotalQueries == 0 {
		t.Fatal("expected at least one query test case")
	}
	for i, tc := range c.TestCases {
		if tc.Query == "" {
			t.Errorf("test case %d: empty query", i)
		}
		if len(tc.ExpectedURLs) == 0 {
			t.Errorf("test case %d: no expected URLs", i)
		}
	}
}

func TestBuildCorpus_URLsAreUnique(t *testing.T) {
	c := BuildCorpus()
	seen := make(map[string]bool, len(c.Results))
	for _, r := range c.Results {
		if r.URL == "" {
			t.Errorf("result %q has no URL", r.Title)
			continue
		}
		if seen[r.URL] {
			t.Errorf("duplicate URL in corpus: %s", r.URL)
		}
		seen[r.URL] = true
	}
}

func TestBuildCorpus_ExpectedResultsContainQueryTerms(t *testing.T) {
	c := BuildCorpus()
	byURL := make(map[string]models.Result, len(c.Results))
	for _, r := range c.Results {
		byURL[r.URL] = r
	}
	for _, tc := range c.TestCases {
		for _, u := range tc.ExpectedURLs {
			r, ok := byURL[u]
			if !ok {
				t.Errorf("expected URL %q not in corpus", u)
				continue
			}
			if !containsAllTerms(r, tc.Query) {
				t.Errorf("result %q does not contain all terms of query %q", u, tc.Query)
			}
		}
	}
}

func TestBuildCorpus_CoversBothLanguages(t *testing.T) {
	c := BuildCorpus()
	langs := make(map[string]int)
	for _, r := range c.Results {
		langs[r.Language]++
	}
	if langs["en"] == 0 || langs["it"] == 0 {
		t.Errorf("corpus should cover both default languages, got %v", langs)
	}
}

func TestContainsAllTerms(t *testing.T) {
	r := models.Result{Title: "Go Concurrency", Snippet: "Goroutines and channels compose into pipelines."}
	tests := []struct {
		query string
		want  bool
	}{
		{"go concurrency", true},
		{"goroutines pipelines", true},
		{"GO CHANNELS", true},
		{"rust concurrency", false},
		{"", true},
	}
	for _, tt := range tests {
		if got := containsAllTerms(r, tt.query); got != tt.want {
			t.Errorf("containsAllTerms(%q) = %v, want %v", tt.query, got, tt.want)
		}
	}
}
