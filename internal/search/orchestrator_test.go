package search

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/matomesearch/matome/internal/archive"
	"github.com/matomesearch/matome/internal/cache"
	"github.com/matomesearch/matome/internal/config"
	"github.com/matomesearch/matome/internal/fanout"
	"github.com/matomesearch/matome/internal/models"
	"github.com/matomesearch/matome/internal/rank"
	"github.com/matomesearch/matome/internal/source"
	"github.com/matomesearch/matome/internal/storage"
)

type stubAdapter struct {
	name    string
	results []models.Result
	err     error
}

func (s *stubAdapter) Name() string { return s.name }

func (s *stubAdapter) Fetch(context.Context, string, []string, int) ([]models.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.results, nil
}

func sourceResults(sourceName string, urls ...string) []models.Result {
	out := make([]models.Result, len(urls))
	for i, u := range urls {
		out[i] = models.Result{
			Title:    fmt.Sprintf("Result %d from %s", i, sourceName),
			URL:      u,
			Snippet:  "a snippet with enough words in it to avoid the short snippet penalty",
			Source:   sourceName,
			Language: "en",
		}
	}
	return out
}

func newTestOrchestrator(t *testing.T, store storage.Store, idx *archive.Index, adapters ...source.Adapter) *Orchestrator {
	t.Helper()
	return NewOrchestrator(
		source.NewRegistry(adapters...),
		fanout.New(fanout.Config{MaxAttempts: 1, RetryDelay: time.Millisecond}, zap.NewNop()),
		rank.NewRanker(),
		cache.New(time.Minute, 100),
		store,
		idx,
		nil,
		zap.NewNop(),
	)
}

func TestSearchEndToEnd(t *testing.T) {
	ddg := &stubAdapter{name: "duckduckgo", results: []models.Result{
		{Title: "Best Python Tutorial", URL: "https://Example.com/Python-Tutorial", Snippet: "learn python step by step with a complete hands on tutorial", Source: "duckduckgo", Language: "en"},
		{Title: "Best Python Tutorial Mirror", URL: "http://www.example.com/python-tutorial/", Snippet: "same page once more", Source: "duckduckgo", Language: "en"},
		{Title: "Python Basics", URL: "https://realpython.com/start", Snippet: "an introduction to python for beginners covering the core language", Source: "duckduckgo", Language: "en"},
	}}
	o := newTestOrchestrator(t, nil, nil, ddg)

	req := &models.SearchRequest{Query: "best python tutorial", Sources: []string{"duckduckgo"}, MaxResults: 5}
	resp, err := o.Search(context.Background(), req, "")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if resp.Status != models.StatusCompleted {
		t.Errorf("status: got %q", resp.Status)
	}
	if resp.TotalResults != 2 {
		t.Fatalf("expected 2 results after dedup, got %d", resp.TotalResults)
	}
	if resp.FromCache {
		t.Error("first request must not be a cache hit")
	}
	if resp.TotalPages != 1 || resp.Page != 1 {
		t.Errorf("pagination: %d pages, page %d", resp.TotalPages, resp.Page)
	}
	if resp.Errors != nil {
		t.Errorf("unexpected errors: %v", resp.Errors)
	}
	// First occurrence of the duplicate URL wins and the exact title match
	// ranks it above the other result.
	if resp.Results[0].URL != "https://Example.com/Python-Tutorial" {
		t.Errorf("top result: got %q", resp.Results[0].URL)
	}
	for _, r := range resp.Results {
		if r.Score < 0.1 {
			t.Errorf("score below floor: %f", r.Score)
		}
	}
}

func TestSearchFanoutIsolation(t *testing.T) {
	alpha := &stubAdapter{name: "alpha", results: sourceResults("alpha", "https://a.example/1", "https://a.example/2")}
	beta := &stubAdapter{name: "beta", err: errors.New("connection refused")}
	gamma := &stubAdapter{name: "gamma", results: sourceResults("gamma", "https://c.example/1", "https://c.example/2")}
	o := newTestOrchestrator(t, nil, nil, alpha, beta, gamma)

	req := &models.SearchRequest{Query: "golang", Sources: []string{"alpha", "beta", "gamma"}}
	resp, err := o.Search(context.Background(), req, "")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if resp.Status != models.StatusPartial {
		t.Errorf("status: got %q, want %q", resp.Status, models.StatusPartial)
	}
	if len(resp.Errors) != 1 || resp.Errors["beta"] == "" {
		t.Errorf("errors: %v", resp.Errors)
	}
	if resp.TotalResults != 4 {
		t.Errorf("expected 4 results from the healthy sources, got %d", resp.TotalResults)
	}
}

func TestSearchCacheRoundTrip(t *testing.T) {
	alpha := &stubAdapter{name: "alpha", results: sourceResults("alpha", "https://a.example/1")}
	o := newTestOrchestrator(t, nil, nil, alpha)
	ctx := context.Background()

	first, err := o.Search(ctx, &models.SearchRequest{Query: "golang", Sources: []string{"alpha"}}, "")
	if err != nil {
		t.Fatal(err)
	}
	if first.FromCache {
		t.Error("first response must not come from the cache")
	}

	second, err := o.Search(ctx, &models.SearchRequest{Query: "golang", Sources: []string{"alpha"}}, "")
	if err != nil {
		t.Fatal(err)
	}
	if !second.FromCache {
		t.Error("second identical request must come from the cache")
	}
	if second.SearchID != first.SearchID {
		t.Errorf("cached body must match: %s vs %s", second.SearchID, first.SearchID)
	}
	if second.TotalResults != first.TotalResults || len(second.Results) != len(first.Results) {
		t.Errorf("cached body differs beyond the cache flag")
	}
}

func TestSearchCacheHitIgnoresPagination(t *testing.T) {
	urls := make([]string, 5)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://a.example/%d", i)
	}
	alpha := &stubAdapter{name: "alpha", results: sourceResults("alpha", urls...)}
	o := newTestOrchestrator(t, nil, nil, alpha)
	ctx := context.Background()

	if _, err := o.Search(ctx, &models.SearchRequest{Query: "golang", Sources: []string{"alpha"}, PageSize: 2}, ""); err != nil {
		t.Fatal(err)
	}

	// Page is not part of the cache key, so a request for another page of the
	// same identity returns the stored response unchanged.
	resp, err := o.Search(ctx, &models.SearchRequest{Query: "golang", Sources: []string{"alpha"}, Page: 2, PageSize: 2}, "")
	if err != nil {
		t.Fatal(err)
	}
	if !resp.FromCache {
		t.Fatal("expected a cache hit")
	}
	if resp.Page != 1 {
		t.Errorf("cached payload is returned as stored: page %d", resp.Page)
	}
}

func TestSearchValidationRejected(t *testing.T) {
	alpha := &stubAdapter{name: "alpha", results: sourceResults("alpha", "https://a.example/1")}
	o := newTestOrchestrator(t, nil, nil, alpha)
	ctx := context.Background()

	var verr *models.ValidationError
	if _, err := o.Search(ctx, &models.SearchRequest{Query: "   "}, ""); !errors.As(err, &verr) {
		t.Errorf("blank query: expected ValidationError, got %v", err)
	}
	if _, err := o.Search(ctx, &models.SearchRequest{Query: "x", Sources: []string{"tor"}}, ""); !errors.As(err, &verr) {
		t.Errorf("unresolvable sources: expected ValidationError, got %v", err)
	}
}

type captureAdapter struct {
	name       string
	results    []models.Result
	languages  []string
	maxResults int
}

func (c *captureAdapter) Name() string { return c.name }

func (c *captureAdapter) Fetch(_ context.Context, _ string, languages []string, maxResults int) ([]models.Result, error) {
	c.languages = languages
	c.maxResults = maxResults
	return c.results, nil
}

func TestSearchAppliesConfigDefaults(t *testing.T) {
	adapter := &captureAdapter{name: "alpha", results: sourceResults("alpha", "https://a.example/1")}
	cfg := &config.SearchConfig{
		DefaultSources:    []string{"alpha"},
		DefaultLanguages:  []string{"fr"},
		DefaultMaxResults: 7,
		DefaultPageSize:   3,
	}
	o := NewOrchestrator(
		source.NewRegistry(adapter),
		fanout.New(fanout.Config{MaxAttempts: 1, RetryDelay: time.Millisecond}, zap.NewNop()),
		rank.NewRanker(),
		cache.New(time.Minute, 100),
		nil,
		nil,
		cfg,
		zap.NewNop(),
	)

	resp, err := o.Search(context.Background(), &models.SearchRequest{Query: "golang"}, "")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(resp.Sources) != 1 || resp.Sources[0] != "alpha" {
		t.Errorf("configured default sources not applied: %v", resp.Sources)
	}
	if resp.PageSize != 3 {
		t.Errorf("configured default page size not applied: %d", resp.PageSize)
	}
	if adapter.maxResults != 7 {
		t.Errorf("configured default max results not applied: %d", adapter.maxResults)
	}
	if len(adapter.languages) != 1 || adapter.languages[0] != "fr" {
		t.Errorf("configured default languages not applied: %v", adapter.languages)
	}
}

func TestSearchPaginationFields(t *testing.T) {
	urls := make([]string, 5)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://a.example/%d", i)
	}
	alpha := &stubAdapter{name: "alpha", results: sourceResults("alpha", urls...)}
	o := newTestOrchestrator(t, nil, nil, alpha)

	resp, err := o.Search(context.Background(), &models.SearchRequest{Query: "golang", Sources: []string{"alpha"}, PageSize: 2}, "")
	if err != nil {
		t.Fatal(err)
	}
	if resp.TotalResults != 5 || resp.TotalPages != 3 {
		t.Errorf("totals: %d results, %d pages", resp.TotalResults, resp.TotalPages)
	}
	if len(resp.Results) != 2 {
		t.Errorf("page size: got %d results", len(resp.Results))
	}
}

func TestPaginate(t *testing.T) {
	results := make([]models.ScoredResult, 5)
	for i := range results {
		results[i] = models.ScoredResult{Result: models.Result{URL: fmt.Sprintf("https://site.example/%d", i)}}
	}

	seen := make(map[string]int)
	for page := 1; page <= 3; page++ {
		for _, r := range paginate(results, page, 2) {
			seen[r.URL]++
		}
	}
	if len(seen) != 5 {
		t.Errorf("pages must cover every result, covered %d", len(seen))
	}
	for url, n := range seen {
		if n != 1 {
			t.Errorf("%s appeared %d times across pages", url, n)
		}
	}

	if got := len(paginate(results, 4, 2)); got != 0 {
		t.Errorf("page past the end: got %d results", got)
	}
	if got := len(paginate(results, 1, 10)); got != 5 {
		t.Errorf("oversized page: got %d results", got)
	}
}

func TestSearchPersistsHistoryAndArchive(t *testing.T) {
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	idx, err := archive.Open(filepath.Join(t.TempDir(), "archive.bleve"))
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()

	alpha := &stubAdapter{name: "alpha", results: sourceResults("alpha", "https://a.example/1", "https://a.example/2")}
	o := newTestOrchestrator(t, store, idx, alpha)
	ctx := context.Background()

	resp, err := o.Search(ctx, &models.SearchRequest{Query: "golang", Sources: []string{"alpha"}}, "127.0.0.1")
	if err != nil {
		t.Fatal(err)
	}

	records, err := store.History(ctx, 10, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 history record, got %d", len(records))
	}
	rec := records[0]
	if rec.SearchID != resp.SearchID || rec.Status != resp.Status || rec.ResultsCount != resp.TotalResults {
		t.Errorf("record mismatch: %+v", rec)
	}
	if rec.ClientIP != "127.0.0.1" {
		t.Errorf("client ip: got %q", rec.ClientIP)
	}

	count, err := idx.Count()
	if err != nil {
		t.Fatal(err)
	}
	if count != uint64(resp.TotalResults) {
		t.Errorf("archive count: got %d, want %d", count, resp.TotalResults)
	}
}

type failingStore struct{}

func (failingStore) RecordSearch(context.Context, *models.SearchRecord) error {
	return errors.New("database unavailable")
}

func (failingStore) RecordResults(context.Context, string, []models.ScoredResult) error {
	return errors.New("database unavailable")
}

func (failingStore) History(context.Context, int, string) ([]*models.SearchRecord, error) {
	return nil, errors.New("database unavailable")
}

func (failingStore) Analytics(context.Context) (*models.Analytics, error) {
	return nil, errors.New("database unavailable")
}

func (failingStore) Suggestions(context.Context, string, int) ([]string, error) {
	return nil, errors.New("database unavailable")
}

func (failingStore) Close() error { return nil }

func TestSearchSurvivesPersistenceFailure(t *testing.T) {
	alpha := &stubAdapter{name: "alpha", results: sourceResults("alpha", "https://a.example/1")}
	o := newTestOrchestrator(t, failingStore{}, nil, alpha)

	resp, err := o.Search(context.Background(), &models.SearchRequest{Query: "golang", Sources: []string{"alpha"}}, "")
	if err != nil {
		t.Fatalf("persistence failure must not fail the search: %v", err)
	}
	if resp.Status != models.StatusCompleted {
		t.Errorf("status: got %q", resp.Status)
	}
}
