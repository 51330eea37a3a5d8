// Package e2e exercises the full aggregation stack against a populated
// archive: real SQLite history, a real bleve index, and the orchestrated
// search pipeline over them.
package e2e

import (
	"fmt"
	"strings"

	"github.com/matomesearch/matome/internal/models"
)

// QueryTestCase pairs a query with the archived URL(s) that must appear in
// its results. At least one of ExpectedURLs must be present.
type QueryTestCase struct {
	Query        string
	ExpectedURLs []string
	Description  string
}

// Corpus holds archived results and the query test cases over them.
type Corpus struct {
	Results      []models.Result
	TestCases    []QueryTestCase
	TotalResults int
	TotalQueries int
}

// BuildCorpus returns a corpus of archived results with varied topics and
// languages. Each result carries a distinctive phrase in its snippet so
// queries can assert that the right record comes back.
func BuildCorpus() *Corpus {
	results := buildResults()
	cases := buildQueryTestCases(results)
	return &Corpus{
		Results:      results,
		TestCases:    cases,
		TotalResults: len(results),
		TotalQueries: len(cases),
	}
}

func buildResults() []models.Result {
	entries := []struct {
		title   string
		url     string
		snippet string
		source  string
		lang    string
	}{
		{"Go Concurrency Patterns", "https://go.dev/blog/pipelines", "Goroutines and channels compose into pipelines; Go concurrency patterns cover fan-out, fan-in, and cancellation.", "duckduckgo", "en"},
		{"Goroutine Scheduling", "https://go.dev/doc/gopher/scheduler", "The Go runtime multiplexes goroutines onto OS threads; goroutine scheduling uses work stealing.", "duckduckgo", "en"},
		{"Kubernetes - Wikipedia", "https://en.wikipedia.org/wiki/Kubernetes", "Kubernetes is an open-source container orchestration system for automating deployment and scaling.", "wikipedia", "en"},
		{"Docker (software) - Wikipedia", "https://en.wikipedia.org/wiki/Docker_(software)", "Docker packages applications into container images that run consistently across environments.", "wikipedia", "en"},
		{"PostgreSQL Full-Text Search", "https://www.postgresql.org/docs/current/textsearch.html", "PostgreSQL full-text search supports tsvector ranking, dictionaries, and phrase queries.", "duckduckgo", "en"},
		{"SQLite When To Use", "https://sqlite.org/whentouse.html", "SQLite is a zero-configuration embedded database; a single file holds the whole database.", "duckduckgo", "en"},
		{"Redis Caching Strategies", "https://redis.io/docs/manual/client-side-caching/", "Redis caching strategies include cache-aside, write-through, and TTL-based invalidation.", "duckduckgo", "en"},
		{"HTTP caching - MDN", "https://developer.mozilla.org/en-US/docs/Web/HTTP/Caching", "HTTP caching reduces latency with Cache-Control, ETag validation, and stale-while-revalidate.", "duckduckgo", "en"},
		{"Rate limiting - Wikipedia", "https://en.wikipedia.org/wiki/Rate_limiting", "Rate limiting controls request throughput with token bucket and leaky bucket algorithms.", "wikipedia", "en"},
		{"Circuit breaker design pattern", "https://martinfowler.com/bliki/CircuitBreaker.html", "The circuit breaker pattern stops cascading failures by failing fast after repeated errors.", "duckduckgo", "en"},
		{"Exponential backoff - Wikipedia", "https://en.wikipedia.org/wiki/Exponential_backoff", "Exponential backoff spaces out retry attempts to avoid overwhelming a recovering service.", "wikipedia", "en"},
		{"WebSocket - Wikipedia", "https://en.wikipedia.org/wiki/WebSocket", "WebSocket provides full-duplex communication over a single TCP connection, upgraded from HTTP.", "wikipedia", "en"},
		{"Server-sent events guide", "https://developer.mozilla.org/en-US/docs/Web/API/Server-sent_events", "Server-sent events stream updates from server to browser over a long-lived HTTP response.", "duckduckgo", "en"},
		{"Metasearch engine - Wikipedia", "https://en.wikipedia.org/wiki/Metasearch_engine", "A metasearch engine aggregates results from several search engines and merges the ranked lists.", "wikipedia", "en"},
		{"Inverted index - Wikipedia", "https://en.wikipedia.org/wiki/Inverted_index", "An inverted index maps terms to the documents containing them, the core of full-text search.", "wikipedia", "en"},
		{"BM25 ranking function", "https://en.wikipedia.org/wiki/Okapi_BM25", "Okapi BM25 is a ranking function scoring documents by term frequency and inverse document frequency.", "wikipedia", "en"},
		{"Levenshtein distance - Wikipedia", "https://en.wikipedia.org/wiki/Levenshtein_distance", "Levenshtein distance counts the single-character edits needed to turn one string into another.", "wikipedia", "en"},
		{"TLS handshake explained", "https://www.cloudflare.com/learning/ssl/what-happens-in-a-tls-handshake/", "The TLS handshake negotiates cipher suites and exchanges certificates before encrypted traffic flows.", "duckduckgo", "en"},
		{"OAuth 2.0 authorization flows", "https://oauth.net/2/grant-types/", "OAuth 2.0 authorization flows include authorization code, client credentials, and device code grants.", "duckduckgo", "en"},
		{"JSON Web Token introduction", "https://jwt.io/introduction", "A JSON Web Token carries signed claims between parties as a compact URL-safe string.", "duckduckgo", "en"},
		{"Unicode normalization forms", "https://unicode.org/reports/tr15/", "Unicode normalization forms NFC and NFD decide how accented characters compare and sort.", "duckduckgo", "en"},
		{"Protocol Buffers overview", "https://protobuf.dev/overview/", "Protocol Buffers serialize structured data compactly with generated code for many languages.", "duckduckgo", "en"},
		{"gRPC performance best practices", "https://grpc.io/docs/guides/performance/", "gRPC performance improves with connection reuse, streaming, and careful deadline propagation.", "duckduckgo", "en"},
		{"Message queue - Wikipedia", "https://en.wikipedia.org/wiki/Message_queue", "A message queue decouples producers from consumers for asynchronous processing.", "wikipedia", "en"},
		{"Bloom filter - Wikipedia", "https://en.wikipedia.org/wiki/Bloom_filter", "A Bloom filter answers set membership probabilistically with false positives but no false negatives.", "wikipedia", "en"},
		{"Consistent hashing explained", "https://en.wikipedia.org/wiki/Consistent_hashing", "Consistent hashing spreads keys across nodes so that resizing moves only a small fraction of keys.", "wikipedia", "en"},
		{"CAP theorem - Wikipedia", "https://en.wikipedia.org/wiki/CAP_theorem", "The CAP theorem says a distributed system cannot have consistency, availability, and partition tolerance at once.", "wikipedia", "en"},
		{"Ricetta pizza napoletana", "https://www.giallozafferano.it/ricette/pizza-napoletana", "La ricetta della pizza napoletana prevede lunga lievitazione e cottura nel forno a legna.", "duckduckgo", "it"},
		{"Pasta alla carbonara - Wikipedia", "https://it.wikipedia.org/wiki/Pasta_alla_carbonara", "La pasta alla carbonara si prepara con guanciale, pecorino romano e uova, senza panna.", "wikipedia", "it"},
		{"Divina Commedia - Wikipedia", "https://it.wikipedia.org/wiki/Divina_Commedia", "La Divina Commedia di Dante Alighieri racconta il viaggio attraverso Inferno, Purgatorio e Paradiso.", "wikipedia", "it"},
		{"Museo degli Uffizi orari", "https://www.uffizi.it/gli-uffizi", "Il museo degli Uffizi a Firenze conserva capolavori del Rinascimento; orari e biglietti online.", "duckduckgo", "it"},
		{"Espresso italiano perfetto", "https://www.illy.com/it-it/caffe/preparazione-caffe/espresso", "Un espresso italiano perfetto richiede macinatura fine e venticinque secondi di estrazione.", "duckduckgo", "it"},
	}

	out := make([]models.Result, 0, len(entries))
	for _, e := range entries {
		out = append(out, models.Result{
			Title:    e.title,
			URL:      e.url,
			Snippet:  e.snippet,
			Source:   e.source,
			Language: e.lang,
		})
	}
	return out
}

func buildQueryTestCases(results []models.Result) []QueryTestCase {
	if len(results) == 0 {
		return nil
	}
	queries := []string{
		"go concurrency patterns",
		"goroutine scheduling",
		"container orchestration",
		"postgresql full-text search",
		"redis caching strategies",
		"token bucket rate limiting",
		"circuit breaker cascading failures",
		"exponential backoff retry",
		"websocket full-duplex",
		"metasearch engine aggregates",
		"inverted index documents",
		"bm25 ranking function",
		"levenshtein distance edits",
		"consistent hashing keys",
		"pizza napoletana lievitazione",
		"pasta alla carbonara guanciale",
		"divina commedia dante",
		"espresso italiano estrazione",
	}
	var cases []QueryTestCase
	for _, q := range queries {
		for _, r := range results {
			if containsAllTerms(r, q) {
				cases = append(cases, QueryTestCase{
					Query:        q,
					ExpectedURLs: []string{r.URL},
					Description:  fmt.Sprintf("query %q returns %s", q, r.URL),
				})
				break
			}
		}
	}
	return cases
}

// containsAllTerms reports whether every space-separated term of query occurs
// in the result's title or snippet, case-insensitively.
func containsAllTerms(r models.Result, query string) bool {
	haystack := strings.ToLower(r.Title + " " + r.Snippet)
	for _, term := range strings.Fields(strings.ToLower(query)) {
		if !strings.Contains(haystack, term) {
			return false
		}
	}
	return true
}
