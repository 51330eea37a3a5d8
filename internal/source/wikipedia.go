package source

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/matomesearch/matome/internal/models"
)

// endpointFormat takes the wiki language as its single verb.
const wikipediaEndpointFormat = "https://%s.wikipedia.org/w/api.php"

var (
	wikiLangPattern = regexp.MustCompile(`^[a-z]{2,3}$`)
	htmlTagPattern  = regexp.MustCompile(`<[^>]+>`)
)

// Wikipedia queries the MediaWiki search API of the wiki matching the first
// requested language, falling back to the English wiki.
type Wikipedia struct {
	endpointFormat string
	client         *http.Client
}

// NewWikipedia creates the adapter. A nil client falls back to a default
// with a request timeout.
func NewWikipedia(client *http.Client) *Wikipedia {
	if client == nil {
		client = &http.Client{Timeout: defaultClientTimeout}
	}
	return &Wikipedia{endpointFormat: wikipediaEndpointFormat, client: client}
}

// Name implements Adapter.
func (w *Wikipedia) Name() string { return "wikipedia" }

// Fetch runs a full-text search and builds article URLs from the hit titles.
// Snippets arrive as HTML fragments and are stripped to plain text.
func (w *Wikipedia) Fetch(ctx context.Context, query string, languages []string, maxResults int) ([]models.Result, error) {
	lang := wikiLanguage(languages)

	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "search")
	params.Set("format", "json")
	params.Set("srsearch", query)
	params.Set("srlimit", strconv.Itoa(maxResults))
	params.Set("srprop", "snippet")

	endpoint := fmt.Sprintf(w.endpointFormat, lang)
	body, err := fetchBody(ctx, w.client, endpoint+"?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("wikipedia request failed: %w", err)
	}

	var payload struct {
		Query struct {
			Search []struct {
				Title   string `json:"title"`
				Snippet string `json:"snippet"`
			} `json:"search"`
		} `json:"query"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("wikipedia parse failed: %w", err)
	}

	results := make([]models.Result, 0, len(payload.Query.Search))
	for _, hit := range payload.Query.Search {
		results = append(results, models.Result{
			Title:    hit.Title,
			URL:      articleURL(lang, hit.Title),
			Snippet:  stripTags(hit.Snippet),
			Source:   w.Name(),
			Language: lang,
		})
		if len(results) >= maxResults {
			break
		}
	}
	return results, nil
}

func articleURL(lang, title string) string {
	page := url.PathEscape(strings.ReplaceAll(title, " ", "_"))
	return fmt.Sprintf("https://%s.wikipedia.org/wiki/%s", lang, page)
}

// wikiLanguage picks the wiki subdomain from the first requested language,
// accepting only plain short codes.
func wikiLanguage(languages []string) string {
	if len(languages) > 0 {
		lang := strings.ToLower(languages[0])
		if wikiLangPattern.MatchString(lang) {
			return lang
		}
	}
	return "en"
}

func stripTags(s string) string {
	return html.UnescapeString(htmlTagPattern.ReplaceAllString(s, ""))
}
