package source

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/matomesearch/matome/internal/models"
)

const duckduckgoEndpoint = "https://duckduckgo.com/html/"

// DuckDuckGo scrapes the HTML search endpoint. Result rows are .result
// containers holding a .result__a link and a .result__snippet; hrefs are
// redirect links of the form /l/?uddg=<encoded> and are unwrapped to their
// destination.
type DuckDuckGo struct {
	endpoint string
	client   *http.Client
}

// NewDuckDuckGo creates the adapter. A nil client falls back to a default
// with a request timeout.
func NewDuckDuckGo(client *http.Client) *DuckDuckGo {
	if client == nil {
		client = &http.Client{Timeout: defaultClientTimeout}
	}
	return &DuckDuckGo{endpoint: duckduckgoEndpoint, client: client}
}

// Name implements Adapter.
func (d *DuckDuckGo) Name() string { return "duckduckgo" }

// Fetch retrieves organic results. The endpoint does not expose per-result
// language, so results are tagged with the first requested language.
func (d *DuckDuckGo) Fetch(ctx context.Context, query string, languages []string, maxResults int) ([]models.Result, error) {
	params := url.Values{}
	params.Set("q", query)

	body, err := fetchBody(ctx, d.client, d.endpoint+"?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("duckduckgo request failed: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("duckduckgo parse failed: %w", err)
	}

	language := firstLanguage(languages)
	results := make([]models.Result, 0, maxResults)
	doc.Find(".result").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		link := sel.Find(".result__a").First()
		if link.Length() == 0 {
			return true
		}
		href, _ := link.Attr("href")
		resultURL := unwrapRedirect(href)
		if resultURL == "" {
			return true
		}
		results = append(results, models.Result{
			Title:    strings.TrimSpace(link.Text()),
			URL:      resultURL,
			Snippet:  strings.TrimSpace(sel.Find(".result__snippet").First().Text()),
			Source:   d.Name(),
			Language: language,
		})
		return len(results) < maxResults
	})

	return results, nil
}

// unwrapRedirect resolves DuckDuckGo's /l/?uddg=<encoded> redirect hrefs to
// their destination URL. Absolute hrefs pass through unchanged.
func unwrapRedirect(href string) string {
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	parsed, err := url.Parse(href)
	if err != nil {
		return href
	}
	if strings.HasPrefix(parsed.Path, "/l/") {
		if dest := parsed.Query().Get("uddg"); dest != "" {
			return dest
		}
	}
	return href
}
