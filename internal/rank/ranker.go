package rank

import (
	"sort"
	"strings"

	"github.com/matomesearch/matome/internal/models"
	"github.com/matomesearch/matome/pkg/utils"
)

// Scoring weights. Fixed constants: the ranking contract is a transparent
// additive heuristic, not a tunable model.
const (
	exactTitleBonus      = 10.0
	titleKeywordWeight   = 3.0
	exactSnippetBonus    = 5.0
	snippetKeywordWeight = 1.5
	urlKeywordWeight     = 1.0
	authorityBonus       = 3.0
	httpsBonus           = 0.5
	scoreFloor           = 0.1
)

// authorityDomains earn the flat authority bonus when they appear anywhere in
// the URL.
var authorityDomains = []string{
	"wikipedia.org", "github.com", "stackoverflow.com",
	"medium.com", "reddit.com", "nytimes.com", "bbc.com",
	"nature.com", "sciencedirect.com", "arxiv.org",
	"gov", "edu", "ac.uk",
}

// Ranker scores results against a query. Stateless and safe for concurrent
// use.
type Ranker struct{}

// NewRanker creates a Ranker.
func NewRanker() *Ranker {
	return &Ranker{}
}

// Rank scores every result and returns them ordered by score descending.
// Ties keep their input order. The keyword set is the query tokenized on word
// boundaries and lowercased, without stop-word filtering.
func (r *Ranker) Rank(results []models.Result, query string) []models.ScoredResult {
	queryLower := strings.ToLower(query)
	keywords := utils.TokenSet(query)

	scored := make([]models.ScoredResult, len(results))
	for i, res := range results {
		scored[i] = models.ScoredResult{Result: res, Score: score(res, keywords, queryLower)}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored
}

func score(res models.Result, keywords map[string]struct{}, queryLower string) float64 {
	title := strings.ToLower(res.Title)
	snippet := strings.ToLower(res.Snippet)
	url := strings.ToLower(res.URL)

	s := 0.0
	if strings.Contains(title, queryLower) {
		s += exactTitleBonus
	}
	s += float64(keywordOverlap(keywords, title)) * titleKeywordWeight
	if strings.Contains(snippet, queryLower) {
		s += exactSnippetBonus
	}
	s += float64(keywordOverlap(keywords, snippet)) * snippetKeywordWeight
	s += float64(keywordOverlap(keywords, url)) * urlKeywordWeight
	s += domainAuthority(url)
	s += titleShape(title)
	s += snippetShape(snippet)

	if s < scoreFloor {
		return scoreFloor
	}
	return s
}

// keywordOverlap counts distinct query keywords present in the text's word
// set.
func keywordOverlap(keywords map[string]struct{}, text string) int {
	words := utils.TokenSet(text)
	n := 0
	for k := range keywords {
		if _, ok := words[k]; ok {
			n++
		}
	}
	return n
}

func domainAuthority(url string) float64 {
	for _, domain := range authorityDomains {
		if strings.Contains(url, domain) {
			return authorityBonus
		}
	}
	if strings.HasPrefix(url, "https://") {
		return httpsBonus
	}
	return 0
}

// titleShape rewards mid-length titles and penalizes extremes. Titles of
// 16-20 words score zero either way.
func titleShape(title string) float64 {
	switch n := len(strings.Fields(title)); {
	case n >= 3 && n <= 15:
		return 2.0
	case n < 3 || n > 20:
		return -1.0
	default:
		return 0
	}
}

// snippetShape rewards substantial snippets and penalizes near-empty ones.
func snippetShape(snippet string) float64 {
	switch n := len(strings.Fields(snippet)); {
	case n > 15:
		return 1.0
	case n < 5:
		return -1.0
	default:
		return 0
	}
}
