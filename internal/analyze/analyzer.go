// Package analyze classifies search queries: language, intent, keywords,
// entities, complexity, technical/sensitive flags, and advisory source
// suggestions. Analysis is deterministic and performs no I/O.
package analyze

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/abadojack/whatlanggo"
	"github.com/matomesearch/matome/internal/models"
	"github.com/matomesearch/matome/pkg/utils"
)

// Keyword and entity caps keep the analysis output bounded regardless of
// query length.
const (
	maxKeywords = 10
	maxEntities = 5
)

var technicalVocab = wordSet(
	"api", "sdk", "library", "framework", "code", "programming",
	"python", "javascript", "java", "c++", "database", "sql",
	"algorithm", "function", "class", "method", "error", "bug",
	"install", "configuration", "docker", "kubernetes", "git",
)

var sensitiveVocab = wordSet(
	"password", "hack", "exploit", "vulnerability", "leak",
	"breach", "illegal", "piracy", "crack", "warez",
)

var stopWords = wordSet(
	"the", "a", "an", "is", "are", "in", "on", "at", "to", "for",
	"il", "lo", "la", "i", "gli", "le", "di", "da", "con", "su", "per", "tra", "fra",
)

var positiveWords = wordSet(
	"best", "good", "great", "excellent", "amazing", "love",
	"migliore", "ottimo", "eccellente", "fantastico",
)

var negativeWords = wordSet(
	"worst", "bad", "terrible", "hate", "awful", "problem",
	"peggiore", "brutto", "terribile", "problema", "errore",
)

// intentPatterns is an ordered table: the first intent whose any pattern
// matches the lowercased query wins, so the order is part of the contract.
// Accent-final Italian patterns omit the trailing \b because RE2 word
// boundaries are ASCII-only.
var intentPatterns = []struct {
	label    string
	patterns []*regexp.Regexp
}{
	{"how_to", compileAll(`\bhow to\b`, `\bhow do i\b`, `\bhow can i\b`, `\bcome\b`)},
	{"what_is", compileAll(`\bwhat is\b`, `\bwhat are\b`, `\bdefine\b`, `\bcosa è`, `\bcosa sono\b`)},
	{"where", compileAll(`\bwhere\b`, `\bdove\b`)},
	{"when", compileAll(`\bwhen\b`, `\bquando\b`)},
	{"why", compileAll(`\bwhy\b`, `\bperch[éè]`)},
	{"comparison", compileAll(`\bvs\b`, `\bversus\b`, `\bcompare\b`, `\bdifference\b`, `\bconfrontare\b`)},
	{"best", compileAll(`\bbest\b`, `\btop\b`, `\bmigliore\b`, `\bmigliori\b`)},
	{"review", compileAll(`\breview\b`, `\breviews\b`, `\brecensione\b`, `\brecensioni\b`)},
	{"buy", compileAll(`\bbuy\b`, `\bpurchase\b`, `\bprice\b`, `\bcost\b`, `\bcomprare\b`, `\bprezzo\b`)},
	{"tutorial", compileAll(`\btutorial\b`, `\bguide\b`, `\bguida\b`)},
}

var entityPattern = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*\b`)

// langCodes maps detector candidates to the ISO 639-1 codes the service
// reports. Detection is restricted to these languages so short queries do not
// drift into implausible candidates.
var langCodes = map[whatlanggo.Lang]string{
	whatlanggo.Eng: "en",
	whatlanggo.Ita: "it",
	whatlanggo.Fra: "fr",
	whatlanggo.Deu: "de",
	whatlanggo.Spa: "es",
	whatlanggo.Por: "pt",
}

// Analyzer performs query analysis. Stateless and safe for concurrent use.
type Analyzer struct {
	langOptions whatlanggo.Options
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer() *Analyzer {
	whitelist := make(map[whatlanggo.Lang]bool, len(langCodes))
	for lang := range langCodes {
		whitelist[lang] = true
	}
	return &Analyzer{langOptions: whatlanggo.Options{Whitelist: whitelist}}
}

// Analyze returns the structured analysis of query.
func (a *Analyzer) Analyze(query string) *models.QueryAnalysis {
	lower := strings.ToLower(query)
	words := strings.Fields(lower)

	intent := a.detectIntent(lower)
	technical := intersects(words, technicalVocab)

	return &models.QueryAnalysis{
		Query:            query,
		Language:         a.detectLanguage(query),
		Intent:           intent,
		Complexity:       assessComplexity(query),
		Keywords:         extractKeywords(query),
		Entities:         extractEntities(query),
		SuggestedSources: suggestSources(intent, technical),
		SuggestedMode:    suggestMode(technical),
		IsTechnical:      technical,
		IsSensitive:      intersects(words, sensitiveVocab),
		Sentiment:        detectSentiment(words),
	}
}

// detectLanguage maps the query to an ISO 639-1 code, best effort. Detection
// never fails the analysis; input outside the candidate set maps to "unknown".
func (a *Analyzer) detectLanguage(query string) string {
	info := whatlanggo.DetectWithOptions(query, a.langOptions)
	if code, ok := langCodes[info.Lang]; ok {
		return code
	}
	return "unknown"
}

// detectIntent walks the ordered pattern table and returns the first matching
// intent. Queries matching nothing fall back to "question" when a question
// mark is present, else "informational".
func (a *Analyzer) detectIntent(lower string) string {
	for _, entry := range intentPatterns {
		for _, p := range entry.patterns {
			if p.MatchString(lower) {
				return entry.label
			}
		}
	}
	if strings.Contains(lower, "?") {
		return "question"
	}
	return "informational"
}

// extractKeywords tokenizes the query, drops stop words and tokens of at most
// two runes, and caps the list at maxKeywords.
func extractKeywords(query string) []string {
	keywords := make([]string, 0, maxKeywords)
	for _, w := range utils.Tokenize(query) {
		if _, stop := stopWords[w]; stop {
			continue
		}
		if utf8.RuneCountInString(w) <= 2 {
			continue
		}
		keywords = append(keywords, w)
		if len(keywords) == maxKeywords {
			break
		}
	}
	return keywords
}

// extractEntities captures consecutive capitalized-word runs as entity
// candidates, deduplicated in first-occurrence order and capped.
func extractEntities(query string) []string {
	seen := make(map[string]bool)
	entities := make([]string, 0, maxEntities)
	for _, m := range entityPattern.FindAllString(query, -1) {
		if seen[m] {
			continue
		}
		seen[m] = true
		entities = append(entities, m)
		if len(entities) == maxEntities {
			break
		}
	}
	return entities
}

// assessComplexity buckets the raw whitespace word count.
func assessComplexity(query string) string {
	switch n := len(strings.Fields(query)); {
	case n <= 3:
		return "simple"
	case n <= 7:
		return "moderate"
	default:
		return "complex"
	}
}

// suggestSources always proposes duckduckgo, adding wikipedia for technical
// queries and for tutorial/how-to intents. Purely a function of intent and
// the technical flag.
func suggestSources(intent string, technical bool) []string {
	sources := []string{"duckduckgo"}
	if technical || intent == "tutorial" || intent == "how_to" {
		sources = append(sources, "wikipedia")
	}
	return sources
}

func suggestMode(technical bool) string {
	if technical {
		return models.ModeCrawling
	}
	return models.ModeAggregation
}

// detectSentiment checks the query words against the positive and negative
// lexicons. Hits in both sets, or in neither, read as neutral.
func detectSentiment(words []string) string {
	pos := intersects(words, positiveWords)
	neg := intersects(words, negativeWords)
	switch {
	case pos && !neg:
		return "positive"
	case neg && !pos:
		return "negative"
	default:
		return "neutral"
	}
}

func intersects(words []string, vocab map[string]struct{}) bool {
	for _, w := range words {
		if _, ok := vocab[w]; ok {
			return true
		}
	}
	return false
}

func wordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func compileAll(exprs ...string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		compiled[i] = regexp.MustCompile(e)
	}
	return compiled
}
