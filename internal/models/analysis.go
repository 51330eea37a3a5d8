package models

// QueryAnalysis is the structured breakdown of a query produced by the
// analyzer. Pure output: no identity or lifecycle beyond the call.
type QueryAnalysis struct {
	Query            string   `json:"query"`
	Language         string   `json:"language"`
	Intent           string   `json:"intent"`
	Complexity       string   `json:"complexity"`
	Keywords         []string `json:"keywords"`
	Entities         []string `json:"entities"`
	SuggestedSources []string `json:"suggested_sources"`
	SuggestedMode    string   `json:"suggested_mode"`
	IsTechnical      bool     `json:"is_technical"`
	IsSensitive      bool     `json:"is_sensitive"`
	Sentiment        string   `json:"sentiment"`
}
