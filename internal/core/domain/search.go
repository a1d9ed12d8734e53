package domain

// MatchType records which index produced a search result.
type MatchType string

// Match types.
const (
	MatchSemantic MatchType = "semantic"
	MatchKeyword  MatchType = "keyword"
	MatchHybrid   MatchType = "hybrid"
)

// SearchResult represents a single search hit. Results are ephemeral:
// produced per query, never persisted.
type SearchResult struct {
	// Entry is the matched entry.
	Entry Entry

	// Score is the relevance score. Fused scores are rescaled into a
	// 40-100 display range.
	Score float64

	// MatchType records which index (or fusion of both) produced the hit.
	MatchType MatchType
}

// SourceRef is one numbered item in a citation list, paired with the
// context block handed to a downstream generator.
type SourceRef struct {
	// Index is the 1-based citation number used in the context block.
	Index int `json:"index"`

	// Title is the source title.
	Title string `json:"title"`

	// URL is the source location, if known.
	URL string `json:"url,omitempty"`

	// Type is the source kind.
	Type SourceType `json:"type"`

	// Score is the relevance score of the best matching chunk.
	Score float64 `json:"score"`

	// Snippet is a short excerpt (up to 200 characters) of the match.
	Snippet string `json:"snippet"`
}

// SourcedContext is the result of SearchWithSources: a concatenated,
// numbered context block alongside the source list backing it.
type SourcedContext struct {
	// Context is the numbered context block.
	Context string `json:"context"`

	// Sources lists the numbered sources referenced by the context.
	Sources []SourceRef `json:"sources"`
}
