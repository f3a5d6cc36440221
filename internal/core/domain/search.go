package domain

import "time"

// Search limits. Callers get DefaultSearchLimit results unless they
// ask for more, and never more than MaxSearchLimit.
const (
	DefaultSearchLimit = 10
	MaxSearchLimit     = 100
)

// SearchOptions configures a search query.
type SearchOptions struct {
	// Limit is the maximum number of results.
	Limit int

	// Offset is the number of results to skip.
	Offset int

	// MIMETypes filters candidates to specific file types before
	// scoring. Empty means no filter.
	MIMETypes []string
}

// Normalise clamps the options to the allowed ranges.
func (o SearchOptions) Normalise() SearchOptions {
	if o.Limit <= 0 {
		o.Limit = DefaultSearchLimit
	}
	if o.Limit > MaxSearchLimit {
		o.Limit = MaxSearchLimit
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}

// Highlight marks a matched query term inside a snippet.
type Highlight struct {
	// Term is the query term that matched.
	Term string

	// Start is the byte offset of the match within the snippet.
	Start int

	// End is the byte offset just past the match within the snippet.
	End int
}

// SearchResult represents a single ranked search hit.
type SearchResult struct {
	// FileID is the matched file.
	FileID string

	// FileName is the original file name.
	FileName string

	// Snippet is a window of content around the first query-term
	// occurrence.
	Snippet string

	// Score is the BM25 relevance score.
	Score float64

	// Highlights are matched term spans within Snippet.
	Highlights []Highlight

	// IndexedAt is when the entry was last indexed. Used as the
	// tie-breaker for equal scores.
	IndexedAt time.Time
}

// SearchPage is a paginated search response.
type SearchPage struct {
	// Results are the ranked hits for this page.
	Results []SearchResult

	// Total is the number of matches before pagination.
	Total int

	// Query is the original query string.
	Query string

	// Limit and Offset echo the effective pagination.
	Limit  int
	Offset int
}
