package driven

import (
	"context"
	"time"

	"github.com/parchment-labs/extractd/internal/core/domain"
)

// SearchHit represents a ranked match from the index.
type SearchHit struct {
	// FileID is the matched file.
	FileID string

	// Score is the BM25 relevance score.
	Score float64

	// MatchedTerms are the query terms present in the document, in
	// query order. Used by the query engine to build highlights.
	MatchedTerms []string

	// IndexedAt is when the entry was built. Tie-breaker for equal
	// scores.
	IndexedAt time.Time
}

// SearchIndex is the inverted index over extracted content.
//
// An entry exists for a file iff its content extraction completed.
// Updates are rebuild-and-swap: readers always observe a fully-formed
// index state, never a partial update.
type SearchIndex interface {
	// Index tokenizes content and replaces the entry for fileID
	// atomically.
	Index(ctx context.Context, fileID, content string, indexedAt time.Time) error

	// Delete removes the entry for fileID, if any.
	Delete(ctx context.Context, fileID string) error

	// Search ranks documents containing query terms, best first.
	// If allowed is non-nil, only files present in it are candidates.
	// A query with no indexable tokens yields no hits and no error.
	Search(ctx context.Context, query string, allowed map[string]bool) ([]SearchHit, error)

	// Entry returns the stored entry for a file, or domain.ErrNotFound.
	Entry(ctx context.Context, fileID string) (*domain.IndexEntry, error)

	// Size returns the number of indexed documents.
	Size(ctx context.Context) (int, error)
}
