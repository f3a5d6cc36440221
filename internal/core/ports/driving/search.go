package driving

import (
	"context"

	"github.com/parchment-labs/extractd/internal/core/domain"
)

// SearchService provides ranked full-text search to external actors.
type SearchService interface {
	// Search executes a free-text query against the index and returns
	// a page of ranked results with highlights.
	Search(ctx context.Context, query string, opts domain.SearchOptions) (*domain.SearchPage, error)
}
