package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/parchment-labs/extractd/internal/core/domain"
	"github.com/parchment-labs/extractd/internal/core/ports/driven"
	"github.com/parchment-labs/extractd/internal/core/ports/driving"
	"github.com/parchment-labs/extractd/internal/logger"
)

// Ensure SearchService implements the interface.
var _ driving.SearchService = (*SearchService)(nil)

// snippetWindow is the number of characters kept either side of the
// first query-term occurrence in a highlight snippet.
const snippetWindow = 50

// maxSnippetLength caps a snippet when no term is found and the
// content head is used instead.
const maxSnippetLength = 500

// SearchService is the query engine. It validates queries, bounds the
// candidate set with filters, delegates ranking to the index, and
// hydrates hits into highlighted results.
type SearchService struct {
	fileStore    driven.FileStore
	contentStore driven.ContentStore
	index        driven.SearchIndex
}

// NewSearchService creates the search service.
func NewSearchService(
	fileStore driven.FileStore,
	contentStore driven.ContentStore,
	index driven.SearchIndex,
) *SearchService {
	return &SearchService{
		fileStore:    fileStore,
		contentStore: contentStore,
		index:        index,
	}
}

// Search executes a free-text query and returns a page of ranked,
// highlighted results. An empty query is domain.ErrInvalidQuery; a
// query with no indexable tokens returns an empty page.
func (s *SearchService) Search(ctx context.Context, query string, opts domain.SearchOptions) (*domain.SearchPage, error) {
	logger.Section("Search Execution")
	logger.Debug("Query: %q", query)

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.ErrInvalidQuery
	}

	opts = opts.Normalise()
	logger.Debug("Limit: %d, Offset: %d", opts.Limit, opts.Offset)

	// Bound the candidate set before scoring when filters are present.
	allowed, err := s.candidateSet(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("resolve filters: %w", err)
	}
	if allowed != nil && len(allowed) == 0 {
		logger.Debug("Filter matched no files")
		return emptyPage(query, opts), nil
	}

	hits, err := s.index.Search(ctx, query, allowed)
	if err != nil {
		return nil, fmt.Errorf("index search: %w", err)
	}
	logger.Debug("Raw hits: %d", len(hits))

	total := len(hits)
	hits = paginateHits(hits, opts.Offset, opts.Limit)

	results := make([]domain.SearchResult, 0, len(hits))
	for _, hit := range hits {
		result, err := s.hydrate(ctx, hit)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				// Deleted between index read and hydration; skip.
				total--
				continue
			}
			return nil, err
		}
		results = append(results, *result)
	}

	logger.Info("Search %q: %d/%d results", query, len(results), total)
	return &domain.SearchPage{
		Results: results,
		Total:   total,
		Query:   query,
		Limit:   opts.Limit,
		Offset:  opts.Offset,
	}, nil
}

// candidateSet returns the allowed file set for the filters, or nil
// when no filter applies.
func (s *SearchService) candidateSet(ctx context.Context, opts domain.SearchOptions) (map[string]bool, error) {
	if len(opts.MIMETypes) == 0 {
		return nil, nil
	}

	wanted := make(map[string]bool, len(opts.MIMETypes))
	for _, mt := range opts.MIMETypes {
		wanted[strings.ToLower(strings.TrimSpace(mt))] = true
	}

	files, err := s.fileStore.List(ctx)
	if err != nil {
		return nil, err
	}

	allowed := make(map[string]bool)
	for i := range files {
		if wanted[strings.ToLower(files[i].MIMEType)] {
			allowed[files[i].ID] = true
		}
	}
	return allowed, nil
}

// hydrate converts an index hit into a full result with snippet and
// highlight spans.
func (s *SearchService) hydrate(ctx context.Context, hit driven.SearchHit) (*domain.SearchResult, error) {
	file, err := s.fileStore.Get(ctx, hit.FileID)
	if err != nil {
		return nil, fmt.Errorf("get file %s: %w", hit.FileID, err)
	}

	content, err := s.contentStore.Get(ctx, hit.FileID)
	if err != nil {
		return nil, fmt.Errorf("get content %s: %w", hit.FileID, err)
	}
	if content.Status != domain.StatusCompleted || content.Content == nil {
		return nil, domain.ErrNotFound
	}

	snippet, highlights := buildSnippet(*content.Content, hit.MatchedTerms)

	return &domain.SearchResult{
		FileID:     file.ID,
		FileName:   file.Name,
		Snippet:    snippet,
		Score:      hit.Score,
		Highlights: highlights,
		IndexedAt:  hit.IndexedAt,
	}, nil
}

// buildSnippet extracts a window around the first query-term
// occurrence and marks every matched term span inside it. When no term
// occurs literally in the content, the content head is returned
// without highlights.
func buildSnippet(content string, terms []string) (string, []domain.Highlight) {
	lower := strings.ToLower(content)

	first := -1
	firstLen := 0
	for _, term := range terms {
		if idx := strings.Index(lower, term); idx >= 0 && (first < 0 || idx < first) {
			first = idx
			firstLen = len(term)
		}
	}

	if first < 0 {
		head := content
		if len(head) > maxSnippetLength {
			head = head[:alignRuneStart(content, maxSnippetLength)]
		}
		return head, nil
	}

	// The window extends past the end of the match, so a term longer
	// than the window still appears whole in its own snippet.
	start := alignRuneStart(content, max(0, first-snippetWindow))
	end := alignRuneStart(content, min(len(content), first+firstLen+snippetWindow))
	snippet := content[start:end]
	snippetLower := lower[start:end]

	var highlights []domain.Highlight
	for _, term := range terms {
		from := 0
		for {
			idx := strings.Index(snippetLower[from:], term)
			if idx < 0 {
				break
			}
			at := from + idx
			highlights = append(highlights, domain.Highlight{
				Term:  term,
				Start: at,
				End:   at + len(term),
			})
			from = at + len(term)
		}
	}

	return snippet, highlights
}

// alignRuneStart moves a byte offset back to the nearest rune boundary
// so snippets never split a multi-byte character.
func alignRuneStart(s string, i int) int {
	for i > 0 && i < len(s) && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}

func paginateHits(hits []driven.SearchHit, offset, limit int) []driven.SearchHit {
	if offset >= len(hits) {
		return nil
	}
	end := offset + limit
	if end > len(hits) {
		end = len(hits)
	}
	return hits[offset:end]
}

func emptyPage(query string, opts domain.SearchOptions) *domain.SearchPage {
	return &domain.SearchPage{
		Results: []domain.SearchResult{},
		Query:   query,
		Limit:   opts.Limit,
		Offset:  opts.Offset,
	}
}
