// Package mem implements the search index as an in-process inverted
// index with BM25 ranking.
//
// Writes are rebuild-and-swap: a writer builds a complete new snapshot
// and publishes it with a single atomic pointer store. Readers load
// the current snapshot once and work entirely from it, so a query
// always observes a fully-formed index state, never a torn one.
package mem

import (
	"context"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/parchment-labs/extractd/internal/core/domain"
	"github.com/parchment-labs/extractd/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.SearchIndex = (*Index)(nil)

// BM25 parameters. k1 controls term-frequency saturation, b controls
// document-length normalisation.
const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

// snapshot is one immutable index state. Entries are never mutated
// after publication.
type snapshot struct {
	entries     map[string]*domain.IndexEntry
	totalLength int
}

// Index is the in-memory inverted index.
type Index struct {
	// mu serialises writers; readers never take it.
	mu        sync.Mutex
	current   atomic.Pointer[snapshot]
	stopwords map[string]struct{}
}

// NewIndex creates an empty index. A nil stopwords slice selects the
// built-in set; an empty non-nil slice disables stopword filtering.
func NewIndex(stopwords []string) *Index {
	if stopwords == nil {
		stopwords = defaultStopwords
	}
	set := make(map[string]struct{}, len(stopwords))
	for _, w := range stopwords {
		set[w] = struct{}{}
	}

	idx := &Index{stopwords: set}
	idx.current.Store(&snapshot{entries: map[string]*domain.IndexEntry{}})
	return idx
}

// Index tokenizes content and replaces the entry for fileID by
// publishing a new snapshot. The old entry remains queryable until the
// swap completes.
func (idx *Index) Index(_ context.Context, fileID, content string, indexedAt time.Time) error {
	tokens := idx.Tokenize(content)
	freqs := make(map[string]int, len(tokens))
	for _, t := range tokens {
		freqs[t]++
	}

	entry := &domain.IndexEntry{
		FileID:    fileID,
		Tokens:    freqs,
		Length:    len(tokens),
		IndexedAt: indexedAt,
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.swap(func(entries map[string]*domain.IndexEntry) {
		entries[fileID] = entry
	})
	return nil
}

// Delete removes the entry for fileID, if any.
func (idx *Index) Delete(_ context.Context, fileID string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.swap(func(entries map[string]*domain.IndexEntry) {
		delete(entries, fileID)
	})
	return nil
}

// swap builds and publishes a new snapshot. Callers hold mu.
func (idx *Index) swap(mutate func(map[string]*domain.IndexEntry)) {
	old := idx.current.Load()
	entries := make(map[string]*domain.IndexEntry, len(old.entries)+1)
	for id, e := range old.entries {
		entries[id] = e
	}
	mutate(entries)

	total := 0
	for _, e := range entries {
		total += e.Length
	}
	idx.current.Store(&snapshot{entries: entries, totalLength: total})
}

// Search ranks documents containing query terms with BM25, best first.
// Equal scores are broken by most recent IndexedAt.
func (idx *Index) Search(_ context.Context, query string, allowed map[string]bool) ([]driven.SearchHit, error) {
	terms := idx.Tokenize(query)
	if len(terms) == 0 {
		return nil, nil
	}
	// Deduplicate while keeping query order for highlight generation.
	seen := make(map[string]bool, len(terms))
	unique := terms[:0]
	for _, t := range terms {
		if !seen[t] {
			seen[t] = true
			unique = append(unique, t)
		}
	}
	terms = unique

	snap := idx.current.Load()
	n := len(snap.entries)
	if n == 0 {
		return nil, nil
	}
	avgdl := float64(snap.totalLength) / float64(n)
	if avgdl == 0 {
		avgdl = 1
	}

	// Document frequency per term across the whole corpus. The filter
	// bounds candidates, not the corpus statistics.
	df := make(map[string]int, len(terms))
	for _, e := range snap.entries {
		for _, t := range terms {
			if _, ok := e.Tokens[t]; ok {
				df[t]++
			}
		}
	}

	var hits []driven.SearchHit
	for id, e := range snap.entries {
		if allowed != nil && !allowed[id] {
			continue
		}

		score := 0.0
		var matched []string
		for _, t := range terms {
			tf, ok := e.Tokens[t]
			if !ok {
				continue
			}
			matched = append(matched, t)

			idf := math.Log(1 + (float64(n)-float64(df[t])+0.5)/(float64(df[t])+0.5))
			norm := float64(tf) + bm25K1*(1-bm25B+bm25B*float64(e.Length)/avgdl)
			score += idf * float64(tf) * (bm25K1 + 1) / norm
		}
		if len(matched) == 0 {
			continue
		}

		hits = append(hits, driven.SearchHit{
			FileID:       id,
			Score:        score,
			MatchedTerms: matched,
			IndexedAt:    e.IndexedAt,
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		if !hits[i].IndexedAt.Equal(hits[j].IndexedAt) {
			return hits[i].IndexedAt.After(hits[j].IndexedAt)
		}
		return hits[i].FileID < hits[j].FileID
	})

	return hits, nil
}

// Entry returns the stored entry for a file.
func (idx *Index) Entry(_ context.Context, fileID string) (*domain.IndexEntry, error) {
	snap := idx.current.Load()
	entry, ok := snap.entries[fileID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return entry, nil
}

// Size returns the number of indexed documents.
func (idx *Index) Size(_ context.Context) (int, error) {
	return len(idx.current.Load().entries), nil
}
