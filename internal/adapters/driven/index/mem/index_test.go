package mem

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	idx := NewIndex(nil)

	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"lowercases", "Hello WORLD", []string{"hello", "world"}},
		{"splits on punctuation", "foo-bar_baz,qux", []string{"foo", "bar", "baz", "qux"}},
		{"drops short tokens", "a go run I x7", []string{"go", "run", "x7"}},
		{"drops stopwords", "the quick fox and the dog", []string{"quick", "fox", "dog"}},
		{"keeps digits", "invoice 2026 q3", []string{"invoice", "2026", "q3"}},
		{"empty", "   ", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, idx.Tokenize(tt.input))
		})
	}
}

func TestTokenize_StopwordsDisabled(t *testing.T) {
	idx := NewIndex([]string{})
	assert.Equal(t, []string{"the", "and"}, idx.Tokenize("the and"))
}

func TestTokenize_CustomStopwords(t *testing.T) {
	idx := NewIndex([]string{"lorem"})
	assert.Equal(t, []string{"the", "ipsum"}, idx.Tokenize("the lorem ipsum"))
}

func TestIndex_EntryAndSize(t *testing.T) {
	idx := NewIndex(nil)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, idx.Index(ctx, "f1", "alpha beta alpha", now))

	entry, err := idx.Entry(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, 3, entry.Length)
	assert.Equal(t, 2, entry.Tokens["alpha"])
	assert.Equal(t, 1, entry.Tokens["beta"])
	assert.Equal(t, now, entry.IndexedAt)

	size, err := idx.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, size)

	// Re-indexing replaces the entry, not duplicates it.
	require.NoError(t, idx.Index(ctx, "f1", "gamma", now))
	entry, err = idx.Entry(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, 1, entry.Length)

	size, err = idx.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, size)
}

func TestIndex_Delete(t *testing.T) {
	idx := NewIndex(nil)
	ctx := context.Background()

	require.NoError(t, idx.Index(ctx, "f1", "alpha", time.Now()))
	require.NoError(t, idx.Delete(ctx, "f1"))

	_, err := idx.Entry(ctx, "f1")
	assert.Error(t, err)

	// Deleting an absent entry is a no-op.
	require.NoError(t, idx.Delete(ctx, "missing"))
}

func TestSearch_TermFrequencyOrdering(t *testing.T) {
	idx := NewIndex(nil)
	ctx := context.Background()
	now := time.Now()

	// Same length, different term frequency: the denser document must
	// score higher.
	require.NoError(t, idx.Index(ctx, "dense",
		strings.Repeat("invoice ", 5)+"one two three four five", now))
	require.NoError(t, idx.Index(ctx, "sparse",
		"invoice one two three four five six seven eight nine", now))
	require.NoError(t, idx.Index(ctx, "unrelated",
		"completely different content with no match", now))

	hits, err := idx.Search(ctx, "invoice", nil)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "dense", hits[0].FileID)
	assert.Equal(t, "sparse", hits[1].FileID)
	assert.Greater(t, hits[0].Score, hits[1].Score)
	assert.Equal(t, []string{"invoice"}, hits[0].MatchedTerms)
}

func TestSearch_RareTermScoresHigher(t *testing.T) {
	idx := NewIndex(nil)
	ctx := context.Background()
	now := time.Now()

	// "common" appears everywhere, "rare" once. For a document holding
	// both once, the rare term contributes more.
	require.NoError(t, idx.Index(ctx, "f1", "common rare", now))
	require.NoError(t, idx.Index(ctx, "f2", "common filler", now))
	require.NoError(t, idx.Index(ctx, "f3", "common filler", now))

	hits, err := idx.Search(ctx, "common rare", nil)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "f1", hits[0].FileID)
	assert.ElementsMatch(t, []string{"common", "rare"}, hits[0].MatchedTerms)
}

func TestSearch_TieBreak(t *testing.T) {
	idx := NewIndex(nil)
	ctx := context.Background()
	older := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, idx.Index(ctx, "b-old", "same words here", older))
	require.NoError(t, idx.Index(ctx, "a-new", "same words here", older.Add(time.Hour)))

	hits, err := idx.Search(ctx, "words", nil)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "a-new", hits[0].FileID)

	// Equal timestamps fall back to FileID order for determinism.
	require.NoError(t, idx.Index(ctx, "a-new", "same words here", older))
	hits, err = idx.Search(ctx, "words", nil)
	require.NoError(t, err)
	assert.Equal(t, "a-new", hits[0].FileID)
	assert.Equal(t, "b-old", hits[1].FileID)
}

func TestSearch_AllowedFilter(t *testing.T) {
	idx := NewIndex(nil)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, idx.Index(ctx, "f1", "shared term", now))
	require.NoError(t, idx.Index(ctx, "f2", "shared term", now))

	hits, err := idx.Search(ctx, "shared", map[string]bool{"f2": true})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "f2", hits[0].FileID)
}

func TestSearch_NoTokens(t *testing.T) {
	idx := NewIndex(nil)
	ctx := context.Background()

	require.NoError(t, idx.Index(ctx, "f1", "something", time.Now()))

	hits, err := idx.Search(ctx, "the of a", nil)
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = idx.Search(ctx, "", nil)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearch_EmptyIndex(t *testing.T) {
	idx := NewIndex(nil)

	hits, err := idx.Search(context.Background(), "anything", nil)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestIndex_ConcurrentReadsDuringWrites(t *testing.T) {
	idx := NewIndex(nil)
	ctx := context.Background()

	require.NoError(t, idx.Index(ctx, "stable", "always present term", time.Now()))

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			_ = idx.Index(ctx, "churn", "always changing term", time.Now())
			_ = idx.Delete(ctx, "churn")
		}
	}()

	// Readers must always observe a consistent snapshot containing the
	// stable document.
	for i := 0; i < 500; i++ {
		hits, err := idx.Search(ctx, "always", nil)
		require.NoError(t, err)
		found := false
		for _, h := range hits {
			if h.FileID == "stable" {
				found = true
			}
		}
		assert.True(t, found)
	}

	close(stop)
	wg.Wait()
}
