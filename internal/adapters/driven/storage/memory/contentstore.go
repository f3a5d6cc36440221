package memory

import (
	"context"
	"sync"

	"github.com/parchment-labs/extractd/internal/core/domain"
	"github.com/parchment-labs/extractd/internal/core/ports/driven"
)

// Ensure ContentStore implements the interface.
var _ driven.ContentStore = (*ContentStore)(nil)

// ContentStore is an in-memory implementation of driven.ContentStore.
type ContentStore struct {
	mu       sync.RWMutex
	contents map[string]domain.ExtractedContent
}

// NewContentStore creates a new in-memory content store.
func NewContentStore() *ContentStore {
	return &ContentStore{contents: make(map[string]domain.ExtractedContent)}
}

// Save stores or replaces the content record for its file.
func (s *ContentStore) Save(_ context.Context, content *domain.ExtractedContent) error {
	if content == nil {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contents[content.FileID] = *content
	return nil
}

// Get retrieves the content record for a file.
func (s *ContentStore) Get(_ context.Context, fileID string) (*domain.ExtractedContent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	content, ok := s.contents[fileID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &content, nil
}

// Delete removes the content record for a file.
func (s *ContentStore) Delete(_ context.Context, fileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.contents, fileID)
	return nil
}

// List returns all content records.
func (s *ContentStore) List(_ context.Context) ([]domain.ExtractedContent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.ExtractedContent, 0, len(s.contents))
	for id := range s.contents {
		result = append(result, s.contents[id])
	}
	return result, nil
}

// CountByStatus returns the number of records per status.
func (s *ContentStore) CountByStatus(_ context.Context) (map[domain.ExtractionStatus]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[domain.ExtractionStatus]int)
	for id := range s.contents {
		counts[s.contents[id].Status]++
	}
	return counts, nil
}
