package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/parchment-labs/extractd/internal/core/domain"
	"github.com/parchment-labs/extractd/internal/core/ports/driven"
)

// Ensure FileStore implements the interface.
var _ driven.FileStore = (*FileStore)(nil)

// FileStore is an in-memory implementation of driven.FileStore.
type FileStore struct {
	mu    sync.RWMutex
	files map[string]domain.File
}

// NewFileStore creates a new in-memory file store.
func NewFileStore() *FileStore {
	return &FileStore{files: make(map[string]domain.File)}
}

// Save registers a file or updates its registration.
func (s *FileStore) Save(_ context.Context, file *domain.File) error {
	if file == nil {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[file.ID] = *file
	return nil
}

// Get retrieves a file by ID.
func (s *FileStore) Get(_ context.Context, id string) (*domain.File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	file, ok := s.files[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &file, nil
}

// GetByPath retrieves a file by its stored path.
func (s *FileStore) GetByPath(_ context.Context, path string) (*domain.File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for id := range s.files {
		file := s.files[id]
		if file.Path == path {
			return &file, nil
		}
	}
	return nil, nil
}

// List returns all registered files, oldest first.
func (s *FileStore) List(_ context.Context) ([]domain.File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.File, 0, len(s.files))
	for id := range s.files {
		result = append(result, s.files[id])
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// Delete removes a file registration.
func (s *FileStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, id)
	return nil
}
