package driven

import (
	"context"

	"github.com/parchment-labs/extractd/internal/core/domain"
)

// ContentStore persists extracted content records.
// Exactly one record exists per file.
type ContentStore interface {
	// Save stores or replaces the content record for its file.
	Save(ctx context.Context, content *domain.ExtractedContent) error

	// Get retrieves the content record for a file.
	// Returns domain.ErrNotFound if absent.
	Get(ctx context.Context, fileID string) (*domain.ExtractedContent, error)

	// Delete removes the content record for a file.
	Delete(ctx context.Context, fileID string) error

	// List returns all content records.
	List(ctx context.Context) ([]domain.ExtractedContent, error)

	// CountByStatus returns the number of records per status.
	CountByStatus(ctx context.Context) (map[domain.ExtractionStatus]int, error)
}

// FileStore persists registered files. Upload and byte storage are
// external; this store only tracks identity and location.
type FileStore interface {
	// Save registers a file or updates its registration.
	Save(ctx context.Context, file *domain.File) error

	// Get retrieves a file by ID. Returns domain.ErrNotFound if absent.
	Get(ctx context.Context, id string) (*domain.File, error)

	// GetByPath retrieves a file by its stored path, or nil and no
	// error if none is registered for the path.
	GetByPath(ctx context.Context, path string) (*domain.File, error)

	// List returns all registered files.
	List(ctx context.Context) ([]domain.File, error)

	// Delete removes a file registration.
	Delete(ctx context.Context, id string) error
}
