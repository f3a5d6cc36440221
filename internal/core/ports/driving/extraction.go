package driving

import (
	"context"

	"github.com/parchment-labs/extractd/internal/core/domain"
	"github.com/parchment-labs/extractd/internal/core/ports/driven"
)

// ExtractionService drives the extraction task pipeline.
type ExtractionService interface {
	// Trigger requests extraction for a file. If an active task exists
	// and force is false it fails with domain.ErrConflict; with force
	// the active task is superseded and a new one created.
	Trigger(ctx context.Context, fileID string, force bool) (*domain.ExtractionTask, error)

	// GetTask retrieves a task by ID.
	GetTask(ctx context.Context, taskID string) (*domain.ExtractionTask, error)

	// ListTasks returns tasks matching the filter, newest first.
	ListTasks(ctx context.Context, filter driven.TaskFilter) ([]domain.ExtractionTask, error)

	// GetContent retrieves the extracted content for a file.
	GetContent(ctx context.Context, fileID string) (*domain.ExtractedContent, error)

	// DeleteContent removes extracted content and its index entry.
	DeleteContent(ctx context.Context, fileID string) error
}
