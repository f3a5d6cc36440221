package driven

import (
	"context"
	"time"

	"github.com/parchment-labs/extractd/internal/core/domain"
)

// TaskFilter narrows task listings.
type TaskFilter struct {
	// FileID filters to tasks for one file. Empty means all files.
	FileID string

	// Status filters to one lifecycle state. Empty means all states.
	Status domain.ExtractionStatus

	// Limit and Offset paginate the listing. Limit 0 means no limit.
	Limit  int
	Offset int
}

// TaskStore persists extraction tasks.
//
// ClaimNext is the synchronisation point of the whole pipeline: it must
// atomically select and mark a task so that no two concurrent callers
// ever claim the same task.
type TaskStore interface {
	// Create persists a new task.
	Create(ctx context.Context, task *domain.ExtractionTask) error

	// Get retrieves a task by ID. Returns domain.ErrNotFound if absent.
	Get(ctx context.Context, taskID string) (*domain.ExtractionTask, error)

	// GetActive returns the pending or processing task for a file,
	// or nil and no error if none exists.
	GetActive(ctx context.Context, fileID string) (*domain.ExtractionTask, error)

	// ClaimNext atomically selects the oldest pending task whose
	// NotBefore is not after now, marks it processing and sets
	// StartedAt. Returns nil and no error when no task is eligible.
	ClaimNext(ctx context.Context, now time.Time) (*domain.ExtractionTask, error)

	// Update persists task mutations. Returns domain.ErrNotFound if
	// the task does not exist.
	Update(ctx context.Context, task *domain.ExtractionTask) error

	// List returns tasks matching the filter, newest first.
	List(ctx context.Context, filter TaskFilter) ([]domain.ExtractionTask, error)

	// CountByStatus returns the number of tasks per status.
	CountByStatus(ctx context.Context) (map[domain.ExtractionStatus]int, error)
}
