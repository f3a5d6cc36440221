// Package memory provides in-memory implementations of the driven
// storage ports. Used for tests and for running without a durable
// store.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/parchment-labs/extractd/internal/core/domain"
	"github.com/parchment-labs/extractd/internal/core/ports/driven"
)

// Ensure TaskStore implements the interface.
var _ driven.TaskStore = (*TaskStore)(nil)

// TaskStore is an in-memory implementation of driven.TaskStore.
// The claim path holds the store lock for the whole select-and-mark,
// which gives the same mutual exclusion a transactional UPDATE gives
// the SQLite store.
type TaskStore struct {
	mu    sync.RWMutex
	tasks map[string]domain.ExtractionTask
}

// NewTaskStore creates a new in-memory task store.
func NewTaskStore() *TaskStore {
	return &TaskStore{tasks: make(map[string]domain.ExtractionTask)}
}

// Create persists a new task.
func (s *TaskStore) Create(_ context.Context, task *domain.ExtractionTask) error {
	if task == nil {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[task.ID] = *task
	return nil
}

// Get retrieves a task by ID.
func (s *TaskStore) Get(_ context.Context, taskID string) (*domain.ExtractionTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	task, ok := s.tasks[taskID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &task, nil
}

// GetActive returns the pending or processing task for a file.
func (s *TaskStore) GetActive(_ context.Context, fileID string) (*domain.ExtractionTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for id := range s.tasks {
		task := s.tasks[id]
		if task.FileID == fileID && task.Status.Active() {
			return &task, nil
		}
	}
	return nil, nil
}

// ClaimNext atomically claims the oldest eligible pending task.
func (s *TaskStore) ClaimNext(_ context.Context, now time.Time) (*domain.ExtractionTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var best *domain.ExtractionTask
	for id := range s.tasks {
		task := s.tasks[id]
		if task.Status != domain.StatusPending {
			continue
		}
		if task.NotBefore.After(now) {
			continue
		}
		if best == nil || task.CreatedAt.Before(best.CreatedAt) {
			t := task
			best = &t
		}
	}
	if best == nil {
		return nil, nil
	}

	started := now
	best.Status = domain.StatusProcessing
	best.StartedAt = &started
	s.tasks[best.ID] = *best
	return best, nil
}

// Update persists task mutations.
func (s *TaskStore) Update(_ context.Context, task *domain.ExtractionTask) error {
	if task == nil {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[task.ID]; !ok {
		return domain.ErrNotFound
	}
	s.tasks[task.ID] = *task
	return nil
}

// List returns tasks matching the filter, newest first.
func (s *TaskStore) List(_ context.Context, filter driven.TaskFilter) ([]domain.ExtractionTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var tasks []domain.ExtractionTask
	for id := range s.tasks {
		task := s.tasks[id]
		if filter.FileID != "" && task.FileID != filter.FileID {
			continue
		}
		if filter.Status != "" && task.Status != filter.Status {
			continue
		}
		tasks = append(tasks, task)
	}

	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(tasks) {
			return nil, nil
		}
		tasks = tasks[filter.Offset:]
	}
	if filter.Limit > 0 && len(tasks) > filter.Limit {
		tasks = tasks[:filter.Limit]
	}
	return tasks, nil
}

// CountByStatus returns the number of tasks per status.
func (s *TaskStore) CountByStatus(_ context.Context) (map[domain.ExtractionStatus]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[domain.ExtractionStatus]int)
	for id := range s.tasks {
		counts[s.tasks[id].Status]++
	}
	return counts, nil
}
