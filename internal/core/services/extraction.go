package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/parchment-labs/extractd/internal/core/domain"
	"github.com/parchment-labs/extractd/internal/core/ports/driven"
	"github.com/parchment-labs/extractd/internal/core/ports/driving"
	"github.com/parchment-labs/extractd/internal/logger"
)

// Ensure ExtractionService implements the interface.
var _ driving.ExtractionService = (*ExtractionService)(nil)

// supersededMessage is recorded on tasks cancelled by a forced
// re-extraction.
const supersededMessage = "superseded by forced re-extraction"

// ExtractionService owns the task state machine. It is the only writer
// of tasks and content records besides the stores themselves, and it
// keeps the search index consistent with extraction outcomes: an entry
// exists iff the file's content is completed.
type ExtractionService struct {
	fileStore    driven.FileStore
	taskStore    driven.TaskStore
	contentStore driven.ContentStore
	index        driven.SearchIndex

	// maxRetries is the retry ceiling applied to new tasks.
	maxRetries int

	// now is injectable for tests.
	now func() time.Time
}

// NewExtractionService creates the extraction service.
func NewExtractionService(
	fileStore driven.FileStore,
	taskStore driven.TaskStore,
	contentStore driven.ContentStore,
	index driven.SearchIndex,
) *ExtractionService {
	return &ExtractionService{
		fileStore:    fileStore,
		taskStore:    taskStore,
		contentStore: contentStore,
		index:        index,
		maxRetries:   domain.DefaultMaxRetries,
		now:          time.Now,
	}
}

// SetMaxRetries overrides the retry ceiling for new tasks.
func (s *ExtractionService) SetMaxRetries(n int) {
	if n >= 0 {
		s.maxRetries = n
	}
}

// Trigger requests extraction for a file.
//
// If an active task exists and force is false, it fails with
// domain.ErrConflict. With force, the active task is superseded: it is
// terminated immediately and any result still in flight for it will be
// discarded. The file's content record is reset to pending either way.
func (s *ExtractionService) Trigger(ctx context.Context, fileID string, force bool) (*domain.ExtractionTask, error) {
	if _, err := s.fileStore.Get(ctx, fileID); err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}

	active, err := s.taskStore.GetActive(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("get active task: %w", err)
	}
	if active != nil {
		if !force {
			return nil, domain.ErrConflict
		}
		if err := s.supersede(ctx, active); err != nil {
			return nil, fmt.Errorf("supersede task %s: %w", active.ID, err)
		}
		logger.Info("Superseded task %s for file %s", active.ID, fileID)
	}

	now := s.now()
	task := &domain.ExtractionTask{
		ID:         uuid.NewString(),
		FileID:     fileID,
		Status:     domain.StatusPending,
		MaxRetries: s.maxRetries,
		CreatedAt:  now,
	}
	if err := s.taskStore.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	if err := s.resetContent(ctx, fileID, now); err != nil {
		return nil, fmt.Errorf("reset content: %w", err)
	}

	logger.Debug("Created extraction task %s for file %s (force=%t)", task.ID, fileID, force)
	return task, nil
}

// supersede terminates an active task cancelled by a forced
// re-extraction. The task row is kept for audit; Complete and Fail
// drop results for superseded tasks.
func (s *ExtractionService) supersede(ctx context.Context, task *domain.ExtractionTask) error {
	now := s.now()
	msg := supersededMessage
	task.Superseded = true
	task.Status = domain.StatusFailed
	task.ErrorMessage = &msg
	task.CompletedAt = &now
	return s.taskStore.Update(ctx, task)
}

// resetContent upserts the file's content record back to pending.
func (s *ExtractionService) resetContent(ctx context.Context, fileID string, now time.Time) error {
	content, err := s.contentStore.Get(ctx, fileID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		content = &domain.ExtractedContent{
			FileID:    fileID,
			CreatedAt: now,
		}
	}
	content.Status = domain.StatusPending
	content.Content = nil
	content.ErrorMessage = nil
	content.UpdatedAt = now
	return s.contentStore.Save(ctx, content)
}

// Complete records a successful extraction: the task becomes
// completed, the content record is written, and the index entry for
// the file is rebuilt. Results for superseded tasks are discarded.
func (s *ExtractionService) Complete(ctx context.Context, taskID, text string, metadata map[string]any) error {
	task, err := s.taskStore.Get(ctx, taskID)
	if err != nil {
		return fmt.Errorf("get task: %w", err)
	}
	if task.Superseded {
		logger.Debug("Dropping result for superseded task %s", taskID)
		return nil
	}
	if task.Status.Terminal() {
		return domain.ErrTaskTerminal
	}

	now := s.now()
	task.Status = domain.StatusCompleted
	task.ErrorMessage = nil
	task.CompletedAt = &now
	if err := s.taskStore.Update(ctx, task); err != nil {
		return fmt.Errorf("update task: %w", err)
	}

	content := &domain.ExtractedContent{
		FileID:    task.FileID,
		Content:   &text,
		Metadata:  metadata,
		Status:    domain.StatusCompleted,
		UpdatedAt: now,
	}
	if existing, err := s.contentStore.Get(ctx, task.FileID); err == nil {
		content.CreatedAt = existing.CreatedAt
	} else {
		content.CreatedAt = now
	}
	if err := s.contentStore.Save(ctx, content); err != nil {
		return fmt.Errorf("save content: %w", err)
	}

	if err := s.index.Index(ctx, task.FileID, text, now); err != nil {
		return fmt.Errorf("index content: %w", err)
	}

	logger.Info("Task %s completed: %d characters extracted for file %s", taskID, len(text), task.FileID)
	return nil
}

// Fail records a failed extraction attempt. While retries remain the
// task re-enters pending with an exponential-backoff NotBefore;
// on exhaustion it becomes terminally failed, the content record is
// marked failed, and any index entry for the file is removed so stale
// content is not searchable.
func (s *ExtractionService) Fail(ctx context.Context, taskID string, cause error) error {
	task, err := s.taskStore.Get(ctx, taskID)
	if err != nil {
		return fmt.Errorf("get task: %w", err)
	}
	if task.Superseded {
		logger.Debug("Dropping failure for superseded task %s", taskID)
		return nil
	}
	if task.Status.Terminal() {
		return domain.ErrTaskTerminal
	}

	now := s.now()
	msg := cause.Error()
	task.RetryCount++
	task.ErrorMessage = &msg

	if !task.RetriesExhausted() {
		delay := domain.RetryDelay(task.RetryCount)
		task.Status = domain.StatusPending
		task.StartedAt = nil
		task.NotBefore = now.Add(delay)
		if err := s.taskStore.Update(ctx, task); err != nil {
			return fmt.Errorf("update task: %w", err)
		}
		logger.Warn("Task %s failed (attempt %d/%d), retrying in %s: %v",
			taskID, task.RetryCount, task.MaxRetries, delay.Round(time.Millisecond), cause)
		return nil
	}

	task.Status = domain.StatusFailed
	task.CompletedAt = &now
	if err := s.taskStore.Update(ctx, task); err != nil {
		return fmt.Errorf("update task: %w", err)
	}

	content, err := s.contentStore.Get(ctx, task.FileID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("get content: %w", err)
		}
		content = &domain.ExtractedContent{FileID: task.FileID, CreatedAt: now}
	}
	content.Status = domain.StatusFailed
	content.Content = nil
	content.ErrorMessage = &msg
	content.UpdatedAt = now
	if err := s.contentStore.Save(ctx, content); err != nil {
		return fmt.Errorf("save content: %w", err)
	}

	if err := s.index.Delete(ctx, task.FileID); err != nil {
		return fmt.Errorf("remove index entry: %w", err)
	}

	logger.Warn("Task %s failed terminally after %d attempts: %v", taskID, task.RetryCount, cause)
	return nil
}

// Requeue returns a claimed task to pending without consuming a retry.
// Used when the circuit breaker rejected the call before the service
// was ever contacted.
func (s *ExtractionService) Requeue(ctx context.Context, taskID string, delay time.Duration) error {
	task, err := s.taskStore.Get(ctx, taskID)
	if err != nil {
		return fmt.Errorf("get task: %w", err)
	}
	if task.Superseded || task.Status.Terminal() {
		return nil
	}

	task.Status = domain.StatusPending
	task.StartedAt = nil
	task.NotBefore = s.now().Add(delay)
	if err := s.taskStore.Update(ctx, task); err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	logger.Debug("Requeued task %s for %s (circuit open)", taskID, delay.Round(time.Millisecond))
	return nil
}

// RebuildIndex reindexes every completed content record. Called at
// startup so a durable store repopulates the in-memory index.
func (s *ExtractionService) RebuildIndex(ctx context.Context) error {
	contents, err := s.contentStore.List(ctx)
	if err != nil {
		return fmt.Errorf("list content: %w", err)
	}

	indexed := 0
	for i := range contents {
		c := &contents[i]
		if c.Status != domain.StatusCompleted || c.Content == nil {
			continue
		}
		if err := s.index.Index(ctx, c.FileID, *c.Content, c.UpdatedAt); err != nil {
			return fmt.Errorf("index %s: %w", c.FileID, err)
		}
		indexed++
	}

	logger.Info("Rebuilt search index: %d documents", indexed)
	return nil
}

// GetTask retrieves a task by ID.
func (s *ExtractionService) GetTask(ctx context.Context, taskID string) (*domain.ExtractionTask, error) {
	return s.taskStore.Get(ctx, taskID)
}

// ListTasks returns tasks matching the filter, newest first.
func (s *ExtractionService) ListTasks(ctx context.Context, filter driven.TaskFilter) ([]domain.ExtractionTask, error) {
	return s.taskStore.List(ctx, filter)
}

// GetContent retrieves the extracted content for a file.
func (s *ExtractionService) GetContent(ctx context.Context, fileID string) (*domain.ExtractedContent, error) {
	return s.contentStore.Get(ctx, fileID)
}

// DeleteContent removes extracted content and its index entry.
func (s *ExtractionService) DeleteContent(ctx context.Context, fileID string) error {
	if _, err := s.contentStore.Get(ctx, fileID); err != nil {
		return err
	}
	if err := s.contentStore.Delete(ctx, fileID); err != nil {
		return fmt.Errorf("delete content: %w", err)
	}
	if err := s.index.Delete(ctx, fileID); err != nil {
		return fmt.Errorf("remove index entry: %w", err)
	}
	return nil
}
