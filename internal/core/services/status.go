package services

import (
	"context"
	"fmt"

	"github.com/parchment-labs/extractd/internal/core/domain"
	"github.com/parchment-labs/extractd/internal/core/ports/driven"
	"github.com/parchment-labs/extractd/internal/core/ports/driving"
)

// Ensure StatusReporter implements the interface.
var _ driving.StatusReporter = (*StatusReporter)(nil)

// StatusReporter aggregates pipeline state for polling clients.
// It is a pure read with no side effects; staleness up to one polling
// interval is acceptable.
type StatusReporter struct {
	fileStore    driven.FileStore
	contentStore driven.ContentStore
	taskStore    driven.TaskStore
	index        driven.SearchIndex
	extractor    driven.Extractor
}

// NewStatusReporter creates the status reporter. The extractor is
// optional; without it the breaker state is reported as unknown.
func NewStatusReporter(
	fileStore driven.FileStore,
	contentStore driven.ContentStore,
	taskStore driven.TaskStore,
	index driven.SearchIndex,
	extractor driven.Extractor,
) *StatusReporter {
	return &StatusReporter{
		fileStore:    fileStore,
		contentStore: contentStore,
		taskStore:    taskStore,
		index:        index,
		extractor:    extractor,
	}
}

// GetProcessingStatus returns one row per registered file joining its
// content state with its latest task's retry count.
func (r *StatusReporter) GetProcessingStatus(ctx context.Context) ([]domain.ProcessingStatus, error) {
	files, err := r.fileStore.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}

	statuses := make([]domain.ProcessingStatus, 0, len(files))
	for i := range files {
		file := &files[i]

		row := domain.ProcessingStatus{
			FileID:   file.ID,
			FileName: file.Name,
			Status:   domain.StatusPending,
		}

		if content, err := r.contentStore.Get(ctx, file.ID); err == nil {
			row.Status = content.Status
			row.Error = content.ErrorMessage
		}

		tasks, err := r.taskStore.List(ctx, driven.TaskFilter{FileID: file.ID, Limit: 1})
		if err != nil {
			return nil, fmt.Errorf("list tasks for %s: %w", file.ID, err)
		}
		if len(tasks) > 0 {
			row.RetryCount = tasks[0].RetryCount
		}

		statuses = append(statuses, row)
	}

	return statuses, nil
}

// GetStatistics returns aggregate pipeline counters for monitoring.
func (r *StatusReporter) GetStatistics(ctx context.Context) (*domain.Statistics, error) {
	taskCounts, err := r.taskStore.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("count tasks: %w", err)
	}

	contentCounts, err := r.contentStore.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("count content: %w", err)
	}

	size, err := r.index.Size(ctx)
	if err != nil {
		return nil, fmt.Errorf("index size: %w", err)
	}

	tasks, err := r.taskStore.List(ctx, driven.TaskFilter{})
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	var avgAttempts float64
	if len(tasks) > 0 {
		total := 0
		for i := range tasks {
			total += tasks[i].RetryCount + 1
		}
		avgAttempts = float64(total) / float64(len(tasks))
	}

	breaker := "unknown"
	if r.extractor != nil {
		breaker = r.extractor.State()
	}

	return &domain.Statistics{
		TaskCounts:       taskCounts,
		ContentCounts:    contentCounts,
		IndexedDocuments: size,
		AverageAttempts:  avgAttempts,
		BreakerState:     breaker,
	}, nil
}
