package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parchment-labs/extractd/internal/adapters/driven/index/mem"
	"github.com/parchment-labs/extractd/internal/adapters/driven/storage/memory"
	"github.com/parchment-labs/extractd/internal/core/domain"
)

func TestStatusReporter_GetProcessingStatus(t *testing.T) {
	ctx := context.Background()

	fileStore := memory.NewFileStore()
	taskStore := memory.NewTaskStore()
	contentStore := memory.NewContentStore()
	index := mem.NewIndex(nil)
	svc := NewExtractionService(fileStore, taskStore, contentStore, index)

	require.NoError(t, fileStore.Save(ctx, &domain.File{ID: "f1", Name: "done.pdf", Path: "/done.pdf"}))
	require.NoError(t, fileStore.Save(ctx, &domain.File{ID: "f2", Name: "failing.pdf", Path: "/failing.pdf"}))
	require.NoError(t, fileStore.Save(ctx, &domain.File{ID: "f3", Name: "untouched.pdf", Path: "/untouched.pdf"}))

	task1, err := svc.Trigger(ctx, "f1", false)
	require.NoError(t, err)
	require.NoError(t, svc.Complete(ctx, task1.ID, "text", nil))

	task2, err := svc.Trigger(ctx, "f2", false)
	require.NoError(t, err)
	require.NoError(t, svc.Fail(ctx, task2.ID, errors.New("boom")))

	reporter := NewStatusReporter(fileStore, contentStore, taskStore, index, nil)
	statuses, err := reporter.GetProcessingStatus(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 3)

	byID := make(map[string]domain.ProcessingStatus, len(statuses))
	for _, st := range statuses {
		byID[st.FileID] = st
	}

	assert.Equal(t, domain.StatusCompleted, byID["f1"].Status)
	assert.Equal(t, "done.pdf", byID["f1"].FileName)
	assert.Equal(t, 0, byID["f1"].RetryCount)

	assert.Equal(t, domain.StatusPending, byID["f2"].Status)
	assert.Equal(t, 1, byID["f2"].RetryCount)

	// Never triggered: no content record, reported as pending.
	assert.Equal(t, domain.StatusPending, byID["f3"].Status)
}

func TestStatusReporter_GetStatistics(t *testing.T) {
	ctx := context.Background()

	fileStore := memory.NewFileStore()
	taskStore := memory.NewTaskStore()
	contentStore := memory.NewContentStore()
	index := mem.NewIndex(nil)
	svc := NewExtractionService(fileStore, taskStore, contentStore, index)

	require.NoError(t, fileStore.Save(ctx, &domain.File{ID: "f1", Name: "a.pdf", Path: "/a.pdf"}))
	task, err := svc.Trigger(ctx, "f1", false)
	require.NoError(t, err)
	require.NoError(t, svc.Complete(ctx, task.ID, "indexed text", nil))

	extractor := &fakeExtractor{state: "closed"}
	reporter := NewStatusReporter(fileStore, contentStore, taskStore, index, extractor)

	stats, err := reporter.GetStatistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TaskCounts[domain.StatusCompleted])
	assert.Equal(t, 1, stats.ContentCounts[domain.StatusCompleted])
	assert.Equal(t, 1, stats.IndexedDocuments)
	assert.Equal(t, 1.0, stats.AverageAttempts)
	assert.Equal(t, "closed", stats.BreakerState)
}

func TestStatusReporter_GetStatistics_NoExtractor(t *testing.T) {
	reporter := NewStatusReporter(
		memory.NewFileStore(),
		memory.NewContentStore(),
		memory.NewTaskStore(),
		mem.NewIndex(nil),
		nil,
	)

	stats, err := reporter.GetStatistics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "unknown", stats.BreakerState)
	assert.Zero(t, stats.IndexedDocuments)
	assert.Zero(t, stats.AverageAttempts)
}

func TestStatusReporter_LatestTaskWins(t *testing.T) {
	ctx := context.Background()

	fileStore := memory.NewFileStore()
	taskStore := memory.NewTaskStore()
	contentStore := memory.NewContentStore()
	index := mem.NewIndex(nil)

	require.NoError(t, fileStore.Save(ctx, &domain.File{ID: "f1", Name: "a.pdf", Path: "/a.pdf"}))

	older := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, taskStore.Create(ctx, &domain.ExtractionTask{
		ID: "t-old", FileID: "f1", Status: domain.StatusFailed, RetryCount: 3, CreatedAt: older,
	}))
	require.NoError(t, taskStore.Create(ctx, &domain.ExtractionTask{
		ID: "t-new", FileID: "f1", Status: domain.StatusPending, RetryCount: 1, CreatedAt: older.Add(time.Hour),
	}))

	reporter := NewStatusReporter(fileStore, contentStore, taskStore, index, nil)
	statuses, err := reporter.GetProcessingStatus(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.Equal(t, 1, statuses[0].RetryCount)
}
