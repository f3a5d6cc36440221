package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parchment-labs/extractd/internal/core/domain"
	"github.com/parchment-labs/extractd/internal/core/ports/driven"
)

func TestTaskStore_CreateGetUpdate(t *testing.T) {
	store := NewTaskStore()
	ctx := context.Background()

	task := &domain.ExtractionTask{
		ID:         "t1",
		FileID:     "f1",
		Status:     domain.StatusPending,
		MaxRetries: 3,
		CreatedAt:  time.Now(),
	}
	require.NoError(t, store.Create(ctx, task))

	got, err := store.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "f1", got.FileID)

	got.Status = domain.StatusCompleted
	require.NoError(t, store.Update(ctx, got))

	got, err = store.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, store.Update(ctx, &domain.ExtractionTask{ID: "missing"}), domain.ErrNotFound)
}

func TestTaskStore_GetActive(t *testing.T) {
	store := NewTaskStore()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, &domain.ExtractionTask{
		ID: "t1", FileID: "f1", Status: domain.StatusFailed,
	}))

	active, err := store.GetActive(ctx, "f1")
	require.NoError(t, err)
	assert.Nil(t, active, "terminal tasks are not active")

	require.NoError(t, store.Create(ctx, &domain.ExtractionTask{
		ID: "t2", FileID: "f1", Status: domain.StatusPending,
	}))

	active, err = store.GetActive(ctx, "f1")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, "t2", active.ID)
}

func TestTaskStore_ClaimNext_OldestFirst(t *testing.T) {
	store := NewTaskStore()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Create(ctx, &domain.ExtractionTask{
		ID: "newer", FileID: "f2", Status: domain.StatusPending, CreatedAt: base.Add(time.Minute),
	}))
	require.NoError(t, store.Create(ctx, &domain.ExtractionTask{
		ID: "older", FileID: "f1", Status: domain.StatusPending, CreatedAt: base,
	}))

	task, err := store.ClaimNext(ctx, base.Add(time.Hour))
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, "older", task.ID)
	assert.Equal(t, domain.StatusProcessing, task.Status)
	assert.NotNil(t, task.StartedAt)

	task, err = store.ClaimNext(ctx, base.Add(time.Hour))
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, "newer", task.ID)

	task, err = store.ClaimNext(ctx, base.Add(time.Hour))
	require.NoError(t, err)
	assert.Nil(t, task, "nothing left to claim")
}

func TestTaskStore_ClaimNext_RespectsNotBefore(t *testing.T) {
	store := NewTaskStore()
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Create(ctx, &domain.ExtractionTask{
		ID: "t1", FileID: "f1", Status: domain.StatusPending,
		NotBefore: now.Add(30 * time.Second), CreatedAt: now,
	}))

	task, err := store.ClaimNext(ctx, now)
	require.NoError(t, err)
	assert.Nil(t, task, "backoff window not elapsed")

	task, err = store.ClaimNext(ctx, now.Add(30*time.Second))
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, "t1", task.ID)
}

func TestTaskStore_ClaimNext_Concurrent(t *testing.T) {
	store := NewTaskStore()
	ctx := context.Background()
	now := time.Now()

	const tasks = 20
	for i := 0; i < tasks; i++ {
		require.NoError(t, store.Create(ctx, &domain.ExtractionTask{
			ID:        string(rune('a' + i)),
			FileID:    "f1",
			Status:    domain.StatusPending,
			CreatedAt: now.Add(time.Duration(i) * time.Millisecond),
		}))
	}

	var mu sync.Mutex
	claimed := make(map[string]int)
	var wg sync.WaitGroup

	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				task, err := store.ClaimNext(ctx, time.Now())
				require.NoError(t, err)
				if task == nil {
					return
				}
				mu.Lock()
				claimed[task.ID]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, claimed, tasks)
	for id, n := range claimed {
		assert.Equal(t, 1, n, "task %s claimed more than once", id)
	}
}

func TestTaskStore_List(t *testing.T) {
	store := NewTaskStore()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"t1", "t2", "t3"} {
		status := domain.StatusPending
		if id == "t3" {
			status = domain.StatusCompleted
		}
		require.NoError(t, store.Create(ctx, &domain.ExtractionTask{
			ID: id, FileID: "f1", Status: status, CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, store.Create(ctx, &domain.ExtractionTask{
		ID: "other", FileID: "f2", Status: domain.StatusPending, CreatedAt: base,
	}))

	tasks, err := store.List(ctx, driven.TaskFilter{FileID: "f1"})
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	// Newest first.
	assert.Equal(t, "t3", tasks[0].ID)
	assert.Equal(t, "t1", tasks[2].ID)

	tasks, err = store.List(ctx, driven.TaskFilter{FileID: "f1", Status: domain.StatusPending})
	require.NoError(t, err)
	assert.Len(t, tasks, 2)

	tasks, err = store.List(ctx, driven.TaskFilter{FileID: "f1", Limit: 1})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "t3", tasks[0].ID)

	tasks, err = store.List(ctx, driven.TaskFilter{FileID: "f1", Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "t1", tasks[0].ID)
}

func TestTaskStore_CountByStatus(t *testing.T) {
	store := NewTaskStore()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, &domain.ExtractionTask{ID: "t1", Status: domain.StatusPending}))
	require.NoError(t, store.Create(ctx, &domain.ExtractionTask{ID: "t2", Status: domain.StatusPending}))
	require.NoError(t, store.Create(ctx, &domain.ExtractionTask{ID: "t3", Status: domain.StatusFailed}))

	counts, err := store.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, counts[domain.StatusPending])
	assert.Equal(t, 1, counts[domain.StatusFailed])
	assert.Zero(t, counts[domain.StatusCompleted])
}
