package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parchment-labs/extractd/internal/adapters/driven/index/mem"
	"github.com/parchment-labs/extractd/internal/adapters/driven/storage/memory"
	"github.com/parchment-labs/extractd/internal/core/domain"
	"github.com/parchment-labs/extractd/internal/core/ports/driven"
	"github.com/parchment-labs/extractd/internal/core/services"
)

// newWatcherFixture wires a watcher over a temp directory and
// in-memory stores.
func newWatcherFixture(t *testing.T) (*Watcher, string, *memory.FileStore, *memory.TaskStore) {
	t.Helper()

	dir := t.TempDir()
	fileStore := memory.NewFileStore()
	taskStore := memory.NewTaskStore()
	contentStore := memory.NewContentStore()
	index := mem.NewIndex(nil)
	svc := services.NewExtractionService(fileStore, taskStore, contentStore, index)

	w := NewWatcher(dir, fileStore, svc)
	w.settle = 20 * time.Millisecond
	return w, dir, fileStore, taskStore
}

func TestWatcher_RegistersExistingFiles(t *testing.T) {
	w, dir, fileStore, taskStore := newWatcherFixture(t)
	ctx := context.Background()

	path := filepath.Join(dir, "existing.txt")
	require.NoError(t, os.WriteFile(path, []byte("already here"), 0600))

	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	file, err := fileStore.GetByPath(ctx, path)
	require.NoError(t, err)
	require.NotNil(t, file)
	assert.Equal(t, "existing.txt", file.Name)
	assert.Equal(t, int64(len("already here")), file.Size)

	active, err := taskStore.GetActive(ctx, file.ID)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, domain.StatusPending, active.Status)
}

func TestWatcher_RegistersNewFileOnce(t *testing.T) {
	w, dir, fileStore, taskStore := newWatcherFixture(t)
	ctx := context.Background()

	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	path := filepath.Join(dir, "upload.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.7"), 0600))
	// A second write burst for the same upload.
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.7 more"), 0600))

	var file *domain.File
	assert.Eventually(t, func() bool {
		f, err := fileStore.GetByPath(ctx, path)
		if err != nil || f == nil {
			return false
		}
		file = f
		return true
	}, 2*time.Second, 10*time.Millisecond)

	// Let any trailing settle timers fire before counting.
	time.Sleep(100 * time.Millisecond)

	files, err := fileStore.List(ctx)
	require.NoError(t, err)
	assert.Len(t, files, 1, "one upload registers exactly once")

	tasks, err := taskStore.List(ctx, driven.TaskFilter{FileID: file.ID})
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
}

func TestWatcher_DetectsMIMEType(t *testing.T) {
	w, dir, fileStore, _ := newWatcherFixture(t)
	ctx := context.Background()

	pdfPath := filepath.Join(dir, "doc.pdf")
	binPath := filepath.Join(dir, "blob.xyz123")
	require.NoError(t, os.WriteFile(pdfPath, []byte("%PDF"), 0600))
	require.NoError(t, os.WriteFile(binPath, []byte{0x00, 0x01}, 0600))

	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	pdf, err := fileStore.GetByPath(ctx, pdfPath)
	require.NoError(t, err)
	require.NotNil(t, pdf)
	assert.Equal(t, "application/pdf", pdf.MIMEType)

	blob, err := fileStore.GetByPath(ctx, binPath)
	require.NoError(t, err)
	require.NotNil(t, blob)
	assert.Equal(t, defaultMIMEType, blob.MIMEType)
}

func TestWatcher_SettleTimersDrain(t *testing.T) {
	w, dir, fileStore, _ := newWatcherFixture(t)
	ctx := context.Background()

	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(name), 0600))
	}

	assert.Eventually(t, func() bool {
		files, err := fileStore.List(ctx)
		return err == nil && len(files) == 3
	}, 2*time.Second, 10*time.Millisecond)

	// Fired timers must not accumulate.
	assert.Eventually(t, func() bool {
		return w.pendingSettles() == 0
	}, time.Second, 10*time.Millisecond)
}

func TestWatcher_StartStopIdempotent(t *testing.T) {
	w, _, _, _ := newWatcherFixture(t)
	ctx := context.Background()

	require.NoError(t, w.Start(ctx))
	require.NoError(t, w.Start(ctx))
	w.Stop()
	w.Stop()
}
