// Package ingest watches an uploads directory and feeds new files into
// the extraction pipeline.
//
// Every file that appears under the watched directory is registered
// once, keyed by its path, and an extraction task is triggered for it.
// Files already registered are left alone; re-processing an updated
// file is an explicit API action, not a watcher concern.
package ingest

import (
	"context"
	"errors"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/parchment-labs/extractd/internal/core/domain"
	"github.com/parchment-labs/extractd/internal/core/ports/driven"
	"github.com/parchment-labs/extractd/internal/core/ports/driving"
	"github.com/parchment-labs/extractd/internal/logger"
)

// settleDelay coalesces the create/write bursts a single upload
// produces before the file is registered.
const settleDelay = 500 * time.Millisecond

// defaultMIMEType is used when the extension maps to nothing.
const defaultMIMEType = "application/octet-stream"

// Watcher registers files appearing in a directory and triggers their
// extraction.
type Watcher struct {
	dir        string
	fileStore  driven.FileStore
	extraction driving.ExtractionService

	// settle is injectable for tests.
	settle time.Duration

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
	fsw     *fsnotify.Watcher

	// timers holds the pending settle timer per path. Entries are
	// removed when the timer fires, so the map stays bounded by the
	// number of in-flight uploads.
	timersMu sync.Mutex
	timers   map[string]*time.Timer
}

// NewWatcher creates a watcher over dir.
func NewWatcher(dir string, fileStore driven.FileStore, extraction driving.ExtractionService) *Watcher {
	return &Watcher{
		dir:        dir,
		fileStore:  fileStore,
		extraction: extraction,
		settle:     settleDelay,
	}
}

// Start begins watching. Files already present in the directory are
// registered first, then filesystem events drive the rest. It returns
// immediately; use Stop for a graceful shutdown.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(w.dir); err != nil {
		fsw.Close()
		return err
	}
	w.fsw = fsw
	w.running = true
	w.stopCh = make(chan struct{})
	w.timers = make(map[string]*time.Timer)

	if err := w.scanExisting(ctx); err != nil {
		logger.Warn("Initial upload scan failed: %v", err)
	}

	w.wg.Add(1)
	go w.run(ctx)

	logger.Info("Watching uploads directory %s", w.dir)
	return nil
}

// Stop shuts the watcher down and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopCh)
	w.mu.Unlock()

	w.fsw.Close()
	w.wg.Wait()
}

// scanExisting registers files already present when the watcher starts.
func (w *Watcher) scanExisting(ctx context.Context) error {
	return filepath.WalkDir(w.dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		w.register(ctx, path)
		return nil
	})
}

// run is the event loop. Create and write events for the same path are
// coalesced with a settle timer so half-written uploads are not
// registered.
func (w *Watcher) run(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			w.scheduleSettle(ctx, event.Name)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logger.Warn("Upload watcher error: %v", err)
		}
	}
}

// scheduleSettle (re)arms the settle timer for a path. The timer
// removes its own entry when it fires.
func (w *Watcher) scheduleSettle(ctx context.Context, path string) {
	w.timersMu.Lock()
	defer w.timersMu.Unlock()

	if timer, exists := w.timers[path]; exists {
		timer.Stop()
	}
	w.timers[path] = time.AfterFunc(w.settle, func() {
		w.timersMu.Lock()
		delete(w.timers, path)
		w.timersMu.Unlock()
		w.register(ctx, path)
	})
}

// pendingSettles returns the number of paths waiting out their settle
// delay.
func (w *Watcher) pendingSettles() int {
	w.timersMu.Lock()
	defer w.timersMu.Unlock()
	return len(w.timers)
}

// register records one file and triggers its extraction. A path that is
// already registered, or no longer a regular file, is skipped.
func (w *Watcher) register(ctx context.Context, path string) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}

	existing, err := w.fileStore.GetByPath(ctx, path)
	if err != nil {
		logger.Warn("Lookup for upload %s failed: %v", path, err)
		return
	}
	if existing != nil {
		return
	}

	file := &domain.File{
		ID:        uuid.NewString(),
		Name:      filepath.Base(path),
		MIMEType:  detectMIMEType(path),
		Path:      path,
		Size:      info.Size(),
		CreatedAt: time.Now(),
	}
	if err := w.fileStore.Save(ctx, file); err != nil {
		logger.Warn("Registering upload %s failed: %v", path, err)
		return
	}

	if _, err := w.extraction.Trigger(ctx, file.ID, false); err != nil && !errors.Is(err, domain.ErrConflict) {
		logger.Warn("Triggering extraction for %s failed: %v", file.ID, err)
		return
	}
	logger.Info("Registered upload %s (%s, %d bytes)", file.Name, file.MIMEType, file.Size)
}

// detectMIMEType maps the file extension to a MIME type.
func detectMIMEType(path string) string {
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		return t
	}
	return defaultMIMEType
}
