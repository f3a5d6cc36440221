package cli

import (
	"context"
	"fmt"

	configfile "github.com/parchment-labs/extractd/internal/adapters/driven/config/file"
	"github.com/parchment-labs/extractd/internal/adapters/driven/index/mem"
	"github.com/parchment-labs/extractd/internal/adapters/driven/storage/memory"
	"github.com/parchment-labs/extractd/internal/adapters/driven/storage/sqlite"
	"github.com/parchment-labs/extractd/internal/core/ports/driven"
	"github.com/parchment-labs/extractd/internal/core/services"
	"github.com/parchment-labs/extractd/internal/logger"
)

// app bundles the configured store stack and core services shared by
// the commands. The search index is rebuilt from completed content at
// construction, so durable stores come back searchable.
type app struct {
	cfg configfile.Config

	fileStore    driven.FileStore
	taskStore    driven.TaskStore
	contentStore driven.ContentStore
	index        *mem.Index

	extraction *services.ExtractionService
	search     *services.SearchService

	store *sqlite.Store
}

// buildApp loads configuration and constructs stores and services.
func buildApp(ctx context.Context) (*app, error) {
	cfg, err := configfile.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	a := &app{cfg: cfg}

	if cfg.Storage.InMemory {
		a.fileStore = memory.NewFileStore()
		a.taskStore = memory.NewTaskStore()
		a.contentStore = memory.NewContentStore()
		logger.Debug("Using in-memory storage")
	} else {
		store, err := sqlite.NewStore(cfg.Storage.DataDir)
		if err != nil {
			return nil, fmt.Errorf("opening store: %w", err)
		}
		a.store = store
		a.fileStore = store.FileStore()
		a.taskStore = store.TaskStore()
		a.contentStore = store.ContentStore()
		logger.Debug("Using SQLite storage at %s", store.Path())
	}

	a.index = mem.NewIndex(cfg.Search.Stopwords)

	a.extraction = services.NewExtractionService(a.fileStore, a.taskStore, a.contentStore, a.index)
	a.extraction.SetMaxRetries(cfg.Tasks.MaxRetries)
	a.search = services.NewSearchService(a.fileStore, a.contentStore, a.index)

	if err := a.extraction.RebuildIndex(ctx); err != nil {
		a.close()
		return nil, fmt.Errorf("rebuilding index: %w", err)
	}

	return a, nil
}

// close releases the underlying store, if any.
func (a *app) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			logger.Warn("Closing store: %v", err)
		}
	}
}
