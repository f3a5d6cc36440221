package services

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/parchment-labs/extractd/internal/core/domain"
	"github.com/parchment-labs/extractd/internal/core/ports/driven"
	"github.com/parchment-labs/extractd/internal/logger"
)

// Worker pool defaults.
const (
	DefaultWorkerCount  = 4
	DefaultPollInterval = time.Second
)

// WorkerPool runs a fixed number of workers, each looping
// claim → extract → complete/fail. Idle workers back off for the poll
// interval; a worker that sees an open circuit stops claiming for the
// remaining cool-down so the pool does not drain the queue into a
// known-dead service.
type WorkerPool struct {
	workers      int
	pollInterval time.Duration

	taskStore driven.TaskStore
	fileStore driven.FileStore
	extractor driven.Extractor
	svc       *ExtractionService

	// readFile is injectable for tests; defaults to os.ReadFile.
	readFile func(path string) ([]byte, error)

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewWorkerPool creates a worker pool. Zero values for workers and
// pollInterval fall back to the defaults.
func NewWorkerPool(
	workers int,
	pollInterval time.Duration,
	taskStore driven.TaskStore,
	fileStore driven.FileStore,
	extractor driven.Extractor,
	svc *ExtractionService,
) *WorkerPool {
	if workers <= 0 {
		workers = DefaultWorkerCount
	}
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &WorkerPool{
		workers:      workers,
		pollInterval: pollInterval,
		taskStore:    taskStore,
		fileStore:    fileStore,
		extractor:    extractor,
		svc:          svc,
		readFile:     os.ReadFile,
	}
}

// Start launches the workers. It returns immediately; use Stop for a
// graceful shutdown.
func (p *WorkerPool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}
	p.running = true
	p.stopCh = make(chan struct{})

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.runWorker(ctx, i)
	}
	logger.Info("Worker pool started: %d workers, poll interval %s", p.workers, p.pollInterval)
}

// Stop signals all workers and waits for in-flight work to finish.
// Cancellation of a claimed task is cooperative: the current extractor
// call completes before the worker exits.
func (p *WorkerPool) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stopCh)
	p.mu.Unlock()

	p.wg.Wait()
	logger.Info("Worker pool stopped")
}

// runWorker is the claim loop for one worker.
func (p *WorkerPool) runWorker(ctx context.Context, id int) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		default:
		}

		task, err := p.taskStore.ClaimNext(ctx, time.Now())
		if err != nil {
			logger.Warn("worker %d: claim failed: %v", id, err)
			if !p.sleep(ctx, p.pollInterval) {
				return
			}
			continue
		}
		if task == nil {
			if !p.sleep(ctx, p.pollInterval) {
				return
			}
			continue
		}

		if wait := p.process(ctx, id, task); wait > 0 {
			// Circuit open: back off claiming for the cool-down.
			if !p.sleep(ctx, wait) {
				return
			}
		}
	}
}

// process runs one extraction attempt for a claimed task. It returns a
// non-zero duration when the worker should pause claiming.
func (p *WorkerPool) process(ctx context.Context, id int, task *domain.ExtractionTask) time.Duration {
	logger.Debug("worker %d: claimed task %s (file %s, attempt %d)", id, task.ID, task.FileID, task.RetryCount+1)

	file, err := p.fileStore.Get(ctx, task.FileID)
	if err != nil {
		p.fail(ctx, task.ID, domain.NewExtractionError(domain.FailureUnprocessable, err))
		return 0
	}

	data, err := p.readFile(file.Path)
	if err != nil {
		p.fail(ctx, task.ID, domain.NewExtractionError(domain.FailureUnprocessable, err))
		return 0
	}

	result, err := p.extractor.Extract(ctx, data, file.MIMEType)
	if err != nil {
		if errors.Is(err, domain.ErrCircuitOpen) {
			cooldown := p.extractor.Cooldown()
			if cooldown <= 0 {
				cooldown = p.pollInterval
			}
			if reqErr := p.svc.Requeue(ctx, task.ID, cooldown); reqErr != nil {
				logger.Warn("worker %d: requeue task %s: %v", id, task.ID, reqErr)
			}
			return cooldown
		}
		p.fail(ctx, task.ID, err)
		return 0
	}

	if err := p.svc.Complete(ctx, task.ID, result.Text, result.Metadata); err != nil {
		logger.Warn("worker %d: complete task %s: %v", id, task.ID, err)
	}
	return 0
}

func (p *WorkerPool) fail(ctx context.Context, taskID string, cause error) {
	if err := p.svc.Fail(ctx, taskID, cause); err != nil {
		logger.Warn("fail task %s: %v", taskID, err)
	}
}

// sleep waits for d unless the pool is stopping. Returns false when
// the worker should exit.
func (p *WorkerPool) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-p.stopCh:
		return false
	case <-timer.C:
		return true
	}
}
