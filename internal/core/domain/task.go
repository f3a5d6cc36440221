package domain

import (
	"math/rand/v2"
	"time"
)

// DefaultMaxRetries is the retry ceiling for a task when none is
// configured.
const DefaultMaxRetries = 3

// Retry backoff parameters. Delays grow exponentially from the base,
// are capped, and carry jitter so a burst of failures does not
// re-arrive in lockstep.
const (
	RetryBaseDelay      = 2 * time.Second
	RetryMaxDelay       = 60 * time.Second
	retryJitterFraction = 0.2
)

// ExtractionTask is one extraction attempt lineage for a file.
// Transitions are driven only by the extraction service and the worker
// pool: pending → processing → completed | failed, with failed
// re-entering pending while retries remain.
type ExtractionTask struct {
	// ID is the unique task identifier.
	ID string

	// FileID is the file being extracted.
	FileID string

	// Status is the task lifecycle state.
	Status ExtractionStatus

	// RetryCount is the number of failed attempts so far.
	// Never exceeds MaxRetries.
	RetryCount int

	// MaxRetries is the retry ceiling for this task.
	MaxRetries int

	// ErrorMessage holds the most recent failure description.
	ErrorMessage *string

	// NotBefore is the earliest time the task is eligible to be
	// claimed. Zero means immediately. Set by the retry ladder to
	// implement backoff.
	NotBefore time.Time

	// Superseded marks a task cancelled by a forced re-extraction.
	// Results arriving for a superseded task are discarded.
	Superseded bool

	// StartedAt is when a worker claimed the task.
	StartedAt *time.Time

	// CompletedAt is when the task reached a terminal state.
	CompletedAt *time.Time

	// CreatedAt is when the task was created.
	CreatedAt time.Time
}

// RetriesExhausted reports whether the task has no retries left.
func (t *ExtractionTask) RetriesExhausted() bool {
	return t.RetryCount >= t.MaxRetries
}

// RetryDelay returns the backoff delay before the given retry attempt.
// Exponential from RetryBaseDelay, capped at RetryMaxDelay, with
// ±20% jitter.
func RetryDelay(retryCount int) time.Duration {
	delay := RetryBaseDelay
	for i := 0; i < retryCount && delay < RetryMaxDelay; i++ {
		delay *= 2
	}
	if delay > RetryMaxDelay {
		delay = RetryMaxDelay
	}

	jitter := 1 + retryJitterFraction*(2*rand.Float64()-1)
	return time.Duration(float64(delay) * jitter)
}
