package domain

import "time"

// ExtractionStatus is the lifecycle state shared by extraction tasks
// and extracted content records.
type ExtractionStatus string

const (
	// StatusPending means extraction has been requested but not started.
	StatusPending ExtractionStatus = "pending"

	// StatusProcessing means a worker has claimed the task and is
	// calling the extraction service.
	StatusProcessing ExtractionStatus = "processing"

	// StatusCompleted means extraction succeeded and content is stored.
	StatusCompleted ExtractionStatus = "completed"

	// StatusFailed means extraction failed terminally (retries exhausted).
	StatusFailed ExtractionStatus = "failed"
)

// Active reports whether the status is non-terminal.
// A file may have at most one task in an active status.
func (s ExtractionStatus) Active() bool {
	return s == StatusPending || s == StatusProcessing
}

// Terminal reports whether the status is final. Terminal task states
// are immutable.
func (s ExtractionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ExtractedContent holds the text extracted from a file.
// There is exactly one record per file, created in StatusPending when
// extraction is first triggered and mutated only by the extraction
// pipeline.
type ExtractedContent struct {
	// FileID is the owning file.
	FileID string

	// Content is the extracted text. Non-nil iff Status is StatusCompleted.
	Content *string

	// Metadata contains extractor-reported properties (content type,
	// author, page count and similar).
	Metadata map[string]any

	// Status is the extraction lifecycle state.
	Status ExtractionStatus

	// ErrorMessage describes the terminal failure. Non-nil iff Status
	// is StatusFailed.
	ErrorMessage *string

	// CreatedAt is when the record was first created.
	CreatedAt time.Time

	// UpdatedAt is when the record was last mutated.
	UpdatedAt time.Time
}
