package domain

// ProcessingStatus is one row of the read-only status aggregation
// served to polling clients.
type ProcessingStatus struct {
	// FileID identifies the file.
	FileID string

	// FileName is the original file name.
	FileName string

	// Status is the current extraction state.
	Status ExtractionStatus

	// RetryCount is the attempt count of the latest task.
	RetryCount int

	// Error describes the failure, if any.
	Error *string
}

// Statistics is an aggregate snapshot of the pipeline for monitoring.
type Statistics struct {
	// TaskCounts is the number of tasks per status.
	TaskCounts map[ExtractionStatus]int

	// ContentCounts is the number of content records per status.
	ContentCounts map[ExtractionStatus]int

	// IndexedDocuments is the current index size.
	IndexedDocuments int

	// AverageAttempts is the mean number of extraction attempts per
	// task, counting the initial attempt. Zero when no tasks exist.
	AverageAttempts float64

	// BreakerState is the extractor circuit breaker state
	// ("closed", "open" or "half-open").
	BreakerState string
}
