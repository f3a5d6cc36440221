package driven

import (
	"context"
	"time"
)

// ExtractionResult is the successful output of an extraction call.
type ExtractionResult struct {
	// Text is the extracted plain text.
	Text string

	// Metadata contains extractor-reported document properties.
	Metadata map[string]any
}

// Extractor wraps the external text extraction service.
//
// Failures are classified as *domain.ExtractionError (connection,
// timeout, unprocessable) or domain.ErrCircuitOpen when the client's
// circuit breaker rejects the call without contacting the service.
type Extractor interface {
	// Extract submits raw bytes with their MIME type and returns the
	// extracted text and metadata.
	Extract(ctx context.Context, data []byte, mimeType string) (*ExtractionResult, error)

	// State returns the circuit breaker state for observability:
	// "closed", "open" or "half-open".
	State() string

	// Cooldown returns the remaining time before an open circuit
	// allows a probe, or zero when the circuit is not open. Workers
	// use it for claim backpressure.
	Cooldown() time.Duration

	// Ping checks that the extraction service is reachable.
	Ping(ctx context.Context) error
}
