package driving

import (
	"context"

	"github.com/parchment-labs/extractd/internal/core/domain"
)

// StatusReporter is the read-only aggregation of pipeline state for
// polling clients. It has no side effects.
type StatusReporter interface {
	// GetProcessingStatus returns one row per registered file with its
	// current extraction state.
	GetProcessingStatus(ctx context.Context) ([]domain.ProcessingStatus, error)

	// GetStatistics returns aggregate pipeline counters.
	GetStatistics(ctx context.Context) (*domain.Statistics, error)
}
