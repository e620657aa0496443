package ports

import (
	"context"

	"github.com/bft-labs/basepilot/internal/domain"
)

// RunRepository persists the summary of the last control run.
type RunRepository interface {
	// Load retrieves the last saved summary.
	// Returns an empty summary and nil error if none exists.
	Load(ctx context.Context) (domain.RunSummary, error)

	// Save persists the summary atomically.
	Save(ctx context.Context, summary domain.RunSummary) error
}
