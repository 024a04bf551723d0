package ports

import (
	"context"

	"github.com/aretw0/tendril/pkg/domain"
)

// RunStore defines the interface for keeping run records.
// Implementations must isolate callers from stored records: values passed to
// Save and returned by Load are never shared.
type RunStore interface {
	// Save creates or replaces the record for run.ID.
	Save(ctx context.Context, run *domain.Run) error

	// Load retrieves the record for a given run ID.
	// Returns domain.ErrRunNotFound if the run does not exist.
	Load(ctx context.Context, runID string) (*domain.Run, error)

	// Delete removes the record for a given run ID. Unknown IDs are ignored.
	Delete(ctx context.Context, runID string) error

	// List returns every record ordered by creation time, oldest first.
	List(ctx context.Context) ([]*domain.Run, error)
}
