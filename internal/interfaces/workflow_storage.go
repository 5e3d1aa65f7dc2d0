package interfaces

import (
	"context"
	"time"

	"github.com/inveniosoftware/airdec-workflows/internal/models"
)

// WorkflowStorage persists workflow records.
type WorkflowStorage interface {
	// Create inserts a new workflow in PROCESSING state with a fresh public id.
	Create(ctx context.Context, url, ownerID string) (*models.Workflow, error)

	// GetByPublicID returns the workflow or ErrNotFound.
	GetByPublicID(ctx context.Context, publicID string) (*models.Workflow, error)

	// List returns all workflows, newest first.
	List(ctx context.Context) ([]*models.Workflow, error)

	// UpdateStatus transitions a PROCESSING workflow to a terminal status.
	// Terminal records are never overwritten; attempting to do so returns
	// ErrStateConflict. Unknown ids return ErrNotFound.
	UpdateStatus(ctx context.Context, publicID string, status models.WorkflowStatus) error

	// MarkStaleProcessing transitions PROCESSING workflows untouched since
	// the cutoff to ERROR. Returns the number of rows affected.
	MarkStaleProcessing(ctx context.Context, cutoff time.Time) (int64, error)
}
