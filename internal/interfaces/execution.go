package interfaces

import (
	"context"
	"time"

	"github.com/inveniosoftware/airdec-workflows/internal/models"
)

// ExecutionEngine is the narrow client surface of the durable execution
// layer used by the API process.
type ExecutionEngine interface {
	// Submit enqueues an execution under the given id and returns a handle
	// for later inspection. The id is the dedupe key: resubmitting an
	// existing id returns the existing handle without enqueuing again.
	Submit(ctx context.Context, id, operation string, payload any) (string, error)

	// Describe returns the current status of the execution behind the handle.
	Describe(ctx context.Context, handle string) (models.ExecutionStatus, error)

	// Result returns the recorded result of a COMPLETED execution.
	// Non-terminal executions return ErrStateConflict; FAILED executions
	// return the recorded failure as an error.
	Result(ctx context.Context, handle string) (string, error)
}

// ExecutionStorage persists executions and arbitrates worker claims.
type ExecutionStorage interface {
	// Insert adds a PENDING execution. Inserting an existing id is a no-op
	// (the first submission wins).
	Insert(ctx context.Context, exec *models.Execution) error

	// Get returns the execution or ErrNotFound.
	Get(ctx context.Context, id string) (*models.Execution, error)

	// Claim atomically leases the oldest runnable execution to workerID
	// until lockedUntil, marking it RUNNING. Returns ErrNotFound when
	// nothing is runnable.
	Claim(ctx context.Context, workerID string, lockedUntil time.Time) (*models.Execution, error)

	// Complete records a successful result and marks the execution COMPLETED.
	Complete(ctx context.Context, id, result string) error

	// Fail records a failed attempt. When the retry budget allows another
	// attempt the execution returns to PENDING and becomes claimable at
	// availableAt; otherwise it is marked FAILED with the error message.
	Fail(ctx context.Context, id, errMsg string, retry bool, availableAt time.Time) error

	// ReleaseExpired returns RUNNING executions whose lease has lapsed to
	// PENDING so another worker can claim them. Returns rows affected.
	ReleaseExpired(ctx context.Context, now time.Time) (int64, error)
}
