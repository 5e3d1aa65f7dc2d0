package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/inveniosoftware/airdec-workflows/internal/interfaces"
	"github.com/inveniosoftware/airdec-workflows/internal/models"
)

// Client is the API-process view of the durable execution layer. It only
// enqueues and inspects; attempts run in the worker process.
type Client struct {
	storage interfaces.ExecutionStorage
	logger  arbor.ILogger
}

// NewClient creates an execution engine client over the shared storage.
func NewClient(storage interfaces.ExecutionStorage, logger arbor.ILogger) *Client {
	return &Client{storage: storage, logger: logger}
}

// Submit enqueues an execution. The id is the dedupe key; resubmission of a
// known id returns the existing handle without a second run.
func (c *Client) Submit(ctx context.Context, id, operation string, payload any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode execution payload: %w", err)
	}

	exec := &models.Execution{
		ID:        id,
		Operation: operation,
		Payload:   string(body),
	}
	if err := c.storage.Insert(ctx, exec); err != nil {
		return "", err
	}

	c.logger.Info().
		Str("execution_id", id).
		Str("operation", operation).
		Msg("Execution submitted")

	return id, nil
}

// Describe returns the current status of the execution behind the handle.
func (c *Client) Describe(ctx context.Context, handle string) (models.ExecutionStatus, error) {
	exec, err := c.storage.Get(ctx, handle)
	if err != nil {
		return "", err
	}
	return exec.Status, nil
}

// Result returns the recorded result of a COMPLETED execution.
func (c *Client) Result(ctx context.Context, handle string) (string, error) {
	exec, err := c.storage.Get(ctx, handle)
	if err != nil {
		return "", err
	}

	switch exec.Status {
	case models.ExecutionStatusCompleted:
		return exec.Result, nil
	case models.ExecutionStatusFailed:
		return "", fmt.Errorf("execution %s failed: %s", handle, exec.Error)
	default:
		return "", fmt.Errorf("execution %s is %s: %w", handle, exec.Status, interfaces.ErrStateConflict)
	}
}
