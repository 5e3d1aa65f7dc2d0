package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/inveniosoftware/airdec-workflows/internal/interfaces"
	"github.com/inveniosoftware/airdec-workflows/internal/models"
)

// ExecutionStorage persists durable executions and arbitrates worker claims
// over the shared SQLite file.
type ExecutionStorage struct {
	db     *SQLiteDB
	logger arbor.ILogger
}

// NewExecutionStorage creates an execution storage backed by the given database.
func NewExecutionStorage(db *SQLiteDB, logger arbor.ILogger) *ExecutionStorage {
	return &ExecutionStorage{db: db, logger: logger}
}

// Insert adds a PENDING execution. The id is the dedupe key: inserting an
// existing id is a no-op so a logical workflow runs at most once.
func (s *ExecutionStorage) Insert(ctx context.Context, exec *models.Execution) error {
	now := time.Now().UTC()
	availableAt := exec.AvailableAt
	if availableAt.IsZero() {
		availableAt = now
	}

	_, err := s.db.DB().ExecContext(ctx,
		`INSERT OR IGNORE INTO executions
		 (id, operation, payload, status, available_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		exec.ID, exec.Operation, exec.Payload, string(models.ExecutionStatusPending),
		availableAt.Unix(), now.Unix(), now.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert execution %s: %w", exec.ID, err)
	}
	return nil
}

// Get returns the execution or ErrNotFound.
func (s *ExecutionStorage) Get(ctx context.Context, id string) (*models.Execution, error) {
	row := s.db.DB().QueryRowContext(ctx,
		`SELECT id, operation, payload, status, result, error, attempts,
		        locked_by, locked_until, available_at, created_at, updated_at
		 FROM executions WHERE id = ?`, id)

	exec, err := scanExecution(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("execution %s: %w", id, interfaces.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load execution %s: %w", id, err)
	}
	return exec, nil
}

// Claim atomically leases the oldest runnable execution. The single UPDATE
// with a subquery keeps the claim race-free across worker processes.
func (s *ExecutionStorage) Claim(ctx context.Context, workerID string, lockedUntil time.Time) (*models.Execution, error) {
	now := time.Now().UTC()

	row := s.db.DB().QueryRowContext(ctx,
		`UPDATE executions
		 SET status = ?, locked_by = ?, locked_until = ?, attempts = attempts + 1, updated_at = ?
		 WHERE id = (
			SELECT id FROM executions
			WHERE status = ? AND available_at <= ?
			ORDER BY available_at, created_at
			LIMIT 1
		 )
		 RETURNING id, operation, payload, status, result, error, attempts,
		           locked_by, locked_until, available_at, created_at, updated_at`,
		string(models.ExecutionStatusRunning), workerID, lockedUntil.Unix(), now.Unix(),
		string(models.ExecutionStatusPending), now.Unix())

	exec, err := scanExecution(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, interfaces.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to claim execution: %w", err)
	}

	s.logger.Debug().
		Str("execution_id", exec.ID).
		Str("worker_id", workerID).
		Int("attempt", exec.Attempts).
		Msg("Execution claimed")

	return exec, nil
}

// Complete records a successful result and marks the execution COMPLETED.
func (s *ExecutionStorage) Complete(ctx context.Context, id, result string) error {
	_, err := s.db.DB().ExecContext(ctx,
		`UPDATE executions
		 SET status = ?, result = ?, error = '', locked_by = '', locked_until = 0, updated_at = ?
		 WHERE id = ? AND status = ?`,
		string(models.ExecutionStatusCompleted), result, time.Now().UTC().Unix(),
		id, string(models.ExecutionStatusRunning))
	if err != nil {
		return fmt.Errorf("failed to complete execution %s: %w", id, err)
	}
	return nil
}

// Fail records a failed attempt. With retry, the execution returns to
// PENDING and becomes claimable at availableAt; otherwise it is FAILED.
func (s *ExecutionStorage) Fail(ctx context.Context, id, errMsg string, retry bool, availableAt time.Time) error {
	status := models.ExecutionStatusFailed
	if retry {
		status = models.ExecutionStatusPending
	}

	_, err := s.db.DB().ExecContext(ctx,
		`UPDATE executions
		 SET status = ?, error = ?, locked_by = '', locked_until = 0, available_at = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		string(status), errMsg, availableAt.Unix(), time.Now().UTC().Unix(),
		id, string(models.ExecutionStatusRunning))
	if err != nil {
		return fmt.Errorf("failed to record execution failure %s: %w", id, err)
	}
	return nil
}

// ReleaseExpired returns RUNNING executions with a lapsed lease to PENDING.
// Covers workers that died mid-attempt without reporting.
func (s *ExecutionStorage) ReleaseExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.db.DB().ExecContext(ctx,
		`UPDATE executions
		 SET status = ?, locked_by = '', locked_until = 0, updated_at = ?
		 WHERE status = ? AND locked_until > 0 AND locked_until < ?`,
		string(models.ExecutionStatusPending), now.Unix(),
		string(models.ExecutionStatusRunning), now.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to release expired executions: %w", err)
	}
	return result.RowsAffected()
}

func scanExecution(row scanner) (*models.Execution, error) {
	var (
		exec        models.Execution
		status      string
		lockedUntil int64
		availableAt int64
		createdAt   int64
		updatedAt   int64
	)
	if err := row.Scan(&exec.ID, &exec.Operation, &exec.Payload, &status,
		&exec.Result, &exec.Error, &exec.Attempts, &exec.LockedBy,
		&lockedUntil, &availableAt, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	exec.Status = models.ExecutionStatus(status)
	if lockedUntil > 0 {
		exec.LockedUntil = time.Unix(lockedUntil, 0).UTC()
	}
	exec.AvailableAt = time.Unix(availableAt, 0).UTC()
	exec.CreatedAt = time.Unix(createdAt, 0).UTC()
	exec.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &exec, nil
}
