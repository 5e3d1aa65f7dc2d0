package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/inveniosoftware/airdec-workflows/internal/common"
	"github.com/inveniosoftware/airdec-workflows/internal/interfaces"
	"github.com/inveniosoftware/airdec-workflows/internal/models"
)

// WorkflowStorage persists workflow records in SQLite.
type WorkflowStorage struct {
	db     *SQLiteDB
	logger arbor.ILogger
}

// NewWorkflowStorage creates a workflow storage backed by the given database.
func NewWorkflowStorage(db *SQLiteDB, logger arbor.ILogger) *WorkflowStorage {
	return &WorkflowStorage{db: db, logger: logger}
}

// Create inserts a new workflow in PROCESSING state with a fresh public id.
func (s *WorkflowStorage) Create(ctx context.Context, url, ownerID string) (*models.Workflow, error) {
	publicID, err := common.NewPublicID()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	result, err := s.db.DB().ExecContext(ctx,
		`INSERT INTO workflows (public_id, url, status, owner_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		publicID, url, string(models.WorkflowStatusProcessing), ownerID, now.Unix(), now.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to insert workflow: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow id: %w", err)
	}

	workflow := &models.Workflow{
		ID:        id,
		PublicID:  publicID,
		URL:       url,
		Status:    models.WorkflowStatusProcessing,
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.logger.Info().
		Str("public_id", publicID).
		Str("url", url).
		Msg("Workflow created")

	return workflow, nil
}

// GetByPublicID returns the workflow or ErrNotFound.
func (s *WorkflowStorage) GetByPublicID(ctx context.Context, publicID string) (*models.Workflow, error) {
	row := s.db.DB().QueryRowContext(ctx,
		`SELECT id, public_id, url, status, owner_id, created_at, updated_at
		 FROM workflows WHERE public_id = ?`, publicID)

	workflow, err := scanWorkflow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("workflow %s: %w", publicID, interfaces.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load workflow %s: %w", publicID, err)
	}
	return workflow, nil
}

// List returns all workflows, newest first.
func (s *WorkflowStorage) List(ctx context.Context) ([]*models.Workflow, error) {
	rows, err := s.db.DB().QueryContext(ctx,
		`SELECT id, public_id, url, status, owner_id, created_at, updated_at
		 FROM workflows ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}
	defer rows.Close()

	workflows := []*models.Workflow{}
	for rows.Next() {
		workflow, err := scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}
		workflows = append(workflows, workflow)
	}
	return workflows, rows.Err()
}

// UpdateStatus transitions a PROCESSING workflow to a terminal status.
// The guard on the current status makes terminal states immutable even when
// two finalizers race.
func (s *WorkflowStorage) UpdateStatus(ctx context.Context, publicID string, status models.WorkflowStatus) error {
	if !status.IsTerminal() {
		return fmt.Errorf("cannot transition workflow %s to non-terminal status %s: %w",
			publicID, status, interfaces.ErrStateConflict)
	}

	result, err := s.db.DB().ExecContext(ctx,
		`UPDATE workflows SET status = ?, updated_at = ?
		 WHERE public_id = ? AND status = ?`,
		string(status), time.Now().UTC().Unix(), publicID, string(models.WorkflowStatusProcessing))
	if err != nil {
		return fmt.Errorf("failed to update workflow %s: %w", publicID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected > 0 {
		s.logger.Info().Str("public_id", publicID).Str("status", string(status)).Msg("Workflow finalized")
		return nil
	}

	// Nothing updated: the workflow is either unknown or already terminal.
	current, err := s.GetByPublicID(ctx, publicID)
	if err != nil {
		return err
	}
	return fmt.Errorf("workflow %s already %s: %w", publicID, current.Status, interfaces.ErrStateConflict)
}

// MarkStaleProcessing transitions PROCESSING workflows untouched since the
// cutoff to ERROR. Returns the number of rows affected.
func (s *WorkflowStorage) MarkStaleProcessing(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.DB().ExecContext(ctx,
		`UPDATE workflows SET status = ?, updated_at = ?
		 WHERE status = ? AND updated_at < ?`,
		string(models.WorkflowStatusError), time.Now().UTC().Unix(),
		string(models.WorkflowStatusProcessing), cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to mark stale workflows: %w", err)
	}
	return result.RowsAffected()
}

// scanner abstracts *sql.Row and *sql.Rows for scanWorkflow.
type scanner interface {
	Scan(dest ...any) error
}

func scanWorkflow(row scanner) (*models.Workflow, error) {
	var (
		workflow  models.Workflow
		status    string
		createdAt int64
		updatedAt int64
	)
	if err := row.Scan(&workflow.ID, &workflow.PublicID, &workflow.URL,
		&status, &workflow.OwnerID, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	workflow.Status = models.WorkflowStatus(status)
	workflow.CreatedAt = time.Unix(createdAt, 0).UTC()
	workflow.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &workflow, nil
}
