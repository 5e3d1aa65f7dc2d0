package workflows

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/inveniosoftware/airdec-workflows/internal/interfaces"
	"github.com/inveniosoftware/airdec-workflows/internal/models"
)

const (
	// OperationExtractContent is the engine operation name for PDF extraction.
	OperationExtractContent = "extract-content"

	// DefaultOwnerID is the placeholder owner recorded on every workflow
	// until multi-tenancy exists. First-class in the schema so it can
	// become real without a migration.
	DefaultOwnerID = "local"
)

// ExecutionID derives the deterministic execution id for a workflow. The
// determinism is what gives at-most-one-run dedupe in the engine.
func ExecutionID(publicID string) string {
	return OperationExtractContent + "-" + publicID
}

// Service orchestrates workflow lifecycle from the API process: creation,
// engine submission, lookup, and result assembly.
type Service struct {
	storage interfaces.WorkflowStorage
	engine  interfaces.ExecutionEngine
	logger  arbor.ILogger
}

// NewService creates the workflow orchestration service.
func NewService(storage interfaces.WorkflowStorage, engine interfaces.ExecutionEngine, logger arbor.ILogger) *Service {
	return &Service{storage: storage, engine: engine, logger: logger}
}

// Create persists a new PROCESSING workflow and submits its extraction to
// the engine. When submission fails the workflow is marked ERROR
// best-effort and the submission error is returned.
func (s *Service) Create(ctx context.Context, req *models.CreateWorkflowRequest) (*models.Workflow, error) {
	workflow, err := s.storage.Create(ctx, req.URL, DefaultOwnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to create workflow: %w", err)
	}

	payload := models.ExtractionRequest{
		WorkflowID:    workflow.PublicID,
		URL:           req.URL,
		ExtractorType: req.ExtractorType,
		Pages:         req.Pages,
	}

	if _, err := s.engine.Submit(ctx, ExecutionID(workflow.PublicID), OperationExtractContent, payload); err != nil {
		// The record must not stay PROCESSING with nothing running behind
		// it. The ERROR write is best-effort: its own failure is logged
		// and swallowed, the submission error is what the caller sees.
		if uerr := s.storage.UpdateStatus(ctx, workflow.PublicID, models.WorkflowStatusError); uerr != nil {
			s.logger.Warn().Err(uerr).
				Str("public_id", workflow.PublicID).
				Msg("Failed to mark workflow ERROR after submission failure")
		}
		return nil, fmt.Errorf("failed to submit extraction: %w", err)
	}

	return workflow, nil
}

// Get returns a workflow by public id.
func (s *Service) Get(ctx context.Context, publicID string) (*models.Workflow, error) {
	return s.storage.GetByPublicID(ctx, publicID)
}

// List returns all workflows, newest first.
func (s *Service) List(ctx context.Context) ([]*models.Workflow, error) {
	return s.storage.List(ctx)
}

// Result assembles the final response for a workflow. Both sources of truth
// must agree: the workflow record must be terminal AND the engine must
// report a completed execution. Anything else is a state conflict carrying
// the observed execution status.
func (s *Service) Result(ctx context.Context, publicID string) (*models.WorkflowResult, error) {
	workflow, err := s.storage.GetByPublicID(ctx, publicID)
	if err != nil {
		return nil, err
	}

	if !workflow.Status.IsTerminal() {
		return nil, fmt.Errorf("workflow %s is still processing: %w", publicID, interfaces.ErrStateConflict)
	}

	handle := ExecutionID(publicID)
	status, err := s.engine.Describe(ctx, handle)
	if errors.Is(err, interfaces.ErrNotFound) {
		// The workflow exists but nothing was ever enqueued for it, which
		// happens when engine submission failed at create time. That is a
		// state conflict on this workflow, not a missing resource.
		return nil, fmt.Errorf("workflow %s has no execution: %w", publicID, interfaces.ErrStateConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to describe execution for workflow %s: %w", publicID, err)
	}
	if status != models.ExecutionStatusCompleted {
		return nil, fmt.Errorf("workflow %s execution is %s: %w", publicID, status, interfaces.ErrStateConflict)
	}

	raw, err := s.engine.Result(ctx, handle)
	if err != nil {
		return nil, fmt.Errorf("failed to load result for workflow %s: %w", publicID, err)
	}

	var result models.ExtractionResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("failed to decode result for workflow %s: %w", publicID, err)
	}

	return &models.WorkflowResult{
		Status:     "COMPLETED",
		Result:     &result,
		WorkflowID: publicID,
	}, nil
}
