package models

import "time"

// WorkflowStatus represents the lifecycle state of an extraction workflow.
// The machine is forward-only: PROCESSING is the only non-terminal state.
type WorkflowStatus string

const (
	WorkflowStatusProcessing WorkflowStatus = "PROCESSING"
	WorkflowStatusSuccess    WorkflowStatus = "SUCCESS"
	WorkflowStatusError      WorkflowStatus = "ERROR"
)

// IsTerminal reports whether the status is SUCCESS or ERROR.
func (s WorkflowStatus) IsTerminal() bool {
	return s == WorkflowStatusSuccess || s == WorkflowStatusError
}

// IsValid reports whether the status is one of the known values.
func (s WorkflowStatus) IsValid() bool {
	switch s {
	case WorkflowStatusProcessing, WorkflowStatusSuccess, WorkflowStatusError:
		return true
	}
	return false
}

// Workflow is a tracked extraction request. The numeric id is internal;
// clients only ever see the public id.
type Workflow struct {
	ID        int64          `json:"-"`
	PublicID  string         `json:"public_id"`
	URL       string         `json:"url"`
	Status    WorkflowStatus `json:"status"`
	OwnerID   string         `json:"owner_id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// CreateWorkflowRequest is the body of POST /workflows/.
type CreateWorkflowRequest struct {
	URL           string `json:"url" validate:"required,url,max=2048"`
	ExtractorType string `json:"extractor_type,omitempty" validate:"omitempty,oneof=text markdown"`
	Pages         string `json:"pages,omitempty" validate:"omitempty,max=256"`
}

// CreateWorkflowResponse acknowledges a submitted workflow.
type CreateWorkflowResponse struct {
	PublicID string         `json:"public_id"`
	Status   WorkflowStatus `json:"status"`
}

// WorkflowResult is the response of GET /workflows/{id} once both the
// workflow record and the underlying execution are terminal and successful.
type WorkflowResult struct {
	Status     string            `json:"status"`
	Result     *ExtractionResult `json:"result"`
	WorkflowID string            `json:"workflow_id"`
}
