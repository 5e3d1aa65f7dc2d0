package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/inveniosoftware/airdec-workflows/internal/common"
	"github.com/inveniosoftware/airdec-workflows/internal/interfaces"
	"github.com/inveniosoftware/airdec-workflows/internal/models"
	"github.com/inveniosoftware/airdec-workflows/internal/services/workflows"
)

// WorkflowHandler serves the workflow API surface.
type WorkflowHandler struct {
	service        *workflows.Service
	validate       *validator.Validate
	createLimiter  *rate.Limiter
	streamInterval time.Duration
	logger         arbor.ILogger
}

// NewWorkflowHandler creates the workflow handler.
func NewWorkflowHandler(service *workflows.Service, config *common.Config, logger arbor.ILogger) *WorkflowHandler {
	// Submissions trigger downloads and extraction, so they are rate
	// limited separately from reads. Rate and burst come from config.
	every := common.Duration(config.Server.CreateRateEvery, 10*time.Second)
	burst := config.Server.CreateRateBurst
	if burst <= 0 {
		burst = 1
	}

	return &WorkflowHandler{
		service:        service,
		validate:       validator.New(),
		createLimiter:  rate.NewLimiter(rate.Every(every), burst),
		streamInterval: common.Duration(config.Stream.PollInterval, time.Second),
		logger:         logger,
	}
}

// CreateWorkflowHandler handles POST /workflows/
func (h *WorkflowHandler) CreateWorkflowHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req models.CreateWorkflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	// Invalid input is rejected before it costs a limiter token.
	if !h.createLimiter.Allow() {
		WriteError(w, http.StatusTooManyRequests, "Too many workflow submissions, slow down")
		return
	}

	workflow, err := h.service.Create(r.Context(), &req)
	if err != nil {
		h.logger.Error().Err(err).Str("url", req.URL).Msg("Workflow creation failed")
		WriteError(w, http.StatusInternalServerError, "Could not start extraction workflow")
		return
	}

	WriteJSON(w, http.StatusOK, models.CreateWorkflowResponse{
		PublicID: workflow.PublicID,
		Status:   workflow.Status,
	})
}

// ListWorkflowsHandler handles GET /workflows/
func (h *WorkflowHandler) ListWorkflowsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	listed, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Workflow listing failed")
		WriteError(w, http.StatusInternalServerError, "Could not list workflows")
		return
	}

	WriteJSON(w, http.StatusOK, listed)
}

// GetWorkflowHandler handles GET /workflows/{id}
func (h *WorkflowHandler) GetWorkflowHandler(w http.ResponseWriter, r *http.Request, publicID string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	result, err := h.service.Result(r.Context(), publicID)
	if err != nil {
		switch {
		case errors.Is(err, interfaces.ErrNotFound):
			WriteError(w, http.StatusNotFound, "Workflow not found")
		case errors.Is(err, interfaces.ErrStateConflict):
			// The conflict message carries the observed execution status.
			WriteError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error().Err(err).Str("public_id", publicID).Msg("Workflow result lookup failed")
			WriteError(w, http.StatusInternalServerError, "Could not load workflow result")
		}
		return
	}

	WriteJSON(w, http.StatusOK, result)
}

// StreamWorkflowHandler handles GET /workflows/{id}/stream as an SSE stream
// of bare status tokens. The stream polls the store, emits the status every
// tick, and closes after the first terminal token.
func (h *WorkflowHandler) StreamWorkflowHandler(w http.ResponseWriter, r *http.Request, publicID string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	// Reject unknown ids before committing to the stream content type.
	if _, err := h.service.Get(r.Context(), publicID); err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "Workflow not found")
			return
		}
		WriteError(w, http.StatusInternalServerError, "Could not load workflow")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ticker := time.NewTicker(h.streamInterval)
	defer ticker.Stop()

	for {
		workflow, err := h.service.Get(r.Context(), publicID)
		if err != nil {
			// The record disappearing mid-stream ends the stream; the
			// client re-queries if it cares.
			h.logger.Warn().Err(err).Str("public_id", publicID).Msg("Status stream lookup failed")
			return
		}

		fmt.Fprintf(w, "data: %s\n\n", workflow.Status)
		flusher.Flush()

		if workflow.Status.IsTerminal() {
			return
		}

		select {
		case <-r.Context().Done():
			// Client went away; the workflow itself is untouched.
			return
		case <-ticker.C:
		}
	}
}

// WorkflowPath splits "/workflows/{id}[/stream]" into its parts.
func WorkflowPath(path string) (publicID string, stream bool) {
	rest := strings.TrimPrefix(path, "/workflows/")
	rest = strings.Trim(rest, "/")
	if rest == "" {
		return "", false
	}
	if strings.HasSuffix(rest, "/stream") {
		return strings.TrimSuffix(rest, "/stream"), true
	}
	return rest, false
}
