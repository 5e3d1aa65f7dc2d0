package handlers

import (
	"context"
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/inveniosoftware/airdec-workflows/internal/common"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// APIHandler serves the operational endpoints.
type APIHandler struct {
	db     Pinger
	logger arbor.ILogger
}

// NewAPIHandler creates the operational endpoint handler.
func NewAPIHandler(db Pinger, logger arbor.ILogger) *APIHandler {
	return &APIHandler{db: db, logger: logger}
}

// HealthHandler handles GET /api/health
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	if err := h.db.Ping(r.Context()); err != nil {
		h.logger.Error().Err(err).Msg("Health check database ping failed")
		WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"error":  "database unreachable",
		})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// VersionHandler handles GET /api/version
func (h *APIHandler) VersionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.Build,
		"commit":  common.GitCommit,
	})
}
