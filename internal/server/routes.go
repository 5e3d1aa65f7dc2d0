package server

import (
	"net/http"

	"github.com/inveniosoftware/airdec-workflows/internal/handlers"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// Workflow routes
	mux.HandleFunc("/workflows", s.handleWorkflowsRoute)  // GET (list), POST (create)
	mux.HandleFunc("/workflows/", s.handleWorkflowRoutes) // GET /{id}, GET /{id}/stream

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	return mux
}

// handleWorkflowsRoute routes /workflows requests (list and create)
func (s *Server) handleWorkflowsRoute(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		s.app.WorkflowHandler.ListWorkflowsHandler(w, r)
	case "POST":
		s.app.WorkflowHandler.CreateWorkflowHandler(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleWorkflowRoutes routes /workflows/{id} and /workflows/{id}/stream
func (s *Server) handleWorkflowRoutes(w http.ResponseWriter, r *http.Request) {
	publicID, stream := handlers.WorkflowPath(r.URL.Path)
	if publicID == "" {
		// Bare /workflows/ behaves like /workflows
		s.handleWorkflowsRoute(w, r)
		return
	}

	if stream {
		s.app.WorkflowHandler.StreamWorkflowHandler(w, r, publicID)
		return
	}

	s.app.WorkflowHandler.GetWorkflowHandler(w, r, publicID)
}
