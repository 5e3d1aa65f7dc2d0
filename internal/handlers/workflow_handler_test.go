package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inveniosoftware/airdec-workflows/internal/common"
	"github.com/inveniosoftware/airdec-workflows/internal/engine"
	"github.com/inveniosoftware/airdec-workflows/internal/models"
	"github.com/inveniosoftware/airdec-workflows/internal/services/workflows"
	"github.com/inveniosoftware/airdec-workflows/internal/storage/sqlite"
)

type handlerEnv struct {
	workflows  *sqlite.WorkflowStorage
	executions *sqlite.ExecutionStorage
	handler    *WorkflowHandler
}

func newHandlerEnv(t *testing.T) *handlerEnv {
	t.Helper()

	config := &common.SQLiteConfig{
		Path:          filepath.Join(t.TempDir(), "test.db"),
		CacheSizeMB:   16,
		BusyTimeoutMS: 1000,
		WALMode:       true,
	}
	db, err := sqlite.NewSQLiteDB(common.GetLogger(), config)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	workflowStorage := sqlite.NewWorkflowStorage(db, common.GetLogger())
	executionStorage := sqlite.NewExecutionStorage(db, common.GetLogger())
	client := engine.NewClient(executionStorage, common.GetLogger())
	service := workflows.NewService(workflowStorage, client, common.GetLogger())

	appConfig := common.NewDefaultConfig()
	appConfig.Stream.PollInterval = "10ms"

	return &handlerEnv{
		workflows:  workflowStorage,
		executions: executionStorage,
		handler:    NewWorkflowHandler(service, appConfig, common.GetLogger()),
	}
}

func (e *handlerEnv) createWorkflow(t *testing.T, url string) string {
	t.Helper()

	body := strings.NewReader(`{"url":"` + url + `"}`)
	req := httptest.NewRequest(http.MethodPost, "/workflows/", body)
	rec := httptest.NewRecorder()
	e.handler.CreateWorkflowHandler(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp models.CreateWorkflowResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.PublicID
}

func TestCreateWorkflowHandler(t *testing.T) {
	env := newHandlerEnv(t)

	body := strings.NewReader(`{"url":"https://example.org/paper.pdf","extractor_type":"text","pages":"1,-1"}`)
	req := httptest.NewRequest(http.MethodPost, "/workflows/", body)
	rec := httptest.NewRecorder()
	env.handler.CreateWorkflowHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp models.CreateWorkflowResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, common.IsValidPublicID(resp.PublicID))
	assert.Equal(t, models.WorkflowStatusProcessing, resp.Status)
}

func TestCreateWorkflowHandler_Validation(t *testing.T) {
	env := newHandlerEnv(t)

	tests := []struct {
		name string
		body string
	}{
		{"missing url", `{}`},
		{"not a url", `{"url":"not-a-url"}`},
		{"unknown extractor", `{"url":"https://example.org/a.pdf","extractor_type":"ocr"}`},
		{"malformed json", `{"url":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/workflows/", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			env.handler.CreateWorkflowHandler(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestCreateWorkflowHandler_MethodNotAllowed(t *testing.T) {
	env := newHandlerEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/workflows/", nil)
	rec := httptest.NewRecorder()
	env.handler.CreateWorkflowHandler(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCreateWorkflowHandler_RateLimited(t *testing.T) {
	env := newHandlerEnv(t)

	// The limiter allows a burst of three; the fourth immediate request
	// must be rejected.
	var last int
	for i := 0; i < 4; i++ {
		req := httptest.NewRequest(http.MethodPost, "/workflows/",
			strings.NewReader(`{"url":"https://example.org/paper.pdf"}`))
		rec := httptest.NewRecorder()
		env.handler.CreateWorkflowHandler(rec, req)
		last = rec.Code
	}

	assert.Equal(t, http.StatusTooManyRequests, last)
}

func TestCreateWorkflowHandler_InvalidInputKeepsRateBudget(t *testing.T) {
	env := newHandlerEnv(t)

	// Invalid submissions are rejected before the limiter, so a pile of
	// them beyond the burst size stays 400 and never turns into 429.
	for i := 0; i < 10; i++ {
		req := httptest.NewRequest(http.MethodPost, "/workflows/", strings.NewReader(`{}`))
		rec := httptest.NewRecorder()
		env.handler.CreateWorkflowHandler(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	}

	// The budget is untouched; a valid submission still goes through.
	env.createWorkflow(t, "https://example.org/paper.pdf")
}

func TestCreateWorkflowHandler_RateFromConfig(t *testing.T) {
	env := newHandlerEnv(t)

	client := engine.NewClient(env.executions, common.GetLogger())
	service := workflows.NewService(env.workflows, client, common.GetLogger())

	appConfig := common.NewDefaultConfig()
	appConfig.Server.CreateRateEvery = "1h"
	appConfig.Server.CreateRateBurst = 1
	handler := NewWorkflowHandler(service, appConfig, common.GetLogger())

	first := httptest.NewRecorder()
	handler.CreateWorkflowHandler(first, httptest.NewRequest(http.MethodPost, "/workflows/",
		strings.NewReader(`{"url":"https://example.org/a.pdf"}`)))
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())

	second := httptest.NewRecorder()
	handler.CreateWorkflowHandler(second, httptest.NewRequest(http.MethodPost, "/workflows/",
		strings.NewReader(`{"url":"https://example.org/b.pdf"}`)))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestListWorkflowsHandler(t *testing.T) {
	env := newHandlerEnv(t)

	first := env.createWorkflow(t, "https://example.org/a.pdf")
	second := env.createWorkflow(t, "https://example.org/b.pdf")

	req := httptest.NewRequest(http.MethodGet, "/workflows/", nil)
	rec := httptest.NewRecorder()
	env.handler.ListWorkflowsHandler(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var listed []*models.Workflow
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed, 2)
	assert.Equal(t, second, listed[0].PublicID)
	assert.Equal(t, first, listed[1].PublicID)
}

func TestGetWorkflowHandler_NotFound(t *testing.T) {
	env := newHandlerEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/workflows/x7k2m9p4q1w8e5r3t6y0u", nil)
	rec := httptest.NewRecorder()
	env.handler.GetWorkflowHandler(rec, req, "x7k2m9p4q1w8e5r3t6y0u")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetWorkflowHandler_StillProcessing(t *testing.T) {
	env := newHandlerEnv(t)
	publicID := env.createWorkflow(t, "https://example.org/paper.pdf")

	req := httptest.NewRequest(http.MethodGet, "/workflows/"+publicID, nil)
	rec := httptest.NewRecorder()
	env.handler.GetWorkflowHandler(rec, req, publicID)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "still processing")
}

func TestGetWorkflowHandler_NoExecutionIsConflict(t *testing.T) {
	env := newHandlerEnv(t)
	ctx := context.Background()

	// A workflow that went ERROR before anything was enqueued exists, so
	// asking for its result is a conflict, not a missing resource.
	workflow, err := env.workflows.Create(ctx, "https://example.org/paper.pdf", workflows.DefaultOwnerID)
	require.NoError(t, err)
	require.NoError(t, env.workflows.UpdateStatus(ctx, workflow.PublicID, models.WorkflowStatusError))

	req := httptest.NewRequest(http.MethodGet, "/workflows/"+workflow.PublicID, nil)
	rec := httptest.NewRecorder()
	env.handler.GetWorkflowHandler(rec, req, workflow.PublicID)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "no execution")
}

func TestGetWorkflowHandler_Completed(t *testing.T) {
	env := newHandlerEnv(t)
	ctx := context.Background()
	publicID := env.createWorkflow(t, "https://example.org/paper.pdf")

	// Drive the execution to completion the way a worker would.
	_, err := env.executions.Claim(ctx, "worker-a", time.Now().Add(5*time.Minute))
	require.NoError(t, err)
	require.NoError(t, env.executions.Complete(ctx, workflows.ExecutionID(publicID),
		`{"text":"hello","num_pages":2,"extractor_used":"text","pages_extracted":2}`))
	require.NoError(t, env.workflows.UpdateStatus(ctx, publicID, models.WorkflowStatusSuccess))

	req := httptest.NewRequest(http.MethodGet, "/workflows/"+publicID, nil)
	rec := httptest.NewRecorder()
	env.handler.GetWorkflowHandler(rec, req, publicID)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result models.WorkflowResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "COMPLETED", result.Status)
	assert.Equal(t, publicID, result.WorkflowID)
	require.NotNil(t, result.Result)
	assert.Equal(t, "hello", result.Result.Text)
}

func TestStreamWorkflowHandler_NotFound(t *testing.T) {
	env := newHandlerEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/workflows/x7k2m9p4q1w8e5r3t6y0u/stream", nil)
	rec := httptest.NewRecorder()
	env.handler.StreamWorkflowHandler(rec, req, "x7k2m9p4q1w8e5r3t6y0u")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStreamWorkflowHandler_TerminalClosesStream(t *testing.T) {
	env := newHandlerEnv(t)
	ctx := context.Background()
	publicID := env.createWorkflow(t, "https://example.org/paper.pdf")
	require.NoError(t, env.workflows.UpdateStatus(ctx, publicID, models.WorkflowStatusSuccess))

	req := httptest.NewRequest(http.MethodGet, "/workflows/"+publicID+"/stream", nil)
	rec := httptest.NewRecorder()
	env.handler.StreamWorkflowHandler(rec, req, publicID)

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	// Already terminal: exactly one token, then the stream closes.
	events := readSSETokens(t, rec.Body.String())
	require.Len(t, events, 1)
	assert.Equal(t, "SUCCESS", events[0])
}

func TestStreamWorkflowHandler_EmitsUntilTerminal(t *testing.T) {
	env := newHandlerEnv(t)
	ctx := context.Background()
	publicID := env.createWorkflow(t, "https://example.org/paper.pdf")

	done := make(chan string, 1)
	go func() {
		req := httptest.NewRequest(http.MethodGet, "/workflows/"+publicID+"/stream", nil)
		rec := httptest.NewRecorder()
		env.handler.StreamWorkflowHandler(rec, req, publicID)
		done <- rec.Body.String()
	}()

	// Let a few PROCESSING ticks through before finishing the workflow.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, env.workflows.UpdateStatus(ctx, publicID, models.WorkflowStatusError))

	select {
	case body := <-done:
		events := readSSETokens(t, body)
		require.NotEmpty(t, events)
		assert.Equal(t, "PROCESSING", events[0])
		assert.Equal(t, "ERROR", events[len(events)-1])
		for _, event := range events[:len(events)-1] {
			assert.Equal(t, "PROCESSING", event)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not close after workflow reached a terminal status")
	}
}

func TestStreamWorkflowHandler_ClientDisconnect(t *testing.T) {
	env := newHandlerEnv(t)
	publicID := env.createWorkflow(t, "https://example.org/paper.pdf")

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/workflows/"+publicID+"/stream", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		env.handler.StreamWorkflowHandler(rec, req, publicID)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not end after client disconnect")
	}

	// The workflow itself is untouched by the disconnect.
	loaded, err := env.workflows.GetByPublicID(context.Background(), publicID)
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusProcessing, loaded.Status)
}

func readSSETokens(t *testing.T, body string) []string {
	t.Helper()

	var tokens []string
	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "data: ") {
			tokens = append(tokens, strings.TrimPrefix(line, "data: "))
		}
	}
	require.NoError(t, scanner.Err())
	return tokens
}

func TestWorkflowPath(t *testing.T) {
	tests := []struct {
		path     string
		publicID string
		stream   bool
	}{
		{"/workflows/abc123", "abc123", false},
		{"/workflows/abc123/", "abc123", false},
		{"/workflows/abc123/stream", "abc123", true},
		{"/workflows/", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			publicID, stream := WorkflowPath(tt.path)
			assert.Equal(t, tt.publicID, publicID)
			assert.Equal(t, tt.stream, stream)
		})
	}
}
