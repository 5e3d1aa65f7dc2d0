package workflows

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/inveniosoftware/airdec-workflows/internal/fetch"
	"github.com/inveniosoftware/airdec-workflows/internal/interfaces"
	"github.com/inveniosoftware/airdec-workflows/internal/models"
	"github.com/inveniosoftware/airdec-workflows/internal/services/extract"
	"github.com/inveniosoftware/airdec-workflows/internal/storage/badger"
)

// Activity is the worker-process side of a workflow: it runs extraction
// attempts and finalizes the workflow record once the execution is terminal.
type Activity struct {
	storage    interfaces.WorkflowStorage
	extractors *extract.Service
	fetcher    *fetch.Client
	cache      *badger.DocumentCache
	logger     arbor.ILogger
}

// NewActivity creates the extraction activity. cache may be nil, in which
// case every attempt downloads the source.
func NewActivity(storage interfaces.WorkflowStorage, extractors *extract.Service, fetcher *fetch.Client, cache *badger.DocumentCache, logger arbor.ILogger) *Activity {
	return &Activity{
		storage:    storage,
		extractors: extractors,
		fetcher:    fetcher,
		cache:      cache,
		logger:     logger,
	}
}

// HandleExtractContent runs one extraction attempt for an execution.
func (a *Activity) HandleExtractContent(ctx context.Context, exec *models.Execution) (any, error) {
	var req models.ExtractionRequest
	if err := json.Unmarshal([]byte(exec.Payload), &req); err != nil {
		return nil, fmt.Errorf("failed to decode extraction request: %w", err)
	}

	data, err := a.fetchDocument(ctx, req.URL)
	if err != nil {
		return nil, err
	}

	content, used, err := a.extractors.Extract(ctx, req.ExtractorType, data, req.Pages)
	if err != nil {
		return nil, err
	}

	a.logger.Info().
		Str("workflow_id", req.WorkflowID).
		Str("extractor", used).
		Int("pages_extracted", content.PagesExtracted).
		Msg("Extraction attempt succeeded")

	return &models.ExtractionResult{
		Text:           content.FullText,
		NumPages:       content.PageCount,
		ExtractorUsed:  used,
		PagesExtracted: content.PagesExtracted,
		Hyperlinks:     content.Hyperlinks,
		Tables:         content.Tables,
		Metadata:       content.Metadata,
	}, nil
}

// fetchDocument serves document bytes from the cache when possible so engine
// retries do not re-download the source.
func (a *Activity) fetchDocument(ctx context.Context, url string) ([]byte, error) {
	if a.cache != nil {
		if data, ok := a.cache.Get(url); ok {
			return data, nil
		}
	}

	data, err := a.fetcher.FetchPDF(ctx, url)
	if err != nil {
		return nil, err
	}

	if a.cache != nil {
		if err := a.cache.Put(url, data); err != nil {
			a.logger.Warn().Err(err).Str("url", url).Msg("Failed to cache downloaded document")
		}
	}
	return data, nil
}

// OnExecutionTerminal finalizes the workflow record after the execution's
// terminal status has been durably recorded. The ordering matters: the
// workflow only reads SUCCESS once its result exists. Finalization failures
// are logged and swallowed; the staleness sweep covers the gap.
func (a *Activity) OnExecutionTerminal(ctx context.Context, exec *models.Execution) {
	publicID := strings.TrimPrefix(exec.ID, OperationExtractContent+"-")

	status := models.WorkflowStatusError
	if exec.Status == models.ExecutionStatusCompleted {
		status = models.WorkflowStatusSuccess
	}

	if err := a.storage.UpdateStatus(ctx, publicID, status); err != nil {
		a.logger.Warn().Err(err).
			Str("public_id", publicID).
			Str("status", string(status)).
			Msg("Failed to finalize workflow")
		return
	}

	a.logger.Info().
		Str("public_id", publicID).
		Str("status", string(status)).
		Msg("Workflow finalized from execution")
}
