package app

import (
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/inveniosoftware/airdec-workflows/internal/common"
	"github.com/inveniosoftware/airdec-workflows/internal/engine"
	"github.com/inveniosoftware/airdec-workflows/internal/fetch"
	"github.com/inveniosoftware/airdec-workflows/internal/services/extract"
	"github.com/inveniosoftware/airdec-workflows/internal/services/workflows"
	"github.com/inveniosoftware/airdec-workflows/internal/storage/badger"
	"github.com/inveniosoftware/airdec-workflows/internal/storage/sqlite"
)

// WorkerApp holds the worker process components: the extraction backends,
// the document cache, and the pool that claims queued executions.
type WorkerApp struct {
	Config *common.Config
	Logger arbor.ILogger

	DB               *sqlite.SQLiteDB
	Cache            *badger.BadgerDB
	WorkflowStorage  *sqlite.WorkflowStorage
	ExecutionStorage *sqlite.ExecutionStorage

	Activity *workflows.Activity
	Pool     *engine.WorkerPool
}

// NewWorker initializes the worker application with all dependencies
func NewWorker(cfg *common.Config, logger arbor.ILogger) (*WorkerApp, error) {
	app := &WorkerApp{
		Config: cfg,
		Logger: logger,
	}

	db, err := sqlite.NewSQLiteDB(logger, &cfg.Storage.SQLite)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	app.DB = db

	app.WorkflowStorage = sqlite.NewWorkflowStorage(db, logger)
	app.ExecutionStorage = sqlite.NewExecutionStorage(db, logger)

	// The download cache is worker-local and best-effort: when it cannot
	// be opened the worker runs without one and every attempt re-downloads.
	var documentCache *badger.DocumentCache
	cache, err := badger.NewBadgerDB(logger, &cfg.Storage.Cache)
	if err != nil {
		logger.Warn().Err(err).Str("path", cfg.Storage.Cache.Path).Msg("Document cache unavailable, downloads will not be cached")
	} else {
		app.Cache = cache
		documentCache = badger.NewDocumentCache(cache, common.Duration(cfg.Storage.Cache.TTL, 30*time.Minute), logger)
	}

	fetcher := fetch.NewClient(&cfg.Fetch, logger)
	extractors := extract.NewService(logger)

	app.Activity = workflows.NewActivity(app.WorkflowStorage, extractors, fetcher, documentCache, logger)

	pool := engine.NewWorkerPool(app.ExecutionStorage, &cfg.Engine, logger)
	pool.RegisterHandler(workflows.OperationExtractContent, app.Activity.HandleExtractContent)
	pool.SetObserver(app.Activity)
	app.Pool = pool

	logger.Info().
		Str("sqlite_path", cfg.Storage.SQLite.Path).
		Int("concurrency", cfg.Engine.Concurrency).
		Bool("cache_enabled", documentCache != nil).
		Msg("Worker initialization complete")

	return app, nil
}

// Start launches the worker pool.
func (a *WorkerApp) Start() {
	a.Pool.Start()
}

// Close stops the pool and closes all worker resources
func (a *WorkerApp) Close() error {
	if a.Pool != nil {
		a.Pool.Stop()
	}

	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close document cache")
		}
	}

	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}
		a.Logger.Info().Msg("Database closed")
	}

	return nil
}
