package app

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/inveniosoftware/airdec-workflows/internal/common"
	"github.com/inveniosoftware/airdec-workflows/internal/engine"
	"github.com/inveniosoftware/airdec-workflows/internal/handlers"
	"github.com/inveniosoftware/airdec-workflows/internal/services/reaper"
	"github.com/inveniosoftware/airdec-workflows/internal/services/workflows"
	"github.com/inveniosoftware/airdec-workflows/internal/storage/sqlite"
)

// App holds the API process components: the workflow store, the engine
// client used to queue extractions, and the HTTP handlers.
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	DB               *sqlite.SQLiteDB
	WorkflowStorage  *sqlite.WorkflowStorage
	ExecutionStorage *sqlite.ExecutionStorage

	WorkflowService *workflows.Service
	Reaper          *reaper.Reaper

	// HTTP handlers
	APIHandler      *handlers.APIHandler
	WorkflowHandler *handlers.WorkflowHandler
}

// New initializes the API application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	// Initialize the shared database. The worker process opens the same
	// file; WAL mode keeps the two out of each other's way.
	db, err := sqlite.NewSQLiteDB(logger, &cfg.Storage.SQLite)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	app.DB = db

	app.WorkflowStorage = sqlite.NewWorkflowStorage(db, logger)
	app.ExecutionStorage = sqlite.NewExecutionStorage(db, logger)

	// The API process only queues executions; the worker runs them.
	engineClient := engine.NewClient(app.ExecutionStorage, logger)
	app.WorkflowService = workflows.NewService(app.WorkflowStorage, engineClient, logger)

	app.APIHandler = handlers.NewAPIHandler(db, logger)
	app.WorkflowHandler = handlers.NewWorkflowHandler(app.WorkflowService, cfg, logger)

	// Staleness reaper: PROCESSING workflows abandoned by a dead worker
	// eventually become ERROR.
	if cfg.Reaper.Enabled {
		app.Reaper = reaper.New(app.WorkflowStorage, &cfg.Reaper, logger)
		if err := app.Reaper.Start(cfg.Reaper.Schedule); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to start staleness reaper: %w", err)
		}
	}

	logger.Info().
		Str("sqlite_path", cfg.Storage.SQLite.Path).
		Bool("reaper_enabled", cfg.Reaper.Enabled).
		Msg("Application initialization complete")

	return app, nil
}

// Close closes all application resources
func (a *App) Close() error {
	if a.Reaper != nil {
		a.Reaper.Stop()
	}

	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}
		a.Logger.Info().Msg("Database closed")
	}

	return nil
}
