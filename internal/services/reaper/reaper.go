package reaper

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/inveniosoftware/airdec-workflows/internal/common"
	"github.com/inveniosoftware/airdec-workflows/internal/interfaces"
)

// Reaper periodically marks PROCESSING workflows that have not been touched
// within the staleness window as ERROR. It is the safety net for workers
// that died after claiming work but before finalizing the record.
type Reaper struct {
	storage interfaces.WorkflowStorage
	cron    *cron.Cron
	window  time.Duration
	logger  arbor.ILogger
}

// New creates a reaper from the configuration.
func New(storage interfaces.WorkflowStorage, config *common.ReaperConfig, logger arbor.ILogger) *Reaper {
	return &Reaper{
		storage: storage,
		cron:    cron.New(),
		window:  common.Duration(config.StalenessWindow, 30*time.Minute),
		logger:  logger,
	}
}

// Start schedules the sweep.
func (r *Reaper) Start(schedule string) error {
	if _, err := r.cron.AddFunc(schedule, r.Sweep); err != nil {
		return err
	}
	r.cron.Start()

	r.logger.Info().
		Str("schedule", schedule).
		Str("staleness_window", r.window.String()).
		Msg("Staleness reaper started")
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (r *Reaper) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	r.logger.Info().Msg("Staleness reaper stopped")
}

// Sweep runs one pass over stale PROCESSING workflows.
func (r *Reaper) Sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cutoff := time.Now().Add(-r.window)
	affected, err := r.storage.MarkStaleProcessing(ctx, cutoff)
	if err != nil {
		r.logger.Error().Err(err).Msg("Staleness sweep failed")
		return
	}
	if affected > 0 {
		r.logger.Warn().
			Int64("workflows", affected).
			Str("cutoff", cutoff.Format(time.RFC3339)).
			Msg("Stale PROCESSING workflows marked ERROR")
	}
}
