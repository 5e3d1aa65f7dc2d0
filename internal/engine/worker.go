package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/inveniosoftware/airdec-workflows/internal/common"
	"github.com/inveniosoftware/airdec-workflows/internal/interfaces"
	"github.com/inveniosoftware/airdec-workflows/internal/models"
)

// Handler runs one attempt of an operation and returns its result value.
type Handler func(ctx context.Context, exec *models.Execution) (any, error)

// TerminalObserver is notified exactly once per execution, after its
// terminal status has been durably recorded.
type TerminalObserver interface {
	OnExecutionTerminal(ctx context.Context, exec *models.Execution)
}

// WorkerPool claims executions from storage and runs registered handlers
// with a retry budget, backoff, and a per-attempt deadline.
type WorkerPool struct {
	storage  interfaces.ExecutionStorage
	handlers map[string]Handler
	observer TerminalObserver
	logger   arbor.ILogger

	pollInterval   time.Duration
	concurrency    int
	maxAttempts    int
	backoff        time.Duration
	attemptTimeout time.Duration
	lockTimeout    time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWorkerPool creates a worker pool from the engine configuration.
func NewWorkerPool(storage interfaces.ExecutionStorage, config *common.EngineConfig, logger arbor.ILogger) *WorkerPool {
	concurrency := config.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	return &WorkerPool{
		storage:        storage,
		handlers:       make(map[string]Handler),
		logger:         logger,
		pollInterval:   common.Duration(config.PollInterval, time.Second),
		concurrency:    concurrency,
		maxAttempts:    config.MaxAttempts,
		backoff:        common.Duration(config.Backoff, 5*time.Second),
		attemptTimeout: common.Duration(config.AttemptTimeout, 2*time.Minute),
		lockTimeout:    common.Duration(config.LockTimeout, 5*time.Minute),
	}
}

// RegisterHandler binds an operation name to its handler.
func (p *WorkerPool) RegisterHandler(operation string, handler Handler) {
	p.handlers[operation] = handler
}

// SetObserver installs the terminal-status observer.
func (p *WorkerPool) SetObserver(observer TerminalObserver) {
	p.observer = observer
}

// Start launches the worker goroutines. Startup is staggered so workers do
// not poll in lockstep.
func (p *WorkerPool) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel

	for i := 0; i < p.concurrency; i++ {
		workerID := common.NewWorkerID()
		stagger := time.Duration(i) * (p.pollInterval / time.Duration(p.concurrency))

		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			select {
			case <-time.After(stagger):
			case <-ctx.Done():
				return
			}
			p.runWorker(ctx, workerID)
		}()
	}

	p.logger.Info().
		Int("concurrency", p.concurrency).
		Str("poll_interval", p.pollInterval.String()).
		Msg("Worker pool started")
}

// Stop signals the workers and waits for in-flight attempts to finish.
func (p *WorkerPool) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	p.logger.Info().Msg("Worker pool stopped")
}

func (p *WorkerPool) runWorker(ctx context.Context, workerID string) {
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Recover abandoned leases before claiming new work.
			if released, err := p.storage.ReleaseExpired(ctx, time.Now()); err == nil && released > 0 {
				p.logger.Warn().Int64("released", released).Msg("Released expired execution leases")
			}

			// Drain available work before sleeping again.
			for {
				if ctx.Err() != nil {
					return
				}
				exec, err := p.storage.Claim(ctx, workerID, time.Now().Add(p.lockTimeout))
				if errors.Is(err, interfaces.ErrNotFound) {
					break
				}
				if err != nil {
					p.logger.Error().Err(err).Str("worker_id", workerID).Msg("Failed to claim execution")
					break
				}
				p.process(ctx, exec)
			}
		}
	}
}

// process runs one attempt and records the outcome.
func (p *WorkerPool) process(ctx context.Context, exec *models.Execution) {
	handler, ok := p.handlers[exec.Operation]
	if !ok {
		p.finishFailed(ctx, exec, fmt.Sprintf("no handler for operation %s", exec.Operation))
		return
	}

	attemptCtx, cancel := context.WithTimeout(ctx, p.attemptTimeout)
	result, err := handler(attemptCtx, exec)
	cancel()

	if err != nil {
		if exec.Attempts < p.maxAttempts {
			p.logger.Warn().
				Err(err).
				Str("execution_id", exec.ID).
				Int("attempt", exec.Attempts).
				Int("max_attempts", p.maxAttempts).
				Msg("Execution attempt failed, will retry")
			if ferr := p.storage.Fail(ctx, exec.ID, err.Error(), true, time.Now().Add(p.backoff)); ferr != nil {
				p.logger.Error().Err(ferr).Str("execution_id", exec.ID).Msg("Failed to record retryable failure")
			}
			return
		}
		p.finishFailed(ctx, exec, err.Error())
		return
	}

	encoded, err := encodeResult(result)
	if err != nil {
		p.finishFailed(ctx, exec, err.Error())
		return
	}

	if err := p.storage.Complete(ctx, exec.ID, encoded); err != nil {
		p.logger.Error().Err(err).Str("execution_id", exec.ID).Msg("Failed to record execution result")
		return
	}

	p.logger.Info().
		Str("execution_id", exec.ID).
		Int("attempt", exec.Attempts).
		Msg("Execution completed")

	exec.Status = models.ExecutionStatusCompleted
	exec.Result = encoded
	p.notify(ctx, exec)
}

// finishFailed records a terminal failure and notifies the observer.
func (p *WorkerPool) finishFailed(ctx context.Context, exec *models.Execution, errMsg string) {
	if err := p.storage.Fail(ctx, exec.ID, errMsg, false, time.Now()); err != nil {
		p.logger.Error().Err(err).Str("execution_id", exec.ID).Msg("Failed to record execution failure")
		return
	}

	p.logger.Error().
		Str("execution_id", exec.ID).
		Str("error", errMsg).
		Int("attempt", exec.Attempts).
		Msg("Execution failed terminally")

	exec.Status = models.ExecutionStatusFailed
	exec.Error = errMsg
	p.notify(ctx, exec)
}

func (p *WorkerPool) notify(ctx context.Context, exec *models.Execution) {
	if p.observer != nil {
		p.observer.OnExecutionTerminal(ctx, exec)
	}
}

func encodeResult(result any) (string, error) {
	if result == nil {
		return "", nil
	}
	body, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("failed to encode execution result: %w", err)
	}
	return string(body), nil
}
