// Package app assembles the pipeline core: the SQLite store, the
// domain services, the daily scheduler, and the external
// collaborators, wired from config.
package app

import (
	"context"
	"sync/atomic"

	"github.com/mwhitford/jobops/internal/config"
	"github.com/mwhitford/jobops/pkg/logging"
)

// App owns the assembled resources and the scheduler loop lifecycle.
type App struct {
	logger    *logging.Logger
	resources *Resources

	ctx     context.Context
	cancel  context.CancelFunc
	started atomic.Bool
	done    chan struct{}
}

// New builds the application from config.
func New(cfg config.Config, logger *logging.Logger) (*App, error) {
	res, err := newResources(context.Background(), cfg, logger)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &App{
		logger:    logger,
		resources: res,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}, nil
}

// Run starts the scheduler loop and blocks until shutdown.
func (a *App) Run() error {
	if !a.started.CompareAndSwap(false, true) {
		return nil
	}
	defer close(a.done)

	return a.resources.Scheduler.Run(a.ctx)
}

// Shutdown stops the scheduler loop, waits for the current tick to
// finish or ctx to expire, then closes the store. In-flight database
// writes commit or roll back; nothing is left half-applied.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutdown requested")
	a.cancel()

	if a.started.Load() {
		select {
		case <-a.done:
		case <-ctx.Done():
			a.logger.Warn("shutdown deadline reached before scheduler stopped")
		}
	}

	return a.resources.Store.Close()
}
