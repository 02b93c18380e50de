// Package app wires the pipeline orchestrator together: it owns the logger,
// loads the pipeline document, gates the trigger, runs the scheduler and
// hands the finished run to the reporter and the history store.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/vk/pipegrid/internal/config"
	"github.com/vk/pipegrid/internal/ctxlog"
	"github.com/vk/pipegrid/internal/history"
	"github.com/vk/pipegrid/internal/localexec"
	"github.com/vk/pipegrid/internal/run"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	config *Config
	model  *config.Model
	exec   localexec.Executor

	// historyMu guards the history store, which Run assigns while the
	// status server's handlers may already be reading it.
	historyMu sync.RWMutex
	history   history.Store

	// bundlesMu guards the result bundles published after the run, which
	// the status server reads concurrently.
	bundlesMu sync.RWMutex
	bundles   []run.Bundle
}

// setHistory installs the run history store.
func (a *App) setHistory(store history.Store) {
	a.historyMu.Lock()
	defer a.historyMu.Unlock()
	a.history = store
}

// historyStore returns the installed history store, or nil.
func (a *App) historyStore() history.Store {
	a.historyMu.RLock()
	defer a.historyMu.RUnlock()
	return a.history
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance with its own isolated logger and a loaded,
// validated pipeline model.
func NewApp(outW io.Writer, appConfig *Config, loader config.Loader, exec localexec.Executor) *App {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	model, err := loader.Load(ctx, appConfig.PipelinePath)
	if err != nil {
		// A failure to load the pipeline definition is a fatal startup error.
		panic(fmt.Errorf("failed to load pipeline definition: %w", err))
	}
	logger.Debug("Pipeline definition loaded and validated.", "pipeline", model.Name, "jobs", len(model.Jobs))

	if exec == nil {
		exec = localexec.NewLocal()
	}

	return &App{
		outW:   outW,
		logger: logger,
		config: appConfig,
		model:  model,
		exec:   exec,
	}
}

// Model returns the loaded pipeline model. This is primarily for testing.
func (a *App) Model() *config.Model {
	return a.model
}

// publishBundles exposes the run's result bundles to external consumers
// (currently the status server).
func (a *App) publishBundles(bundles []run.Bundle) {
	a.bundlesMu.Lock()
	defer a.bundlesMu.Unlock()
	a.bundles = bundles
}

// Bundles returns the result bundles of the last finished run.
func (a *App) Bundles() []run.Bundle {
	a.bundlesMu.RLock()
	defer a.bundlesMu.RUnlock()
	return a.bundles
}
