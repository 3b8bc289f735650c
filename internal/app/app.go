package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/specialistvlad/tracegridgo/internal/ctxlog"
	"github.com/specialistvlad/tracegridgo/internal/metrics"
	"github.com/specialistvlad/tracegridgo/internal/registry"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW         io.Writer
	logger       *slog.Logger
	registry     *registry.Registry
	modules      []registry.Module
	config       *Config
	runID        uuid.UUID
	promRegistry *prometheus.Registry
	metrics      *metrics.Collector
	httpServer   *http.Server
	healthAddr   string
}

// NewApp is the constructor for the main application. Results are written
// to outW and logs to logW. When no modules are given the core modules
// are registered. Operator libraries are loaded from cfg.LibraryPath.
//
// A registry that fails validation is a programmer error and panics.
func NewApp(outW, logW io.Writer, cfg *Config, modules ...registry.Module) (*App, error) {
	runID := uuid.New()
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW, runID.String())
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	if len(modules) == 0 {
		modules = coreModules(cfg, outW)
	}
	reg := registry.New(modules...)
	logger.Debug("All Go modules registered.", "count", len(modules), "operators", reg.Len())

	if cfg.LibraryPath != "" {
		if err := reg.LoadDir(ctx, cfg.LibraryPath); err != nil {
			return nil, fmt.Errorf("failed to load operator library: %w", err)
		}
	}

	if err := reg.Validate(ctx); err != nil {
		panic(err)
	}
	logger.Debug("Registry validation passed.")

	promRegistry := prometheus.NewRegistry()
	return &App{
		outW:         outW,
		logger:       logger,
		registry:     reg,
		modules:      modules,
		config:       cfg,
		runID:        runID,
		promRegistry: promRegistry,
		metrics:      metrics.New(promRegistry),
	}, nil
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Metrics returns the registry holding the run's collectors.
func (a *App) Metrics() *prometheus.Registry {
	return a.promRegistry
}

// closeModules releases resources held by modules, such as the shared
// HTTP client.
func (a *App) closeModules() {
	for _, m := range a.modules {
		if c, ok := m.(io.Closer); ok {
			if err := c.Close(); err != nil {
				a.logger.Warn("Failed to close module", "module", fmt.Sprintf("%T", m), "error", err)
			}
		}
	}
}
