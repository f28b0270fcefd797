// Package internal provides the App struct that wires all components of
// straywatch together and initializes the CLI layer.
package internal

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/straywatch/straywatch/internal/cli"
	"github.com/straywatch/straywatch/internal/core"
	"github.com/straywatch/straywatch/internal/observability"
	"github.com/straywatch/straywatch/internal/storage"
	"github.com/straywatch/straywatch/pkg/models"
)

// App holds all service dependencies for straywatch.
type App struct {
	BasePath string

	// Configuration
	ConfigMgr core.ConfigurationManager
	Config    *models.Config
	Logger    *slog.Logger

	// Storage layer. Store is nil when the log could not be opened.
	Store    storage.ObservationLog
	StoreErr error

	// Observability
	Metrics     *observability.Metrics
	AlertEngine observability.AlertEngine
	Notifier    observability.Notifier
}

// NewApp creates and wires all components of straywatch. basePath is the
// directory holding .straywatch.yaml and relative log paths. An observation
// log that cannot be opened is not fatal; commands that need it report
// the reason.
func NewApp(basePath string) (*App, error) {
	app := &App{BasePath: basePath}

	// --- Configuration ---
	app.ConfigMgr = core.NewConfigurationManager(basePath)
	cfg, err := app.ConfigMgr.LoadConfig()
	if err != nil {
		return nil, err
	}
	if err := app.ConfigMgr.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	app.Config = cfg
	app.Logger = newLogger(cfg.Log)

	// --- Storage ---
	app.Store, app.StoreErr = storage.Open(cfg.Store, basePath, nil, app.Logger)
	if app.StoreErr != nil {
		app.Logger.Debug("store_open_failed", "kind", cfg.Store.Kind, "err", app.StoreErr)
	}

	// --- Observability ---
	app.Metrics = observability.NewMetrics()
	app.AlertEngine = observability.NewAlertEngine(observability.DefaultAlertThresholds())
	if cfg.Notifications.Enabled && cfg.Notifications.Slack.WebhookURL != "" {
		app.Notifier = observability.NewSlackNotifier(cfg.Notifications.Slack.WebhookURL, nil)
	}

	// --- Wire CLI package-level variables ---
	cli.BasePath = basePath
	cli.Config = cfg
	cli.ConfigMgr = app.ConfigMgr
	cli.Logger = app.Logger
	cli.Store = app.Store
	cli.StoreErr = app.StoreErr
	cli.Metrics = app.Metrics
	cli.AlertEngine = app.AlertEngine
	cli.Notifier = app.Notifier

	return app, nil
}

// newLogger builds the stderr text logger at the configured level. Unknown
// levels log at info.
func newLogger(cfg models.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// Close releases resources held by the App, such as the observation log
// file handle. It is safe to call Close on an App whose Store is nil.
func (a *App) Close() error {
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			return fmt.Errorf("closing observation log: %w", err)
		}
	}
	return nil
}

// ResolveBasePath determines the straywatch base directory. It checks the
// STRAYWATCH_HOME env var, then walks up from the current directory looking
// for .straywatch.yaml, then falls back to the current directory.
func ResolveBasePath() string {
	if home := os.Getenv("STRAYWATCH_HOME"); home != "" {
		return home
	}
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, core.ConfigFileName+".yaml")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	cwd, _ := os.Getwd()
	return cwd
}
