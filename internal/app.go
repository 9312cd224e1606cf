// Package internal provides the App struct that wires all components of ppmb
// together and initializes the CLI layer.
package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/valter-silva-au/ppm-baseline/internal/cli"
	"github.com/valter-silva-au/ppm-baseline/internal/core"
	"github.com/valter-silva-au/ppm-baseline/internal/observability"
	"github.com/valter-silva-au/ppm-baseline/internal/storage"
	"github.com/valter-silva-au/ppm-baseline/pkg/models"
)

// EventLogFileName is the JSONL event log kept in the base directory.
const EventLogFileName = ".ppmb_events.jsonl"

// App holds all service dependencies of ppmb.
type App struct {
	BasePath string
	Logger   *slog.Logger

	// Configuration
	ConfigMgr core.ConfigurationManager
	Config    *models.GlobalConfig

	// Storage layer
	BaselineStore storage.BaselineStoreManager

	// Core services
	BaselineMgr   core.BaselineManager
	WorkspaceInit core.WorkspaceInitializer

	// Observability
	EventLog    observability.EventLog
	AlertEngine observability.AlertEngine
	MetricsCalc observability.MetricsCalculator
	Notifier    observability.Notifier
}

// NewApp creates and wires all components of ppmb. basePath is the
// directory holding .ppmconfig, the baseline register and the event log.
// logLevel backs the process logger and is set from log_level; it may be nil.
func NewApp(basePath string, logLevel *slog.LevelVar) (*App, error) {
	if logLevel == nil {
		logLevel = new(slog.LevelVar)
	}
	app := &App{
		BasePath: basePath,
		Logger:   slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})),
	}

	// --- Configuration ---
	app.ConfigMgr = core.NewConfigurationManager(basePath)
	globalCfg, err := app.ConfigMgr.LoadGlobalConfig()
	if err != nil {
		app.Logger.Warn("loading configuration, using defaults", "error", err)
		globalCfg = models.DefaultGlobalConfig()
	}
	if err := app.ConfigMgr.ValidateConfig(globalCfg); err != nil {
		return nil, err
	}
	app.Config = globalCfg

	level, err := cli.ParseLogLevel(globalCfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logLevel.Set(level)

	// --- Storage layer ---
	app.BaselineStore = storage.NewBaselineStoreManager(basePath)
	if err := app.BaselineStore.Load(); err != nil {
		return nil, fmt.Errorf("loading baseline register: %w", err)
	}

	// --- Observability ---
	app.EventLog, err = observability.NewJSONLEventLog(filepath.Join(basePath, EventLogFileName))
	if err != nil {
		// Non-fatal: comparisons still work without metrics and alerts.
		app.Logger.Warn("event log disabled", "error", err)
		app.EventLog = nil
	}
	if app.EventLog != nil {
		app.AlertEngine = observability.NewAlertEngine(app.EventLog, observability.AlertThresholds{
			CostOverrunPercent: globalCfg.Alerts.CostOverrunPercent,
			ScheduleSlipDays:   globalCfg.Alerts.ScheduleSlipDays,
			MaxScopeChanges:    globalCfg.Alerts.MaxScopeChanges,
		})
		app.MetricsCalc = observability.NewMetricsCalculator(app.EventLog)
	}
	if globalCfg.Notifications.Enabled && globalCfg.Notifications.Slack.WebhookURL != "" {
		app.Notifier = observability.NewSlackNotifier(globalCfg.Notifications.Slack.WebhookURL)
	}

	// --- Core services ---
	var evtAdapter core.EventLogger
	if app.EventLog != nil {
		evtAdapter = &eventLogAdapter{log: app.EventLog}
	}
	app.BaselineMgr = core.NewBaselineManager(&baselineStoreAdapter{mgr: app.BaselineStore}, evtAdapter, app.Logger)
	app.WorkspaceInit = core.NewWorkspaceInitializer()

	// --- Wire CLI package-level variables ---
	cli.BaselineMgr = app.BaselineMgr
	cli.WorkspaceInit = app.WorkspaceInit
	cli.EventLog = app.EventLog
	cli.AlertEngine = app.AlertEngine
	cli.MetricsCalc = app.MetricsCalc
	cli.Notifier = app.Notifier
	cli.DefaultFormat = globalCfg.OutputFormat
	cli.LogLevel = logLevel

	return app, nil
}

// Close releases resources held by the App, such as the event log file handle.
// It is safe to call Close on an App whose EventLog is nil.
func (a *App) Close() error {
	if a.EventLog != nil {
		return a.EventLog.Close()
	}
	return nil
}

// ResolveBasePath determines the ppmb data directory. PPMB_HOME wins;
// otherwise the nearest directory at or above the working directory that
// contains a .ppmconfig file, falling back to the working directory.
func ResolveBasePath() string {
	if home := os.Getenv("PPMB_HOME"); home != "" {
		return home
	}
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	for {
		if hasConfigFile(dir) {
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

// hasConfigFile reports whether dir holds .ppmconfig with any extension.
func hasConfigFile(dir string) bool {
	matches, err := filepath.Glob(filepath.Join(dir, core.ConfigFileName+"*"))
	return err == nil && len(matches) > 0
}

// --- Adapters ---

// baselineStoreAdapter adapts storage.BaselineStoreManager to core.BaselineStore.
// Every call rereads the register so changes saved by other ppmb processes,
// such as a CLI capture while `ppmb mcp serve` runs, are visible. Every
// mutation is saved immediately; a failed save leaves nothing behind.
type baselineStoreAdapter struct {
	mgr storage.BaselineStoreManager
}

func (a *baselineStoreAdapter) PutBaseline(b models.Baseline) error {
	if err := a.mgr.Load(); err != nil {
		return err
	}
	if err := a.mgr.AddBaseline(b); err != nil {
		return storeError(err)
	}
	return storeError(a.mgr.Save())
}

func (a *baselineStoreAdapter) FindBaseline(name string) (*models.Baseline, error) {
	if err := a.mgr.Load(); err != nil {
		return nil, err
	}
	b, err := a.mgr.GetBaseline(name)
	if errors.Is(err, storage.ErrBaselineNotFound) {
		return nil, nil
	}
	return b, err
}

func (a *baselineStoreAdapter) ListBaselines() ([]models.Baseline, error) {
	if err := a.mgr.Load(); err != nil {
		return nil, err
	}
	return a.mgr.GetAllBaselines()
}

func (a *baselineStoreAdapter) DeleteBaseline(name string) error {
	if err := a.mgr.Load(); err != nil {
		return err
	}
	if err := a.mgr.RemoveBaseline(name); err != nil {
		return storeError(err)
	}
	return storeError(a.mgr.Save())
}

// storeError maps storage sentinels onto their core counterparts.
func storeError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrBaselineExists):
		return fmt.Errorf("%w: %w", core.ErrBaselineExists, err)
	case errors.Is(err, storage.ErrBaselineNotFound):
		return fmt.Errorf("%w: %w", core.ErrBaselineNotFound, err)
	default:
		return err
	}
}

// eventLogAdapter adapts observability.EventLog to core.EventLogger.
type eventLogAdapter struct {
	log observability.EventLog
}

func (a *eventLogAdapter) LogEvent(eventType string, data map[string]any) error {
	return a.log.Write(observability.Event{
		Time:    time.Now().UTC(),
		Level:   observability.LevelInfo,
		Type:    eventType,
		Message: eventType,
		Data:    data,
	})
}
