package cli

import (
	"log/slog"

	"github.com/valter-silva-au/ppm-baseline/internal/core"
	"github.com/valter-silva-au/ppm-baseline/internal/observability"
	"github.com/valter-silva-au/ppm-baseline/pkg/models"
)

// Service instances, set during app initialization in app.go.
var (
	BaselineMgr   core.BaselineManager
	WorkspaceInit core.WorkspaceInitializer

	EventLog    observability.EventLog
	AlertEngine observability.AlertEngine
	MetricsCalc observability.MetricsCalculator
	Notifier    observability.Notifier

	// DefaultFormat is the configured output.format, used when a command's
	// --format flag is empty.
	DefaultFormat = models.FormatTable

	// LogLevel backs the process logger; --log-level adjusts it.
	LogLevel *slog.LevelVar
)
