package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
)

var (
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

// ErrChangesDetected is returned by comparison commands run with
// --fail-on-change when the target differs from the baseline.
var ErrChangesDetected = errors.New("changes detected")

var logLevelFlag string

// SetVersionInfo sets the version information injected via ldflags.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

var rootCmd = &cobra.Command{
	Use:   "ppmb",
	Short: "Project schedule baseline variance analysis",
	Long: `ppmb compares project schedule snapshots against approved baselines.

It reports tasks added to and removed from scope, field-level changes to
dates, durations, statuses and dependency counts, and the resulting cost
and duration variance. Baselines can be captured into a local register and
compared against later revisions of the plan.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if !cmd.Flags().Changed("log-level") || LogLevel == nil {
			return nil
		}
		level, err := ParseLogLevel(logLevelFlag)
		if err != nil {
			return err
		}
		LogLevel.Set(level)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "ppmb %s\ncommit: %s\nbuilt:  %s\n", appVersion, appCommit, appDate)
	},
}

// ParseLogLevel maps a configured level name to a slog level.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q (use debug, info, warn or error)", s)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Diagnostic log level (debug, info, warn, error)")
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
