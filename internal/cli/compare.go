package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/ppm-baseline/internal/storage"
)

var (
	compareFormat       string
	compareFailOnChange bool
)

var compareCmd = &cobra.Command{
	Use:   "compare <baseline-file> <target-file>",
	Short: "Compare two project snapshots",
	Long: `Compare a baseline project snapshot with a target snapshot and report
added, deleted and modified tasks together with cost and duration variance.

Snapshots are YAML files, or JSON when the file name ends in .json. Use "-"
to read one snapshot from stdin.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if BaselineMgr == nil {
			return fmt.Errorf("baseline manager not initialized")
		}
		format, err := resolveFormat(compareFormat)
		if err != nil {
			return err
		}

		baseline, err := storage.ReadSnapshot(args[0])
		if err != nil {
			return err
		}
		target, err := storage.ReadSnapshot(args[1])
		if err != nil {
			return err
		}

		result, err := BaselineMgr.Compare(*baseline, *target)
		if err != nil {
			return fmt.Errorf("comparing snapshots: %w", err)
		}

		if err := writeComparison(cmd.OutOrStdout(), result, format); err != nil {
			return err
		}
		if compareFailOnChange && result.HasChanges() {
			return ErrChangesDetected
		}
		return nil
	},
}

func init() {
	compareCmd.Flags().StringVarP(&compareFormat, "format", "f", "", "Output format: table, json or yaml (default from config)")
	compareCmd.Flags().BoolVar(&compareFailOnChange, "fail-on-change", false, "Exit with status 1 when any difference is found")
	compareCmd.ValidArgsFunction = completeSnapshotFiles
	registerFormatCompletion(compareCmd)
	rootCmd.AddCommand(compareCmd)
}
