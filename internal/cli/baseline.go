package cli

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/valter-silva-au/ppm-baseline/internal/core"
	"github.com/valter-silva-au/ppm-baseline/internal/storage"
	"github.com/valter-silva-au/ppm-baseline/pkg/models"
)

var (
	baselineName         string
	baselineNote         string
	baselineProject      string
	baselineFormat       string
	baselineFailOnChange bool
)

var baselineCmd = &cobra.Command{
	Use:   "baseline",
	Short: "Manage captured project baselines",
	Long: `Capture, inspect and compare against named project baselines.

Baselines are frozen copies of a project snapshot kept in the baseline
register (baselines.yaml) under the ppmb home directory.`,
}

var baselineCaptureCmd = &cobra.Command{
	Use:   "capture <snapshot-file>",
	Short: "Capture a snapshot as a named baseline",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if BaselineMgr == nil {
			return fmt.Errorf("baseline manager not initialized")
		}
		snap, err := storage.ReadSnapshot(args[0])
		if err != nil {
			return err
		}

		b, err := BaselineMgr.CaptureBaseline(*snap, baselineName, baselineNote)
		if err != nil {
			if errors.Is(err, core.ErrBaselineExists) {
				return fmt.Errorf("%w (choose another --name or delete the existing baseline)", err)
			}
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Captured baseline %s (%d tasks, budget %.2f)\n",
			b.Name, len(b.Snapshot.Tasks), b.Snapshot.Budget)
		return nil
	},
}

var baselineListCmd = &cobra.Command{
	Use:   "list",
	Short: "List captured baselines",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if BaselineMgr == nil {
			return fmt.Errorf("baseline manager not initialized")
		}
		baselines, err := BaselineMgr.ListBaselines(baselineProject)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(baselines) == 0 {
			fmt.Fprintln(out, "No baselines captured.")
			return nil
		}

		t := newReportTable("NAME", "PROJECT", "CAPTURED", "TASKS", "BUDGET", "NOTE")
		for _, b := range baselines {
			t.Row(
				b.Name,
				b.ProjectID,
				b.CapturedAt.Format("2006-01-02 15:04"),
				fmt.Sprintf("%d", len(b.Snapshot.Tasks)),
				fmt.Sprintf("%.2f", b.Snapshot.Budget),
				b.Note,
			)
		}
		fmt.Fprintln(out, t.String())
		return nil
	},
}

var baselineShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show the tasks of a captured baseline",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if BaselineMgr == nil {
			return fmt.Errorf("baseline manager not initialized")
		}
		format, err := resolveFormat(baselineFormat)
		if err != nil {
			return err
		}
		b, err := BaselineMgr.GetBaseline(args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if format != models.FormatTable {
			return writeStructured(out, b, format)
		}
		fmt.Fprintln(out, renderBaseline(b))
		return nil
	},
}

var baselineCompareCmd = &cobra.Command{
	Use:   "compare <name> <current-file>",
	Short: "Compare a snapshot against a captured baseline",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if BaselineMgr == nil {
			return fmt.Errorf("baseline manager not initialized")
		}
		format, err := resolveFormat(baselineFormat)
		if err != nil {
			return err
		}
		current, err := storage.ReadSnapshot(args[1])
		if err != nil {
			return err
		}

		result, err := BaselineMgr.CompareToBaseline(args[0], *current)
		if err != nil {
			return err
		}

		if err := writeComparison(cmd.OutOrStdout(), result, format); err != nil {
			return err
		}
		if baselineFailOnChange && result.HasChanges() {
			return ErrChangesDetected
		}
		return nil
	},
}

var baselineDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a captured baseline",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if BaselineMgr == nil {
			return fmt.Errorf("baseline manager not initialized")
		}
		if err := BaselineMgr.DeleteBaseline(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted baseline %s\n", args[0])
		return nil
	},
}

// renderBaseline prints the register entry header followed by its tasks.
func renderBaseline(b *models.Baseline) string {
	header := lipgloss.JoinVertical(lipgloss.Left,
		sectionStyle.Render("Baseline "+b.Name),
		fmt.Sprintf("  Project:   %s", b.ProjectID),
		fmt.Sprintf("  Captured:  %s", b.CapturedAt.Format("2006-01-02 15:04 MST")),
		fmt.Sprintf("  Budget:    %.2f", b.Snapshot.Budget),
	)
	if b.Note != "" {
		header = lipgloss.JoinVertical(lipgloss.Left, header, fmt.Sprintf("  Note:      %s", b.Note))
	}

	if len(b.Snapshot.Tasks) == 0 {
		return header + "\n\n" + mutedStyle.Render("  No tasks.")
	}

	t := newReportTable("ID", "WBS", "NAME", "START", "END", "DAYS", "STATUS", "LINKS")
	for _, task := range b.Snapshot.Tasks {
		t.Row(
			task.ID,
			task.WBSCode,
			task.Name,
			task.StartDate,
			task.EndDate,
			fmt.Sprintf("%d", task.Duration),
			string(task.Status),
			fmt.Sprintf("%d", len(task.Dependencies)),
		)
	}
	return header + "\n\n" + t.String()
}

func init() {
	baselineCaptureCmd.Flags().StringVar(&baselineName, "name", "", "Baseline name (default <project-id>-<timestamp>)")
	baselineCaptureCmd.Flags().StringVar(&baselineNote, "note", "", "Free-text note stored with the baseline")
	baselineListCmd.Flags().StringVar(&baselineProject, "project", "", "Only list baselines of this project")
	baselineShowCmd.Flags().StringVarP(&baselineFormat, "format", "f", "", "Output format: table, json or yaml (default from config)")
	baselineCompareCmd.Flags().StringVarP(&baselineFormat, "format", "f", "", "Output format: table, json or yaml (default from config)")
	baselineCompareCmd.Flags().BoolVar(&baselineFailOnChange, "fail-on-change", false, "Exit with status 1 when any difference is found")

	baselineCaptureCmd.ValidArgsFunction = completeSnapshotFiles
	baselineShowCmd.ValidArgsFunction = completeBaselineNames
	baselineDeleteCmd.ValidArgsFunction = completeBaselineNames
	baselineCompareCmd.ValidArgsFunction = completeBaselineThenFile
	_ = baselineListCmd.RegisterFlagCompletionFunc("project", completeProjectIDs)
	registerFormatCompletion(baselineShowCmd)
	registerFormatCompletion(baselineCompareCmd)

	baselineCmd.AddCommand(baselineCaptureCmd, baselineListCmd, baselineShowCmd, baselineCompareCmd, baselineDeleteCmd)
	rootCmd.AddCommand(baselineCmd)
}
