package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/ppm-baseline/internal/core"
	"github.com/valter-silva-au/ppm-baseline/pkg/models"
)

var (
	initFormat       string
	initSlackWebhook string
)

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Initialize a ppmb workspace",
	Long: `Initialize a directory to hold a baseline register.

Writes a commented .ppmconfig.yaml with the default alert thresholds, a
.gitignore for the event log and lock file, and a snapshots/ directory for
exported schedules. Existing files are skipped and never overwritten.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if WorkspaceInit == nil {
			return fmt.Errorf("workspace initializer not initialized")
		}

		target := "."
		if len(args) > 0 {
			target = args[0]
		}
		absPath, err := filepath.Abs(target)
		if err != nil {
			return fmt.Errorf("resolving path: %w", err)
		}

		result, err := WorkspaceInit.Init(core.InitConfig{
			BasePath:     absPath,
			OutputFormat: models.OutputFormat(strings.ToLower(initFormat)),
			WebhookURL:   initSlackWebhook,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, section := range []struct {
			title string
			paths []string
		}{
			{"Created:", result.Created},
			{"Skipped (already exist):", result.Skipped},
		} {
			if len(section.paths) == 0 {
				continue
			}
			fmt.Fprintln(out, section.title)
			for _, p := range section.paths {
				rel, err := filepath.Rel(absPath, p)
				if err != nil {
					rel = p
				}
				fmt.Fprintf(out, "  %s\n", rel)
			}
		}

		fmt.Fprintf(out, "\nWorkspace initialized at %s\n", absPath)
		return nil
	},
}

func init() {
	initCmd.Flags().StringVar(&initFormat, "format", "", "Default output format written to the config (table, json, yaml)")
	initCmd.Flags().StringVar(&initSlackWebhook, "slack-webhook", "", "Enable Slack notifications with this webhook URL")
	registerFormatCompletion(initCmd)
	rootCmd.AddCommand(initCmd)
}
