package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/ppm-baseline/internal/observability"
)

var (
	alertsJSON   bool
	alertsNotify bool
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Show active variance alerts",
	Long: `Evaluate alert conditions against the latest comparison of every project
and display any triggered alerts.

Alerts fire for cost overruns, schedule slips and scope churn beyond the
thresholds configured under "alerts" in .ppmconfig. With --notify the
alerts are also posted to the configured Slack webhook.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if AlertEngine == nil {
			return fmt.Errorf("alert engine not initialized (event log may be disabled)")
		}

		alerts, err := AlertEngine.Evaluate()
		if err != nil {
			return fmt.Errorf("evaluating alerts: %w", err)
		}

		out := cmd.OutOrStdout()
		if alertsJSON {
			if alerts == nil {
				alerts = []observability.Alert{}
			}
			data, err := json.MarshalIndent(alerts, "", "  ")
			if err != nil {
				return fmt.Errorf("formatting alerts as JSON: %w", err)
			}
			fmt.Fprintln(out, string(data))
		} else if len(alerts) == 0 {
			fmt.Fprintln(out, "No active alerts.")
		} else {
			fmt.Fprintf(out, "%d active alert(s):\n\n", len(alerts))
			for _, alert := range alerts {
				severity := styleForSeverity(string(alert.Severity)).Render(strings.ToUpper(string(alert.Severity)))
				fmt.Fprintf(out, "  [%s] %s\n", severity, alert.Message)
				fmt.Fprintf(out, "         triggered at %s\n\n", alert.TriggeredAt.Format("2006-01-02 15:04 UTC"))
			}
		}

		if !alertsNotify || len(alerts) == 0 {
			return nil
		}
		if Notifier == nil {
			return fmt.Errorf("notifier not configured (set notifications.enabled and notifications.slack.webhook_url)")
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		if err := Notifier.Notify(ctx, alerts); err != nil {
			return fmt.Errorf("sending notifications: %w", err)
		}
		if !alertsJSON {
			fmt.Fprintf(out, "Sent %d alert(s) to Slack.\n", len(alerts))
		}
		return nil
	},
}

func init() {
	alertsCmd.Flags().BoolVar(&alertsJSON, "json", false, "Output alerts as JSON")
	alertsCmd.Flags().BoolVar(&alertsNotify, "notify", false, "Post alerts to the configured Slack webhook")
	rootCmd.AddCommand(alertsCmd)
}
