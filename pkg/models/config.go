package models

// OutputFormat selects how comparison reports are printed.
type OutputFormat string

const (
	FormatTable OutputFormat = "table"
	FormatJSON  OutputFormat = "json"
	FormatYAML  OutputFormat = "yaml"
)

// AlertConfig holds the variance thresholds above which alerts fire.
type AlertConfig struct {
	CostOverrunPercent float64 `yaml:"cost_overrun_percent" mapstructure:"cost_overrun_percent"`
	ScheduleSlipDays   int     `yaml:"schedule_slip_days" mapstructure:"schedule_slip_days"`
	MaxScopeChanges    int     `yaml:"max_scope_changes" mapstructure:"max_scope_changes"`
}

// SlackConfig holds Slack webhook settings.
type SlackConfig struct {
	WebhookURL string `yaml:"webhook_url" mapstructure:"webhook_url"`
}

// NotificationConfig controls delivery of variance alerts.
type NotificationConfig struct {
	Enabled bool        `yaml:"enabled" mapstructure:"enabled"`
	Slack   SlackConfig `yaml:"slack" mapstructure:"slack"`
}

// GlobalConfig holds system-wide settings read from .ppmconfig via Viper.
type GlobalConfig struct {
	OutputFormat  OutputFormat       `yaml:"output_format" mapstructure:"output_format"`
	LogLevel      string             `yaml:"log_level" mapstructure:"log_level"`
	Alerts        AlertConfig        `yaml:"alerts" mapstructure:"alerts"`
	Notifications NotificationConfig `yaml:"notifications" mapstructure:"notifications"`
}

// DefaultGlobalConfig returns the configuration used when no .ppmconfig exists.
func DefaultGlobalConfig() *GlobalConfig {
	return &GlobalConfig{
		OutputFormat: FormatTable,
		LogLevel:     "info",
		Alerts: AlertConfig{
			CostOverrunPercent: 10,
			ScheduleSlipDays:   5,
			MaxScopeChanges:    10,
		},
	}
}
