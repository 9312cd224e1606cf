// Package core contains the business logic of ppmb: the schedule variance
// comparator, snapshot validation, the baseline register and configuration.
package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"github.com/valter-silva-au/ppm-baseline/pkg/models"
)

// ConfigFileName is the base name of the configuration file, looked up with
// any extension viper supports (.ppmconfig.yaml, .ppmconfig.yml, ...).
const ConfigFileName = ".ppmconfig"

// ConfigurationManager loads and validates ppmb configuration.
type ConfigurationManager interface {
	LoadGlobalConfig() (*models.GlobalConfig, error)
	ValidateConfig(cfg *models.GlobalConfig) error
}

// viperConfigManager implements ConfigurationManager using Viper for
// reading YAML configuration files.
type viperConfigManager struct {
	basePath string
}

// NewConfigurationManager creates a new ConfigurationManager that reads
// configuration files relative to basePath.
func NewConfigurationManager(basePath string) ConfigurationManager {
	return &viperConfigManager{basePath: basePath}
}

// LoadGlobalConfig reads .ppmconfig from the base path. If the file does not
// exist, defaults are returned.
func (cm *viperConfigManager) LoadGlobalConfig() (*models.GlobalConfig, error) {
	cfg := models.DefaultGlobalConfig()

	v := viper.New()
	v.SetConfigName(ConfigFileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(cm.basePath)
	v.SetEnvPrefix("PPMB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("output.format", string(cfg.OutputFormat))
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("alerts.cost_overrun_percent", cfg.Alerts.CostOverrunPercent)
	v.SetDefault("alerts.schedule_slip_days", cfg.Alerts.ScheduleSlipDays)
	v.SetDefault("alerts.max_scope_changes", cfg.Alerts.MaxScopeChanges)
	v.SetDefault("notifications.enabled", cfg.Notifications.Enabled)
	v.SetDefault("notifications.slack.webhook_url", cfg.Notifications.Slack.WebhookURL)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading %s: %w", ConfigFileName, err)
		}
	}

	cfg.OutputFormat = models.OutputFormat(strings.ToLower(v.GetString("output.format")))
	cfg.LogLevel = strings.ToLower(v.GetString("log_level"))
	cfg.Alerts.CostOverrunPercent = v.GetFloat64("alerts.cost_overrun_percent")
	cfg.Alerts.ScheduleSlipDays = v.GetInt("alerts.schedule_slip_days")
	cfg.Alerts.MaxScopeChanges = v.GetInt("alerts.max_scope_changes")
	cfg.Notifications.Enabled = v.GetBool("notifications.enabled")
	cfg.Notifications.Slack.WebhookURL = v.GetString("notifications.slack.webhook_url")

	return cfg, nil
}

var validOutputFormats = map[models.OutputFormat]bool{
	models.FormatTable: true,
	models.FormatJSON:  true,
	models.FormatYAML:  true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// ValidateConfig checks the configuration for invalid values and returns an
// error listing every problem found.
func (cm *viperConfigManager) ValidateConfig(cfg *models.GlobalConfig) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	var errs []string

	if !validOutputFormats[cfg.OutputFormat] {
		errs = append(errs, fmt.Sprintf("output.format %q is invalid, must be one of: table, json, yaml", cfg.OutputFormat))
	}
	if !validLogLevels[cfg.LogLevel] {
		errs = append(errs, fmt.Sprintf("log_level %q is invalid, must be one of: debug, info, warn, error", cfg.LogLevel))
	}
	if cfg.Alerts.CostOverrunPercent < 0 {
		errs = append(errs, fmt.Sprintf("alerts.cost_overrun_percent must be non-negative, got %v", cfg.Alerts.CostOverrunPercent))
	}
	if cfg.Alerts.ScheduleSlipDays < 0 {
		errs = append(errs, fmt.Sprintf("alerts.schedule_slip_days must be non-negative, got %d", cfg.Alerts.ScheduleSlipDays))
	}
	if cfg.Alerts.MaxScopeChanges < 0 {
		errs = append(errs, fmt.Sprintf("alerts.max_scope_changes must be non-negative, got %d", cfg.Alerts.MaxScopeChanges))
	}
	if cfg.Notifications.Enabled && cfg.Notifications.Slack.WebhookURL == "" {
		errs = append(errs, "notifications.slack.webhook_url must be set when notifications are enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return nil
}
