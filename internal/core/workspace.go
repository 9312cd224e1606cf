package core

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/valter-silva-au/ppm-baseline/pkg/models"
)

// InitConfig holds the parameters for initializing a ppmb workspace.
type InitConfig struct {
	BasePath     string
	OutputFormat models.OutputFormat
	WebhookURL   string
}

// InitResult holds a summary of what was created vs. skipped.
type InitResult struct {
	Created []string
	Skipped []string
}

// WorkspaceInitializer prepares a directory to hold a baseline register.
type WorkspaceInitializer interface {
	Init(config InitConfig) (*InitResult, error)
}

type workspaceInitializer struct{}

// NewWorkspaceInitializer creates a new WorkspaceInitializer.
func NewWorkspaceInitializer() WorkspaceInitializer {
	return &workspaceInitializer{}
}

var configTemplate = template.Must(template.New(ConfigFileName).Parse(`# ppmb configuration
output:
  format: {{ .OutputFormat }}   # table | json | yaml
log_level: {{ .LogLevel }}      # debug | info | warn | error

# Alerts fire when the latest comparison of a project exceeds a threshold.
alerts:
  cost_overrun_percent: {{ .Alerts.CostOverrunPercent }}
  schedule_slip_days: {{ .Alerts.ScheduleSlipDays }}
  max_scope_changes: {{ .Alerts.MaxScopeChanges }}

notifications:
  enabled: {{ .Notifications.Enabled }}
  slack:
    webhook_url: "{{ .Notifications.Slack.WebhookURL }}"
`))

const workspaceGitignore = `# ppmb runtime files
.ppmb_events.jsonl
baselines.yaml.lock
`

// Init creates the workspace directory, a commented .ppmconfig.yaml with
// default thresholds, and a snapshots directory. Existing files are skipped
// and never overwritten.
func (wi *workspaceInitializer) Init(config InitConfig) (*InitResult, error) {
	result := &InitResult{}

	cfg := models.DefaultGlobalConfig()
	if config.OutputFormat != "" {
		cfg.OutputFormat = config.OutputFormat
	}
	if config.WebhookURL != "" {
		cfg.Notifications.Enabled = true
		cfg.Notifications.Slack.WebhookURL = config.WebhookURL
	}
	if err := NewConfigurationManager(config.BasePath).ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("initializing workspace: %w", err)
	}

	for _, dir := range []string{config.BasePath, filepath.Join(config.BasePath, "snapshots")} {
		created, err := ensureDir(dir)
		if err != nil {
			return nil, fmt.Errorf("initializing workspace: creating directory %s: %w", dir, err)
		}
		result.record(dir, created)
	}

	files := []struct {
		name    string
		content func() ([]byte, error)
	}{
		{ConfigFileName + ".yaml", func() ([]byte, error) {
			var buf bytes.Buffer
			if err := configTemplate.Execute(&buf, cfg); err != nil {
				return nil, err
			}
			return buf.Bytes(), nil
		}},
		{".gitignore", func() ([]byte, error) { return []byte(workspaceGitignore), nil }},
	}
	for _, f := range files {
		path := filepath.Join(config.BasePath, f.name)
		created, err := writeFileIfNotExists(path, f.content)
		if err != nil {
			return nil, fmt.Errorf("initializing workspace: %w", err)
		}
		result.record(path, created)
	}

	return result, nil
}

func (r *InitResult) record(path string, created bool) {
	if created {
		r.Created = append(r.Created, path)
	} else {
		r.Skipped = append(r.Skipped, path)
	}
}

// ensureDir creates a directory if it does not exist. Returns true if created.
func ensureDir(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	if err := os.MkdirAll(path, 0o750); err != nil {
		return false, err
	}
	return true, nil
}

// writeFileIfNotExists writes content from contentFn unless path exists.
// Returns true if the file was written.
func writeFileIfNotExists(path string, contentFn func() ([]byte, error)) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	content, err := contentFn()
	if err != nil {
		return false, fmt.Errorf("generating %s: %w", path, err)
	}
	if err := os.WriteFile(path, content, 0o600); err != nil {
		return false, fmt.Errorf("writing %s: %w", path, err)
	}
	return true, nil
}
