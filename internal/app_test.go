package internal

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/valter-silva-au/ppm-baseline/internal/cli"
	"github.com/valter-silva-au/ppm-baseline/internal/core"
	"github.com/valter-silva-au/ppm-baseline/internal/observability"
	"github.com/valter-silva-au/ppm-baseline/internal/storage"
	"github.com/valter-silva-au/ppm-baseline/pkg/models"
)

func testSnapshot() models.ProjectSnapshot {
	return models.ProjectSnapshot{
		ID:     "PRJ-1",
		Name:   "Depot upgrade",
		Budget: 1000,
		Tasks: []models.Task{
			{ID: "T1", Name: "Survey", WBSCode: "1.1", StartDate: "2024-01-01", EndDate: "2024-01-06", Duration: 5, Status: models.StatusNotStarted, Dependencies: []models.Dependency{}},
		},
	}
}

func newTestApp(t *testing.T, basePath string) *App {
	t.Helper()
	app, err := NewApp(basePath, nil)
	if err != nil {
		t.Fatalf("NewApp() error = %v", err)
	}
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func TestResolveBasePath_PPMBHomeSet(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("PPMB_HOME", tmpDir)

	if got := ResolveBasePath(); got != tmpDir {
		t.Errorf("ResolveBasePath() = %q, want %q", got, tmpDir)
	}
}

func TestResolveBasePath_FindsConfig(t *testing.T) {
	tmpDir := t.TempDir()
	subDir := filepath.Join(tmpDir, "sub", "nested")
	if err := os.MkdirAll(subDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, ".ppmconfig.yaml"), []byte("log_level: info\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	origDir, _ := os.Getwd()
	defer func() { _ = os.Chdir(origDir) }()
	if err := os.Chdir(subDir); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PPMB_HOME", "")

	got, _ := filepath.EvalSymlinks(ResolveBasePath())
	want, _ := filepath.EvalSymlinks(tmpDir)
	if got != want {
		t.Errorf("ResolveBasePath() = %q, want %q (should find .ppmconfig in parent)", got, want)
	}
}

func TestResolveBasePath_FallbackToCwd(t *testing.T) {
	tmpDir := t.TempDir()
	origDir, _ := os.Getwd()
	defer func() { _ = os.Chdir(origDir) }()
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PPMB_HOME", "")

	got, _ := filepath.EvalSymlinks(ResolveBasePath())
	want, _ := filepath.EvalSymlinks(tmpDir)
	// A .ppmconfig further up the real filesystem would also be a valid answer.
	if got != want && !strings.HasPrefix(want, got) {
		t.Errorf("ResolveBasePath() = %q, want %q", got, want)
	}
}

func TestNewApp_Success(t *testing.T) {
	app := newTestApp(t, t.TempDir())

	if app.BaselineMgr == nil || app.BaselineStore == nil {
		t.Fatal("expected baseline services to be wired")
	}
	if app.EventLog == nil || app.AlertEngine == nil || app.MetricsCalc == nil {
		t.Fatal("expected observability services to be wired")
	}
	if app.Notifier != nil {
		t.Error("expected no notifier without notification config")
	}
	if cli.BaselineMgr != app.BaselineMgr {
		t.Error("expected cli.BaselineMgr to be wired")
	}
	if cli.DefaultFormat != models.FormatTable {
		t.Errorf("cli.DefaultFormat = %q, want table", cli.DefaultFormat)
	}
}

func TestNewApp_MissingConfig(t *testing.T) {
	app := newTestApp(t, t.TempDir())
	if app.Config.LogLevel != "info" || app.Config.Alerts.CostOverrunPercent != 10 {
		t.Errorf("expected default config, got %+v", app.Config)
	}
}

func TestNewApp_AppliesConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := `output:
  format: json
log_level: debug
alerts:
  cost_overrun_percent: 20
notifications:
  enabled: true
  slack:
    webhook_url: https://hooks.slack.com/services/T000/B000/XXX
`
	if err := os.WriteFile(filepath.Join(dir, ".ppmconfig.yaml"), []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}

	level := new(slog.LevelVar)
	app, err := NewApp(dir, level)
	if err != nil {
		t.Fatalf("NewApp() error = %v", err)
	}
	defer func() { _ = app.Close() }()

	if level.Level() != slog.LevelDebug {
		t.Errorf("log level = %v, want DEBUG", level.Level())
	}
	if cli.DefaultFormat != models.FormatJSON {
		t.Errorf("cli.DefaultFormat = %q, want json", cli.DefaultFormat)
	}
	if app.Notifier == nil {
		t.Error("expected Slack notifier to be wired")
	}
	if app.Config.Alerts.CostOverrunPercent != 20 {
		t.Errorf("CostOverrunPercent = %v, want 20", app.Config.Alerts.CostOverrunPercent)
	}
}

func TestNewApp_InvalidConfig(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".ppmconfig.yaml"), []byte("output:\n  format: csv\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := NewApp(dir, nil); err == nil || !strings.Contains(err.Error(), "output.format") {
		t.Fatalf("expected output.format validation error, got %v", err)
	}
}

func TestNewApp_CaptureCompareRecordsEvents(t *testing.T) {
	dir := t.TempDir()
	app := newTestApp(t, dir)

	if _, err := app.BaselineMgr.CaptureBaseline(testSnapshot(), "q1-plan", ""); err != nil {
		t.Fatalf("CaptureBaseline() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "baselines.yaml")); err != nil {
		t.Errorf("expected baselines.yaml to be saved: %v", err)
	}

	current := testSnapshot()
	current.Budget = 1300
	if _, err := app.BaselineMgr.CompareToBaseline("q1-plan", current); err != nil {
		t.Fatalf("CompareToBaseline() error = %v", err)
	}

	events, err := app.EventLog.Read(observability.EventFilter{})
	if err != nil {
		t.Fatalf("reading events: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[1].Type != models.EventComparisonCompleted || events[1].ProjectID() != "PRJ-1" {
		t.Errorf("unexpected comparison event: %+v", events[1])
	}

	alerts, err := app.AlertEngine.Evaluate()
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if len(alerts) != 1 || alerts[0].Condition != observability.ConditionCostOverrun {
		t.Errorf("expected one cost overrun alert, got %+v", alerts)
	}

	// A fresh app sees the persisted register.
	reopened := newTestApp(t, dir)
	if _, err := reopened.BaselineMgr.GetBaseline("q1-plan"); err != nil {
		t.Errorf("GetBaseline() after reload error = %v", err)
	}
}

func TestBaselineStoreAdapter(t *testing.T) {
	dir := t.TempDir()
	adapter := &baselineStoreAdapter{mgr: storage.NewBaselineStoreManager(dir)}

	b, err := adapter.FindBaseline("missing")
	if err != nil || b != nil {
		t.Fatalf("FindBaseline(missing) = %v, %v; want nil, nil", b, err)
	}

	if err := adapter.PutBaseline(models.Baseline{Name: "v1", ProjectID: "PRJ-1", Snapshot: testSnapshot()}); err != nil {
		t.Fatalf("PutBaseline() error = %v", err)
	}
	if err := adapter.PutBaseline(models.Baseline{Name: "v1", Snapshot: testSnapshot()}); !errors.Is(err, core.ErrBaselineExists) {
		t.Errorf("expected ErrBaselineExists for duplicate baseline, got %v", err)
	}

	list, err := adapter.ListBaselines()
	if err != nil || len(list) != 1 {
		t.Fatalf("ListBaselines() = %v, %v", list, err)
	}

	if err := adapter.DeleteBaseline("v1"); err != nil {
		t.Fatalf("DeleteBaseline() error = %v", err)
	}
	if err := adapter.DeleteBaseline("v1"); !errors.Is(err, storage.ErrBaselineNotFound) || !errors.Is(err, core.ErrBaselineNotFound) {
		t.Errorf("expected ErrBaselineNotFound, got %v", err)
	}

	// Mutations are persisted immediately.
	reloaded := storage.NewBaselineStoreManager(dir)
	if err := reloaded.Load(); err != nil {
		t.Fatal(err)
	}
	if all, _ := reloaded.GetAllBaselines(); len(all) != 0 {
		t.Errorf("expected empty register after delete, got %d", len(all))
	}
}

func TestBaselineStoreAdapter_SeesOtherProcesses(t *testing.T) {
	dir := t.TempDir()
	server := &baselineStoreAdapter{mgr: storage.NewBaselineStoreManager(dir)}
	cli := &baselineStoreAdapter{mgr: storage.NewBaselineStoreManager(dir)}

	if list, err := server.ListBaselines(); err != nil || len(list) != 0 {
		t.Fatalf("ListBaselines() = %v, %v", list, err)
	}
	if err := cli.PutBaseline(models.Baseline{Name: "from-cli", ProjectID: "PRJ-1", Snapshot: testSnapshot()}); err != nil {
		t.Fatal(err)
	}

	b, err := server.FindBaseline("from-cli")
	if err != nil || b == nil {
		t.Fatalf("FindBaseline(from-cli) = %v, %v; want the CLI capture", b, err)
	}
	if err := server.PutBaseline(models.Baseline{Name: "from-server", ProjectID: "PRJ-1", Snapshot: testSnapshot()}); err != nil {
		t.Fatal(err)
	}
	if err := server.PutBaseline(models.Baseline{Name: "from-cli", Snapshot: testSnapshot()}); !errors.Is(err, core.ErrBaselineExists) {
		t.Errorf("expected ErrBaselineExists, got %v", err)
	}

	list, err := cli.ListBaselines()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].Name != "from-cli" || list[1].Name != "from-server" {
		t.Errorf("ListBaselines() = %v, want from-cli and from-server", list)
	}
}

func TestBaselineStoreAdapter_FailedSaveLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	lockPath := filepath.Join(dir, "baselines.yaml.lock")
	if err := os.Mkdir(lockPath, 0o750); err != nil {
		t.Fatal(err)
	}
	mgr := storage.NewBaselineStoreManager(dir)
	adapter := &baselineStoreAdapter{mgr: mgr}
	b := models.Baseline{Name: "v1", ProjectID: "PRJ-1", Snapshot: testSnapshot()}

	if err := adapter.PutBaseline(b); err == nil {
		t.Fatal("expected save error")
	}
	if _, err := mgr.GetBaseline("v1"); !errors.Is(err, storage.ErrBaselineNotFound) {
		t.Errorf("unsaved baseline still in memory: %v", err)
	}

	if err := os.Remove(lockPath); err != nil {
		t.Fatal(err)
	}
	if err := adapter.PutBaseline(b); err != nil {
		t.Fatalf("retry PutBaseline() error = %v", err)
	}

	if err := os.Remove(lockPath); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(lockPath, 0o750); err != nil {
		t.Fatal(err)
	}
	if err := adapter.DeleteBaseline("v1"); err == nil {
		t.Fatal("expected delete save error")
	}
	if got, err := mgr.GetBaseline("v1"); err != nil || got == nil {
		t.Errorf("failed delete dropped the baseline: %v", err)
	}
}

func TestEventLogAdapter(t *testing.T) {
	log, err := observability.NewJSONLEventLog(filepath.Join(t.TempDir(), EventLogFileName))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = log.Close() }()

	var logger core.EventLogger = &eventLogAdapter{log: log}
	if err := logger.LogEvent(models.EventBaselineCaptured, map[string]any{"project_id": "PRJ-9"}); err != nil {
		t.Fatalf("LogEvent() error = %v", err)
	}

	events, err := log.Read(observability.EventFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	e := events[0]
	if e.Level != observability.LevelInfo || e.Message != models.EventBaselineCaptured || e.ProjectID() != "PRJ-9" {
		t.Errorf("unexpected event: %+v", e)
	}
}
