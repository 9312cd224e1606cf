// Package mcp provides an MCP (Model Context Protocol) server that exposes
// baseline variance analysis as tools for AI assistants.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/valter-silva-au/ppm-baseline/internal/core"
	"github.com/valter-silva-au/ppm-baseline/internal/observability"
	"github.com/valter-silva-au/ppm-baseline/pkg/models"
)

// Server wraps ppmb services and exposes them as MCP tools.
type Server struct {
	server      *gomcp.Server
	baselineMgr core.BaselineManager
	metricsCalc observability.MetricsCalculator
	alertEngine observability.AlertEngine
}

// NewServer creates a new MCP server. metricsCalc and alertEngine may be nil
// when the event log is unavailable.
func NewServer(baselineMgr core.BaselineManager, metricsCalc observability.MetricsCalculator, alertEngine observability.AlertEngine, version string) *Server {
	if version == "" {
		version = "dev"
	}

	s := &Server{
		baselineMgr: baselineMgr,
		metricsCalc: metricsCalc,
		alertEngine: alertEngine,
	}

	s.server = gomcp.NewServer(
		&gomcp.Implementation{Name: "ppmb", Version: version},
		nil,
	)

	s.registerTools()

	return s
}

// Run serves over stdio until the client disconnects or ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// MCPServer returns the underlying mcp.Server for testing purposes.
func (s *Server) MCPServer() *gomcp.Server {
	return s.server
}

// --- Tool input/output types ---

type dependencyInput struct {
	PredecessorID string `json:"predecessorId" jsonschema:"ID of the predecessor task"`
	Type          string `json:"type,omitempty" jsonschema:"link type: FS, SS, FF or SF"`
	Lag           int    `json:"lag,omitempty" jsonschema:"lag in days"`
}

type taskInput struct {
	ID           string            `json:"id" jsonschema:"unique task identifier within the project"`
	Name         string            `json:"name,omitempty"`
	WBSCode      string            `json:"wbsCode,omitempty"`
	StartDate    string            `json:"startDate,omitempty" jsonschema:"planned start date (YYYY-MM-DD)"`
	EndDate      string            `json:"endDate,omitempty" jsonschema:"planned end date (YYYY-MM-DD)"`
	Duration     int               `json:"duration,omitempty" jsonschema:"planned duration in days"`
	Status       string            `json:"status,omitempty" jsonschema:"Not Started, In Progress, Completed, On Hold or Delayed"`
	Dependencies []dependencyInput `json:"dependencies,omitempty"`
}

type snapshotInput struct {
	ID     string      `json:"id,omitempty" jsonschema:"project identifier"`
	Name   string      `json:"name,omitempty"`
	Budget float64     `json:"budget,omitempty" jsonschema:"project budget"`
	Tasks  []taskInput `json:"tasks,omitempty"`
}

type compareProjectsInput struct {
	Baseline snapshotInput `json:"baseline" jsonschema:"required,the approved baseline snapshot"`
	Target   snapshotInput `json:"target" jsonschema:"required,the current or revised snapshot"`
}

type compareToBaselineInput struct {
	BaselineName string        `json:"baseline_name" jsonschema:"required,name of a captured baseline"`
	Current      snapshotInput `json:"current" jsonschema:"required,the current project snapshot"`
}

type taskSummaryOutput struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Duration  int    `json:"duration"`
	Status    string `json:"status"`
}

type changeOutput struct {
	Field    string `json:"field"`
	Kind     string `json:"kind"`
	OldValue string `json:"old_value"`
	NewValue string `json:"new_value"`
}

type modifiedTaskOutput struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	Changes []changeOutput `json:"changes"`
}

type varianceOutput struct {
	CostVariance     float64 `json:"cost_variance"`
	DurationVariance int     `json:"duration_variance"`
	AddedCount       int     `json:"added_count"`
	DeletedCount     int     `json:"deleted_count"`
	ModifiedCount    int     `json:"modified_count"`
}

type comparisonOutput struct {
	AddedTasks    []taskSummaryOutput  `json:"added_tasks"`
	DeletedTasks  []taskSummaryOutput  `json:"deleted_tasks"`
	ModifiedTasks []modifiedTaskOutput `json:"modified_tasks"`
	VarianceStats varianceOutput       `json:"variance_stats"`
	HasChanges    bool                 `json:"has_changes"`
}

type listBaselinesInput struct {
	ProjectID string `json:"project_id,omitempty" jsonschema:"only list baselines of this project"`
}

type baselineOutput struct {
	Name       string  `json:"name"`
	ProjectID  string  `json:"project_id"`
	CapturedAt string  `json:"captured_at"`
	Note       string  `json:"note,omitempty"`
	Tasks      int     `json:"tasks"`
	Budget     float64 `json:"budget"`
}

type listBaselinesOutput struct {
	Baselines []baselineOutput `json:"baselines"`
	Count     int              `json:"count"`
}

type getMetricsInput struct {
	Since string `json:"since,omitempty" jsonschema:"time window for metrics (e.g. 7d, 30d, 24h). Defaults to 7d."`
}

type projectVarianceOutput struct {
	ProjectID        string  `json:"project_id"`
	Baseline         string  `json:"baseline,omitempty"`
	CostVariance     float64 `json:"cost_variance"`
	DurationVariance int     `json:"duration_variance"`
	Added            int     `json:"added"`
	Deleted          int     `json:"deleted"`
	Modified         int     `json:"modified"`
	ComparedAt       string  `json:"compared_at"`
}

type metricsOutput struct {
	ComparisonsRun    int                     `json:"comparisons_run"`
	BaselinesCaptured int                     `json:"baselines_captured"`
	BaselinesDeleted  int                     `json:"baselines_deleted"`
	TasksAdded        int                     `json:"tasks_added"`
	TasksDeleted      int                     `json:"tasks_deleted"`
	TasksModified     int                     `json:"tasks_modified"`
	Projects          []projectVarianceOutput `json:"projects"`
	EventCount        int                     `json:"event_count"`
	OldestEvent       string                  `json:"oldest_event,omitempty"`
	NewestEvent       string                  `json:"newest_event,omitempty"`
}

type getAlertsInput struct{}

type alertOutput struct {
	ID          string `json:"id"`
	Condition   string `json:"condition"`
	Severity    string `json:"severity"`
	ProjectID   string `json:"project_id"`
	Message     string `json:"message"`
	TriggeredAt string `json:"triggered_at"`
}

type getAlertsOutput struct {
	Alerts []alertOutput `json:"alerts"`
	Count  int           `json:"count"`
}

// --- Tool registration ---

func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "compare_projects",
		Description: "Compare a baseline project snapshot with a target snapshot. Returns added, deleted and modified tasks plus cost and duration variance.",
	}, s.handleCompareProjects)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "compare_to_baseline",
		Description: "Compare the current project snapshot against a previously captured, named baseline.",
	}, s.handleCompareToBaseline)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "list_baselines",
		Description: "List captured baselines, optionally filtered by project ID.",
	}, s.handleListBaselines)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_metrics",
		Description: "Get aggregated comparison metrics from the event log, including the latest variance per project.",
	}, s.handleGetMetrics)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_alerts",
		Description: "Evaluate and return active variance alerts (cost overrun, schedule slip, scope churn).",
	}, s.handleGetAlerts)
}

// --- Tool handlers ---

func (s *Server) handleCompareProjects(_ context.Context, _ *gomcp.CallToolRequest, input compareProjectsInput) (*gomcp.CallToolResult, comparisonOutput, error) {
	result, err := s.baselineMgr.Compare(input.Baseline.toModel(), input.Target.toModel())
	if err != nil {
		return errorResult(fmt.Sprintf("comparing projects: %s", err)), emptyComparisonOutput(), nil
	}
	return nil, comparisonToOutput(result), nil
}

func (s *Server) handleCompareToBaseline(_ context.Context, _ *gomcp.CallToolRequest, input compareToBaselineInput) (*gomcp.CallToolResult, comparisonOutput, error) {
	if input.BaselineName == "" {
		return errorResult("baseline_name is required"), emptyComparisonOutput(), nil
	}

	result, err := s.baselineMgr.CompareToBaseline(input.BaselineName, input.Current.toModel())
	if err != nil {
		if errors.Is(err, core.ErrBaselineNotFound) {
			return errorResult(fmt.Sprintf("baseline %s not found", input.BaselineName)), emptyComparisonOutput(), nil
		}
		return errorResult(fmt.Sprintf("comparing to baseline %s: %s", input.BaselineName, err)), emptyComparisonOutput(), nil
	}
	return nil, comparisonToOutput(result), nil
}

func (s *Server) handleListBaselines(_ context.Context, _ *gomcp.CallToolRequest, input listBaselinesInput) (*gomcp.CallToolResult, listBaselinesOutput, error) {
	baselines, err := s.baselineMgr.ListBaselines(input.ProjectID)
	if err != nil {
		return errorResult(fmt.Sprintf("listing baselines: %s", err)), listBaselinesOutput{Baselines: []baselineOutput{}}, nil
	}

	out := listBaselinesOutput{
		Baselines: make([]baselineOutput, len(baselines)),
		Count:     len(baselines),
	}
	for i, b := range baselines {
		out.Baselines[i] = baselineOutput{
			Name:       b.Name,
			ProjectID:  b.ProjectID,
			CapturedAt: b.CapturedAt.Format(time.RFC3339),
			Note:       b.Note,
			Tasks:      len(b.Snapshot.Tasks),
			Budget:     b.Snapshot.Budget,
		}
	}
	return nil, out, nil
}

func (s *Server) handleGetMetrics(_ context.Context, _ *gomcp.CallToolRequest, input getMetricsInput) (*gomcp.CallToolResult, metricsOutput, error) {
	if s.metricsCalc == nil {
		return errorResult("metrics calculator not available (event log may be disabled)"), emptyMetricsOutput(), nil
	}

	sinceStr := input.Since
	if sinceStr == "" {
		sinceStr = "7d"
	}

	sinceTime, err := parseSince(sinceStr)
	if err != nil {
		return errorResult(fmt.Sprintf("parsing since duration: %s", err)), emptyMetricsOutput(), nil
	}

	metrics, err := s.metricsCalc.Calculate(sinceTime)
	if err != nil {
		return errorResult(fmt.Sprintf("calculating metrics: %s", err)), emptyMetricsOutput(), nil
	}

	out := metricsOutput{
		ComparisonsRun:    metrics.ComparisonsRun,
		BaselinesCaptured: metrics.BaselinesCaptured,
		BaselinesDeleted:  metrics.BaselinesDeleted,
		TasksAdded:        metrics.TasksAdded,
		TasksDeleted:      metrics.TasksDeleted,
		TasksModified:     metrics.TasksModified,
		Projects:          make([]projectVarianceOutput, 0, len(metrics.LatestByProject)),
		EventCount:        metrics.EventCount,
	}
	for _, pv := range metrics.LatestByProject {
		out.Projects = append(out.Projects, projectVarianceOutput{
			ProjectID:        pv.ProjectID,
			Baseline:         pv.Baseline,
			CostVariance:     pv.CostVariance,
			DurationVariance: pv.DurationVariance,
			Added:            pv.Added,
			Deleted:          pv.Deleted,
			Modified:         pv.Modified,
			ComparedAt:       pv.ComparedAt.Format(time.RFC3339),
		})
	}
	sort.Slice(out.Projects, func(i, j int) bool { return out.Projects[i].ProjectID < out.Projects[j].ProjectID })

	if metrics.OldestEvent != nil {
		out.OldestEvent = metrics.OldestEvent.Format(time.RFC3339)
	}
	if metrics.NewestEvent != nil {
		out.NewestEvent = metrics.NewestEvent.Format(time.RFC3339)
	}

	return nil, out, nil
}

func (s *Server) handleGetAlerts(_ context.Context, _ *gomcp.CallToolRequest, _ getAlertsInput) (*gomcp.CallToolResult, getAlertsOutput, error) {
	if s.alertEngine == nil {
		return errorResult("alert engine not available (event log may be disabled)"), getAlertsOutput{Alerts: []alertOutput{}}, nil
	}

	alerts, err := s.alertEngine.Evaluate()
	if err != nil {
		return errorResult(fmt.Sprintf("evaluating alerts: %s", err)), getAlertsOutput{Alerts: []alertOutput{}}, nil
	}

	out := getAlertsOutput{
		Alerts: make([]alertOutput, len(alerts)),
		Count:  len(alerts),
	}
	for i, a := range alerts {
		out.Alerts[i] = alertOutput{
			ID:          a.ID,
			Condition:   a.Condition,
			Severity:    string(a.Severity),
			ProjectID:   a.ProjectID,
			Message:     a.Message,
			TriggeredAt: a.TriggeredAt.Format(time.RFC3339),
		}
	}

	return nil, out, nil
}

// --- Helpers ---

func (in snapshotInput) toModel() models.ProjectSnapshot {
	snap := models.ProjectSnapshot{
		ID:     in.ID,
		Name:   in.Name,
		Budget: in.Budget,
		Tasks:  make([]models.Task, len(in.Tasks)),
	}
	for i, t := range in.Tasks {
		deps := make([]models.Dependency, len(t.Dependencies))
		for j, d := range t.Dependencies {
			deps[j] = models.Dependency{
				PredecessorID: d.PredecessorID,
				Type:          models.DependencyType(d.Type),
				Lag:           d.Lag,
			}
		}
		snap.Tasks[i] = models.Task{
			ID:           t.ID,
			Name:         t.Name,
			WBSCode:      t.WBSCode,
			StartDate:    t.StartDate,
			EndDate:      t.EndDate,
			Duration:     t.Duration,
			Status:       models.TaskStatus(t.Status),
			Dependencies: deps,
		}
	}
	return snap
}

func comparisonToOutput(r *models.ComparisonResult) comparisonOutput {
	out := comparisonOutput{
		AddedTasks:    tasksToOutput(r.AddedTasks),
		DeletedTasks:  tasksToOutput(r.DeletedTasks),
		ModifiedTasks: make([]modifiedTaskOutput, len(r.ModifiedTasks)),
		VarianceStats: varianceOutput{
			CostVariance:     r.VarianceStats.CostVariance,
			DurationVariance: r.VarianceStats.DurationVariance,
			AddedCount:       r.VarianceStats.AddedCount,
			DeletedCount:     r.VarianceStats.DeletedCount,
			ModifiedCount:    r.VarianceStats.ModifiedCount,
		},
		HasChanges: r.HasChanges(),
	}
	for i, m := range r.ModifiedTasks {
		changes := make([]changeOutput, len(m.Changes))
		for j, c := range m.Changes {
			changes[j] = changeOutput{
				Field:    string(c.Field),
				Kind:     string(c.Field.Kind()),
				OldValue: c.OldValue.String(),
				NewValue: c.NewValue.String(),
			}
		}
		out.ModifiedTasks[i] = modifiedTaskOutput{ID: m.ID, Name: m.Name, Changes: changes}
	}
	return out
}

func tasksToOutput(tasks []models.Task) []taskSummaryOutput {
	out := make([]taskSummaryOutput, len(tasks))
	for i, t := range tasks {
		out[i] = taskSummaryOutput{
			ID:        t.ID,
			Name:      t.Name,
			StartDate: t.StartDate,
			EndDate:   t.EndDate,
			Duration:  t.Duration,
			Status:    string(t.Status),
		}
	}
	return out
}

func emptyComparisonOutput() comparisonOutput {
	return comparisonOutput{
		AddedTasks:    []taskSummaryOutput{},
		DeletedTasks:  []taskSummaryOutput{},
		ModifiedTasks: []modifiedTaskOutput{},
	}
}

func emptyMetricsOutput() metricsOutput {
	return metricsOutput{Projects: []projectVarianceOutput{}}
}

func errorResult(msg string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: msg}},
		IsError: true,
	}
}

// parseSince parses a human-friendly duration string like "7d", "30d", or "24h"
// into the corresponding time in the past.
func parseSince(s string) (time.Time, error) {
	now := time.Now().UTC()

	if len(s) < 2 {
		return time.Time{}, fmt.Errorf("invalid duration %q", s)
	}

	suffix := s[len(s)-1]
	var num int
	if _, err := fmt.Sscanf(s[:len(s)-1], "%d", &num); err != nil {
		return time.Time{}, fmt.Errorf("invalid duration %q: %w", s, err)
	}

	switch suffix {
	case 'd':
		return now.AddDate(0, 0, -num), nil
	case 'h':
		return now.Add(-time.Duration(num) * time.Hour), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported duration suffix %q (use d or h)", string(suffix))
	}
}
