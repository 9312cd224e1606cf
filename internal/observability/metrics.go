package observability

import (
	"fmt"
	"time"

	"github.com/valter-silva-au/ppm-baseline/pkg/models"
)

// ProjectVariance is the outcome of the most recent comparison of a project.
type ProjectVariance struct {
	ProjectID        string    `json:"project_id"`
	Baseline         string    `json:"baseline,omitempty"`
	BaselineBudget   float64   `json:"baseline_budget"`
	CostVariance     float64   `json:"cost_variance"`
	DurationVariance int       `json:"duration_variance"`
	Added            int       `json:"added"`
	Deleted          int       `json:"deleted"`
	Modified         int       `json:"modified"`
	ComparedAt       time.Time `json:"compared_at"`
}

// Metrics holds calculated metrics derived from the event log.
type Metrics struct {
	ComparisonsRun    int                        `json:"comparisons_run"`
	BaselinesCaptured int                        `json:"baselines_captured"`
	BaselinesDeleted  int                        `json:"baselines_deleted"`
	TasksAdded        int                        `json:"tasks_added"`
	TasksDeleted      int                        `json:"tasks_deleted"`
	TasksModified     int                        `json:"tasks_modified"`
	LatestByProject   map[string]ProjectVariance `json:"latest_by_project"`
	EventCount        int                        `json:"event_count"`
	OldestEvent       *time.Time                 `json:"oldest_event,omitempty"`
	NewestEvent       *time.Time                 `json:"newest_event,omitempty"`
}

// MetricsCalculator derives metrics from the event log.
type MetricsCalculator interface {
	Calculate(since time.Time) (*Metrics, error)
}

// metricsCalculator implements MetricsCalculator by reading from an EventLog.
type metricsCalculator struct {
	eventLog EventLog
}

// NewMetricsCalculator creates a new MetricsCalculator that reads from the given EventLog.
func NewMetricsCalculator(eventLog EventLog) MetricsCalculator {
	return &metricsCalculator{eventLog: eventLog}
}

// Calculate reads all events since the given time and aggregates them into metrics.
func (mc *metricsCalculator) Calculate(since time.Time) (*Metrics, error) {
	events, err := mc.eventLog.Read(EventFilter{Since: &since})
	if err != nil {
		return nil, fmt.Errorf("reading events for metrics: %w", err)
	}

	m := &Metrics{
		LatestByProject: make(map[string]ProjectVariance),
	}
	m.EventCount = len(events)

	for i, event := range events {
		if i == 0 {
			t := event.Time
			m.OldestEvent = &t
		}
		t := event.Time
		m.NewestEvent = &t

		switch event.Type {
		case models.EventComparisonCompleted:
			pv := projectVarianceFromEvent(event)
			m.ComparisonsRun++
			m.TasksAdded += pv.Added
			m.TasksDeleted += pv.Deleted
			m.TasksModified += pv.Modified
			if prev, ok := m.LatestByProject[pv.ProjectID]; !ok || !pv.ComparedAt.Before(prev.ComparedAt) {
				m.LatestByProject[pv.ProjectID] = pv
			}
		case models.EventBaselineCaptured:
			m.BaselinesCaptured++
		case models.EventBaselineDeleted:
			m.BaselinesDeleted++
		}
	}

	return m, nil
}

// projectVarianceFromEvent decodes a comparison.completed event.
func projectVarianceFromEvent(event Event) ProjectVariance {
	baseline, _ := event.Data["baseline"].(string)
	return ProjectVariance{
		ProjectID:        event.ProjectID(),
		Baseline:         baseline,
		BaselineBudget:   numberField(event.Data, "baseline_budget"),
		CostVariance:     numberField(event.Data, "cost_variance"),
		DurationVariance: int(numberField(event.Data, "duration_variance")),
		Added:            int(numberField(event.Data, "added")),
		Deleted:          int(numberField(event.Data, "deleted")),
		Modified:         int(numberField(event.Data, "modified")),
		ComparedAt:       event.Time,
	}
}

// numberField reads a numeric value from event data. Values decoded from
// JSON arrive as float64; values from in-process events keep their Go type.
func numberField(data map[string]any, key string) float64 {
	switch v := data[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}
