package observability

import (
	"fmt"
	"sort"
	"time"

	"github.com/valter-silva-au/ppm-baseline/pkg/models"
)

// AlertSeverity represents the urgency of an alert.
type AlertSeverity string

const (
	SeverityHigh   AlertSeverity = "high"
	SeverityMedium AlertSeverity = "medium"
	SeverityLow    AlertSeverity = "low"
)

// Alert conditions.
const (
	ConditionCostOverrun  = "cost_overrun"
	ConditionScheduleSlip = "schedule_slip"
	ConditionScopeChurn   = "scope_churn"
)

// Alert represents a triggered alert condition.
type Alert struct {
	ID          string        `json:"id"`
	Condition   string        `json:"condition"`
	Severity    AlertSeverity `json:"severity"`
	ProjectID   string        `json:"project_id"`
	Message     string        `json:"message"`
	TriggeredAt time.Time     `json:"triggered_at"`
}

// AlertThresholds configures when alerts fire. Each threshold is exclusive:
// an alert fires only when the measured value is strictly greater.
type AlertThresholds struct {
	CostOverrunPercent float64 `yaml:"cost_overrun_percent" json:"cost_overrun_percent"`
	ScheduleSlipDays   int     `yaml:"schedule_slip_days" json:"schedule_slip_days"`
	MaxScopeChanges    int     `yaml:"max_scope_changes" json:"max_scope_changes"`
}

// DefaultAlertThresholds returns the default alert thresholds.
func DefaultAlertThresholds() AlertThresholds {
	return AlertThresholds{
		CostOverrunPercent: 10,
		ScheduleSlipDays:   5,
		MaxScopeChanges:    10,
	}
}

// AlertEngine evaluates alert conditions against the event log.
type AlertEngine interface {
	Evaluate() ([]Alert, error)
}

// alertEngine implements AlertEngine by reading the latest comparison of
// each project from the event log and checking it against thresholds.
type alertEngine struct {
	eventLog   EventLog
	thresholds AlertThresholds
	now        func() time.Time
}

// NewAlertEngine creates a new AlertEngine with the given EventLog and thresholds.
func NewAlertEngine(eventLog EventLog, thresholds AlertThresholds) AlertEngine {
	return &alertEngine{
		eventLog:   eventLog,
		thresholds: thresholds,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Evaluate returns the alerts triggered by the latest comparison of every
// project, ordered by severity and then by ID.
func (ae *alertEngine) Evaluate() ([]Alert, error) {
	events, err := ae.eventLog.Read(EventFilter{Type: models.EventComparisonCompleted})
	if err != nil {
		return nil, fmt.Errorf("reading comparison events: %w", err)
	}

	latest := make(map[string]ProjectVariance)
	for _, event := range events {
		pv := projectVarianceFromEvent(event)
		if prev, ok := latest[pv.ProjectID]; !ok || !pv.ComparedAt.Before(prev.ComparedAt) {
			latest[pv.ProjectID] = pv
		}
	}

	now := ae.now()
	var alerts []Alert
	for _, pv := range latest {
		alerts = append(alerts, ae.check(pv, now)...)
	}

	sort.Slice(alerts, func(i, j int) bool {
		ri, rj := SeverityRank(alerts[i].Severity), SeverityRank(alerts[j].Severity)
		if ri != rj {
			return ri < rj
		}
		return alerts[i].ID < alerts[j].ID
	})
	return alerts, nil
}

// check applies every threshold to one project's latest comparison.
func (ae *alertEngine) check(pv ProjectVariance, now time.Time) []Alert {
	var alerts []Alert
	project := pv.ProjectID
	if project == "" {
		project = "(unnamed)"
	}

	if pv.BaselineBudget > 0 {
		pct := pv.CostVariance / pv.BaselineBudget * 100
		if pct > ae.thresholds.CostOverrunPercent {
			alerts = append(alerts, Alert{
				ID:          fmt.Sprintf("cost-%s", project),
				Condition:   ConditionCostOverrun,
				Severity:    SeverityHigh,
				ProjectID:   pv.ProjectID,
				Message:     fmt.Sprintf("project %s is %.1f%% over its baseline budget (threshold %.1f%%)", project, pct, ae.thresholds.CostOverrunPercent),
				TriggeredAt: now,
			})
		}
	}

	if pv.DurationVariance > ae.thresholds.ScheduleSlipDays {
		alerts = append(alerts, Alert{
			ID:          fmt.Sprintf("slip-%s", project),
			Condition:   ConditionScheduleSlip,
			Severity:    SeverityHigh,
			ProjectID:   pv.ProjectID,
			Message:     fmt.Sprintf("project %s has slipped %d days against its baseline (threshold %d)", project, pv.DurationVariance, ae.thresholds.ScheduleSlipDays),
			TriggeredAt: now,
		})
	}

	if churn := pv.Added + pv.Deleted; churn > ae.thresholds.MaxScopeChanges {
		alerts = append(alerts, Alert{
			ID:          fmt.Sprintf("scope-%s", project),
			Condition:   ConditionScopeChurn,
			Severity:    SeverityMedium,
			ProjectID:   pv.ProjectID,
			Message:     fmt.Sprintf("project %s has %d added or deleted tasks since its baseline (threshold %d)", project, churn, ae.thresholds.MaxScopeChanges),
			TriggeredAt: now,
		})
	}

	return alerts
}

// SeverityRank orders severities from most to least urgent.
func SeverityRank(s AlertSeverity) int {
	switch s {
	case SeverityHigh:
		return 0
	case SeverityMedium:
		return 1
	case SeverityLow:
		return 2
	default:
		return 3
	}
}
