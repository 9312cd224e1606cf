package core

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/valter-silva-au/ppm-baseline/pkg/models"
)

var (
	// ErrBaselineNotFound is returned when a named baseline does not exist.
	ErrBaselineNotFound = errors.New("baseline not found")
	// ErrBaselineExists is returned when capturing a baseline under a name
	// that is already taken.
	ErrBaselineExists = errors.New("baseline already exists")
)

// BaselineStore is the subset of storage.BaselineStoreManager that the
// baseline manager needs. Defining it here keeps core independent of the
// storage package.
type BaselineStore interface {
	// PutBaseline persists a new baseline.
	PutBaseline(b models.Baseline) error
	// FindBaseline returns nil, nil when no baseline has the given name.
	FindBaseline(name string) (*models.Baseline, error)
	ListBaselines() ([]models.Baseline, error)
	DeleteBaseline(name string) error
}

// EventLogger receives domain events from core services. The observability
// event log satisfies it through an adapter in the app wiring.
type EventLogger interface {
	LogEvent(eventType string, data map[string]any) error
}

// BaselineManager captures named project baselines and compares live
// snapshots against them.
type BaselineManager interface {
	CaptureBaseline(snapshot models.ProjectSnapshot, name, note string) (*models.Baseline, error)
	GetBaseline(name string) (*models.Baseline, error)
	ListBaselines(projectID string) ([]models.Baseline, error)
	DeleteBaseline(name string) error
	CompareToBaseline(name string, current models.ProjectSnapshot) (*models.ComparisonResult, error)
	Compare(baseline, target models.ProjectSnapshot) (*models.ComparisonResult, error)
}

type baselineManager struct {
	store       BaselineStore
	eventLogger EventLogger
	logger      *slog.Logger
	now         func() time.Time
}

// NewBaselineManager creates a BaselineManager backed by the given store.
// eventLogger may be nil, in which case no events are emitted.
func NewBaselineManager(store BaselineStore, eventLogger EventLogger, logger *slog.Logger) BaselineManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &baselineManager{
		store:       store,
		eventLogger: eventLogger,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (m *baselineManager) CaptureBaseline(snapshot models.ProjectSnapshot, name, note string) (*models.Baseline, error) {
	if err := ValidateSnapshot(snapshot); err != nil {
		return nil, fmt.Errorf("capturing baseline: %w", err)
	}

	capturedAt := m.now()
	if name == "" {
		name = defaultBaselineName(snapshot.ID, capturedAt)
	}

	existing, err := m.store.FindBaseline(name)
	if err != nil {
		return nil, fmt.Errorf("capturing baseline %q: %w", name, err)
	}
	if existing != nil {
		return nil, fmt.Errorf("capturing baseline %q: %w", name, ErrBaselineExists)
	}

	b := models.Baseline{
		Name:       name,
		ProjectID:  snapshot.ID,
		CapturedAt: capturedAt,
		Note:       note,
		Snapshot:   snapshot.Clone(),
	}
	if err := m.store.PutBaseline(b); err != nil {
		return nil, fmt.Errorf("saving baseline %q: %w", name, err)
	}

	m.logger.Debug("baseline captured", "name", name, "project", snapshot.ID, "tasks", len(snapshot.Tasks))
	m.logEvent(models.EventBaselineCaptured, map[string]any{
		"baseline":   name,
		"project_id": snapshot.ID,
		"tasks":      len(snapshot.Tasks),
		"budget":     snapshot.Budget,
	})
	return &b, nil
}

func (m *baselineManager) GetBaseline(name string) (*models.Baseline, error) {
	b, err := m.store.FindBaseline(name)
	if err != nil {
		return nil, fmt.Errorf("loading baseline %q: %w", name, err)
	}
	if b == nil {
		return nil, fmt.Errorf("baseline %q: %w", name, ErrBaselineNotFound)
	}
	return b, nil
}

func (m *baselineManager) ListBaselines(projectID string) ([]models.Baseline, error) {
	all, err := m.store.ListBaselines()
	if err != nil {
		return nil, fmt.Errorf("listing baselines: %w", err)
	}

	result := make([]models.Baseline, 0, len(all))
	for _, b := range all {
		if projectID == "" || b.ProjectID == projectID {
			result = append(result, b)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].CapturedAt.Equal(result[j].CapturedAt) {
			return result[i].CapturedAt.Before(result[j].CapturedAt)
		}
		return result[i].Name < result[j].Name
	})
	return result, nil
}

func (m *baselineManager) DeleteBaseline(name string) error {
	b, err := m.GetBaseline(name)
	if err != nil {
		return err
	}
	if err := m.store.DeleteBaseline(name); err != nil {
		return fmt.Errorf("deleting baseline %q: %w", name, err)
	}

	m.logger.Debug("baseline deleted", "name", name)
	m.logEvent(models.EventBaselineDeleted, map[string]any{
		"baseline":   name,
		"project_id": b.ProjectID,
	})
	return nil
}

func (m *baselineManager) CompareToBaseline(name string, current models.ProjectSnapshot) (*models.ComparisonResult, error) {
	b, err := m.GetBaseline(name)
	if err != nil {
		return nil, err
	}
	if err := ValidateSnapshot(current); err != nil {
		return nil, fmt.Errorf("comparing against baseline %q: %w", name, err)
	}

	result := CompareProjects(b.Snapshot, current)
	m.recordComparison(name, b.Snapshot, current, &result)
	return &result, nil
}

func (m *baselineManager) Compare(baseline, target models.ProjectSnapshot) (*models.ComparisonResult, error) {
	if err := ValidateSnapshot(baseline); err != nil {
		return nil, fmt.Errorf("validating baseline: %w", err)
	}
	if err := ValidateSnapshot(target); err != nil {
		return nil, fmt.Errorf("validating target: %w", err)
	}

	result := CompareProjects(baseline, target)
	m.recordComparison("", baseline, target, &result)
	return &result, nil
}

func (m *baselineManager) recordComparison(name string, baseline, target models.ProjectSnapshot, result *models.ComparisonResult) {
	projectID := target.ID
	if projectID == "" {
		projectID = baseline.ID
	}
	stats := result.VarianceStats

	m.logger.Debug("comparison completed",
		"project", projectID,
		"baseline", name,
		"added", stats.AddedCount,
		"deleted", stats.DeletedCount,
		"modified", stats.ModifiedCount,
	)
	m.logEvent(models.EventComparisonCompleted, map[string]any{
		"project_id":        projectID,
		"baseline":          name,
		"baseline_budget":   baseline.Budget,
		"added":             stats.AddedCount,
		"deleted":           stats.DeletedCount,
		"modified":          stats.ModifiedCount,
		"cost_variance":     stats.CostVariance,
		"duration_variance": stats.DurationVariance,
	})
}

// logEvent emits an event if an EventLogger is configured.
func (m *baselineManager) logEvent(eventType string, data map[string]any) {
	if m.eventLogger == nil {
		return
	}
	if err := m.eventLogger.LogEvent(eventType, data); err != nil {
		m.logger.Warn("writing event", "type", eventType, "error", err)
	}
}

// defaultBaselineName builds a name such as "PRJ-1-20250115-103000".
func defaultBaselineName(projectID string, at time.Time) string {
	if projectID == "" {
		projectID = "baseline"
	}
	return fmt.Sprintf("%s-%s", projectID, at.Format("20060102-150405"))
}
