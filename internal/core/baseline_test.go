package core

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/valter-silva-au/ppm-baseline/pkg/models"
)

// --- Fakes ---

type fakeBaselineStore struct {
	baselines map[string]models.Baseline
	putErr    error
}

func newFakeBaselineStore() *fakeBaselineStore {
	return &fakeBaselineStore{baselines: make(map[string]models.Baseline)}
}

func (f *fakeBaselineStore) PutBaseline(b models.Baseline) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.baselines[b.Name] = b
	return nil
}

func (f *fakeBaselineStore) FindBaseline(name string) (*models.Baseline, error) {
	b, ok := f.baselines[name]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (f *fakeBaselineStore) ListBaselines() ([]models.Baseline, error) {
	out := make([]models.Baseline, 0, len(f.baselines))
	for _, b := range f.baselines {
		out = append(out, b)
	}
	return out, nil
}

func (f *fakeBaselineStore) DeleteBaseline(name string) error {
	delete(f.baselines, name)
	return nil
}

type recordedEvent struct {
	eventType string
	data      map[string]any
}

type fakeEventLogger struct {
	events []recordedEvent
}

func (f *fakeEventLogger) LogEvent(eventType string, data map[string]any) error {
	f.events = append(f.events, recordedEvent{eventType: eventType, data: data})
	return nil
}

func newTestBaselineManager(t *testing.T) (*baselineManager, *fakeBaselineStore, *fakeEventLogger) {
	t.Helper()
	store := newFakeBaselineStore()
	events := &fakeEventLogger{}
	mgr := NewBaselineManager(store, events, nil).(*baselineManager)
	mgr.now = func() time.Time { return time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC) }
	return mgr, store, events
}

func sampleSnapshot() models.ProjectSnapshot {
	return models.ProjectSnapshot{
		ID:     "PRJ-1",
		Name:   "Depot upgrade",
		Budget: 1000,
		Tasks: []models.Task{
			task("T1", 5, models.StatusNotStarted, "2024-01-01", "2024-01-06", 0),
			task("T2", 3, models.StatusNotStarted, "2024-01-08", "2024-01-11", 1),
		},
	}
}

// --- Tests ---

func TestCaptureBaseline(t *testing.T) {
	mgr, store, events := newTestBaselineManager(t)

	b, err := mgr.CaptureBaseline(sampleSnapshot(), "v1", "initial plan")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Name != "v1" || b.ProjectID != "PRJ-1" || b.Note != "initial plan" {
		t.Errorf("unexpected baseline: %+v", b)
	}
	if _, ok := store.baselines["v1"]; !ok {
		t.Error("baseline was not stored")
	}
	if len(events.events) != 1 || events.events[0].eventType != models.EventBaselineCaptured {
		t.Errorf("events = %+v, want one %s", events.events, models.EventBaselineCaptured)
	}
}

func TestCaptureBaseline_DefaultName(t *testing.T) {
	mgr, _, _ := newTestBaselineManager(t)

	b, err := mgr.CaptureBaseline(sampleSnapshot(), "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Name != "PRJ-1-20250115-103000" {
		t.Errorf("name = %q, want PRJ-1-20250115-103000", b.Name)
	}
}

func TestCaptureBaseline_Duplicate(t *testing.T) {
	mgr, _, _ := newTestBaselineManager(t)

	if _, err := mgr.CaptureBaseline(sampleSnapshot(), "v1", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := mgr.CaptureBaseline(sampleSnapshot(), "v1", "")
	if !errors.Is(err, ErrBaselineExists) {
		t.Errorf("expected ErrBaselineExists, got %v", err)
	}
}

func TestCaptureBaseline_InvalidSnapshot(t *testing.T) {
	mgr, store, _ := newTestBaselineManager(t)
	snap := sampleSnapshot()
	snap.Tasks = append(snap.Tasks, snap.Tasks[0])

	_, err := mgr.CaptureBaseline(snap, "v1", "")
	if err == nil || !strings.Contains(err.Error(), "duplicate id") {
		t.Fatalf("expected duplicate id error, got %v", err)
	}
	if len(store.baselines) != 0 {
		t.Error("invalid snapshot should not be stored")
	}
}

func TestCaptureBaseline_FreezesSnapshot(t *testing.T) {
	mgr, store, _ := newTestBaselineManager(t)
	snap := sampleSnapshot()

	if _, err := mgr.CaptureBaseline(snap, "v1", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	snap.Tasks[1].Dependencies[0].PredecessorID = "CHANGED"

	if store.baselines["v1"].Snapshot.Tasks[1].Dependencies[0].PredecessorID == "CHANGED" {
		t.Error("stored baseline shares memory with the captured snapshot")
	}
}

func TestCaptureBaseline_StoreError(t *testing.T) {
	mgr, store, events := newTestBaselineManager(t)
	store.putErr = errors.New("disk full")

	_, err := mgr.CaptureBaseline(sampleSnapshot(), "v1", "")
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("expected store error, got %v", err)
	}
	if len(events.events) != 0 {
		t.Error("no event should be emitted when the store fails")
	}
}

func TestGetBaseline_NotFound(t *testing.T) {
	mgr, _, _ := newTestBaselineManager(t)

	_, err := mgr.GetBaseline("missing")
	if !errors.Is(err, ErrBaselineNotFound) {
		t.Errorf("expected ErrBaselineNotFound, got %v", err)
	}
}

func TestListBaselines_FilterAndOrder(t *testing.T) {
	mgr, store, _ := newTestBaselineManager(t)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store.baselines["b"] = models.Baseline{Name: "b", ProjectID: "PRJ-1", CapturedAt: base.Add(time.Hour)}
	store.baselines["a"] = models.Baseline{Name: "a", ProjectID: "PRJ-1", CapturedAt: base.Add(time.Hour)}
	store.baselines["c"] = models.Baseline{Name: "c", ProjectID: "PRJ-1", CapturedAt: base}
	store.baselines["x"] = models.Baseline{Name: "x", ProjectID: "PRJ-2", CapturedAt: base}

	got, err := mgr.ListBaselines("PRJ-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var names []string
	for _, b := range got {
		names = append(names, b.Name)
	}
	if strings.Join(names, ",") != "c,a,b" {
		t.Errorf("names = %v, want [c a b]", names)
	}

	all, err := mgr.ListBaselines("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 4 {
		t.Errorf("expected 4 baselines, got %d", len(all))
	}
}

func TestDeleteBaseline(t *testing.T) {
	mgr, store, events := newTestBaselineManager(t)
	if _, err := mgr.CaptureBaseline(sampleSnapshot(), "v1", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := mgr.DeleteBaseline("v1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := store.baselines["v1"]; ok {
		t.Error("baseline still present after delete")
	}
	last := events.events[len(events.events)-1]
	if last.eventType != models.EventBaselineDeleted {
		t.Errorf("last event = %s, want %s", last.eventType, models.EventBaselineDeleted)
	}

	if err := mgr.DeleteBaseline("v1"); !errors.Is(err, ErrBaselineNotFound) {
		t.Errorf("expected ErrBaselineNotFound on second delete, got %v", err)
	}
}

func TestCompareToBaseline(t *testing.T) {
	mgr, _, events := newTestBaselineManager(t)
	if _, err := mgr.CaptureBaseline(sampleSnapshot(), "v1", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	current := sampleSnapshot()
	current.Budget = 1250
	current.Tasks[0].Duration = 8
	current.Tasks = current.Tasks[:1]

	result, err := mgr.CompareToBaseline("v1", current)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stats := result.VarianceStats
	if stats.CostVariance != 250 || stats.DurationVariance != 3 || stats.DeletedCount != 1 || stats.ModifiedCount != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}

	last := events.events[len(events.events)-1]
	if last.eventType != models.EventComparisonCompleted {
		t.Fatalf("last event = %s, want %s", last.eventType, models.EventComparisonCompleted)
	}
	if last.data["baseline"] != "v1" || last.data["project_id"] != "PRJ-1" {
		t.Errorf("unexpected event data: %+v", last.data)
	}
	if last.data["baseline_budget"] != 1000.0 {
		t.Errorf("baseline_budget = %v, want 1000", last.data["baseline_budget"])
	}
}

func TestCompareToBaseline_Missing(t *testing.T) {
	mgr, _, _ := newTestBaselineManager(t)

	_, err := mgr.CompareToBaseline("nope", sampleSnapshot())
	if !errors.Is(err, ErrBaselineNotFound) {
		t.Errorf("expected ErrBaselineNotFound, got %v", err)
	}
}

func TestCompare_ValidatesBothSides(t *testing.T) {
	mgr, _, events := newTestBaselineManager(t)
	bad := models.ProjectSnapshot{Tasks: []models.Task{{ID: ""}}}

	if _, err := mgr.Compare(bad, sampleSnapshot()); err == nil || !strings.Contains(err.Error(), "validating baseline") {
		t.Errorf("expected baseline validation error, got %v", err)
	}
	if _, err := mgr.Compare(sampleSnapshot(), bad); err == nil || !strings.Contains(err.Error(), "validating target") {
		t.Errorf("expected target validation error, got %v", err)
	}
	if len(events.events) != 0 {
		t.Error("no event should be emitted for rejected input")
	}
}

func TestCompare_NilEventLogger(t *testing.T) {
	mgr := NewBaselineManager(newFakeBaselineStore(), nil, nil)

	result, err := mgr.Compare(sampleSnapshot(), sampleSnapshot())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.HasChanges() {
		t.Errorf("expected no changes, got %+v", result)
	}
}
