package core

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/valter-silva-au/ppm-baseline/pkg/models"
)

func task(id string, duration int, status models.TaskStatus, start, end string, deps int) models.Task {
	t := models.Task{
		ID:           id,
		Name:         "Task " + id,
		WBSCode:      "1." + id,
		StartDate:    start,
		EndDate:      end,
		Duration:     duration,
		Status:       status,
		Dependencies: []models.Dependency{},
	}
	for i := 0; i < deps; i++ {
		t.Dependencies = append(t.Dependencies, models.Dependency{
			PredecessorID: "P" + string(rune('A'+i)),
			Type:          models.DependencyFinishToStart,
		})
	}
	return t
}

func TestCompareProjects_AddedAndModified(t *testing.T) {
	baseline := models.ProjectSnapshot{
		Budget: 1000,
		Tasks: []models.Task{
			task("T1", 5, models.StatusNotStarted, "2024-01-01", "2024-01-06", 0),
		},
	}
	target := models.ProjectSnapshot{
		Budget: 1500,
		Tasks: []models.Task{
			task("T1", 7, models.StatusInProgress, "2024-01-01", "2024-01-08", 0),
			task("T2", 3, models.StatusNotStarted, "2024-01-08", "2024-01-11", 0),
		},
	}

	got := CompareProjects(baseline, target)

	if len(got.AddedTasks) != 1 || got.AddedTasks[0].ID != "T2" {
		t.Fatalf("AddedTasks = %+v, want [T2]", got.AddedTasks)
	}
	if len(got.DeletedTasks) != 0 {
		t.Errorf("DeletedTasks = %+v, want empty", got.DeletedTasks)
	}
	if len(got.ModifiedTasks) != 1 {
		t.Fatalf("ModifiedTasks length = %d, want 1", len(got.ModifiedTasks))
	}

	mod := got.ModifiedTasks[0]
	if mod.ID != "T1" {
		t.Errorf("modified ID = %s, want T1", mod.ID)
	}
	wantChanges := []models.FieldChange{
		{Field: models.FieldEndDate, OldValue: models.DateValue("2024-01-06"), NewValue: models.DateValue("2024-01-08")},
		{Field: models.FieldDuration, OldValue: models.IntValue(5), NewValue: models.IntValue(7)},
		{Field: models.FieldStatus, OldValue: models.StatusValue(models.StatusNotStarted), NewValue: models.StatusValue(models.StatusInProgress)},
	}
	if !reflect.DeepEqual(mod.Changes, wantChanges) {
		t.Errorf("changes = %+v\nwant %+v", mod.Changes, wantChanges)
	}

	wantStats := models.VarianceStats{
		CostVariance:     500,
		DurationVariance: 2,
		AddedCount:       1,
		DeletedCount:     0,
		ModifiedCount:    1,
	}
	if got.VarianceStats != wantStats {
		t.Errorf("VarianceStats = %+v, want %+v", got.VarianceStats, wantStats)
	}
}

func TestCompareProjects_DeletedTask(t *testing.T) {
	t1 := task("T1", 5, models.StatusNotStarted, "2024-01-01", "2024-01-06", 0)
	t2 := task("T2", 3, models.StatusNotStarted, "2024-01-08", "2024-01-11", 1)

	got := CompareProjects(
		models.ProjectSnapshot{Tasks: []models.Task{t1, t2}},
		models.ProjectSnapshot{Tasks: []models.Task{t1}},
	)

	if len(got.DeletedTasks) != 1 || got.DeletedTasks[0].ID != "T2" {
		t.Errorf("DeletedTasks = %+v, want [T2]", got.DeletedTasks)
	}
	if len(got.AddedTasks) != 0 {
		t.Errorf("AddedTasks = %+v, want empty", got.AddedTasks)
	}
	if len(got.ModifiedTasks) != 0 {
		t.Errorf("ModifiedTasks = %+v, want empty", got.ModifiedTasks)
	}
}

func TestCompareProjects_EmptyBaseline(t *testing.T) {
	target := models.ProjectSnapshot{
		Tasks: []models.Task{
			task("T1", 5, models.StatusNotStarted, "2024-01-01", "2024-01-06", 0),
			task("T2", 3, models.StatusNotStarted, "2024-01-08", "2024-01-11", 0),
		},
	}

	got := CompareProjects(models.ProjectSnapshot{Tasks: []models.Task{}}, target)

	if len(got.AddedTasks) != 2 {
		t.Fatalf("AddedTasks length = %d, want 2", len(got.AddedTasks))
	}
	if got.AddedTasks[0].ID != "T1" || got.AddedTasks[1].ID != "T2" {
		t.Errorf("AddedTasks order = [%s %s], want [T1 T2]", got.AddedTasks[0].ID, got.AddedTasks[1].ID)
	}
	if got.VarianceStats.DeletedCount != 0 || got.VarianceStats.ModifiedCount != 0 {
		t.Errorf("stats = %+v, want zero deleted and modified", got.VarianceStats)
	}
}

func TestCompareProjects_EmptyTarget(t *testing.T) {
	baseline := models.ProjectSnapshot{
		Budget: 200,
		Tasks: []models.Task{
			task("T1", 5, models.StatusNotStarted, "2024-01-01", "2024-01-06", 0),
		},
	}

	got := CompareProjects(baseline, models.ProjectSnapshot{})

	if got.VarianceStats.DeletedCount != 1 {
		t.Errorf("DeletedCount = %d, want 1", got.VarianceStats.DeletedCount)
	}
	if got.VarianceStats.CostVariance != -200 {
		t.Errorf("CostVariance = %v, want -200", got.VarianceStats.CostVariance)
	}
}

func TestCompareProjects_IdenticalTaskExcluded(t *testing.T) {
	t1 := task("T1", 5, models.StatusInProgress, "2024-01-01", "2024-01-06", 2)
	renamed := t1.Clone()
	renamed.Name = "Renamed"
	renamed.WBSCode = "9.9"

	got := CompareProjects(
		models.ProjectSnapshot{Tasks: []models.Task{t1}},
		models.ProjectSnapshot{Tasks: []models.Task{renamed}},
	)

	if got.ModifiedTasks == nil {
		t.Fatal("ModifiedTasks should be an empty slice, not nil")
	}
	if len(got.ModifiedTasks) != 0 {
		t.Errorf("ModifiedTasks = %+v, want empty (name and wbsCode are not compared)", got.ModifiedTasks)
	}
}

func TestCompareProjects_DependencyCountOnly(t *testing.T) {
	base := task("T1", 5, models.StatusNotStarted, "2024-01-01", "2024-01-06", 1)
	cur := task("T1", 5, models.StatusNotStarted, "2024-01-01", "2024-01-06", 2)

	got := CompareProjects(
		models.ProjectSnapshot{Tasks: []models.Task{base}},
		models.ProjectSnapshot{Tasks: []models.Task{cur}},
	)

	if len(got.ModifiedTasks) != 1 {
		t.Fatalf("ModifiedTasks length = %d, want 1", len(got.ModifiedTasks))
	}
	changes := got.ModifiedTasks[0].Changes
	if len(changes) != 1 {
		t.Fatalf("changes = %+v, want exactly one", changes)
	}
	c := changes[0]
	if c.Field != models.FieldLogic {
		t.Errorf("field = %s, want logic", c.Field)
	}
	if c.OldValue.String() != "1 links" || c.NewValue.String() != "2 links" {
		t.Errorf("values = %q -> %q, want \"1 links\" -> \"2 links\"", c.OldValue, c.NewValue)
	}
}

func TestCompareProjects_SwappedPredecessorIsNotAChange(t *testing.T) {
	base := task("T1", 5, models.StatusNotStarted, "2024-01-01", "2024-01-06", 1)
	cur := base.Clone()
	cur.Dependencies[0].PredecessorID = "OTHER"

	got := CompareProjects(
		models.ProjectSnapshot{Tasks: []models.Task{base}},
		models.ProjectSnapshot{Tasks: []models.Task{cur}},
	)

	if len(got.ModifiedTasks) != 0 {
		t.Errorf("ModifiedTasks = %+v, want empty", got.ModifiedTasks)
	}
}

func TestCompareProjects_AllFieldsInFixedOrder(t *testing.T) {
	base := task("T1", 5, models.StatusNotStarted, "2024-01-01", "2024-01-06", 0)
	cur := task("T1", 9, models.StatusDelayed, "2024-01-03", "2024-01-12", 3)

	got := CompareProjects(
		models.ProjectSnapshot{Tasks: []models.Task{base}},
		models.ProjectSnapshot{Tasks: []models.Task{cur}},
	)

	if len(got.ModifiedTasks) != 1 {
		t.Fatalf("ModifiedTasks length = %d, want 1", len(got.ModifiedTasks))
	}
	var fields []models.ChangeField
	for _, c := range got.ModifiedTasks[0].Changes {
		fields = append(fields, c.Field)
	}
	want := []models.ChangeField{
		models.FieldStartDate, models.FieldEndDate, models.FieldDuration,
		models.FieldStatus, models.FieldLogic,
	}
	if !reflect.DeepEqual(fields, want) {
		t.Errorf("fields = %v, want %v", fields, want)
	}
	if got.VarianceStats.DurationVariance != 4 {
		t.Errorf("DurationVariance = %d, want 4", got.VarianceStats.DurationVariance)
	}
}

func TestCompareProjects_ModifiedNameFromTarget(t *testing.T) {
	base := task("T1", 5, models.StatusNotStarted, "2024-01-01", "2024-01-06", 0)
	cur := base.Clone()
	cur.Name = "Pour foundations"
	cur.Status = models.StatusCompleted

	got := CompareProjects(
		models.ProjectSnapshot{Tasks: []models.Task{base}},
		models.ProjectSnapshot{Tasks: []models.Task{cur}},
	)

	if got.ModifiedTasks[0].Name != "Pour foundations" {
		t.Errorf("name = %q, want target name", got.ModifiedTasks[0].Name)
	}
}

func TestCompareProjects_DoesNotAliasInputs(t *testing.T) {
	target := models.ProjectSnapshot{
		Tasks: []models.Task{task("T1", 5, models.StatusNotStarted, "2024-01-01", "2024-01-06", 1)},
	}

	got := CompareProjects(models.ProjectSnapshot{}, target)
	got.AddedTasks[0].Dependencies[0].PredecessorID = "MUTATED"

	if target.Tasks[0].Dependencies[0].PredecessorID == "MUTATED" {
		t.Error("mutating the result changed the input snapshot")
	}
}

func TestComparisonResult_JSONShape(t *testing.T) {
	base := task("T1", 5, models.StatusNotStarted, "2024-01-01", "2024-01-06", 1)
	cur := task("T1", 7, models.StatusNotStarted, "2024-01-01", "2024-01-06", 2)

	got := CompareProjects(
		models.ProjectSnapshot{Tasks: []models.Task{base}},
		models.ProjectSnapshot{Tasks: []models.Task{cur}},
	)

	data, err := json.Marshal(got)
	if err != nil {
		t.Fatalf("marshalling result: %v", err)
	}
	s := string(data)
	for _, want := range []string{
		`"addedTasks":[]`,
		`"deletedTasks":[]`,
		`{"field":"duration","oldValue":5,"newValue":7}`,
		`{"field":"logic","oldValue":"1 links","newValue":"2 links"}`,
		`"durationVariance":2`,
	} {
		if !strings.Contains(s, want) {
			t.Errorf("JSON %s\nshould contain %s", s, want)
		}
	}
}

func TestValidateSnapshot(t *testing.T) {
	tests := []struct {
		name    string
		tasks   []models.Task
		wantErr string
	}{
		{"empty snapshot", nil, ""},
		{"valid", []models.Task{{ID: "T1", Duration: 1}, {ID: "T2"}}, ""},
		{"empty id", []models.Task{{ID: ""}}, "id must not be empty"},
		{"duplicate id", []models.Task{{ID: "T1"}, {ID: "T1"}}, "duplicate id"},
		{"negative duration", []models.Task{{ID: "T1", Duration: -3}}, "must not be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSnapshot(models.ProjectSnapshot{ID: "P1", Tasks: tt.tasks})
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q should contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidateSnapshot_ReportsAllProblems(t *testing.T) {
	err := ValidateSnapshot(models.ProjectSnapshot{Tasks: []models.Task{
		{ID: ""},
		{ID: "T1", Duration: -1},
		{ID: "T1"},
	}})
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"index 0", "must not be negative", "duplicate id"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q should contain %q", err.Error(), want)
		}
	}
}
