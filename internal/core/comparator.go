package core

import (
	"errors"
	"fmt"

	"github.com/valter-silva-au/ppm-baseline/pkg/models"
)

// CompareProjects diffs a target snapshot against a baseline snapshot.
//
// Tasks are joined by ID. Target tasks without a baseline counterpart are
// reported as added, baseline tasks without a target counterpart as deleted,
// and matched pairs are diffed field by field in a fixed order: startDate,
// endDate, duration, status, then dependency count (reported as "logic").
// Output lists follow the order of the snapshot they were read from.
//
// Dependencies are compared by count only, so replacing one predecessor with
// another yields no change. Cost variance is the project-level budget delta.
//
// CompareProjects never mutates its arguments and returns deep copies of the
// reported tasks. It is safe for concurrent use.
func CompareProjects(baseline, target models.ProjectSnapshot) models.ComparisonResult {
	baseIndex := indexTasks(baseline.Tasks)
	targetIndex := indexTasks(target.Tasks)

	result := models.ComparisonResult{
		AddedTasks:    []models.Task{},
		DeletedTasks:  []models.Task{},
		ModifiedTasks: []models.ModifiedTask{},
	}

	durationVariance := 0
	for _, task := range target.Tasks {
		base, ok := baseIndex[task.ID]
		if !ok {
			result.AddedTasks = append(result.AddedTasks, task.Clone())
			continue
		}

		changes, durationDelta := diffTask(base, task)
		durationVariance += durationDelta
		if len(changes) > 0 {
			result.ModifiedTasks = append(result.ModifiedTasks, models.ModifiedTask{
				ID:      task.ID,
				Name:    task.Name,
				Changes: changes,
			})
		}
	}

	for _, task := range baseline.Tasks {
		if _, ok := targetIndex[task.ID]; !ok {
			result.DeletedTasks = append(result.DeletedTasks, task.Clone())
		}
	}

	result.VarianceStats = models.VarianceStats{
		CostVariance:     target.Budget - baseline.Budget,
		DurationVariance: durationVariance,
		AddedCount:       len(result.AddedTasks),
		DeletedCount:     len(result.DeletedTasks),
		ModifiedCount:    len(result.ModifiedTasks),
	}
	return result
}

// indexTasks maps task IDs to tasks. A repeated ID keeps its last occurrence.
func indexTasks(tasks []models.Task) map[string]models.Task {
	index := make(map[string]models.Task, len(tasks))
	for _, t := range tasks {
		index[t.ID] = t
	}
	return index
}

// diffTask returns the field changes between base and cur, plus the duration
// delta contributed to the project's duration variance.
func diffTask(base, cur models.Task) ([]models.FieldChange, int) {
	var changes []models.FieldChange
	durationDelta := 0

	if base.StartDate != cur.StartDate {
		changes = append(changes, models.FieldChange{
			Field:    models.FieldStartDate,
			OldValue: models.DateValue(base.StartDate),
			NewValue: models.DateValue(cur.StartDate),
		})
	}
	if base.EndDate != cur.EndDate {
		changes = append(changes, models.FieldChange{
			Field:    models.FieldEndDate,
			OldValue: models.DateValue(base.EndDate),
			NewValue: models.DateValue(cur.EndDate),
		})
	}
	if base.Duration != cur.Duration {
		durationDelta = cur.Duration - base.Duration
		changes = append(changes, models.FieldChange{
			Field:    models.FieldDuration,
			OldValue: models.IntValue(base.Duration),
			NewValue: models.IntValue(cur.Duration),
		})
	}
	if base.Status != cur.Status {
		changes = append(changes, models.FieldChange{
			Field:    models.FieldStatus,
			OldValue: models.StatusValue(base.Status),
			NewValue: models.StatusValue(cur.Status),
		})
	}
	if len(base.Dependencies) != len(cur.Dependencies) {
		changes = append(changes, models.FieldChange{
			Field:    models.FieldLogic,
			OldValue: models.LinkCountValue(len(base.Dependencies)),
			NewValue: models.LinkCountValue(len(cur.Dependencies)),
		})
	}

	return changes, durationDelta
}

// ValidateSnapshot checks the preconditions CompareProjects relies on: every
// task has a non-empty, unique ID and a non-negative duration. All problems
// found are returned joined together.
func ValidateSnapshot(s models.ProjectSnapshot) error {
	var errs []error
	seen := make(map[string]int, len(s.Tasks))
	for i, t := range s.Tasks {
		if t.ID == "" {
			errs = append(errs, fmt.Errorf("task at index %d: id must not be empty", i))
			continue
		}
		if first, dup := seen[t.ID]; dup {
			errs = append(errs, fmt.Errorf("task %s: duplicate id (first seen at index %d)", t.ID, first))
		} else {
			seen[t.ID] = i
		}
		if t.Duration < 0 {
			errs = append(errs, fmt.Errorf("task %s: duration must not be negative, got %d", t.ID, t.Duration))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid snapshot %q: %w", s.ID, errors.Join(errs...))
	}
	return nil
}
