package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ChangeField names a task attribute that the schedule comparator diffs.
type ChangeField string

// The order of these constants is the order in which changes are reported
// for a single task.
const (
	FieldStartDate ChangeField = "startDate"
	FieldEndDate   ChangeField = "endDate"
	FieldDuration  ChangeField = "duration"
	FieldStatus    ChangeField = "status"
	FieldLogic     ChangeField = "logic"
)

// ValueKind tags the payload carried by a ChangeValue.
type ValueKind string

const (
	KindDate   ValueKind = "date"
	KindInt    ValueKind = "int"
	KindStatus ValueKind = "status"
	KindLinks  ValueKind = "links"
)

// Kind returns the value kind reported for changes to this field.
func (f ChangeField) Kind() ValueKind {
	switch f {
	case FieldStartDate, FieldEndDate:
		return KindDate
	case FieldDuration:
		return KindInt
	case FieldStatus:
		return KindStatus
	case FieldLogic:
		return KindLinks
	default:
		return ""
	}
}

// ChangeValue is one side of a field-level diff. Kind selects which payload
// is meaningful: Text for dates and statuses, Number for integers and link
// counts.
type ChangeValue struct {
	Kind   ValueKind
	Text   string
	Number int
}

// DateValue wraps a calendar date string.
func DateValue(date string) ChangeValue {
	return ChangeValue{Kind: KindDate, Text: date}
}

// IntValue wraps an integer quantity such as a duration in days.
func IntValue(n int) ChangeValue {
	return ChangeValue{Kind: KindInt, Number: n}
}

// StatusValue wraps a task lifecycle status.
func StatusValue(s TaskStatus) ChangeValue {
	return ChangeValue{Kind: KindStatus, Text: string(s)}
}

// LinkCountValue wraps a dependency count.
func LinkCountValue(n int) ChangeValue {
	return ChangeValue{Kind: KindLinks, Number: n}
}

// String renders the value for display. Link counts render as "<n> links".
func (v ChangeValue) String() string {
	switch v.Kind {
	case KindInt:
		return strconv.Itoa(v.Number)
	case KindLinks:
		return fmt.Sprintf("%d links", v.Number)
	default:
		return v.Text
	}
}

// scalar returns the natural wire representation of the value.
func (v ChangeValue) scalar() any {
	if v.Kind == KindInt {
		return v.Number
	}
	return v.String()
}

// MarshalJSON encodes integers as JSON numbers and everything else as strings.
func (v ChangeValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.scalar())
}

// MarshalYAML encodes the value the same way MarshalJSON does.
func (v ChangeValue) MarshalYAML() (any, error) {
	return v.scalar(), nil
}

// parseChangeValue decodes a scalar into a value of the given kind. decode
// unmarshals the raw scalar into its argument.
func parseChangeValue(kind ValueKind, decode func(any) error) (ChangeValue, error) {
	switch kind {
	case KindInt:
		var n int
		if err := decode(&n); err != nil {
			return ChangeValue{}, fmt.Errorf("decoding integer value: %w", err)
		}
		return IntValue(n), nil
	case KindLinks:
		var s string
		if err := decode(&s); err != nil {
			return ChangeValue{}, fmt.Errorf("decoding link count: %w", err)
		}
		n, err := strconv.Atoi(strings.TrimSuffix(s, " links"))
		if err != nil {
			return ChangeValue{}, fmt.Errorf("decoding link count %q: %w", s, err)
		}
		return LinkCountValue(n), nil
	case KindDate, KindStatus:
		var s string
		if err := decode(&s); err != nil {
			return ChangeValue{}, fmt.Errorf("decoding %s value: %w", kind, err)
		}
		return ChangeValue{Kind: kind, Text: s}, nil
	default:
		return ChangeValue{}, fmt.Errorf("unknown value kind %q", kind)
	}
}

// FieldChange is a single field-level difference between a baseline task and
// its target counterpart.
type FieldChange struct {
	Field    ChangeField `yaml:"field" json:"field"`
	OldValue ChangeValue `yaml:"oldValue" json:"oldValue"`
	NewValue ChangeValue `yaml:"newValue" json:"newValue"`
}

// UnmarshalJSON restores the value kinds from the field name.
func (c *FieldChange) UnmarshalJSON(data []byte) error {
	var aux struct {
		Field    ChangeField     `json:"field"`
		OldValue json.RawMessage `json:"oldValue"`
		NewValue json.RawMessage `json:"newValue"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	return c.restore(aux.Field,
		func(v any) error { return json.Unmarshal(aux.OldValue, v) },
		func(v any) error { return json.Unmarshal(aux.NewValue, v) },
	)
}

// UnmarshalYAML restores the value kinds from the field name.
func (c *FieldChange) UnmarshalYAML(node *yaml.Node) error {
	var aux struct {
		Field    ChangeField `yaml:"field"`
		OldValue yaml.Node   `yaml:"oldValue"`
		NewValue yaml.Node   `yaml:"newValue"`
	}
	if err := node.Decode(&aux); err != nil {
		return err
	}
	return c.restore(aux.Field, aux.OldValue.Decode, aux.NewValue.Decode)
}

func (c *FieldChange) restore(field ChangeField, decodeOld, decodeNew func(any) error) error {
	kind := field.Kind()
	if kind == "" {
		return fmt.Errorf("unknown change field %q", field)
	}
	oldValue, err := parseChangeValue(kind, decodeOld)
	if err != nil {
		return fmt.Errorf("field %s oldValue: %w", field, err)
	}
	newValue, err := parseChangeValue(kind, decodeNew)
	if err != nil {
		return fmt.Errorf("field %s newValue: %w", field, err)
	}
	*c = FieldChange{Field: field, OldValue: oldValue, NewValue: newValue}
	return nil
}

// ModifiedTask lists the field-level changes of a task present in both
// snapshots. Changes is never empty.
type ModifiedTask struct {
	ID      string        `yaml:"id" json:"id"`
	Name    string        `yaml:"name" json:"name"`
	Changes []FieldChange `yaml:"changes" json:"changes"`
}

// VarianceStats holds the aggregate figures of a comparison. The counts are
// always the lengths of the corresponding result lists.
type VarianceStats struct {
	CostVariance     float64 `yaml:"costVariance" json:"costVariance"`
	DurationVariance int     `yaml:"durationVariance" json:"durationVariance"`
	AddedCount       int     `yaml:"addedCount" json:"addedCount"`
	DeletedCount     int     `yaml:"deletedCount" json:"deletedCount"`
	ModifiedCount    int     `yaml:"modifiedCount" json:"modifiedCount"`
}

// ComparisonResult is the delta between a baseline and a target snapshot.
type ComparisonResult struct {
	AddedTasks    []Task         `yaml:"addedTasks" json:"addedTasks"`
	DeletedTasks  []Task         `yaml:"deletedTasks" json:"deletedTasks"`
	ModifiedTasks []ModifiedTask `yaml:"modifiedTasks" json:"modifiedTasks"`
	VarianceStats VarianceStats  `yaml:"varianceStats" json:"varianceStats"`
}

// HasChanges reports whether the comparison found any structural, field or
// budget difference.
func (r *ComparisonResult) HasChanges() bool {
	return len(r.AddedTasks) > 0 ||
		len(r.DeletedTasks) > 0 ||
		len(r.ModifiedTasks) > 0 ||
		r.VarianceStats.CostVariance != 0
}
