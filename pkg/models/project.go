package models

import "time"

// ProjectSnapshot is a point-in-time copy of a project's schedule and budget.
// Two snapshots of the same project, a baseline and a target, are the inputs
// to a schedule comparison.
type ProjectSnapshot struct {
	ID     string  `yaml:"id,omitempty" json:"id,omitempty"`
	Name   string  `yaml:"name,omitempty" json:"name,omitempty"`
	Budget float64 `yaml:"budget" json:"budget"`
	Tasks  []Task  `yaml:"tasks" json:"tasks"`
}

// Clone returns a deep copy of the snapshot.
func (p ProjectSnapshot) Clone() ProjectSnapshot {
	out := p
	if p.Tasks != nil {
		out.Tasks = make([]Task, len(p.Tasks))
		for i, t := range p.Tasks {
			out.Tasks[i] = t.Clone()
		}
	}
	return out
}

// Baseline is a named, frozen snapshot of a project kept for later variance
// comparisons against the live schedule.
type Baseline struct {
	Name       string          `yaml:"name" json:"name"`
	ProjectID  string          `yaml:"projectId" json:"projectId"`
	CapturedAt time.Time       `yaml:"capturedAt" json:"capturedAt"`
	Note       string          `yaml:"note,omitempty" json:"note,omitempty"`
	Snapshot   ProjectSnapshot `yaml:"snapshot" json:"snapshot"`
}
