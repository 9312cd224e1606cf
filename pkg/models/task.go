package models

// TaskStatus represents the lifecycle state of a scheduled task.
// Values outside the declared set are tolerated and compared verbatim.
type TaskStatus string

const (
	StatusNotStarted TaskStatus = "Not Started"
	StatusInProgress TaskStatus = "In Progress"
	StatusCompleted  TaskStatus = "Completed"
	StatusOnHold     TaskStatus = "On Hold"
	StatusDelayed    TaskStatus = "Delayed"
)

// DependencyType is the scheduling relationship between a task and its predecessor.
type DependencyType string

const (
	DependencyFinishToStart  DependencyType = "FS"
	DependencyStartToStart   DependencyType = "SS"
	DependencyFinishToFinish DependencyType = "FF"
	DependencyStartToFinish  DependencyType = "SF"
)

// Dependency is a predecessor link on a task.
type Dependency struct {
	PredecessorID string         `yaml:"predecessorId" json:"predecessorId"`
	Type          DependencyType `yaml:"type,omitempty" json:"type,omitempty"`
	Lag           int            `yaml:"lag,omitempty" json:"lag,omitempty"`
}

// Task is a single schedule line item within a project snapshot. ID is the
// join key between two snapshots of the same project.
type Task struct {
	ID           string       `yaml:"id" json:"id"`
	Name         string       `yaml:"name" json:"name"`
	WBSCode      string       `yaml:"wbsCode,omitempty" json:"wbsCode,omitempty"`
	StartDate    string       `yaml:"startDate" json:"startDate"`
	EndDate      string       `yaml:"endDate" json:"endDate"`
	Duration     int          `yaml:"duration" json:"duration"`
	Status       TaskStatus   `yaml:"status" json:"status"`
	Dependencies []Dependency `yaml:"dependencies" json:"dependencies"`
}

// Clone returns a deep copy of the task.
func (t Task) Clone() Task {
	out := t
	if t.Dependencies != nil {
		out.Dependencies = make([]Dependency, len(t.Dependencies))
		copy(out.Dependencies, t.Dependencies)
	}
	return out
}
