package models

// Event types written to the event log by the baseline manager and read
// back by metrics and alerting.
const (
	EventComparisonCompleted = "comparison.completed"
	EventBaselineCaptured    = "baseline.captured"
	EventBaselineDeleted     = "baseline.deleted"
)
