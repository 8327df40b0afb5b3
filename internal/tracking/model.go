package tracking

import "civicfix-backend/internal/issues"

// StepStatus is the rendering state of one timeline step.
type StepStatus string

const (
	StepCompleted StepStatus = "completed"
	StepCurrent   StepStatus = "current"
	StepPending   StepStatus = "pending"
)

// PendingTimestamp is shown for steps that have not happened yet.
const PendingTimestamp = "Pending"

// Event is one step of a ticket's timeline.
type Event struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Timestamp   string     `json:"timestamp"`
	Status      StepStatus `json:"status"`
}

// Report is a tracked issue with its timeline.
type Report struct {
	Issue    issues.Issue `json:"issue"`
	Timeline []Event      `json:"timeline"`
}
