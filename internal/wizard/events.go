package wizard

import "time"

// EventType names a user-visible wizard notification.
type EventType string

const (
	EventValidationFailed  EventType = "validation_failed"
	EventAnalysisStarted   EventType = "analysis_started"
	EventAnalysisCompleted EventType = "analysis_completed"
	EventAnalysisFailed    EventType = "analysis_failed"
	EventSubmitted         EventType = "submitted"
	EventReset             EventType = "reset"
)

// Variant selects how a client renders the notification.
type Variant string

const (
	VariantDefault     Variant = "default"
	VariantDestructive Variant = "destructive"
)

// Event is emitted on every transition and on rejected analysis requests.
type Event struct {
	SessionID   string    `json:"sessionId,omitempty"`
	Seq         uint64    `json:"seq"`
	Type        EventType `json:"type"`
	From        Stage     `json:"from"`
	Stage       Stage     `json:"stage"`
	Title       string    `json:"title,omitempty"`
	Description string    `json:"description,omitempty"`
	Variant     Variant   `json:"variant,omitempty"`
	Steps       []string  `json:"steps,omitempty"`
	TicketID    string    `json:"ticketId,omitempty"`
	At          time.Time `json:"at"`
}

// Notifier receives wizard events. Implementations must not call back into the wizard
// synchronously with a lock held.
type Notifier interface {
	Notify(Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Event)

// Notify calls f(e).
func (f NotifierFunc) Notify(e Event) { f(e) }

type nopNotifier struct{}

func (nopNotifier) Notify(Event) {}

// AnalysisSteps are the progress lines shown while a report is analysed.
var AnalysisSteps = []string{
	"Processing image...",
	"Identifying issue category...",
	"Determining severity level...",
	"Finding responsible department...",
}

const (
	titleMissingInfo   = "Missing Information"
	descMissingInfo    = "Please upload an image and provide a description."
	titleAnalyzing     = "Analyzing Your Report"
	descAnalyzing      = "Identifying the issue type, severity, and the correct department to handle it."
	titleAnalysisDone  = "Analysis Complete"
	descAnalysisDone   = "Review the analysis and submit your report."
	titleAnalysisError = "Analysis Failed"
	descAnalysisError  = "We could not analyze your report. Please try again."
	titleSubmitted     = "Report Submitted!"
	descSubmitted      = "Your issue has been logged and routed to the correct department."
	titleReset         = "Report Cleared"
)
