package issues

import (
	"strings"
	"time"
)

// Status is the lifecycle state shown on the dashboard.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusResolved   Status = "resolved"
)

// Severity mirrors the analysis severity in lower case.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Issue is a reported civic issue.
type Issue struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Category      string     `json:"category"`
	Location      string     `json:"location"`
	Status        Status     `json:"status"`
	Severity      Severity   `json:"severity"`
	Department    string     `json:"department"`
	SLA           string     `json:"sla,omitempty"`
	Confidence    int        `json:"confidence,omitempty"`
	Votes         int        `json:"votes"`
	OwnerID       string     `json:"-"`
	ImageKey      string     `json:"-"`
	ImageMimeType string     `json:"imageMimeType,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	ResolvedAt    *time.Time `json:"resolvedAt,omitempty"`
}

// HasImage reports whether a stored image is attached.
func (i Issue) HasImage() bool {
	return i.ImageKey != ""
}

// Filter narrows a dashboard listing. An empty or "all" status matches everything.
type Filter struct {
	Status string
	Query  string
}

// Matches applies the filter to one issue.
func (f Filter) Matches(issue Issue) bool {
	status := strings.TrimSpace(f.Status)
	if status != "" && status != "all" && string(issue.Status) != status {
		return false
	}
	q := strings.TrimSpace(f.Query)
	if q != "" && !strings.Contains(strings.ToLower(issue.Title), strings.ToLower(q)) {
		return false
	}
	return true
}

// Stats aggregates dashboard counters.
type Stats struct {
	Total          int `json:"total"`
	Resolved       int `json:"resolved"`
	InProgress     int `json:"inProgress"`
	Pending        int `json:"pending"`
	ActiveCitizens int `json:"activeCitizens"`
}

// Submission is a finalized wizard report ready to be recorded.
type Submission struct {
	TicketID      string
	OwnerID       string
	Description   string
	Location      string
	Category      string
	Severity      string
	Department    string
	SLA           string
	Confidence    int
	ImageKey      string
	ImageMimeType string
	SubmittedAt   time.Time
}

// ParseStatus validates a raw status value.
func ParseStatus(raw string) (Status, bool) {
	switch Status(strings.ToLower(strings.TrimSpace(raw))) {
	case StatusPending:
		return StatusPending, true
	case StatusInProgress:
		return StatusInProgress, true
	case StatusResolved:
		return StatusResolved, true
	default:
		return "", false
	}
}

// ParseSeverity validates a raw severity value, case-insensitively.
func ParseSeverity(raw string) (Severity, bool) {
	switch Severity(strings.ToLower(strings.TrimSpace(raw))) {
	case SeverityLow:
		return SeverityLow, true
	case SeverityMedium:
		return SeverityMedium, true
	case SeverityHigh:
		return SeverityHigh, true
	case SeverityCritical:
		return SeverityCritical, true
	default:
		return "", false
	}
}
