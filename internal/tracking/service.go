package tracking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"civicfix-backend/internal/issues"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("ticket not found")
)

const timestampLayout = "Jan 2, 2006 at 3:04 PM"

// IssueReader is the subset of the issues service tracking needs.
type IssueReader interface {
	Get(ctx context.Context, id string) (issues.Issue, error)
}

// Service projects issues onto the six-step status timeline.
type Service struct {
	Issues   IssueReader
	Location *time.Location
}

// NewService constructs a Service rendering timestamps in UTC.
func NewService(reader IssueReader) *Service {
	return &Service{Issues: reader, Location: time.UTC}
}

// Track looks up a ticket and builds its timeline.
func (s *Service) Track(ctx context.Context, ticketID string) (Report, error) {
	ticketID = strings.TrimSpace(ticketID)
	if ticketID == "" {
		return Report{}, fmt.Errorf("%w: ticket id is required", ErrInvalidInput)
	}
	issue, err := s.Issues.Get(ctx, ticketID)
	if err != nil {
		if errors.Is(err, issues.ErrNotFound) {
			return Report{}, fmt.Errorf("%w: %s", ErrNotFound, ticketID)
		}
		return Report{}, err
	}
	return Report{Issue: issue, Timeline: s.Timeline(issue)}, nil
}

// Timeline returns the fixed six steps with statuses derived from the issue status.
func (s *Service) Timeline(issue issues.Issue) []Event {
	loc := s.Location
	if loc == nil {
		loc = time.UTC
	}
	stamp := func(t time.Time) string {
		return t.In(loc).Format(timestampLayout)
	}

	category := orDefault(issue.Category, "Uncategorized")
	severity := orDefault(titleCase(string(issue.Severity)), "Unknown")
	department := orDefault(issue.Department, "the responsible department")

	steps := []Event{
		{ID: "1", Title: "Report Submitted", Description: "Your complaint was received and logged in the system."},
		{ID: "2", Title: "AI Analysis Complete", Description: fmt.Sprintf("Issue identified as %s. Severity: %s.", category, severity)},
		{ID: "3", Title: "Routed to Department", Description: fmt.Sprintf("Assigned to %s for review.", department)},
		{ID: "4", Title: "Under Review", Description: "A field officer has been assigned to inspect the location."},
		{ID: "5", Title: "Work in Progress", Description: "Repair work scheduled to begin."},
		{ID: "6", Title: "Issue Resolved", Description: "Repair completed and verified."},
	}

	completed, current := progressFor(issue.Status)
	times := []time.Time{
		issue.CreatedAt,
		issue.CreatedAt,
		issue.CreatedAt,
		issue.CreatedAt,
		issue.UpdatedAt,
		resolvedAt(issue),
	}
	for i := range steps {
		switch {
		case i < completed:
			steps[i].Status = StepCompleted
			steps[i].Timestamp = stamp(times[i])
		case i == current:
			steps[i].Status = StepCurrent
			steps[i].Timestamp = stamp(times[i])
		default:
			steps[i].Status = StepPending
			steps[i].Timestamp = PendingTimestamp
		}
	}
	return steps
}

// progressFor returns how many steps are completed and the index of the current one (-1 for none).
func progressFor(status issues.Status) (int, int) {
	switch status {
	case issues.StatusResolved:
		return 6, -1
	case issues.StatusInProgress:
		return 4, 4
	default:
		return 3, 3
	}
}

func resolvedAt(issue issues.Issue) time.Time {
	if issue.ResolvedAt != nil {
		return *issue.ResolvedAt
	}
	return issue.UpdatedAt
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
