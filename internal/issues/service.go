package issues

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"civicfix-backend/internal/shared/telemetry"
)

const maxTitleRunes = 80

// Service exposes dashboard queries and records submitted reports.
type Service struct {
	Repo   Repo
	Prefix string
	Now    func() time.Time
}

// NewService constructs a Service with the given ticket prefix.
func NewService(repo Repo, prefix string) *Service {
	return &Service{Repo: repo, Prefix: prefix, Now: time.Now}
}

// List returns issues matching filter. Unknown statuses are rejected.
func (s *Service) List(ctx context.Context, filter Filter) ([]Issue, error) {
	filter.Status = strings.ToLower(strings.TrimSpace(filter.Status))
	filter.Query = strings.TrimSpace(filter.Query)
	if filter.Status != "" && filter.Status != "all" {
		if _, ok := ParseStatus(filter.Status); !ok {
			return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, filter.Status)
		}
	}
	items, err := s.Repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []Issue{}
	}
	return items, nil
}

// Get returns a single issue.
func (s *Service) Get(ctx context.Context, id string) (Issue, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Issue{}, fmt.Errorf("%w: ticket id is required", ErrInvalidInput)
	}
	return s.Repo.Get(ctx, strings.ToUpper(id))
}

// Stats returns dashboard counters.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	return s.Repo.Stats(ctx)
}

// NextTicketID reserves the next ticket identifier, e.g. CFX-2848.
func (s *Service) NextTicketID(ctx context.Context) (string, error) {
	n, err := s.Repo.NextTicketNumber(ctx)
	if err != nil {
		return "", fmt.Errorf("next ticket number: %w", err)
	}
	return fmt.Sprintf("%s-%d", s.prefix(), n), nil
}

// RecordSubmission stores a finalized report as a pending issue.
func (s *Service) RecordSubmission(ctx context.Context, sub Submission) (Issue, error) {
	if strings.TrimSpace(sub.TicketID) == "" {
		return Issue{}, fmt.Errorf("%w: ticket id is required", ErrInvalidInput)
	}
	description := strings.TrimSpace(sub.Description)
	if description == "" {
		return Issue{}, fmt.Errorf("%w: description is required", ErrInvalidInput)
	}
	severity, ok := ParseSeverity(sub.Severity)
	if !ok {
		severity = SeverityMedium
	}
	at := sub.SubmittedAt
	if at.IsZero() {
		at = s.now()
	}
	at = at.UTC()

	issue := Issue{
		ID:            sub.TicketID,
		Title:         titleFrom(description),
		Description:   description,
		Category:      sub.Category,
		Location:      strings.TrimSpace(sub.Location),
		Status:        StatusPending,
		Severity:      severity,
		Department:    sub.Department,
		SLA:           sub.SLA,
		Confidence:    sub.Confidence,
		Votes:         1,
		OwnerID:       sub.OwnerID,
		ImageKey:      sub.ImageKey,
		ImageMimeType: sub.ImageMimeType,
		CreatedAt:     at,
		UpdatedAt:     at,
	}
	if err := s.Repo.Create(ctx, issue); err != nil {
		return Issue{}, fmt.Errorf("record issue %s: %w", issue.ID, err)
	}
	telemetry.Info("issues.recorded", map[string]any{
		"ticket_id":  issue.ID,
		"owner_id":   issue.OwnerID,
		"department": issue.Department,
		"severity":   string(issue.Severity),
	})
	return issue, nil
}

// UpdateStatus moves an issue along its lifecycle.
func (s *Service) UpdateStatus(ctx context.Context, id, rawStatus string) (Issue, error) {
	id = strings.ToUpper(strings.TrimSpace(id))
	if id == "" {
		return Issue{}, fmt.Errorf("%w: ticket id is required", ErrInvalidInput)
	}
	status, ok := ParseStatus(rawStatus)
	if !ok {
		return Issue{}, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, rawStatus)
	}
	issue, err := s.Repo.UpdateStatus(ctx, id, status, s.now().UTC())
	if err != nil {
		return Issue{}, err
	}
	telemetry.Info("issues.status_updated", map[string]any{
		"ticket_id": id,
		"status":    string(status),
	})
	return issue, nil
}

func (s *Service) prefix() string {
	if p := strings.TrimSpace(s.Prefix); p != "" {
		return p
	}
	return "CFX"
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// titleFrom takes the first line of the description, capped for dashboard display.
func titleFrom(description string) string {
	line := description
	if idx := strings.IndexAny(line, "\r\n"); idx >= 0 {
		line = line[:idx]
	}
	line = strings.TrimSpace(line)
	if utf8.RuneCountInString(line) <= maxTitleRunes {
		return line
	}
	runes := []rune(line)
	return strings.TrimSpace(string(runes[:maxTitleRunes-3])) + "..."
}
