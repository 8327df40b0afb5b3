package sessions

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"civicfix-backend/internal/issues"
	"civicfix-backend/internal/queue"
	"civicfix-backend/internal/shared/metrics"
	"civicfix-backend/internal/shared/server/middleware"
	"civicfix-backend/internal/shared/storage/object"
	"civicfix-backend/internal/shared/telemetry"
	"civicfix-backend/internal/wizard"
)

// Ticket modes.
const (
	TicketModeSequence = "sequence"
	TicketModeStatic   = "static"
)

// Finalizer turns a reviewed wizard snapshot into a recorded issue.
// In static mode it only hands out StaticTicketID and records nothing.
type Finalizer struct {
	Issues         *issues.Service
	Store          object.ObjectStore
	Queue          queue.Client
	Mode           string
	StaticTicketID string
	Now            func() time.Time
}

// IssuerFor returns a wizard.TicketIssuer that records reports under ownerID.
func (f *Finalizer) IssuerFor(ownerID string) wizard.TicketIssuer {
	if f == nil || f.Mode == TicketModeStatic || f.Issues == nil {
		id := wizard.DefaultStaticTicket
		if f != nil && f.StaticTicketID != "" {
			id = f.StaticTicketID
		}
		return wizard.StaticTicket(id)
	}
	return wizard.TicketIssuerFunc(func(ctx context.Context, snap wizard.Snapshot) (string, error) {
		return f.finalize(ctx, ownerID, snap)
	})
}

func (f *Finalizer) finalize(ctx context.Context, ownerID string, snap wizard.Snapshot) (string, error) {
	if snap.Analysis == nil {
		return "", fmt.Errorf("snapshot %s has no analysis", snap.SessionID)
	}
	ticketID, err := f.Issues.NextTicketID(ctx)
	if err != nil {
		return "", err
	}

	var imageKey, mimeType string
	if img := snap.Draft.Image; img != nil && f.Store != nil {
		imageKey, _, mimeType, err = f.Store.Save(ctx, ownerID, img.FileName, bytes.NewReader(img.Data))
		if err != nil {
			return "", fmt.Errorf("save image: %w", err)
		}
		if img.MimeType != "" {
			mimeType = img.MimeType
		}
	}

	analysis := snap.Analysis
	submittedAt := f.now().UTC()
	issue, err := f.Issues.RecordSubmission(ctx, issues.Submission{
		TicketID:      ticketID,
		OwnerID:       ownerID,
		Description:   snap.Draft.Description,
		Location:      snap.Draft.Location,
		Category:      analysis.Category,
		Severity:      string(analysis.Severity),
		Department:    analysis.Department,
		SLA:           analysis.SLA,
		Confidence:    analysis.Confidence,
		ImageKey:      imageKey,
		ImageMimeType: mimeType,
		SubmittedAt:   submittedAt,
	})
	if err != nil {
		f.discardImage(ctx, imageKey, snap.SessionID)
		return "", err
	}
	metrics.IncReportSubmitted(issue.Department)

	if f.Queue != nil {
		msg := queue.Message{
			TicketID:    issue.ID,
			Category:    issue.Category,
			Severity:    string(issue.Severity),
			Department:  issue.Department,
			SLA:         issue.SLA,
			Location:    issue.Location,
			ImageKey:    imageKey,
			RequestID:   middleware.RequestIDFromCtx(ctx),
			SubmittedAt: submittedAt.Format(time.RFC3339),
			Version:     queue.MessageVersion,
		}
		// The issue is already recorded; a lost notification must not fail the submit.
		if err := f.Queue.Send(ctx, msg); err != nil {
			metrics.IncQueuePublishFailed()
			telemetry.Error("sessions.queue_publish_failed", map[string]any{
				"ticket_id":  issue.ID,
				"session_id": snap.SessionID,
				"error":      err.Error(),
			})
		}
	}
	return issue.ID, nil
}

// discardImage removes an image saved for a submission that was not recorded.
func (f *Finalizer) discardImage(ctx context.Context, key, sessionID string) {
	if key == "" || f.Store == nil {
		return
	}
	if err := f.Store.Delete(context.WithoutCancel(ctx), key); err != nil {
		telemetry.Warn("sessions.image_cleanup_failed", map[string]any{
			"session_id": sessionID,
			"image_key":  key,
			"error":      err.Error(),
		})
	}
}

func (f *Finalizer) now() time.Time {
	if f.Now != nil {
		return f.Now()
	}
	return time.Now()
}
