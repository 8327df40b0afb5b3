// Package workerproc decodes and handles submitted-report messages consumed by the routing worker.
package workerproc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"civicfix-backend/internal/issues"
	"civicfix-backend/internal/queue"
	"civicfix-backend/internal/shared/telemetry"
)

// MessageMeta captures details useful for logging and diagnostics.
type MessageMeta struct {
	BodyLen int
	BodySHA string
}

// ComputeMeta returns the body length and SHA-256 hash.
func ComputeMeta(body string) MessageMeta {
	if body == "" {
		return MessageMeta{}
	}
	sum := sha256.Sum256([]byte(body))
	return MessageMeta{BodyLen: len(body), BodySHA: hex.EncodeToString(sum[:])}
}

// ErrEmptyBody indicates an empty queue payload.
type ErrEmptyBody struct {
	Meta MessageMeta
}

func (e ErrEmptyBody) Error() string { return "empty message body" }

// ErrDecode indicates a JSON decode failure.
type ErrDecode struct {
	Meta MessageMeta
	Err  error
}

func (e ErrDecode) Error() string {
	if e.Err == nil {
		return "decode message"
	}
	return "decode message: " + e.Err.Error()
}

// ErrMissingTicketID indicates a message without a ticket id.
type ErrMissingTicketID struct {
	Meta      MessageMeta
	RequestID string
}

func (e ErrMissingTicketID) Error() string { return "missing ticket id" }

// ErrUnsupportedVersion indicates a payload schema this worker does not understand.
type ErrUnsupportedVersion struct {
	Version int
}

func (e ErrUnsupportedVersion) Error() string { return "unsupported message version" }

// ErrUnknownTicket indicates the ticket is not recorded, so the message can never succeed.
type ErrUnknownTicket struct {
	TicketID string
}

func (e ErrUnknownTicket) Error() string { return "unknown ticket " + e.TicketID }

// ErrProcess indicates a transient failure after successful parsing; the message should be retried.
type ErrProcess struct {
	TicketID  string
	RequestID string
	Err       error
}

func (e ErrProcess) Error() string {
	if e.Err == nil {
		return "route report"
	}
	return "route report: " + e.Err.Error()
}

func (e ErrProcess) Unwrap() error { return e.Err }

// Unrecoverable reports whether err means the message should be deleted rather than retried.
func Unrecoverable(err error) bool {
	var (
		empty   ErrEmptyBody
		decode  ErrDecode
		missing ErrMissingTicketID
		version ErrUnsupportedVersion
		unknown ErrUnknownTicket
	)
	return errors.As(err, &empty) || errors.As(err, &decode) || errors.As(err, &missing) ||
		errors.As(err, &version) || errors.As(err, &unknown)
}

// ParseMessage validates and decodes the queue payload.
func ParseMessage(body string) (queue.Message, MessageMeta, error) {
	meta := ComputeMeta(body)
	if strings.TrimSpace(body) == "" {
		return queue.Message{}, meta, ErrEmptyBody{Meta: meta}
	}

	msg, err := queue.DecodeMessage([]byte(body))
	if err != nil {
		return queue.Message{}, meta, ErrDecode{Meta: meta, Err: err}
	}
	if msg.Version > queue.MessageVersion {
		return msg, meta, ErrUnsupportedVersion{Version: msg.Version}
	}
	if strings.TrimSpace(msg.TicketID) == "" {
		return msg, meta, ErrMissingTicketID{Meta: meta, RequestID: msg.RequestID}
	}
	return msg, meta, nil
}

// IssueReader loads recorded issues.
type IssueReader interface {
	Get(ctx context.Context, id string) (issues.Issue, error)
}

// Routed is the outcome of a handled message.
type Routed struct {
	TicketID   string
	Department string
	SLA        string
	Severity   string
}

// HandleMessage confirms the reported ticket exists and resolves the department it is routed to.
// The recorded issue wins over the message when the two disagree.
func HandleMessage(ctx context.Context, reader IssueReader, msg queue.Message) (Routed, error) {
	if reader == nil {
		return Routed{}, ErrProcess{TicketID: msg.TicketID, RequestID: msg.RequestID, Err: errors.New("issue reader not configured")}
	}
	if strings.TrimSpace(msg.TicketID) == "" {
		return Routed{}, ErrMissingTicketID{RequestID: msg.RequestID}
	}

	issue, err := reader.Get(ctx, msg.TicketID)
	if err != nil {
		if errors.Is(err, issues.ErrNotFound) {
			return Routed{}, ErrUnknownTicket{TicketID: msg.TicketID}
		}
		return Routed{}, ErrProcess{TicketID: msg.TicketID, RequestID: msg.RequestID, Err: err}
	}

	if msg.Department != "" && msg.Department != issue.Department {
		telemetry.Warn("worker.report.department_mismatch", map[string]any{
			"ticket_id":          issue.ID,
			"message_department": msg.Department,
			"issue_department":   issue.Department,
			"request_id":         msg.RequestID,
		})
	}
	return Routed{
		TicketID:   issue.ID,
		Department: issue.Department,
		SLA:        issue.SLA,
		Severity:   string(issue.Severity),
	}, nil
}
