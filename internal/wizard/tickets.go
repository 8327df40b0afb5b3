package wizard

import "context"

// DefaultStaticTicket is the identifier handed out in static ticket mode.
const DefaultStaticTicket = "CFX-2847"

// TicketIssuer finalizes a reviewed report and returns its tracking identifier.
// The snapshot passed in is in the review stage and carries the analysis.
type TicketIssuer interface {
	IssueTicket(ctx context.Context, snap Snapshot) (string, error)
}

// TicketIssuerFunc adapts a function to TicketIssuer.
type TicketIssuerFunc func(ctx context.Context, snap Snapshot) (string, error)

// IssueTicket calls f(ctx, snap).
func (f TicketIssuerFunc) IssueTicket(ctx context.Context, snap Snapshot) (string, error) {
	return f(ctx, snap)
}

// StaticTicket always returns the same identifier.
type StaticTicket string

// IssueTicket returns t.
func (t StaticTicket) IssueTicket(ctx context.Context, snap Snapshot) (string, error) {
	_ = snap
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return string(t), nil
}
