package issues

import (
	"context"
	"time"
)

// Repo defines persistence operations for issues.
type Repo interface {
	List(ctx context.Context, filter Filter) ([]Issue, error)
	Get(ctx context.Context, id string) (Issue, error)
	Create(ctx context.Context, issue Issue) error
	UpdateStatus(ctx context.Context, id string, status Status, at time.Time) (Issue, error)
	Stats(ctx context.Context) (Stats, error)
	NextTicketNumber(ctx context.Context) (int64, error)
}
