package issues

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu     sync.RWMutex
	data   map[string]Issue
	nextNo int64
}

// NewMemoryRepo constructs a MemoryRepo holding the given issues.
func NewMemoryRepo(seed ...Issue) *MemoryRepo {
	r := &MemoryRepo{
		data:   make(map[string]Issue, len(seed)),
		nextNo: FirstTicketNumber,
	}
	for _, issue := range seed {
		r.data[issue.ID] = issue
	}
	return r
}

// NewSeededMemoryRepo constructs a MemoryRepo holding SeedIssues(now).
func NewSeededMemoryRepo(now time.Time) *MemoryRepo {
	return NewMemoryRepo(SeedIssues(now)...)
}

// List returns matching issues newest first.
func (r *MemoryRepo) List(ctx context.Context, filter Filter) ([]Issue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Issue, 0, len(r.data))
	for _, issue := range r.data {
		if filter.Matches(issue) {
			out = append(out, issue)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

// Get returns an issue by ticket id.
func (r *MemoryRepo) Get(ctx context.Context, id string) (Issue, error) {
	if err := ctx.Err(); err != nil {
		return Issue{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	issue, ok := r.data[id]
	if !ok {
		return Issue{}, ErrNotFound
	}
	return issue, nil
}

// Create stores a new issue.
func (r *MemoryRepo) Create(ctx context.Context, issue Issue) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.data[issue.ID]; exists {
		return ErrConflict
	}
	r.data[issue.ID] = issue
	return nil
}

// UpdateStatus moves an issue to status and stamps the change.
func (r *MemoryRepo) UpdateStatus(ctx context.Context, id string, status Status, at time.Time) (Issue, error) {
	if err := ctx.Err(); err != nil {
		return Issue{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	issue, ok := r.data[id]
	if !ok {
		return Issue{}, ErrNotFound
	}
	issue.Status = status
	issue.UpdatedAt = at
	if status == StatusResolved {
		resolved := at
		issue.ResolvedAt = &resolved
	} else {
		issue.ResolvedAt = nil
	}
	r.data[id] = issue
	return issue, nil
}

// Stats counts issues by status.
func (r *MemoryRepo) Stats(ctx context.Context) (Stats, error) {
	if err := ctx.Err(); err != nil {
		return Stats{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var stats Stats
	for _, issue := range r.data {
		stats.Total++
		switch issue.Status {
		case StatusResolved:
			stats.Resolved++
		case StatusInProgress:
			stats.InProgress++
		case StatusPending:
			stats.Pending++
		}
		stats.ActiveCitizens += issue.Votes
	}
	return stats, nil
}

// NextTicketNumber hands out monotonically increasing ticket numbers.
func (r *MemoryRepo) NextTicketNumber(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	n := r.nextNo
	r.nextNo++
	return n, nil
}

func sortNewestFirst(items []Issue) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].ID > items[j].ID
	})
}

var _ Repo = (*MemoryRepo)(nil)
