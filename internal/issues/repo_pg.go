package issues

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const issueColumns = `id, title, description, category, location, status, severity, department, sla, confidence, votes, owner_id, image_key, image_mime_type, created_at, updated_at, resolved_at`

// List returns matching issues newest first.
func (r *PGRepo) List(ctx context.Context, filter Filter) ([]Issue, error) {
	status := filter.Status
	if status == "all" {
		status = ""
	}
	query := `
SELECT ` + issueColumns + `
FROM issues
WHERE ($1 = '' OR status = $1)
  AND ($2 = '' OR position(lower($2) in lower(title)) > 0)
ORDER BY created_at DESC, id DESC`

	rows, err := r.DB.QueryContext(ctx, query, status, filter.Query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Issue
	for rows.Next() {
		issue, err := scanIssue(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, issue)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns an issue by ticket id.
func (r *PGRepo) Get(ctx context.Context, id string) (Issue, error) {
	query := `
SELECT ` + issueColumns + `
FROM issues
WHERE id = $1
LIMIT 1`
	issue, err := scanIssue(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Issue{}, ErrNotFound
		}
		return Issue{}, err
	}
	return issue, nil
}

// Create inserts a new issue.
func (r *PGRepo) Create(ctx context.Context, issue Issue) error {
	const query = `
INSERT INTO issues (
    id,
    title,
    description,
    category,
    location,
    status,
    severity,
    department,
    sla,
    confidence,
    votes,
    owner_id,
    image_key,
    image_mime_type,
    created_at,
    updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	_, err := r.DB.ExecContext(
		ctx,
		query,
		issue.ID,
		issue.Title,
		issue.Description,
		issue.Category,
		issue.Location,
		string(issue.Status),
		string(issue.Severity),
		issue.Department,
		issue.SLA,
		issue.Confidence,
		issue.Votes,
		nullString(issue.OwnerID),
		nullString(issue.ImageKey),
		nullString(issue.ImageMimeType),
		issue.CreatedAt,
		issue.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return err
	}
	return nil
}

// UpdateStatus moves an issue to status and returns the updated row.
func (r *PGRepo) UpdateStatus(ctx context.Context, id string, status Status, at time.Time) (Issue, error) {
	query := `
UPDATE issues
SET status = $2,
    updated_at = $3,
    resolved_at = CASE WHEN $2 = 'resolved' THEN $3 ELSE NULL END
WHERE id = $1
RETURNING ` + issueColumns

	issue, err := scanIssue(r.DB.QueryRowContext(ctx, query, id, string(status), at))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Issue{}, ErrNotFound
		}
		return Issue{}, err
	}
	return issue, nil
}

// Stats counts issues by status.
func (r *PGRepo) Stats(ctx context.Context) (Stats, error) {
	const query = `
SELECT
    COUNT(*),
    COUNT(*) FILTER (WHERE status = 'resolved'),
    COUNT(*) FILTER (WHERE status = 'in-progress'),
    COUNT(*) FILTER (WHERE status = 'pending'),
    COALESCE(SUM(votes), 0)
FROM issues`

	var stats Stats
	err := r.DB.QueryRowContext(ctx, query).Scan(
		&stats.Total,
		&stats.Resolved,
		&stats.InProgress,
		&stats.Pending,
		&stats.ActiveCitizens,
	)
	if err != nil {
		return Stats{}, err
	}
	return stats, nil
}

// NextTicketNumber draws from ticket_seq.
func (r *PGRepo) NextTicketNumber(ctx context.Context) (int64, error) {
	var n int64
	if err := r.DB.QueryRowContext(ctx, `SELECT nextval('ticket_seq')`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIssue(row rowScanner) (Issue, error) {
	var issue Issue
	var status, severity string
	var ownerID sql.NullString
	var imageKey sql.NullString
	var imageMime sql.NullString
	var resolvedAt sql.NullTime
	err := row.Scan(
		&issue.ID,
		&issue.Title,
		&issue.Description,
		&issue.Category,
		&issue.Location,
		&status,
		&severity,
		&issue.Department,
		&issue.SLA,
		&issue.Confidence,
		&issue.Votes,
		&ownerID,
		&imageKey,
		&imageMime,
		&issue.CreatedAt,
		&issue.UpdatedAt,
		&resolvedAt,
	)
	if err != nil {
		return Issue{}, err
	}
	issue.Status = Status(status)
	issue.Severity = Severity(severity)
	if ownerID.Valid {
		issue.OwnerID = ownerID.String
	}
	if imageKey.Valid {
		issue.ImageKey = imageKey.String
	}
	if imageMime.Valid {
		issue.ImageMimeType = imageMime.String
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time
		issue.ResolvedAt = &t
	}
	return issue, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

var _ Repo = (*PGRepo)(nil)
