package issues

import "time"

// FirstTicketNumber is the first number handed out after the seeded issues.
const FirstTicketNumber = 2848

// SeedIssues returns the dashboard's starting issues relative to now.
func SeedIssues(now time.Time) []Issue {
	ago := func(d time.Duration) time.Time { return now.Add(-d).UTC() }
	resolvedAt := ago(6 * time.Hour)
	return []Issue{
		{
			ID: "CFX-2847", Title: "Large pothole on Main Street", Description: "Large pothole on Main Street",
			Category: "Infrastructure", Location: "123 Main Street, Sector 5",
			Status: StatusInProgress, Severity: SeverityMedium, Department: "Public Works",
			SLA: "72 Hours", Confidence: 94, Votes: 12,
			CreatedAt: ago(2 * time.Hour), UpdatedAt: ago(time.Hour),
		},
		{
			ID: "CFX-2845", Title: "Broken streetlight near park", Description: "Broken streetlight near park",
			Category: "Electrical", Location: "City Park, North Entrance",
			Status: StatusPending, Severity: SeverityHigh, Department: "Electrical Dept",
			SLA: "48 Hours", Votes: 8,
			CreatedAt: ago(5 * time.Hour), UpdatedAt: ago(5 * time.Hour),
		},
		{
			ID: "CFX-2842", Title: "Garbage not collected for 3 days", Description: "Garbage not collected for 3 days",
			Category: "Sanitation", Location: "Block 4, Residential Area",
			Status: StatusResolved, Severity: SeverityMedium, Department: "Sanitation",
			SLA: "24 Hours", Votes: 24,
			CreatedAt: ago(24 * time.Hour), UpdatedAt: resolvedAt, ResolvedAt: &resolvedAt,
		},
		{
			ID: "CFX-2839", Title: "Open manhole cover missing", Description: "Open manhole cover missing",
			Category: "Infrastructure", Location: "Market Road, Near Bus Stop",
			Status: StatusInProgress, Severity: SeverityCritical, Department: "Public Works",
			SLA: "24 Hours", Votes: 45,
			CreatedAt: ago(24 * time.Hour), UpdatedAt: ago(20 * time.Hour),
		},
		{
			ID: "CFX-2835", Title: "Water logging after rain", Description: "Water logging after rain",
			Category: "Drainage", Location: "Sector 7, Main Junction",
			Status: StatusPending, Severity: SeverityMedium, Department: "Stormwater Dept",
			SLA: "72 Hours", Votes: 18,
			CreatedAt: ago(48 * time.Hour), UpdatedAt: ago(48 * time.Hour),
		},
	}
}
