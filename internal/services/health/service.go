package health

import (
	"context"
	"database/sql"
	"time"

	"civicfix-backend/internal/shared/storage/db"
)

const pingTimeout = 2 * time.Second

// Report is the health payload.
type Report struct {
	OK       bool   `json:"ok"`
	Database string `json:"database"`
	Sessions int    `json:"sessions"`
}

// SessionCounter reports live session counts.
type SessionCounter interface {
	Len() int
}

// Service encapsulates health-related checks.
type Service struct {
	DB       *sql.DB
	Sessions SessionCounter
}

// NewService constructs a health service. sqlDB may be nil when running on memory repositories.
func NewService(sqlDB *sql.DB, sessions SessionCounter) *Service {
	return &Service{DB: sqlDB, Sessions: sessions}
}

// Status pings the database when one is configured.
func (s *Service) Status(ctx context.Context) Report {
	r := Report{OK: true, Database: "memory"}
	if s.Sessions != nil {
		r.Sessions = s.Sessions.Len()
	}
	if s.DB == nil {
		return r
	}
	if err := db.Ping(ctx, s.DB, pingTimeout); err != nil {
		r.OK = false
		r.Database = "unreachable"
		return r
	}
	r.Database = "ok"
	return r
}
