package main

import (
	"time"

	"civicfix-backend/internal/issues"
	"civicfix-backend/internal/tracking"
)

// env is the in-memory world one reportctl invocation works against.
type env struct {
	now      func() time.Time
	issues   *issues.Service
	tracking *tracking.Service
}

func newEnv(now func() time.Time) *env {
	svc := issues.NewService(issues.NewSeededMemoryRepo(now()), "CFX")
	svc.Now = now
	return &env{
		now:      now,
		issues:   svc,
		tracking: tracking.NewService(svc),
	}
}
