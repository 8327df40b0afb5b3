package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	for _, key := range []string{"ENV", "PORT", "ANALYSIS_DELAY", "TICKET_MODE", "QUEUE_BACKEND", "SESSION_IDLE_TTL"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.Env != "dev" {
		t.Fatalf("expected env dev, got %q", cfg.Env)
	}
	if cfg.Port != "8080" {
		t.Fatalf("expected port 8080, got %q", cfg.Port)
	}
	if cfg.AnalysisDelay != 2500*time.Millisecond {
		t.Fatalf("expected 2.5s analysis delay, got %s", cfg.AnalysisDelay)
	}
	if cfg.TicketMode != "sequence" {
		t.Fatalf("expected sequence ticket mode, got %q", cfg.TicketMode)
	}
	if cfg.QueueBackend != "none" {
		t.Fatalf("expected no queue backend, got %q", cfg.QueueBackend)
	}
	if cfg.SessionIdleTTL != 30*time.Minute {
		t.Fatalf("expected 30m idle ttl, got %s", cfg.SessionIdleTTL)
	}
}

func TestLoadOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("ENV", "prod")
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("ANALYSIS_DELAY", "10ms")
	t.Setenv("TICKET_MODE", "STATIC")
	t.Setenv("QUEUE_BACKEND", "rabbitmq")
	t.Setenv("MAX_IMAGE_BYTES", "not-a-number")
	t.Setenv("CORS_ALLOW_ORIGINS", " https://a.example , ,https://b.example")

	cfg := Load()
	if cfg.Env != "production" {
		t.Fatalf("expected production, got %q", cfg.Env)
	}
	if cfg.AnalysisDelay != 10*time.Millisecond {
		t.Fatalf("expected 10ms, got %s", cfg.AnalysisDelay)
	}
	if cfg.TicketMode != "static" {
		t.Fatalf("expected static, got %q", cfg.TicketMode)
	}
	if cfg.QueueBackend != "amqp" {
		t.Fatalf("expected amqp, got %q", cfg.QueueBackend)
	}
	if cfg.MaxImageBytes != 10<<20 {
		t.Fatalf("expected default max image bytes, got %d", cfg.MaxImageBytes)
	}
	if len(cfg.CORSAllowOrigin) != 2 || cfg.CORSAllowOrigin[1] != "https://b.example" {
		t.Fatalf("unexpected origins %#v", cfg.CORSAllowOrigin)
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	prev, had := os.LookupEnv("STATIC_TICKET_ID")
	_ = os.Unsetenv("STATIC_TICKET_ID")
	t.Cleanup(func() {
		if had {
			_ = os.Setenv("STATIC_TICKET_ID", prev)
			return
		}
		_ = os.Unsetenv("STATIC_TICKET_ID")
	})
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("STATIC_TICKET_ID=CFX-9000\n"), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	cfg := Load()
	if cfg.StaticTicketID != "CFX-9000" {
		t.Fatalf("expected ticket from .env, got %q", cfg.StaticTicketID)
	}
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatal(err)
		}
	})
}
