package main

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"civicfix-backend/internal/wizard"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	root := newRootCmd(func() time.Time { return fixed })
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writePhoto(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pothole.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewGray(image.Rect(0, 0, 4, 2))); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return path
}

func TestSubmitPrintsTransitionsAndTicket(t *testing.T) {
	out, err := run(t, "submit", "--image", writePhoto(t), "--description", "Large pothole", "--location", "Main St", "--delay", "0s")
	if err != nil {
		t.Fatalf("submit: %v\n%s", err, out)
	}
	for _, want := range []string{
		"image: png 4x2",
		"[upload -> analyzing] Analyzing Your Report",
		"Processing image...",
		"[analyzing -> review] Analysis Complete",
		"category:   Infrastructure - Pothole",
		"[review -> submitted] Report Submitted!",
		"ticket: CFX-2848",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestSubmitStaticMode(t *testing.T) {
	out, err := run(t, "submit", "--image", writePhoto(t), "--description", "Large pothole", "--delay", "0s", "--ticket-mode", "static")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !strings.Contains(out, "ticket: "+wizard.DefaultStaticTicket) {
		t.Fatalf("expected static ticket:\n%s", out)
	}
}

func TestSubmitWithoutImageFailsValidation(t *testing.T) {
	out, err := run(t, "submit", "--description", "Large pothole", "--delay", "0s")
	if !errors.Is(err, wizard.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !strings.Contains(out, "Missing Information") {
		t.Fatalf("expected missing information notice:\n%s", out)
	}
}

func TestIssuesFiltersByStatus(t *testing.T) {
	out, err := run(t, "issues", "--status", "pending")
	if err != nil {
		t.Fatalf("issues: %v", err)
	}
	if !strings.Contains(out, "CFX-2845") || !strings.Contains(out, "CFX-2835") || strings.Contains(out, "CFX-2847") {
		t.Fatalf("unexpected pending listing:\n%s", out)
	}
	if !strings.Contains(out, "2 shown, 5 total") {
		t.Fatalf("unexpected summary:\n%s", out)
	}

	if _, err := run(t, "issues", "--status", "bogus"); err == nil {
		t.Fatalf("expected unknown status to fail")
	}
}

func TestTrackResolvedTicket(t *testing.T) {
	out, err := run(t, "track", "cfx-2842")
	if err != nil {
		t.Fatalf("track: %v", err)
	}
	if strings.Count(out, "[x]") != 6 {
		t.Fatalf("expected six completed steps:\n%s", out)
	}
	if _, err := run(t, "track", "CFX-1"); err == nil {
		t.Fatalf("expected unknown ticket to fail")
	}
}
