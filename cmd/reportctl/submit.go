package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"civicfix-backend/internal/imaging"
	"civicfix-backend/internal/sessions"
	"civicfix-backend/internal/wizard"
)

type submitFlags struct {
	image       string
	description string
	location    string
	delay       time.Duration
	mode        string
}

func newSubmitCmd(e *env) *cobra.Command {
	var f submitFlags
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Walk a report through upload, analysis, review and submission",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(cmd.Context(), cmd.OutOrStdout(), e, f)
		},
	}
	cmd.Flags().StringVar(&f.image, "image", "", "path to the photo of the issue")
	cmd.Flags().StringVar(&f.description, "description", "", "what is wrong")
	cmd.Flags().StringVar(&f.location, "location", "", "where it is (optional)")
	cmd.Flags().DurationVar(&f.delay, "delay", wizard.DefaultAnalysisDelay, "simulated analysis time")
	cmd.Flags().StringVar(&f.mode, "ticket-mode", sessions.TicketModeSequence, "sequence or static")
	return cmd
}

func runSubmit(ctx context.Context, out io.Writer, e *env, f submitFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}

	w := wizard.New(wizard.Options{
		SessionID: "cli",
		Analyzer:  wizard.NewMockAnalyzer(f.delay),
		Tickets: (&sessions.Finalizer{
			Issues:         e.issues,
			Mode:           f.mode,
			StaticTicketID: wizard.DefaultStaticTicket,
			Now:            e.now,
		}).IssuerFor("cli"),
		Notifier: wizard.NotifierFunc(func(ev wizard.Event) {
			fmt.Fprintf(out, "[%s -> %s] %s", ev.From, ev.Stage, ev.Title)
			if ev.Description != "" {
				fmt.Fprintf(out, ": %s", ev.Description)
			}
			fmt.Fprintln(out)
			for _, step := range ev.Steps {
				fmt.Fprintf(out, "    %s\n", step)
			}
		}),
		Now: e.now,
	})
	defer w.Close()

	if f.image != "" {
		data, err := os.ReadFile(f.image)
		if err != nil {
			return fmt.Errorf("read image: %w", err)
		}
		info, err := imaging.Inspect(data)
		if err != nil {
			return err
		}
		width, height := info.DisplaySize()
		w.SetImage(&wizard.Image{
			Data:     data,
			FileName: filepath.Base(f.image),
			MimeType: info.MimeType,
			Meta: wizard.ImageMeta{
				Format:      info.Format,
				Width:       width,
				Height:      height,
				Orientation: info.Orientation,
				TakenAt:     info.TakenAt,
			},
		})
		fmt.Fprintf(out, "image: %s %dx%d\n", info.Format, width, height)
	}
	w.SetDescription(f.description)
	w.SetLocation(f.location)

	if err := w.RequestAnalysis(ctx); err != nil {
		return err
	}
	if err := w.Await(ctx); err != nil {
		return err
	}
	if err := w.Failure(); err != nil {
		return err
	}

	snap := w.Snapshot()
	if a := snap.Analysis; a != nil {
		fmt.Fprintf(out, "category:   %s\n", a.Category)
		fmt.Fprintf(out, "severity:   %s\n", a.Severity)
		fmt.Fprintf(out, "department: %s\n", a.Department)
		fmt.Fprintf(out, "sla:        %s\n", a.SLA)
		fmt.Fprintf(out, "confidence: %d%%\n", a.Confidence)
	}

	ticket, err := w.RequestSubmit(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "ticket: %s\n", ticket)
	return nil
}
