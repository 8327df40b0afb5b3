package wizard

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Notify(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func (r *recorder) count(t EventType) int {
	n := 0
	for _, got := range r.types() {
		if got == t {
			n++
		}
	}
	return n
}

func photo() *Image {
	return &Image{Data: []byte{0xff, 0xd8, 0xff}, FileName: "pothole.jpg", MimeType: "image/jpeg"}
}

func instantAnalyzer() Analyzer {
	return AnalyzerFunc(func(ctx context.Context, d Draft) (AnalysisResult, error) {
		return MockResult(), nil
	})
}

func newWizard(t *testing.T, analyzer Analyzer) (*ReportWizard, *recorder) {
	t.Helper()
	rec := &recorder{}
	w := New(Options{SessionID: "s-1", Analyzer: analyzer, Notifier: rec})
	t.Cleanup(w.Close)
	return w, rec
}

func await(t *testing.T, w *ReportWizard) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := w.Await(ctx); err != nil {
		t.Fatalf("Await: %v", err)
	}
}

func readyForReview(t *testing.T, w *ReportWizard) {
	t.Helper()
	w.SetImage(photo())
	w.SetDescription("Large pothole")
	if err := w.RequestAnalysis(context.Background()); err != nil {
		t.Fatalf("RequestAnalysis: %v", err)
	}
	await(t, w)
	if got := w.Stage(); got != StageReview {
		t.Fatalf("expected review, got %s", got)
	}
}

func TestSettersReflectLatestValue(t *testing.T) {
	w, _ := newWizard(t, instantAnalyzer())

	first := photo()
	second := &Image{Data: []byte{0x89, 'P', 'N', 'G'}, FileName: "b.png", MimeType: "image/png"}
	if !w.SetImage(first) || !w.SetImage(second) {
		t.Fatalf("expected setters to succeed in upload")
	}
	w.SetDescription("one")
	w.SetLocation("Main St")
	w.SetDescription("two")

	snap := w.Snapshot()
	if snap.Draft.Image == nil || snap.Draft.Image.FileName != "b.png" {
		t.Fatalf("expected latest image, got %+v", snap.Draft.Image)
	}
	if snap.Draft.Description != "two" || snap.Draft.Location != "Main St" {
		t.Fatalf("unexpected draft %+v", snap.Draft)
	}
	if snap.Stage != StageUpload {
		t.Fatalf("expected upload, got %s", snap.Stage)
	}
}

func TestRequestAnalysisValidation(t *testing.T) {
	tests := []struct {
		name        string
		image       *Image
		description string
		wantFields  []string
	}{
		{name: "missing both", wantFields: []string{"image", "description"}},
		{name: "missing image", description: "Large pothole", wantFields: []string{"image"}},
		{name: "blank description", image: photo(), description: "   ", wantFields: []string{"description"}},
		{name: "empty image payload", image: &Image{}, description: "x", wantFields: []string{"image"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, rec := newWizard(t, instantAnalyzer())
			w.SetImage(tt.image)
			w.SetDescription(tt.description)

			err := w.RequestAnalysis(context.Background())
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %T", err)
			}
			got := verr.Fields()
			if len(got) != len(tt.wantFields) {
				t.Fatalf("fields = %v, want %v", got, tt.wantFields)
			}
			for i := range got {
				if got[i] != tt.wantFields[i] {
					t.Fatalf("fields = %v, want %v", got, tt.wantFields)
				}
			}
			if w.Stage() != StageUpload {
				t.Fatalf("expected upload, got %s", w.Stage())
			}
			if rec.count(EventValidationFailed) != 1 {
				t.Fatalf("expected one validation event, got %v", rec.types())
			}
			rec.mu.Lock()
			e := rec.events[0]
			rec.mu.Unlock()
			if e.Title != "Missing Information" || e.Variant != VariantDestructive {
				t.Fatalf("unexpected event %+v", e)
			}
		})
	}
}

func TestAnalysisMovesThroughAnalyzingToReview(t *testing.T) {
	w, rec := newWizard(t, NewMockAnalyzer(20*time.Millisecond))
	w.SetImage(photo())
	w.SetDescription("Large pothole")

	if err := w.RequestAnalysis(context.Background()); err != nil {
		t.Fatalf("RequestAnalysis: %v", err)
	}
	if got := w.Stage(); got != StageAnalyzing {
		t.Fatalf("expected analyzing, got %s", got)
	}
	if w.Snapshot().Analysis != nil {
		t.Fatalf("analysis must be absent while analyzing")
	}
	if w.SetDescription("changed") {
		t.Fatalf("draft must be frozen while analyzing")
	}

	await(t, w)
	snap := w.Snapshot()
	if snap.Stage != StageReview || snap.Analysis == nil {
		t.Fatalf("expected review with analysis, got %s / %v", snap.Stage, snap.Analysis)
	}
	if snap.Analysis.Category != "Infrastructure - Pothole" || snap.Analysis.Confidence != 94 {
		t.Fatalf("unexpected analysis %+v", snap.Analysis)
	}
	if snap.Draft.Description != "Large pothole" {
		t.Fatalf("draft changed during analysis: %q", snap.Draft.Description)
	}
	types := rec.types()
	if len(types) != 2 || types[0] != EventAnalysisStarted || types[1] != EventAnalysisCompleted {
		t.Fatalf("unexpected events %v", types)
	}
	rec.mu.Lock()
	steps := rec.events[0].Steps
	rec.mu.Unlock()
	if len(steps) != 4 || steps[0] != "Processing image..." {
		t.Fatalf("unexpected analysis steps %v", steps)
	}
}

func TestRequestAnalysisOutsideUpload(t *testing.T) {
	w, _ := newWizard(t, instantAnalyzer())
	readyForReview(t, w)
	if err := w.RequestAnalysis(context.Background()); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestSubmitOutsideReviewChangesNothing(t *testing.T) {
	release := make(chan struct{})
	blocking := AnalyzerFunc(func(ctx context.Context, d Draft) (AnalysisResult, error) {
		select {
		case <-release:
			return MockResult(), nil
		case <-ctx.Done():
			return AnalysisResult{}, ctx.Err()
		}
	})
	w, _ := newWizard(t, blocking)
	w.SetImage(photo())
	w.SetDescription("Large pothole")

	before := w.Snapshot()
	if _, err := w.RequestSubmit(context.Background()); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("upload: expected ErrInvalidTransition, got %v", err)
	}
	if after := w.Snapshot(); after.Stage != before.Stage || after.TicketID != "" {
		t.Fatalf("upload: state changed to %+v", after)
	}

	if err := w.RequestAnalysis(context.Background()); err != nil {
		t.Fatalf("RequestAnalysis: %v", err)
	}
	if _, err := w.RequestSubmit(context.Background()); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("analyzing: expected ErrInvalidTransition, got %v", err)
	}
	if got := w.Stage(); got != StageAnalyzing {
		t.Fatalf("analyzing: stage changed to %s", got)
	}
	close(release)
	await(t, w)
}

func TestSubmitTwiceIsRejected(t *testing.T) {
	w, rec := newWizard(t, instantAnalyzer())
	readyForReview(t, w)
	if _, err := w.RequestSubmit(context.Background()); err != nil {
		t.Fatalf("RequestSubmit: %v", err)
	}
	if _, err := w.RequestSubmit(context.Background()); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if rec.count(EventSubmitted) != 1 {
		t.Fatalf("expected exactly one submitted event, got %v", rec.types())
	}
}

func TestResetFromEveryStage(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	blocking := AnalyzerFunc(func(ctx context.Context, d Draft) (AnalysisResult, error) {
		select {
		case <-release:
			return MockResult(), nil
		case <-ctx.Done():
			return AnalysisResult{}, ctx.Err()
		}
	})

	setups := map[Stage]func(t *testing.T) *ReportWizard{
		StageUpload: func(t *testing.T) *ReportWizard {
			w, _ := newWizard(t, instantAnalyzer())
			w.SetImage(photo())
			w.SetDescription("Large pothole")
			w.SetLocation("Main St")
			return w
		},
		StageAnalyzing: func(t *testing.T) *ReportWizard {
			w, _ := newWizard(t, blocking)
			w.SetImage(photo())
			w.SetDescription("Large pothole")
			if err := w.RequestAnalysis(context.Background()); err != nil {
				t.Fatalf("RequestAnalysis: %v", err)
			}
			return w
		},
		StageReview: func(t *testing.T) *ReportWizard {
			w, _ := newWizard(t, instantAnalyzer())
			readyForReview(t, w)
			return w
		},
		StageSubmitted: func(t *testing.T) *ReportWizard {
			w, _ := newWizard(t, instantAnalyzer())
			readyForReview(t, w)
			if _, err := w.RequestSubmit(context.Background()); err != nil {
				t.Fatalf("RequestSubmit: %v", err)
			}
			return w
		},
	}

	for stage, setup := range setups {
		t.Run(string(stage), func(t *testing.T) {
			w := setup(t)
			if got := w.Stage(); got != stage {
				t.Fatalf("setup reached %s, want %s", got, stage)
			}
			w.Reset()
			snap := w.Snapshot()
			if snap.Stage != StageUpload || snap.Draft.Image != nil || snap.Draft.Description != "" ||
				snap.Draft.Location != "" || snap.Analysis != nil || snap.TicketID != "" {
				t.Fatalf("reset left state %+v", snap)
			}
		})
	}
}

func TestResetTwiceEqualsResetOnce(t *testing.T) {
	w, rec := newWizard(t, instantAnalyzer())
	readyForReview(t, w)

	w.Reset()
	once := w.Snapshot()
	w.Reset()
	twice := w.Snapshot()

	if once.Stage != twice.Stage || once.Draft != twice.Draft || once.Analysis != twice.Analysis || once.TicketID != twice.TicketID {
		t.Fatalf("second reset changed state: %+v vs %+v", once, twice)
	}
	if rec.count(EventReset) != 1 {
		t.Fatalf("expected one reset event, got %v", rec.types())
	}
}

func TestEndToEndStaticTicket(t *testing.T) {
	w, rec := newWizard(t, NewMockAnalyzer(5*time.Millisecond))
	w.SetImage(photo())
	w.SetDescription("Large pothole")
	if err := w.RequestAnalysis(context.Background()); err != nil {
		t.Fatalf("RequestAnalysis: %v", err)
	}
	await(t, w)

	snap := w.Snapshot()
	if snap.Analysis == nil || snap.Analysis.Category != "Infrastructure - Pothole" || snap.Analysis.Confidence != 94 {
		t.Fatalf("unexpected analysis %+v", snap.Analysis)
	}

	ticket, err := w.RequestSubmit(context.Background())
	if err != nil {
		t.Fatalf("RequestSubmit: %v", err)
	}
	if ticket != DefaultStaticTicket {
		t.Fatalf("expected %s, got %s", DefaultStaticTicket, ticket)
	}
	snap = w.Snapshot()
	if snap.Stage != StageSubmitted || snap.TicketID != ticket {
		t.Fatalf("unexpected final state %+v", snap)
	}
	want := []EventType{EventAnalysisStarted, EventAnalysisCompleted, EventSubmitted}
	got := rec.types()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events = %v, want %v", got, want)
		}
	}
	rec.mu.Lock()
	last := rec.events[len(rec.events)-1]
	rec.mu.Unlock()
	if last.Title != "Report Submitted!" || last.TicketID != ticket {
		t.Fatalf("unexpected submitted event %+v", last)
	}
}

func TestResetDuringAnalyzingDiscardsLateCompletion(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	stubborn := AnalyzerFunc(func(ctx context.Context, d Draft) (AnalysisResult, error) {
		close(started)
		<-release
		return MockResult(), nil
	})
	w, rec := newWizard(t, stubborn)
	w.SetImage(photo())
	w.SetDescription("Large pothole")
	if err := w.RequestAnalysis(context.Background()); err != nil {
		t.Fatalf("RequestAnalysis: %v", err)
	}
	<-started

	w.Reset()
	close(release)
	w.runs.Wait()

	snap := w.Snapshot()
	if snap.Stage != StageUpload || snap.Analysis != nil {
		t.Fatalf("late completion leaked into state: %+v", snap)
	}
	if rec.count(EventAnalysisCompleted) != 0 {
		t.Fatalf("unexpected completion event: %v", rec.types())
	}
}

func TestResetCancelsInFlightAnalysis(t *testing.T) {
	w, _ := newWizard(t, NewMockAnalyzer(time.Hour))
	w.SetImage(photo())
	w.SetDescription("Large pothole")
	if err := w.RequestAnalysis(context.Background()); err != nil {
		t.Fatalf("RequestAnalysis: %v", err)
	}

	w.Reset()
	done := make(chan struct{})
	go func() {
		w.runs.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("analysis run was not cancelled by reset")
	}
	if got := w.Stage(); got != StageUpload {
		t.Fatalf("expected upload, got %s", got)
	}
}

func TestAnalyzerFailureReturnsToUploadWithDraft(t *testing.T) {
	boom := errors.New("inference backend unavailable")
	calls := 0
	flaky := AnalyzerFunc(func(ctx context.Context, d Draft) (AnalysisResult, error) {
		calls++
		if calls == 1 {
			return AnalysisResult{}, boom
		}
		return MockResult(), nil
	})
	w, rec := newWizard(t, flaky)
	w.SetImage(photo())
	w.SetDescription("Large pothole")
	w.SetLocation("Main St")

	if err := w.RequestAnalysis(context.Background()); err != nil {
		t.Fatalf("RequestAnalysis: %v", err)
	}
	await(t, w)

	snap := w.Snapshot()
	if snap.Stage != StageUpload || snap.Analysis != nil {
		t.Fatalf("expected upload without analysis, got %+v", snap)
	}
	if !snap.Draft.HasImage() || snap.Draft.Description != "Large pothole" || snap.Draft.Location != "Main St" {
		t.Fatalf("draft not retained: %+v", snap.Draft)
	}
	if snap.FailureReason == "" {
		t.Fatalf("expected failure reason")
	}
	failure := w.Failure()
	if !errors.Is(failure, ErrAnalysisFailed) || !errors.Is(failure, boom) {
		t.Fatalf("unexpected failure %v", failure)
	}
	if rec.count(EventAnalysisFailed) != 1 {
		t.Fatalf("expected failure event, got %v", rec.types())
	}

	if err := w.RequestAnalysis(context.Background()); err != nil {
		t.Fatalf("retry RequestAnalysis: %v", err)
	}
	await(t, w)
	if w.Stage() != StageReview || w.Failure() != nil {
		t.Fatalf("retry did not reach review cleanly")
	}
}

func TestAnalyzerPanicIsTreatedAsFailure(t *testing.T) {
	w, _ := newWizard(t, AnalyzerFunc(func(ctx context.Context, d Draft) (AnalysisResult, error) {
		panic("bad model")
	}))
	w.SetImage(photo())
	w.SetDescription("Large pothole")
	if err := w.RequestAnalysis(context.Background()); err != nil {
		t.Fatalf("RequestAnalysis: %v", err)
	}
	await(t, w)
	if w.Stage() != StageUpload || !errors.Is(w.Failure(), ErrAnalysisFailed) {
		t.Fatalf("expected failure back to upload, got %s / %v", w.Stage(), w.Failure())
	}
}

func TestSubmitFailureStaysInReview(t *testing.T) {
	boom := errors.New("store down")
	tests := []struct {
		name   string
		issuer TicketIssuer
	}{
		{name: "issuer error", issuer: TicketIssuerFunc(func(ctx context.Context, s Snapshot) (string, error) { return "", boom })},
		{name: "empty ticket", issuer: TicketIssuerFunc(func(ctx context.Context, s Snapshot) (string, error) { return "  ", nil })},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			w := New(Options{SessionID: "s-2", Analyzer: instantAnalyzer(), Tickets: tt.issuer, Notifier: rec})
			t.Cleanup(w.Close)
			readyForReview(t, w)

			_, err := w.RequestSubmit(context.Background())
			if !errors.Is(err, ErrSubmitFailed) {
				t.Fatalf("expected ErrSubmitFailed, got %v", err)
			}
			snap := w.Snapshot()
			if snap.Stage != StageReview || snap.TicketID != "" || snap.Analysis == nil {
				t.Fatalf("unexpected state after failed submit %+v", snap)
			}
			if rec.count(EventSubmitted) != 0 {
				t.Fatalf("unexpected submitted event")
			}
		})
	}
}

func TestIssuerSeesReviewSnapshot(t *testing.T) {
	var seen Snapshot
	issuer := TicketIssuerFunc(func(ctx context.Context, s Snapshot) (string, error) {
		seen = s
		return "CFX-2848", nil
	})
	w := New(Options{SessionID: "s-3", Analyzer: instantAnalyzer(), Tickets: issuer})
	t.Cleanup(w.Close)
	readyForReview(t, w)

	ticket, err := w.RequestSubmit(context.Background())
	if err != nil || ticket != "CFX-2848" {
		t.Fatalf("RequestSubmit = %q, %v", ticket, err)
	}
	if seen.Stage != StageReview || seen.Analysis == nil || seen.SessionID != "s-3" {
		t.Fatalf("issuer saw %+v", seen)
	}
}

func TestClosedWizardRejectsOperations(t *testing.T) {
	w := New(Options{Analyzer: NewMockAnalyzer(time.Hour)})
	w.SetImage(photo())
	w.SetDescription("Large pothole")
	if err := w.RequestAnalysis(context.Background()); err != nil {
		t.Fatalf("RequestAnalysis: %v", err)
	}
	w.Close()
	w.Close()

	if w.SetDescription("x") {
		t.Fatalf("setter succeeded after close")
	}
	if err := w.RequestAnalysis(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if _, err := w.RequestSubmit(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	w.Reset()
}

func TestAnalysisOutlivesRequestContext(t *testing.T) {
	w, _ := newWizard(t, NewMockAnalyzer(20*time.Millisecond))
	w.SetImage(photo())
	w.SetDescription("Large pothole")

	ctx, cancel := context.WithCancel(context.Background())
	if err := w.RequestAnalysis(ctx); err != nil {
		t.Fatalf("RequestAnalysis: %v", err)
	}
	cancel()
	await(t, w)
	if got := w.Stage(); got != StageReview {
		t.Fatalf("expected review after request ctx cancelled, got %s", got)
	}
}

func TestMockAnalyzerHonoursCancel(t *testing.T) {
	m := NewMockAnalyzer(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := m.Analyze(ctx, Draft{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	custom := &MockAnalyzer{Result: AnalysisResult{Category: "Electrical", Severity: SeverityHigh}}
	res, err := custom.Analyze(context.Background(), Draft{})
	if err != nil || res.Category != "Electrical" {
		t.Fatalf("unexpected custom result %+v, %v", res, err)
	}
}

func TestParseSeverityAndStageIndex(t *testing.T) {
	if s, ok := ParseSeverity(" critical "); !ok || s != SeverityCritical {
		t.Fatalf("ParseSeverity = %q, %v", s, ok)
	}
	if _, ok := ParseSeverity("urgent"); ok {
		t.Fatalf("expected unknown severity to fail")
	}
	if StageReview.Index() != 2 || Stage("bogus").Index() != -1 {
		t.Fatalf("unexpected stage indexes")
	}
}

type gatedNotifier struct {
	recorder
	hold    EventType
	entered chan struct{}
	release chan struct{}
}

func (g *gatedNotifier) Notify(e Event) {
	if e.Type == g.hold {
		close(g.entered)
		<-g.release
	}
	g.recorder.Notify(e)
}

func TestEventsDeliveredInTransitionOrder(t *testing.T) {
	gate := &gatedNotifier{
		hold:    EventAnalysisCompleted,
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	w := New(Options{SessionID: "s-4", Analyzer: instantAnalyzer(), Notifier: gate})
	t.Cleanup(w.Close)
	w.SetImage(photo())
	w.SetDescription("Large pothole")
	if err := w.RequestAnalysis(context.Background()); err != nil {
		t.Fatalf("RequestAnalysis: %v", err)
	}
	<-gate.entered

	resetDone := make(chan struct{})
	go func() {
		w.Reset()
		close(resetDone)
	}()
	deadline := time.Now().Add(2 * time.Second)
	for w.Stage() != StageUpload {
		if time.Now().After(deadline) {
			t.Fatalf("reset did not apply")
		}
		time.Sleep(time.Millisecond)
	}
	select {
	case <-resetDone:
		t.Fatalf("reset was delivered while the earlier completion was still pending")
	default:
	}
	close(gate.release)
	<-resetDone

	gate.mu.Lock()
	events := append([]Event(nil), gate.events...)
	gate.mu.Unlock()
	want := []EventType{EventAnalysisStarted, EventAnalysisCompleted, EventReset}
	if len(events) != len(want) {
		t.Fatalf("events = %+v, want types %v", events, want)
	}
	for i, e := range events {
		if e.Type != want[i] || e.Seq != uint64(i+1) {
			t.Fatalf("event %d = %s seq %d, want %s seq %d", i, e.Type, e.Seq, want[i], i+1)
		}
	}
	if snap := w.Snapshot(); snap.Seq != 3 || snap.Stage != StageUpload {
		t.Fatalf("unexpected snapshot after reset %+v", snap)
	}
}

func TestSetDraftTextAppliesBothOrNeither(t *testing.T) {
	w, _ := newWizard(t, instantAnalyzer())
	desc, loc := "Large pothole", "Main St"
	if !w.SetDraftText(&desc, &loc) {
		t.Fatalf("expected draft update in upload")
	}
	only := "Elm St"
	if !w.SetDraftText(nil, &only) {
		t.Fatalf("expected location-only update in upload")
	}
	if snap := w.Snapshot(); snap.Draft.Description != "Large pothole" || snap.Draft.Location != "Elm St" {
		t.Fatalf("unexpected draft %+v", snap.Draft)
	}

	w.SetImage(photo())
	if err := w.RequestAnalysis(context.Background()); err != nil {
		t.Fatalf("RequestAnalysis: %v", err)
	}
	await(t, w)
	other := "changed"
	if w.SetDraftText(&other, &other) {
		t.Fatalf("expected draft to be locked in review")
	}
	if snap := w.Snapshot(); snap.Draft.Description != "Large pothole" || snap.Draft.Location != "Elm St" {
		t.Fatalf("rejected update changed the draft: %+v", snap.Draft)
	}
}

func TestSanitizeFailureKeepsRunesWhole(t *testing.T) {
	msg := strings.Repeat("a", 299) + strings.Repeat("é", 10)
	got := sanitizeFailure(errors.New(msg))
	if !utf8.ValidString(got) {
		t.Fatalf("truncated message is not valid UTF-8: %q", got)
	}
	if got != strings.Repeat("a", 299) {
		t.Fatalf("expected cut before the split rune, got %d bytes", len(got))
	}
	if short := sanitizeFailure(errors.New("analyzer timed out\nretry")); short != "analyzer timed out retry" {
		t.Fatalf("unexpected sanitized message %q", short)
	}
}
