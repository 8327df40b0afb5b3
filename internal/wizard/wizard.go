package wizard

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"civicfix-backend/internal/shared/metrics"
	"civicfix-backend/internal/shared/telemetry"
)

// Options configures a ReportWizard. Zero values fall back to the mock analyzer,
// the static ticket and a no-op notifier.
type Options struct {
	SessionID string
	Analyzer  Analyzer
	Tickets   TicketIssuer
	Notifier  Notifier
	Now       func() time.Time
}

// ReportWizard drives one reporting session through upload, analyzing, review and submitted.
// It is safe for concurrent use.
type ReportWizard struct {
	sessionID string
	analyzer  Analyzer
	tickets   TicketIssuer
	notifier  Notifier
	now       func() time.Time

	mu        sync.Mutex
	stage     Stage
	draft     Draft
	analysis  *AnalysisResult
	ticketID  string
	failure   string
	failErr   error
	updatedAt time.Time
	closed    bool

	// gen identifies the current analysis run; completions from older runs are dropped.
	gen    uint64
	cancel context.CancelFunc
	done   chan struct{}
	runs   sync.WaitGroup

	// Events are numbered and queued under mu, then delivered in order by flush.
	seq     uint64
	pending []Event
	emitMu  sync.Mutex
}

// New constructs a wizard in the upload stage with an empty draft.
func New(opts Options) *ReportWizard {
	w := &ReportWizard{
		sessionID: opts.SessionID,
		analyzer:  opts.Analyzer,
		tickets:   opts.Tickets,
		notifier:  opts.Notifier,
		now:       opts.Now,
		stage:     StageUpload,
	}
	if w.analyzer == nil {
		w.analyzer = NewMockAnalyzer(DefaultAnalysisDelay)
	}
	if w.tickets == nil {
		w.tickets = StaticTicket(DefaultStaticTicket)
	}
	if w.notifier == nil {
		w.notifier = nopNotifier{}
	}
	if w.now == nil {
		w.now = func() time.Time { return time.Now().UTC() }
	}
	w.updatedAt = w.now()
	return w
}

// SetImage replaces the draft image. It reports false when the wizard is not in upload.
func (w *ReportWizard) SetImage(img *Image) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || w.stage != StageUpload {
		return false
	}
	w.draft.Image = img
	w.updatedAt = w.now()
	return true
}

// SetDescription replaces the draft description. It reports false when the wizard is not in upload.
func (w *ReportWizard) SetDescription(text string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || w.stage != StageUpload {
		return false
	}
	w.draft.Description = text
	w.updatedAt = w.now()
	return true
}

// SetLocation replaces the draft location. It reports false when the wizard is not in upload.
func (w *ReportWizard) SetLocation(text string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || w.stage != StageUpload {
		return false
	}
	w.draft.Location = text
	w.updatedAt = w.now()
	return true
}

// SetDraftText replaces the non-nil text fields together. It reports false, changing
// nothing, when the wizard is not in upload.
func (w *ReportWizard) SetDraftText(description, location *string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || w.stage != StageUpload {
		return false
	}
	if description != nil {
		w.draft.Description = *description
	}
	if location != nil {
		w.draft.Location = *location
	}
	w.updatedAt = w.now()
	return true
}

// RequestAnalysis validates the draft and starts an asynchronous analysis run.
// On a *ValidationError the wizard stays in upload.
func (w *ReportWizard) RequestAnalysis(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrClosed
	}
	if w.stage != StageUpload {
		stage := w.stage
		w.mu.Unlock()
		return fmt.Errorf("%w: analyze from %s", ErrInvalidTransition, stage)
	}
	if verr := validateDraft(w.draft); verr != nil {
		w.queueLocked(Event{
			Type:        EventValidationFailed,
			From:        StageUpload,
			Stage:       StageUpload,
			Title:       titleMissingInfo,
			Description: descMissingInfo,
			Variant:     VariantDestructive,
		})
		w.mu.Unlock()
		w.flush()
		return verr
	}

	w.gen++
	gen := w.gen
	// The run outlives the triggering request but keeps its values for logging.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	w.cancel = cancel
	w.done = done
	w.stage = StageAnalyzing
	w.failure = ""
	w.failErr = nil
	w.updatedAt = w.now()
	draft := w.draft.clone()
	w.runs.Add(1)
	w.queueLocked(Event{
		Type:        EventAnalysisStarted,
		From:        StageUpload,
		Stage:       StageAnalyzing,
		Title:       titleAnalyzing,
		Description: descAnalyzing,
		Steps:       append([]string(nil), AnalysisSteps...),
	})
	w.mu.Unlock()

	w.logTransition(StageUpload, StageAnalyzing, nil)
	w.flush()

	go w.run(runCtx, gen, draft, done)
	return nil
}

func (w *ReportWizard) run(ctx context.Context, gen uint64, draft Draft, done chan struct{}) {
	defer w.runs.Done()
	defer close(done)

	started := time.Now()
	res, err := w.analyze(ctx, draft)
	metrics.ObserveAnalysisDuration(time.Since(started))
	w.complete(gen, res, err)
}

func (w *ReportWizard) analyze(ctx context.Context, draft Draft) (res AnalysisResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return w.analyzer.Analyze(ctx, draft)
}

func (w *ReportWizard) complete(gen uint64, res AnalysisResult, err error) {
	w.mu.Lock()
	if w.closed || gen != w.gen || w.stage != StageAnalyzing {
		w.mu.Unlock()
		metrics.IncAnalysisOutcome("discarded")
		telemetry.Info("wizard.analysis_discarded", map[string]any{
			"session_id": w.sessionID,
			"run":        gen,
		})
		return
	}
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	// done stays set so Await also covers the notifications below.
	w.updatedAt = w.now()

	if err != nil {
		w.stage = StageUpload
		w.failErr = fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
		w.failure = sanitizeFailure(w.failErr)
		w.queueLocked(Event{
			Type:        EventAnalysisFailed,
			From:        StageAnalyzing,
			Stage:       StageUpload,
			Title:       titleAnalysisError,
			Description: descAnalysisError,
			Variant:     VariantDestructive,
		})
		w.mu.Unlock()

		metrics.IncAnalysisOutcome("failed")
		w.logTransition(StageAnalyzing, StageUpload, err)
		w.flush()
		return
	}

	result := res
	w.analysis = &result
	w.stage = StageReview
	w.queueLocked(Event{
		Type:        EventAnalysisCompleted,
		From:        StageAnalyzing,
		Stage:       StageReview,
		Title:       titleAnalysisDone,
		Description: descAnalysisDone,
	})
	w.mu.Unlock()

	metrics.IncAnalysisOutcome("completed")
	w.logTransition(StageAnalyzing, StageReview, nil)
	w.flush()
}

// RequestSubmit finalizes a reviewed report and assigns its tracking identifier.
// It is only legal from review; other stages return ErrInvalidTransition unchanged.
func (w *ReportWizard) RequestSubmit(ctx context.Context) (string, error) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return "", ErrClosed
	}
	if w.stage != StageReview {
		stage := w.stage
		w.mu.Unlock()
		return "", fmt.Errorf("%w: submit from %s", ErrInvalidTransition, stage)
	}

	// The lock is held across the issuer so a report cannot be finalized twice.
	id, err := w.tickets.IssueTicket(ctx, w.snapshotLocked())
	if err == nil && strings.TrimSpace(id) == "" {
		err = fmt.Errorf("empty ticket id")
	}
	if err != nil {
		w.mu.Unlock()
		telemetry.Error("wizard.submit_failed", map[string]any{
			"session_id": w.sessionID,
			"error":      err.Error(),
		})
		return "", fmt.Errorf("%w: %w", ErrSubmitFailed, err)
	}
	w.ticketID = id
	w.stage = StageSubmitted
	w.updatedAt = w.now()
	w.queueLocked(Event{
		Type:        EventSubmitted,
		From:        StageReview,
		Stage:       StageSubmitted,
		Title:       titleSubmitted,
		Description: descSubmitted,
		TicketID:    id,
	})
	w.mu.Unlock()

	w.logTransition(StageReview, StageSubmitted, nil)
	w.flush()
	return id, nil
}

// Reset returns the wizard to upload with an empty draft and no analysis.
// An in-flight analysis is cancelled and its result discarded.
func (w *ReportWizard) Reset() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	from := w.stage
	pristine := from == StageUpload && w.draft == (Draft{}) && w.failure == ""
	w.stopRunLocked()
	w.stage = StageUpload
	w.draft = Draft{}
	w.analysis = nil
	w.ticketID = ""
	w.failure = ""
	w.failErr = nil
	w.updatedAt = w.now()
	if pristine {
		w.mu.Unlock()
		return
	}
	w.queueLocked(Event{
		Type:  EventReset,
		From:  from,
		Stage: StageUpload,
		Title: titleReset,
	})
	w.mu.Unlock()

	w.logTransition(from, StageUpload, nil)
	w.flush()
}

// Await blocks until the current analysis run has finished, including its
// notifications, or ctx is done. It returns at once when no run was started
// since the last reset.
func (w *ReportWizard) Await(ctx context.Context) error {
	w.mu.Lock()
	done := w.done
	w.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close ends the session: in-flight work is cancelled and awaited, and later
// operations fail with ErrClosed.
func (w *ReportWizard) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	w.stopRunLocked()
	w.mu.Unlock()
	w.runs.Wait()
}

// Snapshot returns a copy of the current state.
func (w *ReportWizard) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked()
}

// Failure returns the error of the last failed analysis run, wrapping ErrAnalysisFailed,
// or nil when the last run succeeded or the wizard was reset.
func (w *ReportWizard) Failure() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.failErr
}

// Stage returns the current stage.
func (w *ReportWizard) Stage() Stage {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stage
}

func (w *ReportWizard) snapshotLocked() Snapshot {
	snap := Snapshot{
		SessionID:     w.sessionID,
		Stage:         w.stage,
		Draft:         w.draft.clone(),
		TicketID:      w.ticketID,
		FailureReason: w.failure,
		UpdatedAt:     w.updatedAt,
		Seq:           w.seq,
	}
	if w.analysis != nil {
		a := *w.analysis
		snap.Analysis = &a
	}
	return snap
}

func (w *ReportWizard) stopRunLocked() {
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	w.done = nil
	w.gen++
}

func (w *ReportWizard) queueLocked(e Event) {
	w.seq++
	e.Seq = w.seq
	e.SessionID = w.sessionID
	if e.At.IsZero() {
		e.At = w.now()
	}
	w.pending = append(w.pending, e)
}

// flush delivers queued events. Concurrent callers are serialized so the
// notifier sees events in Seq order.
func (w *ReportWizard) flush() {
	w.emitMu.Lock()
	defer w.emitMu.Unlock()
	w.mu.Lock()
	events := w.pending
	w.pending = nil
	w.mu.Unlock()
	for _, e := range events {
		w.notifier.Notify(e)
	}
}

func (w *ReportWizard) logTransition(from, to Stage, err error) {
	metrics.IncTransition(string(from), string(to))
	fields := map[string]any{
		"session_id":        w.sessionID,
		"status_transition": string(from) + "->" + string(to),
	}
	if err != nil {
		fields["error"] = sanitizeFailure(err)
		telemetry.Warn("wizard.transition", fields)
		return
	}
	telemetry.Info("wizard.transition", fields)
}

func validateDraft(d Draft) *ValidationError {
	verr := &ValidationError{
		MissingImage:       !d.HasImage(),
		MissingDescription: strings.TrimSpace(d.Description) == "",
	}
	if !verr.MissingImage && !verr.MissingDescription {
		return nil
	}
	return verr
}

func sanitizeFailure(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	const maxLen = 300
	if len(msg) > maxLen {
		cut := maxLen
		for cut > 0 && !utf8.RuneStart(msg[cut]) {
			cut--
		}
		msg = msg[:cut]
	}
	return msg
}
