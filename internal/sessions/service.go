package sessions

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"civicfix-backend/internal/imaging"
	"civicfix-backend/internal/shared/metrics"
	"civicfix-backend/internal/shared/telemetry"
	"civicfix-backend/internal/shared/util"
	"civicfix-backend/internal/wizard"
)

const (
	DefaultMaxImageBytes       = 10 << 20
	DefaultMaxSessionsPerOwner = 10
	DefaultIdleTTL             = 30 * time.Minute

	maxDescriptionRunes = 2000
	maxLocationRunes    = 300
)

// Options configures a Service.
type Options struct {
	Analyzer            wizard.Analyzer
	Finalizer           *Finalizer
	Hub                 *Hub
	IdleTTL             time.Duration
	MaxImageBytes       int64
	MaxSessionsPerOwner int
	Now                 func() time.Time
}

// Service owns the live report sessions.
type Service struct {
	opts   Options
	store  *Store
	closed atomic.Bool
}

// NewService constructs a Service, filling zero options with defaults.
func NewService(opts Options) *Service {
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = DefaultIdleTTL
	}
	if opts.MaxImageBytes <= 0 {
		opts.MaxImageBytes = DefaultMaxImageBytes
	}
	if opts.MaxSessionsPerOwner <= 0 {
		opts.MaxSessionsPerOwner = DefaultMaxSessionsPerOwner
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{opts: opts, store: NewStore()}
}

// Create starts a new session for ownerID.
func (s *Service) Create(ctx context.Context, ownerID string) (*Session, error) {
	if s.closed.Load() {
		return nil, ErrServiceShutdown
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(ownerID) == "" {
		return nil, fmt.Errorf("%w: owner is required", ErrInvalidInput)
	}
	id := uuid.NewString()
	opts := wizard.Options{
		SessionID: id,
		Analyzer:  s.opts.Analyzer,
		Tickets:   s.opts.Finalizer.IssuerFor(ownerID),
		Now:       s.opts.Now,
	}
	if s.opts.Hub != nil {
		opts.Notifier = s.opts.Hub
	}
	now := s.opts.Now()
	sess := &Session{
		ID:        id,
		OwnerID:   ownerID,
		CreatedAt: now,
		Wizard:    wizard.New(opts),
	}
	sess.touch(now)
	if !s.store.PutIfUnder(sess, s.opts.MaxSessionsPerOwner) {
		sess.Wizard.Close()
		return nil, ErrTooManySessions
	}
	metrics.SetActiveSessions(s.store.Len())

	telemetry.Info("sessions.created", map[string]any{
		"session_id": id,
		"owner_id":   ownerID,
	})
	return sess, nil
}

// Get returns a session owned by ownerID. Sessions of other owners are reported as not found.
func (s *Service) Get(ownerID, id string) (*Session, error) {
	sess, ok := s.store.Get(id)
	if !ok || sess.OwnerID != ownerID {
		return nil, ErrNotFound
	}
	sess.touch(s.opts.Now())
	return sess, nil
}

// View returns the read model of a session.
func (s *Service) View(ownerID, id string) (View, error) {
	sess, err := s.Get(ownerID, id)
	if err != nil {
		return View{}, err
	}
	return ToView(sess.Wizard.Snapshot()), nil
}

// SetImage reads, inspects and attaches an uploaded photo.
func (s *Service) SetImage(ownerID, id, fileName string, r io.Reader) (View, error) {
	sess, err := s.Get(ownerID, id)
	if err != nil {
		return View{}, err
	}
	data, err := io.ReadAll(io.LimitReader(r, s.opts.MaxImageBytes+1))
	if err != nil {
		return View{}, fmt.Errorf("read image: %w", err)
	}
	if int64(len(data)) > s.opts.MaxImageBytes {
		return View{}, ErrImageTooLarge
	}
	info, err := imaging.Inspect(data)
	if err != nil {
		return View{}, err
	}
	name, err := util.SanitizeFileName(fileName)
	if err != nil {
		name = "photo." + info.Format
	}
	width, height := info.DisplaySize()
	img := &wizard.Image{
		Data:     data,
		FileName: name,
		MimeType: info.MimeType,
		Meta: wizard.ImageMeta{
			Format:      info.Format,
			Width:       width,
			Height:      height,
			Orientation: info.Orientation,
			TakenAt:     info.TakenAt,
		},
	}
	if !sess.Wizard.SetImage(img) {
		return View{}, s.notEditable(sess)
	}
	return ToView(sess.Wizard.Snapshot()), nil
}

// UpdateDraft applies the non-nil fields of patch.
func (s *Service) UpdateDraft(ownerID, id string, patch DraftPatch) (View, error) {
	sess, err := s.Get(ownerID, id)
	if err != nil {
		return View{}, err
	}
	if patch.Description == nil && patch.Location == nil {
		return View{}, fmt.Errorf("%w: nothing to update", ErrInvalidInput)
	}
	if patch.Description != nil && utf8.RuneCountInString(*patch.Description) > maxDescriptionRunes {
		return View{}, fmt.Errorf("%w: description exceeds %d characters", ErrInvalidInput, maxDescriptionRunes)
	}
	if patch.Location != nil && utf8.RuneCountInString(*patch.Location) > maxLocationRunes {
		return View{}, fmt.Errorf("%w: location exceeds %d characters", ErrInvalidInput, maxLocationRunes)
	}
	if !sess.Wizard.SetDraftText(patch.Description, patch.Location) {
		return View{}, s.notEditable(sess)
	}
	return ToView(sess.Wizard.Snapshot()), nil
}

// Analyze starts analysis of the session's draft.
func (s *Service) Analyze(ctx context.Context, ownerID, id string) (View, error) {
	sess, err := s.Get(ownerID, id)
	if err != nil {
		return View{}, err
	}
	if err := sess.Wizard.RequestAnalysis(ctx); err != nil {
		return View{}, s.mapClosed(err)
	}
	return ToView(sess.Wizard.Snapshot()), nil
}

// Submit finalizes a reviewed report and returns its ticket.
func (s *Service) Submit(ctx context.Context, ownerID, id string) (View, error) {
	sess, err := s.Get(ownerID, id)
	if err != nil {
		return View{}, err
	}
	if _, err := sess.Wizard.RequestSubmit(ctx); err != nil {
		return View{}, s.mapClosed(err)
	}
	return ToView(sess.Wizard.Snapshot()), nil
}

// Reset clears the session back to an empty upload draft.
func (s *Service) Reset(ownerID, id string) (View, error) {
	sess, err := s.Get(ownerID, id)
	if err != nil {
		return View{}, err
	}
	sess.Wizard.Reset()
	return ToView(sess.Wizard.Snapshot()), nil
}

// End closes a session and disconnects its subscribers.
func (s *Service) End(ownerID, id string) error {
	if _, err := s.Get(ownerID, id); err != nil {
		return err
	}
	s.end(id, "ended")
	return nil
}

// Sweep ends sessions idle for longer than the configured TTL and reports how many.
func (s *Service) Sweep(now time.Time) int {
	n := 0
	for _, sess := range s.store.List() {
		if now.Sub(sess.LastSeen()) > s.opts.IdleTTL {
			s.end(sess.ID, "expired")
			n++
		}
	}
	return n
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *Service) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(s.opts.Now()); n > 0 {
				telemetry.Info("sessions.swept", map[string]any{"count": n})
			}
		}
	}
}

// Len returns the number of live sessions.
func (s *Service) Len() int {
	return s.store.Len()
}

// Close ends every session and rejects new ones.
func (s *Service) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	for _, sess := range s.store.List() {
		s.end(sess.ID, "shutdown")
	}
}

func (s *Service) end(id, reason string) {
	sess, ok := s.store.Delete(id)
	if !ok {
		return
	}
	sess.Wizard.Close()
	if s.opts.Hub != nil {
		s.opts.Hub.CloseSession(id)
	}
	metrics.SetActiveSessions(s.store.Len())
	telemetry.Info("sessions.ended", map[string]any{
		"session_id": id,
		"owner_id":   sess.OwnerID,
		"reason":     reason,
	})
}

func (s *Service) notEditable(sess *Session) error {
	return fmt.Errorf("%w: draft is locked in %s", wizard.ErrInvalidTransition, sess.Wizard.Stage())
}

// mapClosed reports a wizard closed underneath a request as a missing session.
func (s *Service) mapClosed(err error) error {
	if errors.Is(err, wizard.ErrClosed) {
		return ErrNotFound
	}
	return err
}

// MaxImageBytes returns the upload limit in bytes.
func (s *Service) MaxImageBytes() int64 {
	return s.opts.MaxImageBytes
}
