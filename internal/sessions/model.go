package sessions

import (
	"strings"
	"sync/atomic"
	"time"

	"civicfix-backend/internal/wizard"
)

// Session is one wizard instance owned by one guest.
type Session struct {
	ID        string
	OwnerID   string
	CreatedAt time.Time
	Wizard    *wizard.ReportWizard

	lastSeen atomic.Int64
}

func (s *Session) touch(now time.Time) {
	s.lastSeen.Store(now.UnixNano())
}

// LastSeen returns when the session was last used.
func (s *Session) LastSeen() time.Time {
	return time.Unix(0, s.lastSeen.Load()).UTC()
}

// DraftPatch carries optional draft field updates.
type DraftPatch struct {
	Description *string `json:"description"`
	Location    *string `json:"location"`
}

// ImageView describes the attached image without its bytes.
type ImageView struct {
	FileName  string           `json:"fileName"`
	MimeType  string           `json:"mimeType"`
	SizeBytes int              `json:"sizeBytes"`
	Meta      wizard.ImageMeta `json:"meta"`
}

// DraftView is the JSON form of a draft.
type DraftView struct {
	Image       *ImageView `json:"image,omitempty"`
	Description string     `json:"description"`
	Location    string     `json:"location"`
}

// View is the JSON read model of a session.
type View struct {
	SessionID     string                 `json:"sessionId"`
	Stage         wizard.Stage           `json:"stage"`
	StageIndex    int                    `json:"stageIndex"`
	Draft         DraftView              `json:"draft"`
	Analysis      *wizard.AnalysisResult `json:"analysis,omitempty"`
	TicketID      string                 `json:"ticketId,omitempty"`
	FailureReason string                 `json:"failureReason,omitempty"`
	CanAnalyze    bool                   `json:"canAnalyze"`
	CanSubmit     bool                   `json:"canSubmit"`
	UpdatedAt     time.Time              `json:"updatedAt"`
	Seq           uint64                 `json:"seq"`
}

// ToView converts a wizard snapshot into its JSON read model.
func ToView(snap wizard.Snapshot) View {
	v := View{
		SessionID:     snap.SessionID,
		Stage:         snap.Stage,
		StageIndex:    snap.Stage.Index(),
		Analysis:      snap.Analysis,
		TicketID:      snap.TicketID,
		FailureReason: snap.FailureReason,
		CanAnalyze:    snap.Stage == wizard.StageUpload && snap.Draft.HasImage() && hasText(snap.Draft.Description),
		CanSubmit:     snap.Stage == wizard.StageReview,
		UpdatedAt:     snap.UpdatedAt,
		Seq:           snap.Seq,
		Draft: DraftView{
			Description: snap.Draft.Description,
			Location:    snap.Draft.Location,
		},
	}
	if img := snap.Draft.Image; img != nil {
		v.Draft.Image = &ImageView{
			FileName:  img.FileName,
			MimeType:  img.MimeType,
			SizeBytes: len(img.Data),
			Meta:      img.Meta,
		}
	}
	return v
}

func hasText(s string) bool {
	return strings.TrimSpace(s) != ""
}
