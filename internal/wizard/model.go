package wizard

import (
	"strings"
	"time"
)

// Stage tags the wizard's current position in the reporting flow.
type Stage string

const (
	StageUpload    Stage = "upload"
	StageAnalyzing Stage = "analyzing"
	StageReview    Stage = "review"
	StageSubmitted Stage = "submitted"
)

// Stages lists every stage in progress order.
var Stages = []Stage{StageUpload, StageAnalyzing, StageReview, StageSubmitted}

// Index returns the stage's position in the progress indicator, or -1 when unknown.
func (s Stage) Index() int {
	for i, st := range Stages {
		if st == s {
			return i
		}
	}
	return -1
}

// Severity is the analysis severity label.
type Severity string

const (
	SeverityLow      Severity = "Low"
	SeverityMedium   Severity = "Medium"
	SeverityHigh     Severity = "High"
	SeverityCritical Severity = "Critical"
)

// ParseSeverity matches raw case-insensitively against the known severities.
func ParseSeverity(raw string) (Severity, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "low":
		return SeverityLow, true
	case "medium":
		return SeverityMedium, true
	case "high":
		return SeverityHigh, true
	case "critical":
		return SeverityCritical, true
	default:
		return "", false
	}
}

// ImageMeta holds what could be learned from an image payload without analysing its content.
type ImageMeta struct {
	Format      string     `json:"format"`
	Width       int        `json:"width"`
	Height      int        `json:"height"`
	Orientation int        `json:"orientation,omitempty"`
	TakenAt     *time.Time `json:"takenAt,omitempty"`
}

// Image is the encoded photo attached to a draft. Data must not be mutated after SetImage.
type Image struct {
	Data     []byte
	FileName string
	MimeType string
	Meta     ImageMeta
}

// Draft is the user-entered, not yet submitted report.
type Draft struct {
	Image       *Image
	Description string
	Location    string
}

// HasImage reports whether a non-empty image payload is attached.
func (d Draft) HasImage() bool {
	return d.Image != nil && len(d.Image.Data) > 0
}

func (d Draft) clone() Draft {
	out := d
	if d.Image != nil {
		img := *d.Image
		out.Image = &img
	}
	return out
}

// AnalysisResult is the categorisation attached to a draft before submission.
type AnalysisResult struct {
	Category   string   `json:"category"`
	Severity   Severity `json:"severity"`
	Department string   `json:"department"`
	SLA        string   `json:"sla"`
	Confidence int      `json:"confidence"`
	PolicyNote string   `json:"policyNote,omitempty"`
}

// Snapshot is a read-only copy of the wizard state.
type Snapshot struct {
	SessionID     string
	Stage         Stage
	Draft         Draft
	Analysis      *AnalysisResult
	TicketID      string
	FailureReason string
	UpdatedAt     time.Time
	// Seq is the number of the last event queued before the snapshot was taken.
	Seq uint64
}
