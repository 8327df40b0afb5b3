package wizard

import "errors"

var (
	ErrValidation        = errors.New("validation failed")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrAnalysisFailed    = errors.New("analysis failed")
	ErrSubmitFailed      = errors.New("submit failed")
	ErrClosed            = errors.New("wizard closed")
)

// ValidationError reports which draft fields block analysis.
type ValidationError struct {
	MissingImage       bool
	MissingDescription bool
}

func (e *ValidationError) Error() string {
	switch {
	case e.MissingImage && e.MissingDescription:
		return "missing image and description"
	case e.MissingImage:
		return "missing image"
	default:
		return "missing description"
	}
}

// Is lets callers match any ValidationError with errors.Is(err, ErrValidation).
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Fields returns the names of the missing draft fields.
func (e *ValidationError) Fields() []string {
	var out []string
	if e.MissingImage {
		out = append(out, "image")
	}
	if e.MissingDescription {
		out = append(out, "description")
	}
	return out
}
