package wizard

import (
	"context"
	"time"
)

// DefaultAnalysisDelay is how long the mock analyzer pretends to work.
const DefaultAnalysisDelay = 2500 * time.Millisecond

// Analyzer categorises a draft. A real deployment would call an inference service here.
type Analyzer interface {
	Analyze(ctx context.Context, draft Draft) (AnalysisResult, error)
}

// AnalyzerFunc adapts a function to Analyzer.
type AnalyzerFunc func(ctx context.Context, draft Draft) (AnalysisResult, error)

// Analyze calls f(ctx, draft).
func (f AnalyzerFunc) Analyze(ctx context.Context, draft Draft) (AnalysisResult, error) {
	return f(ctx, draft)
}

// MockResult is the fixed analysis returned for every draft.
func MockResult() AnalysisResult {
	return AnalysisResult{
		Category:   "Infrastructure - Pothole",
		Severity:   SeverityMedium,
		Department: "Public Works Department",
		SLA:        "72 Hours",
		Confidence: 94,
		PolicyNote: "Per City Charter §4.b: Potholes and road damage must be repaired within 72 hours of verified reporting.",
	}
}

// MockAnalyzer waits Delay and then returns Result, or MockResult when Result is zero.
type MockAnalyzer struct {
	Delay  time.Duration
	Result AnalysisResult
}

// NewMockAnalyzer constructs a MockAnalyzer with the fixed result.
func NewMockAnalyzer(delay time.Duration) *MockAnalyzer {
	return &MockAnalyzer{Delay: delay}
}

// Analyze blocks for the configured delay unless ctx is cancelled first.
func (m *MockAnalyzer) Analyze(ctx context.Context, draft Draft) (AnalysisResult, error) {
	_ = draft
	if m.Delay > 0 {
		timer := time.NewTimer(m.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return AnalysisResult{}, ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return AnalysisResult{}, err
	}

	if m.Result == (AnalysisResult{}) {
		return MockResult(), nil
	}
	return m.Result, nil
}
