package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestIncTransitionCountsPerLabel(t *testing.T) {
	before := testutil.ToFloat64(wizardTransitions.WithLabelValues("review", "submitted"))
	IncTransition("review", "submitted")
	IncTransition("review", "submitted")
	after := testutil.ToFloat64(wizardTransitions.WithLabelValues("review", "submitted"))
	if after-before != 2 {
		t.Fatalf("expected 2 increments, got %v", after-before)
	}
}

func TestIncReportSubmittedDefaultsDepartment(t *testing.T) {
	before := testutil.ToFloat64(reportsSubmitted.WithLabelValues("unrouted"))
	IncReportSubmitted("")
	if got := testutil.ToFloat64(reportsSubmitted.WithLabelValues("unrouted")); got-before != 1 {
		t.Fatalf("expected unrouted increment, got %v", got-before)
	}
}

func TestHandlerRendersExposition(t *testing.T) {
	gin.SetMode(gin.TestMode)
	IncAnalysisOutcome("completed")
	SetActiveSessions(3)

	r := gin.New()
	r.GET("/metrics", Handler())
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	body := resp.Body.String()
	for _, want := range []string{
		"civicfix_wizard_analysis_outcomes_total",
		"civicfix_sessions_active 3",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in exposition:\n%s", want, body)
		}
	}
}
