package metrics

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry = prometheus.NewRegistry()

	wizardTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "civicfix",
		Subsystem: "wizard",
		Name:      "transitions_total",
		Help:      "Report wizard stage transitions, labeled by source and target stage.",
	}, []string{"from", "to"})

	analysisOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "civicfix",
		Subsystem: "wizard",
		Name:      "analysis_outcomes_total",
		Help:      "Finished analysis runs, labeled by outcome (completed, failed, discarded).",
	}, []string{"result"})

	analysisDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "civicfix",
		Subsystem: "wizard",
		Name:      "analysis_duration_seconds",
		Help:      "Time spent inside the analyzer per run.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})

	activeSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "civicfix",
		Subsystem: "sessions",
		Name:      "active",
		Help:      "Report sessions currently held in memory.",
	})

	reportsSubmitted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "civicfix",
		Subsystem: "reports",
		Name:      "submitted_total",
		Help:      "Reports submitted, labeled by routed department.",
	}, []string{"department"})

	queuePublishFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "civicfix",
		Subsystem: "queue",
		Name:      "publish_failures_total",
		Help:      "Submitted reports that could not be published to the routing queue.",
	})

	routingMessages = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "civicfix",
		Subsystem: "routing",
		Name:      "messages_total",
		Help:      "Routing worker messages, labeled by result (received, routed, failed, dropped).",
	}, []string{"result"})
)

func init() {
	registry.MustRegister(
		wizardTransitions,
		analysisOutcomes,
		analysisDuration,
		activeSessions,
		reportsSubmitted,
		queuePublishFailures,
		routingMessages,
	)
}

// IncTransition counts a wizard stage transition.
func IncTransition(from, to string) {
	wizardTransitions.WithLabelValues(from, to).Inc()
}

// IncAnalysisOutcome counts a finished analysis run.
func IncAnalysisOutcome(result string) {
	analysisOutcomes.WithLabelValues(result).Inc()
}

// ObserveAnalysisDuration records how long an analyzer call took.
func ObserveAnalysisDuration(d time.Duration) {
	if d < 0 {
		d = 0
	}
	analysisDuration.Observe(d.Seconds())
}

// SetActiveSessions records the number of live sessions.
func SetActiveSessions(n int) {
	activeSessions.Set(float64(n))
}

// IncReportSubmitted counts a submitted report.
func IncReportSubmitted(department string) {
	if department == "" {
		department = "unrouted"
	}
	reportsSubmitted.WithLabelValues(department).Inc()
}

// IncQueuePublishFailed counts a failed queue publish.
func IncQueuePublishFailed() {
	queuePublishFailures.Inc()
}

// IncRoutingMessage counts a routing worker message by result.
func IncRoutingMessage(result string) {
	routingMessages.WithLabelValues(result).Inc()
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}
