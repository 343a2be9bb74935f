package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	validationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "document_validations_total",
		Help: "Total document validations by outcome.",
	}, []string{"outcome"})

	analysisStartedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "analysis_started_total",
		Help: "Total analyses started.",
	})
	analysisCompletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "analysis_completed_total",
		Help: "Total analyses completed.",
	})
	analysisFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "analysis_failed_total",
		Help: "Total analyses failed.",
	})
	analysisDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "analysis_duration_seconds",
		Help:    "Analysis duration in seconds.",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
	})

	chatQueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_queries_total",
		Help: "Total chat queries by outcome.",
	}, []string{"outcome"})

	translationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "translations_total",
		Help: "Total translation operations by action and outcome.",
	}, []string{"action", "outcome"})

	credentialRefreshTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "credential_refresh_total",
		Help: "Total access-token refreshes performed.",
	})
)

// IncValidation records a validation outcome (admitted, rejected, not_legal).
func IncValidation(outcome string) {
	validationsTotal.WithLabelValues(outcome).Inc()
}

// IncAnalysisStarted increments the started counter.
func IncAnalysisStarted() {
	analysisStartedTotal.Inc()
}

// IncAnalysisCompleted increments the completed counter.
func IncAnalysisCompleted() {
	analysisCompletedTotal.Inc()
}

// IncAnalysisFailed increments the failed counter.
func IncAnalysisFailed() {
	analysisFailedTotal.Inc()
}

// ObserveAnalysisDuration records an analysis duration in seconds.
func ObserveAnalysisDuration(seconds float64) {
	if seconds < 0 {
		seconds = 0
	}
	analysisDuration.Observe(seconds)
}

// IncChatQuery records a chat query outcome (ok, rejected, unavailable).
func IncChatQuery(outcome string) {
	chatQueriesTotal.WithLabelValues(outcome).Inc()
}

// IncTranslation records a translation outcome for the given action.
func IncTranslation(action, outcome string) {
	translationsTotal.WithLabelValues(action, outcome).Inc()
}

// IncCredentialRefresh counts a completed token refresh round trip.
func IncCredentialRefresh() {
	credentialRefreshTotal.Inc()
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
