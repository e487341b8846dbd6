// Package metrics defines Prometheus metrics for rate limiting, authorization
// verdicts and email automation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RateLimitDecisions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "jobtracker_ratelimit_decisions_total",
		Help: "Rate limiter decisions grouped by endpoint class and outcome",
	}, []string{"class", "decision"})
	RateLimitErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "jobtracker_ratelimit_errors_total",
		Help: "Rate limiter store failures (requests are let through)",
	}, []string{"class"})
	RateLimitTrackedKeys = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "jobtracker_ratelimit_tracked_keys",
		Help: "Number of keys held by in-memory rate limiters after the last sweep",
	}, []string{"class"})

	// verdict is one of allowed, unauthorized, forbidden, not_found, error.
	AuthorizationVerdicts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "jobtracker_authorization_verdicts_total",
		Help: "Ownership and admin authorization verdicts grouped by resource",
	}, []string{"resource", "verdict"})

	EmailsProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "jobtracker_emails_processed_total",
		Help: "Emails handled by the automation watcher grouped by outcome",
	}, []string{"outcome"})
	EmailSyncRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "jobtracker_email_sync_runs_total",
		Help: "Email sync cycles grouped by mode (full, incremental) and result",
	}, []string{"mode", "result"})

	RealtimeSubscribers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "jobtracker_realtime_subscribers",
		Help: "Currently connected realtime event subscribers",
	})
	RealtimeDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "jobtracker_realtime_dropped_events_total",
		Help: "Events dropped because a subscriber buffer was full",
	})
)

func init() {
	prometheus.MustRegister(
		RateLimitDecisions,
		RateLimitErrors,
		RateLimitTrackedKeys,
		AuthorizationVerdicts,
		EmailsProcessed,
		EmailSyncRuns,
		RealtimeSubscribers,
		RealtimeDropped,
	)
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
