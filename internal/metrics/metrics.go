package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	cacheResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_cache_results_total",
			Help: "Cached fetch results by outcome",
		},
		[]string{"outcome"},
	)

	githubRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_github_requests_total",
			Help: "Outbound GitHub API calls by API and result kind",
		},
		[]string{"api", "result"},
	)

	rateLimitRemaining = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dashboard_github_rate_limit_remaining",
			Help: "Last X-RateLimit-Remaining value seen from GitHub",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_http_requests_total",
			Help: "HTTP requests served by route and status",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dashboard_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	webhookEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_webhook_events_total",
			Help: "GitHub webhook deliveries by event type and result",
		},
		[]string{"event", "result"},
	)
)

func init() {
	prometheus.MustRegister(cacheResults)
	prometheus.MustRegister(githubRequests)
	prometheus.MustRegister(rateLimitRemaining)
	prometheus.MustRegister(httpRequests)
	prometheus.MustRegister(httpDuration)
	prometheus.MustRegister(webhookEvents)
}

// CacheResult counts one cached fetch with the given outcome label.
func CacheResult(outcome string) {
	cacheResults.WithLabelValues(outcome).Inc()
}

// GitHubRequest counts one outbound call. api is "graphql" or "rest".
func GitHubRequest(api, result string) {
	githubRequests.WithLabelValues(api, result).Inc()
}

// RateLimitRemaining records the latest remaining budget.
func RateLimitRemaining(remaining int) {
	rateLimitRemaining.Set(float64(remaining))
}

// HTTPRequest records one served request. route is the matched pattern, not
// the raw path.
func HTTPRequest(method, route, status string, elapsed time.Duration) {
	httpRequests.WithLabelValues(method, route, status).Inc()
	httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// WebhookEvent counts one webhook delivery. result is "accepted",
// "bad_signature" or "bad_payload".
func WebhookEvent(event, result string) {
	webhookEvents.WithLabelValues(event, result).Inc()
}
