package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "placements_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "placements_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	bedSearchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "placements_bed_searches_total",
		Help: "Count of bed searches by service and outcome",
	}, []string{"service", "result"})

	userResolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "placements_user_resolutions_total",
		Help: "Count of staff-directory user resolutions by outcome",
	}, []string{"result"})

	staffSyncRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "placements_staff_sync_runs_total",
		Help: "Count of background staff sync operations by result",
	}, []string{"result"})

	staffSyncDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "placements_staff_sync_duration_seconds",
		Help:    "Duration of one background staff sync pass",
		Buckets: prometheus.DefBuckets,
	})
)

// ObserveHTTPRequest records an HTTP request with its duration
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveBedSearch records one bed search outcome
func ObserveBedSearch(service, result string) {
	bedSearchesTotal.WithLabelValues(service, result).Inc()
}

// ObserveUserResolution records one user resolution outcome
func ObserveUserResolution(result string) {
	userResolutionsTotal.WithLabelValues(result).Inc()
}

// ObserveStaffSync records one background sync of a user
func ObserveStaffSync(result string) {
	staffSyncRuns.WithLabelValues(result).Inc()
}

// ObserveStaffSyncPass records the duration of a whole sync pass
func ObserveStaffSyncPass(duration time.Duration) {
	staffSyncDuration.Observe(duration.Seconds())
}
