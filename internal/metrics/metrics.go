package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Sweep outcomes recorded per video.
const (
	SweepDeleted     = "deleted"
	SweepBlobFailed  = "blob_failed"
	SweepRowFailed   = "row_failed"
	SweepAlreadyGone = "already_gone"
)

var (
	sharesCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "clipvault_shares_created_total",
		Help: "Total number of share links issued",
	})

	shareCodeCollisions = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "clipvault_share_code_collisions_total",
		Help: "Share code inserts rejected by the uniqueness constraint",
	})

	shareCodeExhausted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "clipvault_share_code_exhausted_total",
		Help: "Share creations that ran out of collision retries",
	})

	viewsRecorded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "clipvault_views_total",
		Help: "Public view increments by outcome",
	}, []string{"outcome"})

	sweepVideos = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "clipvault_sweep_videos_total",
		Help: "Videos visited by the retention sweeper by result",
	}, []string{"result"})

	sweepDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "clipvault_sweep_duration_seconds",
		Help:    "Duration of retention sweeps in seconds",
		Buckets: prometheus.DefBuckets,
	})

	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "clipvault_http_requests_total",
		Help: "HTTP requests by route template and status code",
	}, []string{"route", "status"})
)

func init() {
	prometheus.MustRegister(sharesCreated)
	prometheus.MustRegister(shareCodeCollisions)
	prometheus.MustRegister(shareCodeExhausted)
	prometheus.MustRegister(viewsRecorded)
	prometheus.MustRegister(sweepVideos)
	prometheus.MustRegister(sweepDurationSeconds)
	prometheus.MustRegister(httpRequests)
}

// ShareCreated counts a successfully issued share.
func ShareCreated() { sharesCreated.Inc() }

// ShareCodeCollision counts one uniqueness rejection during share creation.
func ShareCodeCollision() { shareCodeCollisions.Inc() }

// ShareCodeExhausted counts a share creation that gave up retrying.
func ShareCodeExhausted() { shareCodeExhausted.Inc() }

// ViewRecorded counts a view attempt; counted is false for silent no-ops.
func ViewRecorded(counted bool) {
	if counted {
		viewsRecorded.WithLabelValues("counted").Inc()
		return
	}
	viewsRecorded.WithLabelValues("ignored").Inc()
}

// SweepVideo counts one sweeper visit with one of the Sweep* results.
func SweepVideo(result string) { sweepVideos.WithLabelValues(result).Inc() }

// ObserveSweep records the wall time of a sweep run.
func ObserveSweep(seconds float64) { sweepDurationSeconds.Observe(seconds) }

// HTTPRequest counts a served request.
func HTTPRequest(route, status string) { httpRequests.WithLabelValues(route, status).Inc() }

// Handler exposes the default registry in the Prometheus text format.
func Handler() http.Handler { return promhttp.Handler() }
