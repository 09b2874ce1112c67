// Package observability holds the client's Prometheus collectors.
package observability

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	backendRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backend_requests_total",
			Help: "Total number of backend calls by operation and status.",
		},
		[]string{"op", "status"},
	)

	backendRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "backend_request_duration_seconds",
			Help:    "Duration of backend calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 14), // 5ms to ~80s
		},
		[]string{"op", "status"},
	)

	layerResolutionTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "layer_resolution_total",
			Help: "Layer list resolutions by terminal outcome.",
		},
		[]string{"outcome"},
	)

	layerRetryAttempts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "layer_resolution_retries_total",
			Help: "Scheduled retries of the live layer fetch.",
		},
	)

	cacheOpTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_op_total",
			Help: "Layer cache slot operations by result.",
		},
		[]string{"op", "driver", "result"},
	)

	cacheOpDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cache_operation_duration_seconds",
			Help:    "Duration of layer cache slot operations.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"op", "driver"},
	)

	submissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "report_submissions_total",
			Help: "Report submissions by outcome (rejected = local validation).",
		},
		[]string{"outcome"},
	)

	buildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_build_info",
			Help: "Build information for the binary.",
		},
		[]string{"version"},
	)
)

func collectors() []prometheus.Collector {
	return []prometheus.Collector{
		backendRequestsTotal,
		backendRequestDurationSeconds,
		layerResolutionTotal,
		layerRetryAttempts,
		cacheOpTotal,
		cacheOpDurationSeconds,
		submissionsTotal,
		buildInfo,
	}
}

// Init additionally registers the collectors on reg. Collectors always live
// in the default registry.
func Init(reg prometheus.Registerer) error {
	if reg == nil {
		return nil
	}
	for _, c := range collectors() {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return nil
}

// status 0 means the call never produced a response
func ObserveBackend(op string, status int, durationSeconds float64) {
	st := "transport_error"
	if status > 0 {
		st = strconv.Itoa(status)
	}
	backendRequestsTotal.WithLabelValues(op, st).Inc()
	backendRequestDurationSeconds.WithLabelValues(op, st).Observe(durationSeconds)
}

func IncResolution(outcome string) {
	layerResolutionTotal.WithLabelValues(outcome).Inc()
}

func IncRetry() {
	layerRetryAttempts.Inc()
}

func ObserveCacheOp(op, driver string, err error, durationSeconds float64) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	cacheOpTotal.WithLabelValues(op, driver, result).Inc()
	cacheOpDurationSeconds.WithLabelValues(op, driver).Observe(durationSeconds)
}

func IncCacheResult(driver string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheOpTotal.WithLabelValues("get", driver, result).Inc()
}

func IncSubmission(outcome string) {
	submissionsTotal.WithLabelValues(outcome).Inc()
}

func ExposeBuildInfo(version string) {
	if version == "" {
		version = "dev"
	}
	buildInfo.WithLabelValues(version).Set(1)
}
