package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bluewar"

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests received",
	}, []string{"method", "route", "status"})

	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	matchesIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "matches_ingested_total",
		Help:      "Matches recorded by the ingestion endpoint, by normalized mode",
	}, []string{"mode"})

	ingestFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ingest_failures_total",
		Help:      "Rejected or failed ingestion requests, by reason",
	}, []string{"reason"})

	seedRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "seed_runs_total",
		Help:      "Seed importer runs, by outcome (applied, unchanged, missing, error)",
	}, []string{"outcome"})

	rankingLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "ranking_compute_seconds",
		Help:      "Time spent aggregating the ranking",
		Buckets:   prometheus.DefBuckets,
	}, []string{"mode"})
)

// ObserveRequest records one finished HTTP request.
func ObserveRequest(method, route string, status int, elapsed time.Duration) {
	s := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, route, s).Inc()
	httpLatency.WithLabelValues(method, route, s).Observe(elapsed.Seconds())
}

func MatchIngested(mode string) {
	matchesIngested.WithLabelValues(mode).Inc()
}

func IngestFailed(reason string) {
	ingestFailures.WithLabelValues(reason).Inc()
}

func SeedRun(outcome string) {
	seedRuns.WithLabelValues(outcome).Inc()
}

func ObserveRanking(mode string, elapsed time.Duration) {
	rankingLatency.WithLabelValues(mode).Observe(elapsed.Seconds())
}

// Handler serves the default registry in the Prometheus text format.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
