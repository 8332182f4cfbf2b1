package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry = prometheus.NewRegistry()

	jobsSubmittedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audit_jobs_submitted_total",
		Help: "Total audit jobs submitted",
	})
	jobsClaimedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audit_jobs_claimed_total",
		Help: "Total audit jobs claimed by a worker",
	})
	jobsCompletedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audit_jobs_completed_total",
		Help: "Total audit jobs completed",
	})
	jobsFailedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audit_jobs_failed_total",
		Help: "Total audit jobs failed",
	})
	sectionsScoredTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "audit_sections_scored_total",
		Help: "Sections sent to the scoring oracle by outcome",
	}, []string{"outcome"})
	oracleRetriesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audit_oracle_retries_total",
		Help: "Scoring oracle retry attempts",
	})
	reportsPurgedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audit_reports_purged_total",
		Help: "Report payloads purged by retention cleanup",
	})
	reportsRegeneratedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audit_reports_regenerated_total",
		Help: "Reports regenerated on download after a purge",
	})
	httpPanicsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "http_panics_total",
		Help: "Handler panics recovered by the API",
	})
	rateLimitedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_rate_limited_total",
		Help: "Requests refused by the rate limiter per route group",
	}, []string{"group"})
	jobDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "audit_job_duration_ms",
		Help:    "Audit job processing duration in milliseconds",
		Buckets: []float64{1000, 5000, 10000, 30000, 60000, 120000, 300000, 600000},
	})
)

func init() {
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		jobsSubmittedTotal,
		jobsClaimedTotal,
		jobsCompletedTotal,
		jobsFailedTotal,
		sectionsScoredTotal,
		oracleRetriesTotal,
		reportsPurgedTotal,
		reportsRegeneratedTotal,
		httpPanicsTotal,
		rateLimitedTotal,
		jobDuration,
	)
}

// IncJobsSubmitted increments the submitted counter.
func IncJobsSubmitted() { jobsSubmittedTotal.Inc() }

// IncJobsClaimed increments the claimed counter.
func IncJobsClaimed() { jobsClaimedTotal.Inc() }

// IncJobsCompleted increments the completed counter.
func IncJobsCompleted() { jobsCompletedTotal.Inc() }

// IncJobsFailed increments the failed counter.
func IncJobsFailed() { jobsFailedTotal.Inc() }

// IncSectionScored records one section outcome ("ok" or "failed").
func IncSectionScored(outcome string) { sectionsScoredTotal.WithLabelValues(outcome).Inc() }

// IncOracleRetry increments the oracle retry counter.
func IncOracleRetry() { oracleRetriesTotal.Inc() }

// AddReportsPurged adds n purged report payloads.
func AddReportsPurged(n int64) {
	if n > 0 {
		reportsPurgedTotal.Add(float64(n))
	}
}

// IncReportsRegenerated increments the regenerated-report counter.
func IncReportsRegenerated() { reportsRegeneratedTotal.Inc() }

// IncHTTPPanic increments the recovered-panic counter.
func IncHTTPPanic() { httpPanicsTotal.Inc() }

// IncRateLimited records one refused request for group.
func IncRateLimited(group string) { rateLimitedTotal.WithLabelValues(group).Inc() }

// ObserveJobDurationMs records a job duration in milliseconds.
func ObserveJobDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	jobDuration.Observe(value)
}

// Registry exposes the private registry for tests and custom exporters.
func Registry() *prometheus.Registry { return registry }

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
