package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the portal.
type Metrics struct {
	// Sync metrics
	SyncRuns          *prometheus.CounterVec
	SyncDuration      *prometheus.HistogramVec
	CampaignsFetched  *prometheus.CounterVec
	CampaignWrites    *prometheus.CounterVec
	BreakdownMisses   *prometheus.CounterVec
	LastSyncTimestamp *prometheus.GaugeVec

	// Upstream metrics
	UpstreamRequests *prometheus.CounterVec
	UpstreamLatency  *prometheus.HistogramVec
	UpstreamRetries  *prometheus.CounterVec

	// Purge metrics
	PurgeDeleted prometheus.Counter
	PurgeBatches prometheus.Counter

	// HTTP metrics
	HTTPRequests  *prometheus.CounterVec
	RateLimitHits *prometheus.CounterVec

	// System metrics
	DBConnections *prometheus.GaugeVec
}

// NewMetrics creates and registers all Prometheus metrics on reg. A nil reg
// registers on the default registry.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		SyncRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sync_runs_total",
				Help:      "Campaign sync runs by window and outcome",
			},
			[]string{"window", "outcome"},
		),
		SyncDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "sync_duration_seconds",
				Help:      "End-to-end campaign sync duration",
				Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"window"},
		),
		CampaignsFetched: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sync_campaigns_fetched_total",
				Help:      "Campaigns returned by the ad platform",
			},
			[]string{"window"},
		),
		CampaignWrites: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sync_campaign_writes_total",
				Help:      "Campaign writes performed by sync, by action",
			},
			[]string{"action"}, // insert, update, zero, pause
		),
		BreakdownMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sync_breakdown_unavailable_total",
				Help:      "Breakdown calls that failed at transport level",
			},
			[]string{"breakdown"},
		),
		LastSyncTimestamp: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "sync_last_success_timestamp_seconds",
				Help:      "Unix time of the last successful sync per client",
			},
			[]string{"client_id"},
		),

		UpstreamRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upstream_requests_total",
				Help:      "Ad platform requests by endpoint and status",
			},
			[]string{"endpoint", "status"},
		),
		UpstreamLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "upstream_latency_seconds",
				Help:      "Ad platform request latency",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"endpoint"},
		),
		UpstreamRetries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upstream_retries_total",
				Help:      "Retried ad platform requests",
			},
			[]string{"endpoint"},
		),

		PurgeDeleted: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "purge_deleted_total",
				Help:      "Campaign records removed by bulk purge",
			},
		),
		PurgeBatches: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "purge_batches_total",
				Help:      "Committed bulk purge batches",
			},
		),

		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by route and status code",
			},
			[]string{"method", "route", "code"},
		),
		RateLimitHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_hits_total",
				Help:      "Rate limit rejections",
			},
			[]string{"limiter"},
		),

		DBConnections: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "db_connections",
				Help:      "Database connection pool stats",
			},
			[]string{"state"}, // idle, in_use, total
		),
	}
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordSync records the outcome and duration of one sync run.
func (m *Metrics) RecordSync(window, outcome string, took time.Duration) {
	m.SyncRuns.WithLabelValues(window, outcome).Inc()
	m.SyncDuration.WithLabelValues(window).Observe(took.Seconds())
}

// RecordFetched records how many campaigns the platform returned.
func (m *Metrics) RecordFetched(window string, n int) {
	m.CampaignsFetched.WithLabelValues(window).Add(float64(n))
}

// RecordWrites records campaign writes for one action.
func (m *Metrics) RecordWrites(action string, n int) {
	if n > 0 {
		m.CampaignWrites.WithLabelValues(action).Add(float64(n))
	}
}

// RecordBreakdownMiss records a breakdown call lost to a transport failure.
func (m *Metrics) RecordBreakdownMiss(breakdown string) {
	m.BreakdownMisses.WithLabelValues(breakdown).Inc()
}

// MarkSyncSuccess stamps the last successful sync time for a client.
func (m *Metrics) MarkSyncSuccess(clientID string, at time.Time) {
	m.LastSyncTimestamp.WithLabelValues(clientID).Set(float64(at.Unix()))
}

// RecordUpstream records one ad platform request.
func (m *Metrics) RecordUpstream(endpoint string, status int, latency time.Duration) {
	m.UpstreamRequests.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
	m.UpstreamLatency.WithLabelValues(endpoint).Observe(latency.Seconds())
}

// RecordUpstreamRetry records a retried request.
func (m *Metrics) RecordUpstreamRetry(endpoint string) {
	m.UpstreamRetries.WithLabelValues(endpoint).Inc()
}

// RecordPurgeBatch records one committed purge batch.
func (m *Metrics) RecordPurgeBatch(deleted int) {
	m.PurgeBatches.Inc()
	m.PurgeDeleted.Add(float64(deleted))
}

// RecordHTTPRequest records a served request.
func (m *Metrics) RecordHTTPRequest(method, route string, code int) {
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
}

// RecordRateLimitHit records a rate limit hit.
func (m *Metrics) RecordRateLimitHit(limiter string) {
	m.RateLimitHits.WithLabelValues(limiter).Inc()
}

// UpdateDBStats updates database connection metrics.
func (m *Metrics) UpdateDBStats(idle, inUse, total int) {
	m.DBConnections.WithLabelValues("idle").Set(float64(idle))
	m.DBConnections.WithLabelValues("in_use").Set(float64(inUse))
	m.DBConnections.WithLabelValues("total").Set(float64(total))
}
