package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and records
// nothing, so services can be built without it in tests.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Business metrics
	LeadsAssigned       prometheus.Counter
	LeadCallsLogged     prometheus.Counter
	CallStatsLogged     *prometheus.CounterVec
	LoginAttempts       *prometheus.CounterVec
	CampaignsRecomputed prometheus.Counter
}

// New registers every metric on reg. Pass prometheus.NewRegistry() in tests
// to avoid duplicate registration on the global registry.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		LeadsAssigned: f.NewCounter(prometheus.CounterOpts{
			Name: "leads_assigned_total",
			Help: "Total number of leads inserted and assigned to agents",
		}),
		LeadCallsLogged: f.NewCounter(prometheus.CounterOpts{
			Name: "lead_calls_logged_total",
			Help: "Total number of call activities logged on leads",
		}),
		CallStatsLogged: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "call_stats_logged_total",
				Help: "Total number of call outcomes logged",
			},
			[]string{"type"}, // in, out, missed
		),
		LoginAttempts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "login_attempts_total",
				Help: "Total number of login attempts",
			},
			[]string{"status"}, // success, failed
		),
		CampaignsRecomputed: f.NewCounter(prometheus.CounterOpts{
			Name: "campaigns_recomputed_total",
			Help: "Total number of campaign progress recounts",
		}),
	}
}

// Middleware records request counts and latency by route pattern.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method
		m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordLeadsAssigned(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.LeadsAssigned.Add(float64(n))
}

func (m *Metrics) RecordLeadCall() {
	if m == nil {
		return
	}
	m.LeadCallsLogged.Inc()
}

func (m *Metrics) RecordCallStat(callType string) {
	if m == nil {
		return
	}
	m.CallStatsLogged.WithLabelValues(callType).Inc()
}

func (m *Metrics) RecordLoginAttempt(success bool) {
	if m == nil {
		return
	}
	status := "failed"
	if success {
		status = "success"
	}
	m.LoginAttempts.WithLabelValues(status).Inc()
}

func (m *Metrics) RecordRecompute(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.CampaignsRecomputed.Add(float64(n))
}
