// internal/metrics/metrics.go
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the service's Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "placement",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "placement",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "placement",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)

	transitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "placement",
			Subsystem: "applications",
			Name:      "transitions_total",
			Help:      "Committed application status transitions.",
		},
		[]string{"from", "to", "cascade"},
	)

	applicationsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "placement",
			Subsystem: "applications",
			Name:      "created_total",
			Help:      "Applications submitted by students.",
		},
	)

	reveals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "placement",
			Subsystem: "reveal",
			Name:      "accesses_total",
			Help:      "Candidate profile accesses by trigger and outcome.",
		},
		[]string{"trigger", "outcome"},
	)

	tokensDebited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "placement",
			Subsystem: "wallet",
			Name:      "tokens_debited_total",
			Help:      "Tokens debited from company wallets for reveals.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		transitions,
		applicationsCreated,
		reveals,
		tokensDebited,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler exposes the registered collectors.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latencies keyed by the matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

func RecordTransition(from, to string, cascade bool) {
	transitions.WithLabelValues(from, to, strconv.FormatBool(cascade)).Inc()
}

func RecordApplicationCreated() {
	applicationsCreated.Inc()
}

// RecordReveal counts a profile access; outcome is "free", "charged" or "denied".
func RecordReveal(trigger, outcome string) {
	reveals.WithLabelValues(trigger, outcome).Inc()
}

func RecordDebit(tokens int64) {
	if tokens > 0 {
		tokensDebited.Add(float64(tokens))
	}
}
