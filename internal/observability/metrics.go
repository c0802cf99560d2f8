package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookmarket_http_requests_total",
			Help: "Total number of HTTP requests processed by the marketplace.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bookmarket_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	wsActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bookmarket_ws_active_connections",
			Help: "Number of active chat websocket connections.",
		},
	)
	wsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookmarket_ws_events_total",
			Help: "Total number of chat websocket events.",
		},
		[]string{"event"},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bookmarket_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
	searchOutboxProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookmarket_search_outbox_processed_total",
			Help: "Total number of search outbox entries applied to the index.",
		},
		[]string{"op"},
	)
	searchOutboxFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bookmarket_search_outbox_failures_total",
			Help: "Total number of failed search outbox attempts.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		wsActiveConnections,
		wsEventsTotal,
		amqpPublishErrorsTotal,
		searchOutboxProcessedTotal,
		searchOutboxFailuresTotal,
	)
}

func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func IncWSActive() {
	wsActiveConnections.Inc()
}

func DecWSActive() {
	wsActiveConnections.Dec()
}

func IncWSEvent(event string) {
	wsEventsTotal.WithLabelValues(event).Inc()
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}

func IncOutboxProcessed(op string) {
	searchOutboxProcessedTotal.WithLabelValues(op).Inc()
}

func IncOutboxFailure() {
	searchOutboxFailuresTotal.Inc()
}
