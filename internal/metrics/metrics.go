package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Project/milestone lifecycle transitions, labelled by entity and
	// resulting status.
	Transitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lifecycle_transitions_total",
			Help: "State machine transitions applied",
		},
		[]string{"entity", "to"},
	)

	TransitionConflicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lifecycle_transition_conflicts_total",
			Help: "Transitions rejected by the optimistic version check",
		},
		[]string{"entity"},
	)

	FanoutEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fanout_events_total",
			Help: "Events broadcast to the realtime transport",
		},
		[]string{"type"},
	)

	FanoutDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fanout_dropped_total",
			Help: "Events that could not reach the realtime transport",
		},
		[]string{"type"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)
)

// GinMiddleware records request durations per route.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			path,
			strconv.Itoa(c.Writer.Status()),
		).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the /metrics endpoint.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
