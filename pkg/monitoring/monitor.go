package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	// 诊断域指标
	SessionsStarted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "diagnostic_sessions_started_total",
			Help: "Total number of diagnostic sessions started",
		},
	)

	SessionsCompleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "diagnostic_sessions_completed_total",
			Help: "Total number of diagnostic sessions completed",
		},
	)

	FormsRejected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "diagnostic_forms_rejected_total",
			Help: "Total number of diagnostic forms rejected by graph validation",
		},
	)

	// SessionDuration tracks learner-reported time per session, in seconds.
	SessionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "diagnostic_session_duration_seconds",
			Help:    "Accumulated response time of completed diagnostic sessions",
			Buckets: []float64{30, 60, 120, 300, 600, 1200},
		},
	)
)

func Init() {
	prometheus.MustRegister(RequestCounter)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(SessionsStarted)
	prometheus.MustRegister(SessionsCompleted)
	prometheus.MustRegister(FormsRejected)
	prometheus.MustRegister(SessionDuration)
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
