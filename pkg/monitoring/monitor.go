package monitoring

import (
	"strconv"
	"sync"
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

	XPAwarded = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gamification_xp_awarded_total",
		Help: "Total XP awarded for answers",
	})

	AnswersRecorded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gamification_answers_total",
			Help: "Answers recorded by correctness",
		},
		[]string{"correct"},
	)

	LevelUps = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gamification_level_ups_total",
		Help: "Number of level-up transitions",
	})

	BadgesAwarded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gamification_badges_awarded_total",
			Help: "Badges awarded by type",
		},
		[]string{"badge"},
	)

	BadgeEvaluationFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gamification_badge_evaluation_failures_total",
		Help: "Badge evaluations that failed and were queued for retry",
	})

	StoreConflicts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gamification_store_conflicts_total",
		Help: "Optimistic-lock conflicts on user progress writes",
	})
)

var initOnce sync.Once

func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDuration,
			XPAwarded,
			AnswersRecorded,
			LevelUps,
			BadgesAwarded,
			BadgeEvaluationFailures,
			StoreConflicts,
		)
	})
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
