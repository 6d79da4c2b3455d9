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

	// QuizSubmissions 按结果统计测验提交: ok / rejected / failed
	QuizSubmissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "progress_quiz_submissions_total",
			Help: "Quiz submissions by outcome",
		},
		[]string{"outcome"},
	)

	AnswersGraded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "progress_answers_graded_total",
			Help: "Graded answers by question type and correctness",
		},
		[]string{"type", "correct"},
	)

	BestEffortFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "progress_best_effort_failures_total",
			Help: "Post-grading gamification steps that failed and were skipped",
		},
		[]string{"step"},
	)

	ErrorBookGraduations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "progress_error_book_graduations_total",
			Help: "Error book entries removed after reaching the mastery threshold",
		},
	)

	RewardsClaimed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "progress_daily_rewards_claimed_total",
			Help: "Daily task rewards claimed by task type",
		},
		[]string{"type"},
	)
)

var registerOnce sync.Once

func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDuration,
			QuizSubmissions,
			AnswersGraded,
			BestEffortFailures,
			ErrorBookGraduations,
			RewardsClaimed,
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
