package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "HTTP requests by path, method and status"},
		[]string{"path", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request latency in seconds", Buckets: prometheus.DefBuckets},
		[]string{"path", "method"},
	)
	BacktestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "backtests_total", Help: "Backtests run, by outcome"},
		[]string{"outcome"},
	)
	BacktestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "backtest_duration_seconds", Help: "Backtest wall time in seconds", Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}},
	)
	MarketDataErrors = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "market_data_errors_total", Help: "Failed market data lookups"},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequests, HTTPLatency, BacktestsTotal, BacktestDuration, MarketDataErrors)
}

// Handler returns middleware recording request counts and latency.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		dur := time.Since(start).Seconds()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		HTTPLatency.WithLabelValues(path, c.Request.Method).Observe(dur)
		HTTPRequests.WithLabelValues(path, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

// Exposer returns the standard Prometheus exposition handler.
func Exposer() gin.HandlerFunc { return gin.WrapH(promhttp.Handler()) }
