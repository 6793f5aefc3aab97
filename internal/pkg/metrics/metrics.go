package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "topagune",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "topagune",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"method", "path"})

	// Synthesis metrics
	Syntheses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "topagune",
		Subsystem: "synthesis",
		Name:      "runs_total",
		Help:      "Total itinerary synthesis runs by outcome",
	}, []string{"status"})

	SynthesisDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "topagune",
		Subsystem: "synthesis",
		Name:      "run_duration_seconds",
		Help:      "End-to-end duration of a synthesis run",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
	})

	MeetingPointResolutions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "topagune",
		Subsystem: "synthesis",
		Name:      "meeting_point_resolutions_total",
		Help:      "Total meeting-point resolutions",
	})

	// External provider metrics
	VenueSearches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "topagune",
		Subsystem: "providers",
		Name:      "venue_searches_total",
		Help:      "Total venue search calls to the places provider",
	}, []string{"operation"})

	VenueSearchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "topagune",
		Subsystem: "providers",
		Name:      "venue_search_errors_total",
		Help:      "Total venue search failures",
	}, []string{"operation"})

	TravelLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "topagune",
		Subsystem: "providers",
		Name:      "travel_lookups_total",
		Help:      "Total travel-time lookups by mode",
	}, []string{"mode"})

	TravelFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "topagune",
		Subsystem: "providers",
		Name:      "travel_fallbacks_total",
		Help:      "Travel-time lookups that degraded to a haversine estimate",
	}, []string{"mode"})

	// Cache metrics
	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "topagune",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "topagune",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})

	// Database pool metrics
	DBPoolConnsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "topagune",
		Subsystem: "db",
		Name:      "pool_conns_open",
		Help:      "Total connections open in the database pool",
	})

	DBPoolConnsAcquired = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "topagune",
		Subsystem: "db",
		Name:      "pool_conns_acquired",
		Help:      "Connections currently acquired from the database pool",
	})

	DBPoolConnsIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "topagune",
		Subsystem: "db",
		Name:      "pool_conns_idle",
		Help:      "Idle connections in the database pool",
	})
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)

		return err
	}
}

// Handler returns a Fiber handler serving the Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}

// UpdateDBPoolMetrics updates database pool gauges from pgx pool stats.
func UpdateDBPoolMetrics(stat interface{}) {
	type poolStat interface {
		AcquiredConns() int32
		IdleConns() int32
		TotalConns() int32
	}

	if s, ok := stat.(poolStat); ok {
		DBPoolConnsAcquired.Set(float64(s.AcquiredConns()))
		DBPoolConnsIdle.Set(float64(s.IdleConns()))
		DBPoolConnsOpen.Set(float64(s.TotalConns()))
	}
}
