package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/aldatz/topagune/internal/pkg/metrics"
)

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	// Response compression (gzip)
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed, // Balance speed vs compression ratio
	}))

	// Request ID
	app.Use(requestid.New())

	// Propagate request ID into slog context
	app.Use(RequestIDLogMiddleware())

	// Access logs (structured HTTP request logging)
	app.Use(AccessLogMiddleware())

	// Rate limiting: 120 requests per minute per IP
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(429).JSON(fiber.Map{
				"error":   "rate limit exceeded",
				"message": "too many requests, please try again later",
			})
		},
		SkipFailedRequests: false,
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	// ETag for conditional caching
	app.Use(ETagMiddleware())

	// Default Cache-Control headers
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout, fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	// REST API v1
	v1 := app.Group("/v1")
	v1.Post("/meetings", timeout.NewWithContext(CreateMeetingHandler(deps), 15*time.Second))
	v1.Get("/meetings/:id", timeout.NewWithContext(GetMeetingHandler(deps), 15*time.Second))
	v1.Post("/meetings/:id/participants", timeout.NewWithContext(AddParticipantHandler(deps), 15*time.Second))
	v1.Get("/meetings/:id/participants", timeout.NewWithContext(ListParticipantsHandler(deps), 15*time.Second))
	v1.Post("/meetings/:id/meeting-point", timeout.NewWithContext(ResolveMeetingPointHandler(deps), 30*time.Second))
	v1.Get("/meetings/:id/itinerary", timeout.NewWithContext(GetItineraryHandler(deps), 15*time.Second))

	// Synthesis fans out to external providers, so a generous timeout
	v1.Post("/meetings/:id/itinerary", timeout.NewWithContext(BuildItineraryHandler(deps), 60*time.Second))

	// Ad-hoc meeting-point resolution (no meeting required)
	v1.Post("/meeting-points/resolve", timeout.NewWithContext(ResolvePointHandler(deps), 30*time.Second))

	// Venue discovery
	v1.Get("/venues/nearby", timeout.NewWithContext(NearbyVenuesHandler(deps), 15*time.Second))

	// Operational stats
	v1.Get("/network/stats", timeout.NewWithContext(NetworkStatsHandler(deps), 15*time.Second))

	// GraphQL
	app.Post("/graphql", GraphQLHandler(deps))

	// API documentation (Swagger UI)
	SetupDocs(app)

	// WebSocket. The broker connection is optional at startup, so without
	// one the upgrade is refused instead of crashing the relay goroutine.
	app.Use("/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		if deps.NATS == nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, "event stream unavailable")
		}
		return c.Next()
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS)))
}
