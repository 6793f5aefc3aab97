package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/aldatz/topagune/internal/adapters/directions"
	"github.com/aldatz/topagune/internal/adapters/http"
	natsadapter "github.com/aldatz/topagune/internal/adapters/nats"
	"github.com/aldatz/topagune/internal/adapters/places"
	"github.com/aldatz/topagune/internal/adapters/postgres"
	"github.com/aldatz/topagune/internal/adapters/valkey"
	"github.com/aldatz/topagune/internal/core/ports"
	"github.com/aldatz/topagune/internal/core/roadnet"
	"github.com/aldatz/topagune/internal/core/usecases"
	"github.com/aldatz/topagune/internal/pkg/config"
	"github.com/aldatz/topagune/internal/pkg/logging"
	"github.com/aldatz/topagune/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("topagune-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup(logLevel, "json")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Road network, required for meeting-point resolution
	graph, err := roadnet.Load(cfg.RoadNetwork.DatasetPath)
	if err != nil {
		log.Fatalf("road network: %v", err)
	}
	slog.Info("road network loaded",
		"path", cfg.RoadNetwork.DatasetPath,
		"nodes", graph.NodeCount(),
		"edges", graph.EdgeCount())

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	go db.ReportPoolMetrics(ctx, 15*time.Second)

	// Cache
	var cacheSvc ports.CacheService
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		defer cache.Close()
		cacheSvc = cache
	}

	// NATS
	var events ports.EventPublisher
	publisher, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		defer publisher.Close()
		events = publisher
	}

	// Raw NATS connection for WebSocket relay
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	}

	// External providers
	placesClient := places.New(cfg.Places.BaseURL, cfg.Places.APIKey,
		time.Duration(cfg.Places.TimeoutSec)*time.Second)
	directionsClient := directions.New(cfg.Directions.BaseURL, cfg.Directions.APIKey,
		time.Duration(cfg.Directions.TimeoutSec)*time.Second)

	// Repos
	meetingRepo := postgres.NewMeetingRepo(db)
	itineraryRepo := postgres.NewItineraryRepo(db)

	// Use cases
	synthCfg := usecases.SynthesisConfig{
		Lambda:                  cfg.Synthesis.Lambda,
		TopCourses:              cfg.Synthesis.TopCourses,
		CandidatesPerStep:       cfg.Synthesis.CandidatesPerStep,
		SearchRadiusM:           cfg.Synthesis.SearchRadiusM,
		MinCandidateSeparationM: cfg.Synthesis.MinCandidateSeparationM,
		SnapRadiusM:             cfg.RoadNetwork.SnapRadiusM,
		WalkingSpeedKmh:         cfg.Synthesis.WalkingSpeedKmh,
		RestaurantGapMin:        cfg.Synthesis.RestaurantGapMin,
		MinVenueRating:          cfg.Synthesis.MinVenueRating,
		ExternalTimeout:         time.Duration(cfg.Places.TimeoutSec) * time.Second,
		FullScanNodeLimit:       cfg.Synthesis.FullScanNodeLimit,
	}

	venueSvc := usecases.NewVenueSearchService(placesClient, cacheSvc)
	adjuster := usecases.NewBusyAreaAdjuster(venueSvc, usecases.DefaultBusyAreaConfig())
	meetingPointSvc := usecases.NewMeetingPointService(
		graph, adjuster, placesClient, meetingRepo, itineraryRepo, events, synthCfg)
	assembler := usecases.NewAssembler(venueSvc, directionsClient, synthCfg)
	synthesisSvc := usecases.NewSynthesisService(
		meetingRepo, itineraryRepo, venueSvc, assembler, events, synthCfg)
	meetingSvc := usecases.NewMeetingService(meetingRepo, itineraryRepo)

	deps := &http.Dependencies{
		Meetings:      meetingSvc,
		MeetingPoints: meetingPointSvc,
		Synthesis:     synthesisSvc,
		Venues:        venueSvc,
		Graph:         graph,
		NATS:          natsConn,
		DB:            db,
		Cache:         cache,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "Topagune API",
	})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173",
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
