package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/vatwatch/vatwatch/internal/api"
	"github.com/vatwatch/vatwatch/internal/config"
	"github.com/vatwatch/vatwatch/internal/feed"
	"github.com/vatwatch/vatwatch/internal/storage/sqlite"
	"github.com/vatwatch/vatwatch/internal/tracker"
	"github.com/vatwatch/vatwatch/internal/websocket"
	"github.com/vatwatch/vatwatch/pkg/logger"
)

var (
	// Version is injected at build time
	Version = "dev"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to configuration file (optional - will search in configs/ and root directory)")
	flag.Parse()

	// Load configuration with fallback logic
	cfg, err := config.LoadWithFallback(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Create logger
	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting vatwatch server",
		logger.String("version", Version),
		logger.String("config_path", *configPath),
	)

	// Create SQLite archive storage
	var archive *sqlite.ArchiveStorage
	if cfg.Storage.Type == "sqlite" {
		// Generate today's database filename
		today := time.Now().Format("2006-01-02")
		dbFilename := fmt.Sprintf("vatwatch-%s.db", today)
		dbPath := filepath.Join(cfg.Storage.SQLiteBasePath, dbFilename)

		// Ensure the directory exists
		if err := os.MkdirAll(cfg.Storage.SQLiteBasePath, 0755); err != nil {
			log.Error("Failed to create database directory", logger.Error(err), logger.String("path", cfg.Storage.SQLiteBasePath))
			os.Exit(1)
		}

		log.Info("Using daily database", logger.String("path", dbPath))

		archive, err = sqlite.NewArchiveStorage(dbPath, cfg.Storage.MaxTrailPointsAPI, log)
		if err != nil {
			log.Error("Failed to create SQLite storage", logger.Error(err))
			os.Exit(1)
		}
		defer archive.Close()
	} else {
		log.Info("Archive storage disabled", logger.String("type", cfg.Storage.Type))
	}

	// Create WebSocket server
	wsServer := websocket.NewServer(log)

	// Start WebSocket server
	go wsServer.Run()

	// Create tracker service
	trackerCfg := tracker.Config{
		TrailMaxLength:            cfg.Tracker.TrailMaxLength,
		TrailWhileGrounded:        cfg.Tracker.TrailWhileGrounded,
		TrailPrecisionDecimals:    cfg.Tracker.TrailPrecisionDecimals,
		GroundedSpeedThresholdKts: cfg.Tracker.GroundedSpeedThresholdKts,
		GroundedHeightAGLFt:       cfg.Tracker.GroundedHeightAGLFt,
		AirportVicinityNM:         cfg.Tracker.AirportVicinityNM,
	}

	var trackerStorage tracker.Storage
	if archive != nil {
		trackerStorage = archive
	}

	var trackerWS tracker.WebSocketServer
	if cfg.Feed.WebSocketFeedUpdates {
		trackerWS = wsServer
	}

	trackerService := tracker.NewService(trackerCfg, trackerStorage, trackerWS, nil, log)

	// Create feed components
	feedClient := feed.NewClient(
		cfg.Feed.URL,
		time.Duration(cfg.Feed.RequestTimeoutSecs)*time.Second,
		log,
	)
	feedParser := feed.NewParser(cfg.Feed.UpdateHistoryMax, log)
	var feedWS feed.Broadcaster
	if cfg.Feed.WebSocketFeedUpdates {
		feedWS = wsServer
	}
	feedService := feed.NewService(
		feedClient,
		feedParser,
		trackerService,
		time.Duration(cfg.Feed.FetchIntervalSecs)*time.Second,
		feedWS,
		log,
	)

	// Start feed service
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := feedService.Start(ctx); err != nil {
		log.Error("Failed to start feed service", logger.Error(err))
		os.Exit(1)
	}

	// Schedule archive retention sweeps
	var scheduler *cron.Cron
	if archive != nil && cfg.Storage.RetentionHours > 0 {
		scheduler = cron.New()
		retention := time.Duration(cfg.Storage.RetentionHours) * time.Hour
		_, err := scheduler.AddFunc(cfg.Storage.CleanupSchedule, func() {
			cutoff := time.Now().UTC().Add(-retention)
			deleted, err := archive.DeleteOlderThan(cutoff)
			if err != nil {
				log.Error("Archive retention sweep failed", logger.Error(err))
				return
			}
			log.Info("Archive retention sweep completed",
				logger.Int64("waypoints_deleted", deleted),
				logger.Time("cutoff", cutoff))
		})
		if err != nil {
			log.Error("Failed to schedule retention sweep",
				logger.String("schedule", cfg.Storage.CleanupSchedule),
				logger.Error(err))
			os.Exit(1)
		}
		scheduler.Start()
		log.Info("Scheduled archive retention sweep",
			logger.String("schedule", cfg.Storage.CleanupSchedule),
			logger.Int("retention_hours", cfg.Storage.RetentionHours))
	}

	// Create API router
	router := api.NewRouter(trackerService, feedService, archive, cfg, log, wsServer)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router.Routes(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSecs) * time.Second,
	}

	go func() {
		log.Info("Starting HTTP server", logger.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error on startup", logger.String("addr", server.Addr), logger.Error(err))
		}
	}()

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("Shutting down server...")

	if scheduler != nil {
		log.Info("Stopping retention scheduler...")
		schedCtx := scheduler.Stop()
		<-schedCtx.Done()
		log.Info("Retention scheduler stopped.")
	}

	log.Info("Stopping feed service...")
	feedService.Stop()
	log.Info("Feed service stopped.")

	// Cancel the main context
	cancel()

	// Shutdown the HTTP server
	log.Info("Shutting down HTTP server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", logger.Error(err))
	} else {
		log.Info("HTTP server shutdown complete")
	}

	wsServer.Close()

	log.Info("Server fully stopped")
}
