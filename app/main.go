package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/rss-soup/app/api"
	"github.com/lysyi3m/rss-soup/app/cfg"
	"github.com/lysyi3m/rss-soup/app/database"
	"github.com/lysyi3m/rss-soup/app/feed"
	"github.com/lysyi3m/rss-soup/app/graph"
	"github.com/lysyi3m/rss-soup/app/ingest"
	"github.com/lysyi3m/rss-soup/app/recommend"
	"github.com/lysyi3m/rss-soup/app/source"
	"github.com/lysyi3m/rss-soup/app/tasks"
	"github.com/lysyi3m/rss-soup/app/transcript"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown
		return
	}

	setupLogger(appCfg.Debug)

	slog.Info("Starting RSS Soup", "version", appCfg.Version)

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to connect to database", "path", appCfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "schema_version", version, "dirty", dirty)

	publisherRepo := database.NewPublisherRepository(db)
	contentRepo := database.NewContentRepository(db)
	crawlLogRepo := database.NewCrawlLogRepository(db)
	subscriptionRepo := database.NewSubscriptionRepository(db)
	statsRepo := database.NewStatsRepository(db)

	sourceCache := feed.NewSourceCache(appCfg.SourcesDir)
	if err := sourceCache.Run(); err != nil {
		slog.Error("Failed to load source tables", "dir", appCfg.SourcesDir, "error", err)
		os.Exit(1)
	}
	slog.Info("Source tables loaded", "soups", len(sourceCache.GetConsumers()), "sources", sourceCache.GetSourceCount())

	fetcher := source.NewFetcher(&http.Client{}, appCfg.UserAgent)

	indexer := ingest.NewIndexer(
		publisherRepo,
		contentRepo,
		crawlLogRepo,
		subscriptionRepo,
		fetcher,
		sourceCache,
		ingest.Options{
			BatchSize:       appCfg.BatchSize,
			LimitPerFeed:    appCfg.LimitPerFeed,
			PlatformDomains: appCfg.PlatformDomains,
		},
	)

	enricher := transcript.NewEnricher(contentRepo, transcript.NewClient(fetcher), nil)

	scheduler := tasks.NewScheduler(indexer, enricher, tasks.Options{
		Schedule:        appCfg.Schedule,
		BatchSize:       appCfg.BatchSize,
		LimitPerFeed:    appCfg.LimitPerFeed,
		TranscriptBatch: appCfg.TranscriptBatch,
	})
	if err := scheduler.Start(); err != nil {
		slog.Error("Failed to start scheduler", "schedule", appCfg.Schedule, "error", err)
		os.Exit(1)
	}
	defer scheduler.Stop()

	handler := api.NewHandler(api.Dependencies{
		Publishers:   publisherRepo,
		Content:      contentRepo,
		CrawlLog:     crawlLogRepo,
		Sources:      sourceCache,
		Indexer:      indexer,
		Scheduler:    scheduler,
		Recommender:  recommend.NewService(contentRepo, scheduler, nil),
		Discoverer:   feed.NewDiscoverer(fetcher),
		Generator:    feed.NewGenerator(appCfg.Version),
		Graph:        graph.NewService(publisherRepo, contentRepo, statsRepo, sourceCache, nil),
		LimitPerFeed: appCfg.LimitPerFeed,
		Version:      appCfg.Version,
	})
	router := api.NewServer(handler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Minute, // Index requests wait for the crawl worker
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port, "schedule", appCfg.Schedule)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig)
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("Shutdown complete")
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
}
