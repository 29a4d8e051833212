package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/lysyi3m/rss-soup/app/apiclient"
	"github.com/lysyi3m/rss-soup/app/cfg"
	"github.com/lysyi3m/rss-soup/app/database"
	"github.com/lysyi3m/rss-soup/app/feed"
	"github.com/lysyi3m/rss-soup/app/graph"
	"github.com/lysyi3m/rss-soup/app/mcptools"
	"github.com/lysyi3m/rss-soup/app/recommend"
	"github.com/lysyi3m/rss-soup/app/source"
	"github.com/lysyi3m/rss-soup/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		return
	}

	// Stdout carries the MCP protocol.
	level := slog.LevelWarn
	if appCfg.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to connect to database", "path", appCfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if _, _, err := database.RunMigrations(db); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	publisherRepo := database.NewPublisherRepository(db)
	contentRepo := database.NewContentRepository(db)

	sourceCache := feed.NewSourceCache(appCfg.SourcesDir)
	if err := sourceCache.Run(); err != nil {
		slog.Error("Failed to load source tables", "dir", appCfg.SourcesDir, "error", err)
		os.Exit(1)
	}

	fetcher := source.NewFetcher(&http.Client{}, appCfg.UserAgent)

	deps := mcptools.Dependencies{
		Sources:      sourceCache,
		Discoverer:   feed.NewDiscoverer(fetcher),
		Graph:        graph.NewService(publisherRepo, contentRepo, database.NewStatsRepository(db), sourceCache, nil),
		LimitPerFeed: appCfg.LimitPerFeed,
		Version:      appCfg.Version,
	}

	// The HTTP server's worker is the only writer of crawl data. This process
	// reads the graph and forwards index requests to the server, or leaves
	// indexing off when no server is configured.
	var refresher recommend.Refresher
	if appCfg.ServerURL != "" {
		remote := apiclient.New(appCfg.ServerURL, appCfg.APIAccessKey, &http.Client{})

		scheduler := tasks.NewScheduler(remote, nil, tasks.Options{
			BatchSize:    appCfg.BatchSize,
			LimitPerFeed: appCfg.LimitPerFeed,
		})
		if err := scheduler.Start(); err != nil {
			slog.Error("Failed to start scheduler", "error", err)
			os.Exit(1)
		}
		defer scheduler.Stop()

		deps.Indexer = remote
		deps.Scheduler = scheduler
		refresher = scheduler
	} else {
		slog.Warn("No soup server configured, index tools are disabled")
	}

	deps.Recommender = recommend.NewService(contentRepo, refresher, nil)
	mcpServer := mcptools.NewServer(deps)

	if err := server.ServeStdio(mcpServer); err != nil {
		slog.Error("MCP server failed", "error", err)
	}
}
