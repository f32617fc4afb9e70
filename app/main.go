package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/WebsitesPages/Autoscan/app/api"
	"github.com/WebsitesPages/Autoscan/app/cfg"
	"github.com/WebsitesPages/Autoscan/app/comps"
	"github.com/WebsitesPages/Autoscan/app/config"
	"github.com/WebsitesPages/Autoscan/app/database"
	"github.com/WebsitesPages/Autoscan/app/fetch"
	"github.com/WebsitesPages/Autoscan/app/syncer"
)

// Minimum spacing between outbound crawler requests.
const crawlRequestSpacing = 1500 * time.Millisecond

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting Autoscan", "version", appCfg.Version)

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "path", appCfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "schema_version", version, "dirty", dirty)

	repo := database.NewListingRepository(db)

	profiles, err := config.NewLoader(appCfg.ProfilesFile, appCfg).Load()
	if err != nil {
		slog.Error("Failed to load search profiles", "file", appCfg.ProfilesFile, "error", err)
		os.Exit(1)
	}
	slog.Info("Search profiles loaded", "count", len(profiles))

	fetchTimeout := time.Duration(appCfg.FetchTimeout) * time.Second
	fetcher := fetch.NewClient(&http.Client{}, appCfg.UserAgent, fetchTimeout)

	limiter := rate.NewLimiter(rate.Every(crawlRequestSpacing), 1)
	orchestrator := syncer.NewOrchestrator(repo, fetcher, profiles, limiter)
	guard := syncer.NewGuard(orchestrator, time.Duration(appCfg.SyncCooldown)*time.Second)

	scheduler := syncer.NewScheduler(guard, time.Duration(appCfg.SyncInterval)*time.Second)
	scheduler.Start()
	defer scheduler.Stop()

	region := comps.Region{
		AreaSlug: appCfg.AreaSlug,
		AreaCode: appCfg.AreaCode,
		RadiusKM: appCfg.RadiusKM,
	}
	aggregator := comps.NewAggregator(fetcher)

	handler := api.NewHandler(repo, guard, aggregator, region)
	server := api.NewServer(handler, appCfg.APIAccessKey, appCfg.Version)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port, "auth_required", appCfg.APIAccessKey != "")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("Shutdown complete")
}
