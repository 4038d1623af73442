package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/repopulse/repopulse/internal/api"
	"github.com/repopulse/repopulse/internal/config"
	"github.com/repopulse/repopulse/internal/db"
	"github.com/repopulse/repopulse/internal/github"
	"github.com/repopulse/repopulse/internal/utils"

	_ "github.com/repopulse/repopulse/docs"
)

// @title RepoPulse API
// @version 1.0
// @description Aggregated GitHub repository state with rate-limit-aware synchronization
// @host localhost:8080
// @BasePath /api/v1
func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
	})
	logger.SetOutput(os.Stdout)

	// Load configuration with defaults
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.DBConnectionString == "" || cfg.GitHubToken == "" {
		logger.Fatal("Missing required configuration (DB_CONNECTION_STRING and GITHUB_TOKEN must be set)")
	}

	// Initialize database
	store, err := db.NewPostgresStore(cfg.DBConnectionString)
	if err != nil {
		logger.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Run migrations with retry logic
	if err := retry(3, 5*time.Second, func() error {
		return store.Migrate()
	}); err != nil {
		logger.Fatalf("Failed to run migrations after retries: %v", err)
	}

	// Initialize the sync client and the GraphQL enrichment channel
	ghCfg := config.DefaultGitHubConfig()
	ghCfg.Token = cfg.GitHubToken
	ghCfg.APIBaseURL = cfg.APIBaseURL
	tokens := github.StaticTokenProvider(cfg.GitHubToken)

	enrichment, err := github.NewEnrichmentClient(ghCfg, tokens, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize enrichment client: %v", err)
	}

	client, err := github.NewClient(ghCfg, tokens, logger, github.WithEnrichment(enrichment))
	if err != nil {
		logger.Fatalf("Failed to initialize GitHub client: %v", err)
	}

	// Seed monitored repositories from the environment
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	for i, full := range cfg.MonitoredRepos {
		owner, name, err := utils.ParseOwnerRepo(full)
		if err != nil {
			logger.Warnf("Skipping invalid monitored repository %q: %v", full, err)
			continue
		}
		if err := store.AddMonitoredRepository(ctx, owner, name, i); err != nil {
			logger.Warnf("Failed to seed monitored repository %s: %v", full, err)
		}
	}

	// Start the refresh service
	refreshCfg := config.DefaultRefreshConfig()
	refreshCfg.Interval = cfg.RefreshInterval
	refreshCfg.MaxConcurrentRepos = cfg.MaxConcurrentRepos
	refresher := github.NewRefreshService(client, store, refreshCfg, logger)
	if err := refresher.Start(ctx); err != nil {
		logger.Fatalf("Failed to start refresh service: %v", err)
	}
	defer refresher.Stop()

	// Setup router
	apiHandler := api.NewHandler(store, client, refresher, logger)
	router := api.SetupRouter(apiHandler)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Infof("Server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server shutdown failed: %v", err)
	}
	logger.Info("Server exited properly")
}

// retry retries a function up to a certain number of attempts with a delay between attempts
func retry(attempts int, sleep time.Duration, fn func() error) error {
	if err := fn(); err != nil {
		if attempts--; attempts > 0 {
			time.Sleep(sleep)
			return retry(attempts, sleep, fn)
		}
		return err
	}
	return nil
}
