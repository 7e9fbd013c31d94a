// Package main wires together the lead discovery service binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/linkly-crm/leadscout/internal/api"
	"github.com/linkly-crm/leadscout/internal/clock/system"
	"github.com/linkly-crm/leadscout/internal/config"
	"github.com/linkly-crm/leadscout/internal/discovery"
	"github.com/linkly-crm/leadscout/internal/extract"
	collyfetcher "github.com/linkly-crm/leadscout/internal/fetcher/colly"
	"github.com/linkly-crm/leadscout/internal/id/uuid"
	"github.com/linkly-crm/leadscout/internal/logging"
	"github.com/linkly-crm/leadscout/internal/robots"
	"github.com/linkly-crm/leadscout/internal/search"
	memorystorage "github.com/linkly-crm/leadscout/internal/storage/memory"
	"github.com/linkly-crm/leadscout/internal/storage/postgres"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clock := system.New()
	idGen := uuid.New()

	var (
		jobStore  discovery.JobStore
		leadStore discovery.LeadStore
	)
	if cfg.DB.DSN != "" {
		pool, err := postgres.NewPool(ctx, postgres.Config{
			DSN:      cfg.DB.DSN,
			MaxConns: cfg.DB.MaxConns,
			MinConns: cfg.DB.MinConns,
		})
		if err != nil {
			logger.Fatal("postgres init failed", zap.Error(err))
		}
		defer pool.Close()
		jobs, err := postgres.NewJobStore(pool)
		if err != nil {
			logger.Fatal("job store init failed", zap.Error(err))
		}
		leads, err := postgres.NewLeadStore(pool, clock)
		if err != nil {
			logger.Fatal("lead store init failed", zap.Error(err))
		}
		jobStore, leadStore = jobs, leads
		logger.Info("using postgres stores")
	} else {
		jobStore = memorystorage.NewJobStore()
		leadStore = memorystorage.NewLeadStore()
		logger.Warn("db.dsn not set; using in-memory stores")
	}

	gate := robots.NewGate(cfg.Discovery.UserAgent, cfg.Discovery.BotToken, cfg.RobotsTimeout(), logger.Named("robots"))
	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent: cfg.Discovery.UserAgent,
		Timeout:   cfg.FetchTimeout(),
	})
	extractor := extract.New(fetcher, extract.Config{
		UserAgent: cfg.Discovery.UserAgent,
	}, logger.Named("extract"))
	provider := search.NewClient(search.Config{
		BaseURL:   cfg.Discovery.ProviderURL,
		UserAgent: cfg.Discovery.UserAgent,
		Timeout:   cfg.FetchTimeout(),
	}, logger.Named("search"))

	runner := discovery.NewRunner(
		jobStore,
		leadStore,
		provider,
		gate,
		extractor,
		idGen,
		discovery.RunnerConfig{PageConcurrency: cfg.Discovery.PageConcurrency},
		logger.Named("runner"),
	)
	orchestrator := discovery.NewOrchestrator(
		jobStore,
		runner,
		idGen,
		clock,
		discovery.OrchestratorConfig{
			DefaultLimit:   cfg.Discovery.DefaultLimit,
			MaxAttempts:    cfg.Discovery.MaxAttempts,
			JobConcurrency: cfg.Discovery.JobConcurrency,
		},
		logger.Named("orchestrator"),
	)

	apiServer := api.NewServer(jobStore, orchestrator, cfg, logger.Named("api"))
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.Int("port", cfg.Server.Port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", zap.Error(err))
	}
}
