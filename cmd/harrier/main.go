// Harrier - Shipment risk scoring with explainable scenarios.
// Copyright (c) 2025 opensource.finance
// Licensed under the Apache License 2.0

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

	"github.com/opensource-finance/harrier/internal/api"
	"github.com/opensource-finance/harrier/internal/bus"
	"github.com/opensource-finance/harrier/internal/cache"
	"github.com/opensource-finance/harrier/internal/climate"
	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/engine"
	"github.com/opensource-finance/harrier/internal/i18n"
	"github.com/opensource-finance/harrier/internal/metrics"
	"github.com/opensource-finance/harrier/internal/reasoner"
	"github.com/opensource-finance/harrier/internal/repository"
	"github.com/opensource-finance/harrier/internal/rules"
	"github.com/opensource-finance/harrier/internal/scenario"
	"github.com/opensource-finance/harrier/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// Initialize structured logger
	logLevel := slog.LevelInfo
	if os.Getenv("HARRIER_DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("starting harrier",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	// Load configuration
	cfg := domain.DefaultConfig()
	if os.Getenv("HARRIER_TIER") == "pro" {
		cfg = domain.ProConfig()
		slog.Info("running in Pro tier mode")
	}
	if err := applyEnv(cfg); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("configuration loaded",
		"tier", cfg.Tier,
		"repository", cfg.Repository.Driver,
		"scenarios", cfg.Scenarios.Type,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
		"enso", cfg.Climate.ENSOState,
		"reasoner", cfg.Reasoner.Provider,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Initialize Repository (assessment archive, and the SQL scenario store)
	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	store, err := repository.NewScenarioStore(cfg.Scenarios, repo)
	if err != nil {
		slog.Error("failed to initialize scenario store", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("scenario store initialized", "type", cfg.Scenarios.Type)

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Translator, with optional override directory
	tr, err := i18n.New(cfg.I18n)
	if err != nil {
		slog.Error("failed to load locale tables", "error", err)
		os.Exit(1)
	}
	if cfg.I18n.Watch {
		go func() {
			if err := tr.Watch(ctx); err != nil {
				slog.Error("locale watcher stopped", "error", err)
			}
		}()
	}

	rsn, err := reasoner.New(cfg.Reasoner, tr)
	if err != nil {
		slog.Error("failed to initialize reasoner", "error", err)
		os.Exit(1)
	}

	// Mitigation rules: built-in catalogue plus operator rules
	ruleEngine, err := rules.NewDefaultEngine()
	if err != nil {
		slog.Error("failed to initialize rule engine", "error", err)
		os.Exit(1)
	}
	if path := os.Getenv("HARRIER_RULES_FILE"); path != "" {
		extra, err := loadMitigationRules(path)
		if err != nil {
			slog.Error("failed to load mitigation rules", "path", path, "error", err)
			os.Exit(1)
		}
		if err := ruleEngine.LoadRules(extra); err != nil {
			slog.Error("invalid mitigation rule", "path", path, "error", err)
			os.Exit(1)
		}
	}
	slog.Info("rule engine initialized", "rules_count", ruleEngine.RulesCount())

	m := metrics.New()

	eng := engine.New(tr,
		engine.WithReasoner(rsn),
		engine.WithClimateModel(climate.NewModel(cfg.Climate.ENSOState)),
		engine.WithCache(cacheImpl, cfg.Cache.ResultTTL),
		engine.WithArchive(repo),
		engine.WithMetrics(m),
	)

	sim, err := scenario.NewSimulator(tr, rsn, ruleEngine,
		scenario.WithStore(store),
		scenario.WithEventBus(busImpl),
		scenario.WithMetrics(m),
	)
	if err != nil {
		slog.Error("failed to initialize simulator", "error", err)
		os.Exit(1)
	}

	// Initialize async Worker (Pro tier)
	var asyncWorker *worker.Worker
	if cfg.Tier == domain.TierPro || os.Getenv("HARRIER_ASYNC_WORKER") == "true" {
		asyncWorker = worker.NewWorker(busImpl, eng, cacheImpl, m)
		if err := asyncWorker.Start(worker.Config{WorkerCount: 5}); err != nil {
			slog.Error("failed to start async worker", "error", err)
		} else {
			slog.Info("async worker started", "topic", domain.TopicShipmentSubmitted)
		}
	}

	srv := api.NewServer(cfg.Server, api.Dependencies{
		Engine:          eng,
		Simulator:       sim,
		Scenarios:       store,
		Archive:         repo,
		Cache:           cacheImpl,
		Bus:             busImpl,
		Metrics:         m,
		DefaultLanguage: cfg.I18n.DefaultLanguage,
		Version:         Version,
	})

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("harrier is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	<-ctx.Done()
	slog.Info("shutting down...")

	// Stop async worker first
	if asyncWorker != nil {
		if err := asyncWorker.Stop(); err != nil {
			slog.Error("failed to stop async worker", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("harrier shutdown complete")
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════╗")
	fmt.Println("  ║                 HARRIER                   ║")
	fmt.Println("  ║      Shipment Risk Scoring Engine         ║")
	fmt.Println("  ║     Every lane, every what-if.            ║")
	fmt.Println("  ╚═══════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Tier:     %s\n", cfg.Tier)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /score                 - Score a shipment")
	fmt.Println("    GET  /assessments/{id}      - Get assessment by ID")
	fmt.Println("    POST /simulate              - Run a what-if scenario")
	fmt.Println("    POST /delta                 - Compare two results")
	fmt.Println("    GET  /presets               - List scenario presets")
	fmt.Println("    GET  /scenarios             - List stored scenarios")
	fmt.Println("    POST /scenarios             - Store a scenario")
	fmt.Println("    POST /scenarios/{name}/run  - Run a stored scenario")
	fmt.Println("    GET  /regions               - List region profiles")
	fmt.Println("    GET  /metrics               - Prometheus metrics")
	fmt.Println("    GET  /health                - Health check")
	fmt.Println()
}
