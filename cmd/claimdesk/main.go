// claimdesk - FNOL intake and claim adjudication.
// Copyright (c) 2025 opensource.finance
// Licensed under the Apache License 2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/opensource-finance/claimdesk/internal/adjudication"
	"github.com/opensource-finance/claimdesk/internal/api"
	"github.com/opensource-finance/claimdesk/internal/assessment"
	"github.com/opensource-finance/claimdesk/internal/bus"
	"github.com/opensource-finance/claimdesk/internal/cache"
	"github.com/opensource-finance/claimdesk/internal/config"
	"github.com/opensource-finance/claimdesk/internal/decision"
	"github.com/opensource-finance/claimdesk/internal/domain"
	"github.com/opensource-finance/claimdesk/internal/repository"
	"github.com/opensource-finance/claimdesk/internal/rules"
	"github.com/opensource-finance/claimdesk/internal/rulestore"
	"github.com/opensource-finance/claimdesk/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	configPath := flag.String("config", os.Getenv("CLAIMDESK_CONFIG"), "path to claimdesk.yaml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "claimdesk: %v\n", err)
		os.Exit(1)
	}

	slog.SetDefault(newLogger(cfg.Logging))

	slog.Info("starting claimdesk",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)
	slog.Info("configuration loaded",
		"tier", cfg.Tier,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
		"async", cfg.Async,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Initialize Repository
	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

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

	// Initialize check engine and decision pipeline
	engine, err := rules.NewEngine()
	if err != nil {
		slog.Error("failed to initialize check engine", "error", err)
		os.Exit(1)
	}
	processor := decision.NewProcessor(rules.NewFraudEvaluator(engine, nil))
	loader := rulestore.NewLoader(repo, cacheImpl, cfg.Cache.SnapshotTTL)
	slog.Info("decision pipeline initialized", "checks", engine.Checks())

	if snap, err := loader.Snapshot(ctx); err != nil {
		slog.Warn("rule tables not readable at startup", "error", err)
	} else {
		t := snap.Tables()
		slog.Info("rule tables loaded",
			"rules", len(t.Rules),
			"damage_types", len(t.DamageTypes),
			"claim_types", len(t.ClaimTypes),
			"pricing", len(t.Pricing),
		)
	}

	// Damage model client is optional; without it only pre-computed assessments are accepted.
	var assessor adjudication.Assessor
	if cfg.Assessment.Endpoint != "" {
		assessor = assessment.New(cfg.Assessment)
		slog.Info("damage assessment client initialized", "endpoint", cfg.Assessment.Endpoint)
	}

	svc := adjudication.NewService(repo, loader, processor, assessor, busImpl, adjudication.Options{
		Async:        cfg.Async,
		MediaBaseURL: cfg.Server.MediaBaseURL,
	})

	// Initialize async Worker
	var asyncWorker *worker.Worker
	if cfg.Async {
		asyncWorker = worker.NewWorker(busImpl, svc)
		if err := asyncWorker.Start(worker.Config{}); err != nil {
			slog.Error("failed to start async worker", "error", err)
			os.Exit(1)
		}
	}

	srv := api.NewServer(cfg.Server, svc, repo, cacheImpl, busImpl, Version)

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("claimdesk is ready",
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

	slog.Info("claimdesk shutdown complete")
}

func newLogger(cfg domain.LoggingConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  claimdesk - FNOL intake and claim adjudication")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Tier:     %s\n", cfg.Tier)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /fnol                          - Save an FNOL")
	fmt.Println("    GET  /fnol/{id}                     - Get a claim")
	fmt.Println("    POST /claims/evaluate               - Dry-run the decision pipeline")
	fmt.Println("    POST /fnol/{id}/fraud-detection     - Evaluate and persist")
	fmt.Println("    POST /fnol/{id}/damage-assessment   - Apply damage model output")
	fmt.Println("    GET  /fraud/claims                  - Fraud review queue")
	fmt.Println("    *    /masters/{table}               - Rules, damage codes, claim types, pricing")
	fmt.Println("    GET  /health, /metrics              - Health and Prometheus metrics")
	fmt.Println()
}
