package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"walkumentary/internal/api"
	"walkumentary/pkg/cache"
	"walkumentary/pkg/config"
	"walkumentary/pkg/db"
	"walkumentary/pkg/db/maintenance"
	"walkumentary/pkg/geocode"
	"walkumentary/pkg/llm"
	"walkumentary/pkg/llm/failover"
	"walkumentary/pkg/llm/gemini"
	"walkumentary/pkg/llm/openai"
	"walkumentary/pkg/llm/prompts"
	"walkumentary/pkg/logging"
	"walkumentary/pkg/request"
	"walkumentary/pkg/store"
	"walkumentary/pkg/tour"
	"walkumentary/pkg/tracker"
	"walkumentary/pkg/tts"
	"walkumentary/pkg/tts/azure"
	"walkumentary/pkg/tts/edgetts"
	"walkumentary/pkg/tts/polly"
	"walkumentary/pkg/version"
)

var (
	configPath = flag.String("config", "configs/walkumentary.yaml", "Path to config file")
	initConfig = flag.Bool("init-config", false, "Generate default config file and exit")
)

func main() {
	flag.Parse()

	if *initConfig {
		if err := config.GenerateDefault(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Config file generated:", *configPath)
		return
	}

	if err := run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL ERROR: Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Secrets may live in a local .env during development.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cleanupLogs, err := logging.Init(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer cleanupLogs()

	slog.Info("Walkumentary started", "version", version.Version)

	dbConn, err := db.Init(cfg.DB.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer dbConn.Close()
	st := store.NewSQLiteStore(dbConn)

	maintenance.Run(ctx, dbConn, st, maintenance.DefaultInterval)

	tr := tracker.New(st)
	cacher := cache.New(st, &cfg.Cache)
	reqClient := request.New(cacher, tr, time.Duration(cfg.Request.Timeout))

	llmChain, err := buildLLMChain(cfg, reqClient, tr)
	if err != nil {
		return err
	}
	ttsChain, err := buildTTSChain(cfg, tr)
	if err != nil {
		return err
	}

	promptMgr, err := prompts.NewManager()
	if err != nil {
		return fmt.Errorf("failed to load prompt templates: %w", err)
	}

	geoStage := geocode.NewStage(geocode.NewClient(reqClient, cfg.Geocode), cfg.Geocode.Concurrency)
	svc := tour.NewService(st, llmChain, ttsChain, geoStage, promptMgr, tr, cfg)

	srv := api.NewServer(cfg.Server.Address,
		api.NewTourHandler(svc),
		api.NewStatsHandler(tr),
		api.NewAuthMiddleware(cfg.Auth),
	)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "address", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-sigCh:
		slog.Info("Shutting down", "signal", sig)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown failed", "error", err)
	}

	// Let in-flight pipelines commit their terminal state.
	done := make(chan struct{})
	go func() {
		svc.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(30 * time.Second):
		slog.Warn("Pipelines still running at shutdown deadline")
	}
	return nil
}

func buildLLMChain(cfg *config.Config, rc *request.Client, tr *tracker.Tracker) (llm.Provider, error) {
	var providers []llm.Provider
	for _, pc := range []config.ProviderConfig{cfg.LLM.Primary, cfg.LLM.Fallback} {
		if pc.Key == "" {
			continue
		}
		switch pc.Type {
		case "openai":
			p, err := openai.NewClient(pc, rc)
			if err != nil {
				return nil, fmt.Errorf("openai setup failed: %w", err)
			}
			providers = append(providers, p)
		case "gemini":
			p, err := gemini.NewClient(pc, tr)
			if err != nil {
				return nil, fmt.Errorf("gemini setup failed: %w", err)
			}
			providers = append(providers, p)
		default:
			return nil, fmt.Errorf("unknown llm provider type %q", pc.Type)
		}
	}
	if len(providers) == 0 {
		return nil, fmt.Errorf("no LLM provider configured (set OPENAI_API_KEY or GEMINI_API_KEY)")
	}
	return failover.New(providers...)
}

func buildTTSChain(cfg *config.Config, tr *tracker.Tracker) (tts.Provider, error) {
	pollyP := polly.NewProvider(cfg.TTS.Polly, tr)
	azureP := azure.NewProvider(cfg.TTS.AzureSpeech, tr)
	edgeP := edgetts.NewProvider(cfg.TTS.EdgeTTS, tr)

	// The configured engine goes first; the others stay as fallbacks.
	switch cfg.TTS.Engine {
	case "azure-speech":
		return tts.NewFallback(azureP, pollyP, edgeP)
	case "edge-tts":
		return tts.NewFallback(edgeP, pollyP, azureP)
	case "polly", "":
		return tts.NewFallback(pollyP, azureP, edgeP)
	default:
		return nil, fmt.Errorf("unknown tts engine %q", cfg.TTS.Engine)
	}
}
