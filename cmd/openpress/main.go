package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/openpress/openpress/internal/budget"
	"github.com/openpress/openpress/internal/config"
	"github.com/openpress/openpress/internal/corpus"
	"github.com/openpress/openpress/internal/dedup"
	"github.com/openpress/openpress/internal/index"
	"github.com/openpress/openpress/internal/logger"
	"github.com/openpress/openpress/internal/metrics"
	"github.com/openpress/openpress/internal/provider"
	"github.com/openpress/openpress/internal/publish"
	"github.com/openpress/openpress/internal/run"
	"github.com/openpress/openpress/internal/trends"
)

func main() {
	logger.Init()

	if os.Getenv("ENABLE_HTTP_MONITORING") == "true" {
		go startMonitoringServer()
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := runOnce(ctx, cfg)
	if report != nil {
		// The report always goes out, failed runs included, so the
		// deployment step and operators can see what happened.
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(report)
	}
	if err != nil {
		os.Exit(1)
	}
}

func runOnce(ctx context.Context, cfg *config.Config) (*run.Report, error) {
	store, closeStore, err := openStore(cfg)
	if err != nil {
		logger.Error("failed to open index store", "error", err)
		return nil, err
	}
	defer closeStore()

	ix, err := loadIndex(cfg, store)
	if err != nil {
		logger.Error("index unavailable and rebuild failed", "error", err)
		return nil, err
	}

	router, cleanup, err := buildRouter(ctx, cfg)
	if err != nil {
		logger.Error("failed to configure providers", "error", err)
		return nil, err
	}
	defer cleanup()

	feeds, err := trends.LoadFeeds(cfg.FeedsConfigPath)
	if err != nil {
		logger.Error("failed to load feeds config", "path", cfg.FeedsConfigPath, "error", err)
		return nil, err
	}
	collector := trends.Collector{MaxAge: cfg.CandidateMaxAge, Limit: cfg.MaxCandidates}
	candidates := collector.Collect(feeds)

	orch := &run.Orchestrator{
		Classifier: dedup.Classifier{
			Window:    cfg.RecencyWindow,
			Threshold: cfg.SimilarityThreshold,
		},
		Generator:   router,
		Store:       store,
		Publisher:   publish.NewWriter(cfg.ArticlesDir),
		Concurrency: cfg.GenerateConcurrency,
	}

	b := budget.New(cfg.MaxArticlesPerRun, cfg.CostLimit/cfg.ExchangeRate, cfg.ArticleModel)
	return orch.RunOnce(ctx, candidates, ix, b)
}

// indexStore is what both backends provide.
type indexStore interface {
	run.Store
	Load() (*index.Index, error)
}

func openStore(cfg *config.Config) (indexStore, func(), error) {
	if cfg.DatabaseURL != "" {
		ps, err := index.NewPostgresStore(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return ps, func() { ps.Close() }, nil
	}
	return index.NewFileStore(cfg.IndexFilePath), func() {}, nil
}

// loadIndex reads the persisted index, falling back to a corpus rebuild
// when it is missing, unreadable, or has drifted behind the corpus.
func loadIndex(cfg *config.Config, store indexStore) (*index.Index, error) {
	ix, err := store.Load()
	if err != nil {
		if !errors.Is(err, index.ErrIndexUnavailable) {
			return nil, err
		}
		logger.Warn("persisted index unavailable, rebuilding from corpus", "error", err)
		ix = nil
	}

	if ix != nil && ix.Len() > 0 {
		return ix, nil
	}

	rebuilt, stats, err := corpus.Build(cfg.CorpusDir)
	if err != nil {
		return nil, fmt.Errorf("corpus rebuild: %w", err)
	}
	metrics.Global.IncrementIndexRebuilds()
	if stats.Indexed > 0 {
		if err := store.Save(rebuilt.Snapshot()); err != nil {
			logger.Warn("failed to persist rebuilt index", "error", err)
		}
	}
	return rebuilt, nil
}

// buildRouter wires the configured primary/secondary providers.
func buildRouter(ctx context.Context, cfg *config.Config) (*provider.Router, func(), error) {
	var closers []func()
	cleanup := func() {
		for _, c := range closers {
			c()
		}
	}

	build := func(name string) (provider.Provider, error) {
		switch name {
		case "gemini":
			p, err := provider.NewGeminiProvider(ctx, cfg.GeminiAPIKey)
			if err != nil {
				return nil, err
			}
			closers = append(closers, p.Close)
			return p, nil
		case "openai":
			return provider.NewOpenAIProvider(cfg.OpenAIAPIKey)
		case "mock":
			return provider.MockProvider{}, nil
		case "":
			return nil, nil
		}
		return nil, fmt.Errorf("unknown provider %q", name)
	}

	primary, err := build(cfg.PrimaryProvider)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	secondary, err := build(cfg.SecondaryProvider)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	return &provider.Router{
		Primary:    primary,
		Secondary:  secondary,
		Retries:    cfg.RetryAttempts,
		RetryDelay: cfg.RetryDelay,
		Timeout:    cfg.RequestTimeout,
	}, cleanup, nil
}

func startMonitoringServer() {
	port := os.Getenv("MONITORING_PORT")
	if port == "" {
		port = "8080"
	}

	http.HandleFunc("/health", healthHandler)
	http.HandleFunc("/metrics", metricsHandler)

	logger.Info("starting monitoring server", "port", port)
	if err := http.ListenAndServe(":"+port, nil); err != nil {
		logger.Error("monitoring server error", "error", err)
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	stats := metrics.Global.GetStats()

	status := "ok"
	if !stats["is_healthy"].(bool) {
		status = "error"
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	response := map[string]interface{}{
		"status":     status,
		"last_run":   stats["last_run_time"],
		"last_error": stats["last_error"],
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func metricsHandler(w http.ResponseWriter, r *http.Request) {
	stats := metrics.Global.GetStats()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}
