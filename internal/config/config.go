// Package config loads run configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Generation budget. CostLimit is expressed in the operator's local
	// accounting unit; ExchangeRate converts it to provider USD (1.0 means
	// the limit is already USD).
	MaxArticlesPerRun int
	CostLimit         float64 // 0 = unlimited
	ExchangeRate      float64
	ArticleModel      string

	// Provider selection and credentials
	PrimaryProvider   string // "gemini" | "openai" | "mock"
	SecondaryProvider string // same set, or empty for no fallback
	GeminiAPIKey      string
	OpenAIAPIKey      string

	// Deduplication
	RecencyWindow       time.Duration
	SimilarityThreshold float64

	// Index and corpus locations
	CorpusDir     string
	ArticlesDir   string
	IndexFilePath string
	DatabaseURL   string // optional postgres-backed index

	// Candidate feed
	FeedsConfigPath  string
	CandidateMaxAge  time.Duration
	MaxCandidates    int

	// Provider call behavior
	RequestTimeout      time.Duration
	RetryAttempts       int
	RetryDelay          time.Duration
	GenerateConcurrency int

	// App settings
	Debug bool
}

func Load() (*Config, error) {
	cfg := &Config{
		// Default values
		MaxArticlesPerRun:   3,
		ExchangeRate:        1.0,
		ArticleModel:        "gemini-1.5-flash",
		PrimaryProvider:     "gemini",
		RecencyWindow:       48 * time.Hour,
		SimilarityThreshold: 0.5,
		CorpusDir:           "output/articles",
		ArticlesDir:         "output/articles",
		IndexFilePath:       "cache/topic_index.json",
		FeedsConfigPath:     "configs/feeds.yaml",
		CandidateMaxAge:     24 * time.Hour,
		MaxCandidates:       20,
		RequestTimeout:      60 * time.Second,
		RetryAttempts:       3,
		RetryDelay:          5 * time.Second,
		GenerateConcurrency: 2,
	}

	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")

	cfg.PrimaryProvider = getEnvOrDefault("PRIMARY_PROVIDER", cfg.PrimaryProvider)
	cfg.SecondaryProvider = os.Getenv("SECONDARY_PROVIDER")
	cfg.ArticleModel = getEnvOrDefault("ARTICLE_MODEL", cfg.ArticleModel)

	cfg.CorpusDir = getEnvOrDefault("CORPUS_DIR", cfg.CorpusDir)
	cfg.ArticlesDir = getEnvOrDefault("ARTICLES_DIR", cfg.ArticlesDir)
	cfg.IndexFilePath = getEnvOrDefault("INDEX_FILE_PATH", cfg.IndexFilePath)
	cfg.FeedsConfigPath = getEnvOrDefault("FEEDS_CONFIG_PATH", cfg.FeedsConfigPath)

	cfg.MaxArticlesPerRun = getEnvIntOrDefault("MAX_ARTICLES_PER_RUN", cfg.MaxArticlesPerRun)
	cfg.MaxCandidates = getEnvIntOrDefault("MAX_CANDIDATES", cfg.MaxCandidates)
	cfg.RetryAttempts = getEnvIntOrDefault("RETRY_ATTEMPTS", cfg.RetryAttempts)
	cfg.GenerateConcurrency = getEnvIntOrDefault("GENERATE_CONCURRENCY", cfg.GenerateConcurrency)

	if v := os.Getenv("COST_LIMIT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			cfg.CostLimit = f
		}
	}
	if v := os.Getenv("EXCHANGE_RATE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.ExchangeRate = f
		}
	}
	if v := os.Getenv("SIMILARITY_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 && f <= 1 {
			cfg.SimilarityThreshold = f
		}
	}

	if hours := getEnvIntOrDefault("RECENCY_WINDOW_HOURS", 0); hours > 0 {
		cfg.RecencyWindow = time.Duration(hours) * time.Hour
	}
	if hours := getEnvIntOrDefault("CANDIDATE_MAX_AGE_HOURS", 0); hours > 0 {
		cfg.CandidateMaxAge = time.Duration(hours) * time.Hour
	}
	if secs := getEnvIntOrDefault("REQUEST_TIMEOUT_SECONDS", 0); secs > 0 {
		cfg.RequestTimeout = time.Duration(secs) * time.Second
	}
	if secs := getEnvIntOrDefault("RETRY_DELAY_SECONDS", 0); secs > 0 {
		cfg.RetryDelay = time.Duration(secs) * time.Second
	}

	if os.Getenv("DEBUG") == "true" {
		cfg.Debug = true
	}

	return cfg, cfg.Validate()
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func (c *Config) Validate() error {
	if c.MaxArticlesPerRun <= 0 {
		return fmt.Errorf("MAX_ARTICLES_PER_RUN must be positive")
	}
	if c.GenerateConcurrency <= 0 {
		return fmt.Errorf("GENERATE_CONCURRENCY must be positive")
	}
	switch c.PrimaryProvider {
	case "gemini", "openai", "mock":
	default:
		return fmt.Errorf("PRIMARY_PROVIDER must be 'gemini', 'openai' or 'mock'")
	}
	switch c.SecondaryProvider {
	case "", "gemini", "openai", "mock":
	default:
		return fmt.Errorf("SECONDARY_PROVIDER must be 'gemini', 'openai' or 'mock'")
	}
	if c.PrimaryProvider == "gemini" && c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required for the gemini provider")
	}
	if c.PrimaryProvider == "openai" && c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required for the openai provider")
	}
	return nil
}
