package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every runtime setting of the dashboard API.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	GitHub   GitHubConfig
	Cache    CacheConfig
	Webhook  WebhookConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Path string
}

type GitHubConfig struct {
	Token   string
	BaseURL string
	Org     string
	Repo    string
	// PipelineRepo holds the pipeline/ folder tree. Empty means Repo.
	PipelineRepo   string
	ProjectNumber  int
	RequestTimeout time.Duration
}

type CacheConfig struct {
	// StaleFactor multiplies a key's fresh TTL to get its stale window.
	StaleFactor float64
	// StaleWindow, when longer than a key's fresh TTL, replaces the factor.
	StaleWindow  time.Duration
	LowWaterMark int
	FetchTimeout time.Duration
}

type WebhookConfig struct {
	GitHubSecret      string
	DiscordWebhookURL string
}

type LogConfig struct {
	Level  string
	Format string // json or text
}

// Load reads configuration from the environment. A .env file in the working
// directory is honored when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8008"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 0),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Path: getEnv("DATABASE_PATH", "ops-dashboard.db"),
		},
		GitHub: GitHubConfig{
			Token:          getEnv("GITHUB_TOKEN", ""),
			BaseURL:        getEnv("GITHUB_API_URL", "https://api.github.com"),
			Org:            getEnv("GITHUB_ORG", "kyutopia"),
			Repo:           getEnv("GITHUB_REPO", "kyutopia-ops"),
			PipelineRepo:   getEnv("GITHUB_PIPELINE_REPO", ""),
			ProjectNumber:  getIntEnv("GITHUB_PROJECT_NUMBER", 1),
			RequestTimeout: getDurationEnv("GITHUB_REQUEST_TIMEOUT", 10*time.Second),
		},
		Cache: CacheConfig{
			StaleFactor:  getFloatEnv("CACHE_STALE_FACTOR", 5),
			StaleWindow:  getDurationEnv("CACHE_STALE_WINDOW", 0),
			LowWaterMark: getIntEnv("CACHE_RATE_LIMIT_LOW_WATER", 10),
			FetchTimeout: getDurationEnv("CACHE_FETCH_TIMEOUT", 10*time.Second),
		},
		Webhook: WebhookConfig{
			GitHubSecret:      getEnv("GITHUB_WEBHOOK_SECRET", ""),
			DiscordWebhookURL: getEnv("DISCORD_WEBHOOK_URL", ""),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getFloatEnv(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
