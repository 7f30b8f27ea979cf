// Package config loads configuration from the environment with an optional
// YAML overlay file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LLM provider names.
const (
	ProviderOllama    = "ollama"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Config holds all configuration values.
type Config struct {
	// SurrealDB connection
	SurrealDBURL       string `yaml:"surrealdb_url"`
	SurrealDBNamespace string `yaml:"surrealdb_namespace"`
	SurrealDBDatabase  string `yaml:"surrealdb_database"`
	SurrealDBUser      string `yaml:"surrealdb_user"`
	SurrealDBPass      string `yaml:"surrealdb_pass"`
	SurrealDBAuthLevel string `yaml:"surrealdb_auth_level"`

	// LLM
	LLMProvider     string `yaml:"llm_provider"`
	LLMModel        string `yaml:"llm_model"`
	OllamaHost      string `yaml:"ollama_host"`
	OpenAIAPIKey    string `yaml:"openai_api_key"`
	AnthropicAPIKey string `yaml:"anthropic_api_key"`

	// Kaggle system credentials (global override of per-user credentials)
	KaggleUsername string `yaml:"kaggle_username"`
	KaggleKey      string `yaml:"kaggle_key"`
	KaggleBaseURL  string `yaml:"kaggle_base_url"`

	// Server
	ServerPort string `yaml:"server_port"`

	// Ingestion discipline
	IngestTimeout       time.Duration `yaml:"ingest_timeout"`
	IngestConcurrency   int           `yaml:"ingest_concurrency"`
	JanitorThreshold    time.Duration `yaml:"janitor_threshold"`
	JanitorInterval     time.Duration `yaml:"janitor_interval"`
	CompetitionCacheTTL time.Duration `yaml:"competition_cache_ttl"`

	// Logging
	LogFile  string     `yaml:"log_file"`
	LogLevel slog.Level `yaml:"-"`
}

// Load reads configuration from environment variables.
func Load() Config {
	return Config{
		SurrealDBURL:       getEnv("SURREALDB_URL", "ws://localhost:8000/rpc"),
		SurrealDBNamespace: getEnv("SURREALDB_NAMESPACE", "kagglementor"),
		SurrealDBDatabase:  getEnv("SURREALDB_DATABASE", "mentor"),
		SurrealDBUser:      getEnv("SURREALDB_USER", "root"),
		SurrealDBPass:      getEnv("SURREALDB_PASS", "root"),
		SurrealDBAuthLevel: getEnv("SURREALDB_AUTH_LEVEL", "root"),

		LLMProvider:     getEnv("LLM_PROVIDER", ProviderOllama),
		LLMModel:        getEnv("LLM_MODEL", "llama3.2"),
		OllamaHost:      getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),

		KaggleUsername: os.Getenv("KAGGLE_USERNAME"),
		KaggleKey:      os.Getenv("KAGGLE_KEY"),
		KaggleBaseURL:  getEnv("KAGGLE_BASE_URL", "https://www.kaggle.com/api/v1"),

		ServerPort: getEnv("MENTOR_SERVER_PORT", "8585"),

		IngestTimeout:       getDuration("MENTOR_INGEST_TIMEOUT", 10*time.Minute),
		IngestConcurrency:   getInt("MENTOR_INGEST_CONCURRENCY", 4),
		JanitorThreshold:    getDuration("MENTOR_JANITOR_THRESHOLD", 15*time.Minute),
		JanitorInterval:     getDuration("MENTOR_JANITOR_INTERVAL", time.Minute),
		CompetitionCacheTTL: getDuration("MENTOR_CACHE_TTL", 7*24*time.Hour),

		LogFile:  getEnv("MENTOR_LOG_FILE", "/tmp/kagglementor.log"),
		LogLevel: parseLogLevel(getEnv("MENTOR_LOG_LEVEL", "INFO")),
	}
}

// LoadWithOverlay loads the environment configuration, then applies values
// from the YAML file at path on top. A missing file is not an error; the
// environment result is returned unchanged.
func LoadWithOverlay(path string) (Config, error) {
	cfg := Load()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

// SystemCredentialsSet reports whether both Kaggle environment credentials
// are present.
func (c Config) SystemCredentialsSet() bool {
	return c.KaggleUsername != "" && c.KaggleKey != ""
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		var n int
		if _, err := fmt.Sscanf(val, "%d", &n); err == nil && n > 0 {
			return n
		}
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
