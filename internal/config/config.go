package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

const (
	DefaultBaseURL   = "https://api.openai.com/v1"
	DefaultModel     = "gpt-4o-mini"
	DefaultAPIKeyEnv = "OPENAI_API_KEY"
)

// ErrMissingAPIKey is returned when the configured API key variable is unset.
var ErrMissingAPIKey = errors.New("missing API key")

type Config struct {
	BaseURL     string        `yaml:"base_url"`
	Model       string        `yaml:"model"`
	APIKeyEnv   string        `yaml:"api_key_env"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxRetries  int           `yaml:"max_retries"`

	WorkerCount int `yaml:"workers"`
	ChunkSize   int `yaml:"chunk_size"`

	// DatabaseURL enables the persistent translation cache and the
	// translation memory. Empty keeps the cache in memory only.
	DatabaseURL         string `yaml:"database_url"`
	EmbeddingModel      string `yaml:"embedding_model"`
	EmbeddingDimensions int    `yaml:"embedding_dimensions"`
	MemoryTopK          int    `yaml:"memory_top_k"`

	// Neo4jURI enables the glossary graph.
	Neo4jURI      string `yaml:"neo4j_uri"`
	Neo4jUser     string `yaml:"neo4j_user"`
	Neo4jPassword string `yaml:"neo4j_password"`
}

func defaults() *Config {
	return &Config{
		BaseURL:             DefaultBaseURL,
		Model:               DefaultModel,
		APIKeyEnv:           DefaultAPIKeyEnv,
		Temperature:         0.2,
		Timeout:             120 * time.Second,
		MaxRetries:          3,
		WorkerCount:         4,
		ChunkSize:           6000,
		EmbeddingModel:      "text-embedding-3-small",
		EmbeddingDimensions: 1536,
		MemoryTopK:          3,
		Neo4jUser:           "neo4j",
	}
}

// Load builds the configuration from built-in defaults, then the YAML file at
// path (or $MD2LANG_CONFIG when path is empty), then environment variables.
// A .env file in the working directory is loaded first when present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using environment variables")
	}

	cfg := defaults()

	if path == "" {
		path = os.Getenv("MD2LANG_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
		log.Debug().Str("path", path).Msg("Loaded config file")
	}

	cfg.BaseURL = getEnv("MD2LANG_BASE_URL", cfg.BaseURL)
	cfg.Model = getEnv("MD2LANG_MODEL", cfg.Model)
	cfg.APIKeyEnv = getEnv("MD2LANG_API_KEY_ENV", cfg.APIKeyEnv)
	cfg.Temperature = getEnvFloat("MD2LANG_TEMPERATURE", cfg.Temperature)
	cfg.Timeout = getEnvDuration("MD2LANG_TIMEOUT", cfg.Timeout)
	cfg.MaxRetries = getEnvInt("MD2LANG_MAX_RETRIES", cfg.MaxRetries)
	cfg.WorkerCount = getEnvInt("MD2LANG_WORKERS", cfg.WorkerCount)
	cfg.ChunkSize = getEnvInt("MD2LANG_CHUNK_SIZE", cfg.ChunkSize)
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.EmbeddingModel = getEnv("MD2LANG_EMBEDDING_MODEL", cfg.EmbeddingModel)
	cfg.EmbeddingDimensions = getEnvInt("MD2LANG_EMBEDDING_DIMENSIONS", cfg.EmbeddingDimensions)
	cfg.MemoryTopK = getEnvInt("MD2LANG_MEMORY_TOP_K", cfg.MemoryTopK)
	cfg.Neo4jURI = getEnv("NEO4J_URI", cfg.Neo4jURI)
	cfg.Neo4jUser = getEnv("NEO4J_USER", cfg.Neo4jUser)
	cfg.Neo4jPassword = getEnv("NEO4J_PASSWORD", cfg.Neo4jPassword)

	return cfg, nil
}

// APIKey reads the API key from the environment variable named by APIKeyEnv.
func (c *Config) APIKey() (string, error) {
	if v := os.Getenv(c.APIKeyEnv); v != "" {
		return v, nil
	}
	return "", fmt.Errorf("%w: environment variable %q is not set", ErrMissingAPIKey, c.APIKeyEnv)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("Ignoring non-integer environment value")
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("Ignoring non-numeric environment value")
		return fallback
	}
	return f
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("Ignoring invalid duration")
		return fallback
	}
	return d
}
