package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	APIPort  string `yaml:"api_port"`
	LogLevel string `yaml:"log_level"`

	DefaultMode string `yaml:"default_mode"`

	SearxNGURL        string  `yaml:"searxng_url"`
	SearxNGRPS        float64 `yaml:"searxng_rps"`
	SearxNGBurst      int     `yaml:"searxng_burst"`
	SearxNGTimeoutSec int     `yaml:"searxng_timeout_seconds"`

	OllamaURL        string `yaml:"ollama_url"`
	OllamaChatModel  string `yaml:"ollama_chat_model"`
	OllamaEmbedModel string `yaml:"ollama_embed_model"`
	OllamaTimeoutSec int    `yaml:"ollama_timeout_seconds"`

	RetrieverTimeoutSec  int `yaml:"retriever_timeout_seconds"`
	RetrieverConcurrency int `yaml:"retriever_concurrency"`

	NATSEnabled       bool   `yaml:"nats_enabled"`
	NATSURL           string `yaml:"nats_url"`
	NATSSubjectPrefix string `yaml:"nats_subject_prefix"`

	HTTPRateLimitRPS   float64 `yaml:"http_rate_limit_rps"`
	HTTPRateLimitBurst int     `yaml:"http_rate_limit_burst"`
}

func defaults() Config {
	return Config{
		APIPort:  "8080",
		LogLevel: "info",

		DefaultMode: "pro",

		SearxNGURL:        "http://localhost:8888",
		SearxNGRPS:        8,
		SearxNGBurst:      4,
		SearxNGTimeoutSec: 15,

		OllamaURL:        "http://localhost:11434",
		OllamaChatModel:  "llama3.1:8b",
		OllamaEmbedModel: "nomic-embed-text",
		OllamaTimeoutSec: 120,

		RetrieverTimeoutSec:  8,
		RetrieverConcurrency: 8,

		NATSEnabled:       false,
		NATSURL:           "nats://localhost:4222",
		NATSSubjectPrefix: "search.events",

		HTTPRateLimitRPS:   10,
		HTTPRateLimitBurst: 20,
	}
}

// Load resolves configuration in three layers: built-in defaults, an
// optional YAML file named by CONFIG_FILE, then environment variables.
// Environment always wins.
func Load() (Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.APIPort = mustEnv("API_PORT", cfg.APIPort)
	cfg.LogLevel = mustEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.DefaultMode = mustEnv("DEFAULT_MODE", cfg.DefaultMode)

	cfg.SearxNGURL = mustEnv("SEARXNG_URL", cfg.SearxNGURL)
	cfg.SearxNGRPS = mustEnvFloat("SEARXNG_RPS", cfg.SearxNGRPS)
	cfg.SearxNGBurst = mustEnvInt("SEARXNG_BURST", cfg.SearxNGBurst)
	cfg.SearxNGTimeoutSec = mustEnvInt("SEARXNG_TIMEOUT_SECONDS", cfg.SearxNGTimeoutSec)

	cfg.OllamaURL = mustEnv("OLLAMA_URL", cfg.OllamaURL)
	cfg.OllamaChatModel = mustEnv("OLLAMA_CHAT_MODEL", cfg.OllamaChatModel)
	cfg.OllamaEmbedModel = mustEnv("OLLAMA_EMBED_MODEL", cfg.OllamaEmbedModel)
	cfg.OllamaTimeoutSec = mustEnvInt("OLLAMA_TIMEOUT_SECONDS", cfg.OllamaTimeoutSec)

	cfg.RetrieverTimeoutSec = mustEnvInt("RETRIEVER_TIMEOUT_SECONDS", cfg.RetrieverTimeoutSec)
	cfg.RetrieverConcurrency = mustEnvInt("RETRIEVER_CONCURRENCY", cfg.RetrieverConcurrency)

	cfg.NATSEnabled = mustEnvBool("NATS_ENABLED", cfg.NATSEnabled)
	cfg.NATSURL = mustEnv("NATS_URL", cfg.NATSURL)
	cfg.NATSSubjectPrefix = mustEnv("NATS_SUBJECT_PREFIX", cfg.NATSSubjectPrefix)

	cfg.HTTPRateLimitRPS = mustEnvFloat("HTTP_RATE_LIMIT_RPS", cfg.HTTPRateLimitRPS)
	cfg.HTTPRateLimitBurst = mustEnvInt("HTTP_RATE_LIMIT_BURST", cfg.HTTPRateLimitBurst)

	return cfg, nil
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}
