package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("SEARXNG_URL", "")
	t.Setenv("OLLAMA_CHAT_MODEL", "")
	t.Setenv("NATS_ENABLED", "")
	t.Setenv("DEFAULT_MODE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIPort != "8080" {
		t.Fatalf("expected default api port 8080, got %q", cfg.APIPort)
	}
	if cfg.SearxNGURL != "http://localhost:8888" {
		t.Fatalf("expected default searxng url, got %q", cfg.SearxNGURL)
	}
	if cfg.OllamaChatModel != "llama3.1:8b" {
		t.Fatalf("expected default chat model, got %q", cfg.OllamaChatModel)
	}
	if cfg.NATSEnabled {
		t.Fatalf("expected nats disabled by default")
	}
	if cfg.DefaultMode != "pro" {
		t.Fatalf("expected default mode pro, got %q", cfg.DefaultMode)
	}
	if cfg.RetrieverConcurrency != 8 {
		t.Fatalf("expected retriever concurrency 8, got %d", cfg.RetrieverConcurrency)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("SEARXNG_URL", "http://search.internal:8080")
	t.Setenv("SEARXNG_RPS", "2.5")
	t.Setenv("RETRIEVER_CONCURRENCY", "16")
	t.Setenv("NATS_ENABLED", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SearxNGURL != "http://search.internal:8080" {
		t.Fatalf("expected searxng url override, got %q", cfg.SearxNGURL)
	}
	if cfg.SearxNGRPS != 2.5 {
		t.Fatalf("expected searxng rps 2.5, got %v", cfg.SearxNGRPS)
	}
	if cfg.RetrieverConcurrency != 16 {
		t.Fatalf("expected retriever concurrency 16, got %d", cfg.RetrieverConcurrency)
	}
	if !cfg.NATSEnabled {
		t.Fatalf("expected nats enabled")
	}
}

func TestLoadFileOverlayAndEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "api_port: \"9000\"\nollama_chat_model: qwen2.5:14b\nsearxng_burst: 9\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("API_PORT", "9100")
	t.Setenv("OLLAMA_CHAT_MODEL", "")
	t.Setenv("SEARXNG_BURST", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIPort != "9100" {
		t.Fatalf("env must win over file, got %q", cfg.APIPort)
	}
	if cfg.OllamaChatModel != "qwen2.5:14b" {
		t.Fatalf("expected file chat model, got %q", cfg.OllamaChatModel)
	}
	if cfg.SearxNGBurst != 9 {
		t.Fatalf("expected file burst 9, got %d", cfg.SearxNGBurst)
	}
}

func TestLoadBadFileFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("api_port: [broken"), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	t.Setenv("CONFIG_FILE", path)
	if _, err := Load(); err == nil {
		t.Fatalf("expected parse error for malformed file")
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	t.Setenv("CONFIG_FILE", "/nonexistent/config.yaml")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
