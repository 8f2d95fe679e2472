package main

import (
	"log"
	"os"

	mcpadapter "github.com/asemyonov/searchcore/internal/adapters/mcp"
	"github.com/asemyonov/searchcore/internal/bootstrap"
	"github.com/asemyonov/searchcore/internal/config"
	"github.com/asemyonov/searchcore/internal/core/domain"
	"github.com/asemyonov/searchcore/internal/observability/logging"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	// stdout carries the MCP protocol; logs must go to stderr
	logger := logging.NewJSONLoggerTo(os.Stderr, "searchcore-mcp", cfg.LogLevel)
	app, err := bootstrap.NewWithLogger(cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	server := mcpadapter.NewServer(app.Search, domain.Mode(cfg.DefaultMode), version, app.Logger)
	if err := server.ServeStdio(); err != nil {
		log.Fatalf("mcp server error: %v", err)
	}
}
