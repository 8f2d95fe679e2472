package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/asemyonov/searchcore/internal/adapters/http"
	"github.com/asemyonov/searchcore/internal/bootstrap"
	"github.com/asemyonov/searchcore/internal/config"
	"github.com/asemyonov/searchcore/internal/core/domain"
	"github.com/asemyonov/searchcore/internal/observability/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New("searchcore-api", cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	options := httpadapter.RouterOptions{
		Metrics:        metrics.NewHTTPServerMetrics("searchcore-api"),
		DefaultMode:    domain.Mode(cfg.DefaultMode),
		RateLimitRPS:   cfg.HTTPRateLimitRPS,
		RateLimitBurst: cfg.HTTPRateLimitBurst,
	}
	if app.EventSink != nil {
		options.EventSink = app.EventSink
	}
	router := httpadapter.NewRouter(app.Search, app.Logger, options).Handler()

	server := &http.Server{
		Addr:        ":" + cfg.APIPort,
		Handler:     router,
		ReadTimeout: 30 * time.Second,
		// streamed ultra searches can legitimately run for minutes
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		app.Logger.Info("api_listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("api server error: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		app.Logger.Error("api_shutdown_error", "error", err)
	}
}
