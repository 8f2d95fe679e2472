package bootstrap

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/asemyonov/searchcore/internal/config"
	"github.com/asemyonov/searchcore/internal/core/ports"
	"github.com/asemyonov/searchcore/internal/core/usecase"
	"github.com/asemyonov/searchcore/internal/infrastructure/llm/ollama"
	"github.com/asemyonov/searchcore/internal/infrastructure/queue/nats"
	"github.com/asemyonov/searchcore/internal/infrastructure/resilience"
	"github.com/asemyonov/searchcore/internal/infrastructure/retriever/web"
	"github.com/asemyonov/searchcore/internal/infrastructure/search/searxng"
	"github.com/asemyonov/searchcore/internal/observability/logging"
)

// App wires the pipeline and its backends for one process.
type App struct {
	Config config.Config
	Logger *slog.Logger

	Search    ports.SearchService
	EventSink *nats.EventSink

	closeFn func()
}

func New(service string, cfg config.Config) (*App, error) {
	return NewWithLogger(cfg, logging.NewJSONLogger(service, cfg.LogLevel))
}

func NewWithLogger(cfg config.Config, logger *slog.Logger) (*App, error) {
	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaChatModel, cfg.OllamaEmbedModel, ollama.Options{
		RequestTimeout:     time.Duration(cfg.OllamaTimeoutSec) * time.Second,
		ResilienceExecutor: resilience.NewExecutor(resilience.LLMConfig()),
	})
	chatModel := ollama.NewChatModel(ollamaClient)
	embedder := ollama.NewEmbedder(ollamaClient)

	searchClient := searxng.New(cfg.SearxNGURL, searxng.Options{
		RequestTimeout:     time.Duration(cfg.SearxNGTimeoutSec) * time.Second,
		RequestsPerSecond:  cfg.SearxNGRPS,
		Burst:              cfg.SearxNGBurst,
		ResilienceExecutor: resilience.NewExecutor(resilience.SearchConfig()),
	})

	retriever := web.New(web.Options{
		PerURLTimeout: time.Duration(cfg.RetrieverTimeoutSec) * time.Second,
		Concurrency:   cfg.RetrieverConcurrency,
		Logger:        logger,
	})

	var sink *nats.EventSink
	closeFn := func() {}
	if cfg.NATSEnabled {
		var err error
		sink, err = nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubjectPrefix, nats.Options{
			ResilienceExecutor: resilience.NewExecutor(resilience.PublishConfig()),
		})
		if err != nil {
			return nil, fmt.Errorf("init event sink: %w", err)
		}
		closeFn = sink.Close
	}

	engine := usecase.NewSearchEngine(chatModel, embedder, searchClient, retriever, searchClient, logger)

	return &App{
		Config:    cfg,
		Logger:    logger,
		Search:    engine,
		EventSink: sink,
		closeFn:   closeFn,
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
