package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/asemyonov/searchcore/internal/core/domain"
	"github.com/asemyonov/searchcore/internal/core/ports"
	"github.com/asemyonov/searchcore/internal/observability/metrics"
)

const serviceName = "searchcore-api"

// EventSinkProvider hands out a broker-bound publisher for one mode.
// Nil means events stay on the HTTP stream only.
type EventSinkProvider interface {
	PublisherFor(mode domain.Mode) ports.EventPublisher
}

type Router struct {
	service     ports.SearchService
	sink        EventSinkProvider
	metrics     *metrics.HTTPServerMetrics
	logger      *slog.Logger
	defaultMode domain.Mode

	rateLimitRPS   float64
	rateLimitBurst int
}

type RouterOptions struct {
	EventSink      EventSinkProvider
	Metrics        *metrics.HTTPServerMetrics
	DefaultMode    domain.Mode
	RateLimitRPS   float64
	RateLimitBurst int
}

func NewRouter(service ports.SearchService, logger *slog.Logger, options RouterOptions) *Router {
	defaultMode := options.DefaultMode
	if defaultMode == "" {
		defaultMode = domain.ModePro
	}
	return &Router{
		service:        service,
		sink:           options.EventSink,
		metrics:        options.Metrics,
		logger:         logger,
		defaultMode:    defaultMode,
		rateLimitRPS:   options.RateLimitRPS,
		rateLimitBurst: options.RateLimitBurst,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/search", rt.search)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.rateLimitRPS > 0 {
		handler = rateLimitMiddleware(handler, rt.rateLimitRPS, rt.rateLimitBurst)
	}
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type searchRequestBody struct {
	Query              string               `json:"query"`
	Mode               string               `json:"mode"`
	History            []domain.ChatMessage `json:"history"`
	SystemInstructions string               `json:"system_instructions"`
	FileIDs            []string             `json:"file_ids"`
	Stream             bool                 `json:"stream"`
}

func (rt *Router) search(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var body searchRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(body.Query) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query is required"})
		return
	}

	mode, err := parseMode(body.Mode, rt.defaultMode)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	req := domain.SearchRequest{
		Query:              body.Query,
		History:            body.History,
		SystemInstructions: body.SystemInstructions,
		FileIDs:            body.FileIDs,
	}

	if body.Stream {
		rt.streamSearch(w, r, mode, req)
		return
	}

	events := rt.brokerPublisher(mode)
	start := time.Now()
	result := rt.service.Execute(r.Context(), mode, req, events)
	rt.recordResult(mode, result, time.Since(start))
	writeJSON(w, http.StatusOK, result)
}

// brokerPublisher returns the NATS-bound publisher for non-streaming
// requests, or nil when no sink is configured.
func (rt *Router) brokerPublisher(mode domain.Mode) ports.EventPublisher {
	if rt.sink == nil {
		return nil
	}
	return rt.sink.PublisherFor(mode)
}

func (rt *Router) recordResult(mode domain.Mode, result domain.SearchResult, elapsed time.Duration) {
	if rt.metrics == nil {
		return
	}
	rt.metrics.RecordSearch(serviceName, string(mode), string(result.SearchIntent.Strategy), result.Success, elapsed)
	for _, stage := range result.PipelineStages {
		if stage.Status != domain.StageCompleted {
			continue
		}
		rt.metrics.RecordStage(serviceName, string(stage.ID), stage.EndTime.Sub(stage.StartTime))
	}
	total := 0
	for _, source := range result.Sources {
		if source.TotalCandidates > total {
			total = source.TotalCandidates
		}
	}
	rt.metrics.RecordSourcesKept(serviceName, string(mode), total, len(result.Sources))
}

func parseMode(raw string, fallback domain.Mode) (domain.Mode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return fallback, nil
	case string(domain.ModeQuick):
		return domain.ModeQuick, nil
	case string(domain.ModePro):
		return domain.ModePro, nil
	case string(domain.ModeUltra):
		return domain.ModeUltra, nil
	default:
		return "", &modeError{raw: raw}
	}
}

type modeError struct{ raw string }

func (e *modeError) Error() string {
	return "unknown mode \"" + e.raw + "\": expected quick, pro or ultra"
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
