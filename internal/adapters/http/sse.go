package httpadapter

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/asemyonov/searchcore/internal/core/domain"
	"github.com/asemyonov/searchcore/internal/core/ports"
	"github.com/asemyonov/searchcore/internal/core/usecase"
)

// streamSearch runs the pipeline in a goroutine and relays every stream
// event to the client as a server-sent event. The final result is sent
// as a search_complete or search_error event by the pipeline itself, so
// the stream ends with the [DONE] marker only.
func (rt *Router) streamSearch(w http.ResponseWriter, r *http.Request, mode domain.Mode, req domain.SearchRequest) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming is not supported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	stream := usecase.NewStreamController()
	var events ports.EventPublisher = stream
	if sink := rt.brokerPublisher(mode); sink != nil {
		events = usecase.NewMultiPublisher(stream, sink)
	}

	done := make(chan domain.SearchResult, 1)
	start := time.Now()
	go func() {
		defer stream.Close()
		done <- rt.service.Execute(r.Context(), mode, req, events)
	}()

	for event := range stream.Events() {
		payload, err := json.Marshal(event)
		if err != nil {
			rt.logger.Error("stream_event_marshal_failed", "error", err, "type", event.Type)
			continue
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			// client went away; drain the pipeline so it can finish
			for range stream.Events() {
			}
			break
		}
		flusher.Flush()
	}

	result := <-done
	rt.recordResult(mode, result, time.Since(start))

	if _, err := io.WriteString(w, "data: [DONE]\n\n"); err != nil {
		return
	}
	flusher.Flush()
}
