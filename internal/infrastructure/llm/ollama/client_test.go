package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/asemyonov/searchcore/internal/core/domain"
	"github.com/asemyonov/searchcore/internal/infrastructure/resilience"
)

func TestChatModelInvoke(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]any{"role": "assistant", "content": "  the answer \n"},
		})
	}))
	defer server.Close()

	client := New(server.URL, "test-model", "embed-model", Options{})
	model := NewChatModel(client)

	out, err := model.Invoke(context.Background(), []domain.ChatMessage{
		{Role: "system", Content: "be brief"},
		{Role: "user", Content: "hello"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "the answer" {
		t.Fatalf("expected trimmed content, got %q", out)
	}
	if gotPath != "/api/chat" {
		t.Fatalf("unexpected path %s", gotPath)
	}
	if gotBody["model"] != "test-model" {
		t.Fatalf("unexpected model %v", gotBody["model"])
	}
	if stream, ok := gotBody["stream"].(bool); !ok || stream {
		t.Fatalf("expected stream=false, got %v", gotBody["stream"])
	}
}

func TestChatModelInvokeRejectsEmptyMessages(t *testing.T) {
	client := New("http://localhost:0", "m", "e", Options{})
	if _, err := NewChatModel(client).Invoke(context.Background(), nil); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
}

func TestChatModelRetriesOnServerError(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts++
		if attempts < 2 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]any{"content": "recovered"},
		})
	}))
	defer server.Close()

	executor := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: 1,
		RetryMaxBackoff:     1,
		RetryMultiplier:     1,
		BreakerEnabled:      false,
	})
	client := New(server.URL, "m", "e", Options{ResilienceExecutor: executor})

	out, err := NewChatModel(client).Invoke(context.Background(), []domain.ChatMessage{{Role: "user", Content: "q"}})
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if out != "recovered" || attempts != 2 {
		t.Fatalf("expected recovery on attempt 2, got %q after %d attempts", out, attempts)
	}
}

func TestChatModelWrapsRetryableAsTemporary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := New(server.URL, "m", "e", Options{})
	_, err := NewChatModel(client).Invoke(context.Background(), []domain.ChatMessage{{Role: "user", Content: "q"}})
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error kind, got %v", err)
	}
}

func TestEmbedQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"embeddings": [][]float32{{0.1, 0.2, 0.3}},
		})
	}))
	defer server.Close()

	client := New(server.URL, "m", "embed-model", Options{})
	vector, err := NewEmbedder(client).EmbedQuery(context.Background(), "some text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vector) != 3 || vector[0] != 0.1 {
		t.Fatalf("unexpected vector %v", vector)
	}
}

func TestEmbedQueryEmptyResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"embeddings": [][]float32{}})
	}))
	defer server.Close()

	client := New(server.URL, "m", "e", Options{})
	if _, err := NewEmbedder(client).EmbedQuery(context.Background(), "text"); err == nil {
		t.Fatalf("expected error for empty embedding result")
	}
}

func TestClassifyOllamaError(t *testing.T) {
	badRequest := &HTTPStatusError{Operation: "chat", StatusCode: http.StatusBadRequest, Status: "400"}
	if class := classifyOllamaError(badRequest); class.Retryable {
		t.Fatalf("4xx must not be retryable")
	}
	unavailable := &HTTPStatusError{Operation: "chat", StatusCode: http.StatusServiceUnavailable, Status: "503"}
	if class := classifyOllamaError(unavailable); !class.Retryable || !class.RecordFailure {
		t.Fatalf("503 must be retryable and recorded")
	}
	if class := classifyOllamaError(context.Canceled); class.Retryable || class.RecordFailure {
		t.Fatalf("cancellation must be neither retried nor recorded")
	}
}
