package mcpadapter

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/asemyonov/searchcore/internal/core/domain"
	"github.com/asemyonov/searchcore/internal/core/ports"
)

type fakeSearchService struct {
	result   domain.SearchResult
	lastMode domain.Mode
	lastReq  domain.SearchRequest
}

func (f *fakeSearchService) Execute(_ context.Context, mode domain.Mode, req domain.SearchRequest, _ ports.EventPublisher) domain.SearchResult {
	f.lastMode = mode
	f.lastReq = req
	return f.result
}

func newTestServer(service ports.SearchService) *Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(service, domain.ModePro, "test", logger)
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	request := mcp.CallToolRequest{}
	request.Params.Name = "web_search"
	request.Params.Arguments = args
	return request
}

func textContent(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) != 1 {
		t.Fatalf("expected single content item, got %d", len(result.Content))
	}
	text, ok := mcp.AsTextContent(result.Content[0])
	if !ok {
		t.Fatalf("expected text content, got %T", result.Content[0])
	}
	return text.Text
}

func TestHandleWebSearchReturnsAnswerWithSources(t *testing.T) {
	service := &fakeSearchService{result: domain.SearchResult{
		Message: "wireguard is a vpn protocol",
		Sources: []domain.RerankedDocument{
			{Document: domain.Document{URL: "https://example.com/wg"}},
			{Document: domain.Document{URL: "https://example.org/vpn"}},
		},
		Mode:    domain.ModeUltra,
		Success: true,
	}}
	srv := newTestServer(service)

	result, err := srv.handleWebSearch(context.Background(), callRequest(map[string]any{
		"query": "what is wireguard",
		"mode":  "ultra",
	}))
	if err != nil {
		t.Fatalf("handleWebSearch: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %v", result.Content)
	}
	if service.lastMode != domain.ModeUltra {
		t.Fatalf("expected ultra mode, got %q", service.lastMode)
	}

	var response toolResponse
	if err := json.Unmarshal([]byte(textContent(t, result)), &response); err != nil {
		t.Fatalf("decode tool response: %v", err)
	}
	if response.Answer != "wireguard is a vpn protocol" {
		t.Fatalf("unexpected answer %q", response.Answer)
	}
	if len(response.Sources) != 2 || response.Sources[0] != "https://example.com/wg" {
		t.Fatalf("unexpected sources %v", response.Sources)
	}
}

func TestHandleWebSearchDefaultsMode(t *testing.T) {
	service := &fakeSearchService{result: domain.SearchResult{Message: "ok", Success: true}}
	srv := newTestServer(service)

	if _, err := srv.handleWebSearch(context.Background(), callRequest(map[string]any{
		"query": "anything",
	})); err != nil {
		t.Fatalf("handleWebSearch: %v", err)
	}
	if service.lastMode != domain.ModePro {
		t.Fatalf("expected pro default, got %q", service.lastMode)
	}
}

func TestHandleWebSearchValidation(t *testing.T) {
	service := &fakeSearchService{result: domain.SearchResult{Message: "ok", Success: true}}
	srv := newTestServer(service)

	cases := []struct {
		name string
		args map[string]any
	}{
		{"missing query", map[string]any{}},
		{"blank query", map[string]any{"query": "  "}},
		{"bad mode", map[string]any{"query": "x", "mode": "turbo"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := srv.handleWebSearch(context.Background(), callRequest(tc.args))
			if err != nil {
				t.Fatalf("handleWebSearch: %v", err)
			}
			if !result.IsError {
				t.Fatalf("expected tool error result")
			}
		})
	}
}

func TestHandleWebSearchPropagatesFailure(t *testing.T) {
	service := &fakeSearchService{result: domain.SearchResult{
		Message: "Error: backends unavailable",
		Success: false,
		Error:   "backends unavailable",
	}}
	srv := newTestServer(service)

	result, err := srv.handleWebSearch(context.Background(), callRequest(map[string]any{"query": "x"}))
	if err != nil {
		t.Fatalf("handleWebSearch: %v", err)
	}
	if !result.IsError {
		t.Fatalf("expected error result for failed search")
	}
	if got := textContent(t, result); got != "Error: backends unavailable" {
		t.Fatalf("unexpected error text %q", got)
	}
}
