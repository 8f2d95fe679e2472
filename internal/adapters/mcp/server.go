package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/asemyonov/searchcore/internal/core/domain"
	"github.com/asemyonov/searchcore/internal/core/ports"
)

// Server exposes the search pipeline as an MCP tool so that agent
// frontends can call it over stdio.
type Server struct {
	service     ports.SearchService
	defaultMode domain.Mode
	logger      *slog.Logger
	mcp         *server.MCPServer
}

func NewServer(service ports.SearchService, defaultMode domain.Mode, version string, logger *slog.Logger) *Server {
	if defaultMode == "" {
		defaultMode = domain.ModePro
	}
	s := &Server{
		service:     service,
		defaultMode: defaultMode,
		logger:      logger,
	}

	mcpServer := server.NewMCPServer("searchcore", version,
		server.WithToolCapabilities(false),
	)
	mcpServer.AddTool(searchTool(), s.handleWebSearch)
	s.mcp = mcpServer
	return s
}

func searchTool() mcp.Tool {
	return mcp.NewTool("web_search",
		mcp.WithDescription("Searches the web, reads the best sources and returns a synthesized, source-grounded answer."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("The question or topic to research."),
		),
		mcp.WithString("mode",
			mcp.Description("Performance tier: quick (fastest), pro (balanced) or ultra (deepest)."),
			mcp.Enum("quick", "pro", "ultra"),
		),
	)
}

// toolResponse is the JSON shape returned to the MCP client. Media and
// pipeline internals are omitted; agents want the answer and citations.
type toolResponse struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
	Mode    string   `json:"mode"`
}

func (s *Server) handleWebSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query is required"), nil
	}
	if strings.TrimSpace(query) == "" {
		return mcp.NewToolResultError("query is required"), nil
	}

	mode := s.defaultMode
	switch strings.ToLower(request.GetString("mode", "")) {
	case string(domain.ModeQuick):
		mode = domain.ModeQuick
	case string(domain.ModePro):
		mode = domain.ModePro
	case string(domain.ModeUltra):
		mode = domain.ModeUltra
	case "":
	default:
		return mcp.NewToolResultError("mode must be quick, pro or ultra"), nil
	}

	result := s.service.Execute(ctx, mode, domain.SearchRequest{Query: query}, nil)
	if !result.Success {
		s.logger.Warn("mcp_search_failed", "error", result.Error)
		return mcp.NewToolResultError(result.Message), nil
	}

	response := toolResponse{
		Answer:  result.Message,
		Sources: sourceURLs(result.Sources),
		Mode:    string(result.Mode),
	}
	payload, err := json.Marshal(response)
	if err != nil {
		return nil, fmt.Errorf("marshal tool response: %w", err)
	}
	return mcp.NewToolResultText(string(payload)), nil
}

func sourceURLs(sources []domain.RerankedDocument) []string {
	urls := make([]string, 0, len(sources))
	for _, source := range sources {
		urls = append(urls, source.URL)
	}
	return urls
}

// ServeStdio blocks serving the MCP protocol on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}
