package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/asemyonov/searchcore/internal/core/domain"
	"github.com/asemyonov/searchcore/internal/infrastructure/resilience"
)

// Client talks to a single Ollama instance. It backs both the chat model
// and the embedder used by the pipeline.
type Client struct {
	baseURL    string
	chatModel  string
	embedModel string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Options struct {
	RequestTimeout     time.Duration
	ResilienceExecutor *resilience.Executor
}

func New(baseURL, chatModel, embedModel string, options Options) *Client {
	timeout := options.RequestTimeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		chatModel:  chatModel,
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: timeout},
		executor:   options.ResilienceExecutor,
	}
}

// ChatModel adapts the client to ports.ChatModel.
type ChatModel struct {
	client *Client
}

func NewChatModel(client *Client) *ChatModel {
	return &ChatModel{client: client}
}

func (m *ChatModel) Invoke(ctx context.Context, messages []domain.ChatMessage) (string, error) {
	if len(messages) == 0 {
		return "", domain.WrapError(domain.ErrInvalidInput, "ollama chat", fmt.Errorf("no messages"))
	}

	type wireMessage struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	wire := make([]wireMessage, 0, len(messages))
	for _, msg := range messages {
		wire = append(wire, wireMessage{Role: msg.Role, Content: msg.Content})
	}

	request := map[string]any{
		"model":    m.client.chatModel,
		"messages": wire,
		"stream":   false,
	}

	var response struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}
	call := func(ctx context.Context) error {
		return m.client.postJSON(ctx, "/api/chat", request, &response, "chat")
	}

	var err error
	if m.client.executor != nil {
		err = m.client.executor.Execute(ctx, "ollama.chat", call, classifyOllamaError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return "", wrapTemporaryIfNeeded("ollama chat", err)
	}
	return strings.TrimSpace(response.Message.Content), nil
}

// Embedder adapts the client to ports.Embedder.
type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ollama embed", fmt.Errorf("empty text"))
	}

	request := map[string]any{
		"model": e.client.embedModel,
		"input": []string{text},
	}

	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	call := func(ctx context.Context) error {
		return e.client.postJSON(ctx, "/api/embed", request, &response, "embed")
	}

	var err error
	if e.client.executor != nil {
		err = e.client.executor.Execute(ctx, "ollama.embed", call, classifyOllamaError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, wrapTemporaryIfNeeded("ollama embed", err)
	}
	if len(response.Embeddings) == 0 {
		return nil, fmt.Errorf("ollama embed: empty embedding result")
	}
	return response.Embeddings[0], nil
}
