package usecase

import (
	"context"
	"sync"

	"github.com/asemyonov/searchcore/internal/core/domain"
	"github.com/asemyonov/searchcore/internal/core/ports"
)

// fakeChatModel replays scripted responses in order and records every call.
type fakeChatModel struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	calls     [][]domain.ChatMessage
}

func (f *fakeChatModel) Invoke(_ context.Context, messages []domain.ChatMessage) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, messages)

	idx := len(f.calls) - 1
	if idx < len(f.errs) && f.errs[idx] != nil {
		return "", f.errs[idx]
	}
	if idx < len(f.responses) {
		return f.responses[idx], nil
	}
	return "", nil
}

func (f *fakeChatModel) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// fakeEmbedder returns a fixed vector, or delegates to embedFn when set.
type fakeEmbedder struct {
	vector  []float32
	embedFn func(text string) []float32
	err     error
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.embedFn != nil {
		return f.embedFn(text), nil
	}
	if f.vector != nil {
		return f.vector, nil
	}
	return []float32{1, 0, 0}, nil
}

type fakeSearchBackend struct {
	mu      sync.Mutex
	hits    []domain.SearchHit
	err     error
	queries []string
}

func (f *fakeSearchBackend) Search(_ context.Context, query string, _ ports.SearchOptions) ([]domain.SearchHit, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.hits, nil
}

type fakeRetriever struct {
	docs []domain.Document
	err  error
}

func (f *fakeRetriever) GetDocumentsFromLinks(_ context.Context, _ []string) ([]domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.docs, nil
}

type fakeMediaSearcher struct {
	images []domain.ImageResult
	videos []domain.VideoResult
	err    error
}

func (f *fakeMediaSearcher) SearchImages(_ context.Context, _ string, _ int) ([]domain.ImageResult, error) {
	return f.images, f.err
}

func (f *fakeMediaSearcher) SearchVideos(_ context.Context, _ string, _ int) ([]domain.VideoResult, error) {
	return f.videos, f.err
}

// capturePublisher records every published event for assertions.
type capturePublisher struct {
	mu     sync.Mutex
	events []domain.StreamEvent
}

func (c *capturePublisher) Publish(event domain.StreamEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func (c *capturePublisher) byType(t domain.EventType) []domain.StreamEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.StreamEvent, 0, 4)
	for _, e := range c.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
