package ports

import (
	"context"

	"github.com/asemyonov/searchcore/internal/core/domain"
)

// ChatModel is a single-turn completion capability. Used for intent
// detection, chunk enhancement, and answer synthesis.
type ChatModel interface {
	Invoke(ctx context.Context, messages []domain.ChatMessage) (string, error)
}

// Embedder builds a vector for query or document text.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// SearchOptions tunes one search-backend call.
type SearchOptions struct {
	MaxResults int
	Category   string // "", "images" or "videos"
}

// SearchBackend is the web-search API the pipeline fans out to.
type SearchBackend interface {
	Search(ctx context.Context, query string, opts SearchOptions) ([]domain.SearchHit, error)
}

// DocumentRetriever fetches and parses page content for a set of URLs.
// It applies its own per-URL timeout and dedup policy; failed URLs are
// skipped, not reported as errors.
type DocumentRetriever interface {
	GetDocumentsFromLinks(ctx context.Context, links []string) ([]domain.Document, error)
}

// MediaSearcher retrieves images and videos for a query.
type MediaSearcher interface {
	SearchImages(ctx context.Context, query string, max int) ([]domain.ImageResult, error)
	SearchVideos(ctx context.Context, query string, max int) ([]domain.VideoResult, error)
}

// EventPublisher receives every progress and partial-result event the
// orchestrator produces. Publish must never block the pipeline.
type EventPublisher interface {
	Publish(event domain.StreamEvent)
}
