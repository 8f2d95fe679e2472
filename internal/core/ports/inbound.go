package ports

import (
	"context"

	"github.com/asemyonov/searchcore/internal/core/domain"
)

// SearchService is the inbound contract for one pipeline execution.
// Execute never returns an error: failures come back as an error-shaped
// SearchResult with Success=false.
type SearchService interface {
	Execute(ctx context.Context, mode domain.Mode, req domain.SearchRequest, events EventPublisher) domain.SearchResult
}
