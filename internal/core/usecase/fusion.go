package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/asemyonov/searchcore/internal/core/domain"
	"github.com/asemyonov/searchcore/internal/core/ports"
)

const (
	minChunkChars  = 100
	chunkSeparator = "---CHUNK---"
	// batches never run more than two at a time to avoid hammering the LLM
	maxEnhancementWorkers = 2
)

// ChunkCache memoizes fusion output keyed by (query, doc count, config).
// Entries are immutable once written, which is what makes sharing one
// cache across concurrent executions safe. There is no eviction: size is
// bounded by natural request variety within a process lifetime.
type ChunkCache struct {
	mu      sync.Mutex
	entries map[string][]domain.ContextChunk
}

func NewChunkCache() *ChunkCache {
	return &ChunkCache{entries: make(map[string][]domain.ContextChunk)}
}

func (c *ChunkCache) get(key string) ([]domain.ContextChunk, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	chunks, ok := c.entries[key]
	return chunks, ok
}

func (c *ChunkCache) set(key string, chunks []domain.ContextChunk) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = chunks
}

// ContextualFusion turns ranked documents into a small set of context
// chunks under the configured budget, optionally enhanced by batched LLM
// calls. A fusion instance belongs to one execution; the cache outlives it.
type ContextualFusion struct {
	cfg    FusionConfig
	llm    ports.ChatModel
	cache  *ChunkCache
	logger *slog.Logger
}

func NewContextualFusion(cfg FusionConfig, llm ports.ChatModel, cache *ChunkCache, logger *slog.Logger) *ContextualFusion {
	if cache == nil {
		cache = NewChunkCache()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ContextualFusion{
		cfg:    cfg,
		llm:    llm,
		cache:  cache,
		logger: logger,
	}
}

// CreateContextChunks runs the fusion steps, reporting coarse progress via
// the optional callback. Enhancement failures degrade per batch; the call
// itself never fails.
func (f *ContextualFusion) CreateContextChunks(ctx context.Context, query string, docs []domain.RerankedDocument, progress func(int)) []domain.ContextChunk {
	report := func(p int) {
		if progress != nil {
			progress(p)
		}
	}

	key := f.cacheKey(query, len(docs))
	if cached, ok := f.cache.get(key); ok {
		report(100)
		return cached
	}
	report(10)

	// speed bound: only the top slice of ranked documents is considered
	if bound := f.cfg.MaxChunks * 3; len(docs) > bound {
		docs = docs[:bound]
	}
	report(20)

	if f.cfg.SemanticGrouping && len(docs) > 5 {
		docs = groupBySourceSimilarity(docs)
	}
	report(40)

	chunks := f.chunkDocuments(docs)
	report(60)

	chunks = dedupeChunks(chunks)
	report(70)

	if len(chunks) > f.cfg.MaxChunks {
		chunks = chunks[:f.cfg.MaxChunks]
	}
	report(80)

	if !f.cfg.SkipEnhancement {
		chunks = f.enhanceChunks(ctx, query, chunks)
	}
	report(100)

	f.cache.set(key, chunks)
	return chunks
}

func (f *ContextualFusion) cacheKey(query string, docCount int) string {
	return fmt.Sprintf("%s|%d|%d:%d:%d:%d:%t", query, docCount,
		f.cfg.MaxChunkSize, f.cfg.OverlapSize, f.cfg.MaxChunks, f.cfg.BatchSize, f.cfg.SkipEnhancement)
}

// groupBySourceSimilarity is a deliberately cheap proxy for semantic
// deduplication: documents sharing a domain and leading title words
// collapse to the highest-relevance representative, with no LLM call.
func groupBySourceSimilarity(docs []domain.RerankedDocument) []domain.RerankedDocument {
	type group struct {
		index int
		best  domain.RerankedDocument
	}
	seen := make(map[string]*group, len(docs))
	order := make([]string, 0, len(docs))

	for _, doc := range docs {
		titleWords := strings.Fields(strings.ToLower(doc.Title))
		if len(titleWords) > 3 {
			titleWords = titleWords[:3]
		}
		key := hostOf(doc.URL) + "|" + strings.Join(titleWords, " ")

		if g, ok := seen[key]; ok {
			if doc.RelevanceScore > g.best.RelevanceScore {
				g.best = doc
			}
			continue
		}
		seen[key] = &group{index: len(order), best: doc}
		order = append(order, key)
	}

	out := make([]domain.RerankedDocument, 0, len(order))
	for _, key := range order {
		out = append(out, seen[key].best)
	}
	return out
}

// chunkDocuments slides an overlapping word window over each document and
// hard-stops once twice the chunk budget exists.
func (f *ContextualFusion) chunkDocuments(docs []domain.RerankedDocument) []domain.ContextChunk {
	limit := f.cfg.MaxChunks * 2
	step := f.cfg.MaxChunkSize - f.cfg.OverlapSize
	if step < 1 {
		step = 1
	}

	out := make([]domain.ContextChunk, 0, limit)
	for docIndex, doc := range docs {
		words := strings.Fields(doc.Content)
		for start, chunkIndex := 0, 0; start < len(words); start, chunkIndex = start+step, chunkIndex+1 {
			end := start + f.cfg.MaxChunkSize
			if end > len(words) {
				end = len(words)
			}
			content := strings.Join(words[start:end], " ")
			if len(content) >= minChunkChars {
				out = append(out, domain.ContextChunk{
					ID:             uuid.NewString(),
					Content:        content,
					Sources:        []string{doc.URL},
					RelevanceScore: doc.RelevanceScore,
					Metadata: domain.ChunkMetadata{
						DocumentIndex: docIndex,
						ChunkIndex:    chunkIndex,
					},
				})
				if len(out) >= limit {
					return out
				}
			}
			if end == len(words) {
				break
			}
		}
	}
	return out
}

func dedupeChunks(chunks []domain.ContextChunk) []domain.ContextChunk {
	seen := make(map[string]struct{}, len(chunks))
	out := make([]domain.ContextChunk, 0, len(chunks))
	for _, chunk := range chunks {
		key := strings.Join(strings.Fields(strings.ToLower(chunk.Content)), " ")
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, chunk)
	}
	return out
}

// enhanceChunks rewrites chunks via batched LLM calls, one call per batch.
// A failed or short batch response keeps the original content for the
// affected chunks instead of dropping them.
func (f *ContextualFusion) enhanceChunks(ctx context.Context, query string, chunks []domain.ContextChunk) []domain.ContextChunk {
	if len(chunks) == 0 {
		return chunks
	}

	batchSize := f.cfg.BatchSize
	if batchSize < 1 {
		batchSize = 1
	}
	batches := make([][]domain.ContextChunk, 0, (len(chunks)+batchSize-1)/batchSize)
	for start := 0; start < len(chunks); start += batchSize {
		end := start + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batches = append(batches, chunks[start:end])
	}

	if !f.cfg.ParallelBatches || len(batches) == 1 {
		for _, batch := range batches {
			f.enhanceBatch(ctx, query, batch)
		}
		return chunks
	}

	pool, err := ants.NewPool(maxEnhancementWorkers)
	if err != nil {
		f.logger.Warn("fusion_pool_failed", "error", err)
		for _, batch := range batches {
			f.enhanceBatch(ctx, query, batch)
		}
		return chunks
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for _, batch := range batches {
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			f.enhanceBatch(ctx, query, batch)
		}); err != nil {
			f.enhanceBatch(ctx, query, batch)
			wg.Done()
		}
	}
	wg.Wait()
	return chunks
}

// enhanceBatch mutates the batch slice in place.
func (f *ContextualFusion) enhanceBatch(ctx context.Context, query string, batch []domain.ContextChunk) {
	raw, err := f.llm.Invoke(ctx, []domain.ChatMessage{
		{Role: "user", Content: buildEnhancementPrompt(query, batch)},
	})
	if err != nil {
		f.logger.Warn("fusion_batch_enhance_failed", "batch_size", len(batch), "error", err)
		for i := range batch {
			batch[i].Metadata.EnhanceFailed = true
		}
		return
	}

	parts := strings.Split(raw, chunkSeparator)
	for i := range batch {
		if i >= len(parts) {
			// model returned fewer chunks than asked: keep the original
			continue
		}
		enhanced := strings.TrimSpace(parts[i])
		if enhanced == "" {
			continue
		}
		batch[i].Content = enhanced
		batch[i].Metadata.Enhanced = true
	}
}

func buildEnhancementPrompt(query string, batch []domain.ContextChunk) string {
	var b strings.Builder
	fmt.Fprintf(&b, `Rewrite each passage below so it directly supports answering the query, preserving all facts and figures. Return the rewritten passages in the same order, separated by the exact line %q. Do not add commentary.

Query: %s

`, chunkSeparator, query)
	for i, chunk := range batch {
		fmt.Fprintf(&b, "[CHUNK %d]\n%s\n\n", i+1, chunk.Content)
	}
	return b.String()
}
