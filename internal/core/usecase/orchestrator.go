package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/asemyonov/searchcore/internal/core/domain"
	"github.com/asemyonov/searchcore/internal/core/ports"
)

const (
	minDocumentContentChars = 50
	responseChunkChars      = 120
)

// SearchEngine owns the long-lived collaborators and builds one pipeline
// execution per request. It implements ports.SearchService.
type SearchEngine struct {
	llm        ports.ChatModel
	embedder   ports.Embedder
	backend    ports.SearchBackend
	retriever  ports.DocumentRetriever
	media      ports.MediaSearcher
	intents    *IntentDetector
	chunkCache *ChunkCache
	logger     *slog.Logger
}

func NewSearchEngine(
	llm ports.ChatModel,
	embedder ports.Embedder,
	backend ports.SearchBackend,
	retriever ports.DocumentRetriever,
	media ports.MediaSearcher,
	logger *slog.Logger,
) *SearchEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &SearchEngine{
		llm:        llm,
		embedder:   embedder,
		backend:    backend,
		retriever:  retriever,
		media:      media,
		intents:    NewIntentDetector(llm, logger),
		chunkCache: NewChunkCache(),
		logger:     logger,
	}
}

// Execute runs the five-stage pipeline. It never returns an error: every
// failure mode degrades to an error-shaped SearchResult.
func (e *SearchEngine) Execute(ctx context.Context, mode domain.Mode, req domain.SearchRequest, events ports.EventPublisher) domain.SearchResult {
	if events == nil {
		events = discardPublisher{}
	}

	id := uuid.NewString()
	x := &execution{
		engine: e,
		id:     id,
		mode:   mode,
		req:    req,
		events: events,
		stages: domain.NewPipelineStages(),
		logger: e.logger.With("execution_id", id, "mode", string(mode)),
	}
	return x.run(ctx)
}

// execution is the per-request pipeline state. Stage state, config,
// reranker and fusion instances are never shared across executions.
type execution struct {
	engine *SearchEngine
	id     string
	mode   domain.Mode
	req    domain.SearchRequest
	events ports.EventPublisher
	logger *slog.Logger

	// guards stage progress: Stage S fan-out goroutines report
	// concurrently against the same PipelineStage
	progressMu sync.Mutex

	stages []domain.PipelineStage
	cfg    OrchestratorConfig
	intent domain.SearchIntent

	queries []string
	docs    []domain.Document
	images  []domain.ImageResult
	videos  []domain.VideoResult
	ranked  []domain.RerankedDocument
	chunks  []domain.ContextChunk
	answer  string
}

func (x *execution) run(ctx context.Context) (result domain.SearchResult) {
	started := time.Now()

	defer func() {
		// last line of defense against programming errors inside stages
		if r := recover(); r != nil {
			x.logger.Error("pipeline_panic", "panic", r)
			err := fmt.Errorf("internal error: %v", r)
			for i := range x.stages {
				x.stages[i].Fail(time.Now(), err)
			}
			x.events.Publish(domain.StreamEvent{
				Type: domain.EventSearchError,
				Data: map[string]any{"error": err.Error()},
			})
			result = x.errorResult(started, err)
		}
	}()

	type stageFn struct {
		id domain.StageID
		fn func(ctx context.Context, stage *domain.PipelineStage) error
	}
	plan := []stageFn{
		{domain.StageQuery, x.stageQueryUnderstanding},
		{domain.StageSearch, x.stageSearch},
		{domain.StageRanking, x.stageRanking},
		{domain.StageExtraction, x.stageExtraction},
		{domain.StageDelivery, x.stageDelivery},
	}

	for i, step := range plan {
		if err := x.runStage(ctx, step.id, step.fn); err != nil {
			x.logger.Error("pipeline_stage_failed", "stage", string(step.id), "error", err)
			return x.errorResult(started, err)
		}
		x.events.Publish(domain.StreamEvent{
			Type: domain.EventPipelineProgress,
			Data: map[string]any{"completed_stages": i + 1, "total_stages": len(plan)},
		})
	}

	result = x.successResult(started)
	x.events.Publish(domain.StreamEvent{
		Type: domain.EventSearchComplete,
		Data: map[string]any{
			"sources":           len(result.Sources),
			"images":            len(result.Images),
			"videos":            len(result.Videos),
			"execution_time_ms": result.ExecutionTime.Milliseconds(),
		},
	})
	return result
}

func (x *execution) runStage(ctx context.Context, id domain.StageID, fn func(context.Context, *domain.PipelineStage) error) error {
	stage := x.stage(id)
	if err := stage.Start(time.Now()); err != nil {
		return err
	}

	if err := fn(ctx, stage); err != nil {
		stage.Fail(time.Now(), err)
		x.events.Publish(domain.StreamEvent{
			Type: domain.EventSearchError,
			Data: map[string]any{"stage": string(id), "error": err.Error()},
		})
		return err
	}

	if err := stage.Complete(time.Now()); err != nil {
		return err
	}
	x.events.Publish(domain.StreamEvent{
		Type: domain.EventStageComplete,
		Data: map[string]any{"stage": string(id), "duration_ms": stage.EndTime.Sub(stage.StartTime).Milliseconds()},
	})
	return nil
}

// recoverGoroutine keeps a panicking collaborator from taking down the
// process when the call runs off the pipeline goroutine. The branch result
// stays at its zero value.
func (x *execution) recoverGoroutine(task string) {
	if r := recover(); r != nil {
		x.logger.Error("search_branch_panic", "task", task, "panic", r)
	}
}

func (x *execution) stage(id domain.StageID) *domain.PipelineStage {
	for i := range x.stages {
		if x.stages[i].ID == id {
			return &x.stages[i]
		}
	}
	// stage ids come from StageOrder, this is unreachable for valid ids
	panic(fmt.Sprintf("unknown stage %s", id))
}

// reportStageProgress applies and publishes under one lock so that
// concurrent reporters cannot race on the stage field or reorder the
// published values below an already-announced progress.
func (x *execution) reportStageProgress(stage *domain.PipelineStage, progress int) {
	x.progressMu.Lock()
	defer x.progressMu.Unlock()
	stage.SetProgress(progress)
	x.events.Publish(domain.StreamEvent{
		Type: domain.EventStageProgress,
		Data: map[string]any{"stage": string(stage.ID), "progress": stage.Progress},
	})
}

// stageQueryUnderstanding detects intent, resolves the execution config and
// generates the fan-out queries. It degrades to a single-query fallback
// intent rather than aborting the pipeline.
func (x *execution) stageQueryUnderstanding(ctx context.Context, stage *domain.PipelineStage) error {
	queryCtx, cancel := context.WithTimeout(ctx, modeDefaults(x.mode).Timeouts.Query)
	defer cancel()

	intent := x.engine.intents.DetectIntent(queryCtx, x.req.Query)
	if intent.Strategy == "" {
		intent = fallbackIntent()
	}
	x.intent = intent
	x.reportStageProgress(stage, 50)

	x.cfg = ResolveConfig(x.mode, &intent)
	x.queries = generateSearchQueries(x.req.Query, intent.Strategy, x.cfg.Search.MaxQueries)
	x.reportStageProgress(stage, 90)

	x.logger.Info("query_understood",
		"strategy", string(intent.Strategy),
		"complexity", string(intent.Complexity),
		"queries", len(x.queries),
	)
	return nil
}

func fallbackIntent() domain.SearchIntent {
	return domain.SearchIntent{
		Strategy:           domain.StrategyQuickAnswer,
		Complexity:         domain.ComplexitySimple,
		Temporal:           domain.TemporalTimeless,
		ContentPreferences: domain.ContentPreferences{MediaImportance: domain.MediaLow},
		Confidence:         domain.IntentConfidence{Strategy: 0.3, Complexity: 0.3, Temporal: 0.3, Content: 0.3},
		Reasoning:          "fallback after intent detection failure",
		Recommendations: domain.ClampRecommendations(domain.Recommendations{
			SearchQueries:      1,
			SearchDepth:        domain.DepthMedium,
			RelevanceThreshold: 0.4,
			TimeoutMultiplier:  1.0,
		}),
	}
}

// stageSearch fans out document retrieval across all generated queries and
// media retrieval in parallel, then joins every branch (all-settled, not a
// race). Per-unit failures are skipped, never propagated.
func (x *execution) stageSearch(ctx context.Context, stage *domain.PipelineStage) error {
	var wg sync.WaitGroup

	var docs []domain.Document
	var images []domain.ImageResult
	var videos []domain.VideoResult

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer x.recoverGoroutine("documents")
		docs = x.retrieveDocuments(ctx, stage)
	}()

	prefs := x.intent.ContentPreferences
	wantImages := prefs.NeedsImages || prefs.VisualLearning || prefs.MediaImportance == domain.MediaHigh
	wantVideos := prefs.NeedsVideos || prefs.MediaImportance == domain.MediaHigh

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer x.recoverGoroutine("images")
		if !wantImages {
			images = []domain.ImageResult{}
			return
		}
		found, err := x.engine.media.SearchImages(ctx, x.req.Query, x.cfg.MaxImages)
		if err != nil {
			x.logger.Warn("image_search_failed", "error", err)
			found = nil
		}
		if found == nil {
			found = []domain.ImageResult{}
		}
		images = found
		x.events.Publish(domain.StreamEvent{Type: domain.EventImagesReady, Data: found})
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer x.recoverGoroutine("videos")
		if !wantVideos {
			videos = []domain.VideoResult{}
			return
		}
		found, err := x.engine.media.SearchVideos(ctx, x.req.Query, x.cfg.MaxVideos)
		if err != nil {
			x.logger.Warn("video_search_failed", "error", err)
			found = nil
		}
		if found == nil {
			found = []domain.VideoResult{}
		}
		videos = found
		x.events.Publish(domain.StreamEvent{Type: domain.EventVideosReady, Data: found})
	}()

	wg.Wait()

	x.docs = docs
	x.images = images
	x.videos = videos
	x.logger.Info("search_completed", "documents", len(docs), "images", len(images), "videos", len(videos))
	return nil
}

// retrieveDocuments runs the per-query backend fan-out, dedupes hits by
// URL, fetches full content, and falls back to snippet-only then
// title-only documents for URLs whose fetch failed.
func (x *execution) retrieveDocuments(ctx context.Context, stage *domain.PipelineStage) []domain.Document {
	perQuery := make([][]domain.SearchHit, len(x.queries))
	var wg sync.WaitGroup
	var completed int
	var mu sync.Mutex

	for i, query := range x.queries {
		wg.Add(1)
		go func(i int, query string) {
			defer wg.Done()
			defer x.recoverGoroutine("search_query")
			searchCtx, cancel := context.WithTimeout(ctx, x.cfg.Timeouts.Search)
			defer cancel()

			hits, err := x.engine.backend.Search(searchCtx, query, ports.SearchOptions{MaxResults: x.cfg.Search.ResultsPerQuery})
			if err != nil {
				x.logger.Warn("search_query_failed", "query", query, "error", err)
				return
			}
			perQuery[i] = hits

			mu.Lock()
			completed++
			progress := 10 + completed*40/len(x.queries)
			mu.Unlock()
			x.reportStageProgress(stage, progress)
		}(i, query)
	}
	wg.Wait()

	// dedupe in query-issue order; concurrent retrieval means first-seen
	// is not tied to any particular query, which is accepted
	hitByURL := make(map[string]domain.SearchHit)
	links := make([]string, 0, 64)
	for _, hits := range perQuery {
		for _, hit := range hits {
			if hit.URL == "" {
				continue
			}
			if _, ok := hitByURL[hit.URL]; ok {
				continue
			}
			hitByURL[hit.URL] = hit
			links = append(links, hit.URL)
		}
	}
	if len(links) == 0 {
		return []domain.Document{}
	}
	x.reportStageProgress(stage, 60)

	fetched, err := x.engine.retriever.GetDocumentsFromLinks(ctx, links)
	if err != nil {
		x.logger.Warn("document_fetch_failed", "links", len(links), "error", err)
		fetched = nil
	}
	fetchedByURL := make(map[string]domain.Document, len(fetched))
	for _, doc := range fetched {
		fetchedByURL[doc.URL] = doc
	}
	x.reportStageProgress(stage, 85)

	docs := make([]domain.Document, 0, len(links))
	for _, link := range links {
		hit := hitByURL[link]
		doc, ok := fetchedByURL[link]
		if !ok || len(strings.TrimSpace(doc.Content)) < minDocumentContentChars {
			doc = snippetDocument(hit)
		}
		if doc.Title == "" {
			doc.Title = hit.Title
		}
		if doc.Metadata == nil {
			doc.Metadata = map[string]string{}
		}
		doc.Metadata["snippet"] = hit.Content
		docs = append(docs, doc)
	}
	return docs
}

// snippetDocument degrades to the search snippet, then to a minimal
// title-only document. Near-empty documents are left for the reranker's
// quality signal to suppress.
func snippetDocument(hit domain.SearchHit) domain.Document {
	content := strings.TrimSpace(hit.Content)
	if content == "" {
		content = hit.Title
	}
	return domain.Document{
		URL:     hit.URL,
		Title:   hit.Title,
		Content: content,
	}
}

// stageRanking scores and filters the retrieved documents. Zero documents
// is a valid empty result; the sources event is still emitted so stream
// consumers never wait on an event that will not come.
func (x *execution) stageRanking(ctx context.Context, stage *domain.PipelineStage) error {
	if len(x.docs) == 0 {
		x.ranked = []domain.RerankedDocument{}
		x.events.Publish(domain.StreamEvent{Type: domain.EventSourcesReady, Data: x.ranked})
		return nil
	}
	x.reportStageProgress(stage, 20)

	reranker := NewNeuralReranker(x.cfg.Rerank, x.logger)
	x.ranked = reranker.RerankDocuments(ctx, x.req.Query, x.docs, x.engine.embedder)
	x.reportStageProgress(stage, 90)

	x.events.Publish(domain.StreamEvent{Type: domain.EventSourcesReady, Data: x.ranked})
	x.logger.Info("ranking_completed", "candidates", len(x.docs), "kept", len(x.ranked))
	return nil
}

// stageExtraction fuses ranked documents into context chunks, remapping
// the fusion engine's internal 0-100 progress onto this stage's 10-95
// displayed range.
func (x *execution) stageExtraction(ctx context.Context, stage *domain.PipelineStage) error {
	if len(x.ranked) == 0 {
		x.chunks = []domain.ContextChunk{}
		return nil
	}

	fusion := NewContextualFusion(x.cfg.Fusion, x.engine.llm, x.engine.chunkCache, x.logger)
	x.chunks = fusion.CreateContextChunks(ctx, x.req.Query, x.ranked, func(p int) {
		x.reportStageProgress(stage, 10+p*85/100)
	})

	x.logger.Info("extraction_completed", "chunks", len(x.chunks))
	return nil
}

// stageDelivery synthesizes the final answer from the fused context, with
// tiered fallbacks when no context exists or the model call fails.
func (x *execution) stageDelivery(ctx context.Context, stage *domain.PipelineStage) error {
	if len(x.chunks) == 0 {
		x.answer = mediaOnlyResponse(x.req.Query, len(x.images), len(x.videos))
		x.streamAnswer(x.answer)
		return nil
	}

	selected := selectChunksForContext(x.chunks)
	contextBlock := buildContextBlock(selected)
	x.reportStageProgress(stage, 30)

	messages := buildSynthesisMessages(x.req, x.intent, contextBlock)

	responseCtx, cancel := context.WithTimeout(ctx, x.cfg.Timeouts.Response)
	defer cancel()

	answer, err := x.engine.llm.Invoke(responseCtx, messages)
	if err != nil {
		x.logger.Warn("synthesis_failed", "error", err)
		answer = excerptFallback(selected, len(x.ranked))
	}
	x.answer = strings.TrimSpace(answer)
	x.reportStageProgress(stage, 90)

	x.streamAnswer(x.answer)
	return nil
}

// streamAnswer chunks on rune boundaries so multibyte answers never
// yield broken UTF-8 in response_chunk payloads.
func (x *execution) streamAnswer(answer string) {
	runes := []rune(answer)
	for start := 0; start < len(runes); start += responseChunkChars {
		end := start + responseChunkChars
		if end > len(runes) {
			end = len(runes)
		}
		x.events.Publish(domain.StreamEvent{Type: domain.EventResponseChunk, Data: string(runes[start:end])})
	}
	x.events.Publish(domain.StreamEvent{Type: domain.EventResponseComplete, Data: answer})
}

func (x *execution) successResult(started time.Time) domain.SearchResult {
	sources := x.ranked
	if len(sources) > x.cfg.MaxSources {
		sources = sources[:x.cfg.MaxSources]
	}

	return domain.SearchResult{
		Message:        x.answer,
		Sources:        sources,
		Images:         filterImages(x.req.Query, x.images, x.cfg.MaxImages),
		Videos:         filterVideos(x.req.Query, x.videos, x.cfg.MaxVideos),
		SearchIntent:   x.intent,
		PipelineStages: x.snapshotStages(),
		ExecutionTime:  time.Since(started),
		Mode:           x.mode,
		Success:        true,
	}
}

func (x *execution) errorResult(started time.Time, err error) domain.SearchResult {
	intent := x.intent
	if intent.Strategy == "" {
		intent = fallbackIntent()
	}

	return domain.SearchResult{
		Message:        "Error: " + err.Error(),
		Sources:        []domain.RerankedDocument{},
		Images:         []domain.ImageResult{},
		Videos:         []domain.VideoResult{},
		SearchIntent:   intent,
		PipelineStages: x.snapshotStages(),
		ExecutionTime:  time.Since(started),
		Mode:           x.mode,
		Success:        false,
		Error:          err.Error(),
	}
}

func (x *execution) snapshotStages() []domain.PipelineStage {
	out := make([]domain.PipelineStage, len(x.stages))
	copy(out, x.stages)
	return out
}
