package domain

import "time"

// Mode is the coarse performance/quality tier for one execution.
type Mode string

const (
	ModeQuick Mode = "quick"
	ModePro   Mode = "pro"
	ModeUltra Mode = "ultra"
)

// ChatMessage is one turn of conversation history passed to the pipeline
// and to the chat model.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SearchHit is one raw result from the web-search backend.
type SearchHit struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Document is a retrieved page with its metadata. Content holds the full
// extracted text when the fetch succeeded, otherwise the search snippet.
type Document struct {
	URL      string            `json:"url"`
	Title    string            `json:"title"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ScoreBreakdown exposes the reranker's per-signal sub-scores for
// observability. Values are the raw signal scores before weighting.
type ScoreBreakdown struct {
	Semantic  float64 `json:"semantic"`
	Keyword   float64 `json:"keyword"`
	Quality   float64 `json:"quality"`
	Freshness float64 `json:"freshness"`
	Diversity float64 `json:"diversity"`
}

// RerankedDocument is a Document annotated with its final relevance score
// and original position in the candidate set.
type RerankedDocument struct {
	Document
	RelevanceScore  float64        `json:"relevance_score"` // always in [0,1]
	OriginalRank    int            `json:"original_rank"`
	Breakdown       ScoreBreakdown `json:"breakdown"`
	TotalCandidates int            `json:"total_candidates"`
}

// ChunkMetadata records where a context chunk came from.
type ChunkMetadata struct {
	DocumentIndex int  `json:"document_index"`
	ChunkIndex    int  `json:"chunk_index"`
	Enhanced      bool `json:"enhanced"`
	EnhanceFailed bool `json:"enhance_failed,omitempty"`
}

// ContextChunk is a bounded span of source text prepared for synthesis.
type ContextChunk struct {
	ID             string        `json:"id"`
	Content        string        `json:"content"`
	Sources        []string      `json:"sources"`
	RelevanceScore float64       `json:"relevance_score"`
	Metadata       ChunkMetadata `json:"metadata"`
}

// ImageResult is one image search hit.
type ImageResult struct {
	ImgSrc string `json:"img_src"`
	URL    string `json:"url"`
	Title  string `json:"title"`
}

// VideoResult is one video search hit.
type VideoResult struct {
	URL       string `json:"url"`
	Title     string `json:"title"`
	Thumbnail string `json:"thumbnail,omitempty"`
	IframeSrc string `json:"iframe_src,omitempty"`
}

// SearchResult is the terminal output of one pipeline execution.
type SearchResult struct {
	Message        string             `json:"message"`
	Sources        []RerankedDocument `json:"sources"`
	Images         []ImageResult      `json:"images"`
	Videos         []VideoResult      `json:"videos"`
	SearchIntent   SearchIntent       `json:"search_intent"`
	PipelineStages []PipelineStage    `json:"pipeline_stages"`
	ExecutionTime  time.Duration      `json:"execution_time_ms"`
	Mode           Mode               `json:"mode"`
	Success        bool               `json:"success"`
	Error          string             `json:"error,omitempty"`
}

// SearchRequest is the inbound contract of the orchestrator.
type SearchRequest struct {
	Query              string        `json:"query"`
	History            []ChatMessage `json:"history,omitempty"`
	FileIDs            []string      `json:"file_ids,omitempty"`
	SystemInstructions string        `json:"system_instructions,omitempty"`
}
