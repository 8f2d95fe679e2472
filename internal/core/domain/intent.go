package domain

// SearchStrategy is the coarse answering strategy detected for a query.
type SearchStrategy string

const (
	StrategyQuickAnswer SearchStrategy = "quick_answer"
	StrategyResearch    SearchStrategy = "research"
	StrategyComparison  SearchStrategy = "comparison"
	StrategyTutorial    SearchStrategy = "tutorial"
	StrategyNews        SearchStrategy = "news"
	StrategyReference   SearchStrategy = "reference"
	StrategyCreative    SearchStrategy = "creative"
)

type QueryComplexity string

const (
	ComplexitySimple  QueryComplexity = "simple"
	ComplexityMedium  QueryComplexity = "medium"
	ComplexityComplex QueryComplexity = "complex"
)

type TemporalNeed string

const (
	TemporalCurrent    TemporalNeed = "current"
	TemporalHistorical TemporalNeed = "historical"
	TemporalTrending   TemporalNeed = "trending"
	TemporalTimeless   TemporalNeed = "timeless"
)

type MediaImportance string

const (
	MediaLow    MediaImportance = "low"
	MediaMedium MediaImportance = "medium"
	MediaHigh   MediaImportance = "high"
)

type SearchDepth string

const (
	DepthShallow SearchDepth = "shallow"
	DepthMedium  SearchDepth = "medium"
	DepthDeep    SearchDepth = "deep"
)

// ContentPreferences describes what kinds of media the answer benefits from.
type ContentPreferences struct {
	NeedsImages     bool            `json:"needs_images"`
	NeedsVideos     bool            `json:"needs_videos"`
	MediaImportance MediaImportance `json:"media_importance"`
	VisualLearning  bool            `json:"visual_learning"`
}

// IntentConfidence carries per-dimension classifier confidence in [0,1].
type IntentConfidence struct {
	Strategy   float64 `json:"strategy"`
	Complexity float64 `json:"complexity"`
	Temporal   float64 `json:"temporal"`
	Content    float64 `json:"content"`
}

// Recommendations are pipeline tuning hints derived from the intent.
// All numeric fields are clamped at the parse boundary; consumers may
// assume the documented ranges hold.
type Recommendations struct {
	SearchQueries      int         `json:"search_queries"` // 1..6
	SearchDepth        SearchDepth `json:"search_depth"`   // shallow|medium|deep
	Parallelization    bool        `json:"parallelization"`
	EarlyTermination   bool        `json:"early_termination"`
	RelevanceThreshold float64     `json:"relevance_threshold"` // 0.2..0.8
	TimeoutMultiplier  float64     `json:"timeout_multiplier"`  // 0.5..2.0
}

// SearchIntent is the multi-dimensional classification of one query.
// It is built once by the intent detector and immutable afterwards.
type SearchIntent struct {
	Strategy           SearchStrategy     `json:"strategy"`
	Complexity         QueryComplexity    `json:"complexity"`
	Temporal           TemporalNeed       `json:"temporal"`
	ContentPreferences ContentPreferences `json:"content_preferences"`
	Confidence         IntentConfidence   `json:"confidence"`
	Reasoning          string             `json:"reasoning"`
	Recommendations    Recommendations    `json:"recommendations"`
}

// ClampRecommendations forces every numeric recommendation into its
// documented range, regardless of whether an LLM or a heuristic produced it.
func ClampRecommendations(r Recommendations) Recommendations {
	if r.SearchQueries < 1 {
		r.SearchQueries = 1
	}
	if r.SearchQueries > 6 {
		r.SearchQueries = 6
	}
	switch r.SearchDepth {
	case DepthShallow, DepthMedium, DepthDeep:
	default:
		r.SearchDepth = DepthMedium
	}
	if r.RelevanceThreshold < 0.2 {
		r.RelevanceThreshold = 0.2
	}
	if r.RelevanceThreshold > 0.8 {
		r.RelevanceThreshold = 0.8
	}
	if r.TimeoutMultiplier < 0.5 {
		r.TimeoutMultiplier = 0.5
	}
	if r.TimeoutMultiplier > 2.0 {
		r.TimeoutMultiplier = 2.0
	}
	return r
}
