package usecase

import (
	"time"

	"github.com/asemyonov/searchcore/internal/core/domain"
)

// TimeoutConfig carries advisory per-stage budgets. Collaborators are
// expected to honor them; the orchestrator does not enforce a supervising
// deadline over an in-flight stage.
type TimeoutConfig struct {
	Query    time.Duration
	Search   time.Duration
	Rerank   time.Duration
	Response time.Duration
	Total    time.Duration
}

type RerankWeights struct {
	Semantic  float64
	Keyword   float64
	Quality   float64
	Freshness float64
	Diversity float64
}

type RerankConfig struct {
	Weights         RerankWeights
	MinThreshold    float64
	AdaptiveScoring bool
}

type FusionConfig struct {
	MaxChunkSize     int // words per chunk window
	OverlapSize      int // words shared between neighbours
	MaxChunks        int
	BatchSize        int
	SkipEnhancement  bool
	SemanticGrouping bool
	ParallelBatches  bool
}

type SearchFanout struct {
	MaxQueries      int
	ResultsPerQuery int
}

// OrchestratorConfig is the fully resolved tuning for one execution.
// A fresh instance is built per request and never mutated mid-flight.
type OrchestratorConfig struct {
	Mode       domain.Mode
	MaxSources int
	MaxImages  int
	MaxVideos  int
	Timeouts   TimeoutConfig
	Search     SearchFanout
	Rerank     RerankConfig
	Fusion     FusionConfig
}

// Result-count ceilings are deliberately generous: relevance filtering,
// not an arbitrary cap, decides how many sources survive.
func modeDefaults(mode domain.Mode) OrchestratorConfig {
	switch mode {
	case domain.ModeQuick:
		return OrchestratorConfig{
			Mode:       domain.ModeQuick,
			MaxSources: 150,
			MaxImages:  30,
			MaxVideos:  15,
			Timeouts: TimeoutConfig{
				Query:    5 * time.Second,
				Search:   8 * time.Second,
				Rerank:   6 * time.Second,
				Response: 20 * time.Second,
				Total:    45 * time.Second,
			},
			Search: SearchFanout{MaxQueries: 3, ResultsPerQuery: 10},
			Rerank: RerankConfig{
				Weights:         RerankWeights{Semantic: 0.35, Keyword: 0.25, Quality: 0.15, Freshness: 0.15, Diversity: 0.10},
				MinThreshold:    0.5,
				AdaptiveScoring: true,
			},
			Fusion: FusionConfig{
				MaxChunkSize:     250,
				OverlapSize:      40,
				MaxChunks:        6,
				BatchSize:        3,
				SkipEnhancement:  true,
				SemanticGrouping: true,
				ParallelBatches:  false,
			},
		}
	case domain.ModeUltra:
		return OrchestratorConfig{
			Mode:       domain.ModeUltra,
			MaxSources: 500,
			MaxImages:  100,
			MaxVideos:  50,
			Timeouts: TimeoutConfig{
				Query:    10 * time.Second,
				Search:   25 * time.Second,
				Rerank:   20 * time.Second,
				Response: 90 * time.Second,
				Total:    240 * time.Second,
			},
			Search: SearchFanout{MaxQueries: 8, ResultsPerQuery: 20},
			Rerank: RerankConfig{
				Weights:         RerankWeights{Semantic: 0.40, Keyword: 0.20, Quality: 0.15, Freshness: 0.15, Diversity: 0.10},
				MinThreshold:    0.25,
				AdaptiveScoring: true,
			},
			Fusion: FusionConfig{
				MaxChunkSize:     600,
				OverlapSize:      120,
				MaxChunks:        14,
				BatchSize:        5,
				SkipEnhancement:  false,
				SemanticGrouping: true,
				ParallelBatches:  true,
			},
		}
	default: // pro
		return OrchestratorConfig{
			Mode:       domain.ModePro,
			MaxSources: 300,
			MaxImages:  60,
			MaxVideos:  30,
			Timeouts: TimeoutConfig{
				Query:    8 * time.Second,
				Search:   15 * time.Second,
				Rerank:   12 * time.Second,
				Response: 45 * time.Second,
				Total:    120 * time.Second,
			},
			Search: SearchFanout{MaxQueries: 5, ResultsPerQuery: 15},
			Rerank: RerankConfig{
				Weights:         RerankWeights{Semantic: 0.38, Keyword: 0.22, Quality: 0.15, Freshness: 0.15, Diversity: 0.10},
				MinThreshold:    0.35,
				AdaptiveScoring: true,
			},
			Fusion: FusionConfig{
				MaxChunkSize:     400,
				OverlapSize:      80,
				MaxChunks:        10,
				BatchSize:        4,
				SkipEnhancement:  false,
				SemanticGrouping: true,
				ParallelBatches:  true,
			},
		}
	}
}

// strategyThresholds override the mode threshold when an intent is present.
var strategyThresholds = map[domain.SearchStrategy]float64{
	domain.StrategyQuickAnswer: 0.6,
	domain.StrategyResearch:    0.25,
	domain.StrategyNews:        0.4,
	domain.StrategyComparison:  0.35,
}

// ResolveConfig builds the full execution config for a mode, refined by the
// detected intent when one is available. Pure function, no I/O.
func ResolveConfig(mode domain.Mode, intent *domain.SearchIntent) OrchestratorConfig {
	cfg := modeDefaults(mode)
	if intent == nil {
		return cfg
	}

	rec := domain.ClampRecommendations(intent.Recommendations)

	if threshold, ok := strategyThresholds[intent.Strategy]; ok {
		cfg.Rerank.MinThreshold = threshold
	}

	switch intent.Temporal {
	case domain.TemporalCurrent, domain.TemporalTrending:
		cfg.Rerank.Weights.Freshness += 0.10
		cfg.Rerank.Weights.Semantic -= 0.10
	}
	if intent.Strategy == domain.StrategyNews {
		cfg.Rerank.Weights.Freshness += 0.10
		cfg.Rerank.Weights.Keyword -= 0.10
	}

	if intent.Strategy == domain.StrategyResearch || intent.Strategy == domain.StrategyComparison ||
		intent.Complexity == domain.ComplexityComplex {
		cfg.Rerank.Weights.Diversity += 0.05
	}

	cfg.Timeouts = scaleTimeouts(cfg.Timeouts, rec.TimeoutMultiplier)

	queries := rec.SearchQueries
	if cfg.Mode == domain.ModeUltra {
		// ultra may fan out one query wider than recommended
		queries++
		if queries > 8 {
			queries = 8
		}
	}
	if queries > cfg.Search.MaxQueries {
		queries = cfg.Search.MaxQueries
	}
	if queries < 1 {
		queries = 1
	}
	cfg.Search.MaxQueries = queries

	cfg.Fusion = scaleFusionByDepth(cfg.Fusion, rec.SearchDepth)
	cfg.Fusion.ParallelBatches = cfg.Fusion.ParallelBatches && rec.Parallelization

	return cfg
}

func scaleTimeouts(t TimeoutConfig, multiplier float64) TimeoutConfig {
	scale := func(d time.Duration) time.Duration {
		return time.Duration(float64(d) * multiplier)
	}
	return TimeoutConfig{
		Query:    scale(t.Query),
		Search:   scale(t.Search),
		Rerank:   scale(t.Rerank),
		Response: scale(t.Response),
		Total:    scale(t.Total),
	}
}

func scaleFusionByDepth(f FusionConfig, depth domain.SearchDepth) FusionConfig {
	switch depth {
	case domain.DepthShallow:
		f.MaxChunkSize = f.MaxChunkSize * 4 / 5
		f.OverlapSize = f.OverlapSize * 4 / 5
		f.MaxChunks -= 2
		if f.MaxChunks < 3 {
			f.MaxChunks = 3
		}
	case domain.DepthDeep:
		f.MaxChunkSize = f.MaxChunkSize * 5 / 4
		f.OverlapSize = f.OverlapSize * 5 / 4
		f.MaxChunks += 4
	}
	return f
}
