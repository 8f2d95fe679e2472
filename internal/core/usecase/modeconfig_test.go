package usecase

import (
	"math"
	"testing"
	"time"

	"github.com/asemyonov/searchcore/internal/core/domain"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestResolveConfigWithoutIntentKeepsModeDefaults(t *testing.T) {
	cfg := ResolveConfig(domain.ModePro, nil)
	if cfg.Rerank.MinThreshold != 0.35 {
		t.Fatalf("expected pro threshold 0.35, got %v", cfg.Rerank.MinThreshold)
	}
	if cfg.Search.MaxQueries != 5 {
		t.Fatalf("expected 5 queries for pro, got %d", cfg.Search.MaxQueries)
	}
	if cfg.Fusion.SkipEnhancement {
		t.Fatalf("pro mode must not skip enhancement")
	}
}

func TestResolveConfigAppliesStrategyThreshold(t *testing.T) {
	intent := &domain.SearchIntent{
		Strategy:        domain.StrategyResearch,
		Recommendations: domain.Recommendations{SearchQueries: 4, SearchDepth: domain.DepthMedium, RelevanceThreshold: 0.4, TimeoutMultiplier: 1.0},
	}
	cfg := ResolveConfig(domain.ModePro, intent)
	if cfg.Rerank.MinThreshold != 0.25 {
		t.Fatalf("expected research threshold 0.25, got %v", cfg.Rerank.MinThreshold)
	}
	if !almostEqual(cfg.Rerank.Weights.Diversity, 0.15) {
		t.Fatalf("expected diversity boost for research, got %v", cfg.Rerank.Weights.Diversity)
	}
}

func TestResolveConfigBoostsFreshnessForCurrentQueries(t *testing.T) {
	intent := &domain.SearchIntent{
		Strategy:        domain.StrategyQuickAnswer,
		Temporal:        domain.TemporalCurrent,
		Recommendations: domain.Recommendations{SearchQueries: 2, SearchDepth: domain.DepthMedium, RelevanceThreshold: 0.4, TimeoutMultiplier: 1.0},
	}
	cfg := ResolveConfig(domain.ModeQuick, intent)
	base := modeDefaults(domain.ModeQuick).Rerank.Weights
	if got := cfg.Rerank.Weights.Freshness; !almostEqual(got, base.Freshness+0.10) {
		t.Fatalf("expected freshness %v, got %v", base.Freshness+0.10, got)
	}
	if got := cfg.Rerank.Weights.Semantic; !almostEqual(got, base.Semantic-0.10) {
		t.Fatalf("expected semantic %v, got %v", base.Semantic-0.10, got)
	}
}

func TestResolveConfigUltraFansOutOneExtraQuery(t *testing.T) {
	intent := &domain.SearchIntent{
		Strategy:        domain.StrategyResearch,
		Recommendations: domain.Recommendations{SearchQueries: 5, SearchDepth: domain.DepthMedium, RelevanceThreshold: 0.3, TimeoutMultiplier: 1.0},
	}
	cfg := ResolveConfig(domain.ModeUltra, intent)
	if cfg.Search.MaxQueries != 6 {
		t.Fatalf("expected 6 queries (5 recommended + ultra bump), got %d", cfg.Search.MaxQueries)
	}

	intent.Recommendations.SearchQueries = 6
	cfg = ResolveConfig(domain.ModeUltra, intent)
	if cfg.Search.MaxQueries != 7 {
		t.Fatalf("expected 7 queries, got %d", cfg.Search.MaxQueries)
	}
}

func TestResolveConfigScalesTimeoutsWithMultiplier(t *testing.T) {
	intent := &domain.SearchIntent{
		Strategy:        domain.StrategyQuickAnswer,
		Recommendations: domain.Recommendations{SearchQueries: 1, SearchDepth: domain.DepthMedium, RelevanceThreshold: 0.5, TimeoutMultiplier: 1.5},
	}
	cfg := ResolveConfig(domain.ModePro, intent)
	want := time.Duration(float64(15*time.Second) * 1.5)
	if cfg.Timeouts.Search != want {
		t.Fatalf("expected search timeout %v, got %v", want, cfg.Timeouts.Search)
	}
}

func TestScaleFusionByDepth(t *testing.T) {
	base := modeDefaults(domain.ModeQuick).Fusion

	shallow := scaleFusionByDepth(base, domain.DepthShallow)
	if shallow.MaxChunkSize != 200 || shallow.OverlapSize != 32 || shallow.MaxChunks != 4 {
		t.Fatalf("unexpected shallow fusion config: %+v", shallow)
	}

	deep := scaleFusionByDepth(base, domain.DepthDeep)
	if deep.MaxChunkSize != 312 || deep.MaxChunks != 10 {
		t.Fatalf("unexpected deep fusion config: %+v", deep)
	}

	tiny := base
	tiny.MaxChunks = 4
	shallow = scaleFusionByDepth(tiny, domain.DepthShallow)
	if shallow.MaxChunks != 3 {
		t.Fatalf("expected chunk floor of 3, got %d", shallow.MaxChunks)
	}
}
