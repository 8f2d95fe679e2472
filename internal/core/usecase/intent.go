package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/asemyonov/searchcore/internal/core/domain"
	"github.com/asemyonov/searchcore/internal/core/ports"
)

// IntentDetector classifies a query along strategy, complexity, temporal
// need and content preference. It prefers one LLM call and falls back to a
// deterministic keyword classifier; it never returns an error.
type IntentDetector struct {
	llm    ports.ChatModel
	logger *slog.Logger
}

func NewIntentDetector(llm ports.ChatModel, logger *slog.Logger) *IntentDetector {
	if logger == nil {
		logger = slog.Default()
	}
	return &IntentDetector{llm: llm, logger: logger}
}

func (d *IntentDetector) DetectIntent(ctx context.Context, query string) domain.SearchIntent {
	query = strings.TrimSpace(query)
	if query == "" {
		return heuristicIntent(query)
	}

	raw, err := d.llm.Invoke(ctx, []domain.ChatMessage{
		{Role: "system", Content: intentSystemPrompt},
		{Role: "user", Content: buildIntentPrompt(query)},
	})
	if err != nil {
		d.logger.Warn("intent_llm_failed", "error", err)
		return heuristicIntent(query)
	}

	intent, err := parseIntentJSON(raw)
	if err != nil {
		d.logger.Warn("intent_parse_failed", "error", err)
		return heuristicIntent(query)
	}
	return intent
}

const intentSystemPrompt = `You classify web-search queries. Respond with a single JSON object and nothing else.`

func buildIntentPrompt(query string) string {
	return fmt.Sprintf(`Classify the query along four independent dimensions and recommend pipeline tuning.

Schema:
{
  "strategy": "quick_answer|research|comparison|tutorial|news|reference|creative",
  "complexity": "simple|medium|complex",
  "temporal": "current|historical|trending|timeless",
  "content_preferences": {
    "needs_images": bool,
    "needs_videos": bool,
    "media_importance": "low|medium|high",
    "visual_learning": bool
  },
  "confidence": {"strategy": 0..1, "complexity": 0..1, "temporal": 0..1, "content": 0..1},
  "reasoning": "short free text",
  "recommendations": {
    "search_queries": 1..6,
    "search_depth": "shallow|medium|deep",
    "parallelization": bool,
    "early_termination": bool,
    "relevance_threshold": 0.2..0.8,
    "timeout_multiplier": 0.5..2.0
  }
}

Query: %q`, query)
}

// parseIntentJSON validates the model output field by field. Every enum and
// numeric value is checked or clamped here; nothing unclamped leaves the
// parse boundary.
func parseIntentJSON(raw string) (domain.SearchIntent, error) {
	raw = extractJSONObject(raw)
	if !gjson.Valid(raw) {
		return domain.SearchIntent{}, fmt.Errorf("intent response is not valid json")
	}
	doc := gjson.Parse(raw)

	for _, key := range []string{"strategy", "complexity", "temporal", "content_preferences", "recommendations"} {
		if !doc.Get(key).Exists() {
			return domain.SearchIntent{}, fmt.Errorf("intent json missing %q", key)
		}
	}

	strategy, ok := parseStrategy(doc.Get("strategy").String())
	if !ok {
		return domain.SearchIntent{}, fmt.Errorf("unknown strategy %q", doc.Get("strategy").String())
	}
	complexity, ok := parseComplexity(doc.Get("complexity").String())
	if !ok {
		return domain.SearchIntent{}, fmt.Errorf("unknown complexity %q", doc.Get("complexity").String())
	}
	temporal, ok := parseTemporal(doc.Get("temporal").String())
	if !ok {
		return domain.SearchIntent{}, fmt.Errorf("unknown temporal %q", doc.Get("temporal").String())
	}

	prefs := doc.Get("content_preferences")
	intent := domain.SearchIntent{
		Strategy:   strategy,
		Complexity: complexity,
		Temporal:   temporal,
		ContentPreferences: domain.ContentPreferences{
			NeedsImages:     prefs.Get("needs_images").Bool(),
			NeedsVideos:     prefs.Get("needs_videos").Bool(),
			MediaImportance: parseMediaImportance(prefs.Get("media_importance").String()),
			VisualLearning:  prefs.Get("visual_learning").Bool(),
		},
		Confidence: domain.IntentConfidence{
			Strategy:   clamp01(doc.Get("confidence.strategy").Float()),
			Complexity: clamp01(doc.Get("confidence.complexity").Float()),
			Temporal:   clamp01(doc.Get("confidence.temporal").Float()),
			Content:    clamp01(doc.Get("confidence.content").Float()),
		},
		Reasoning: strings.TrimSpace(doc.Get("reasoning").String()),
	}

	rec := doc.Get("recommendations")
	intent.Recommendations = domain.ClampRecommendations(domain.Recommendations{
		SearchQueries:      int(rec.Get("search_queries").Int()),
		SearchDepth:        domain.SearchDepth(rec.Get("search_depth").String()),
		Parallelization:    rec.Get("parallelization").Bool(),
		EarlyTermination:   rec.Get("early_termination").Bool(),
		RelevanceThreshold: rec.Get("relevance_threshold").Float(),
		TimeoutMultiplier:  rec.Get("timeout_multiplier").Float(),
	})

	return intent, nil
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}

func parseStrategy(s string) (domain.SearchStrategy, bool) {
	switch v := domain.SearchStrategy(normalizeEnum(s)); v {
	case domain.StrategyQuickAnswer, domain.StrategyResearch, domain.StrategyComparison,
		domain.StrategyTutorial, domain.StrategyNews, domain.StrategyReference, domain.StrategyCreative:
		return v, true
	}
	return "", false
}

func parseComplexity(s string) (domain.QueryComplexity, bool) {
	switch v := domain.QueryComplexity(normalizeEnum(s)); v {
	case domain.ComplexitySimple, domain.ComplexityMedium, domain.ComplexityComplex:
		return v, true
	}
	return "", false
}

func parseTemporal(s string) (domain.TemporalNeed, bool) {
	switch v := domain.TemporalNeed(normalizeEnum(s)); v {
	case domain.TemporalCurrent, domain.TemporalHistorical, domain.TemporalTrending, domain.TemporalTimeless:
		return v, true
	}
	return "", false
}

func parseMediaImportance(s string) domain.MediaImportance {
	switch v := domain.MediaImportance(normalizeEnum(s)); v {
	case domain.MediaLow, domain.MediaMedium, domain.MediaHigh:
		return v
	}
	return domain.MediaLow
}

func normalizeEnum(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	// models occasionally answer in camelCase
	if s == "quickanswer" {
		return string(domain.StrategyQuickAnswer)
	}
	return s
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

var (
	newsKeywords       = []string{"news", "breaking", "announcement", "released", "launch", "update"}
	tutorialKeywords   = []string{"how to", "tutorial", "guide", "step by step", "install", "setup", "build", "make", "bake", "configure"}
	comparisonKeywords = []string{" vs ", "versus", "compare", "comparison", "difference between", "better than", "or should i"}
	researchKeywords   = []string{"research", "analysis", "study", "impact of", "implications", "in depth", "comprehensive", "why does", "why is"}
	referenceKeywords  = []string{"definition", "meaning of", "syntax", "documentation", "reference", "specification", "api for"}
	creativeKeywords   = []string{"write a", "write me", "poem", "story about", "imagine", "brainstorm", "ideas for"}

	currentKeywords    = []string{"today", "now", "current", "latest", "right now", "this week", "price of", "weather"}
	trendingKeywords   = []string{"trending", "viral", "popular", "hot right now"}
	historicalKeywords = []string{"history of", "historical", "origin of", "originally", "in the past", "ancient", "who invented"}

	imageKeywords = []string{"image", "images", "photo", "picture", "diagram", "look like", "chart", "map of"}
	videoKeywords = []string{"video", "videos", "watch", "footage", "trailer", "demonstration"}
)

// heuristicIntent is the deterministic fallback classifier. Its confidence
// is deliberately lower than a successful LLM classification.
func heuristicIntent(query string) domain.SearchIntent {
	lower := strings.ToLower(strings.TrimSpace(query))
	words := strings.Fields(lower)

	strategy := domain.StrategyQuickAnswer
	switch {
	case containsAny(lower, tutorialKeywords):
		strategy = domain.StrategyTutorial
	case containsAny(lower, comparisonKeywords):
		strategy = domain.StrategyComparison
	case containsAny(lower, newsKeywords):
		strategy = domain.StrategyNews
	case containsAny(lower, researchKeywords):
		strategy = domain.StrategyResearch
	case containsAny(lower, referenceKeywords):
		strategy = domain.StrategyReference
	case containsAny(lower, creativeKeywords):
		strategy = domain.StrategyCreative
	}

	complexity := domain.ComplexitySimple
	switch {
	case len(words) > 14 || strings.Count(lower, "?") > 1:
		complexity = domain.ComplexityComplex
	case len(words) > 6:
		complexity = domain.ComplexityMedium
	}

	temporal := domain.TemporalTimeless
	switch {
	case strategy == domain.StrategyNews || containsAny(lower, currentKeywords):
		temporal = domain.TemporalCurrent
	case containsAny(lower, trendingKeywords):
		temporal = domain.TemporalTrending
	case containsAny(lower, historicalKeywords):
		temporal = domain.TemporalHistorical
	}

	prefs := domain.ContentPreferences{MediaImportance: domain.MediaLow}
	if containsAny(lower, imageKeywords) {
		prefs.NeedsImages = true
		prefs.MediaImportance = domain.MediaMedium
	}
	if containsAny(lower, videoKeywords) {
		prefs.NeedsVideos = true
		prefs.MediaImportance = domain.MediaMedium
	}
	if strategy == domain.StrategyTutorial {
		prefs.VisualLearning = true
		prefs.MediaImportance = domain.MediaHigh
	}

	return domain.SearchIntent{
		Strategy:           strategy,
		Complexity:         complexity,
		Temporal:           temporal,
		ContentPreferences: prefs,
		Confidence: domain.IntentConfidence{
			Strategy:   0.6,
			Complexity: 0.7,
			Temporal:   0.6,
			Content:    0.5,
		},
		Reasoning:       "keyword heuristic classification",
		Recommendations: heuristicRecommendations(strategy, complexity, temporal),
	}
}

func heuristicRecommendations(strategy domain.SearchStrategy, complexity domain.QueryComplexity, temporal domain.TemporalNeed) domain.Recommendations {
	rec := domain.Recommendations{
		SearchQueries:      2,
		SearchDepth:        domain.DepthMedium,
		RelevanceThreshold: 0.4,
		TimeoutMultiplier:  1.0,
	}

	switch strategy {
	case domain.StrategyQuickAnswer:
		rec.SearchQueries = 1
		rec.SearchDepth = domain.DepthShallow
		rec.RelevanceThreshold = 0.6
		rec.EarlyTermination = true
	case domain.StrategyResearch:
		rec.SearchQueries = 4
		rec.SearchDepth = domain.DepthDeep
		rec.RelevanceThreshold = 0.25
	case domain.StrategyComparison:
		rec.SearchQueries = 3
		rec.RelevanceThreshold = 0.35
	case domain.StrategyTutorial:
		rec.SearchQueries = 3
	case domain.StrategyNews:
		rec.SearchQueries = 3
		rec.SearchDepth = domain.DepthShallow
		rec.RelevanceThreshold = 0.4
	}

	switch complexity {
	case domain.ComplexityComplex:
		rec.SearchQueries += 2
		rec.TimeoutMultiplier = 1.5
		if rec.SearchDepth == domain.DepthShallow {
			rec.SearchDepth = domain.DepthMedium
		}
	case domain.ComplexitySimple:
		rec.TimeoutMultiplier = 0.8
	}

	if temporal == domain.TemporalCurrent || temporal == domain.TemporalTrending {
		rec.TimeoutMultiplier *= 0.9
	}

	rec.Parallelization = rec.SearchQueries > 2
	return domain.ClampRecommendations(rec)
}

func containsAny(haystack string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(haystack, needle) {
			return true
		}
	}
	return false
}
