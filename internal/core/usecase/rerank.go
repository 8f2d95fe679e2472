package usecase

import (
	"context"
	"log/slog"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/asemyonov/searchcore/internal/core/domain"
	"github.com/asemyonov/searchcore/internal/core/ports"
)

// embedContentLimit bounds how much document text is sent to the embedder.
const embedContentLimit = 2000

var freshKeywords = []string{"latest", "recent", "new", "updated", "current", "today", "now"}

// NeuralReranker scores candidate documents with five signals (semantic,
// keyword, quality, freshness, diversity) under adaptively tuned weights
// and filters them against a pool-relative threshold.
type NeuralReranker struct {
	cfg    RerankConfig
	logger *slog.Logger
}

func NewNeuralReranker(cfg RerankConfig, logger *slog.Logger) *NeuralReranker {
	if logger == nil {
		logger = slog.Default()
	}
	return &NeuralReranker{cfg: cfg, logger: logger}
}

// RerankDocuments returns a scored, descending-sorted subset of docs.
// It never fails for normal inputs; embedding errors degrade the semantic
// signal to zero for the affected document.
func (r *NeuralReranker) RerankDocuments(ctx context.Context, query string, docs []domain.Document, embedder ports.Embedder) []domain.RerankedDocument {
	if len(docs) == 0 {
		return []domain.RerankedDocument{}
	}

	weights := r.adaptWeights(query)

	queryVector, err := embedder.EmbedQuery(ctx, query)
	if err != nil {
		r.logger.Warn("rerank_query_embed_failed", "error", err)
		queryVector = nil
	}

	domainCounts := countDomains(docs)
	terms := queryTerms(query)

	scored := make([]domain.RerankedDocument, 0, len(docs))
	for i, doc := range docs {
		breakdown := domain.ScoreBreakdown{
			Semantic:  r.semanticScore(ctx, queryVector, doc, embedder),
			Keyword:   keywordScore(terms, doc),
			Quality:   qualityScore(doc),
			Freshness: freshnessScore(doc, time.Now()),
			Diversity: diversityPenalty(domainCounts[hostOf(doc.URL)]),
		}

		score := breakdown.Semantic*weights.Semantic +
			breakdown.Keyword*weights.Keyword +
			breakdown.Quality*weights.Quality +
			breakdown.Freshness*weights.Freshness -
			breakdown.Diversity*weights.Diversity
		if score < 0 {
			score = 0
		}
		if score > 1 {
			score = 1
		}

		scored = append(scored, domain.RerankedDocument{
			Document:        doc,
			RelevanceScore:  score,
			OriginalRank:    i,
			Breakdown:       breakdown,
			TotalCandidates: len(docs),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].RelevanceScore > scored[j].RelevanceScore
	})

	return r.filterByDynamicThreshold(scored)
}

// filterByDynamicThreshold keeps documents scoring at or above
// min(configured threshold, 0.5 x mean score). The formula adapts to pool
// quality instead of rejecting uniformly weak pools outright; it is kept
// exactly as documented even where it is permissive.
func (r *NeuralReranker) filterByDynamicThreshold(scored []domain.RerankedDocument) []domain.RerankedDocument {
	total := 0.0
	for _, doc := range scored {
		total += doc.RelevanceScore
	}
	if total == 0 {
		// no signal at all: nothing is worth admitting
		return []domain.RerankedDocument{}
	}

	mean := total / float64(len(scored))
	threshold := r.cfg.MinThreshold
	if dynamic := 0.5 * mean; dynamic < threshold {
		threshold = dynamic
	}

	out := make([]domain.RerankedDocument, 0, len(scored))
	for _, doc := range scored {
		if doc.RelevanceScore >= threshold {
			out = append(out, doc)
		}
	}
	return out
}

// adaptWeights shifts the configured base weights by query shape while
// respecting a floor per signal.
func (r *NeuralReranker) adaptWeights(query string) RerankWeights {
	weights := r.cfg.Weights
	if !r.cfg.AdaptiveScoring {
		return weights
	}

	lower := strings.ToLower(query)
	wordCount := len(strings.Fields(lower))

	switch {
	case wordCount <= 3:
		weights.Keyword += 0.10
		weights.Semantic -= 0.10
	case wordCount > 6:
		weights.Semantic += 0.10
		weights.Keyword -= 0.10
	}

	if containsAny(lower, freshKeywords) {
		weights.Freshness += 0.05
		weights.Diversity -= 0.05
	}
	if containsAny(lower, []string{"how", "what", "why", "explain", "guide"}) {
		weights.Quality += 0.05
		weights.Keyword -= 0.05
	}

	const floor = 0.05
	for _, w := range []*float64{&weights.Semantic, &weights.Keyword, &weights.Quality, &weights.Freshness, &weights.Diversity} {
		if *w < floor {
			*w = floor
		}
	}
	return weights
}

func (r *NeuralReranker) semanticScore(ctx context.Context, queryVector []float32, doc domain.Document, embedder ports.Embedder) float64 {
	if len(queryVector) == 0 {
		return 0
	}
	content := doc.Content
	if len(content) > embedContentLimit {
		content = content[:embedContentLimit]
	}
	if strings.TrimSpace(content) == "" {
		return 0
	}
	docVector, err := embedder.EmbedQuery(ctx, content)
	if err != nil {
		r.logger.Warn("rerank_doc_embed_failed", "url", doc.URL, "error", err)
		return 0
	}
	return clamp01(cosineSimilarity(queryVector, docVector))
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// queryTerms keeps terms longer than 2 characters, lowercased.
func queryTerms(query string) []string {
	fields := splitAlphaNumLower(query)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) > 2 {
			out = append(out, f)
		}
	}
	return out
}

// keywordScore combines word-boundary matches in title and content with a
// partial-substring bonus, then scales the sum by query-term coverage.
func keywordScore(terms []string, doc domain.Document) float64 {
	if len(terms) == 0 {
		return 0
	}

	titleWords := toTokenSet(doc.Title)
	contentLower := strings.ToLower(doc.Content)
	titleLower := strings.ToLower(doc.Title)

	sum := 0.0
	matched := 0
	for _, term := range terms {
		hit := false

		if _, ok := titleWords[term]; ok {
			sum += 0.4
			hit = true
		}

		if occurrences := countWordMatches(contentLower, term); occurrences > 0 {
			if occurrences > 5 {
				occurrences = 5
			}
			sum += 0.1 * float64(occurrences)
			hit = true
		}

		if !hit && len(term) > 4 &&
			(strings.Contains(titleLower, term) || strings.Contains(contentLower, term)) {
			sum += 0.05
			hit = true
		}

		if hit {
			matched++
		}
	}

	coverage := float64(matched) / float64(len(terms))
	return clamp01(sum * coverage)
}

func countWordMatches(textLower, term string) int {
	count := 0
	start := 0
	for start < len(textLower) {
		idx := strings.Index(textLower[start:], term)
		if idx < 0 {
			break
		}
		abs := start + idx
		before := abs == 0 || !isWordRune(rune(textLower[abs-1]))
		afterIdx := abs + len(term)
		after := afterIdx >= len(textLower) || !isWordRune(rune(textLower[afterIdx]))
		if before && after {
			count++
		}
		start = abs + len(term)
	}
	return count
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

var sentenceSplit = regexp.MustCompile(`[.!?]+`)

// qualityScore applies bounded additive heuristics for content length,
// sentence structure, lexical diversity and title sanity.
func qualityScore(doc domain.Document) float64 {
	score := 0.0

	contentLen := len(doc.Content)
	if contentLen >= 100 && contentLen <= 10000 {
		score += 0.3
	} else if contentLen > 10000 {
		score += 0.15
	}

	sentences := sentenceSplit.Split(doc.Content, -1)
	valid := 0
	nonEmpty := 0
	for _, s := range sentences {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		nonEmpty++
		if len(s) >= 20 && len(s) <= 200 {
			valid++
		}
	}
	if nonEmpty > 0 && float64(valid)/float64(nonEmpty) >= 0.5 {
		score += 0.25
	}

	words := strings.Fields(strings.ToLower(doc.Content))
	if len(words) > 0 {
		unique := make(map[string]struct{}, len(words))
		for _, w := range words {
			unique[w] = struct{}{}
		}
		ratio := float64(len(unique)) / float64(len(words))
		if ratio >= 0.3 && ratio <= 0.9 {
			score += 0.25
		}
	}

	titleLen := len(doc.Title)
	if titleLen >= 10 && titleLen <= 200 {
		score += 0.2
	}

	return clamp01(score)
}

// freshnessScore rewards mentions of recent years and freshness vocabulary.
func freshnessScore(doc domain.Document, now time.Time) float64 {
	score := 0.3
	content := strings.ToLower(doc.Content + " " + doc.Title)

	year := now.Year()
	switch {
	case strings.Contains(content, strconv.Itoa(year)):
		score += 0.4
	case strings.Contains(content, strconv.Itoa(year-1)):
		score += 0.2
	case strings.Contains(content, strconv.Itoa(year-2)):
		score += 0.1
	}

	for _, keyword := range freshKeywords {
		if strings.Contains(content, keyword) {
			score += 0.05
		}
	}
	return clamp01(score)
}

func diversityPenalty(domainCount int) float64 {
	switch {
	case domainCount > 3:
		return 0.1
	case domainCount > 1:
		return 0.05
	default:
		return 0
	}
}

func countDomains(docs []domain.Document) map[string]int {
	counts := make(map[string]int, len(docs))
	for _, doc := range docs {
		counts[hostOf(doc.URL)]++
	}
	return counts
}

func hostOf(rawURL string) string {
	s := rawURL
	if idx := strings.Index(s, "://"); idx >= 0 {
		s = s[idx+3:]
	}
	if idx := strings.IndexAny(s, "/?#"); idx >= 0 {
		s = s[:idx]
	}
	return strings.ToLower(strings.TrimPrefix(s, "www."))
}

func toTokenSet(s string) map[string]struct{} {
	tokens := splitAlphaNumLower(s)
	out := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		out[token] = struct{}{}
	}
	return out
}

func splitAlphaNumLower(s string) []string {
	if s == "" {
		return nil
	}

	tokens := make([]string, 0, 16)
	var b strings.Builder
	for _, r := range s {
		r = unicode.ToLower(r)
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			continue
		}
		if b.Len() > 0 {
			tokens = append(tokens, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		tokens = append(tokens, b.String())
	}
	return tokens
}
