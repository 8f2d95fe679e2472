package usecase

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/asemyonov/searchcore/internal/core/domain"
)

const (
	contextBudgetChars    = 8000
	minTruncatedBudget    = 200
	historyTurnsInPrompt  = 6
	contextBlockSeparator = "\n---\n"
)

var strategyInstructions = map[domain.SearchStrategy]string{
	domain.StrategyQuickAnswer: "Give a direct, concise answer. Lead with the answer itself.",
	domain.StrategyResearch:    "Provide a comprehensive analysis covering multiple perspectives and cite the evidence behind each claim.",
	domain.StrategyComparison:  "Clearly compare and contrast the options, organizing differences by criterion.",
	domain.StrategyTutorial:    "Answer with step-by-step, actionable instructions in order.",
	domain.StrategyNews:        "Focus on recent developments and include dates for every event mentioned.",
	domain.StrategyReference:   "Answer precisely with authoritative terminology; quote exact definitions where available.",
	domain.StrategyCreative:    "Answer with original, engaging suggestions grounded in the sources.",
}

// selectChunksForContext picks the highest-relevance chunks greedily until
// the character budget is exhausted. A chunk that would overflow is still
// included truncated when enough budget remains to be useful.
func selectChunksForContext(chunks []domain.ContextChunk) []domain.ContextChunk {
	ordered := make([]domain.ContextChunk, len(chunks))
	copy(ordered, chunks)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].RelevanceScore > ordered[j].RelevanceScore
	})

	remaining := contextBudgetChars
	out := make([]domain.ContextChunk, 0, len(ordered))
	for _, chunk := range ordered {
		if len(chunk.Content) <= remaining {
			out = append(out, chunk)
			remaining -= len(chunk.Content)
			continue
		}
		if remaining >= minTruncatedBudget {
			truncated := chunk
			truncated.Content = truncateOnRuneBoundary(chunk.Content, remaining-3) + "..."
			out = append(out, truncated)
		}
		break
	}
	return out
}

// buildContextBlock groups chunks by their originating source into a
// titled, separator-delimited block for the synthesis prompt.
func buildContextBlock(chunks []domain.ContextChunk) string {
	type sourceGroup struct {
		source string
		parts  []string
	}
	groups := make([]*sourceGroup, 0, len(chunks))
	index := make(map[string]*sourceGroup, len(chunks))

	for _, chunk := range chunks {
		source := "unknown source"
		if len(chunk.Sources) > 0 {
			source = chunk.Sources[0]
		}
		group, ok := index[source]
		if !ok {
			group = &sourceGroup{source: source}
			index[source] = group
			groups = append(groups, group)
		}
		group.parts = append(group.parts, chunk.Content)
	}

	sections := make([]string, 0, len(groups))
	for i, group := range groups {
		sections = append(sections, fmt.Sprintf("Source %d: %s\n%s", i+1, group.source, strings.Join(group.parts, "\n")))
	}
	return strings.Join(sections, contextBlockSeparator)
}

// buildSynthesisMessages assembles the Stage D chat request: system
// instructions, recent history, and the strategy-aware context prompt.
// File ids attached to the request are surfaced to the model as named
// references so the answer can point back at them.
func buildSynthesisMessages(req domain.SearchRequest, intent domain.SearchIntent, contextBlock string) []domain.ChatMessage {
	instruction, ok := strategyInstructions[intent.Strategy]
	if !ok {
		instruction = strategyInstructions[domain.StrategyQuickAnswer]
	}

	system := fmt.Sprintf(`You answer questions using the web sources provided. %s
Cite sources inline as [1], [2] matching the numbered sources. If the sources do not contain the answer, say so.`, instruction)
	if strings.TrimSpace(req.SystemInstructions) != "" {
		system = system + "\n\n" + strings.TrimSpace(req.SystemInstructions)
	}

	messages := make([]domain.ChatMessage, 0, historyTurnsInPrompt+2)
	messages = append(messages, domain.ChatMessage{Role: "system", Content: system})

	history := req.History
	if len(history) > historyTurnsInPrompt {
		history = history[len(history)-historyTurnsInPrompt:]
	}
	messages = append(messages, history...)

	prompt := fmt.Sprintf("Sources:\n%s\n\nQuestion: %s", contextBlock, req.Query)
	if len(req.FileIDs) > 0 {
		prompt += "\n\nThe user attached files to this conversation; mention them by id where they are relevant: " + strings.Join(req.FileIDs, ", ")
	}
	messages = append(messages, domain.ChatMessage{Role: "user", Content: prompt})
	return messages
}

// mediaOnlyResponse covers executions where retrieval produced media but no
// usable text context.
func mediaOnlyResponse(query string, imageCount, videoCount int) string {
	switch {
	case imageCount > 0 && videoCount > 0:
		return fmt.Sprintf("I could not retrieve readable articles for %q, but I found %d images and %d videos that may help. See the media results.", query, imageCount, videoCount)
	case imageCount > 0:
		return fmt.Sprintf("I could not retrieve readable articles for %q, but I found %d related images. See the image results.", query, imageCount)
	case videoCount > 0:
		return fmt.Sprintf("I could not retrieve readable articles for %q, but I found %d related videos. See the video results.", query, videoCount)
	default:
		return fmt.Sprintf("I could not find any usable results for %q. Try rephrasing the query.", query)
	}
}

// excerptFallback is the tiered degradation for a failed synthesis call:
// best-effort excerpts from the top chunks, or a bare apology naming the
// source count when even that is too thin.
func excerptFallback(chunks []domain.ContextChunk, sourceCount int) string {
	limit := 3
	if len(chunks) < limit {
		limit = len(chunks)
	}

	parts := make([]string, 0, limit)
	for _, chunk := range chunks[:limit] {
		excerpt := chunk.Content
		if len(excerpt) > 400 {
			excerpt = truncateOnRuneBoundary(excerpt, 400) + "..."
		}
		parts = append(parts, excerpt)
	}

	body := strings.TrimSpace(strings.Join(parts, "\n\n"))
	if len(body) < minChunkChars {
		return fmt.Sprintf("I was unable to generate an answer, but %d relevant sources were found. Please review them directly.", sourceCount)
	}
	return "I could not generate a full answer; here is the most relevant material found:\n\n" + body
}

// truncateOnRuneBoundary cuts at most max bytes without splitting a
// multibyte rune; the cut point scans back to the nearest rune start.
func truncateOnRuneBoundary(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
