package usecase

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/asemyonov/searchcore/internal/core/domain"
)

func TestSelectChunksForContextGreedyBudget(t *testing.T) {
	chunks := []domain.ContextChunk{
		{ID: "mid", Content: strings.Repeat("b", 2500), RelevanceScore: 0.8},
		{ID: "top", Content: strings.Repeat("a", 5000), RelevanceScore: 0.9},
		{ID: "low", Content: strings.Repeat("c", 4000), RelevanceScore: 0.7},
	}

	out := selectChunksForContext(chunks)
	if len(out) != 3 {
		t.Fatalf("expected 3 selected chunks, got %d", len(out))
	}
	if out[0].ID != "top" || out[1].ID != "mid" {
		t.Fatalf("expected relevance order, got %s, %s", out[0].ID, out[1].ID)
	}
	// 500 chars of budget remain for the third chunk: truncated, not dropped
	if len(out[2].Content) != 500 {
		t.Fatalf("expected truncated tail of 500 chars, got %d", len(out[2].Content))
	}
	if !strings.HasSuffix(out[2].Content, "...") {
		t.Fatalf("expected ellipsis on truncated chunk")
	}
}

func TestSelectChunksForContextSkipsTinyRemainder(t *testing.T) {
	chunks := []domain.ContextChunk{
		{ID: "big", Content: strings.Repeat("a", 7900), RelevanceScore: 0.9},
		{ID: "next", Content: strings.Repeat("b", 1000), RelevanceScore: 0.8},
	}
	out := selectChunksForContext(chunks)
	if len(out) != 1 {
		t.Fatalf("expected only the first chunk with 100 chars left, got %d", len(out))
	}
}

func TestBuildContextBlockGroupsBySource(t *testing.T) {
	chunks := []domain.ContextChunk{
		{Content: "first passage", Sources: []string{"https://a.example.com"}},
		{Content: "second passage", Sources: []string{"https://b.example.org"}},
		{Content: "third passage", Sources: []string{"https://a.example.com"}},
	}

	block := buildContextBlock(chunks)
	if !strings.Contains(block, "Source 1: https://a.example.com") {
		t.Fatalf("missing first source header:\n%s", block)
	}
	if !strings.Contains(block, "Source 2: https://b.example.org") {
		t.Fatalf("missing second source header:\n%s", block)
	}
	if strings.Count(block, "https://a.example.com") != 1 {
		t.Fatalf("expected same-source chunks merged under one header:\n%s", block)
	}
	if strings.Index(block, "first passage") > strings.Index(block, "third passage") {
		t.Fatalf("expected chunk order preserved within a source")
	}
}

func TestBuildSynthesisMessagesFoldsHistory(t *testing.T) {
	history := make([]domain.ChatMessage, 10)
	for i := range history {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		history[i] = domain.ChatMessage{Role: role, Content: strings.Repeat("x", i+1)}
	}

	intent := domain.SearchIntent{Strategy: domain.StrategyTutorial}
	req := domain.SearchRequest{
		Query:              "how to make sourdough",
		History:            history,
		SystemInstructions: "Answer in French.",
	}
	messages := buildSynthesisMessages(req, intent, "Source 1: ...")

	if len(messages) != 8 { // system + 6 history + final user
		t.Fatalf("expected 8 messages, got %d", len(messages))
	}
	if messages[0].Role != "system" {
		t.Fatalf("expected system message first, got %s", messages[0].Role)
	}
	if !strings.Contains(messages[0].Content, "step-by-step") {
		t.Fatalf("expected tutorial instruction in system prompt:\n%s", messages[0].Content)
	}
	if !strings.Contains(messages[0].Content, "Answer in French.") {
		t.Fatalf("expected caller instructions appended:\n%s", messages[0].Content)
	}
	if messages[1].Content != history[4].Content {
		t.Fatalf("expected only the last 6 history turns")
	}
	last := messages[len(messages)-1]
	if last.Role != "user" || !strings.Contains(last.Content, "Question: how to make sourdough") {
		t.Fatalf("unexpected final message: %+v", last)
	}
}

func TestBuildSynthesisMessagesUnknownStrategyDefaults(t *testing.T) {
	messages := buildSynthesisMessages(domain.SearchRequest{Query: "q"}, domain.SearchIntent{}, "ctx")
	if !strings.Contains(messages[0].Content, "direct, concise") {
		t.Fatalf("expected quick-answer default instruction:\n%s", messages[0].Content)
	}
}

func TestBuildSynthesisMessagesCarriesFileReferences(t *testing.T) {
	req := domain.SearchRequest{
		Query:   "summarize the report",
		FileIDs: []string{"file-abc", "file-def"},
	}
	messages := buildSynthesisMessages(req, domain.SearchIntent{}, "ctx")

	last := messages[len(messages)-1]
	if !strings.Contains(last.Content, "file-abc, file-def") {
		t.Fatalf("expected attached file ids in the user prompt:\n%s", last.Content)
	}

	bare := buildSynthesisMessages(domain.SearchRequest{Query: "q"}, domain.SearchIntent{}, "ctx")
	if strings.Contains(bare[len(bare)-1].Content, "attached files") {
		t.Fatalf("expected no file note without file ids:\n%s", bare[len(bare)-1].Content)
	}
}

func TestMediaOnlyResponseVariants(t *testing.T) {
	if msg := mediaOnlyResponse("q", 3, 2); !strings.Contains(msg, "3 images") || !strings.Contains(msg, "2 videos") {
		t.Fatalf("unexpected mixed-media message: %q", msg)
	}
	if msg := mediaOnlyResponse("q", 0, 0); !strings.Contains(msg, "could not find any usable results") {
		t.Fatalf("unexpected empty message: %q", msg)
	}
}

func TestExcerptFallback(t *testing.T) {
	chunks := []domain.ContextChunk{
		{Content: strings.Repeat("Relevant sentence about the topic. ", 20), RelevanceScore: 0.9},
	}
	msg := excerptFallback(chunks, 5)
	if !strings.Contains(msg, "most relevant material") {
		t.Fatalf("expected excerpt preamble, got %q", msg)
	}

	thin := excerptFallback([]domain.ContextChunk{{Content: "tiny"}}, 5)
	if !strings.Contains(thin, "5 relevant sources") {
		t.Fatalf("expected source-count apology, got %q", thin)
	}
}

func TestTruncateOnRuneBoundary(t *testing.T) {
	cases := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"ascii exact", "abcdef", 4, "abcd"},
		{"short input untouched", "abc", 10, "abc"},
		{"zero budget", "abc", 0, ""},
		{"cyrillic mid-rune", "привет", 5, "пр"}, // 5 bytes lands inside the third rune
		{"cyrillic on boundary", "привет", 6, "при"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := truncateOnRuneBoundary(tc.in, tc.max)
			if got != tc.want {
				t.Fatalf("truncateOnRuneBoundary(%q, %d) = %q, want %q", tc.in, tc.max, got, tc.want)
			}
			if !utf8.ValidString(got) {
				t.Fatalf("result %q is not valid UTF-8", got)
			}
		})
	}
}

func TestSelectChunksForContextTruncatesOnRuneBoundary(t *testing.T) {
	filler := strings.Repeat("a", contextBudgetChars-minTruncatedBudget)
	chunks := []domain.ContextChunk{
		{ID: "top", Content: filler, RelevanceScore: 0.9},
		{ID: "tail", Content: strings.Repeat("ю", 400), RelevanceScore: 0.8},
	}

	out := selectChunksForContext(chunks)
	if len(out) != 2 {
		t.Fatalf("expected truncated tail chunk to survive, got %d chunks", len(out))
	}
	tail := out[1].Content
	if !strings.HasSuffix(tail, "...") {
		t.Fatalf("expected ellipsis suffix, got %q", tail[len(tail)-10:])
	}
	if !utf8.ValidString(tail) {
		t.Fatalf("truncated chunk is not valid UTF-8")
	}
}
