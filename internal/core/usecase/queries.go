package usecase

import (
	"strings"

	"github.com/asemyonov/searchcore/internal/core/domain"
)

// strategyQueryTemplates expands the original query with strategy-specific
// variants. %s is replaced with the query text.
var strategyQueryTemplates = map[domain.SearchStrategy][]string{
	domain.StrategyResearch: {
		"%s research studies",
		"%s academic analysis",
		"%s comprehensive review",
		"%s in depth",
	},
	domain.StrategyTutorial: {
		"%s step by step guide",
		"%s tutorial beginner",
		"how to %s",
	},
	domain.StrategyComparison: {
		"%s comparison",
		"%s pros and cons",
		"%s alternatives",
	},
	domain.StrategyNews: {
		"%s latest news",
		"%s recent developments",
		"%s announcement",
	},
	domain.StrategyReference: {
		"%s documentation",
		"%s reference",
	},
	domain.StrategyQuickAnswer: {
		"%s explained",
	},
	domain.StrategyCreative: {
		"%s examples",
		"%s inspiration",
	},
}

// generateSearchQueries builds the Stage S fan-out query list. The original
// query is always the first member; strategy variants fill the remaining
// slots up to maxQueries.
func generateSearchQueries(query string, strategy domain.SearchStrategy, maxQueries int) []string {
	query = strings.TrimSpace(query)
	if maxQueries < 1 {
		maxQueries = 1
	}

	out := make([]string, 0, maxQueries)
	out = append(out, query)

	for _, template := range strategyQueryTemplates[strategy] {
		if len(out) >= maxQueries {
			break
		}
		candidate := strings.TrimSpace(strings.Replace(template, "%s", query, 1))
		if candidate == "" || candidate == query {
			continue
		}
		out = append(out, candidate)
	}
	return out
}
