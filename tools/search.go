package tools

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/lexcodex/actloop/framework"
)

// SearchTool is a canned web search. It never touches the network; results
// come from Corpus, falling back to a fixed snippet.
type SearchTool struct {
	// Corpus maps lower-case keywords to canned results. A query matches an
	// entry when it contains every keyword of the entry's key.
	Corpus map[string]string
}

const defaultSearchResult = "This year's Australian Open men's champion is Sinner, and his hometown is Sesto, South Tyrol, Italy."

var defaultSearchCorpus = map[string]string{
	"sinner hometown": "Jannik Sinner's hometown is Sesto, in the South Tyrol region of Italy.",
}

func (t *SearchTool) Name() string        { return "search_internet" }
func (t *SearchTool) Description() string { return "Search the internet for information." }
func (t *SearchTool) Parameters() []framework.ToolParameter {
	return []framework.ToolParameter{
		{Name: "query", Type: framework.ParamString, Description: "search terms", Required: true},
	}
}

func (t *SearchTool) Invoke(ctx context.Context, args framework.Args) (any, error) {
	query, err := args.String("query")
	if err != nil {
		return nil, err
	}
	return fmt.Sprintf("Search results for %q: %s", query, t.lookup(query)), nil
}

func (t *SearchTool) lookup(query string) string {
	corpus := t.Corpus
	if corpus == nil {
		corpus = defaultSearchCorpus
	}
	q := strings.ToLower(query)
	best, bestWords := "", 0
	// Keys are visited in sorted order so equal-length matches resolve to
	// the alphabetically first key.
	for _, key := range slices.Sorted(maps.Keys(corpus)) {
		words := strings.Fields(key)
		if len(words) <= bestWords {
			continue
		}
		matched := true
		for _, w := range words {
			if !strings.Contains(q, w) {
				matched = false
				break
			}
		}
		if matched {
			best, bestWords = corpus[key], len(words)
		}
	}
	if best == "" {
		return defaultSearchResult
	}
	return best
}
