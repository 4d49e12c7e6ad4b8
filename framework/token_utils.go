package framework

import (
	"math"
)

// EstimateTokens performs a cheap heuristic conversion from characters to
// tokens. It is used when a provider does not report usage.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return max(1, int(math.Ceil(float64(len(text))/4.0)))
}

// EstimateMessageTokens sums EstimateTokens over the message contents.
func EstimateMessageTokens(messages []Message) int {
	total := 0
	for _, m := range messages {
		total += EstimateTokens(m.Content)
	}
	return total
}
