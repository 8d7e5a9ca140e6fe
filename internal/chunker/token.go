package chunker

import "strings"

// EstimateTokens gives a rough token count for sizing chunks. Exact
// tokenization is not required here, so it counts words and scales by the
// ~1.33 tokens-per-word ratio typical of English text.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	words := len(strings.Fields(text))
	tokens := int(float64(words) * 1.33)
	if tokens < 1 && len(text) > 0 {
		tokens = 1
	}
	return tokens
}
