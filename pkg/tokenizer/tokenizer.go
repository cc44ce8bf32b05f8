// Package tokenizer gives rough token estimates for training files. Exact
// counts come back from the provider after training; these estimates only
// feed the pre-submission cost preview.
package tokenizer

import "strings"

// EstimateTokens approximates the token count of a text at ~4/3 tokens per
// word, the usual English ratio.
func EstimateTokens(text string) int {
	words := strings.Fields(text)
	return max(len(words)*4/3, 1)
}
