// Package prompt assembles model prompts under a token budget. Sections are
// fitted largest-priority-first: whole sections that fit are kept, the first
// section that does not fit is truncated with a visible marker, and
// everything after it is dropped.
package prompt

// charsPerToken is the estimation ratio. Roughly right for English prose and
// code across the model families we target; the budget manager only needs a
// consistent over-estimate-resistant heuristic, not tokenizer fidelity.
const charsPerToken = 4

// EstimateTokens approximates the token count of text as ceil(len/4).
func EstimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	return (len(text) + charsPerToken - 1) / charsPerToken
}

// TokensToChars returns the character allowance for a token count.
func TokensToChars(tokens int) int {
	return tokens * charsPerToken
}
