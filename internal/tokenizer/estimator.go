// Package tokenizer provides approximate token counting for quota and cost
// accounting. Counts are estimates, not exact tokenizations: the quota check
// runs before the provider reports real usage, so a cheap heuristic is enough.
package tokenizer

// ResponseBuffer is the fixed allowance added to a prompt estimate to cover
// the model's response when reserving quota.
const ResponseBuffer = 500

// Estimate approximates the token count of a text string using the ~4
// characters per token rule of thumb, rounding up.
func Estimate(text string) int {
	if len(text) == 0 {
		return 0
	}
	return (len(text) + 3) / 4
}

// EstimateRequest returns the quota reservation for a requirement: the prompt
// estimate plus the fixed response buffer.
func EstimateRequest(requirement string) int {
	return Estimate(requirement) + ResponseBuffer
}
