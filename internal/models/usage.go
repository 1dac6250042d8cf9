package models

// TokenUsage captures the token accounting for a single generation.
// TotalTokens is always PromptTokens + CompletionTokens; the struct is
// derived from a provider response and never mutated afterwards.
type TokenUsage struct {
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	CostUSD          float64 `json:"cost_usd"`
}

// NewTokenUsage builds a TokenUsage from prompt/completion counts.
func NewTokenUsage(promptTokens, completionTokens int) TokenUsage {
	return TokenUsage{
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      promptTokens + completionTokens,
	}
}
