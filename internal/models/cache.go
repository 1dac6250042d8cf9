package models

import "time"

// CacheEntry is an exact-match cache record keyed by a request fingerprint.
// Entries are created once after a successful model call and never mutated;
// age-based cleanup is the only eviction path.
type CacheEntry struct {
	TestCases        string    `json:"test_cases"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	TotalTokens      int       `json:"total_tokens"`
	CreatedAt        time.Time `json:"created_at"`
	Model            string    `json:"model"`
}

// Usage returns the token usage recorded when the entry was created.
// Cached responses report these counts without consuming new tokens.
func (e CacheEntry) Usage() TokenUsage {
	return TokenUsage{
		PromptTokens:     e.PromptTokens,
		CompletionTokens: e.CompletionTokens,
		TotalTokens:      e.TotalTokens,
	}
}
