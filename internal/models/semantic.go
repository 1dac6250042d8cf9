package models

import "time"

// SemanticRecord associates a requirement embedding with the test cases that
// were generated for it. Records are append-only; retrieval is similarity
// search, never key lookup.
type SemanticRecord struct {
	ID          string    `json:"id"`
	Requirement string    `json:"requirement"`
	Embedding   []float32 `json:"embedding"`
	TestCases   string    `json:"test_cases"`
	CreatedAt   time.Time `json:"created_at"`
}
