package models

import (
	"encoding/json"
	"strings"
)

// TestCase is a single generated test case in the structured output format
// requested from the model.
type TestCase struct {
	ID             int      `json:"id"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Preconditions  string   `json:"preconditions"`
	Steps          []string `json:"steps"`
	ExpectedResult string   `json:"expected_result"`
	Priority       string   `json:"priority"` // High/Medium/Low
	Type           string   `json:"type"`     // Functional/UI/Integration/etc
}

// EdgeCase describes a boundary scenario and how to test it.
type EdgeCase struct {
	Scenario     string `json:"scenario"`
	TestApproach string `json:"test_approach"`
}

// TestSuite is the structured form of a generation payload.
type TestSuite struct {
	TestCases []TestCase `json:"test_cases"`
	EdgeCases []EdgeCase `json:"edge_cases,omitempty"`
}

// ParseTestSuite attempts to decode a raw model payload into a TestSuite.
// Models occasionally wrap the JSON in markdown fences; those are stripped
// before decoding. Returns nil when the payload is not valid suite JSON or
// contains no test cases; callers treat that as a malformed payload.
func ParseTestSuite(payload string) *TestSuite {
	trimmed := strings.TrimSpace(payload)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
			trimmed = trimmed[:idx]
		}
		trimmed = strings.TrimSpace(trimmed)
	}

	var suite TestSuite
	if err := json.Unmarshal([]byte(trimmed), &suite); err != nil {
		return nil
	}
	if len(suite.TestCases) == 0 {
		return nil
	}
	return &suite
}
