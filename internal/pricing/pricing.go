// Package pricing maps model names and token counts to estimated USD cost.
package pricing

import "github.com/frothops/testgen/internal/models"

// rate holds per-1K-token prices for one model.
type rate struct {
	input  float64
	output float64
}

// Static price table. Unrecognized models deliberately cost zero so that
// unknown or future models never break the pipeline; see Known.
var rates = map[string]rate{
	"gpt-3.5-turbo": {input: 0.001, output: 0.002},
	"gpt-4":         {input: 0.03, output: 0.06},
	"gpt-4-turbo":   {input: 0.01, output: 0.03},
	"gpt-4o":        {input: 0.0025, output: 0.01},
	"gpt-4o-mini":   {input: 0.00015, output: 0.0006},

	"claude-3-haiku-20240307":    {input: 0.00025, output: 0.00125},
	"claude-3-5-sonnet-20240620": {input: 0.003, output: 0.015},
	"claude-3-opus-20240229":     {input: 0.015, output: 0.075},
}

// Cost returns the estimated USD cost of a generation. The permissive zero
// default for unknown models under-reports spend; callers wanting strictness
// should gate on Known first.
func Cost(usage models.TokenUsage, model string) float64 {
	r, ok := rates[model]
	if !ok {
		return 0
	}

	inputCost := float64(usage.PromptTokens) / 1000 * r.input
	outputCost := float64(usage.CompletionTokens) / 1000 * r.output
	return inputCost + outputCost
}

// Known reports whether a model has an entry in the price table.
func Known(model string) bool {
	_, ok := rates[model]
	return ok
}
