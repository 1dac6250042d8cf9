package pricing

import (
	"math"
	"testing"

	"github.com/frothops/testgen/internal/models"
)

func TestCostKnownModels(t *testing.T) {
	usage := models.NewTokenUsage(1000, 500)

	tests := []struct {
		model string
		want  float64
	}{
		{model: "gpt-3.5-turbo", want: 0.001 + 0.5*0.002},
		{model: "gpt-4", want: 0.03 + 0.5*0.06},
		{model: "gpt-4o-mini", want: 0.00015 + 0.5*0.0006},
		{model: "claude-3-haiku-20240307", want: 0.00025 + 0.5*0.00125},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			got := Cost(usage, tt.model)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Cost(%s) = %v, want %v", tt.model, got, tt.want)
			}
		})
	}
}

func TestCostUnknownModelIsZero(t *testing.T) {
	usage := models.NewTokenUsage(100000, 100000)
	if got := Cost(usage, "gpt-99-ultra"); got != 0 {
		t.Errorf("expected zero cost for unknown model, got %v", got)
	}
	if Known("gpt-99-ultra") {
		t.Error("Known should be false for unknown model")
	}
	if !Known("gpt-4") {
		t.Error("Known should be true for gpt-4")
	}
}

func TestCostZeroUsage(t *testing.T) {
	if got := Cost(models.TokenUsage{}, "gpt-4"); got != 0 {
		t.Errorf("expected zero cost for zero usage, got %v", got)
	}
}
