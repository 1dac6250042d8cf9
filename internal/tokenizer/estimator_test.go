package tokenizer

import (
	"strings"
	"testing"
)

func TestEstimate(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{name: "empty", text: "", want: 0},
		{name: "one char rounds up", text: "a", want: 1},
		{name: "exactly one token", text: "abcd", want: 1},
		{name: "five chars", text: "abcde", want: 2},
		{name: "longer text", text: strings.Repeat("x", 400), want: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Estimate(tt.text); got != tt.want {
				t.Errorf("Estimate(%q) = %d, want %d", tt.text, got, tt.want)
			}
		})
	}
}

func TestEstimateRequestAddsBuffer(t *testing.T) {
	req := "User should be able to login with email and password"
	got := EstimateRequest(req)
	want := Estimate(req) + ResponseBuffer
	if got != want {
		t.Errorf("EstimateRequest = %d, want %d", got, want)
	}
	if got <= ResponseBuffer {
		t.Errorf("expected estimate above the bare buffer, got %d", got)
	}
}
