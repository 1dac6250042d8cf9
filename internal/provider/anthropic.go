package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicProvider calls the Anthropic Messages API.
type AnthropicProvider struct {
	client anthropic.Client
	logger *slog.Logger
}

func NewAnthropicProvider(apiKey string, logger *slog.Logger) *AnthropicProvider {
	return &AnthropicProvider{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		logger: logger,
	}
}

func (p *AnthropicProvider) Complete(ctx context.Context, req Request) (*Completion, error) {
	msgReq := anthropic.MessageNewParams{
		Model:       anthropic.Model(req.Model),
		MaxTokens:   int64(req.MaxTokens),
		Temperature: anthropic.Float(float64(req.Temperature)),
		System: []anthropic.TextBlockParam{
			{Text: req.SystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.UserPrompt)),
		},
	}

	startTime := time.Now()
	resp, err := p.client.Messages.New(ctx, msgReq)
	latency := time.Since(startTime)

	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			p.logger.Error("anthropic call failed",
				"model", req.Model,
				"status", apiErr.StatusCode,
				"latency_ms", latency.Milliseconds())
			return nil, &CallError{Provider: "anthropic", Message: apiErr.Error()}
		}
		p.logger.Error("anthropic unreachable", "model", req.Model, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if len(resp.Content) == 0 {
		return nil, &CallError{Provider: "anthropic", Message: "no response content"}
	}

	var content string
	for _, block := range resp.Content {
		if block.Type == "text" {
			content = block.Text
			break
		}
	}

	p.logger.Debug("anthropic call completed",
		"model", req.Model,
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
		"latency_ms", latency.Milliseconds())

	return &Completion{
		Text:             content,
		PromptTokens:     int(resp.Usage.InputTokens),
		CompletionTokens: int(resp.Usage.OutputTokens),
	}, nil
}
