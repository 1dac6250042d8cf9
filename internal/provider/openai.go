package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider calls the OpenAI chat completions API.
type OpenAIProvider struct {
	client *openai.Client
	logger *slog.Logger
}

func NewOpenAIProvider(apiKey string, logger *slog.Logger) *OpenAIProvider {
	return &OpenAIProvider{
		client: openai.NewClient(apiKey),
		logger: logger,
	}
}

func (p *OpenAIProvider) Complete(ctx context.Context, req Request) (*Completion, error) {
	modelNameLower := strings.ToLower(req.Model)

	// Reasoning models (o1, o3, o4) don't support system messages or temperature
	isReasoningModel := strings.Contains(modelNameLower, "o1") ||
		strings.Contains(modelNameLower, "o3") ||
		strings.Contains(modelNameLower, "o4") ||
		strings.Contains(modelNameLower, "gpt-5")

	var chatReq openai.ChatCompletionRequest
	if isReasoningModel {
		// Merge system prompt into the user message for reasoning models
		chatReq = openai.ChatCompletionRequest{
			Model:               req.Model,
			MaxCompletionTokens: req.MaxTokens,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleUser, Content: req.SystemPrompt + "\n\n" + req.UserPrompt},
			},
		}
	} else {
		chatReq = openai.ChatCompletionRequest{
			Model:       req.Model,
			Temperature: req.Temperature,
			MaxTokens:   req.MaxTokens,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: req.UserPrompt},
			},
		}
	}

	startTime := time.Now()
	resp, err := p.client.CreateChatCompletion(ctx, chatReq)
	latency := time.Since(startTime)

	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			p.logger.Error("openai call failed",
				"model", req.Model,
				"status", apiErr.HTTPStatusCode,
				"latency_ms", latency.Milliseconds())
			return nil, &CallError{Provider: "openai", Message: apiErr.Message}
		}
		p.logger.Error("openai unreachable", "model", req.Model, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if len(resp.Choices) == 0 {
		return nil, &CallError{Provider: "openai", Message: "no response choices"}
	}

	p.logger.Debug("openai call completed",
		"model", req.Model,
		"total_tokens", resp.Usage.TotalTokens,
		"latency_ms", latency.Milliseconds())

	return &Completion{
		Text:             resp.Choices[0].Message.Content,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}
