package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
)

// AnthropicLLMClient implements LLMClient using the Anthropic API.
type AnthropicLLMClient struct {
	client      anthropic.Client
	model       anthropic.Model
	maxTokens   int64
	callTimeout time.Duration
	log         *slog.Logger
}

// NewAnthropicLLMClient creates a new Anthropic-based LLM client. The API
// key is read from the environment by the SDK. A zero callTimeout applies
// a 60 second default per completion.
func NewAnthropicLLMClient(model anthropic.Model, maxTokens int64, callTimeout time.Duration, log *slog.Logger) *AnthropicLLMClient {
	if callTimeout <= 0 {
		callTimeout = 60 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &AnthropicLLMClient{
		client:      anthropic.NewClient(),
		model:       model,
		maxTokens:   maxTokens,
		callTimeout: callTimeout,
		log:         log,
	}
}

// Complete sends a prompt to the model and returns the response text.
func (c *AnthropicLLMClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	start := time.Now()
	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System: []anthropic.TextBlockParam{
			{Type: "text", Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	duration := time.Since(start)

	if err != nil {
		c.log.Error("anthropic API call failed", "duration", duration, "error", err)
		return "", fmt.Errorf("anthropic API error: %w", err)
	}
	c.log.Debug("anthropic API call completed", "duration", duration, "stopReason", msg.StopReason)

	for _, block := range msg.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}

	return "", fmt.Errorf("no text content in response")
}
