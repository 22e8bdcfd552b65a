// Package llm wraps the chat-model provider used by the pipeline for
// tagging/summary generation, quality scoring, and semantic dedup judgments.
// It owns the retry, circuit-breaker, and concurrency-limiting policy so
// callers never talk to the provider SDK directly.
package llm

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"golang.org/x/sync/semaphore"
)

// Model constants. The pipeline uses a cheaper model for mechanical tasks
// (tagging, dedup triage) and the default model for scoring.
const (
	ModelDefault = "claude-sonnet-4-5-20250929"
	ModelSimple  = "claude-3-5-haiku-20241022"
)

// GetDefaultModel returns the default model, honoring FEED_MODEL_DEFAULT.
func GetDefaultModel() string {
	if model := os.Getenv("FEED_MODEL_DEFAULT"); model != "" {
		return model
	}
	return ModelDefault
}

// GetSimpleTaskModel returns the model for simple tasks, honoring
// FEED_MODEL_SIMPLE.
func GetSimpleTaskModel() string {
	if model := os.Getenv("FEED_MODEL_SIMPLE"); model != "" {
		return model
	}
	return ModelSimple
}

// Result is a completed chat-model call: the raw text plus token usage for
// cost accounting.
type Result struct {
	Text         string
	InputTokens  int64
	OutputTokens int64
	Duration     time.Duration
}

// TotalTokens returns combined input+output token usage.
func (r *Result) TotalTokens() int64 {
	return r.InputTokens + r.OutputTokens
}

// Client is the process-wide chat-model client. Construct once at startup and
// pass explicitly into each component.
type Client struct {
	anthropic *anthropic.Client
	model     string
	retry     RetryConfig
	breaker   *CircuitBreaker
	sem       *semaphore.Weighted
}

// Config holds client configuration.
type Config struct {
	APIKey string      // if empty, read from ANTHROPIC_API_KEY
	Model  string      // default model (default: GetDefaultModel())
	Retry  RetryConfig // retry configuration (defaults if zero)
}

// NewClient creates a chat-model client.
func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil {
		cfg = &Config{}
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
		}
	}

	model := cfg.Model
	if model == "" {
		model = GetDefaultModel()
	}

	retry := cfg.Retry
	if retry.MaxRetries == 0 {
		retry = DefaultRetryConfig()
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	var breaker *CircuitBreaker
	if retry.CircuitBreakerEnabled {
		breaker = NewCircuitBreaker(retry.FailureThreshold, retry.SuccessThreshold, retry.OpenTimeout)
	}

	var sem *semaphore.Weighted
	if retry.MaxConcurrentCalls > 0 {
		sem = semaphore.NewWeighted(int64(retry.MaxConcurrentCalls))
	}

	return &Client{
		anthropic: &client,
		model:     model,
		retry:     retry,
		breaker:   breaker,
		sem:       sem,
	}, nil
}

// Model returns the client's default model.
func (c *Client) Model() string {
	return c.model
}

// Complete makes a chat-model call with the given prompts. The system prompt
// may be empty. Responses are free text; callers are expected to parse JSON
// out of them defensively (see Parse).
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt, operation, model string, maxTokens int) (*Result, error) {
	startTime := time.Now()

	if model == "" {
		model = c.model
	}
	if maxTokens == 0 {
		maxTokens = 4096
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}

	var response *anthropic.Message
	err := c.retryWithBackoff(ctx, operation, func(attemptCtx context.Context) error {
		resp, apiErr := c.anthropic.Messages.New(attemptCtx, params)
		if apiErr != nil {
			return apiErr
		}
		response = resp
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("model call %s failed: %w", operation, err)
	}

	var text string
	for _, block := range response.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	duration := time.Since(startTime)
	fmt.Printf("model %s call: input=%d tokens, output=%d tokens, duration=%v\n",
		operation, response.Usage.InputTokens, response.Usage.OutputTokens, duration)

	return &Result{
		Text:         text,
		InputTokens:  response.Usage.InputTokens,
		OutputTokens: response.Usage.OutputTokens,
		Duration:     duration,
	}, nil
}

// HealthCheck reports whether the client can currently issue calls.
func (c *Client) HealthCheck() error {
	if c.breaker != nil && c.breaker.State() == CircuitOpen {
		_, failures, _ := c.breaker.Metrics()
		return fmt.Errorf("model client unavailable: %w (failures=%d, retry in %v)",
			ErrCircuitOpen, failures, c.retry.OpenTimeout)
	}
	return nil
}
