package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jpillora/backoff"
	"github.com/sashabaranov/go-openai"

	"github.com/redmonkez12/diary-api/internal/config"
	"github.com/redmonkez12/diary-api/internal/logging"
	"github.com/redmonkez12/diary-api/internal/metrics"
)

var ErrEmptyCompletion = errors.New("model returned an empty completion")

// Completer produces a chat completion from a system and a user prompt
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Client talks to OpenAI or an Azure OpenAI deployment
type Client struct {
	api         *openai.Client
	model       string
	maxRetries  int
	temperature float32
	maxTokens   int
	minBackoff  time.Duration
	maxBackoff  time.Duration
	logger      *logging.Logger
}

type Option func(*Client)

// WithBackoff sets the delay bounds between retries
func WithBackoff(minDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.minBackoff = minDelay
		c.maxBackoff = maxDelay
	}
}

func NewClient(cfg config.LLMConfig, logger *logging.Logger, opts ...Option) (*Client, error) {
	var clientConfig openai.ClientConfig
	switch cfg.Provider {
	case config.ProviderAzure:
		clientConfig = openai.DefaultAzureConfig(cfg.APIKey, cfg.BaseURL)
		clientConfig.APIVersion = cfg.APIVersion
		deployment := cfg.Model
		clientConfig.AzureModelMapperFunc = func(string) string { return deployment }
	case config.ProviderOpenAI:
		clientConfig = openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			clientConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
		}
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}
	clientConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	c := &Client{
		api:         openai.NewClientWithConfig(clientConfig),
		model:       cfg.Model,
		maxRetries:  max(cfg.MaxRetries, 0),
		temperature: 0.8,
		maxTokens:   400,
		minBackoff:  500 * time.Millisecond,
		maxBackoff:  10 * time.Second,
		logger:      logger.With("component", "llm"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Complete sends one chat completion, retrying rate limits and server errors
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}

	b := &backoff.Backoff{Min: c.minBackoff, Max: c.maxBackoff, Factor: 2, Jitter: true}

	for attempt := 0; ; attempt++ {
		start := time.Now()
		resp, err := c.api.CreateChatCompletion(ctx, req)
		metrics.LLMLatency.Observe(time.Since(start).Seconds())

		if err == nil {
			metrics.LLMRequests.WithLabelValues("ok").Inc()
			return firstChoice(resp)
		}

		if !retryable(err) || attempt >= c.maxRetries {
			metrics.LLMRequests.WithLabelValues("error").Inc()
			return "", fmt.Errorf("chat completion failed: %w", err)
		}

		metrics.LLMRequests.WithLabelValues("retry").Inc()
		delay := b.Duration()
		c.logger.Warn("chat completion failed, retrying", "attempt", attempt+1, "delay", delay, "error", err)

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
	}
}

func firstChoice(resp openai.ChatCompletionResponse) (string, error) {
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}

// retryable reports rate limiting and server side failures
func retryable(err error) bool {
	status := 0

	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	default:
		return false
	}

	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}
