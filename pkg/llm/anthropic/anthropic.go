// Package anthropic implements the completion boundary on top of the
// Anthropic Messages API.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rowscout/rowscout/pkg/llm"
)

const (
	// DefaultModel is the fallback model when none is configured.
	DefaultModel = "claude-3-5-haiku-20241022"

	defaultMaxTokens = 1024
	initialBackoff   = 1 * time.Second
)

// Config holds client settings.
type Config struct {
	APIKey string
	Model  string

	// BaseURL overrides the API base URL. Useful for proxies/testing.
	BaseURL string

	// MaxTokens caps the completion length. 0 = default (1024).
	MaxTokens int
	// MaxRetries is the number of extra attempts after a retryable failure.
	MaxRetries int
}

// Client calls the Messages API and returns the first text block.
type Client struct {
	client     sdk.Client
	model      sdk.Model
	maxTokens  int64
	maxRetries int
	logger     *zap.SugaredLogger
}

var _ llm.Completer = (*Client)(nil)

// New constructs a Client. The API key is required.
func New(cfg Config, logger *zap.SugaredLogger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("anthropic: api key is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
		// The SDK retries internally as well; keep one layer of retries.
		option.WithMaxRetries(0),
	}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimSpace(cfg.BaseURL)))
	}

	return &Client{
		client:     sdk.NewClient(opts...),
		model:      sdk.Model(model),
		maxTokens:  int64(maxTokens),
		maxRetries: maxRetries,
		logger:     logger,
	}, nil
}

// Complete sends one message and returns the trimmed first text block.
func (c *Client) Complete(ctx context.Context, req llm.Request) (string, error) {
	params := sdk.MessageNewParams{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(req.User)),
		},
	}
	if req.System != "" {
		params.System = []sdk.TextBlockParam{
			{Text: req.System},
		}
	}

	reqID := uuid.NewString()
	c.logger.Debugw("Message request",
		"request_id", reqID,
		"model", string(c.model),
		"user_prompt_len", len(req.User))

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := initialBackoff * time.Duration(math.Pow(2, float64(attempt-1)))
			c.logger.Debugw("Retrying message request",
				"request_id", reqID,
				"attempt", attempt, "max_retries", c.maxRetries, "delay", backoff)
			t := time.NewTimer(backoff)
			select {
			case <-t.C:
			case <-ctx.Done():
				t.Stop()
				return "", ctx.Err()
			}
		}

		message, err := c.client.Messages.New(ctx, params)
		if err == nil {
			if len(message.Content) == 0 {
				return "", errors.New("anthropic: no content blocks in response")
			}
			content := message.Content[0]
			if content.Type != "text" {
				return "", fmt.Errorf("anthropic: unexpected content block type %q", content.Type)
			}
			return strings.TrimSpace(content.Text), nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		c.logger.Warnw("Message request failed",
			"request_id", reqID,
			"attempt", attempt+1, "model", string(c.model), "error", err)
		if !isRetryable(err) {
			return "", err
		}
	}
	return "", fmt.Errorf("anthropic: request failed after %d attempts: %w", c.maxRetries+1, lastErr)
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}
	return false
}
