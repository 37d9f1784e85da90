// Package gemini implements the completion boundary on top of the Gemini
// API (google.golang.org/genai).
package gemini

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/rowscout/rowscout/pkg/llm"
)

const (
	// DefaultModel is the fallback model when none is configured.
	DefaultModel = "gemini-2.0-flash"

	initialBackoff = 1 * time.Second
)

// Config holds client settings.
type Config struct {
	APIKey string
	Model  string

	// BaseURL overrides the Gemini API base URL. Useful for proxies/testing.
	BaseURL string

	// MaxRetries is the number of extra attempts after a retryable failure.
	MaxRetries int
}

// Client calls GenerateContent and returns the plain-text response.
type Client struct {
	client     *genai.Client
	model      string
	maxRetries int
	logger     *zap.SugaredLogger
}

var _ llm.Completer = (*Client)(nil)

// New constructs a Client. The API key is required.
func New(ctx context.Context, cfg Config, logger *zap.SugaredLogger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("gemini: api key is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	cc := &genai.ClientConfig{
		APIKey:  strings.TrimSpace(cfg.APIKey),
		Backend: genai.BackendGeminiAPI,
	}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		cc.HTTPOptions.BaseURL = strings.TrimSpace(cfg.BaseURL)
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, err
	}
	return &Client{
		client:     client,
		model:      model,
		maxRetries: maxRetries,
		logger:     logger,
	}, nil
}

// Complete sends one prompt and returns the trimmed text response.
func (c *Client) Complete(ctx context.Context, req llm.Request) (string, error) {
	cfg := &genai.GenerateContentConfig{
		CandidateCount: 1,
	}
	if req.System != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.System}},
		}
	}

	reqID := uuid.NewString()
	c.logger.Debugw("Generate request",
		"request_id", reqID,
		"model", c.model,
		"user_prompt_len", len(req.User))

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := initialBackoff * time.Duration(math.Pow(2, float64(attempt-1)))
			c.logger.Debugw("Retrying generate request",
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

		resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(req.User), cfg)
		if err == nil {
			return strings.TrimSpace(resp.Text()), nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		c.logger.Warnw("Generate request failed",
			"request_id", reqID,
			"attempt", attempt+1, "model", c.model, "error", err)
		if !isRetryable(err) {
			return "", err
		}
	}
	return "", fmt.Errorf("gemini: request failed after %d attempts: %w", c.maxRetries+1, lastErr)
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == 429 || apiErr.Code/100 == 5
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout() || ne.Temporary()
	}
	return false
}
