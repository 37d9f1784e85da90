// Package groq implements the completion boundary on top of Groq's
// OpenAI-compatible chat-completions endpoint.
package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rowscout/rowscout/pkg/llm"
	"github.com/rowscout/rowscout/pkg/redact"
)

const (
	// DefaultBaseURL is the production Groq OpenAI-compatible endpoint.
	DefaultBaseURL = "https://api.groq.com/openai/v1"

	// DefaultModel is the fallback model when none is configured.
	DefaultModel = "mixtral-8x7b-32768"
)

// Config holds client settings.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string

	// Temperature is the sampling temperature. nil = use default (0.3).
	Temperature *float64
	// MaxTokens caps the completion length. nil = let the API decide.
	MaxTokens *int

	// MaxRetries is the number of extra attempts after a retryable failure.
	MaxRetries int
	// Timeout bounds each HTTP attempt.
	Timeout time.Duration
}

// Client calls the chat-completions endpoint and returns the first choice.
type Client struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
	maxRetries  int
	http        *http.Client
	logger      *zap.SugaredLogger
}

var _ llm.Completer = (*Client)(nil)

// New constructs a Client. The API key is required.
func New(cfg Config, logger *zap.SugaredLogger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("groq: api key is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	temperature := 0.3
	if cfg.Temperature != nil {
		temperature = *cfg.Temperature
	}
	maxTokens := 0
	if cfg.MaxTokens != nil {
		maxTokens = *cfg.MaxTokens
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Client{
		apiKey:      strings.TrimSpace(cfg.APIKey),
		baseURL:     strings.TrimRight(baseURL, "/"),
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		maxRetries:  maxRetries,
		http:        &http.Client{Timeout: timeout},
		logger:      logger,
	}, nil
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type chatCompletionResponse struct {
	Choices []choice `json:"choices"`
	Usage   usage    `json:"usage"`
}

type choice struct {
	Index        int     `json:"index"`
	Message      message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

type usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// APIError is a sanitized summary of a non-200 chat-completions response.
type APIError struct {
	StatusCode int
	Status     string

	// Snippet is a redacted, truncated body hint.
	Snippet string
}

func (e *APIError) Error() string {
	if e == nil {
		return "groq api error"
	}
	msg := "groq api error: status=" + strings.TrimSpace(e.Status)
	if strings.TrimSpace(e.Snippet) != "" {
		msg += " body=" + strings.TrimSpace(e.Snippet)
	}
	return msg
}

// Complete sends one chat completion and returns the trimmed first choice.
// Retryable failures (HTTP 429/5xx, timeouts, connection resets) are retried
// with linear backoff up to MaxRetries extra attempts.
func (c *Client) Complete(ctx context.Context, req llm.Request) (string, error) {
	messages := make([]message, 0, 2)
	if req.System != "" {
		messages = append(messages, message{Role: "system", Content: req.System})
	}
	messages = append(messages, message{Role: "user", Content: req.User})

	body := chatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}

	reqID := uuid.NewString()
	c.logger.Debugw("Chat request",
		"request_id", reqID,
		"model", c.model,
		"temperature", c.temperature,
		"user_prompt_len", len(req.User))

	var resp *chatCompletionResponse
	var err error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(attempt) * time.Second
			c.logger.Debugw("Retrying chat request",
				"request_id", reqID,
				"attempt", attempt, "max_retries", c.maxRetries, "delay", delay)
			t := time.NewTimer(delay)
			select {
			case <-t.C:
			case <-ctx.Done():
				t.Stop()
				return "", ctx.Err()
			}
		}

		resp, err = c.createChatCompletion(ctx, body)
		if err == nil {
			if attempt > 0 {
				c.logger.Infow("Request succeeded after retries",
					"request_id", reqID,
					"attempts", attempt+1, "model", c.model)
			}
			break
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		c.logger.Warnw("Chat request failed",
			"request_id", reqID,
			"attempt", attempt+1, "model", c.model, "error", err)
		if !isRetryable(err) {
			return "", err
		}
	}
	if err != nil {
		return "", fmt.Errorf("groq: request failed after %d attempts: %w", c.maxRetries+1, err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("groq: no response choices")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	c.logger.Debugw("Chat response",
		"request_id", reqID,
		"content_length", len(text),
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens)
	return text, nil
}

func (c *Client) createChatCompletion(ctx context.Context, req chatCompletionRequest) (*chatCompletionResponse, error) {
	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Snippet:    redactAndTruncate(respBody),
		}
	}

	var chatResp chatCompletionResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return &chatResp, nil
}

func redactAndTruncate(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	const max = 256
	b := body
	if len(b) > max {
		b = b[:max]
	}
	s := redact.Secrets(string(b))
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	return strings.TrimSpace(s)
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.StatusCode == 429 || ae.StatusCode/100 == 5
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	return false
}
