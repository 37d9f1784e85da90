// Package serpapi implements the search provider boundary on top of the
// SerpAPI Google-results endpoint.
package serpapi

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/rowscout/rowscout/pkg/search"
)

// DefaultBaseURL is the production SerpAPI endpoint.
const DefaultBaseURL = "https://serpapi.com/search"

const providerName = "serpapi"

// Config holds client settings. BaseURL is overridable for tests.
type Config struct {
	APIKey  string
	BaseURL string
	Options search.Options
}

// Client queries SerpAPI and adapts its organic results.
type Client struct {
	apiKey  string
	baseURL string
	fetcher *search.Fetcher
	logger  *zap.SugaredLogger
}

var _ search.Provider = (*Client)(nil)

// New constructs a Client. The API key is required.
func New(cfg Config, logger *zap.SugaredLogger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("serpapi: api key is required")
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Client{
		apiKey:  strings.TrimSpace(cfg.APIKey),
		baseURL: strings.TrimRight(baseURL, "/"),
		fetcher: search.NewFetcher(cfg.Options),
		logger:  logger,
	}, nil
}

type response struct {
	OrganicResults []organicResult `json:"organic_results"`
}

type organicResult struct {
	Title    string `json:"title"`
	Snippet  string `json:"snippet"`
	Link     string `json:"link"`
	Position int    `json:"position"`
}

// Search runs one query and returns up to MaxResults ranked results.
// An empty organic_results list is a valid, empty response.
func (c *Client) Search(ctx context.Context, query string) ([]search.Result, error) {
	q := url.Values{}
	q.Set("api_key", c.apiKey)
	q.Set("q", query)
	q.Set("num", strconv.Itoa(c.fetcher.MaxResults()))

	var resp response
	if err := c.fetcher.GetJSON(ctx, c.baseURL+"?"+q.Encode(), &resp); err != nil {
		return nil, &search.ProviderError{Provider: providerName, Err: err}
	}

	max := c.fetcher.MaxResults()
	results := make([]search.Result, 0, len(resp.OrganicResults))
	for i, r := range resp.OrganicResults {
		if i >= max {
			break
		}
		pos := r.Position
		if pos <= 0 {
			pos = i + 1
		}
		results = append(results, search.Result{
			Title:    r.Title,
			Snippet:  r.Snippet,
			URL:      r.Link,
			Position: pos,
		})
	}
	c.logger.Debugw("Search complete",
		"provider", providerName,
		"results", len(results))
	return results, nil
}
