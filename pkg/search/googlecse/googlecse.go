// Package googlecse implements the search provider boundary on top of the
// Google Custom Search JSON API.
package googlecse

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/rowscout/rowscout/pkg/search"
)

// DefaultBaseURL is the production Custom Search endpoint.
const DefaultBaseURL = "https://www.googleapis.com/customsearch/v1"

const providerName = "googlecse"

// Config holds client settings. BaseURL is overridable for tests.
type Config struct {
	APIKey   string
	EngineID string
	BaseURL  string
	Options  search.Options
}

// Client queries a Custom Search Engine and adapts its items.
type Client struct {
	apiKey   string
	engineID string
	baseURL  string
	fetcher  *search.Fetcher
	logger   *zap.SugaredLogger
}

var _ search.Provider = (*Client)(nil)

// New constructs a Client. Both the API key and the engine ID are required.
func New(cfg Config, logger *zap.SugaredLogger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("googlecse: api key is required")
	}
	if strings.TrimSpace(cfg.EngineID) == "" {
		return nil, errors.New("googlecse: engine id is required")
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Client{
		apiKey:   strings.TrimSpace(cfg.APIKey),
		engineID: strings.TrimSpace(cfg.EngineID),
		baseURL:  strings.TrimRight(baseURL, "/"),
		fetcher:  search.NewFetcher(cfg.Options),
		logger:   logger,
	}, nil
}

type response struct {
	Items []item `json:"items"`
}

type item struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Link    string `json:"link"`
}

// Search runs one query and returns up to MaxResults ranked results. The
// API omits "items" entirely when nothing matches; that is a valid, empty
// response.
func (c *Client) Search(ctx context.Context, query string) ([]search.Result, error) {
	q := url.Values{}
	q.Set("key", c.apiKey)
	q.Set("cx", c.engineID)
	q.Set("q", query)
	q.Set("num", strconv.Itoa(c.fetcher.MaxResults()))

	var resp response
	if err := c.fetcher.GetJSON(ctx, c.baseURL+"?"+q.Encode(), &resp); err != nil {
		return nil, &search.ProviderError{Provider: providerName, Err: err}
	}

	max := c.fetcher.MaxResults()
	results := make([]search.Result, 0, len(resp.Items))
	for i, r := range resp.Items {
		if i >= max {
			break
		}
		results = append(results, search.Result{
			Title:    r.Title,
			Snippet:  r.Snippet,
			URL:      r.Link,
			Position: i + 1,
		})
	}
	c.logger.Debugw("Search complete",
		"provider", providerName,
		"results", len(results))
	return results, nil
}
