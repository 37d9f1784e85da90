// Package search defines the provider boundary for web search.
//
// A Provider turns one query string into a ranked list of results. Concrete
// clients live in subpackages (serpapi, googlecse) and share the Options and
// Fetcher plumbing here so rate limiting and retry behavior stay uniform.
package search

import (
	"context"
	"fmt"
	"time"
)

// Result is one ranked search hit.
type Result struct {
	Title   string
	Snippet string
	URL     string

	// Position is the 1-based rank as reported by the provider.
	Position int
}

// Provider is implemented by concrete search backends.
type Provider interface {
	Search(ctx context.Context, query string) ([]Result, error)
}

// ProviderError wraps a terminal failure from a named provider.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "search provider error"
	}
	return fmt.Sprintf("search provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Options tunes the shared HTTP plumbing for all providers.
type Options struct {
	// MaxResults caps how many ranked results a query returns.
	MaxResults int

	// Timeout bounds each HTTP attempt.
	Timeout time.Duration

	// RateLimitRPS is a client-side request budget. Set to <=0 to disable.
	RateLimitRPS float64

	// MaxRetries is the number of extra attempts after a transient failure.
	MaxRetries int

	// BackoffInitial is the initial sleep before retrying a transient failure.
	BackoffInitial time.Duration
	// BackoffMax caps exponential backoff.
	BackoffMax time.Duration
	// BackoffJitterFrac applies +/- jitter to backoff sleeps (0.2 = +/-20%).
	BackoffJitterFrac float64
}

// WithDefaults fills unset fields with the standard limits.
func (o Options) WithDefaults() Options {
	if o.MaxResults <= 0 {
		o.MaxResults = 5
	}
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.BackoffInitial <= 0 {
		o.BackoffInitial = 200 * time.Millisecond
	}
	if o.BackoffMax <= 0 {
		o.BackoffMax = 2 * time.Second
	}
	if o.BackoffJitterFrac <= 0 {
		o.BackoffJitterFrac = 0.2
	}
	return o
}
