package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/rowscout/rowscout/pkg/redact"
)

// StatusError is a sanitized summary of a non-200 provider response.
//
// Important: do not include raw response bodies here (can leak keys).
type StatusError struct {
	StatusCode int
	Status     string

	// Snippet is a redacted, truncated body hint.
	Snippet string
}

func (e *StatusError) Error() string {
	if e == nil {
		return "search api error"
	}
	msg := "search api error: status=" + strings.TrimSpace(e.Status)
	if strings.TrimSpace(e.Snippet) != "" {
		msg += " body=" + strings.TrimSpace(e.Snippet)
	}
	return msg
}

// Fetcher executes rate-limited GET requests with bounded transient retry
// and decodes JSON responses. Concrete providers build their own URLs and
// response types on top of it.
type Fetcher struct {
	opts    Options
	http    *http.Client
	limiter *rate.Limiter
}

// NewFetcher constructs a Fetcher; opts is normalized via WithDefaults.
func NewFetcher(opts Options) *Fetcher {
	opts = opts.WithDefaults()
	f := &Fetcher{
		opts: opts,
		http: &http.Client{Timeout: opts.Timeout},
	}
	if opts.RateLimitRPS > 0 {
		f.limiter = rate.NewLimiter(rate.Limit(opts.RateLimitRPS), 1)
	}
	return f
}

// MaxResults reports the normalized result cap.
func (f *Fetcher) MaxResults() int {
	return f.opts.MaxResults
}

// GetJSON fetches rawURL and decodes the response body into out.
//
// Transient failures (HTTP 429/5xx, timeouts, connection resets) are
// retried up to MaxRetries extra attempts with jittered backoff.
func (f *Fetcher) GetJSON(ctx context.Context, rawURL string, out any) error {
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if f.limiter != nil {
			if err := f.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		err := f.getOnce(ctx, rawURL, out)
		if err == nil {
			return nil
		}
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return ctx.Err()
		}
		if !isTransient(err) || attempt >= f.opts.MaxRetries {
			return err
		}

		sleep := backoffSleep(f.opts.BackoffInitial, f.opts.BackoffMax, f.opts.BackoffJitterFrac, attempt)
		t := time.NewTimer(sleep)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		}
	}
}

func (f *Fetcher) getOnce(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.http.Do(req)
	if err != nil {
		// url.Error stringifies the full request URL, which carries
		// credential query parameters. Surface only the cause.
		var ue *url.Error
		if errors.As(err, &ue) {
			return fmt.Errorf("%s request: %w", ue.Op, ue.Err)
		}
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return &StatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Snippet:    redactAndTruncate(b),
		}
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
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
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if len(body) > max {
		return s + "..."
	}
	return s
}

func isTransient(err error) bool {
	if err == nil {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode == 429 || se.StatusCode/100 == 5
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout() || ne.Temporary()
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	return false
}

func backoffSleep(initial, max time.Duration, jitterFrac float64, attempt int) time.Duration {
	sleep := initial
	for i := 0; i < attempt && sleep < max; i++ {
		sleep *= 2
		if sleep > max {
			sleep = max
			break
		}
	}
	if jitterFrac <= 0 {
		return sleep
	}
	// Apply +/- jitterFrac.
	j := 1 + (rand.Float64()*2-1)*jitterFrac
	return time.Duration(float64(sleep) * j)
}
