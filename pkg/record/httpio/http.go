// Package httpio reads input tables from HTTP(S) endpoints.
//
// It covers the case where the input CSV is not a local file but lives
// behind an internal file share, object-store gateway, or export API.
// Responses must be CSV with a header row.
package httpio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/rowscout/rowscout/pkg/record"
	"github.com/rowscout/rowscout/pkg/record/csvio"
)

// Source fetches a CSV document from a single URL.
type Source struct {
	url   *url.URL
	token string
	http  *http.Client
}

var _ record.Source = (*Source)(nil)

// NewSource constructs a Source for the given endpoint URL.
//
// token is optional; when set it is sent as a Bearer credential on every
// request. A URL without a scheme defaults to https.
func NewSource(rawURL, token string) (*Source, error) {
	u, err := parseURL(rawURL)
	if err != nil {
		return nil, err
	}
	return &Source{
		url:   u,
		token: strings.TrimSpace(token),
		http:  &http.Client{Timeout: 60 * time.Second},
	}, nil
}

func parseURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("input URL is required")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse input URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("input URL must include a host (got %q)", raw)
	}
	return u, nil
}

// Read fetches the document and parses it into a table.
//
// Transient failures (HTTP 429/5xx, timeouts, connection resets) are
// retried with capped exponential backoff before giving up.
func (s *Source) Read(ctx context.Context) (record.Table, error) {
	var body []byte
	err := retryTransient(ctx, 4, 200*time.Millisecond, func() error {
		b, err := s.fetch(ctx)
		if err != nil {
			return err
		}
		body = b
		return nil
	})
	if err != nil {
		return record.Table{}, err
	}

	t, err := csvio.Read(bytes.NewReader(body))
	if err != nil {
		return record.Table{}, fmt.Errorf("parse remote csv: %w", err)
	}
	return t, nil
}

func (s *Source) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url.String(), nil)
	if err != nil {
		return nil, err
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	req.Header.Set("Accept", "text/csv")

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode/100 != 2 {
		return nil, newHTTPError("fetch", resp, b)
	}
	return b, nil
}

func isTransient(err error) bool {
	if err == nil {
		return false
	}
	var he *HTTPError
	if errors.As(err, &he) {
		return he.StatusCode == 429 || he.StatusCode/100 == 5
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

func retryTransient(ctx context.Context, attempts int, initialSleep time.Duration, f func() error) error {
	sleep := initialSleep
	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := f(); err == nil {
			return nil
		} else {
			lastErr = err
			if !isTransient(err) || i == attempts-1 {
				return err
			}
		}

		t := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		sleep *= 2
		if sleep > 2*time.Second {
			sleep = 2 * time.Second
		}
	}
	return lastErr
}
