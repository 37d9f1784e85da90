package search_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rowscout/rowscout/pkg/search"
)

func fastOptions() search.Options {
	return search.Options{
		MaxRetries:     2,
		BackoffInitial: time.Millisecond,
		BackoffMax:     2 * time.Millisecond,
	}
}

func TestGetJSONDecodesResponse(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Accept"); got != "application/json" {
			t.Errorf("Accept=%q want application/json", got)
		}
		_, _ = w.Write([]byte(`{"answer": 42}`))
	}))
	defer ts.Close()

	var out struct {
		Answer int `json:"answer"`
	}
	f := search.NewFetcher(search.Options{})
	if err := f.GetJSON(context.Background(), ts.URL, &out); err != nil {
		t.Fatalf("GetJSON failed: %v", err)
	}
	if out.Answer != 42 {
		t.Fatalf("answer=%d want=42", out.Answer)
	}
}

func TestGetJSONRetriesRateLimitResponses(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer ts.Close()

	f := search.NewFetcher(fastOptions())
	var out struct{}
	if err := f.GetJSON(context.Background(), ts.URL, &out); err != nil {
		t.Fatalf("GetJSON failed: %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("calls=%d want=3", got)
	}
}

func TestGetJSONDoesNotRetryClientErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"invalid key"}`))
	}))
	defer ts.Close()

	f := search.NewFetcher(fastOptions())
	var out struct{}
	err := f.GetJSON(context.Background(), ts.URL, &out)
	if err == nil {
		t.Fatal("expected error for 403 response")
	}
	var se *search.StatusError
	if !errors.As(err, &se) {
		t.Fatalf("error type %T, want *search.StatusError", err)
	}
	if se.StatusCode != http.StatusForbidden {
		t.Fatalf("StatusCode=%d want=403", se.StatusCode)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("calls=%d want=1 (client errors must not be retried)", got)
	}
}

func TestGetJSONRedactsErrorBody(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("bad request: api_key=sk-live-secret is not valid"))
	}))
	defer ts.Close()

	f := search.NewFetcher(search.Options{})
	var out struct{}
	err := f.GetJSON(context.Background(), ts.URL, &out)
	if err == nil {
		t.Fatal("expected error for 400 response")
	}
	if strings.Contains(err.Error(), "sk-live-secret") {
		t.Fatalf("error leaks secret: %q", err)
	}
}

func TestGetJSONStripsURLFromTransportErrors(t *testing.T) {
	t.Parallel()

	// Closed server: Do fails with a url.Error that would stringify the
	// full URL, credentials included.
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	target := ts.URL + "?api_key=sk-live-secret&q=acme"
	ts.Close()

	f := search.NewFetcher(search.Options{})
	var out struct{}
	err := f.GetJSON(context.Background(), target, &out)
	if err == nil {
		t.Fatal("expected error for closed server")
	}
	if strings.Contains(err.Error(), "sk-live-secret") {
		t.Fatalf("error leaks credential: %q", err)
	}
}

func TestWithDefaults(t *testing.T) {
	t.Parallel()

	o := search.Options{}.WithDefaults()
	if o.MaxResults != 5 {
		t.Fatalf("MaxResults=%d want=5", o.MaxResults)
	}
	if o.Timeout != 30*time.Second {
		t.Fatalf("Timeout=%v want=30s", o.Timeout)
	}
	if o.BackoffInitial != 200*time.Millisecond || o.BackoffMax != 2*time.Second {
		t.Fatalf("unexpected backoff defaults: %v/%v", o.BackoffInitial, o.BackoffMax)
	}

	set := search.Options{MaxResults: 3}.WithDefaults()
	if set.MaxResults != 3 {
		t.Fatalf("MaxResults=%d want=3 (explicit value must survive)", set.MaxResults)
	}
}
