package googlecse_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rowscout/rowscout/pkg/search/googlecse"
)

func TestSearchSendsExpectedParams(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if got := q.Get("key"); got != "test-key" {
			t.Errorf("key=%q want=test-key", got)
		}
		if got := q.Get("cx"); got != "engine-123" {
			t.Errorf("cx=%q want=engine-123", got)
		}
		if got := q.Get("q"); got != "Globex headquarters" {
			t.Errorf("q=%q", got)
		}
		if got := q.Get("num"); got != "5" {
			t.Errorf("num=%q want=5", got)
		}
		_, _ = w.Write([]byte(`{
			"items": [
				{"title": "Globex - About", "snippet": "Headquartered in Cypress Creek...", "link": "https://globex.example/about"},
				{"title": "Globex on the map", "snippet": "Find Globex offices...", "link": "https://maps.example/globex"}
			]
		}`))
	}))
	defer ts.Close()

	c, err := googlecse.New(googlecse.Config{APIKey: "test-key", EngineID: "engine-123", BaseURL: ts.URL}, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	results, err := c.Search(context.Background(), "Globex headquarters")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results len=%d want=2", len(results))
	}
	if results[0].Position != 1 || results[1].Position != 2 {
		t.Fatalf("positions=%d,%d want=1,2", results[0].Position, results[1].Position)
	}
	if results[0].URL != "https://globex.example/about" {
		t.Fatalf("unexpected result[0]: %#v", results[0])
	}
}

func TestSearchTreatsMissingItemsAsEmpty(t *testing.T) {
	t.Parallel()

	// The API omits "items" entirely when nothing matches.
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"searchInformation": {"totalResults": "0"}}`))
	}))
	defer ts.Close()

	c, err := googlecse.New(googlecse.Config{APIKey: "k", EngineID: "cx", BaseURL: ts.URL}, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	results, err := c.Search(context.Background(), "no hits at all")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("results len=%d want=0", len(results))
	}
}

func TestNewValidatesConfig(t *testing.T) {
	t.Parallel()

	if _, err := googlecse.New(googlecse.Config{EngineID: "cx"}, nil); err == nil {
		t.Fatal("expected error for missing api key")
	}
	if _, err := googlecse.New(googlecse.Config{APIKey: "k"}, nil); err == nil {
		t.Fatal("expected error for missing engine id")
	}
}
