package extract_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rowscout/rowscout/pkg/extract"
	"github.com/rowscout/rowscout/pkg/llm"
	"github.com/rowscout/rowscout/pkg/search"
)

// fakeCompleter records the request and plays back a scripted response.
type fakeCompleter struct {
	got  llm.Request
	text string
	err  error
}

func (f *fakeCompleter) Complete(_ context.Context, req llm.Request) (string, error) {
	f.got = req
	return f.text, f.err
}

func TestExtractAssemblesPrompt(t *testing.T) {
	t.Parallel()

	fake := &fakeCompleter{text: "1994"}
	e := extract.New(fake, extract.Options{}, nil)

	results := []search.Result{
		{Title: "Acme - Wikipedia", Snippet: "Acme Corp was founded in 1994.", Position: 1},
		{Title: "Acme history", Snippet: "The company began operations...", Position: 2},
	}
	out, err := e.Extract(context.Background(), "founding year of Acme Corp", results)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if out.Text != "1994" || out.NotFound {
		t.Fatalf("unexpected outcome: %#v", out)
	}

	if fake.got.System != extract.SystemPrompt {
		t.Fatalf("system prompt=%q", fake.got.System)
	}
	want := "Context:\n" +
		"Title: Acme - Wikipedia\nSnippet: Acme Corp was founded in 1994.\n" +
		"\n" +
		"Title: Acme history\nSnippet: The company began operations...\n" +
		"\n\nPrompt: founding year of Acme Corp"
	if fake.got.User != want {
		t.Fatalf("user prompt mismatch:\ngot:  %q\nwant: %q", fake.got.User, want)
	}
}

func TestExtractRunsWithEmptyResults(t *testing.T) {
	t.Parallel()

	fake := &fakeCompleter{text: "Not found"}
	e := extract.New(fake, extract.Options{}, nil)

	out, err := e.Extract(context.Background(), "anything", nil)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if !out.NotFound {
		t.Fatalf("want NotFound outcome, got %#v", out)
	}
	if !strings.HasPrefix(fake.got.User, "Context:\n\n\nPrompt: ") {
		t.Fatalf("empty context block rendered wrong: %q", fake.got.User)
	}
}

func TestExtractCapsSnippetCount(t *testing.T) {
	t.Parallel()

	fake := &fakeCompleter{text: "x"}
	e := extract.New(fake, extract.Options{}, nil)

	results := make([]search.Result, 8)
	for i := range results {
		results[i] = search.Result{Title: "t", Snippet: "s", Position: i + 1}
	}
	if _, err := e.Extract(context.Background(), "q", results); err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if got := strings.Count(fake.got.User, "Title: "); got != 5 {
		t.Fatalf("rendered %d entries, want 5", got)
	}
}

func TestExtractTruncatesLongSnippets(t *testing.T) {
	t.Parallel()

	fake := &fakeCompleter{text: "x"}
	e := extract.New(fake, extract.Options{SnippetChars: 10}, nil)

	results := []search.Result{
		{Title: "t", Snippet: strings.Repeat("a", 50), Position: 1},
	}
	if _, err := e.Extract(context.Background(), "q", results); err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if strings.Contains(fake.got.User, strings.Repeat("a", 11)) {
		t.Fatalf("snippet not truncated: %q", fake.got.User)
	}
	if !strings.Contains(fake.got.User, strings.Repeat("a", 10)) {
		t.Fatalf("snippet missing entirely: %q", fake.got.User)
	}
}

func TestExtractDropsEntriesOverContextBudget(t *testing.T) {
	t.Parallel()

	fake := &fakeCompleter{text: "x"}
	// Budget fits roughly one entry of ~30 runes, not two.
	e := extract.New(fake, extract.Options{ContextChars: 40}, nil)

	results := []search.Result{
		{Title: "first", Snippet: "short snippet", Position: 1},
		{Title: "second", Snippet: "short snippet", Position: 2},
	}
	if _, err := e.Extract(context.Background(), "q", results); err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if got := strings.Count(fake.got.User, "Title: "); got != 1 {
		t.Fatalf("rendered %d entries, want 1", got)
	}
}

func TestExtractDetectsNotFoundCaseInsensitively(t *testing.T) {
	t.Parallel()

	cases := []struct {
		text     string
		notFound bool
	}{
		{text: "Not found", notFound: true},
		{text: "not found", notFound: true},
		{text: "NOT FOUND", notFound: true},
		{text: "  Not Found  ", notFound: true},
		{text: "Not found.", notFound: false},
		{text: "Information not found in results", notFound: false},
		{text: "1994", notFound: false},
	}
	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			t.Parallel()
			fake := &fakeCompleter{text: tc.text}
			e := extract.New(fake, extract.Options{}, nil)
			out, err := e.Extract(context.Background(), "q", nil)
			if err != nil {
				t.Fatalf("Extract failed: %v", err)
			}
			if out.NotFound != tc.notFound {
				t.Fatalf("NotFound=%v want=%v for %q", out.NotFound, tc.notFound, tc.text)
			}
			if out.Text != strings.TrimSpace(tc.text) {
				t.Fatalf("Text=%q want trimmed input", out.Text)
			}
		})
	}
}

func TestExtractClassifiesFailures(t *testing.T) {
	t.Parallel()

	t.Run("empty response", func(t *testing.T) {
		t.Parallel()
		e := extract.New(&fakeCompleter{text: "   "}, extract.Options{}, nil)
		_, err := e.Extract(context.Background(), "q", nil)
		var ee *extract.Error
		if !errors.As(err, &ee) || ee.Kind != extract.KindEmpty {
			t.Fatalf("want KindEmpty, got %v", err)
		}
	})

	t.Run("deadline", func(t *testing.T) {
		t.Parallel()
		e := extract.New(&fakeCompleter{err: context.DeadlineExceeded}, extract.Options{}, nil)
		_, err := e.Extract(context.Background(), "q", nil)
		var ee *extract.Error
		if !errors.As(err, &ee) || ee.Kind != extract.KindTimeout {
			t.Fatalf("want KindTimeout, got %v", err)
		}
	})

	t.Run("backend", func(t *testing.T) {
		t.Parallel()
		cause := errors.New("no response choices")
		e := extract.New(&fakeCompleter{err: cause}, extract.Options{}, nil)
		_, err := e.Extract(context.Background(), "q", nil)
		var ee *extract.Error
		if !errors.As(err, &ee) || ee.Kind != extract.KindBackend {
			t.Fatalf("want KindBackend, got %v", err)
		}
		if !errors.Is(err, cause) {
			t.Fatalf("cause not preserved: %v", err)
		}
	})
}
