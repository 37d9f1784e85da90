// Package extract turns ranked search results plus an instruction into a
// single extracted value via a completion backend.
package extract

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/rowscout/rowscout/pkg/llm"
	"github.com/rowscout/rowscout/pkg/search"
)

// SystemPrompt is the fixed behavioral instruction sent with every request.
// The miss sentinel in NotFoundSentinel is the only phrasing the model is
// told to use when the answer is absent.
const SystemPrompt = "Extract the requested information from the provided search results. " +
	"If the information cannot be found, respond with 'Not found'. " +
	"Be concise and only return the requested information."

// NotFoundSentinel is the model's answer when the information is absent.
// Detection is case-insensitive equality with this exact phrase.
const NotFoundSentinel = "Not found"

// Options bounds how much search material enters the prompt.
type Options struct {
	// MaxSnippets caps how many results are rendered into the context.
	MaxSnippets int
	// SnippetChars truncates each snippet body to this many characters.
	SnippetChars int
	// ContextChars caps the whole context block; results that would push
	// the block past it are dropped entirely.
	ContextChars int
}

func (o Options) withDefaults() Options {
	if o.MaxSnippets <= 0 {
		o.MaxSnippets = 5
	}
	if o.SnippetChars <= 0 {
		o.SnippetChars = 600
	}
	if o.ContextChars <= 0 {
		o.ContextChars = 4000
	}
	return o
}

// Kind classifies extraction failures.
type Kind int

const (
	// KindBackend covers transport, auth, and other completion failures.
	KindBackend Kind = iota
	// KindTimeout covers deadline and network-timeout failures.
	KindTimeout
	// KindEmpty means the model returned nothing usable.
	KindEmpty
)

func (k Kind) String() string {
	switch k {
	case KindBackend:
		return "backend"
	case KindTimeout:
		return "timeout"
	case KindEmpty:
		return "empty"
	default:
		return "unknown"
	}
}

// Error is a classified extraction failure.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return "extraction error"
	}
	switch e.Kind {
	case KindTimeout:
		return fmt.Sprintf("extraction timed out: %v", e.Err)
	case KindEmpty:
		return "extraction returned an empty response"
	default:
		return fmt.Sprintf("extraction backend error: %v", e.Err)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Outcome is the result of one successful extraction.
type Outcome struct {
	// Text is the model's trimmed response.
	Text string
	// NotFound reports whether Text is the miss sentinel.
	NotFound bool
}

// Engine assembles prompts and classifies completion responses.
type Engine struct {
	completer llm.Completer
	opts      Options
	logger    *zap.SugaredLogger
}

// New constructs an Engine; opts is normalized with the standard budgets.
func New(completer llm.Completer, opts Options, logger *zap.SugaredLogger) *Engine {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Engine{
		completer: completer,
		opts:      opts.withDefaults(),
		logger:    logger,
	}
}

// Extract runs one completion over the given results. An empty result list
// still runs with an empty context block; the model then usually answers
// with the miss sentinel.
func (e *Engine) Extract(ctx context.Context, instruction string, results []search.Result) (Outcome, error) {
	user := fmt.Sprintf("Context:\n%s\n\nPrompt: %s", e.buildContext(results), instruction)

	text, err := e.completer.Complete(ctx, llm.Request{System: SystemPrompt, User: user})
	if err != nil {
		return Outcome{}, classify(err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return Outcome{}, &Error{Kind: KindEmpty}
	}
	if strings.EqualFold(text, NotFoundSentinel) {
		e.logger.Debugw("Extraction found nothing", "instruction_len", len(instruction))
		return Outcome{Text: text, NotFound: true}, nil
	}
	return Outcome{Text: text}, nil
}

// buildContext renders results into the prompt context block. Each entry is
// "Title: <t>\nSnippet: <s>\n"; entries are joined with a blank line.
func (e *Engine) buildContext(results []search.Result) string {
	var entries []string
	total := 0
	for i, r := range results {
		if i >= e.opts.MaxSnippets {
			break
		}
		entry := fmt.Sprintf("Title: %s\nSnippet: %s\n", r.Title, truncate(r.Snippet, e.opts.SnippetChars))
		n := utf8.RuneCountInString(entry)
		if total+n > e.opts.ContextChars {
			break
		}
		entries = append(entries, entry)
		total += n + 1
	}
	return strings.Join(entries, "\n")
}

func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Err: err}
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &Error{Kind: KindTimeout, Err: err}
	}
	return &Error{Kind: KindBackend, Err: err}
}
