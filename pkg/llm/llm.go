// Package llm defines the completion boundary for extraction backends.
//
// A Completer answers one prompt pair with plain text. Concrete clients
// live in subpackages (groq, anthropic, gemini); each handles its own
// authentication, retries, and transport details.
package llm

import "context"

// Request is one completion request.
type Request struct {
	// System is the fixed behavioral instruction. May be empty.
	System string
	// User is the assembled task prompt.
	User string
}

// Completer is implemented by concrete model clients.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}
