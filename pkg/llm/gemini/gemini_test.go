package gemini

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/genai"
)

type tempNetErr struct{}

func (tempNetErr) Error() string   { return "temp net err" }
func (tempNetErr) Timeout() bool   { return false }
func (tempNetErr) Temporary() bool { return true }

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := New(context.Background(), Config{}, nil); err == nil {
		t.Fatal("expected error when API key is missing")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want bool
	}{
		{name: "nil", in: nil, want: false},
		{name: "api_429", in: genai.APIError{Code: 429}, want: true},
		{name: "api_500", in: genai.APIError{Code: 500}, want: true},
		{name: "api_401", in: genai.APIError{Code: 401}, want: false},
		{name: "net_temporary", in: tempNetErr{}, want: true},
		{name: "ctx_canceled", in: context.Canceled, want: false},
		{name: "stringified_api_429", in: errors.New(genai.APIError{Code: 429}.Error()), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRetryable(tt.in); got != tt.want {
				t.Fatalf("isRetryable(%v)=%v want=%v", tt.in, got, tt.want)
			}
		})
	}
}
