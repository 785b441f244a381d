package provider

import (
	"context"

	"github.com/gremium-dev/gremium/pkg/api"
)

// Provider abstracts an upstream LLM backend. The interface is
// protocol-agnostic: each adapter handles its own backend protocol
// (Chat Completions, Messages API, etc.) internally.
//
// Implementations must be safe for concurrent use by multiple goroutines;
// the council layer calls Complete from one goroutine per member.
type Provider interface {
	// Name returns the provider identifier used as the member ID prefix
	// (e.g., "openai", "anthropic", "openrouter").
	Name() string

	// Complete performs non-streaming inference.
	Complete(ctx context.Context, req *Request) (*Response, error)

	// Close releases provider resources (HTTP clients, connections).
	Close() error
}

// Request is the backend-facing request. It contains only what a provider
// needs to answer one council query, stripped of transport and storage
// concerns. The model name has already been stripped of its routing prefix.
type Request struct {
	Model    string
	Messages []api.Message

	// ReasoningEffort is forwarded verbatim to backends that understand
	// it and omitted from the outbound request when empty. Adapters never
	// validate the value.
	ReasoningEffort api.ReasoningEffort
}

// Response is the backend's normalized answer.
//
// Content is nil when the backend returned an explicit null completion,
// which still counts as an answer. Reasoning and Thinking stay nil when the
// backend supplied no such data; adapters must not fabricate empty values.
type Response struct {
	Content   *string
	Reasoning *string
	Thinking  []string
	Model     string
	Usage     Usage
}

// Usage holds token accounting reported by the backend.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}
