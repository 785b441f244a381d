// Package provider defines the interface for upstream LLM backends and the
// prefix routing that maps council member IDs onto them. Each adapter
// implementation (openaicompat, openai, anthropic) handles its own backend
// protocol internally. The interface operates on Gremium's own types
// (Request, Response, Error), keeping backend protocol details invisible to
// the council layer.
//
// Member IDs carry the provider name as a prefix: "openai/gpt-4o" resolves
// to the provider registered under "openai" with model "gpt-4o". Prefixes
// may nest, as in "openrouter/x-ai/grok-2": only the first segment routes.
package provider
