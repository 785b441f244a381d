// Package openaicompat provides a provider.Provider for any OpenAI-compatible
// Chat Completions backend. It handles request serialization, response
// parsing, and error classification.
//
// One Client instance serves one backend under one routing prefix. Gremium
// uses it for aggregators and proxies that speak the Chat Completions
// dialect (OpenRouter, LiteLLM proxies, local inference servers); the
// first-party OpenAI and Anthropic backends have their own SDK-backed
// adapters in sibling packages.
//
// The reasoning_effort request field and the reasoning_content response
// field pass through untouched, so backends that expose reasoning over the
// Chat Completions dialect keep their side channel intact.
package openaicompat
