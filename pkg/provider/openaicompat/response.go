package openaicompat

import (
	"github.com/gremium-dev/gremium/pkg/provider"
)

// extractResponse converts a ChatCompletionResponse into a provider.Response.
// It uses only choices[0] and maps content, reasoning content, and usage.
func extractResponse(resp *ChatCompletionResponse) (*provider.Response, error) {
	// Empty choices means the backend produced no output at all.
	if len(resp.Choices) == 0 {
		return nil, provider.NewUpstreamError(0, "backend returned no choices")
	}

	choice := resp.Choices[0]

	pr := &provider.Response{
		// Content stays nil when the backend answered with a null
		// completion; that is still a settled answer.
		Content: choice.Message.Content,
		Model:   resp.Model,
	}

	// Reasoning side channel (e.g., DeepSeek R1 via proxies). Only carried
	// when the backend supplied a non-empty trace.
	if rc := choice.Message.ReasoningContent; rc != nil && *rc != "" {
		pr.Reasoning = rc
	}

	if resp.Usage != nil {
		pr.Usage = provider.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		}
	}

	return pr, nil
}
