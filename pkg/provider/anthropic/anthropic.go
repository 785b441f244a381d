// Package anthropic provides a provider.Provider backed by the official
// Anthropic Go SDK. It serves member IDs under the "anthropic" prefix.
//
// The Messages API has no reasoning_effort parameter; the effort hint is
// expressed as an extended-thinking token budget instead, and thinking
// blocks from the response surface as discrete thinking segments.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/gremium-dev/gremium/pkg/api"
	"github.com/gremium-dev/gremium/pkg/provider"
)

// Thinking budgets per effort level, in tokens.
const (
	budgetLow    = 1024
	budgetMedium = 4096
	budgetHigh   = 16384
)

// Config holds the settings for the Anthropic backend.
type Config struct {
	// APIKey authenticates against the API. When empty, the SDK falls
	// back to the ANTHROPIC_API_KEY environment variable.
	APIKey string

	// BaseURL overrides the API endpoint. Empty means the public API.
	BaseURL string

	// MaxTokens caps each reply. The Messages API requires a value;
	// zero means 4096. When a thinking budget exceeds the cap, the cap
	// is raised so the budget still leaves room for the reply.
	MaxTokens int64

	// Timeout bounds each request. Zero means 120 seconds.
	Timeout time.Duration
}

// AnthropicProvider implements provider.Provider using the official SDK.
type AnthropicProvider struct {
	client    anthropic.Client
	maxTokens int64
}

// Ensure AnthropicProvider implements provider.Provider at compile time.
var _ provider.Provider = (*AnthropicProvider)(nil)

// New creates an AnthropicProvider with the given configuration.
func New(cfg Config) (*AnthropicProvider, error) {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	// One attempt per query; failure handling belongs to the caller.
	opts := []option.RequestOption{
		option.WithMaxRetries(0),
		option.WithRequestTimeout(timeout),
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &AnthropicProvider{
		client:    anthropic.NewClient(opts...),
		maxTokens: maxTokens,
	}, nil
}

// Name returns the provider identifier.
func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

// Complete performs non-streaming inference against the Messages API.
func (p *AnthropicProvider) Complete(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		Messages:  buildMessages(req.Messages),
		MaxTokens: p.maxTokens,
	}
	if system := extractSystem(req.Messages); len(system) > 0 {
		params.System = system
	}
	if budget, ok := thinkingBudget(req.ReasoningEffort); ok {
		if budget >= params.MaxTokens {
			// max_tokens must exceed the thinking budget.
			params.MaxTokens = budget + p.maxTokens
		}
		params.Thinking = anthropic.ThinkingConfigParamOfEnabled(budget)
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, mapError(err)
	}

	out := &provider.Response{
		Model: string(resp.Model),
		Usage: provider.Usage{
			InputTokens:  int(resp.Usage.InputTokens),
			OutputTokens: int(resp.Usage.OutputTokens),
			TotalTokens:  int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		},
	}

	var texts []string
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			texts = append(texts, block.AsText().Text)
		case "thinking":
			if thinking := block.AsThinking().Thinking; thinking != "" {
				out.Thinking = append(out.Thinking, thinking)
			}
		}
	}
	// No text blocks at all (e.g., the budget consumed the whole reply)
	// leaves Content nil: a settled answer with nothing to say.
	if len(texts) > 0 {
		content := strings.Join(texts, "\n\n")
		out.Content = &content
	}

	return out, nil
}

// Close releases provider resources.
func (p *AnthropicProvider) Close() error {
	return nil
}

// thinkingBudget maps an effort hint to a token budget. Hints the mapping
// does not know, including none, disable extended thinking.
func thinkingBudget(effort api.ReasoningEffort) (int64, bool) {
	switch effort {
	case api.ReasoningEffortLow:
		return budgetLow, true
	case api.ReasoningEffortMedium:
		return budgetMedium, true
	case api.ReasoningEffortHigh:
		return budgetHigh, true
	default:
		return 0, false
	}
}

// buildMessages converts the council message list into SDK message params.
// System messages are carried separately via extractSystem.
func buildMessages(messages []api.Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case api.RoleSystem:
			continue
		case api.RoleAssistant:
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	return out
}

// extractSystem collects system messages into system prompt blocks.
func extractSystem(messages []api.Message) []anthropic.TextBlockParam {
	var blocks []anthropic.TextBlockParam
	for _, m := range messages {
		if m.Role == api.RoleSystem && m.Content != "" {
			blocks = append(blocks, anthropic.TextBlockParam{Text: m.Content})
		}
	}
	return blocks
}

// mapError classifies SDK errors into the provider taxonomy.
func mapError(err error) error {
	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		message := err.Error()
		switch provider.ClassifyStatus(apierr.StatusCode) {
		case provider.KindAuth:
			return provider.NewAuthError(apierr.StatusCode, message)
		case provider.KindRateLimited:
			return provider.NewRateLimitError(apierr.StatusCode, message)
		case provider.KindTimeout:
			return &provider.Error{Kind: provider.KindTimeout, Status: apierr.StatusCode, Message: message}
		default:
			return provider.NewUpstreamError(apierr.StatusCode, message)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return provider.NewTimeoutError(err.Error())
	}
	return provider.NewUpstreamError(0, fmt.Sprintf("anthropic request failed: %s", err.Error()))
}
