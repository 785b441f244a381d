// Package openai provides a provider.Provider backed by the official OpenAI
// Go SDK. It serves member IDs under the "openai" prefix and forwards the
// reasoning effort hint through the SDK's reasoning_effort parameter.
package openai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/gremium-dev/gremium/pkg/api"
	"github.com/gremium-dev/gremium/pkg/provider"
)

// Config holds the settings for the OpenAI backend.
type Config struct {
	// APIKey authenticates against the API. When empty, the SDK falls
	// back to the OPENAI_API_KEY environment variable.
	APIKey string

	// BaseURL overrides the API endpoint. Empty means the public API.
	BaseURL string

	// Timeout bounds each request. Zero means 120 seconds.
	Timeout time.Duration
}

// OpenAIProvider implements provider.Provider using the official SDK.
type OpenAIProvider struct {
	client openai.Client
}

// Ensure OpenAIProvider implements provider.Provider at compile time.
var _ provider.Provider = (*OpenAIProvider)(nil)

// New creates an OpenAIProvider with the given configuration.
func New(cfg Config) (*OpenAIProvider, error) {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
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

	return &OpenAIProvider{client: openai.NewClient(opts...)}, nil
}

// Name returns the provider identifier.
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// Complete performs non-streaming inference against the Chat Completions API.
func (p *OpenAIProvider) Complete(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(req.Model),
		Messages: buildMessages(req.Messages),
	}
	if req.ReasoningEffort != "" {
		params.ReasoningEffort = shared.ReasoningEffort(req.ReasoningEffort)
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, mapError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, provider.NewUpstreamError(0, "backend returned no choices")
	}

	choice := resp.Choices[0]
	out := &provider.Response{
		Model: resp.Model,
		Usage: provider.Usage{
			InputTokens:  int(resp.Usage.PromptTokens),
			OutputTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:  int(resp.Usage.TotalTokens),
		},
	}

	// A null completion stays nil; the Chat Completions API does not
	// expose reasoning traces, so the side channels stay absent too.
	if choice.Message.JSON.Content.Valid() {
		content := choice.Message.Content
		out.Content = &content
	}

	return out, nil
}

// Close releases provider resources. The SDK client holds no connections
// beyond the idle pool of the default transport.
func (p *OpenAIProvider) Close() error {
	return nil
}

// buildMessages converts the council message list into SDK message params.
func buildMessages(messages []api.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case api.RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case api.RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

// mapError classifies SDK errors into the provider taxonomy.
func mapError(err error) error {
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		message := apierr.Message
		if message == "" {
			message = err.Error()
		}
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
	return provider.NewUpstreamError(0, fmt.Sprintf("openai request failed: %s", err.Error()))
}
