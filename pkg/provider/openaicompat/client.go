package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gremium-dev/gremium/pkg/debug"
	"github.com/gremium-dev/gremium/pkg/provider"
)

// Config holds the settings for one OpenAI-compatible backend.
type Config struct {
	// Name is the routing prefix this backend answers to
	// (e.g., "openrouter", "litellm", "local").
	Name string

	// BaseURL is the backend root; "/v1/chat/completions" is appended.
	BaseURL string

	// APIKey is sent as a bearer token when non-empty.
	APIKey string

	// Timeout bounds each HTTP request. Zero means 120 seconds.
	Timeout time.Duration
}

// Client performs HTTP requests against an OpenAI-compatible Chat
// Completions backend.
type Client struct {
	httpClient *http.Client
	name       string
	baseURL    string
	apiKey     string
}

// Ensure Client implements provider.Provider at compile time.
var _ provider.Provider = (*Client)(nil)

// New creates a Client for an OpenAI-compatible backend.
func New(cfg Config) (*Client, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("openaicompat: Name is required")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("openaicompat: BaseURL is required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		name:    cfg.Name,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
	}, nil
}

// Name returns the routing prefix this client serves.
func (c *Client) Name() string {
	return c.name
}

// Complete performs non-streaming inference against the Chat Completions endpoint.
func (c *Client) Complete(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	chatReq := buildChatRequest(req)

	body, err := json.Marshal(chatReq)
	if err != nil {
		return nil, provider.NewUpstreamError(0, fmt.Sprintf("failed to marshal request: %s", err.Error()))
	}

	url := c.baseURL + "/v1/chat/completions"
	debug.Log("providers", "request", "backend", c.name, "model", req.Model, "url", url)
	debug.Raw("providers", string(body))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, provider.NewUpstreamError(0, fmt.Sprintf("failed to create HTTP request: %s", err.Error()))
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, MapNetworkError(err)
	}
	defer httpResp.Body.Close()

	debug.Log("providers", "response", "backend", c.name, "model", req.Model, "status", httpResp.StatusCode)

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, MapHTTPError(httpResp)
	}

	var chatResp ChatCompletionResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&chatResp); err != nil {
		return nil, provider.NewUpstreamError(0, fmt.Sprintf("failed to parse backend response: %s", err.Error()))
	}

	return extractResponse(&chatResp)
}

// Close releases client resources.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// buildChatRequest converts a provider.Request into the Chat Completions
// wire format. The effort hint passes through verbatim and is omitted when
// empty.
func buildChatRequest(req *provider.Request) ChatCompletionRequest {
	cr := ChatCompletionRequest{
		Model:           req.Model,
		ReasoningEffort: string(req.ReasoningEffort),
		N:               1,
	}
	for _, m := range req.Messages {
		content := m.Content
		cr.Messages = append(cr.Messages, ChatMessage{
			Role:    string(m.Role),
			Content: &content,
		})
	}
	return cr
}
