package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gremium-dev/gremium/pkg/api"
	"github.com/gremium-dev/gremium/pkg/provider"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *OpenAIProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p, err := New(Config{APIKey: "test-key", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	t.Cleanup(func() { p.Close() })
	return p
}

func completionJSON(content any) string {
	data, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "gpt-4o",
		"choices": []map[string]any{
			{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]any{"prompt_tokens": 7, "completion_tokens": 3, "total_tokens": 10},
	})
	return string(data)
}

func TestComplete_TextResponse(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("expected path /chat/completions, got %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("expected bearer auth, got %q", got)
		}

		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		if body["model"] != "gpt-4o" {
			t.Errorf("model = %v, want gpt-4o", body["model"])
		}
		if _, present := body["reasoning_effort"]; present {
			t.Error("reasoning_effort should be absent without a hint")
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(completionJSON("Hello from the council.")))
	})

	resp, err := p.Complete(context.Background(), &provider.Request{
		Model: "gpt-4o",
		Messages: []api.Message{
			{Role: api.RoleSystem, Content: "Be brief."},
			{Role: api.RoleUser, Content: "Say hello."},
		},
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	if resp.Content == nil || *resp.Content != "Hello from the council." {
		t.Errorf("content = %v, want %q", resp.Content, "Hello from the council.")
	}
	if resp.Reasoning != nil || resp.Thinking != nil {
		t.Errorf("side channels = (%v, %v), want absent", resp.Reasoning, resp.Thinking)
	}
	if resp.Usage.TotalTokens != 10 {
		t.Errorf("total tokens = %d, want 10", resp.Usage.TotalTokens)
	}
}

func TestComplete_NullContent(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(completionJSON(nil)))
	})

	resp, err := p.Complete(context.Background(), &provider.Request{
		Model:    "gpt-4o",
		Messages: []api.Message{{Role: api.RoleUser, Content: "Hi"}},
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if resp.Content != nil {
		t.Errorf("content = %q, want nil for null completion", *resp.Content)
	}
}

func TestComplete_EffortForwarded(t *testing.T) {
	tests := []struct {
		name   string
		effort api.ReasoningEffort
		want   string
	}{
		{"medium", api.ReasoningEffortMedium, "medium"},
		{"verbatim unknown value", api.ReasoningEffort("experimental"), "experimental"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				var body map[string]any
				if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
					t.Errorf("failed to decode request: %v", err)
				}
				if got := body["reasoning_effort"]; got != tt.want {
					t.Errorf("reasoning_effort = %v, want %q", got, tt.want)
				}
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(completionJSON("ok")))
			})

			_, err := p.Complete(context.Background(), &provider.Request{
				Model:           "o3-mini",
				Messages:        []api.Message{{Role: api.RoleUser, Content: "Hi"}},
				ReasoningEffort: tt.effort,
			})
			if err != nil {
				t.Fatalf("Complete failed: %v", err)
			}
		})
	}
}

func TestComplete_ErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind provider.ErrorKind
	}{
		{
			name:     "unauthorized",
			status:   http.StatusUnauthorized,
			body:     `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error","code":"invalid_api_key"}}`,
			wantKind: provider.KindAuth,
		},
		{
			name:     "rate limited",
			status:   http.StatusTooManyRequests,
			body:     `{"error":{"message":"Rate limit reached","type":"tokens"}}`,
			wantKind: provider.KindRateLimited,
		},
		{
			name:     "server error",
			status:   http.StatusInternalServerError,
			body:     `{"error":{"message":"The server had an error"}}`,
			wantKind: provider.KindProvider,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := p.Complete(context.Background(), &provider.Request{
				Model:    "gpt-4o",
				Messages: []api.Message{{Role: api.RoleUser, Content: "Hi"}},
			})
			if err == nil {
				t.Fatalf("expected error for HTTP %d", tt.status)
			}
			if got := provider.KindOf(err); got != tt.wantKind {
				t.Errorf("KindOf = %q, want %q", got, tt.wantKind)
			}
		})
	}
}

func TestComplete_NoChoices(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"chatcmpl-1","object":"chat.completion","model":"gpt-4o","choices":[]}`))
	})

	_, err := p.Complete(context.Background(), &provider.Request{
		Model:    "gpt-4o",
		Messages: []api.Message{{Role: api.RoleUser, Content: "Hi"}},
	})
	if err == nil {
		t.Fatal("expected error for empty choices")
	}
}
