// Package integration provides black-box tests for the gremium HTTP API.
//
// Tests run against a real gremium server backed by a mock Chat
// Completions backend, both started in-process using net/http/httptest.
// The mock keys its behavior on the requested model name, so one backend
// plays a full roster including failure modes.
package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gremium-dev/gremium/pkg/api"
	"github.com/gremium-dev/gremium/pkg/council"
	"github.com/gremium-dev/gremium/pkg/engine"
	"github.com/gremium-dev/gremium/pkg/mcptool"
	"github.com/gremium-dev/gremium/pkg/observability"
	"github.com/gremium-dev/gremium/pkg/provider"
	"github.com/gremium-dev/gremium/pkg/provider/openaicompat"
	"github.com/gremium-dev/gremium/pkg/storage/memory"
	"github.com/gremium-dev/gremium/pkg/transport"
	transporthttp "github.com/gremium-dev/gremium/pkg/transport/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// testEnv holds the shared servers for all integration tests.
var testEnv *TestEnvironment

// TestEnvironment holds the gremium server and mock backend for testing.
type TestEnvironment struct {
	GremiumServer *httptest.Server
	MockBackend   *httptest.Server
}

// TestMain starts the mock backend and gremium server before running tests.
func TestMain(m *testing.M) {
	testEnv = setupTestEnvironment()
	code := m.Run()
	testEnv.Teardown()
	os.Exit(code)
}

// setupTestEnvironment wires a full production-shaped server: two
// OpenAI-compatible providers over one mock backend, council fan-out, an
// in-memory store, the HTTP adapter, and the outer mux with health,
// metrics, and MCP endpoints.
func setupTestEnvironment() *TestEnvironment {
	mockBackend := startMockBackend()

	registry := provider.NewRegistry()
	for _, name := range []string{"alpha", "beta"} {
		p, err := openaicompat.New(openaicompat.Config{
			Name:    name,
			BaseURL: mockBackend.URL,
			Timeout: 2 * time.Second,
		})
		if err != nil {
			panic(fmt.Sprintf("creating provider %q: %v", name, err))
		}
		if err := registry.Register(p); err != nil {
			panic(fmt.Sprintf("registering provider %q: %v", name, err))
		}
	}

	panel, err := council.New(registry, council.Config{
		Timeout: 2 * time.Second,
	})
	if err != nil {
		panic(fmt.Sprintf("creating council: %v", err))
	}

	store := memory.New(100)

	eng, err := engine.New(panel, store, engine.Config{
		DefaultMembers:  []string{"alpha/mock-model", "beta/mock-model"},
		DefaultChairman: "alpha/mock-model",
	})
	if err != nil {
		panic(fmt.Sprintf("creating engine: %v", err))
	}

	adapter := transporthttp.NewAdapter(eng, eng, transporthttp.DefaultConfig(),
		transport.Recovery(),
		transport.RequestID(),
	)

	// Build mux matching the production layout.
	mux := http.NewServeMux()
	mux.Handle("/", adapter.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := store.HealthCheck(r.Context()); err != nil {
			http.Error(w, "store unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.Handle("/mcp", mcptool.New(eng).Handler())

	gremiumServer := httptest.NewServer(observability.MetricsMiddleware(mux))

	return &TestEnvironment{
		GremiumServer: gremiumServer,
		MockBackend:   mockBackend,
	}
}

// Teardown stops both servers.
func (env *TestEnvironment) Teardown() {
	if env.GremiumServer != nil {
		env.GremiumServer.Close()
	}
	if env.MockBackend != nil {
		env.MockBackend.Close()
	}
}

// BaseURL returns the gremium server base URL.
func (env *TestEnvironment) BaseURL() string {
	return env.GremiumServer.URL
}

// --- HTTP helpers ---

// postJSON sends a POST request with JSON body and returns the response.
func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshaling request: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

// getURL sends a GET request and returns the response.
func getURL(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	return resp
}

// deleteURL sends a DELETE request and returns the response.
func deleteURL(t *testing.T, url string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodDelete, url, nil)
	if err != nil {
		t.Fatalf("creating DELETE request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE %s: %v", url, err)
	}
	return resp
}

// readBody reads and returns the response body as a string.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading response body: %v", err)
	}
	return string(body)
}

// decodeJSON reads the response body and decodes it into the target.
func decodeJSON(t *testing.T, resp *http.Response, target any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		t.Fatalf("decoding JSON: %v", err)
	}
}

// queryBody builds a minimal query request for the given members.
func queryBody(question string, members ...string) map[string]any {
	body := map[string]any{
		"messages": []map[string]any{
			{"role": "user", "content": question},
		},
	}
	if len(members) > 0 {
		body["members"] = members
	}
	return body
}

// runQuery posts a query and decodes the response, failing the test on a
// non-200 status.
func runQuery(t *testing.T, body map[string]any) *api.QueryResponse {
	t.Helper()
	resp := postJSON(t, testEnv.BaseURL()+"/v1/queries", body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST /v1/queries status = %d, body: %s", resp.StatusCode, readBody(t, resp))
	}
	var got api.QueryResponse
	decodeJSON(t, resp, &got)
	return &got
}

// --- Mock backend ---

// startMockBackend creates an httptest server that mimics a Chat
// Completions API. Behavior is keyed on the model name, mirroring
// cmd/mock-backend.
func startMockBackend() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/chat/completions", handleMockChatCompletions)
	return httptest.NewServer(mux)
}

func handleMockChatCompletions(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
		ReasoningEffort string `json:"reasoning_effort"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":{"message":"invalid request","type":"invalid_request_error"}}`, http.StatusBadRequest)
		return
	}

	switch {
	case strings.Contains(req.Model, "fail-auth"):
		writeMockError(w, http.StatusUnauthorized, "authentication_error", "invalid api key")
		return
	case strings.Contains(req.Model, "fail-ratelimit"):
		writeMockError(w, http.StatusTooManyRequests, "rate_limit_error", "rate limit exceeded")
		return
	case strings.Contains(req.Model, "fail-server"):
		writeMockError(w, http.StatusInternalServerError, "internal_error", "mock backend failure")
		return
	case strings.Contains(req.Model, "hang"):
		<-r.Context().Done()
		return
	}

	question := ""
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			question = req.Messages[i].Content
			break
		}
	}

	message := map[string]any{
		"role":    "assistant",
		"content": fmt.Sprintf("%s answers: %s", req.Model, question),
	}
	if strings.Contains(req.Model, "null-content") {
		message["content"] = nil
	}
	if strings.Contains(req.Model, "reasoning") {
		reasoning := "Considered the question step by step."
		if req.ReasoningEffort != "" {
			reasoning = fmt.Sprintf("Considered the question with %s effort.", req.ReasoningEffort)
		}
		message["reasoning_content"] = reasoning
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"id":     "chatcmpl-mock",
		"object": "chat.completion",
		"model":  req.Model,
		"choices": []map[string]any{
			{"index": 0, "message": message, "finish_reason": "stop"},
		},
		"usage": map[string]any{
			"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15,
		},
	})
}

func writeMockError(w http.ResponseWriter, status int, errType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"message": message, "type": errType},
	})
}
