// Command mock-backend runs a deterministic OpenAI-compatible Chat
// Completions server for demos and integration testing. Behavior is keyed
// on the requested model name, so one backend can play an entire council
// roster including its failure modes:
//
//	*fail-auth*      - 401 authentication_error
//	*fail-ratelimit* - 429 rate_limit_error
//	*fail-server*    - 500 internal error
//	*slow*           - answers after MOCK_SLOW_DELAY (default: 2s)
//	*hang*           - never answers; holds the request until the client gives up
//	*reasoning*      - answer carries reasoning_content, echoing the
//	                   reasoning_effort the request asked for
//	*null-content*   - answers with an explicit null content
//	anything else    - deterministic answer quoting the model and question
//
// Configuration:
//
//	MOCK_PORT       - Listen port (default: 9090)
//	MOCK_SLOW_DELAY - Delay for *slow* models (default: 2s)
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
)

var slowDelay = 2 * time.Second

func main() {
	port := os.Getenv("MOCK_PORT")
	if port == "" {
		port = "9090"
	}
	if v := os.Getenv("MOCK_SLOW_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			slowDelay = d
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/chat/completions", handleChatCompletions)
	mux.HandleFunc("GET /v1/models", handleModels)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})

	srv := &http.Server{Addr: ":" + port, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("mock backend starting", "port", port, "slow_delay", slowDelay)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("mock backend failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("mock backend shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
}

// --- Request types ---

type chatRequest struct {
	Model           string        `json:"model"`
	Messages        []chatMessage `json:"messages"`
	ReasoningEffort string        `json:"reasoning_effort"`
	Stream          bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// --- Response types ---

type chatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
}

type chatChoice struct {
	Index        int     `json:"index"`
	Message      chatMsg `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

type chatMsg struct {
	Role             string  `json:"role"`
	Content          *string `json:"content"`
	ReasoningContent *string `json:"reasoning_content,omitempty"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// --- Handler ---

func handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body")
		return
	}
	if req.Stream {
		writeError(w, http.StatusBadRequest, "invalid_request_error", "streaming is not supported")
		return
	}

	model := req.Model
	if model == "" {
		model = "mock-model"
	}

	switch {
	case strings.Contains(model, "fail-auth"):
		writeError(w, http.StatusUnauthorized, "authentication_error", "invalid api key")
	case strings.Contains(model, "fail-ratelimit"):
		writeError(w, http.StatusTooManyRequests, "rate_limit_error", "rate limit exceeded, retry later")
	case strings.Contains(model, "fail-server"):
		writeError(w, http.StatusInternalServerError, "internal_error", "mock backend exploded on purpose")
	case strings.Contains(model, "hang"):
		<-r.Context().Done()
	default:
		if strings.Contains(model, "slow") {
			select {
			case <-time.After(slowDelay):
			case <-r.Context().Done():
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(answer(&req, model))
	}
}

// answer builds a deterministic completion for the given model. The text
// quotes the model and the question so concurrent council members produce
// distinguishable replies.
func answer(req *chatRequest, model string) chatResponse {
	question := lastUserMessage(req)
	text := fmt.Sprintf("%s answers: %s", model, question)
	if question == "" {
		text = fmt.Sprintf("%s received no question", model)
	}

	msg := chatMsg{Role: "assistant", Content: &text}
	if strings.Contains(model, "null-content") {
		msg.Content = nil
	}
	if strings.Contains(model, "reasoning") {
		reasoning := "Considered the question step by step."
		if req.ReasoningEffort != "" {
			reasoning = fmt.Sprintf("Considered the question with %s effort.", req.ReasoningEffort)
		}
		msg.ReasoningContent = &reasoning
	}

	completionTokens := len(strings.Fields(text))
	promptTokens := 0
	for _, m := range req.Messages {
		promptTokens += len(strings.Fields(m.Content))
	}

	return chatResponse{
		ID:     "chatcmpl-mock",
		Object: "chat.completion",
		Model:  model,
		Choices: []chatChoice{
			{Index: 0, Message: msg, FinishReason: "stop"},
		},
		Usage: chatUsage{
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
			TotalTokens:      promptTokens + completionTokens,
		},
	}
}

func writeError(w http.ResponseWriter, status int, errType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": message,
			"type":    errType,
		},
	})
}

// --- Models endpoint ---

func handleModels(w http.ResponseWriter, r *http.Request) {
	models := []string{
		"mock-model",
		"mock-reasoning",
		"mock-slow",
		"mock-null-content",
		"mock-fail-auth",
		"mock-fail-ratelimit",
		"mock-fail-server",
		"mock-hang",
	}
	data := make([]map[string]any, 0, len(models))
	for _, m := range models {
		data = append(data, map[string]any{"id": m, "object": "model", "owned_by": "gremium-mock"})
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": data})
}

// --- Helpers ---

func lastUserMessage(req *chatRequest) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			return req.Messages[i].Content
		}
	}
	return ""
}
