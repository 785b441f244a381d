package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gremium-dev/gremium/pkg/api"
	"github.com/gremium-dev/gremium/pkg/storage"
	"github.com/gremium-dev/gremium/pkg/transport"
)

// Adapter serves the council API over HTTP.
// It routes requests to the appropriate handler and serializes responses.
type Adapter struct {
	runner        transport.QueryRunner
	conversations transport.ConversationService // nil if stateless-only
	mux           *http.ServeMux
	config        Config
}

// Config holds configuration for the HTTP adapter.
type Config struct {
	Addr            string
	MaxBodySize     int64
	ShutdownTimeout int // seconds
}

// DefaultConfig returns the default adapter configuration.
func DefaultConfig() Config {
	return Config{
		Addr:            ":8080",
		MaxBodySize:     10 << 20, // 10 MB
		ShutdownTimeout: 30,
	}
}

// NewAdapter creates an HTTP adapter with the given QueryRunner and options.
// The ConversationService is optional; when nil, conversation endpoints
// return an error indicating the operation is not available.
// Middleware is applied to the QueryRunner in the given order.
func NewAdapter(runner transport.QueryRunner, conversations transport.ConversationService, cfg Config, middlewares ...transport.Middleware) *Adapter {
	// Apply middleware chain to the runner.
	if len(middlewares) > 0 {
		runner = transport.Chain(middlewares...)(runner)
	}

	a := &Adapter{
		runner:        runner,
		conversations: conversations,
		mux:           http.NewServeMux(),
		config:        cfg,
	}

	a.mux.HandleFunc("POST /v1/queries", a.handleRunQuery)
	a.mux.HandleFunc("POST /v1/conversations", a.handleCreateConversation)
	a.mux.HandleFunc("GET /v1/conversations", a.handleListConversations)
	a.mux.HandleFunc("GET /v1/conversations/{id}", a.handleGetConversation)
	a.mux.HandleFunc("DELETE /v1/conversations/{id}", a.handleDeleteConversation)
	a.mux.HandleFunc("GET /v1/conversations/{id}/messages", a.handleListMessages)
	a.mux.HandleFunc("POST /v1/conversations/{id}/messages", a.handlePostMessage)

	return a
}

// Handler returns the http.Handler for this adapter. Use this to integrate
// with an http.Server or test with httptest. The returned handler includes
// HTTP-level middleware for request ID propagation.
func (a *Adapter) Handler() http.Handler {
	return httpRequestIDMiddleware(a.mux)
}

// httpRequestIDMiddleware assigns each request an ID: the client's
// X-Request-ID when one was sent, a freshly generated one otherwise. The
// ID is stored in the request context and echoed on the response, and the
// transport-level RequestID middleware reuses it downstream.
func httpRequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = transport.NewRequestID()
		}
		r = r.WithContext(transport.ContextWithRequestID(r.Context(), id))
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r)
	})
}

// decodeJSONBody enforces the JSON content type and body size cap, then
// decodes the request body into dst. On failure it writes the error
// response itself and returns false.
func (a *Adapter) decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	// Validate Content-Type.
	ct := r.Header.Get("Content-Type")
	if ct != "" && ct != "application/json" {
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("content_type", "Content-Type must be application/json"),
			http.StatusUnsupportedMediaType,
		)
		return false
	}

	// Limit body size.
	r.Body = http.MaxBytesReader(w, r.Body, a.config.MaxBodySize)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			transport.WriteErrorResponse(w,
				api.NewInvalidRequestError("body", fmt.Sprintf("request body too large (max %d bytes)", a.config.MaxBodySize)),
				http.StatusRequestEntityTooLarge,
			)
			return false
		}
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("body", "invalid JSON: "+err.Error()),
			http.StatusBadRequest,
		)
		return false
	}

	return true
}

// handleRunQuery handles POST /v1/queries.
func (a *Adapter) handleRunQuery(w http.ResponseWriter, r *http.Request) {
	var req api.QueryRequest
	if !a.decodeJSONBody(w, r, &req) {
		return
	}

	resp, err := a.runner.RunQuery(r.Context(), &req)
	if err != nil {
		var apiErr *api.APIError
		if !errors.As(err, &apiErr) {
			apiErr = api.NewServerError(err.Error())
		}
		transport.WriteAPIError(w, apiErr)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// handleCreateConversation handles POST /v1/conversations.
func (a *Adapter) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	if a.conversations == nil {
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("", "conversation creation is not available (no store configured)"),
			http.StatusNotImplemented,
		)
		return
	}

	var req api.CreateConversationRequest
	if !a.decodeJSONBody(w, r, &req) {
		return
	}

	conv, err := a.conversations.CreateConversation(r.Context(), &req)
	if err != nil {
		writeServiceError(w, err, "conversation could not be created")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(conv)
}

// handleGetConversation handles GET /v1/conversations/{id}.
func (a *Adapter) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	if a.conversations == nil {
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("", "conversation retrieval is not available (no store configured)"),
			http.StatusNotImplemented,
		)
		return
	}

	id := r.PathValue("id")
	if !api.ValidateConversationID(id) {
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("id", "malformed conversation ID"),
			http.StatusBadRequest,
		)
		return
	}

	conv, err := a.conversations.GetConversation(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "conversation "+id+" not found")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(conv)
}

// handleListConversations handles GET /v1/conversations.
func (a *Adapter) handleListConversations(w http.ResponseWriter, r *http.Request) {
	if a.conversations == nil {
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("", "conversation listing is not available (no store configured)"),
			http.StatusNotImplemented,
		)
		return
	}

	opts, optErr := parseListOptions(r)
	if optErr != nil {
		transport.WriteErrorResponse(w, optErr, http.StatusBadRequest)
		return
	}

	result, err := a.conversations.ListConversations(r.Context(), opts)
	if err != nil {
		writeServiceError(w, err, "conversations could not be listed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// handleDeleteConversation handles DELETE /v1/conversations/{id}.
func (a *Adapter) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	if a.conversations == nil {
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("", "conversation deletion is not available (no store configured)"),
			http.StatusNotImplemented,
		)
		return
	}

	id := r.PathValue("id")
	if !api.ValidateConversationID(id) {
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("id", "malformed conversation ID"),
			http.StatusBadRequest,
		)
		return
	}

	if err := a.conversations.DeleteConversation(r.Context(), id); err != nil {
		writeServiceError(w, err, "conversation "+id+" not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleListMessages handles GET /v1/conversations/{id}/messages.
func (a *Adapter) handleListMessages(w http.ResponseWriter, r *http.Request) {
	if a.conversations == nil {
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("", "message listing is not available (no store configured)"),
			http.StatusNotImplemented,
		)
		return
	}

	id := r.PathValue("id")
	if !api.ValidateConversationID(id) {
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("id", "malformed conversation ID"),
			http.StatusBadRequest,
		)
		return
	}

	opts, optErr := parseListOptions(r)
	if optErr != nil {
		transport.WriteErrorResponse(w, optErr, http.StatusBadRequest)
		return
	}

	result, err := a.conversations.ListMessages(r.Context(), id, opts)
	if err != nil {
		writeServiceError(w, err, "conversation "+id+" not found")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// handlePostMessage handles POST /v1/conversations/{id}/messages.
func (a *Adapter) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	if a.conversations == nil {
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("", "message posting is not available (no store configured)"),
			http.StatusNotImplemented,
		)
		return
	}

	id := r.PathValue("id")
	if !api.ValidateConversationID(id) {
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("id", "malformed conversation ID"),
			http.StatusBadRequest,
		)
		return
	}

	var req api.PostMessageRequest
	if !a.decodeJSONBody(w, r, &req) {
		return
	}

	resp, err := a.conversations.PostMessage(r.Context(), id, &req)
	if err != nil {
		writeServiceError(w, err, "conversation "+id+" not found")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// parseListOptions extracts pagination parameters from the query string.
func parseListOptions(r *http.Request) (transport.ListOptions, *api.APIError) {
	q := r.URL.Query()
	opts := transport.ListOptions{
		After:  q.Get("after"),
		Before: q.Get("before"),
		Member: q.Get("member"),
		Order:  q.Get("order"),
	}

	if opts.After != "" && opts.Before != "" {
		return opts, api.NewInvalidRequestError("after", "cannot use both 'after' and 'before' cursors")
	}

	if opts.Order != "" && opts.Order != "asc" && opts.Order != "desc" {
		return opts, api.NewInvalidRequestError("order", "order must be 'asc' or 'desc'")
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	if limitStr := q.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 {
			return opts, api.NewInvalidRequestError("limit", "limit must be a positive integer")
		}
		opts.Limit = limit
	}

	return opts, nil
}

// writeServiceError maps service and storage errors onto the wire format.
// Storage sentinels become not-found responses, APIErrors pass through,
// anything else becomes a server error.
func writeServiceError(w http.ResponseWriter, err error, notFoundMessage string) {
	if errors.Is(err, storage.ErrNotFound) {
		transport.WriteAPIError(w, api.NewNotFoundError(notFoundMessage))
		return
	}

	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		transport.WriteAPIError(w, apiErr)
		return
	}

	transport.WriteAPIError(w, api.NewServerError(err.Error()))
}
