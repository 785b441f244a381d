package transport

import (
	"context"

	"github.com/gremium-dev/gremium/pkg/api"
)

// QueryRunner handles the core one-shot council query.
// It is the primary handler contract, available in both stateless and
// stateful deployments. The implementation fans the request out to every
// requested member, waits for all of them to settle, and returns the
// complete result set.
type QueryRunner interface {
	RunQuery(ctx context.Context, req *api.QueryRequest) (*api.QueryResponse, error)
}

// QueryRunnerFunc is an adapter that allows using an ordinary function
// as a QueryRunner.
type QueryRunnerFunc func(ctx context.Context, req *api.QueryRequest) (*api.QueryResponse, error)

// RunQuery calls f(ctx, req).
func (f QueryRunnerFunc) RunQuery(ctx context.Context, req *api.QueryRequest) (*api.QueryResponse, error) {
	return f(ctx, req)
}

// ListOptions controls pagination, filtering, and ordering for list operations.
type ListOptions struct {
	After  string // Cursor: return items after this ID.
	Before string // Cursor: return items before this ID.
	Limit  int    // Maximum number of items to return (default 20, max 100).
	Member string // Filter conversations by roster membership (list only).
	Order  string // Sort order: "asc" or "desc" (default "desc").
}

// ConversationService handles stored council sessions. It is the contract
// between the HTTP adapter and the engine for all conversation endpoints,
// and is only available in deployments with a conversation store configured.
type ConversationService interface {
	// CreateConversation starts a new session with a pinned member roster.
	CreateConversation(ctx context.Context, req *api.CreateConversationRequest) (*api.Conversation, error)

	// GetConversation retrieves a conversation with its full message history.
	GetConversation(ctx context.Context, id string) (*api.Conversation, error)

	// ListConversations returns a paginated list of stored conversations.
	ListConversations(ctx context.Context, opts ListOptions) (*api.ConversationList, error)

	// ListMessages returns a paginated list of one conversation's turns.
	ListMessages(ctx context.Context, id string, opts ListOptions) (*api.MessageList, error)

	// PostMessage appends a user turn, runs one council round over the full
	// history, and appends the settled council turn.
	PostMessage(ctx context.Context, id string, req *api.PostMessageRequest) (*api.PostMessageResponse, error)

	// DeleteConversation soft-deletes a conversation by ID.
	DeleteConversation(ctx context.Context, id string) error
}

// ConversationStore handles persistence, retrieval, and deletion of stored
// conversations. It is the contract implemented by the storage adapters in
// pkg/storage; the engine composes it with the council to provide
// ConversationService.
type ConversationStore interface {
	// CreateConversation persists a new conversation. Returns
	// storage.ErrConflict if the ID already exists.
	CreateConversation(ctx context.Context, conv *api.Conversation) error

	// GetConversation retrieves a conversation by ID. Returns
	// storage.ErrNotFound if the conversation does not exist or has been
	// deleted (soft delete).
	GetConversation(ctx context.Context, id string) (*api.Conversation, error)

	// AppendMessages appends turns to a conversation's history and advances
	// its updated_at timestamp. Returns storage.ErrNotFound if the
	// conversation does not exist.
	AppendMessages(ctx context.Context, id string, msgs []api.ConversationMessage) error

	// DeleteConversation soft-deletes a conversation by ID.
	DeleteConversation(ctx context.Context, id string) error

	// ListConversations returns a paginated list of stored conversations.
	// Results are filtered by tenant (when present in context) and
	// optionally by roster membership. Supports cursor-based pagination
	// and ordering.
	ListConversations(ctx context.Context, opts ListOptions) (*api.ConversationList, error)

	// ListMessages returns a paginated list of one conversation's turns.
	// Returns storage.ErrNotFound if the conversation does not exist.
	ListMessages(ctx context.Context, id string, opts ListOptions) (*api.MessageList, error)

	// HealthCheck verifies the store connection is functional.
	HealthCheck(ctx context.Context) error

	// Close releases database connections and resources.
	Close() error
}
