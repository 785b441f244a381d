package engine

import (
	"context"
	"time"

	"github.com/gremium-dev/gremium/pkg/api"
	"github.com/gremium-dev/gremium/pkg/transport"
)

// errNoStore is returned by conversation operations in stateless mode. The
// HTTP adapter answers 501 before reaching the engine when no service is
// wired, so this surfaces only on direct engine use.
func errNoStore() *api.APIError {
	return api.NewServerError("no conversation store configured")
}

// CreateConversation pins a member roster (and optional chairman) under a
// fresh conversation ID.
func (e *Engine) CreateConversation(ctx context.Context, req *api.CreateConversationRequest) (*api.Conversation, error) {
	if e.store == nil {
		return nil, errNoStore()
	}

	members := req.Members
	if len(members) == 0 {
		members = e.cfg.DefaultMembers
	}
	if len(members) == 0 {
		return nil, api.NewInvalidRequestError("members", "members is required (no default roster configured)")
	}
	if apiErr := api.ValidateMembers(members, e.cfg.Validation); apiErr != nil {
		return nil, apiErr
	}
	if len(req.Title) > 256 {
		return nil, api.NewInvalidRequestError("title", "title exceeds maximum of 256 characters")
	}

	chairman := req.Chairman
	if chairman == "" {
		chairman = e.cfg.DefaultChairman
	}

	now := time.Now().Unix()
	conv := &api.Conversation{
		ID:        api.NewConversationID(),
		Object:    api.ObjectConversation,
		Title:     req.Title,
		Members:   append([]string(nil), members...),
		Chairman:  chairman,
		Messages:  []api.ConversationMessage{},
		Metadata:  req.Metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := e.store.CreateConversation(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

// GetConversation returns a stored conversation with its full history.
func (e *Engine) GetConversation(ctx context.Context, id string) (*api.Conversation, error) {
	if e.store == nil {
		return nil, errNoStore()
	}
	return e.store.GetConversation(ctx, id)
}

// ListConversations returns a cursor page of stored conversations.
func (e *Engine) ListConversations(ctx context.Context, opts transport.ListOptions) (*api.ConversationList, error) {
	if e.store == nil {
		return nil, errNoStore()
	}
	return e.store.ListConversations(ctx, opts)
}

// ListMessages returns a cursor page of one conversation's turns.
func (e *Engine) ListMessages(ctx context.Context, id string, opts transport.ListOptions) (*api.MessageList, error) {
	if e.store == nil {
		return nil, errNoStore()
	}
	return e.store.ListMessages(ctx, id, opts)
}

// DeleteConversation soft-deletes a stored conversation.
func (e *Engine) DeleteConversation(ctx context.Context, id string) error {
	if e.store == nil {
		return errNoStore()
	}
	return e.store.DeleteConversation(ctx, id)
}

// PostMessage appends a user turn, runs one council round over the full
// history against the conversation's pinned roster, and persists the
// settled council turn alongside the user turn.
func (e *Engine) PostMessage(ctx context.Context, id string, req *api.PostMessageRequest) (*api.PostMessageResponse, error) {
	if e.store == nil {
		return nil, errNoStore()
	}
	if apiErr := api.ValidatePostMessageRequest(req, e.cfg.Validation); apiErr != nil {
		return nil, apiErr
	}

	conv, err := e.store.GetConversation(ctx, id)
	if err != nil {
		return nil, err
	}

	effort := req.ReasoningEffort
	if effort == api.ReasoningEffortNone {
		effort = e.cfg.DefaultReasoningEffort
	}

	messages := append(historyMessages(conv), api.Message{Role: api.RoleUser, Content: req.Content})

	results, err := e.panel.QueryAll(ctx, conv.Members, messages, effort)
	if err != nil {
		return nil, err
	}

	now := time.Now().Unix()
	userMsg := api.ConversationMessage{
		ID:        api.NewMessageID(),
		Role:      api.RoleUser,
		Content:   req.Content,
		CreatedAt: now,
	}
	councilMsg := api.ConversationMessage{
		ID:              api.NewMessageID(),
		Role:            api.RoleCouncil,
		Results:         flattenResults(conv.Members, results),
		ReasoningEffort: effort,
		CreatedAt:       now,
	}

	if req.Synthesize {
		synthesis, apiErr := e.synthesize(ctx, conv.Chairman, req.Content, conv.Members, results)
		if apiErr != nil {
			return nil, apiErr
		}
		councilMsg.Synthesis = synthesis
	}

	if err := e.store.AppendMessages(ctx, id, []api.ConversationMessage{userMsg, councilMsg}); err != nil {
		return nil, err
	}

	return &api.PostMessageResponse{
		ConversationID: id,
		UserMessage:    userMsg,
		CouncilMessage: councilMsg,
	}, nil
}
