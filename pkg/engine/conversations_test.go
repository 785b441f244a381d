package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/gremium-dev/gremium/pkg/api"
	"github.com/gremium-dev/gremium/pkg/storage"
	"github.com/gremium-dev/gremium/pkg/storage/memory"
	"github.com/gremium-dev/gremium/pkg/transport"
)

// newStatefulEngine wires a scripted panel to a real in-memory store.
func newStatefulEngine(t *testing.T, panel Panel, cfg Config) *Engine {
	t.Helper()
	eng, err := New(panel, memory.New(0), cfg)
	if err != nil {
		t.Fatalf("creating engine: %v", err)
	}
	return eng
}

func TestCreateConversation(t *testing.T) {
	eng := newStatefulEngine(t, &scriptedPanel{}, Config{
		DefaultChairman: "gemini/gemini-1.5-pro",
	})

	conv, err := eng.CreateConversation(context.Background(), &api.CreateConversationRequest{
		Title:   "release planning",
		Members: []string{"openai/gpt-4o", "anthropic/claude-3-5-sonnet-20241022"},
	})
	if err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}

	if !api.ValidateConversationID(conv.ID) {
		t.Errorf("conversation ID %q is not well-formed", conv.ID)
	}
	if conv.Title != "release planning" {
		t.Errorf("title = %q, unexpected", conv.Title)
	}
	if conv.Chairman != "gemini/gemini-1.5-pro" {
		t.Errorf("chairman = %q, want the configured default", conv.Chairman)
	}
	if len(conv.Messages) != 0 {
		t.Errorf("new conversation has %d messages, want 0", len(conv.Messages))
	}

	// Persisted and retrievable.
	got, err := eng.GetConversation(context.Background(), conv.ID)
	if err != nil {
		t.Fatalf("GetConversation failed: %v", err)
	}
	if got.ID != conv.ID || len(got.Members) != 2 {
		t.Errorf("stored conversation = %+v, unexpected", got)
	}
}

func TestCreateConversation_DefaultRoster(t *testing.T) {
	eng := newStatefulEngine(t, &scriptedPanel{}, Config{
		DefaultMembers: []string{"openai/gpt-4o"},
	})

	conv, err := eng.CreateConversation(context.Background(), &api.CreateConversationRequest{})
	if err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}
	if len(conv.Members) != 1 || conv.Members[0] != "openai/gpt-4o" {
		t.Errorf("members = %v, want default roster", conv.Members)
	}
}

func TestCreateConversation_NoRosterNoDefault(t *testing.T) {
	eng := newStatefulEngine(t, &scriptedPanel{}, Config{})

	_, err := eng.CreateConversation(context.Background(), &api.CreateConversationRequest{})

	var apiErr *api.APIError
	if !errors.As(err, &apiErr) || apiErr.Param != "members" {
		t.Fatalf("err = %v, want invalid_request on members", err)
	}
}

func TestConversationOps_NoStore(t *testing.T) {
	eng := newEngine(t, &scriptedPanel{}, Config{DefaultMembers: []string{"m/a"}})
	ctx := context.Background()

	if _, err := eng.CreateConversation(ctx, &api.CreateConversationRequest{}); err == nil {
		t.Error("CreateConversation: expected error without store")
	}
	if _, err := eng.GetConversation(ctx, api.NewConversationID()); err == nil {
		t.Error("GetConversation: expected error without store")
	}
	if _, err := eng.ListConversations(ctx, transport.ListOptions{}); err == nil {
		t.Error("ListConversations: expected error without store")
	}
	if err := eng.DeleteConversation(ctx, api.NewConversationID()); err == nil {
		t.Error("DeleteConversation: expected error without store")
	}
	if _, err := eng.PostMessage(ctx, api.NewConversationID(), &api.PostMessageRequest{Content: "hi"}); err == nil {
		t.Error("PostMessage: expected error without store")
	}
}

func TestPostMessage(t *testing.T) {
	panel := &scriptedPanel{replies: map[string]*api.MemberReply{
		"openai/gpt-4o": reply("blue"),
		// second member absent
	}}
	eng := newStatefulEngine(t, panel, Config{})
	ctx := context.Background()

	conv, err := eng.CreateConversation(ctx, &api.CreateConversationRequest{
		Members: []string{"openai/gpt-4o", "openrouter/x-ai/grok-2"},
	})
	if err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}

	resp, err := eng.PostMessage(ctx, conv.ID, &api.PostMessageRequest{
		Content: "favorite color?",
	})
	if err != nil {
		t.Fatalf("PostMessage failed: %v", err)
	}

	if resp.ConversationID != conv.ID {
		t.Errorf("conversation ID = %q, want %q", resp.ConversationID, conv.ID)
	}
	if resp.UserMessage.Role != api.RoleUser || resp.UserMessage.Content != "favorite color?" {
		t.Errorf("user message = %+v, unexpected", resp.UserMessage)
	}
	if !api.ValidateMessageID(resp.UserMessage.ID) || !api.ValidateMessageID(resp.CouncilMessage.ID) {
		t.Errorf("message IDs %q / %q are not well-formed", resp.UserMessage.ID, resp.CouncilMessage.ID)
	}
	if resp.CouncilMessage.Role != api.RoleCouncil {
		t.Errorf("council message role = %q, want %q", resp.CouncilMessage.Role, api.RoleCouncil)
	}
	if len(resp.CouncilMessage.Results) != 2 {
		t.Fatalf("len(Results) = %d, want 2 (one slot per pinned member)", len(resp.CouncilMessage.Results))
	}
	if got := resp.CouncilMessage.Results["openai/gpt-4o"]; got == nil || *got.Content != "blue" {
		t.Errorf("answered member = %+v, unexpected", got)
	}
	if got, ok := resp.CouncilMessage.Results["openrouter/x-ai/grok-2"]; !ok || got != nil {
		t.Errorf("absent member = %v (present=%v), want present nil", got, ok)
	}

	// Both turns persisted.
	stored, err := eng.GetConversation(ctx, conv.ID)
	if err != nil {
		t.Fatalf("GetConversation failed: %v", err)
	}
	if len(stored.Messages) != 2 {
		t.Fatalf("stored %d messages, want 2", len(stored.Messages))
	}
	if stored.Messages[0].Role != api.RoleUser || stored.Messages[1].Role != api.RoleCouncil {
		t.Errorf("stored roles = %q, %q; want user, council", stored.Messages[0].Role, stored.Messages[1].Role)
	}
}

func TestPostMessage_HistoryCarriedForward(t *testing.T) {
	panel := &scriptedPanel{replies: map[string]*api.MemberReply{
		"openai/gpt-4o": reply("first answer"),
	}}
	eng := newStatefulEngine(t, panel, Config{})
	ctx := context.Background()

	conv, err := eng.CreateConversation(ctx, &api.CreateConversationRequest{
		Members: []string{"openai/gpt-4o"},
	})
	if err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}

	if _, err := eng.PostMessage(ctx, conv.ID, &api.PostMessageRequest{Content: "first question"}); err != nil {
		t.Fatalf("first PostMessage failed: %v", err)
	}
	if _, err := eng.PostMessage(ctx, conv.ID, &api.PostMessageRequest{Content: "second question"}); err != nil {
		t.Fatalf("second PostMessage failed: %v", err)
	}

	// The second round must see the whole transcript: the first question,
	// the council's first answer, and the new question.
	got := panel.lastMessages
	if len(got) != 3 {
		t.Fatalf("second round saw %d messages, want 3: %+v", len(got), got)
	}
	if got[0].Role != api.RoleUser || got[0].Content != "first question" {
		t.Errorf("history[0] = %+v, unexpected", got[0])
	}
	if got[1].Role != api.RoleAssistant || got[1].Content != "first answer" {
		t.Errorf("history[1] = %+v, want the council's first answer as assistant", got[1])
	}
	if got[2].Role != api.RoleUser || got[2].Content != "second question" {
		t.Errorf("history[2] = %+v, unexpected", got[2])
	}
}

func TestPostMessage_Synthesize(t *testing.T) {
	panel := &scriptedPanel{
		replies:    map[string]*api.MemberReply{"openai/gpt-4o": reply("42")},
		synthReply: reply("The answer is 42."),
	}
	eng := newStatefulEngine(t, panel, Config{})
	ctx := context.Background()

	conv, err := eng.CreateConversation(ctx, &api.CreateConversationRequest{
		Members:  []string{"openai/gpt-4o"},
		Chairman: "gemini/gemini-1.5-pro",
	})
	if err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}

	resp, err := eng.PostMessage(ctx, conv.ID, &api.PostMessageRequest{
		Content:    "meaning of life?",
		Synthesize: true,
	})
	if err != nil {
		t.Fatalf("PostMessage failed: %v", err)
	}

	if resp.CouncilMessage.Synthesis == nil {
		t.Fatal("council message missing synthesis")
	}
	if resp.CouncilMessage.Synthesis.Member != "gemini/gemini-1.5-pro" {
		t.Errorf("synthesis member = %q, want the conversation chairman", resp.CouncilMessage.Synthesis.Member)
	}
	if panel.lastQuestion != "meaning of life?" {
		t.Errorf("chairman question = %q, want the posted content", panel.lastQuestion)
	}

	// Synthesis persisted with the turn.
	stored, _ := eng.GetConversation(ctx, conv.ID)
	if stored.Messages[1].Synthesis == nil {
		t.Error("stored council turn missing synthesis")
	}
}

func TestPostMessage_NotFound(t *testing.T) {
	eng := newStatefulEngine(t, &scriptedPanel{}, Config{})

	_, err := eng.PostMessage(context.Background(), api.NewConversationID(), &api.PostMessageRequest{
		Content: "anyone?",
	})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err = %v, want storage.ErrNotFound", err)
	}
}

func TestPostMessage_EmptyContent(t *testing.T) {
	eng := newStatefulEngine(t, &scriptedPanel{}, Config{})

	_, err := eng.PostMessage(context.Background(), api.NewConversationID(), &api.PostMessageRequest{
		Content: "   ",
	})

	var apiErr *api.APIError
	if !errors.As(err, &apiErr) || apiErr.Param != "content" {
		t.Fatalf("err = %v, want invalid_request on content", err)
	}
}

func TestDeleteConversation(t *testing.T) {
	eng := newStatefulEngine(t, &scriptedPanel{}, Config{DefaultMembers: []string{"m/a"}})
	ctx := context.Background()

	conv, err := eng.CreateConversation(ctx, &api.CreateConversationRequest{})
	if err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}

	if err := eng.DeleteConversation(ctx, conv.ID); err != nil {
		t.Fatalf("DeleteConversation failed: %v", err)
	}
	if _, err := eng.GetConversation(ctx, conv.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("get after delete: err = %v, want storage.ErrNotFound", err)
	}
}

func TestListConversations_PassThrough(t *testing.T) {
	eng := newStatefulEngine(t, &scriptedPanel{}, Config{DefaultMembers: []string{"m/a"}})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := eng.CreateConversation(ctx, &api.CreateConversationRequest{}); err != nil {
			t.Fatalf("CreateConversation failed: %v", err)
		}
	}

	list, err := eng.ListConversations(ctx, transport.ListOptions{Limit: 2})
	if err != nil {
		t.Fatalf("ListConversations failed: %v", err)
	}
	if len(list.Data) != 2 {
		t.Errorf("len(Data) = %d, want 2", len(list.Data))
	}
	if !list.HasMore {
		t.Error("HasMore = false, want true")
	}
}
