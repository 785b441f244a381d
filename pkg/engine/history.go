package engine

import "github.com/gremium-dev/gremium/pkg/api"

// historyMessages flattens a conversation's stored turns into the ordered
// message list sent to every member on the next round.
//
// User turns map to user messages. A council turn maps to a single
// assistant message carrying the synthesis reply when one exists, else the
// first answered reply in roster order; a turn where nothing answered is
// dropped from the history. Every member sees the same shared transcript
// rather than a private per-member thread.
func historyMessages(conv *api.Conversation) []api.Message {
	messages := make([]api.Message, 0, len(conv.Messages))
	for _, turn := range conv.Messages {
		if msg := turnToMessage(conv.Members, turn); msg != nil {
			messages = append(messages, *msg)
		}
	}
	return messages
}

// turnToMessage converts one stored turn into an outbound message.
// Returns nil for turns that should be skipped.
func turnToMessage(members []string, turn api.ConversationMessage) *api.Message {
	switch turn.Role {
	case api.RoleUser, api.RoleSystem:
		return &api.Message{Role: turn.Role, Content: turn.Content}

	case api.RoleCouncil:
		if content := councilTurnContent(members, turn); content != "" {
			return &api.Message{Role: api.RoleAssistant, Content: content}
		}
		return nil

	case api.RoleAssistant:
		return &api.Message{Role: api.RoleAssistant, Content: turn.Content}

	default:
		return nil
	}
}

// councilTurnContent picks the representative text of a council turn: the
// synthesis if the chairman answered with text, else the first answered
// reply with text in roster order.
func councilTurnContent(members []string, turn api.ConversationMessage) string {
	if turn.Synthesis != nil && turn.Synthesis.Reply != nil && turn.Synthesis.Reply.Content != nil {
		return *turn.Synthesis.Reply.Content
	}
	for _, m := range members {
		if reply := turn.Results[m]; reply != nil && reply.Content != nil {
			return *reply.Content
		}
	}
	return ""
}

// lastUserContent returns the content of the latest user message, falling
// back to the last message when no user turn exists. Used as the question
// shown to the chairman.
func lastUserContent(messages []api.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == api.RoleUser {
			return messages[i].Content
		}
	}
	if len(messages) > 0 {
		return messages[len(messages)-1].Content
	}
	return ""
}
