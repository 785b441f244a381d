package api

import (
	"fmt"
	"strings"
)

// ValidationConfig holds configurable limits for request validation.
type ValidationConfig struct {
	MaxMessages    int
	MaxContentSize int
	MaxMembers     int
}

// DefaultValidationConfig returns a ValidationConfig with sensible defaults.
func DefaultValidationConfig() ValidationConfig {
	return ValidationConfig{
		MaxMessages:    1000,
		MaxContentSize: 1 << 20, // 1MB per message
		MaxMembers:     32,
	}
}

// ValidateMessages checks an ordered message list for structural validity.
// It returns an *APIError describing the first failure, or nil.
func ValidateMessages(messages []Message, cfg ValidationConfig) *APIError {
	if len(messages) == 0 {
		return NewInvalidRequestError("messages", "messages must contain at least one entry")
	}
	if cfg.MaxMessages > 0 && len(messages) > cfg.MaxMessages {
		return NewInvalidRequestError("messages",
			fmt.Sprintf("messages exceeds maximum of %d entries", cfg.MaxMessages))
	}
	for i, msg := range messages {
		switch msg.Role {
		case RoleSystem, RoleUser, RoleAssistant:
		case "":
			return NewInvalidRequestError(
				fmt.Sprintf("messages[%d].role", i), "role is required")
		default:
			return NewInvalidRequestError(
				fmt.Sprintf("messages[%d].role", i),
				fmt.Sprintf("invalid role %q: must be 'system', 'user', or 'assistant'", msg.Role))
		}
		if cfg.MaxContentSize > 0 && len(msg.Content) > cfg.MaxContentSize {
			return NewInvalidRequestError(
				fmt.Sprintf("messages[%d].content", i),
				fmt.Sprintf("content exceeds maximum of %d bytes", cfg.MaxContentSize))
		}
	}
	return nil
}

// ValidateMembers checks a member roster: every ID non-blank, no duplicates.
// Member ID format beyond that is the provider layer's concern; an ID no
// transport can resolve fails at query time, not here.
func ValidateMembers(members []string, cfg ValidationConfig) *APIError {
	if cfg.MaxMembers > 0 && len(members) > cfg.MaxMembers {
		return NewInvalidRequestError("members",
			fmt.Sprintf("members exceeds maximum of %d entries", cfg.MaxMembers))
	}
	seen := make(map[string]bool, len(members))
	for i, m := range members {
		if strings.TrimSpace(m) == "" {
			return NewInvalidRequestError(
				fmt.Sprintf("members[%d]", i), "member ID must not be blank")
		}
		if seen[m] {
			return NewInvalidRequestError("members",
				fmt.Sprintf("duplicate member ID %q", m))
		}
		seen[m] = true
	}
	return nil
}

// ValidateQueryRequest checks a QueryRequest for validity.
func ValidateQueryRequest(req *QueryRequest, cfg ValidationConfig) *APIError {
	if err := ValidateMessages(req.Messages, cfg); err != nil {
		return err
	}
	if err := ValidateMembers(req.Members, cfg); err != nil {
		return err
	}
	if req.Chairman != "" && !req.Synthesize {
		return NewInvalidRequestError("chairman",
			"chairman requires synthesize to be set")
	}
	return nil
}

// ValidateCreateConversationRequest checks a CreateConversationRequest.
func ValidateCreateConversationRequest(req *CreateConversationRequest, cfg ValidationConfig) *APIError {
	if err := ValidateMembers(req.Members, cfg); err != nil {
		return err
	}
	if len(req.Title) > 256 {
		return NewInvalidRequestError("title", "title exceeds maximum of 256 characters")
	}
	return nil
}

// ValidatePostMessageRequest checks a PostMessageRequest.
func ValidatePostMessageRequest(req *PostMessageRequest, cfg ValidationConfig) *APIError {
	if strings.TrimSpace(req.Content) == "" {
		return NewInvalidRequestError("content", "content must not be empty")
	}
	if cfg.MaxContentSize > 0 && len(req.Content) > cfg.MaxContentSize {
		return NewInvalidRequestError("content",
			fmt.Sprintf("content exceeds maximum of %d bytes", cfg.MaxContentSize))
	}
	return nil
}
