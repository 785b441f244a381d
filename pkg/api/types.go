package api

// ---------------------------------------------------------------------------
// Messages
// ---------------------------------------------------------------------------

// Role identifies the sender of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"

	// RoleCouncil marks a stored conversation turn that holds the
	// panel's collected replies rather than a single utterance.
	RoleCouncil Role = "council"
)

// Message is a single role/content turn. The same ordered message list is
// sent verbatim to every queried member.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ReasoningEffort is an opaque hint forwarded to providers that support
// configurable reasoning depth. The empty value means no hint: the field is
// omitted from outbound requests entirely. Gremium never interprets or
// validates the value beyond the request boundary.
type ReasoningEffort string

const (
	ReasoningEffortNone   ReasoningEffort = ""
	ReasoningEffortLow    ReasoningEffort = "low"
	ReasoningEffortMedium ReasoningEffort = "medium"
	ReasoningEffortHigh   ReasoningEffort = "high"
)

// ---------------------------------------------------------------------------
// Member replies
// ---------------------------------------------------------------------------

// MemberReply is one council member's answer to a query.
//
// Content is nullable: some providers legitimately return a completion with
// no text (e.g., a filtered or length-capped reply), which is still an
// answer, not a failure. Reasoning carries the provider's raw reasoning
// trace when one was supplied; Thinking carries discrete thinking segments
// for providers that emit them as structured blocks. Both side channels are
// omitted when the provider produced none — never present as empty strings
// or empty arrays.
type MemberReply struct {
	Content   *string  `json:"content"`
	Reasoning *string  `json:"reasoning,omitempty"`
	Thinking  []string `json:"thinking,omitempty"`
}

// Synthesis is the chairman's post-panel summary: the member that produced
// it and its reply. Reply is null when the chairman itself failed to answer.
type Synthesis struct {
	Member string       `json:"member"`
	Reply  *MemberReply `json:"reply"`
}

// ---------------------------------------------------------------------------
// Query envelopes
// ---------------------------------------------------------------------------

// QueryRequest is the body of POST /v1/queries: ask the council once,
// without creating a conversation.
//
// Members defaults to the configured roster when empty. Chairman defaults
// to the configured chairman and is only consulted when Synthesize is set.
type QueryRequest struct {
	Messages        []Message       `json:"messages"`
	Members         []string        `json:"members,omitempty"`
	ReasoningEffort ReasoningEffort `json:"reasoning_effort,omitempty"`
	Synthesize      bool            `json:"synthesize,omitempty"`
	Chairman        string          `json:"chairman,omitempty"`
}

// QueryResponse carries one settled council round. Results always holds
// exactly one entry per queried member; a member that failed maps to null.
type QueryResponse struct {
	ID              string                  `json:"id"`
	Object          string                  `json:"object"`
	CreatedAt       int64                   `json:"created_at"`
	Members         []string                `json:"members"`
	ReasoningEffort ReasoningEffort         `json:"reasoning_effort,omitempty"`
	Results         map[string]*MemberReply `json:"results"`
	Synthesis       *Synthesis              `json:"synthesis,omitempty"`
}

// ObjectQuery is the Object value of a QueryResponse.
const ObjectQuery = "council.query"

// ---------------------------------------------------------------------------
// Conversations
// ---------------------------------------------------------------------------

// Object values for stored records.
const (
	ObjectConversation = "conversation"
	ObjectList         = "list"
)

// ConversationMessage is one stored turn. User turns carry Content; council
// turns carry Results (and optionally Synthesis) under RoleCouncil.
type ConversationMessage struct {
	ID              string                  `json:"id"`
	Role            Role                    `json:"role"`
	Content         string                  `json:"content,omitempty"`
	Results         map[string]*MemberReply `json:"results,omitempty"`
	Synthesis       *Synthesis              `json:"synthesis,omitempty"`
	ReasoningEffort ReasoningEffort         `json:"reasoning_effort,omitempty"`
	CreatedAt       int64                   `json:"created_at"`
}

// Conversation is a stored council session: a pinned member roster and the
// alternating user/council message history.
type Conversation struct {
	ID        string                `json:"id"`
	Object    string                `json:"object"`
	Title     string                `json:"title,omitempty"`
	Members   []string              `json:"members"`
	Chairman  string                `json:"chairman,omitempty"`
	Messages  []ConversationMessage `json:"messages"`
	Metadata  map[string]string     `json:"metadata,omitempty"`
	CreatedAt int64                 `json:"created_at"`
	UpdatedAt int64                 `json:"updated_at"`
}

// CreateConversationRequest is the body of POST /v1/conversations.
// Members and Chairman default to the configured roster when empty.
type CreateConversationRequest struct {
	Title    string            `json:"title,omitempty"`
	Members  []string          `json:"members,omitempty"`
	Chairman string            `json:"chairman,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// PostMessageRequest is the body of POST /v1/conversations/{id}/messages:
// append a user turn and run one council round over the full history.
type PostMessageRequest struct {
	Content         string          `json:"content"`
	ReasoningEffort ReasoningEffort `json:"reasoning_effort,omitempty"`
	Synthesize      bool            `json:"synthesize,omitempty"`
}

// PostMessageResponse returns the two turns appended by a message post:
// the stored user turn and the settled council turn.
type PostMessageResponse struct {
	ConversationID string              `json:"conversation_id"`
	UserMessage    ConversationMessage `json:"user_message"`
	CouncilMessage ConversationMessage `json:"council_message"`
}

// ConversationList is a cursor page of conversations, newest first.
type ConversationList struct {
	Object  string         `json:"object"`
	Data    []Conversation `json:"data"`
	FirstID string         `json:"first_id,omitempty"`
	LastID  string         `json:"last_id,omitempty"`
	HasMore bool           `json:"has_more"`
}

// MessageList is a cursor page of one conversation's stored turns, in
// history order.
type MessageList struct {
	Object  string                `json:"object"`
	Data    []ConversationMessage `json:"data"`
	FirstID string                `json:"first_id,omitempty"`
	LastID  string                `json:"last_id,omitempty"`
	HasMore bool                  `json:"has_more"`
}
