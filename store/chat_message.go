package store

// Role of a chat message. Immutable once created.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one message inside a conversation. Messages are written
// once per turn and never updated; deletion happens only by cascading
// conversation deletion.
type ChatMessage struct {
	UID              string
	Content          string
	Role             Role
	ModerationReason string
	CreatedTs        int64
	ID               int32
	ConversationID   int32
	TokensUsed       int32
	WasFlagged       bool
}

type FindChatMessage struct {
	ID             *int32
	ConversationID *int32
	// OrderDesc returns newest-first when true; default is chronological.
	OrderDesc bool
	Limit     *int
}

// SearchChatMessage matches message content within one session's
// conversations, newest first.
type SearchChatMessage struct {
	SessionID string
	Query     string
	Limit     int
}

// ChatMessageHit is a search result with its conversation title.
type ChatMessageHit struct {
	ChatMessage
	ConversationTitle string
}
