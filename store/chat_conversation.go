package store

// ChatConversation is a chat thread owned by one session.
type ChatConversation struct {
	UID       string
	SessionID string
	Title     string
	Folder    string
	CreatedTs int64
	UpdatedTs int64
	ID        int32
	Pinned    bool
}

type FindChatConversation struct {
	ID        *int32
	UID       *string
	SessionID *string
	Pinned    *bool
}

type UpdateChatConversation struct {
	Title     *string
	Folder    *string
	Pinned    *bool
	UpdatedTs *int64
	ID        int32
}

type DeleteChatConversation struct {
	ID int32
}
