package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for database access.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	// Migrate creates the schema when it does not exist.
	Migrate(ctx context.Context) error

	CreateChatConversation(ctx context.Context, create *ChatConversation) (*ChatConversation, error)
	ListChatConversations(ctx context.Context, find *FindChatConversation) ([]*ChatConversation, error)
	UpdateChatConversation(ctx context.Context, update *UpdateChatConversation) (*ChatConversation, error)
	DeleteChatConversation(ctx context.Context, delete *DeleteChatConversation) error

	CreateChatMessage(ctx context.Context, create *ChatMessage) (*ChatMessage, error)
	ListChatMessages(ctx context.Context, find *FindChatMessage) ([]*ChatMessage, error)
	SearchChatMessages(ctx context.Context, search *SearchChatMessage) ([]*ChatMessageHit, error)
}
