package store

import (
	"context"

	"github.com/inspirlabs/tutorchat/internal/profile"
)

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	return s.driver.Close()
}

func (s *Store) Migrate(ctx context.Context) error {
	return s.driver.Migrate(ctx)
}

func (s *Store) CreateChatConversation(ctx context.Context, create *ChatConversation) (*ChatConversation, error) {
	return s.driver.CreateChatConversation(ctx, create)
}

func (s *Store) ListChatConversations(ctx context.Context, find *FindChatConversation) ([]*ChatConversation, error) {
	return s.driver.ListChatConversations(ctx, find)
}

func (s *Store) UpdateChatConversation(ctx context.Context, update *UpdateChatConversation) (*ChatConversation, error) {
	return s.driver.UpdateChatConversation(ctx, update)
}

func (s *Store) DeleteChatConversation(ctx context.Context, delete *DeleteChatConversation) error {
	return s.driver.DeleteChatConversation(ctx, delete)
}

func (s *Store) CreateChatMessage(ctx context.Context, create *ChatMessage) (*ChatMessage, error) {
	return s.driver.CreateChatMessage(ctx, create)
}

func (s *Store) ListChatMessages(ctx context.Context, find *FindChatMessage) ([]*ChatMessage, error) {
	return s.driver.ListChatMessages(ctx, find)
}

func (s *Store) SearchChatMessages(ctx context.Context, search *SearchChatMessage) ([]*ChatMessageHit, error) {
	return s.driver.SearchChatMessages(ctx, search)
}
