package v1

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/lithammer/shortuuid/v4"

	"github.com/inspirlabs/tutorchat/store"
)

// MaxSearchLimit is the maximum number of search hits returned per request.
const MaxSearchLimit = 50

// Conversation is the wire shape of a chat conversation.
type Conversation struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Folder    string `json:"folder"`
	Pinned    bool   `json:"pinned"`
	CreatedTs int64  `json:"createdTs"`
	UpdatedTs int64  `json:"updatedTs"`
}

// Message is the wire shape of a chat message.
type Message struct {
	ID               string `json:"id"`
	Role             string `json:"role"`
	Content          string `json:"content"`
	TokensUsed       int32  `json:"tokensUsed"`
	WasFlagged       bool   `json:"wasFlagged"`
	ModerationReason string `json:"moderationReason,omitempty"`
	CreatedTs        int64  `json:"createdTs"`
}

// SearchHit is one search result with its conversation title.
type SearchHit struct {
	Message
	ConversationTitle string `json:"conversationTitle"`
}

type createConversationRequest struct {
	Title  string `json:"title"`
	Folder string `json:"folder"`
}

type updateConversationRequest struct {
	Title  *string `json:"title"`
	Folder *string `json:"folder"`
	Pinned *bool   `json:"pinned"`
}

// CreateConversation starts a new conversation for the current session.
func (s *APIV1Service) CreateConversation(c echo.Context) error {
	ctx := c.Request().Context()
	sessionID := currentSessionID(c)

	req := createConversationRequest{}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if req.Title == "" {
		req.Title = "New Chat"
	}
	if req.Folder == "" {
		req.Folder = "general"
	}

	now := time.Now().Unix()
	conversation, err := s.Store.CreateChatConversation(ctx, &store.ChatConversation{
		UID:       shortuuid.New(),
		SessionID: sessionID,
		Title:     req.Title,
		Folder:    req.Folder,
		CreatedTs: now,
		UpdatedTs: now,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create conversation")
	}

	return c.JSON(http.StatusCreated, convertConversationFromStore(conversation))
}

// ListConversations returns all conversations owned by the current session,
// most recently updated first.
func (s *APIV1Service) ListConversations(c echo.Context) error {
	ctx := c.Request().Context()
	sessionID := currentSessionID(c)

	conversations, err := s.Store.ListChatConversations(ctx, &store.FindChatConversation{
		SessionID: &sessionID,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list conversations")
	}

	response := make([]*Conversation, 0, len(conversations))
	for _, conversation := range conversations {
		response = append(response, convertConversationFromStore(conversation))
	}
	return c.JSON(http.StatusOK, response)
}

// GetConversation returns one conversation owned by the current session.
func (s *APIV1Service) GetConversation(c echo.Context) error {
	conversation, err := s.findOwnedConversation(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, convertConversationFromStore(conversation))
}

// UpdateConversation changes the title, folder, or pin state of a
// conversation owned by the current session.
func (s *APIV1Service) UpdateConversation(c echo.Context) error {
	ctx := c.Request().Context()

	conversation, err := s.findOwnedConversation(c)
	if err != nil {
		return err
	}

	req := updateConversationRequest{}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if req.Title == nil && req.Folder == nil && req.Pinned == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "no fields to update")
	}

	now := time.Now().Unix()
	updated, err := s.Store.UpdateChatConversation(ctx, &store.UpdateChatConversation{
		ID:        conversation.ID,
		Title:     req.Title,
		Folder:    req.Folder,
		Pinned:    req.Pinned,
		UpdatedTs: &now,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to update conversation")
	}

	return c.JSON(http.StatusOK, convertConversationFromStore(updated))
}

// DeleteConversation removes a conversation and all of its messages.
func (s *APIV1Service) DeleteConversation(c echo.Context) error {
	ctx := c.Request().Context()

	conversation, err := s.findOwnedConversation(c)
	if err != nil {
		return err
	}

	if err := s.Store.DeleteChatConversation(ctx, &store.DeleteChatConversation{
		ID: conversation.ID,
	}); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to delete conversation")
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Conversation deleted successfully"})
}

// ListMessages returns the full message history of a conversation in
// chronological order.
func (s *APIV1Service) ListMessages(c echo.Context) error {
	ctx := c.Request().Context()

	conversation, err := s.findOwnedConversation(c)
	if err != nil {
		return err
	}

	messages, err := s.Store.ListChatMessages(ctx, &store.FindChatMessage{
		ConversationID: &conversation.ID,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to fetch messages")
	}

	response := make([]*Message, 0, len(messages))
	for _, message := range messages {
		response = append(response, convertMessageFromStore(message))
	}
	return c.JSON(http.StatusOK, response)
}

// SearchMessages finds messages containing the query across every
// conversation owned by the current session, newest first.
func (s *APIV1Service) SearchMessages(c echo.Context) error {
	ctx := c.Request().Context()
	sessionID := currentSessionID(c)

	query := strings.TrimSpace(c.QueryParam("query"))
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Search query is required")
	}

	hits, err := s.Store.SearchChatMessages(ctx, &store.SearchChatMessage{
		SessionID: sessionID,
		Query:     query,
		Limit:     MaxSearchLimit,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to search messages")
	}

	response := make([]*SearchHit, 0, len(hits))
	for _, hit := range hits {
		response = append(response, &SearchHit{
			Message:           *convertMessageFromStore(&hit.ChatMessage),
			ConversationTitle: hit.ConversationTitle,
		})
	}
	return c.JSON(http.StatusOK, response)
}

// findOwnedConversation resolves the :id path parameter to a conversation and
// verifies the current session owns it. Missing and foreign conversations are
// indistinguishable to the caller.
func (s *APIV1Service) findOwnedConversation(c echo.Context) (*store.ChatConversation, error) {
	ctx := c.Request().Context()
	sessionID := currentSessionID(c)
	uid := c.Param("id")

	conversations, err := s.Store.ListChatConversations(ctx, &store.FindChatConversation{
		UID:       &uid,
		SessionID: &sessionID,
	})
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "failed to get conversation")
	}
	if len(conversations) == 0 {
		return nil, echo.NewHTTPError(http.StatusNotFound, "conversation not found")
	}
	return conversations[0], nil
}

func convertConversationFromStore(conversation *store.ChatConversation) *Conversation {
	return &Conversation{
		ID:        conversation.UID,
		Title:     conversation.Title,
		Folder:    conversation.Folder,
		Pinned:    conversation.Pinned,
		CreatedTs: conversation.CreatedTs,
		UpdatedTs: conversation.UpdatedTs,
	}
}

func convertMessageFromStore(message *store.ChatMessage) *Message {
	return &Message{
		ID:               message.UID,
		Role:             string(message.Role),
		Content:          message.Content,
		TokensUsed:       message.TokensUsed,
		WasFlagged:       message.WasFlagged,
		ModerationReason: message.ModerationReason,
		CreatedTs:        message.CreatedTs,
	}
}
