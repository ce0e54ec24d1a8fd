package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/inspirlabs/tutorchat/store"
)

func TestCreateSession(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, http.MethodPost, "/api/v1/sessions", "", "")
	require.Equal(t, http.StatusCreated, rec.Code)

	resp := map[string]string{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp["sessionId"])
	require.NotEmpty(t, resp["token"])

	sessionID, err := env.service.sessionManager.Verify(resp["token"])
	require.NoError(t, err)
	require.Equal(t, resp["sessionId"], sessionID)
}

func TestConversationRoutesRequireSession(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, http.MethodGet, "/api/v1/conversations", "", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.request(t, http.MethodGet, "/api/v1/conversations", "bogus-token", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateConversationDefaults(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.newSession(t)

	rec := env.request(t, http.MethodPost, "/api/v1/conversations", token, `{}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	conversation := Conversation{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conversation))
	require.NotEmpty(t, conversation.ID)
	require.Equal(t, "New Chat", conversation.Title)
	require.Equal(t, "general", conversation.Folder)
	require.False(t, conversation.Pinned)
}

func TestListConversationsScopedToSession(t *testing.T) {
	env := newTestEnv(t)
	aliceID, aliceToken := env.newSession(t)
	bobID, bobToken := env.newSession(t)
	env.createConversation(t, aliceID, "alice-1")
	env.createConversation(t, aliceID, "alice-2")
	env.createConversation(t, bobID, "bob-1")

	rec := env.request(t, http.MethodGet, "/api/v1/conversations", aliceToken, "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := []Conversation{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 2)

	rec = env.request(t, http.MethodGet, "/api/v1/conversations", bobToken, "")
	require.Equal(t, http.StatusOK, rec.Code)
	list = []Conversation{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	require.Equal(t, "bob-1", list[0].ID)
}

func TestGetConversationNotFoundForForeignSession(t *testing.T) {
	env := newTestEnv(t)
	aliceID, _ := env.newSession(t)
	_, bobToken := env.newSession(t)
	env.createConversation(t, aliceID, "alice-1")

	rec := env.request(t, http.MethodGet, "/api/v1/conversations/alice-1", bobToken, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateConversation(t *testing.T) {
	env := newTestEnv(t)
	sessionID, token := env.newSession(t)
	env.createConversation(t, sessionID, "conv-1")

	rec := env.request(t, http.MethodPatch, "/api/v1/conversations/conv-1", token,
		`{"title": "Algebra help", "pinned": true}`)
	require.Equal(t, http.StatusOK, rec.Code)

	conversation := Conversation{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conversation))
	require.Equal(t, "Algebra help", conversation.Title)
	require.True(t, conversation.Pinned)
	require.Equal(t, "general", conversation.Folder)
}

func TestUpdateConversationNoFields(t *testing.T) {
	env := newTestEnv(t)
	sessionID, token := env.newSession(t)
	env.createConversation(t, sessionID, "conv-1")

	rec := env.request(t, http.MethodPatch, "/api/v1/conversations/conv-1", token, `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteConversationCascades(t *testing.T) {
	env := newTestEnv(t)
	sessionID, token := env.newSession(t)
	conversation := env.createConversation(t, sessionID, "conv-1")
	_, err := env.driver.CreateChatMessage(context.Background(), &store.ChatMessage{
		UID:            "msg-1",
		ConversationID: conversation.ID,
		Role:           store.RoleUser,
		Content:        "hello",
		CreatedTs:      time.Now().Unix(),
	})
	require.NoError(t, err)

	rec := env.request(t, http.MethodDelete, "/api/v1/conversations/conv-1", token, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.request(t, http.MethodGet, "/api/v1/conversations/conv-1", token, "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	messages, err := env.driver.ListChatMessages(context.Background(), &store.FindChatMessage{
		ConversationID: &conversation.ID,
	})
	require.NoError(t, err)
	require.Empty(t, messages)
}

func TestListMessagesChronological(t *testing.T) {
	env := newTestEnv(t)
	sessionID, token := env.newSession(t)
	conversation := env.createConversation(t, sessionID, "conv-1")
	for i, content := range []string{"first", "second", "third"} {
		role := store.RoleUser
		if i%2 == 1 {
			role = store.RoleAssistant
		}
		_, err := env.driver.CreateChatMessage(context.Background(), &store.ChatMessage{
			UID:            content,
			ConversationID: conversation.ID,
			Role:           role,
			Content:        content,
			CreatedTs:      time.Now().Unix(),
		})
		require.NoError(t, err)
	}

	rec := env.request(t, http.MethodGet, "/api/v1/conversations/conv-1/messages", token, "")
	require.Equal(t, http.StatusOK, rec.Code)

	messages := []Message{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &messages))
	require.Len(t, messages, 3)
	require.Equal(t, "first", messages[0].Content)
	require.Equal(t, "third", messages[2].Content)
}

func TestSearchMessages(t *testing.T) {
	env := newTestEnv(t)
	aliceID, aliceToken := env.newSession(t)
	bobID, _ := env.newSession(t)
	aliceConv := env.createConversation(t, aliceID, "alice-1")
	bobConv := env.createConversation(t, bobID, "bob-1")

	for _, seed := range []struct {
		conv    *store.ChatConversation
		content string
	}{
		{aliceConv, "photosynthesis is how plants make food"},
		{aliceConv, "the mitochondria is the powerhouse"},
		{bobConv, "photosynthesis for bob"},
	} {
		_, err := env.driver.CreateChatMessage(context.Background(), &store.ChatMessage{
			UID:            seed.content[:8],
			ConversationID: seed.conv.ID,
			Role:           store.RoleUser,
			Content:        seed.content,
			CreatedTs:      time.Now().Unix(),
		})
		require.NoError(t, err)
	}

	rec := env.request(t, http.MethodGet, "/api/v1/search?query=photosynthesis", aliceToken, "")
	require.Equal(t, http.StatusOK, rec.Code)

	hits := []SearchHit{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &hits))
	require.Len(t, hits, 1)
	require.Contains(t, hits[0].Content, "plants")
	require.Equal(t, "New Chat", hits[0].ConversationTitle)
}

func TestSearchMessagesRequiresQuery(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.newSession(t)

	rec := env.request(t, http.MethodGet, "/api/v1/search", token, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
