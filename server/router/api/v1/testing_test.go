package v1

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/inspirlabs/tutorchat/ai/llm"
	"github.com/inspirlabs/tutorchat/internal/profile"
	"github.com/inspirlabs/tutorchat/store"
)

// fakeDriver is an in-memory store.Driver for handler tests.
type fakeDriver struct {
	mu            sync.Mutex
	conversations map[int32]*store.ChatConversation
	messages      map[int32]*store.ChatMessage
	nextID        int32

	// createAssistantErr fails assistant-role writes only, leaving the user
	// turn persisted.
	createAssistantErr error
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		conversations: make(map[int32]*store.ChatConversation),
		messages:      make(map[int32]*store.ChatMessage),
		nextID:        1,
	}
}

func (d *fakeDriver) GetDB() *sql.DB { return nil }
func (d *fakeDriver) Close() error   { return nil }

func (d *fakeDriver) Migrate(_ context.Context) error { return nil }

func (d *fakeDriver) CreateChatConversation(_ context.Context, create *store.ChatConversation) (*store.ChatConversation, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	conversation := *create
	conversation.ID = d.nextID
	d.nextID++
	d.conversations[conversation.ID] = &conversation
	copied := conversation
	return &copied, nil
}

func (d *fakeDriver) ListChatConversations(_ context.Context, find *store.FindChatConversation) ([]*store.ChatConversation, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	list := []*store.ChatConversation{}
	for _, conversation := range d.conversations {
		if find.ID != nil && conversation.ID != *find.ID {
			continue
		}
		if find.UID != nil && conversation.UID != *find.UID {
			continue
		}
		if find.SessionID != nil && conversation.SessionID != *find.SessionID {
			continue
		}
		if find.Pinned != nil && conversation.Pinned != *find.Pinned {
			continue
		}
		copied := *conversation
		list = append(list, &copied)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].UpdatedTs > list[j].UpdatedTs })
	return list, nil
}

func (d *fakeDriver) UpdateChatConversation(_ context.Context, update *store.UpdateChatConversation) (*store.ChatConversation, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	conversation, ok := d.conversations[update.ID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	if update.Title != nil {
		conversation.Title = *update.Title
	}
	if update.Folder != nil {
		conversation.Folder = *update.Folder
	}
	if update.Pinned != nil {
		conversation.Pinned = *update.Pinned
	}
	if update.UpdatedTs != nil {
		conversation.UpdatedTs = *update.UpdatedTs
	}
	copied := *conversation
	return &copied, nil
}

func (d *fakeDriver) DeleteChatConversation(_ context.Context, del *store.DeleteChatConversation) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.conversations[del.ID]; !ok {
		return sql.ErrNoRows
	}
	for id, message := range d.messages {
		if message.ConversationID == del.ID {
			delete(d.messages, id)
		}
	}
	delete(d.conversations, del.ID)
	return nil
}

func (d *fakeDriver) CreateChatMessage(_ context.Context, create *store.ChatMessage) (*store.ChatMessage, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.createAssistantErr != nil && create.Role == store.RoleAssistant {
		return nil, d.createAssistantErr
	}
	message := *create
	message.ID = d.nextID
	d.nextID++
	d.messages[message.ID] = &message
	copied := message
	return &copied, nil
}

func (d *fakeDriver) ListChatMessages(_ context.Context, find *store.FindChatMessage) ([]*store.ChatMessage, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	list := []*store.ChatMessage{}
	for _, message := range d.messages {
		if find.ID != nil && message.ID != *find.ID {
			continue
		}
		if find.ConversationID != nil && message.ConversationID != *find.ConversationID {
			continue
		}
		copied := *message
		list = append(list, &copied)
	}
	sort.Slice(list, func(i, j int) bool {
		if find.OrderDesc {
			return list[i].ID > list[j].ID
		}
		return list[i].ID < list[j].ID
	})
	if find.Limit != nil && len(list) > *find.Limit {
		list = list[:*find.Limit]
	}
	return list, nil
}

func (d *fakeDriver) SearchChatMessages(_ context.Context, search *store.SearchChatMessage) ([]*store.ChatMessageHit, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	hits := []*store.ChatMessageHit{}
	for _, message := range d.messages {
		conversation, ok := d.conversations[message.ConversationID]
		if !ok || conversation.SessionID != search.SessionID {
			continue
		}
		if !strings.Contains(strings.ToLower(message.Content), strings.ToLower(search.Query)) {
			continue
		}
		hits = append(hits, &store.ChatMessageHit{
			ChatMessage:       *message,
			ConversationTitle: conversation.Title,
		})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].ID > hits[j].ID })
	if search.Limit > 0 && len(hits) > search.Limit {
		hits = hits[:search.Limit]
	}
	return hits, nil
}

// fakeLLM streams scripted fragments and records the messages it received.
type fakeLLM struct {
	mu        sync.Mutex
	fragments []string
	usage     *llm.Usage
	streamErr error

	gotMessages []llm.Message
}

func (f *fakeLLM) Chat(_ context.Context, messages []llm.Message) (string, *llm.Usage, error) {
	f.mu.Lock()
	f.gotMessages = messages
	f.mu.Unlock()
	if f.streamErr != nil {
		return "", nil, f.streamErr
	}
	return strings.Join(f.fragments, ""), f.usage, nil
}

func (f *fakeLLM) ChatStream(_ context.Context, messages []llm.Message) (<-chan string, <-chan *llm.Usage, <-chan error) {
	f.mu.Lock()
	f.gotMessages = messages
	f.mu.Unlock()

	contentChan := make(chan string, len(f.fragments))
	usageChan := make(chan *llm.Usage, 1)
	errChan := make(chan error, 1)
	go func() {
		defer close(contentChan)
		defer close(usageChan)
		defer close(errChan)
		for _, fragment := range f.fragments {
			contentChan <- fragment
		}
		if f.streamErr != nil {
			errChan <- f.streamErr
			return
		}
		if f.usage != nil {
			usageChan <- f.usage
		}
	}()
	return contentChan, usageChan, errChan
}

func (f *fakeLLM) Warmup(_ context.Context) {}

func (f *fakeLLM) receivedMessages() []llm.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gotMessages
}

type testEnv struct {
	echo    *echo.Echo
	service *APIV1Service
	driver  *fakeDriver
	llm     *fakeLLM
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	driver := newFakeDriver()
	model := &fakeLLM{
		fragments: []string{"Hello", " there!"},
		usage:     &llm.Usage{CompletionTokens: 12, TotalTokens: 20},
	}
	p := &profile.Profile{
		Mode:                 "dev",
		SessionSecret:        "test-secret",
		MessageRateLimit:     200,
		MaxConcurrentStreams: 4,
	}
	service := NewAPIV1Service(p, store.New(driver, p), model)
	t.Cleanup(service.Close)
	e := echo.New()
	service.RegisterRoutes(e)
	return &testEnv{echo: e, service: service, driver: driver, llm: model}
}

// newSession mints a token straight from the session manager.
func (env *testEnv) newSession(t *testing.T) (sessionID, token string) {
	t.Helper()
	sessionID, token, err := env.service.sessionManager.Issue()
	require.NoError(t, err)
	return sessionID, token
}

func (env *testEnv) request(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.echo.ServeHTTP(rec, req)
	return rec
}

// createConversation seeds a conversation directly through the driver.
func (env *testEnv) createConversation(t *testing.T, sessionID, uid string) *store.ChatConversation {
	t.Helper()
	now := time.Now().Unix()
	conversation, err := env.driver.CreateChatConversation(context.Background(), &store.ChatConversation{
		UID:       uid,
		SessionID: sessionID,
		Title:     "New Chat",
		Folder:    "general",
		CreatedTs: now,
		UpdatedTs: now,
	})
	require.NoError(t, err)
	return conversation
}

// rawSSEFrames returns the undecoded JSON payload of each SSE frame.
func rawSSEFrames(body string) []string {
	frames := []string{}
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(line, "data: ") {
			frames = append(frames, strings.TrimPrefix(line, "data: "))
		}
	}
	return frames
}

// parseSSE splits an SSE body into decoded frames.
func parseSSE(t *testing.T, body string) []sseEvent {
	t.Helper()
	events := []sseEvent{}
	for _, line := range strings.Split(body, "\n") {
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		event := sseEvent{}
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event))
		events = append(events, event)
	}
	return events
}
