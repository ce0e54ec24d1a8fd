package v1

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/lithammer/shortuuid/v4"

	"github.com/inspirlabs/tutorchat/ai/llm"
	"github.com/inspirlabs/tutorchat/ai/moderation"
	"github.com/inspirlabs/tutorchat/internal/strutil"
	"github.com/inspirlabs/tutorchat/store"
)

const (
	// historyLimit bounds how many stored messages are replayed to the model.
	historyLimit = 20
	// titleMaxLen is the truncation point for auto-generated titles.
	titleMaxLen = 50
)

type sendMessageRequest struct {
	Content        string `json:"content"`
	AgeFilter      string `json:"ageFilter"`
	IsRegeneration bool   `json:"isRegeneration"`
	// PreviousResponseID is accepted for wire compatibility; regeneration
	// only affects the system prompt.
	PreviousResponseID string `json:"previousResponseId"`
}

// sseEvent is one frame of the chat stream. Tokens is always present on the
// done frame, even when the provider reported no usage.
type sseEvent struct {
	Type      string `json:"type"`
	Text      string `json:"text,omitempty"`
	MessageID string `json:"messageId,omitempty"`
	Tokens    *int   `json:"tokens,omitempty"`
	Message   string `json:"message,omitempty"`
}

// SendMessage runs one chat turn: moderate the input, persist it, replay
// recent history to the model, and stream the reply back as server-sent
// events. The assistant reply is persisted only when the stream completes;
// a disconnected client cancels the upstream stream and nothing partial is
// stored.
func (s *APIV1Service) SendMessage(c echo.Context) error {
	ctx := c.Request().Context()
	sessionID := currentSessionID(c)
	started := time.Now()

	if s.llmService == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "chat is not configured")
	}

	if !s.rateLimiter.Allow(sessionID) {
		s.chatMetrics.RecordTurn("rate_limited", time.Since(started).Seconds())
		return echo.NewHTTPError(http.StatusTooManyRequests, "Too many messages. Please wait before sending more.")
	}

	conversation, err := s.findOwnedConversation(c)
	if err != nil {
		return err
	}

	req := sendMessageRequest{}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Message content is required")
	}
	tier := moderation.ParseAgeTier(req.AgeFilter)

	// Moderation runs before anything is persisted. A blocked turn leaves no
	// trace in the conversation.
	if decision := moderation.Classify(content, tier); decision.Blocked {
		s.chatMetrics.RecordBlocked(decision.Category)
		s.chatMetrics.RecordTurn("blocked", time.Since(started).Seconds())
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error":   "Content blocked",
			"reason":  decision.Category,
			"message": decision.Message,
		})
	}

	flags := moderation.Flag(content)
	if len(flags) > 0 {
		s.chatMetrics.RecordFlags(flags)
	}

	if _, err := s.Store.CreateChatMessage(ctx, &store.ChatMessage{
		UID:              shortuuid.New(),
		ConversationID:   conversation.ID,
		Role:             store.RoleUser,
		Content:          content,
		WasFlagged:       len(flags) > 0,
		ModerationReason: strings.Join(flags, ", "),
		CreatedTs:        time.Now().Unix(),
	}); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to send message")
	}

	// Replay the newest messages, including the one just saved, in
	// chronological order.
	limit := historyLimit
	history, err := s.Store.ListChatMessages(ctx, &store.FindChatMessage{
		ConversationID: &conversation.ID,
		OrderDesc:      true,
		Limit:          &limit,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to fetch history")
	}

	systemPrompt := moderation.SystemPrompt(tier)
	if req.IsRegeneration {
		systemPrompt += moderation.RegenerationAddendum
	}
	messages := make([]llm.Message, 0, len(history)+1)
	messages = append(messages, llm.SystemPrompt(systemPrompt))
	for i := len(history) - 1; i >= 0; i-- {
		messages = append(messages, llm.Message{
			Role:    string(history[i].Role),
			Content: history[i].Content,
		})
	}

	if err := s.streamSemaphore.Acquire(ctx, 1); err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "server is busy")
	}
	defer s.streamSemaphore.Release(1)

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set(echo.HeaderCacheControl, "no-cache")
	resp.Header().Set(echo.HeaderConnection, "keep-alive")
	resp.WriteHeader(http.StatusOK)

	s.chatMetrics.StreamStarted()
	defer s.chatMetrics.StreamEnded()

	contentChan, usageChan, errChan := s.llmService.ChatStream(ctx, messages)

	var fullResponse strings.Builder
	var usage *llm.Usage
	for {
		select {
		case fragment, ok := <-contentChan:
			if !ok {
				contentChan = nil
				continue
			}
			fullResponse.WriteString(fragment)
			writeEvent(resp, sseEvent{Type: "content", Text: fragment})
		case u, ok := <-usageChan:
			if ok && u != nil {
				usage = u
			}
			usageChan = nil
		case streamErr, ok := <-errChan:
			if ok && streamErr != nil {
				// Fragments generated before the failure may still sit in the
				// content channel; deliver them before the terminal frame.
				flushContent(resp, contentChan, &fullResponse)
				slog.Error("chat stream failed",
					"conversation", conversation.UID,
					"error", streamErr,
				)
				writeEvent(resp, sseEvent{Type: "error", Message: "Streaming failed"})
				s.chatMetrics.RecordTurn("stream_error", time.Since(started).Seconds())
				return nil
			}
			errChan = nil
		case <-ctx.Done():
			// Client went away. The upstream stream is cancelled through the
			// shared context and the partial reply is discarded.
			s.chatMetrics.RecordTurn("cancelled", time.Since(started).Seconds())
			return nil
		}
		if contentChan == nil && usageChan == nil && errChan == nil {
			break
		}
	}

	tokens := 0
	if usage != nil {
		tokens = usage.CompletionTokens
	}
	s.chatMetrics.AddStreamedTokens(tokens)

	messageID := s.persistAssistantMessage(c, conversation, fullResponse.String(), tokens)
	s.maybeRetitle(c, conversation, content, len(history))

	writeEvent(resp, sseEvent{Type: "done", MessageID: messageID, Tokens: &tokens})
	s.chatMetrics.RecordTurn("completed", time.Since(started).Seconds())
	return nil
}

// persistAssistantMessage saves the completed reply. A storage failure here
// is logged but does not turn a delivered stream into a client-visible error.
func (s *APIV1Service) persistAssistantMessage(c echo.Context, conversation *store.ChatConversation, content string, tokens int) string {
	message, err := s.Store.CreateChatMessage(c.Request().Context(), &store.ChatMessage{
		UID:            shortuuid.New(),
		ConversationID: conversation.ID,
		Role:           store.RoleAssistant,
		Content:        content,
		TokensUsed:     int32(tokens),
		CreatedTs:      time.Now().Unix(),
	})
	if err != nil {
		slog.Error("failed to save assistant message",
			"conversation", conversation.UID,
			"error", err,
		)
		return ""
	}
	return message.UID
}

// maybeRetitle names a fresh conversation after its first user message. The
// history count includes the just-saved user message, so the first exchange
// sees at most two stored messages.
func (s *APIV1Service) maybeRetitle(c echo.Context, conversation *store.ChatConversation, content string, historyLen int) {
	if historyLen > 2 {
		return
	}
	title := strutil.Truncate(content, titleMaxLen)
	now := time.Now().Unix()
	if _, err := s.Store.UpdateChatConversation(c.Request().Context(), &store.UpdateChatConversation{
		ID:        conversation.ID,
		Title:     &title,
		UpdatedTs: &now,
	}); err != nil {
		slog.Error("failed to update conversation title",
			"conversation", conversation.UID,
			"error", err,
		)
	}
}

// flushContent writes every fragment already buffered on the content channel
// without blocking on further generation.
func flushContent(resp *echo.Response, contentChan <-chan string, fullResponse *strings.Builder) {
	for {
		select {
		case fragment, ok := <-contentChan:
			if !ok {
				return
			}
			fullResponse.WriteString(fragment)
			writeEvent(resp, sseEvent{Type: "content", Text: fragment})
		default:
			return
		}
	}
}

func writeEvent(resp *echo.Response, event sseEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	fmt.Fprintf(resp, "data: %s\n\n", payload)
	resp.Flush()
}
