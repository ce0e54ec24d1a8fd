package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/inspirlabs/tutorchat/store"
)

func (d *DB) CreateChatMessage(ctx context.Context, create *store.ChatMessage) (*store.ChatMessage, error) {
	fields := []string{"uid", "conversation_id", "role", "content", "tokens_used", "was_flagged", "moderation_reason", "created_ts"}
	args := []any{create.UID, create.ConversationID, create.Role, create.Content, create.TokensUsed, create.WasFlagged, create.ModerationReason, create.CreatedTs}

	stmt := `INSERT INTO chat_message (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(args)) + `)
		RETURNING id`
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(&create.ID); err != nil {
		return nil, fmt.Errorf("failed to create chat_message: %w", err)
	}

	return create, nil
}

func (d *DB) ListChatMessages(ctx context.Context, find *store.FindChatMessage) ([]*store.ChatMessage, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.ConversationID != nil {
		where, args = append(where, "conversation_id = "+placeholder(len(args)+1)), append(args, *find.ConversationID)
	}

	order := "ASC"
	if find.OrderDesc {
		order = "DESC"
	}

	query := `
		SELECT id, uid, conversation_id, role, content, tokens_used, was_flagged, moderation_reason, created_ts
		FROM chat_message
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts ` + order + `, id ` + order
	if find.Limit != nil {
		query += fmt.Sprintf(" LIMIT %d", *find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat_messages: %w", err)
	}
	defer rows.Close()

	list := make([]*store.ChatMessage, 0)
	for rows.Next() {
		m := &store.ChatMessage{}
		if err := rows.Scan(&m.ID, &m.UID, &m.ConversationID, &m.Role, &m.Content, &m.TokensUsed, &m.WasFlagged, &m.ModerationReason, &m.CreatedTs); err != nil {
			return nil, fmt.Errorf("failed to scan chat_message: %w", err)
		}
		list = append(list, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chat_messages: %w", err)
	}

	return list, nil
}

func (d *DB) SearchChatMessages(ctx context.Context, search *store.SearchChatMessage) ([]*store.ChatMessageHit, error) {
	limit := search.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT m.id, m.uid, m.conversation_id, m.role, m.content, m.tokens_used, m.was_flagged, m.moderation_reason, m.created_ts, c.title
		FROM chat_message m
		JOIN chat_conversation c ON c.id = m.conversation_id
		WHERE c.session_id = $1 AND m.content ILIKE $2
		ORDER BY m.created_ts DESC, m.id DESC
		LIMIT $3`

	rows, err := d.db.QueryContext(ctx, query, search.SessionID, "%"+search.Query+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search chat_messages: %w", err)
	}
	defer rows.Close()

	list := make([]*store.ChatMessageHit, 0)
	for rows.Next() {
		h := &store.ChatMessageHit{}
		if err := rows.Scan(&h.ID, &h.UID, &h.ConversationID, &h.Role, &h.Content, &h.TokensUsed, &h.WasFlagged, &h.ModerationReason, &h.CreatedTs, &h.ConversationTitle); err != nil {
			return nil, fmt.Errorf("failed to scan chat_message hit: %w", err)
		}
		list = append(list, h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chat_message hits: %w", err)
	}

	return list, nil
}
