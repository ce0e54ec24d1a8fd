package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/inspirlabs/tutorchat/store"
)

func (d *DB) CreateChatConversation(ctx context.Context, create *store.ChatConversation) (*store.ChatConversation, error) {
	fields := []string{"uid", "session_id", "title", "folder", "pinned", "created_ts", "updated_ts"}
	args := []any{create.UID, create.SessionID, create.Title, create.Folder, create.Pinned, create.CreatedTs, create.UpdatedTs}

	stmt := `INSERT INTO chat_conversation (` + strings.Join(fields, ", ") + `)
		VALUES (` + strings.TrimSuffix(strings.Repeat("?, ", len(args)), ", ") + `)
		RETURNING id`
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(&create.ID); err != nil {
		return nil, fmt.Errorf("failed to create chat_conversation: %w", err)
	}

	return create, nil
}

func (d *DB) ListChatConversations(ctx context.Context, find *store.FindChatConversation) ([]*store.ChatConversation, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = ?"), append(args, *find.ID)
	}
	if find.UID != nil {
		where, args = append(where, "uid = ?"), append(args, *find.UID)
	}
	if find.SessionID != nil {
		where, args = append(where, "session_id = ?"), append(args, *find.SessionID)
	}
	if find.Pinned != nil {
		where, args = append(where, "pinned = ?"), append(args, *find.Pinned)
	}

	query := `
		SELECT id, uid, session_id, title, folder, pinned, created_ts, updated_ts
		FROM chat_conversation
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY updated_ts DESC`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat_conversations: %w", err)
	}
	defer rows.Close()

	list := make([]*store.ChatConversation, 0)
	for rows.Next() {
		c := &store.ChatConversation{}
		if err := rows.Scan(&c.ID, &c.UID, &c.SessionID, &c.Title, &c.Folder, &c.Pinned, &c.CreatedTs, &c.UpdatedTs); err != nil {
			return nil, fmt.Errorf("failed to scan chat_conversation: %w", err)
		}
		list = append(list, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chat_conversations: %w", err)
	}

	return list, nil
}

func (d *DB) UpdateChatConversation(ctx context.Context, update *store.UpdateChatConversation) (*store.ChatConversation, error) {
	set, args := []string{}, []any{}

	if update.Title != nil {
		set, args = append(set, "title = ?"), append(args, *update.Title)
	}
	if update.Folder != nil {
		set, args = append(set, "folder = ?"), append(args, *update.Folder)
	}
	if update.Pinned != nil {
		set, args = append(set, "pinned = ?"), append(args, *update.Pinned)
	}
	if update.UpdatedTs != nil {
		set, args = append(set, "updated_ts = ?"), append(args, *update.UpdatedTs)
	}

	if len(set) == 0 {
		return nil, fmt.Errorf("no fields to update")
	}

	args = append(args, update.ID)
	stmt := `UPDATE chat_conversation SET ` + strings.Join(set, ", ") + ` WHERE id = ?
		RETURNING id, uid, session_id, title, folder, pinned, created_ts, updated_ts`
	result := &store.ChatConversation{}
	err := d.db.QueryRowContext(ctx, stmt, args...).Scan(
		&result.ID, &result.UID, &result.SessionID, &result.Title, &result.Folder, &result.Pinned, &result.CreatedTs, &result.UpdatedTs,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("chat_conversation not found")
		}
		return nil, fmt.Errorf("failed to update chat_conversation: %w", err)
	}

	return result, nil
}

func (d *DB) DeleteChatConversation(ctx context.Context, delete *store.DeleteChatConversation) error {
	// chat_message rows cascade via the foreign key.
	result, err := d.db.ExecContext(ctx, `DELETE FROM chat_conversation WHERE id = ?`, delete.ID)
	if err != nil {
		return fmt.Errorf("failed to delete chat_conversation: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("chat_conversation not found")
	}

	return nil
}
