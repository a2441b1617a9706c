package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/greentable/vtt/internal/services/table/domain/chat"
)

// AppendMessage stores a message and assigns it the next sequence number of
// its campaign. The assignment happens inside a transaction so two writers
// never share a sequence.
func (s *Store) AppendMessage(ctx context.Context, msg chat.Message) (chat.Message, error) {
	msg.ID = strings.TrimSpace(msg.ID)
	msg.CampaignID = strings.TrimSpace(msg.CampaignID)
	if msg.ID == "" {
		return chat.Message{}, fmt.Errorf("message id is required")
	}
	if msg.CampaignID == "" {
		return chat.Message{}, fmt.Errorf("campaign id is required")
	}
	if err := msg.Validate(); err != nil {
		return chat.Message{}, err
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	var metadata sql.NullString
	if len(msg.Metadata) > 0 {
		metadata = sql.NullString{String: string(msg.Metadata), Valid: true}
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return chat.Message{}, fmt.Errorf("begin append message: %w", err)
	}

	err = tx.QueryRowContext(ctx, `
SELECT COALESCE(MAX(seq), 0) + 1 FROM chat_messages WHERE campaign_id = ?
`, msg.CampaignID).Scan(&msg.Seq)
	if err != nil {
		_ = tx.Rollback()
		return chat.Message{}, fmt.Errorf("next message seq: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO chat_messages (id, campaign_id, seq, author_id, kind, body, metadata_json, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`,
		msg.ID,
		msg.CampaignID,
		msg.Seq,
		msg.AuthorID,
		string(msg.Kind),
		msg.Body,
		metadata,
		toMillis(msg.CreatedAt),
	)
	if err != nil {
		_ = tx.Rollback()
		return chat.Message{}, fmt.Errorf("append message: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return chat.Message{}, fmt.Errorf("commit append message: %w", err)
	}
	return msg, nil
}

// ListMessages returns messages with seq greater than afterSeq in sequence
// order, at most limit entries. A non-positive limit means no cap.
func (s *Store) ListMessages(ctx context.Context, campaignID string, afterSeq int64, limit int) ([]chat.Message, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, campaign_id, seq, author_id, kind, body, metadata_json, created_at
FROM chat_messages
WHERE campaign_id = ? AND seq > ?
ORDER BY seq
LIMIT ?
`, campaignID, afterSeq, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var messages []chat.Message
	for rows.Next() {
		var msg chat.Message
		var kind string
		var metadata sql.NullString
		var createdAt int64
		if err := rows.Scan(&msg.ID, &msg.CampaignID, &msg.Seq, &msg.AuthorID, &kind, &msg.Body, &metadata, &createdAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.Kind = chat.Kind(kind)
		if metadata.Valid {
			msg.Metadata = json.RawMessage(metadata.String)
		}
		msg.CreatedAt = fromMillis(createdAt)
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return messages, nil
}
