package repositories

import (
	"context"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/mentorconnect/internal/app/models"
)

// IMessageRepository defines chat message persistence
type IMessageRepository interface {
	Create(ctx context.Context, msg *models.Message) error
	ListConversation(ctx context.Context, a, b int64, limit uint64) ([]*models.Message, error)
	MarkRead(ctx context.Context, readerID, otherID int64) (int64, error)
}

// MessageRepository handles database operations for chat messages
type MessageRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewMessageRepository creates a new MessageRepository
func NewMessageRepository(db *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a new message
func (r *MessageRepository) Create(ctx context.Context, msg *models.Message) error {
	sql, args, err := r.sb.Insert("messages").
		Columns("sender_id", "receiver_id", "content").
		Values(msg.SenderID, msg.ReceiverID, msg.Content).
		Suffix("RETURNING id, read, created_at").
		ToSql()
	if err != nil {
		return buildError(err, "create message")
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&msg.ID, &msg.Read, &msg.CreatedAt); err != nil {
		return storeError(err, "create message")
	}
	return nil
}

// ListConversation returns the messages exchanged between a and b in
// chronological order. A zero limit returns the whole history, otherwise the
// latest limit messages.
func (r *MessageRepository) ListConversation(ctx context.Context, a, b int64, limit uint64) ([]*models.Message, error) {
	q := r.sb.Select("id", "sender_id", "receiver_id", "content", "read", "created_at").
		From("messages").
		Where(squirrel.Or{
			squirrel.Eq{"sender_id": a, "receiver_id": b},
			squirrel.Eq{"sender_id": b, "receiver_id": a},
		}).
		OrderBy("created_at DESC", "id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, buildError(err, "list messages")
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, storeError(err, "list messages")
	}
	defer rows.Close()

	messages := []*models.Message{}
	for rows.Next() {
		m := &models.Message{}
		if err := rows.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Content, &m.Read, &m.CreatedAt); err != nil {
			return nil, storeError(err, "scan message")
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(err, "iterate messages")
	}

	// fetched newest first so LIMIT keeps the tail; flip back to chronological
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// MarkRead flags every unread message from otherID to readerID as read
func (r *MessageRepository) MarkRead(ctx context.Context, readerID, otherID int64) (int64, error) {
	sql, args, err := r.sb.Update("messages").
		Set("read", true).
		Where(squirrel.Eq{"sender_id": otherID, "receiver_id": readerID, "read": false}).
		ToSql()
	if err != nil {
		return 0, buildError(err, "mark messages read")
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return 0, storeError(err, "mark messages read")
	}
	return tag.RowsAffected(), nil
}
