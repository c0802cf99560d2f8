package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"bookmarket/internal/models"
)

// MessageRepository defines interactions for room messages.
type MessageRepository interface {
	CreateMessage(ctx context.Context, roomID int64, senderID string, content string) (models.Message, error)
	ListMessages(ctx context.Context, roomID int64) ([]models.Message, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// CreateMessage appends a message and denormalizes it onto the room in the
// same transaction. The room update carries a last_message_id guard so a
// slower writer whose message is older can never overwrite the summary of a
// newer one.
func (r *MessageRepo) CreateMessage(ctx context.Context, roomID int64, senderID string, content string) (models.Message, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Message{}, err
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM chat_rooms WHERE id=$1)`, roomID); err != nil {
		return models.Message{}, err
	}
	if !exists {
		return models.Message{}, ErrRoomNotFound
	}

	var msg models.Message
	err = tx.QueryRowxContext(ctx,
		`INSERT INTO messages (room_id, sender_id, content) VALUES ($1, $2, $3)
         RETURNING id, room_id, sender_id, content, created_at`,
		roomID, senderID, content).StructScan(&msg)
	if err != nil {
		return models.Message{}, err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE chat_rooms SET last_message=$2, updated_at=$3, last_message_id=$4
         WHERE id=$1 AND last_message_id < $4`,
		roomID, msg.Content, msg.CreatedAt, msg.ID); err != nil {
		return models.Message{}, err
	}

	if err := tx.Commit(); err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

// ListMessages returns all messages of a room in ascending time order.
func (r *MessageRepo) ListMessages(ctx context.Context, roomID int64) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs,
		`SELECT id, room_id, sender_id, content, created_at FROM messages
         WHERE room_id=$1 ORDER BY created_at ASC, id ASC`, roomID)
	if errors.Is(err, sql.ErrNoRows) {
		return []models.Message{}, nil
	}
	return msgs, err
}
