package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"bookmarket/internal/models"
)

var ErrRoomNotFound = errors.New("chat room not found")

const roomColumns = `id, buyer_id, seller_id, book_id, last_message, last_message_id, created_at, updated_at`

// RoomListEntry is one row of a user's room list, joined with the listing
// title for display.
type RoomListEntry struct {
	models.ChatRoom
	BookTitle string `db:"book_title"`
}

// RoomRepository abstracts chat-room persistence.
type RoomRepository interface {
	CreateOrGetRoom(ctx context.Context, buyerID string, sellerID string, bookID int64) (models.ChatRoom, bool, error)
	GetRoom(ctx context.Context, roomID int64) (models.ChatRoom, error)
	ListRoomsForUser(ctx context.Context, userID string) ([]RoomListEntry, error)
}

// RoomRepo is a sqlx implementation of RoomRepository.
type RoomRepo struct {
	db *sqlx.DB
}

// NewRoomRepo constructs a RoomRepo.
func NewRoomRepo(db *sqlx.DB) *RoomRepo {
	return &RoomRepo{db: db}
}

// CreateOrGetRoom returns the room for (buyer, book), creating it when first
// contact happens. The UNIQUE(buyer_id, book_id) constraint makes the create
// idempotent under concurrent first contacts: losers of the race fall through
// to the winner's row. An existing room is returned unchanged; its stored
// seller is not re-validated.
func (r *RoomRepo) CreateOrGetRoom(ctx context.Context, buyerID string, sellerID string, bookID int64) (models.ChatRoom, bool, error) {
	var room models.ChatRoom
	err := r.db.GetContext(ctx, &room,
		`SELECT `+roomColumns+` FROM chat_rooms WHERE buyer_id=$1 AND book_id=$2`, buyerID, bookID)
	if err == nil {
		return room, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.ChatRoom{}, false, err
	}

	err = r.db.QueryRowxContext(ctx,
		`INSERT INTO chat_rooms (buyer_id, seller_id, book_id) VALUES ($1, $2, $3)
         ON CONFLICT (buyer_id, book_id) DO NOTHING
         RETURNING `+roomColumns, buyerID, sellerID, bookID).StructScan(&room)
	if errors.Is(err, sql.ErrNoRows) {
		// Lost a concurrent first-contact race; the winner's row stands.
		err = r.db.GetContext(ctx, &room,
			`SELECT `+roomColumns+` FROM chat_rooms WHERE buyer_id=$1 AND book_id=$2`, buyerID, bookID)
		return room, false, err
	}
	if err != nil {
		return models.ChatRoom{}, false, err
	}
	return room, true, nil
}

// GetRoom fetches a room by id.
func (r *RoomRepo) GetRoom(ctx context.Context, roomID int64) (models.ChatRoom, error) {
	var room models.ChatRoom
	err := r.db.GetContext(ctx, &room, `SELECT `+roomColumns+` FROM chat_rooms WHERE id=$1`, roomID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ChatRoom{}, ErrRoomNotFound
	}
	return room, err
}

// ListRoomsForUser returns rooms the user participates in, most recently
// updated first.
func (r *RoomRepo) ListRoomsForUser(ctx context.Context, userID string) ([]RoomListEntry, error) {
	query := `SELECT r.id, r.buyer_id, r.seller_id, r.book_id, r.last_message, r.last_message_id,
            r.created_at, r.updated_at, b.title AS book_title
        FROM chat_rooms r
        JOIN books b ON b.id = r.book_id
        WHERE r.buyer_id=$1 OR r.seller_id=$1
        ORDER BY r.updated_at DESC`
	var entries []RoomListEntry
	err := r.db.SelectContext(ctx, &entries, query, userID)
	return entries, err
}
