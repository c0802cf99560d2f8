package models

import (
	"database/sql"
	"time"
)

// ChatRoom binds one buyer, one seller and one book. At most one room exists
// per (buyer, book) pair; the seller is stored redundantly for cheap listing
// queries. LastMessage/UpdatedAt are denormalized from the newest message and
// LastMessageID guards that denormalization against out-of-order writers.
type ChatRoom struct {
	ID            int64          `db:"id" json:"id"`
	BuyerID       string         `db:"buyer_id" json:"buyer_id"`
	SellerID      string         `db:"seller_id" json:"seller_id"`
	BookID        int64          `db:"book_id" json:"book_id"`
	LastMessage   sql.NullString `db:"last_message" json:"-"`
	LastMessageID int64          `db:"last_message_id" json:"-"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

// IsParticipant reports whether userID is the room's buyer or seller.
func (r ChatRoom) IsParticipant(userID string) bool {
	return r.BuyerID == userID || r.SellerID == userID
}

// OpponentOf returns the counterpart of userID in the room. The caller must
// already have verified participation.
func (r ChatRoom) OpponentOf(userID string) string {
	if r.BuyerID == userID {
		return r.SellerID
	}
	return r.BuyerID
}

// RoomSummary is the API view of one room in the caller's room list.
type RoomSummary struct {
	RoomID       int64  `json:"chatroom_id"`
	OpponentName string `json:"opponent_name"`
	BookTitle    string `json:"book_title"`
	LastMessage  string `json:"last_message"`
	UpdatedAt    string `json:"updated_at"`
}
